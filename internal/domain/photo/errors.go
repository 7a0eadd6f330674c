package photo

import "errors"

var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("photo not found")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrUpload             = errors.New("upload failed")
	ErrPartialFailure     = errors.New("secondary step failed")
)
