package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	PhotoID int64    `json:"photoId" validate:"required,gt=0"`
	Lat     *float64 `json:"lat" validate:"required"`
	Note    string   `json:"-"`
}

func TestValidate_ReportsJSONFieldNames(t *testing.T) {
	errs := Validate(&sample{})

	assert.Equal(t, "required", errs["photoId"])
	assert.Equal(t, "required", errs["lat"])
	assert.Len(t, errs, 2)
}

func TestValidate_OK(t *testing.T) {
	lat := 52.1
	assert.Nil(t, Validate(&sample{PhotoID: 3, Lat: &lat}))
}

func TestValidate_NonStruct(t *testing.T) {
	errs := Validate(42)
	assert.Contains(t, errs, "_")
}
