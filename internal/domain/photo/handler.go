package photo

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"tweestoelen/internal/pkg/response"
	"tweestoelen/internal/pkg/validator"
)

const unavailableMessage = "Kan geen verbinding maken met de fotodatabase"

// Handler serves the photo endpoints. No authentication: the archive is
// public, admin routes are guarded by middleware.
type Handler struct {
	service *Service
	log     *slog.Logger
}

func NewHandler(service *Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{service: service, log: log}
}

// Upload godoc
// @Summary Upload a new current photo
// @Tags Photos
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image"
// @Success 201 {object} map[string]interface{}
// @Failure 400,500,503 {object} map[string]interface{}
// @Router /upload [post]
func (h *Handler) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		fh, err = c.FormFile("photo")
	}
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Geen bestand ontvangen")
		return
	}
	if fh.Size > h.service.MaxUploadSize() {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR",
			fmt.Sprintf("Bestand is groter dan %d bytes", h.service.MaxUploadSize()))
		return
	}

	data, err := readFormFile(fh, h.service.MaxUploadSize())
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Bestand kon niet gelezen worden")
		return
	}

	p, err := h.service.Upload(c.Request.Context(), fh.Filename, data)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, ToResponse(p))
}

func readFormFile(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, limit+1))
}

// DeletePhoto godoc
// @Summary Delete a photo and its image
// @Tags Photos
// @Accept json
// @Produce json
// @Param body body DeletePhotoRequest true "Photo id"
// @Success 200 {object} map[string]interface{}
// @Failure 400,404,500,503 {object} map[string]interface{}
// @Router /delete-photo [post]
func (h *Handler) DeletePhoto(c *gin.Context) {
	var req DeletePhotoRequest
	if !h.bind(c, &req) {
		return
	}
	if err := h.service.Delete(c.Request.Context(), int64(req.PhotoID)); err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": int64(req.PhotoID)})
}

// UpdateDescription godoc
// @Summary Set or clear the description of a photo
// @Tags Photos
// @Accept json
// @Produce json
// @Param body body UpdateDescriptionRequest true "Description"
// @Success 200 {object} map[string]interface{}
// @Failure 400,404,500,503 {object} map[string]interface{}
// @Router /update-description [post]
func (h *Handler) UpdateDescription(c *gin.Context) {
	var req UpdateDescriptionRequest
	if !h.bind(c, &req) {
		return
	}
	p, err := h.service.UpdateDescription(c.Request.Context(), int64(req.PhotoID), req.Description)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, ToResponse(p))
}

// UpdateLocationDate godoc
// @Summary Set the location name and date of a photo
// @Tags Photos
// @Accept json
// @Produce json
// @Param body body UpdateLocationDateRequest true "Location and date"
// @Success 200 {object} map[string]interface{}
// @Failure 400,404,500,503 {object} map[string]interface{}
// @Router /update-location-date [post]
func (h *Handler) UpdateLocationDate(c *gin.Context) {
	var req UpdateLocationDateRequest
	if !h.bind(c, &req) {
		return
	}
	date, err := ParsePhotoDate(req.PhotoDate)
	if err != nil {
		h.writeError(c, err)
		return
	}
	p, err := h.service.UpdateLocationDate(c.Request.Context(), int64(req.PhotoID), req.LocationName, date)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, ToResponse(p))
}

// UpdateLocation godoc
// @Summary Set legacy coordinates of a photo
// @Tags Photos
// @Accept json
// @Produce json
// @Param body body UpdateLocationRequest true "Coordinates"
// @Success 200 {object} map[string]interface{}
// @Failure 400,404,500,503 {object} map[string]interface{}
// @Router /update-location [post]
func (h *Handler) UpdateLocation(c *gin.Context) {
	var req UpdateLocationRequest
	if !h.bind(c, &req) {
		return
	}
	p, err := h.service.UpdateLocation(c.Request.Context(), int64(req.PhotoID), *req.Lat, *req.Lng, req.Name)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, ToResponse(p))
}

// GetCurrent godoc
// @Summary Current homepage photo
// @Tags Photos
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /photos/current [get]
func (h *Handler) GetCurrent(c *gin.Context) {
	p, err := h.service.Current(c.Request.Context())
	if err != nil {
		if errors.Is(err, ErrBackendUnavailable) {
			h.log.Warn("current photo unavailable", "error", err.Error())
			response.Degraded(c, http.StatusOK, nil, "BACKEND_UNAVAILABLE", unavailableMessage)
			return
		}
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, ToResponse(p))
}

// List godoc
// @Summary Archive, newest first
// @Tags Photos
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /photos [get]
func (h *Handler) List(c *gin.Context) {
	photos, err := h.service.List(c.Request.Context())
	if err != nil {
		if errors.Is(err, ErrBackendUnavailable) {
			h.log.Warn("archive unavailable", "error", err.Error())
			response.Degraded(c, http.StatusOK, []PhotoResponse{}, "BACKEND_UNAVAILABLE", unavailableMessage)
			return
		}
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, ToResponses(photos))
}

// GetByID godoc
// @Summary Single photo
// @Tags Photos
// @Produce json
// @Param id path int true "Photo ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400,404 {object} map[string]interface{}
// @Router /photos/{id} [get]
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	p, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrBackendUnavailable) {
			h.log.Warn("photo unavailable", "photo_id", id, "error", err.Error())
			response.Degraded(c, http.StatusOK, nil, "BACKEND_UNAVAILABLE", unavailableMessage)
			return
		}
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, ToResponse(p))
}

// Download godoc
// @Summary Download the image of a photo
// @Tags Photos
// @Produce octet-stream
// @Param id path int true "Photo ID"
// @Router /photos/{id}/download [get]
func (h *Handler) Download(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	rc, name, err := h.service.Download(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	c.DataFromReader(http.StatusOK, -1, contentTypeOf(name), rc, nil)
}

// CreateBucket godoc
// @Summary Make sure the photo bucket exists and is public
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500,503 {object} map[string]interface{}
// @Router /create-bucket [get]
func (h *Handler) CreateBucket(c *gin.Context) {
	created, err := h.service.EnsureBucket(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	msg := "Bucket already exists"
	if created {
		msg = "Bucket created successfully"
	}
	response.Success(c, http.StatusOK, gin.H{"message": msg, "created": created})
}

// Health godoc
// @Summary Backend connectivity check
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) Health(c *gin.Context) {
	now := time.Now().UTC().Format(time.RFC3339)
	if err := h.service.Health(c.Request.Context()); err != nil {
		h.log.Error("health check failed", "error", err.Error())
		response.ErrorWithDetails(c, http.StatusServiceUnavailable, "BACKEND_UNAVAILABLE",
			"Database is niet bereikbaar", gin.H{"status": "error", "timestamp": now})
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": "ok", "database": "connected", "timestamp": now})
}

// Reset godoc
// @Summary Delete every photo and image
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401,500,503 {object} map[string]interface{}
// @Router /admin/reset [post]
func (h *Handler) Reset(c *gin.Context) {
	if err := h.service.Reset(c.Request.Context()); err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Alle foto's zijn verwijderd"})
}

func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Ongeldige aanvraag: "+err.Error())
		return false
	}
	if errs := validator.Validate(req); errs != nil {
		if _, ok := errs["photoId"]; ok {
			response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Geen foto ID ontvangen", errs)
			return false
		}
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Ongeldige invoer", errs)
		return false
	}
	return true
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Ongeldig foto ID")
		return 0, false
	}
	return id, true
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, ErrBackendUnavailable):
		h.log.Error("backend unavailable", "path", c.FullPath(), "error", err.Error())
		response.Error(c, http.StatusServiceUnavailable, "BACKEND_UNAVAILABLE", unavailableMessage)
	case errors.Is(err, ErrUpload):
		h.log.Error("upload failed", "error", err.Error())
		response.Error(c, http.StatusInternalServerError, "UPLOAD_FAILED", "Fout bij uploaden")
	default:
		h.log.Error("request failed", "path", c.FullPath(), "error", err.Error())
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Er is een onverwachte fout opgetreden")
	}
}

func contentTypeOf(name string) string {
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
