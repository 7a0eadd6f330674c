package photo

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the public photo API. admin guards the destructive
// reset endpoint.
func RegisterRoutes(r *gin.RouterGroup, h *Handler, admin gin.HandlerFunc) {
	r.GET("/health", h.Health)
	r.GET("/create-bucket", h.CreateBucket)

	photos := r.Group("/photos")
	{
		photos.GET("", h.List)
		photos.GET("/current", h.GetCurrent)
		photos.GET("/:id", h.GetByID)
		photos.GET("/:id/download", h.Download)
	}

	r.POST("/upload", h.Upload)
	r.POST("/delete-photo", h.DeletePhoto)
	r.POST("/update-description", h.UpdateDescription)
	r.POST("/update-location-date", h.UpdateLocationDate)
	r.POST("/update-location", h.UpdateLocation)

	r.POST("/admin/reset", admin, h.Reset)
}
