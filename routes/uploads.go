package routes

import (
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/gin-gonic/gin"

	"road-quest-server/config"
	"road-quest-server/database"
	"road-quest-server/middleware"
)

// validateImageFile validates mimetype and size (<= 5MB)
func validateImageFile(h *multipart.FileHeader) bool {
	if h == nil || h.Size <= 0 || h.Size > 5*1024*1024 {
		return false
	}
	ext := strings.ToLower(filepath.Ext(h.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
		return true
	default:
		return false
	}
}

// RegisterUploadRoutes adds the car image upload endpoint
func RegisterUploadRoutes(rg *gin.RouterGroup) {
	rg.POST("/my-cars/:id/image", uploadCarImage)
}

// uploadCarImage stores a listing photo in Cloudinary and saves the URL
func uploadCarImage(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	car, ok := loadOwnedCar(c, user.ID)
	if !ok {
		return
	}

	if err := c.Request.ParseMultipartForm(10 << 20); err != nil { // 10MB
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid form data",
			"message": "Expected a multipart upload",
		})
		return
	}

	header, err := c.FormFile("image")
	if err != nil || header == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "No file provided",
			"message": "Attach the photo as the image form field",
		})
		return
	}

	if !validateImageFile(header) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid image",
			"message": "Image must be jpg, png or webp and at most 5MB",
		})
		return
	}

	cfg := config.AppConfig.Cloudinary
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Uploads not configured",
			"message": "Image hosting is not configured on this server",
		})
		return
	}

	cloudinaryURL := fmt.Sprintf("cloudinary://%s:%s@%s", cfg.APIKey, cfg.APISecret, cfg.CloudName)
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Upload failed",
			"message": "Image hosting is unavailable",
		})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid file",
			"message": "Could not read the uploaded file",
		})
		return
	}
	defer file.Close()

	publicID := fmt.Sprintf("road-quest/cars/%d", car.ID)
	result, err := cld.Upload.Upload(c.Request.Context(), file, uploader.UploadParams{
		PublicID:  publicID,
		Overwrite: boolPtr(true),
	})
	if err != nil {
		log.Printf("❌ Cloudinary upload failed for car %d: %v", car.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Upload failed",
			"message": "Could not store the image",
		})
		return
	}

	car.ImageURL = result.SecureURL
	if err := database.DB.Save(&car).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Update failed",
			"message": "Image stored but the listing could not be updated",
		})
		return
	}

	invalidateCarCache(c)
	log.Printf("✅ Image uploaded for car %d", car.ID)
	c.JSON(http.StatusOK, gin.H{
		"message":  "Image uploaded",
		"imageUrl": car.ImageURL,
	})
}

func boolPtr(b bool) *bool {
	return &b
}
