package routes

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"

	"road-quest-server/database"
	"road-quest-server/middleware"
	"road-quest-server/models"
)

// CarPayload is the typed add/edit car body, mirroring the listing form
type CarPayload struct {
	CarModel                  string   `json:"carModel" binding:"required"`
	DailyRentalPrice          float64  `json:"dailyRentalPrice" binding:"required,gt=0"`
	Availability              string   `json:"availability" binding:"omitempty,oneof=available unavailable maintenance"`
	VehicleRegistrationNumber string   `json:"vehicleRegistrationNumber" binding:"required"`
	Features                  []string `json:"features"`
	Description               string   `json:"description"`
	ImageURL                  string   `json:"imageUrl"`
	Location                  string   `json:"location" binding:"required"`
}

// RegisterCarRoutes registers the public car browsing routes
func RegisterCarRoutes(router *gin.Engine) {
	router.GET("/available-cars", getAvailableCars)
	router.GET("/cars/:id", getCarDetails)
}

// RegisterMyCarRoutes registers the authenticated listing-management routes
func RegisterMyCarRoutes(router *gin.RouterGroup) {
	router.POST("/my-cars", addCar)
	router.GET("/my-cars", getMyCars)
	router.PUT("/my-cars/:id", updateMyCar)
	router.DELETE("/my-cars/:id", deleteMyCar)
}

// getAvailableCars lists bookable cars with search and sorting. Responses
// are cached in redis per query shape when the cache is configured.
func getAvailableCars(c *gin.Context) {
	q := c.Query("q")
	sortBy := c.DefaultQuery("sortBy", "date")
	order := c.DefaultQuery("order", "desc")

	if sortBy != "date" && sortBy != "price" {
		sortBy = "date"
	}
	if order != "asc" && order != "desc" {
		order = "desc"
	}

	cacheKey := fmt.Sprintf(database.KeyAvailableCars, q, sortBy, order)
	if cached, ok := database.CacheGet(c.Request.Context(), cacheKey); ok {
		c.Data(http.StatusOK, "application/json", cached)
		return
	}

	query := database.DB.Model(&models.Car{}).Where("availability = ?", models.CarAvailable)

	if q != "" {
		pattern := "%" + q + "%"
		query = query.Where("car_model ILIKE ? OR location ILIKE ?", pattern, pattern)
	}

	switch sortBy {
	case "price":
		query = query.Order("daily_rental_price " + order)
	default:
		query = query.Order("created_at " + order)
	}

	var cars []models.Car
	if err := query.Find(&cars).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to fetch cars",
			"message": "Could not load available cars",
		})
		return
	}

	if payload, err := json.Marshal(cars); err == nil {
		database.CacheSet(c.Request.Context(), cacheKey, payload)
		c.Data(http.StatusOK, "application/json", payload)
		return
	}

	c.JSON(http.StatusOK, cars)
}

// getCarDetails returns a single car listing
func getCarDetails(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid car ID",
			"message": "Car ID must be numeric",
		})
		return
	}

	var car models.Car
	if err := database.DB.First(&car, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Car not found",
			"message": "No car with this ID exists",
		})
		return
	}

	c.JSON(http.StatusOK, car)
}

// addCar creates a listing owned by the caller
func addCar(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var req CarPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"message": err.Error(),
		})
		return
	}

	availability := models.CarAvailability(req.Availability)
	if req.Availability == "" {
		availability = models.CarAvailable
	}

	car := models.Car{
		OwnerID:                   user.ID,
		OwnerEmail:                user.Email,
		CarModel:                  req.CarModel,
		DailyRentalPrice:          req.DailyRentalPrice,
		Availability:              availability,
		VehicleRegistrationNumber: req.VehicleRegistrationNumber,
		Features:                  pq.StringArray(req.Features),
		Description:               req.Description,
		ImageURL:                  req.ImageURL,
		Location:                  req.Location,
	}

	if err := database.DB.Create(&car).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Car creation failed",
			"message": "Failed to create car listing",
		})
		return
	}

	invalidateCarCache(c)
	log.Printf("✅ Car %d listed by %s", car.ID, user.Email)
	c.JSON(http.StatusCreated, gin.H{
		"message": "Car added successfully",
		"car":     car,
	})
}

// getMyCars lists the caller's cars with the management-page sort options
func getMyCars(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	query := database.DB.Where("owner_id = ?", user.ID)

	switch c.DefaultQuery("sort", "newest") {
	case "oldest":
		query = query.Order("created_at asc")
	case "price-low":
		query = query.Order("daily_rental_price asc")
	case "price-high":
		query = query.Order("daily_rental_price desc")
	default:
		query = query.Order("created_at desc")
	}

	var cars []models.Car
	if err := query.Find(&cars).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to fetch cars",
			"message": "Could not load your cars",
		})
		return
	}

	c.JSON(http.StatusOK, cars)
}

// updateMyCar edits a listing; only the owner may touch it
func updateMyCar(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	car, ok := loadOwnedCar(c, user.ID)
	if !ok {
		return
	}

	var req CarPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"message": err.Error(),
		})
		return
	}

	car.CarModel = req.CarModel
	car.DailyRentalPrice = req.DailyRentalPrice
	if req.Availability != "" {
		car.Availability = models.CarAvailability(req.Availability)
	}
	car.VehicleRegistrationNumber = req.VehicleRegistrationNumber
	car.Features = pq.StringArray(req.Features)
	car.Description = req.Description
	car.ImageURL = req.ImageURL
	car.Location = req.Location

	if err := database.DB.Save(&car).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Update failed",
			"message": "Failed to update car listing",
		})
		return
	}

	invalidateCarCache(c)
	c.JSON(http.StatusOK, gin.H{
		"message": "Car updated successfully",
		"car":     car,
	})
}

// deleteMyCar removes a listing; only the owner may delete it
func deleteMyCar(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	car, ok := loadOwnedCar(c, user.ID)
	if !ok {
		return
	}

	if err := database.DB.Delete(&car).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Deletion failed",
			"message": "Failed to delete car listing",
		})
		return
	}

	invalidateCarCache(c)
	log.Printf("✅ Car %d deleted by %s", car.ID, user.Email)
	c.JSON(http.StatusOK, gin.H{"message": "Car deleted successfully"})
}

// loadOwnedCar fetches the :id car and enforces ownership. Writes the error
// response itself when the lookup fails.
func loadOwnedCar(c *gin.Context, ownerID uint) (models.Car, bool) {
	var car models.Car

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid car ID",
			"message": "Car ID must be numeric",
		})
		return car, false
	}

	if err := database.DB.First(&car, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Car not found",
			"message": "No car with this ID exists",
		})
		return car, false
	}

	if car.OwnerID != ownerID {
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "Not your car",
			"message": "Only the owner may manage this listing",
		})
		return car, false
	}

	return car, true
}

// invalidateCarCache drops every cached listing page after a car mutation
func invalidateCarCache(c *gin.Context) {
	database.CacheInvalidatePrefix(c.Request.Context(), "cache:available-cars:")
}
