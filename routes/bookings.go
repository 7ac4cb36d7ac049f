package routes

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"road-quest-server/database"
	"road-quest-server/middleware"
	"road-quest-server/models"
	"road-quest-server/services"
	ws "road-quest-server/websocket"
)

// bookingHub pushes booking lifecycle events to connected car owners
var bookingHub *ws.Hub

// InitBookingNotifier wires the websocket hub into the booking routes
func InitBookingNotifier(hub *ws.Hub) {
	bookingHub = hub
}

// CreateBookingRequest is the typed booking-creation body
type CreateBookingRequest struct {
	CarID       uint       `json:"carId" binding:"required"`
	BookingDate *time.Time `json:"bookingDate" binding:"required"`
	EndDate     *time.Time `json:"endDate" binding:"required"`
}

// BookingPatchRequest is the typed PATCH body. Exactly one mutation is
// dispatched per request: a status transition or a date change. A
// client-supplied totalPrice is accepted for wire compatibility and ignored;
// the server reprices.
type BookingPatchRequest struct {
	Status      *string    `json:"status"`
	BookingDate *time.Time `json:"bookingDate"`
	EndDate     *time.Time `json:"endDate"`
	TotalPrice  *float64   `json:"totalPrice"`
}

// RegisterBookingRoutes registers the authenticated booking routes
func RegisterBookingRoutes(router *gin.RouterGroup) {
	router.POST("/bookings", createBooking)
	router.GET("/my-bookings", getMyBookings)
	router.PATCH("/bookings/:id", patchBooking)
	router.GET("/bookings/:id/receipt", downloadReceipt)
}

// conflictResponse writes the structured 409 payload clients parse for the
// conflict reason
func conflictResponse(c *gin.Context, message string) {
	c.JSON(http.StatusConflict, gin.H{
		"conflict": gin.H{"message": message},
	})
}

// createBooking books a car for the authenticated user
func createBooking(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"message": err.Error(),
		})
		return
	}

	var car models.Car
	if err := database.DB.First(&car, req.CarID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Car not found",
			"message": "No car with this ID exists",
		})
		return
	}

	bookingService := services.NewBookingService()
	booking, err := bookingService.Create(&user, &car, derefTime(req.BookingDate), derefTime(req.EndDate))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDateConflict):
			conflictResponse(c, services.ConflictMessage)
		case errors.Is(err, services.ErrCarNotBookable):
			conflictResponse(c, "Car is not open for booking")
		case errors.Is(err, services.ErrOwnCar):
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "Cannot book own car",
				"message": "Owners cannot book their own listings",
			})
		case errors.Is(err, services.ErrMissingDates), errors.Is(err, services.ErrInvalidDateRange):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid date range",
				"message": err.Error(),
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Booking creation failed",
				"message": "Failed to create booking",
			})
		}
		return
	}

	notifyOwner(ws.EventBookingCreated, booking, &car)
	c.JSON(http.StatusCreated, gin.H{
		"message": "Booking created",
		"booking": booking,
	})
}

// getMyBookings lists the caller's bookings. The legacy ?email= query is
// still accepted but must match the authenticated identity.
func getMyBookings(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	if email := c.Query("email"); email != "" && !strings.EqualFold(email, user.Email) {
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "Identity mismatch",
			"message": "You may only list your own bookings",
		})
		return
	}

	var bookings []models.Booking
	if err := database.DB.
		Where("user_email = ?", user.Email).
		Order("created_at desc").
		Find(&bookings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to fetch bookings",
			"message": "Could not load your bookings",
		})
		return
	}

	c.JSON(http.StatusOK, bookings)
}

// patchBooking dispatches a cancel, confirm, or date modification
func patchBooking(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var booking models.Booking
	if err := database.DB.First(&booking, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Booking not found",
			"message": "No booking with this ID exists",
		})
		return
	}

	var req BookingPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"message": err.Error(),
		})
		return
	}

	switch {
	case req.Status != nil:
		patchBookingStatus(c, &user, &booking, *req.Status)
	case req.BookingDate != nil || req.EndDate != nil:
		patchBookingDates(c, &user, &booking, req)
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Nothing to update",
			"message": "Provide a status or a new date range",
		})
	}
}

// patchBookingStatus handles the status transitions: renter cancel, owner
// confirm
func patchBookingStatus(c *gin.Context, user *models.User, booking *models.Booking, status string) {
	if !models.IsValidBookingStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid status",
			"message": fmt.Sprintf("Unknown booking status %q", status),
		})
		return
	}

	bookingService := services.NewBookingService()

	switch models.BookingStatus(status) {
	case models.BookingStatusCanceled:
		if !strings.EqualFold(booking.UserEmail, user.Email) {
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "Not your booking",
				"message": "Only the booking owner may cancel it",
			})
			return
		}
		if err := bookingService.Cancel(booking); err != nil {
			if errors.Is(err, services.ErrInvalidTransition) {
				conflictResponse(c, "Booking is already canceled")
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Cancel failed",
				"message": "Failed to cancel booking",
			})
			return
		}
		notifyOwner(ws.EventBookingCanceled, booking, nil)

	case models.BookingStatusConfirmed:
		var car models.Car
		if err := database.DB.First(&car, booking.CarID).Error; err != nil || car.OwnerID != user.ID {
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "Not the car owner",
				"message": "Only the car owner may confirm a booking",
			})
			return
		}
		if err := bookingService.Confirm(booking); err != nil {
			if errors.Is(err, services.ErrInvalidTransition) {
				conflictResponse(c, "Booking cannot be confirmed from its current status")
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Confirm failed",
				"message": "Failed to confirm booking",
			})
			return
		}

	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid transition",
			"message": "Bookings can only move to canceled or confirmed",
		})
		return
	}

	// Clients must adopt the echoed record, not their local assumption
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// patchBookingDates moves the booking to a new date range
func patchBookingDates(c *gin.Context, user *models.User, booking *models.Booking, req BookingPatchRequest) {
	if !strings.EqualFold(booking.UserEmail, user.Email) {
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "Not your booking",
			"message": "Only the booking owner may modify it",
		})
		return
	}

	bookingService := services.NewBookingService()
	err := bookingService.ModifyDates(booking, derefTime(req.BookingDate), derefTime(req.EndDate))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDateConflict):
			conflictResponse(c, services.ConflictMessage)
		case errors.Is(err, services.ErrBookingCanceled):
			conflictResponse(c, "Canceled bookings cannot be modified")
		case errors.Is(err, services.ErrMissingDates), errors.Is(err, services.ErrInvalidDateRange):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid date range",
				"message": err.Error(),
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Modification failed",
				"message": "Failed to modify booking",
			})
		}
		return
	}

	log.Printf("✅ Booking %s dates modified by %s", booking.ID, user.Email)
	notifyOwner(ws.EventBookingModified, booking, nil)

	// Authoritative payload: dates, repriced total, and status as stored
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// downloadReceipt streams the PDF receipt for one of the caller's bookings
func downloadReceipt(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var booking models.Booking
	if err := database.DB.First(&booking, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Booking not found",
			"message": "No booking with this ID exists",
		})
		return
	}

	if !strings.EqualFold(booking.UserEmail, user.Email) {
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "Not your booking",
			"message": "Only the booking owner may download the receipt",
		})
		return
	}

	receiptService := services.NewReceiptService()
	pdf, filename, err := receiptService.GenerateReceipt(&booking)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Receipt generation failed",
			"message": "Failed to render the booking receipt",
		})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// notifyOwner pushes a booking event to the car owner's websocket, when one
// is connected. car may be nil; the owner is then looked up.
func notifyOwner(eventType string, booking *models.Booking, car *models.Car) {
	if bookingHub == nil {
		return
	}

	ownerID := uint(0)
	if car != nil {
		ownerID = car.OwnerID
	} else {
		var owned models.Car
		if err := database.DB.Select("owner_id").First(&owned, booking.CarID).Error; err != nil {
			log.Printf("⚠️ Could not resolve owner for car %d: %v", booking.CarID, err)
			return
		}
		ownerID = owned.OwnerID
	}

	bookingHub.NotifyBookingEvent(eventType, ownerID, booking.ID, booking.CarID, gin.H{
		"status":      booking.Status,
		"bookingDate": booking.BookingDate,
		"endDate":     booking.EndDate,
		"totalPrice":  booking.TotalPrice,
		"carModel":    booking.CarData.CarModel,
	})
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
