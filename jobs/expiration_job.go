package jobs

import (
	"log"
	"time"

	"road-quest-server/database"
	"road-quest-server/models"
	"road-quest-server/utils"
)

// ExpirationJob cancels pending bookings whose start date passed without the
// owner ever confirming them
type ExpirationJob struct {
	stopChan chan bool
}

// NewExpirationJob creates a new expiration job
func NewExpirationJob() *ExpirationJob {
	return &ExpirationJob{
		stopChan: make(chan bool),
	}
}

// Start begins the expiration job
func (j *ExpirationJob) Start() {
	go j.run()
	log.Println("🚀 Booking expiration job started")
}

// Stop stops the expiration job
func (j *ExpirationJob) Stop() {
	j.stopChan <- true
	log.Println("🛑 Booking expiration job stopped")
}

// run executes the expiration job
func (j *ExpirationJob) run() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.checkStalePendingBookings()
		case <-j.stopChan:
			return
		}
	}
}

// checkStalePendingBookings finds pending bookings that already started
func (j *ExpirationJob) checkStalePendingBookings() {
	var stale []models.Booking

	err := database.DB.Where("status = ? AND booking_date <= ?",
		models.BookingStatusPending, utils.NowUTC()).Find(&stale).Error

	if err != nil {
		log.Printf("❌ Error checking stale pending bookings: %v", err)
		return
	}

	if len(stale) > 0 {
		log.Printf("⏰ Found %d stale pending bookings", len(stale))

		for _, booking := range stale {
			j.expireBooking(booking)
		}
	}
}

// expireBooking moves an unconfirmed booking into the terminal state
func (j *ExpirationJob) expireBooking(booking models.Booking) {
	booking.Status = models.BookingStatusCanceled

	err := database.DB.Save(&booking).Error
	if err != nil {
		log.Printf("❌ Failed to expire booking %s: %v", booking.ID, err)
		return
	}

	log.Printf("✅ Booking %s auto-canceled (never confirmed before start)", booking.ID)
}
