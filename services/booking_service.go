package services

import (
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"road-quest-server/database"
	"road-quest-server/models"
	"road-quest-server/utils"
)

// ConflictMessage is the reason returned with every availability conflict
const ConflictMessage = "Car unavailable for the selected dates"

var (
	ErrMissingDates      = errors.New("both start and end dates are required")
	ErrInvalidDateRange  = errors.New("end date must be after start date")
	ErrCarNotBookable    = errors.New("car is not available for booking")
	ErrOwnCar            = errors.New("cannot book your own car")
	ErrBookingCanceled   = errors.New("booking is canceled and can no longer change")
	ErrInvalidTransition = errors.New("status transition not permitted")
	ErrDateConflict      = errors.New(ConflictMessage)
)

// BookingService owns the booking lifecycle: creation, date changes,
// cancellation and owner confirmation. The server is the pricing source of
// truth; client-supplied totals are never trusted.
type BookingService struct {
	db *gorm.DB
}

// NewBookingService creates a booking service on the shared connection
func NewBookingService() *BookingService {
	return &BookingService{db: database.GetDB()}
}

// NewBookingServiceWithDB creates a booking service on an explicit connection
func NewBookingServiceWithDB(db *gorm.DB) *BookingService {
	return &BookingService{db: db}
}

// ValidateDateRange enforces the rental range rules before any query runs:
// both dates present, end strictly after start, at least one rental day.
func ValidateDateRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return ErrMissingDates
	}
	if !end.After(start) {
		return ErrInvalidDateRange
	}
	if utils.RentalDays(start, end) < 1 {
		return ErrInvalidDateRange
	}
	return nil
}

// ComputeTotalPrice derives the rental total from the daily price and the
// inclusive day span of the range.
func ComputeTotalPrice(dailyRentalPrice float64, start, end time.Time) float64 {
	return dailyRentalPrice * float64(utils.RentalDays(start, end))
}

// HasDateConflict reports whether any live booking for the car overlaps the
// requested range. excludeID skips the booking being modified.
func (s *BookingService) HasDateConflict(carID uint, start, end time.Time, excludeID string) (bool, error) {
	var count int64
	q := s.db.Model(&models.Booking{}).
		Where("car_id = ?", carID).
		Where("status <> ?", models.BookingStatusCanceled).
		Where("booking_date <= ? AND end_date >= ?", end, start)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create books a car for a user over the given range. The car is snapshotted
// into the booking so later listing edits never rewrite booking history.
func (s *BookingService) Create(user *models.User, car *models.Car, start, end time.Time) (*models.Booking, error) {
	if err := ValidateDateRange(start, end); err != nil {
		return nil, err
	}
	if !car.IsBookable() {
		return nil, ErrCarNotBookable
	}
	if car.OwnerID == user.ID {
		return nil, ErrOwnCar
	}

	conflict, err := s.HasDateConflict(car.ID, start, end, "")
	if err != nil {
		return nil, err
	}
	if conflict {
		return nil, ErrDateConflict
	}

	booking := &models.Booking{
		UserID:      user.ID,
		UserEmail:   user.Email,
		CarID:       car.ID,
		CarData:     car.Snapshot(),
		BookingDate: start,
		EndDate:     end,
		TotalPrice:  ComputeTotalPrice(car.DailyRentalPrice, start, end),
		Status:      models.BookingStatusPending,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(booking).Error; err != nil {
			return err
		}
		return tx.Model(&models.Car{}).
			Where("id = ?", car.ID).
			UpdateColumn("booking_count", gorm.Expr("booking_count + 1")).Error
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Booking %s created for car %d (%s)", booking.ID, car.ID, user.Email)
	return booking, nil
}

// Cancel moves a booking into its terminal state. A booking that is already
// canceled is rejected rather than silently re-canceled.
func (s *BookingService) Cancel(booking *models.Booking) error {
	if !booking.CanCancel() {
		return ErrInvalidTransition
	}

	booking.Status = models.BookingStatusCanceled
	if err := s.db.Save(booking).Error; err != nil {
		return err
	}

	log.Printf("✅ Booking %s canceled", booking.ID)
	return nil
}

// Confirm lets the car owner accept a pending booking
func (s *BookingService) Confirm(booking *models.Booking) error {
	if !booking.CanConfirm() {
		return ErrInvalidTransition
	}

	booking.Status = models.BookingStatusConfirmed
	if err := s.db.Save(booking).Error; err != nil {
		return err
	}

	log.Printf("✅ Booking %s confirmed", booking.ID)
	return nil
}

// ModifyDates moves a booking to a new range and reprices it from the
// snapshotted daily rate. The current status is kept; only dates and total
// change. An overlap with another live booking for the same car is a
// conflict and leaves the record untouched.
func (s *BookingService) ModifyDates(booking *models.Booking, start, end time.Time) error {
	if !booking.CanModifyDates() {
		return ErrBookingCanceled
	}
	if err := ValidateDateRange(start, end); err != nil {
		return err
	}

	conflict, err := s.HasDateConflict(booking.CarID, start, end, booking.ID)
	if err != nil {
		return err
	}
	if conflict {
		return ErrDateConflict
	}

	booking.BookingDate = start
	booking.EndDate = end
	booking.TotalPrice = ComputeTotalPrice(booking.CarData.DailyRentalPrice, start, end)
	if err := s.db.Save(booking).Error; err != nil {
		return err
	}

	log.Printf("✅ Booking %s moved to %s → %s (total %.2f)",
		booking.ID, utils.FormatDisplayDate(start), utils.FormatDisplayDate(end), booking.TotalPrice)
	return nil
}
