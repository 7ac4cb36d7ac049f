package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCanceled  BookingStatus = "canceled"
)

// CarSnapshot is the vehicle as it looked when the booking was created.
// It is embedded in the booking row so price and details shown on old
// bookings never drift when the listing changes.
type CarSnapshot struct {
	CarID                     uint           `json:"carId" gorm:"column:car_snapshot_id"`
	CarModel                  string         `json:"carModel" gorm:"column:car_model;size:255"`
	DailyRentalPrice          float64        `json:"dailyRentalPrice" gorm:"column:daily_rental_price;type:decimal(10,2)"`
	VehicleRegistrationNumber string         `json:"vehicleRegistrationNumber" gorm:"column:vehicle_registration_number;size:50"`
	Features                  pq.StringArray `json:"features" gorm:"column:features;type:text[]"`
	ImageURL                  string         `json:"imageUrl" gorm:"column:image_url;size:500"`
	Location                  string         `json:"location" gorm:"column:location;size:255"`
}

type Booking struct {
	ID          string        `json:"_id" gorm:"primaryKey;size:36"`
	UserID      uint          `json:"user_id" gorm:"not null;index"`
	UserEmail   string        `json:"userEmail" gorm:"size:255;not null;index"`
	CarID       uint          `json:"car_id" gorm:"not null;index"`
	CarData     CarSnapshot   `json:"carData" gorm:"embedded"`
	BookingDate time.Time     `json:"bookingDate" gorm:"not null"`
	EndDate     time.Time     `json:"endDate" gorm:"not null"`
	TotalPrice  float64       `json:"totalPrice" gorm:"type:decimal(10,2);not null"`
	Status      BookingStatus `json:"status" gorm:"type:varchar(20);default:'pending';check:status IN ('pending','confirmed','canceled')"`
	CreatedAt   time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time     `json:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Car  Car  `json:"car,omitempty" gorm:"foreignKey:CarID"`
}

// TableName specifies the table name for the Booking model
func (Booking) TableName() string {
	return "bookings"
}

// BeforeCreate is a GORM hook that assigns the opaque booking identifier
func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Status == "" {
		b.Status = BookingStatusPending
	}
	return nil
}

// IsCanceled reports whether the booking reached its terminal state
func (b *Booking) IsCanceled() bool {
	return b.Status == BookingStatusCanceled
}

// CanCancel reports whether a cancel transition is permitted.
// Canceled is terminal; no transition leads out of it.
func (b *Booking) CanCancel() bool {
	return b.Status == BookingStatusPending || b.Status == BookingStatusConfirmed
}

// CanModifyDates reports whether the booking's date range may change.
// A successful modify keeps the current status.
func (b *Booking) CanModifyDates() bool {
	return !b.IsCanceled()
}

// CanConfirm reports whether the owner may confirm the booking
func (b *Booking) CanConfirm() bool {
	return b.Status == BookingStatusPending
}

// IsValidBookingStatus checks a raw status value against the enum
func IsValidBookingStatus(s string) bool {
	switch BookingStatus(s) {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCanceled:
		return true
	default:
		return false
	}
}
