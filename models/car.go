package models

import (
	"time"

	"github.com/lib/pq"
)

type CarAvailability string

const (
	CarAvailable   CarAvailability = "available"
	CarUnavailable CarAvailability = "unavailable"
	CarMaintenance CarAvailability = "maintenance"
)

type Car struct {
	ID                        uint            `json:"id" gorm:"primaryKey"`
	OwnerID                   uint            `json:"owner_id" gorm:"not null;index"`
	OwnerEmail                string          `json:"owner_email" gorm:"size:255;not null;index"`
	CarModel                  string          `json:"carModel" gorm:"size:255;not null"`
	DailyRentalPrice          float64         `json:"dailyRentalPrice" gorm:"type:decimal(10,2);not null"`
	Availability              CarAvailability `json:"availability" gorm:"type:varchar(20);default:'available';check:availability IN ('available','unavailable','maintenance')"`
	VehicleRegistrationNumber string          `json:"vehicleRegistrationNumber" gorm:"size:50;not null"`
	Features                  pq.StringArray  `json:"features" gorm:"type:text[]"`
	Description               string          `json:"description" gorm:"size:2000"`
	ImageURL                  string          `json:"imageUrl" gorm:"size:500"`
	Location                  string          `json:"location" gorm:"size:255;not null"`
	BookingCount              int             `json:"bookingCount" gorm:"default:0"`
	CreatedAt                 time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt                 time.Time       `json:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	Owner    User      `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	Bookings []Booking `json:"bookings,omitempty" gorm:"foreignKey:CarID"`
}

// TableName specifies the table name for the Car model
func (Car) TableName() string {
	return "cars"
}

// IsBookable reports whether new bookings may target this car
func (c *Car) IsBookable() bool {
	return c.Availability == CarAvailable
}

// Snapshot denormalizes the car into booking-embedded form. The copy is
// frozen at booking time and never re-synced to the car record.
func (c *Car) Snapshot() CarSnapshot {
	features := make(pq.StringArray, len(c.Features))
	copy(features, c.Features)
	return CarSnapshot{
		CarID:                     c.ID,
		CarModel:                  c.CarModel,
		DailyRentalPrice:          c.DailyRentalPrice,
		VehicleRegistrationNumber: c.VehicleRegistrationNumber,
		Features:                  features,
		ImageURL:                  c.ImageURL,
		Location:                  c.Location,
	}
}
