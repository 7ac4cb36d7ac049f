package client

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

const displayLayout = "02 Jan 2006 15:04"

// RawBooking is a booking record as it arrives on the wire. Numeric fields
// are kept raw because older records stored prices as strings.
type RawBooking struct {
	ID          string          `json:"_id"`
	UserEmail   string          `json:"userEmail"`
	CarData     RawCarData      `json:"carData"`
	BookingDate string          `json:"bookingDate"`
	EndDate     string          `json:"endDate"`
	TotalPrice  json.RawMessage `json:"totalPrice"`
	Status      string          `json:"status"`
}

// RawCarData is the wire form of the embedded vehicle snapshot
type RawCarData struct {
	CarModel                  string          `json:"carModel"`
	DailyRentalPrice          json.RawMessage `json:"dailyRentalPrice"`
	VehicleRegistrationNumber string          `json:"vehicleRegistrationNumber"`
	Features                  []string        `json:"features"`
	ImageURL                  string          `json:"imageUrl"`
	Location                  string          `json:"location"`
}

// CarData is the display-ready vehicle snapshot
type CarData struct {
	CarModel                  string
	DailyRentalPrice          float64
	VehicleRegistrationNumber string
	Features                  []string
	ImageURL                  string
	Location                  string
}

// Booking is the display-ready record produced by Derive
type Booking struct {
	ID        string
	UserEmail string
	CarData   CarData
	// Each date carries its own validity flag: a raw value that failed to
	// parse was replaced with the current time and formats as "N/A",
	// without hiding the other date when that one is fine.
	BookingDate      time.Time
	BookingDateValid bool
	EndDate          time.Time
	EndDateValid     bool
	TotalPrice       float64
	Status           string
	Duration         int
}

// Derive transforms a raw record into a display-ready one. It is pure and
// never fails: bad dates fall back to now, bad prices to 0, a missing
// status to confirmed.
func Derive(raw RawBooking, now time.Time) Booking {
	start, startOK := parseDate(raw.BookingDate, now)
	end, endOK := parseDate(raw.EndDate, now)

	b := Booking{
		ID:        raw.ID,
		UserEmail: raw.UserEmail,
		CarData: CarData{
			CarModel:                  raw.CarData.CarModel,
			DailyRentalPrice:          parseFloat(raw.CarData.DailyRentalPrice),
			VehicleRegistrationNumber: raw.CarData.VehicleRegistrationNumber,
			Features:                  raw.CarData.Features,
			ImageURL:                  raw.CarData.ImageURL,
			Location:                  raw.CarData.Location,
		},
		BookingDate:      start,
		BookingDateValid: startOK,
		EndDate:          end,
		EndDateValid:     endOK,
		TotalPrice:       parseFloat(raw.TotalPrice),
		Status:           raw.Status,
	}
	return Normalize(b)
}

// Normalize applies the derivation rules to an already-typed record.
// Normalize(Normalize(b)) == Normalize(b) for every b.
func Normalize(b Booking) Booking {
	if b.Status == "" {
		b.Status = StatusConfirmed
	}
	if b.TotalPrice != b.TotalPrice { // NaN guard
		b.TotalPrice = 0
	}
	if b.CarData.DailyRentalPrice != b.CarData.DailyRentalPrice {
		b.CarData.DailyRentalPrice = 0
	}
	b.Duration = RentalDays(b.BookingDate, b.EndDate)
	return b
}

// RentalDays is the inclusive whole-day span: floor(end-start in days) + 1.
// A same-day range counts as 1.
func RentalDays(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}

// FormatBookingDate renders the start date, or "N/A" when the raw value
// never parsed.
func (b Booking) FormatBookingDate() string {
	return formatWhen(b.BookingDate, b.BookingDateValid)
}

// FormatEndDate renders the end date, or "N/A" when the raw value never
// parsed.
func (b Booking) FormatEndDate() string {
	return formatWhen(b.EndDate, b.EndDateValid)
}

func formatWhen(t time.Time, valid bool) string {
	if !valid || t.IsZero() {
		return "N/A"
	}
	return t.Format(displayLayout)
}

// parseDate reads an RFC3339 timestamp, falling back to now on garbage
func parseDate(s string, now time.Time) (time.Time, bool) {
	if s == "" {
		return now, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return now, false
	}
	return t, true
}

// parseFloat reads a JSON number or numeric string; anything else is 0
func parseFloat(raw json.RawMessage) float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return n
		}
	}

	return 0
}
