package client

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

func TestDeriveComputesDurationAndPrice(t *testing.T) {
	raw := RawBooking{
		ID:          "b-1",
		BookingDate: "2024-06-01T00:00:00Z",
		EndDate:     "2024-06-03T00:00:00Z",
		TotalPrice:  json.RawMessage(`150`),
		Status:      "confirmed",
		CarData: RawCarData{
			CarModel:         "Toyota Corolla",
			DailyRentalPrice: json.RawMessage(`50`),
		},
	}

	b := Derive(raw, time.Now())

	if b.Duration != 3 {
		t.Fatalf("expected 3 rental days, got %d", b.Duration)
	}
	if b.TotalPrice != 150 {
		t.Fatalf("expected total 150, got %v", b.TotalPrice)
	}
	if b.CarData.DailyRentalPrice != 50 {
		t.Fatalf("expected daily rate 50, got %v", b.CarData.DailyRentalPrice)
	}
}

func TestDeriveSameDayCountsAsOneDay(t *testing.T) {
	raw := RawBooking{
		ID:          "b-2",
		BookingDate: "2024-06-01T09:00:00Z",
		EndDate:     "2024-06-01T17:00:00Z",
	}

	b := Derive(raw, time.Now())

	if b.Duration != 1 {
		t.Fatalf("same-day booking should last 1 day, got %d", b.Duration)
	}
}

func TestDeriveDefaultsOnGarbage(t *testing.T) {
	raw := RawBooking{
		ID:          "b-3",
		BookingDate: "not-a-date",
		EndDate:     "",
		TotalPrice:  json.RawMessage(`"free??"`),
	}

	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	b := Derive(raw, now)

	if b.TotalPrice != 0 {
		t.Fatalf("unparsable price should derive to 0, got %v", b.TotalPrice)
	}
	if math.IsNaN(b.TotalPrice) {
		t.Fatalf("derived price must never be NaN")
	}
	if b.Status != StatusConfirmed {
		t.Fatalf("missing status should default to confirmed, got %q", b.Status)
	}
	if b.BookingDateValid || b.EndDateValid {
		t.Fatalf("garbage dates must be flagged invalid")
	}
	if !b.BookingDate.Equal(now) {
		t.Fatalf("garbage date should fall back to now, got %v", b.BookingDate)
	}
	if got := b.FormatBookingDate(); got != "N/A" {
		t.Fatalf("invalid dates should format as N/A, got %q", got)
	}
}

func TestDeriveFlagsDateValidityPerField(t *testing.T) {
	raw := RawBooking{
		ID:          "b-6",
		BookingDate: "2024-06-01T14:30:00Z",
		EndDate:     "whenever",
	}

	b := Derive(raw, time.Now())

	if !b.BookingDateValid || b.EndDateValid {
		t.Fatalf("only the end date should be invalid: %+v", b)
	}
	if got := b.FormatBookingDate(); got != "01 Jun 2024 14:30" {
		t.Fatalf("a valid start date must still render, got %q", got)
	}
	if got := b.FormatEndDate(); got != "N/A" {
		t.Fatalf("the bad end date should format as N/A, got %q", got)
	}
}

func TestDeriveGuardsNaNDailyRate(t *testing.T) {
	raw := RawBooking{
		ID:         "b-7",
		TotalPrice: json.RawMessage(`"NaN"`),
		CarData: RawCarData{
			DailyRentalPrice: json.RawMessage(`"NaN"`),
		},
	}

	b := Derive(raw, time.Now())

	if b.TotalPrice != 0 {
		t.Fatalf("NaN total should derive to 0, got %v", b.TotalPrice)
	}
	if b.CarData.DailyRentalPrice != 0 {
		t.Fatalf("NaN daily rate should derive to 0, got %v", b.CarData.DailyRentalPrice)
	}
}

func TestDeriveParsesStringPrices(t *testing.T) {
	raw := RawBooking{
		ID:         "b-4",
		TotalPrice: json.RawMessage(`"199.50"`),
		CarData: RawCarData{
			DailyRentalPrice: json.RawMessage(`"66.5"`),
		},
	}

	b := Derive(raw, time.Now())

	if b.TotalPrice != 199.5 {
		t.Fatalf("expected string price parsed to 199.5, got %v", b.TotalPrice)
	}
	if b.CarData.DailyRentalPrice != 66.5 {
		t.Fatalf("expected string daily rate parsed to 66.5, got %v", b.CarData.DailyRentalPrice)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	raw := RawBooking{
		ID:          "b-5",
		BookingDate: "2024-06-01T00:00:00Z",
		EndDate:     "2024-06-05T00:00:00Z",
		TotalPrice:  json.RawMessage(`250`),
		Status:      "pending",
	}

	once := Derive(raw, time.Now())
	twice := Normalize(once)

	if once.Duration != twice.Duration || once.TotalPrice != twice.TotalPrice || once.Status != twice.Status {
		t.Fatalf("normalizing a derived record changed it: %+v vs %+v", once, twice)
	}
}

func TestRentalDays(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		end  time.Time
		want int
	}{
		{"same day", start, 1},
		{"two nights", start.AddDate(0, 0, 2), 3},
		{"partial day rounds down", start.Add(36 * time.Hour), 2},
		{"end before start", start.AddDate(0, 0, -1), 0},
	}

	for _, tc := range cases {
		if got := RentalDays(start, tc.end); got != tc.want {
			t.Fatalf("%s: expected %d days, got %d", tc.name, tc.want, got)
		}
	}
}

func TestFormatDatesValid(t *testing.T) {
	ts := time.Date(2024, 6, 1, 14, 30, 0, 0, time.UTC)
	b := Booking{
		BookingDate:      ts,
		BookingDateValid: true,
		EndDate:          ts.AddDate(0, 0, 2),
		EndDateValid:     true,
	}

	if got := b.FormatBookingDate(); got != "01 Jun 2024 14:30" {
		t.Fatalf("unexpected formatted start date %q", got)
	}
	if got := b.FormatEndDate(); got != "03 Jun 2024 14:30" {
		t.Fatalf("unexpected formatted end date %q", got)
	}
}
