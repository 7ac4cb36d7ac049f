package services

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/phpdave11/gofpdf"

	"road-quest-server/models"
	"road-quest-server/utils"
)

// ReceiptService renders downloadable booking receipts
type ReceiptService struct{}

// NewReceiptService creates a new receipt service
func NewReceiptService() *ReceiptService {
	return &ReceiptService{}
}

// GenerateReceipt builds a PDF receipt for a booking and returns the bytes
// together with a suggested filename.
func (s *ReceiptService) GenerateReceipt(booking *models.Booking) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Booking Receipt", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "ROAD QUEST BOOKING RECEIPT")
	pdf.Ln(12)

	days := utils.RentalDays(booking.BookingDate, booking.EndDate)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Booking ID    : %s", booking.ID),
		fmt.Sprintf("Booked by     : %s", safe(booking.UserEmail, "-")),
		fmt.Sprintf("Car           : %s", safe(booking.CarData.CarModel, "-")),
		fmt.Sprintf("Registration  : %s", safe(booking.CarData.VehicleRegistrationNumber, "-")),
		fmt.Sprintf("Location      : %s", safe(booking.CarData.Location, "-")),
		fmt.Sprintf("From          : %s", utils.FormatDisplayDate(booking.BookingDate)),
		fmt.Sprintf("To            : %s", utils.FormatDisplayDate(booking.EndDate)),
		fmt.Sprintf("Duration      : %d days", days),
		fmt.Sprintf("Daily rate    : $%.2f", booking.CarData.DailyRentalPrice),
		fmt.Sprintf("Total price   : $%.2f", booking.TotalPrice),
		fmt.Sprintf("Status        : %s", booking.Status),
	}
	for _, line := range lines {
		pdf.Cell(0, 7, line)
		pdf.Ln(7)
	}

	if len(booking.CarData.Features) > 0 {
		pdf.Ln(3)
		pdf.SetFont("Helvetica", "I", 11)
		pdf.Cell(0, 7, fmt.Sprintf("Features: %s", strings.Join(booking.CarData.Features, ", ")))
		pdf.Ln(7)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("receipt-%s.pdf", booking.ID)
	return buf.Bytes(), filename, nil
}

func safe(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
