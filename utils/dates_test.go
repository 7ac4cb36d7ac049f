package utils

import (
	"testing"
	"time"
)

func TestRentalDays(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		end  time.Time
		want int
	}{
		{"same day", start, 1},
		{"same day later hours", start.Add(8 * time.Hour), 1},
		{"two nights", start.AddDate(0, 0, 2), 3},
		{"partial third day rounds down", start.Add(36 * time.Hour), 2},
		{"end before start", start.AddDate(0, 0, -2), 0},
	}

	for _, tc := range cases {
		if got := RentalDays(start, tc.end); got != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}

func TestParseTimestamp(t *testing.T) {
	got, err := ParseTimestamp(" 2024-06-01T10:30:00Z ")
	if err != nil {
		t.Fatalf("failed to parse padded RFC3339 timestamp: %v", err)
	}
	want := time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	if _, err := ParseTimestamp("01/06/2024"); err == nil {
		t.Fatalf("non-RFC3339 input should fail to parse")
	}
}

func TestFormatDisplayDate(t *testing.T) {
	ts := time.Date(2024, 6, 1, 14, 30, 0, 0, time.UTC)
	if got := FormatDisplayDate(ts); got != "01 Jun 2024 14:30" {
		t.Fatalf("unexpected formatted date %q", got)
	}
	if got := FormatDisplayDate(time.Time{}); got != "N/A" {
		t.Fatalf("zero time should render as N/A, got %q", got)
	}
}
