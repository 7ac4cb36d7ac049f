package utils

import (
	"strings"
	"time"
)

const (
	layoutDisplay = "02 Jan 2006 15:04"
)

// NowUTC returns current time in UTC.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// ParseTimestamp parses an RFC3339 timestamp as sent by API clients.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, strings.TrimSpace(s))
}

// RentalDays returns the whole-day span of a rental, inclusive:
// floor(end-start in days) + 1. A same-day rental counts as 1 day.
func RentalDays(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}

// FormatDisplayDate formats a timestamp the way booking tables show it.
// The zero time renders as "N/A" instead of a bogus date.
func FormatDisplayDate(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format(layoutDisplay)
}
