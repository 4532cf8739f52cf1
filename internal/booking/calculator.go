// Package booking turns a date range and a daily rate into a billable quote
// and submits orders to the backend.
package booking

import (
	"strings"
	"time"
)

// DateLayout is the wire and form format for booking dates.
const DateLayout = "2006-01-02"

const secondsPerDay = 24 * 60 * 60

// Quote is the billable result for a date range.
type Quote struct {
	Days       int
	TotalPrice float64
}

// Days returns the inclusive number of calendar days from start to end.
// A missing or unparseable date yields 0, as does an end before the start.
func Days(start, end string) int {
	s, ok := parseDate(start)
	if !ok {
		return 0
	}
	e, ok := parseDate(end)
	if !ok {
		return 0
	}
	return DaysBetween(s, e)
}

// DaysBetween applies the Days rule to the calendar dates of start and end.
// Time of day and location offsets are ignored. Any time value is a date,
// including the zero time (0001-01-01).
func DaysBetween(start, end time.Time) int {
	s := calendarDate(start).Unix()
	e := calendarDate(end).Unix()
	n := (e-s)/secondsPerDay + 1
	if n <= 0 {
		return 0
	}
	return int(n)
}

// Calculate prices a date range at pricePerDay. The total is a plain float64
// product, so it rounds exactly as native floating-point multiplication does.
func Calculate(start, end string, pricePerDay float64) Quote {
	days := Days(start, end)
	if days == 0 {
		return Quote{}
	}
	return Quote{Days: days, TotalPrice: float64(days) * pricePerDay}
}

func parseDate(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(DateLayout, v); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return calendarDate(t), true
	}
	return time.Time{}, false
}

func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
