package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDaysInclusive(t *testing.T) {
	assert.Equal(t, 1, Days("2025-11-01", "2025-11-01"))
	assert.Equal(t, 3, Days("2025-11-01", "2025-11-03"))
	assert.Equal(t, 31, Days("2025-01-01", "2025-01-31"))
}

func TestDaysMonotonic(t *testing.T) {
	start := time.Date(2024, time.February, 20, 0, 0, 0, 0, time.UTC)
	prev := Days(start.Format(DateLayout), start.Format(DateLayout))
	// Crosses a leap day and a month boundary.
	for i := 1; i <= 40; i++ {
		end := start.AddDate(0, 0, i).Format(DateLayout)
		got := Days(start.Format(DateLayout), end)
		assert.Equal(t, prev+1, got, "end %s", end)
		prev = got
	}
}

func TestDaysClamped(t *testing.T) {
	assert.Equal(t, 0, Days("2025-11-03", "2025-11-01"))
	assert.Equal(t, 0, Days("2025-11-02", "2025-11-01"))

	q := Calculate("2025-11-03", "2025-11-01", 500)
	assert.Equal(t, 0, q.Days)
	assert.Equal(t, 0.0, q.TotalPrice)
}

func TestDaysMissingOrInvalid(t *testing.T) {
	tests := []struct{ start, end string }{
		{"", "2025-11-03"},
		{"2025-11-01", ""},
		{"", ""},
		{"   ", "2025-11-03"},
		{"yesterday", "2025-11-03"},
		{"2025-13-01", "2025-11-03"},
		{"2025-11-01", "03/11/2025"},
	}
	for _, tt := range tests {
		assert.Equal(t, 0, Days(tt.start, tt.end), "Days(%q, %q)", tt.start, tt.end)
		assert.Equal(t, Quote{}, Calculate(tt.start, tt.end, 200), "Calculate(%q, %q)", tt.start, tt.end)
	}
}

func TestDaysIgnoresTimeOfDay(t *testing.T) {
	assert.Equal(t, 3, Days("2025-11-01T23:59:00Z", "2025-11-03T00:01:00Z"))
	assert.Equal(t, 1, Days("2025-11-01T08:00:00+05:30", "2025-11-01"))
}

func TestDaysBetween(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	start := time.Date(2025, time.November, 1, 23, 30, 0, 0, ist)
	end := time.Date(2025, time.November, 3, 0, 15, 0, 0, time.UTC)
	assert.Equal(t, 3, DaysBetween(start, end))
	assert.Equal(t, 0, DaysBetween(end, start))
	assert.Equal(t, 2, DaysBetween(time.Time{}, time.Date(1, time.January, 2, 0, 0, 0, 0, time.UTC)))
}

func TestDaysAcrossCenturies(t *testing.T) {
	assert.Equal(t, 1, Days("0001-01-01", "0001-01-01"))
	assert.Equal(t, 3652059, Days("0001-01-01", "9999-12-31"))
	assert.Equal(t, 146098, Days("2000-01-01", "2400-01-01"))
	assert.Equal(t, 146099, Days("2000-01-01", "2400-01-02"))

	q := Calculate("0001-01-01", "0001-01-03", 10)
	assert.Equal(t, 3, q.Days)
	assert.Equal(t, 30.0, q.TotalPrice)
}

func TestCalculateLinear(t *testing.T) {
	tests := []struct {
		name        string
		start, end  string
		pricePerDay float64
		wantDays    int
		wantTotal   float64
	}{
		{"three days at 500", "2025-11-01", "2025-11-03", 500, 3, 1500},
		{"three days at 200", "2025-11-01", "2025-11-03", 200, 3, 600},
		{"free item", "2025-11-01", "2025-11-10", 0, 10, 0},
		{"single day", "2025-11-01", "2025-11-01", 99.5, 1, 99.5},
		{"fractional rate keeps float rounding", "2025-11-01", "2025-11-03", 0.1, 3, 0.30000000000000004},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Calculate(tt.start, tt.end, tt.pricePerDay)
			assert.Equal(t, tt.wantDays, q.Days)
			assert.Equal(t, tt.wantTotal, q.TotalPrice)
			assert.Equal(t, float64(q.Days)*tt.pricePerDay, q.TotalPrice)
		})
	}
}
