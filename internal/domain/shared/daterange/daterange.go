package daterange

import (
	"strings"
	"time"

	"staycal/internal/domain/shared/rangeerr"
)

// Layout is the wire format for calendar days.
const Layout = "2006-01-02"

// DateRange represents a half-open interval of whole UTC days [CheckIn, CheckOut).
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// New builds a stay range. checkOut must be strictly after checkIn.
func New(checkIn, checkOut time.Time) (DateRange, error) {
	dr := DateRange{CheckIn: Day(checkIn), CheckOut: Day(checkOut)}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

// Inclusive builds the range covering start..end with both ends included.
func Inclusive(start, end time.Time) (DateRange, error) {
	start, end = Day(start), Day(end)
	if start.IsZero() || end.IsZero() {
		return DateRange{}, rangeerr.New("daterange", "start and end are required")
	}
	if start.After(end) {
		return DateRange{}, rangeerr.New("daterange", "start must not be after end")
	}
	return DateRange{CheckIn: start, CheckOut: end.AddDate(0, 0, 1)}, nil
}

func (dr DateRange) Validate() error {
	if dr.CheckOut.IsZero() || dr.CheckIn.IsZero() {
		return rangeerr.New("daterange", "check-in and check-out are required")
	}
	if !dr.CheckOut.After(dr.CheckIn) {
		return rangeerr.New("daterange", "checkout must be after checkin")
	}
	return nil
}

// Nights counts calendar days in the range, checkout excluded.
func (dr DateRange) Nights() int {
	n := 0
	for d := dr.CheckIn; d.Before(dr.CheckOut); d = d.AddDate(0, 0, 1) {
		n++
	}
	return n
}

// Days lists every day in the range in ascending order.
func (dr DateRange) Days() []time.Time {
	out := make([]time.Time, 0, dr.Nights())
	for d := dr.CheckIn; d.Before(dr.CheckOut); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// Last returns the final day inside the range.
func (dr DateRange) Last() time.Time {
	return dr.CheckOut.AddDate(0, 0, -1)
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Parse accepts YYYY-MM-DD or RFC3339 and returns the UTC day.
func Parse(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(Layout, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}
