package availability

import (
	"errors"
	"fmt"
	"time"

	"staycal/internal/domain/shared/daterange"
)

// ErrPastDate is returned when a write targets a day before today.
var ErrPastDate = errors.New("availability: date is in the past")

type Clock func() time.Time

func (c Clock) today() time.Time {
	if c == nil {
		return daterange.Day(time.Now())
	}
	return daterange.Day(c())
}

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

func rejectPast(today, day time.Time) error {
	if daterange.Day(day).Before(today) {
		return fmt.Errorf("%w: %s", ErrPastDate, daterange.Format(day))
	}
	return nil
}
