// Package rangeerr defines the error returned when a date or numeric range
// violates its ordering precondition.
package rangeerr

import "errors"

// ErrInvalidRange is matched by every *Error via errors.Is.
var ErrInvalidRange = errors.New("invalid range")

type Error struct {
	Op     string
	Reason string
}

func New(op, reason string) *Error {
	return &Error{Op: op, Reason: reason}
}

func (e *Error) Error() string {
	if e.Op == "" {
		return "invalid range: " + e.Reason
	}
	return e.Op + ": " + e.Reason
}

func (e *Error) Is(target error) bool {
	return target == ErrInvalidRange
}
