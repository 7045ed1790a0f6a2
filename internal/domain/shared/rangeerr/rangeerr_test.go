package rangeerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesSentinel(t *testing.T) {
	err := New("availability", "start must not be after end")

	assert.ErrorIs(t, err, ErrInvalidRange)
	assert.ErrorIs(t, fmt.Errorf("wrapped: %w", err), ErrInvalidRange)
	assert.Equal(t, "availability: start must not be after end", err.Error())

	var typed *Error
	assert.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &typed))
	assert.Equal(t, "availability", typed.Op)
}

func TestErrorWithoutOp(t *testing.T) {
	assert.Equal(t, "invalid range: radius must be positive", New("", "radius must be positive").Error())
}
