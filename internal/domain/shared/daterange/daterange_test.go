package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staycal/internal/domain/shared/rangeerr"
)

func day(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := Parse(raw)
	require.NoError(t, err)
	return d
}

func TestNewRequiresCheckoutAfterCheckin(t *testing.T) {
	_, err := New(day(t, "2025-12-01"), day(t, "2025-12-01"))
	assert.ErrorIs(t, err, rangeerr.ErrInvalidRange)

	_, err = New(day(t, "2025-12-02"), day(t, "2025-12-01"))
	assert.ErrorIs(t, err, rangeerr.ErrInvalidRange)

	dr, err := New(day(t, "2025-12-01"), day(t, "2025-12-04"))
	require.NoError(t, err)
	assert.Equal(t, 3, dr.Nights())
}

func TestInclusiveCoversBothEnds(t *testing.T) {
	dr, err := Inclusive(day(t, "2025-12-24"), day(t, "2025-12-26"))
	require.NoError(t, err)

	days := dr.Days()
	require.Len(t, days, 3)
	assert.Equal(t, "2025-12-24", Format(days[0]))
	assert.Equal(t, "2025-12-26", Format(days[2]))
	assert.Equal(t, "2025-12-26", Format(dr.Last()))

	single, err := Inclusive(day(t, "2025-12-24"), day(t, "2025-12-24"))
	require.NoError(t, err)
	assert.Equal(t, 1, single.Nights())

	_, err = Inclusive(day(t, "2025-12-26"), day(t, "2025-12-24"))
	assert.ErrorIs(t, err, rangeerr.ErrInvalidRange)
}

func TestDaysAcrossDSTAndMonthEnd(t *testing.T) {
	dr, err := New(day(t, "2025-03-29"), day(t, "2025-04-02"))
	require.NoError(t, err)
	var got []string
	for _, d := range dr.Days() {
		got = append(got, Format(d))
	}
	assert.Equal(t, []string{"2025-03-29", "2025-03-30", "2025-03-31", "2025-04-01"}, got)
}

func TestParseAcceptsRFC3339(t *testing.T) {
	d, err := Parse("2025-12-25T18:30:00+03:00")
	require.NoError(t, err)
	assert.Equal(t, "2025-12-25", Format(d))

	_, err = Parse("25/12/2025")
	assert.Error(t, err)
}
