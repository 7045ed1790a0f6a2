package scylla

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainavailability "staycal/internal/domain/availability"
)

func TestEntryValuesAndRowsRoundTrip(t *testing.T) {
	price := decimal.RequireFromString("80")
	at := time.Date(2025, 7, 4, 15, 30, 0, 0, time.FixedZone("X", 3600))
	vals := entryValues(domainavailability.CalendarEntry{ListingID: "L1", Date: at, IsAvailable: true, PriceOverride: &price}, at)
	require.Len(t, vals, 5)
	assert.Equal(t, "L1", vals[0])
	assert.Equal(t, time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC), vals[1])
	assert.Equal(t, "80.00", vals[3])

	vals = entryValues(domainavailability.CalendarEntry{ListingID: "L1", Date: at}, at)
	assert.Nil(t, vals[3])

	entry, err := entryFromRow("L1", time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC), true, "80.00")
	require.NoError(t, err)
	require.NotNil(t, entry.PriceOverride)
	assert.True(t, price.Equal(*entry.PriceOverride))

	entry, err = entryFromRow("L1", time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC), false, "")
	require.NoError(t, err)
	assert.Nil(t, entry.PriceOverride)

	_, err = entryFromRow("L1", time.Now(), false, "abc")
	assert.Error(t, err)
}

func TestStoreWithoutSession(t *testing.T) {
	s := NewCalendarStore(nil)
	_, err := s.GetRange(context.Background(), "L1", time.Now(), time.Now())
	assert.ErrorIs(t, err, ErrSessionMissing)
	assert.ErrorIs(t, s.UpsertBatch(context.Background(), []domainavailability.CalendarEntry{{ListingID: "L1"}}), ErrSessionMissing)
}
