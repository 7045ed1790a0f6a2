package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainavailability "staycal/internal/domain/availability"
	domainlistings "staycal/internal/domain/listings"
)

func TestListingRepositoryReturnsCopies(t *testing.T) {
	repo := NewListingRepository()
	ctx := context.Background()
	l := &domainlistings.Listing{ID: "a", Location: &domainlistings.Coordinates{Lat: 1, Lon: 1}}
	require.NoError(t, repo.Save(ctx, l))
	l.Location.Lat = 50

	got, err := repo.ByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.Location.Lat)

	_, err = repo.ByID(ctx, "b")
	assert.ErrorIs(t, err, domainlistings.ErrListingNotFound)
}

func TestListingRepositoryInBox(t *testing.T) {
	repo := NewListingRepository()
	ctx := context.Background()
	for id, loc := range map[string]*domainlistings.Coordinates{
		"b": {Lat: 1, Lon: 1},
		"a": {Lat: 2, Lon: 2},
		"c": {Lat: 5, Lon: 5},
		"d": nil,
	} {
		require.NoError(t, repo.Save(ctx, &domainlistings.Listing{ID: domainlistings.ListingID(id), Location: loc}))
	}
	got, err := repo.InBox(ctx, domainlistings.Box{South: 0, North: 2, West: 0, East: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domainlistings.ListingID("a"), got[0].ID)
	assert.Equal(t, domainlistings.ListingID("b"), got[1].ID)
}

func TestCalendarStoreRangeIsInclusiveAndSorted(t *testing.T) {
	store := NewCalendarStore()
	ctx := context.Background()
	d := func(day int) time.Time { return time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC) }
	p := decimal.NewFromInt(120)

	require.NoError(t, store.UpsertBatch(ctx, []domainavailability.CalendarEntry{
		{ListingID: "L", Date: d(5), IsAvailable: true},
		{ListingID: "L", Date: d(1), IsAvailable: false, PriceOverride: &p},
		{ListingID: "L", Date: d(9), IsAvailable: true},
		{ListingID: "other", Date: d(3), IsAvailable: true},
	}))
	p = decimal.NewFromInt(1)

	got, err := store.GetRange(ctx, "L", d(1), d(5))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, d(1), got[0].Date)
	assert.Equal(t, d(5), got[1].Date)
	require.NotNil(t, got[0].PriceOverride)
	assert.True(t, got[0].PriceOverride.Equal(decimal.NewFromInt(120)))

	require.NoError(t, store.Upsert(ctx, domainavailability.CalendarEntry{ListingID: "L", Date: d(1).Add(13 * time.Hour), IsAvailable: true}))
	got, err = store.GetRange(ctx, "L", d(1), d(1))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].IsAvailable)
	assert.Nil(t, got[0].PriceOverride)
}
