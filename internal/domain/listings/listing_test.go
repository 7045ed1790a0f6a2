package listings

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewListingValidates(t *testing.T) {
	now := time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC)
	base := CreateListingParams{
		ID:            "lst-1",
		Host:          "host-1",
		Title:         "  Loft  ",
		PricePerNight: decimal.RequireFromString("100.00"),
		Available:     true,
		Location:      &Coordinates{Lat: 55.75, Lon: 37.61},
		Now:           now,
	}

	l, err := NewListing(base)
	require.NoError(t, err)
	assert.Equal(t, "Loft", l.Title)
	assert.Equal(t, now, l.CreatedAt)
	require.NotNil(t, l.Location)
	assert.NotSame(t, base.Location, l.Location)

	cases := []struct {
		name   string
		mutate func(p *CreateListingParams)
		want   error
	}{
		{"missing id", func(p *CreateListingParams) { p.ID = " " }, ErrIDRequired},
		{"missing host", func(p *CreateListingParams) { p.Host = "" }, ErrHostRequired},
		{"negative price", func(p *CreateListingParams) { p.PricePerNight = decimal.NewFromInt(-1) }, ErrNightlyRate},
		{"bad latitude", func(p *CreateListingParams) { p.Location = &Coordinates{Lat: 91} }, ErrCoordinates},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := base
			tc.mutate(&p)
			_, err := NewListing(p)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestBoxContainsIsInclusive(t *testing.T) {
	box := Box{South: 10, North: 20, West: 30, East: 40}
	assert.True(t, box.Contains(Coordinates{Lat: 10, Lon: 30}))
	assert.True(t, box.Contains(Coordinates{Lat: 20, Lon: 40}))
	assert.False(t, box.Contains(Coordinates{Lat: 20.0001, Lon: 35}))
}

func TestOwnedBy(t *testing.T) {
	l := &Listing{Host: "host-1"}
	assert.True(t, l.OwnedBy("host-1"))
	assert.False(t, l.OwnedBy("host-2"))
	assert.False(t, l.OwnedBy(""))
}
