package proximity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staycal/internal/domain/listings"
	"staycal/internal/domain/shared/rangeerr"
)

func at(id string, lat, lon float64) *listings.Listing {
	return &listings.Listing{ID: listings.ListingID(id), Location: &listings.Coordinates{Lat: lat, Lon: lon}}
}

func ids(results []Result) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, string(r.Listing.ID))
	}
	return out
}

func TestDistanceKm(t *testing.T) {
	assert.InDelta(t, 0, DistanceKm(10, 10, 10, 10), 1e-9)
	// One degree of latitude along a meridian.
	assert.InDelta(t, 111.19, DistanceKm(0, 0, 1, 0), 0.01)
	// Moscow to Saint Petersburg.
	assert.InDelta(t, 634, DistanceKm(55.7558, 37.6173, 59.9343, 30.3351), 5)
}

func TestNearbyFiltersAndOrdersByProxy(t *testing.T) {
	candidates := []*listings.Listing{
		at("far", 56.5, 37.6),
		at("near", 55.751, 37.62),
		at("mid", 55.76, 37.58),
		{ID: "nowhere"},
		nil,
	}
	res, err := Nearby(NearbyOptions{Lat: 55.75, Lon: 37.62, RadiusKm: 10}, candidates)
	require.NoError(t, err)
	assert.Equal(t, []string{"near", "mid"}, ids(res))
	assert.InDelta(t, DistanceKm(55.75, 37.62, 55.751, 37.62), res[0].DistanceKm, 1e-9)
}

func TestNearbyProxyCanDifferFromExact(t *testing.T) {
	// At 60N a longitude degree is half a latitude degree, so the proxy
	// prefers the point that is closer in raw degrees.
	center := NearbyOptions{Lat: 60, Lon: 30, RadiusKm: 50}
	candidates := []*listings.Listing{
		at("north", 60.1, 30),
		at("east", 60, 30.15),
	}
	proxy, err := Nearby(center, candidates)
	require.NoError(t, err)
	assert.Equal(t, []string{"north", "east"}, ids(proxy))

	center.Exact = true
	exact, err := Nearby(center, candidates)
	require.NoError(t, err)
	assert.Equal(t, []string{"east", "north"}, ids(exact))
}

func TestNearbyLimit(t *testing.T) {
	candidates := []*listings.Listing{at("a", 0, 0), at("b", 0.01, 0), at("c", 0.02, 0)}
	res, err := Nearby(NearbyOptions{RadiusKm: 5, Limit: 2}, candidates)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(res))
}

func TestNearbyRejectsNonPositiveRadius(t *testing.T) {
	for _, r := range []float64{0, -1, math.NaN()} {
		_, err := Nearby(NearbyOptions{RadiusKm: r}, nil)
		assert.ErrorIs(t, err, rangeerr.ErrInvalidRange)
	}
}

func TestBoundingBoxAtPoleIsFinite(t *testing.T) {
	box, err := BoundingBox(90, 0, 1)
	require.NoError(t, err)
	assert.False(t, math.IsInf(box.East, 0))
	assert.False(t, math.IsNaN(box.West))
	assert.InDelta(t, 1/KmPerDegree, box.North-90, 1e-12)
}

func TestNearbyHasNoFalseNegativesInsideRadius(t *testing.T) {
	center := listings.Coordinates{Lat: 48.8566, Lon: 2.3522}
	radius := 0.1
	var candidates []*listings.Listing
	for i := -20; i <= 20; i++ {
		for j := -20; j <= 20; j++ {
			candidates = append(candidates, at("p", center.Lat+float64(i)*0.0001, center.Lon+float64(j)*0.0001))
		}
	}
	res, err := Nearby(NearbyOptions{Lat: center.Lat, Lon: center.Lon, RadiusKm: radius}, candidates)
	require.NoError(t, err)

	kept := make(map[*listings.Listing]bool, len(res))
	for _, r := range res {
		kept[r.Listing] = true
	}
	for _, c := range candidates {
		if DistanceKm(center.Lat, center.Lon, c.Location.Lat, c.Location.Lon) <= radius*0.99 {
			assert.True(t, kept[c], "candidate %v within radius was dropped", *c.Location)
		}
	}
	for _, r := range res {
		assert.LessOrEqual(t, math.Abs(r.Listing.Location.Lat-center.Lat), radius/KmPerDegree+1e-12)
	}
}

func TestWithinBounds(t *testing.T) {
	candidates := []*listings.Listing{at("in", 10, 10), at("edge", 20, 20), at("out", 21, 10), {ID: "nowhere"}}
	got, err := WithinBounds(BoundsOptions{North: 20, South: 0, East: 20, West: 0}, candidates)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, listings.ListingID("in"), got[0].ID)
	assert.Equal(t, listings.ListingID("edge"), got[1].ID)

	_, err = WithinBounds(BoundsOptions{North: 0, South: 1}, candidates)
	assert.ErrorIs(t, err, rangeerr.ErrInvalidRange)

	_, err = WithinBounds(BoundsOptions{North: 1, South: 0, East: -179, West: 179}, candidates)
	assert.ErrorIs(t, err, rangeerr.ErrInvalidRange)
}
