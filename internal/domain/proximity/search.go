// Package proximity ranks listings around a point without a spatial index.
package proximity

import (
	"math"
	"sort"

	"staycal/internal/domain/listings"
	"staycal/internal/domain/shared/rangeerr"
)

const (
	// KmPerDegree approximates one degree of latitude.
	KmPerDegree = 111.0
	// EarthRadiusKm is the mean radius used by DistanceKm.
	EarthRadiusKm = 6371.0

	minCos = 1e-6
)

// Result pairs a listing with its great-circle distance from the query point.
type Result struct {
	Listing    *listings.Listing
	DistanceKm float64
}

// NearbyOptions are the typed filters of a radius search.
type NearbyOptions struct {
	Lat      float64
	Lon      float64
	RadiusKm float64
	// Exact re-sorts the box hits by DistanceKm instead of the degree proxy.
	Exact bool
	// Limit caps the result size; zero means unlimited.
	Limit int
}

// BoundsOptions describe a map viewport.
type BoundsOptions struct {
	North float64
	South float64
	East  float64
	West  float64
	Limit int
}

// BoundingBox converts a radius around a point into a degree rectangle.
func BoundingBox(lat, lon, radiusKm float64) (listings.Box, error) {
	if !(radiusKm > 0) {
		return listings.Box{}, rangeerr.New("proximity", "radius must be positive")
	}
	latDelta := radiusKm / KmPerDegree
	cos := math.Cos(lat * math.Pi / 180)
	if cos < minCos {
		cos = minCos
	}
	lonDelta := radiusKm / (KmPerDegree * cos)
	return listings.Box{
		South: lat - latDelta,
		North: lat + latDelta,
		West:  lon - lonDelta,
		East:  lon + lonDelta,
	}, nil
}

// Nearby keeps candidates inside the radius box, ordered by |dlat|+|dlon|.
func Nearby(opts NearbyOptions, candidates []*listings.Listing) ([]Result, error) {
	box, err := BoundingBox(opts.Lat, opts.Lon, opts.RadiusKm)
	if err != nil {
		return nil, err
	}
	type hit struct {
		result Result
		proxy  float64
	}
	hits := make([]hit, 0, len(candidates))
	for _, l := range candidates {
		if l == nil || l.Location == nil || !box.Contains(*l.Location) {
			continue
		}
		loc := *l.Location
		hits = append(hits, hit{
			result: Result{Listing: l, DistanceKm: DistanceKm(opts.Lat, opts.Lon, loc.Lat, loc.Lon)},
			proxy:  math.Abs(loc.Lat-opts.Lat) + math.Abs(loc.Lon-opts.Lon),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if opts.Exact {
			return hits[i].result.DistanceKm < hits[j].result.DistanceKm
		}
		return hits[i].proxy < hits[j].proxy
	})
	out := make([]Result, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.result)
	}
	return limit(out, opts.Limit), nil
}

// WithinBounds is an inclusive rectangle filter. Boxes crossing the
// antimeridian are rejected because west would exceed east.
func WithinBounds(opts BoundsOptions, candidates []*listings.Listing) ([]*listings.Listing, error) {
	box, err := opts.Box()
	if err != nil {
		return nil, err
	}
	out := make([]*listings.Listing, 0)
	for _, l := range candidates {
		if l == nil || l.Location == nil || !box.Contains(*l.Location) {
			continue
		}
		out = append(out, l)
	}
	return limit(out, opts.Limit), nil
}

func (o BoundsOptions) Box() (listings.Box, error) {
	if o.South > o.North {
		return listings.Box{}, rangeerr.New("proximity", "south must not exceed north")
	}
	if o.West > o.East {
		return listings.Box{}, rangeerr.New("proximity", "west must not exceed east")
	}
	return listings.Box{South: o.South, North: o.North, West: o.West, East: o.East}, nil
}

// DistanceKm is the haversine great-circle distance.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

func limit[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}
