package dto

import "staycal/internal/domain/listings"

type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type Listing struct {
	ID            string    `json:"id"`
	Host          string    `json:"host_id"`
	Title         string    `json:"title"`
	City          string    `json:"city,omitempty"`
	PricePerNight string    `json:"price_per_night"`
	Available     bool      `json:"availability"`
	Location      *Location `json:"location"`
}

type NearbyListing struct {
	Listing
	DistanceKm float64 `json:"distance_km"`
}

type NearbyResult struct {
	Items []NearbyListing `json:"items"`
	Total int             `json:"total"`
}

type BoundsResult struct {
	Items []Listing `json:"items"`
	Total int       `json:"total"`
}

func MapListing(l *listings.Listing) Listing {
	out := Listing{
		ID:            string(l.ID),
		Host:          string(l.Host),
		Title:         l.Title,
		City:          l.City,
		PricePerNight: FormatPrice(l.PricePerNight),
		Available:     l.Available,
	}
	if l.Location != nil {
		out.Location = &Location{Lat: l.Location.Lat, Lon: l.Location.Lon}
	}
	return out
}
