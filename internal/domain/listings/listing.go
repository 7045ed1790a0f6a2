package listings

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrListingNotFound = errors.New("listings: listing not found")
	ErrIDRequired      = errors.New("listings: id is required")
	ErrHostRequired    = errors.New("listings: host is required")
	ErrNightlyRate     = errors.New("listings: price per night must be non-negative")
	ErrCoordinates     = errors.New("listings: coordinates out of range")
)

type ListingID string
type HostID string

// Coordinates is a WGS84 point in decimal degrees.
type Coordinates struct {
	Lat float64
	Lon float64
}

func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Listing is the read model the calendar and proximity engines consume.
// Location is nil when the listing has no coordinates.
type Listing struct {
	ID            ListingID
	Host          HostID
	Title         string
	City          string
	PricePerNight decimal.Decimal
	Available     bool
	Location      *Coordinates
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Box is an inclusive latitude/longitude rectangle.
type Box struct {
	South float64
	North float64
	West  float64
	East  float64
}

func (b Box) Contains(c Coordinates) bool {
	return c.Lat >= b.South && c.Lat <= b.North && c.Lon >= b.West && c.Lon <= b.East
}

type Repository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	Save(ctx context.Context, listing *Listing) error
	// InBox returns listings whose coordinates fall inside box. Stores may
	// over-select; callers filter again.
	InBox(ctx context.Context, box Box) ([]*Listing, error)
}

type CreateListingParams struct {
	ID            ListingID
	Host          HostID
	Title         string
	City          string
	PricePerNight decimal.Decimal
	Available     bool
	Location      *Coordinates
	Now           time.Time
}

func NewListing(params CreateListingParams) (*Listing, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(string(params.Host)) == "" {
		return nil, ErrHostRequired
	}
	if params.PricePerNight.IsNegative() {
		return nil, ErrNightlyRate
	}
	var loc *Coordinates
	if params.Location != nil {
		if !params.Location.Valid() {
			return nil, ErrCoordinates
		}
		c := *params.Location
		loc = &c
	}
	now := params.Now.UTC()
	return &Listing{
		ID:            params.ID,
		Host:          params.Host,
		Title:         strings.TrimSpace(params.Title),
		City:          strings.TrimSpace(params.City),
		PricePerNight: params.PricePerNight,
		Available:     params.Available,
		Location:      loc,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// OwnedBy reports whether host manages the listing.
func (l *Listing) OwnedBy(host HostID) bool {
	return host != "" && l.Host == host
}
