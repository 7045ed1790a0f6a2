package scylla

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/shopspring/decimal"

	domainlistings "staycal/internal/domain/listings"
)

const listingColumns = `id, host_id, title, city, price_per_night, available, lat, lon, has_location, created_at, updated_at`

type ListingRepository struct {
	session *gocql.Session
}

func NewListingRepository(session *gocql.Session) *ListingRepository {
	return &ListingRepository{session: session}
}

type listingRow struct {
	id, host, title, city, price string
	available, hasLocation       bool
	lat, lon                     float64
	createdAt, updatedAt         time.Time
}

func (r *listingRow) dest() []any {
	return []any{&r.id, &r.host, &r.title, &r.city, &r.price, &r.available, &r.lat, &r.lon, &r.hasLocation, &r.createdAt, &r.updatedAt}
}

func (r listingRow) listing() (*domainlistings.Listing, error) {
	price, err := decimal.NewFromString(r.price)
	if err != nil {
		return nil, fmt.Errorf("decode listing price: %w", err)
	}
	l := &domainlistings.Listing{
		ID:            domainlistings.ListingID(r.id),
		Host:          domainlistings.HostID(r.host),
		Title:         r.title,
		City:          r.city,
		PricePerNight: price,
		Available:     r.available,
		CreatedAt:     r.createdAt.UTC(),
		UpdatedAt:     r.updatedAt.UTC(),
	}
	if r.hasLocation {
		l.Location = &domainlistings.Coordinates{Lat: r.lat, Lon: r.lon}
	}
	return l, nil
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	if r.session == nil {
		return nil, ErrSessionMissing
	}
	var row listingRow
	err := r.session.Query(`SELECT `+listingColumns+` FROM listings WHERE id = ?`, string(id)).
		WithContext(ctx).
		Consistency(gocql.One).
		Scan(row.dest()...)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, domainlistings.ErrListingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}
	return row.listing()
}

func (r *ListingRepository) Save(ctx context.Context, l *domainlistings.Listing) error {
	if r.session == nil {
		return ErrSessionMissing
	}
	var lat, lon float64
	if l.Location != nil {
		lat, lon = l.Location.Lat, l.Location.Lon
	}
	err := r.session.Query(`INSERT INTO listings (`+listingColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(l.ID), string(l.Host), l.Title, l.City, l.PricePerNight.StringFixed(2), l.Available,
		lat, lon, l.Location != nil, l.CreatedAt.UTC(), l.UpdatedAt.UTC(),
	).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("save listing: %w", err)
	}
	return nil
}

// InBox filters server side; listings without coordinates are skipped.
func (r *ListingRepository) InBox(ctx context.Context, box domainlistings.Box) ([]*domainlistings.Listing, error) {
	if r.session == nil {
		return nil, ErrSessionMissing
	}
	iter := r.session.Query(`SELECT `+listingColumns+` FROM listings WHERE lat >= ? AND lat <= ? AND lon >= ? AND lon <= ? ALLOW FILTERING`,
		box.South, box.North, box.West, box.East,
	).WithContext(ctx).Iter()

	var (
		out []*domainlistings.Listing
		row listingRow
	)
	for iter.Scan(row.dest()...) {
		if !row.hasLocation {
			continue
		}
		l, err := row.listing()
		if err != nil {
			_ = iter.Close()
			return nil, err
		}
		out = append(out, l)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("query listings in box: %w", err)
	}
	return out, nil
}

var _ domainlistings.Repository = (*ListingRepository)(nil)
