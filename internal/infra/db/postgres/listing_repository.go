package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	domainlistings "staycal/internal/domain/listings"
)

const listingColumns = `id, host_id, title, city, price_per_night::text, available, lat, lon, created_at, updated_at`

type ListingRepository struct {
	pool *pgxpool.Pool
}

func NewListingRepository(pool *pgxpool.Pool) *ListingRepository {
	return &ListingRepository{pool: pool}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, string(id))
	listing, err := scanListing(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domainlistings.ErrListingNotFound
	}
	return listing, err
}

func (r *ListingRepository) Save(ctx context.Context, listing *domainlistings.Listing) error {
	var lat, lon *float64
	if listing.Location != nil {
		lat, lon = &listing.Location.Lat, &listing.Location.Lon
	}
	_, err := conn(ctx, r.pool).Exec(ctx,
		`INSERT INTO listings (id, host_id, title, city, price_per_night, available, lat, lon, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE
		 SET host_id = EXCLUDED.host_id, title = EXCLUDED.title, city = EXCLUDED.city,
		     price_per_night = EXCLUDED.price_per_night, available = EXCLUDED.available,
		     lat = EXCLUDED.lat, lon = EXCLUDED.lon, updated_at = EXCLUDED.updated_at`,
		string(listing.ID), string(listing.Host), listing.Title, listing.City,
		listing.PricePerNight.StringFixed(2), listing.Available, lat, lon,
		listing.CreatedAt.UTC(), listing.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save listing: %w", err)
	}
	return nil
}

func (r *ListingRepository) InBox(ctx context.Context, box domainlistings.Box) ([]*domainlistings.Listing, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+listingColumns+` FROM listings
		 WHERE lat BETWEEN $1 AND $2 AND lon BETWEEN $3 AND $4
		 ORDER BY id`,
		box.South, box.North, box.West, box.East,
	)
	if err != nil {
		return nil, fmt.Errorf("query listings in box: %w", err)
	}
	defer rows.Close()

	var out []*domainlistings.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func scanListing(row pgx.Row) (*domainlistings.Listing, error) {
	var (
		l        domainlistings.Listing
		id, host string
		price    string
		lat, lon *float64
	)
	if err := row.Scan(&id, &host, &l.Title, &l.City, &price, &l.Available, &lat, &lon, &l.CreatedAt, &l.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan listing: %w", err)
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("decode listing price: %w", err)
	}
	l.ID, l.Host, l.PricePerNight = domainlistings.ListingID(id), domainlistings.HostID(host), p
	if lat != nil && lon != nil {
		l.Location = &domainlistings.Coordinates{Lat: *lat, Lon: *lon}
	}
	l.CreatedAt, l.UpdatedAt = l.CreatedAt.UTC(), l.UpdatedAt.UTC()
	return &l, nil
}

var _ domainlistings.Repository = (*ListingRepository)(nil)
