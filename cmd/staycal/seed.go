package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/shopspring/decimal"

	domainlistings "staycal/internal/domain/listings"
)

type listingFixture struct {
	ID            string   `json:"id"`
	Host          string   `json:"host"`
	Title         string   `json:"title"`
	City          string   `json:"city"`
	PricePerNight string   `json:"price_per_night"`
	Available     *bool    `json:"available"`
	Lat           *float64 `json:"lat"`
	Lon           *float64 `json:"lon"`
}

func demoFixtures() []listingFixture {
	pt := func(v float64) *float64 { return &v }
	return []listingFixture{
		{ID: "demo-arbat", Host: "host-demo", Title: "Arbat studio", City: "Moscow", PricePerNight: "85.00", Lat: pt(55.7520), Lon: pt(37.5930)},
		{ID: "demo-kremlin", Host: "host-demo", Title: "Loft by the Kremlin", City: "Moscow", PricePerNight: "140.00", Lat: pt(55.7517), Lon: pt(37.6178)},
		{ID: "demo-nevsky", Host: "host-demo", Title: "Nevsky flat", City: "Saint Petersburg", PricePerNight: "95.50", Lat: pt(59.9343), Lon: pt(30.3351)},
		{ID: "demo-dacha", Host: "host-demo", Title: "Dacha without address", City: "Tver", PricePerNight: "40.00"},
	}
}

// seed stores fixtures from path and, when demo is set, the demo listings.
// Invalid fixtures are logged and skipped.
func seed(ctx context.Context, repo domainlistings.Repository, path string, demo bool, logger *slog.Logger) error {
	var fixtures []listingFixture
	if demo {
		fixtures = append(fixtures, demoFixtures()...)
	}
	if path != "" {
		fromFile, err := readFixtures(path)
		if err != nil {
			return err
		}
		fixtures = append(fixtures, fromFile...)
	}
	now := time.Now().UTC()
	imported := 0
	for _, fx := range fixtures {
		listing, err := fx.listing(now)
		if err != nil {
			logger.Error("fixture invalid", "listing_id", fx.ID, "error", err)
			continue
		}
		if err := repo.Save(ctx, listing); err != nil {
			logger.Error("cannot store fixture listing", "listing_id", fx.ID, "error", err)
			continue
		}
		imported++
	}
	if len(fixtures) > 0 {
		logger.Info("listing fixtures imported", "count", imported, "total", len(fixtures))
	}
	return nil
}

func readFixtures(path string) ([]listingFixture, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	var fixtures []listingFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	return fixtures, nil
}

func (fx listingFixture) listing(now time.Time) (*domainlistings.Listing, error) {
	price, err := decimal.NewFromString(fx.PricePerNight)
	if err != nil {
		return nil, fmt.Errorf("price_per_night: %w", err)
	}
	available := true
	if fx.Available != nil {
		available = *fx.Available
	}
	params := domainlistings.CreateListingParams{
		ID:            domainlistings.ListingID(fx.ID),
		Host:          domainlistings.HostID(fx.Host),
		Title:         fx.Title,
		City:          fx.City,
		PricePerNight: price,
		Available:     available,
		Now:           now,
	}
	if fx.Lat != nil && fx.Lon != nil {
		params.Location = &domainlistings.Coordinates{Lat: *fx.Lat, Lon: *fx.Lon}
	}
	return domainlistings.NewListing(params)
}
