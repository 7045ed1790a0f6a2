package availability

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"staycal/internal/domain/listings"
)

// PricePlaces is the precision price overrides are stored with.
const PricePlaces = 2

var (
	ErrNoEntries    = errors.New("availability: at least one date entry is required")
	ErrInvalidPrice = errors.New("availability: price override must be positive")
)

// CalendarEntry is an explicit override for one (listing, day) pair.
// A nil PriceOverride means the listing default price applies.
type CalendarEntry struct {
	ListingID     listings.ListingID
	Date          time.Time
	IsAvailable   bool
	PriceOverride *decimal.Decimal
}

// CalendarDay is the materialized view of one date.
type CalendarDay struct {
	Date           time.Time
	IsAvailable    bool
	PriceOverride  *decimal.Decimal
	EffectivePrice decimal.Decimal
}

// DateEntry is one requested change in UpdateRange.
type DateEntry struct {
	Date          time.Time
	IsAvailable   bool
	PriceOverride *decimal.Decimal
}

// CheckResult answers a booking request for [check_in, check_out).
type CheckResult struct {
	IsAvailable          bool
	Nights               int
	TotalPrice           decimal.Decimal
	AveragePricePerNight decimal.Decimal
	PriceBreakdown       []NightPrice
}

type NightPrice struct {
	Date  time.Time
	Price decimal.Decimal
}

// Store is the durable per-date override storage.
type Store interface {
	// GetRange returns overrides for dates in [start, end], ascending by date.
	GetRange(ctx context.Context, listingID listings.ListingID, start, end time.Time) ([]CalendarEntry, error)
	// Upsert creates or replaces the entry for (ListingID, Date).
	Upsert(ctx context.Context, entry CalendarEntry) error
}

// BatchStore is implemented by stores that can apply several upserts atomically.
type BatchStore interface {
	Store
	UpsertBatch(ctx context.Context, entries []CalendarEntry) error
}

func resolve(listing *listings.Listing, date time.Time, entry *CalendarEntry) CalendarDay {
	day := CalendarDay{
		Date:           date,
		IsAvailable:    listing.Available,
		EffectivePrice: listing.PricePerNight,
	}
	if entry == nil {
		return day
	}
	day.IsAvailable = entry.IsAvailable
	if entry.PriceOverride != nil {
		p := *entry.PriceOverride
		day.PriceOverride = &p
		day.EffectivePrice = p
	}
	return day
}
