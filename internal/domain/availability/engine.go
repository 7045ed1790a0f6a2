package availability

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"staycal/internal/domain/listings"
	"staycal/internal/domain/shared/daterange"
	"staycal/internal/domain/shared/rangeerr"
)

// Engine merges listing defaults with stored overrides. It holds no state
// besides its store and is safe for concurrent use.
type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// GetCalendar materializes every day in [start, end] with a single store read.
func (e *Engine) GetCalendar(ctx context.Context, listing *listings.Listing, start, end time.Time) ([]CalendarDay, error) {
	dr, err := daterange.Inclusive(start, end)
	if err != nil {
		return nil, rangeerr.New("availability", "start date must not be after end date")
	}
	overrides, err := e.fetch(ctx, listing.ID, dr)
	if err != nil {
		return nil, err
	}
	days := make([]CalendarDay, 0, dr.Nights())
	for _, d := range dr.Days() {
		days = append(days, resolve(listing, d, overrides[d]))
	}
	return days, nil
}

// UpdateRange upserts every entry and returns the resolved day for each one,
// in input order. Price overrides are rounded to PricePlaces. When a date
// appears more than once the last entry wins and every entry for that date
// resolves to it. Stores implementing BatchStore apply the whole set at
// once; otherwise entries are written one by one and a failure leaves
// earlier entries committed.
func (e *Engine) UpdateRange(ctx context.Context, listing *listings.Listing, entries []DateEntry) ([]CalendarDay, error) {
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}
	records := make([]CalendarEntry, 0, len(entries))
	slot := make(map[time.Time]int, len(entries))
	order := make([]int, 0, len(entries))
	for _, in := range entries {
		if in.Date.IsZero() {
			return nil, rangeerr.New("availability", "entry date is required")
		}
		var override *decimal.Decimal
		if in.PriceOverride != nil {
			rounded := in.PriceOverride.Round(PricePlaces)
			if !rounded.IsPositive() {
				return nil, ErrInvalidPrice
			}
			override = &rounded
		}
		rec := CalendarEntry{
			ListingID:     listing.ID,
			Date:          daterange.Day(in.Date),
			IsAvailable:   in.IsAvailable,
			PriceOverride: override,
		}
		i, seen := slot[rec.Date]
		if seen {
			records[i] = rec
		} else {
			i = len(records)
			slot[rec.Date] = i
			records = append(records, rec)
		}
		order = append(order, i)
	}
	if err := e.write(ctx, records); err != nil {
		return nil, err
	}
	days := make([]CalendarDay, 0, len(order))
	for _, i := range order {
		days = append(days, resolve(listing, records[i].Date, &records[i]))
	}
	return days, nil
}

// CheckAvailability walks the nights of [checkIn, checkOut).
func (e *Engine) CheckAvailability(ctx context.Context, listing *listings.Listing, checkIn, checkOut time.Time) (CheckResult, error) {
	dr, err := daterange.New(checkIn, checkOut)
	if err != nil {
		return CheckResult{}, rangeerr.New("availability", "check-out must be after check-in")
	}
	overrides, err := e.fetch(ctx, listing.ID, dr)
	if err != nil {
		return CheckResult{}, err
	}
	result := CheckResult{IsAvailable: true, TotalPrice: decimal.Zero}
	for _, night := range dr.Days() {
		day := resolve(listing, night, overrides[night])
		if !day.IsAvailable {
			result.IsAvailable = false
		}
		result.TotalPrice = result.TotalPrice.Add(day.EffectivePrice)
		result.PriceBreakdown = append(result.PriceBreakdown, NightPrice{Date: night, Price: day.EffectivePrice})
		result.Nights++
	}
	result.AveragePricePerNight = decimal.Zero
	if result.Nights > 0 {
		result.AveragePricePerNight = result.TotalPrice.DivRound(decimal.NewFromInt(int64(result.Nights)), 2)
	}
	return result, nil
}

// BlockRange marks every day in [start, end] unavailable and clears price
// overrides. reason is not stored.
func (e *Engine) BlockRange(ctx context.Context, listing *listings.Listing, start, end time.Time, reason string) ([]time.Time, error) {
	dr, err := daterange.Inclusive(start, end)
	if err != nil {
		return nil, rangeerr.New("availability", "start date must not be after end date")
	}
	dates := dr.Days()
	entries := make([]DateEntry, 0, len(dates))
	for _, d := range dates {
		entries = append(entries, DateEntry{Date: d, IsAvailable: false})
	}
	if _, err := e.UpdateRange(ctx, listing, entries); err != nil {
		return nil, err
	}
	return dates, nil
}

func (e *Engine) fetch(ctx context.Context, id listings.ListingID, dr daterange.DateRange) (map[time.Time]*CalendarEntry, error) {
	entries, err := e.store.GetRange(ctx, id, dr.CheckIn, dr.Last())
	if err != nil {
		return nil, err
	}
	out := make(map[time.Time]*CalendarEntry, len(entries))
	for i := range entries {
		out[daterange.Day(entries[i].Date)] = &entries[i]
	}
	return out, nil
}

func (e *Engine) write(ctx context.Context, records []CalendarEntry) error {
	if batch, ok := e.store.(BatchStore); ok {
		return batch.UpsertBatch(ctx, records)
	}
	for _, rec := range records {
		if err := e.store.Upsert(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}
