package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	domainavailability "staycal/internal/domain/availability"
	domainlistings "staycal/internal/domain/listings"
)

const upsertEntrySQL = `
	INSERT INTO calendar_entries (listing_id, day, is_available, price_override, updated_at)
	VALUES ($1, $2, $3, $4::numeric, now())
	ON CONFLICT (listing_id, day) DO UPDATE
	SET is_available = EXCLUDED.is_available,
	    price_override = EXCLUDED.price_override,
	    updated_at = now()`

type CalendarStore struct {
	pool *pgxpool.Pool
}

func NewCalendarStore(pool *pgxpool.Pool) *CalendarStore {
	return &CalendarStore{pool: pool}
}

func (s *CalendarStore) GetRange(ctx context.Context, listingID domainlistings.ListingID, start, end time.Time) ([]domainavailability.CalendarEntry, error) {
	rows, err := conn(ctx, s.pool).Query(ctx,
		`SELECT day, is_available, price_override::text
		 FROM calendar_entries
		 WHERE listing_id = $1 AND day BETWEEN $2 AND $3
		 ORDER BY day`,
		string(listingID), start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("query calendar: %w", err)
	}
	defer rows.Close()

	var out []domainavailability.CalendarEntry
	for rows.Next() {
		var (
			day   time.Time
			avail bool
			price *string
		)
		if err := rows.Scan(&day, &avail, &price); err != nil {
			return nil, fmt.Errorf("scan calendar entry: %w", err)
		}
		entry := domainavailability.CalendarEntry{
			ListingID:   listingID,
			Date:        time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC),
			IsAvailable: avail,
		}
		if price != nil {
			p, err := decimal.NewFromString(*price)
			if err != nil {
				return nil, fmt.Errorf("decode price override: %w", err)
			}
			entry.PriceOverride = &p
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (s *CalendarStore) Upsert(ctx context.Context, entry domainavailability.CalendarEntry) error {
	_, err := conn(ctx, s.pool).Exec(ctx, upsertEntrySQL, entryArgs(entry)...)
	if err != nil {
		return fmt.Errorf("upsert calendar entry: %w", err)
	}
	return nil
}

// UpsertBatch applies all entries in one transaction. Inside a unit of work
// the unit's transaction is used; otherwise a local one is opened.
func (s *CalendarStore) UpsertBatch(ctx context.Context, entries []domainavailability.CalendarEntry) error {
	if len(entries) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(upsertEntrySQL, entryArgs(e)...)
	}
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok && tx != nil {
		return sendBatch(ctx, tx, batch)
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return sendBatch(ctx, tx, batch)
	})
}

func sendBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch) error {
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert calendar batch: %w", err)
	}
	return nil
}

func entryArgs(e domainavailability.CalendarEntry) []any {
	var price *string
	if e.PriceOverride != nil {
		p := e.PriceOverride.StringFixed(domainavailability.PricePlaces)
		price = &p
	}
	day := e.Date.UTC()
	return []any{string(e.ListingID), time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC), e.IsAvailable, price}
}

var _ domainavailability.BatchStore = (*CalendarStore)(nil)
