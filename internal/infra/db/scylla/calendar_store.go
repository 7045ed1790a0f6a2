package scylla

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/shopspring/decimal"

	domainavailability "staycal/internal/domain/availability"
	domainlistings "staycal/internal/domain/listings"
)

var ErrSessionMissing = errors.New("scylla: session not initialized")

const upsertEntryCQL = `INSERT INTO calendar_entries (listing_id, day, is_available, price_override, updated_at) VALUES (?, ?, ?, ?, ?)`

type CalendarStore struct {
	session *gocql.Session
	now     func() time.Time
}

func NewCalendarStore(session *gocql.Session) *CalendarStore {
	return &CalendarStore{session: session, now: time.Now}
}

func (s *CalendarStore) GetRange(ctx context.Context, listingID domainlistings.ListingID, start, end time.Time) ([]domainavailability.CalendarEntry, error) {
	if s.session == nil {
		return nil, ErrSessionMissing
	}
	iter := s.session.
		Query(`SELECT day, is_available, price_override FROM calendar_entries WHERE listing_id = ? AND day >= ? AND day <= ?`,
			string(listingID), start.UTC(), end.UTC()).
		WithContext(ctx).
		Iter()

	var (
		out   []domainavailability.CalendarEntry
		day   time.Time
		avail bool
		price string
	)
	for iter.Scan(&day, &avail, &price) {
		entry, err := entryFromRow(listingID, day, avail, price)
		if err != nil {
			_ = iter.Close()
			return nil, err
		}
		out = append(out, entry)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("query calendar: %w", err)
	}
	return out, nil
}

func (s *CalendarStore) Upsert(ctx context.Context, entry domainavailability.CalendarEntry) error {
	if s.session == nil {
		return ErrSessionMissing
	}
	if err := s.session.Query(upsertEntryCQL, entryValues(entry, s.now())...).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("upsert calendar entry: %w", err)
	}
	return nil
}

// UpsertBatch writes a logged batch, which is atomic for entries of one
// listing because they share a partition.
func (s *CalendarStore) UpsertBatch(ctx context.Context, entries []domainavailability.CalendarEntry) error {
	if s.session == nil {
		return ErrSessionMissing
	}
	if len(entries) == 0 {
		return nil
	}
	now := s.now()
	batch := s.session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	for _, e := range entries {
		batch.Query(upsertEntryCQL, entryValues(e, now)...)
	}
	if err := s.session.ExecuteBatch(batch); err != nil {
		return fmt.Errorf("upsert calendar batch: %w", err)
	}
	return nil
}

func entryValues(e domainavailability.CalendarEntry, now time.Time) []any {
	var price any
	if e.PriceOverride != nil {
		price = e.PriceOverride.StringFixed(domainavailability.PricePlaces)
	}
	return []any{string(e.ListingID), dayOf(e.Date), e.IsAvailable, price, now.UTC()}
}

// entryFromRow treats an empty price column as no override.
func entryFromRow(listingID domainlistings.ListingID, day time.Time, avail bool, price string) (domainavailability.CalendarEntry, error) {
	entry := domainavailability.CalendarEntry{ListingID: listingID, Date: dayOf(day), IsAvailable: avail}
	if price == "" {
		return entry, nil
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return domainavailability.CalendarEntry{}, fmt.Errorf("decode price override: %w", err)
	}
	entry.PriceOverride = &p
	return entry, nil
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var _ domainavailability.BatchStore = (*CalendarStore)(nil)
