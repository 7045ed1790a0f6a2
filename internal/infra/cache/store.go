package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	domainavailability "staycal/internal/domain/availability"
	domainlistings "staycal/internal/domain/listings"
	"staycal/internal/domain/shared/daterange"
)

type Observer interface {
	ObserveCacheLookup(hit bool)
	ObserveCacheEvictions(n int)
}

// CalendarStore decorates a calendar store with a range cache. Writes go to
// the wrapped store first and then evict every cached range that contains a
// written day. Cache failures never fail the call.
type CalendarStore struct {
	next     domainavailability.Store
	backend  Backend
	ttl      time.Duration
	observer Observer
	logger   *slog.Logger
}

type Option func(*CalendarStore)

func WithObserver(o Observer) Option { return func(s *CalendarStore) { s.observer = o } }

func WithLogger(l *slog.Logger) Option { return func(s *CalendarStore) { s.logger = l } }

func NewCalendarStore(next domainavailability.Store, backend Backend, ttl time.Duration, opts ...Option) *CalendarStore {
	s := &CalendarStore{next: next, backend: backend, ttl: ttl}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RangeKey is "calendar:{listing}:{start}:{end}" with inclusive days.
func RangeKey(listingID domainlistings.ListingID, start, end time.Time) string {
	return "calendar:" + string(listingID) + ":" + daterange.Format(start) + ":" + daterange.Format(end)
}

// parseRangeKey ignores keys that do not follow RangeKey.
func parseRangeKey(key string) (start, end time.Time, ok bool) {
	// listing ids may contain ':' so the dates are taken from the end
	parts := strings.Split(key, ":")
	if len(parts) < 4 || parts[0] != "calendar" {
		return time.Time{}, time.Time{}, false
	}
	start, err := time.Parse(daterange.Layout, parts[len(parts)-2])
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	end, err = time.Parse(daterange.Layout, parts[len(parts)-1])
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func (s *CalendarStore) GetRange(ctx context.Context, listingID domainlistings.ListingID, start, end time.Time) ([]domainavailability.CalendarEntry, error) {
	key := RangeKey(listingID, start, end)
	if raw, ok, err := s.backend.Get(ctx, key); err != nil {
		s.warn(ctx, "calendar cache read failed", key, err)
	} else if ok {
		entries, err := decodeEntries(listingID, raw)
		if err == nil {
			s.lookup(true)
			return entries, nil
		}
		s.warn(ctx, "calendar cache entry corrupt", key, err)
	}
	s.lookup(false)

	entries, err := s.next.GetRange(ctx, listingID, start, end)
	if err != nil {
		return nil, err
	}
	raw, err := encodeEntries(entries)
	if err == nil {
		err = s.backend.Put(ctx, string(listingID), key, raw, s.ttl)
	}
	if err != nil {
		s.warn(ctx, "calendar cache write failed", key, err)
	}
	return entries, nil
}

func (s *CalendarStore) Upsert(ctx context.Context, entry domainavailability.CalendarEntry) error {
	if err := s.next.Upsert(ctx, entry); err != nil {
		return err
	}
	s.evict(ctx, entry.ListingID, []time.Time{entry.Date})
	return nil
}

// UpsertBatch is atomic only when the wrapped store supports batches.
func (s *CalendarStore) UpsertBatch(ctx context.Context, entries []domainavailability.CalendarEntry) error {
	var err error
	if batch, ok := s.next.(domainavailability.BatchStore); ok {
		err = batch.UpsertBatch(ctx, entries)
	} else {
		for _, e := range entries {
			if err = s.next.Upsert(ctx, e); err != nil {
				break
			}
		}
	}
	// evict even after a partial failure
	byListing := make(map[domainlistings.ListingID][]time.Time)
	for _, e := range entries {
		byListing[e.ListingID] = append(byListing[e.ListingID], e.Date)
	}
	for id, days := range byListing {
		s.evict(ctx, id, days)
	}
	return err
}

// Invalidate evicts cached ranges of listingID containing any of days and
// returns how many were removed.
func (s *CalendarStore) Invalidate(ctx context.Context, listingID domainlistings.ListingID, days []time.Time) (int, error) {
	if len(days) == 0 {
		return 0, nil
	}
	keys, err := s.backend.IndexedKeys(ctx, string(listingID))
	if err != nil {
		return 0, fmt.Errorf("list cached ranges: %w", err)
	}
	stale := make([]string, 0, len(keys))
	for _, key := range keys {
		start, end, ok := parseRangeKey(key)
		if !ok {
			continue
		}
		for _, d := range days {
			d = daterange.Day(d)
			if !d.Before(start) && !d.After(end) {
				stale = append(stale, key)
				break
			}
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}
	if err := s.backend.Evict(ctx, string(listingID), stale...); err != nil {
		return 0, fmt.Errorf("evict cached ranges: %w", err)
	}
	if s.observer != nil {
		s.observer.ObserveCacheEvictions(len(stale))
	}
	return len(stale), nil
}

func (s *CalendarStore) evict(ctx context.Context, listingID domainlistings.ListingID, days []time.Time) {
	if _, err := s.Invalidate(ctx, listingID, days); err != nil {
		s.warn(ctx, "calendar cache eviction failed", string(listingID), err)
	}
}

func (s *CalendarStore) lookup(hit bool) {
	if s.observer != nil {
		s.observer.ObserveCacheLookup(hit)
	}
}

func (s *CalendarStore) warn(ctx context.Context, msg, key string, err error) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, msg, "key", key, "error", err)
	}
}

type entryDocument struct {
	Date          string  `json:"date"`
	IsAvailable   bool    `json:"is_available"`
	PriceOverride *string `json:"price_override,omitempty"`
}

func encodeEntries(entries []domainavailability.CalendarEntry) ([]byte, error) {
	docs := make([]entryDocument, 0, len(entries))
	for _, e := range entries {
		doc := entryDocument{Date: daterange.Format(e.Date), IsAvailable: e.IsAvailable}
		if e.PriceOverride != nil {
			p := e.PriceOverride.String()
			doc.PriceOverride = &p
		}
		docs = append(docs, doc)
	}
	return json.Marshal(docs)
}

func decodeEntries(listingID domainlistings.ListingID, raw []byte) ([]domainavailability.CalendarEntry, error) {
	var docs []entryDocument
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, err
	}
	out := make([]domainavailability.CalendarEntry, 0, len(docs))
	for _, doc := range docs {
		day, err := time.Parse(daterange.Layout, doc.Date)
		if err != nil {
			return nil, err
		}
		entry := domainavailability.CalendarEntry{ListingID: listingID, Date: day, IsAvailable: doc.IsAvailable}
		if doc.PriceOverride != nil {
			p, err := decimal.NewFromString(*doc.PriceOverride)
			if err != nil {
				return nil, err
			}
			entry.PriceOverride = &p
		}
		out = append(out, entry)
	}
	return out, nil
}

var _ domainavailability.BatchStore = (*CalendarStore)(nil)
