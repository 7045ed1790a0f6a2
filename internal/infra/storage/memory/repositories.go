package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domainavailability "staycal/internal/domain/availability"
	domainlistings "staycal/internal/domain/listings"
	"staycal/internal/domain/shared/daterange"
)

// ListingRepository is an in-memory implementation used for demos and tests.
type ListingRepository struct {
	mu    sync.RWMutex
	items map[domainlistings.ListingID]domainlistings.Listing
}

func NewListingRepository() *ListingRepository {
	return &ListingRepository{
		items: make(map[domainlistings.ListingID]domainlistings.Listing),
	}
}

// ByID returns a copy of the listing or domainlistings.ErrListingNotFound.
func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	listing, ok := r.items[id]
	if !ok {
		return nil, domainlistings.ErrListingNotFound
	}
	return cloneListing(listing), nil
}

func (r *ListingRepository) Save(ctx context.Context, listing *domainlistings.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[listing.ID] = *cloneListing(*listing)
	return nil
}

// InBox scans every listing; ordering is by id so results are stable.
func (r *ListingRepository) InBox(ctx context.Context, box domainlistings.Box) ([]*domainlistings.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domainlistings.Listing, 0)
	for _, listing := range r.items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if listing.Location == nil || !box.Contains(*listing.Location) {
			continue
		}
		out = append(out, cloneListing(listing))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func cloneListing(l domainlistings.Listing) *domainlistings.Listing {
	if l.Location != nil {
		loc := *l.Location
		l.Location = &loc
	}
	return &l
}

// CalendarStore keeps per-date overrides keyed by (listing, day).
type CalendarStore struct {
	mu      sync.RWMutex
	entries map[domainlistings.ListingID]map[time.Time]domainavailability.CalendarEntry
}

func NewCalendarStore() *CalendarStore {
	return &CalendarStore{
		entries: make(map[domainlistings.ListingID]map[time.Time]domainavailability.CalendarEntry),
	}
}

func (s *CalendarStore) GetRange(ctx context.Context, listingID domainlistings.ListingID, start, end time.Time) ([]domainavailability.CalendarEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start, end = daterange.Day(start), daterange.Day(end)
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domainavailability.CalendarEntry, 0)
	for day, entry := range s.entries[listingID] {
		if day.Before(start) || day.After(end) {
			continue
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *CalendarStore) Upsert(ctx context.Context, entry domainavailability.CalendarEntry) error {
	return s.UpsertBatch(ctx, []domainavailability.CalendarEntry{entry})
}

// UpsertBatch applies all entries under one lock.
func (s *CalendarStore) UpsertBatch(ctx context.Context, entries []domainavailability.CalendarEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range entries {
		entry.Date = daterange.Day(entry.Date)
		if entry.PriceOverride != nil {
			p := *entry.PriceOverride
			entry.PriceOverride = &p
		}
		byDay, ok := s.entries[entry.ListingID]
		if !ok {
			byDay = make(map[time.Time]domainavailability.CalendarEntry)
			s.entries[entry.ListingID] = byDay
		}
		byDay[entry.Date] = entry
	}
	return nil
}

var (
	_ domainlistings.Repository     = (*ListingRepository)(nil)
	_ domainavailability.BatchStore = (*CalendarStore)(nil)
)
