package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "staycal/internal/app/outbox"
	domainavailability "staycal/internal/domain/availability"
	domainlistings "staycal/internal/domain/listings"
	"staycal/internal/infra/storage/memory"
)

func day(d int) time.Time { return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC) }

type countingStore struct {
	domainavailability.Store
	reads int
}

func (s *countingStore) GetRange(ctx context.Context, id domainlistings.ListingID, start, end time.Time) ([]domainavailability.CalendarEntry, error) {
	s.reads++
	return s.Store.GetRange(ctx, id, start, end)
}

type stats struct {
	hits, misses, evicted int
}

func (s *stats) ObserveCacheLookup(hit bool) {
	if hit {
		s.hits++
	} else {
		s.misses++
	}
}

func (s *stats) ObserveCacheEvictions(n int) { s.evicted += n }

type brokenBackend struct{ Backend }

func (brokenBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, errors.New("down")
}

func (brokenBackend) Put(ctx context.Context, listingID, key string, value []byte, ttl time.Duration) error {
	return errors.New("down")
}

func newStore(t *testing.T) (*CalendarStore, *countingStore, *stats) {
	t.Helper()
	inner := &countingStore{Store: memory.NewCalendarStore()}
	st := &stats{}
	return NewCalendarStore(inner, NewMemoryBackend(0), time.Minute, WithObserver(st)), inner, st
}

func TestRangeKeyRoundTrip(t *testing.T) {
	key := RangeKey("host:42", day(1), day(7))
	assert.Equal(t, "calendar:host:42:2025-03-01:2025-03-07", key)
	start, end, ok := parseRangeKey(key)
	require.True(t, ok)
	assert.Equal(t, day(1), start)
	assert.Equal(t, day(7), end)

	_, _, ok = parseRangeKey("calendar:idx:L1")
	assert.False(t, ok)
}

func TestGetRangeServesRepeatReadsFromCache(t *testing.T) {
	store, inner, st := newStore(t)
	ctx := context.Background()
	price := decimal.RequireFromString("120.50")
	require.NoError(t, inner.Upsert(ctx, domainavailability.CalendarEntry{ListingID: "L1", Date: day(2), IsAvailable: true, PriceOverride: &price}))

	first, err := store.GetRange(ctx, "L1", day(1), day(5))
	require.NoError(t, err)
	second, err := store.GetRange(ctx, "L1", day(1), day(5))
	require.NoError(t, err)

	assert.Equal(t, 1, inner.reads)
	assert.Equal(t, 1, st.hits)
	assert.Equal(t, 1, st.misses)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].Date, second[0].Date)
	assert.Equal(t, domainlistings.ListingID("L1"), second[0].ListingID)
	assert.True(t, price.Equal(*second[0].PriceOverride))
}

func TestWritesEvictOnlyOverlappingRanges(t *testing.T) {
	store, inner, st := newStore(t)
	ctx := context.Background()

	for _, r := range [][2]int{{1, 5}, {10, 15}} {
		_, err := store.GetRange(ctx, "L1", day(r[0]), day(r[1]))
		require.NoError(t, err)
	}
	_, err := store.GetRange(ctx, "L2", day(1), day(5))
	require.NoError(t, err)
	require.Equal(t, 3, inner.reads)

	require.NoError(t, store.Upsert(ctx, domainavailability.CalendarEntry{ListingID: "L1", Date: day(5), IsAvailable: false}))
	assert.Equal(t, 1, st.evicted)

	got, err := store.GetRange(ctx, "L1", day(1), day(5))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].IsAvailable)
	assert.Equal(t, 4, inner.reads)

	_, err = store.GetRange(ctx, "L1", day(10), day(15))
	require.NoError(t, err)
	_, err = store.GetRange(ctx, "L2", day(1), day(5))
	require.NoError(t, err)
	assert.Equal(t, 4, inner.reads)
}

func TestUpsertBatchEvictsEveryTouchedListing(t *testing.T) {
	store, inner, _ := newStore(t)
	ctx := context.Background()
	_, _ = store.GetRange(ctx, "L1", day(1), day(3))
	_, _ = store.GetRange(ctx, "L2", day(1), day(3))

	require.NoError(t, store.UpsertBatch(ctx, []domainavailability.CalendarEntry{
		{ListingID: "L1", Date: day(2)},
		{ListingID: "L2", Date: day(3)},
	}))

	_, _ = store.GetRange(ctx, "L1", day(1), day(3))
	_, _ = store.GetRange(ctx, "L2", day(1), day(3))
	assert.Equal(t, 4, inner.reads)
}

func TestBackendFailuresFallThrough(t *testing.T) {
	inner := &countingStore{Store: memory.NewCalendarStore()}
	store := NewCalendarStore(inner, brokenBackend{Backend: NewMemoryBackend(0)}, time.Minute)

	_, err := store.GetRange(context.Background(), "L1", day(1), day(2))
	require.NoError(t, err)
	_, err = store.GetRange(context.Background(), "L1", day(1), day(2))
	require.NoError(t, err)
	assert.Equal(t, 2, inner.reads)
}

func TestMemoryBackendExpires(t *testing.T) {
	b := NewMemoryBackend(0)
	now := day(1)
	b.now = func() time.Time { return now }
	ctx := context.Background()
	require.NoError(t, b.Put(ctx, "L1", "k", []byte("v"), time.Second))

	_, ok, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok, err = b.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryBackendSweepsExpiredRanges(t *testing.T) {
	b := NewMemoryBackend(0)
	now := day(1)
	b.now = func() time.Time { return now }
	store := NewCalendarStore(memory.NewCalendarStore(), b, time.Minute)
	ctx := context.Background()

	for i := 0; i < 500; i++ {
		_, err := store.GetRange(ctx, "L1", day(1), day(1).AddDate(0, 0, i))
		require.NoError(t, err)
	}
	assert.Len(t, b.items, 500)
	assert.Len(t, b.index["L1"], 500)

	now = now.Add(24 * time.Hour)
	keys, err := b.IndexedKeys(ctx, "L1")
	require.NoError(t, err)
	assert.Empty(t, keys)
	assert.Empty(t, b.items)
	assert.Zero(t, b.order.Len())
	assert.Empty(t, b.index)
}

func TestMemoryBackendCapacity(t *testing.T) {
	b := NewMemoryBackend(2)
	ctx := context.Background()
	require.NoError(t, b.Put(ctx, "L1", "a", []byte("1"), 0))
	require.NoError(t, b.Put(ctx, "L1", "b", []byte("2"), 0))
	_, ok, _ := b.Get(ctx, "a")
	require.True(t, ok)
	require.NoError(t, b.Put(ctx, "L2", "c", []byte("3"), 0))

	_, ok, _ = b.Get(ctx, "b")
	assert.False(t, ok)
	keys, err := b.IndexedKeys(ctx, "L1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, keys)
	assert.Len(t, b.items, 2)
}

func TestPublisherEvictsFromEventPayload(t *testing.T) {
	store, inner, _ := newStore(t)
	ctx := context.Background()
	_, _ = store.GetRange(ctx, "L1", day(1), day(5))

	ev := domainavailability.CalendarBlockedEvent("L1", []time.Time{day(4), day(5)}, "repairs", day(1))
	rec, err := appoutbox.JSONEventEncoder{}.Encode(ctx, ev)
	require.NoError(t, err)

	require.NoError(t, store.Publisher().Publish(ctx, rec))
	_, _ = store.GetRange(ctx, "L1", day(1), day(5))
	assert.Equal(t, 2, inner.reads)

	err = store.Publisher().Publish(ctx, appoutbox.EventRecord{Payload: []byte("nope")})
	assert.Error(t, err)
}

func TestApplyRejectsBadDates(t *testing.T) {
	store, _, _ := newStore(t)
	_, err := store.Apply(context.Background(), CalendarChange{ListingID: "L1", Dates: []string{"03/01/2025"}})
	assert.Error(t, err)

	n, err := store.Apply(context.Background(), CalendarChange{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLocalSinkEvictsFromCloudEvent(t *testing.T) {
	store, inner, _ := newStore(t)
	ctx := context.Background()
	_, _ = store.GetRange(ctx, "L1", day(1), day(5))

	sink := LocalSink{Store: store}
	payload := []byte(`{"specversion":"1.0","id":"e1","type":"calendar.updated.v1","data":{"dates":["2025-03-03"]}}`)
	require.NoError(t, sink.Publish(ctx, "calendar.events.v1", "L1", payload, nil))

	_, _ = store.GetRange(ctx, "L1", day(1), day(5))
	assert.Equal(t, 2, inner.reads)

	assert.Error(t, sink.Publish(ctx, "t", "L1", []byte("{"), nil))
}
