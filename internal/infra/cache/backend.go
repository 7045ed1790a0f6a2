// Package cache memoizes calendar range reads and evicts only the cached
// ranges a write touched.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Backend stores range payloads and a per-listing index of their keys.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Put stores value under key and records key in the listing's index.
	Put(ctx context.Context, listingID, key string, value []byte, ttl time.Duration) error
	IndexedKeys(ctx context.Context, listingID string) ([]string, error)
	// Evict removes keys and drops them from the listing's index.
	Evict(ctx context.Context, listingID string, keys ...string) error
}

const (
	DefaultMemoryCapacity = 10000
	sweepInterval         = time.Minute
)

type memoryItem struct {
	key       string
	listingID string
	value     []byte
	expiresAt time.Time
}

// MemoryBackend is a process-local LRU Backend. Expired items are swept on
// Put and IndexedKeys at most once per sweepInterval.
type MemoryBackend struct {
	mu        sync.Mutex
	items     map[string]*list.Element
	order     *list.List
	index     map[string]map[string]struct{}
	capacity  int
	now       func() time.Time
	nextSweep time.Time
}

// NewMemoryBackend holds at most capacity items; zero or less uses
// DefaultMemoryCapacity.
func NewMemoryBackend(capacity int) *MemoryBackend {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryBackend{
		items:    make(map[string]*list.Element),
		order:    list.New(),
		index:    make(map[string]map[string]struct{}),
		capacity: capacity,
		now:      time.Now,
	}
}

func (m *MemoryBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, ok := m.items[key]
	if !ok {
		return nil, false, nil
	}
	item := el.Value.(*memoryItem)
	if item.expired(m.now()) {
		m.removeLocked(el)
		return nil, false, nil
	}
	m.order.MoveToFront(el)
	return item.value, true, nil
}

func (m *MemoryBackend) Put(ctx context.Context, listingID, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.sweepLocked(now)

	item := &memoryItem{key: key, listingID: listingID, value: append([]byte(nil), value...)}
	if ttl > 0 {
		item.expiresAt = now.Add(ttl)
	}
	if el, ok := m.items[key]; ok {
		m.removeLocked(el)
	}
	m.items[key] = m.order.PushFront(item)
	keys, ok := m.index[listingID]
	if !ok {
		keys = make(map[string]struct{})
		m.index[listingID] = keys
	}
	keys[key] = struct{}{}

	for m.order.Len() > m.capacity {
		m.removeLocked(m.order.Back())
	}
	return nil
}

func (m *MemoryBackend) IndexedKeys(ctx context.Context, listingID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked(m.now())
	out := make([]string, 0, len(m.index[listingID]))
	for key := range m.index[listingID] {
		out = append(out, key)
	}
	return out, nil
}

func (m *MemoryBackend) Evict(ctx context.Context, listingID string, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		if el, ok := m.items[key]; ok {
			m.removeLocked(el)
			continue
		}
		m.unindexLocked(listingID, key)
	}
	return nil
}

func (m *MemoryBackend) sweepLocked(now time.Time) {
	if now.Before(m.nextSweep) {
		return
	}
	m.nextSweep = now.Add(sweepInterval)
	for el := m.order.Front(); el != nil; {
		next := el.Next()
		if el.Value.(*memoryItem).expired(now) {
			m.removeLocked(el)
		}
		el = next
	}
}

func (m *MemoryBackend) removeLocked(el *list.Element) {
	item := m.order.Remove(el).(*memoryItem)
	delete(m.items, item.key)
	m.unindexLocked(item.listingID, item.key)
}

func (m *MemoryBackend) unindexLocked(listingID, key string) {
	keys, ok := m.index[listingID]
	if !ok {
		return
	}
	delete(keys, key)
	if len(keys) == 0 {
		delete(m.index, listingID)
	}
}

func (i *memoryItem) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && !now.Before(i.expiresAt)
}

var _ Backend = (*MemoryBackend)(nil)
