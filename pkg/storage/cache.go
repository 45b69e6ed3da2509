package storage

import (
	"container/list"
	"sync"
	"time"

	"github.com/vvikramc/promexpo/pkg/types"
)

// FetchCache is an LRU cache with TTL expiry sitting in front of snapshot
// decompression, keyed by tenant and metric name.
type FetchCache struct {
	capacity int
	ttl      time.Duration
	mu       sync.Mutex
	cache    map[string]*cacheEntry
	lru      *list.List
}

type cacheEntry struct {
	key       string
	metric    *types.Metric
	timestamp time.Time
	element   *list.Element
}

// NewFetchCache creates a new fetch cache.
func NewFetchCache(capacity int, ttl time.Duration) *FetchCache {
	return &FetchCache{
		capacity: capacity,
		ttl:      ttl,
		cache:    make(map[string]*cacheEntry),
		lru:      list.New(),
	}
}

func cacheKey(tenantID, name string) string {
	// Metric names cannot contain NUL, so the separator is unambiguous.
	return tenantID + "\x00" + name
}

// Get retrieves a cached metric snapshot.
func (fc *FetchCache) Get(tenantID, name string) (*types.Metric, bool) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	key := cacheKey(tenantID, name)
	entry, exists := fc.cache[key]
	if !exists {
		return nil, false
	}

	if time.Since(entry.timestamp) > fc.ttl {
		fc.removeLocked(key)
		return nil, false
	}

	fc.lru.MoveToFront(entry.element)
	return entry.metric, true
}

// Put stores a metric snapshot in the cache.
func (fc *FetchCache) Put(tenantID, name string, metric *types.Metric) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	key := cacheKey(tenantID, name)
	if entry, exists := fc.cache[key]; exists {
		entry.metric = metric
		entry.timestamp = time.Now()
		fc.lru.MoveToFront(entry.element)
		return
	}

	entry := &cacheEntry{
		key:       key,
		metric:    metric,
		timestamp: time.Now(),
	}
	entry.element = fc.lru.PushFront(entry)
	fc.cache[key] = entry

	if fc.lru.Len() > fc.capacity {
		oldest := fc.lru.Back()
		if oldest != nil {
			oldestEntry := oldest.Value.(*cacheEntry)
			fc.removeLocked(oldestEntry.key)
		}
	}
}

// Invalidate drops one metric snapshot from the cache, if present.
func (fc *FetchCache) Invalidate(tenantID, name string) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.removeLocked(cacheKey(tenantID, name))
}

// removeLocked removes an entry from the cache (must hold lock).
func (fc *FetchCache) removeLocked(key string) {
	if entry, exists := fc.cache[key]; exists {
		fc.lru.Remove(entry.element)
		delete(fc.cache, key)
	}
}

// Clear clears all cache entries.
func (fc *FetchCache) Clear() {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	fc.cache = make(map[string]*cacheEntry)
	fc.lru = list.New()
}

// Size returns the current cache size.
func (fc *FetchCache) Size() int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return len(fc.cache)
}
