package retrieval

import (
	"sync"
	"time"
)

// Cache memoizes fetched results keyed by (call kind, symbol, parameters)
// until they expire. Implementations own their TTL policy.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
	Expire()
}

type cacheEntry struct {
	value       any
	retrievedAt time.Time
}

// MemoryCache is an in-process TTL cache. Entries carry their own retrieval
// timestamp, so no cross-run coordination is needed.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

// NewMemoryCache creates a cache whose entries expire after ttl.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return NewMemoryCacheWithClock(ttl, time.Now)
}

// NewMemoryCacheWithClock injects the clock, letting tests drive expiry
// deterministically.
func NewMemoryCacheWithClock(ttl time.Duration, now func() time.Time) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the cached value for key unless it has expired.
func (c *MemoryCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.retrievedAt) > c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key, stamped with the current time.
func (c *MemoryCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, retrievedAt: c.now()}
}

// Expire sweeps out all entries past their TTL.
func (c *MemoryCache) Expire() {
	c.mu.Lock()
	defer c.mu.Unlock()
	cutoff := c.now().Add(-c.ttl)
	for k, e := range c.entries {
		if e.retrievedAt.Before(cutoff) {
			delete(c.entries, k)
		}
	}
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
