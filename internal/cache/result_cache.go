package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/salesboard/backend/internal/metrics"
	"github.com/salesboard/backend/internal/types"
)

// KeyBucketSeconds is the coarse time bucket mixed into cache keys.
// Bursts of near-simultaneous requests land on the same key, so they
// collapse onto one upstream fetch in practice even though misses are
// not locked.
const KeyBucketSeconds = 10

// ResultCache memoizes dashboard payloads for a short TTL. It is an
// injected object owned by the service instance, not a process-wide
// singleton. Entries expire purely by TTL elapsed since write; there
// is no explicit invalidation.
//
// Concurrent callers missing on the same key each invoke the producer;
// single-flight is deliberately not provided. The time-bucketed key
// keeps that window narrow.
type ResultCache struct {
	ttl     time.Duration
	entries map[string]entry
	mu      sync.RWMutex
}

type entry struct {
	payload *types.DashboardPayload
	written time.Time
}

// NewResultCache creates a new result cache with the given TTL
func NewResultCache(ttl time.Duration) *ResultCache {
	return &ResultCache{
		ttl:     ttl,
		entries: make(map[string]entry),
	}
}

// Key builds a cache key from the query window plus the coarse time
// bucket of the reference instant.
func Key(kind string, days int, now time.Time) string {
	return fmt.Sprintf("%s|%d|%d", kind, days, now.Unix()/KeyBucketSeconds)
}

// GetOrCompute returns the cached payload for key, or invokes producer
// and caches a deep copy of its result. Every hit within the TTL
// returns the same stored pointer, so callers must treat the payload
// as read-only.
func (c *ResultCache) GetOrCompute(key string, producer func() *types.DashboardPayload) *types.DashboardPayload {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && time.Since(e.written) < c.ttl {
		metrics.Get().RecordCacheHit()
		return e.payload
	}

	metrics.Get().RecordCacheMiss()
	stored := producer().Clone()

	c.mu.Lock()
	c.entries[key] = entry{payload: stored, written: time.Now()}
	c.mu.Unlock()

	return stored
}

// Sweep drops expired entries and returns how many were removed.
// Called opportunistically by the refresher so stale window keys do
// not accumulate.
func (c *ResultCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if time.Since(e.written) >= c.ttl {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Size returns the current number of cached entries
func (c *ResultCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
