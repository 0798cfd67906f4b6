// Package cache implements C5: an in-memory, TTL-bound memoization cache
// for materializations and partitions, plus a persisted snapshot store
// used as a fallback when the event log fails chain verification
// (spec.md §4.5).
//
// Grounded on a production repo's internal/cache-adjacent ephemeral stores
// (map + mutex + expiry) and generalized with golang.org/x/sync/singleflight
// to dedupe concurrent identical requests, the way the pack's erigon-lib
// member uses singleflight-style dedup around expensive state reads.
package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// entry holds a cached value plus its absolute expiration time.
type entry struct {
	value     any
	expiresAt time.Time
}

// PartitionCache is a thread-safe TTL cache keyed by an opaque cache
// identity string (stream hash + cutoff + policy hash, per §4.5).
type PartitionCache struct {
	mu    sync.RWMutex
	items map[string]entry
	group singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64

	now func() time.Time
}

// New returns an empty cache. nowFn defaults to time.Now; tests may
// override it to control expiry deterministically.
func New(nowFn func() time.Time) *PartitionCache {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &PartitionCache{items: make(map[string]entry), now: nowFn}
}

// TryGet returns the cached value for key if present and unexpired.
func (c *PartitionCache) TryGet(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || c.now().After(e.expiresAt) {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return e.value, true
}

// Set stores value under key with the given TTL.
func (c *PartitionCache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = entry{value: value, expiresAt: c.now().Add(ttl)}
}

// EvictExpired removes every entry whose TTL has elapsed.
func (c *PartitionCache) EvictExpired() {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.items {
		if now.After(e.expiresAt) {
			delete(c.items, k)
		}
	}
}

// Clear removes every entry.
func (c *PartitionCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]entry)
}

// InvalidateByTopology removes every entry whose key starts with prefix
// (a stream-identity hash prefix, so retiring/mutating a stream's
// topology can drop only that stream's cached partitions).
func (c *PartitionCache) InvalidateByTopology(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.items {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(c.items, k)
		}
	}
}

// Count returns the number of entries currently stored, expired or not.
func (c *PartitionCache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// HitCount and MissCount are atomic counters sampled independently;
// hit_ratio = hits / (hits + misses) is exact only if both are sampled
// together (§4.5).
func (c *PartitionCache) HitCount() int64  { return c.hits.Load() }
func (c *PartitionCache) MissCount() int64 { return c.misses.Load() }

// GetOrCompute returns the cached value for key, computing it via fn
// exactly once even under concurrent identical requests (singleflight),
// and caching the result under ttl on success.
func (c *PartitionCache) GetOrCompute(key string, ttl time.Duration, fn func() (any, error)) (any, error, bool) {
	if v, ok := c.TryGet(key); ok {
		return v, nil, true
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		if cached, ok := c.TryGet(key); ok {
			return cached, nil
		}
		computed, err := fn()
		if err != nil {
			return nil, err
		}
		c.Set(key, computed, ttl)
		return computed, nil
	})
	return v, err, false
}
