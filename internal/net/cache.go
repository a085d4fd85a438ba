package net

import (
	"sync"
	"sync/atomic"
)

// Result cache sizing bounds. The cache is sized from the expected playout
// workload: enough entries that a search tree's evaluations stay resident,
// capped so a long game cannot grow memory without bound.
const (
	minCacheEntries = 6_000
	maxCacheEntries = 150_000
)

// CacheSizeForPlayouts returns the cache entry count for an expected
// per-move playout budget.
func CacheSizeForPlayouts(playouts int) int {
	n := 3 * playouts
	if n < minCacheEntries {
		n = minCacheEntries
	}
	if n > maxCacheEntries {
		n = maxCacheEntries
	}
	return n
}

// ResultCache is the shared in-memory cache of evaluation results, keyed by
// position hash. Lookup and Insert are individually atomic; concurrent
// callers may race a probe-then-insert sequence, in which case the first
// inserted result wins and later duplicates are dropped.
type ResultCache struct {
	mu      sync.RWMutex
	entries map[uint64]Result
	order   []uint64 // insertion order for FIFO eviction
	maxSize int

	hits    atomic.Uint64
	lookups atomic.Uint64
}

// NewResultCache creates a cache holding up to maxEntries results.
func NewResultCache(maxEntries int) *ResultCache {
	return &ResultCache{
		entries: make(map[uint64]Result, maxEntries),
		maxSize: maxEntries,
	}
}

// Lookup returns the cached result for hash, if present.
func (c *ResultCache) Lookup(hash uint64) (Result, bool) {
	c.lookups.Add(1)
	c.mu.RLock()
	result, ok := c.entries[hash]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
	}
	return result, ok
}

// Insert stores a result under hash. An existing entry is kept as-is; the
// duplicate produced by a benign evaluation race is identical anyway.
func (c *ResultCache) Insert(hash uint64, result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[hash]; ok {
		return
	}
	if len(c.entries) >= c.maxSize {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[hash] = result
	c.order = append(c.order, hash)
}

// Len returns the number of cached results.
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// HitRate returns the cache hit rate as a percentage.
func (c *ResultCache) HitRate() float64 {
	lookups := c.lookups.Load()
	if lookups == 0 {
		return 0
	}
	return float64(c.hits.Load()) / float64(lookups) * 100
}
