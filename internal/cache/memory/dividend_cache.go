// Package memory provides an in-memory implementation of the dividend cache
// for tests and the dependency-free light mode.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/sylvaincormier/bittensor-async-api/internal/domain"
)

type entry struct {
	result    domain.DividendResult
	expiresAt time.Time
}

// DividendCache is an in-memory implementation of domain.DividendCache.
// Expiry is enforced at read time: Get never returns an entry whose expiry
// has passed, even though nothing actively sweeps the map.
type DividendCache struct {
	mu   sync.RWMutex
	data map[string]entry
	now  func() time.Time
}

// NewDividendCache creates an empty in-memory dividend cache.
func NewDividendCache() *DividendCache {
	return &DividendCache{
		data: make(map[string]entry),
		now:  time.Now,
	}
}

// NewDividendCacheAt creates a cache using the supplied clock, for
// deterministic expiry tests.
func NewDividendCacheAt(now func() time.Time) *DividendCache {
	return &DividendCache{
		data: make(map[string]entry),
		now:  now,
	}
}

// Get returns the cached result for q, or domain.ErrNotFound on a miss or
// an expired entry. Expired entries are removed lazily.
func (c *DividendCache) Get(_ context.Context, q domain.DividendQuery) (domain.DividendResult, error) {
	key := q.CacheKey()

	c.mu.RLock()
	e, ok := c.data[key]
	c.mu.RUnlock()

	if !ok {
		return domain.DividendResult{}, domain.ErrNotFound
	}
	if !c.now().Before(e.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock: a concurrent Put may have
		// refreshed the entry.
		if cur, ok := c.data[key]; ok && !c.now().Before(cur.expiresAt) {
			delete(c.data, key)
		}
		c.mu.Unlock()
		return domain.DividendResult{}, domain.ErrNotFound
	}

	return e.result, nil
}

// Put stores r under q's key with the given TTL. Last writer wins.
func (c *DividendCache) Put(_ context.Context, q domain.DividendQuery, r domain.DividendResult, ttl time.Duration) error {
	c.mu.Lock()
	c.data[q.CacheKey()] = entry{
		result:    r,
		expiresAt: c.now().Add(ttl),
	}
	c.mu.Unlock()
	return nil
}

// Compile-time interface check.
var _ domain.DividendCache = (*DividendCache)(nil)
