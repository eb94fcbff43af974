package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sylvaincormier/bittensor-async-api/internal/domain"
)

// cacheEntry is the stored form of a cached dividend result. The expiry is
// carried inside the value in addition to the Redis key TTL so that Get can
// enforce freshness at read time even when the server clock and the Redis
// eviction clock disagree.
type cacheEntry struct {
	Result    domain.DividendResult `json:"result"`
	ExpiresAt time.Time             `json:"expires_at"`
}

// DividendCache implements domain.DividendCache using Redis string values
// at key "dividends:{netuid}:{hotkey}". Concurrent Put for the same key is
// last-writer-wins via plain SET.
type DividendCache struct {
	rdb *redis.Client
	now func() time.Time
}

// NewDividendCache creates a DividendCache backed by the given Client.
func NewDividendCache(c *Client) *DividendCache {
	return &DividendCache{rdb: c.Underlying(), now: time.Now}
}

// Get returns the cached result for q, or domain.ErrNotFound when the key
// is absent or the entry has expired. An expired entry is deleted lazily.
func (dc *DividendCache) Get(ctx context.Context, q domain.DividendQuery) (domain.DividendResult, error) {
	raw, err := dc.rdb.Get(ctx, q.CacheKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.DividendResult{}, domain.ErrNotFound
		}
		return domain.DividendResult{}, fmt.Errorf("redis: get dividend %s: %w", q.CacheKey(), err)
	}

	var entry cacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return domain.DividendResult{}, fmt.Errorf("redis: decode dividend %s: %w", q.CacheKey(), err)
	}

	if !dc.now().Before(entry.ExpiresAt) {
		_ = dc.rdb.Del(ctx, q.CacheKey()).Err()
		return domain.DividendResult{}, domain.ErrNotFound
	}

	return entry.Result, nil
}

// Put stores r under q's key with the given TTL, overwriting any previous
// entry.
func (dc *DividendCache) Put(ctx context.Context, q domain.DividendQuery, r domain.DividendResult, ttl time.Duration) error {
	entry := cacheEntry{
		Result:    r,
		ExpiresAt: dc.now().Add(ttl),
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("redis: encode dividend %s: %w", q.CacheKey(), err)
	}
	if err := dc.rdb.Set(ctx, q.CacheKey(), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set dividend %s: %w", q.CacheKey(), err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.DividendCache = (*DividendCache)(nil)
