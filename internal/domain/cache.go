package domain

import (
	"context"
	"time"
)

// DividendCache is a short-TTL cache of resolved dividend results keyed by
// (netuid, hotkey). Get returns ErrNotFound on a miss; an entry whose
// expiry has passed is a miss even if the backend has not evicted it yet.
// Concurrent Put for the same key is last-writer-wins. Implementations must
// not perform any I/O beyond the store itself.
type DividendCache interface {
	Get(ctx context.Context, q DividendQuery) (DividendResult, error)
	Put(ctx context.Context, q DividendQuery, r DividendResult, ttl time.Duration) error
}

// RateLimiter provides distributed request rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
