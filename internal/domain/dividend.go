// Package domain defines the core types and interfaces shared across the
// service: dividend queries and results, trade jobs, and the store, cache,
// ledger, and queue contracts their implementations satisfy.
package domain

import (
	"fmt"
	"strconv"
	"time"
)

// Source identifies where a dividend value was obtained.
type Source string

const (
	// SourceLive means the value came from a direct chain query for the
	// requested hotkey.
	SourceLive Source = "live"

	// SourceFallback means the live query failed and the value was obtained
	// for the configured fallback hotkey on the same subnet.
	SourceFallback Source = "fallback"
)

// DividendQuery identifies a (subnet, hotkey) pair to resolve. It is the
// cache key and the history filter key. Immutable once constructed.
type DividendQuery struct {
	NetUID int    `json:"netuid"`
	Hotkey string `json:"hotkey"`
}

// CacheKey returns the canonical string form of the query used as the
// cache key. The format matches "dividends:{netuid}:{hotkey}".
func (q DividendQuery) CacheKey() string {
	return "dividends:" + strconv.Itoa(q.NetUID) + ":" + q.Hotkey
}

// Validate checks that the query identifies a plausible subnet and hotkey.
// It returns ErrValidation (wrapped) when a field is malformed, before any
// I/O is attempted.
func (q DividendQuery) Validate() error {
	if q.NetUID < 0 {
		return fmt.Errorf("%w: netuid must be >= 0, got %d", ErrValidation, q.NetUID)
	}
	if len(q.Hotkey) < 40 || len(q.Hotkey) > 64 {
		return fmt.Errorf("%w: hotkey must be an SS58 address, got %d chars", ErrValidation, len(q.Hotkey))
	}
	return nil
}

// DividendResult is a resolved dividend value for a query. It is created by
// the resolver on every non-cached resolution, written once to the history
// store, and never mutated afterwards.
type DividendResult struct {
	NetUID     int       `json:"netuid"`
	Hotkey     string    `json:"hotkey"`
	Dividend   float64   `json:"dividend_value"`
	ObservedAt time.Time `json:"observed_at"`
	Source     Source    `json:"source"`
}

// Query returns the identity this result was resolved for.
func (r DividendResult) Query() DividendQuery {
	return DividendQuery{NetUID: r.NetUID, Hotkey: r.Hotkey}
}

// HistoryEntry is a persisted DividendResult row.
type HistoryEntry struct {
	ID        int64          `json:"id"`
	Result    DividendResult `json:"result"`
	CreatedAt time.Time      `json:"created_at"`
}

// HistoryFilter restricts a history query. Zero-valued fields are ignored;
// NetUID uses a pointer so subnet 0 remains filterable.
type HistoryFilter struct {
	NetUID *int
	Hotkey string
	Limit  int
}
