// Package memory provides in-memory implementations of the domain stores
// for tests and the dependency-free light mode.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sylvaincormier/bittensor-async-api/internal/domain"
)

// HistoryStore is an in-memory implementation of domain.HistoryStore.
type HistoryStore struct {
	mu      sync.RWMutex
	entries []domain.HistoryEntry
	nextID  int64
}

// NewHistoryStore creates an empty in-memory history store.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{nextID: 1}
}

// Append adds a resolved dividend as a new history entry.
func (s *HistoryStore) Append(_ context.Context, r domain.DividendResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, domain.HistoryEntry{
		ID:        s.nextID,
		Result:    r,
		CreatedAt: time.Now().UTC(),
	})
	s.nextID++
	return nil
}

// List returns entries most recent first, filtered and bounded by f.
func (s *HistoryStore) List(_ context.Context, f domain.HistoryFilter) ([]domain.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.HistoryEntry
	for _, e := range s.entries {
		if f.NetUID != nil && e.Result.NetUID != *f.NetUID {
			continue
		}
		if f.Hotkey != "" && e.Result.Hotkey != f.Hotkey {
			continue
		}
		out = append(out, e)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Result.ObservedAt.After(out[j].Result.ObservedAt)
	})

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// Len returns the number of stored entries. Test helper.
func (s *HistoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Compile-time interface check.
var _ domain.HistoryStore = (*HistoryStore)(nil)
