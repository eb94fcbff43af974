package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sylvaincormier/bittensor-async-api/internal/domain"
)

// TradeJobStore is an in-memory implementation of domain.TradeJobStore.
type TradeJobStore struct {
	mu   sync.RWMutex
	jobs map[string]domain.TradeJob
}

// NewTradeJobStore creates an empty in-memory trade job store.
func NewTradeJobStore() *TradeJobStore {
	return &TradeJobStore{jobs: make(map[string]domain.TradeJob)}
}

// Create stores a new job. The job ID must not already exist.
func (s *TradeJobStore) Create(_ context.Context, job domain.TradeJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; ok {
		return fmt.Errorf("trade job %s already exists", job.ID)
	}
	s.jobs[job.ID] = job
	return nil
}

// Update replaces an existing job record.
func (s *TradeJobStore) Update(_ context.Context, job domain.TradeJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; !ok {
		return fmt.Errorf("update trade job %s: %w", job.ID, domain.ErrNotFound)
	}
	s.jobs[job.ID] = job
	return nil
}

// Claim moves a pending job to running under the store lock, so only one
// caller ever wins a given job.
func (s *TradeJobStore) Claim(_ context.Context, id string) (domain.TradeJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return domain.TradeJob{}, fmt.Errorf("claim trade job %s: %w", id, domain.ErrNotFound)
	}
	if job.Status != domain.JobPending {
		return domain.TradeJob{}, fmt.Errorf("claim trade job %s: %w", id, domain.ErrJobNotPending)
	}
	job.Status = domain.JobRunning
	job.UpdatedAt = time.Now().UTC()
	s.jobs[id] = job
	return job, nil
}

// GetByID returns the job with the given ID.
func (s *TradeJobStore) GetByID(_ context.Context, id string) (domain.TradeJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return domain.TradeJob{}, fmt.Errorf("trade job %s: %w", id, domain.ErrNotFound)
	}
	return job, nil
}

// ListRecent returns jobs ordered by request time, most recent first.
func (s *TradeJobStore) ListRecent(_ context.Context, limit int) ([]domain.TradeJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.TradeJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RequestedAt.After(out[j].RequestedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Compile-time interface check.
var _ domain.TradeJobStore = (*TradeJobStore)(nil)
