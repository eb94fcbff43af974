package domain

import "context"

// HistoryStore persists resolved dividend results. Append-only: rows are
// never mutated or deleted by the resolution pipeline (the optional archiver
// prunes rows past the configured retention window).
type HistoryStore interface {
	Append(ctx context.Context, r DividendResult) error
	// List returns history entries most recent first, filtered and bounded
	// by f.
	List(ctx context.Context, f HistoryFilter) ([]HistoryEntry, error)
}

// TradeJobStore is the registry of background trade jobs, keyed by job ID.
// Jobs are created once, updated as they progress, and never deleted.
type TradeJobStore interface {
	Create(ctx context.Context, job TradeJob) error
	Update(ctx context.Context, job TradeJob) error
	GetByID(ctx context.Context, id string) (TradeJob, error)
	ListRecent(ctx context.Context, limit int) ([]TradeJob, error)
	// Claim atomically transitions a pending job to running and returns
	// the claimed job. It returns ErrNotFound (wrapped) when no such job
	// exists and ErrJobNotPending (wrapped) when the job was already
	// claimed or finished, so that at most one worker ever executes a
	// given job even when the queue delivers its ID more than once.
	Claim(ctx context.Context, id string) (TradeJob, error)
}
