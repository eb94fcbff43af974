package domain

import "context"

// JobQueue hands pending trade job IDs from the resolver to the worker
// pool. Enqueue must not block on a consumer; dispatch is fire-and-forget
// from the resolver's perspective. Next blocks until a job ID is available
// or the context is cancelled. No ordering is guaranteed between jobs
// dispatched concurrently for the same account.
type JobQueue interface {
	Enqueue(ctx context.Context, jobID string) error
	Next(ctx context.Context) (string, error)
}
