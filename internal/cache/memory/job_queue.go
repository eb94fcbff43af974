package memory

import (
	"context"
	"fmt"
)

// queueBuffer bounds pending dispatches so Enqueue never blocks a request
// under normal load.
const queueBuffer = 1024

// JobQueue is an in-process channel-backed job queue for tests and light
// mode.
type JobQueue struct {
	ch chan string
}

// NewJobQueue creates an empty in-memory job queue.
func NewJobQueue() *JobQueue {
	return &JobQueue{ch: make(chan string, queueBuffer)}
}

// Enqueue hands a job ID to the consumers. A full buffer is reported as an
// error rather than blocking the caller.
func (q *JobQueue) Enqueue(ctx context.Context, jobID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case q.ch <- jobID:
		return nil
	default:
		return fmt.Errorf("job queue full (%d pending)", queueBuffer)
	}
}

// Next blocks until a job ID is available or ctx is cancelled.
func (q *JobQueue) Next(ctx context.Context) (string, error) {
	select {
	case id := <-q.ch:
		return id, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
