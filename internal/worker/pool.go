// Package worker runs the background trade job consumers.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Executor runs one trade job to a terminal state.
type Executor interface {
	Execute(ctx context.Context, jobID string) error
}

// Queue yields pending job IDs.
type Queue interface {
	Next(ctx context.Context) (string, error)
}

// defaultRetryDelay is how long a worker waits after a queue read error
// before retrying, so a dead backend is not hammered in a tight loop.
const defaultRetryDelay = time.Second

// Pool consumes job IDs from the queue and executes them on a fixed number
// of worker goroutines. A failed or panicking job never takes the pool
// down; other in-flight jobs are unaffected.
type Pool struct {
	queue      Queue
	executor   Executor
	workers    int
	jobTimeout time.Duration
	retryDelay time.Duration
	logger     *slog.Logger
}

// NewPool creates a worker pool. workers must be >= 1; jobTimeout bounds a
// single job execution.
func NewPool(queue Queue, executor Executor, workers int, jobTimeout time.Duration, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		queue:      queue,
		executor:   executor,
		workers:    workers,
		jobTimeout: jobTimeout,
		retryDelay: defaultRetryDelay,
		logger:     logger.With(slog.String("component", "worker")),
	}
}

// Run starts the workers and blocks until ctx is cancelled. Each worker
// loops on the queue; job execution errors are logged, never propagated.
func (p *Pool) Run(ctx context.Context) error {
	p.logger.Info("worker pool starting",
		slog.Int("workers", p.workers),
		slog.Duration("job_timeout", p.jobTimeout),
	)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.workers; i++ {
		worker := i
		g.Go(func() error {
			p.runWorker(ctx, worker)
			return nil
		})
	}

	err := g.Wait()
	p.logger.Info("worker pool stopped")
	return err
}

func (p *Pool) runWorker(ctx context.Context, id int) {
	logger := p.logger.With(slog.Int("worker", id))

	for {
		jobID, err := p.queue.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("worker stopping")
				return
			}
			logger.Warn("queue read failed", slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
				logger.Info("worker stopping")
				return
			case <-time.After(p.retryDelay):
			}
			continue
		}

		p.execute(ctx, logger, jobID)
	}
}

// execute runs one job under the pool's per-job timeout, converting a
// panic into a logged failure so the worker keeps consuming.
func (p *Pool) execute(ctx context.Context, logger *slog.Logger, jobID string) {
	jobCtx, cancel := context.WithTimeout(ctx, p.jobTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("job panicked",
				slog.String("job_id", jobID),
				slog.String("panic", fmt.Sprintf("%v", r)),
			)
		}
	}()

	if err := p.executor.Execute(jobCtx, jobID); err != nil {
		logger.Error("job execution failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}
}
