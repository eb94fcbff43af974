package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sylvaincormier/bittensor-async-api/internal/domain"
)

// streamMaxLen is the approximate maximum length for the job stream,
// enforced via XADD MAXLEN ~. Jobs themselves live in the registry; the
// stream only carries IDs, so trimming old entries is safe.
const streamMaxLen int64 = 10000

// blockInterval bounds each blocking XREADGROUP so Next can observe
// context cancellation between reads.
const blockInterval = 2 * time.Second

// JobQueue implements domain.JobQueue using a Redis stream with a consumer
// group. Enqueue appends the job ID with XADD; Next reads with a blocking
// XREADGROUP from the shared group, so each entry is delivered to exactly
// one consumer across all worker goroutines and processes, and restarting
// workers resume at the group's cursor instead of replaying the stream.
type JobQueue struct {
	rdb      *redis.Client
	stream   string
	group    string
	consumer string

	mu         sync.Mutex
	groupReady bool
}

// NewJobQueue creates a JobQueue on the given stream name. All queues for
// the same stream share one consumer group; each JobQueue instance gets a
// unique consumer name.
func NewJobQueue(c *Client, stream string) *JobQueue {
	return &JobQueue{
		rdb:      c.Underlying(),
		stream:   stream,
		group:    stream + ":workers",
		consumer: "consumer-" + uuid.NewString(),
	}
}

// ensureGroup creates the consumer group (and the stream) on first use. An
// already existing group is not an error; a failed attempt is retried on
// the next call.
func (q *JobQueue) ensureGroup(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.groupReady {
		return nil
	}
	err := q.rdb.XGroupCreateMkStream(ctx, q.stream, q.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("redis: create consumer group %s: %w", q.group, err)
	}
	q.groupReady = true
	return nil
}

// Enqueue appends jobID to the stream. It does not wait for a consumer.
func (q *JobQueue) Enqueue(ctx context.Context, jobID string) error {
	args := &redis.XAddArgs{
		Stream: q.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"job_id": jobID,
		},
	}
	if err := q.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis: enqueue job %s: %w", jobID, err)
	}
	return nil
}

// Next blocks until a job ID is available or ctx is cancelled. Entries are
// acknowledged on receipt; the job registry's claim step owns dedupe from
// here on.
func (q *JobQueue) Next(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("redis: job queue next: %w", domain.ErrContextDone)
		}
		if err := q.ensureGroup(ctx); err != nil {
			return "", err
		}

		args := &redis.XReadGroupArgs{
			Group:    q.group,
			Consumer: q.consumer,
			Streams:  []string{q.stream, ">"},
			Count:    1,
			Block:    blockInterval,
		}
		results, err := q.rdb.XReadGroup(ctx, args).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue // block timed out, re-check context
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return "", fmt.Errorf("redis: job queue next: %w", domain.ErrContextDone)
			}
			return "", fmt.Errorf("redis: job queue next: %w", err)
		}

		for _, s := range results {
			for _, msg := range s.Messages {
				if err := q.rdb.XAck(ctx, q.stream, q.group, msg.ID).Err(); err != nil {
					return "", fmt.Errorf("redis: ack job entry %s: %w", msg.ID, err)
				}
				id, ok := msg.Values["job_id"].(string)
				if !ok || id == "" {
					continue
				}
				return id, nil
			}
		}
	}
}

// Compile-time interface check.
var _ domain.JobQueue = (*JobQueue)(nil)
