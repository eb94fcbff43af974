package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sylvaincormier/bittensor-async-api/internal/domain"
)

func nextWithTimeout(t *testing.T, q *JobQueue) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	id, err := q.Next(ctx)
	require.NoError(t, err)
	return id
}

func TestJobQueue_EnqueueNext(t *testing.T) {
	client, cleanup := setupTestClient(t)
	defer cleanup()

	q := NewJobQueue(client, "trade_jobs")
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(ctx, id))
	}

	var got []string
	for i := 0; i < 3; i++ {
		got = append(got, nextWithTimeout(t, q))
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestJobQueue_SingleDeliveryAcrossConsumers(t *testing.T) {
	// Two queue instances on the same stream model two worker processes.
	// Each entry must reach exactly one of them; a duplicate delivery
	// here means the same stake action is submitted twice downstream.
	client, cleanup := setupTestClient(t)
	defer cleanup()

	q1 := NewJobQueue(client, "trade_jobs")
	q2 := NewJobQueue(client, "trade_jobs")
	ctx := context.Background()

	want := []string{"a", "b", "c", "d"}
	for _, id := range want {
		require.NoError(t, q1.Enqueue(ctx, id))
	}

	got := []string{
		nextWithTimeout(t, q1),
		nextWithTimeout(t, q2),
		nextWithTimeout(t, q1),
		nextWithTimeout(t, q2),
	}
	assert.ElementsMatch(t, want, got, "each entry is delivered to exactly one consumer")
}

func TestJobQueue_NewConsumerSkipsDeliveredEntries(t *testing.T) {
	// A restarted worker resumes at the group cursor instead of replaying
	// entries already handed out.
	client, cleanup := setupTestClient(t)
	defer cleanup()

	q1 := NewJobQueue(client, "trade_jobs")
	ctx := context.Background()

	require.NoError(t, q1.Enqueue(ctx, "old"))
	require.Equal(t, "old", nextWithTimeout(t, q1))

	q2 := NewJobQueue(client, "trade_jobs")
	require.NoError(t, q1.Enqueue(ctx, "new"))
	assert.Equal(t, "new", nextWithTimeout(t, q2))
}

func TestJobQueue_NextCancelled(t *testing.T) {
	client, cleanup := setupTestClient(t)
	defer cleanup()

	q := NewJobQueue(client, "trade_jobs")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Next(ctx)
	require.ErrorIs(t, err, domain.ErrContextDone)
}
