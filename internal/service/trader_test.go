package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sylvaincormier/bittensor-async-api/internal/domain"
	storemem "github.com/sylvaincormier/bittensor-async-api/internal/store/memory"
)

// mockSentiment serves a fixed score or error.
type mockSentiment struct {
	score float64
	err   error
	calls int
}

func (m *mockSentiment) Score(context.Context, string) (float64, error) {
	m.calls++
	if m.err != nil {
		return 0, m.err
	}
	return m.score, nil
}

type traderFixture struct {
	trader    *Trader
	jobs      *storemem.TradeJobStore
	ledger    *mockLedger
	sentiment *mockSentiment
}

func newTraderFixture(t *testing.T, sentiment *mockSentiment) *traderFixture {
	t.Helper()

	jobs := storemem.NewTradeJobStore()
	ledger := newMockLedger()
	trader := NewTrader(
		jobs, sentiment, ledger,
		nil, nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return &traderFixture{trader: trader, jobs: jobs, ledger: ledger, sentiment: sentiment}
}

func pendingJob(t *testing.T, jobs *storemem.TradeJobStore) domain.TradeJob {
	t.Helper()

	job := domain.TradeJob{
		ID:          "job-1",
		NetUID:      18,
		Hotkey:      testHotkey,
		RequestedAt: time.Now().UTC(),
		Status:      domain.JobPending,
	}
	require.NoError(t, jobs.Create(context.Background(), job))
	return job
}

func TestTrader_PositiveScoreStakes(t *testing.T) {
	f := newTraderFixture(t, &mockSentiment{score: 5.0})
	pendingJob(t, f.jobs)

	require.NoError(t, f.trader.Execute(context.Background(), "job-1"))

	job, err := f.jobs.GetByID(context.Background(), "job-1")
	require.NoError(t, err)
	require.Equal(t, domain.JobSucceeded, job.Status)
	require.Equal(t, domain.OpStake, job.Operation)
	require.NotNil(t, job.StakeDelta)
	require.Equal(t, 0.05, *job.StakeDelta)
	require.Equal(t, "0xstake", job.TxRef)

	require.Len(t, f.ledger.stakeCalls, 1)
	require.Equal(t, 0.05, f.ledger.stakeCalls[0].amount)
	require.Equal(t, 18, f.ledger.stakeCalls[0].netuid)
	require.Empty(t, f.ledger.unstakeCalls)
}

func TestTrader_NegativeScoreUnstakes(t *testing.T) {
	f := newTraderFixture(t, &mockSentiment{score: -3.0})
	pendingJob(t, f.jobs)

	require.NoError(t, f.trader.Execute(context.Background(), "job-1"))

	job, err := f.jobs.GetByID(context.Background(), "job-1")
	require.NoError(t, err)
	require.Equal(t, domain.JobSucceeded, job.Status)
	require.Equal(t, domain.OpUnstake, job.Operation)
	require.NotNil(t, job.StakeDelta)
	require.Equal(t, -0.03, *job.StakeDelta)
	require.Equal(t, "0xunstake", job.TxRef)

	require.Len(t, f.ledger.unstakeCalls, 1)
	require.Equal(t, 0.03, f.ledger.unstakeCalls[0].amount, "unstake magnitude is |delta|")
	require.Empty(t, f.ledger.stakeCalls)
}

func TestTrader_NeutralScoreSubmitsNothing(t *testing.T) {
	f := newTraderFixture(t, &mockSentiment{score: 0})
	pendingJob(t, f.jobs)

	require.NoError(t, f.trader.Execute(context.Background(), "job-1"))

	job, err := f.jobs.GetByID(context.Background(), "job-1")
	require.NoError(t, err)
	require.Equal(t, domain.JobSucceeded, job.Status, "neutral sentiment still succeeds")
	require.Equal(t, domain.OpNone, job.Operation)
	require.Empty(t, job.TxRef)
	require.Empty(t, f.ledger.stakeCalls)
	require.Empty(t, f.ledger.unstakeCalls)
}

func TestTrader_SentimentFailureIsTerminal(t *testing.T) {
	f := newTraderFixture(t, &mockSentiment{err: domain.ErrSentimentUnavailable})
	pendingJob(t, f.jobs)

	require.NoError(t, f.trader.Execute(context.Background(), "job-1"), "job failures are recorded, not returned")

	job, err := f.jobs.GetByID(context.Background(), "job-1")
	require.NoError(t, err)
	require.Equal(t, domain.JobFailed, job.Status)
	require.Contains(t, job.Error, "sentiment score")
	require.Empty(t, f.ledger.stakeCalls)
}

func TestTrader_LedgerFailureIsTerminal(t *testing.T) {
	f := newTraderFixture(t, &mockSentiment{score: 2.0})
	f.ledger.stakeErr = errors.New("extrinsic rejected")
	pendingJob(t, f.jobs)

	require.NoError(t, f.trader.Execute(context.Background(), "job-1"))

	job, err := f.jobs.GetByID(context.Background(), "job-1")
	require.NoError(t, err)
	require.Equal(t, domain.JobFailed, job.Status)
	require.Contains(t, job.Error, "add stake")
	require.NotNil(t, job.SentimentScore)
	require.Equal(t, 2.0, *job.SentimentScore)
}

func TestTrader_TerminalJobNotReExecuted(t *testing.T) {
	f := newTraderFixture(t, &mockSentiment{score: 5.0})
	pendingJob(t, f.jobs)

	require.NoError(t, f.trader.Execute(context.Background(), "job-1"))
	require.NoError(t, f.trader.Execute(context.Background(), "job-1"))

	require.Equal(t, 1, f.sentiment.calls, "terminal jobs must not run again")
	require.Len(t, f.ledger.stakeCalls, 1)
}

func TestTrader_RunningJobNotExecutedTwice(t *testing.T) {
	// A redelivered job ID whose job is already claimed by another worker
	// must be dropped without a sentiment call or a stake submission.
	f := newTraderFixture(t, &mockSentiment{score: 5.0})
	pendingJob(t, f.jobs)

	_, err := f.jobs.Claim(context.Background(), "job-1")
	require.NoError(t, err)

	require.NoError(t, f.trader.Execute(context.Background(), "job-1"))

	require.Equal(t, 0, f.sentiment.calls)
	require.Empty(t, f.ledger.stakeCalls)
	require.Empty(t, f.ledger.unstakeCalls)
}

func TestTrader_MissingJob(t *testing.T) {
	f := newTraderFixture(t, &mockSentiment{score: 1.0})

	err := f.trader.Execute(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
