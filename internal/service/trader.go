package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sylvaincormier/bittensor-async-api/internal/domain"
)

// defaultStakeCoefficient converts a sentiment score into a stake delta in
// TAO (stake_delta = coefficient * score).
var defaultStakeCoefficient = decimal.NewFromFloat(0.01)

// TraderMetrics records trade job outcomes.
type TraderMetrics interface {
	JobFinished(status domain.JobStatus, op domain.StakeOp)
}

// Notifier receives trade lifecycle events. Implemented by the notify
// package.
type Notifier interface {
	TradeExecuted(ctx context.Context, job domain.TradeJob)
	TradeFailed(ctx context.Context, job domain.TradeJob)
}

// Trader executes dispatched trade jobs: it obtains a sentiment score for
// the job's subnet, sizes a stake delta from it, and submits the matching
// ledger action. Every execution drives the job to a terminal state.
type Trader struct {
	jobs      domain.TradeJobStore
	sentiment domain.SentimentSource
	ledger    domain.Ledger
	metrics   TraderMetrics
	notifier  Notifier
	logger    *slog.Logger

	coefficient decimal.Decimal

	now func() time.Time
}

// NewTrader creates a Trader. notifier may be nil.
func NewTrader(
	jobs domain.TradeJobStore,
	sentiment domain.SentimentSource,
	ledger domain.Ledger,
	metrics TraderMetrics,
	notifier Notifier,
	logger *slog.Logger,
) *Trader {
	if metrics == nil {
		metrics = NopTraderMetrics{}
	}
	return &Trader{
		jobs:      jobs,
		sentiment: sentiment,
		ledger:    ledger,
		metrics:   metrics,
		notifier:  notifier,
		logger:    logger.With(slog.String("component", "trader")),

		coefficient: defaultStakeCoefficient,

		now: time.Now,
	}
}

// SetStakeCoefficient overrides the sentiment-to-TAO conversion factor.
// Non-positive values are ignored. Call before the trader starts executing
// jobs.
func (t *Trader) SetStakeCoefficient(c float64) {
	if c > 0 {
		t.coefficient = decimal.NewFromFloat(c)
	}
}

// Execute runs the job with the given ID to a terminal state. Failures are
// recorded on the job and never propagated to the original caller; the
// returned error only reports registry problems that prevented recording
// the outcome.
func (t *Trader) Execute(ctx context.Context, jobID string) error {
	// Claim is the only gate against duplicate queue deliveries: the store
	// transitions pending to running atomically, so a second delivery of
	// the same ID loses the claim instead of re-submitting the stake.
	job, err := t.jobs.Claim(ctx, jobID)
	if errors.Is(err, domain.ErrJobNotPending) {
		t.logger.WarnContext(ctx, "job already claimed or finished, skipping",
			slog.String("job_id", jobID),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("trader: claim job %q: %w", jobID, err)
	}

	score, err := t.sentiment.Score(ctx, t.topic(job))
	if err != nil {
		return t.fail(ctx, job, fmt.Errorf("sentiment score: %w", err))
	}
	job.SentimentScore = &score

	delta := t.coefficient.Mul(decimal.NewFromFloat(score))
	deltaF, _ := delta.Float64()
	job.StakeDelta = &deltaF

	switch {
	case delta.Sign() > 0:
		job.Operation = domain.OpStake
		amount, _ := delta.Float64()
		txRef, err := t.ledger.AddStake(ctx, job.NetUID, job.Hotkey, amount)
		if err != nil {
			return t.fail(ctx, job, fmt.Errorf("add stake %v: %w", amount, err))
		}
		job.TxRef = txRef
	case delta.Sign() < 0:
		job.Operation = domain.OpUnstake
		amount, _ := delta.Abs().Float64()
		txRef, err := t.ledger.RemoveStake(ctx, job.NetUID, job.Hotkey, amount)
		if err != nil {
			return t.fail(ctx, job, fmt.Errorf("remove stake %v: %w", amount, err))
		}
		job.TxRef = txRef
	default:
		// Neutral sentiment: no ledger action, still a success.
		job.Operation = domain.OpNone
		job.TxRef = ""
	}

	job.Status = domain.JobSucceeded
	job.UpdatedAt = t.now().UTC()
	if err := t.jobs.Update(ctx, job); err != nil {
		return fmt.Errorf("trader: record job %q success: %w", jobID, err)
	}

	t.metrics.JobFinished(job.Status, job.Operation)
	t.logger.InfoContext(ctx, "trade job succeeded",
		slog.String("job_id", job.ID),
		slog.Float64("score", score),
		slog.Float64("stake_delta", deltaF),
		slog.String("operation", string(job.Operation)),
		slog.String("tx_ref", job.TxRef),
	)
	if t.notifier != nil {
		t.notifier.TradeExecuted(ctx, job)
	}
	return nil
}

// fail records a terminal failure on the job. The cause stays on the job
// record; only registry errors propagate.
func (t *Trader) fail(ctx context.Context, job domain.TradeJob, cause error) error {
	job.Status = domain.JobFailed
	job.Error = cause.Error()
	job.UpdatedAt = t.now().UTC()

	if err := t.jobs.Update(ctx, job); err != nil {
		return fmt.Errorf("trader: record job %q failure (%v): %w", job.ID, cause, err)
	}

	t.metrics.JobFinished(job.Status, job.Operation)
	t.logger.ErrorContext(ctx, "trade job failed",
		slog.String("job_id", job.ID),
		slog.String("error", cause.Error()),
	)
	if t.notifier != nil {
		t.notifier.TradeFailed(ctx, job)
	}
	return nil
}

// topic builds the sentiment search topic for a job's subnet.
func (t *Trader) topic(job domain.TradeJob) string {
	return fmt.Sprintf("Bittensor netuid %d", job.NetUID)
}
