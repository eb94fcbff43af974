// Package service implements the request-resolution pipeline and the
// background sentiment trader.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sylvaincormier/bittensor-async-api/internal/domain"
)

// ResolverMetrics records resolver outcomes. Implemented by the
// observability package; a nil-safe no-op is used in tests.
// LedgerNotifier receives an operator alert when both ledger attempts of a
// resolution fail. Implemented by the notify package.
type LedgerNotifier interface {
	LedgerUnavailable(ctx context.Context, netuid int, hotkey string, err error)
}

type ResolverMetrics interface {
	CacheHit()
	CacheMiss()
	LedgerResolved(source domain.Source)
	LedgerFailed()
}

// Resolution is the public outcome of one dividend resolution.
type Resolution struct {
	Result         domain.DividendResult `json:"result"`
	Cached         bool                  `json:"cached"`
	TradeTriggered bool                  `json:"trade_triggered"`
	JobID          string                `json:"job_id,omitempty"`
}

// DividendService orchestrates cache lookup, ledger resolution with
// fallback, persistence, and trade job dispatch.
type DividendService struct {
	cache    domain.DividendCache
	ledger   domain.Ledger
	history  domain.HistoryStore
	jobs     domain.TradeJobStore
	queue    domain.JobQueue
	metrics  ResolverMetrics
	notifier LedgerNotifier
	logger   *slog.Logger

	cacheTTL       time.Duration
	ledgerTimeout  time.Duration
	fallbackHotkey string

	// Injectable for deterministic tests.
	now   func() time.Time
	newID func() string
}

// NewDividendService creates a DividendService with all required
// dependencies. cacheTTL bounds cached result freshness; ledgerTimeout
// bounds each individual ledger attempt; fallbackHotkey is queried when
// the live attempt fails.
func NewDividendService(
	cache domain.DividendCache,
	ledger domain.Ledger,
	history domain.HistoryStore,
	jobs domain.TradeJobStore,
	queue domain.JobQueue,
	metrics ResolverMetrics,
	logger *slog.Logger,
	cacheTTL time.Duration,
	ledgerTimeout time.Duration,
	fallbackHotkey string,
) *DividendService {
	if metrics == nil {
		metrics = NopResolverMetrics{}
	}
	return &DividendService{
		cache:          cache,
		ledger:         ledger,
		history:        history,
		jobs:           jobs,
		queue:          queue,
		metrics:        metrics,
		logger:         logger.With(slog.String("component", "resolver")),
		cacheTTL:       cacheTTL,
		ledgerTimeout:  ledgerTimeout,
		fallbackHotkey: fallbackHotkey,
		now:            time.Now,
		newID:          uuid.NewString,
	}
}

// SetLedgerNotifier installs an operator alert hook fired when a
// resolution exhausts both ledger attempts. May be left unset.
func (s *DividendService) SetLedgerNotifier(n LedgerNotifier) {
	s.notifier = n
}

// Resolve runs one dividend resolution for q. On a cache hit the stored
// result is returned as-is and no trade is dispatched even when trade is
// true; repeated reads inside the TTL window must not stack stake actions.
// On a miss the ledger is consulted (live, then fallback), the result is
// cached and appended to history, and, when trade is true, a TradeJob is
// created and enqueued before the call returns.
func (s *DividendService) Resolve(ctx context.Context, q domain.DividendQuery, trade bool) (Resolution, error) {
	if err := q.Validate(); err != nil {
		return Resolution{}, fmt.Errorf("resolver: %w", err)
	}

	cached, err := s.cache.Get(ctx, q)
	switch {
	case err == nil:
		s.metrics.CacheHit()
		return Resolution{Result: cached, Cached: true}, nil
	case errors.Is(err, domain.ErrNotFound):
		s.metrics.CacheMiss()
	default:
		// A broken cache degrades to a miss; the ledger still answers.
		s.metrics.CacheMiss()
		s.logger.WarnContext(ctx, "cache get failed, treating as miss",
			slog.String("key", q.CacheKey()),
			slog.String("error", err.Error()),
		)
	}

	result, err := s.resolveLedger(ctx, q)
	if err != nil {
		s.metrics.LedgerFailed()
		return Resolution{}, err
	}
	s.metrics.LedgerResolved(result.Source)

	if err := s.cache.Put(ctx, q, result, s.cacheTTL); err != nil {
		s.logger.WarnContext(ctx, "cache put failed",
			slog.String("key", q.CacheKey()),
			slog.String("error", err.Error()),
		)
	}
	if err := s.history.Append(ctx, result); err != nil {
		s.logger.WarnContext(ctx, "history append failed",
			slog.String("key", q.CacheKey()),
			slog.String("error", err.Error()),
		)
	}

	res := Resolution{Result: result}
	if trade {
		jobID, err := s.dispatchTrade(ctx, q)
		if err != nil {
			// The caller asked for a trade and is owed a job handle;
			// a dispatch failure must not be swallowed into a response
			// that looks like the trade was simply not requested.
			s.logger.ErrorContext(ctx, "trade dispatch failed",
				slog.String("key", q.CacheKey()),
				slog.String("error", err.Error()),
			)
			return Resolution{}, fmt.Errorf("resolver: dispatch trade: %w", err)
		}
		res.TradeTriggered = true
		res.JobID = jobID
	}
	return res, nil
}

// resolveLedger attempts the live query, then the configured fallback
// hotkey on the same subnet. Each attempt is bounded by the ledger
// timeout. Both failing yields ErrLedgerUnavailable; no partial data is
// ever returned.
func (s *DividendService) resolveLedger(ctx context.Context, q domain.DividendQuery) (domain.DividendResult, error) {
	value, liveErr := s.queryWithTimeout(ctx, q.NetUID, q.Hotkey)
	if liveErr == nil {
		return domain.DividendResult{
			NetUID:     q.NetUID,
			Hotkey:     q.Hotkey,
			Dividend:   value,
			ObservedAt: s.now().UTC(),
			Source:     domain.SourceLive,
		}, nil
	}

	s.logger.WarnContext(ctx, "live ledger query failed, trying fallback",
		slog.Int("netuid", q.NetUID),
		slog.String("hotkey", q.Hotkey),
		slog.String("error", liveErr.Error()),
	)

	if s.fallbackHotkey == "" || s.fallbackHotkey == q.Hotkey {
		err := fmt.Errorf("resolver: live query failed and no distinct fallback configured: %w: %w", domain.ErrLedgerUnavailable, liveErr)
		s.notifyLedgerDown(ctx, q, err)
		return domain.DividendResult{}, err
	}

	value, fallbackErr := s.queryWithTimeout(ctx, q.NetUID, s.fallbackHotkey)
	if fallbackErr != nil {
		err := fmt.Errorf("resolver: live and fallback queries failed: %w: live: %w, fallback: %w", domain.ErrLedgerUnavailable, liveErr, fallbackErr)
		s.notifyLedgerDown(ctx, q, err)
		return domain.DividendResult{}, err
	}

	return domain.DividendResult{
		NetUID:     q.NetUID,
		Hotkey:     q.Hotkey,
		Dividend:   value,
		ObservedAt: s.now().UTC(),
		Source:     domain.SourceFallback,
	}, nil
}

func (s *DividendService) notifyLedgerDown(ctx context.Context, q domain.DividendQuery, err error) {
	if s.notifier != nil {
		s.notifier.LedgerUnavailable(ctx, q.NetUID, q.Hotkey, err)
	}
}

func (s *DividendService) queryWithTimeout(ctx context.Context, netuid int, hotkey string) (float64, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, s.ledgerTimeout)
	defer cancel()
	return s.ledger.TaoDividends(attemptCtx, netuid, hotkey)
}

// dispatchTrade creates a pending TradeJob and hands it to the worker pool
// via the queue. The caller gets the job ID back immediately; execution
// happens asynchronously.
func (s *DividendService) dispatchTrade(ctx context.Context, q domain.DividendQuery) (string, error) {
	job := domain.TradeJob{
		ID:          s.newID(),
		NetUID:      q.NetUID,
		Hotkey:      q.Hotkey,
		RequestedAt: s.now().UTC(),
		Status:      domain.JobPending,
		UpdatedAt:   s.now().UTC(),
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		return "", fmt.Errorf("create trade job: %w", err)
	}
	if err := s.queue.Enqueue(ctx, job.ID); err != nil {
		return "", fmt.Errorf("enqueue trade job %s: %w", job.ID, err)
	}

	s.logger.InfoContext(ctx, "trade job dispatched",
		slog.String("job_id", job.ID),
		slog.Int("netuid", q.NetUID),
		slog.String("hotkey", q.Hotkey),
	)
	return job.ID, nil
}

// History returns persisted resolutions matching f.
func (s *DividendService) History(ctx context.Context, f domain.HistoryFilter) ([]domain.HistoryEntry, error) {
	entries, err := s.history.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("resolver: list history: %w", err)
	}
	return entries, nil
}

// Job returns the trade job with the given ID.
func (s *DividendService) Job(ctx context.Context, id string) (domain.TradeJob, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return domain.TradeJob{}, fmt.Errorf("resolver: get job %q: %w", id, err)
	}
	return job, nil
}
