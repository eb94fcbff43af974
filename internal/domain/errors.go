package domain

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ErrLedgerUnavailable means both the live and fallback chain queries
	// failed. It is surfaced to the caller as a retryable service error; no
	// cache or history writes happen on this path.
	ErrLedgerUnavailable = errors.New("ledger unavailable")

	// ErrJobNotPending means a claim attempt found the trade job already
	// running or terminal. Duplicate queue deliveries land here and must
	// be dropped without re-submitting the stake action.
	ErrJobNotPending = errors.New("job not pending")

	// ErrSentimentUnavailable means the sentiment source could not produce
	// a score. It only occurs inside trade jobs and is recorded on the job,
	// never returned to an HTTP caller.
	ErrSentimentUnavailable = errors.New("sentiment source unavailable")

	ErrValidation   = errors.New("invalid request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limited")
	ErrContextDone  = errors.New("context cancelled")
)
