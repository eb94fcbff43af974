package domain

import "time"

// JobStatus is the lifecycle state of a TradeJob. Succeeded and failed are
// terminal; a job never leaves a terminal state.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// Terminal reports whether s is a terminal job state.
func (s JobStatus) Terminal() bool {
	return s == JobSucceeded || s == JobFailed
}

// StakeOp identifies the ledger action a trade job performed.
type StakeOp string

const (
	OpStake   StakeOp = "stake"
	OpUnstake StakeOp = "unstake"
	// OpNone means the sentiment was neutral and no ledger action was
	// submitted.
	OpNone StakeOp = "none"
)

// TradeJob is a background stake/unstake operation dispatched by the
// resolver and executed by the sentiment trader. Created in the pending
// state; owned and mutated exclusively by the trader afterwards. Jobs are
// never deleted, only appended and updated in the registry.
type TradeJob struct {
	ID          string    `json:"job_id"`
	NetUID      int       `json:"netuid"`
	Hotkey      string    `json:"hotkey"`
	RequestedAt time.Time `json:"requested_at"`
	Status      JobStatus `json:"status"`

	// Outcome fields, populated when the job reaches a terminal state.
	SentimentScore *float64 `json:"sentiment_score,omitempty"`
	StakeDelta     *float64 `json:"stake_delta,omitempty"`
	Operation      StakeOp  `json:"operation,omitempty"`
	TxRef          string   `json:"tx_ref,omitempty"`
	Error          string   `json:"error,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}
