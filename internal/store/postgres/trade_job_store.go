package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sylvaincormier/bittensor-async-api/internal/domain"
)

// TradeJobStore implements domain.TradeJobStore using PostgreSQL.
type TradeJobStore struct {
	pool *pgxpool.Pool
}

// NewTradeJobStore creates a new TradeJobStore backed by the given
// connection pool.
func NewTradeJobStore(pool *pgxpool.Pool) *TradeJobStore {
	return &TradeJobStore{pool: pool}
}

const jobSelectCols = `id, netuid, hotkey, requested_at, status,
	sentiment_score, stake_delta, operation, tx_ref, error, updated_at`

// Create inserts a new trade job row.
func (s *TradeJobStore) Create(ctx context.Context, job domain.TradeJob) error {
	const query = `
		INSERT INTO trade_jobs (
			id, netuid, hotkey, requested_at, status,
			sentiment_score, stake_delta, operation, tx_ref, error, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	if _, err := s.pool.Exec(ctx, query,
		job.ID, job.NetUID, job.Hotkey, job.RequestedAt, string(job.Status),
		job.SentimentScore, job.StakeDelta, nullableOp(job.Operation),
		job.TxRef, job.Error, job.UpdatedAt,
	); err != nil {
		return fmt.Errorf("postgres: create trade job %s: %w", job.ID, err)
	}
	return nil
}

// Update overwrites the mutable fields of an existing job.
func (s *TradeJobStore) Update(ctx context.Context, job domain.TradeJob) error {
	const query = `
		UPDATE trade_jobs SET
			status = $2, sentiment_score = $3, stake_delta = $4,
			operation = $5, tx_ref = $6, error = $7, updated_at = $8
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		job.ID, string(job.Status), job.SentimentScore, job.StakeDelta,
		nullableOp(job.Operation), job.TxRef, job.Error, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update trade job %s: %w", job.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: update trade job %s: %w", job.ID, domain.ErrNotFound)
	}
	return nil
}

// Claim atomically moves a pending job to running. The conditional UPDATE
// guarantees a single winner when concurrent workers receive the same job
// ID; losers get domain.ErrJobNotPending.
func (s *TradeJobStore) Claim(ctx context.Context, id string) (domain.TradeJob, error) {
	query := `
		UPDATE trade_jobs SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
		RETURNING ` + jobSelectCols

	job, err := scanJob(s.pool.QueryRow(ctx, query,
		id, string(domain.JobRunning), string(domain.JobPending),
	))
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.TradeJob{}, fmt.Errorf("postgres: claim trade job %s: %w", id, err)
	}

	// No pending row: distinguish a missing job from an already-claimed one.
	if _, err := s.GetByID(ctx, id); err != nil {
		return domain.TradeJob{}, err
	}
	return domain.TradeJob{}, fmt.Errorf("postgres: claim trade job %s: %w", id, domain.ErrJobNotPending)
}

// GetByID returns the job with the given ID, or domain.ErrNotFound.
func (s *TradeJobStore) GetByID(ctx context.Context, id string) (domain.TradeJob, error) {
	query := `SELECT ` + jobSelectCols + ` FROM trade_jobs WHERE id = $1`

	job, err := scanJob(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TradeJob{}, fmt.Errorf("postgres: get trade job %s: %w", id, domain.ErrNotFound)
		}
		return domain.TradeJob{}, fmt.Errorf("postgres: get trade job %s: %w", id, err)
	}
	return job, nil
}

// ListRecent returns up to limit jobs ordered by request time, newest first.
func (s *TradeJobStore) ListRecent(ctx context.Context, limit int) ([]domain.TradeJob, error) {
	query := `SELECT ` + jobSelectCols + ` FROM trade_jobs ORDER BY requested_at DESC LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trade jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.TradeJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan trade job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// row abstracts pgx.Row and pgx.Rows for scanJob.
type row interface {
	Scan(dest ...any) error
}

func scanJob(r row) (domain.TradeJob, error) {
	var (
		job    domain.TradeJob
		status string
		op     *string
	)
	if err := r.Scan(
		&job.ID, &job.NetUID, &job.Hotkey, &job.RequestedAt, &status,
		&job.SentimentScore, &job.StakeDelta, &op,
		&job.TxRef, &job.Error, &job.UpdatedAt,
	); err != nil {
		return domain.TradeJob{}, err
	}
	job.Status = domain.JobStatus(status)
	if op != nil {
		job.Operation = domain.StakeOp(*op)
	}
	return job, nil
}

// nullableOp maps the zero StakeOp to NULL so pending jobs do not store an
// empty-string operation.
func nullableOp(op domain.StakeOp) *string {
	if op == "" {
		return nil
	}
	s := string(op)
	return &s
}

// Compile-time interface check.
var _ domain.TradeJobStore = (*TradeJobStore)(nil)
