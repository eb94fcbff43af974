package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sylvaincormier/bittensor-async-api/internal/domain"
)

// HistoryStore implements domain.HistoryStore using PostgreSQL.
type HistoryStore struct {
	pool *pgxpool.Pool
}

// NewHistoryStore creates a new HistoryStore backed by the given connection
// pool.
func NewHistoryStore(pool *pgxpool.Pool) *HistoryStore {
	return &HistoryStore{pool: pool}
}

// Append inserts a resolved dividend as a new history row. Rows are never
// updated afterwards.
func (s *HistoryStore) Append(ctx context.Context, r domain.DividendResult) error {
	const query = `
		INSERT INTO dividend_history (netuid, hotkey, dividend, source, observed_at)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := s.pool.Exec(ctx, query,
		r.NetUID, r.Hotkey, r.Dividend, string(r.Source), r.ObservedAt,
	); err != nil {
		return fmt.Errorf("postgres: append history: %w", err)
	}
	return nil
}

// List returns history entries most recent first, optionally filtered by
// subnet and hotkey, bounded by f.Limit.
func (s *HistoryStore) List(ctx context.Context, f domain.HistoryFilter) ([]domain.HistoryEntry, error) {
	query := `SELECT id, netuid, hotkey, dividend, source, observed_at, created_at
		FROM dividend_history`
	var args []any
	var conds []string

	if f.NetUID != nil {
		args = append(args, *f.NetUID)
		conds = append(conds, fmt.Sprintf("netuid = $%d", len(args)))
	}
	if f.Hotkey != "" {
		args = append(args, f.Hotkey)
		conds = append(conds, fmt.Sprintf("hotkey = $%d", len(args)))
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}

	query += " ORDER BY observed_at DESC"

	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list history: %w", err)
	}
	defer rows.Close()

	entries, err := scanHistoryRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan history: %w", err)
	}
	return entries, nil
}

// ListBefore returns all history entries observed strictly before the given
// cutoff, oldest first. Used by the archiver.
func (s *HistoryStore) ListBefore(ctx context.Context, before time.Time) ([]domain.HistoryEntry, error) {
	const query = `SELECT id, netuid, hotkey, dividend, source, observed_at, created_at
		FROM dividend_history WHERE observed_at < $1 ORDER BY observed_at ASC`

	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list history before: %w", err)
	}
	defer rows.Close()
	return scanHistoryRows(rows)
}

// DeleteBefore deletes all history entries observed before the given cutoff
// and returns the number deleted. Only the archiver calls this, after the
// rows have been written to object storage.
func (s *HistoryStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM dividend_history WHERE observed_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete history before: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanHistoryRows(rows pgx.Rows) ([]domain.HistoryEntry, error) {
	var entries []domain.HistoryEntry
	for rows.Next() {
		var (
			e      domain.HistoryEntry
			source string
		)
		if err := rows.Scan(
			&e.ID, &e.Result.NetUID, &e.Result.Hotkey, &e.Result.Dividend,
			&source, &e.Result.ObservedAt, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		e.Result.Source = domain.Source(source)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Compile-time interface check.
var _ domain.HistoryStore = (*HistoryStore)(nil)
