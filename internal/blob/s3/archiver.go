package s3blob

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/sylvaincormier/bittensor-async-api/internal/domain"
)

// HistoryArchiveStore provides the time-ranged access the archiver needs
// on top of the history store. The Postgres store satisfies it.
type HistoryArchiveStore interface {
	// ListBefore returns all history entries observed strictly before the
	// cutoff time.
	ListBefore(ctx context.Context, before time.Time) ([]domain.HistoryEntry, error)
	// DeleteBefore prunes rows observed strictly before the cutoff and
	// returns the number removed. Only called after the uploaded archive
	// has been verified.
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// Archiver periodically snapshots dividend history rows older than the
// retention window to object storage as NDJSON, verifies the upload by
// reading it back, and only then prunes the archived rows.
type Archiver struct {
	store     HistoryArchiveStore
	writer    *Writer
	reader    *Reader
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
}

// NewArchiver creates an Archiver. retention is how long rows stay in the
// primary store; interval is how often the archiver runs.
func NewArchiver(store HistoryArchiveStore, writer *Writer, reader *Reader, retention, interval time.Duration, logger *slog.Logger) *Archiver {
	return &Archiver{
		store:     store,
		writer:    writer,
		reader:    reader,
		retention: retention,
		interval:  interval,
		logger:    logger.With(slog.String("component", "archiver")),
	}
}

// Run executes the archiver on its interval until ctx is cancelled. A
// failed cycle is logged and retried on the next tick.
func (a *Archiver) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("archiver stopped")
			return ctx.Err()
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-a.retention)
			archived, err := a.ArchiveBefore(ctx, cutoff)
			if err != nil {
				a.logger.Error("archive cycle failed", slog.String("error", err.Error()))
				continue
			}
			if archived > 0 {
				a.logger.Info("archive cycle complete",
					slog.Int64("rows", archived),
					slog.Time("cutoff", cutoff),
				)
			}
		}
	}
}

// ArchiveBefore snapshots and prunes all history rows observed before the
// cutoff. It returns the number of rows pruned. A partial failure leaves
// the primary store untouched.
func (a *Archiver) ArchiveBefore(ctx context.Context, before time.Time) (int64, error) {
	entries, err := a.store.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive query: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	buf, err := marshalNDJSON(entries)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive marshal: %w", err)
	}

	path := archivePath(before)
	if int64(len(buf)) > minPartSize {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
	}
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive upload: %w", err)
	}

	if err := a.verify(ctx, path, len(entries)); err != nil {
		return 0, fmt.Errorf("s3blob: archive verify %s: %w", path, err)
	}

	pruned, err := a.store.DeleteBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive prune: %w", err)
	}
	return pruned, nil
}

// verify reads an uploaded archive back and checks the line count matches
// what was written.
func (a *Archiver) verify(ctx context.Context, path string, want int) error {
	body, err := a.reader.Get(ctx, path)
	if err != nil {
		return err
	}
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lines := 0
	for scanner.Scan() {
		if len(bytes.TrimSpace(scanner.Bytes())) > 0 {
			lines++
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read back: %w", err)
	}
	if lines != want {
		return fmt.Errorf("line count mismatch: wrote %d, read %d", want, lines)
	}
	return nil
}

// archivePath builds the object key for an archive batch. Keys carry the
// full cutoff timestamp under a year-month prefix, e.g.
// archive/dividend_history/2025-06/2025-06-15T00-00-00Z.ndjson, so each
// cycle writes a fresh object and never overwrites an earlier batch whose
// rows have already been pruned.
func archivePath(before time.Time) string {
	cutoff := before.UTC()
	return fmt.Sprintf("archive/dividend_history/%s/%s.ndjson",
		cutoff.Format("2006-01"), cutoff.Format("2006-01-02T15-04-05Z"))
}

// marshalNDJSON serialises entries as newline-delimited JSON, one compact
// line per entry.
func marshalNDJSON(entries []domain.HistoryEntry) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, e := range entries {
		if err := enc.Encode(e); err != nil {
			return nil, fmt.Errorf("ndjson encode entry %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
