package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Work kinds tracked by the ledger.
const (
	KindAgenda     = "agenda"
	KindAttachment = "attachment"
	KindVideo      = "video"
)

// Failure is one unit of work that could not be completed in a run.
type Failure struct {
	FailedAt time.Time
	RunID    string
	Kind     string
	Key      string
	Error    string
	Attempts int
}

// Ledger records processed work and failures so interrupted runs resume
// where they stopped.
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

// OpenLedger opens or creates the ledger database at path.
func OpenLedger(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	// One writer at a time.
	db.SetMaxOpenConns(1)

	l := &Ledger{db: db, now: time.Now}
	if err := l.migrate(); err != nil {
		db.Close()

		return nil, fmt.Errorf("failed to migrate ledger: %w", err)
	}

	return l, nil
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS processed (
		kind TEXT NOT NULL,
		key TEXT NOT NULL,
		processed_at TEXT NOT NULL,
		PRIMARY KEY (kind, key)
	);

	CREATE TABLE IF NOT EXISTS failures (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		key TEXT NOT NULL,
		error TEXT NOT NULL,
		attempts INTEGER NOT NULL,
		failed_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_failures_run ON failures(run_id);
	`

	_, err := l.db.Exec(schema)

	return err
}

// IsProcessed reports whether kind/key completed in any earlier run.
func (l *Ledger) IsProcessed(ctx context.Context, kind, key string) (bool, error) {
	var n int

	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM processed WHERE kind = ? AND key = ?`, kind, key).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to query ledger: %w", err)
	}

	return n > 0, nil
}

// MarkProcessed records kind/key as done.
func (l *Ledger) MarkProcessed(ctx context.Context, kind, key string) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO processed (kind, key, processed_at) VALUES (?, ?, ?)
		ON CONFLICT(kind, key) DO UPDATE SET processed_at = excluded.processed_at
	`, kind, key, l.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to mark %s %s processed: %w", kind, key, err)
	}

	return nil
}

// Forget removes kind/key so the next run processes it again.
func (l *Ledger) Forget(ctx context.Context, kind, key string) error {
	if _, err := l.db.ExecContext(ctx, `DELETE FROM processed WHERE kind = ? AND key = ?`, kind, key); err != nil {
		return fmt.Errorf("failed to forget %s %s: %w", kind, key, err)
	}

	return nil
}

// RecordFailure stores a failed unit of work for the run report.
func (l *Ledger) RecordFailure(ctx context.Context, f Failure) error {
	if f.FailedAt.IsZero() {
		f.FailedAt = l.now()
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO failures (run_id, kind, key, error, attempts, failed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, f.RunID, f.Kind, f.Key, f.Error, f.Attempts, f.FailedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to record failure for %s %s: %w", f.Kind, f.Key, err)
	}

	return nil
}

// Failures lists the failures of a run in the order they were recorded.
func (l *Ledger) Failures(ctx context.Context, runID string) ([]Failure, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT run_id, kind, key, error, attempts, failed_at
		FROM failures WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query failures: %w", err)
	}
	defer rows.Close()

	var failures []Failure

	for rows.Next() {
		var (
			f        Failure
			failedAt string
		)

		if err := rows.Scan(&f.RunID, &f.Kind, &f.Key, &f.Error, &f.Attempts, &failedAt); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}

		f.FailedAt, _ = time.Parse(time.RFC3339Nano, failedAt)
		failures = append(failures, f)
	}

	return failures, rows.Err()
}
