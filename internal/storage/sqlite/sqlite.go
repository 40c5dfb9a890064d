package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/FranksOps/domscout/internal/storage"
	_ "modernc.org/sqlite"
)

// ensure sqliteBackend implements storage.Backend
var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS probe_results (
	seq INTEGER PRIMARY KEY,
	id TEXT NOT NULL,
	domain TEXT NOT NULL,
	status TEXT NOT NULL,
	detail TEXT,
	duration_ms INTEGER NOT NULL,
	checked_at TEXT NOT NULL
);
`

// New creates a new SQLite-backed storage.Backend.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite backend: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite backend: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

// Checkpoint replaces the table contents with results inside one
// transaction. seq records the position in the run.
func (b *sqliteBackend) Checkpoint(ctx context.Context, results []storage.ProbeResult) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite backend: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM probe_results`); err != nil {
		return fmt.Errorf("sqlite backend: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO probe_results (
		seq, id, domain, status, detail, duration_ms, checked_at
	) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("sqlite backend: %w", err)
	}
	defer stmt.Close()

	for i, r := range results {
		_, err := stmt.ExecContext(ctx,
			i,
			r.ID,
			r.Domain,
			r.Status.String(),
			r.Detail,
			r.Duration.Milliseconds(),
			r.CheckedAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("sqlite backend: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite backend: %w", err)
	}
	return nil
}

func (b *sqliteBackend) Load(ctx context.Context) ([]storage.ProbeResult, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT id, domain, status, detail, duration_ms, checked_at FROM probe_results ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite backend: %w", err)
	}
	defer rows.Close()

	results := []storage.ProbeResult{}
	for rows.Next() {
		var (
			r          storage.ProbeResult
			status     string
			detail     sql.NullString
			durationMs int64
			checkedAt  string
		)

		if err := rows.Scan(&r.ID, &r.Domain, &status, &detail, &durationMs, &checkedAt); err != nil {
			return nil, fmt.Errorf("sqlite backend: %w", err)
		}

		if r.Status, err = storage.ParseStatus(status); err != nil {
			return nil, fmt.Errorf("sqlite backend: %w", err)
		}
		r.Detail = detail.String
		r.Duration = time.Duration(durationMs) * time.Millisecond
		r.CheckedAt, _ = time.Parse(time.RFC3339Nano, checkedAt)

		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite backend: %w", err)
	}

	return results, nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
