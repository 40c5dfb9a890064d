package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/FranksOps/domscout/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool  *pgxpool.Pool
	table string
}

const schema = `
CREATE TABLE IF NOT EXISTS %s (
	seq INTEGER PRIMARY KEY,
	id TEXT NOT NULL,
	domain TEXT NOT NULL,
	status TEXT NOT NULL,
	detail TEXT NOT NULL DEFAULT '',
	duration_ms BIGINT NOT NULL,
	checked_at TIMESTAMPTZ NOT NULL
);
`

var columns = []string{"seq", "id", "domain", "status", "detail", "duration_ms", "checked_at"}

// New creates a new Postgres-backed storage.Backend. Results live in
// table, which is created when missing.
func New(ctx context.Context, dsn, table string) (storage.Backend, error) {
	if table == "" {
		table = "probe_results"
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres backend: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres backend: %w", err)
	}

	ident := pgx.Identifier{table}.Sanitize()
	if _, err := pool.Exec(ctx, fmt.Sprintf(schema, ident)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres backend: %w", err)
	}

	return &postgresBackend{pool: pool, table: table}, nil
}

// Checkpoint swaps the table contents for results in one transaction,
// streaming the rows with COPY.
func (b *postgresBackend) Checkpoint(ctx context.Context, results []storage.ProbeResult) error {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres backend: %w", err)
	}
	defer tx.Rollback(ctx)

	ident := pgx.Identifier{b.table}
	if _, err := tx.Exec(ctx, "DELETE FROM "+ident.Sanitize()); err != nil {
		return fmt.Errorf("postgres backend: %w", err)
	}

	rows := pgx.CopyFromSlice(len(results), func(i int) ([]any, error) {
		r := results[i]
		return []any{
			int32(i),
			r.ID,
			r.Domain,
			r.Status.String(),
			r.Detail,
			r.Duration.Milliseconds(),
			r.CheckedAt.UTC(),
		}, nil
	})
	if _, err := tx.CopyFrom(ctx, ident, columns, rows); err != nil {
		return fmt.Errorf("postgres backend: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres backend: %w", err)
	}
	return nil
}

func (b *postgresBackend) Load(ctx context.Context) ([]storage.ProbeResult, error) {
	query := fmt.Sprintf(
		`SELECT id, domain, status, detail, duration_ms, checked_at FROM %s ORDER BY seq ASC`,
		pgx.Identifier{b.table}.Sanitize(),
	)

	rows, err := b.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres backend: %w", err)
	}
	defer rows.Close()

	results := []storage.ProbeResult{}
	for rows.Next() {
		var (
			r          storage.ProbeResult
			status     string
			durationMs int64
		)

		if err := rows.Scan(&r.ID, &r.Domain, &status, &r.Detail, &durationMs, &r.CheckedAt); err != nil {
			return nil, fmt.Errorf("postgres backend: %w", err)
		}

		if r.Status, err = storage.ParseStatus(status); err != nil {
			return nil, fmt.Errorf("postgres backend: %w", err)
		}
		r.Duration = time.Duration(durationMs) * time.Millisecond
		r.CheckedAt = r.CheckedAt.UTC()

		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres backend: %w", err)
	}

	return results, nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
