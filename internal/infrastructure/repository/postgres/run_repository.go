package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/d4d-ingest/internal/core/domain"
)

const defaultListLimit = 50

type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *RunRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101401)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS normalize_runs (
	id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	format TEXT,
	chars INTEGER NOT NULL DEFAULT 0,
	truncated BOOLEAN NOT NULL DEFAULT FALSE,
	status TEXT NOT NULL,
	error_kind TEXT,
	error_message TEXT,
	duration_ms DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_normalize_runs_created_at ON normalize_runs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_normalize_runs_status ON normalize_runs(status);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *RunRepository) Record(ctx context.Context, run domain.NormalizeRun) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO normalize_runs (
	id, source, format, chars, truncated, status, error_kind, error_message, duration_ms, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`,
		run.ID, run.Source, string(run.Format), run.Chars, run.Truncated, string(run.Status),
		run.ErrorKind, run.ErrorMessage, float64(run.Duration.Microseconds())/1000.0, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert normalize run: %w", err)
	}
	return nil
}

func (r *RunRepository) ListRecent(ctx context.Context, limit int) ([]domain.NormalizeRun, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, source, COALESCE(format, ''), chars, truncated, status, COALESCE(error_kind, ''), COALESCE(error_message, ''), duration_ms, created_at
FROM normalize_runs
ORDER BY created_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query normalize runs: %w", err)
	}
	defer rows.Close()

	runs := make([]domain.NormalizeRun, 0, limit)
	for rows.Next() {
		var run domain.NormalizeRun
		var format, status string
		var durationMS float64
		if err := rows.Scan(
			&run.ID, &run.Source, &format, &run.Chars, &run.Truncated, &status,
			&run.ErrorKind, &run.ErrorMessage, &durationMS, &run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan normalize run: %w", err)
		}
		run.Format = domain.FormatKind(format)
		run.Status = domain.RunStatus(status)
		run.Duration = time.Duration(durationMS * float64(time.Millisecond))
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate normalize runs: %w", err)
	}
	return runs, nil
}
