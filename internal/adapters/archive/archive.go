// Package archive persists published performance tables and run results in
// SQLite so the router can be warmed after a restart.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver

	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/model"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/orchestrator"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/pkg/logger"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/pkg/metrics"
)

const schema = `
CREATE TABLE IF NOT EXISTS tables (
	version      INTEGER PRIMARY KEY,
	run_id       TEXT NOT NULL,
	published_at INTEGER NOT NULL,
	body         TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	status      TEXT NOT NULL,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	body        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_started_at ON runs (started_at DESC);
`

// Archive is a SQLite-backed store of tables and runs.
type Archive struct {
	db     *sql.DB
	logger logger.Logger
}

var _ orchestrator.Archiver = (*Archive)(nil)

// Open opens (creating if needed) the archive at path. ":memory:" is accepted.
func Open(ctx context.Context, path string, opts ...Option) (*Archive, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create archive directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000", schema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("initialise archive: %w", err)
		}
	}

	a := &Archive{db: db}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logger.Get().Named("archive")
	}
	a.logger.Info(ctx, "archive opened", logger.String("path", path))
	return a, nil
}

// Close closes the database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// SaveTable stores a published table. Saving the same version again replaces it.
func (a *Archive) SaveTable(ctx context.Context, t *model.PerformanceTable) (err error) {
	defer func() { metrics.RecordArchiveWrite("table", err) }()
	if t == nil {
		return ErrNilRecord
	}
	body, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode table: %w", err)
	}
	_, err = a.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO tables (version, run_id, published_at, body) VALUES (?, ?, ?, ?)`,
		int64(t.Version()), t.RunID(), t.PublishedAt().UnixNano(), string(body))
	if err != nil {
		return fmt.Errorf("save table %d: %w", t.Version(), err)
	}
	return nil
}

// LatestTable returns the highest-versioned table, or ErrNotFound.
func (a *Archive) LatestTable(ctx context.Context) (*model.PerformanceTable, error) {
	var body string
	err := a.db.QueryRowContext(ctx, `SELECT body FROM tables ORDER BY version DESC LIMIT 1`).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load latest table: %w", err)
	}
	var t model.PerformanceTable
	if err := json.Unmarshal([]byte(body), &t); err != nil {
		return nil, fmt.Errorf("decode table: %w", err)
	}
	return &t, nil
}

// SaveRun stores a run result without its table, which is archived separately.
func (a *Archive) SaveRun(ctx context.Context, r orchestrator.RunResult) (err error) {
	defer func() { metrics.RecordArchiveWrite("run", err) }()
	r.Table = nil
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode run: %w", err)
	}
	_, err = a.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (run_id, status, started_at, finished_at, body) VALUES (?, ?, ?, ?, ?)`,
		r.RunID, string(r.Status), r.StartedAt.UnixNano(), unixNano(r.FinishedAt), string(body))
	if err != nil {
		return fmt.Errorf("save run %s: %w", r.RunID, err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (a *Archive) RecentRuns(ctx context.Context, limit int) ([]orchestrator.RunResult, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := a.db.QueryContext(ctx, `SELECT body FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []orchestrator.RunResult
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		var r orchestrator.RunResult
		if err := json.Unmarshal([]byte(body), &r); err != nil {
			return nil, fmt.Errorf("decode run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Run returns one archived run by ID, or ErrNotFound.
func (a *Archive) Run(ctx context.Context, runID string) (orchestrator.RunResult, error) {
	var body string
	err := a.db.QueryRowContext(ctx, `SELECT body FROM runs WHERE run_id = ?`, runID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return orchestrator.RunResult{}, ErrNotFound
	}
	if err != nil {
		return orchestrator.RunResult{}, fmt.Errorf("load run %s: %w", runID, err)
	}
	var r orchestrator.RunResult
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return orchestrator.RunResult{}, fmt.Errorf("decode run: %w", err)
	}
	return r, nil
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}
