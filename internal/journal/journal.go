package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/vk/nodeflow/internal/config"
	"github.com/vk/nodeflow/internal/ctxlog"
	"github.com/vk/nodeflow/internal/orchestrator"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	workflow TEXT NOT NULL,
	status TEXT NOT NULL,
	started_at DATETIME NOT NULL,
	finished_at DATETIME,
	error TEXT,
	output TEXT
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

CREATE TABLE IF NOT EXISTS node_runs (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL REFERENCES runs(id),
	node_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	status TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	error TEXT
);
CREATE INDEX IF NOT EXISTS idx_node_runs_run_id ON node_runs(run_id);
`

// Run is one row of the runs table.
type Run struct {
	ID         string         `db:"id"`
	Workflow   string         `db:"workflow"`
	Status     string         `db:"status"`
	StartedAt  time.Time      `db:"started_at"`
	FinishedAt sql.NullTime   `db:"finished_at"`
	Error      sql.NullString `db:"error"`
	// Output is the JSON rendering of the run output.
	Output sql.NullString `db:"output"`
}

// NodeRun is one row of the node_runs table.
type NodeRun struct {
	RunID      string         `db:"run_id"`
	NodeID     string         `db:"node_id"`
	Kind       string         `db:"kind"`
	Status     string         `db:"status"`
	DurationMS int64          `db:"duration_ms"`
	Error      sql.NullString `db:"error"`
}

// Journal records runs in a SQLite database.
type Journal struct {
	db *sqlx.DB
}

var _ orchestrator.Observer = (*Journal)(nil)

// Open connects to the SQLite database at dsn, e.g. "runs.db" or
// "file::memory:?cache=shared", and creates the tables if needed.
func Open(ctx context.Context, dsn string) (*Journal, error) {
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// SQLite serialises writers anyway; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to journal: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialise journal schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close releases the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) RunStarted(ctx context.Context, r orchestrator.RunReport) {
	const query = `
	INSERT INTO runs (id, workflow, status, started_at)
	VALUES (:id, :workflow, :status, :started_at)`
	_, err := j.db.NamedExecContext(ctx, query, Run{
		ID:        r.RunID,
		Workflow:  r.Workflow,
		Status:    string(r.Status),
		StartedAt: r.Started,
	})
	if err != nil {
		ctxlog.FromContext(ctx).Error("Failed to journal run start.", "error", err)
	}
}

func (j *Journal) NodeFinished(ctx context.Context, r orchestrator.NodeReport) {
	const query = `
	INSERT INTO node_runs (run_id, node_id, kind, status, duration_ms, error)
	VALUES (:run_id, :node_id, :kind, :status, :duration_ms, :error)`
	_, err := j.db.NamedExecContext(ctx, query, NodeRun{
		RunID:      r.RunID,
		NodeID:     r.NodeID,
		Kind:       r.Kind,
		Status:     string(r.Status),
		DurationMS: r.Duration.Milliseconds(),
		Error:      errString(r.Err),
	})
	if err != nil {
		ctxlog.FromContext(ctx).Error("Failed to journal node result.", "node_id", r.NodeID, "error", err)
	}
}

func (j *Journal) RunFinished(ctx context.Context, r orchestrator.RunReport) {
	logger := ctxlog.FromContext(ctx)

	var output sql.NullString
	if r.Err == nil {
		data, err := config.MarshalJSON(r.Output)
		if err != nil {
			logger.Warn("Run output cannot be journaled as JSON.", "error", err)
		} else {
			output = sql.NullString{String: string(data), Valid: true}
		}
	}

	const query = `
	UPDATE runs SET status = :status, finished_at = :finished_at, error = :error, output = :output
	WHERE id = :id`
	_, err := j.db.NamedExecContext(ctx, query, Run{
		ID:         r.RunID,
		Status:     string(r.Status),
		FinishedAt: sql.NullTime{Time: r.Finished, Valid: !r.Finished.IsZero()},
		Error:      errString(r.Err),
		Output:     output,
	})
	if err != nil {
		logger.Error("Failed to journal run result.", "error", err)
	}
}

// Runs returns up to limit runs, newest first. A limit of zero or less
// returns every run.
func (j *Journal) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	var runs []Run
	const query = `
	SELECT id, workflow, status, started_at, finished_at, error, output
	FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`
	if err := j.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// NodeRuns returns the node results of a run in execution order.
func (j *Journal) NodeRuns(ctx context.Context, runID string) ([]NodeRun, error) {
	var nodes []NodeRun
	const query = `
	SELECT run_id, node_id, kind, status, duration_ms, error
	FROM node_runs WHERE run_id = ? ORDER BY seq`
	if err := j.db.SelectContext(ctx, &nodes, query, runID); err != nil {
		return nil, fmt.Errorf("failed to list node runs of %s: %w", runID, err)
	}
	return nodes, nil
}

func errString(err error) sql.NullString {
	if err == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: err.Error(), Valid: true}
}
