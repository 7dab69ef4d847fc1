// Package eventlog is a secondary, non-authoritative business-event log
// backed by SQLite, grounded on observability.EventLogger's schema-on-
// first-use style and horos47/core/jobs.Queue's CREATE TABLE IF NOT
// EXISTS idiom. It never gates any pipeline decision: storage.Store's
// JSON snapshot remains the single source of truth (SPEC_FULL.md §11);
// this package only gives operators a queryable timeline of what
// happened, across restarts, for debugging and audit.
package eventlog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vaibhav2411-dotcom/migrate-guard/internal/idgen"
)

// Event is a single recorded occurrence in a run's lifecycle.
type Event struct {
	ID        string
	JobID     string
	RunID     string
	Stage     string
	EventType string
	Message   string
	Success   bool
	CreatedAt time.Time
}

// Log writes run/job lifecycle events to a SQLite database. Failures to
// write are logged but never propagated: a broken event log must never
// block or fail a migration-assurance run.
type Log struct {
	db    *sql.DB
	newID idgen.Generator
}

const schema = `
CREATE TABLE IF NOT EXISTS run_events (
	event_id   TEXT PRIMARY KEY,
	job_id     TEXT NOT NULL,
	run_id     TEXT NOT NULL,
	stage      TEXT NOT NULL,
	event_type TEXT NOT NULL,
	message    TEXT,
	success    INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_run_events_run ON run_events(run_id);
CREATE INDEX IF NOT EXISTS idx_run_events_job ON run_events(job_id);
`

// Open opens (creating if absent) the SQLite database at path and
// ensures the schema exists.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("eventlog: open: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("eventlog: schema: %w", err)
	}
	return &Log{db: db, newID: idgen.Prefixed("evt_", idgen.Default)}, nil
}

// Close releases the underlying database handle.
func (l *Log) Close() error {
	return l.db.Close()
}

// Record inserts a lifecycle event. Non-blocking on failure: errors are
// logged via slog and swallowed, matching observability.EventLogger's
// "never block the app" contract.
func (l *Log) Record(ctx context.Context, e Event) {
	id := e.ID
	if id == "" {
		id = l.newID()
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO run_events (event_id, job_id, run_id, stage, event_type, message, success, created_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		id, e.JobID, e.RunID, e.Stage, e.EventType, e.Message, e.Success, time.Now().Unix())
	if err != nil {
		slog.Error("eventlog record failed", "error", err, "run_id", e.RunID, "event_type", e.EventType)
	}
}

// ForRun returns every recorded event for a run, oldest first.
func (l *Log) ForRun(ctx context.Context, runID string) ([]Event, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT event_id, job_id, run_id, stage, event_type, message, success, created_at
		FROM run_events WHERE run_id = ? ORDER BY created_at ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("eventlog: query: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var ts int64
		var success int
		if err := rows.Scan(&e.ID, &e.JobID, &e.RunID, &e.Stage, &e.EventType, &e.Message, &success, &ts); err != nil {
			return nil, fmt.Errorf("eventlog: scan: %w", err)
		}
		e.Success = success != 0
		e.CreatedAt = time.Unix(ts, 0).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// RetentionDays controls how long events are kept; zero disables cleanup.
type RetentionDays int

// Cleanup deletes events older than the retention window, mirroring
// observability.Cleanup's whitelist-then-delete pattern (here the table
// is fixed, so no whitelist is needed).
func Cleanup(ctx context.Context, db *sql.DB, days RetentionDays) error {
	if days <= 0 {
		return nil
	}
	cutoff := time.Now().Unix() - int64(days)*86400
	if _, err := db.ExecContext(ctx, "DELETE FROM run_events WHERE created_at < ?", cutoff); err != nil {
		return fmt.Errorf("eventlog: cleanup: %w", err)
	}
	return nil
}
