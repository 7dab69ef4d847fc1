package eventlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.db")
	l, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRecordAndForRunRoundTrips(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	l.Record(ctx, Event{JobID: "job_1", RunID: "run_1", Stage: "crawl", EventType: "run_started", Success: true})
	l.Record(ctx, Event{JobID: "job_1", RunID: "run_1", Stage: "report", EventType: "run_completed", Success: true})

	events, err := l.ForRun(ctx, "run_1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "run_started", events[0].EventType)
	assert.Equal(t, "run_completed", events[1].EventType)
}

func TestForRunFiltersByRunID(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	l.Record(ctx, Event{JobID: "job_1", RunID: "run_1", Stage: "crawl", EventType: "run_started"})
	l.Record(ctx, Event{JobID: "job_2", RunID: "run_2", Stage: "crawl", EventType: "run_started"})

	events, err := l.ForRun(ctx, "run_1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "run_1", events[0].RunID)
}

func TestForRunUnknownRunReturnsEmpty(t *testing.T) {
	l := openTestLog(t)
	events, err := l.ForRun(context.Background(), "run_missing")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestCleanupRemovesEventsOlderThanRetention(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour).Unix()
	_, err := l.db.ExecContext(ctx, `INSERT INTO run_events (event_id, job_id, run_id, stage, event_type, message, success, created_at) VALUES (?,?,?,?,?,?,?,?)`,
		"evt_old", "job_1", "run_1", "crawl", "run_started", "", 1, old)
	require.NoError(t, err)

	l.Record(ctx, Event{JobID: "job_1", RunID: "run_1", Stage: "report", EventType: "run_completed"})

	require.NoError(t, Cleanup(ctx, l.db, RetentionDays(1)))

	events, err := l.ForRun(ctx, "run_1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "run_completed", events[0].EventType)
}

func TestCleanupNoOpWhenRetentionZero(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour).Unix()
	_, err := l.db.ExecContext(ctx, `INSERT INTO run_events (event_id, job_id, run_id, stage, event_type, message, success, created_at) VALUES (?,?,?,?,?,?,?,?)`,
		"evt_old", "job_1", "run_1", "crawl", "run_started", "", 1, old)
	require.NoError(t, err)

	require.NoError(t, Cleanup(ctx, l.db, RetentionDays(0)))

	events, err := l.ForRun(ctx, "run_1")
	require.NoError(t, err)
	require.Len(t, events, 1)
}
