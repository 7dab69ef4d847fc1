package pipeline

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaibhav2411-dotcom/migrate-guard/internal/dataintegrity"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/idgen"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/model"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/reasoning"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/report"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/storage"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/visualdiff"
)

func newTestOrchestrator(t *testing.T) (*Orchestrator, *storage.Store) {
	t.Helper()
	store, err := storage.Open(t.TempDir(), idgen.Sequential("id"), slog.Default())
	require.NoError(t, err)
	runSvc := NewRunService(store, idgen.Sequential("run"))
	o := New(store, runSvc, Stages{}, nil, nil, 2, slog.Default())
	return o, store
}

func TestRecoverOnStartupMarksRunningRunsFailed(t *testing.T) {
	o, store := newTestOrchestrator(t)
	require.NoError(t, store.Mutate(func(snap *model.Snapshot) error {
		snap.Runs["run_1"] = model.Run{ID: "run_1", JobID: "job_1", Status: model.RunRunning}
		return nil
	}))

	require.NoError(t, o.RecoverOnStartup())

	snap := store.View()
	run := snap.Runs["run_1"]
	assert.Equal(t, model.RunFailed, run.Status)
	assert.Equal(t, "aborted-on-restart", run.FailureReason)
	assert.NotNil(t, run.CompletedAt)
}

func TestRecoverOnStartupLeavesTerminalRunsAlone(t *testing.T) {
	o, store := newTestOrchestrator(t)
	require.NoError(t, store.Mutate(func(snap *model.Snapshot) error {
		snap.Runs["run_1"] = model.Run{ID: "run_1", JobID: "job_1", Status: model.RunCompleted}
		return nil
	}))

	require.NoError(t, o.RecoverOnStartup())

	snap := store.View()
	assert.Equal(t, model.RunCompleted, snap.Runs["run_1"].Status)
}

func TestFailIsNoOpOnAlreadyTerminalRun(t *testing.T) {
	o, store := newTestOrchestrator(t)
	now := time.Now().UTC()
	require.NoError(t, store.Mutate(func(snap *model.Snapshot) error {
		snap.Runs["run_1"] = model.Run{ID: "run_1", Status: model.RunCompleted, CompletedAt: &now}
		return nil
	}))

	o.fail("run_1", "some later failure")

	snap := store.View()
	assert.Equal(t, model.RunCompleted, snap.Runs["run_1"].Status)
}

func TestCompleteTransitionsRunningToCompleted(t *testing.T) {
	o, store := newTestOrchestrator(t)
	require.NoError(t, store.Mutate(func(snap *model.Snapshot) error {
		snap.Runs["run_1"] = model.Run{ID: "run_1", Status: model.RunRunning, CurrentStage: "report"}
		return nil
	}))

	o.complete("run_1")

	snap := store.View()
	run := snap.Runs["run_1"]
	assert.Equal(t, model.RunCompleted, run.Status)
	assert.Empty(t, run.CurrentStage)
	assert.NotNil(t, run.CompletedAt)
}

func TestDiffOutcomeReasoningInputAggregatesPresentCategories(t *testing.T) {
	out := diffOutcome{
		visual: &visualdiff.Summary{
			AverageDiffPct:  12.5,
			CountBySeverity: map[visualdiff.Severity]int{visualdiff.SeverityCritical: 2},
		},
		dataIntegrity: &dataintegrity.Summary{
			AverageSimilarity: 0.9,
			CountByStatus:     map[dataintegrity.PageStatus]int{dataintegrity.PageMismatch: 1},
		},
	}

	in := out.reasoningInput(10)
	require.NotNil(t, in.Visual)
	assert.Equal(t, 2, in.Visual.CriticalIssues)
	assert.Equal(t, 12.5, in.Visual.AverageDiffPct)
	assert.Nil(t, in.Functional, "absent diff stages must leave their reasoning.Input slot nil")
	require.NotNil(t, in.DataIntegrity)
	assert.Equal(t, 1, in.DataIntegrity.CriticalMismatches)
	assert.Equal(t, 10, in.TotalPages)
}

func TestDiffOutcomeAffectedPagesOnlyIncludesNonPassingPages(t *testing.T) {
	out := diffOutcome{
		visual: &visualdiff.Summary{
			Pages: []visualdiff.PageResult{
				{SanitizedPath: "home", MaxSeverity: visualdiff.SeverityNone},
				{SanitizedPath: "pricing", MaxSeverity: visualdiff.SeverityHigh},
			},
		},
	}

	affected := out.affectedPages()
	assert.Equal(t, []string{"pricing"}, affected[reasoning.CategoryVisual])
	assert.NotContains(t, affected[reasoning.CategoryVisual], "home")
}

var _ = report.AffectedPages{}
