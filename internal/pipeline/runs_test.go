package pipeline

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaibhav2411-dotcom/migrate-guard/internal/errs"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/idgen"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/model"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/storage"
)

func newTestRunService(t *testing.T) (*RunService, *storage.Store) {
	t.Helper()
	store, err := storage.Open(t.TempDir(), idgen.Sequential("id"), slog.Default())
	require.NoError(t, err)
	return NewRunService(store, idgen.Sequential("run")), store
}

func seedJob(t *testing.T, store *storage.Store, id string) {
	t.Helper()
	require.NoError(t, store.Mutate(func(snap *model.Snapshot) error {
		snap.Jobs[id] = model.ComparisonJob{ID: id, Name: "demo"}
		return nil
	}))
}

func TestCreateRejectsUnknownJob(t *testing.T) {
	svc, _ := newTestRunService(t)
	_, err := svc.Create("job_missing", "api", 1)
	var nfErr *errs.NotFoundErr
	assert.ErrorAs(t, err, &nfErr)
}

func TestCreateEnforcesPerJobConcurrencyLimit(t *testing.T) {
	svc, store := newTestRunService(t)
	seedJob(t, store, "job_1")

	_, err := svc.Create("job_1", "api", 1)
	require.NoError(t, err)

	_, err = svc.Create("job_1", "api", 1)
	assert.Error(t, err, "a second run while one is still queued must be rejected at the default limit of 1")
}

func TestCancelMarksRunFailedWithCancelledReason(t *testing.T) {
	svc, store := newTestRunService(t)
	seedJob(t, store, "job_1")
	run, err := svc.Create("job_1", "api", 1)
	require.NoError(t, err)

	cancelled, err := svc.Cancel(run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunFailed, cancelled.Status)
	assert.Equal(t, "cancelled", cancelled.FailureReason)
	assert.True(t, svc.CancellationRequested(run.ID))
}

func TestCancelRejectsAlreadyTerminalRun(t *testing.T) {
	svc, store := newTestRunService(t)
	seedJob(t, store, "job_1")
	run, err := svc.Create("job_1", "api", 1)
	require.NoError(t, err)

	_, err = svc.Cancel(run.ID)
	require.NoError(t, err)

	_, err = svc.Cancel(run.ID)
	assert.Error(t, err)
}

func TestCancellationRequestedFalseForHealthyRun(t *testing.T) {
	svc, store := newTestRunService(t)
	seedJob(t, store, "job_1")
	run, err := svc.Create("job_1", "api", 1)
	require.NoError(t, err)

	assert.False(t, svc.CancellationRequested(run.ID))
}

func TestListForJobReturnsOnlyThatJobsRuns(t *testing.T) {
	svc, store := newTestRunService(t)
	seedJob(t, store, "job_1")
	seedJob(t, store, "job_2")

	run1, err := svc.Create("job_1", "api", 1)
	require.NoError(t, err)
	_, err = svc.Create("job_2", "api", 1)
	require.NoError(t, err)

	list := svc.ListForJob("job_1")
	require.Len(t, list, 1)
	assert.Equal(t, run1.ID, list[0].ID)
}
