package jobservice

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

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := storage.Open(t.TempDir(), idgen.Sequential("job"), slog.Default())
	require.NoError(t, err)
	return New(store, idgen.Sequential("job"), slog.Default())
}

func TestCreateAppliesDefaultsAndPending(t *testing.T) {
	svc := newTestService(t)

	job, err := svc.Create(CreateInput{
		Name:         "Marketing site migration",
		BaselineURL:  "https://old.example.com",
		CandidateURL: "https://new.example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, model.JobPending, job.Status)
	assert.NotZero(t, job.CrawlConfig.MaxPages)
	assert.NotEmpty(t, job.TestMatrix)
	assert.Equal(t, model.CurrentFormatVersion, job.SnapshotFormat)
}

func TestCreateRejectsInvalidURLPair(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Create(CreateInput{Name: "bad", BaselineURL: "", CandidateURL: "https://new.example.com"})
	assert.Error(t, err)
}

func TestGetReturnsNotFoundForUnknownID(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Get("job_missing")
	var nfErr *errs.NotFoundErr
	assert.ErrorAs(t, err, &nfErr)
}

func TestListOrdersByCreatedAt(t *testing.T) {
	svc := newTestService(t)

	first, err := svc.Create(CreateInput{Name: "first", BaselineURL: "https://a.example.com", CandidateURL: "https://b.example.com"})
	require.NoError(t, err)
	second, err := svc.Create(CreateInput{Name: "second", BaselineURL: "https://c.example.com", CandidateURL: "https://d.example.com"})
	require.NoError(t, err)

	list := svc.List()
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)
}

func TestUpdatePartialLeavesUntouchedFieldsAlone(t *testing.T) {
	svc := newTestService(t)
	job, err := svc.Create(CreateInput{Name: "original", BaselineURL: "https://a.example.com", CandidateURL: "https://b.example.com"})
	require.NoError(t, err)

	newName := "renamed"
	updated, err := svc.Update(job.ID, UpdateInput{Name: &newName})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, job.BaselineURL, updated.BaselineURL)
	assert.True(t, updated.UpdatedAt.After(job.CreatedAt) || updated.UpdatedAt.Equal(job.CreatedAt))
}

func TestUpdateRevalidatesURLPairWhenEitherURLTouched(t *testing.T) {
	svc := newTestService(t)
	job, err := svc.Create(CreateInput{Name: "original", BaselineURL: "https://a.example.com", CandidateURL: "https://b.example.com"})
	require.NoError(t, err)

	same := job.BaselineURL
	_, err = svc.Update(job.ID, UpdateInput{BaselineURL: &same, CandidateURL: &same})
	assert.Error(t, err, "baseline and candidate must not resolve to the same URL")
}

func TestDeleteCascadesRunsAndArtifacts(t *testing.T) {
	svc := newTestService(t)
	job, err := svc.Create(CreateInput{Name: "cascade", BaselineURL: "https://a.example.com", CandidateURL: "https://b.example.com"})
	require.NoError(t, err)

	store := svc.store
	require.NoError(t, store.Mutate(func(snap *model.Snapshot) error {
		snap.Runs["run_1"] = model.Run{ID: "run_1", JobID: job.ID}
		snap.Artifacts["art_1"] = model.RunArtifact{ID: "art_1", RunID: "run_1"}
		return nil
	}))

	require.NoError(t, svc.Delete(job.ID))

	snap := store.View()
	assert.NotContains(t, snap.Jobs, job.ID)
	assert.NotContains(t, snap.Runs, "run_1")
	assert.NotContains(t, snap.Artifacts, "art_1")
}

func TestDeleteUnknownJobIsNotFound(t *testing.T) {
	svc := newTestService(t)

	err := svc.Delete("job_missing")
	var nfErr *errs.NotFoundErr
	assert.ErrorAs(t, err, &nfErr)
}

func TestMigrateLegacyReportsMigratedCount(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.store.Mutate(func(snap *model.Snapshot) error {
		snap.Jobs["job_1"] = model.ComparisonJob{ID: "job_1", MigratedFrom: "legacy_1"}
		return nil
	}))

	assert.Equal(t, 1, svc.MigrateLegacy())
}
