package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaibhav2411-dotcom/migrate-guard/internal/browser"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/idgen"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/jobservice"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/model"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/pipeline"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/storage"
)

// erroringDriver fails NewContext immediately, so a run's background
// goroutine reaches the orchestrator's fatal-error path (and marks the
// run failed) instead of touching a real browser process.
type erroringDriver struct{}

func (erroringDriver) Start(ctx context.Context) error { return nil }
func (erroringDriver) NewContext(ctx context.Context) (browser.Context, error) {
	return nil, assert.AnError
}
func (erroringDriver) Stop() error { return nil }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := storage.Open(t.TempDir(), idgen.Sequential("id"), slog.Default())
	require.NoError(t, err)

	jobs := jobservice.New(store, idgen.Sequential("job"), slog.Default())
	runs := pipeline.NewRunService(store, idgen.Sequential("run"))
	orch := pipeline.New(store, runs, pipeline.Stages{}, erroringDriver{}, nil, 2, slog.Default())

	return New(context.Background(), jobs, runs, orch, store)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthReportsOK(t *testing.T) {
	s := newTestServer(t)
	router := s.Router(nil)

	rec := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestCreateJobThenGetRoundTrips(t *testing.T) {
	s := newTestServer(t)
	router := s.Router(nil)

	rec := doJSON(t, router, http.MethodPost, "/api/jobs/", jobRequest{
		Name:         "demo",
		BaselineURL:  "https://old.example.com",
		CandidateURL: "https://new.example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created model.ComparisonJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, model.JobPending, created.Status)

	rec = doJSON(t, router, http.MethodGet, "/api/jobs/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateJobRejectsInvalidURLPairWithBadRequest(t *testing.T) {
	s := newTestServer(t)
	router := s.Router(nil)

	rec := doJSON(t, router, http.MethodPost, "/api/jobs/", jobRequest{
		Name:         "bad",
		BaselineURL:  "https://same.example.com",
		CandidateURL: "https://same.example.com",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetUnknownJobReturnsNotFound(t *testing.T) {
	s := newTestServer(t)
	router := s.Router(nil)

	rec := doJSON(t, router, http.MethodGet, "/api/jobs/job_missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteJobReturnsNoContent(t *testing.T) {
	s := newTestServer(t)
	router := s.Router(nil)

	rec := doJSON(t, router, http.MethodPost, "/api/jobs/", jobRequest{
		Name: "demo", BaselineURL: "https://old.example.com", CandidateURL: "https://new.example.com",
	})
	var created model.ComparisonJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, router, http.MethodDelete, "/api/jobs/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/jobs/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunJobEnqueuesAndEventuallyFails(t *testing.T) {
	s := newTestServer(t)
	router := s.Router(nil)

	rec := doJSON(t, router, http.MethodPost, "/api/jobs/", jobRequest{
		Name: "demo", BaselineURL: "https://old.example.com", CandidateURL: "https://new.example.com",
	})
	var job model.ComparisonJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))

	rec = doJSON(t, router, http.MethodPost, "/api/jobs/"+job.ID+"/run", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var run model.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	require.NotEmpty(t, run.ID)

	assert.Eventually(t, func() bool {
		rec := doJSON(t, router, http.MethodGet, "/api/runs/"+run.ID, nil)
		var got model.Run
		_ = json.Unmarshal(rec.Body.Bytes(), &got)
		return got.Status == model.RunFailed
	}, 2*time.Second, 10*time.Millisecond, "the erroring driver must fail the run instead of hanging it in running")
}

func TestCancelRunTransitionsToFailedCancelled(t *testing.T) {
	s := newTestServer(t)
	router := s.Router(nil)

	rec := doJSON(t, router, http.MethodPost, "/api/jobs/", jobRequest{
		Name: "demo", BaselineURL: "https://old.example.com", CandidateURL: "https://new.example.com",
	})
	var job model.ComparisonJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))

	run, err := s.runs.Create(job.ID, "api", 1)
	require.NoError(t, err)

	rec = doJSON(t, router, http.MethodPost, "/api/runs/"+run.ID+"/cancel", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var cancelled model.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cancelled))
	assert.Equal(t, model.RunFailed, cancelled.Status)
	assert.Equal(t, "cancelled", cancelled.FailureReason)
}

func TestListArtifactsForUnknownRunReturnsEmptyList(t *testing.T) {
	s := newTestServer(t)
	router := s.Router(nil)

	rec := doJSON(t, router, http.MethodGet, "/api/runs/run_missing/artifacts", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}
