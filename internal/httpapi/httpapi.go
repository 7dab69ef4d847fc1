// Package httpapi implements the REST boundary of spec.md §4.10 and §6:
// a thin chi router that validates inputs and delegates to jobservice
// and pipeline. Handler style (writeJSON/writeError, inline request
// structs) follows cmd/chrc/main.go's router.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vaibhav2411-dotcom/migrate-guard/internal/errs"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/httpmw"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/jobservice"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/model"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/pipeline"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/storage"
)

// perJobConcurrency is the per-job run concurrency limit applied to every
// job. It is fixed: Config.PerJobConcurrency is loaded but not consulted.
const perJobConcurrency = 1

// Server wires jobservice, pipeline, and storage behind chi.
type Server struct {
	jobs    *jobservice.Service
	runs    *pipeline.RunService
	orch    *pipeline.Orchestrator
	store   *storage.Store
	baseCtx context.Context
}

// New constructs a Server. baseCtx is the process-lifetime context
// (cmd/migrate-guard/main.go's signal.NotifyContext) that enqueued runs
// are scoped to, since a run must outlive the HTTP request that
// triggered it (spec.md §5).
func New(baseCtx context.Context, jobs *jobservice.Service, runs *pipeline.RunService, orch *pipeline.Orchestrator, store *storage.Store) *Server {
	return &Server{baseCtx: baseCtx, jobs: jobs, runs: runs, orch: orch, store: store}
}

// Router builds the chi router for the REST boundary, with the
// middleware stack applied in shield's ordering: security headers,
// body limits, trace ID, CORS.
func (s *Server) Router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(httpmw.SecurityHeaders(httpmw.DefaultHeaders()))
	r.Use(httpmw.MaxJSONBody(1 << 20))
	r.Use(httpmw.TraceID)
	r.Use(httpmw.CORS(allowedOrigins))

	r.Get("/health", s.handleHealth)

	r.Route("/api/jobs", func(r chi.Router) {
		r.Post("/", s.handleCreateJob)
		r.Get("/", s.handleListJobs)
		r.Post("/migrate", s.handleMigrateLegacy)
		r.Get("/{id}", s.handleGetJob)
		r.Put("/{id}", s.handleUpdateJob)
		r.Delete("/{id}", s.handleDeleteJob)
		r.Post("/{id}/run", s.handleRunJob)
	})

	r.Route("/api/runs", func(r chi.Router) {
		r.Get("/", s.handleListRuns)
		r.Get("/{id}", s.handleGetRun)
		r.Get("/{id}/artifacts", s.handleListArtifacts)
		r.Post("/{id}/cancel", s.handleCancelRun)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type jobRequest struct {
	Name         string             `json:"name"`
	Description  string             `json:"description,omitempty"`
	BaselineURL  string             `json:"baselineUrl"`
	CandidateURL string             `json:"candidateUrl"`
	CrawlConfig  *model.CrawlConfig `json:"crawlConfig,omitempty"`
	PageMap      model.PageMap      `json:"pageMap,omitempty"`
	TestMatrix   *model.TestMatrix  `json:"testMatrix,omitempty"`
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req jobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	job, err := s.jobs.Create(jobservice.CreateInput{
		Name:         req.Name,
		Description:  req.Description,
		BaselineURL:  req.BaselineURL,
		CandidateURL: req.CandidateURL,
		CrawlConfig:  req.CrawlConfig,
		PageMap:      req.PageMap,
		TestMatrix:   req.TestMatrix,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.jobs.List())
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := s.jobs.Get(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

type jobUpdateRequest struct {
	Name         *string            `json:"name,omitempty"`
	Description  *string            `json:"description,omitempty"`
	BaselineURL  *string            `json:"baselineUrl,omitempty"`
	CandidateURL *string            `json:"candidateUrl,omitempty"`
	CrawlConfig  *model.CrawlConfig `json:"crawlConfig,omitempty"`
	PageMap      *model.PageMap     `json:"pageMap,omitempty"`
	TestMatrix   *model.TestMatrix  `json:"testMatrix,omitempty"`
	Status       *model.JobStatus   `json:"status,omitempty"`
}

func (s *Server) handleUpdateJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req jobUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	job, err := s.jobs.Update(id, jobservice.UpdateInput{
		Name:         req.Name,
		Description:  req.Description,
		BaselineURL:  req.BaselineURL,
		CandidateURL: req.CandidateURL,
		CrawlConfig:  req.CrawlConfig,
		PageMap:      req.PageMap,
		TestMatrix:   req.TestMatrix,
		Status:       req.Status,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.jobs.Delete(id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMigrateLegacy(w http.ResponseWriter, _ *http.Request) {
	count := s.jobs.MigrateLegacy()
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

type runRequest struct {
	TriggeredBy string `json:"triggeredBy,omitempty"`
}

func (s *Server) handleRunJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")

	var req runRequest
	_ = json.NewDecoder(r.Body).Decode(&req) // body is optional
	if req.TriggeredBy == "" {
		req.TriggeredBy = "api"
	}

	run, err := s.runs.Create(jobID, req.TriggeredBy, perJobConcurrency)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	s.orch.Enqueue(s.baseCtx, jobID, run.ID)
	writeJSON(w, http.StatusAccepted, run)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("jobId")
	if jobID != "" {
		writeJSON(w, http.StatusOK, s.runs.ListForJob(jobID))
		return
	}

	snap := s.store.View()
	out := make([]model.Run, 0, len(snap.Runs))
	for _, run := range snap.Runs {
		out = append(out, run)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := s.runs.Get(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleListArtifacts(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	snap := s.store.View()
	out := make([]model.RunArtifact, 0)
	for _, a := range snap.ArtifactsForRun(runID) {
		out = append(out, a)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleCancelRun implements SPEC_FULL.md's supplemented cancellation
// endpoint (spec.md §5's cancellation semantics, surfaced here since
// spec.md §6 never gives a caller a way to trigger it).
func (s *Server) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := s.runs.Cancel(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, run)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"message": err.Error()})
}

// writeServiceError maps a service-level error to an HTTP status per
// spec.md §7's propagation policy.
func writeServiceError(w http.ResponseWriter, err error) {
	var invalidErr *errs.InvalidInputErr
	var notFoundErr *errs.NotFoundErr
	switch {
	case errors.As(err, &invalidErr):
		writeError(w, http.StatusBadRequest, err)
	case errors.As(err, &notFoundErr):
		writeError(w, http.StatusNotFound, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
