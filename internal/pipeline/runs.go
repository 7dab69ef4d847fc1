package pipeline

import (
	"fmt"
	"time"

	"github.com/vaibhav2411-dotcom/migrate-guard/internal/errs"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/idgen"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/model"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/storage"
)

// RunService owns Run creation and cancellation (spec.md §4.3, §4.10).
// Enqueuing the created run onto the Orchestrator is the caller's
// responsibility (the httpapi handler), keeping this type free of a
// dependency on the orchestrator's worker pool.
type RunService struct {
	store *storage.Store
	newID idgen.Generator
}

// NewRunService constructs a RunService over store.
func NewRunService(store *storage.Store, newID idgen.Generator) *RunService {
	return &RunService{store: store, newID: newID}
}

// Create validates the job exists and is not already pending another
// run past the per-job concurrency limit, then persists a new Run in
// status queued (spec.md §4.3: "POST /api/jobs/:id/run enqueues and
// returns 202 immediately with the created Run in status queued").
func (s *RunService) Create(jobID, triggeredBy string, perJobConcurrency int) (model.Run, error) {
	if perJobConcurrency < 1 {
		perJobConcurrency = 1
	}

	var run model.Run
	err := s.store.Mutate(func(snap *model.Snapshot) error {
		if _, ok := snap.Jobs[jobID]; !ok {
			return errs.NotFound("job", jobID)
		}

		active := 0
		for _, r := range snap.Runs {
			if r.JobID == jobID && (r.Status == model.RunQueued || r.Status == model.RunRunning) {
				active++
			}
		}
		if active >= perJobConcurrency {
			return errs.InvalidInput("run", fmt.Sprintf("job %s already has %d active run(s), limit is %d", jobID, active, perJobConcurrency))
		}

		run = model.Run{
			ID:          s.newID(),
			JobID:       jobID,
			Status:      model.RunQueued,
			TriggeredBy: triggeredBy,
			TriggeredAt: time.Now().UTC(),
		}
		snap.Runs[run.ID] = run
		return nil
	})
	if err != nil {
		return model.Run{}, err
	}
	return run, nil
}

// Get returns the run with id, or NotFound.
func (s *RunService) Get(id string) (model.Run, error) {
	snap := s.store.View()
	r, ok := snap.Runs[id]
	if !ok {
		return model.Run{}, errs.NotFound("run", id)
	}
	return r, nil
}

// ListForJob returns every run for jobID.
func (s *RunService) ListForJob(jobID string) []model.Run {
	snap := s.store.View()
	return snap.RunsForJob(jobID)
}

// Cancel marks a queued or running run as failed with reason
// "cancelled" (spec.md §5's cancellation rule; SPEC_FULL.md §12 exposes
// this as POST /api/runs/:id/cancel). It does not itself interrupt a
// running pipeline goroutine: the orchestrator observes this status
// change at its next suspension point via CancellationRequested.
func (s *RunService) Cancel(id string) (model.Run, error) {
	var run model.Run
	err := s.store.Mutate(func(snap *model.Snapshot) error {
		r, ok := snap.Runs[id]
		if !ok {
			return errs.NotFound("run", id)
		}
		if r.Status != model.RunQueued && r.Status != model.RunRunning {
			return errs.InvalidInput("run", fmt.Sprintf("run %s is in terminal status %s and cannot be cancelled", id, r.Status))
		}
		now := time.Now().UTC()
		r.Status = model.RunFailed
		r.FailureReason = "cancelled"
		r.CompletedAt = &now
		snap.Runs[id] = r
		run = r
		return nil
	})
	if err != nil {
		return model.Run{}, err
	}
	return run, nil
}

// CancellationRequested reports whether id has already been marked
// cancelled, for the orchestrator to check at stage suspension points
// (spec.md §5: "every stage respects a run-scoped cancellation signal").
func (s *RunService) CancellationRequested(id string) bool {
	snap := s.store.View()
	r, ok := snap.Runs[id]
	if !ok {
		return true
	}
	return r.Status == model.RunFailed && r.FailureReason == "cancelled"
}
