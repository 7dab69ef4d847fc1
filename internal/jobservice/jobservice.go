// Package jobservice implements the create/get/list/update/delete and
// migrate-legacy operations over ComparisonJob (spec.md §4.2), delegating
// persistence to storage.Store. Like veille.Service, New takes its
// dependencies as plain constructor arguments.
package jobservice

import (
	"log/slog"
	"sort"
	"time"

	"github.com/vaibhav2411-dotcom/migrate-guard/internal/errs"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/idgen"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/model"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/storage"
)

// Service owns ComparisonJob lifecycle operations.
type Service struct {
	store  *storage.Store
	newID  idgen.Generator
	logger *slog.Logger
}

// New constructs a Service over store.
func New(store *storage.Store, newID idgen.Generator, logger *slog.Logger) *Service {
	return &Service{store: store, newID: newID, logger: logger}
}

// CreateInput is the partial ComparisonJob supplied by a caller; zero
// values for CrawlConfig/TestMatrix trigger spec-mandated defaults.
type CreateInput struct {
	Name         string
	Description  string
	BaselineURL  string
	CandidateURL string
	CrawlConfig  *model.CrawlConfig
	PageMap      model.PageMap
	TestMatrix   *model.TestMatrix
}

// Create validates, defaults, assigns id/timestamps, and persists a new
// ComparisonJob in status pending (spec.md §4.2).
func (s *Service) Create(in CreateInput) (model.ComparisonJob, error) {
	if err := model.ValidateName(in.Name); err != nil {
		return model.ComparisonJob{}, err
	}
	if err := model.ValidateURLPair(in.BaselineURL, in.CandidateURL); err != nil {
		return model.ComparisonJob{}, err
	}

	crawl := model.DefaultCrawlConfig()
	if in.CrawlConfig != nil {
		crawl = *in.CrawlConfig
	}
	if err := model.ValidateCrawlConfig(crawl); err != nil {
		return model.ComparisonJob{}, err
	}

	matrix := model.DefaultTestMatrix()
	if in.TestMatrix != nil {
		matrix = *in.TestMatrix
	}

	now := time.Now().UTC()
	job := model.ComparisonJob{
		ID:             s.newID(),
		Name:           in.Name,
		Description:    in.Description,
		BaselineURL:    in.BaselineURL,
		CandidateURL:   in.CandidateURL,
		CrawlConfig:    crawl,
		PageMap:        in.PageMap,
		TestMatrix:     matrix,
		Status:         model.JobPending,
		CreatedAt:      now,
		UpdatedAt:      now,
		SnapshotFormat: model.CurrentFormatVersion,
	}

	err := s.store.Mutate(func(snap *model.Snapshot) error {
		snap.Jobs[job.ID] = job
		return nil
	})
	if err != nil {
		return model.ComparisonJob{}, err
	}

	s.logger.Info("job created", "job_id", job.ID, "name", job.Name)
	return job, nil
}

// Get returns the job with id, or NotFound.
func (s *Service) Get(id string) (model.ComparisonJob, error) {
	snap := s.store.View()
	job, ok := snap.Jobs[id]
	if !ok {
		return model.ComparisonJob{}, errs.NotFound("job", id)
	}
	return job, nil
}

// List returns every job, ordered by CreatedAt ascending.
func (s *Service) List() []model.ComparisonJob {
	snap := s.store.View()
	out := make([]model.ComparisonJob, 0, len(snap.Jobs))
	for _, j := range snap.Jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].CreatedAt.Equal(out[k].CreatedAt) {
			return out[i].ID < out[k].ID
		}
		return out[i].CreatedAt.Before(out[k].CreatedAt)
	})
	return out
}

// UpdateInput carries the fields eligible for partial update; nil means
// "leave unchanged". id and createdAt are never mutable (spec.md §4.2).
type UpdateInput struct {
	Name         *string
	Description  *string
	BaselineURL  *string
	CandidateURL *string
	CrawlConfig  *model.CrawlConfig
	PageMap      *model.PageMap
	TestMatrix   *model.TestMatrix
	Status       *model.JobStatus
}

// Update applies a partial update, re-validating the URL pair if either
// URL field is touched.
func (s *Service) Update(id string, in UpdateInput) (model.ComparisonJob, error) {
	var updated model.ComparisonJob

	err := s.store.Mutate(func(snap *model.Snapshot) error {
		job, ok := snap.Jobs[id]
		if !ok {
			return errs.NotFound("job", id)
		}

		if in.Name != nil {
			if err := model.ValidateName(*in.Name); err != nil {
				return err
			}
			job.Name = *in.Name
		}
		if in.Description != nil {
			job.Description = *in.Description
		}
		if in.BaselineURL != nil {
			job.BaselineURL = *in.BaselineURL
		}
		if in.CandidateURL != nil {
			job.CandidateURL = *in.CandidateURL
		}
		if in.BaselineURL != nil || in.CandidateURL != nil {
			if err := model.ValidateURLPair(job.BaselineURL, job.CandidateURL); err != nil {
				return err
			}
		}
		if in.CrawlConfig != nil {
			if err := model.ValidateCrawlConfig(*in.CrawlConfig); err != nil {
				return err
			}
			job.CrawlConfig = *in.CrawlConfig
		}
		if in.PageMap != nil {
			job.PageMap = *in.PageMap
		}
		if in.TestMatrix != nil {
			job.TestMatrix = *in.TestMatrix
		}
		if in.Status != nil {
			job.Status = *in.Status
		}
		job.UpdatedAt = time.Now().UTC()

		snap.Jobs[id] = job
		updated = job
		return nil
	})
	if err != nil {
		return model.ComparisonJob{}, err
	}
	return updated, nil
}

// Delete removes the job and cascades to its runs and their artifacts
// (spec.md §4.2). Artifact directory removal is best-effort: failures are
// logged, not surfaced, matching the spec's "orphan files are tolerable"
// rule.
func (s *Service) Delete(id string) error {
	var runIDs []string

	err := s.store.Mutate(func(snap *model.Snapshot) error {
		if _, ok := snap.Jobs[id]; !ok {
			return errs.NotFound("job", id)
		}
		delete(snap.Jobs, id)

		for runID, r := range snap.Runs {
			if r.JobID != id {
				continue
			}
			runIDs = append(runIDs, runID)
			delete(snap.Runs, runID)
		}
		for artID, a := range snap.Artifacts {
			for _, runID := range runIDs {
				if a.RunID == runID {
					delete(snap.Artifacts, artID)
					break
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, runID := range runIDs {
		if rmErr := removeRunArtifactDir(s.store, runID); rmErr != nil {
			s.logger.Warn("artifact directory cleanup failed", "run_id", runID, "error", rmErr)
		}
	}
	s.logger.Info("job deleted", "job_id", id, "runs_cascaded", len(runIDs))
	return nil
}

// MigrateLegacy is idempotent: migration already happens transparently on
// storage.Open/load, so this reports how many jobs in the current snapshot
// carry a migration back-pointer on first call and 0 on every subsequent
// call against the same snapshot generation.
func (s *Service) MigrateLegacy() int {
	snap := s.store.View()
	return storage.MigrateLegacyCount(snap)
}
