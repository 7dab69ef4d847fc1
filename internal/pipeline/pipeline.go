// Package pipeline implements the Pipeline Orchestrator of spec.md §4.3:
// the run lifecycle state machine, per-run resource sharing (including
// the two live browser contexts), and fixed stage ordering with the
// Visual/Functional/Data fan-out.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vaibhav2411-dotcom/migrate-guard/internal/browser"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/capture"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/crawl"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/dataintegrity"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/errs"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/eventlog"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/functional"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/model"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/reasoning"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/report"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/storage"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/visualdiff"
)

// stageTimeout bounds the crawl and the capture stage, 10 min each. It is
// fixed: Config.StageTimeout is loaded but not consulted.
const stageTimeout = 10 * time.Minute

// Sink is the storage surface every stage package needs, satisfied by
// *storage.Store.
type Sink interface {
	capture.ArtifactSink
	visualdiff.ArtifactSink
	functional.ArtifactSink
	dataintegrity.ArtifactSink
	report.ArtifactSink
	visualdiff.ScreenshotReader
	dataintegrity.HTMLReader
}

// Stages bundles every stage implementation the orchestrator drives.
// Constructed once at process startup and shared across runs.
type Stages struct {
	Crawl      *crawl.Engine
	Capture    *capture.Stage
	Visual     *visualdiff.Stage
	Functional *functional.Stage
	Data       *dataintegrity.Stage
	Reasoner   reasoning.Reasoner
	Report     *report.Stage
}

// Orchestrator owns run dispatch and the run state machine (spec.md §4.3).
type Orchestrator struct {
	store     *storage.Store
	runSvc    *RunService
	stages    Stages
	driver    browser.Driver
	events    *eventlog.Log // optional, secondary timeline (SPEC_FULL.md §11)
	logger    *slog.Logger
	semaphore chan struct{} // global worker-pool limit
}

// New constructs an Orchestrator. globalConcurrency is the global
// worker-pool limit (spec.md §5). events may be nil, in which case
// lifecycle recording is skipped.
func New(store *storage.Store, runSvc *RunService, stages Stages, driver browser.Driver, events *eventlog.Log, globalConcurrency int, logger *slog.Logger) *Orchestrator {
	if globalConcurrency < 1 {
		globalConcurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:     store,
		runSvc:    runSvc,
		stages:    stages,
		driver:    driver,
		events:    events,
		logger:    logger,
		semaphore: make(chan struct{}, globalConcurrency),
	}
}

// recordEvent writes a lifecycle event to the secondary event log, if one
// is configured. Never fatal to the run.
func (o *Orchestrator) recordEvent(ctx context.Context, jobID, runID, stage, eventType, message string, success bool) {
	if o.events == nil {
		return
	}
	o.events.Record(ctx, eventlog.Event{
		JobID:     jobID,
		RunID:     runID,
		Stage:     stage,
		EventType: eventType,
		Message:   message,
		Success:   success,
	})
}

// RecoverOnStartup marks any run left in status running as failed with
// reason "aborted-on-restart" and commits a log artifact, per spec.md
// §4.3's crash-recovery rule: stage inputs beyond the artifact registry
// are not recoverable, so resumption is never attempted.
func (o *Orchestrator) RecoverOnStartup() error {
	snap := o.store.View()
	var stale []string
	for id, r := range snap.Runs {
		if r.Status == model.RunRunning {
			stale = append(stale, id)
		}
	}

	for _, id := range stale {
		if err := o.store.Mutate(func(s *model.Snapshot) error {
			r, ok := s.Runs[id]
			if !ok {
				return nil
			}
			now := time.Now().UTC()
			r.Status = model.RunFailed
			r.FailureReason = "aborted-on-restart"
			r.CompletedAt = &now
			s.Runs[id] = r
			return nil
		}); err != nil {
			return fmt.Errorf("pipeline: recover run %s: %w", id, err)
		}

		msg := fmt.Sprintf("run %s was in status running at process start and has been marked failed (aborted-on-restart)", id)
		rel := fmt.Sprintf("%s/logs/aborted-on-restart.log", id)
		if err := o.store.WriteArtifactFile(rel, []byte(msg)); err == nil {
			_, _ = o.store.RegisterArtifact(id, model.ArtifactLog, "Aborted on restart", rel)
		}
		o.logger.Warn("run aborted on restart", "run_id", id)
	}
	return nil
}

// Enqueue runs the pipeline for runID in a new goroutine, respecting the
// global concurrency limit. The goroutine blocks acquiring a slot;
// Enqueue itself returns immediately.
func (o *Orchestrator) Enqueue(ctx context.Context, jobID, runID string) {
	go func() {
		o.semaphore <- struct{}{}
		defer func() { <-o.semaphore }()
		o.execute(ctx, jobID, runID)
	}()
}

func (o *Orchestrator) execute(ctx context.Context, jobID, runID string) {
	logger := o.logger.With("run_id", runID, "job_id", jobID)

	job, err := o.jobSnapshot(jobID)
	if err != nil {
		o.fail(runID, fmt.Sprintf("job snapshot unavailable: %v", err))
		o.recordEvent(ctx, jobID, runID, "crawl", "run_failed", err.Error(), false)
		return
	}

	if err := o.transitionToRunning(runID); err != nil {
		logger.Error("failed to transition run to running", "error", err)
		return
	}
	o.recordEvent(ctx, jobID, runID, "crawl", "run_started", "", true)

	rc := &runContext{
		job:    job,
		runID:  runID,
		logger: logger,
	}
	defer rc.closeContexts()

	if err := o.runCrawlAndCapture(ctx, rc); err != nil {
		o.fail(runID, err.Error())
		o.recordEvent(ctx, jobID, runID, "capture", "run_failed", err.Error(), false)
		return
	}
	o.recordEvent(ctx, jobID, runID, "capture", "capture_completed", "", true)

	if o.runSvc.CancellationRequested(runID) {
		logger.Info("run cancelled after capture, stopping before diff stages")
		o.recordEvent(ctx, jobID, runID, "capture", "run_cancelled", "", true)
		return
	}

	diffOut := o.runDiffStages(ctx, rc)
	o.recordEvent(ctx, jobID, runID, "diff", "diff_stages_completed", "", true)

	if o.runSvc.CancellationRequested(runID) {
		logger.Info("run cancelled after diff stages, stopping before reasoning")
		o.recordEvent(ctx, jobID, runID, "diff", "run_cancelled", "", true)
		return
	}

	reasoningOut, err := o.stages.Reasoner.Reason(ctx, diffOut.reasoningInput(len(rc.matched)))
	if err != nil {
		// Reasoner itself already falls back internally (reasoning.WithFallback);
		// reaching here means even the fallback errored, which report.Build cannot
		// recover from (spec.md §4.3: "Report failure is fatal").
		o.fail(runID, fmt.Sprintf("reasoning unavailable: %v", err))
		o.recordEvent(ctx, jobID, runID, "reasoning", "run_failed", err.Error(), false)
		return
	}

	if _, err := o.stages.Report.Run(runID, reasoningOut, len(rc.matched), diffOut.affectedPages()); err != nil {
		o.fail(runID, fmt.Sprintf("report stage failed: %v", err))
		o.recordEvent(ctx, jobID, runID, "report", "run_failed", err.Error(), false)
		return
	}

	o.complete(runID)
	o.recordEvent(ctx, jobID, runID, "report", "run_completed", "", true)
}

func (o *Orchestrator) jobSnapshot(jobID string) (model.ComparisonJob, error) {
	snap := o.store.View()
	job, ok := snap.Jobs[jobID]
	if !ok {
		return model.ComparisonJob{}, errs.NotFound("job", jobID)
	}
	return job.Clone(), nil
}

func (o *Orchestrator) transitionToRunning(runID string) error {
	return o.store.Mutate(func(s *model.Snapshot) error {
		r, ok := s.Runs[runID]
		if !ok {
			return errs.NotFound("run", runID)
		}
		r.Status = model.RunRunning
		r.CurrentStage = "crawl"
		s.Runs[runID] = r
		return nil
	})
}

func (o *Orchestrator) fail(runID, reason string) {
	now := time.Now().UTC()
	_ = o.store.Mutate(func(s *model.Snapshot) error {
		r, ok := s.Runs[runID]
		if !ok || r.Status == model.RunFailed || r.Status == model.RunCompleted {
			return nil // already terminal, e.g. cancelled mid-stage
		}
		r.Status = model.RunFailed
		r.FailureReason = reason
		r.CompletedAt = &now
		s.Runs[runID] = r
		return nil
	})
	o.logger.Error("run failed", "run_id", runID, "reason", reason)
}

func (o *Orchestrator) complete(runID string) {
	now := time.Now().UTC()
	_ = o.store.Mutate(func(s *model.Snapshot) error {
		r, ok := s.Runs[runID]
		if !ok || r.Status == model.RunFailed || r.Status == model.RunCompleted {
			return nil
		}
		r.Status = model.RunCompleted
		r.CurrentStage = ""
		r.CompletedAt = &now
		s.Runs[runID] = r
		return nil
	})
	o.logger.Info("run completed", "run_id", runID)
}

// runContext carries the per-run shared resources of spec.md §4.3: the
// immutable job snapshot, and (once acquired) the two live browser
// contexts subsequent stages reuse.
type runContext struct {
	job     model.ComparisonJob
	runID   string
	logger  *slog.Logger
	baselineCtx  browser.Context
	candidateCtx browser.Context
	baselinePages  []model.PageDescriptor
	candidatePages []model.PageDescriptor
	matched        []model.MatchedPage
	captures       []capture.PageCapture
}

func (rc *runContext) closeContexts() {
	if rc.baselineCtx != nil {
		_ = rc.baselineCtx.Close()
	}
	if rc.candidateCtx != nil {
		_ = rc.candidateCtx.Close()
	}
}

// runCrawlAndCapture executes Crawl then Capture, both fatal on failure
// (spec.md §4.3).
func (o *Orchestrator) runCrawlAndCapture(ctx context.Context, rc *runContext) error {
	baselineCtx, candidateCtx, err := o.acquireContexts(ctx)
	if err != nil {
		return fmt.Errorf("acquire browser contexts: %w", err)
	}
	rc.baselineCtx = baselineCtx
	rc.candidateCtx = candidateCtx

	crawlCtx, cancel := context.WithTimeout(ctx, stageTimeout)
	defer cancel()

	baselinePages, err := o.stages.Crawl.Crawl(crawlCtx, baselineCtx, rc.job.BaselineURL, rc.job.CrawlConfig)
	if err != nil {
		return fmt.Errorf("crawl baseline: %w", err)
	}
	candidatePages, err := o.stages.Crawl.Crawl(crawlCtx, candidateCtx, rc.job.CandidateURL, rc.job.CrawlConfig)
	if err != nil {
		return fmt.Errorf("crawl candidate: %w", err)
	}
	rc.baselinePages, rc.candidatePages = baselinePages, candidatePages

	matched, _, _ := crawl.MatchPages(baselinePages, candidatePages, rc.job.PageMap)
	rc.matched = matched

	captureCtx, cancel2 := context.WithTimeout(ctx, stageTimeout)
	defer cancel2()
	captures, err := o.stages.Capture.Run(captureCtx, rc.runID, matched, baselineCtx, candidateCtx)
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	rc.captures = captures

	return nil
}

func (o *Orchestrator) acquireContexts(ctx context.Context) (browser.Context, browser.Context, error) {
	baselineCtx, err := o.driver.NewContext(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("new baseline context: %w", err)
	}
	candidateCtx, err := o.driver.NewContext(ctx)
	if err != nil {
		_ = baselineCtx.Close()
		return nil, nil, fmt.Errorf("new candidate context: %w", err)
	}
	return baselineCtx, candidateCtx, nil
}

// diffOutcome accumulates the non-fatal outcomes of the three concurrent
// diff stages (spec.md §4.3: a diff stage failure marks its reasoning
// slot unavailable rather than aborting the run).
type diffOutcome struct {
	visual         *visualdiff.Summary
	functional     *functionalOutcome
	dataIntegrity  *dataintegrity.Summary
}

type functionalOutcome struct {
	baseline  functional.Summary
	candidate functional.Summary
}

// runDiffStages runs Visual/Functional/Data concurrently, gated by the
// job's TestMatrix, committing each failure as a log artifact rather
// than aborting the run (spec.md §4.3, §4.10).
func (o *Orchestrator) runDiffStages(ctx context.Context, rc *runContext) diffOutcome {
	var out diffOutcome
	g, gctx := errgroup.WithContext(ctx)

	if rc.job.TestMatrix.Visual {
		g.Go(func() error {
			summary, err := o.stages.Visual.Run(rc.runID, rc.captures)
			if err != nil {
				o.logDiffFailure(rc.runID, "visual", err)
				return nil
			}
			out.visual = &summary
			return nil
		})
	}

	if rc.job.TestMatrix.Functional {
		g.Go(func() error {
			_, baselineSummary, err := o.stages.Functional.RunSide(gctx, rc.runID, "baseline", rc.baselinePages, rc.baselineCtx)
			if err != nil {
				o.logDiffFailure(rc.runID, "functional-baseline", err)
				return nil
			}
			_, candidateSummary, err := o.stages.Functional.RunSide(gctx, rc.runID, "candidate", rc.candidatePages, rc.candidateCtx)
			if err != nil {
				o.logDiffFailure(rc.runID, "functional-candidate", err)
				return nil
			}
			out.functional = &functionalOutcome{baseline: baselineSummary, candidate: candidateSummary}
			return nil
		})
	}

	if rc.job.TestMatrix.Data {
		g.Go(func() error {
			summary, err := o.stages.Data.Run(rc.runID, rc.captures)
			if err != nil {
				o.logDiffFailure(rc.runID, "data-integrity", err)
				return nil
			}
			out.dataIntegrity = &summary
			return nil
		})
	}

	_ = g.Wait() // errors are swallowed intentionally: each Go func handles its own
	return out
}

func (o *Orchestrator) logDiffFailure(runID, stage string, err error) {
	o.logger.Error("diff stage failed, marking unavailable", "run_id", runID, "stage", stage, "error", err)
	rel := fmt.Sprintf("%s/logs/%s-failure.log", runID, stage)
	if werr := o.store.WriteArtifactFile(rel, []byte(err.Error())); werr == nil {
		_, _ = o.store.RegisterArtifact(runID, model.ArtifactLog, fmt.Sprintf("%s stage failure", stage), rel)
	}
}

func (d diffOutcome) reasoningInput(totalPages int) reasoning.Input {
	in := reasoning.Input{TotalPages: totalPages}

	if d.visual != nil {
		critical := d.visual.CountBySeverity[visualdiff.SeverityCritical]
		in.Visual = &reasoning.VisualSummary{
			AverageDiffPct: d.visual.AverageDiffPct,
			CriticalIssues: critical,
			CountBySeverity: severityCountsToStrings(d.visual.CountBySeverity),
		}
	}
	if d.functional != nil {
		in.Functional = &reasoning.FunctionalSummary{
			TotalBrokenLinks: d.functional.baseline.TotalBrokenLinks + d.functional.candidate.TotalBrokenLinks,
			TotalJSErrors:    d.functional.baseline.TotalJSErrors + d.functional.candidate.TotalJSErrors,
			FormIssues:       d.functional.baseline.PagesWithFormIssues + d.functional.candidate.PagesWithFormIssues,
		}
	}
	if d.dataIntegrity != nil {
		critical := d.dataIntegrity.CountByStatus[dataintegrity.PageMismatch]
		totalDiffs := 0
		for _, p := range d.dataIntegrity.Pages {
			totalDiffs += len(p.Comparison.JSONDiffs)
			for _, td := range p.Comparison.TableDiffs {
				totalDiffs += len(td.Cells)
			}
		}
		in.DataIntegrity = &reasoning.DataIntegritySummary{
			AverageSimilarity:  d.dataIntegrity.AverageSimilarity,
			CriticalMismatches: critical,
			TotalFieldDiffs:    totalDiffs,
		}
	}
	return in
}

func severityCountsToStrings(counts map[visualdiff.Severity]int) map[string]int {
	out := make(map[string]int, len(counts))
	for k, v := range counts {
		out[string(k)] = v
	}
	return out
}

func (d diffOutcome) affectedPages() report.AffectedPages {
	affected := make(report.AffectedPages)
	if d.visual != nil {
		for _, p := range d.visual.Pages {
			if p.MaxSeverity != visualdiff.SeverityNone {
				affected[reasoning.CategoryVisual] = append(affected[reasoning.CategoryVisual], p.SanitizedPath)
			}
		}
	}
	if d.dataIntegrity != nil {
		for _, p := range d.dataIntegrity.Pages {
			if p.Comparison.Status != dataintegrity.PageMatch {
				affected[reasoning.CategoryDataIntegrity] = append(affected[reasoning.CategoryDataIntegrity], p.SanitizedPath)
			}
		}
	}
	return affected
}
