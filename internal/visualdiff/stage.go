package visualdiff

import (
	"fmt"
	"path"

	"github.com/vaibhav2411-dotcom/migrate-guard/internal/capture"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/model"
)

// ArtifactSink is the subset of storage.Store the stage needs.
type ArtifactSink interface {
	WriteArtifactFile(relPath string, data []byte) error
	RegisterArtifact(runID string, typ model.ArtifactType, label, relPath string) (model.RunArtifact, error)
}

// PageResult is the per-page rollup: maximum severity across viewports
// (spec.md §4.6 "aggregate per page as the maximum severity across
// viewports").
type PageResult struct {
	SanitizedPath string       `json:"sanitizedPath"`
	ByViewport    map[string]PairResult `json:"byViewport"`
	MaxSeverity   Severity     `json:"maxSeverity"`
}

// Summary is the per-run rollup (spec.md §4.6).
type Summary struct {
	Pages           []PageResult       `json:"pages"`
	CountBySeverity map[Severity]int   `json:"countBySeverity"`
	AverageDiffPct  float64            `json:"averageDiffPct"`
	PagesWithDiffs  int                `json:"pagesWithDiffs"`
}

// Stage runs the visual diff comparison across every captured page pair.
type Stage struct {
	sink ArtifactSink
	opts Options
}

// New constructs a visual diff Stage.
func New(sink ArtifactSink, opts Options) *Stage {
	return &Stage{sink: sink, opts: opts}
}

// Run compares baseline vs candidate screenshots for every viewport of
// every captured page. captures must contain exactly one baseline and one
// candidate capture.PageCapture per matched page, as produced by
// capture.Stage.Run.
func (s *Stage) Run(runID string, captures []capture.PageCapture) (Summary, error) {
	pairs := pairBySanitizedPath(captures)

	summary := Summary{CountBySeverity: map[Severity]int{}}
	var totalDiff float64
	var totalViewports int

	for sanitized, pair := range pairs {
		pr := PageResult{SanitizedPath: sanitized, ByViewport: map[string]PairResult{}}
		pageMaxSeverity := SeverityNone

		for _, bvp := range pair.baseline.Viewports {
			cvp := findViewport(pair.candidate.Viewports, bvp.Viewport.Name)
			if cvp == nil {
				continue
			}

			baselinePNG, err := s.loadScreenshot(bvp.ScreenshotPath)
			if err != nil {
				continue
			}
			candidatePNG, err := s.loadScreenshot(cvp.ScreenshotPath)
			if err != nil {
				continue
			}

			result, err := Compare(baselinePNG, candidatePNG, s.opts)
			if err != nil {
				continue
			}

			diffRel := path.Join(runID, "visual-diffs", sanitized, bvp.Viewport.Name+".diff.png")
			heatRel := path.Join(runID, "visual-diffs", sanitized, bvp.Viewport.Name+".heatmap.png")
			_ = s.sink.WriteArtifactFile(diffRel, result.DiffPNG)
			_, _ = s.sink.RegisterArtifact(runID, model.ArtifactOther, fmt.Sprintf("%s %s diff", sanitized, bvp.Viewport.Name), diffRel)
			_ = s.sink.WriteArtifactFile(heatRel, result.HeatmapPNG)
			_, _ = s.sink.RegisterArtifact(runID, model.ArtifactOther, fmt.Sprintf("%s %s heatmap", sanitized, bvp.Viewport.Name), heatRel)

			pr.ByViewport[bvp.Viewport.Name] = result
			pageMaxSeverity = MaxSeverity(pageMaxSeverity, result.Severity)
			totalDiff += result.DiffRatio
			totalViewports++
		}

		pr.MaxSeverity = pageMaxSeverity
		summary.Pages = append(summary.Pages, pr)
		summary.CountBySeverity[pageMaxSeverity]++
		if pageMaxSeverity != SeverityNone {
			summary.PagesWithDiffs++
		}
	}

	if totalViewports > 0 {
		summary.AverageDiffPct = totalDiff / float64(totalViewports) * 100
	}

	return summary, nil
}

type capturePair struct {
	baseline  capture.PageCapture
	candidate capture.PageCapture
}

func pairBySanitizedPath(captures []capture.PageCapture) map[string]capturePair {
	out := map[string]capturePair{}
	for _, c := range captures {
		entry := out[c.SanitizedPath]
		if c.Side == capture.SideBaseline {
			entry.baseline = c
		} else {
			entry.candidate = c
		}
		out[c.SanitizedPath] = entry
	}
	return out
}

func findViewport(vcs []capture.ViewportCapture, name string) *capture.ViewportCapture {
	for i := range vcs {
		if vcs[i].Viewport.Name == name {
			return &vcs[i]
		}
	}
	return nil
}

// loadScreenshot reads a screenshot back from the artifact root the
// capture stage wrote it to.
func (s *Stage) loadScreenshot(relPath string) ([]byte, error) {
	reader, ok := s.sink.(ScreenshotReader)
	if !ok {
		return nil, fmt.Errorf("visualdiff: sink does not support reading artifacts back")
	}
	return reader.ReadArtifactFile(relPath)
}

// ScreenshotReader is implemented by storage.Store to let the visual diff
// stage read back screenshots the capture stage wrote.
type ScreenshotReader interface {
	ReadArtifactFile(relPath string) ([]byte, error)
}
