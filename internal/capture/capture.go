package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"path"

	"golang.org/x/sync/errgroup"

	"github.com/vaibhav2411-dotcom/migrate-guard/internal/browser"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/model"
)

// Side identifies baseline or candidate within a capture.
type Side string

const (
	SideBaseline  Side = "baseline"
	SideCandidate Side = "candidate"
)

// ArtifactSink is the subset of storage.Store capture needs: write a file
// under the artifact root and register it against a run.
type ArtifactSink interface {
	WriteArtifactFile(relPath string, data []byte) error
	RegisterArtifact(runID string, typ model.ArtifactType, label, relPath string) (model.RunArtifact, error)
}

// ViewportCapture is the evidence recorded for one (side, page, viewport).
type ViewportCapture struct {
	Viewport        browser.Viewport        `json:"viewport"`
	FinalURL        string                  `json:"finalUrl"`
	Status          int                     `json:"status"`
	LoadTimeMS      int64                   `json:"loadTimeMs"`
	ScreenshotPath  string                  `json:"screenshotPath"`
	HTMLPath        string                  `json:"htmlPath"`
	VisibleText     string                  `json:"visibleText"`
	Console         []browser.ConsoleMessage `json:"console"`
	NetworkRequests []browser.NetworkRequest `json:"networkRequests"`
	NetworkResponses []browser.NetworkResponse `json:"networkResponses"`
}

// PageCapture is every viewport's evidence for one page on one side.
type PageCapture struct {
	Side       Side              `json:"side"`
	PageURL    string            `json:"pageUrl"`
	SanitizedPath string         `json:"sanitizedPath"`
	Viewports  []ViewportCapture `json:"viewports"`
}

// Stage runs the capture step for every matched page across both sites.
type Stage struct {
	sink      ArtifactSink
	viewports []browser.Viewport
	logger    *slog.Logger
}

// New constructs a capture Stage.
func New(sink ArtifactSink, viewports []browser.Viewport, logger *slog.Logger) *Stage {
	if len(viewports) == 0 {
		viewports = browser.DefaultViewports()
	}
	return &Stage{sink: sink, viewports: viewports, logger: logger}
}

// Run captures baseline then candidate (spec.md §4.5 ordering guarantee)
// for every matched page, registering all evidence as artifacts under
// data/artifacts/{runId}/{baseline|candidate}/{sanitizedPath}/….
func (s *Stage) Run(ctx context.Context, runID string, pages []model.MatchedPage, baselineCtx, candidateCtx browser.Context) ([]PageCapture, error) {
	var results []PageCapture

	for _, mp := range pages {
		baseline, err := s.capturePage(ctx, runID, SideBaseline, mp.Baseline.URL, baselineCtx)
		if err != nil {
			return results, fmt.Errorf("capture: baseline %s: %w", mp.Baseline.URL, err)
		}
		results = append(results, baseline)

		candidate, err := s.capturePage(ctx, runID, SideCandidate, mp.Candidate.URL, candidateCtx)
		if err != nil {
			return results, fmt.Errorf("capture: candidate %s: %w", mp.Candidate.URL, err)
		}
		results = append(results, candidate)
	}

	return results, nil
}

func (s *Stage) capturePage(ctx context.Context, runID string, side Side, pageURL string, bctx browser.Context) (PageCapture, error) {
	sanitized := SanitizePath(urlPathOnly(pageURL))
	capture := PageCapture{Side: side, PageURL: pageURL, SanitizedPath: sanitized}

	viewportResults := make([]ViewportCapture, len(s.viewports))
	g, gctx := errgroup.WithContext(ctx)
	for i, vp := range s.viewports {
		i, vp := i, vp
		g.Go(func() error {
			vc, err := s.captureViewport(gctx, runID, side, pageURL, sanitized, vp, bctx)
			if err != nil {
				return err
			}
			viewportResults[i] = vc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return capture, err
	}
	capture.Viewports = viewportResults
	return capture, nil
}

func (s *Stage) captureViewport(ctx context.Context, runID string, side Side, pageURL, sanitized string, vp browser.Viewport, bctx browser.Context) (ViewportCapture, error) {
	page, err := bctx.OpenPage(ctx, false)
	if err != nil {
		return ViewportCapture{}, err
	}
	defer page.Close()

	nav, err := page.Navigate(ctx, pageURL, vp)
	if err != nil {
		return ViewportCapture{}, err
	}

	shot, err := page.Screenshot(ctx)
	if err != nil {
		return ViewportCapture{}, err
	}
	fullHTML, err := page.FullHTML(ctx)
	if err != nil {
		return ViewportCapture{}, err
	}
	visibleText, err := page.VisibleText(ctx)
	if err != nil {
		return ViewportCapture{}, err
	}

	base := path.Join(string(side), sanitized, vp.Name)
	screenshotRel := path.Join(runID, base+".png")
	htmlRel := path.Join(runID, base+".html")

	if err := s.sink.WriteArtifactFile(screenshotRel, shot); err != nil {
		return ViewportCapture{}, err
	}
	if _, err := s.sink.RegisterArtifact(runID, model.ArtifactScreenshot, fmt.Sprintf("%s %s %s screenshot", side, sanitized, vp.Name), screenshotRel); err != nil {
		return ViewportCapture{}, err
	}

	if err := s.sink.WriteArtifactFile(htmlRel, []byte(fullHTML)); err != nil {
		return ViewportCapture{}, err
	}
	if _, err := s.sink.RegisterArtifact(runID, model.ArtifactOther, fmt.Sprintf("%s %s %s snapshot.html", side, sanitized, vp.Name), htmlRel); err != nil {
		return ViewportCapture{}, err
	}

	vc := ViewportCapture{
		Viewport:         vp,
		FinalURL:         nav.FinalURL,
		Status:           nav.Status,
		LoadTimeMS:       nav.LoadTimeMS,
		ScreenshotPath:   screenshotRel,
		HTMLPath:         htmlRel,
		VisibleText:      visibleText,
		Console:          page.ConsoleMessages(),
		NetworkRequests:  page.NetworkRequests(),
		NetworkResponses: page.NetworkResponses(),
	}

	metaRel := path.Join(runID, base+".meta.json")
	metaJSON, err := json.MarshalIndent(vc, "", "  ")
	if err == nil {
		if err := s.sink.WriteArtifactFile(metaRel, metaJSON); err == nil {
			_, _ = s.sink.RegisterArtifact(runID, model.ArtifactOther, fmt.Sprintf("%s %s %s metadata", side, sanitized, vp.Name), metaRel)
		}
	}

	return vc, nil
}

func urlPathOnly(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}
