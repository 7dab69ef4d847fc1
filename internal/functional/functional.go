// Package functional implements the Functional QA stage of spec.md §4.7:
// navigation, form-fill heuristics, broken-link detection, JS error
// capture, and HAR generation, for each matched page on each side.
package functional

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/vaibhav2411-dotcom/migrate-guard/internal/browser"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/model"
)

// SubmitOutcome classifies a form submission attempt (spec.md §4.7).
type SubmitOutcome string

const (
	SubmitSuccess           SubmitOutcome = "success"
	SubmitNoResponse        SubmitOutcome = "submitted-no-response"
	SubmitError             SubmitOutcome = "error"
)

// FormResult is the outcome of exercising one form.
type FormResult struct {
	Selector string        `json:"selector"`
	Outcome  SubmitOutcome `json:"outcome"`
	Detail   string        `json:"detail,omitempty"`
}

// BrokenLink is one same-origin anchor whose probe failed (spec.md §4.7).
type BrokenLink struct {
	Href   string `json:"href"`
	Status int    `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// JSError is one console error / uncaught exception (spec.md §4.7).
type JSError struct {
	Source    string    `json:"source,omitempty"`
	Line      int       `json:"line,omitempty"`
	Column    int       `json:"column,omitempty"`
	Stack     string    `json:"stack,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// PageResult is the per-page functional QA outcome on one side.
type PageResult struct {
	PageURL      string       `json:"pageUrl"`
	FinalStatus  int          `json:"finalStatus"`
	RedirectURLs []string     `json:"redirectUrls,omitempty"`
	LoadTimeMS   int64        `json:"loadTimeMs"`
	Forms        []FormResult `json:"forms"`
	BrokenLinks  []BrokenLink `json:"brokenLinks"`
	JSErrors     []JSError    `json:"jsErrors"`
	HAR          HAR          `json:"-"`
}

// Summary is the per-side rollup (spec.md §4.7).
type Summary struct {
	PagesWithNavigationIssues int `json:"pagesWithNavigationIssues"`
	PagesWithFormIssues       int `json:"pagesWithFormIssues"`
	TotalBrokenLinks          int `json:"totalBrokenLinks"`
	TotalJSErrors             int `json:"totalJsErrors"`
	PagesWithJSErrors         int `json:"pagesWithJsErrors"`
}

var anchorSkipSchemes = regexp.MustCompile(`^(mailto:|tel:|javascript:|#)`)

// ArtifactSink is the subset of storage.Store the stage needs.
type ArtifactSink interface {
	WriteArtifactFile(relPath string, data []byte) error
	RegisterArtifact(runID string, typ model.ArtifactType, label, relPath string) (model.RunArtifact, error)
}

// Stage runs the functional QA pass.
type Stage struct {
	sink ArtifactSink
}

// New constructs a functional QA Stage.
func New(sink ArtifactSink) *Stage {
	return &Stage{sink: sink}
}

// RunSide exercises every matched page on one side (baseline or
// candidate), returning per-page results and the side summary.
func (s *Stage) RunSide(ctx context.Context, runID, side string, pages []model.PageDescriptor, bctx browser.Context) ([]PageResult, Summary, error) {
	var results []PageResult
	summary := Summary{}

	for _, pd := range pages {
		pr, err := s.runPage(ctx, runID, side, pd, bctx)
		if err != nil {
			return results, summary, fmt.Errorf("functional: %s %s: %w", side, pd.URL, err)
		}
		results = append(results, pr)

		if pr.FinalStatus >= 400 {
			summary.PagesWithNavigationIssues++
		}
		hasFormIssue := false
		for _, f := range pr.Forms {
			if f.Outcome != SubmitSuccess {
				hasFormIssue = true
			}
		}
		if hasFormIssue {
			summary.PagesWithFormIssues++
		}
		summary.TotalBrokenLinks += len(pr.BrokenLinks)
		summary.TotalJSErrors += len(pr.JSErrors)
		if len(pr.JSErrors) > 0 {
			summary.PagesWithJSErrors++
		}

		harBytes, err := BuildOrFallbackHAR(pr)
		if err == nil {
			sanitized := sanitizeForHAR(pd.URL)
			rel := path.Join(runID, "har", side, sanitized+".har")
			if werr := s.sink.WriteArtifactFile(rel, harBytes); werr == nil {
				_, _ = s.sink.RegisterArtifact(runID, model.ArtifactOther, fmt.Sprintf("%s %s HAR", side, sanitized), rel)
			}
		}
	}

	return results, summary, nil
}

func (s *Stage) runPage(ctx context.Context, runID, side string, pd model.PageDescriptor, bctx browser.Context) (PageResult, error) {
	page, err := bctx.OpenPage(ctx, false)
	if err != nil {
		return PageResult{}, err
	}
	defer page.Close()

	nav, err := page.Navigate(ctx, pd.URL, browser.Viewport{Name: "functional", Width: 1280, Height: 800})
	if err != nil {
		return PageResult{}, err
	}

	result := PageResult{
		PageURL:     pd.URL,
		FinalStatus: nav.Status,
		LoadTimeMS:  nav.LoadTimeMS,
	}

	result.Forms = exerciseForms(ctx, page)
	result.BrokenLinks = probeLinks(ctx, page, pd.Links, pd.URL)
	result.JSErrors = collectJSErrors(page)
	result.HAR = buildHAR(result, page)

	return result, nil
}

func collectJSErrors(page browser.Page) []JSError {
	var out []JSError
	for _, c := range page.ConsoleMessages() {
		if c.Type != "error" {
			continue
		}
		out = append(out, JSError{
			Source:    c.Source,
			Line:      c.Line,
			Column:    c.Column,
			Stack:     c.Stack,
			Message:   c.Text,
			Timestamp: c.Timestamp,
		})
	}
	return out
}

func sanitizeForHAR(rawURL string) string {
	s := strings.NewReplacer("/", "-", ":", "_", "?", "_").Replace(rawURL)
	if s == "" {
		return "index"
	}
	return s
}
