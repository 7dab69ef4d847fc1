package dataintegrity

import (
	"encoding/json"
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

// PageComparison pairs one matched page's comparison with its sanitized
// path, for reporting.
type PageComparison struct {
	SanitizedPath string     `json:"sanitizedPath"`
	PageURL       string     `json:"pageUrl"`
	Comparison    Comparison `json:"comparison"`
}

// Summary is the run-level data-integrity rollup.
type Summary struct {
	Pages            []PageComparison `json:"pages"`
	CountByStatus    map[PageStatus]int `json:"countByStatus"`
	AverageSimilarity float64          `json:"averageSimilarity"`
}

// Stage runs the data-integrity comparison pass.
type Stage struct {
	sink ArtifactSink
}

// New constructs a data-integrity Stage.
func New(sink ArtifactSink) *Stage {
	return &Stage{sink: sink}
}

// Run extracts and compares baseline/candidate HTML for every captured
// page pair, writing one comparison artifact per page (spec.md §4.8).
func (s *Stage) Run(runID string, captures []capture.PageCapture) (Summary, error) {
	pairs := pairBySanitizedPath(captures)

	summary := Summary{CountByStatus: make(map[PageStatus]int)}
	var totalSimilarity float64
	var pageCount int

	for sanitizedPath, pair := range pairs {
		if pair.baseline == nil || pair.candidate == nil {
			continue
		}

		bHTML, err := s.loadHTML(pair.baseline)
		if err != nil {
			return summary, fmt.Errorf("dataintegrity: load baseline html %s: %w", sanitizedPath, err)
		}
		cHTML, err := s.loadHTML(pair.candidate)
		if err != nil {
			return summary, fmt.Errorf("dataintegrity: load candidate html %s: %w", sanitizedPath, err)
		}

		bEx, err := Extract(bHTML)
		if err != nil {
			return summary, fmt.Errorf("dataintegrity: extract baseline %s: %w", sanitizedPath, err)
		}
		cEx, err := Extract(cHTML)
		if err != nil {
			return summary, fmt.Errorf("dataintegrity: extract candidate %s: %w", sanitizedPath, err)
		}

		comparison := Compare(bEx, cEx)
		pc := PageComparison{
			SanitizedPath: sanitizedPath,
			PageURL:       pair.baseline.PageURL,
			Comparison:    comparison,
		}
		summary.Pages = append(summary.Pages, pc)
		summary.CountByStatus[comparison.Status]++
		totalSimilarity += comparison.TextSimilarity
		pageCount++

		if data, err := json.MarshalIndent(pc, "", "  "); err == nil {
			rel := path.Join(runID, "dataintegrity", sanitizedPath+".json")
			if werr := s.sink.WriteArtifactFile(rel, data); werr == nil {
				_, _ = s.sink.RegisterArtifact(runID, model.ArtifactOther, fmt.Sprintf("%s data integrity", sanitizedPath), rel)
			}
		}
	}

	if pageCount > 0 {
		summary.AverageSimilarity = totalSimilarity / float64(pageCount)
	}
	return summary, nil
}

type capturePair struct {
	baseline, candidate *capture.PageCapture
}

func pairBySanitizedPath(captures []capture.PageCapture) map[string]capturePair {
	pairs := make(map[string]capturePair)
	for i := range captures {
		c := &captures[i]
		p := pairs[c.SanitizedPath]
		switch c.Side {
		case capture.SideBaseline:
			p.baseline = c
		case capture.SideCandidate:
			p.candidate = c
		}
		pairs[c.SanitizedPath] = p
	}
	return pairs
}

// loadHTML reads back the desktop-viewport HTML snapshot written during
// capture, as the DOM-extraction reference document for the page.
func (s *Stage) loadHTML(pc *capture.PageCapture) (string, error) {
	reader, ok := s.sink.(HTMLReader)
	if !ok {
		return "", fmt.Errorf("dataintegrity: sink does not support reading artifacts back")
	}
	if len(pc.Viewports) == 0 {
		return "", fmt.Errorf("dataintegrity: no viewport captures for %s", pc.SanitizedPath)
	}

	vc := pc.Viewports[0]
	for _, v := range pc.Viewports {
		if v.Viewport.Name == "desktop" {
			vc = v
			break
		}
	}

	data, err := reader.ReadArtifactFile(vc.HTMLPath)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// HTMLReader is the artifact-read capability the stage needs beyond
// ArtifactSink, mirroring visualdiff's ScreenshotReader.
type HTMLReader interface {
	ReadArtifactFile(relPath string) ([]byte, error)
}
