package report

import (
	"fmt"
	"path"

	"github.com/vaibhav2411-dotcom/migrate-guard/internal/model"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/reasoning"
)

// ArtifactSink is the subset of storage.Store the stage needs.
type ArtifactSink interface {
	WriteArtifactFile(relPath string, data []byte) error
	RegisterArtifact(runID string, typ model.ArtifactType, label, relPath string) (model.RunArtifact, error)
}

// Stage renders and registers the final report artifacts for a run
// (spec.md §4.9).
type Stage struct {
	sink ArtifactSink
}

// New constructs a report Stage.
func New(sink ArtifactSink) *Stage {
	return &Stage{sink: sink}
}

// Run builds a Report from the reasoning output and writes the JSON and
// Markdown documents under reports/ (spec.md §4.9's fixed layout).
func (s *Stage) Run(runID string, out reasoning.Output, pagesTested int, affected AffectedPages) (Report, error) {
	r := Build(runID, out, pagesTested, affected)

	jsonData, err := RenderJSON(r)
	if err != nil {
		return r, fmt.Errorf("report: render json: %w", err)
	}
	jsonRel := path.Join(runID, "reports", "report.json")
	if err := s.sink.WriteArtifactFile(jsonRel, jsonData); err != nil {
		return r, fmt.Errorf("report: write json: %w", err)
	}
	if _, err := s.sink.RegisterArtifact(runID, model.ArtifactReport, "Report (JSON)", jsonRel); err != nil {
		return r, fmt.Errorf("report: register json artifact: %w", err)
	}

	mdData := RenderMarkdown(r)
	mdRel := path.Join(runID, "reports", "report.md")
	if err := s.sink.WriteArtifactFile(mdRel, mdData); err != nil {
		return r, fmt.Errorf("report: write markdown: %w", err)
	}
	if _, err := s.sink.RegisterArtifact(runID, model.ArtifactReport, "Report (Markdown)", mdRel); err != nil {
		return r, fmt.Errorf("report: register markdown artifact: %w", err)
	}

	return r, nil
}
