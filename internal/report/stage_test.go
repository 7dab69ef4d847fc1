package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaibhav2411-dotcom/migrate-guard/internal/model"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/reasoning"
)

type memSink struct {
	files     map[string][]byte
	artifacts int
}

func newMemSink() *memSink {
	return &memSink{files: map[string][]byte{}}
}

func (s *memSink) WriteArtifactFile(relPath string, data []byte) error {
	s.files[relPath] = data
	return nil
}

func (s *memSink) RegisterArtifact(runID string, typ model.ArtifactType, label, relPath string) (model.RunArtifact, error) {
	s.artifacts++
	return model.RunArtifact{ID: relPath, RunID: runID, Type: typ, Label: label, Path: relPath}, nil
}

func TestStageRunWritesJSONAndMarkdownArtifacts(t *testing.T) {
	sink := newMemSink()
	stage := New(sink)

	out := reasoning.Output{
		Categories: []reasoning.CategoryRecord{
			{Category: reasoning.CategoryVisual, Severity: reasoning.SeverityNone, Pass: true},
		},
		Overall: reasoning.Overall{Severity: reasoning.SeverityNone, Pass: true},
		Source:  "rule-based",
	}

	r, err := stage.Run("run_1", out, 4, nil)
	require.NoError(t, err)
	assert.Equal(t, DecisionGo, r.ExecutiveSummary.Decision)

	jsonData, ok := sink.files["run_1/reports/report.json"]
	require.True(t, ok, "report.json must be written under the run's reports/ directory")
	assert.Contains(t, string(jsonData), `"decision"`)

	mdData, ok := sink.files["run_1/reports/report.md"]
	require.True(t, ok, "report.md must be written under the run's reports/ directory")
	assert.NotEmpty(t, mdData)

	assert.Equal(t, 2, sink.artifacts, "both the JSON and Markdown renderings are registered as artifacts")
}
