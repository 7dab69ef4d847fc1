package report

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaibhav2411-dotcom/migrate-guard/internal/reasoning"
)

func TestRenderJSONRoundTrips(t *testing.T) {
	r := Build("run_5", reasoning.Output{Source: "rule-based"}, 4, nil)

	data, err := RenderJSON(r)
	require.NoError(t, err)

	var decoded Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, r.RunID, decoded.RunID)
}

func TestRenderMarkdownIncludesDecisionAndFindings(t *testing.T) {
	out := reasoning.Output{
		Categories: []reasoning.CategoryRecord{
			{Category: reasoning.CategoryVisual, Severity: reasoning.SeverityCritical, Pass: false, Explanation: "homepage layout broken"},
		},
		Overall: reasoning.Overall{Severity: reasoning.SeverityCritical, Pass: false},
		Source:  "rule-based",
	}
	r := Build("run_6", out, 6, AffectedPages{reasoning.CategoryVisual: {"/"}})

	md := string(RenderMarkdown(r))
	assert.Contains(t, md, "NO-GO")
	assert.Contains(t, md, "regressions detected")
	assert.Contains(t, md, "/")
}
