package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaibhav2411-dotcom/migrate-guard/internal/reasoning"
)

func TestBuildGoDecisionWhenAllPass(t *testing.T) {
	out := reasoning.Output{
		Categories: []reasoning.CategoryRecord{
			{Category: reasoning.CategoryVisual, Severity: reasoning.SeverityNone, Pass: true},
			{Category: reasoning.CategoryFunctional, Severity: reasoning.SeverityLow, Pass: true},
		},
		Overall: reasoning.Overall{Severity: reasoning.SeverityLow, Pass: true},
		Source:  "rule-based",
	}

	r := Build("run_1", out, 10, nil)
	assert.Equal(t, DecisionGo, r.ExecutiveSummary.Decision)
	assert.Empty(t, r.Findings)
	assert.Equal(t, 1.0, r.ExecutiveSummary.PassRate)
}

func TestBuildNoGoOnCriticalSeverity(t *testing.T) {
	out := reasoning.Output{
		Categories: []reasoning.CategoryRecord{
			{Category: reasoning.CategoryDataIntegrity, Severity: reasoning.SeverityCritical, Pass: false, Explanation: "pricing mismatch on 5 pages"},
		},
		Overall: reasoning.Overall{Severity: reasoning.SeverityCritical, Pass: false},
		Source:  "rule-based",
	}

	r := Build("run_2", out, 5, AffectedPages{reasoning.CategoryDataIntegrity: {"/pricing"}})
	require.Len(t, r.Findings, 1)
	assert.Equal(t, DecisionNoGo, r.ExecutiveSummary.Decision)
	assert.Equal(t, 1, r.ExecutiveSummary.CriticalIssues)
	assert.Equal(t, []string{"/pricing"}, r.Findings[0].AffectedPages)
}

func TestBuildNoGoWhenReasoningEmpty(t *testing.T) {
	r := Build("run_3", reasoning.Output{}, 0, nil)
	assert.Equal(t, DecisionNoGo, r.ExecutiveSummary.Decision, "an empty reasoning output must never be reported as safe to ship")
}

func TestBuildConditionalOnModerateRisk(t *testing.T) {
	out := reasoning.Output{
		Categories: []reasoning.CategoryRecord{
			{Category: reasoning.CategoryVisual, Severity: reasoning.SeverityMedium, Pass: true, Explanation: "moderate diff on homepage, within tolerance"},
		},
		Overall: reasoning.Overall{Severity: reasoning.SeverityMedium, Pass: true},
		Source:  "rule-based",
	}

	r := Build("run_4", out, 8, nil)
	assert.Equal(t, DecisionConditional, r.ExecutiveSummary.Decision)
	assert.Equal(t, 50, r.OverallRiskScore)
}

func TestBuildNoGoWhenOverallPassFalseRegardlessOfSeverity(t *testing.T) {
	out := reasoning.Output{
		Categories: []reasoning.CategoryRecord{
			{Category: reasoning.CategoryVisual, Severity: reasoning.SeverityMedium, Pass: false, Explanation: "moderate diff on homepage"},
		},
		Overall: reasoning.Overall{Severity: reasoning.SeverityMedium, Pass: false},
		Source:  "rule-based",
	}

	r := Build("run_5", out, 8, nil)
	assert.Equal(t, DecisionNoGo, r.ExecutiveSummary.Decision, "the reasoner's overall pass:false must force no-go even below the risk-score threshold")
}

func TestNarrativeReflectsActualRiskScore(t *testing.T) {
	// Regression guard: narrativeFor must use the freshly computed risk
	// score and critical count, not a not-yet-populated ExecutiveSummary.
	narrative := narrativeFor(DecisionNoGo, 90, 2, 12)
	assert.Contains(t, narrative, "90/100")
	assert.Contains(t, narrative, "2 critical")
}
