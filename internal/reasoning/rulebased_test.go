package reasoning

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleBasedNoInputsYieldsEmptyOverall(t *testing.T) {
	out, err := NewRuleBased().Reason(context.Background(), Input{TotalPages: 3})
	require.NoError(t, err)
	assert.Empty(t, out.Categories)
	assert.Equal(t, SeverityNone, out.Overall.Severity)
	assert.True(t, out.Overall.Pass)
	assert.Equal(t, "rule-based", out.Source)
}

func TestRuleBasedVisualCriticalOverridesPercentage(t *testing.T) {
	out, err := NewRuleBased().Reason(context.Background(), Input{
		Visual: &VisualSummary{AverageDiffPct: 1, CriticalIssues: 1},
	})
	require.NoError(t, err)
	require.Len(t, out.Categories, 1)
	assert.Equal(t, SeverityCritical, out.Categories[0].Severity)
	assert.False(t, out.Categories[0].Pass)
	assert.Equal(t, SeverityCritical, out.Overall.Severity)
	assert.False(t, out.Overall.Pass)
}

func TestRuleBasedOverallTakesMaxAcrossCategories(t *testing.T) {
	out, err := NewRuleBased().Reason(context.Background(), Input{
		Visual:        &VisualSummary{AverageDiffPct: 2}, // low
		Functional:    &FunctionalSummary{TotalBrokenLinks: 15},
		DataIntegrity: &DataIntegritySummary{TotalFieldDiffs: 2}, // low
	})
	require.NoError(t, err)
	require.Len(t, out.Categories, 3)
	assert.Equal(t, SeverityHigh, out.Overall.Severity, "15 broken links crosses the high threshold and must dominate the rollup")
}

func TestRuleBasedNeverErrors(t *testing.T) {
	_, err := NewRuleBased().Reason(context.Background(), Input{})
	assert.NoError(t, err)
}

type stubReasoner struct {
	out Output
	err error
}

func (s stubReasoner) Reason(context.Context, Input) (Output, error) {
	return s.out, s.err
}

func TestWithFallbackUsesPrimaryOnSuccess(t *testing.T) {
	primary := stubReasoner{out: Output{Source: "llm"}}
	fallback := NewRuleBased()

	wf := NewWithFallback(primary, fallback, nil)
	out, err := wf.Reason(context.Background(), Input{})
	require.NoError(t, err)
	assert.Equal(t, "llm", out.Source)
}

func TestWithFallbackFallsBackOnPrimaryError(t *testing.T) {
	primary := stubReasoner{err: errors.New("anthropic timeout")}
	fallback := NewRuleBased()

	wf := NewWithFallback(primary, fallback, nil)
	out, err := wf.Reason(context.Background(), Input{Visual: &VisualSummary{AverageDiffPct: 1}})
	require.NoError(t, err)
	assert.Equal(t, "rule-based", out.Source)
}
