package reasoning

import (
	"context"
	"fmt"
)

// ruleBasedConfidence is the constant confidence spec.md §4.9 assigns to
// the deterministic fallback ("Confidence constant 0.7-0.8").
const ruleBasedConfidence = 0.75

// RuleBased is the deterministic fallback reasoner (spec.md §4.9). It
// never errors: every threshold has a defined branch.
type RuleBased struct{}

// NewRuleBased constructs the fallback reasoner.
func NewRuleBased() *RuleBased {
	return &RuleBased{}
}

// Reason classifies each category from fixed thresholds and rolls the
// result up to an overall severity via max.
func (r *RuleBased) Reason(_ context.Context, in Input) (Output, error) {
	var categories []CategoryRecord

	if in.Visual != nil {
		categories = append(categories, r.visual(*in.Visual))
	}
	if in.Functional != nil {
		categories = append(categories, r.functional(*in.Functional))
	}
	if in.DataIntegrity != nil {
		categories = append(categories, r.dataIntegrity(*in.DataIntegrity))
	}

	overall := r.overall(categories)
	return Output{Categories: categories, Overall: overall, Source: "rule-based"}, nil
}

func (r *RuleBased) visual(v VisualSummary) CategoryRecord {
	var sev Severity
	switch {
	case v.CriticalIssues > 0:
		sev = SeverityCritical
	case v.AverageDiffPct >= 20:
		sev = SeverityHigh
	case v.AverageDiffPct >= 10:
		sev = SeverityMedium
	case v.AverageDiffPct > 0:
		sev = SeverityLow
	default:
		sev = SeverityNone
	}
	return CategoryRecord{
		Category:    CategoryVisual,
		Severity:    sev,
		Confidence:  ruleBasedConfidence,
		Pass:        sev == SeverityNone || sev == SeverityLow,
		Explanation: fmt.Sprintf("average visual diff %.1f%% across pages, %d critical issue(s)", v.AverageDiffPct, v.CriticalIssues),
	}
}

func (r *RuleBased) functional(f FunctionalSummary) CategoryRecord {
	count := f.TotalBrokenLinks + f.TotalJSErrors
	sev := severityByCount(count, 1, 5, 10, 20)
	return CategoryRecord{
		Category:    CategoryFunctional,
		Severity:    sev,
		Confidence:  ruleBasedConfidence,
		Pass:        sev == SeverityNone || sev == SeverityLow,
		Explanation: fmt.Sprintf("%d broken link(s), %d JS error(s), %d form issue(s)", f.TotalBrokenLinks, f.TotalJSErrors, f.FormIssues),
	}
}

func (r *RuleBased) dataIntegrity(d DataIntegritySummary) CategoryRecord {
	var sev Severity
	switch {
	case d.CriticalMismatches > 0 || d.TotalFieldDiffs >= 50:
		sev = SeverityHigh
	case d.TotalFieldDiffs >= 20:
		sev = SeverityMedium
	case d.TotalFieldDiffs > 0:
		sev = SeverityLow
	default:
		sev = SeverityNone
	}
	return CategoryRecord{
		Category:    CategoryDataIntegrity,
		Severity:    sev,
		Confidence:  ruleBasedConfidence,
		Pass:        sev == SeverityNone || sev == SeverityLow,
		Explanation: fmt.Sprintf("average similarity %.2f, %d field diff(s), %d critical mismatch(es)", d.AverageSimilarity, d.TotalFieldDiffs, d.CriticalMismatches),
	}
}

// severityByCount classifies count against the ordered thresholds
// (low, medium, high, critical), per spec.md §4.9's "0/1/5/10/20" scale.
func severityByCount(count, low, medium, high, critical int) Severity {
	switch {
	case count >= critical:
		return SeverityCritical
	case count >= high:
		return SeverityHigh
	case count >= medium:
		return SeverityMedium
	case count >= low:
		return SeverityLow
	default:
		return SeverityNone
	}
}

func (r *RuleBased) overall(categories []CategoryRecord) Overall {
	max := SeverityNone
	pass := true
	for _, c := range categories {
		if severityRank(c.Severity) > severityRank(max) {
			max = c.Severity
		}
		if !c.Pass {
			pass = false
		}
	}
	return Overall{
		Severity:    max,
		Confidence:  ruleBasedConfidence,
		Pass:        pass,
		Explanation: fmt.Sprintf("overall severity %s derived from %d category record(s)", max, len(categories)),
	}
}

func severityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}
