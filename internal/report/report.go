// Package report implements the Report stage of spec.md §4.9: a risk
// score, technical findings, and an executive Go/No-Go summary derived
// from the reasoning pass output, rendered as JSON and Markdown
// artifacts under data/artifacts/{runId}/reports/.
package report

import (
	"fmt"

	"github.com/vaibhav2411-dotcom/migrate-guard/internal/reasoning"
)

// Decision is the report's deployment recommendation (spec.md §4.9).
type Decision string

const (
	DecisionGo          Decision = "go"
	DecisionConditional Decision = "conditional"
	DecisionNoGo        Decision = "no-go"
)

// severityScore maps a severity to its 0-100 risk contribution
// (spec.md §4.9: "severity mapped to {0,25,50,75,100}").
var severityScore = map[reasoning.Severity]int{
	reasoning.SeverityNone:     0,
	reasoning.SeverityLow:      25,
	reasoning.SeverityMedium:   50,
	reasoning.SeverityHigh:     75,
	reasoning.SeverityCritical: 100,
}

// CategoryRisk is one category's risk-score contribution.
type CategoryRisk struct {
	Category reasoning.Category `json:"category"`
	Severity reasoning.Severity `json:"severity"`
	Score    int                `json:"score"`
}

// Finding is one technical finding for a failing category (spec.md §4.9).
type Finding struct {
	Title          string             `json:"title"`
	Category       reasoning.Category `json:"category"`
	Severity       reasoning.Severity `json:"severity"`
	Impact         string             `json:"impact"`
	Recommendation string             `json:"recommendation"`
	AffectedPages  []string           `json:"affectedPages,omitempty"`
	Evidence       string             `json:"evidence"`
}

// ExecutiveSummary is the report's top-line metrics and decision.
type ExecutiveSummary struct {
	PagesTested    int      `json:"pagesTested"`
	IssuesFound    int      `json:"issuesFound"`
	CriticalIssues int      `json:"criticalIssues"`
	PassRate       float64  `json:"passRate"`
	Decision       Decision `json:"decision"`
	Narrative      string   `json:"narrative"`
}

// Report is the full report document for one run.
type Report struct {
	RunID            string            `json:"runId"`
	OverallRiskScore int               `json:"overallRiskScore"`
	CategoryRisks    []CategoryRisk    `json:"categoryRisks"`
	Findings         []Finding         `json:"findings"`
	ExecutiveSummary ExecutiveSummary  `json:"executiveSummary"`
	Reasoning        reasoning.Output  `json:"reasoning"`
}

// AffectedPages collects, per category, the sanitized page paths the
// report should cite as evidence; the pipeline supplies these from the
// diff stages' own outputs since reasoning.Output carries no page list.
type AffectedPages map[reasoning.Category][]string

// Build synthesizes a Report from a reasoning pass output and the raw
// page-test counts (spec.md §4.9).
func Build(runID string, out reasoning.Output, pagesTested int, affected AffectedPages) Report {
	r := Report{RunID: runID, Reasoning: out}

	var sum int
	for _, cat := range out.Categories {
		score := severityScore[cat.Severity]
		r.CategoryRisks = append(r.CategoryRisks, CategoryRisk{
			Category: cat.Category,
			Severity: cat.Severity,
			Score:    score,
		})
		sum += score

		if !cat.Pass {
			r.Findings = append(r.Findings, buildFinding(cat, affected[cat.Category]))
		}
	}
	if len(out.Categories) > 0 {
		r.OverallRiskScore = sum / len(out.Categories)
	}

	r.ExecutiveSummary = buildExecutiveSummary(r, out, pagesTested)
	return r
}

func buildFinding(cat reasoning.CategoryRecord, pages []string) Finding {
	return Finding{
		Title:          fmt.Sprintf("%s regressions detected", cat.Category),
		Category:       cat.Category,
		Severity:       cat.Severity,
		Impact:         cat.Explanation,
		Recommendation: recommendationFor(cat),
		AffectedPages:  pages,
		Evidence:       cat.Explanation,
	}
}

func recommendationFor(cat reasoning.CategoryRecord) string {
	if len(cat.KeyFindings) > 0 {
		return "Investigate: " + cat.KeyFindings[0]
	}
	switch cat.Category {
	case reasoning.CategoryVisual:
		return "Review visual diff heatmaps for the affected pages before cutover."
	case reasoning.CategoryFunctional:
		return "Fix broken links and JS errors surfaced on the candidate site."
	case reasoning.CategoryDataIntegrity:
		return "Reconcile content or pricing mismatches between baseline and candidate."
	default:
		return "Review the affected category before cutover."
	}
}

// buildExecutiveSummary derives spec.md §4.9's Go/No-Go decision: go if
// overall<50 and no critical; no-go if overall>=75, the reasoner's
// overall pass is false, or reasoning failed outright; else conditional.
func buildExecutiveSummary(r Report, out reasoning.Output, pagesTested int) ExecutiveSummary {
	criticalCount := 0
	for _, c := range out.Categories {
		if c.Severity == reasoning.SeverityCritical {
			criticalCount++
		}
	}

	var decision Decision
	switch {
	case out.Source == "" || (out.Overall.Severity == "" && len(out.Categories) == 0):
		decision = DecisionNoGo
	case r.OverallRiskScore >= 75 || !out.Overall.Pass:
		decision = DecisionNoGo
	case r.OverallRiskScore < 50 && criticalCount == 0:
		decision = DecisionGo
	default:
		decision = DecisionConditional
	}

	passRate := 1.0
	if len(out.Categories) > 0 {
		passing := 0
		for _, c := range out.Categories {
			if c.Pass {
				passing++
			}
		}
		passRate = float64(passing) / float64(len(out.Categories))
	}

	return ExecutiveSummary{
		PagesTested:    pagesTested,
		IssuesFound:    len(r.Findings),
		CriticalIssues: criticalCount,
		PassRate:       passRate,
		Decision:       decision,
		Narrative:      narrativeFor(decision, r.OverallRiskScore, criticalCount, pagesTested),
	}
}

func narrativeFor(decision Decision, riskScore, criticalCount, pagesTested int) string {
	switch decision {
	case DecisionGo:
		return fmt.Sprintf("Across %d pages tested, overall risk score is %d/100 with no critical issues. The migration looks safe to proceed.", pagesTested, riskScore)
	case DecisionNoGo:
		return fmt.Sprintf("Across %d pages tested, overall risk score is %d/100 with %d critical issue(s). Cutover is not recommended until these are resolved.", pagesTested, riskScore, criticalCount)
	default:
		return fmt.Sprintf("Across %d pages tested, overall risk score is %d/100. Review the findings below before deciding on cutover.", pagesTested, riskScore)
	}
}
