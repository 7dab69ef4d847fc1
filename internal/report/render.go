package report

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RenderJSON marshals the report as indented JSON.
func RenderJSON(r Report) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// RenderMarkdown renders the report as a human-readable Markdown
// document (spec.md §4.9: "one JSON document and one Markdown document").
func RenderMarkdown(r Report) []byte {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Migration Assurance Report\n\n")
	fmt.Fprintf(&sb, "**Run:** `%s`\n\n", r.RunID)
	fmt.Fprintf(&sb, "## Executive Summary\n\n")
	fmt.Fprintf(&sb, "- **Decision:** %s\n", strings.ToUpper(string(r.ExecutiveSummary.Decision)))
	fmt.Fprintf(&sb, "- **Overall risk score:** %d/100\n", r.OverallRiskScore)
	fmt.Fprintf(&sb, "- **Pages tested:** %d\n", r.ExecutiveSummary.PagesTested)
	fmt.Fprintf(&sb, "- **Issues found:** %d\n", r.ExecutiveSummary.IssuesFound)
	fmt.Fprintf(&sb, "- **Critical issues:** %d\n", r.ExecutiveSummary.CriticalIssues)
	fmt.Fprintf(&sb, "- **Pass rate:** %.0f%%\n\n", r.ExecutiveSummary.PassRate*100)
	fmt.Fprintf(&sb, "%s\n\n", r.ExecutiveSummary.Narrative)

	fmt.Fprintf(&sb, "## Risk by Category\n\n")
	fmt.Fprintf(&sb, "| Category | Severity | Score |\n|---|---|---|\n")
	for _, cr := range r.CategoryRisks {
		fmt.Fprintf(&sb, "| %s | %s | %d |\n", cr.Category, cr.Severity, cr.Score)
	}
	sb.WriteString("\n")

	if len(r.Findings) > 0 {
		fmt.Fprintf(&sb, "## Technical Findings\n\n")
		for _, f := range r.Findings {
			fmt.Fprintf(&sb, "### %s (%s)\n\n", f.Title, f.Severity)
			fmt.Fprintf(&sb, "- **Impact:** %s\n", f.Impact)
			fmt.Fprintf(&sb, "- **Recommendation:** %s\n", f.Recommendation)
			if len(f.AffectedPages) > 0 {
				fmt.Fprintf(&sb, "- **Affected pages:** %s\n", strings.Join(f.AffectedPages, ", "))
			}
			fmt.Fprintf(&sb, "- **Evidence:** %s\n\n", f.Evidence)
		}
	}

	if len(r.Reasoning.Overall.Recommendations) > 0 {
		fmt.Fprintf(&sb, "## Recommendations\n\n")
		for _, rec := range r.Reasoning.Overall.Recommendations {
			fmt.Fprintf(&sb, "- %s\n", rec)
		}
	}

	return []byte(sb.String())
}
