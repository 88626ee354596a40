package reporting

import (
	"fmt"
	"strings"
)

// RenderMarkdown renders the report as a human-readable Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Strategy Draft Review\n\n")
	sb.WriteString(fmt.Sprintf("Run: %s | Generated: %s\n\n", r.RunID, r.GeneratedAtUTC))
	switch {
	case r.Source.DraftsDir != "":
		sb.WriteString(fmt.Sprintf("Source: %s (%d drafts)\n\n", r.Source.DraftsDir, r.Source.DraftCount))
	case r.Source.DraftPath != "":
		sb.WriteString(fmt.Sprintf("Source: %s (%d drafts)\n\n", r.Source.DraftPath, r.Source.DraftCount))
	default:
		sb.WriteString(fmt.Sprintf("Source: %d drafts\n\n", r.Source.DraftCount))
	}

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Reviewed | %d |\n", r.Summary.Total))
	sb.WriteString(fmt.Sprintf("| PASS | %d |\n", r.Summary.Pass))
	sb.WriteString(fmt.Sprintf("| REVISE | %d |\n", r.Summary.Revise))
	sb.WriteString(fmt.Sprintf("| REJECT | %d |\n", r.Summary.Reject))
	sb.WriteString(fmt.Sprintf("| Export Eligible | %d |\n", r.Summary.ExportEligible))
	sb.WriteString(fmt.Sprintf("| Downgraded | %d |\n", r.Summary.Downgraded))
	sb.WriteString(fmt.Sprintf("| Malformed | %d |\n", r.Summary.Malformed))
	sb.WriteString(fmt.Sprintf("| Iterations Run | %d |\n", r.Summary.IterationsRun))
	sb.WriteString("\n")

	// Verdicts
	sb.WriteString("## Verdicts\n\n")
	if len(r.Reviews) > 0 {
		sb.WriteString("| Draft | Variant | Entry Family | Verdict | Confidence | Export | Instructions |\n")
		sb.WriteString("|-------|---------|--------------|---------|------------|--------|-------------|\n")
		for _, rev := range r.Reviews {
			verdict := rev.Verdict
			if rev.Downgraded {
				verdict += " (downgraded)"
			}
			export := "no"
			if rev.ExportEligible {
				export = "yes"
			}
			instructions := strings.Join(rev.RevisionInstructions, "; ")
			if instructions == "" {
				instructions = "-"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %d | %s | %s |\n",
				rev.DraftID, rev.Variant, rev.EntryFamily, verdict,
				rev.ConfidenceScore, export, instructions))
		}
	} else {
		sb.WriteString("No drafts reviewed.\n")
	}
	sb.WriteString("\n")

	// Per-draft findings
	sb.WriteString("## Findings\n\n")
	if len(r.Reviews) > 0 {
		for _, rev := range r.Reviews {
			sb.WriteString(fmt.Sprintf("### %s\n\n", rev.DraftID))
			sb.WriteString("| Criterion | Severity | Score | Weight | Message |\n")
			sb.WriteString("|-----------|----------|-------|--------|--------|\n")
			for _, f := range rev.Findings {
				sb.WriteString(fmt.Sprintf("| %s %s | %s | %d | %d | %s |\n",
					f.CriterionID, f.Criterion, f.Severity, f.Score, f.Weight, f.Message))
			}
			sb.WriteString("\n")
		}
	} else {
		sb.WriteString("No findings available.\n\n")
	}

	// Malformed inputs
	sb.WriteString("## Malformed Inputs\n\n")
	if len(r.Malformed) > 0 {
		sb.WriteString("| Source | Reason |\n")
		sb.WriteString("|--------|--------|\n")
		for _, m := range r.Malformed {
			sb.WriteString(fmt.Sprintf("| %s | %s |\n", m.Source, m.Reason))
		}
	} else {
		sb.WriteString("No malformed inputs.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
