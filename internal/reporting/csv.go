package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders one row per criterion outcome for offline analysis.
func RenderCSV(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("draft_id,criterion_id,severity,score,weight,verdict,confidence_score,export_eligible\n")

	// Rows
	for _, rev := range r.Reviews {
		for _, f := range rev.Findings {
			sb.WriteString(fmt.Sprintf("%s,%s,%s,%d,%d,%s,%d,%t\n",
				rev.DraftID,
				f.CriterionID,
				f.Severity,
				f.Score,
				f.Weight,
				rev.Verdict,
				rev.ConfidenceScore,
				rev.ExportEligible,
			))
		}
	}

	return sb.String()
}
