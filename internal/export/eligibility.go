// Package export decides whether terminal drafts may be handed to the
// external export pipeline.
package export

import (
	"strategy-draft-gate/internal/domain"
)

// Eligible reports whether a reviewed draft may be exported: a PASS verdict
// on a draft still flagged export-ready with an exportable entry family.
// The entry-family and flag checks mirror the execution-realism criterion
// but are re-run here because a revision or downgrade may have changed the
// draft after that finding was produced.
func Eligible(result *domain.ReviewResult, draft *domain.StrategyDraft) bool {
	if result == nil || draft == nil {
		return false
	}
	return result.Verdict == domain.VerdictPass &&
		draft.ExportReadyV1 &&
		domain.ExportableEntryFamily(draft.EntryFamily)
}
