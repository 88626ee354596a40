package loop

import (
	"sort"

	"strategy-draft-gate/internal/domain"
)

// ReviewedDraft pairs a terminal review result with the draft state it was
// produced against. Export eligibility is decided on this draft state, not
// on the copy the upstream designer handed in.
type ReviewedDraft struct {
	Draft  domain.ParsedDraft
	Result *domain.ReviewResult
}

// RevisingDraft is one working-set entry: the mutated draft awaiting its
// next evaluation, plus the REVISE result that sent it back.
type RevisingDraft struct {
	Draft      domain.ParsedDraft
	LastResult *domain.ReviewResult
}

// BatchRunState is the loop's fold value. Each iteration consumes the prior
// state and produces a new one; no field is mutated in place after a state
// has been returned.
type BatchRunState struct {
	// Iteration counts completed evaluation rounds, 0-based.
	Iteration int

	// Terminal accumulators. A draft_id lands in exactly one of these.
	Passed     []ReviewedDraft
	Rejected   []ReviewedDraft
	Downgraded []ReviewedDraft

	// Working set still awaiting evaluation.
	Revising []RevisingDraft
}

// newBatchRunState seeds the fold: all drafts revising, nothing terminal.
func newBatchRunState(drafts []domain.ParsedDraft) BatchRunState {
	revising := make([]RevisingDraft, len(drafts))
	for i, d := range drafts {
		revising[i] = RevisingDraft{Draft: d}
	}
	return BatchRunState{Revising: revising}
}

// Terminal returns all terminal outcomes: passed, rejected, then downgraded,
// sorted by draft ID for stable output.
func (s BatchRunState) Terminal() []ReviewedDraft {
	out := make([]ReviewedDraft, 0, len(s.Passed)+len(s.Rejected)+len(s.Downgraded))
	out = append(out, s.Passed...)
	out = append(out, s.Rejected...)
	out = append(out, s.Downgraded...)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Result.DraftID < out[j].Result.DraftID
	})
	return out
}

// DowngradedIDs returns the sorted draft IDs that ran out of iterations.
func (s BatchRunState) DowngradedIDs() []string {
	ids := make([]string, 0, len(s.Downgraded))
	for _, r := range s.Downgraded {
		ids = append(ids, r.Result.DraftID)
	}
	sort.Strings(ids)
	return ids
}

// ExportEligibleCount counts terminal results cleared for export.
func (s BatchRunState) ExportEligibleCount() int {
	n := 0
	for _, r := range s.Terminal() {
		if r.Result.ExportEligible {
			n++
		}
	}
	return n
}
