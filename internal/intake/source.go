package intake

import (
	"context"
	"fmt"

	"strategy-draft-gate/internal/domain"
)

// DraftSource provides batches of drafts to review. Implementations return
// malformed documents alongside well-formed ones; only infrastructure
// failures (unreadable paths, dead connections) surface as errors.
type DraftSource interface {
	// Fetch returns all drafts currently available from the source.
	Fetch(ctx context.Context) ([]domain.ParsedDraft, []domain.MalformedDraft, error)
}

// Deduplicate enforces draft_id uniqueness across a fetched batch: the
// first occurrence wins, later ones are recorded as malformed. The loop's
// accumulation invariants assume unique IDs.
func Deduplicate(drafts []domain.ParsedDraft, malformed []domain.MalformedDraft) ([]domain.ParsedDraft, []domain.MalformedDraft) {
	seen := make(map[string]bool, len(drafts))
	unique := make([]domain.ParsedDraft, 0, len(drafts))
	for _, p := range drafts {
		id := p.Draft.DraftID
		if seen[id] {
			malformed = append(malformed, domain.MalformedDraft{
				Source: id,
				Reason: fmt.Sprintf("duplicate draft_id %q", id),
			})
			continue
		}
		seen[id] = true
		unique = append(unique, p)
	}
	return unique, malformed
}
