package verification

import (
	"context"
	"errors"
	"fmt"

	"strategy-draft-gate/internal/domain"
	"strategy-draft-gate/internal/loop"
	"strategy-draft-gate/internal/storage"
)

var (
	// ErrRecordNotFound is returned when no record is stored for the draft.
	ErrRecordNotFound = errors.New("review record not found")

	// ErrDraftNotFound is returned when the draft is absent from the run state.
	ErrDraftNotFound = errors.New("draft not found in run state")
)

// FieldDivergence represents a mismatch between a stored and current value.
type FieldDivergence struct {
	Field    string      // field name
	Expected interface{} // current in-memory value
	Actual   interface{} // stored value
}

// RecordResult contains the result of verifying a single persisted record.
type RecordResult struct {
	DraftID        string            // verified draft ID
	Match          bool              // true if all fields match
	Divergences    []FieldDivergence // list of divergent fields
	StoredVerdict  domain.Verdict    // verdict from the stored record
	CurrentVerdict domain.Verdict    // verdict held by the run state
}

// StoreReport contains results for verifying a whole persisted run.
type StoreReport struct {
	TotalRecords     int            // stored records examined
	MatchedRecords   int            // records that matched exactly
	DivergentRecords int            // records with divergences
	MissingDrafts    []string       // draft IDs in the run state with no stored record
	OrphanRecords    []string       // stored draft IDs absent from the run state
	Results          []RecordResult // individual results
}

// Clean reports whether the stored run mirrors the in-memory state exactly.
func (r *StoreReport) Clean() bool {
	return r.DivergentRecords == 0 && len(r.MissingDrafts) == 0 && len(r.OrphanRecords) == 0
}

// StoreVerifier cross-checks persisted review records against the terminal
// state they were written from. Divergence means the persistence path
// mangled a record or the store was written by a different run.
type StoreVerifier struct {
	records storage.ReviewRecordStore
}

// NewStoreVerifier creates a verifier over the given record store.
func NewStoreVerifier(records storage.ReviewRecordStore) *StoreVerifier {
	return &StoreVerifier{records: records}
}

// VerifyRecord verifies a single persisted record against the run state.
func (v *StoreVerifier) VerifyRecord(ctx context.Context, runID, draftID string, state loop.BatchRunState) (*RecordResult, error) {
	stored, err := v.records.GetByRunAndDraft(ctx, runID, draftID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	current := resultByDraft(state, draftID)
	if current == nil {
		return nil, ErrDraftNotFound
	}

	divergences := CompareReviewRecords(&stored.Result, current)
	return &RecordResult{
		DraftID:        draftID,
		Match:          len(divergences) == 0,
		Divergences:    divergences,
		StoredVerdict:  stored.Result.Verdict,
		CurrentVerdict: current.Verdict,
	}, nil
}

// VerifyPersistedRun verifies every stored record for the run and accounts
// for drafts missing on either side.
func (v *StoreVerifier) VerifyPersistedRun(ctx context.Context, runID string, state loop.BatchRunState) (*StoreReport, error) {
	stored, err := v.records.GetByRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	current := make(map[string]*domain.ReviewResult)
	for _, r := range state.Terminal() {
		current[r.Result.DraftID] = r.Result
	}

	report := &StoreReport{
		TotalRecords: len(stored),
		Results:      make([]RecordResult, 0, len(stored)),
	}

	seen := make(map[string]bool, len(stored))
	for _, rec := range stored {
		draftID := rec.Result.DraftID
		seen[draftID] = true

		cur, ok := current[draftID]
		if !ok {
			report.OrphanRecords = append(report.OrphanRecords, draftID)
			continue
		}

		divergences := CompareReviewRecords(&rec.Result, cur)
		result := RecordResult{
			DraftID:        draftID,
			Match:          len(divergences) == 0,
			Divergences:    divergences,
			StoredVerdict:  rec.Result.Verdict,
			CurrentVerdict: cur.Verdict,
		}
		report.Results = append(report.Results, result)
		if result.Match {
			report.MatchedRecords++
		} else {
			report.DivergentRecords++
		}
	}

	for _, r := range state.Terminal() {
		if !seen[r.Result.DraftID] {
			report.MissingDrafts = append(report.MissingDrafts, r.Result.DraftID)
		}
	}

	return report, nil
}

// CompareReviewRecords compares a stored result against the current one and
// returns divergences. All fields are integers and strings, so comparisons
// are exact.
func CompareReviewRecords(stored, current *domain.ReviewResult) []FieldDivergence {
	var divergences []FieldDivergence

	if stored.DraftID != current.DraftID {
		divergences = append(divergences, FieldDivergence{
			Field:    "DraftID",
			Expected: current.DraftID,
			Actual:   stored.DraftID,
		})
	}

	if stored.Verdict != current.Verdict {
		divergences = append(divergences, FieldDivergence{
			Field:    "Verdict",
			Expected: current.Verdict,
			Actual:   stored.Verdict,
		})
	}

	if stored.ConfidenceScore != current.ConfidenceScore {
		divergences = append(divergences, FieldDivergence{
			Field:    "ConfidenceScore",
			Expected: current.ConfidenceScore,
			Actual:   stored.ConfidenceScore,
		})
	}

	if stored.ExportEligible != current.ExportEligible {
		divergences = append(divergences, FieldDivergence{
			Field:    "ExportEligible",
			Expected: current.ExportEligible,
			Actual:   stored.ExportEligible,
		})
	}

	if len(stored.Findings) != len(current.Findings) {
		divergences = append(divergences, FieldDivergence{
			Field:    "Findings",
			Expected: len(current.Findings),
			Actual:   len(stored.Findings),
		})
	} else {
		for i := range stored.Findings {
			if stored.Findings[i] != current.Findings[i] {
				divergences = append(divergences, FieldDivergence{
					Field:    fmt.Sprintf("Findings[%d]", i),
					Expected: current.Findings[i],
					Actual:   stored.Findings[i],
				})
			}
		}
	}

	if len(stored.InstructionKinds) != len(current.InstructionKinds) {
		divergences = append(divergences, FieldDivergence{
			Field:    "InstructionKinds",
			Expected: len(current.InstructionKinds),
			Actual:   len(stored.InstructionKinds),
		})
	} else {
		for i := range stored.InstructionKinds {
			if stored.InstructionKinds[i] != current.InstructionKinds[i] {
				divergences = append(divergences, FieldDivergence{
					Field:    fmt.Sprintf("InstructionKinds[%d]", i),
					Expected: current.InstructionKinds[i],
					Actual:   stored.InstructionKinds[i],
				})
			}
		}
	}

	if len(stored.RevisionInstructions) != len(current.RevisionInstructions) {
		divergences = append(divergences, FieldDivergence{
			Field:    "RevisionInstructions",
			Expected: len(current.RevisionInstructions),
			Actual:   len(stored.RevisionInstructions),
		})
	} else {
		for i := range stored.RevisionInstructions {
			if stored.RevisionInstructions[i] != current.RevisionInstructions[i] {
				divergences = append(divergences, FieldDivergence{
					Field:    fmt.Sprintf("RevisionInstructions[%d]", i),
					Expected: current.RevisionInstructions[i],
					Actual:   stored.RevisionInstructions[i],
				})
			}
		}
	}

	return divergences
}

// resultByDraft finds a terminal result by draft ID.
func resultByDraft(state loop.BatchRunState, draftID string) *domain.ReviewResult {
	for _, r := range state.Terminal() {
		if r.Result.DraftID == draftID {
			return r.Result
		}
	}
	return nil
}
