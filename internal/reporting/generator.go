package reporting

import (
	"time"

	"strategy-draft-gate/internal/domain"
	"strategy-draft-gate/internal/idhash"
	"strategy-draft-gate/internal/loop"
)

// Generator builds the terminal review document from a finished loop state.
type Generator struct {
	now func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator() *Generator {
	return &Generator{
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces the review document. Source identifies the input path;
// its DraftCount is filled in from the terminal state.
func (g *Generator) Generate(state loop.BatchRunState, malformed []domain.MalformedDraft, source Source) *Report {
	generatedAt := g.now().UTC().Format(time.RFC3339)
	terminal := state.Terminal()

	downgraded := make(map[string]bool, len(state.Downgraded))
	for _, id := range state.DowngradedIDs() {
		downgraded[id] = true
	}

	draftIDs := make([]string, len(terminal))
	reviews := make([]ReviewRow, len(terminal))
	for i, rd := range terminal {
		draftIDs[i] = rd.Result.DraftID
		reviews[i] = buildReviewRow(rd, downgraded[rd.Result.DraftID])
	}

	malformedRows := make([]MalformedRow, len(malformed))
	for i, m := range malformed {
		malformedRows[i] = MalformedRow{Source: m.Source, Reason: m.Reason}
	}

	source.DraftCount = len(terminal)

	return &Report{
		RunID:          idhash.ComputeRunID(generatedAt, draftIDs),
		GeneratedAtUTC: generatedAt,
		Source:         source,
		Summary: Summary{
			Total:          len(terminal),
			Pass:           len(state.Passed),
			Revise:         len(state.Downgraded),
			Reject:         len(state.Rejected),
			ExportEligible: state.ExportEligibleCount(),
			Downgraded:     len(state.Downgraded),
			Malformed:      len(malformed),
			IterationsRun:  state.Iteration,
		},
		Reviews:    reviews,
		Malformed:  malformedRows,
		Downgraded: state.DowngradedIDs(),
	}
}

// buildReviewRow flattens one terminal outcome into its report row.
func buildReviewRow(rd loop.ReviewedDraft, wasDowngraded bool) ReviewRow {
	result := rd.Result
	draft := rd.Draft.Draft

	findings := make([]FindingRow, len(result.Findings))
	for i, f := range result.Findings {
		findings[i] = FindingRow{
			CriterionID: string(f.CriterionID),
			Criterion:   f.CriterionID.Title(),
			Severity:    string(f.Severity),
			Score:       f.Score,
			Weight:      f.Weight,
			Message:     f.Message,
		}
	}

	return ReviewRow{
		DraftID:              result.DraftID,
		Variant:              string(draft.Variant),
		EntryFamily:          draft.EntryFamily,
		Verdict:              string(result.Verdict),
		ConfidenceScore:      result.ConfidenceScore,
		ExportEligible:       result.ExportEligible,
		Downgraded:           wasDowngraded,
		Findings:             findings,
		RevisionInstructions: append([]string(nil), result.RevisionInstructions...),
		Fingerprint:          idhash.ComputeDraftFingerprint(draft),
	}
}
