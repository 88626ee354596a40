// Package verification implements post-run invariant checks. A completed
// batch state is re-examined for partition, bounds, downgrade, export and
// determinism violations before its report is trusted.
package verification

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"strategy-draft-gate/internal/domain"
	"strategy-draft-gate/internal/export"
	"strategy-draft-gate/internal/loop"
	"strategy-draft-gate/internal/review"
)

// Check is one named invariant verdict.
type Check struct {
	Name   string // invariant name
	Pass   bool   // true if the invariant holds
	Detail string // violation detail, empty when Pass
}

// Report contains results for a full verification pass.
type Report struct {
	TotalChecks  int     // checks executed
	PassedChecks int     // checks that held
	FailedChecks int     // checks that were violated
	Checks       []Check // individual results
}

// Clean reports whether every invariant held.
func (r *Report) Clean() bool {
	return r.FailedChecks == 0
}

// Verifier re-checks a finished batch run. Determinism checks re-evaluate
// drafts with a fresh evaluator, so a Verifier must be configured with the
// same criterion semantics as the run it inspects.
type Verifier struct {
	evaluator *review.Evaluator
	engine    *review.VerdictEngine
}

// NewVerifier creates a verifier with default evaluation semantics.
func NewVerifier() *Verifier {
	return &Verifier{
		evaluator: review.NewEvaluator(),
		engine:    review.NewVerdictEngine(),
	}
}

// VerifyRun runs all invariant checks against a terminal batch state.
// intake is the post-dedup draft set the run started from.
func (v *Verifier) VerifyRun(intake []domain.ParsedDraft, state loop.BatchRunState) *Report {
	checks := []Check{
		checkPartition(intake, state),
		checkConfidenceBounds(state),
		checkConfidenceWeighting(state),
		checkDowngradeContract(state),
		checkExportEligibility(state),
		v.checkDeterminism(state),
	}

	report := &Report{TotalChecks: len(checks), Checks: checks}
	for _, c := range checks {
		if c.Pass {
			report.PassedChecks++
		} else {
			report.FailedChecks++
		}
	}
	return report
}

// checkPartition verifies every intake draft ID lands in exactly one
// terminal bucket and no unknown IDs appear.
func checkPartition(intake []domain.ParsedDraft, state loop.BatchRunState) Check {
	want := make(map[string]int, len(intake))
	for _, d := range intake {
		want[d.Draft.DraftID]++
	}

	got := make(map[string]int)
	for _, r := range state.Terminal() {
		got[r.Result.DraftID]++
	}

	var problems []string
	for id, n := range want {
		if n > 1 {
			problems = append(problems, fmt.Sprintf("intake draft_id %q appears %d times", id, n))
		}
		switch got[id] {
		case 1:
		case 0:
			problems = append(problems, fmt.Sprintf("draft_id %q missing from terminal buckets", id))
		default:
			problems = append(problems, fmt.Sprintf("draft_id %q in %d terminal buckets", id, got[id]))
		}
	}
	for id := range got {
		if want[id] == 0 {
			problems = append(problems, fmt.Sprintf("terminal draft_id %q never entered intake", id))
		}
	}
	if len(state.Revising) > 0 {
		problems = append(problems, fmt.Sprintf("%d drafts still revising in terminal state", len(state.Revising)))
	}

	return checkResult("partition", problems)
}

// checkConfidenceBounds verifies every terminal confidence score is within
// 0 to 100.
func checkConfidenceBounds(state loop.BatchRunState) Check {
	var problems []string
	for _, r := range state.Terminal() {
		if s := r.Result.ConfidenceScore; s < 0 || s > 100 {
			problems = append(problems, fmt.Sprintf("draft %q confidence %d out of bounds", r.Result.DraftID, s))
		}
	}
	return checkResult("confidence_bounds", problems)
}

// checkConfidenceWeighting recomputes each confidence score from its
// findings and compares against the stored value.
func checkConfidenceWeighting(state loop.BatchRunState) Check {
	var problems []string
	for _, r := range state.Terminal() {
		if len(r.Result.Findings) == 0 {
			continue
		}
		want := review.ConfidenceScore(r.Result.Findings)
		if r.Result.ConfidenceScore != want {
			problems = append(problems, fmt.Sprintf("draft %q confidence %d, findings imply %d",
				r.Result.DraftID, r.Result.ConfidenceScore, want))
		}
	}
	return checkResult("confidence_weighting", problems)
}

// checkDowngradeContract verifies downgraded drafts carry the demotion
// state: research_probe variant, export flag cleared, REVISE verdict.
func checkDowngradeContract(state loop.BatchRunState) Check {
	var problems []string
	for _, r := range state.Downgraded {
		id := r.Result.DraftID
		if r.Draft.Draft.Variant != domain.VariantResearchProbe {
			problems = append(problems, fmt.Sprintf("downgraded draft %q variant %q", id, r.Draft.Draft.Variant))
		}
		if r.Draft.Draft.ExportReadyV1 {
			problems = append(problems, fmt.Sprintf("downgraded draft %q still export_ready_v1", id))
		}
		if r.Result.Verdict != domain.VerdictRevise {
			problems = append(problems, fmt.Sprintf("downgraded draft %q verdict %q", id, r.Result.Verdict))
		}
		if r.Result.ExportEligible {
			problems = append(problems, fmt.Sprintf("downgraded draft %q export eligible", id))
		}
	}
	return checkResult("downgrade_contract", problems)
}

// checkExportEligibility recomputes eligibility for every terminal result
// and compares against the stored flag.
func checkExportEligibility(state loop.BatchRunState) Check {
	var problems []string
	for _, r := range state.Terminal() {
		want := export.Eligible(r.Result, r.Draft.Draft)
		if r.Result.ExportEligible != want {
			problems = append(problems, fmt.Sprintf("draft %q export_eligible %t, recheck says %t",
				r.Result.DraftID, r.Result.ExportEligible, want))
		}
	}
	return checkResult("export_eligibility", problems)
}

// checkDeterminism re-evaluates passed and rejected drafts and demands
// identical findings and classification. Downgraded drafts are skipped:
// their stored result predates the demotion mutation.
func (v *Verifier) checkDeterminism(state loop.BatchRunState) Check {
	var problems []string

	recheck := make([]loop.ReviewedDraft, 0, len(state.Passed)+len(state.Rejected))
	recheck = append(recheck, state.Passed...)
	recheck = append(recheck, state.Rejected...)
	sort.Slice(recheck, func(i, j int) bool {
		return recheck[i].Result.DraftID < recheck[j].Result.DraftID
	})

	for _, r := range recheck {
		findings := v.evaluator.Evaluate(r.Draft)
		if !reflect.DeepEqual(findings, r.Result.Findings) {
			problems = append(problems, fmt.Sprintf("draft %q findings differ on re-evaluation", r.Result.DraftID))
			continue
		}
		cls := v.engine.Classify(findings)
		if cls.Verdict != r.Result.Verdict {
			problems = append(problems, fmt.Sprintf("draft %q verdict %q, re-evaluation says %q",
				r.Result.DraftID, r.Result.Verdict, cls.Verdict))
		}
		if cls.ConfidenceScore != r.Result.ConfidenceScore {
			problems = append(problems, fmt.Sprintf("draft %q confidence %d, re-evaluation says %d",
				r.Result.DraftID, r.Result.ConfidenceScore, cls.ConfidenceScore))
		}
	}

	return checkResult("determinism", problems)
}

// checkResult folds a problem list into a Check.
func checkResult(name string, problems []string) Check {
	if len(problems) == 0 {
		return Check{Name: name, Pass: true}
	}
	return Check{Name: name, Pass: false, Detail: strings.Join(problems, "; ")}
}
