package verification

import (
	"context"
	"errors"
	"testing"

	"strategy-draft-gate/internal/domain"
	"strategy-draft-gate/internal/loop"
	"strategy-draft-gate/internal/storage/memory"
)

// passingDraft clears every criterion as-is.
func passingDraft(id string) domain.ParsedDraft {
	d := &domain.StrategyDraft{
		DraftID:     id,
		Variant:     domain.VariantCore,
		EntryFamily: domain.EntryFamilyPivotBreakout,
		Conditions: []string{
			"close > pivot_high_20d",
			"volume > 2 * avg_volume_20d",
		},
		Thesis: "Breakout momentum persists after institutional accumulation drives price through resistance",
		InvalidationSignals: []string{
			"breakout fails within 3 bars",
			"volume dries up on continuation",
		},
		StopLossPct:  0.08,
		TakeProfitRR: 2.0,
		RiskPerTrade: 0.01,
		MaxPositions: 5,
	}
	return domain.NewParsedDraft(d, nil)
}

// rejectedDraft trips the edge plausibility short-circuit.
func rejectedDraft(id string) domain.ParsedDraft {
	p := passingDraft(id)
	p.Draft.Thesis = "it works"
	return p
}

// stuckDraft revises past the iteration budget and gets downgraded.
func stuckDraft(id string) domain.ParsedDraft {
	p := passingDraft(id)
	p.Draft.StopLossPct = 0.2
	p.Draft.ExportReadyV1 = true
	return p
}

// runBatch drives a real controller over the drafts.
func runBatch(drafts []domain.ParsedDraft) loop.BatchRunState {
	c := loop.NewController(loop.ControllerOptions{})
	return c.Run(drafts)
}

func checkByName(t *testing.T, report *Report, name string) Check {
	t.Helper()
	for _, c := range report.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("Check %q not in report", name)
	return Check{}
}

func TestVerifyRun_CleanRun(t *testing.T) {
	intake := []domain.ParsedDraft{
		passingDraft("a"),
		rejectedDraft("b"),
		stuckDraft("c"),
	}
	state := runBatch(intake)

	report := NewVerifier().VerifyRun(intake, state)

	if !report.Clean() {
		for _, c := range report.Checks {
			if !c.Pass {
				t.Errorf("Check %s failed: %s", c.Name, c.Detail)
			}
		}
	}
	if report.TotalChecks != 6 {
		t.Errorf("Expected 6 checks, got %d", report.TotalChecks)
	}
	if report.PassedChecks != report.TotalChecks {
		t.Errorf("Expected all checks to pass, got %d/%d", report.PassedChecks, report.TotalChecks)
	}
}

func TestVerifyRun_PartitionMissingDraft(t *testing.T) {
	ran := []domain.ParsedDraft{passingDraft("a")}
	state := runBatch(ran)

	// Claim a second draft entered intake that never reached a bucket.
	intake := append(ran, passingDraft("ghost"))
	report := NewVerifier().VerifyRun(intake, state)

	c := checkByName(t, report, "partition")
	if c.Pass {
		t.Error("Partition check should fail for a missing draft")
	}
	if report.Clean() {
		t.Error("Report should not be clean")
	}
}

func TestVerifyRun_PartitionUnknownDraft(t *testing.T) {
	intake := []domain.ParsedDraft{passingDraft("a"), passingDraft("b")}
	state := runBatch(intake)

	report := NewVerifier().VerifyRun(intake[:1], state)

	c := checkByName(t, report, "partition")
	if c.Pass {
		t.Error("Partition check should fail for a draft that never entered intake")
	}
}

func TestVerifyRun_ConfidenceBoundsViolation(t *testing.T) {
	intake := []domain.ParsedDraft{passingDraft("a")}
	state := runBatch(intake)
	state.Passed[0].Result.ConfidenceScore = 130

	report := NewVerifier().VerifyRun(intake, state)

	if checkByName(t, report, "confidence_bounds").Pass {
		t.Error("Bounds check should fail for confidence 130")
	}
}

func TestVerifyRun_ConfidenceWeightingViolation(t *testing.T) {
	intake := []domain.ParsedDraft{passingDraft("a")}
	state := runBatch(intake)
	state.Passed[0].Result.ConfidenceScore = 50 // in bounds, but not what the findings imply

	report := NewVerifier().VerifyRun(intake, state)

	if checkByName(t, report, "confidence_weighting").Pass {
		t.Error("Weighting check should catch a confidence the findings do not imply")
	}
	if !checkByName(t, report, "confidence_bounds").Pass {
		t.Error("Bounds check should still pass for an in-range value")
	}
}

func TestVerifyRun_DowngradeContractViolation(t *testing.T) {
	intake := []domain.ParsedDraft{stuckDraft("s1")}
	state := runBatch(intake)
	if len(state.Downgraded) != 1 {
		t.Fatalf("Expected 1 downgraded draft, got %d", len(state.Downgraded))
	}
	state.Downgraded[0].Draft.Draft.Variant = domain.VariantCore

	report := NewVerifier().VerifyRun(intake, state)

	if checkByName(t, report, "downgrade_contract").Pass {
		t.Error("Downgrade check should fail when the variant was not demoted")
	}
}

func TestVerifyRun_ExportEligibilityViolation(t *testing.T) {
	intake := []domain.ParsedDraft{passingDraft("a")}
	state := runBatch(intake)
	state.Passed[0].Result.ExportEligible = !state.Passed[0].Result.ExportEligible

	report := NewVerifier().VerifyRun(intake, state)

	if checkByName(t, report, "export_eligibility").Pass {
		t.Error("Export check should fail for a flipped eligibility flag")
	}
}

func TestVerifyRun_DeterminismViolation(t *testing.T) {
	intake := []domain.ParsedDraft{passingDraft("a")}
	state := runBatch(intake)

	// Tamper with the draft after its evaluation was recorded.
	state.Passed[0].Draft.Draft.Thesis = "it works"

	report := NewVerifier().VerifyRun(intake, state)

	if checkByName(t, report, "determinism").Pass {
		t.Error("Determinism check should fail for a tampered draft")
	}
}

func TestCompareReviewRecords_ExactMatch(t *testing.T) {
	result := &domain.ReviewResult{
		DraftID:         "d1",
		Verdict:         domain.VerdictRevise,
		ConfidenceScore: 55,
		Findings: []domain.Finding{
			{CriterionID: domain.CriterionEdgePlausibility, Severity: domain.SeverityPass, Score: 80, Message: "thesis names a mechanism", Weight: 20},
			{CriterionID: domain.CriterionExecutionRealism, Severity: domain.SeverityWarn, Score: 50, Message: "no volume filter condition", Weight: 10},
		},
		InstructionKinds:     []domain.InstructionKind{domain.InstructionAddVolumeFilter},
		RevisionInstructions: []string{"add a volume confirmation condition"},
		ExportEligible:       false,
	}

	divergences := CompareReviewRecords(result, result.Clone())

	if len(divergences) != 0 {
		t.Errorf("Expected 0 divergences, got %d: %v", len(divergences), divergences)
	}
}

func TestCompareReviewRecords_VerdictDivergence(t *testing.T) {
	stored := &domain.ReviewResult{
		DraftID:         "d1",
		Verdict:         domain.VerdictPass,
		ConfidenceScore: 80,
	}
	current := stored.Clone()
	current.Verdict = domain.VerdictRevise

	divergences := CompareReviewRecords(stored, current)

	if len(divergences) != 1 {
		t.Fatalf("Expected 1 divergence, got %d: %v", len(divergences), divergences)
	}
	if divergences[0].Field != "Verdict" {
		t.Errorf("Expected Verdict divergence, got %s", divergences[0].Field)
	}
}

func TestCompareReviewRecords_FindingDivergence(t *testing.T) {
	stored := &domain.ReviewResult{
		DraftID: "d1",
		Verdict: domain.VerdictPass,
		Findings: []domain.Finding{
			{CriterionID: domain.CriterionEdgePlausibility, Severity: domain.SeverityPass, Score: 80, Weight: 20},
		},
	}
	current := stored.Clone()
	current.Findings[0].Score = 100

	divergences := CompareReviewRecords(stored, current)

	found := false
	for _, d := range divergences {
		if d.Field == "Findings[0]" {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("Expected Findings[0] divergence, got %v", divergences)
	}
}

func TestCompareReviewRecords_InstructionLengthDivergence(t *testing.T) {
	stored := &domain.ReviewResult{
		DraftID:              "d1",
		Verdict:              domain.VerdictRevise,
		RevisionInstructions: []string{"one", "two"},
	}
	current := stored.Clone()
	current.RevisionInstructions = []string{"one"}

	divergences := CompareReviewRecords(stored, current)

	if len(divergences) != 1 {
		t.Fatalf("Expected 1 divergence, got %d: %v", len(divergences), divergences)
	}
	if divergences[0].Field != "RevisionInstructions" {
		t.Errorf("Expected RevisionInstructions divergence, got %s", divergences[0].Field)
	}
}

// persistTerminal writes every terminal result to the store under runID.
func persistTerminal(t *testing.T, ctx context.Context, store *memory.ReviewRecordStore, runID string, state loop.BatchRunState) {
	t.Helper()
	for _, r := range state.Terminal() {
		rec := &domain.ReviewRecord{RunID: runID, Result: *r.Result.Clone()}
		if err := store.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
}

func TestStoreVerifier_VerifyPersistedRun_CleanRun(t *testing.T) {
	ctx := context.Background()
	intake := []domain.ParsedDraft{passingDraft("a"), rejectedDraft("b"), stuckDraft("c")}
	state := runBatch(intake)

	store := memory.NewReviewRecordStore()
	persistTerminal(t, ctx, store, "run-1", state)

	report, err := NewStoreVerifier(store).VerifyPersistedRun(ctx, "run-1", state)
	if err != nil {
		t.Fatalf("VerifyPersistedRun failed: %v", err)
	}

	if !report.Clean() {
		t.Errorf("Expected clean report: divergent=%d missing=%v orphans=%v",
			report.DivergentRecords, report.MissingDrafts, report.OrphanRecords)
	}
	if report.TotalRecords != 3 || report.MatchedRecords != 3 {
		t.Errorf("Expected 3/3 matched, got %d/%d", report.MatchedRecords, report.TotalRecords)
	}
}

func TestStoreVerifier_VerifyPersistedRun_Divergence(t *testing.T) {
	ctx := context.Background()
	intake := []domain.ParsedDraft{passingDraft("a")}
	state := runBatch(intake)

	store := memory.NewReviewRecordStore()
	mangled := state.Passed[0].Result.Clone()
	mangled.Verdict = domain.VerdictRevise
	if err := store.Insert(ctx, &domain.ReviewRecord{RunID: "run-1", Result: *mangled}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	report, err := NewStoreVerifier(store).VerifyPersistedRun(ctx, "run-1", state)
	if err != nil {
		t.Fatalf("VerifyPersistedRun failed: %v", err)
	}

	if report.DivergentRecords != 1 {
		t.Fatalf("Expected 1 divergent record, got %d", report.DivergentRecords)
	}
	found := false
	for _, d := range report.Results[0].Divergences {
		if d.Field == "Verdict" {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("Expected Verdict divergence, got %v", report.Results[0].Divergences)
	}
}

func TestStoreVerifier_VerifyPersistedRun_MissingAndOrphan(t *testing.T) {
	ctx := context.Background()
	intake := []domain.ParsedDraft{passingDraft("a"), passingDraft("b")}
	state := runBatch(intake)

	// Persist only draft a, plus a record for a draft the run never saw.
	store := memory.NewReviewRecordStore()
	for _, r := range state.Terminal() {
		if r.Result.DraftID != "a" {
			continue
		}
		if err := store.Insert(ctx, &domain.ReviewRecord{RunID: "run-1", Result: *r.Result.Clone()}); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	orphan := &domain.ReviewRecord{RunID: "run-1", Result: domain.ReviewResult{DraftID: "z", Verdict: domain.VerdictReject}}
	if err := store.Insert(ctx, orphan); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	report, err := NewStoreVerifier(store).VerifyPersistedRun(ctx, "run-1", state)
	if err != nil {
		t.Fatalf("VerifyPersistedRun failed: %v", err)
	}

	if len(report.MissingDrafts) != 1 || report.MissingDrafts[0] != "b" {
		t.Errorf("Expected draft b missing, got %v", report.MissingDrafts)
	}
	if len(report.OrphanRecords) != 1 || report.OrphanRecords[0] != "z" {
		t.Errorf("Expected orphan z, got %v", report.OrphanRecords)
	}
	if report.Clean() {
		t.Error("Report should not be clean")
	}
}

func TestStoreVerifier_VerifyRecord(t *testing.T) {
	ctx := context.Background()
	intake := []domain.ParsedDraft{passingDraft("a")}
	state := runBatch(intake)

	store := memory.NewReviewRecordStore()
	persistTerminal(t, ctx, store, "run-1", state)

	result, err := NewStoreVerifier(store).VerifyRecord(ctx, "run-1", "a", state)
	if err != nil {
		t.Fatalf("VerifyRecord failed: %v", err)
	}
	if !result.Match {
		t.Errorf("Expected match, got divergences: %v", result.Divergences)
	}
	if result.StoredVerdict != domain.VerdictPass || result.CurrentVerdict != domain.VerdictPass {
		t.Errorf("Expected PASS on both sides, got %s/%s", result.StoredVerdict, result.CurrentVerdict)
	}
}

func TestStoreVerifier_VerifyRecord_NotFound(t *testing.T) {
	ctx := context.Background()
	intake := []domain.ParsedDraft{passingDraft("a")}
	state := runBatch(intake)

	store := memory.NewReviewRecordStore()

	_, err := NewStoreVerifier(store).VerifyRecord(ctx, "run-1", "a", state)
	if !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("Expected ErrRecordNotFound, got %v", err)
	}
}
