package review

import (
	"strings"
	"testing"

	"strategy-draft-gate/internal/domain"
)

// healthyDraft returns a complete draft that passes every criterion.
func healthyDraft() domain.ParsedDraft {
	d := &domain.StrategyDraft{
		DraftID:     "draft-001",
		Variant:     domain.VariantCore,
		EntryFamily: domain.EntryFamilyPivotBreakout,
		Conditions: []string{
			"close > pivot_high_20d",
			"volume > 2 * avg_volume_20d",
			"close > open",
		},
		TrendFilter: []string{"close > sma_200"},
		Thesis:      "Breakout momentum persists after institutional accumulation drives price through resistance",
		InvalidationSignals: []string{
			"breakout fails within 3 bars",
			"volume dries up on continuation",
		},
		StopLossPct:    0.08,
		TakeProfitRR:   2.0,
		RiskPerTrade:   0.01,
		MaxPositions:   5,
		ValidationPlan: map[string]string{"walk_forward": "walk-forward split across two years"},
	}
	return domain.NewParsedDraft(d, nil)
}

func findByID(t *testing.T, findings []domain.Finding, id domain.CriterionID) domain.Finding {
	t.Helper()
	for _, f := range findings {
		if f.CriterionID == id {
			return f
		}
	}
	t.Fatalf("no finding for %s", id)
	return domain.Finding{}
}

func TestEvaluate_AllPass(t *testing.T) {
	e := NewEvaluator()
	findings := e.Evaluate(healthyDraft())

	if len(findings) != 8 {
		t.Fatalf("Expected 8 findings, got %d", len(findings))
	}
	for _, f := range findings {
		if f.Severity != domain.SeverityPass {
			t.Errorf("%s: expected pass, got %s (%s)", f.CriterionID, f.Severity, f.Message)
		}
		if f.Score != 80 {
			t.Errorf("%s: expected score 80, got %d", f.CriterionID, f.Score)
		}
	}
	if got := ConfidenceScore(findings); got != 80 {
		t.Errorf("Confidence: expected 80, got %d", got)
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	e := NewEvaluator()
	p := healthyDraft()

	first := e.Evaluate(p)
	for i := 0; i < 5; i++ {
		again := e.Evaluate(p)
		if len(again) != len(first) {
			t.Fatalf("Run %d: finding count changed: %d vs %d", i, len(again), len(first))
		}
		for j := range first {
			if first[j] != again[j] {
				t.Errorf("Run %d: finding %s differs: %+v vs %+v", i, first[j].CriterionID, first[j], again[j])
			}
		}
	}
}

func TestEvaluate_WeightsSumTo100(t *testing.T) {
	e := NewEvaluator()
	findings := e.Evaluate(healthyDraft())

	total := 0
	for _, f := range findings {
		total += f.Weight
	}
	if total != 100 {
		t.Errorf("Weights sum to %d, expected 100", total)
	}
}

func TestEdgePlausibility_ShortThesis(t *testing.T) {
	e := NewEvaluator()
	p := healthyDraft()
	p.Draft.Thesis = "stocks go up"

	f := findByID(t, e.Evaluate(p), domain.CriterionEdgePlausibility)
	if f.Severity != domain.SeverityFail || f.Score != 10 {
		t.Errorf("Expected fail(10), got %s(%d)", f.Severity, f.Score)
	}
}

func TestEdgePlausibility_EmptyThesis(t *testing.T) {
	e := NewEvaluator()
	p := healthyDraft()
	p.Draft.Thesis = ""

	f := findByID(t, e.Evaluate(p), domain.CriterionEdgePlausibility)
	if f.Severity != domain.SeverityFail {
		t.Errorf("Expected fail for empty thesis, got %s", f.Severity)
	}
}

func TestEdgePlausibility_NoMechanismKeyword(t *testing.T) {
	e := NewEvaluator()
	p := healthyDraft()

	// 7 words, no mechanism keyword: warn.
	p.Draft.Thesis = "this setup tends to work quite well"
	f := findByID(t, e.Evaluate(p), domain.CriterionEdgePlausibility)
	if f.Severity != domain.SeverityWarn || f.Score != 40 {
		t.Errorf("Expected warn(40), got %s(%d)", f.Severity, f.Score)
	}

	// Same idea stretched past 10 words: pass despite missing keyword.
	p.Draft.Thesis = "this setup tends to work quite well across many different market environments"
	f = findByID(t, e.Evaluate(p), domain.CriterionEdgePlausibility)
	if f.Severity != domain.SeverityPass {
		t.Errorf("Expected pass for long thesis, got %s", f.Severity)
	}

	// Keyword present in a short-but-valid thesis: pass.
	p.Draft.Thesis = "gap continuation exploits underreaction to overnight news"
	f = findByID(t, e.Evaluate(p), domain.CriterionEdgePlausibility)
	if f.Severity != domain.SeverityPass {
		t.Errorf("Expected pass with keyword, got %s (%s)", f.Severity, f.Message)
	}
}

func TestOverfittingRisk_RuleCount(t *testing.T) {
	e := NewEvaluator()

	cases := []struct {
		conditions  int
		trendFilter int
		severity    domain.Severity
		score       int
	}{
		{5, 5, domain.SeverityPass, 80},
		{8, 3, domain.SeverityWarn, 40},
		{10, 3, domain.SeverityFail, 10},
	}
	for _, tc := range cases {
		p := healthyDraft()
		p.Draft.Conditions = repeatCondition("close > open", tc.conditions)
		p.Draft.TrendFilter = repeatCondition("close > sma_200", tc.trendFilter)

		f := findByID(t, e.Evaluate(p), domain.CriterionOverfittingRisk)
		if f.Severity != tc.severity || f.Score != tc.score {
			t.Errorf("%d+%d rules: expected %s(%d), got %s(%d)",
				tc.conditions, tc.trendFilter, tc.severity, tc.score, f.Severity, f.Score)
		}
	}
}

func TestOverfittingRisk_PreciseThresholdPenalty(t *testing.T) {
	e := NewEvaluator()
	p := healthyDraft()
	p.Draft.Conditions = []string{
		"rsi_14 > 67.5",
		"atr_ratio > 1.23",
		"close > open",
	}

	f := findByID(t, e.Evaluate(p), domain.CriterionOverfittingRisk)
	if f.Score != 60 {
		t.Errorf("Expected 80-20=60, got %d", f.Score)
	}
	if f.Severity != domain.SeverityPass {
		t.Errorf("Rule count within bounds should keep pass severity, got %s", f.Severity)
	}
	if !strings.Contains(f.Message, "precise thresholds") {
		t.Errorf("Message should name precise thresholds, got %q", f.Message)
	}
}

func TestOverfittingRisk_PenaltyMonotonic(t *testing.T) {
	e := NewEvaluator()
	prev := 81
	for decimals := 0; decimals <= 10; decimals++ {
		p := healthyDraft()
		p.Draft.Conditions = repeatCondition("rsi_14 > 67.5", decimals)
		p.Draft.TrendFilter = nil

		f := findByID(t, e.Evaluate(p), domain.CriterionOverfittingRisk)
		if f.Score > prev {
			t.Errorf("%d decimal conditions scored %d, higher than %d with fewer", decimals, f.Score, prev)
		}
		if f.Score < 0 {
			t.Errorf("Score went below zero: %d", f.Score)
		}
		prev = f.Score
	}
}

func TestSampleAdequacy_Narrowing(t *testing.T) {
	e := NewEvaluator()

	// 3 conditions, 1 trend filter: 252 * 0.8^3 * 0.85 ~= 110/yr.
	p := healthyDraft()
	f := findByID(t, e.Evaluate(p), domain.CriterionSampleAdequacy)
	if f.Severity != domain.SeverityPass {
		t.Errorf("Expected pass, got %s (%s)", f.Severity, f.Message)
	}

	// Sector filter divides by 3, specific regime divides by 2:
	// 252/3/2 = 42, * 0.8^3 * 0.85 ~= 18/yr: warn.
	p = healthyDraft()
	p.Draft.Conditions[2] = "sector_rs > 1"
	p.Draft.Regime = "risk_on"
	p.Draft.ValidationPlan["regime_split"] = "validate per regime"
	f = findByID(t, e.Evaluate(p), domain.CriterionSampleAdequacy)
	if f.Severity != domain.SeverityWarn || f.Score != 40 {
		t.Errorf("Expected warn(40), got %s(%d) (%s)", f.Severity, f.Score, f.Message)
	}

	// Heavy narrowing: 252/3/2 * 0.8^8 * 0.85^2 ~= 5/yr: fail.
	p = healthyDraft()
	p.Draft.Conditions = append(repeatCondition("close > open", 7), "sector_rs > 1")
	p.Draft.TrendFilter = repeatCondition("close > sma_200", 2)
	p.Draft.Regime = "risk_on"
	f = findByID(t, e.Evaluate(p), domain.CriterionSampleAdequacy)
	if f.Severity != domain.SeverityFail || f.Score != 10 {
		t.Errorf("Expected fail(10), got %s(%d) (%s)", f.Severity, f.Score, f.Message)
	}
}

func TestSampleAdequacy_NeutralRegimeNotPenalized(t *testing.T) {
	e := NewEvaluator()
	p := healthyDraft()
	p.Draft.Regime = "neutral"
	p.Draft.ValidationPlan["regime_split"] = "validate per regime"

	f := findByID(t, e.Evaluate(p), domain.CriterionSampleAdequacy)
	if f.Severity != domain.SeverityPass {
		t.Errorf("Neutral regime should not halve the estimate, got %s (%s)", f.Severity, f.Message)
	}
}

func TestRegimeDependency(t *testing.T) {
	e := NewEvaluator()

	// Regime set, plan silent on regimes: warn.
	p := healthyDraft()
	p.Draft.Regime = "risk_on"
	f := findByID(t, e.Evaluate(p), domain.CriterionRegimeDependency)
	if f.Severity != domain.SeverityWarn || f.Score != 40 {
		t.Errorf("Expected warn(40), got %s(%d)", f.Severity, f.Score)
	}

	// Plan mentions regimes (case-insensitive): pass.
	p.Draft.ValidationPlan["robustness"] = "compare performance across Regimes"
	f = findByID(t, e.Evaluate(p), domain.CriterionRegimeDependency)
	if f.Severity != domain.SeverityPass {
		t.Errorf("Expected pass when plan mentions regimes, got %s", f.Severity)
	}

	// No regime conditioning: pass regardless of plan.
	p = healthyDraft()
	p.Draft.Regime = ""
	f = findByID(t, e.Evaluate(p), domain.CriterionRegimeDependency)
	if f.Severity != domain.SeverityPass {
		t.Errorf("Expected pass for empty regime, got %s", f.Severity)
	}
}

func TestExitCalibration(t *testing.T) {
	e := NewEvaluator()

	p := healthyDraft()
	p.Draft.StopLossPct = 0.18
	f := findByID(t, e.Evaluate(p), domain.CriterionExitCalibration)
	if f.Severity != domain.SeverityFail || f.Score != 10 {
		t.Errorf("Wide stop: expected fail(10), got %s(%d)", f.Severity, f.Score)
	}

	p = healthyDraft()
	p.Draft.TakeProfitRR = 1.2
	f = findByID(t, e.Evaluate(p), domain.CriterionExitCalibration)
	if f.Severity != domain.SeverityFail {
		t.Errorf("Thin RR: expected fail, got %s", f.Severity)
	}

	// Both triggered: worst score, both reasons surfaced.
	p = healthyDraft()
	p.Draft.StopLossPct = 0.18
	p.Draft.TakeProfitRR = 1.2
	f = findByID(t, e.Evaluate(p), domain.CriterionExitCalibration)
	if f.Score != 10 {
		t.Errorf("Expected worst score 10, got %d", f.Score)
	}
	if !strings.Contains(f.Message, "stop loss") || !strings.Contains(f.Message, "take profit") {
		t.Errorf("Message should surface both reasons, got %q", f.Message)
	}
}

func TestExitCalibration_DefaultedFieldsFail(t *testing.T) {
	e := NewEvaluator()
	p := healthyDraft()
	p.Draft.StopLossPct = 0
	p.Draft.TakeProfitRR = 0
	p = domain.NewParsedDraft(p.Draft, []string{domain.FieldStopLossPct, domain.FieldTakeProfitRR})

	f := findByID(t, e.Evaluate(p), domain.CriterionExitCalibration)
	if f.Severity != domain.SeverityFail {
		t.Errorf("Absent exit fields must not pass on zero values, got %s", f.Severity)
	}
	if !strings.Contains(f.Message, "stop_loss_pct absent") {
		t.Errorf("Message should name the defaulted field, got %q", f.Message)
	}
}

func TestRiskConcentration(t *testing.T) {
	e := NewEvaluator()

	p := healthyDraft()
	p.Draft.RiskPerTrade = 0.025
	f := findByID(t, e.Evaluate(p), domain.CriterionRiskConcentration)
	if f.Severity != domain.SeverityFail || f.Score != 10 {
		t.Errorf("Oversized risk: expected fail(10), got %s(%d)", f.Severity, f.Score)
	}

	p = healthyDraft()
	p.Draft.RiskPerTrade = 0.018
	f = findByID(t, e.Evaluate(p), domain.CriterionRiskConcentration)
	if f.Severity != domain.SeverityWarn || f.Score != 40 {
		t.Errorf("Elevated risk: expected warn(40), got %s(%d)", f.Severity, f.Score)
	}

	p = healthyDraft()
	p.Draft.MaxPositions = 12
	f = findByID(t, e.Evaluate(p), domain.CriterionRiskConcentration)
	if f.Severity != domain.SeverityFail {
		t.Errorf("Too many positions: expected fail, got %s", f.Severity)
	}

	// Warn-level risk plus fail-level positions: worst wins.
	p = healthyDraft()
	p.Draft.RiskPerTrade = 0.018
	p.Draft.MaxPositions = 12
	f = findByID(t, e.Evaluate(p), domain.CriterionRiskConcentration)
	if f.Severity != domain.SeverityFail || f.Score != 10 {
		t.Errorf("Expected worst outcome fail(10), got %s(%d)", f.Severity, f.Score)
	}
	if !strings.Contains(f.Message, "max positions") || !strings.Contains(f.Message, "risk per trade") {
		t.Errorf("Message should surface both reasons, got %q", f.Message)
	}
}

func TestRiskConcentration_DefaultedFieldsFail(t *testing.T) {
	e := NewEvaluator()
	p := healthyDraft()
	p.Draft.RiskPerTrade = 0
	p.Draft.MaxPositions = 0
	p = domain.NewParsedDraft(p.Draft, []string{domain.FieldRiskPerTrade, domain.FieldMaxPositions})

	f := findByID(t, e.Evaluate(p), domain.CriterionRiskConcentration)
	if f.Severity != domain.SeverityFail {
		t.Errorf("Absent risk fields must not pass on zero values, got %s", f.Severity)
	}
}

func TestExecutionRealism(t *testing.T) {
	e := NewEvaluator()

	// No volume reference anywhere: warn(50).
	p := healthyDraft()
	p.Draft.Conditions = []string{"close > pivot_high_20d", "close > open"}
	f := findByID(t, e.Evaluate(p), domain.CriterionExecutionRealism)
	if f.Severity != domain.SeverityWarn || f.Score != 50 {
		t.Errorf("Expected warn(50), got %s(%d)", f.Severity, f.Score)
	}

	// Export-flagged draft on a research-only family: fail(10).
	p = healthyDraft()
	p.Draft.ExportReadyV1 = true
	p.Draft.EntryFamily = "overnight_sentiment_probe"
	f = findByID(t, e.Evaluate(p), domain.CriterionExecutionRealism)
	if f.Severity != domain.SeverityFail || f.Score != 10 {
		t.Errorf("Expected fail(10), got %s(%d)", f.Severity, f.Score)
	}

	// Both triggered: worst score, both reasons surfaced.
	p = healthyDraft()
	p.Draft.Conditions = []string{"close > open"}
	p.Draft.ExportReadyV1 = true
	p.Draft.EntryFamily = "overnight_sentiment_probe"
	f = findByID(t, e.Evaluate(p), domain.CriterionExecutionRealism)
	if f.Score != 10 {
		t.Errorf("Expected worst score 10, got %d", f.Score)
	}
	if !strings.Contains(f.Message, "volume") || !strings.Contains(f.Message, "entry family") {
		t.Errorf("Message should surface both reasons, got %q", f.Message)
	}

	// Export-flagged on an exportable family with volume: pass.
	p = healthyDraft()
	p.Draft.ExportReadyV1 = true
	f = findByID(t, e.Evaluate(p), domain.CriterionExecutionRealism)
	if f.Severity != domain.SeverityPass {
		t.Errorf("Expected pass, got %s (%s)", f.Severity, f.Message)
	}
}

func TestInvalidationQuality(t *testing.T) {
	e := NewEvaluator()

	cases := []struct {
		signals  int
		severity domain.Severity
		score    int
	}{
		{0, domain.SeverityFail, 10},
		{1, domain.SeverityWarn, 40},
		{2, domain.SeverityPass, 80},
		{4, domain.SeverityPass, 80},
	}
	for _, tc := range cases {
		p := healthyDraft()
		p.Draft.InvalidationSignals = repeatCondition("thesis stops working", tc.signals)

		f := findByID(t, e.Evaluate(p), domain.CriterionInvalidationQuality)
		if f.Severity != tc.severity || f.Score != tc.score {
			t.Errorf("%d signals: expected %s(%d), got %s(%d)",
				tc.signals, tc.severity, tc.score, f.Severity, f.Score)
		}
	}
}

func repeatCondition(cond string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = cond
	}
	return out
}
