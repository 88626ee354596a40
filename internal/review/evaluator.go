package review

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"strategy-draft-gate/internal/domain"
)

// Criterion weights, summing to 100.
var criterionWeights = map[domain.CriterionID]int{
	domain.CriterionEdgePlausibility:    20,
	domain.CriterionOverfittingRisk:     20,
	domain.CriterionSampleAdequacy:      15,
	domain.CriterionRegimeDependency:    10,
	domain.CriterionExitCalibration:     10,
	domain.CriterionRiskConcentration:   10,
	domain.CriterionExecutionRealism:    10,
	domain.CriterionInvalidationQuality: 5,
}

// mechanismKeywords is the fixed vocabulary of causal mechanisms a thesis is
// expected to name.
var mechanismKeywords = []string{
	"momentum", "reversion", "drift", "earnings",
	"breakout", "gap", "volume", "sentiment",
}

// decimalLiteralRe matches a decimal-point numeric literal, the signature of
// a precise (likely overfit) threshold.
var decimalLiteralRe = regexp.MustCompile(`\d+\.\d+`)

// Evaluator scores a draft against the eight review criteria. It is a pure
// function of the parsed draft: no side effects, identical input yields
// identical findings.
type Evaluator struct{}

// NewEvaluator creates a new criterion evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate produces one finding per criterion, in C1..C8 order.
func (e *Evaluator) Evaluate(p domain.ParsedDraft) []domain.Finding {
	findings := make([]domain.Finding, 0, 8)
	findings = append(findings,
		e.evaluateEdgePlausibility(p),
		e.evaluateOverfittingRisk(p),
		e.evaluateSampleAdequacy(p),
		e.evaluateRegimeDependency(p),
		e.evaluateExitCalibration(p),
		e.evaluateRiskConcentration(p),
		e.evaluateExecutionRealism(p),
		e.evaluateInvalidationQuality(p),
	)
	return findings
}

// C1: a draft without a stated, recognizable causal mechanism has no edge.
func (e *Evaluator) evaluateEdgePlausibility(p domain.ParsedDraft) domain.Finding {
	f := finding(domain.CriterionEdgePlausibility)
	words := len(strings.Fields(p.Draft.Thesis))

	if words < 5 {
		f.Severity = domain.SeverityFail
		f.Score = 10
		f.Message = fmt.Sprintf("thesis has %d words, minimum 5", words)
		return f
	}

	lower := strings.ToLower(p.Draft.Thesis)
	hasMechanism := false
	for _, kw := range mechanismKeywords {
		if strings.Contains(lower, kw) {
			hasMechanism = true
			break
		}
	}
	if !hasMechanism && words < 10 {
		f.Severity = domain.SeverityWarn
		f.Score = 40
		f.Message = fmt.Sprintf("no mechanism keyword in %d-word thesis", words)
		return f
	}

	f.Severity = domain.SeverityPass
	f.Score = 80
	return f
}

// C2: rule count bounds plus a deduction per precise numeric threshold.
func (e *Evaluator) evaluateOverfittingRisk(p domain.ParsedDraft) domain.Finding {
	f := finding(domain.CriterionOverfittingRisk)
	n := len(p.Draft.Conditions) + len(p.Draft.TrendFilter)

	var reasons []string
	switch {
	case n > 12:
		f.Severity = domain.SeverityFail
		f.Score = 10
		reasons = append(reasons, fmt.Sprintf("%d rules, maximum 12", n))
	case n > 10:
		f.Severity = domain.SeverityWarn
		f.Score = 40
		reasons = append(reasons, fmt.Sprintf("%d rules, 10 is the comfortable limit", n))
	default:
		f.Severity = domain.SeverityPass
		f.Score = 80
	}

	precise := 0
	for _, cond := range p.Draft.Conditions {
		if decimalLiteralRe.MatchString(cond) {
			precise++
		}
	}
	if precise > 0 {
		f.Score -= 10 * precise
		if f.Score < 0 {
			f.Score = 0
		}
		reasons = append(reasons, fmt.Sprintf("%d precise thresholds (-%d)", precise, 10*precise))
	}

	f.Message = strings.Join(reasons, "; ")
	return f
}

// C3: rough annual opportunity estimate from condition narrowing.
func (e *Evaluator) evaluateSampleAdequacy(p domain.ParsedDraft) domain.Finding {
	f := finding(domain.CriterionSampleAdequacy)

	est := 252 // trading days per year
	if anyConditionContains(p.Draft.Conditions, "sector") {
		est /= 3
	}
	if specificRegime(p.Draft.Regime) {
		est /= 2
	}
	opportunities := float64(est) *
		math.Pow(0.8, float64(len(p.Draft.Conditions))) *
		math.Pow(0.85, float64(len(p.Draft.TrendFilter)))
	if opportunities < 1 {
		opportunities = 1
	}

	switch {
	case opportunities < 10:
		f.Severity = domain.SeverityFail
		f.Score = 10
		f.Message = fmt.Sprintf("estimated %.0f opportunities/yr, minimum 10", opportunities)
	case opportunities < 30:
		f.Severity = domain.SeverityWarn
		f.Score = 40
		f.Message = fmt.Sprintf("estimated %.0f opportunities/yr, 30 needed for comfort", opportunities)
	default:
		f.Severity = domain.SeverityPass
		f.Score = 80
	}
	return f
}

// C4: a regime-conditioned draft must plan to validate across regimes.
func (e *Evaluator) evaluateRegimeDependency(p domain.ParsedDraft) domain.Finding {
	f := finding(domain.CriterionRegimeDependency)

	if p.Draft.Regime != "" && !planMentionsRegime(p.Draft.ValidationPlan) {
		f.Severity = domain.SeverityWarn
		f.Score = 40
		f.Message = fmt.Sprintf("regime %q set but validation plan never mentions regimes", p.Draft.Regime)
		return f
	}

	f.Severity = domain.SeverityPass
	f.Score = 80
	return f
}

// C5: exit calibration. An absent stop or target is scored as uncalibrated
// rather than silently passing on its zero value.
func (e *Evaluator) evaluateExitCalibration(p domain.ParsedDraft) domain.Finding {
	f := finding(domain.CriterionExitCalibration)

	var reasons []string
	if p.FieldDefaulted(domain.FieldStopLossPct) {
		reasons = append(reasons, "stop_loss_pct absent")
	} else if p.Draft.StopLossPct > 0.15 {
		reasons = append(reasons, fmt.Sprintf("stop loss %.2f exceeds 0.15", p.Draft.StopLossPct))
	}
	if p.FieldDefaulted(domain.FieldTakeProfitRR) {
		reasons = append(reasons, "take_profit_rr absent")
	} else if p.Draft.TakeProfitRR < 1.5 {
		reasons = append(reasons, fmt.Sprintf("take profit RR %.2f below 1.5", p.Draft.TakeProfitRR))
	}

	if len(reasons) > 0 {
		f.Severity = domain.SeverityFail
		f.Score = 10
		f.Message = strings.Join(reasons, "; ")
		return f
	}

	f.Severity = domain.SeverityPass
	f.Score = 80
	return f
}

// C6: risk concentration. Worst triggered outcome wins; all triggered
// reasons are surfaced in the message.
func (e *Evaluator) evaluateRiskConcentration(p domain.ParsedDraft) domain.Finding {
	f := finding(domain.CriterionRiskConcentration)

	var failReasons, warnReasons []string
	if p.FieldDefaulted(domain.FieldRiskPerTrade) {
		failReasons = append(failReasons, "risk_per_trade absent")
	} else if p.Draft.RiskPerTrade > 0.02 {
		failReasons = append(failReasons, fmt.Sprintf("risk per trade %.3f exceeds 0.02", p.Draft.RiskPerTrade))
	} else if p.Draft.RiskPerTrade > 0.015 {
		warnReasons = append(warnReasons, fmt.Sprintf("risk per trade %.3f above 0.015", p.Draft.RiskPerTrade))
	}
	if p.FieldDefaulted(domain.FieldMaxPositions) {
		failReasons = append(failReasons, "max_positions absent")
	} else if p.Draft.MaxPositions > 10 {
		failReasons = append(failReasons, fmt.Sprintf("max positions %d exceeds 10", p.Draft.MaxPositions))
	}

	switch {
	case len(failReasons) > 0:
		f.Severity = domain.SeverityFail
		f.Score = 10
		f.Message = strings.Join(append(failReasons, warnReasons...), "; ")
	case len(warnReasons) > 0:
		f.Severity = domain.SeverityWarn
		f.Score = 40
		f.Message = strings.Join(warnReasons, "; ")
	default:
		f.Severity = domain.SeverityPass
		f.Score = 80
	}
	return f
}

// C7: execution realism. Worst triggered outcome wins.
func (e *Evaluator) evaluateExecutionRealism(p domain.ParsedDraft) domain.Finding {
	f := finding(domain.CriterionExecutionRealism)

	var failReasons, warnReasons []string
	if p.Draft.ExportReadyV1 && !domain.ExportableEntryFamily(p.Draft.EntryFamily) {
		failReasons = append(failReasons, fmt.Sprintf("export-ready draft uses non-exportable entry family %q", p.Draft.EntryFamily))
	}
	if !anyConditionContains(p.Draft.Conditions, "volume") {
		warnReasons = append(warnReasons, "no volume filter in conditions")
	}

	switch {
	case len(failReasons) > 0:
		f.Severity = domain.SeverityFail
		f.Score = 10
		f.Message = strings.Join(append(failReasons, warnReasons...), "; ")
	case len(warnReasons) > 0:
		f.Severity = domain.SeverityWarn
		f.Score = 50
		f.Message = strings.Join(warnReasons, "; ")
	default:
		f.Severity = domain.SeverityPass
		f.Score = 80
	}
	return f
}

// C8: invalidation quality by signal count.
func (e *Evaluator) evaluateInvalidationQuality(p domain.ParsedDraft) domain.Finding {
	f := finding(domain.CriterionInvalidationQuality)

	switch len(p.Draft.InvalidationSignals) {
	case 0:
		f.Severity = domain.SeverityFail
		f.Score = 10
		f.Message = "no invalidation signals"
	case 1:
		f.Severity = domain.SeverityWarn
		f.Score = 40
		f.Message = "single invalidation signal"
	default:
		f.Severity = domain.SeverityPass
		f.Score = 80
	}
	return f
}

// finding seeds a Finding with its criterion ID and fixed weight.
func finding(id domain.CriterionID) domain.Finding {
	return domain.Finding{CriterionID: id, Weight: criterionWeights[id]}
}

func anyConditionContains(conditions []string, needle string) bool {
	for _, c := range conditions {
		if strings.Contains(strings.ToLower(c), needle) {
			return true
		}
	}
	return false
}

// specificRegime reports whether regime names a concrete market condition
// rather than a neutral or unknown placeholder.
func specificRegime(regime string) bool {
	switch strings.ToLower(regime) {
	case "", "neutral", "unknown":
		return false
	}
	return true
}

func planMentionsRegime(plan map[string]string) bool {
	for step, text := range plan {
		if strings.Contains(strings.ToLower(step), "regime") ||
			strings.Contains(strings.ToLower(text), "regime") {
			return true
		}
	}
	return false
}
