package review

import (
	"math"

	"strategy-draft-gate/internal/domain"
)

// Classification is the verdict engine's output for one draft.
type Classification struct {
	Verdict         domain.Verdict
	ConfidenceScore int
	Instructions    []domain.InstructionKind
}

// VerdictEngine turns a finding set into a verdict, a weighted confidence
// score, and revision instructions when the draft is worth another pass.
type VerdictEngine struct{}

// NewVerdictEngine creates a new verdict engine.
func NewVerdictEngine() *VerdictEngine {
	return &VerdictEngine{}
}

// Classify applies the verdict rules in order:
//  1. C1 or C2 fail rejects outright, no instructions. No amount of strength
//     elsewhere compensates for an implausible edge or a near-certainly
//     overfit rule set.
//  2. Confidence >= 70 with no failing finding passes.
//  3. Confidence < 35 rejects.
//  4. Everything else revises, one instruction per finding short of a clean
//     pass (duplicate kinds collapsed, order preserved).
//
// Confidence is computed for every draft, including rejects, so the report
// always carries it.
func (g *VerdictEngine) Classify(findings []domain.Finding) Classification {
	c := Classification{ConfidenceScore: ConfidenceScore(findings)}

	anyFail := false
	for _, f := range findings {
		if f.Severity != domain.SeverityFail {
			continue
		}
		anyFail = true
		if f.CriterionID == domain.CriterionEdgePlausibility ||
			f.CriterionID == domain.CriterionOverfittingRisk {
			c.Verdict = domain.VerdictReject
			return c
		}
	}

	switch {
	case c.ConfidenceScore >= 70 && !anyFail:
		c.Verdict = domain.VerdictPass
	case c.ConfidenceScore < 35:
		c.Verdict = domain.VerdictReject
	default:
		c.Verdict = domain.VerdictRevise
		c.Instructions = instructionsFor(findings)
	}
	return c
}

// ConfidenceScore computes the weighted average of finding scores, rounded
// and clamped to [0, 100].
func ConfidenceScore(findings []domain.Finding) int {
	total := 0.0
	for _, f := range findings {
		total += float64(f.Weight) * float64(f.Score)
	}
	score := int(math.Round(total / 100))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// instructionsFor derives one instruction kind per finding short of a clean
// pass (score below 80), collapsing duplicates while preserving order.
func instructionsFor(findings []domain.Finding) []domain.InstructionKind {
	var kinds []domain.InstructionKind
	seen := make(map[domain.InstructionKind]bool)
	for _, f := range findings {
		if f.Score >= 80 {
			continue
		}
		k := kindFor(f)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		kinds = append(kinds, k)
	}
	return kinds
}

// kindFor maps a non-pass finding to the revision that addresses it.
func kindFor(f domain.Finding) domain.InstructionKind {
	switch f.CriterionID {
	case domain.CriterionEdgePlausibility:
		return domain.InstructionExpandThesis
	case domain.CriterionOverfittingRisk:
		// Warn means the rule count itself is the problem; a docked score at
		// pass severity means precise thresholds did the damage.
		if f.Severity == domain.SeverityWarn {
			return domain.InstructionReduceEntryConditions
		}
		return domain.InstructionRoundPreciseThresholds
	case domain.CriterionSampleAdequacy:
		return domain.InstructionReduceEntryConditions
	case domain.CriterionRegimeDependency:
		return domain.InstructionAddRegimeValidation
	case domain.CriterionExitCalibration:
		return domain.InstructionRecalibrateExits
	case domain.CriterionRiskConcentration:
		return domain.InstructionReduceRisk
	case domain.CriterionExecutionRealism:
		if f.Severity == domain.SeverityFail {
			return domain.InstructionAlignEntryFamily
		}
		return domain.InstructionAddVolumeFilter
	case domain.CriterionInvalidationQuality:
		return domain.InstructionAddInvalidation
	}
	return ""
}
