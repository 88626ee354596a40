package domain

// StrategyDraft represents a proposed trading rule set produced by the
// upstream strategy designer. Drafts are owned by a single gate run: only
// the revision applier and the loop downgrade step mutate them, and never
// after they have been accumulated into a terminal result list.
type StrategyDraft struct {
	DraftID     string  // stable identifier
	Variant     Variant // core | conservative | research_probe
	EntryFamily string  // detection method tag, e.g. pivot_breakout

	Conditions  []string // ordered entry condition expressions
	TrendFilter []string // ordered trend filter expressions

	Thesis              string   // hypothesized causal mechanism, free text
	InvalidationSignals []string // conditions falsifying the thesis
	Regime              string   // market regime tag, empty when unconditioned

	// Risk and exit calibration
	StopLossPct  float64 // fraction, >0
	TakeProfitRR float64 // reward:risk ratio, >0
	RiskPerTrade float64 // fraction of capital per trade
	MaxPositions int     // concurrent position cap

	ValidationPlan map[string]string // plan-step name -> description

	// Set upstream by the designer; mutable only by downgrade.
	ExportReadyV1 bool
}

// Variant classifies how a draft is intended to be used.
type Variant string

const (
	VariantCore          Variant = "core"
	VariantConservative  Variant = "conservative"
	VariantResearchProbe Variant = "research_probe"
)

// Entry families accepted by the downstream export pipeline.
const (
	EntryFamilyPivotBreakout     = "pivot_breakout"
	EntryFamilyGapUpContinuation = "gap_up_continuation"
)

// ExportableEntryFamily reports whether family is one of the two entry
// families the versioned export interface supports.
func ExportableEntryFamily(family string) bool {
	return family == EntryFamilyPivotBreakout || family == EntryFamilyGapUpContinuation
}

// ValidVariant reports whether v is one of the three known variants.
func ValidVariant(v Variant) bool {
	switch v {
	case VariantCore, VariantConservative, VariantResearchProbe:
		return true
	}
	return false
}

// Clone returns a deep copy of the draft. Revision and downgrade operate on
// copies so that accumulated terminal results keep the state they were
// evaluated against.
func (d *StrategyDraft) Clone() *StrategyDraft {
	c := *d
	c.Conditions = append([]string(nil), d.Conditions...)
	c.TrendFilter = append([]string(nil), d.TrendFilter...)
	c.InvalidationSignals = append([]string(nil), d.InvalidationSignals...)
	if d.ValidationPlan != nil {
		c.ValidationPlan = make(map[string]string, len(d.ValidationPlan))
		for k, v := range d.ValidationPlan {
			c.ValidationPlan[k] = v
		}
	}
	return &c
}
