package domain

import "sort"

// ParseCompleteness distinguishes fully specified drafts from drafts that
// were loaded with one or more optional fields defaulted.
type ParseCompleteness string

const (
	ParseComplete            ParseCompleteness = "COMPLETE"
	ParsePartialWithDefaults ParseCompleteness = "PARTIAL_WITH_DEFAULTS"
)

// Document field names as they appear in draft documents. Defaulted-field
// tracking and report output use these keys.
const (
	FieldDraftID             = "draft_id"
	FieldVariant             = "variant"
	FieldEntryFamily         = "entry_family"
	FieldConditions          = "conditions"
	FieldTrendFilter         = "trend_filter"
	FieldThesis              = "thesis"
	FieldInvalidationSignals = "invalidation_signals"
	FieldRegime              = "regime"
	FieldStopLossPct         = "stop_loss_pct"
	FieldTakeProfitRR        = "take_profit_rr"
	FieldRiskPerTrade        = "risk_per_trade"
	FieldMaxPositions        = "max_positions"
	FieldValidationPlan      = "validation_plan"
	FieldExportReadyV1       = "export_ready_v1"
)

// ParsedDraft pairs a loaded draft with its parse completeness. Evaluators
// consult the defaulted-field set so that an absent risk field is scored as
// the least favorable input for its criterion instead of passing on a zero
// value.
type ParsedDraft struct {
	Draft        *StrategyDraft
	Completeness ParseCompleteness

	// Sorted document field names that were absent and defaulted.
	// Empty when Completeness is ParseComplete.
	DefaultedFields []string
}

// NewParsedDraft builds a ParsedDraft from a draft and the set of defaulted
// field names, normalizing completeness and field order.
func NewParsedDraft(draft *StrategyDraft, defaulted []string) ParsedDraft {
	p := ParsedDraft{Draft: draft, Completeness: ParseComplete}
	if len(defaulted) > 0 {
		p.Completeness = ParsePartialWithDefaults
		p.DefaultedFields = append([]string(nil), defaulted...)
		sort.Strings(p.DefaultedFields)
	}
	return p
}

// FieldDefaulted reports whether the named document field was absent at
// load time.
func (p ParsedDraft) FieldDefaulted(name string) bool {
	for _, f := range p.DefaultedFields {
		if f == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy, cloning the underlying draft.
func (p ParsedDraft) Clone() ParsedDraft {
	c := p
	c.Draft = p.Draft.Clone()
	c.DefaultedFields = append([]string(nil), p.DefaultedFields...)
	return c
}

// MalformedDraft records a draft document that failed to load: a parse
// error or a missing required field. Malformed drafts are excluded from
// scoring and reported separately; they never abort a batch.
type MalformedDraft struct {
	Source string // file path or stream label
	Reason string
}
