package intake

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"strategy-draft-gate/internal/domain"
)

// draftDocument is the wire form of a strategy draft. Optional fields are
// pointers so absence is distinguishable from a present zero value.
type draftDocument struct {
	DraftID             *string           `yaml:"draft_id"`
	Variant             *string           `yaml:"variant"`
	EntryFamily         *string           `yaml:"entry_family"`
	Conditions          *[]string         `yaml:"conditions"`
	TrendFilter         *[]string         `yaml:"trend_filter"`
	Thesis              *string           `yaml:"thesis"`
	InvalidationSignals *[]string         `yaml:"invalidation_signals"`
	Regime              *string           `yaml:"regime"`
	StopLossPct         *float64          `yaml:"stop_loss_pct"`
	TakeProfitRR        *float64          `yaml:"take_profit_rr"`
	RiskPerTrade        *float64          `yaml:"risk_per_trade"`
	MaxPositions        *int              `yaml:"max_positions"`
	ValidationPlan      map[string]string `yaml:"validation_plan"`
	ExportReadyV1       *bool             `yaml:"export_ready_v1"`
}

// ParseDraft decodes one draft document. A parse failure or a missing
// required field (draft_id, variant, entry_family, conditions) returns an
// error wrapping ErrMalformed. Optional fields default to neutral values
// and are recorded in the returned ParsedDraft's defaulted-field set.
func ParseDraft(data []byte) (domain.ParsedDraft, error) {
	var doc draftDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return domain.ParsedDraft{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if doc.DraftID == nil || *doc.DraftID == "" {
		return domain.ParsedDraft{}, fmt.Errorf("%w: missing required field %s", ErrMalformed, domain.FieldDraftID)
	}
	if doc.Variant == nil || *doc.Variant == "" {
		return domain.ParsedDraft{}, fmt.Errorf("%w: missing required field %s", ErrMalformed, domain.FieldVariant)
	}
	if !domain.ValidVariant(domain.Variant(*doc.Variant)) {
		return domain.ParsedDraft{}, fmt.Errorf("%w: unknown variant %q", ErrMalformed, *doc.Variant)
	}
	if doc.EntryFamily == nil || *doc.EntryFamily == "" {
		return domain.ParsedDraft{}, fmt.Errorf("%w: missing required field %s", ErrMalformed, domain.FieldEntryFamily)
	}
	if doc.Conditions == nil {
		return domain.ParsedDraft{}, fmt.Errorf("%w: missing required field %s", ErrMalformed, domain.FieldConditions)
	}

	draft := &domain.StrategyDraft{
		DraftID:     *doc.DraftID,
		Variant:     domain.Variant(*doc.Variant),
		EntryFamily: *doc.EntryFamily,
		Conditions:  append([]string(nil), (*doc.Conditions)...),
	}

	// Optional fields: apply neutral defaults, remember what was absent.
	var defaulted []string
	if doc.TrendFilter != nil {
		draft.TrendFilter = append([]string(nil), (*doc.TrendFilter)...)
	} else {
		defaulted = append(defaulted, domain.FieldTrendFilter)
	}
	if doc.Thesis != nil {
		draft.Thesis = *doc.Thesis
	} else {
		defaulted = append(defaulted, domain.FieldThesis)
	}
	if doc.InvalidationSignals != nil {
		draft.InvalidationSignals = append([]string(nil), (*doc.InvalidationSignals)...)
	} else {
		defaulted = append(defaulted, domain.FieldInvalidationSignals)
	}
	if doc.Regime != nil {
		draft.Regime = *doc.Regime
	} else {
		defaulted = append(defaulted, domain.FieldRegime)
	}
	if doc.StopLossPct != nil {
		draft.StopLossPct = *doc.StopLossPct
	} else {
		defaulted = append(defaulted, domain.FieldStopLossPct)
	}
	if doc.TakeProfitRR != nil {
		draft.TakeProfitRR = *doc.TakeProfitRR
	} else {
		defaulted = append(defaulted, domain.FieldTakeProfitRR)
	}
	if doc.RiskPerTrade != nil {
		draft.RiskPerTrade = *doc.RiskPerTrade
	} else {
		defaulted = append(defaulted, domain.FieldRiskPerTrade)
	}
	if doc.MaxPositions != nil {
		draft.MaxPositions = *doc.MaxPositions
	} else {
		defaulted = append(defaulted, domain.FieldMaxPositions)
	}
	if doc.ValidationPlan != nil {
		draft.ValidationPlan = doc.ValidationPlan
	} else {
		defaulted = append(defaulted, domain.FieldValidationPlan)
	}
	if doc.ExportReadyV1 != nil {
		draft.ExportReadyV1 = *doc.ExportReadyV1
	} else {
		defaulted = append(defaulted, domain.FieldExportReadyV1)
	}

	return domain.NewParsedDraft(draft, defaulted), nil
}
