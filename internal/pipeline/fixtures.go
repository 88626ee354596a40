package pipeline

import (
	"context"

	"strategy-draft-gate/internal/domain"
)

// FixtureDrafts returns a handcrafted demo batch that exercises every
// terminal path: immediate passes, a reject, a draft repaired by revision,
// a draft the applier cannot repair, and a non-exportable research probe.
func FixtureDrafts() []domain.ParsedDraft {
	drafts := []*domain.StrategyDraft{
		// Clean pivot breakout, passes first evaluation and clears export.
		{
			DraftID:     "demo_pivot_clean",
			Variant:     domain.VariantCore,
			EntryFamily: domain.EntryFamilyPivotBreakout,
			Conditions: []string{
				"close > pivot_high_20d",
				"volume > 2 * avg_volume_20d",
			},
			TrendFilter: []string{"close > sma_200"},
			Thesis:      "Breakout above the twenty day pivot with volume expansion attracts momentum buyers.",
			InvalidationSignals: []string{
				"three consecutive closes back below the pivot level",
				"expansion day fails to hold its gains into the close",
			},
			Regime:       "",
			StopLossPct:  0.08,
			TakeProfitRR: 2.0,
			RiskPerTrade: 0.01,
			MaxPositions: 5,
			ValidationPlan: map[string]string{
				"walk_forward": "six rolling windows over 2019-2024",
			},
			ExportReadyV1: true,
		},
		// Passes but is not flagged export ready, so it stays internal.
		{
			DraftID:     "demo_gap_momentum",
			Variant:     domain.VariantConservative,
			EntryFamily: domain.EntryFamilyGapUpContinuation,
			Conditions: []string{
				"gap_pct > 2",
				"volume > 2 * avg_volume_20d",
			},
			TrendFilter: []string{"close > sma_50"},
			Thesis:      "Overnight gap carries momentum into the first session as early shorts cover.",
			InvalidationSignals: []string{
				"gap fills completely within the first two sessions",
				"momentum breadth turns negative market wide",
			},
			Regime:        "",
			StopLossPct:   0.06,
			TakeProfitRR:  2.5,
			RiskPerTrade:  0.012,
			MaxPositions:  4,
			ExportReadyV1: false,
		},
		// Eleven conditions with precise thresholds and no volume filter.
		// Revision truncates the rule set and appends the volume filter,
		// after which the second evaluation passes.
		{
			DraftID:     "demo_overfit_sprawl",
			Variant:     domain.VariantCore,
			EntryFamily: domain.EntryFamilyPivotBreakout,
			Conditions: []string{
				"close > high_20d",
				"close > open",
				"rsi_14 > 55",
				"adx_14 > 20",
				"close > sma_50",
				"atr_ratio > 1.25",
				"macd_hist > 0.15",
				"range_pct < 3",
				"gap_pct < 2",
				"close > vwap",
				"high > prev_high",
			},
			Thesis: "Momentum drift after strong closes attracts systematic trend followers.",
			InvalidationSignals: []string{
				"trend followers stop responding to strong closes",
			},
			Regime:        "",
			StopLossPct:   0.08,
			TakeProfitRR:  2.0,
			RiskPerTrade:  0.01,
			MaxPositions:  5,
			ExportReadyV1: true,
		},
		// Three word thesis, rejected outright on the first evaluation.
		{
			DraftID:     "demo_thin_thesis",
			Variant:     domain.VariantCore,
			EntryFamily: domain.EntryFamilyPivotBreakout,
			Conditions: []string{
				"close > high_20d",
				"volume > 2 * avg_volume_20d",
			},
			Thesis: "it prints money",
			InvalidationSignals: []string{
				"returns decay after transaction costs",
				"signal crowding compresses the spread",
			},
			Regime:        "",
			StopLossPct:   0.1,
			TakeProfitRR:  2.0,
			RiskPerTrade:  0.01,
			MaxPositions:  5,
			ExportReadyV1: false,
		},
		// Stop loss wide enough to fail exit calibration every round. No
		// mutation rule repairs exits, so the draft exhausts the budget
		// and is downgraded to a research probe.
		{
			DraftID:     "demo_wide_stop",
			Variant:     domain.VariantCore,
			EntryFamily: domain.EntryFamilyGapUpContinuation,
			Conditions: []string{
				"close > high_20d",
				"volume > 2 * avg_volume_20d",
			},
			Thesis: "Earnings drift continues for weeks as analysts revise estimates upward.",
			InvalidationSignals: []string{
				"estimate revisions turn negative",
				"drift stalls within two weeks of the report",
			},
			Regime:        "",
			StopLossPct:   0.2,
			TakeProfitRR:  2.0,
			RiskPerTrade:  0.01,
			MaxPositions:  5,
			ExportReadyV1: true,
		},
		// Regime conditioned research probe. Passes but its entry family
		// is outside the export interface, so it never ships.
		{
			DraftID:     "demo_mean_reversion_probe",
			Variant:     domain.VariantResearchProbe,
			EntryFamily: "mean_reversion_band",
			Conditions: []string{
				"close < lower_band_20d",
				"volume > 2 * avg_volume_20d",
				"rsi_14 < 30",
			},
			Thesis: "Mean reversion toward the band midpoint as liquidity providers fade extremes.",
			InvalidationSignals: []string{
				"band touches start trending through the midpoint",
				"realized volatility doubles off the lows",
			},
			Regime:       "low_volatility",
			StopLossPct:  0.05,
			TakeProfitRR: 1.8,
			RiskPerTrade: 0.01,
			MaxPositions: 3,
			ValidationPlan: map[string]string{
				"regime_split": "compare hit rate and drawdown across volatility regimes",
			},
			ExportReadyV1: false,
		},
	}

	parsed := make([]domain.ParsedDraft, len(drafts))
	for i, d := range drafts {
		parsed[i] = domain.NewParsedDraft(d, nil)
	}
	return parsed
}

// FixtureMalformed returns the demo batch's unloadable document.
func FixtureMalformed() []domain.MalformedDraft {
	return []domain.MalformedDraft{
		{Source: "fixtures/demo_truncated.yaml", Reason: "missing required field draft_id"},
	}
}

// FixtureSource serves the demo batch through the standard source
// interface so the pipeline and CLI need no special fixture path.
type FixtureSource struct{}

// NewFixtureSource creates a source serving the built-in demo batch.
func NewFixtureSource() *FixtureSource {
	return &FixtureSource{}
}

// Fetch returns fresh copies of the demo drafts. Each call allocates new
// draft values so one run's mutations never leak into the next.
func (s *FixtureSource) Fetch(ctx context.Context) ([]domain.ParsedDraft, []domain.MalformedDraft, error) {
	return FixtureDrafts(), FixtureMalformed(), nil
}
