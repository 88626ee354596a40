package idhash

import (
	"testing"

	"strategy-draft-gate/internal/domain"
)

func fingerprintDraft() *domain.StrategyDraft {
	return &domain.StrategyDraft{
		DraftID:             "d-100",
		Variant:             domain.VariantCore,
		EntryFamily:         domain.EntryFamilyPivotBreakout,
		Conditions:          []string{"close > pivot_high_20d", "volume > 2 * avg_volume_20d"},
		TrendFilter:         []string{"close > sma_200"},
		Thesis:              "Momentum continuation after breakout",
		InvalidationSignals: []string{"close < pivot_low_10d"},
		Regime:              "bull",
		StopLossPct:         0.08,
		TakeProfitRR:        2.0,
		RiskPerTrade:        0.01,
		MaxPositions:        5,
		ValidationPlan:      map[string]string{"method": "walk_forward", "window": "2018-2024"},
		ExportReadyV1:       true,
	}
}

func TestComputeDraftFingerprint(t *testing.T) {
	d := fingerprintDraft()

	got := ComputeDraftFingerprint(d)
	if len(got) != 64 {
		t.Errorf("ComputeDraftFingerprint() length = %d, want 64", len(got))
	}

	// Compute multiple times
	for i := 0; i < 10; i++ {
		if again := ComputeDraftFingerprint(d); again != got {
			t.Fatalf("Determinism failed: %s != %s", again, got)
		}
	}
}

func TestComputeDraftFingerprint_PlanOrderIndependent(t *testing.T) {
	a := fingerprintDraft()
	b := fingerprintDraft()
	b.ValidationPlan = map[string]string{"window": "2018-2024", "method": "walk_forward"}

	if ComputeDraftFingerprint(a) != ComputeDraftFingerprint(b) {
		t.Error("Validation plan map order should not change fingerprint")
	}
}

func TestComputeDraftFingerprint_DifferentInputs(t *testing.T) {
	base := ComputeDraftFingerprint(fingerprintDraft())

	d := fingerprintDraft()
	d.Conditions = append(d.Conditions, "rsi_14 > 55")
	if ComputeDraftFingerprint(d) == base {
		t.Error("Different conditions should produce different fingerprint")
	}

	d = fingerprintDraft()
	d.Variant = domain.VariantResearchProbe
	if ComputeDraftFingerprint(d) == base {
		t.Error("Different variant should produce different fingerprint")
	}

	d = fingerprintDraft()
	d.StopLossPct = 0.1
	if ComputeDraftFingerprint(d) == base {
		t.Error("Different stop loss should produce different fingerprint")
	}

	d = fingerprintDraft()
	d.ExportReadyV1 = false
	if ComputeDraftFingerprint(d) == base {
		t.Error("Different export flag should produce different fingerprint")
	}
}
