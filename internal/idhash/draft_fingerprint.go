package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"strategy-draft-gate/internal/domain"
)

// ComputeDraftFingerprint computes a deterministic content hash over every
// reviewed field of a draft. Two drafts with the same fingerprint are
// evaluated identically. Returns hex-encoded hash (64 characters).
func ComputeDraftFingerprint(d *domain.StrategyDraft) string {
	plan := make([]string, 0, len(d.ValidationPlan))
	for k, v := range d.ValidationPlan {
		plan = append(plan, k+"="+v)
	}
	sort.Strings(plan)

	parts := []string{
		d.DraftID,
		string(d.Variant),
		d.EntryFamily,
		strings.Join(d.Conditions, ","),
		strings.Join(d.TrendFilter, ","),
		d.Thesis,
		strings.Join(d.InvalidationSignals, ","),
		d.Regime,
		strconv.FormatFloat(d.StopLossPct, 'f', -1, 64),
		strconv.FormatFloat(d.TakeProfitRR, 'f', -1, 64),
		strconv.FormatFloat(d.RiskPerTrade, 'f', -1, 64),
		strconv.Itoa(d.MaxPositions),
		strings.Join(plan, ","),
		strconv.FormatBool(d.ExportReadyV1),
	}

	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(hash[:])
}
