// Package analytics aggregates persisted criterion outcomes into the
// per-criterion and per-entry-family tables behind the stats CLI.
package analytics

import (
	"context"
	"errors"

	"strategy-draft-gate/internal/domain"
	"strategy-draft-gate/internal/storage"
)

// ErrNoOutcomes is returned when no outcome rows match the aggregation key.
var ErrNoOutcomes = errors.New("no outcomes available for aggregation")

// Aggregator computes criterion and entry-family statistics from persisted
// outcome rows.
type Aggregator struct {
	outcomeStore storage.CriterionOutcomeStore
}

// NewAggregator creates a new analytics aggregator.
func NewAggregator(outcomes storage.CriterionOutcomeStore) *Aggregator {
	return &Aggregator{outcomeStore: outcomes}
}

// RunCriterionStats computes per-criterion statistics for one run.
// Returns ErrNoOutcomes if the run has no persisted outcomes.
func (a *Aggregator) RunCriterionStats(ctx context.Context, runID string) ([]CriterionStats, error) {
	rows, err := a.outcomeStore.GetByRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoOutcomes
	}
	return computeCriterionStats(rows), nil
}

// CriterionTrend computes statistics for a single criterion across all runs.
// Returns ErrNoOutcomes if the criterion was never persisted.
func (a *Aggregator) CriterionTrend(ctx context.Context, id domain.CriterionID) (*CriterionStats, error) {
	rows, err := a.outcomeStore.GetByCriterion(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoOutcomes
	}

	stats := computeCriterionStats(rows)
	return &stats[0], nil
}

// RunEntryFamilyStats computes the verdict distribution per entry family
// for one run. Returns ErrNoOutcomes if the run has no persisted outcomes.
func (a *Aggregator) RunEntryFamilyStats(ctx context.Context, runID string) ([]EntryFamilyStats, error) {
	rows, err := a.outcomeStore.GetByRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoOutcomes
	}
	return computeEntryFamilyStats(rows), nil
}
