package memory

import (
	"context"
	"sort"
	"sync"

	"strategy-draft-gate/internal/domain"
	"strategy-draft-gate/internal/storage"
)

// CriterionOutcomeStore is an in-memory implementation of storage.CriterionOutcomeStore.
type CriterionOutcomeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.CriterionOutcome // keyed by run_id|draft_id|criterion_id
}

// NewCriterionOutcomeStore creates a new in-memory criterion outcome store.
func NewCriterionOutcomeStore() *CriterionOutcomeStore {
	return &CriterionOutcomeStore{
		data: make(map[string]*domain.CriterionOutcome),
	}
}

func outcomeKey(o *domain.CriterionOutcome) string {
	return o.RunID + "|" + o.DraftID + "|" + string(o.CriterionID)
}

// InsertBulk adds multiple outcomes. Fails entire batch on any duplicate.
func (s *CriterionOutcomeStore) InsertBulk(_ context.Context, outcomes []*domain.CriterionOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: validate everything before writing anything
	seen := make(map[string]struct{}, len(outcomes))
	for _, o := range outcomes {
		if o == nil || o.RunID == "" || o.DraftID == "" || o.CriterionID == "" {
			return storage.ErrInvalidInput
		}
		key := outcomeKey(o)
		if _, dup := seen[key]; dup {
			return storage.ErrDuplicateKey
		}
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}
	}

	// Second pass: insert copies
	for _, o := range outcomes {
		outcomeCopy := *o
		s.data[outcomeKey(o)] = &outcomeCopy
	}
	return nil
}

// GetByRun retrieves all outcomes for a run, ordered by draft_id ASC, criterion_id ASC.
func (s *CriterionOutcomeStore) GetByRun(_ context.Context, runID string) ([]*domain.CriterionOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.CriterionOutcome
	for _, o := range s.data {
		if o.RunID == runID {
			outcomeCopy := *o
			result = append(result, &outcomeCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].DraftID != result[j].DraftID {
			return result[i].DraftID < result[j].DraftID
		}
		return result[i].CriterionID < result[j].CriterionID
	})

	return result, nil
}

// GetByCriterion retrieves all outcomes for one criterion across runs,
// ordered by run_id ASC, draft_id ASC.
func (s *CriterionOutcomeStore) GetByCriterion(_ context.Context, criterionID domain.CriterionID) ([]*domain.CriterionOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.CriterionOutcome
	for _, o := range s.data {
		if o.CriterionID == criterionID {
			outcomeCopy := *o
			result = append(result, &outcomeCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].RunID != result[j].RunID {
			return result[i].RunID < result[j].RunID
		}
		return result[i].DraftID < result[j].DraftID
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.CriterionOutcomeStore = (*CriterionOutcomeStore)(nil)
