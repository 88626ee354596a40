package memory

import (
	"context"
	"sort"
	"sync"

	"strategy-draft-gate/internal/domain"
	"strategy-draft-gate/internal/storage"
)

// ReviewRunStore is an in-memory implementation of storage.ReviewRunStore.
type ReviewRunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ReviewRun // keyed by run_id
}

// NewReviewRunStore creates a new in-memory review run store.
func NewReviewRunStore() *ReviewRunStore {
	return &ReviewRunStore{
		data: make(map[string]*domain.ReviewRun),
	}
}

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *ReviewRunStore) Insert(_ context.Context, r *domain.ReviewRun) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	runCopy := *r
	s.data[r.RunID] = &runCopy
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *ReviewRunStore) GetByID(_ context.Context, runID string) (*domain.ReviewRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	// Return a copy
	runCopy := *r
	return &runCopy, nil
}

// GetAll retrieves all runs, ordered by generated_at_utc ASC, run_id ASC.
func (s *ReviewRunStore) GetAll(_ context.Context) ([]*domain.ReviewRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.ReviewRun, 0, len(s.data))
	for _, r := range s.data {
		runCopy := *r
		result = append(result, &runCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].GeneratedAtUTC.Equal(result[j].GeneratedAtUTC) {
			return result[i].GeneratedAtUTC.Before(result[j].GeneratedAtUTC)
		}
		return result[i].RunID < result[j].RunID
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.ReviewRunStore = (*ReviewRunStore)(nil)
