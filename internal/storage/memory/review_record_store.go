package memory

import (
	"context"
	"sort"
	"sync"

	"strategy-draft-gate/internal/domain"
	"strategy-draft-gate/internal/storage"
)

// ReviewRecordStore is an in-memory implementation of storage.ReviewRecordStore.
type ReviewRecordStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ReviewRecord // keyed by run_id|draft_id
}

// NewReviewRecordStore creates a new in-memory review record store.
func NewReviewRecordStore() *ReviewRecordStore {
	return &ReviewRecordStore{
		data: make(map[string]*domain.ReviewRecord),
	}
}

func recordKey(runID, draftID string) string {
	return runID + "|" + draftID
}

// copyRecord deep-copies a record so callers cannot mutate stored findings.
func copyRecord(r *domain.ReviewRecord) *domain.ReviewRecord {
	return &domain.ReviewRecord{
		RunID:  r.RunID,
		Result: *r.Result.Clone(),
	}
}

// Insert adds a new record. Returns ErrDuplicateKey if (run_id, draft_id) exists.
func (s *ReviewRecordStore) Insert(_ context.Context, r *domain.ReviewRecord) error {
	if r == nil || r.RunID == "" || r.Result.DraftID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey(r.RunID, r.Result.DraftID)
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[key] = copyRecord(r)
	return nil
}

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *ReviewRecordStore) InsertBulk(_ context.Context, records []*domain.ReviewRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: validate everything before writing anything
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r == nil || r.RunID == "" || r.Result.DraftID == "" {
			return storage.ErrInvalidInput
		}
		key := recordKey(r.RunID, r.Result.DraftID)
		if _, dup := seen[key]; dup {
			return storage.ErrDuplicateKey
		}
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}
	}

	// Second pass: insert
	for _, r := range records {
		s.data[recordKey(r.RunID, r.Result.DraftID)] = copyRecord(r)
	}
	return nil
}

// GetByRun retrieves all records for a run, ordered by draft_id ASC.
func (s *ReviewRecordStore) GetByRun(_ context.Context, runID string) ([]*domain.ReviewRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ReviewRecord
	for _, r := range s.data {
		if r.RunID == runID {
			result = append(result, copyRecord(r))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Result.DraftID < result[j].Result.DraftID
	})

	return result, nil
}

// GetByDraft retrieves one draft's records across all runs, ordered by run_id ASC.
func (s *ReviewRecordStore) GetByDraft(_ context.Context, draftID string) ([]*domain.ReviewRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ReviewRecord
	for _, r := range s.data {
		if r.Result.DraftID == draftID {
			result = append(result, copyRecord(r))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].RunID < result[j].RunID
	})

	return result, nil
}

// GetByRunAndDraft retrieves one record. Returns ErrNotFound if not exists.
func (s *ReviewRecordStore) GetByRunAndDraft(_ context.Context, runID, draftID string) (*domain.ReviewRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[recordKey(runID, draftID)]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return copyRecord(r), nil
}

// Verify interface compliance at compile time.
var _ storage.ReviewRecordStore = (*ReviewRecordStore)(nil)
