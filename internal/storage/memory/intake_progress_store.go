package memory

import (
	"context"
	"sort"
	"sync"

	"strategy-draft-gate/internal/storage"
)

// IntakeProgressStore is an in-memory implementation of storage.IntakeProgressStore.
type IntakeProgressStore struct {
	mu       sync.RWMutex
	progress *storage.IntakeProgress
	seen     map[string]struct{} // draft content fingerprints
}

// NewIntakeProgressStore creates a new in-memory intake progress store.
func NewIntakeProgressStore() *IntakeProgressStore {
	return &IntakeProgressStore{
		seen: make(map[string]struct{}),
	}
}

// GetLastProcessed returns the last processed stream position.
func (s *IntakeProgressStore) GetLastProcessed(_ context.Context) (*storage.IntakeProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.progress == nil {
		return nil, storage.ErrNotFound
	}

	progressCopy := *s.progress
	return &progressCopy, nil
}

// SetLastProcessed saves the last processed stream position.
func (s *IntakeProgressStore) SetLastProcessed(_ context.Context, progress *storage.IntakeProgress) error {
	if progress == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	progressCopy := *progress
	s.progress = &progressCopy
	return nil
}

// IsFingerprintSeen checks if a draft content fingerprint has been reviewed.
func (s *IntakeProgressStore) IsFingerprintSeen(_ context.Context, fingerprint string) (bool, error) {
	if fingerprint == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.seen[fingerprint]
	return exists, nil
}

// MarkFingerprintSeen records that a draft content fingerprint has been reviewed.
func (s *IntakeProgressStore) MarkFingerprintSeen(_ context.Context, fingerprint string) error {
	if fingerprint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seen[fingerprint] = struct{}{}
	return nil
}

// LoadSeenFingerprints returns all seen fingerprints.
func (s *IntakeProgressStore) LoadSeenFingerprints(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fingerprints := make([]string, 0, len(s.seen))
	for fp := range s.seen {
		fingerprints = append(fingerprints, fp)
	}
	sort.Strings(fingerprints)

	return fingerprints, nil
}

// Verify interface compliance at compile time.
var _ storage.IntakeProgressStore = (*IntakeProgressStore)(nil)
