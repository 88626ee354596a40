package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"strategy-draft-gate/internal/storage"
)

// IntakeProgressStore is a PostgreSQL implementation of storage.IntakeProgressStore.
// Uses two tables:
//   - intake_progress: single row with (sequence, run_id)
//   - intake_seen_fingerprints: set of reviewed draft content fingerprints
type IntakeProgressStore struct {
	pool *Pool
}

// NewIntakeProgressStore creates a new PostgreSQL intake progress store.
func NewIntakeProgressStore(pool *Pool) *IntakeProgressStore {
	return &IntakeProgressStore{pool: pool}
}

// Compile-time interface check.
var _ storage.IntakeProgressStore = (*IntakeProgressStore)(nil)

// GetLastProcessed returns the last processed stream position.
func (s *IntakeProgressStore) GetLastProcessed(ctx context.Context) (*storage.IntakeProgress, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT sequence, run_id
		FROM intake_progress
		LIMIT 1
	`)

	var progress storage.IntakeProgress
	err := row.Scan(&progress.Sequence, &progress.RunID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	return &progress, nil
}

// SetLastProcessed saves the last processed stream position.
// Uses upsert to handle initial insert and subsequent updates.
func (s *IntakeProgressStore) SetLastProcessed(ctx context.Context, progress *storage.IntakeProgress) error {
	if progress == nil {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO intake_progress (id, sequence, run_id, updated_at)
		VALUES (1, $1, $2, NOW())
		ON CONFLICT (id) DO UPDATE
		SET sequence = EXCLUDED.sequence,
		    run_id = EXCLUDED.run_id,
		    updated_at = NOW()
	`, progress.Sequence, progress.RunID)

	return err
}

// IsFingerprintSeen checks if a draft content fingerprint has been reviewed.
func (s *IntakeProgressStore) IsFingerprintSeen(ctx context.Context, fingerprint string) (bool, error) {
	if fingerprint == "" {
		return false, storage.ErrInvalidInput
	}

	row := s.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM intake_seen_fingerprints WHERE fingerprint = $1)
	`, fingerprint)

	var exists bool
	err := row.Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}

// MarkFingerprintSeen records that a draft content fingerprint has been reviewed.
func (s *IntakeProgressStore) MarkFingerprintSeen(ctx context.Context, fingerprint string) error {
	if fingerprint == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO intake_seen_fingerprints (fingerprint, seen_at)
		VALUES ($1, NOW())
		ON CONFLICT (fingerprint) DO NOTHING
	`, fingerprint)

	return err
}

// LoadSeenFingerprints returns all seen fingerprints.
func (s *IntakeProgressStore) LoadSeenFingerprints(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT fingerprint FROM intake_seen_fingerprints
		ORDER BY fingerprint ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fingerprints []string
	for rows.Next() {
		var fingerprint string
		if err := rows.Scan(&fingerprint); err != nil {
			return nil, err
		}
		fingerprints = append(fingerprints, fingerprint)
	}

	return fingerprints, rows.Err()
}
