package storage

import "context"

// IntakeProgress represents the last position processed by a streaming
// intake loop.
type IntakeProgress struct {
	Sequence uint64 // last processed stream sequence number
	RunID    string // run that consumed it
}

// IntakeProgressStore provides persistence for streaming intake state.
// This enables resumption after restarts without re-reviewing drafts whose
// content was already seen.
type IntakeProgressStore interface {
	// GetLastProcessed returns the last processed stream position.
	// Returns ErrNotFound if no progress has been saved yet.
	GetLastProcessed(ctx context.Context) (*IntakeProgress, error)

	// SetLastProcessed saves the last processed stream position.
	SetLastProcessed(ctx context.Context, progress *IntakeProgress) error

	// IsFingerprintSeen checks if a draft content fingerprint has been reviewed.
	IsFingerprintSeen(ctx context.Context, fingerprint string) (bool, error)

	// MarkFingerprintSeen records that a draft content fingerprint has been reviewed.
	MarkFingerprintSeen(ctx context.Context, fingerprint string) error

	// LoadSeenFingerprints returns all seen fingerprints (for warming the in-memory cache).
	LoadSeenFingerprints(ctx context.Context) ([]string, error)
}
