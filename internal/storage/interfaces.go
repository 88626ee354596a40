package storage

import (
	"context"

	"strategy-draft-gate/internal/domain"
)

// ReviewRunStore provides access to review_runs storage.
type ReviewRunStore interface {
	// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.ReviewRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.ReviewRun, error)

	// GetAll retrieves all runs, ordered by generated_at_utc ASC, run_id ASC.
	GetAll(ctx context.Context) ([]*domain.ReviewRun, error)
}

// ReviewRecordStore provides access to review_records storage.
type ReviewRecordStore interface {
	// Insert adds a new record. Returns ErrDuplicateKey if (run_id, draft_id) exists.
	Insert(ctx context.Context, r *domain.ReviewRecord) error

	// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, records []*domain.ReviewRecord) error

	// GetByRun retrieves all records for a run, ordered by draft_id ASC.
	GetByRun(ctx context.Context, runID string) ([]*domain.ReviewRecord, error)

	// GetByDraft retrieves one draft's records across all runs, ordered by run_id ASC.
	GetByDraft(ctx context.Context, draftID string) ([]*domain.ReviewRecord, error)

	// GetByRunAndDraft retrieves one record. Returns ErrNotFound if not exists.
	GetByRunAndDraft(ctx context.Context, runID, draftID string) (*domain.ReviewRecord, error)
}

// CriterionOutcomeStore provides access to criterion_outcomes storage,
// the denormalized per-finding table behind cross-run analytics.
type CriterionOutcomeStore interface {
	// InsertBulk adds multiple outcomes. Fails entire batch on duplicate
	// (run_id, draft_id, criterion_id).
	InsertBulk(ctx context.Context, outcomes []*domain.CriterionOutcome) error

	// GetByRun retrieves all outcomes for a run, ordered by draft_id ASC, criterion_id ASC.
	GetByRun(ctx context.Context, runID string) ([]*domain.CriterionOutcome, error)

	// GetByCriterion retrieves all outcomes for one criterion across runs,
	// ordered by run_id ASC, draft_id ASC.
	GetByCriterion(ctx context.Context, criterionID domain.CriterionID) ([]*domain.CriterionOutcome, error)
}
