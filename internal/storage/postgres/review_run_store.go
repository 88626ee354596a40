package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"strategy-draft-gate/internal/domain"
	"strategy-draft-gate/internal/storage"
)

// ReviewRunStore implements storage.ReviewRunStore using PostgreSQL.
type ReviewRunStore struct {
	pool *Pool
}

// NewReviewRunStore creates a new ReviewRunStore.
func NewReviewRunStore(pool *Pool) *ReviewRunStore {
	return &ReviewRunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ReviewRunStore = (*ReviewRunStore)(nil)

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *ReviewRunStore) Insert(ctx context.Context, r *domain.ReviewRun) error {
	query := `
		INSERT INTO review_runs (
			run_id, generated_at_utc,
			drafts_dir, draft_path, draft_count,
			total_drafts, pass_count, revise_count, reject_count,
			export_eligible_count, downgraded_count, malformed_count, iterations_run
		) VALUES (
			$1, $2,
			$3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13
		)
	`

	_, err := s.pool.Exec(ctx, query,
		r.RunID, r.GeneratedAtUTC,
		r.Source.DraftsDir, r.Source.DraftPath, r.Source.DraftCount,
		r.TotalDrafts, r.PassCount, r.ReviseCount, r.RejectCount,
		r.ExportEligibleCount, r.DowngradedCount, r.MalformedCount, r.IterationsRun,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert review run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *ReviewRunStore) GetByID(ctx context.Context, runID string) (*domain.ReviewRun, error) {
	query := `
		SELECT
			run_id, generated_at_utc,
			drafts_dir, draft_path, draft_count,
			total_drafts, pass_count, revise_count, reject_count,
			export_eligible_count, downgraded_count, malformed_count, iterations_run
		FROM review_runs
		WHERE run_id = $1
	`

	row := s.pool.QueryRow(ctx, query, runID)
	r, err := scanReviewRun(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get review run by id: %w", err)
	}
	return r, nil
}

// GetAll retrieves all runs, ordered by generated_at_utc ASC, run_id ASC.
func (s *ReviewRunStore) GetAll(ctx context.Context) ([]*domain.ReviewRun, error) {
	query := `
		SELECT
			run_id, generated_at_utc,
			drafts_dir, draft_path, draft_count,
			total_drafts, pass_count, revise_count, reject_count,
			export_eligible_count, downgraded_count, malformed_count, iterations_run
		FROM review_runs
		ORDER BY generated_at_utc ASC, run_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all review runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.ReviewRun
	for rows.Next() {
		r, err := scanReviewRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review run row: %w", err)
		}
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review run rows: %w", err)
	}

	return runs, nil
}

// scanReviewRun scans a single row into a ReviewRun.
func scanReviewRun(row pgx.Row) (*domain.ReviewRun, error) {
	var r domain.ReviewRun

	err := row.Scan(
		&r.RunID, &r.GeneratedAtUTC,
		&r.Source.DraftsDir, &r.Source.DraftPath, &r.Source.DraftCount,
		&r.TotalDrafts, &r.PassCount, &r.ReviseCount, &r.RejectCount,
		&r.ExportEligibleCount, &r.DowngradedCount, &r.MalformedCount, &r.IterationsRun,
	)
	if err != nil {
		return nil, err
	}

	// TIMESTAMPTZ comes back in the session time zone.
	r.GeneratedAtUTC = r.GeneratedAtUTC.UTC()

	return &r, nil
}
