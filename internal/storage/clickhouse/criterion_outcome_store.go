package clickhouse

import (
	"context"
	"fmt"
	"time"

	"strategy-draft-gate/internal/domain"
	"strategy-draft-gate/internal/storage"
)

// CriterionOutcomeStore implements storage.CriterionOutcomeStore using ClickHouse.
type CriterionOutcomeStore struct {
	conn *Conn
}

// NewCriterionOutcomeStore creates a new CriterionOutcomeStore.
func NewCriterionOutcomeStore(conn *Conn) *CriterionOutcomeStore {
	return &CriterionOutcomeStore{conn: conn}
}

// Compile-time interface check.
var _ storage.CriterionOutcomeStore = (*CriterionOutcomeStore)(nil)

// InsertBulk adds multiple outcomes. Fails entire batch on duplicate
// (run_id, draft_id, criterion_id).
func (s *CriterionOutcomeStore) InsertBulk(ctx context.Context, outcomes []*domain.CriterionOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[string]struct{})
	for _, o := range outcomes {
		key := o.RunID + "|" + o.DraftID + "|" + string(o.CriterionID)
		if _, exists := seen[key]; exists {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	// (MergeTree doesn't enforce uniqueness at insert time)
	for _, o := range outcomes {
		exists, err := s.exists(ctx, o.RunID, o.DraftID, o.CriterionID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	// Use batch insert
	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO criterion_outcomes (
			run_id, draft_id, criterion_id, severity, score, weight,
			entry_family, variant, verdict, generated_at_utc
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, o := range outcomes {
		err = batch.Append(
			o.RunID, o.DraftID, string(o.CriterionID), string(o.Severity), o.Score, o.Weight,
			o.EntryFamily, string(o.Variant), string(o.Verdict), o.GeneratedAtUTC,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRun retrieves all outcomes for a run, ordered by draft_id ASC, criterion_id ASC.
func (s *CriterionOutcomeStore) GetByRun(ctx context.Context, runID string) ([]*domain.CriterionOutcome, error) {
	query := `
		SELECT
			run_id, draft_id, criterion_id, severity, score, weight,
			entry_family, variant, verdict, generated_at_utc
		FROM criterion_outcomes FINAL
		WHERE run_id = ?
		ORDER BY draft_id ASC, criterion_id ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query by run: %w", err)
	}
	defer rows.Close()

	return scanCriterionOutcomes(rows)
}

// GetByCriterion retrieves all outcomes for one criterion across runs,
// ordered by run_id ASC, draft_id ASC.
func (s *CriterionOutcomeStore) GetByCriterion(ctx context.Context, criterionID domain.CriterionID) ([]*domain.CriterionOutcome, error) {
	query := `
		SELECT
			run_id, draft_id, criterion_id, severity, score, weight,
			entry_family, variant, verdict, generated_at_utc
		FROM criterion_outcomes FINAL
		WHERE criterion_id = ?
		ORDER BY run_id ASC, draft_id ASC
	`

	rows, err := s.conn.Query(ctx, query, string(criterionID))
	if err != nil {
		return nil, fmt.Errorf("query by criterion: %w", err)
	}
	defer rows.Close()

	return scanCriterionOutcomes(rows)
}

// exists checks if an outcome with the given key exists.
func (s *CriterionOutcomeStore) exists(ctx context.Context, runID, draftID string, criterionID domain.CriterionID) (bool, error) {
	query := `
		SELECT count(*) FROM criterion_outcomes FINAL
		WHERE run_id = ? AND draft_id = ? AND criterion_id = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, runID, draftID, string(criterionID)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanCriterionOutcomes scans multiple rows into a slice.
func scanCriterionOutcomes(rows chRows) ([]*domain.CriterionOutcome, error) {
	var outcomes []*domain.CriterionOutcome

	for rows.Next() {
		var (
			o           domain.CriterionOutcome
			criterionID string
			severity    string
			variant     string
			verdict     string
			generatedAt time.Time
		)
		err := rows.Scan(
			&o.RunID, &o.DraftID, &criterionID, &severity, &o.Score, &o.Weight,
			&o.EntryFamily, &variant, &verdict, &generatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan outcome row: %w", err)
		}

		o.CriterionID = domain.CriterionID(criterionID)
		o.Severity = domain.Severity(severity)
		o.Variant = domain.Variant(variant)
		o.Verdict = domain.Verdict(verdict)
		o.GeneratedAtUTC = generatedAt.UTC()

		outcomes = append(outcomes, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcome rows: %w", err)
	}

	return outcomes, nil
}
