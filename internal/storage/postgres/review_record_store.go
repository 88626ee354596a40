package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"strategy-draft-gate/internal/domain"
	"strategy-draft-gate/internal/storage"
)

// ReviewRecordStore implements storage.ReviewRecordStore using PostgreSQL.
type ReviewRecordStore struct {
	pool *Pool
}

// NewReviewRecordStore creates a new ReviewRecordStore.
func NewReviewRecordStore(pool *Pool) *ReviewRecordStore {
	return &ReviewRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ReviewRecordStore = (*ReviewRecordStore)(nil)

// findingDoc is the JSONB shape of one finding.
type findingDoc struct {
	CriterionID string `json:"criterion_id"`
	Severity    string `json:"severity"`
	Score       int    `json:"score"`
	Message     string `json:"message"`
	Weight      int    `json:"weight"`
}

// encodeFindings marshals findings for the JSONB column.
func encodeFindings(findings []domain.Finding) ([]byte, error) {
	docs := make([]findingDoc, 0, len(findings))
	for _, f := range findings {
		docs = append(docs, findingDoc{
			CriterionID: string(f.CriterionID),
			Severity:    string(f.Severity),
			Score:       f.Score,
			Message:     f.Message,
			Weight:      f.Weight,
		})
	}
	return json.Marshal(docs)
}

// decodeFindings unmarshals the JSONB column back into findings.
func decodeFindings(data []byte) ([]domain.Finding, error) {
	var docs []findingDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, err
	}

	findings := make([]domain.Finding, 0, len(docs))
	for _, d := range docs {
		findings = append(findings, domain.Finding{
			CriterionID: domain.CriterionID(d.CriterionID),
			Severity:    domain.Severity(d.Severity),
			Score:       d.Score,
			Message:     d.Message,
			Weight:      d.Weight,
		})
	}
	return findings, nil
}

// kindsToStrings converts instruction kinds for the TEXT[] column.
func kindsToStrings(kinds []domain.InstructionKind) []string {
	out := make([]string, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, string(k))
	}
	return out
}

// stringsToKinds converts the TEXT[] column back into instruction kinds.
func stringsToKinds(values []string) []domain.InstructionKind {
	out := make([]domain.InstructionKind, 0, len(values))
	for _, v := range values {
		out = append(out, domain.InstructionKind(v))
	}
	return out
}

// Insert adds a new record. Returns ErrDuplicateKey if (run_id, draft_id) exists.
func (s *ReviewRecordStore) Insert(ctx context.Context, r *domain.ReviewRecord) error {
	findings, err := encodeFindings(r.Result.Findings)
	if err != nil {
		return fmt.Errorf("encode findings: %w", err)
	}

	query := `
		INSERT INTO review_records (
			run_id, draft_id, verdict, confidence_score, export_eligible,
			findings, instruction_kinds, revision_instructions
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8
		)
	`

	_, err = s.pool.Exec(ctx, query,
		r.RunID, r.Result.DraftID, r.Result.Verdict, r.Result.ConfidenceScore, r.Result.ExportEligible,
		findings, kindsToStrings(r.Result.InstructionKinds), r.Result.RevisionInstructions,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert review record: %w", err)
	}
	return nil
}

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *ReviewRecordStore) InsertBulk(ctx context.Context, records []*domain.ReviewRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO review_records (
			run_id, draft_id, verdict, confidence_score, export_eligible,
			findings, instruction_kinds, revision_instructions
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8
		)
	`

	for _, r := range records {
		findings, err := encodeFindings(r.Result.Findings)
		if err != nil {
			return fmt.Errorf("encode findings: %w", err)
		}

		_, err = tx.Exec(ctx, query,
			r.RunID, r.Result.DraftID, r.Result.Verdict, r.Result.ConfidenceScore, r.Result.ExportEligible,
			findings, kindsToStrings(r.Result.InstructionKinds), r.Result.RevisionInstructions,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert review record in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByRun retrieves all records for a run, ordered by draft_id ASC.
func (s *ReviewRecordStore) GetByRun(ctx context.Context, runID string) ([]*domain.ReviewRecord, error) {
	query := `
		SELECT
			run_id, draft_id, verdict, confidence_score, export_eligible,
			findings, instruction_kinds, revision_instructions
		FROM review_records
		WHERE run_id = $1
		ORDER BY draft_id ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get review records by run: %w", err)
	}
	defer rows.Close()

	return scanReviewRecords(rows)
}

// GetByDraft retrieves one draft's records across all runs, ordered by run_id ASC.
func (s *ReviewRecordStore) GetByDraft(ctx context.Context, draftID string) ([]*domain.ReviewRecord, error) {
	query := `
		SELECT
			run_id, draft_id, verdict, confidence_score, export_eligible,
			findings, instruction_kinds, revision_instructions
		FROM review_records
		WHERE draft_id = $1
		ORDER BY run_id ASC
	`

	rows, err := s.pool.Query(ctx, query, draftID)
	if err != nil {
		return nil, fmt.Errorf("get review records by draft: %w", err)
	}
	defer rows.Close()

	return scanReviewRecords(rows)
}

// GetByRunAndDraft retrieves one record. Returns ErrNotFound if not exists.
func (s *ReviewRecordStore) GetByRunAndDraft(ctx context.Context, runID, draftID string) (*domain.ReviewRecord, error) {
	query := `
		SELECT
			run_id, draft_id, verdict, confidence_score, export_eligible,
			findings, instruction_kinds, revision_instructions
		FROM review_records
		WHERE run_id = $1 AND draft_id = $2
	`

	row := s.pool.QueryRow(ctx, query, runID, draftID)
	r, err := scanReviewRecord(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get review record by run and draft: %w", err)
	}
	return r, nil
}

// scanReviewRecord scans a single row into a ReviewRecord.
func scanReviewRecord(row pgx.Row) (*domain.ReviewRecord, error) {
	var (
		r            domain.ReviewRecord
		findings     []byte
		kinds        []string
		instructions []string
	)

	err := row.Scan(
		&r.RunID, &r.Result.DraftID, &r.Result.Verdict, &r.Result.ConfidenceScore, &r.Result.ExportEligible,
		&findings, &kinds, &instructions,
	)
	if err != nil {
		return nil, err
	}

	r.Result.Findings, err = decodeFindings(findings)
	if err != nil {
		return nil, fmt.Errorf("decode findings: %w", err)
	}
	r.Result.InstructionKinds = stringsToKinds(kinds)
	r.Result.RevisionInstructions = instructions

	return &r, nil
}

// scanReviewRecords scans multiple rows into a slice of ReviewRecord.
func scanReviewRecords(rows pgx.Rows) ([]*domain.ReviewRecord, error) {
	var records []*domain.ReviewRecord

	for rows.Next() {
		r, err := scanReviewRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review record row: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review record rows: %w", err)
	}

	return records, nil
}
