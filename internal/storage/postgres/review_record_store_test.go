package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strategy-draft-gate/internal/domain"
	"strategy-draft-gate/internal/storage"
)

// createTestRun inserts a run row so review_records can reference it.
func createTestRun(t *testing.T, ctx context.Context, pool *Pool, runID string) string {
	t.Helper()

	runStore := NewReviewRunStore(pool)
	run := &domain.ReviewRun{
		RunID:          runID,
		GeneratedAtUTC: time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
		Source: domain.RunSource{
			DraftsDir:  "drafts",
			DraftCount: 1,
		},
		TotalDrafts:   1,
		ReviseCount:   1,
		IterationsRun: 1,
	}

	err := runStore.Insert(ctx, run)
	require.NoError(t, err)
	return runID
}

func testRecord(runID, draftID string) *domain.ReviewRecord {
	return &domain.ReviewRecord{
		RunID: runID,
		Result: domain.ReviewResult{
			DraftID:         draftID,
			Verdict:         domain.VerdictRevise,
			ConfidenceScore: 55,
			Findings: []domain.Finding{
				{
					CriterionID: domain.CriterionEdgePlausibility,
					Severity:    domain.SeverityPass,
					Score:       80,
					Message:     "thesis names a mechanism",
					Weight:      20,
				},
				{
					CriterionID: domain.CriterionExecutionRealism,
					Severity:    domain.SeverityWarn,
					Score:       50,
					Message:     "no volume filter condition",
					Weight:      10,
				},
			},
			InstructionKinds:     []domain.InstructionKind{domain.InstructionAddVolumeFilter},
			RevisionInstructions: []string{"Add a volume confirmation filter to the entry conditions."},
			ExportEligible:       false,
		},
	}
}

func TestReviewRecordStore_InsertAndGetByRunAndDraft(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	runID := createTestRun(t, ctx, pool, "rec-run-1")

	store := NewReviewRecordStore(pool)
	record := testRecord(runID, "d-001")

	err := store.Insert(ctx, record)
	require.NoError(t, err)

	retrieved, err := store.GetByRunAndDraft(ctx, runID, "d-001")
	require.NoError(t, err)

	assert.Equal(t, record.RunID, retrieved.RunID)
	assert.Equal(t, record.Result.DraftID, retrieved.Result.DraftID)
	assert.Equal(t, record.Result.Verdict, retrieved.Result.Verdict)
	assert.Equal(t, record.Result.ConfidenceScore, retrieved.Result.ConfidenceScore)
	assert.Equal(t, record.Result.ExportEligible, retrieved.Result.ExportEligible)

	require.Len(t, retrieved.Result.Findings, 2)
	assert.Equal(t, record.Result.Findings[0], retrieved.Result.Findings[0])
	assert.Equal(t, record.Result.Findings[1], retrieved.Result.Findings[1])

	require.Len(t, retrieved.Result.InstructionKinds, 1)
	assert.Equal(t, domain.InstructionAddVolumeFilter, retrieved.Result.InstructionKinds[0])
	require.Len(t, retrieved.Result.RevisionInstructions, 1)
	assert.Equal(t, record.Result.RevisionInstructions[0], retrieved.Result.RevisionInstructions[0])
}

func TestReviewRecordStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	runID := createTestRun(t, ctx, pool, "rec-run-dup")

	store := NewReviewRecordStore(pool)
	record := testRecord(runID, "d-001")

	err := store.Insert(ctx, record)
	require.NoError(t, err)

	err = store.Insert(ctx, record)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestReviewRecordStore_SameDraftDifferentRuns(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	runA := createTestRun(t, ctx, pool, "rec-run-a")
	runB := createTestRun(t, ctx, pool, "rec-run-b")

	store := NewReviewRecordStore(pool)

	require.NoError(t, store.Insert(ctx, testRecord(runA, "d-001")))
	require.NoError(t, store.Insert(ctx, testRecord(runB, "d-001")))

	records, err := store.GetByDraft(ctx, "d-001")
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Ordered by run_id ASC.
	assert.Equal(t, runA, records[0].RunID)
	assert.Equal(t, runB, records[1].RunID)
}

func TestReviewRecordStore_InsertBulkAndGetByRun(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	runID := createTestRun(t, ctx, pool, "rec-run-bulk")

	store := NewReviewRecordStore(pool)

	records := []*domain.ReviewRecord{
		testRecord(runID, "d-003"),
		testRecord(runID, "d-001"),
		testRecord(runID, "d-002"),
	}

	err := store.InsertBulk(ctx, records)
	require.NoError(t, err)

	retrieved, err := store.GetByRun(ctx, runID)
	require.NoError(t, err)
	require.Len(t, retrieved, 3)

	// Ordered by draft_id ASC.
	assert.Equal(t, "d-001", retrieved[0].Result.DraftID)
	assert.Equal(t, "d-002", retrieved[1].Result.DraftID)
	assert.Equal(t, "d-003", retrieved[2].Result.DraftID)
}

func TestReviewRecordStore_InsertBulkPartialDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	runID := createTestRun(t, ctx, pool, "rec-run-partial")

	store := NewReviewRecordStore(pool)

	require.NoError(t, store.Insert(ctx, testRecord(runID, "d-002")))

	records := []*domain.ReviewRecord{
		testRecord(runID, "d-001"),
		testRecord(runID, "d-002"), // duplicate
		testRecord(runID, "d-003"),
	}

	err := store.InsertBulk(ctx, records)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Transaction rolled back: only the pre-existing record remains.
	retrieved, err := store.GetByRun(ctx, runID)
	require.NoError(t, err)
	require.Len(t, retrieved, 1)
	assert.Equal(t, "d-002", retrieved[0].Result.DraftID)
}

func TestReviewRecordStore_GetByRunAndDraftNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewReviewRecordStore(pool)

	_, err := store.GetByRunAndDraft(ctx, "nonexistent-run", "d-001")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestReviewRecordStore_PassRecordWithoutInstructions(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	runID := createTestRun(t, ctx, pool, "rec-run-pass")

	store := NewReviewRecordStore(pool)

	record := testRecord(runID, "d-pass")
	record.Result.Verdict = domain.VerdictPass
	record.Result.ConfidenceScore = 82
	record.Result.ExportEligible = true
	record.Result.InstructionKinds = nil
	record.Result.RevisionInstructions = nil

	err := store.Insert(ctx, record)
	require.NoError(t, err)

	retrieved, err := store.GetByRunAndDraft(ctx, runID, "d-pass")
	require.NoError(t, err)

	assert.Equal(t, domain.VerdictPass, retrieved.Result.Verdict)
	assert.True(t, retrieved.Result.ExportEligible)
	assert.Len(t, retrieved.Result.InstructionKinds, 0)
	assert.Len(t, retrieved.Result.RevisionInstructions, 0)
	assert.Len(t, retrieved.Result.Findings, 2)
}
