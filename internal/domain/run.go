package domain

import "time"

// RunSource describes where a gate run read its drafts from. Exactly one of
// DraftsDir and DraftPath is set.
type RunSource struct {
	DraftsDir  string
	DraftPath  string
	DraftCount int // well-formed drafts loaded
}

// ReviewRun represents one persisted gate execution.
type ReviewRun struct {
	RunID          string // deterministic fingerprint
	GeneratedAtUTC time.Time
	Source         RunSource

	TotalDrafts         int
	PassCount           int
	ReviseCount         int
	RejectCount         int
	ExportEligibleCount int
	DowngradedCount     int
	MalformedCount      int
	IterationsRun       int
}

// ReviewRecord is one persisted review result, keyed by (run_id, draft_id).
type ReviewRecord struct {
	RunID  string
	Result ReviewResult
}

// CriterionOutcome is one persisted finding row for the analytics store.
// Rows are denormalized with draft and verdict context so cross-run
// aggregations need no joins.
type CriterionOutcome struct {
	RunID          string
	DraftID        string
	CriterionID    CriterionID
	Severity       Severity
	Score          int
	Weight         int
	EntryFamily    string
	Variant        Variant
	Verdict        Verdict // terminal verdict of the draft
	GeneratedAtUTC time.Time
}
