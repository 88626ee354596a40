package reporting

// Report is the terminal review document for one gate run.
type Report struct {
	RunID          string `yaml:"run_id" json:"run_id"`
	GeneratedAtUTC string `yaml:"generated_at_utc" json:"generated_at_utc"`

	Source  Source  `yaml:"source" json:"source"`
	Summary Summary `yaml:"summary" json:"summary"`

	// Reviews holds one row per well-formed draft, sorted by draft_id.
	Reviews []ReviewRow `yaml:"reviews" json:"reviews"`

	// Malformed lists documents that failed to load, excluded from scoring.
	Malformed []MalformedRow `yaml:"malformed,omitempty" json:"malformed,omitempty"`

	// Downgraded lists draft IDs that exhausted the iteration budget.
	Downgraded []string `yaml:"downgraded,omitempty" json:"downgraded,omitempty"`
}

// Source describes where the reviewed drafts came from.
type Source struct {
	DraftsDir  string `yaml:"drafts_dir,omitempty" json:"drafts_dir,omitempty"`
	DraftPath  string `yaml:"draft_path,omitempty" json:"draft_path,omitempty"`
	DraftCount int    `yaml:"draft_count" json:"draft_count"`
}

// Summary counts terminal outcomes. Downgraded drafts carry verdict REVISE
// and are counted there as well as in the downgraded counter.
type Summary struct {
	Total          int `yaml:"total" json:"total"`
	Pass           int `yaml:"PASS" json:"PASS"`
	Revise         int `yaml:"REVISE" json:"REVISE"`
	Reject         int `yaml:"REJECT" json:"REJECT"`
	ExportEligible int `yaml:"export_eligible" json:"export_eligible"`
	Downgraded     int `yaml:"downgraded" json:"downgraded"`
	Malformed      int `yaml:"malformed" json:"malformed"`
	IterationsRun  int `yaml:"iterations_run" json:"iterations_run"`
}

// ReviewRow is the terminal record for one draft.
type ReviewRow struct {
	DraftID         string `yaml:"draft_id" json:"draft_id"`
	Variant         string `yaml:"variant" json:"variant"`
	EntryFamily     string `yaml:"entry_family" json:"entry_family"`
	Verdict         string `yaml:"verdict" json:"verdict"`
	ConfidenceScore int    `yaml:"confidence_score" json:"confidence_score"`
	ExportEligible  bool   `yaml:"export_eligible" json:"export_eligible"`
	Downgraded      bool   `yaml:"downgraded,omitempty" json:"downgraded,omitempty"`

	Findings             []FindingRow `yaml:"findings" json:"findings"`
	RevisionInstructions []string     `yaml:"revision_instructions,omitempty" json:"revision_instructions,omitempty"`

	// Fingerprint is the content hash of the draft state that was reviewed.
	Fingerprint string `yaml:"fingerprint" json:"fingerprint"`
}

// FindingRow is one criterion outcome inside a review row.
type FindingRow struct {
	CriterionID string `yaml:"criterion_id" json:"criterion_id"`
	Criterion   string `yaml:"criterion" json:"criterion"`
	Severity    string `yaml:"severity" json:"severity"`
	Score       int    `yaml:"score" json:"score"`
	Weight      int    `yaml:"weight" json:"weight"`
	Message     string `yaml:"message" json:"message"`
}

// MalformedRow records one document that failed to load.
type MalformedRow struct {
	Source string `yaml:"source" json:"source"`
	Reason string `yaml:"reason" json:"reason"`
}
