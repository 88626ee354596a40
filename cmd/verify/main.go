// Package main re-reviews a persisted run's drafts and reports divergences
// between the stored records and the current evaluation.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"strategy-draft-gate/internal/intake"
	"strategy-draft-gate/internal/loop"
	"strategy-draft-gate/internal/pipeline"
	"strategy-draft-gate/internal/storage"
	"strategy-draft-gate/internal/storage/memory"
	pgstore "strategy-draft-gate/internal/storage/postgres"
	"strategy-draft-gate/internal/verification"
)

func main() {
	// Parse flags
	runID := flag.String("run", "", "Run ID to verify (required)")
	draftID := flag.String("draft-id", "", "Verify a single draft record instead of the whole run")
	draftPath := flag.String("draft", "", "Path to the single draft YAML the run reviewed")
	draftsDir := flag.String("drafts-dir", "", "Directory of draft YAML documents the run reviewed")
	useFixtures := flag.Bool("use-fixtures", false, "Re-review the built-in demo batch")
	maxIterations := flag.Int("max-iterations", 0, "Revision loop budget of the original run (0 uses the default of 2)")
	workers := flag.Int("workers", 0, "Parallel evaluations per iteration (0 uses the default of 4)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage (for wiring tests)")
	outputJSON := flag.Bool("json", false, "Output as JSON")
	flag.Parse()

	logger := log.New(os.Stderr, "[verify] ", log.LstdFlags)

	// Validate required flags
	if *runID == "" {
		logger.Fatal("--run is required")
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	// Create record store
	var recordStore storage.ReviewRecordStore = memory.NewReviewRecordStore()
	if !*useMemory {
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("connect to postgres: %v", err)
		}
		defer pool.Close()
		recordStore = pgstore.NewReviewRecordStore(pool)
	}

	// Re-review the same draft inputs in memory
	source, err := resolveSource(*draftPath, *draftsDir, *useFixtures)
	if err != nil {
		logger.Fatal(err)
	}
	drafts, _, err := source.Fetch(ctx)
	if err != nil {
		logger.Fatalf("fetch drafts: %v", err)
	}
	drafts, _ = intake.Deduplicate(drafts, nil)

	logger.Printf("Re-reviewing %d drafts for run %s", len(drafts), *runID)
	controller := loop.NewController(loop.ControllerOptions{
		MaxIterations: *maxIterations,
		Workers:       *workers,
		Logger:        logger,
	})
	state := controller.Run(drafts)

	verifier := verification.NewStoreVerifier(recordStore)

	if *draftID != "" {
		result, err := verifier.VerifyRecord(ctx, *runID, *draftID, state)
		if err != nil {
			logger.Fatalf("verify record: %v", err)
		}
		printRecordResult(*result, *outputJSON)
		return
	}

	report, err := verifier.VerifyPersistedRun(ctx, *runID, state)
	if err != nil {
		logger.Fatalf("verify run: %v", err)
	}
	printStoreReport(*runID, report, *outputJSON)
}

// resolveSource picks the draft source from the mode flags.
func resolveSource(draftPath, draftsDir string, useFixtures bool) (intake.DraftSource, error) {
	modes := 0
	if draftPath != "" {
		modes++
	}
	if draftsDir != "" {
		modes++
	}
	if useFixtures {
		modes++
	}
	if modes != 1 {
		return nil, fmt.Errorf("exactly one of --draft, --drafts-dir, --use-fixtures is required")
	}

	switch {
	case draftPath != "":
		return intake.NewFileSource(draftPath), nil
	case draftsDir != "":
		return intake.NewDirSource(draftsDir), nil
	default:
		return pipeline.NewFixtureSource(), nil
	}
}

// printRecordResult outputs one record comparison.
func printRecordResult(result verification.RecordResult, asJSON bool) {
	if asJSON {
		output, _ := json.MarshalIndent(recordOutput(result), "", "  ")
		fmt.Println(string(output))
		return
	}

	fmt.Printf("Draft:           %s\n", result.DraftID)
	fmt.Printf("Stored Verdict:  %s\n", result.StoredVerdict)
	fmt.Printf("Current Verdict: %s\n", result.CurrentVerdict)
	if result.Match {
		fmt.Println("Result:          MATCH")
		return
	}
	fmt.Println("Result:          DIVERGED")
	for _, d := range result.Divergences {
		fmt.Printf("  %-20s stored=%v current=%v\n", d.Field, d.Expected, d.Actual)
	}
}

// printStoreReport outputs the whole-run comparison.
func printStoreReport(runID string, report *verification.StoreReport, asJSON bool) {
	if asJSON {
		output, _ := json.MarshalIndent(reportOutput(runID, report), "", "  ")
		fmt.Println(string(output))
		return
	}

	fmt.Printf("\n=== Record Verification: %s ===\n", runID)
	fmt.Printf("Stored Records:    %d\n", report.TotalRecords)
	fmt.Printf("Matched:           %d\n", report.MatchedRecords)
	fmt.Printf("Divergent:         %d\n", report.DivergentRecords)
	fmt.Printf("Missing Drafts:    %d\n", len(report.MissingDrafts))
	fmt.Printf("Orphan Records:    %d\n", len(report.OrphanRecords))

	for _, r := range report.Results {
		if r.Match {
			continue
		}
		fmt.Printf("\nDraft %s diverged (stored %s, current %s):\n", r.DraftID, r.StoredVerdict, r.CurrentVerdict)
		for _, d := range r.Divergences {
			fmt.Printf("  %-20s stored=%v current=%v\n", d.Field, d.Expected, d.Actual)
		}
	}
	for _, id := range report.MissingDrafts {
		fmt.Printf("\nDraft %s has a stored record but was not produced by the re-review\n", id)
	}
	for _, id := range report.OrphanRecords {
		fmt.Printf("\nDraft %s was produced by the re-review but has no stored record\n", id)
	}

	if report.Clean() {
		fmt.Println("\nResult: VERIFIED")
	} else {
		fmt.Println("\nResult: DIVERGED")
	}
}

// JSON output shapes.

type recordJSON struct {
	DraftID        string           `json:"draft_id"`
	Match          bool             `json:"match"`
	StoredVerdict  string           `json:"stored_verdict"`
	CurrentVerdict string           `json:"current_verdict"`
	Divergences    []divergenceJSON `json:"divergences,omitempty"`
}

type divergenceJSON struct {
	Field   string `json:"field"`
	Stored  string `json:"stored"`
	Current string `json:"current"`
}

type reportJSON struct {
	RunID            string       `json:"run_id"`
	TotalRecords     int          `json:"total_records"`
	MatchedRecords   int          `json:"matched_records"`
	DivergentRecords int          `json:"divergent_records"`
	MissingDrafts    []string     `json:"missing_drafts,omitempty"`
	OrphanRecords    []string     `json:"orphan_records,omitempty"`
	Verified         bool         `json:"verified"`
	Records          []recordJSON `json:"records,omitempty"`
}

func recordOutput(r verification.RecordResult) recordJSON {
	out := recordJSON{
		DraftID:        r.DraftID,
		Match:          r.Match,
		StoredVerdict:  string(r.StoredVerdict),
		CurrentVerdict: string(r.CurrentVerdict),
	}
	for _, d := range r.Divergences {
		out.Divergences = append(out.Divergences, divergenceJSON{
			Field:   d.Field,
			Stored:  fmt.Sprintf("%v", d.Expected),
			Current: fmt.Sprintf("%v", d.Actual),
		})
	}
	return out
}

func reportOutput(runID string, report *verification.StoreReport) reportJSON {
	out := reportJSON{
		RunID:            runID,
		TotalRecords:     report.TotalRecords,
		MatchedRecords:   report.MatchedRecords,
		DivergentRecords: report.DivergentRecords,
		MissingDrafts:    report.MissingDrafts,
		OrphanRecords:    report.OrphanRecords,
		Verified:         report.Clean(),
	}
	for _, r := range report.Results {
		if !r.Match {
			out.Records = append(out.Records, recordOutput(r))
		}
	}
	return out
}
