// Package main reviews a batch of strategy drafts and writes the terminal
// report document.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"strategy-draft-gate/internal/intake"
	"strategy-draft-gate/internal/pipeline"
	"strategy-draft-gate/internal/reporting"
	chstore "strategy-draft-gate/internal/storage/clickhouse"
	"strategy-draft-gate/internal/storage/migrations"
	pgstore "strategy-draft-gate/internal/storage/postgres"
)

func main() {
	draftPath := flag.String("draft", "", "Path to a single draft YAML document")
	draftsDir := flag.String("drafts-dir", "", "Directory of draft YAML documents")
	useFixtures := flag.Bool("use-fixtures", false, "Review the built-in demo batch instead of reading files")
	outputDir := flag.String("output-dir", "docs", "Output directory for generated report files")
	maxIterations := flag.Int("max-iterations", 0, "Revision loop budget (0 uses the default of 2)")
	workers := flag.Int("workers", 0, "Parallel evaluations per iteration (0 uses the default of 4)")
	formats := flag.String("formats", "yaml,json,markdown,csv", "Comma-separated output formats")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string for run persistence (optional)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string for criterion analytics (optional)")
	migrate := flag.Bool("migrate", false, "Apply database schema before persisting")
	flag.Parse()

	logger := log.New(os.Stdout, "[review] ", log.LstdFlags)
	ctx := context.Background()

	source, sourceInfo, err := resolveSource(*draftPath, *draftsDir, *useFixtures)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	selected, err := parseFormats(*formats)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	p := pipeline.NewGatePipeline(source, sourceInfo, *outputDir).
		WithFormats(selected).
		WithMaxIterations(*maxIterations).
		WithWorkers(*workers).
		WithLogger(logger)

	if *postgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting to postgres: %v\n", err)
			os.Exit(1)
		}
		defer pool.Close()

		if *migrate {
			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				fmt.Fprintf(os.Stderr, "Error applying postgres migrations: %v\n", err)
				os.Exit(1)
			}
		}
		p = p.WithPersistence(pgstore.NewReviewRunStore(pool), pgstore.NewReviewRecordStore(pool))
	}

	if *clickhouseDSN != "" {
		conn, err := connectClickhouse(ctx, *clickhouseDSN, *migrate)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting to clickhouse: %v\n", err)
			os.Exit(1)
		}
		defer conn.Close()

		p = p.WithAnalyticsStore(chstore.NewCriterionOutcomeStore(conn))
	}

	result, err := p.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running gate: %v\n", err)
		os.Exit(1)
	}

	// Failed invariant checks are logged, never fatal: the report is still
	// valid output and the exit code is reserved for I/O failures.
	if !result.Checks.Clean() {
		for _, c := range result.Checks.Checks {
			if !c.Pass {
				logger.Printf("invariant check %s failed: %s", c.Name, c.Detail)
			}
		}
	}

	s := result.Report.Summary
	fmt.Printf("Run %s: %d drafts reviewed, %d PASS, %d REVISE, %d REJECT\n",
		result.Report.RunID, s.Total, s.Pass, s.Revise, s.Reject)
	fmt.Printf("  export eligible: %d, downgraded: %d, malformed: %d, iterations: %d\n",
		s.ExportEligible, s.Downgraded, s.Malformed, s.IterationsRun)
	fmt.Println("Report files:")
	for _, f := range result.WrittenFiles {
		fmt.Printf("  - %s\n", f)
	}
}

// resolveSource picks the draft source from the mode flags. Exactly one
// mode must be selected.
func resolveSource(draftPath, draftsDir string, useFixtures bool) (intake.DraftSource, reporting.Source, error) {
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
		return nil, reporting.Source{}, fmt.Errorf("exactly one of --draft, --drafts-dir, --use-fixtures is required")
	}

	switch {
	case draftPath != "":
		return intake.NewFileSource(draftPath), reporting.Source{DraftPath: draftPath}, nil
	case draftsDir != "":
		return intake.NewDirSource(draftsDir), reporting.Source{DraftsDir: draftsDir}, nil
	default:
		return pipeline.NewFixtureSource(), reporting.Source{DraftsDir: "fixtures"}, nil
	}
}

// parseFormats parses the comma-separated format list.
func parseFormats(list string) (pipeline.Formats, error) {
	var f pipeline.Formats
	for _, name := range strings.Split(list, ",") {
		switch strings.TrimSpace(strings.ToLower(name)) {
		case "yaml":
			f.YAML = true
		case "json":
			f.JSON = true
		case "markdown", "md":
			f.Markdown = true
		case "csv":
			f.CSV = true
		case "":
		default:
			return f, fmt.Errorf("unknown format %q (yaml, json, markdown, csv)", name)
		}
	}
	if !f.YAML && !f.JSON && !f.Markdown && !f.CSV {
		return f, fmt.Errorf("no output formats selected")
	}
	return f, nil
}

// connectClickhouse opens the analytics connection, applying schema first
// when requested.
func connectClickhouse(ctx context.Context, dsn string, migrate bool) (*chstore.Conn, error) {
	if migrate {
		return migrations.RunClickhouseMigrations(ctx, dsn)
	}
	return chstore.NewConn(ctx, dsn)
}
