// Package main renders criterion and verdict statistics from persisted
// gate runs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"strategy-draft-gate/internal/analytics"
	"strategy-draft-gate/internal/domain"
	chstore "strategy-draft-gate/internal/storage/clickhouse"
	"strategy-draft-gate/internal/storage/migrations"
)

func main() {
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	runID := flag.String("run", "", "Show per-criterion stats for one run")
	criterion := flag.String("criterion", "", "Show cross-run stats for one criterion (C1-C8), or 'all'")
	families := flag.Bool("families", false, "Also show per-entry-family verdicts (with --run)")
	migrate := flag.Bool("migrate", false, "Apply ClickHouse schema before querying")
	flag.Parse()

	if *clickhouseDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: --clickhouse-dsn is required (or set CLICKHOUSE_DSN)")
		os.Exit(1)
	}
	if *runID == "" && *criterion == "" {
		fmt.Fprintln(os.Stderr, "Error: --run or --criterion is required")
		flag.Usage()
		os.Exit(1)
	}

	ctx := context.Background()

	conn, err := connect(ctx, *clickhouseDSN, *migrate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to clickhouse: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	agg := analytics.NewAggregator(chstore.NewCriterionOutcomeStore(conn))

	if *runID != "" {
		if err := showRunStats(ctx, agg, *runID, *families); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if *criterion != "" {
		ids, err := resolveCriteria(*criterion)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := showCriterionTrends(ctx, agg, ids); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}

// connect opens the analytics connection, applying schema first when
// requested.
func connect(ctx context.Context, dsn string, migrate bool) (*chstore.Conn, error) {
	if migrate {
		return migrations.RunClickhouseMigrations(ctx, dsn)
	}
	return chstore.NewConn(ctx, dsn)
}

// showRunStats renders the per-criterion table for one run, optionally
// followed by the per-entry-family verdict table.
func showRunStats(ctx context.Context, agg *analytics.Aggregator, runID string, families bool) error {
	stats, err := agg.RunCriterionStats(ctx, runID)
	if errors.Is(err, analytics.ErrNoOutcomes) {
		fmt.Printf("No outcomes recorded for run %s\n", runID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load run stats: %w", err)
	}

	fmt.Printf("Criterion outcomes for run %s:\n\n", runID)
	renderCriterionTable(stats)

	if !families {
		return nil
	}

	familyStats, err := agg.RunEntryFamilyStats(ctx, runID)
	if errors.Is(err, analytics.ErrNoOutcomes) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load family stats: %w", err)
	}

	fmt.Printf("\nVerdicts by entry family:\n\n")
	renderFamilyTable(familyStats)
	return nil
}

// showCriterionTrends renders cross-run stats for the selected criteria.
func showCriterionTrends(ctx context.Context, agg *analytics.Aggregator, ids []domain.CriterionID) error {
	var stats []analytics.CriterionStats
	for _, id := range ids {
		trend, err := agg.CriterionTrend(ctx, id)
		if errors.Is(err, analytics.ErrNoOutcomes) {
			fmt.Printf("No evaluations recorded for %s\n", id)
			continue
		}
		if err != nil {
			return fmt.Errorf("load trend for %s: %w", id, err)
		}
		stats = append(stats, *trend)
	}

	if len(stats) == 0 {
		return nil
	}

	fmt.Printf("Criterion outcomes across all runs:\n\n")
	renderCriterionTable(stats)
	return nil
}

// resolveCriteria parses the --criterion value.
func resolveCriteria(value string) ([]domain.CriterionID, error) {
	if strings.EqualFold(value, "all") {
		return domain.AllCriteria(), nil
	}

	id := domain.CriterionID(strings.ToUpper(strings.TrimSpace(value)))
	for _, known := range domain.AllCriteria() {
		if id == known {
			return []domain.CriterionID{id}, nil
		}
	}
	return nil, fmt.Errorf("unknown criterion %q (C1-C8 or 'all')", value)
}

func renderCriterionTable(stats []analytics.CriterionStats) {
	fmt.Printf("%-4s %-26s %6s %6s %6s %6s %9s %9s %7s %5s %5s\n",
		"ID", "Criterion", "Evals", "Pass", "Warn", "Fail", "WarnRate", "FailRate", "Mean", "Min", "Max")
	for _, s := range stats {
		fmt.Printf("%-4s %-26s %6d %6d %6d %6d %8.1f%% %8.1f%% %7.1f %5d %5d\n",
			s.CriterionID, s.Title, s.Evaluations, s.PassCount, s.WarnCount, s.FailCount,
			s.WarnRate*100, s.FailRate*100, s.MeanScore, s.MinScore, s.MaxScore)
	}
}

func renderFamilyTable(stats []analytics.EntryFamilyStats) {
	fmt.Printf("%-24s %7s %6s %7s %7s %9s\n",
		"Entry Family", "Drafts", "Pass", "Revise", "Reject", "PassRate")
	for _, s := range stats {
		fmt.Printf("%-24s %7d %6d %7d %7d %8.1f%%\n",
			s.EntryFamily, s.Drafts, s.PassCount, s.ReviseCount, s.RejectCount, s.PassRate*100)
	}
}
