// Package pipeline wires intake, the review loop, reporting, verification,
// and optional persistence into one gate run.
package pipeline

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	"strategy-draft-gate/internal/domain"
	"strategy-draft-gate/internal/intake"
	"strategy-draft-gate/internal/loop"
	"strategy-draft-gate/internal/reporting"
	"strategy-draft-gate/internal/storage"
	"strategy-draft-gate/internal/verification"
)

// Output file names within the output directory.
const (
	YAMLFileName     = "report.yaml"
	JSONFileName     = "report.json"
	MarkdownFileName = "REVIEW_REPORT.md"
	CSVFileName      = "reviews.csv"
)

// Formats selects which renderings of the review document are written.
type Formats struct {
	YAML     bool
	JSON     bool
	Markdown bool
	CSV      bool
}

// AllFormats enables every output format.
func AllFormats() Formats {
	return Formats{YAML: true, JSON: true, Markdown: true, CSV: true}
}

// RunResult carries everything a caller needs after a run: the rendered
// document, the terminal loop state, the invariant check report, and the
// files written.
type RunResult struct {
	Report       *reporting.Report
	State        loop.BatchRunState
	Checks       *verification.Report
	WrittenFiles []string
}

// GatePipeline orchestrates one full gate run: fetch and deduplicate
// drafts, run the review loop, render the review document, verify the
// terminal state, and persist the run when stores are configured.
type GatePipeline struct {
	source     intake.DraftSource
	sourceInfo reporting.Source
	outputDir  string

	reportGen *reporting.Generator
	verifier  *verification.Verifier

	formats       Formats
	maxIterations int
	workers       int
	logger        *log.Logger

	runStore     storage.ReviewRunStore
	recordStore  storage.ReviewRecordStore
	outcomeStore storage.CriterionOutcomeStore
}

// NewGatePipeline creates a pipeline reading drafts from source and writing
// report files into outputDir. sourceInfo names the input location in the
// report document.
func NewGatePipeline(source intake.DraftSource, sourceInfo reporting.Source, outputDir string) *GatePipeline {
	return &GatePipeline{
		source:     source,
		sourceInfo: sourceInfo,
		outputDir:  outputDir,
		reportGen:  reporting.NewGenerator(),
		verifier:   verification.NewVerifier(),
		formats:    AllFormats(),
	}
}

// WithClock sets a custom clock function for deterministic output.
func (p *GatePipeline) WithClock(clock func() time.Time) *GatePipeline {
	p.reportGen = p.reportGen.WithClock(clock)
	return p
}

// WithFormats selects the output formats to write.
func (p *GatePipeline) WithFormats(f Formats) *GatePipeline {
	p.formats = f
	return p
}

// WithMaxIterations overrides the revision loop budget.
func (p *GatePipeline) WithMaxIterations(n int) *GatePipeline {
	p.maxIterations = n
	return p
}

// WithWorkers overrides the per-iteration evaluation parallelism.
func (p *GatePipeline) WithWorkers(n int) *GatePipeline {
	p.workers = n
	return p
}

// WithLogger sets the logger passed through to the review loop.
func (p *GatePipeline) WithLogger(logger *log.Logger) *GatePipeline {
	p.logger = logger
	return p
}

// WithPersistence enables run and record persistence. The record store
// references runs, so the two are configured together.
func (p *GatePipeline) WithPersistence(runs storage.ReviewRunStore, records storage.ReviewRecordStore) *GatePipeline {
	p.runStore = runs
	p.recordStore = records
	return p
}

// WithAnalyticsStore enables per-finding outcome persistence.
func (p *GatePipeline) WithAnalyticsStore(outcomes storage.CriterionOutcomeStore) *GatePipeline {
	p.outcomeStore = outcomes
	return p
}

// Run executes the full gate and returns the run result. Errors are fatal
// I/O only: unreadable sources, unwritable output, failed persistence.
// Malformed drafts and failed invariant checks are reported, not raised.
func (p *GatePipeline) Run(ctx context.Context) (*RunResult, error) {
	if err := os.MkdirAll(p.outputDir, 0755); err != nil {
		return nil, err
	}

	drafts, malformed, err := p.source.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	drafts, malformed = intake.Deduplicate(drafts, malformed)

	controller := loop.NewController(loop.ControllerOptions{
		MaxIterations: p.maxIterations,
		Workers:       p.workers,
		Logger:        p.logger,
	})
	state := controller.Run(drafts)

	report := p.reportGen.Generate(state, malformed, p.sourceInfo)
	checks := p.verifier.VerifyRun(drafts, state)

	files, err := p.writeReports(report)
	if err != nil {
		return nil, err
	}

	if err := p.persist(ctx, report, state); err != nil {
		return nil, err
	}

	return &RunResult{
		Report:       report,
		State:        state,
		Checks:       checks,
		WrittenFiles: files,
	}, nil
}

// writeReports renders the document in every selected format.
func (p *GatePipeline) writeReports(report *reporting.Report) ([]string, error) {
	var files []string

	write := func(name, content string) error {
		path := filepath.Join(p.outputDir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return err
		}
		files = append(files, path)
		return nil
	}

	if p.formats.YAML {
		content, err := reporting.RenderYAML(report)
		if err != nil {
			return nil, err
		}
		if err := write(YAMLFileName, content); err != nil {
			return nil, err
		}
	}
	if p.formats.JSON {
		content, err := reporting.RenderJSON(report)
		if err != nil {
			return nil, err
		}
		if err := write(JSONFileName, content); err != nil {
			return nil, err
		}
	}
	if p.formats.Markdown {
		if err := write(MarkdownFileName, reporting.RenderMarkdown(report)); err != nil {
			return nil, err
		}
	}
	if p.formats.CSV {
		if err := write(CSVFileName, reporting.RenderCSV(report)); err != nil {
			return nil, err
		}
	}
	return files, nil
}

// persist writes the run summary, per-draft records, and per-finding
// outcomes to whichever stores are configured.
func (p *GatePipeline) persist(ctx context.Context, report *reporting.Report, state loop.BatchRunState) error {
	if p.runStore == nil && p.recordStore == nil && p.outcomeStore == nil {
		return nil
	}

	generatedAt, err := time.Parse(time.RFC3339, report.GeneratedAtUTC)
	if err != nil {
		return err
	}

	if p.runStore != nil {
		if err := p.runStore.Insert(ctx, buildReviewRun(report, generatedAt)); err != nil {
			return err
		}
	}
	if p.recordStore != nil {
		if err := p.recordStore.InsertBulk(ctx, buildReviewRecords(report.RunID, state)); err != nil {
			return err
		}
	}
	if p.outcomeStore != nil {
		if err := p.outcomeStore.InsertBulk(ctx, buildCriterionOutcomes(report.RunID, generatedAt, state)); err != nil {
			return err
		}
	}
	return nil
}

// buildReviewRun flattens the report header into its persisted row.
func buildReviewRun(report *reporting.Report, generatedAt time.Time) *domain.ReviewRun {
	s := report.Summary
	return &domain.ReviewRun{
		RunID:          report.RunID,
		GeneratedAtUTC: generatedAt,
		Source: domain.RunSource{
			DraftsDir:  report.Source.DraftsDir,
			DraftPath:  report.Source.DraftPath,
			DraftCount: report.Source.DraftCount,
		},
		TotalDrafts:         s.Total,
		PassCount:           s.Pass,
		ReviseCount:         s.Revise,
		RejectCount:         s.Reject,
		ExportEligibleCount: s.ExportEligible,
		DowngradedCount:     s.Downgraded,
		MalformedCount:      s.Malformed,
		IterationsRun:       s.IterationsRun,
	}
}

// buildReviewRecords clones every terminal result into its persisted row.
func buildReviewRecords(runID string, state loop.BatchRunState) []*domain.ReviewRecord {
	terminal := state.Terminal()
	records := make([]*domain.ReviewRecord, len(terminal))
	for i, r := range terminal {
		records[i] = &domain.ReviewRecord{RunID: runID, Result: *r.Result.Clone()}
	}
	return records
}

// buildCriterionOutcomes denormalizes every finding of every terminal
// result into analytics rows.
func buildCriterionOutcomes(runID string, generatedAt time.Time, state loop.BatchRunState) []*domain.CriterionOutcome {
	var outcomes []*domain.CriterionOutcome
	for _, r := range state.Terminal() {
		for _, f := range r.Result.Findings {
			outcomes = append(outcomes, &domain.CriterionOutcome{
				RunID:          runID,
				DraftID:        r.Result.DraftID,
				CriterionID:    f.CriterionID,
				Severity:       f.Severity,
				Score:          f.Score,
				Weight:         f.Weight,
				EntryFamily:    r.Draft.Draft.EntryFamily,
				Variant:        r.Draft.Draft.Variant,
				Verdict:        r.Result.Verdict,
				GeneratedAtUTC: generatedAt,
			})
		}
	}
	return outcomes
}
