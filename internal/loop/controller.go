// Package loop runs the bounded evaluate-revise cycle over a draft batch.
package loop

import (
	"log"
	"sync"

	"strategy-draft-gate/internal/domain"
	"strategy-draft-gate/internal/export"
	"strategy-draft-gate/internal/review"
	"strategy-draft-gate/internal/revision"
)

// DefaultMaxIterations bounds the revise cycle when no override is given.
const DefaultMaxIterations = 2

// Controller orchestrates Evaluate -> Classify -> Revise rounds until every
// draft is terminal or the iteration budget runs out. Drafts within one
// iteration are evaluated in parallel; iterations themselves are strictly
// sequential because the next round's working set is the previous round's
// mutation output.
type Controller struct {
	evaluator     *review.Evaluator
	engine        *review.VerdictEngine
	applier       *revision.Applier
	maxIterations int
	workers       int
	logger        *log.Logger
}

// ControllerOptions configures a Controller. Zero values pick defaults.
type ControllerOptions struct {
	Evaluator     *review.Evaluator
	Engine        *review.VerdictEngine
	Applier       *revision.Applier
	MaxIterations int // default 2
	Workers       int // parallel evaluations per iteration, default 4
	Logger        *log.Logger
}

// NewController creates a loop controller.
func NewController(opts ControllerOptions) *Controller {
	evaluator := opts.Evaluator
	if evaluator == nil {
		evaluator = review.NewEvaluator()
	}
	engine := opts.Engine
	if engine == nil {
		engine = review.NewVerdictEngine()
	}
	applier := opts.Applier
	if applier == nil {
		applier = revision.NewApplier()
	}
	maxIterations := opts.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Controller{
		evaluator:     evaluator,
		engine:        engine,
		applier:       applier,
		maxIterations: maxIterations,
		workers:       workers,
		logger:        logger,
	}
}

// Run folds the batch through evaluation rounds and returns the final state.
// Terminal results leave with their export eligibility decided.
func (c *Controller) Run(drafts []domain.ParsedDraft) BatchRunState {
	state := newBatchRunState(drafts)
	c.logger.Printf("loop: starting batch of %d drafts, budget %d iterations", len(drafts), c.maxIterations)

	for state.Iteration < c.maxIterations && len(state.Revising) > 0 {
		state = c.runIteration(state)
		c.logger.Printf("loop: iteration %d done: %d passed, %d rejected, %d revising",
			state.Iteration, len(state.Passed), len(state.Rejected), len(state.Revising))
	}

	state = downgradeRemaining(state)
	if n := len(state.Downgraded); n > 0 {
		c.logger.Printf("loop: downgraded %d drafts to research_probe after budget exhaustion", n)
	}
	return state
}

// evaluation is one draft's outcome within an iteration.
type evaluation struct {
	draft  domain.ParsedDraft
	result *domain.ReviewResult
	kinds  []domain.InstructionKind
}

// runIteration evaluates the whole working set in parallel, then folds the
// outcomes into the next state. Results land in a position-indexed slice, so
// the merge is free of ordering races and the fold stays deterministic.
func (c *Controller) runIteration(state BatchRunState) BatchRunState {
	entries := state.Revising
	evaluations := make([]evaluation, len(entries))

	workers := c.workers
	if workers > len(entries) {
		workers = len(entries)
	}
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				evaluations[i] = c.evaluateOne(entries[i].Draft)
			}
		}()
	}
	for i := range entries {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	next := BatchRunState{
		Iteration:  state.Iteration + 1,
		Passed:     state.Passed,
		Rejected:   state.Rejected,
		Downgraded: state.Downgraded,
	}
	for _, ev := range evaluations {
		switch ev.result.Verdict {
		case domain.VerdictPass:
			ev.result.ExportEligible = export.Eligible(ev.result, ev.draft.Draft)
			next.Passed = append(next.Passed, ReviewedDraft{Draft: ev.draft, Result: ev.result})
		case domain.VerdictReject:
			next.Rejected = append(next.Rejected, ReviewedDraft{Draft: ev.draft, Result: ev.result})
		default:
			mutated := ev.draft
			mutated.Draft = c.applier.Apply(ev.draft.Draft, ev.kinds)
			next.Revising = append(next.Revising, RevisingDraft{Draft: mutated, LastResult: ev.result})
		}
	}
	return next
}

// evaluateOne scores and classifies a single draft.
func (c *Controller) evaluateOne(p domain.ParsedDraft) evaluation {
	findings := c.evaluator.Evaluate(p)
	cls := c.engine.Classify(findings)

	result := &domain.ReviewResult{
		DraftID:          p.Draft.DraftID,
		Verdict:          cls.Verdict,
		ConfidenceScore:  cls.ConfidenceScore,
		Findings:         findings,
		InstructionKinds: cls.Instructions,
	}
	for _, k := range cls.Instructions {
		result.RevisionInstructions = append(result.RevisionInstructions, k.Text())
	}
	return evaluation{draft: p, result: result, kinds: cls.Instructions}
}

// downgradeRemaining forces every still-revising draft to research_probe:
// the export flag is cleared, the last REVISE verdict stands in the report,
// and the draft can never be export eligible.
func downgradeRemaining(state BatchRunState) BatchRunState {
	if len(state.Revising) == 0 {
		return state
	}

	next := state
	next.Revising = nil
	for _, entry := range state.Revising {
		demoted := entry.Draft.Clone()
		demoted.Draft.Variant = domain.VariantResearchProbe
		demoted.Draft.ExportReadyV1 = false

		result := entry.LastResult
		if result == nil {
			// Zero-budget run: never evaluated, record a bare REVISE.
			result = &domain.ReviewResult{DraftID: entry.Draft.Draft.DraftID, Verdict: domain.VerdictRevise}
		} else {
			result = result.Clone()
		}
		result.ExportEligible = false

		next.Downgraded = append(next.Downgraded, ReviewedDraft{Draft: demoted, Result: result})
	}
	return next
}
