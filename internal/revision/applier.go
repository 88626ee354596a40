package revision

import (
	"log"
	"math"
	"regexp"
	"strconv"
	"strings"

	"strategy-draft-gate/internal/domain"
)

// volumeFilterCondition is the condition appended when a draft is told to
// add a volume filter. Integer multiplier on purpose: a decimal literal here
// would hand the draft a fresh precise-threshold penalty on the next pass.
const volumeFilterCondition = "volume > 2 * avg_volume_20d"

var decimalLiteralRe = regexp.MustCompile(`\d+\.\d+`)

// mutation is one pure rewrite of a draft's structural fields.
type mutation func(*domain.StrategyDraft)

// mutations maps recognized instruction kinds to their rewrite. Kinds
// without an entry are advisory only and apply as no-ops.
var mutations = map[domain.InstructionKind]mutation{
	domain.InstructionReduceEntryConditions:  reduceEntryConditions,
	domain.InstructionAddVolumeFilter:        addVolumeFilter,
	domain.InstructionRoundPreciseThresholds: roundPreciseThresholds,
}

// Applier rewrites drafts according to revision instructions. Only
// structural fields change; variant and the export-ready flag are never
// touched here.
type Applier struct {
	logger *log.Logger
}

// NewApplier creates a new revision applier.
func NewApplier() *Applier {
	return &Applier{logger: log.Default()}
}

// WithLogger sets the logger used for no-op instruction notices.
func (a *Applier) WithLogger(logger *log.Logger) *Applier {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// Apply returns a mutated copy of the draft with every recognized
// instruction applied in the order instructions were produced. The input
// draft is never modified.
func (a *Applier) Apply(draft *domain.StrategyDraft, kinds []domain.InstructionKind) *domain.StrategyDraft {
	out := draft.Clone()
	for _, k := range kinds {
		fn, ok := mutations[k]
		if !ok {
			a.logger.Printf("revision: no mutation rule for %s on draft %s, skipping", k, draft.DraftID)
			continue
		}
		fn(out)
	}
	return out
}

// reduceEntryConditions truncates the condition list to its first 5 entries.
func reduceEntryConditions(d *domain.StrategyDraft) {
	if len(d.Conditions) > 5 {
		d.Conditions = d.Conditions[:5]
	}
}

// addVolumeFilter appends the fixed volume condition unless one is present.
func addVolumeFilter(d *domain.StrategyDraft) {
	for _, c := range d.Conditions {
		if strings.Contains(strings.ToLower(c), "volume") {
			return
		}
	}
	d.Conditions = append(d.Conditions, volumeFilterCondition)
}

// roundPreciseThresholds rewrites every decimal numeric literal in the
// conditions to its rounded integer form.
func roundPreciseThresholds(d *domain.StrategyDraft) {
	for i, c := range d.Conditions {
		d.Conditions[i] = decimalLiteralRe.ReplaceAllStringFunc(c, func(lit string) string {
			v, err := strconv.ParseFloat(lit, 64)
			if err != nil {
				return lit
			}
			return strconv.FormatFloat(math.Round(v), 'f', -1, 64)
		})
	}
}
