package analytics

import (
	"sort"

	"strategy-draft-gate/internal/domain"
)

// CriterionStats aggregates persisted outcomes for one criterion.
type CriterionStats struct {
	CriterionID domain.CriterionID
	Title       string

	// Counts
	Evaluations int
	PassCount   int
	WarnCount   int
	FailCount   int

	// Rates
	WarnRate float64
	FailRate float64

	// Score distribution
	MeanScore float64
	MinScore  int
	MaxScore  int
}

// EntryFamilyStats aggregates terminal verdicts for one entry family.
// Drafts counts distinct (run_id, draft_id) pairs, not outcome rows.
type EntryFamilyStats struct {
	EntryFamily string

	Drafts      int
	PassCount   int
	ReviseCount int
	RejectCount int

	PassRate float64
}

// computeCriterionStats groups outcome rows by criterion and computes
// per-criterion counts, rates, and score distribution. Results are sorted
// by criterion ID ASC.
func computeCriterionStats(rows []*domain.CriterionOutcome) []CriterionStats {
	byCriterion := make(map[domain.CriterionID][]*domain.CriterionOutcome)
	for _, r := range rows {
		byCriterion[r.CriterionID] = append(byCriterion[r.CriterionID], r)
	}

	stats := make([]CriterionStats, 0, len(byCriterion))
	for id, group := range byCriterion {
		s := CriterionStats{
			CriterionID: id,
			Title:       id.Title(),
			Evaluations: len(group),
			MinScore:    group[0].Score,
			MaxScore:    group[0].Score,
		}

		scoreSum := 0
		for _, o := range group {
			switch o.Severity {
			case domain.SeverityPass:
				s.PassCount++
			case domain.SeverityWarn:
				s.WarnCount++
			case domain.SeverityFail:
				s.FailCount++
			}
			scoreSum += o.Score
			if o.Score < s.MinScore {
				s.MinScore = o.Score
			}
			if o.Score > s.MaxScore {
				s.MaxScore = o.Score
			}
		}

		s.WarnRate = rate(s.WarnCount, s.Evaluations)
		s.FailRate = rate(s.FailCount, s.Evaluations)
		s.MeanScore = float64(scoreSum) / float64(s.Evaluations)
		stats = append(stats, s)
	}

	sort.Slice(stats, func(i, j int) bool {
		return stats[i].CriterionID < stats[j].CriterionID
	})
	return stats
}

// computeEntryFamilyStats groups outcome rows by entry family and computes
// the verdict distribution over distinct drafts. Every row of a draft
// carries the same family and terminal verdict, so rows are deduplicated
// on (run_id, draft_id) before counting. Results are sorted by family ASC.
func computeEntryFamilyStats(rows []*domain.CriterionOutcome) []EntryFamilyStats {
	type draftKey struct {
		runID   string
		draftID string
	}
	type draftVerdict struct {
		family  string
		verdict domain.Verdict
	}

	drafts := make(map[draftKey]draftVerdict)
	for _, r := range rows {
		drafts[draftKey{r.RunID, r.DraftID}] = draftVerdict{r.EntryFamily, r.Verdict}
	}

	byFamily := make(map[string]*EntryFamilyStats)
	for _, dv := range drafts {
		s, ok := byFamily[dv.family]
		if !ok {
			s = &EntryFamilyStats{EntryFamily: dv.family}
			byFamily[dv.family] = s
		}
		s.Drafts++
		switch dv.verdict {
		case domain.VerdictPass:
			s.PassCount++
		case domain.VerdictRevise:
			s.ReviseCount++
		case domain.VerdictReject:
			s.RejectCount++
		}
	}

	stats := make([]EntryFamilyStats, 0, len(byFamily))
	for _, s := range byFamily {
		s.PassRate = rate(s.PassCount, s.Drafts)
		stats = append(stats, *s)
	}

	sort.Slice(stats, func(i, j int) bool {
		return stats[i].EntryFamily < stats[j].EntryFamily
	})
	return stats
}

// rate divides count by total, returning 0 for an empty total.
func rate(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total)
}
