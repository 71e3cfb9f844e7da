package recommend

import (
	"cmp"
	"slices"

	"github.com/pavelanni/casedrill/internal/i18n"
	"github.com/pavelanni/casedrill/internal/model"
)

// reviewThreshold marks an attempt as weak.
const reviewThreshold = 0.7

// weakAttempts picks the learner's weakest attempts below reviewThreshold,
// one per problem, weakest first.
func weakAttempts(cat *i18n.Catalog, attempts []model.Attempt, stats problemStats,
	catalog map[int64]model.Problem, limit int,
) []model.ProblemRecommendation {
	type entry struct {
		ratio float64
		rec   model.ProblemRecommendation
	}
	var entries []entry
	for _, a := range attempts {
		ratio, ok := a.Ratio()
		if !ok || ratio >= reviewThreshold {
			continue
		}
		rec := model.ProblemRecommendation{
			ProblemID:  a.ProblemID,
			Year:       a.Year,
			CaseLabel:  a.CaseLabel,
			Title:      a.Title,
			ScoreRatio: ptr(ratio),
			Type:       model.RecommendReview,
			Reason:     reviewReason(cat, ratio, stats, a.ProblemID),
		}
		fillMetadata(&rec, catalog[a.ProblemID], problemStat{})
		entries = append(entries, entry{ratio: ratio, rec: rec})
	}
	slices.SortStableFunc(entries, func(a, b entry) int {
		return cmp.Compare(a.ratio, b.ratio)
	})

	var out []model.ProblemRecommendation
	seen := make(map[int64]bool)
	for _, e := range entries {
		if seen[e.rec.ProblemID] {
			continue
		}
		seen[e.rec.ProblemID] = true
		out = append(out, e.rec)
		if len(out) >= limit {
			break
		}
	}
	return out
}

func reviewReason(cat *i18n.Catalog, ratio float64, stats problemStats, problemID int64) string {
	st, ok := stats[problemID]
	if !ok {
		return cat.Td("ReasonReviewShort", map[string]any{"Ratio": percent(ratio)})
	}
	return cat.Td("ReasonReview", map[string]any{
		"Ratio": percent(ratio),
		"Mean":  percent(st.mean),
	})
}

// mergeProblems keeps every review item, then fills up to limit with explore
// items, dropping repeated problems.
func mergeProblems(review, explore []model.ProblemRecommendation, limit int) []model.ProblemRecommendation {
	var out []model.ProblemRecommendation
	seen := make(map[int64]bool)
	for _, r := range review {
		if seen[r.ProblemID] {
			continue
		}
		seen[r.ProblemID] = true
		out = append(out, r)
	}
	for _, r := range explore {
		if len(out) >= limit {
			break
		}
		if seen[r.ProblemID] {
			continue
		}
		seen[r.ProblemID] = true
		out = append(out, r)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
