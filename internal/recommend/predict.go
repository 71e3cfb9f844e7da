package recommend

import (
	"cmp"
	"slices"

	"github.com/pavelanni/casedrill/internal/i18n"
	"github.com/pavelanni/casedrill/internal/model"
)

const (
	predictionWeight = 0.6
	difficultyWeight = 0.4
)

// predictUnseen ranks problems the target has not rated by
// 0.6×(1−predicted) + 0.4×(1−global mean).
func predictUnseen(cat *i18n.Catalog, m *ratingMatrix, userID int64, neighbours []Neighbour,
	stats problemStats, catalog map[int64]model.Problem, limit int,
) []model.ProblemRecommendation {
	if !m.has(userID) || len(neighbours) == 0 {
		return nil
	}
	targetMean := m.means[userID]

	type scored struct {
		problemID int64
		predicted float64
		priority  float64
	}
	var candidates []scored
	for _, pid := range m.problems {
		if _, rated := m.rating(userID, pid); rated {
			continue
		}
		var num, den float64
		for _, n := range neighbours {
			v, ok := m.rating(n.UserID, pid)
			if !ok {
				continue
			}
			num += n.Similarity * (v - m.means[n.UserID])
			den += abs(n.Similarity)
		}

		global := stats.globalMean(pid)
		var predicted float64
		switch {
		case den != 0:
			predicted = targetMean + num/den
		case targetMean != 0:
			predicted = (targetMean + global) / 2
		default:
			predicted = global
		}
		predicted = clamp01(predicted)
		candidates = append(candidates, scored{
			problemID: pid,
			predicted: predicted,
			priority:  predictionWeight*(1-predicted) + difficultyWeight*(1-global),
		})
	}

	slices.SortStableFunc(candidates, func(a, b scored) int {
		return cmp.Compare(b.priority, a.priority)
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]model.ProblemRecommendation, 0, len(candidates))
	for _, c := range candidates {
		rec := model.ProblemRecommendation{
			ProblemID:      c.problemID,
			PredictedRatio: ptr(c.predicted),
			Priority:       c.priority,
			Type:           model.RecommendExplore,
			Reason:         predictionReason(cat, c.predicted, stats, c.problemID),
		}
		fillMetadata(&rec, catalog[c.problemID], stats[c.problemID])
		out = append(out, rec)
	}
	return out
}

func predictionReason(cat *i18n.Catalog, predicted float64, stats problemStats, problemID int64) string {
	st, ok := stats[problemID]
	if !ok {
		return cat.Td("ReasonPredictionShort", map[string]any{"Predicted": percent(predicted)})
	}
	return cat.Td("ReasonPrediction", map[string]any{
		"Predicted": percent(predicted),
		"Mean":      percent(st.mean),
		"Count":     st.count,
	})
}

// fillMetadata copies year, case and title from the catalog, then from rating history.
func fillMetadata(rec *model.ProblemRecommendation, p model.Problem, st problemStat) {
	rec.Year = cmp.Or(rec.Year, p.Year, st.year)
	rec.CaseLabel = cmp.Or(rec.CaseLabel, p.CaseLabel, st.caseLabel)
	rec.Title = cmp.Or(rec.Title, p.Title, st.title)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func ptr(v float64) *float64 { return &v }
