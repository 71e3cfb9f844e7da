package recommend

import (
	"cmp"
	"slices"
	"strings"

	"github.com/pavelanni/casedrill/internal/i18n"
	"github.com/pavelanni/casedrill/internal/model"
)

// weakness is the mean of (1−score ratio) and (1−coverage) over the signals
// that are defined. With neither defined it is 0.
func weakness(scoreRatio, coverage *float64) float64 {
	var sum float64
	n := 0
	for _, v := range []*float64{scoreRatio, coverage} {
		if v == nil {
			continue
		}
		sum += 1 - clamp01(*v)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

type questionKey struct {
	id                      int64
	year, caseLabel, prompt string
}

func keyOf(r model.QuestionRecommendation) questionKey {
	if r.QuestionID != 0 {
		return questionKey{id: r.QuestionID}
	}
	return questionKey{year: r.Year, caseLabel: r.CaseLabel, prompt: r.Prompt}
}

// questionRecommendations ranks historical answers by weakness, one per question.
func questionRecommendations(cat *i18n.Catalog, records []model.KeywordRecord, limit int) []model.QuestionRecommendation {
	var candidates []model.QuestionRecommendation
	for _, rec := range records {
		var scoreRatio, coverage *float64
		if rec.MaxScore != 0 {
			scoreRatio = ptr(rec.Score / rec.MaxScore)
		}
		if c, ok := rec.KeywordHits.Coverage(); ok {
			coverage = ptr(c)
		}
		w := weakness(scoreRatio, coverage)
		if w <= 0 {
			continue
		}
		missing := rec.KeywordHits.Missing()
		if missing == nil {
			missing = []string{}
		}
		candidates = append(candidates, model.QuestionRecommendation{
			QuestionID:      rec.QuestionID,
			Year:            rec.Year,
			CaseLabel:       rec.CaseLabel,
			Prompt:          rec.Prompt,
			ScoreRatio:      scoreRatio,
			CoverageRatio:   coverage,
			MissingKeywords: missing,
			Weakness:        w,
			Reason:          questionReason(cat, scoreRatio, coverage),
		})
	}
	slices.SortStableFunc(candidates, func(a, b model.QuestionRecommendation) int {
		return cmp.Compare(b.Weakness, a.Weakness)
	})

	var out []model.QuestionRecommendation
	seen := make(map[questionKey]bool)
	for _, c := range candidates {
		k := keyOf(c)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, c)
		if len(out) >= limit {
			break
		}
	}
	return out
}

func questionReason(cat *i18n.Catalog, scoreRatio, coverage *float64) string {
	var parts []string
	if scoreRatio != nil {
		parts = append(parts, cat.Td("ReasonQuestionScore", map[string]any{"Ratio": percent(*scoreRatio)}))
	}
	if coverage != nil {
		parts = append(parts, cat.Td("ReasonQuestionCoverage", map[string]any{"Coverage": percent(*coverage)}))
	}
	if len(parts) == 0 {
		return cat.T("ReasonQuestionDefault")
	}
	return strings.Join(parts, " / ")
}
