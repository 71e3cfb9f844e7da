package recommend

import (
	"cmp"
	"slices"

	"github.com/pavelanni/casedrill/internal/i18n"
	"github.com/pavelanni/casedrill/internal/model"
)

// keywordCount is a missing keyword and how many weak questions miss it.
type keywordCount struct {
	keyword string
	count   int
}

// missingKeywordCounts orders keywords by count, then first appearance.
func missingKeywordCounts(questions []model.QuestionRecommendation) []keywordCount {
	var out []keywordCount
	index := make(map[string]int)
	for _, q := range questions {
		for _, kw := range q.MissingKeywords {
			if i, ok := index[kw]; ok {
				out[i].count++
				continue
			}
			index[kw] = len(out)
			out = append(out, keywordCount{keyword: kw, count: 1})
		}
	}
	slices.SortStableFunc(out, func(a, b keywordCount) int {
		return cmp.Compare(b.count, a.count)
	})
	return out
}

// resourceRecommendations attaches configured resources to the most frequently
// missed keywords, then backfills with defaults not already listed.
func resourceRecommendations(cat *i18n.Catalog, questions []model.QuestionRecommendation,
	byKeyword map[string][]model.Resource, defaults []model.Resource, limit int,
) []model.ResourceRecommendation {
	var out []model.ResourceRecommendation
	for _, kc := range missingKeywordCounts(questions) {
		for _, r := range byKeyword[kc.keyword] {
			out = append(out, model.ResourceRecommendation{
				Keyword: kc.keyword,
				Label:   r.Label,
				URL:     r.URL,
				Reason:  cat.Td("ReasonResource", map[string]any{"Keyword": kc.keyword, "Count": kc.count}),
			})
		}
		if len(out) >= limit {
			break
		}
	}

	type labelURL struct{ label, url string }
	if len(out) < limit {
		listed := make(map[labelURL]bool, len(out))
		for _, r := range out {
			listed[labelURL{r.Label, r.URL}] = true
		}
		for _, r := range defaults {
			k := labelURL{r.Label, r.URL}
			if listed[k] {
				continue
			}
			listed[k] = true
			out = append(out, model.ResourceRecommendation{
				Label:  r.Label,
				URL:    r.URL,
				Reason: cat.T("ReasonResourceFallback"),
			})
			if len(out) >= limit {
				break
			}
		}
	}

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
