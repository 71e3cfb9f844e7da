package scoring

import (
	"strings"

	"github.com/pavelanni/casedrill/internal/model"
	"github.com/pavelanni/casedrill/internal/textproc"
)

// KeywordMatch reports, for each keyword, whether its normalized form is a
// substring of the normalized answer. Matching is exact: no stemming or fuzziness.
func KeywordMatch(answer string, keywords []string) model.KeywordHits {
	hits := make(model.KeywordHits, 0, len(keywords))
	normalized := textproc.Normalize(answer)
	for _, kw := range keywords {
		hits = hits.Set(kw, strings.Contains(normalized, textproc.Normalize(kw)))
	}
	return hits
}

// Keyword categories used in the score analysis.
const (
	CategoryNoun      = "名詞"
	CategoryPredicate = "述語"
	CategoryOther     = "その他"
)

var actionSuffixes = []string{
	"する", "化", "向上", "改善", "強化", "促進", "導入",
	"実施", "最適化", "短縮", "低減", "育成", "連携",
}

func categorizeKeyword(keyword string) string {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return CategoryOther
	}
	for _, suffix := range actionSuffixes {
		if strings.HasSuffix(keyword, suffix) {
			return CategoryPredicate
		}
	}
	return CategoryNoun
}

// keywordCategories splits hit/miss counts into noun, predicate and other keywords.
func keywordCategories(hits model.KeywordHits) map[string]model.CategoryCount {
	out := map[string]model.CategoryCount{
		CategoryNoun:      {},
		CategoryPredicate: {},
		CategoryOther:     {},
	}
	for _, kh := range hits {
		cat := categorizeKeyword(kh.Keyword)
		c := out[cat]
		if kh.Hit {
			c.Hit++
		} else {
			c.Miss++
		}
		out[cat] = c
	}
	return out
}
