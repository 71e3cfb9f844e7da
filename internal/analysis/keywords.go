package analysis

import (
	"cmp"
	"maps"
	"math"
	"slices"

	"github.com/pavelanni/casedrill/internal/textproc"
)

// AllCases labels clouds built over every case.
const AllCases = "全体"

// CloudEntry is one keyword in a keyword cloud.
type CloudEntry struct {
	Keyword   string  `json:"keyword"`
	Count     int     `json:"count"`
	Weight    float64 `json:"weight"`
	CaseLabel string  `json:"case_label"`
}

// Theme is a keyword with its mean TF-IDF score.
type Theme struct {
	Keyword string  `json:"keyword"`
	Score   float64 `json:"score"`
}

// KeywordCloud counts tokens across documents of caseLabel ("" for all),
// drops those seen fewer than minOccurrence times and returns the topN most
// frequent. Weight is count relative to the most frequent keyword.
func KeywordCloud(docs []Document, caseLabel string, topN, minOccurrence int) []CloudEntry {
	counts := make(map[string]int)
	var order []string
	for _, d := range docs {
		if caseLabel != "" && d.CaseLabel != caseLabel {
			continue
		}
		for _, tok := range textproc.Tokens(d.Text) {
			if counts[tok] == 0 {
				order = append(order, tok)
			}
			counts[tok]++
		}
	}

	var kept []string
	for _, tok := range order {
		if counts[tok] >= minOccurrence {
			kept = append(kept, tok)
		}
	}
	// Equal counts keep first-seen order.
	slices.SortStableFunc(kept, func(a, b string) int {
		return cmp.Compare(counts[b], counts[a])
	})
	if topN > 0 && len(kept) > topN {
		kept = kept[:topN]
	}
	if len(kept) == 0 {
		return []CloudEntry{}
	}

	label := caseLabel
	if label == "" {
		label = AllCases
	}
	maxCount := float64(counts[kept[0]])
	out := make([]CloudEntry, 0, len(kept))
	for _, tok := range kept {
		out = append(out, CloudEntry{
			Keyword:   tok,
			Count:     counts[tok],
			Weight:    float64(counts[tok]) / maxCount,
			CaseLabel: label,
		})
	}
	return out
}

// tfidfRows builds l2-normalised TF-IDF rows with smoothed idf
// ln((1+n)/(1+df))+1 over the documents' tokens.
func tfidfRows(docs []Document) []map[string]float64 {
	n := float64(len(docs))
	tfs := make([]map[string]float64, len(docs))
	df := make(map[string]int)
	for i, d := range docs {
		tf := make(map[string]float64)
		for _, tok := range textproc.Tokens(d.Text) {
			tf[tok]++
		}
		for tok := range tf {
			df[tok]++
		}
		tfs[i] = tf
	}
	for _, tf := range tfs {
		var norm float64
		for tok, v := range tf {
			w := v * (math.Log((1+n)/(1+float64(df[tok]))) + 1)
			tf[tok] = w
			norm += w * w
		}
		if norm == 0 {
			continue
		}
		norm = math.Sqrt(norm)
		for tok := range tf {
			tf[tok] /= norm
		}
	}
	return tfs
}

func meanThemes(rows []map[string]float64, topN int) []Theme {
	if len(rows) == 0 {
		return []Theme{}
	}
	sums := make(map[string]float64)
	for _, row := range rows {
		for tok, v := range row {
			sums[tok] += v
		}
	}
	themes := make([]Theme, 0, len(sums))
	for _, tok := range slices.Sorted(maps.Keys(sums)) {
		if s := sums[tok] / float64(len(rows)); s > 0 {
			themes = append(themes, Theme{Keyword: tok, Score: s})
		}
	}
	slices.SortStableFunc(themes, func(a, b Theme) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if topN > 0 && len(themes) > topN {
		themes = themes[:topN]
	}
	return themes
}

// Themes ranks keywords by mean TF-IDF weight over all documents and per case.
// The vocabulary and idf come from the whole slice.
func Themes(docs []Document, topN int) (overall []Theme, byCase map[string][]Theme) {
	rows := tfidfRows(docs)
	overall = meanThemes(rows, topN)

	grouped := make(map[string][]map[string]float64)
	for i, d := range docs {
		grouped[d.CaseLabel] = append(grouped[d.CaseLabel], rows[i])
	}
	byCase = make(map[string][]Theme, len(grouped))
	for label, caseRows := range grouped {
		if themes := meanThemes(caseRows, topN); len(themes) > 0 {
			byCase[label] = themes
		}
	}
	return overall, byCase
}

// InsightOptions controls Insights. Zero values select the defaults.
type InsightOptions struct {
	RecentYears   int
	TopN          int
	MinOccurrence int
	ThemeTopN     int
}

func (o InsightOptions) withDefaults() InsightOptions {
	if o.TopN <= 0 {
		o.TopN = 40
	}
	if o.MinOccurrence <= 0 {
		o.MinOccurrence = 2
	}
	if o.ThemeTopN <= 0 {
		o.ThemeTopN = 8
	}
	return o
}

// KeywordInsights is the keyword cloud and theme summary for a slice of years.
type KeywordInsights struct {
	CloudOverall   []CloudEntry            `json:"cloud_overall"`
	CloudByCase    map[string][]CloudEntry `json:"cloud_by_case"`
	ThemesOverall  []Theme                 `json:"themes_overall"`
	ThemesByCase   map[string][]Theme      `json:"themes_by_case"`
	CaseLabels     []string                `json:"case_labels"`
	AvailableYears []string                `json:"available_years"`
	SelectedYears  []string                `json:"selected_years"`
	DocumentCount  int                     `json:"document_count"`
}

// Insights restricts docs to the most recent opts.RecentYears years (all when
// zero) and summarises keywords overall and per case.
func Insights(docs []Document, opts InsightOptions) KeywordInsights {
	opts = opts.withDefaults()
	available := AvailableYears(docs)
	selected := available
	if opts.RecentYears > 0 && len(available) > 0 {
		selected = available[:max(1, min(opts.RecentYears, len(available)))]
	}

	var filtered []Document
	if len(selected) > 0 {
		for _, d := range docs {
			if slices.Contains(selected, d.Year) {
				filtered = append(filtered, d)
			}
		}
	} else {
		filtered = docs
	}

	out := KeywordInsights{
		CloudOverall:   []CloudEntry{},
		CloudByCase:    map[string][]CloudEntry{},
		ThemesOverall:  []Theme{},
		ThemesByCase:   map[string][]Theme{},
		CaseLabels:     []string{},
		AvailableYears: nonNilStrings(available),
		SelectedYears:  nonNilStrings(selected),
	}
	if len(filtered) == 0 {
		return out
	}

	labels := make(map[string]bool)
	for _, d := range filtered {
		if d.CaseLabel != "" {
			labels[d.CaseLabel] = true
		}
	}
	out.CaseLabels = slices.Sorted(maps.Keys(labels))
	out.CloudOverall = KeywordCloud(filtered, "", opts.TopN, opts.MinOccurrence)
	for _, label := range out.CaseLabels {
		out.CloudByCase[label] = KeywordCloud(filtered, label, opts.TopN, opts.MinOccurrence)
	}
	out.ThemesOverall, out.ThemesByCase = Themes(filtered, opts.ThemeTopN)
	out.DocumentCount = len(filtered)
	return out
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
