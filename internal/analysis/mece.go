package analysis

import (
	"cmp"
	"html"
	"maps"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

var (
	scanWordPattern     = regexp.MustCompile(`[一-龥々〆ヵヶぁ-ゖァ-ヶーA-Za-z0-9]+`)
	scanSentencePattern = regexp.MustCompile(`[^。！？]+[。！？]?`)
)

var scanStopwords = map[string]bool{
	"こと": true, "もの": true, "ため": true, "よう": true, "これ": true,
	"それ": true, "そして": true, "しかし": true, "ので": true, "また": true,
	"する": true, "なる": true, "いる": true, "ある": true,
}

var synonymGroups = [][]string{
	{"課題", "問題", "懸念", "ボトルネック"},
	{"強み", "優位性", "差別化", "独自性"},
	{"弱み", "欠点", "リスク", "脆弱性"},
	{"施策", "対策", "打ち手", "アクション"},
	{"顧客", "クライアント", "利用者", "ユーザー"},
	{"成長", "拡大", "伸長"},
	{"改善", "向上", "強化"},
}

var (
	connectorWords = []string{"だから", "結果として", "したがって", "従って", "そのため", "よって", "ゆえに"}
	causeWords     = []string{"原因", "課題", "要因", "背景", "理由", "現状", "問題", "不足", "停滞", "遅れ", "ボトルネック"}
	effectWords    = []string{
		"結果", "影響", "効果", "改善", "期待", "必要", "求められる", "べき", "求め",
		"増加", "減少", "伸長", "強化", "定着", "解消",
	}
	resultWords = []string{"結果", "影響", "効果", "成果", "改善", "増加", "減少", "伸長", "定着"}
)

// Highlight labels used as "highlight-<label>" CSS classes.
const (
	LabelDuplicate   = "duplicate"
	LabelSynonym     = "synonym"
	LabelEnumeration = "enumeration"
)

// Duplicate is a word used more than once.
type Duplicate struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// SynonymGroup lists near-synonyms that appear together in one text.
type SynonymGroup struct {
	Label string   `json:"label"`
	Words []string `json:"words"`
}

// Enumeration is a sentence that lists three or more items without a
// causal connector.
type Enumeration struct {
	Sentence string   `json:"sentence"`
	Items    []string `json:"items"`
}

// ConnectorSuggestion proposes prefixing Target with a causal connector.
type ConnectorSuggestion struct {
	Connector string `json:"connector"`
	Target    string `json:"target"`
	Proposal  string `json:"proposal"`
}

// ScanResult is the outcome of Scan.
type ScanResult struct {
	HighlightedHTML      string                `json:"highlighted_html"`
	Duplicates           []Duplicate           `json:"duplicates"`
	SynonymGroups        []SynonymGroup        `json:"synonym_groups"`
	Enumerations         []Enumeration         `json:"enumerations"`
	ConnectorSuggestions []ConnectorSuggestion `json:"connector_suggestions"`
}

// span is a labelled byte range of the scanned text.
type span struct {
	start, end int
	label      string
}

type sentence struct {
	text       string
	start, end int
}

// Scan looks for repeated words, mixed synonyms, flat enumerations and
// missing causal connectors in an answer, and renders the text as HTML with
// the offending ranges wrapped in highlight spans.
func Scan(text string) ScanResult {
	positions := make(map[string][][2]int)
	var order []string
	for _, loc := range scanWordPattern.FindAllStringIndex(text, -1) {
		w := text[loc[0]:loc[1]]
		if _, ok := positions[w]; !ok {
			order = append(order, w)
		}
		positions[w] = append(positions[w], [2]int{loc[0], loc[1]})
	}
	sentences := splitSentences(text)

	duplicates, dupSpans := collectDuplicates(order, positions)
	synonyms, synSpans := collectSynonyms(positions)
	enumerations, enumSpans := collectEnumerations(sentences)

	spans := slices.Concat(dupSpans, synSpans, enumSpans)
	return ScanResult{
		HighlightedHTML:      highlightHTML(text, spans),
		Duplicates:           duplicates,
		SynonymGroups:        synonyms,
		Enumerations:         enumerations,
		ConnectorSuggestions: connectorSuggestions(sentences),
	}
}

func collectDuplicates(order []string, positions map[string][][2]int) ([]Duplicate, []span) {
	out := []Duplicate{}
	var spans []span
	for _, w := range order {
		ranges := positions[w]
		if len(ranges) < 2 || scanStopwords[w] || utf8.RuneCountInString(w) <= 1 {
			continue
		}
		out = append(out, Duplicate{Word: w, Count: len(ranges)})
		for _, r := range ranges {
			spans = append(spans, span{r[0], r[1], LabelDuplicate})
		}
	}
	slices.SortFunc(out, func(a, b Duplicate) int {
		return cmp.Or(cmp.Compare(b.Count, a.Count), strings.Compare(a.Word, b.Word))
	})
	return out, spans
}

func collectSynonyms(positions map[string][][2]int) ([]SynonymGroup, []span) {
	out := []SynonymGroup{}
	var spans []span
	for _, group := range synonymGroups {
		var found []string
		for _, w := range group {
			if len(positions[w]) > 0 {
				found = append(found, w)
			}
		}
		if len(found) < 2 {
			continue
		}
		slices.Sort(found)
		out = append(out, SynonymGroup{Label: strings.Join(found, "・"), Words: found})
		for _, w := range found {
			for _, r := range positions[w] {
				spans = append(spans, span{r[0], r[1], LabelSynonym})
			}
		}
	}
	slices.SortFunc(out, func(a, b SynonymGroup) int { return strings.Compare(a.Label, b.Label) })
	return out, spans
}

func splitSentences(text string) []sentence {
	var out []sentence
	for _, loc := range scanSentencePattern.FindAllStringIndex(text, -1) {
		s := strings.TrimSpace(text[loc[0]:loc[1]])
		if s != "" {
			out = append(out, sentence{s, loc[0], loc[1]})
		}
	}
	return out
}

func containsAny(s string, words []string) bool {
	return slices.ContainsFunc(words, func(w string) bool { return strings.Contains(s, w) })
}

func collectEnumerations(sentences []sentence) ([]Enumeration, []span) {
	out := []Enumeration{}
	var spans []span
	for _, s := range sentences {
		var items []string
		for _, item := range strings.Split(strings.TrimRight(s.text, "。！？"), "、") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		if len(items) < 3 || containsAny(s.text, connectorWords) {
			continue
		}
		out = append(out, Enumeration{Sentence: s.text, Items: items})
		spans = append(spans, span{s.start, s.end, LabelEnumeration})
	}
	return out, spans
}

func connectorSuggestions(sentences []sentence) []ConnectorSuggestion {
	out := []ConnectorSuggestion{}
	for i := 1; i < len(sentences); i++ {
		prev, cur := sentences[i-1].text, sentences[i].text
		if containsAny(cur, connectorWords) || !containsAny(prev, causeWords) || !containsAny(cur, effectWords) {
			continue
		}
		connector := "だから"
		if containsAny(cur, resultWords) {
			connector = "結果として"
		}
		out = append(out, ConnectorSuggestion{
			Connector: connector,
			Target:    cur,
			Proposal:  connector + cur,
		})
	}
	return out
}

var htmlWhitespace = strings.NewReplacer("\n", "<br>", " ", "&nbsp;", "　", "&nbsp;&nbsp;")

// highlightHTML escapes text and wraps every run of runes sharing the same
// label set in a span carrying one highlight class per label.
func highlightHTML(text string, spans []span) string {
	if text == "" {
		return ""
	}
	labelsAt := func(pos int) string {
		set := make(map[string]bool)
		for _, s := range spans {
			if pos >= s.start && pos < s.end {
				set["highlight-"+s.label] = true
			}
		}
		return strings.Join(slices.Sorted(maps.Keys(set)), " ")
	}

	var b strings.Builder
	flush := func(segment, class string) {
		if segment == "" {
			return
		}
		escaped := htmlWhitespace.Replace(html.EscapeString(segment))
		if class == "" {
			b.WriteString(escaped)
			return
		}
		b.WriteString(`<span class="` + class + `">` + escaped + `</span>`)
	}

	runStart, current := 0, ""
	for pos := range text {
		// Only rune boundaries are visited, so labels never split a character.
		class := labelsAt(pos)
		if pos > 0 && class != current {
			flush(text[runStart:pos], current)
			runStart = pos
		}
		current = class
	}
	flush(text[runStart:], current)
	return b.String()
}
