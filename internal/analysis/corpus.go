// Package analysis computes corpus-level statistics over past exam questions:
// keyword clouds, TF-IDF themes, question-type frequencies, and a MECE scan of
// free-text answers.
package analysis

import (
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/pavelanni/casedrill/internal/model"
)

// Document is one question's combined text with its identifying labels.
type Document struct {
	Year       string `json:"year"`
	CaseLabel  string `json:"case_label"`
	ProblemID  int64  `json:"problem_id"`
	QuestionID int64  `json:"question_id"`
	Order      int    `json:"question_order"`
	Text       string `json:"text"`
}

var whitespacePattern = regexp.MustCompile(`[\s\x{3000}]+`)

func collapseSpace(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

func joinNonEmpty(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// BuildCorpus flattens problems into one document per question. The problem
// overview and case text prefix every question's text. Questions with no text
// are skipped and repeated (year, case, problem, order) keys keep the first.
func BuildCorpus(problems []model.Problem) []Document {
	type key struct {
		year, caseLabel string
		problemID       int64
		order           int
	}
	seen := make(map[key]bool)
	var docs []Document
	for _, p := range problems {
		base := joinNonEmpty(collapseSpace(p.Overview), collapseSpace(p.Context))
		for _, q := range p.Questions {
			text := collapseSpace(joinNonEmpty(
				base,
				collapseSpace(q.Prompt),
				collapseSpace(q.ModelAnswer),
				collapseSpace(q.Explanation),
				collapseSpace(q.Intent),
			))
			if text == "" {
				continue
			}
			k := key{p.Year, p.CaseLabel, p.ID, q.Order}
			if seen[k] {
				continue
			}
			seen[k] = true
			docs = append(docs, Document{
				Year:       p.Year,
				CaseLabel:  p.CaseLabel,
				ProblemID:  p.ID,
				QuestionID: q.ID,
				Order:      q.Order,
				Text:       text,
			})
		}
	}
	return docs
}

// YearOrder maps a year label to a sortable number: 令和N is 2018+N, 平成N is
// 1988+N, 元 counts as 1, and plain numbers parse as-is. Anything else sorts
// last as -Inf.
func YearOrder(label string) float64 {
	label = strings.TrimSpace(label)
	if label == "" {
		return math.Inf(-1)
	}
	label = strings.ReplaceAll(label, "年度", "")
	label = strings.ReplaceAll(label, "年", "")
	for era, base := range map[string]float64{"令和": 2018, "平成": 1988} {
		if !strings.HasPrefix(label, era) {
			continue
		}
		tail := strings.TrimPrefix(label, era)
		if tail == "元" {
			return base + 1
		}
		n, err := strconv.Atoi(tail)
		if err != nil {
			return math.Inf(-1)
		}
		return base + float64(n)
	}
	v, err := strconv.ParseFloat(label, 64)
	if err != nil {
		return math.Inf(-1)
	}
	return v
}

// AvailableYears returns the distinct year labels, newest first.
func AvailableYears(docs []Document) []string {
	seen := make(map[string]bool)
	var years []string
	for _, d := range docs {
		if !seen[d.Year] {
			seen[d.Year] = true
			years = append(years, d.Year)
		}
	}
	slices.SortStableFunc(years, func(a, b string) int {
		oa, ob := YearOrder(a), YearOrder(b)
		switch {
		case oa > ob:
			return -1
		case oa < ob:
			return 1
		default:
			return 0
		}
	})
	return years
}

// ProblemLoader returns the problems a corpus is built from.
type ProblemLoader func() ([]model.Problem, error)

// CorpusCache is a read-through cache of the question corpus. Callers own it
// and call Invalidate after problems change.
type CorpusCache struct {
	mu     sync.Mutex
	load   ProblemLoader
	docs   []Document
	loaded bool
}

func NewCorpusCache(load ProblemLoader) *CorpusCache {
	return &CorpusCache{load: load}
}

// Corpus returns a copy of the cached corpus, loading it on first use.
func (c *CorpusCache) Corpus() ([]Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		problems, err := c.load()
		if err != nil {
			return nil, err
		}
		c.docs = BuildCorpus(problems)
		c.loaded = true
	}
	return slices.Clone(c.docs), nil
}

// Invalidate drops the cached corpus.
func (c *CorpusCache) Invalidate() {
	c.mu.Lock()
	c.docs = nil
	c.loaded = false
	c.mu.Unlock()
}
