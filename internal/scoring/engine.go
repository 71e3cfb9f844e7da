// Package scoring grades free-text answers against a question's keywords and
// model answer, and evaluates case-level answer bundles against fixed rubrics.
package scoring

import (
	"strings"

	"github.com/pavelanni/casedrill/internal/i18n"
	"github.com/pavelanni/casedrill/internal/model"
)

// Criterion keys.
const (
	CriterionKeyword   = "keyword"
	CriterionStructure = "structure"
	CriterionClarity   = "clarity"
)

// Weights are the declared criterion weights. The composite divides by their sum.
type Weights struct {
	Keyword   float64
	Structure float64
	Clarity   float64
}

// DefaultWeights sum to 1.0.
var DefaultWeights = Weights{Keyword: 0.5, Structure: 0.3, Clarity: 0.2}

// StructureFullSimilarity is the similarity that earns a perfect structure score.
const StructureFullSimilarity = 0.8

// Engine scores answers. The zero value is not usable; call New.
type Engine struct {
	cat     *i18n.Catalog
	weights Weights
}

// Option configures an Engine.
type Option func(*Engine)

// WithWeights overrides the criterion weights.
func WithWeights(w Weights) Option {
	return func(e *Engine) { e.weights = w }
}

// New creates an engine that writes feedback with cat (Japanese when nil).
func New(cat *i18n.Catalog, opts ...Option) *Engine {
	if cat == nil {
		cat = i18n.Default()
	}
	e := &Engine{cat: cat, weights: DefaultWeights}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ScoreAnswer scores answer with the default Japanese engine.
func ScoreAnswer(answer string, q model.QuestionSpec) model.ScoreResult {
	return New(nil).ScoreAnswer(answer, q)
}

// ScoreAnswer converts answer into a score in [0, q.MaxScore] rounded to two
// decimals, with templated feedback. A blank answer scores 0 with every keyword missed.
func (e *Engine) ScoreAnswer(answer string, q model.QuestionSpec) model.ScoreResult {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return e.emptyResult(q)
	}

	hits := KeywordMatch(answer, q.Keywords)
	keywordRatio := float64(hits.Matched()) / float64(max(len(hits), 1))
	similarity := CosineSimilarity(answer, q.ModelAnswer)
	structure := clamp01(similarity / StructureFullSimilarity)
	clarity := Clarity(answer)

	criteria := e.criteria(keywordRatio, structure, clarity.Score)
	criteria[0].Detail = e.cat.Td("CriterionKeywordDetail", map[string]any{
		"Matched": hits.Matched(),
		"Total":   len(hits),
	})
	criteria[1].Detail = e.cat.Td("CriterionStructureDetail", map[string]any{
		"Similarity": f2(similarity),
	})
	criteria[2].Detail = e.cat.Td("CriterionClarityDetail", map[string]any{
		"AvgLength":  f1(clarity.AvgLength),
		"Sentences":  clarity.Sentences,
		"Commas":     clarity.Commas,
		"Connectors": clarity.Connectors,
	})

	composite := Composite(criteria)
	analysis := model.ScoreAnalysis{
		KeywordHits:       hits,
		KeywordRatio:      keywordRatio,
		Similarity:        similarity,
		StructureScore:    structure,
		ClarityScore:      clarity.Score,
		Composite:         composite,
		Criteria:          criteria,
		ConnectorStats:    connectorStats(answer),
		KeywordCategories: keywordCategories(hits),
	}

	return model.ScoreResult{
		Score:       round(clamp(composite*q.MaxScore, 0, q.MaxScore), 2),
		Feedback:    e.feedback(analysis, q),
		KeywordHits: hits,
		Criteria:    criteria,
		Analysis:    analysis,
	}
}

func (e *Engine) emptyResult(q model.QuestionSpec) model.ScoreResult {
	hits := make(model.KeywordHits, 0, len(q.Keywords))
	for _, kw := range q.Keywords {
		hits = hits.Set(kw, false)
	}
	criteria := e.criteria(0, 0, 0)
	return model.ScoreResult{
		Score:       0,
		Feedback:    e.cat.T("ScoreNoAnswer"),
		KeywordHits: hits,
		Criteria:    criteria,
		Analysis: model.ScoreAnalysis{
			KeywordHits:       hits,
			Criteria:          criteria,
			ConnectorStats:    model.ConnectorStats{SentenceCount: 1, Counts: map[string]int{}},
			KeywordCategories: keywordCategories(hits),
		},
	}
}

func (e *Engine) criteria(keyword, structure, clarity float64) []model.ScoreCriterion {
	return []model.ScoreCriterion{
		{
			Key:         CriterionKeyword,
			Label:       e.cat.T("CriterionKeywordLabel"),
			Score:       keyword,
			Weight:      e.weights.Keyword,
			Description: e.cat.T("CriterionKeywordDescription"),
		},
		{
			Key:         CriterionStructure,
			Label:       e.cat.T("CriterionStructureLabel"),
			Score:       structure,
			Weight:      e.weights.Structure,
			Description: e.cat.T("CriterionStructureDescription"),
		},
		{
			Key:         CriterionClarity,
			Label:       e.cat.T("CriterionClarityLabel"),
			Score:       clarity,
			Weight:      e.weights.Clarity,
			Description: e.cat.T("CriterionClarityDescription"),
		},
	}
}

// Composite is the weighted mean of criterion scores. A zero weight sum
// is treated as 1 so the result stays finite.
func Composite(criteria []model.ScoreCriterion) float64 {
	var sum, total float64
	for _, c := range criteria {
		sum += c.Weight * c.Score
		total += c.Weight
	}
	if total == 0 {
		total = 1
	}
	return clamp01(sum / total)
}
