// Package recommend builds personalised learning plans: collaborative
// filtering over every learner's score ratios, the learner's own weak
// attempts and keyword misses, and study resources for those misses.
package recommend

import (
	"fmt"
	"log/slog"

	"github.com/pavelanni/casedrill/internal/i18n"
	"github.com/pavelanni/casedrill/internal/model"
)

// PlanRequest carries everything a plan is computed from. The engine reads
// nothing else, so concurrent calls with different inputs do not interfere.
type PlanRequest struct {
	UserID int64
	// Attempts is the learner's own attempt list, mined for weak attempts.
	Attempts []model.Attempt
	// Ratings holds every learner's attempts and feeds the rating matrix.
	Ratings []model.Attempt
	// KeywordRecords is the learner's answered questions with keyword hits.
	KeywordRecords   []model.KeywordRecord
	Catalog          []model.Problem
	KeywordResources map[string][]model.Resource
	DefaultResources []model.Resource
	Limits           model.PlanLimits
}

// Engine generates learning plans with reasons in one language.
type Engine struct {
	cat *i18n.Catalog
}

// NewEngine returns an engine writing reasons with cat (Japanese when nil).
func NewEngine(cat *i18n.Catalog) *Engine {
	if cat == nil {
		cat = i18n.Default()
	}
	return &Engine{cat: cat}
}

// GeneratePlan never fails: empty history, catalog or resource maps yield
// empty lists and a status message explaining why.
func (e *Engine) GeneratePlan(req PlanRequest) model.LearningPlan {
	limits := req.Limits.Normalized()

	catalog := make(map[int64]model.Problem, len(req.Catalog))
	for _, p := range req.Catalog {
		catalog[p.ID] = p
	}

	hasHistory := false
	for _, r := range req.Ratings {
		if r.UserID == req.UserID {
			hasHistory = true
			break
		}
	}

	stats := buildProblemStats(req.Ratings)

	var (
		neighbours []Neighbour
		explore    []model.ProblemRecommendation
	)
	if hasHistory {
		m := buildMatrix(req.Ratings)
		if m.has(req.UserID) {
			neighbours = computeUserNeighbours(m, req.UserID)
			explore = predictUnseen(e.cat, m, req.UserID, neighbours, stats, catalog, limits.Problems)
		}
	}

	review := weakAttempts(e.cat, req.Attempts, stats, catalog, limits.Problems)
	problems := mergeProblems(review, explore, limits.Problems)
	questions := questionRecommendations(e.cat, req.KeywordRecords, limits.Questions)
	resources := resourceRecommendations(e.cat, questions, req.KeywordResources, req.DefaultResources, limits.Resources)

	mode := model.ModeColdStart
	if hasHistory {
		mode = model.ModePersonalised
	}

	slog.Debug("learning plan generated",
		"user_id", req.UserID,
		"mode", mode,
		"neighbours", len(neighbours),
		"review", len(review),
		"explore", len(explore),
		"questions", len(questions),
		"resources", len(resources))

	return model.LearningPlan{
		UserID:                  req.UserID,
		ProblemRecommendations:  nonNil(problems),
		QuestionRecommendations: nonNil(questions),
		ResourceRecommendations: nonNil(resources),
		Context: model.RecommendationContext{
			HasPersonalHistory: hasHistory,
			NeighbourCount:     len(neighbours),
			Mode:               mode,
			Message:            e.statusMessage(hasHistory, len(neighbours), len(problems)),
		},
	}
}

// GeneratePlan uses the Japanese engine.
func GeneratePlan(req PlanRequest) model.LearningPlan {
	return NewEngine(nil).GeneratePlan(req)
}

func (e *Engine) statusMessage(hasHistory bool, neighbours, recommendations int) string {
	switch {
	case !hasHistory:
		return e.cat.T("StatusNoHistory")
	case neighbours == 0:
		return e.cat.T("StatusNoNeighbours")
	case recommendations == 0:
		return e.cat.T("StatusNoWeakness")
	default:
		return e.cat.T("StatusPersonalised")
	}
}

func percent(ratio float64) string {
	return fmt.Sprintf("%.0f", ratio*100)
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
