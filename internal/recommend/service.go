package recommend

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/pavelanni/casedrill/internal/i18n"
	"github.com/pavelanni/casedrill/internal/model"
	"github.com/pavelanni/casedrill/internal/resources"
)

// Source is the persistence the service reads plan inputs from.
type Source interface {
	ListProblems() ([]model.Problem, error)
	ListAttempts(userID int64) ([]model.Attempt, error)
	ListAllAttemptScores() ([]model.Attempt, error)
	KeywordPerformance(userID int64) ([]model.KeywordRecord, error)
}

// Service loads plan inputs from a Source and runs the engine.
type Service struct {
	src    Source
	lib    *resources.Library
	limits model.PlanLimits
}

// NewService creates a service. A nil library means the embedded default.
func NewService(src Source, lib *resources.Library, limits model.PlanLimits) *Service {
	if lib == nil {
		lib = resources.Default()
	}
	return &Service{src: src, lib: lib, limits: limits.Normalized()}
}

// shared holds the inputs common to every learner.
type shared struct {
	catalog []model.Problem
	ratings []model.Attempt
}

func (s *Service) loadShared() (shared, error) {
	catalog, err := s.src.ListProblems()
	if err != nil {
		return shared{}, fmt.Errorf("list problems: %w", err)
	}
	ratings, err := s.src.ListAllAttemptScores()
	if err != nil {
		return shared{}, fmt.Errorf("list attempt scores: %w", err)
	}
	return shared{catalog: catalog, ratings: ratings}, nil
}

// Plan builds the learning plan for userID. Reasons and messages use the
// catalog carried by ctx.
func (s *Service) Plan(ctx context.Context, userID int64) (model.LearningPlan, error) {
	sh, err := s.loadShared()
	if err != nil {
		return model.LearningPlan{}, err
	}
	return s.plan(ctx, sh, userID)
}

func (s *Service) plan(ctx context.Context, sh shared, userID int64) (model.LearningPlan, error) {
	attempts, err := s.src.ListAttempts(userID)
	if err != nil {
		return model.LearningPlan{}, fmt.Errorf("list attempts for user %d: %w", userID, err)
	}
	records, err := s.src.KeywordPerformance(userID)
	if err != nil {
		return model.LearningPlan{}, fmt.Errorf("keyword performance for user %d: %w", userID, err)
	}
	return NewEngine(i18n.FromContext(ctx)).GeneratePlan(PlanRequest{
		UserID:           userID,
		Attempts:         attempts,
		Ratings:          sh.ratings,
		KeywordRecords:   records,
		Catalog:          sh.catalog,
		KeywordResources: s.lib.Keywords,
		DefaultResources: s.lib.Fallback,
		Limits:           s.limits,
	}), nil
}

// DefaultWorkers bounds concurrent plan generation in a batch.
const DefaultWorkers = 4

// BatchPlanner generates plans for many learners on a bounded worker pool.
// Neighbour search is quadratic in learners, so batches run off the request path.
type BatchPlanner struct {
	svc     *Service
	workers int
}

// NewBatchPlanner creates a planner. workers <= 0 means DefaultWorkers.
func NewBatchPlanner(svc *Service, workers int) *BatchPlanner {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &BatchPlanner{svc: svc, workers: workers}
}

// PlanAll returns one plan per user, in input order. The first error cancels
// the remaining work.
func (b *BatchPlanner) PlanAll(ctx context.Context, userIDs []int64) ([]model.LearningPlan, error) {
	sh, err := b.svc.loadShared()
	if err != nil {
		return nil, err
	}

	plans := make([]model.LearningPlan, len(userIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, id := range userIDs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p, err := b.svc.plan(gctx, sh, id)
			if err != nil {
				return err
			}
			plans[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	slog.Info("batch plans generated", "users", len(userIDs), "workers", b.workers)
	return plans, nil
}
