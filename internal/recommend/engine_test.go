package recommend

import (
	"math"
	"testing"

	"github.com/pavelanni/casedrill/internal/model"
)

func rating(user, problem int64, ratio float64) model.Attempt {
	return model.Attempt{UserID: user, ProblemID: problem, TotalScore: ratio, TotalMaxScore: 1}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

var testCatalog = []model.Problem{
	{ID: 1, Year: "令和5年", CaseLabel: "事例I", Title: "組織"},
	{ID: 2, Year: "令和5年", CaseLabel: "事例II", Title: "マーケティング"},
	{ID: 3, Year: "令和4年", CaseLabel: "事例III", Title: "生産"},
}

func TestComputeUserNeighbours(t *testing.T) {
	m := buildMatrix([]model.Attempt{
		rating(1, 1, 0.9), rating(1, 2, 0.3),
		rating(2, 1, 0.9), rating(2, 2, 0.3), rating(2, 3, 0.2),
		rating(3, 4, 0.5),
		rating(4, 1, 0.3), rating(4, 2, 0.9),
	})

	got := computeUserNeighbours(m, 1)
	if len(got) != 1 {
		t.Fatalf("neighbours = %+v, want only user 2", got)
	}
	if got[0].UserID != 2 || got[0].Similarity <= 0 {
		t.Errorf("neighbour = %+v", got[0])
	}
	if n := computeUserNeighbours(m, 99); n != nil {
		t.Errorf("unknown user neighbours = %v, want nil", n)
	}
}

func TestComputeUserNeighboursOrdering(t *testing.T) {
	m := buildMatrix([]model.Attempt{
		rating(1, 1, 0.9), rating(1, 2, 0.3),
		rating(2, 1, 0.9), rating(2, 2, 0.3), rating(2, 3, 0.2),
		rating(3, 1, 0.8), rating(3, 2, 0.5),
	})
	got := computeUserNeighbours(m, 1)
	if len(got) != 2 {
		t.Fatalf("neighbours = %+v", got)
	}
	if got[0].UserID != 3 || got[1].UserID != 2 {
		t.Errorf("order = %+v, want user 3 then 2", got)
	}
	if got[0].Similarity < got[1].Similarity {
		t.Errorf("similarities not descending: %+v", got)
	}
}

func TestBuildMatrixSkipsUndefinedRatios(t *testing.T) {
	m := buildMatrix([]model.Attempt{
		{UserID: 1, ProblemID: 1, TotalScore: 5, TotalMaxScore: 0},
		{UserID: 2, ProblemID: 1, TotalScore: 12, TotalMaxScore: 10},
		rating(2, 2, 0.4), rating(2, 2, 0.6),
	})
	if m.has(1) {
		t.Error("user with only undefined ratios should not be in the matrix")
	}
	if v, _ := m.rating(2, 1); v != 1 {
		t.Errorf("clamped rating = %v, want 1", v)
	}
	if v, _ := m.rating(2, 2); !approx(v, 0.5) {
		t.Errorf("averaged rating = %v, want 0.5", v)
	}
}

func TestGeneratePlanColdStart(t *testing.T) {
	plan := GeneratePlan(PlanRequest{UserID: 1})

	if plan.Context.Mode != model.ModeColdStart || plan.Context.HasPersonalHistory {
		t.Errorf("context = %+v", plan.Context)
	}
	if plan.Context.Message != "初回学習データを蓄積すると、弱点に基づいた推薦が表示されます。" {
		t.Errorf("message = %q", plan.Context.Message)
	}
	if plan.ProblemRecommendations == nil || len(plan.ProblemRecommendations) != 0 {
		t.Errorf("problems = %v", plan.ProblemRecommendations)
	}
	if len(plan.QuestionRecommendations) != 0 || len(plan.ResourceRecommendations) != 0 {
		t.Errorf("expected empty lists, got %+v", plan)
	}
}

func TestGeneratePlanPersonalised(t *testing.T) {
	ratings := []model.Attempt{
		rating(1, 1, 0.9), rating(1, 2, 0.3),
		rating(2, 1, 0.9), rating(2, 2, 0.3), rating(2, 3, 0.2),
	}
	plan := GeneratePlan(PlanRequest{
		UserID:   1,
		Attempts: []model.Attempt{rating(1, 1, 0.9), rating(1, 2, 0.3)},
		Ratings:  ratings,
		Catalog:  testCatalog,
	})

	if plan.Context.Mode != model.ModePersonalised || plan.Context.NeighbourCount != 1 {
		t.Fatalf("context = %+v", plan.Context)
	}
	if plan.Context.Message != "類似学習者の行動を踏まえて次の一手を提案しています。" {
		t.Errorf("message = %q", plan.Context.Message)
	}
	recs := plan.ProblemRecommendations
	if len(recs) != 2 {
		t.Fatalf("problems = %+v", recs)
	}

	review := recs[0]
	if review.ProblemID != 2 || review.Type != model.RecommendReview {
		t.Errorf("first = %+v, want review of problem 2", review)
	}
	if review.ScoreRatio == nil || !approx(*review.ScoreRatio, 0.3) {
		t.Errorf("review ratio = %v", review.ScoreRatio)
	}
	if review.Reason != "復習推奨: 得点率 30% / 全体平均 30%" {
		t.Errorf("review reason = %q", review.Reason)
	}
	if review.Title != "マーケティング" {
		t.Errorf("review title = %q", review.Title)
	}

	explore := recs[1]
	if explore.ProblemID != 3 || explore.Type != model.RecommendExplore {
		t.Errorf("second = %+v, want explore of problem 3", explore)
	}
	wantPred := 0.6 + (0.2 - 1.4/3)
	if explore.PredictedRatio == nil || !approx(*explore.PredictedRatio, wantPred) {
		t.Errorf("predicted = %v, want %v", explore.PredictedRatio, wantPred)
	}
	if explore.Reason != "推定得点率 33% / 全体平均 20%（1件の履歴を参照）" {
		t.Errorf("explore reason = %q", explore.Reason)
	}
	if explore.Year != "令和4年" || explore.CaseLabel != "事例III" {
		t.Errorf("explore metadata = %+v", explore)
	}
}

func TestGeneratePlanFallbackPrediction(t *testing.T) {
	plan := GeneratePlan(PlanRequest{
		UserID: 1,
		Ratings: []model.Attempt{
			rating(1, 1, 0.9), rating(1, 2, 0.3),
			rating(2, 1, 0.9), rating(2, 2, 0.3),
			rating(3, 1, 0.3), rating(3, 2, 0.9), rating(3, 5, 0.4),
		},
	})
	if len(plan.ProblemRecommendations) != 1 {
		t.Fatalf("problems = %+v", plan.ProblemRecommendations)
	}
	rec := plan.ProblemRecommendations[0]
	if rec.ProblemID != 5 {
		t.Fatalf("rec = %+v", rec)
	}
	// No neighbour rated problem 5: midpoint of the learner's mean and the problem mean.
	if !approx(*rec.PredictedRatio, 0.5) {
		t.Errorf("predicted = %v, want 0.5", *rec.PredictedRatio)
	}
	if !approx(rec.Priority, 0.6*0.5+0.4*0.6) {
		t.Errorf("priority = %v", rec.Priority)
	}
}

func TestGeneratePlanStatusMessages(t *testing.T) {
	tests := []struct {
		name    string
		req     PlanRequest
		message string
	}{
		{
			name: "history without neighbours",
			req: PlanRequest{
				UserID:   1,
				Attempts: []model.Attempt{rating(1, 1, 0.4)},
				Ratings:  []model.Attempt{rating(1, 1, 0.4)},
			},
			message: "学習履歴は分析済みですが類似学習者が少ないため、直近の弱点を中心に提示しています。",
		},
		{
			name: "neighbours but nothing to recommend",
			req: PlanRequest{
				UserID:   1,
				Attempts: []model.Attempt{rating(1, 1, 0.9), rating(1, 2, 0.7)},
				Ratings: []model.Attempt{
					rating(1, 1, 0.9), rating(1, 2, 0.7),
					rating(2, 1, 0.8), rating(2, 2, 0.6),
				},
			},
			message: "弱点は見つかりませんでした。最新の演習結果で継続的に更新されます。",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := GeneratePlan(tt.req)
			if plan.Context.Message != tt.message {
				t.Errorf("message = %q, want %q", plan.Context.Message, tt.message)
			}
			if plan.Context.Mode != model.ModePersonalised {
				t.Errorf("mode = %q", plan.Context.Mode)
			}
		})
	}
}

func TestWeakAttempts(t *testing.T) {
	attempts := []model.Attempt{
		{ProblemID: 1, TotalScore: 5, TotalMaxScore: 10},
		{ProblemID: 2, TotalScore: 2, TotalMaxScore: 10, Title: "自前"},
		{ProblemID: 1, TotalScore: 3, TotalMaxScore: 10},
		{ProblemID: 3, TotalScore: 8, TotalMaxScore: 10},
		{ProblemID: 4, TotalScore: 0, TotalMaxScore: 0},
	}
	got := weakAttempts(NewEngine(nil).cat, attempts, problemStats{}, map[int64]model.Problem{
		2: {ID: 2, Title: "カタログ", Year: "令和5年"},
	}, 5)

	if len(got) != 2 {
		t.Fatalf("weak = %+v", got)
	}
	if got[0].ProblemID != 2 || got[1].ProblemID != 1 {
		t.Errorf("order = %d, %d", got[0].ProblemID, got[1].ProblemID)
	}
	if !approx(*got[1].ScoreRatio, 0.3) {
		t.Errorf("problem 1 should keep its weakest attempt, got %v", *got[1].ScoreRatio)
	}
	if got[0].Title != "自前" || got[0].Year != "令和5年" {
		t.Errorf("metadata = %+v", got[0])
	}
	if got[0].Reason != "復習推奨: 得点率 20%" {
		t.Errorf("reason = %q", got[0].Reason)
	}

	if capped := weakAttempts(NewEngine(nil).cat, attempts, problemStats{}, nil, 1); len(capped) != 1 {
		t.Errorf("limit not applied: %+v", capped)
	}
}

func TestMergeProblems(t *testing.T) {
	review := []model.ProblemRecommendation{{ProblemID: 1}, {ProblemID: 2}}
	explore := []model.ProblemRecommendation{{ProblemID: 2}, {ProblemID: 3}, {ProblemID: 4}, {ProblemID: 5}}

	got := mergeProblems(review, explore, 4)
	want := []int64{1, 2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("merged = %+v", got)
	}
	for i, id := range want {
		if got[i].ProblemID != id {
			t.Errorf("merged[%d] = %d, want %d", i, got[i].ProblemID, id)
		}
	}
	if got := mergeProblems(review, explore, 1); len(got) != 1 || got[0].ProblemID != 1 {
		t.Errorf("limit 1 = %+v", got)
	}
}
