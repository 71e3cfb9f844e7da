package model

// RecommendationType tells whether a problem is suggested for review or exploration.
type RecommendationType string

const (
	RecommendReview  RecommendationType = "review"
	RecommendExplore RecommendationType = "explore"
)

// PlanMode is the operating mode of the recommendation engine.
type PlanMode string

const (
	ModePersonalised PlanMode = "personalised"
	ModeColdStart    PlanMode = "cold_start"
)

// ProblemRecommendation suggests a whole problem to practise next.
type ProblemRecommendation struct {
	ProblemID      int64              `json:"problem_id"`
	Year           string             `json:"year"`
	CaseLabel      string             `json:"case_label"`
	Title          string             `json:"title"`
	ScoreRatio     *float64           `json:"score_ratio,omitempty"`
	PredictedRatio *float64           `json:"predicted_ratio,omitempty"`
	Priority       float64            `json:"priority,omitempty"`
	Type           RecommendationType `json:"type"`
	Reason         string             `json:"reason"`
}

// QuestionRecommendation points at a weak question from the learner's history.
type QuestionRecommendation struct {
	QuestionID      int64    `json:"question_id"`
	Year            string   `json:"year"`
	CaseLabel       string   `json:"case_label"`
	Prompt          string   `json:"prompt"`
	ScoreRatio      *float64 `json:"score_ratio"`
	CoverageRatio   *float64 `json:"coverage_ratio"`
	MissingKeywords []string `json:"missing_keywords"`
	Weakness        float64  `json:"weakness"`
	Reason          string   `json:"reason"`
}

// ResourceRecommendation is a study resource tied to a weak keyword.
// Keyword is empty for generic fallback resources.
type ResourceRecommendation struct {
	Keyword string `json:"keyword,omitempty"`
	Label   string `json:"label"`
	URL     string `json:"url"`
	Reason  string `json:"reason"`
}

// RecommendationContext describes how a learning plan was produced.
type RecommendationContext struct {
	HasPersonalHistory bool     `json:"has_personal_history"`
	NeighbourCount     int      `json:"neighbour_count"`
	Mode               PlanMode `json:"mode"`
	Message            string   `json:"message"`
}

// LearningPlan is the recommendation bundle returned for one learner.
type LearningPlan struct {
	UserID                  int64                    `json:"user_id"`
	ProblemRecommendations  []ProblemRecommendation  `json:"problem_recommendations"`
	QuestionRecommendations []QuestionRecommendation `json:"question_recommendations"`
	ResourceRecommendations []ResourceRecommendation `json:"resource_recommendations"`
	Context                 RecommendationContext    `json:"context"`
}

// PlanLimits caps each recommendation list. Zero values mean the default of 5.
type PlanLimits struct {
	Problems  int `json:"problems"`
	Questions int `json:"questions"`
	Resources int `json:"resources"`
}

// DefaultPlanLimit is used for any zero or negative limit.
const DefaultPlanLimit = 5

// Normalized returns limits with defaults filled in.
func (l PlanLimits) Normalized() PlanLimits {
	if l.Problems <= 0 {
		l.Problems = DefaultPlanLimit
	}
	if l.Questions <= 0 {
		l.Questions = DefaultPlanLimit
	}
	if l.Resources <= 0 {
		l.Resources = DefaultPlanLimit
	}
	return l
}
