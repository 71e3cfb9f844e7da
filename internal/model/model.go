package model

import "time"

// QuestionSpec is the read-only description of a question used for scoring.
type QuestionSpec struct {
	ID          int64    `json:"id"`
	Prompt      string   `json:"prompt"`
	MaxScore    float64  `json:"max_score"`
	ModelAnswer string   `json:"model_answer"`
	Keywords    []string `json:"keywords"`
}

// ScoreCriterion is one weighted axis of a single-answer score.
type ScoreCriterion struct {
	Key         string  `json:"key"`
	Label       string  `json:"label"`
	Score       float64 `json:"score"`
	Weight      float64 `json:"weight"`
	Description string  `json:"description"`
	Detail      string  `json:"detail,omitempty"`
}

// ConnectorStats counts causal/additive connectives in an answer.
type ConnectorStats struct {
	TotalHits     int            `json:"total_hits"`
	SentenceCount int            `json:"sentence_count"`
	PerSentence   float64        `json:"per_sentence"`
	Counts        map[string]int `json:"counts"`
}

// CategoryCount holds matched and missed keyword counts for one keyword category.
type CategoryCount struct {
	Hit  int `json:"hit"`
	Miss int `json:"miss"`
}

// ScoreAnalysis is the intermediate result behind a ScoreResult.
type ScoreAnalysis struct {
	KeywordHits       KeywordHits              `json:"keyword_hits"`
	KeywordRatio      float64                  `json:"keyword_ratio"`
	Similarity        float64                  `json:"similarity"`
	StructureScore    float64                  `json:"structure_score"`
	ClarityScore      float64                  `json:"clarity_score"`
	Composite         float64                  `json:"composite"`
	Criteria          []ScoreCriterion         `json:"criteria"`
	ConnectorStats    ConnectorStats           `json:"connector_stats"`
	KeywordCategories map[string]CategoryCount `json:"keyword_categories"`
}

// ScoreResult is the final, immutable score for one (answer, question) pair.
type ScoreResult struct {
	Score       float64          `json:"score"`
	Feedback    string           `json:"feedback"`
	KeywordHits KeywordHits      `json:"keyword_hits"`
	Criteria    []ScoreCriterion `json:"criteria"`
	Analysis    ScoreAnalysis    `json:"analysis"`
}

// CriterionInsight is one criterion of a case-level rubric.
type CriterionInsight struct {
	Label      string  `json:"label"`
	Score      float64 `json:"score"`
	Weight     float64 `json:"weight"`
	Commentary string  `json:"commentary"`
}

// BundleEvaluation is the holistic rubric result for all answers of one case.
type BundleEvaluation struct {
	CaseLabel       string             `json:"case_label"`
	OverallScore    float64            `json:"overall_score"`
	Criteria        []CriterionInsight `json:"criteria"`
	Summary         string             `json:"summary"`
	Recommendations []string           `json:"recommendations"`
}

// BundleAnswer is one answer inside a submitted bundle.
type BundleAnswer struct {
	QuestionID  int64       `json:"question_id,omitempty"`
	AnswerText  string      `json:"answer_text"`
	KeywordHits KeywordHits `json:"keyword_hits,omitempty"`
}

// Problem is one past exam case (a year + case label) with its questions.
type Problem struct {
	ID        int64      `json:"id"`
	Year      string     `json:"year"`
	CaseLabel string     `json:"case_label"`
	Title     string     `json:"title"`
	Overview  string     `json:"overview,omitempty"`
	Context   string     `json:"context_text,omitempty"`
	Questions []Question `json:"questions,omitempty"`
}

// Question is a stored question belonging to a problem.
type Question struct {
	ID           int64    `json:"id"`
	ProblemID    int64    `json:"problem_id"`
	Order        int      `json:"order"`
	Prompt       string   `json:"prompt"`
	MaxScore     float64  `json:"max_score"`
	ModelAnswer  string   `json:"model_answer"`
	Keywords     []string `json:"keywords"`
	Explanation  string   `json:"explanation,omitempty"`
	Intent       string   `json:"question_intent,omitempty"`
	QuestionType string   `json:"question_type,omitempty"`
}

// Spec returns the scoring view of a stored question.
func (q Question) Spec() QuestionSpec {
	return QuestionSpec{
		ID:          q.ID,
		Prompt:      q.Prompt,
		MaxScore:    q.MaxScore,
		ModelAnswer: q.ModelAnswer,
		Keywords:    append([]string(nil), q.Keywords...),
	}
}

// Attempt is one learner's submission for a whole problem.
type Attempt struct {
	ID            int64     `json:"id,omitempty"`
	ProblemID     int64     `json:"problem_id"`
	UserID        int64     `json:"user_id"`
	TotalScore    float64   `json:"total_score"`
	TotalMaxScore float64   `json:"total_max_score"`
	Year          string    `json:"year,omitempty"`
	CaseLabel     string    `json:"case_label,omitempty"`
	Title         string    `json:"title,omitempty"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// Ratio returns TotalScore/TotalMaxScore and false when the maximum is zero.
func (a Attempt) Ratio() (float64, bool) {
	if a.TotalMaxScore == 0 {
		return 0, false
	}
	return a.TotalScore / a.TotalMaxScore, true
}

// AnswerRecord is one scored answer stored under an attempt.
type AnswerRecord struct {
	ID          int64       `json:"id,omitempty"`
	AttemptID   int64       `json:"attempt_id,omitempty"`
	QuestionID  int64       `json:"question_id"`
	AnswerText  string      `json:"answer_text"`
	Score       float64     `json:"score"`
	MaxScore    float64     `json:"max_score"`
	KeywordHits KeywordHits `json:"keyword_hits"`
	Feedback    string      `json:"feedback"`
}

// KeywordRecord is a historical answer with its keyword coverage, as read from persistence.
type KeywordRecord struct {
	QuestionID  int64       `json:"question_id"`
	Year        string      `json:"year"`
	CaseLabel   string      `json:"case_label"`
	Prompt      string      `json:"prompt"`
	Score       float64     `json:"score"`
	MaxScore    float64     `json:"max_score"`
	KeywordHits KeywordHits `json:"keyword_hits"`
}

// Resource is a study resource shown for a weak keyword.
type Resource struct {
	Label       string `json:"label" yaml:"label"`
	URL         string `json:"url" yaml:"url"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// AttemptExport is one attempt with its answers, for JSON export.
type AttemptExport struct {
	Attempt Attempt        `json:"attempt"`
	Answers []AnswerRecord `json:"answers"`
}
