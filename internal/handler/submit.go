package handler

import (
	"net/http"
	"time"

	"github.com/pavelanni/casedrill/internal/i18n"
	"github.com/pavelanni/casedrill/internal/model"
	"github.com/pavelanni/casedrill/internal/resources"
)

type submissionRequest struct {
	UserID    int64                `json:"user_id"`
	ProblemID int64                `json:"problem_id"`
	Answers   []model.BundleAnswer `json:"answers"`
}

// QuestionResult is the score and review note for one answered question.
type QuestionResult struct {
	QuestionID int64                   `json:"question_id"`
	Result     model.ScoreResult       `json:"result"`
	Learning   resources.LearningEntry `json:"learning"`
}

// SubmissionResponse is returned after a whole problem has been answered.
type SubmissionResponse struct {
	AttemptID     int64                   `json:"attempt_id"`
	TotalScore    float64                 `json:"total_score"`
	TotalMaxScore float64                 `json:"total_max_score"`
	Results       []QuestionResult        `json:"results"`
	Bundle        *model.BundleEvaluation `json:"bundle_evaluation,omitempty"`
}

// handleSubmit scores every question of a problem, evaluates the answers as a
// bundle when the case has a rubric, and records the attempt. Questions
// without an answer score as empty.
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submissionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID <= 0 || req.ProblemID <= 0 {
		writeError(w, http.StatusBadRequest, "user_id and problem_id are required")
		return
	}

	problem, err := h.store.GetProblem(req.ProblemID)
	if err != nil {
		internalError(w, "get problem", err)
		return
	}
	if problem == nil {
		writeError(w, http.StatusNotFound, "problem not found")
		return
	}

	texts := make(map[int64]string, len(req.Answers))
	for _, a := range req.Answers {
		texts[a.QuestionID] = a.AnswerText
	}
	for id := range texts {
		if !hasQuestion(problem, id) {
			writeError(w, http.StatusBadRequest, "question does not belong to problem")
			return
		}
	}

	cat := i18n.FromContext(r.Context())
	engine := h.scorer(r)
	resp := SubmissionResponse{Results: make([]QuestionResult, 0, len(problem.Questions))}
	records := make([]model.AnswerRecord, 0, len(problem.Questions))
	bundle := make([]model.BundleAnswer, 0, len(problem.Questions))
	for _, q := range problem.Questions {
		text := texts[q.ID]
		res := engine.ScoreAnswer(text, q.Spec())
		resp.Results = append(resp.Results, QuestionResult{
			QuestionID: q.ID,
			Result:     res,
			Learning:   h.library.Entry(cat, q, res.KeywordHits, res.Feedback),
		})
		records = append(records, model.AnswerRecord{
			QuestionID:  q.ID,
			AnswerText:  text,
			Score:       res.Score,
			MaxScore:    q.MaxScore,
			KeywordHits: res.KeywordHits,
			Feedback:    res.Feedback,
		})
		bundle = append(bundle, model.BundleAnswer{QuestionID: q.ID, AnswerText: text, KeywordHits: res.KeywordHits})
		resp.TotalScore += res.Score
		resp.TotalMaxScore += q.MaxScore
	}
	resp.Bundle = h.bundles.Evaluate(problem.CaseLabel, bundle)

	resp.AttemptID, err = h.store.RecordAttempt(model.Attempt{
		ProblemID:     problem.ID,
		UserID:        req.UserID,
		TotalScore:    resp.TotalScore,
		TotalMaxScore: resp.TotalMaxScore,
		SubmittedAt:   time.Now().UTC(),
	}, records)
	if err != nil {
		internalError(w, "record attempt", err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func hasQuestion(p *model.Problem, id int64) bool {
	for _, q := range p.Questions {
		if q.ID == id {
			return true
		}
	}
	return false
}
