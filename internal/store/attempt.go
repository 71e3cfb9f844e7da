package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pavelanni/casedrill/internal/model"
)

// RecordAttempt stores an attempt and its answers in one transaction.
// A zero SubmittedAt is set to the current time.
func (s *Store) RecordAttempt(a model.Attempt, answers []model.AnswerRecord) (int64, error) {
	if a.SubmittedAt.IsZero() {
		a.SubmittedAt = time.Now().UTC()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO attempts (problem_id, user_id, total_score, total_max_score, submitted_at)
		 VALUES (?, ?, ?, ?, ?)`,
		a.ProblemID, a.UserID, a.TotalScore, a.TotalMaxScore, a.SubmittedAt,
	)
	if err != nil {
		return 0, err
	}
	attemptID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, ans := range answers {
		hits, err := json.Marshal(ans.KeywordHits)
		if err != nil {
			return 0, fmt.Errorf("encode keyword hits: %w", err)
		}
		_, err = tx.Exec(
			`INSERT INTO answers (attempt_id, question_id, answer_text, score, max_score, keyword_hits, feedback)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			attemptID, ans.QuestionID, ans.AnswerText, ans.Score, ans.MaxScore, string(hits), ans.Feedback,
		)
		if err != nil {
			return 0, err
		}
	}

	return attemptID, tx.Commit()
}

const attemptSelect = `SELECT a.id, a.problem_id, a.user_id, a.total_score, a.total_max_score,
	p.year, p.case_label, p.title, a.submitted_at
	FROM attempts a JOIN problems p ON p.id = a.problem_id`

func (s *Store) queryAttempts(query string, args ...any) ([]model.Attempt, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var attempts []model.Attempt
	for rows.Next() {
		var a model.Attempt
		if err := rows.Scan(&a.ID, &a.ProblemID, &a.UserID, &a.TotalScore, &a.TotalMaxScore,
			&a.Year, &a.CaseLabel, &a.Title, &a.SubmittedAt); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// ListAttempts returns a learner's attempts, newest first.
func (s *Store) ListAttempts(userID int64) ([]model.Attempt, error) {
	return s.queryAttempts(attemptSelect+` WHERE a.user_id = ? ORDER BY a.submitted_at DESC, a.id DESC`, userID)
}

// ListAllAttemptScores returns every learner's attempts, the rating history
// for collaborative filtering.
func (s *Store) ListAllAttemptScores() ([]model.Attempt, error) {
	return s.queryAttempts(attemptSelect + ` ORDER BY a.user_id, a.id`)
}

// ListUserIDs returns the distinct learners with at least one attempt.
func (s *Store) ListUserIDs() ([]int64, error) {
	rows, err := s.db.Query(`SELECT DISTINCT user_id FROM attempts ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// KeywordPerformance returns the learner's answers with keyword hits, newest first.
func (s *Store) KeywordPerformance(userID int64) ([]model.KeywordRecord, error) {
	rows, err := s.db.Query(
		`SELECT ans.question_id, p.year, p.case_label, q.prompt, ans.score, ans.max_score, ans.keyword_hits
		 FROM answers ans
		 JOIN attempts a ON a.id = ans.attempt_id
		 JOIN questions q ON q.id = ans.question_id
		 JOIN problems p ON p.id = a.problem_id
		 WHERE a.user_id = ?
		 ORDER BY a.submitted_at DESC, ans.id`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []model.KeywordRecord
	for rows.Next() {
		var r model.KeywordRecord
		var hits string
		if err := rows.Scan(&r.QuestionID, &r.Year, &r.CaseLabel, &r.Prompt, &r.Score, &r.MaxScore, &hits); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(hits), &r.KeywordHits); err != nil {
			return nil, fmt.Errorf("decode keyword hits for question %d: %w", r.QuestionID, err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// ListAnswers returns the answers stored under an attempt.
func (s *Store) ListAnswers(attemptID int64) ([]model.AnswerRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, attempt_id, question_id, answer_text, score, max_score, keyword_hits, feedback
		 FROM answers WHERE attempt_id = ? ORDER BY id`, attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var answers []model.AnswerRecord
	for rows.Next() {
		var ans model.AnswerRecord
		var hits string
		if err := rows.Scan(&ans.ID, &ans.AttemptID, &ans.QuestionID, &ans.AnswerText, &ans.Score,
			&ans.MaxScore, &hits, &ans.Feedback); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(hits), &ans.KeywordHits); err != nil {
			return nil, fmt.Errorf("decode keyword hits for answer %d: %w", ans.ID, err)
		}
		answers = append(answers, ans)
	}
	return answers, rows.Err()
}
