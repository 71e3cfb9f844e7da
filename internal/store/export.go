package store

import (
	"fmt"

	"github.com/pavelanni/casedrill/internal/model"
)

// ExportAttempts builds export-ready records of every attempt with its answers.
func (s *Store) ExportAttempts() ([]model.AttemptExport, error) {
	attempts, err := s.ListAllAttemptScores()
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	results := make([]model.AttemptExport, 0, len(attempts))
	for _, a := range attempts {
		answers, err := s.ListAnswers(a.ID)
		if err != nil {
			return nil, fmt.Errorf("list answers for attempt %d: %w", a.ID, err)
		}
		if answers == nil {
			answers = []model.AnswerRecord{}
		}
		results = append(results, model.AttemptExport{Attempt: a, Answers: answers})
	}
	return results, nil
}
