package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pavelanni/casedrill/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS problems (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		year TEXT NOT NULL,
		case_label TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		overview TEXT NOT NULL DEFAULT '',
		context_text TEXT NOT NULL DEFAULT '',
		UNIQUE (year, case_label)
	);

	CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		problem_id INTEGER NOT NULL,
		question_order INTEGER NOT NULL,
		prompt TEXT NOT NULL,
		max_score REAL NOT NULL DEFAULT 0,
		model_answer TEXT NOT NULL DEFAULT '',
		keywords TEXT NOT NULL DEFAULT '[]',
		explanation TEXT NOT NULL DEFAULT '',
		question_intent TEXT NOT NULL DEFAULT '',
		question_type TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (problem_id) REFERENCES problems(id)
	);

	CREATE TABLE IF NOT EXISTS attempts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		problem_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		total_score REAL NOT NULL DEFAULT 0,
		total_max_score REAL NOT NULL DEFAULT 0,
		submitted_at DATETIME NOT NULL,
		FOREIGN KEY (problem_id) REFERENCES problems(id)
	);

	CREATE INDEX IF NOT EXISTS idx_attempts_user ON attempts(user_id);

	CREATE TABLE IF NOT EXISTS answers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		attempt_id INTEGER NOT NULL,
		question_id INTEGER NOT NULL,
		answer_text TEXT NOT NULL DEFAULT '',
		score REAL NOT NULL DEFAULT 0,
		max_score REAL NOT NULL DEFAULT 0,
		keyword_hits TEXT NOT NULL DEFAULT '{}',
		feedback TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (attempt_id) REFERENCES attempts(id),
		FOREIGN KEY (question_id) REFERENCES questions(id)
	);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL DEFAULT ''
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// InsertProblem stores a problem with its questions and returns the problem ID.
func (s *Store) InsertProblem(p model.Problem) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	problemID, err := insertProblemTx(tx, p)
	if err != nil {
		return 0, err
	}
	return problemID, tx.Commit()
}

func insertProblemTx(tx *sql.Tx, p model.Problem) (int64, error) {
	res, err := tx.Exec(
		`INSERT INTO problems (year, case_label, title, overview, context_text) VALUES (?, ?, ?, ?, ?)`,
		p.Year, p.CaseLabel, p.Title, p.Overview, p.Context,
	)
	if err != nil {
		return 0, err
	}
	problemID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for i, q := range p.Questions {
		order := q.Order
		if order == 0 {
			order = i + 1
		}
		keywords, err := json.Marshal(nonNilStrings(q.Keywords))
		if err != nil {
			return 0, fmt.Errorf("encode keywords: %w", err)
		}
		_, err = tx.Exec(
			`INSERT INTO questions (problem_id, question_order, prompt, max_score, model_answer, keywords,
			 explanation, question_intent, question_type)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			problemID, order, q.Prompt, q.MaxScore, q.ModelAnswer, string(keywords),
			q.Explanation, q.Intent, q.QuestionType,
		)
		if err != nil {
			return 0, err
		}
	}
	return problemID, nil
}

// ListProblems returns every problem with its questions, newest year first.
func (s *Store) ListProblems() ([]model.Problem, error) {
	rows, err := s.db.Query(
		`SELECT id, year, case_label, title, overview, context_text FROM problems ORDER BY year DESC, case_label, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var problems []model.Problem
	index := make(map[int64]int)
	for rows.Next() {
		var p model.Problem
		if err := rows.Scan(&p.ID, &p.Year, &p.CaseLabel, &p.Title, &p.Overview, &p.Context); err != nil {
			return nil, err
		}
		index[p.ID] = len(problems)
		problems = append(problems, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	questions, err := s.queryQuestions(`SELECT ` + questionColumns + ` FROM questions ORDER BY problem_id, question_order`)
	if err != nil {
		return nil, err
	}
	for _, q := range questions {
		if i, ok := index[q.ProblemID]; ok {
			problems[i].Questions = append(problems[i].Questions, q)
		}
	}
	return problems, nil
}

// GetProblem returns a problem with its questions, or nil if it does not exist.
func (s *Store) GetProblem(id int64) (*model.Problem, error) {
	var p model.Problem
	err := s.db.QueryRow(
		`SELECT id, year, case_label, title, overview, context_text FROM problems WHERE id = ?`, id,
	).Scan(&p.ID, &p.Year, &p.CaseLabel, &p.Title, &p.Overview, &p.Context)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Questions, err = s.queryQuestions(
		`SELECT `+questionColumns+` FROM questions WHERE problem_id = ? ORDER BY question_order`, id,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetQuestion returns a question by ID.
func (s *Store) GetQuestion(id int64) (model.Question, error) {
	row := s.db.QueryRow(`SELECT `+questionColumns+` FROM questions WHERE id = ?`, id)
	return scanQuestion(row)
}

// ProblemCount returns the number of stored problems.
func (s *Store) ProblemCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM problems`).Scan(&count)
	return count, err
}

const questionColumns = `id, problem_id, question_order, prompt, max_score, model_answer, keywords,
	explanation, question_intent, question_type`

type scanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row scanner) (model.Question, error) {
	var q model.Question
	var keywords string
	err := row.Scan(&q.ID, &q.ProblemID, &q.Order, &q.Prompt, &q.MaxScore, &q.ModelAnswer, &keywords,
		&q.Explanation, &q.Intent, &q.QuestionType)
	if err != nil {
		return q, err
	}
	if err := json.Unmarshal([]byte(keywords), &q.Keywords); err != nil {
		return q, fmt.Errorf("decode keywords for question %d: %w", q.ID, err)
	}
	return q, nil
}

func (s *Store) queryQuestions(query string, args ...any) ([]model.Question, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// FindProblemID returns the ID of the problem for a year and case label, or 0
// if there is none.
func (s *Store) FindProblemID(year, caseLabel string) (int64, error) {
	return findProblemID(s.db, year, caseLabel)
}

type rowQuerier interface {
	QueryRow(query string, args ...any) *sql.Row
}

func findProblemID(q rowQuerier, year, caseLabel string) (int64, error) {
	var id int64
	err := q.QueryRow(`SELECT id FROM problems WHERE year = ? AND case_label = ?`, year, caseLabel).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return id, err
}
