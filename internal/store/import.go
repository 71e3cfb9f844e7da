package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pavelanni/casedrill/internal/model"
)

// ErrInvalidImport marks a problems file that cannot be decoded or is missing
// required fields.
var ErrInvalidImport = errors.New("invalid problems file")

// ImportResult summarises one ImportProblems call.
type ImportResult struct {
	Name      string `json:"name"`
	Hash      string `json:"hash"`
	Unchanged bool   `json:"unchanged"`
	Inserted  int    `json:"inserted"`
	Skipped   int    `json:"skipped"`
}

// ImportProblems loads a JSON array of problems. A file whose sha256 matches
// the last import under the same name is not read again. Problems whose year
// and case label already exist are skipped. The file is imported in one
// transaction, so a failed import leaves no problems and no hash behind.
func (s *Store) ImportProblems(name string, data []byte) (ImportResult, error) {
	sum := sha256.Sum256(data)
	res := ImportResult{Name: name, Hash: hex.EncodeToString(sum[:])}

	stored, err := s.GetImportedFileHash(name)
	if err != nil {
		return res, fmt.Errorf("check import status: %w", err)
	}
	if stored == res.Hash {
		res.Unchanged = true
		slog.Info("problems file unchanged, skipping", "name", name)
		return res, nil
	}

	var problems []model.Problem
	if err := json.Unmarshal(data, &problems); err != nil {
		return res, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	for i, p := range problems {
		if p.Year == "" || p.CaseLabel == "" {
			return res, fmt.Errorf("%w: problem %d needs year and case_label", ErrInvalidImport, i+1)
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return res, err
	}
	defer tx.Rollback()

	for _, p := range problems {
		id, err := findProblemID(tx, p.Year, p.CaseLabel)
		if err != nil {
			return ImportResult{Name: name, Hash: res.Hash}, fmt.Errorf("find problem: %w", err)
		}
		if id != 0 {
			slog.Warn("problem already exists, skipping", "year", p.Year, "case_label", p.CaseLabel, "problem_id", id)
			res.Skipped++
			continue
		}
		if _, err := insertProblemTx(tx, p); err != nil {
			return ImportResult{Name: name, Hash: res.Hash}, fmt.Errorf("insert problem %s %s: %w", p.Year, p.CaseLabel, err)
		}
		res.Inserted++
	}

	if err := setMetadata(tx, importKeyPrefix+name, res.Hash); err != nil {
		return ImportResult{Name: name, Hash: res.Hash}, fmt.Errorf("record import: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return ImportResult{Name: name, Hash: res.Hash}, fmt.Errorf("commit import: %w", err)
	}
	slog.Info("imported problems", "name", name, "inserted", res.Inserted, "skipped", res.Skipped)
	return res, nil
}
