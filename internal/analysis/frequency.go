package analysis

import (
	"cmp"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/pavelanni/casedrill/internal/model"
)

// QuestionTypeRecord is the type of one question in one year's case.
type QuestionTypeRecord struct {
	Year         string `json:"year"`
	CaseLabel    string `json:"case"`
	QuestionNo   int    `json:"question_no"`
	QuestionType string `json:"question_type"`
}

var questionTypeHeader = []string{"year", "case", "question_no", "question_type"}

// ParseQuestionTypes reads records from CSV with the header
// year,case,question_no,question_type. Columns may appear in any order.
func ParseQuestionTypes(r io.Reader) ([]QuestionTypeRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty question type csv")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, col := range questionTypeHeader {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	var out []QuestionTypeRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		year := strings.TrimSpace(row[idx["year"]])
		if math.IsInf(YearOrder(year), -1) {
			return nil, fmt.Errorf("line %d: unsupported year label %q", line, year)
		}
		no, err := strconv.Atoi(strings.TrimSpace(row[idx["question_no"]]))
		if err != nil {
			return nil, fmt.Errorf("line %d: question_no: %w", line, err)
		}
		out = append(out, QuestionTypeRecord{
			Year:         year,
			CaseLabel:    strings.TrimSpace(row[idx["case"]]),
			QuestionNo:   no,
			QuestionType: strings.TrimSpace(row[idx["question_type"]]),
		})
	}
	return out, nil
}

// RecordsFromProblems derives records from stored questions that carry a
// question type.
func RecordsFromProblems(problems []model.Problem) []QuestionTypeRecord {
	var out []QuestionTypeRecord
	for _, p := range problems {
		for _, q := range p.Questions {
			if q.QuestionType == "" {
				continue
			}
			out = append(out, QuestionTypeRecord{
				Year:         p.Year,
				CaseLabel:    p.CaseLabel,
				QuestionNo:   q.Order,
				QuestionType: q.QuestionType,
			})
		}
	}
	return out
}

// recentRecords keeps records from the newest recentYears distinct years.
// recentYears <= 0 keeps everything.
func recentRecords(records []QuestionTypeRecord, recentYears int) []QuestionTypeRecord {
	if recentYears <= 0 {
		return records
	}
	years := make(map[string]bool)
	for _, r := range records {
		years[r.Year] = true
	}
	ordered := slices.SortedStableFunc(maps.Keys(years), func(a, b string) int {
		return cmp.Or(cmp.Compare(YearOrder(b), YearOrder(a)), strings.Compare(a, b))
	})
	keep := ordered[:min(recentYears, len(ordered))]
	var out []QuestionTypeRecord
	for _, r := range records {
		if slices.Contains(keep, r.Year) {
			out = append(out, r)
		}
	}
	return out
}

func sortYears(years []string) {
	slices.SortFunc(years, func(a, b string) int {
		return cmp.Or(cmp.Compare(YearOrder(a), YearOrder(b)), strings.Compare(a, b))
	})
}

// FrequencyRow counts one question type of one case per year.
type FrequencyRow struct {
	CaseLabel    string         `json:"case"`
	QuestionType string         `json:"question_type"`
	Counts       map[string]int `json:"counts"`
	Total        int            `json:"total"`
}

// FrequencyTable is the year x case x question-type pivot.
type FrequencyTable struct {
	Years []string       `json:"years"`
	Rows  []FrequencyRow `json:"rows"`
}

// ComputeFrequencyTable counts question types per case for the recent years.
// Rows sort by case, then by total descending.
func ComputeFrequencyTable(records []QuestionTypeRecord, recentYears int) FrequencyTable {
	recent := recentRecords(records, recentYears)
	type key struct{ caseLabel, qtype string }
	rows := make(map[key]*FrequencyRow)
	years := make(map[string]bool)
	for _, r := range recent {
		years[r.Year] = true
		k := key{r.CaseLabel, r.QuestionType}
		row, ok := rows[k]
		if !ok {
			row = &FrequencyRow{CaseLabel: r.CaseLabel, QuestionType: r.QuestionType, Counts: map[string]int{}}
			rows[k] = row
		}
		row.Counts[r.Year]++
		row.Total++
	}

	table := FrequencyTable{Years: slices.Collect(maps.Keys(years)), Rows: []FrequencyRow{}}
	sortYears(table.Years)
	for _, row := range rows {
		for _, y := range table.Years {
			row.Counts[y] += 0
		}
		table.Rows = append(table.Rows, *row)
	}
	slices.SortFunc(table.Rows, func(a, b FrequencyRow) int {
		return cmp.Or(
			strings.Compare(a.CaseLabel, b.CaseLabel),
			cmp.Compare(b.Total, a.Total),
			strings.Compare(a.QuestionType, b.QuestionType),
		)
	})
	return table
}

// SequenceCount is how often NextType directly followed PrevType within a case.
type SequenceCount struct {
	CaseLabel string `json:"case"`
	PrevType  string `json:"prev_type"`
	NextType  string `json:"next_type"`
	Count     int    `json:"count"`
}

// ComputeSequenceCounts counts consecutive question-type transitions within
// each (year, case), most frequent first.
func ComputeSequenceCounts(records []QuestionTypeRecord, recentYears int) []SequenceCount {
	type group struct{ year, caseLabel string }
	groups := make(map[group][]QuestionTypeRecord)
	for _, r := range recentRecords(records, recentYears) {
		g := group{r.Year, r.CaseLabel}
		groups[g] = append(groups[g], r)
	}

	type transition struct{ caseLabel, prev, next string }
	counts := make(map[transition]int)
	for _, rs := range groups {
		slices.SortStableFunc(rs, func(a, b QuestionTypeRecord) int { return cmp.Compare(a.QuestionNo, b.QuestionNo) })
		for i := 1; i < len(rs); i++ {
			counts[transition{rs[i].CaseLabel, rs[i-1].QuestionType, rs[i].QuestionType}]++
		}
	}

	out := make([]SequenceCount, 0, len(counts))
	for t, n := range counts {
		out = append(out, SequenceCount{CaseLabel: t.caseLabel, PrevType: t.prev, NextType: t.next, Count: n})
	}
	slices.SortFunc(out, func(a, b SequenceCount) int {
		return cmp.Or(
			cmp.Compare(b.Count, a.Count),
			strings.Compare(a.CaseLabel, b.CaseLabel),
			strings.Compare(a.PrevType, b.PrevType),
			strings.Compare(a.NextType, b.NextType),
		)
	})
	return out
}

// DefaultMinSequenceCount is the transition count at which a sequence
// constrains the learning order.
const DefaultMinSequenceCount = 2

// LearningOrder proposes a study order of question types per case: most
// frequent first, then adjusted so each strong transition's earlier type
// comes before its later type.
func LearningOrder(records []QuestionTypeRecord, recentYears, minSequenceCount int) map[string][]string {
	recent := recentRecords(records, recentYears)
	if minSequenceCount <= 0 {
		minSequenceCount = DefaultMinSequenceCount
	}

	freq := make(map[string]map[string]int)
	for _, r := range recent {
		if freq[r.CaseLabel] == nil {
			freq[r.CaseLabel] = make(map[string]int)
		}
		freq[r.CaseLabel][r.QuestionType]++
	}
	sequences := ComputeSequenceCounts(recent, 0)

	orders := make(map[string][]string, len(freq))
	for caseLabel, counts := range freq {
		types := slices.SortedFunc(maps.Keys(counts), func(a, b string) int {
			return cmp.Or(cmp.Compare(counts[b], counts[a]), strings.Compare(a, b))
		})
		for _, s := range sequences {
			if s.CaseLabel != caseLabel || s.Count < minSequenceCount {
				continue
			}
			if !slices.Contains(types, s.PrevType) {
				types = append(types, s.PrevType)
			}
			if !slices.Contains(types, s.NextType) {
				types = append(types, s.NextType)
			}
			prev, next := slices.Index(types, s.PrevType), slices.Index(types, s.NextType)
			if prev > next {
				moved := types[prev]
				types = slices.Delete(types, prev, prev+1)
				types = slices.Insert(types, next, moved)
			}
		}
		orders[caseLabel] = types
	}
	return orders
}
