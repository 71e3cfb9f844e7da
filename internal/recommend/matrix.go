package recommend

import (
	"maps"
	"slices"

	"github.com/pavelanni/casedrill/internal/model"
)

// ratingMatrix is the user×problem grid of mean score ratios. Only defined
// ratios (non-zero maximum) enter the grid, clamped to [0, 1].
type ratingMatrix struct {
	users    []int64
	problems []int64
	values   map[int64]map[int64]float64
	means    map[int64]float64
}

type problemStat struct {
	mean      float64
	count     int
	year      string
	caseLabel string
	title     string
}

// problemStats aggregates defined ratios per problem across every learner.
type problemStats map[int64]problemStat

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}

func buildMatrix(ratings []model.Attempt) *ratingMatrix {
	type acc struct {
		sum float64
		n   int
	}
	cells := make(map[int64]map[int64]*acc)
	for _, r := range ratings {
		ratio, ok := r.Ratio()
		if !ok {
			continue
		}
		row := cells[r.UserID]
		if row == nil {
			row = make(map[int64]*acc)
			cells[r.UserID] = row
		}
		c := row[r.ProblemID]
		if c == nil {
			c = &acc{}
			row[r.ProblemID] = c
		}
		c.sum += clamp01(ratio)
		c.n++
	}

	m := &ratingMatrix{
		values: make(map[int64]map[int64]float64, len(cells)),
		means:  make(map[int64]float64, len(cells)),
	}
	problems := make(map[int64]bool)
	for user, row := range cells {
		vals := make(map[int64]float64, len(row))
		var total float64
		for pid, c := range row {
			v := c.sum / float64(c.n)
			vals[pid] = v
			total += v
			problems[pid] = true
		}
		m.values[user] = vals
		m.means[user] = total / float64(len(vals))
	}
	m.users = slices.Sorted(maps.Keys(m.values))
	m.problems = slices.Sorted(maps.Keys(problems))
	return m
}

func (m *ratingMatrix) has(user int64) bool {
	_, ok := m.values[user]
	return ok
}

func (m *ratingMatrix) rating(user, problem int64) (float64, bool) {
	v, ok := m.values[user][problem]
	return v, ok
}

func buildProblemStats(ratings []model.Attempt) problemStats {
	stats := make(problemStats)
	sums := make(map[int64]float64)
	for _, r := range ratings {
		ratio, ok := r.Ratio()
		if !ok {
			continue
		}
		s := stats[r.ProblemID]
		s.count++
		if s.year == "" {
			s.year = r.Year
		}
		if s.caseLabel == "" {
			s.caseLabel = r.CaseLabel
		}
		if s.title == "" {
			s.title = r.Title
		}
		stats[r.ProblemID] = s
		sums[r.ProblemID] += clamp01(ratio)
	}
	for pid, s := range stats {
		s.mean = sums[pid] / float64(s.count)
		stats[pid] = s
	}
	return stats
}

// overallMean is the mean of per-problem means, or 0 without data.
func (s problemStats) overallMean() float64 {
	if len(s) == 0 {
		return 0
	}
	var total float64
	for _, st := range s {
		total += st.mean
	}
	return total / float64(len(s))
}

// globalMean is the problem's mean, falling back to the overall mean.
func (s problemStats) globalMean(problemID int64) float64 {
	if st, ok := s[problemID]; ok {
		return st.mean
	}
	return s.overallMean()
}
