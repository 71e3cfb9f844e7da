package recommend

import (
	"cmp"
	"math"
	"slices"
)

const (
	minOverlap    = 1
	maxNeighbours = 20
)

// Neighbour is a similar learner and the similarity weight.
type Neighbour struct {
	UserID     int64   `json:"user_id"`
	Similarity float64 `json:"similarity"`
}

// computeUserNeighbours compares the target against every other learner with
// mean-centred cosine similarity over co-rated problems. Only positive
// similarities are kept, strongest first, ties by user ID.
func computeUserNeighbours(m *ratingMatrix, userID int64) []Neighbour {
	target, ok := m.values[userID]
	if !ok {
		return nil
	}
	targetMean := m.means[userID]

	var out []Neighbour
	for _, other := range m.users {
		if other == userID {
			continue
		}
		row := m.values[other]
		otherMean := m.means[other]

		var a, b []float64
		for _, pid := range m.problems {
			tv, tok := target[pid]
			ov, ook := row[pid]
			if tok && ook {
				a = append(a, tv-targetMean)
				b = append(b, ov-otherMean)
			}
		}
		if len(a) < minOverlap {
			continue
		}
		sim, ok := cosine(a, b)
		if !ok || sim <= 0 {
			continue
		}
		out = append(out, Neighbour{UserID: other, Similarity: sim})
	}

	slices.SortStableFunc(out, func(x, y Neighbour) int {
		return cmp.Compare(y.Similarity, x.Similarity)
	})
	if len(out) > maxNeighbours {
		out = out[:maxNeighbours]
	}
	return out
}

// cosine reports false when either vector has zero norm.
func cosine(a, b []float64) (float64, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), true
}
