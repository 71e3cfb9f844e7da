package scoring

import (
	"maps"
	"math"
	"slices"

	"github.com/pavelanni/casedrill/internal/textproc"
)

// CosineSimilarity compares answer and reference in a TF-IDF space built over
// exactly those two documents (smoothed idf, as in common IR toolkits).
// It returns 0 when neither text yields a content term or either vector is zero.
func CosineSimilarity(answer, reference string) float64 {
	docs := [2][]string{textproc.ContentTerms(reference), textproc.ContentTerms(answer)}
	if len(docs[0]) == 0 && len(docs[1]) == 0 {
		return 0
	}

	var tf [2]map[string]float64
	df := make(map[string]int)
	for i, terms := range docs {
		tf[i] = make(map[string]float64, len(terms))
		for _, term := range terms {
			tf[i][term]++
		}
		for term := range tf[i] {
			df[term]++
		}
	}

	n := float64(len(docs))
	var dot, refNorm, ansNorm float64
	for _, term := range slices.Sorted(maps.Keys(df)) {
		idf := math.Log((1+n)/(1+float64(df[term]))) + 1
		r := tf[0][term] * idf
		a := tf[1][term] * idf
		dot += r * a
		refNorm += r * r
		ansNorm += a * a
	}
	den := math.Sqrt(refNorm) * math.Sqrt(ansNorm)
	if den == 0 {
		return 0
	}
	return clamp01(dot / den)
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
