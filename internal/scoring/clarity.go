package scoring

import (
	"math"
	"strings"
	"unicode"

	"github.com/pavelanni/casedrill/internal/model"
	"github.com/pavelanni/casedrill/internal/textproc"
)

// Connectors are the causal and additive connectives counted for flow.
var Connectors = []string{
	"ため", "ので", "結果", "したがって", "よって", "さらに", "まず",
	"次に", "一方", "そのため", "その結果", "だから", "結果として",
}

const (
	idealSentenceMax  = 40.0  // sentences up to this length score 1.0
	sentenceZeroAt    = 100.0 // linear length penalty reaches 0 here
	fragmentLength    = 8.0   // shorter averages read as fragments
	fragmentPenalty   = 0.4
	flowFloor         = 0.4
	lengthWeight      = 0.5
	punctuationWeight = 0.3
	flowWeight        = 0.2
)

// ClarityStats is the readability estimate and the signals it was built from.
type ClarityStats struct {
	Score      float64
	AvgLength  float64
	Sentences  int
	Commas     int
	Connectors int
}

// Clarity estimates readability from average sentence length, comma density
// and connective frequency. Text without any sentence scores 0.
func Clarity(answer string) ClarityStats {
	sentences := textproc.Sentences(answer)
	if len(sentences) == 0 {
		return ClarityStats{}
	}
	n := float64(len(sentences))

	chars := 0
	for _, s := range sentences {
		for _, r := range s {
			if !unicode.IsSpace(r) {
				chars++
			}
		}
	}
	avg := float64(chars) / n

	commas := strings.Count(answer, "、") + strings.Count(answer, "，") + strings.Count(answer, ",")
	punct := math.Min(1, float64(commas)/n)

	conn := connectorStats(answer)
	flow := math.Min(1, flowFloor+(1-flowFloor)*math.Min(1, float64(conn.TotalHits)/n))

	score := lengthWeight*lengthScore(avg) + punctuationWeight*punct + flowWeight*flow
	return ClarityStats{
		Score:      clamp01(score),
		AvgLength:  avg,
		Sentences:  len(sentences),
		Commas:     commas,
		Connectors: conn.TotalHits,
	}
}

func lengthScore(avg float64) float64 {
	s := 1.0
	if avg > idealSentenceMax {
		s = 1 - (avg-idealSentenceMax)/(sentenceZeroAt-idealSentenceMax)
	}
	if avg < fragmentLength {
		s -= fragmentPenalty
	}
	return clamp01(s)
}

// connectorStats counts every connective occurrence. Overlapping connectives
// ("その結果" and "結果") are each counted.
func connectorStats(answer string) model.ConnectorStats {
	sentenceCount := max(len(textproc.Sentences(answer)), 1)
	stats := model.ConnectorStats{
		SentenceCount: sentenceCount,
		Counts:        make(map[string]int),
	}
	for _, c := range Connectors {
		if n := strings.Count(answer, c); n > 0 {
			stats.Counts[c] = n
			stats.TotalHits += n
		}
	}
	stats.PerSentence = float64(stats.TotalHits) / float64(sentenceCount)
	return stats
}
