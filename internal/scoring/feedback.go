package scoring

import (
	"fmt"
	"strings"

	"github.com/pavelanni/casedrill/internal/model"
)

// Feedback thresholds.
const (
	keywordHigh    = 0.8
	keywordMid     = 0.4
	similarityHigh = 0.65
	similarityMid  = 0.45
	clarityGood    = 0.7
)

func (e *Engine) feedback(a model.ScoreAnalysis, q model.QuestionSpec) string {
	missing := a.KeywordHits.Missing()

	summary := e.cat.Td("FeedbackSummary", map[string]any{
		"Keyword":    f2(a.KeywordRatio),
		"Structure":  f2(a.StructureScore),
		"Clarity":    f2(a.ClarityScore),
		"Similarity": f2(a.Similarity),
	})

	var good []string
	switch {
	case a.KeywordRatio >= keywordHigh:
		good = append(good, e.cat.T("FeedbackGoodKeywordHigh"))
	case a.KeywordRatio >= keywordMid:
		good = append(good, e.cat.Td("FeedbackGoodKeywordMid", map[string]any{"Count": a.KeywordHits.Matched()}))
	}
	switch {
	case a.Similarity >= similarityHigh:
		good = append(good, e.cat.T("FeedbackGoodSimilarityHigh"))
	case a.Similarity >= similarityMid:
		good = append(good, e.cat.T("FeedbackGoodSimilarityMid"))
	}
	if a.ClarityScore >= clarityGood {
		good = append(good, e.cat.T("FeedbackGoodClarity"))
	}
	if len(good) == 0 {
		good = append(good, e.cat.T("FeedbackGoodGeneric"))
	}

	var improve []string
	if len(missing) > 0 {
		improve = append(improve, e.cat.Td("FeedbackImproveMissing", map[string]any{
			"Keywords": strings.Join(missing, e.cat.T("KeywordSeparator")),
		}))
	}
	if a.KeywordRatio < keywordMid {
		improve = append(improve, e.cat.T("FeedbackImproveKeywordLow"))
	}
	if a.Similarity < similarityMid {
		improve = append(improve, e.cat.T("FeedbackImproveSimilarityLow"))
	}
	if a.ClarityScore < clarityGood {
		improve = append(improve, e.cat.T("FeedbackImproveClarityLow"))
	}
	if len(improve) == 0 {
		improve = append(improve, e.cat.T("FeedbackImproveGeneric"))
	}

	study := missing
	if len(study) == 0 {
		study = a.KeywordHits.Keywords()
	}

	sections := []string{
		summary,
		bulletSection(e.cat.T("FeedbackGoodHeading"), good),
		bulletSection(e.cat.T("FeedbackImproveHeading"), improve),
		bulletSection(e.cat.T("FeedbackStudyHeading"), study),
		bulletSection(e.cat.T("FeedbackTipHeading"), []string{e.cat.T("FeedbackTip")}),
	}
	return joinSections(sections)
}

// bulletSection renders a heading followed by "- item" lines, or "" with no items.
func bulletSection(heading string, items []string) string {
	if len(items) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(heading)
	for _, it := range items {
		sb.WriteString("\n- ")
		sb.WriteString(it)
	}
	return sb.String()
}

func joinSections(sections []string) string {
	out := sections[:0:0]
	for _, s := range sections {
		if s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "\n\n")
}

func f1(v float64) string { return fmt.Sprintf("%.1f", v) }
func f2(v float64) string { return fmt.Sprintf("%.2f", v) }
