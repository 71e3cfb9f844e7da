package scoring

import (
	"maps"
	"math"
	"regexp"
	"strings"

	"github.com/pavelanni/casedrill/internal/model"
)

// CaseII is the only case label with a holistic rubric.
const CaseII = "事例II"

// RubricFunc grades the non-empty answer texts of one case bundle.
// answers is the full input, texts the trimmed non-empty answer texts.
type RubricFunc func(answers []model.BundleAnswer, texts []string) *model.BundleEvaluation

// BundleEvaluator dispatches on case label. Unknown labels have no rubric.
type BundleEvaluator struct {
	rubrics map[string]RubricFunc
}

// NewBundleEvaluator returns an evaluator with the built-in rubrics.
func NewBundleEvaluator() *BundleEvaluator {
	return &BundleEvaluator{rubrics: map[string]RubricFunc{
		CaseII: evaluateCaseII,
	}}
}

// With returns a copy of the evaluator that also handles label with fn.
func (b *BundleEvaluator) With(label string, fn RubricFunc) *BundleEvaluator {
	rubrics := maps.Clone(b.rubrics)
	rubrics[label] = fn
	return &BundleEvaluator{rubrics: rubrics}
}

// Supports reports whether label has a rubric.
func (b *BundleEvaluator) Supports(label string) bool {
	_, ok := b.rubrics[label]
	return ok
}

// Evaluate returns nil when the label has no rubric, answers is empty, or every
// answer text is blank. nil means "not applicable", never a zero score.
func (b *BundleEvaluator) Evaluate(caseLabel string, answers []model.BundleAnswer) *model.BundleEvaluation {
	if caseLabel == "" || len(answers) == 0 {
		return nil
	}
	fn, ok := b.rubrics[caseLabel]
	if !ok {
		return nil
	}
	var texts []string
	for _, a := range answers {
		if t := strings.TrimSpace(a.AnswerText); t != "" {
			texts = append(texts, t)
		}
	}
	if len(texts) == 0 {
		return nil
	}
	return fn(answers, texts)
}

var defaultBundleEvaluator = NewBundleEvaluator()

// EvaluateCaseBundle evaluates answers with the built-in rubrics.
func EvaluateCaseBundle(caseLabel string, answers []model.BundleAnswer) *model.BundleEvaluation {
	return defaultBundleEvaluator.Evaluate(caseLabel, answers)
}

var (
	caseIITargetKeywords = []string{
		"ターゲット", "顧客", "客層", "既存", "新規", "リピーター",
		"ファミリー", "シニア", "訪日", "観光客", "法人", "若年",
	}
	caseIIActionVerbs = []string{
		"強化", "拡大", "導入", "実施", "構築", "連携", "提携", "活用", "展開",
		"運用", "改善", "最適化", "設計", "企画", "実装", "訴求", "提供", "育成",
	}
	caseIIChannelTerms = []string{
		"SNS", "EC", "OMO", "イベント", "キャンペーン", "アプリ", "会員",
		"サブスク", "メール", "DM", "LINE", "コミュニティ", "レビュー",
	}

	segmentPattern = regexp.MustCompile(`(若年|シニア|富裕|子育て|訪日|地元|常連|法人|観光|学生|高付加価値)[^。]{0,6}(層|客|顧客)`)
	numericPattern = regexp.MustCompile(`\p{Nd}|％|%|回|件|名|日|週|月|年`)
)

// rubricCriterion carries the commentary tiers and the recommendation used
// when the criterion scores below recommendThreshold.
type rubricCriterion struct {
	label          string
	weight         float64
	high, mid, low string
	recommendation string
}

const (
	commentaryHigh     = 0.75
	commentaryMid      = 0.5
	recommendThreshold = 0.7
	summaryPass        = 75.0
	summaryNear        = 60.0
	targetVarietyBase  = 4
)

var (
	caseIITarget = rubricCriterion{
		label:          "ターゲットの明確さ",
		weight:         0.35,
		high:           "顧客像とセグメントが明確に描写されています。",
		mid:            "ターゲットの骨子は伝わりますが、セグメントをもう一段細分化できる余地があります。",
		low:            "ターゲット層の明示が弱いため、誰に届ける施策かを具体化しましょう。",
		recommendation: "ターゲット層を年齢・ライフスタイル・来店目的など二軸以上で具体化し、既存/新規の別を明記しましょう。",
	}
	caseIISpecificity = rubricCriterion{
		label:          "施策の具体性",
		weight:         0.4,
		high:           "施策がチャネル・行動レベルまで落とし込まれており、提言力が高いです。",
		mid:            "施策の方向性は妥当です。チャネルやKPIなど実行指標を添えると一層明確になります。",
		low:            "施策が抽象的です。誰が・どのチャネルで・いつ行うかまで記述しましょう。",
		recommendation: "施策ごとにチャネル・実行主体・KPI（例: 来店頻度、セット率）をセットで書き出し、提言の骨太さを高めましょう。",
	}
	caseIIEvidence = rubricCriterion{
		label:          "与件根拠の引用率",
		weight:         0.25,
		high:           "与件文の強み・資源をバランスよく踏まえています。",
		mid:            "主要キーワードは盛り込まれています。もう一語追加できると説得力が高まります。",
		low:            "与件の強みが十分に反映されていません。特徴語や数字を引用しましょう。",
		recommendation: "与件文から強み・顧客ニーズ・数値を最低2語以上引用し、施策との因果を明文化してください。",
	}

	caseIISummaries = [3]string{
		"提言力は合格水準を上回っています。この調子で改善案の裏付けを厚くしましょう。",
		"提言の骨子は整っています。ターゲットと根拠の言及をもう一段深めると安定します。",
		"施策の具体化と根拠の引用を強化すると提言力が大きく伸びます。演習でフレームを確認しましょう。",
	}
	caseIIReminder = "演習では80字テンプレートに沿って『ターゲット→課題→施策→効果』の順に因果をチェックしましょう。"
)

func evaluateCaseII(answers []model.BundleAnswer, texts []string) *model.BundleEvaluation {
	target := math.Min(1, 0.6*coverageRatio(texts, caseIITargetKeywords)+
		0.25*patternRatio(texts, segmentPattern)+
		0.15*varietyRatio(texts, caseIITargetKeywords, targetVarietyBase))

	specificity := math.Min(1, 0.45*densityScore(texts, caseIIActionVerbs)+
		0.3*densityScore(texts, caseIIChannelTerms)+
		0.25*patternRatio(texts, numericPattern))

	var matched, total int
	for _, a := range answers {
		matched += a.KeywordHits.Matched()
		total += len(a.KeywordHits)
	}
	evidence := 0.0
	if total > 0 {
		evidence = float64(matched) / float64(total)
	}

	scored := []struct {
		rubricCriterion
		score float64
	}{
		{caseIITarget, target},
		{caseIISpecificity, specificity},
		{caseIIEvidence, evidence},
	}

	var criteria []model.CriterionInsight
	var recs []string
	var weighted, weights float64
	for _, c := range scored {
		criteria = append(criteria, model.CriterionInsight{
			Label:      c.label,
			Score:      c.score,
			Weight:     c.weight,
			Commentary: commentary(c.score, c.high, c.mid, c.low),
		})
		if c.score < recommendThreshold {
			recs = append(recs, c.recommendation)
		}
		weighted += c.score * c.weight
		weights += c.weight
	}
	if len(recs) == 0 {
		recs = append(recs, caseIIReminder)
	}

	overall := 0.0
	if weights > 0 {
		overall = round(weighted/weights*100, 1)
	}

	summary := caseIISummaries[2]
	switch {
	case overall >= summaryPass:
		summary = caseIISummaries[0]
	case overall >= summaryNear:
		summary = caseIISummaries[1]
	}

	return &model.BundleEvaluation{
		CaseLabel:       CaseII,
		OverallScore:    overall,
		Criteria:        criteria,
		Summary:         summary,
		Recommendations: recs,
	}
}

func commentary(score float64, high, mid, low string) string {
	switch {
	case score >= commentaryHigh:
		return high
	case score >= commentaryMid:
		return mid
	default:
		return low
	}
}

// coverageRatio is the fraction of texts containing at least one keyword.
func coverageRatio(texts, keywords []string) float64 {
	hits := 0
	for _, t := range texts {
		for _, kw := range keywords {
			if strings.Contains(t, kw) {
				hits++
				break
			}
		}
	}
	return float64(hits) / float64(len(texts))
}

func patternRatio(texts []string, re *regexp.Regexp) float64 {
	hits := 0
	for _, t := range texts {
		if re.MatchString(t) {
			hits++
		}
	}
	return float64(hits) / float64(len(texts))
}

// varietyRatio counts distinct keywords used anywhere against baseline.
func varietyRatio(texts, keywords []string, baseline int) float64 {
	seen := make(map[string]bool)
	for _, t := range texts {
		for _, kw := range keywords {
			if strings.Contains(t, kw) {
				seen[kw] = true
			}
		}
	}
	return math.Min(1, float64(len(seen))/float64(max(baseline, 1)))
}

// densityScore saturates at an average of two distinct keyword hits per text.
func densityScore(texts, keywords []string) float64 {
	hits := 0
	for _, t := range texts {
		for _, kw := range keywords {
			if strings.Contains(t, kw) {
				hits++
			}
		}
	}
	return math.Min(1, float64(hits)/float64(len(texts))/2)
}
