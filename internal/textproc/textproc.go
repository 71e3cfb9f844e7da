// Package textproc turns Japanese/latin answer text into comparable strings,
// keyword-sized tokens, similarity terms and sentences.
package textproc

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/width"
)

var (
	tokenPattern    = regexp.MustCompile(`[ぁ-んァ-ヶー一-龠A-Za-z0-9]+`)
	sentencePattern = regexp.MustCompile(`[。.!?！？]\s*`)
)

// Stopwords are dropped from keyword-cloud tokens.
var Stopwords = map[string]bool{
	"こと": true, "よう": true, "ため": true, "など": true, "もの": true,
	"これ": true, "それ": true, "あれ": true, "ので": true, "から": true,
	"そして": true, "しかし": true, "また": true, "一方": true, "今回": true,
	"企業": true, "顧客": true, "市場": true, "事例": true, "分析": true,
	"対応": true, "活用": true, "実施": true, "実現": true, "検討": true,
	"必要": true, "可能": true, "重要": true, "効果": true, "課題": true,
	"現状": true,
}

// Normalize folds full-width latin to narrow, lowercases and removes every
// whitespace rune, including the ideographic space.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = width.Fold.String(s)
	// Casers are stateful; one per call keeps Normalize safe for concurrent use.
	s = cases.Lower(language.Und).String(s)
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// Tokens extracts kana/kanji/alphanumeric runs of at least two runes with stopwords removed.
func Tokens(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, tok := range tokenPattern.FindAllString(s, -1) {
		if utf8.RuneCountInString(tok) < 2 || Stopwords[tok] {
			continue
		}
		out = append(out, tok)
	}
	return out
}

type script int

const (
	scriptOther script = iota
	scriptKanji
	scriptKatakana
	scriptLatin
)

func classify(r rune) script {
	switch {
	case unicode.Is(unicode.Han, r):
		return scriptKanji
	case unicode.Is(unicode.Katakana, r) || r == 'ー':
		return scriptKatakana
	case r <= unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
		return scriptLatin
	default:
		return scriptOther
	}
}

// ContentTerms returns the terms used for answer/reference similarity.
// Hiragana, punctuation and spaces separate terms. Each run of kanji, katakana or
// latin/digits of two or more runes is a term, and kanji runs longer than two runes
// also contribute their overlapping bigrams.
func ContentTerms(s string) []string {
	if s == "" {
		return nil
	}
	s = cases.Lower(language.Und).String(width.Fold.String(s))

	var (
		terms []string
		run   []rune
		cur   script
	)
	flush := func() {
		if len(run) >= 2 {
			terms = append(terms, string(run))
			if cur == scriptKanji && len(run) > 2 {
				for i := 0; i+2 <= len(run); i++ {
					terms = append(terms, string(run[i:i+2]))
				}
			}
		}
		run = run[:0]
	}
	for _, r := range s {
		sc := classify(r)
		if sc != cur {
			flush()
			cur = sc
		}
		if sc != scriptOther {
			run = append(run, r)
		}
	}
	flush()
	return terms
}

// Sentences splits on Japanese and latin terminal punctuation and drops blank segments.
func Sentences(s string) []string {
	var out []string
	for _, seg := range sentencePattern.Split(s, -1) {
		seg = strings.TrimSpace(seg)
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

// RuneLen returns the number of runes in s.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}
