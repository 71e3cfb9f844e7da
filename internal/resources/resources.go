// Package resources holds the keyword→study-resource library used for
// review entries and plan backfill.
package resources

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pavelanni/casedrill/internal/i18n"
	"github.com/pavelanni/casedrill/internal/model"
)

//go:embed library.yaml
var defaultLibrary []byte

// Library maps scoring keywords to resources, with generic fallbacks.
type Library struct {
	Keywords map[string][]model.Resource `yaml:"keywords"`
	Fallback []model.Resource            `yaml:"fallback"`
}

// Default returns the embedded library.
func Default() *Library {
	lib, err := Parse(defaultLibrary)
	if err != nil {
		panic(fmt.Sprintf("resources: embedded library: %v", err))
	}
	return lib
}

// Load reads a library from a YAML file. An empty path returns the embedded library.
func Load(path string) (*Library, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read resource library: %w", err)
	}
	lib, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return lib, nil
}

// Parse decodes a YAML library. Entries without a URL are rejected.
func Parse(data []byte) (*Library, error) {
	var lib Library
	if err := yaml.Unmarshal(data, &lib); err != nil {
		return nil, fmt.Errorf("unmarshal resource library: %w", err)
	}
	if lib.Keywords == nil {
		lib.Keywords = map[string][]model.Resource{}
	}
	for kw, list := range lib.Keywords {
		for i, r := range list {
			if strings.TrimSpace(r.URL) == "" {
				return nil, fmt.Errorf("keyword %q resource %d: missing url", kw, i)
			}
		}
	}
	for i, r := range lib.Fallback {
		if strings.TrimSpace(r.URL) == "" {
			return nil, fmt.Errorf("fallback resource %d: missing url", i)
		}
	}
	return &lib, nil
}

// Suggest returns the resources for the missing keywords in keyword order,
// de-duplicated by URL. With no keyword match it returns the fallback list.
func (l *Library) Suggest(missing []string) []model.Resource {
	seen := make(map[string]bool)
	var out []model.Resource
	add := func(r model.Resource) {
		if seen[r.URL] {
			return
		}
		seen[r.URL] = true
		out = append(out, r)
	}
	for _, kw := range missing {
		for _, r := range l.Keywords[kw] {
			add(r)
		}
	}
	if len(out) == 0 {
		for _, r := range l.Fallback {
			add(r)
		}
	}
	return out
}

// LearningEntry is a review note for one scored answer.
type LearningEntry struct {
	QuestionID    int64            `json:"question_id"`
	Summary       string           `json:"summary"`
	Feedback      string           `json:"feedback"`
	FocusKeywords []string         `json:"focus_keywords"`
	Resources     []model.Resource `json:"resources"`
}

// Entry builds a review note from a question's scoring result.
func (l *Library) Entry(cat *i18n.Catalog, q model.Question, hits model.KeywordHits, feedback string) LearningEntry {
	if cat == nil {
		cat = i18n.Default()
	}
	missing := hits.Missing()

	var summary string
	switch {
	case len(missing) > 0:
		summary = cat.Td("LearningSummaryMissing", map[string]any{
			"Keywords":    strings.Join(missing, cat.T("KeywordSeparator")),
			"Explanation": q.Explanation,
		})
	case q.Explanation != "":
		summary = cat.T("LearningSummaryCovered")
	default:
		summary = cat.T("LearningSummaryComplete")
	}

	return LearningEntry{
		QuestionID:    q.ID,
		Summary:       summary,
		Feedback:      feedback,
		FocusKeywords: missing,
		Resources:     l.Suggest(missing),
	}
}
