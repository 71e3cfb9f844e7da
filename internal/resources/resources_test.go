package resources

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pavelanni/casedrill/internal/model"
)

func TestDefaultLibrary(t *testing.T) {
	lib := Default()
	if got := len(lib.Keywords["製造技術"]); got != 1 {
		t.Fatalf("製造技術 resources = %d, want 1", got)
	}
	if got := len(lib.Fallback); got != 2 {
		t.Errorf("fallback = %d, want 2", got)
	}
}

func TestSuggest(t *testing.T) {
	lib := &Library{
		Keywords: map[string][]model.Resource{
			"a": {{Label: "A", URL: "https://x/a"}, {Label: "shared", URL: "https://x/s"}},
			"b": {{Label: "shared again", URL: "https://x/s"}, {Label: "B", URL: "https://x/b"}},
		},
		Fallback: []model.Resource{{Label: "F", URL: "https://x/f"}},
	}

	got := lib.Suggest([]string{"b", "a"})
	wantURLs := []string{"https://x/s", "https://x/b", "https://x/a"}
	if len(got) != len(wantURLs) {
		t.Fatalf("Suggest = %v", got)
	}
	for i, u := range wantURLs {
		if got[i].URL != u {
			t.Errorf("resource %d = %s, want %s", i, got[i].URL, u)
		}
	}

	fb := lib.Suggest([]string{"unknown"})
	if len(fb) != 1 || fb[0].Label != "F" {
		t.Errorf("fallback = %v", fb)
	}
	if fb := lib.Suggest(nil); len(fb) != 1 {
		t.Errorf("no missing keywords should still fall back, got %v", fb)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lib.yaml")
	data := []byte("keywords:\n  在庫:\n    - label: 在庫管理入門\n      url: https://x/zaiko\nfallback: []\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	lib, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := lib.Keywords["在庫"]; len(got) != 1 || got[0].Label != "在庫管理入門" {
		t.Errorf("在庫 = %v", got)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Parse([]byte("fallback:\n  - label: no url\n")); err == nil {
		t.Error("expected error for resource without url")
	}
	if lib, err := Load(""); err != nil || len(lib.Fallback) == 0 {
		t.Errorf("Load(\"\") = %v, %v", lib, err)
	}
}

func TestEntry(t *testing.T) {
	lib := Default()
	var hits model.KeywordHits
	hits = hits.Set("製造技術", false).Set("信頼関係", true).Set("企画開発", false)

	e := lib.Entry(nil, model.Question{ID: 7, Explanation: "強みを整理しましょう。"}, hits, "fb")
	if e.QuestionID != 7 || e.Feedback != "fb" {
		t.Errorf("entry = %+v", e)
	}
	if e.Summary != "製造技術、企画開発 の観点が弱めです。強みを整理しましょう。" {
		t.Errorf("Summary = %q", e.Summary)
	}
	if len(e.Resources) != 2 || e.Resources[0].URL != "https://example.com/lecture/manufacturing-strength" {
		t.Errorf("Resources = %v", e.Resources)
	}

	covered := lib.Entry(nil, model.Question{Explanation: "x"}, hits.Set("製造技術", true).Set("企画開発", true), "")
	if covered.Summary != "主要キーワードを押さえています。この調子で論理構成と表現を磨きましょう。" {
		t.Errorf("covered Summary = %q", covered.Summary)
	}
	complete := lib.Entry(nil, model.Question{}, nil, "")
	if complete.Summary != "主要論点を十分にカバーしています。引き続き答案のブラッシュアップを続けましょう。" {
		t.Errorf("complete Summary = %q", complete.Summary)
	}
	if len(complete.Resources) != 2 {
		t.Errorf("complete entry should fall back, got %v", complete.Resources)
	}
}
