package model

import (
	"encoding/json"
	"slices"
	"testing"
)

func TestKeywordHitsOrder(t *testing.T) {
	var h KeywordHits
	h = h.Set("品質", true).Set("顧客", false).Set("価格", false).Set("品質", false)

	if !slices.Equal(h.Keywords(), []string{"品質", "顧客", "価格"}) {
		t.Errorf("keywords = %v", h.Keywords())
	}
	if h.Matched() != 0 || h.Hit("品質") {
		t.Errorf("overwrite lost: %v", h)
	}
	h = h.Set("顧客", true)
	if !slices.Equal(h.Missing(), []string{"品質", "価格"}) {
		t.Errorf("missing = %v", h.Missing())
	}
	if cov, ok := h.Coverage(); !ok || cov != 1.0/3 {
		t.Errorf("coverage = %v, %v", cov, ok)
	}
	if _, ok := KeywordHits(nil).Coverage(); ok {
		t.Error("empty hits should have undefined coverage")
	}
}

func TestKeywordHitsJSON(t *testing.T) {
	h := KeywordHits{}.Set("ターゲット", true).Set("口コミ", false).Set("品質", true)

	data, err := json.Marshal(h)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"ターゲット":true,"口コミ":false,"品質":true}`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}

	var back KeywordHits
	if err := json.Unmarshal([]byte(`{"z":false,"a":true,"m":true}`), &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !slices.Equal(back.Keywords(), []string{"z", "a", "m"}) {
		t.Errorf("decoded order = %v", back.Keywords())
	}

	tests := []struct {
		name string
		in   string
	}{
		{"array", `["a"]`},
		{"non-bool value", `{"a": 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var h KeywordHits
			if err := json.Unmarshal([]byte(tt.in), &h); err == nil {
				t.Errorf("expected error for %s", tt.in)
			}
		})
	}
}

func TestAttemptRatio(t *testing.T) {
	if _, ok := (Attempt{TotalScore: 5}).Ratio(); ok {
		t.Error("zero max score should have no ratio")
	}
	if r, ok := (Attempt{TotalScore: 30, TotalMaxScore: 40}).Ratio(); !ok || r != 0.75 {
		t.Errorf("ratio = %v, %v", r, ok)
	}
}
