package analysis

import (
	"math"
	"testing"
)

func TestKeywordCloud(t *testing.T) {
	docs := []Document{
		{CaseLabel: "事例II", Text: "品質 品質 価格 販路"},
		{CaseLabel: "事例II", Text: "品質 価格"},
		{CaseLabel: "事例III", Text: "生産 生産 生産 生産"},
	}

	got := KeywordCloud(docs, "事例II", 40, 2)
	if len(got) != 2 {
		t.Fatalf("cloud = %+v, want 2 entries", got)
	}
	if got[0].Keyword != "品質" || got[0].Count != 3 || got[0].Weight != 1 {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].Keyword != "価格" || math.Abs(got[1].Weight-2.0/3) > 1e-9 {
		t.Errorf("second = %+v", got[1])
	}
	if got[0].CaseLabel != "事例II" {
		t.Errorf("case label = %q", got[0].CaseLabel)
	}

	all := KeywordCloud(docs, "", 1, 2)
	if len(all) != 1 || all[0].Keyword != "生産" || all[0].CaseLabel != AllCases {
		t.Errorf("overall cloud = %+v", all)
	}

	if empty := KeywordCloud(docs, "事例IV", 40, 2); empty == nil || len(empty) != 0 {
		t.Errorf("unknown case cloud = %#v, want empty slice", empty)
	}
}

func TestThemes(t *testing.T) {
	docs := []Document{
		{CaseLabel: "事例II", Text: "品質 価格"},
		{CaseLabel: "事例II", Text: "品質 販路"},
	}
	overall, byCase := Themes(docs, 2)
	if len(overall) != 2 {
		t.Fatalf("themes = %+v", overall)
	}
	if overall[0].Keyword != "品質" {
		t.Errorf("top theme = %q, want 品質", overall[0].Keyword)
	}
	// 1 / sqrt(1 + (ln(3/2)+1)^2)
	idf := math.Log(1.5) + 1
	want := 1 / math.Sqrt(1+idf*idf)
	if math.Abs(overall[0].Score-want) > 1e-9 {
		t.Errorf("score = %v, want %v", overall[0].Score, want)
	}
	if overall[1].Keyword != "価格" {
		t.Errorf("tie should break by keyword, got %q", overall[1].Keyword)
	}
	if len(byCase["事例II"]) != 2 {
		t.Errorf("byCase = %+v", byCase)
	}
}

func TestInsightsRecentYears(t *testing.T) {
	docs := []Document{
		{Year: "令和5年", CaseLabel: "事例II", Text: "品質 品質 価格"},
		{Year: "令和5年", CaseLabel: "事例I", Text: "組織 組織"},
		{Year: "令和4年", CaseLabel: "事例III", Text: "生産 生産"},
	}

	got := Insights(docs, InsightOptions{RecentYears: 1})
	if got.DocumentCount != 2 {
		t.Errorf("document count = %d, want 2", got.DocumentCount)
	}
	if len(got.SelectedYears) != 1 || got.SelectedYears[0] != "令和5年" {
		t.Errorf("selected = %v", got.SelectedYears)
	}
	if len(got.AvailableYears) != 2 {
		t.Errorf("available = %v", got.AvailableYears)
	}
	if len(got.CaseLabels) != 2 || got.CaseLabels[0] != "事例I" {
		t.Errorf("case labels = %v", got.CaseLabels)
	}
	if cloud := got.CloudByCase["事例II"]; len(cloud) != 1 || cloud[0].Keyword != "品質" {
		t.Errorf("事例II cloud = %+v", cloud)
	}
	if _, ok := got.CloudByCase["事例III"]; ok {
		t.Error("事例III should be outside the selected years")
	}

	empty := Insights(nil, InsightOptions{})
	if empty.DocumentCount != 0 || empty.CloudOverall == nil || empty.CaseLabels == nil {
		t.Errorf("empty insights = %+v", empty)
	}
}
