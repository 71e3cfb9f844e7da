package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/casedrill/internal/analysis"
	"github.com/pavelanni/casedrill/internal/i18n"
	"github.com/pavelanni/casedrill/internal/model"
	"github.com/pavelanni/casedrill/internal/store"
)

const testToken = "s3cret"

func newTestServer(t *testing.T) (*httptest.Server, *store.Store) {
	t.Helper()
	return newTestServerWithConfig(t, Config{AdminToken: testToken})
}

func newTestServerWithConfig(t *testing.T, cfg Config) (*httptest.Server, *store.Store) {
	t.Helper()
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	h, err := New(s, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r := chi.NewRouter()
	r.Use(i18n.Middleware("ja"))
	h.Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, s
}

func insertCaseII(t *testing.T, s *store.Store) *model.Problem {
	t.Helper()
	id, err := s.InsertProblem(model.Problem{
		Year:      "令和5年",
		CaseLabel: "事例II",
		Title:     "B社",
		Context:   "B社は地域の高齢者向けに惣菜を販売している。",
		Questions: []model.Question{
			{
				Prompt:       "B社の強みを述べよ。",
				MaxScore:     20,
				ModelAnswer:  "地元食材の品質と顧客との信頼関係",
				Keywords:     []string{"品質", "信頼関係"},
				QuestionType: "SWOT",
			},
			{
				Prompt:       "新規顧客獲得の施策を助言せよ。",
				MaxScore:     30,
				ModelAnswer:  "子育て世帯をターゲットに口コミを促進し来店頻度を高める",
				Keywords:     []string{"ターゲット", "口コミ"},
				QuestionType: "施策",
			},
		},
	})
	if err != nil {
		t.Fatalf("InsertProblem: %v", err)
	}
	p, err := s.GetProblem(id)
	if err != nil || p == nil {
		t.Fatalf("GetProblem: %v", err)
	}
	return p
}

func doJSON(t *testing.T, method, url string, body any, header map[string]string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, http.MethodGet, srv.URL+"/healthz", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["status"] != "ok" || body["problems"] != float64(0) {
		t.Errorf("body = %v", body)
	}
}

func TestProblems(t *testing.T) {
	srv, s := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/problems", nil, nil)
	if got := decode[[]model.Problem](t, resp); got == nil || len(got) != 0 {
		t.Errorf("empty list = %#v", got)
	}

	p := insertCaseII(t, s)
	resp = doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/problems/%d", srv.URL, p.ID), nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	if got := decode[model.Problem](t, resp); len(got.Questions) != 2 {
		t.Errorf("problem = %+v", got)
	}

	tests := []struct {
		path string
		want int
	}{
		{"/api/problems/999", http.StatusNotFound},
		{"/api/problems/abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp := doJSON(t, http.MethodGet, srv.URL+tt.path, nil, nil)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			if body := decode[map[string]string](t, resp); body["error"] == "" {
				t.Error("missing error body")
			}
		})
	}
}

func TestScore(t *testing.T) {
	srv, s := newTestServer(t)
	p := insertCaseII(t, s)

	t.Run("stored question", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/score", map[string]any{
			"question_id": p.Questions[0].ID,
			"answer":      "地元食材の品質と顧客との信頼関係が強みである。",
		}, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		res := decode[model.ScoreResult](t, resp)
		if res.Score <= 0 || res.Score > 20 {
			t.Errorf("score = %v", res.Score)
		}
		if !res.KeywordHits.Hit("品質") || !res.KeywordHits.Hit("信頼関係") {
			t.Errorf("hits = %v", res.KeywordHits)
		}
	})

	t.Run("inline question in English", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/score", map[string]any{
			"question": model.QuestionSpec{MaxScore: 10, Keywords: []string{"品質"}},
			"answer":   "   ",
		}, map[string]string{"Accept-Language": "en"})
		res := decode[model.ScoreResult](t, resp)
		if res.Score != 0 || res.Feedback != "No answer was entered." {
			t.Errorf("result = %+v", res)
		}
	})

	errs := []struct {
		name string
		body any
		want int
	}{
		{"bad json", "{", http.StatusBadRequest},
		{"no question", map[string]any{"answer": "x"}, http.StatusBadRequest},
		{"unknown question", map[string]any{"question_id": 999, "answer": "x"}, http.StatusNotFound},
	}
	for _, tt := range errs {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, http.MethodPost, srv.URL+"/api/score", tt.body, nil)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestSubmitAndPlan(t *testing.T) {
	srv, s := newTestServer(t)
	p := insertCaseII(t, s)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/submissions", map[string]any{
		"user_id":    7,
		"problem_id": p.ID,
		"answers": []map[string]any{
			{"question_id": p.Questions[0].ID, "answer_text": "品質が強みである。"},
		},
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	sub := decode[SubmissionResponse](t, resp)
	if sub.AttemptID == 0 {
		t.Error("attempt not recorded")
	}
	if len(sub.Results) != 2 {
		t.Fatalf("results = %+v", sub.Results)
	}
	if sub.TotalMaxScore != 50 {
		t.Errorf("total max = %v, want 50", sub.TotalMaxScore)
	}
	if sub.Results[1].Result.Score != 0 {
		t.Errorf("unanswered question scored %v", sub.Results[1].Result.Score)
	}
	if got := sub.Results[0].Learning.FocusKeywords; len(got) != 1 || got[0] != "信頼関係" {
		t.Errorf("focus keywords = %v", got)
	}
	if sub.Bundle == nil || sub.Bundle.CaseLabel != "事例II" {
		t.Errorf("bundle = %+v", sub.Bundle)
	}

	attempts, err := s.ListAttempts(7)
	if err != nil || len(attempts) != 1 {
		t.Fatalf("attempts = %v, %v", attempts, err)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/users/7/plan", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("plan status = %d", resp.StatusCode)
	}
	plan := decode[model.LearningPlan](t, resp)
	if plan.UserID != 7 || !plan.Context.HasPersonalHistory {
		t.Errorf("plan = %+v", plan)
	}
	if len(plan.ResourceRecommendations) == 0 {
		t.Error("expected resource recommendations for missed keywords")
	}
}

func TestSubmitErrors(t *testing.T) {
	srv, s := newTestServer(t)
	p := insertCaseII(t, s)

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"missing user", map[string]any{"problem_id": p.ID}, http.StatusBadRequest},
		{"unknown problem", map[string]any{"user_id": 1, "problem_id": 999}, http.StatusNotFound},
		{"foreign question", map[string]any{
			"user_id": 1, "problem_id": p.ID,
			"answers": []map[string]any{{"question_id": 999, "answer_text": "x"}},
		}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, http.MethodPost, srv.URL+"/api/submissions", tt.body, nil)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestAnalysisRoutes(t *testing.T) {
	srv, s := newTestServer(t)
	insertCaseII(t, s)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/analysis/keywords?min_occurrence=1", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("keywords status = %d", resp.StatusCode)
	}
	insights := decode[analysis.KeywordInsights](t, resp)
	if insights.DocumentCount != 2 || len(insights.CloudOverall) == 0 {
		t.Errorf("insights = %+v", insights)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/analysis/keywords?top_n=-1", nil, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("negative top_n status = %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/analysis/question-types", nil, nil)
	qt := decode[questionTypeResponse](t, resp)
	if qt.Records != 2 || len(qt.Sequences) != 1 {
		t.Errorf("question types = %+v", qt)
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/analysis/scan", map[string]string{"text": "品質、品質、価格。"}, nil)
	scan := decode[analysis.ScanResult](t, resp)
	if len(scan.Duplicates) != 1 || len(scan.Enumerations) != 1 {
		t.Errorf("scan = %+v", scan)
	}
}

func uploadRequest(t *testing.T, url, filename, content, token string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("problems_file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	fw.Write([]byte(content))
	mw.Close()

	req, err := http.NewRequest(http.MethodPost, url, &buf)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestAdminUploadAndExport(t *testing.T) {
	srv, _ := newTestServer(t)
	url := srv.URL + "/api/admin/problems"
	keywords := srv.URL + "/api/analysis/keywords?min_occurrence=1"
	problems := `[{"year":"令和5年","case_label":"事例II","questions":[{"prompt":"強みは","max_score":20,"keywords":["品質"]}]}]`

	resp := doJSON(t, http.MethodGet, keywords, nil, nil)
	if insights := decode[analysis.KeywordInsights](t, resp); insights.DocumentCount != 0 {
		t.Fatalf("document count before upload = %d", insights.DocumentCount)
	}

	if resp := uploadRequest(t, url, "p.json", problems, ""); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token status = %d", resp.StatusCode)
	}
	if resp := uploadRequest(t, url, "p.json", problems, "wrong"); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d", resp.StatusCode)
	}

	resp = uploadRequest(t, url, "p.json", problems, testToken)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}
	if res := decode[store.ImportResult](t, resp); res.Inserted != 1 {
		t.Errorf("import = %+v", res)
	}

	resp = uploadRequest(t, url, "p.json", problems, testToken)
	if res := decode[store.ImportResult](t, resp); !res.Unchanged {
		t.Errorf("re-upload = %+v, want unchanged", res)
	}

	if resp := uploadRequest(t, url, "bad.json", "{", testToken); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid upload status = %d", resp.StatusCode)
	}

	// The upload invalidates the cached corpus.
	resp = doJSON(t, http.MethodGet, keywords, nil, nil)
	if insights := decode[analysis.KeywordInsights](t, resp); insights.DocumentCount != 1 {
		t.Errorf("document count after upload = %d", insights.DocumentCount)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/admin/export", nil,
		map[string]string{"Authorization": "Bearer " + testToken})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status = %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if strings.TrimSpace(string(body)) != "[]" {
		t.Errorf("export = %s, want []", body)
	}
}

func TestAdminUploadBodyLimit(t *testing.T) {
	srv, s := newTestServerWithConfig(t, Config{AdminToken: testToken, MaxUploadBytes: 1024})
	url := srv.URL + "/api/admin/problems"

	big := `[{"year": "令和5年", "case_label": "事例II", "title": "` + strings.Repeat("x", 4096) + `"}]`
	resp := uploadRequest(t, url, "big.json", big, testToken)
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized upload status = %d, want 413", resp.StatusCode)
	}
	if n, _ := s.ProblemCount(); n != 0 {
		t.Errorf("problem count = %d after rejected upload, want 0", n)
	}

	small := `[{"year": "令和5年", "case_label": "事例II", "title": "B社"}]`
	resp = uploadRequest(t, url, "small.json", small, testToken)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("small upload status = %d, want 200", resp.StatusCode)
	}
	if n, _ := s.ProblemCount(); n != 1 {
		t.Errorf("problem count = %d, want 1", n)
	}
}

func TestAdminUploadNotMultipart(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/admin/problems", strings.NewReader("[]"))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+testToken)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
