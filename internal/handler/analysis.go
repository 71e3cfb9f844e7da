package handler

import (
	"net/http"
	"strconv"

	"github.com/pavelanni/casedrill/internal/analysis"
)

// intQuery reads a non-negative integer query parameter, returning def when
// it is absent.
func intQuery(r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (h *Handler) handleKeywordInsights(w http.ResponseWriter, r *http.Request) {
	var opts analysis.InsightOptions
	for name, dst := range map[string]*int{
		"recent_years":   &opts.RecentYears,
		"top_n":          &opts.TopN,
		"min_occurrence": &opts.MinOccurrence,
		"theme_top_n":    &opts.ThemeTopN,
	} {
		n, ok := intQuery(r, name, 0)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid "+name)
			return
		}
		*dst = n
	}

	docs, err := h.corpus.Corpus()
	if err != nil {
		internalError(w, "load corpus", err)
		return
	}
	writeJSON(w, http.StatusOK, analysis.Insights(docs, opts))
}

type questionTypeResponse struct {
	Frequency     analysis.FrequencyTable  `json:"frequency"`
	Sequences     []analysis.SequenceCount `json:"sequences"`
	LearningOrder map[string][]string      `json:"learning_order"`
	Records       int                      `json:"records"`
}

func (h *Handler) handleQuestionTypes(w http.ResponseWriter, r *http.Request) {
	recent, ok := intQuery(r, "recent_years", 3)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid recent_years")
		return
	}
	minSeq, ok := intQuery(r, "min_sequence_count", analysis.DefaultMinSequenceCount)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid min_sequence_count")
		return
	}

	problems, err := h.store.ListProblems()
	if err != nil {
		internalError(w, "list problems", err)
		return
	}
	records := analysis.RecordsFromProblems(problems)
	writeJSON(w, http.StatusOK, questionTypeResponse{
		Frequency:     analysis.ComputeFrequencyTable(records, recent),
		Sequences:     analysis.ComputeSequenceCounts(records, recent),
		LearningOrder: analysis.LearningOrder(records, recent, minSeq),
		Records:       len(records),
	})
}

func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, analysis.Scan(req.Text))
}
