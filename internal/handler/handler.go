package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/casedrill/internal/analysis"
	"github.com/pavelanni/casedrill/internal/i18n"
	"github.com/pavelanni/casedrill/internal/model"
	"github.com/pavelanni/casedrill/internal/recommend"
	"github.com/pavelanni/casedrill/internal/resources"
	"github.com/pavelanni/casedrill/internal/scoring"
	"github.com/pavelanni/casedrill/internal/store"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// Config holds the tunables shared by all handlers.
type Config struct {
	Weights    scoring.Weights
	Library    *resources.Library
	Limits     model.PlanLimits
	AdminToken string
	// MaxUploadBytes limits problem file upload bodies. Zero means 10 MiB.
	MaxUploadBytes int64
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store   *store.Store
	plans   *recommend.Service
	library *resources.Library
	bundles *scoring.BundleEvaluator
	corpus  *analysis.CorpusCache
	config  Config
}

// New creates a new Handler.
func New(s *store.Store, cfg Config) (*Handler, error) {
	if s == nil {
		return nil, errors.New("handler needs a store")
	}
	if cfg.Library == nil {
		cfg.Library = resources.Default()
	}
	if cfg.Weights == (scoring.Weights{}) {
		cfg.Weights = scoring.DefaultWeights
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{
		store:   s,
		plans:   recommend.NewService(s, cfg.Library, cfg.Limits),
		library: cfg.Library,
		bundles: scoring.NewBundleEvaluator(),
		corpus:  analysis.NewCorpusCache(s.ListProblems),
		config:  cfg,
	}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/problems", h.handleListProblems)
		r.Get("/problems/{problemID}", h.handleGetProblem)
		r.Post("/score", h.handleScore)
		r.Post("/submissions", h.handleSubmit)
		r.Get("/users/{userID}/plan", h.handlePlan)
		r.Get("/analysis/keywords", h.handleKeywordInsights)
		r.Get("/analysis/question-types", h.handleQuestionTypes)
		r.Post("/analysis/scan", h.handleScan)

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAdminToken(h.config.AdminToken))
			r.Post("/problems", h.handleUploadProblems)
			r.Get("/export", h.handleExport)
		})
	})
}

// scorer returns a scoring engine speaking the request's language.
func (h *Handler) scorer(r *http.Request) *scoring.Engine {
	return scoring.New(i18n.FromContext(r.Context()), scoring.WithWeights(h.config.Weights))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// internalError logs err and hides it from the client.
func internalError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	writeError(w, http.StatusInternalServerError, msg)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	count, err := h.store.ProblemCount()
	if err != nil {
		internalError(w, "count problems", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "problems": count})
}

func (h *Handler) handleListProblems(w http.ResponseWriter, r *http.Request) {
	problems, err := h.store.ListProblems()
	if err != nil {
		internalError(w, "list problems", err)
		return
	}
	if problems == nil {
		problems = []model.Problem{}
	}
	writeJSON(w, http.StatusOK, problems)
}

func (h *Handler) handleGetProblem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "problemID")
	if !ok {
		return
	}
	p, err := h.store.GetProblem(id)
	if err != nil {
		internalError(w, "get problem", err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "problem not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type scoreRequest struct {
	QuestionID int64               `json:"question_id,omitempty"`
	Question   *model.QuestionSpec `json:"question,omitempty"`
	Answer     string              `json:"answer"`
}

// handleScore scores one answer against a stored question or an inline one.
func (h *Handler) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var spec model.QuestionSpec
	switch {
	case req.QuestionID != 0:
		q, err := h.store.GetQuestion(req.QuestionID)
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "question not found")
			return
		}
		if err != nil {
			internalError(w, "get question", err)
			return
		}
		spec = q.Spec()
	case req.Question != nil:
		spec = *req.Question
	default:
		writeError(w, http.StatusBadRequest, "question_id or question is required")
		return
	}

	writeJSON(w, http.StatusOK, h.scorer(r).ScoreAnswer(req.Answer, spec))
}

func (h *Handler) handlePlan(w http.ResponseWriter, r *http.Request) {
	userID, ok := idParam(w, r, "userID")
	if !ok {
		return
	}
	plan, err := h.plans.Plan(r.Context(), userID)
	if err != nil {
		internalError(w, "generate plan", err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}
