package handler

import (
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/pavelanni/casedrill/internal/model"
	"github.com/pavelanni/casedrill/internal/store"
)

// defaultMaxUploadBytes caps the request body of a problem file upload.
const defaultMaxUploadBytes = 10 << 20

// requireAdminToken rejects requests without "Authorization: Bearer <token>".
// An empty token leaves the admin routes open.
func requireAdminToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" {
				got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
				if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
					writeError(w, http.StatusUnauthorized, "admin token required")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// handleUploadProblems imports a problems JSON file sent as the multipart
// field "problems_file".
func (h *Handler) handleUploadProblems(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.config.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("problems_file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		internalError(w, "read upload", err)
		return
	}

	res, err := h.store.ImportProblems(header.Filename, data)
	if errors.Is(err, store.ErrInvalidImport) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		internalError(w, "import problems", err)
		return
	}
	if res.Inserted > 0 {
		h.corpus.Invalidate()
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	exports, err := h.store.ExportAttempts()
	if err != nil {
		internalError(w, "export attempts", err)
		return
	}
	if exports == nil {
		exports = []model.AttemptExport{}
	}
	writeJSON(w, http.StatusOK, exports)
}
