package i18n

import (
	"log/slog"
	"net/http"
)

// Middleware injects a catalog chosen from Accept-Language, falling back to lang.
func Middleware(lang string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cat, err := New(r.Header.Get("Accept-Language"), lang)
			if err != nil {
				slog.Error("create catalog", "error", err)
				cat = Default()
			}
			ctx := WithCatalog(r.Context(), cat)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
