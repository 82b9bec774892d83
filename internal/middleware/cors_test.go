package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jaekwang-park/taskscribe/internal/middleware"
)

func TestCORS(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	t.Run("preflight from allowed origin", func(t *testing.T) {
		h := middleware.CORS("http://localhost:5173")(inner)
		req := httptest.NewRequest(http.MethodOptions, "/api/tasks", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		req.Header.Set("Access-Control-Request-Method", "POST")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		if w.Code != http.StatusNoContent {
			t.Errorf("expected 204, got %d", w.Code)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
			t.Errorf("unexpected allow-origin %q", got)
		}
	})

	t.Run("other origin gets no headers", func(t *testing.T) {
		h := middleware.CORS("http://localhost:5173")(inner)
		req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
		req.Header.Set("Origin", "http://evil.example")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("expected no allow-origin, got %q", got)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		h := middleware.CORS("")(inner)
		req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		if w.Header().Get("Access-Control-Allow-Origin") != "" || w.Code != http.StatusOK {
			t.Errorf("expected pass-through without headers")
		}
	})
}
