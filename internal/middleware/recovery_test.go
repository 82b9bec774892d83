package middleware_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jaekwang-park/taskscribe/internal/middleware"
)

func TestRecovery(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
		wantCode   string
		wantLogged bool
	}{
		{
			name: "no panic",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusCreated)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "panic before write",
			handler: func(w http.ResponseWriter, r *http.Request) {
				panic("pq: password authentication failed for user admin")
			},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
			wantLogged: true,
		},
		{
			name: "panic after write keeps status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(`[{"id":"partial"`))
				panic("encoder blew up")
			},
			wantStatus: http.StatusOK,
			wantLogged: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logBuf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&logBuf, nil))

			h := middleware.RequestID(middleware.Recovery(logger)(tt.handler))
			req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
			req.Header.Set(middleware.RequestIDHeader, "req-42")
			w := httptest.NewRecorder()

			h.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if strings.Contains(w.Body.String(), "password") {
				t.Errorf("response leaked panic detail: %s", w.Body.String())
			}

			logged := strings.Contains(logBuf.String(), "panic recovered")
			if logged != tt.wantLogged {
				t.Errorf("panic logged = %v, want %v: %s", logged, tt.wantLogged, logBuf.String())
			}
			if tt.wantLogged && !strings.Contains(logBuf.String(), "request_id=req-42") {
				t.Errorf("expected request id in log, got: %s", logBuf.String())
			}

			if tt.wantCode == "" {
				return
			}
			var body struct {
				Error struct {
					Code    string `json:"code"`
					Message string `json:"message"`
				} `json:"error"`
			}
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if body.Error.Code != tt.wantCode || body.Error.Message != "internal server error" {
				t.Errorf("unexpected error body: %+v", body.Error)
			}
		})
	}
}

func TestRecovery_ReraisesAbortHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	})
	h := middleware.Recovery(logger)(inner)

	defer func() {
		if v := recover(); v != http.ErrAbortHandler {
			t.Errorf("expected ErrAbortHandler to propagate, got %v", v)
		}
	}()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	t.Error("expected panic")
}
