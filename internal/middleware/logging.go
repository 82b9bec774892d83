package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// Logging writes one line per request. Server errors log at ERROR, client
// errors at WARN, everything else at INFO.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newResponseRecorder(w)

			next.ServeHTTP(rec, r)

			logger.Log(r.Context(), statusLevel(rec.status), "request",
				"method", r.Method,
				"path", r.URL.Path,
				"route", routeLabel(r.URL.Path),
				"status", rec.status,
				"bytes", rec.bytes,
				"duration_ms", time.Since(start).Milliseconds(),
				"remote", clientIP(r),
				"request_id", RequestIDFrom(r.Context()),
			)
		})
	}
}

func statusLevel(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
