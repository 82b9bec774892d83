package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"path"
	"strings"

	"github.com/jaekwang-park/taskscribe/internal/ratelimit"
)

// RateLimit throttles POST requests under prefix per client IP. Limiter
// errors are logged and the request is let through.
func RateLimit(limiter ratelimit.Limiter, prefix string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || !strings.HasPrefix(path.Clean(r.URL.Path), prefix) {
				next.ServeHTTP(w, r)
				return
			}

			allowed, err := limiter.Allow(r.Context(), clientIP(r))
			if err != nil {
				logger.WarnContext(r.Context(), "rate limiter unavailable",
					"error", err,
					"request_id", RequestIDFrom(r.Context()),
				)
				allowed = true
			}
			if !allowed {
				w.Header().Set("Retry-After", "60")
				writeError(w, http.StatusTooManyRequests, "TOO_MANY_REQUESTS", "too many requests, try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
