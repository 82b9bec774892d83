package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/jaekwang-park/taskscribe/internal/session"
)

// TokenResolver validates a session token and returns the caller identity.
type TokenResolver interface {
	Resolve(token string) (session.Identity, error)
}

type Auth struct {
	resolver TokenResolver
	logger   *slog.Logger
}

func NewAuth(resolver TokenResolver, logger *slog.Logger) *Auth {
	return &Auth{resolver: resolver, logger: logger}
}

// isPublic reports whether p is served without a session.
func isPublic(p string) bool {
	switch p {
	case "/health", "/metrics", "/api/auth/register", "/api/auth/login":
		return true
	}
	return false
}

func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublic(path.Clean(r.URL.Path)) {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authorization header required")
			return
		}

		tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || tokenStr == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid authorization header format")
			return
		}

		id, err := a.resolver.Resolve(tokenStr)
		if err != nil {
			// Expired and forged tokens get the same response.
			if !errors.Is(err, session.ErrExpiredToken) {
				a.logger.DebugContext(r.Context(), "token rejected",
					"error", err,
					"request_id", RequestIDFrom(r.Context()),
				)
			}
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(SetUserID(r.Context(), id.UserID)))
	})
}
