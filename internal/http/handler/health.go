package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

type HealthHandler struct {
	checks map[string]Check
}

func NewHealthHandler(checks map[string]Check) *HealthHandler {
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "only GET is allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	result := map[string]string{"status": "ok"}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			slog.WarnContext(ctx, "health check failed", "check", name, "error", err)
			result[name] = "unavailable"
			result["status"] = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		result[name] = "ok"
	}

	WriteJSON(w, status, result)
}
