package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/jaekwang-park/taskscribe/internal/middleware"
	"github.com/jaekwang-park/taskscribe/internal/service"
)

const maxBodySize = 1 << 20 // 1 MB

type ErrorBody struct {
	Code    string               `json:"code"`
	Message string               `json:"message"`
	Fields  []service.FieldError `json:"fields,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
		},
	})
}

// decodeJSON reads a size-limited JSON body into dst. A false return means
// an error response has already been written.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			WriteError(w, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "request body too large")
		case errors.Is(err, io.EOF):
			WriteError(w, http.StatusBadRequest, "INVALID_JSON", "request body required")
		default:
			WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		}
		return false
	}
	return true
}

// writeServiceError maps service errors to responses with fixed messages.
// Unexpected errors are logged with the request id and returned as an opaque 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrorBody{
			Code:    "VALIDATION_ERROR",
			Message: "validation failed",
			Fields:  verr.Fields,
		}})
	case errors.Is(err, service.ErrInvalidInput):
		WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", "validation failed")
	case errors.Is(err, service.ErrDuplicateEmail):
		WriteError(w, http.StatusBadRequest, "EMAIL_IN_USE", "email already registered")
	case errors.Is(err, service.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password")
	case errors.Is(err, service.ErrUnauthenticated):
		WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
	case errors.Is(err, service.ErrNotFound):
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "task not found")
	default:
		slog.ErrorContext(r.Context(), "internal error",
			"error", err.Error(),
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.RequestIDFrom(r.Context()),
		)
		WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
