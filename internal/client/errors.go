package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jaekwang-park/taskscribe/internal/view"
)

var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation failed")
	ErrConflict         = errors.New("conflict")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrTodoNotFound     = errors.New("todo not found")
	ErrIndexOutOfRange  = view.ErrIndexOutOfRange
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
	Fields  []FieldError
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// Is matches the client sentinels by status and error code.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrValidation:
		return e.Status == http.StatusBadRequest && e.Code == "VALIDATION_ERROR"
	case ErrConflict:
		return e.Status == http.StatusConflict || e.Code == "EMAIL_IN_USE"
	}
	return false
}
