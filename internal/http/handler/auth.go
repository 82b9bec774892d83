package handler

import (
	"net/http"
	"strings"

	"github.com/jaekwang-park/taskscribe/internal/middleware"
	"github.com/jaekwang-park/taskscribe/internal/service"
)

// AuthHandler handles registration, login and the caller's profile.
type AuthHandler struct {
	svc *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// ServeHTTP routes /api/auth/* requests.
func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/auth/")
	path = strings.TrimRight(path, "/")

	switch path {
	case "register":
		h.require(http.MethodPost, w, r, h.handleRegister)
	case "login":
		h.require(http.MethodPost, w, r, h.handleLogin)
	case "me":
		h.require(http.MethodGet, w, r, h.handleMe)
	default:
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "endpoint not found")
	}
}

func (h *AuthHandler) require(method string, w http.ResponseWriter, r *http.Request, handler func(http.ResponseWriter, *http.Request)) {
	if r.Method != method {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	handler(w, r)
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var input service.RegisterInput
	if !decodeJSON(w, r, &input) {
		return
	}

	out, err := h.svc.Register(r.Context(), input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, out)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var input service.LoginInput
	if !decodeJSON(w, r, &input) {
		return
	}

	out, err := h.svc.Login(r.Context(), input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, out)
}

func (h *AuthHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Me(r.Context(), middleware.GetUserID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, user)
}
