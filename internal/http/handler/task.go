package handler

import (
	"net/http"
	"strings"

	"github.com/jaekwang-park/taskscribe/internal/middleware"
	"github.com/jaekwang-park/taskscribe/internal/service"
)

type TaskHandler struct {
	svc *service.TaskService
}

func NewTaskHandler(svc *service.TaskService) *TaskHandler {
	return &TaskHandler{svc: svc}
}

// ServeHTTP routes /api/tasks and /api/tasks/{id}
func (h *TaskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/tasks")
	path = strings.Trim(path, "/")

	if strings.Contains(path, "/") {
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "endpoint not found")
		return
	}

	// /api/tasks/{id}
	if taskID := path; taskID != "" {
		switch r.Method {
		case http.MethodGet:
			h.handleGet(w, r, taskID)
		case http.MethodPut:
			h.handleUpdate(w, r, taskID)
		case http.MethodDelete:
			h.handleDelete(w, r, taskID)
		default:
			WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		}
		return
	}

	// /api/tasks
	switch r.Method {
	case http.MethodGet:
		h.handleList(w, r)
	case http.MethodPost:
		h.handleCreate(w, r)
	default:
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	}
}

func (h *TaskHandler) handleList(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.svc.List(r.Context(), middleware.GetUserID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var input service.CreateTaskInput
	if !decodeJSON(w, r, &input) {
		return
	}

	task, err := h.svc.Create(r.Context(), middleware.GetUserID(r), input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) handleGet(w http.ResponseWriter, r *http.Request, taskID string) {
	task, err := h.svc.Get(r.Context(), middleware.GetUserID(r), taskID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) handleUpdate(w http.ResponseWriter, r *http.Request, taskID string) {
	var input service.UpdateTaskInput
	if !decodeJSON(w, r, &input) {
		return
	}

	task, err := h.svc.Update(r.Context(), middleware.GetUserID(r), taskID, input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) handleDelete(w http.ResponseWriter, r *http.Request, taskID string) {
	if err := h.svc.Delete(r.Context(), middleware.GetUserID(r), taskID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
