package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jaekwang-park/taskscribe/internal/model"
)

const (
	defaultTimeout   = 10 * time.Second
	maxErrorBodySize = 1 << 20
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	User  model.UserSummary `json:"user"`
	Token string            `json:"token"`
}

type CreateTaskRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	DueDate     *string `json:"dueDate,omitempty"`
}

// UpdateTaskRequest only carries the fields the server persists. Nil fields
// are omitted from the body and left unchanged by the server.
type UpdateTaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
	DueDate     *string `json:"dueDate,omitempty"`
}

type errorEnvelope struct {
	Error struct {
		Code    string       `json:"code"`
		Message string       `json:"message"`
		Fields  []FieldError `json:"fields"`
	} `json:"error"`
}

// APIClient talks to the task server over HTTP. The bearer token is
// attached to every task request once set.
type APIClient struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

type Option func(*APIClient)

func WithHTTPClient(c *http.Client) Option {
	return func(a *APIClient) { a.httpClient = c }
}

func NewAPIClient(baseURL string, opts ...Option) *APIClient {
	c := &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *APIClient) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *APIClient) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *APIClient) Register(ctx context.Context, req RegisterRequest) (AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", req, &out, false); err != nil {
		return AuthResponse{}, fmt.Errorf("register: %w", err)
	}
	return out, nil
}

func (c *APIClient) Login(ctx context.Context, req LoginRequest) (AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", req, &out, false); err != nil {
		return AuthResponse{}, fmt.Errorf("login: %w", err)
	}
	return out, nil
}

// Me returns the account the current token belongs to.
func (c *APIClient) Me(ctx context.Context) (model.UserSummary, error) {
	var out model.UserSummary
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &out, true); err != nil {
		return model.UserSummary{}, fmt.Errorf("me: %w", err)
	}
	return out, nil
}

func (c *APIClient) ListTasks(ctx context.Context) ([]model.Task, error) {
	var out []model.Task
	if err := c.do(ctx, http.MethodGet, "/api/tasks", nil, &out, true); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return out, nil
}

func (c *APIClient) CreateTask(ctx context.Context, req CreateTaskRequest) (model.Task, error) {
	var out model.Task
	if err := c.do(ctx, http.MethodPost, "/api/tasks", req, &out, true); err != nil {
		return model.Task{}, fmt.Errorf("create task: %w", err)
	}
	return out, nil
}

func (c *APIClient) UpdateTask(ctx context.Context, id string, req UpdateTaskRequest) (model.Task, error) {
	var out model.Task
	if err := c.do(ctx, http.MethodPut, taskPath(id), req, &out, true); err != nil {
		return model.Task{}, fmt.Errorf("update task: %w", err)
	}
	return out, nil
}

func (c *APIClient) DeleteTask(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, taskPath(id), nil, nil, true); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func taskPath(id string) string {
	return "/api/tasks/" + url.PathEscape(id)
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out any, authed bool) error {
	var token string
	if authed {
		token = c.Token()
		if token == "" {
			return ErrNotAuthenticated
		}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var env errorEnvelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBodySize)).Decode(&env); err == nil {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
		apiErr.Fields = env.Error.Fields
	}
	return apiErr
}

// formatDueDate renders a due date the way the server parses it.
func formatDueDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
