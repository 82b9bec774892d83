package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	taskhttp "github.com/jaekwang-park/taskscribe/internal/http"
	"github.com/jaekwang-park/taskscribe/internal/model"
	"github.com/jaekwang-park/taskscribe/internal/ratelimit"
	"github.com/jaekwang-park/taskscribe/internal/repository"
	"github.com/jaekwang-park/taskscribe/internal/service"
	"github.com/jaekwang-park/taskscribe/internal/session"
	"github.com/jaekwang-park/taskscribe/internal/storage/badgerdb"
)

type testApp struct {
	cfg  taskhttp.ServerConfig
	svcs taskhttp.Services
}

func newTestApp(t *testing.T) testApp {
	t.Helper()
	db, err := badgerdb.OpenInMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	issuer, err := session.NewIssuer([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatal(err)
	}
	authSvc, err := service.NewAuthService(repository.NewBadgerUser(db), issuer, bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}

	return testApp{
		cfg: taskhttp.ServerConfig{
			Limiter:  ratelimit.NewMemory(100),
			Resolver: issuer,
			Registry: prometheus.NewRegistry(),
		},
		svcs: taskhttp.Services{
			Auth:  authSvc,
			Tasks: service.NewTaskService(repository.NewBadgerTask(db)),
		},
	}
}

func (a testApp) handler() http.Handler {
	return taskhttp.NewHandler(a.cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), a.svcs)
}

func do(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func register(t *testing.T, h http.Handler, email string) string {
	t.Helper()
	w := do(t, h, http.MethodPost, "/api/auth/register", "", `{"email":"`+email+`","password":"secret1","name":"Tester"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("register %s: %d %s", email, w.Code, w.Body.String())
	}
	var out service.AuthResult
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return out.Token
}

func TestRouter_HealthEndpoint(t *testing.T) {
	w := do(t, newTestApp(t).handler(), http.MethodGet, "/health", "", "")

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestRouter_TasksRequireSession(t *testing.T) {
	h := newTestApp(t).handler()

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/tasks"},
		{http.MethodPost, "/api/tasks"},
		{http.MethodGet, "/api/tasks/abc"},
		{http.MethodPut, "/api/tasks/abc"},
		{http.MethodDelete, "/api/tasks/abc"},
	} {
		w := do(t, h, tc.method, tc.path, "", "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", tc.method, tc.path, w.Code)
		}
	}
}

func TestRouter_TaskLifecycle(t *testing.T) {
	h := newTestApp(t).handler()
	token := register(t, h, "ann@example.com")

	w := do(t, h, http.MethodPost, "/api/tasks", token, `{"title":"Pay rent","dueDate":"2025-01-05T00:00:00Z"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	var created model.Task
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}

	w = do(t, h, http.MethodPut, "/api/tasks/"+created.ID, token, `{"completed":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update: %d %s", w.Code, w.Body.String())
	}
	var updated model.Task
	if err := json.NewDecoder(w.Body).Decode(&updated); err != nil {
		t.Fatal(err)
	}
	if !updated.Completed || updated.Title != "Pay rent" || updated.DueDate == nil {
		t.Errorf("unexpected updated task %+v", updated)
	}

	w = do(t, h, http.MethodGet, "/api/tasks", token, "")
	var list []model.Task
	if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != created.ID {
		t.Errorf("unexpected list %+v", list)
	}

	if w := do(t, h, http.MethodDelete, "/api/tasks/"+created.ID, token, ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", w.Code)
	}
	if w := do(t, h, http.MethodGet, "/api/tasks/"+created.ID, token, ""); w.Code != http.StatusNotFound {
		t.Errorf("get after delete: expected 404, got %d", w.Code)
	}
}

func TestRouter_CrossOwnerAccessIsNotFound(t *testing.T) {
	h := newTestApp(t).handler()
	ann := register(t, h, "ann@example.com")
	bob := register(t, h, "bob@example.com")

	w := do(t, h, http.MethodPost, "/api/tasks", ann, `{"title":"ann only"}`)
	var task model.Task
	if err := json.NewDecoder(w.Body).Decode(&task); err != nil {
		t.Fatal(err)
	}

	missing := do(t, h, http.MethodGet, "/api/tasks/00000000-0000-0000-0000-000000000000", bob, "")
	foreign := do(t, h, http.MethodGet, "/api/tasks/"+task.ID, bob, "")
	if foreign.Code != http.StatusNotFound || missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for both, got foreign=%d missing=%d", foreign.Code, missing.Code)
	}
	if foreign.Body.String() != missing.Body.String() {
		t.Errorf("foreign and missing responses differ:\n%s\n%s", foreign.Body.String(), missing.Body.String())
	}

	if w := do(t, h, http.MethodPut, "/api/tasks/"+task.ID, bob, `{"title":"bob's now"}`); w.Code != http.StatusNotFound {
		t.Errorf("foreign update: expected 404, got %d", w.Code)
	}
	if w := do(t, h, http.MethodDelete, "/api/tasks/"+task.ID, bob, ""); w.Code != http.StatusNotFound {
		t.Errorf("foreign delete: expected 404, got %d", w.Code)
	}

	w = do(t, h, http.MethodGet, "/api/tasks", bob, "")
	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Errorf("bob should see no tasks, got %s", body)
	}

	w = do(t, h, http.MethodGet, "/api/tasks/"+task.ID, ann, "")
	var still model.Task
	if err := json.NewDecoder(w.Body).Decode(&still); err != nil {
		t.Fatal(err)
	}
	if still.Title != "ann only" {
		t.Errorf("ann's task changed: %+v", still)
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	h := newTestApp(t).handler()
	do(t, h, http.MethodGet, "/health", "", "")

	w := do(t, h, http.MethodGet, "/metrics", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("taskscribe_http_requests_total")) {
		t.Errorf("expected request counter in metrics output")
	}
}

func TestRouter_AuthRateLimited(t *testing.T) {
	app := newTestApp(t)
	app.cfg.Limiter = ratelimit.NewMemory(2)
	h := app.handler()

	var last int
	for i := 0; i < 3; i++ {
		last = do(t, h, http.MethodPost, "/api/auth/login", "", `{"email":"x@example.com","password":"secret1"}`).Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("expected 429 on third attempt, got %d", last)
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	w := do(t, newTestApp(t).handler(), http.MethodGet, "/unknown", "", "")
	// Unknown paths are not public, so the session check answers first.
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", w.Code)
	}
}

func TestRouter_Me(t *testing.T) {
	h := newTestApp(t).handler()

	if w := do(t, h, http.MethodGet, "/api/auth/me", "", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("without token: expected 401, got %d", w.Code)
	}

	token := register(t, h, "ann@example.com")
	w := do(t, h, http.MethodGet, "/api/auth/me", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("me: %d %s", w.Code, w.Body.String())
	}
	var me model.UserSummary
	if err := json.NewDecoder(w.Body).Decode(&me); err != nil {
		t.Fatal(err)
	}
	if me.Email != "ann@example.com" || me.Name != "Tester" || me.ID == "" {
		t.Errorf("unexpected user %+v", me)
	}
}
