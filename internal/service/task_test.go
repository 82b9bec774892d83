package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/jaekwang-park/taskscribe/internal/model"
	"github.com/jaekwang-park/taskscribe/internal/repository"
	"github.com/jaekwang-park/taskscribe/internal/service"
	"github.com/jaekwang-park/taskscribe/internal/storage/badgerdb"
)

// mockTaskRepo implements repository.TaskRepository for testing
type mockTaskRepo struct {
	createFn  func(ctx context.Context, task model.Task) (model.Task, error)
	getByIDFn func(ctx context.Context, userID, taskID string) (model.Task, error)
	updateFn  func(ctx context.Context, userID, taskID string, patch model.TaskPatch) (model.Task, error)
	deleteFn  func(ctx context.Context, userID, taskID string) error
	listFn    func(ctx context.Context, userID string) ([]model.Task, error)
}

func (m *mockTaskRepo) Create(ctx context.Context, task model.Task) (model.Task, error) {
	return m.createFn(ctx, task)
}
func (m *mockTaskRepo) GetByID(ctx context.Context, userID, taskID string) (model.Task, error) {
	return m.getByIDFn(ctx, userID, taskID)
}
func (m *mockTaskRepo) Update(ctx context.Context, userID, taskID string, patch model.TaskPatch) (model.Task, error) {
	return m.updateFn(ctx, userID, taskID, patch)
}
func (m *mockTaskRepo) Delete(ctx context.Context, userID, taskID string) error {
	return m.deleteFn(ctx, userID, taskID)
}
func (m *mockTaskRepo) List(ctx context.Context, userID string) ([]model.Task, error) {
	return m.listFn(ctx, userID)
}

var now = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func sampleTask() model.Task {
	return model.Task{
		ID:          "task-1",
		UserID:      "user-1",
		Title:       "Buy groceries",
		Description: "Milk, eggs, bread",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func openDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badgerdb.OpenInMemory()
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestTaskService_Create(t *testing.T) {
	tests := []struct {
		name      string
		input     service.CreateTaskInput
		repoErr   error
		wantErrIs error
		wantErr   bool
		wantDue   *time.Time
	}{
		{
			name:  "success",
			input: service.CreateTaskInput{Title: "Buy groceries", Description: strPtr("Milk")},
		},
		{
			name:    "with due date",
			input:   service.CreateTaskInput{Title: "Pay rent", DueDate: strPtr("2025-01-05T09:00:00+09:00")},
			wantDue: func() *time.Time { d := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC); return &d }(),
		},
		{
			name:  "completed flag is ignored",
			input: service.CreateTaskInput{Title: "Already done?", Completed: boolPtr(true)},
		},
		{
			name:      "empty title",
			input:     service.CreateTaskInput{Title: ""},
			wantErrIs: service.ErrInvalidInput,
		},
		{
			name:      "bad due date",
			input:     service.CreateTaskInput{Title: "x", DueDate: strPtr("tomorrow")},
			wantErrIs: service.ErrInvalidInput,
		},
		{
			name:    "repo error",
			input:   service.CreateTaskInput{Title: "Buy groceries"},
			repoErr: fmt.Errorf("db error"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockTaskRepo{
				createFn: func(_ context.Context, task model.Task) (model.Task, error) {
					if tt.repoErr != nil {
						return model.Task{}, tt.repoErr
					}
					task.ID = "task-1"
					return task, nil
				},
			}
			svc := service.NewTaskService(repo)
			got, err := svc.Create(context.Background(), "user-1", tt.input)

			if tt.wantErrIs != nil {
				if !errors.Is(err, tt.wantErrIs) {
					t.Fatalf("expected %v, got %v", tt.wantErrIs, err)
				}
				return
			}
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Title != tt.input.Title || got.UserID != "user-1" {
				t.Errorf("unexpected task %+v", got)
			}
			if got.Completed {
				t.Error("new task must start pending")
			}
			if tt.wantDue != nil && (got.DueDate == nil || !got.DueDate.Equal(*tt.wantDue)) {
				t.Errorf("expected due %v, got %v", tt.wantDue, got.DueDate)
			}
		})
	}
}

func TestTaskService_Get(t *testing.T) {
	tests := []struct {
		name      string
		repoErr   error
		wantErrIs error
	}{
		{name: "found"},
		{name: "not found", repoErr: repository.ErrNotFound, wantErrIs: service.ErrNotFound},
		{name: "db error", repoErr: errors.New("db down")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockTaskRepo{
				getByIDFn: func(_ context.Context, _, _ string) (model.Task, error) {
					if tt.repoErr != nil {
						return model.Task{}, tt.repoErr
					}
					return sampleTask(), nil
				},
			}
			svc := service.NewTaskService(repo)
			got, err := svc.Get(context.Background(), "user-1", "task-1")

			switch {
			case tt.wantErrIs != nil:
				if !errors.Is(err, tt.wantErrIs) {
					t.Fatalf("expected %v, got %v", tt.wantErrIs, err)
				}
			case tt.repoErr != nil:
				if err == nil || errors.Is(err, service.ErrNotFound) {
					t.Fatalf("expected wrapped db error, got %v", err)
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got.ID != "task-1" {
					t.Errorf("expected task-1, got %s", got.ID)
				}
			}
		})
	}
}

func TestTaskService_Update(t *testing.T) {
	tests := []struct {
		name       string
		input      service.UpdateTaskInput
		repoErr    error
		wantErrIs  error
		wantPatch  bool
		wantGetHit bool
	}{
		{
			name:      "title only",
			input:     service.UpdateTaskInput{Title: strPtr("New title")},
			wantPatch: true,
		},
		{
			name:      "toggle completed",
			input:     service.UpdateTaskInput{Completed: boolPtr(true)},
			wantPatch: true,
		},
		{
			name:       "empty patch returns current",
			input:      service.UpdateTaskInput{},
			wantGetHit: true,
		},
		{
			name:      "empty title rejected",
			input:     service.UpdateTaskInput{Title: strPtr("")},
			wantErrIs: service.ErrInvalidInput,
		},
		{
			name:      "bad due date rejected",
			input:     service.UpdateTaskInput{DueDate: strPtr("2025-13-45")},
			wantErrIs: service.ErrInvalidInput,
		},
		{
			name:      "not owned",
			input:     service.UpdateTaskInput{Title: strPtr("x")},
			repoErr:   repository.ErrNotFound,
			wantErrIs: service.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var patched, got bool
			repo := &mockTaskRepo{
				updateFn: func(_ context.Context, _, _ string, patch model.TaskPatch) (model.Task, error) {
					patched = true
					if tt.repoErr != nil {
						return model.Task{}, tt.repoErr
					}
					return patch.Apply(sampleTask()), nil
				},
				getByIDFn: func(_ context.Context, _, _ string) (model.Task, error) {
					got = true
					return sampleTask(), nil
				},
			}
			svc := service.NewTaskService(repo)
			task, err := svc.Update(context.Background(), "user-1", "task-1", tt.input)

			if tt.wantErrIs != nil {
				if !errors.Is(err, tt.wantErrIs) {
					t.Fatalf("expected %v, got %v", tt.wantErrIs, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if patched != tt.wantPatch || got != tt.wantGetHit {
				t.Errorf("patched=%v get=%v, want %v/%v", patched, got, tt.wantPatch, tt.wantGetHit)
			}
			if tt.input.Title != nil && task.Title != *tt.input.Title {
				t.Errorf("expected title %q, got %q", *tt.input.Title, task.Title)
			}
			if tt.input.Completed != nil && task.Completed != *tt.input.Completed {
				t.Errorf("expected completed=%v", *tt.input.Completed)
			}
			if tt.input.Title == nil && task.Title != sampleTask().Title {
				t.Errorf("title changed unexpectedly: %q", task.Title)
			}
		})
	}
}

func TestTaskService_Delete(t *testing.T) {
	tests := []struct {
		name      string
		repoErr   error
		wantErrIs error
	}{
		{name: "success"},
		{name: "not found", repoErr: repository.ErrNotFound, wantErrIs: service.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockTaskRepo{
				deleteFn: func(_ context.Context, _, _ string) error { return tt.repoErr },
			}
			err := service.NewTaskService(repo).Delete(context.Background(), "user-1", "task-1")
			if tt.wantErrIs != nil {
				if !errors.Is(err, tt.wantErrIs) {
					t.Fatalf("expected %v, got %v", tt.wantErrIs, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestTaskService_ListNeverNil(t *testing.T) {
	repo := &mockTaskRepo{
		listFn: func(_ context.Context, _ string) ([]model.Task, error) { return nil, nil },
	}
	got, err := service.NewTaskService(repo).List(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

// Owner isolation: nothing one owner does is visible to or affected by another.
func TestTaskService_OwnerIsolation(t *testing.T) {
	svc := service.NewTaskService(repository.NewBadgerTask(openDB(t)))
	ctx := context.Background()

	mine, err := svc.Create(ctx, "alice", service.CreateTaskInput{Title: "alice's"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(ctx, "bob", service.CreateTaskInput{Title: "bob's"}); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Get(ctx, "bob", mine.ID); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("Get by non-owner: expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Update(ctx, "bob", mine.ID, service.UpdateTaskInput{Title: strPtr("hijack")}); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("Update by non-owner: expected ErrNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, "bob", mine.ID); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("Delete by non-owner: expected ErrNotFound, got %v", err)
	}

	bobs, err := svc.List(ctx, "bob")
	if err != nil {
		t.Fatal(err)
	}
	for _, task := range bobs {
		if task.UserID != "bob" {
			t.Errorf("bob sees foreign task %+v", task)
		}
	}

	got, err := svc.Get(ctx, "alice", mine.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "alice's" {
		t.Errorf("alice's task was modified: %+v", got)
	}
}

func TestTaskService_CompletedRoundTrip(t *testing.T) {
	svc := service.NewTaskService(repository.NewBadgerTask(openDB(t)))
	ctx := context.Background()

	task, err := svc.Create(ctx, "alice", service.CreateTaskInput{Title: "flip me"})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []bool{true, false, true, true} {
		updated, err := svc.Update(ctx, "alice", task.ID, service.UpdateTaskInput{Completed: boolPtr(want)})
		if err != nil {
			t.Fatal(err)
		}
		if updated.Completed != want {
			t.Errorf("expected completed=%v, got %v", want, updated.Completed)
		}
		if updated.Title != "flip me" {
			t.Errorf("title changed: %q", updated.Title)
		}
	}
}

func TestTaskService_ConcurrentUpdatesLastWriteWins(t *testing.T) {
	svc := service.NewTaskService(repository.NewBadgerTask(openDB(t)))
	ctx := context.Background()

	task, err := svc.Create(ctx, "alice", service.CreateTaskInput{Title: "race"})
	if err != nil {
		t.Fatal(err)
	}

	titles := []string{"a", "b", "c", "d", "e"}
	var wg sync.WaitGroup
	for _, title := range titles {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Update(ctx, "alice", task.ID, service.UpdateTaskInput{Title: strPtr(title)}); err != nil {
				t.Errorf("update %q: %v", title, err)
			}
		}()
	}
	wg.Wait()

	got, err := svc.Get(ctx, "alice", task.ID)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, title := range titles {
		if got.Title == title {
			found = true
		}
	}
	if !found {
		t.Errorf("final title %q is not one of the written values", got.Title)
	}
}
