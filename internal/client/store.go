package client

import (
	"context"
	"sync"
	"time"

	"github.com/jaekwang-park/taskscribe/internal/model"
	"github.com/jaekwang-park/taskscribe/internal/view"
)

// TaskAPI is the subset of APIClient the Store depends on.
type TaskAPI interface {
	ListTasks(ctx context.Context) ([]model.Task, error)
	CreateTask(ctx context.Context, req CreateTaskRequest) (model.Task, error)
	UpdateTask(ctx context.Context, id string, req UpdateTaskRequest) (model.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

type NewTodo struct {
	Title       string
	Description string
	DueDate     *time.Time
	Priority    view.Priority
}

// TodoPatch is a partial Todo. Priority never leaves the client.
type TodoPatch struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	Priority    *view.Priority
	Status      *view.Status
}

func (p TodoPatch) request() UpdateTaskRequest {
	req := UpdateTaskRequest{
		Title:       p.Title,
		Description: p.Description,
		DueDate:     formatDueDate(p.DueDate),
	}
	if p.Status != nil {
		completed := *p.Status == view.StatusCompleted
		req.Completed = &completed
	}
	return req
}

func (p TodoPatch) apply(t view.Todo) view.Todo {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.DueDate != nil {
		d := *p.DueDate
		t.DueDate = &d
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	return t
}

// Store mirrors the caller's tasks and derives views from them. Mutations
// reach the server first and only touch local state on success. Network
// calls run outside the lock, so the last response to arrive wins.
type Store struct {
	api TaskAPI

	mu      sync.RWMutex
	todos   []view.Todo
	filters view.Filters
}

func NewStore(api TaskAPI) *Store {
	return &Store{api: api, filters: view.DefaultFilters()}
}

// Refresh replaces local state with the server's task list. Manual order
// and priorities are reset.
func (s *Store) Refresh(ctx context.Context) error {
	tasks, err := s.api.ListTasks(ctx)
	if err != nil {
		return err
	}
	todos := make([]view.Todo, 0, len(tasks))
	for _, t := range tasks {
		todos = append(todos, view.FromTask(t))
	}

	s.mu.Lock()
	s.todos = todos
	s.mu.Unlock()
	return nil
}

func (s *Store) Create(ctx context.Context, in NewTodo) (view.Todo, error) {
	task, err := s.api.CreateTask(ctx, CreateTaskRequest{
		Title:       in.Title,
		Description: in.Description,
		DueDate:     formatDueDate(in.DueDate),
	})
	if err != nil {
		return view.Todo{}, err
	}

	todo := view.FromTask(task)
	if in.Priority.Valid() {
		todo.Priority = in.Priority
	}

	s.mu.Lock()
	s.todos = append(s.todos, todo)
	s.mu.Unlock()
	return todo, nil
}

func (s *Store) Update(ctx context.Context, id string, patch TodoPatch) error {
	if _, ok := s.Get(id); !ok {
		return ErrTodoNotFound
	}

	task, err := s.api.UpdateTask(ctx, id, patch.request())
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// The todo may have been removed while the request was in flight.
	if i := s.indexOf(id); i >= 0 {
		updated := patch.apply(s.todos[i])
		updated.UpdatedAt = task.UpdatedAt
		s.todos[i] = updated
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.api.DeleteTask(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		s.todos = append(s.todos[:i:i], s.todos[i+1:]...)
	}
	return nil
}

// ToggleStatus flips a todo between pending and completed.
func (s *Store) ToggleStatus(ctx context.Context, id string) error {
	todo, ok := s.Get(id)
	if !ok {
		return ErrTodoNotFound
	}
	next := todo.Status.Toggle()
	return s.Update(ctx, id, TodoPatch{Status: &next})
}

// Reorder moves the todo at from to position to. It never contacts the
// server.
func (s *Store) Reorder(from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	moved, err := view.Reorder(s.todos, from, to)
	if err != nil {
		return err
	}
	s.todos = moved
	return nil
}

func (s *Store) SetFilters(p view.FilterPatch) {
	s.mu.Lock()
	s.filters = s.filters.Merge(p)
	s.mu.Unlock()
}

func (s *Store) Filters() view.Filters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters
}

func (s *Store) Get(id string) (view.Todo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.todos[i], true
	}
	return view.Todo{}, false
}

// Todos returns a copy of the todos in list order.
func (s *Store) Todos() []view.Todo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]view.Todo, len(s.todos))
	copy(out, s.todos)
	return out
}

// Visible returns the todos selected and ordered by the current filters.
func (s *Store) Visible() []view.Todo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view.Derive(s.todos, s.filters)
}

func (s *Store) Stats(now time.Time) view.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view.Summarize(s.todos, now)
}

// Clear drops all local todos.
func (s *Store) Clear() {
	s.mu.Lock()
	s.todos = nil
	s.mu.Unlock()
}

func (s *Store) indexOf(id string) int {
	for i, t := range s.todos {
		if t.ID == id {
			return i
		}
	}
	return -1
}
