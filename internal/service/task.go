package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jaekwang-park/taskscribe/internal/model"
	"github.com/jaekwang-park/taskscribe/internal/repository"
)

// parseDueDate parses an ISO-8601 (RFC3339) string into *time.Time.
// Returns nil if input is nil.
func parseDueDate(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil, invalidField("dueDate", "must be an ISO-8601 timestamp")
	}
	t = t.UTC()
	return &t, nil
}

type CreateTaskInput struct {
	Title       string  `json:"title" validate:"required"`
	Description *string `json:"description"`
	// Completed is accepted for compatibility but new tasks always start pending.
	Completed *bool   `json:"completed"`
	DueDate   *string `json:"dueDate" validate:"omitnil,datetime=2006-01-02T15:04:05Z07:00"`
}

type UpdateTaskInput struct {
	Title       *string `json:"title" validate:"omitnil,min=1"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
	DueDate     *string `json:"dueDate" validate:"omitnil,datetime=2006-01-02T15:04:05Z07:00"`
}

type TaskService struct {
	repo repository.TaskRepository
}

func NewTaskService(repo repository.TaskRepository) *TaskService {
	return &TaskService{repo: repo}
}

func (s *TaskService) List(ctx context.Context, userID string) ([]model.Task, error) {
	tasks, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return tasks, nil
}

func (s *TaskService) Get(ctx context.Context, userID, taskID string) (model.Task, error) {
	task, err := s.repo.GetByID(ctx, userID, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Task{}, ErrNotFound
		}
		return model.Task{}, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

func (s *TaskService) Create(ctx context.Context, userID string, input CreateTaskInput) (model.Task, error) {
	if err := validateStruct(input); err != nil {
		return model.Task{}, err
	}

	dueDate, err := parseDueDate(input.DueDate)
	if err != nil {
		return model.Task{}, err
	}

	task := model.Task{
		UserID:    userID,
		Title:     input.Title,
		Completed: false,
		DueDate:   dueDate,
	}
	if input.Description != nil {
		task.Description = *input.Description
	}

	created, err := s.repo.Create(ctx, task)
	if err != nil {
		return model.Task{}, fmt.Errorf("failed to create task: %w", err)
	}
	return created, nil
}

// Update applies a partial update. Fields left nil are unchanged and an empty
// input returns the current task.
func (s *TaskService) Update(ctx context.Context, userID, taskID string, input UpdateTaskInput) (model.Task, error) {
	if err := validateStruct(input); err != nil {
		return model.Task{}, err
	}

	dueDate, err := parseDueDate(input.DueDate)
	if err != nil {
		return model.Task{}, err
	}

	patch := model.TaskPatch{
		Title:       input.Title,
		Description: input.Description,
		Completed:   input.Completed,
		DueDate:     dueDate,
	}
	if patch.IsEmpty() {
		return s.Get(ctx, userID, taskID)
	}

	updated, err := s.repo.Update(ctx, userID, taskID, patch)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Task{}, ErrNotFound
		}
		return model.Task{}, fmt.Errorf("failed to update task: %w", err)
	}
	return updated, nil
}

func (s *TaskService) Delete(ctx context.Context, userID, taskID string) error {
	if err := s.repo.Delete(ctx, userID, taskID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}
