package repository

import (
	"context"
	"errors"

	"github.com/jaekwang-park/taskscribe/internal/model"
)

var (
	// ErrNotFound is returned when no row matches the lookup, including lookups
	// scoped to an owner that does not hold the row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a uniqueness constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
)

type UserRepository interface {
	Create(ctx context.Context, user model.User) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, userID string) (model.User, error)
}

// TaskRepository is owner-scoped: every read and write filters on the owner id.
type TaskRepository interface {
	Create(ctx context.Context, task model.Task) (model.Task, error)
	GetByID(ctx context.Context, userID, taskID string) (model.Task, error)
	Update(ctx context.Context, userID, taskID string, patch model.TaskPatch) (model.Task, error)
	Delete(ctx context.Context, userID, taskID string) error
	// List returns the owner's tasks ordered by creation time, newest first.
	List(ctx context.Context, userID string) ([]model.Task, error)
}
