package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jaekwang-park/taskscribe/internal/model"
)

const taskColumns = `id, user_id, title, description, completed, due_date, created_at, updated_at`

type PostgresTaskRepository struct {
	db *sql.DB
}

func NewPostgresTask(db *sql.DB) *PostgresTaskRepository {
	return &PostgresTaskRepository{db: db}
}

func (r *PostgresTaskRepository) Create(ctx context.Context, task model.Task) (model.Task, error) {
	query := `
		INSERT INTO tasks (user_id, title, description, completed, due_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + taskColumns

	row := r.db.QueryRowContext(ctx, query,
		task.UserID, task.Title, task.Description, task.Completed, task.DueDate,
	)
	return scanTask(row)
}

func (r *PostgresTaskRepository) GetByID(ctx context.Context, userID, taskID string) (model.Task, error) {
	if !validIDs(userID, taskID) {
		return model.Task{}, ErrNotFound
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND user_id = $2`

	row := r.db.QueryRowContext(ctx, query, taskID, userID)
	return scanTask(row)
}

// Update applies the patch in a single statement so concurrent writers never
// interleave field-by-field; the last statement to commit wins.
func (r *PostgresTaskRepository) Update(ctx context.Context, userID, taskID string, patch model.TaskPatch) (model.Task, error) {
	if !validIDs(userID, taskID) {
		return model.Task{}, ErrNotFound
	}

	query := `
		UPDATE tasks
		SET title = COALESCE($3, title),
		    description = COALESCE($4, description),
		    completed = COALESCE($5, completed),
		    due_date = COALESCE($6, due_date),
		    updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + taskColumns

	row := r.db.QueryRowContext(ctx, query,
		taskID, userID, patch.Title, patch.Description, patch.Completed, patch.DueDate,
	)
	return scanTask(row)
}

func (r *PostgresTaskRepository) Delete(ctx context.Context, userID, taskID string) error {
	if !validIDs(userID, taskID) {
		return ErrNotFound
	}

	query := `DELETE FROM tasks WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, taskID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *PostgresTaskRepository) List(ctx context.Context, userID string) ([]model.Task, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return []model.Task{}, nil
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1 ORDER BY created_at DESC, id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	return tasks, nil
}

// validIDs rejects ids that are not UUIDs before they reach Postgres, which
// would otherwise fail the cast with an error instead of matching no rows.
func validIDs(ids ...string) bool {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return false
		}
	}
	return true
}

func scanTask(row scannable) (model.Task, error) {
	var t model.Task
	var dueDate sql.NullTime
	err := row.Scan(
		&t.ID, &t.UserID, &t.Title, &t.Description,
		&t.Completed, &dueDate, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Task{}, ErrNotFound
		}
		return model.Task{}, fmt.Errorf("failed to scan task: %w", err)
	}
	if dueDate.Valid {
		t.DueDate = &dueDate.Time
	}
	return t, nil
}

// ensure compile-time interface compliance
var _ TaskRepository = (*PostgresTaskRepository)(nil)
