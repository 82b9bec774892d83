// Package view holds the client-side task view model and the pure functions
// that filter, sort, reorder and summarize it.
package view

import (
	"time"

	"github.com/jaekwang-park/taskscribe/internal/model"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Rank orders priorities low=1, medium=2, high=3. Unknown values rank 0.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	default:
		return 0
	}
}

func (p Priority) Valid() bool { return p.Rank() > 0 }

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

func (s Status) Toggle() Status {
	if s == StatusCompleted {
		return StatusPending
	}
	return StatusCompleted
}

// Todo is a server task plus the client-only priority. Priority and list
// position are never sent to the server.
type Todo struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Priority    Priority   `json:"priority"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// FromTask maps a server task to a Todo with default priority.
func FromTask(t model.Task) Todo {
	status := StatusPending
	if t.Completed {
		status = StatusCompleted
	}
	return Todo{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate,
		Priority:    PriorityMedium,
		Status:      status,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (t Todo) Completed() bool { return t.Status == StatusCompleted }
