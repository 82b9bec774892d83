package model

import "time"

type Task struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Completed   bool       `json:"completed"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// TaskPatch carries a partial update. Nil fields are left unchanged.
type TaskPatch struct {
	Title       *string
	Description *string
	Completed   *bool
	DueDate     *time.Time
}

func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil && p.DueDate == nil
}

// Apply returns a copy of t with the patch fields applied.
func (p TaskPatch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.DueDate != nil {
		d := *p.DueDate
		t.DueDate = &d
	}
	return t
}
