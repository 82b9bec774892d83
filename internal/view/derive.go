package view

import (
	"errors"
	"slices"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

var ErrIndexOutOfRange = errors.New("index out of range")

// Derive filters todos by status and priority, then stable-sorts the result
// by f.SortBy in f.SortOrder. The input slice is not modified.
//
// Todos without a due date sort after dated ones in both orders when sorting
// by due date.
func Derive(todos []Todo, f Filters) []Todo {
	out := make([]Todo, 0, len(todos))
	for _, t := range todos {
		if f.Status != All && string(t.Status) != f.Status {
			continue
		}
		if f.Priority != All && string(t.Priority) != f.Priority {
			continue
		}
		out = append(out, t)
	}

	dir := 1
	if f.SortOrder == Desc {
		dir = -1
	}

	switch f.SortBy {
	case SortByDueDate:
		slices.SortStableFunc(out, func(a, b Todo) int {
			switch {
			case a.DueDate == nil && b.DueDate == nil:
				return 0
			case a.DueDate == nil:
				return 1
			case b.DueDate == nil:
				return -1
			}
			return dir * a.DueDate.Compare(*b.DueDate)
		})
	case SortByCreatedAt:
		slices.SortStableFunc(out, func(a, b Todo) int {
			return dir * a.CreatedAt.Compare(b.CreatedAt)
		})
	case SortByPriority:
		slices.SortStableFunc(out, func(a, b Todo) int {
			return dir * (a.Priority.Rank() - b.Priority.Rank())
		})
	case SortByTitle:
		// Collators keep scratch buffers, so each call gets its own.
		c := collate.New(language.English)
		slices.SortStableFunc(out, func(a, b Todo) int {
			return dir * c.CompareString(a.Title, b.Title)
		})
	}
	return out
}

// Reorder moves the todo at from to position to and returns the new slice.
// The input slice is not modified.
func Reorder(todos []Todo, from, to int) ([]Todo, error) {
	n := len(todos)
	if from < 0 || from >= n || to < 0 || to >= n {
		return nil, ErrIndexOutOfRange
	}
	out := slices.Clone(todos)
	moved := out[from]
	out = slices.Delete(out, from, from+1)
	out = slices.Insert(out, to, moved)
	return out, nil
}

// Stats summarizes a todo set.
type Stats struct {
	Total          int     `json:"total"`
	Completed      int     `json:"completed"`
	Pending        int     `json:"pending"`
	High           int     `json:"high"`
	Medium         int     `json:"medium"`
	Low            int     `json:"low"`
	Overdue        int     `json:"overdue"`
	CompletionRate float64 `json:"completionRate"`
}

// Summarize counts todos by status and priority. A todo is overdue when it
// is pending and its due date is before now.
func Summarize(todos []Todo, now time.Time) Stats {
	var s Stats
	s.Total = len(todos)
	for _, t := range todos {
		switch t.Status {
		case StatusCompleted:
			s.Completed++
		case StatusPending:
			s.Pending++
			if t.DueDate != nil && t.DueDate.Before(now) {
				s.Overdue++
			}
		}
		switch t.Priority {
		case PriorityHigh:
			s.High++
		case PriorityMedium:
			s.Medium++
		case PriorityLow:
			s.Low++
		}
	}
	if s.Total > 0 {
		s.CompletionRate = float64(s.Completed) / float64(s.Total) * 100
	}
	return s
}
