package view

import (
	"fmt"
)

// All disables the status or priority filter.
const All = "all"

type SortKey string

const (
	SortByDueDate   SortKey = "dueDate"
	SortByPriority  SortKey = "priority"
	SortByCreatedAt SortKey = "createdAt"
	SortByTitle     SortKey = "title"
)

type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// Filters selects and orders the visible todos.
type Filters struct {
	Status    string    `json:"status" toml:"status"`
	Priority  string    `json:"priority" toml:"priority"`
	SortBy    SortKey   `json:"sortBy" toml:"sort_by"`
	SortOrder SortOrder `json:"sortOrder" toml:"sort_order"`
}

func DefaultFilters() Filters {
	return Filters{
		Status:    All,
		Priority:  All,
		SortBy:    SortByDueDate,
		SortOrder: Asc,
	}
}

func (f Filters) Validate() error {
	switch f.Status {
	case All, string(StatusPending), string(StatusCompleted):
	default:
		return fmt.Errorf("invalid status filter %q: must be all, pending or completed", f.Status)
	}
	if f.Priority != All && !Priority(f.Priority).Valid() {
		return fmt.Errorf("invalid priority filter %q: must be all, low, medium or high", f.Priority)
	}
	switch f.SortBy {
	case SortByDueDate, SortByPriority, SortByCreatedAt, SortByTitle:
	default:
		return fmt.Errorf("invalid sort key %q: must be dueDate, priority, createdAt or title", f.SortBy)
	}
	if f.SortOrder != Asc && f.SortOrder != Desc {
		return fmt.Errorf("invalid sort order %q: must be asc or desc", f.SortOrder)
	}
	return nil
}

// FilterPatch is a partial Filters. Nil fields keep their current value.
type FilterPatch struct {
	Status    *string
	Priority  *string
	SortBy    *SortKey
	SortOrder *SortOrder
}

// Merge returns f with the set fields of p applied.
func (f Filters) Merge(p FilterPatch) Filters {
	if p.Status != nil {
		f.Status = *p.Status
	}
	if p.Priority != nil {
		f.Priority = *p.Priority
	}
	if p.SortBy != nil {
		f.SortBy = *p.SortBy
	}
	if p.SortOrder != nil {
		f.SortOrder = *p.SortOrder
	}
	return f
}
