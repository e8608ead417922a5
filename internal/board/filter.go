package board

import (
	"slices"
	"strings"
	"time"

	"github.com/patseev1987/todolist/internal/task"
)

// FilterOptions selects tasks already in memory. Zero values match everything.
type FilterOptions struct {
	Group           string
	Statuses        []task.Status
	ExcludeStatuses []task.Status
	Search          string     // case-insensitive substring of title or content
	RemindOnly      bool       // only tasks with a reminder set
	OverdueAt       *time.Time // only tasks overdue at this moment
}

// Filter returns tasks matching all specified criteria (AND logic).
func Filter(tasks []*task.Task, opts FilterOptions) []*task.Task {
	var result []*task.Task
	for _, t := range tasks {
		if matchesFilter(t, opts) {
			result = append(result, t)
		}
	}
	return result
}

func matchesFilter(t *task.Task, opts FilterOptions) bool {
	if opts.Group != "" && t.Group != opts.Group {
		return false
	}
	if len(opts.Statuses) > 0 && !slices.Contains(opts.Statuses, t.Status) {
		return false
	}
	if slices.Contains(opts.ExcludeStatuses, t.Status) {
		return false
	}
	if opts.Search != "" && !matchesSearch(t, opts.Search) {
		return false
	}
	if opts.RemindOnly && !t.Remind {
		return false
	}
	if opts.OverdueAt != nil && !t.Overdue(*opts.OverdueAt) {
		return false
	}
	return true
}

func matchesSearch(t *task.Task, query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(t.Title), q) ||
		strings.Contains(strings.ToLower(t.Content), q)
}
