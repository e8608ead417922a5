// Package board provides list and summary operations over task collections.
package board

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/patseev1987/todolist/internal/clierr"
	"github.com/patseev1987/todolist/internal/store"
	"github.com/patseev1987/todolist/internal/task"
)

// ListOptions controls how tasks are listed.
type ListOptions struct {
	Filter   store.Filter  // pushed down to the store; Limit is ignored
	Statuses []task.Status // any of these; applied after the store query
	Overdue  bool          // only tasks past due and not done
	SortBy   string
	Reverse  bool
	Limit    int
}

// List loads tasks from s, applies filters and sorting.
func List(ctx context.Context, s store.Store, opts ListOptions, now time.Time) ([]*task.Task, error) {
	f := opts.Filter
	f.Limit = 0
	tasks, err := s.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return Arrange(tasks, opts, now), nil
}

// Arrange applies the in-memory part of opts to tasks the store returned.
func Arrange(tasks []*task.Task, opts ListOptions, now time.Time) []*task.Task {
	fo := FilterOptions{Statuses: opts.Statuses}
	if opts.Overdue {
		fo.OverdueAt = &now
	}
	tasks = Filter(tasks, fo)

	sortField := opts.SortBy
	if sortField == "" {
		sortField = fieldID
	}
	Sort(tasks, sortField, opts.Reverse)

	if opts.Limit > 0 && len(tasks) > opts.Limit {
		tasks = tasks[:opts.Limit]
	}
	return tasks
}

// StatusSummary holds counts for a single status.
type StatusSummary struct {
	Status  task.Status `json:"status"`
	Count   int         `json:"count"`
	Overdue int         `json:"overdue"`
}

// GroupCount holds the number of open and total tasks in a group.
type GroupCount struct {
	Group string `json:"group"`
	Open  int    `json:"open"`
	Total int    `json:"total"`
}

// Overview is the aggregate summary shown by `todo board`.
type Overview struct {
	TotalTasks int             `json:"total_tasks"`
	Reminders  int             `json:"reminders"`
	Statuses   []StatusSummary `json:"statuses"`
	Groups     []GroupCount    `json:"groups"`
}

// Summary computes an overview of tasks. Groups are listed in tab order;
// tasks in groups that no longer exist are counted under their own name at
// the end.
func Summary(groups []task.TabItem, tasks []*task.Task, now time.Time) Overview {
	statusMap := make(map[task.Status]*StatusSummary, len(task.Statuses()))
	for _, s := range task.Statuses() {
		statusMap[s] = &StatusSummary{Status: s}
	}

	groupMap := make(map[string]*GroupCount, len(groups))
	order := make([]string, 0, len(groups))
	for _, g := range groups {
		groupMap[g.Name] = &GroupCount{Group: g.Name}
		order = append(order, g.Name)
	}

	reminders := 0
	for _, t := range tasks {
		if ss, ok := statusMap[t.Status]; ok {
			ss.Count++
			if t.Overdue(now) {
				ss.Overdue++
			}
		}
		gc, ok := groupMap[t.Group]
		if !ok {
			gc = &GroupCount{Group: t.Group}
			groupMap[t.Group] = gc
			order = append(order, t.Group)
		}
		gc.Total++
		if t.Status != task.StatusDone {
			gc.Open++
		}
		if t.Remind && t.Due != nil && t.Due.After(now) {
			reminders++
		}
	}

	statuses := make([]StatusSummary, 0, len(statusMap))
	for _, s := range task.Statuses() {
		statuses = append(statuses, *statusMap[s])
	}
	counts := make([]GroupCount, 0, len(order))
	for _, name := range order {
		counts = append(counts, *groupMap[name])
	}

	return Overview{
		TotalTasks: len(tasks),
		Reminders:  reminders,
		Statuses:   statuses,
		Groups:     counts,
	}
}

// ParseIDs splits a comma-separated ID string into deduplicated IDs.
func ParseIDs(arg string) ([]int64, error) {
	parts := strings.Split(arg, ",")
	seen := make(map[int64]bool, len(parts))
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil || id <= 0 {
			return nil, task.ValidateTaskID(p)
		}
		if !seen[id] {
			ids = append(ids, id)
			seen[id] = true
		}
	}
	if len(ids) == 0 {
		return nil, clierr.New(clierr.InvalidTaskID, "no valid task IDs provided")
	}
	return ids, nil
}

// CountByStatus returns the number of tasks in each status.
func CountByStatus(tasks []*task.Task) map[task.Status]int {
	counts := make(map[task.Status]int)
	for _, t := range tasks {
		counts[t.Status]++
	}
	return counts
}
