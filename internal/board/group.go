package board

import (
	"cmp"
	"maps"
	"slices"

	"github.com/patseev1987/todolist/internal/task"
)

// GroupedSummary holds tasks grouped by a field.
type GroupedSummary struct {
	Groups []GroupSummary `json:"groups"`
}

// GroupSummary is one group within a grouped view.
type GroupSummary struct {
	Key      string          `json:"key"`
	Statuses []StatusSummary `json:"statuses"`
	Total    int             `json:"total"`
}

// ValidGroupByFields returns the list of valid --group-by field names.
func ValidGroupByFields() []string {
	return []string{fieldGroup, fieldStatus, fieldRemind}
}

// GroupBy groups tasks by field. Keys of the group field follow tab order
// given by tabs; status keys follow workflow order.
func GroupBy(tasks []*task.Task, field string, tabs []task.TabItem) GroupedSummary {
	groups := make(map[string][]*task.Task)
	for _, t := range tasks {
		key := groupKey(t, field)
		groups[key] = append(groups[key], t)
	}

	keys := sortGroupKeys(groups, field, tabs)
	result := GroupedSummary{Groups: make([]GroupSummary, 0, len(keys))}
	for _, key := range keys {
		counts := CountByStatus(groups[key])
		statuses := make([]StatusSummary, 0, len(task.Statuses()))
		for _, s := range task.Statuses() {
			statuses = append(statuses, StatusSummary{Status: s, Count: counts[s]})
		}
		result.Groups = append(result.Groups, GroupSummary{
			Key:      key,
			Statuses: statuses,
			Total:    len(groups[key]),
		})
	}
	return result
}

func groupKey(t *task.Task, field string) string {
	switch field {
	case fieldGroup:
		return t.Group
	case fieldStatus:
		return string(t.Status)
	case fieldRemind:
		if t.Remind {
			return "(reminder)"
		}
		return "(no reminder)"
	default:
		return "(all)"
	}
}

func sortGroupKeys(groups map[string][]*task.Task, field string, tabs []task.TabItem) []string {
	keys := slices.Collect(maps.Keys(groups))
	switch field {
	case fieldStatus:
		slices.SortFunc(keys, func(a, b string) int {
			return cmp.Compare(task.Status(a).Index(), task.Status(b).Index())
		})
	case fieldGroup:
		slot := make(map[string]int, len(tabs))
		for _, tab := range tabs {
			slot[tab.Name] = tab.Slot
		}
		slices.SortFunc(keys, func(a, b string) int {
			sa, okA := slot[a]
			sb, okB := slot[b]
			switch {
			case okA && okB:
				return cmp.Compare(sa, sb)
			case okA:
				return -1
			case okB:
				return 1
			}
			return cmp.Compare(a, b)
		})
	default:
		slices.Sort(keys)
	}
	return keys
}
