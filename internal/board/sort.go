package board

import (
	"cmp"
	"slices"

	"github.com/patseev1987/todolist/internal/task"
)

const (
	fieldID      = "id"
	fieldTitle   = "title"
	fieldStatus  = "status"
	fieldGroup   = "group"
	fieldRemind  = "remind"
	fieldCreated = "created"
	fieldUpdated = "updated"
	fieldDue     = "due"
)

// ValidSortFields returns the list of valid --sort field names.
func ValidSortFields() []string {
	return []string{fieldID, fieldTitle, fieldStatus, fieldGroup, fieldCreated, fieldUpdated, fieldDue}
}

// Sort sorts tasks by the given field. Status sorts in workflow order.
// Ties keep ID order.
func Sort(tasks []*task.Task, field string, reverse bool) {
	slices.SortStableFunc(tasks, func(a, b *task.Task) int {
		c := compareTasks(a, b, field)
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if reverse {
			return -c
		}
		return c
	})
}

func compareTasks(a, b *task.Task, field string) int {
	switch field {
	case fieldTitle:
		return cmp.Compare(a.Title, b.Title)
	case fieldStatus:
		return cmp.Compare(a.Status.Index(), b.Status.Index())
	case fieldGroup:
		return cmp.Compare(a.Group, b.Group)
	case fieldCreated:
		return a.Created.Compare(b.Created)
	case fieldUpdated:
		return a.Updated.Compare(b.Updated)
	case fieldDue:
		return compareDue(a, b)
	default:
		return cmp.Compare(a.ID, b.ID)
	}
}

// compareDue orders tasks without a due time last.
func compareDue(a, b *task.Task) int {
	switch {
	case a.Due == nil && b.Due == nil:
		return 0
	case a.Due == nil:
		return 1
	case b.Due == nil:
		return -1
	}
	return a.Due.Compare(*b.Due)
}
