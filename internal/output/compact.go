package output

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/patseev1987/todolist/internal/board"
	"github.com/patseev1987/todolist/internal/store"
	"github.com/patseev1987/todolist/internal/task"
)

// TaskCompact renders a list of tasks in one-line-per-record compact format.
func TaskCompact(w io.Writer, tasks []*task.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(os.Stderr, "No tasks found.")
		return
	}
	for _, t := range tasks {
		fmt.Fprintln(w, formatTaskLine(t))
	}
}

// TaskDetailCompact renders a single task with detail in compact format.
func TaskDetailCompact(w io.Writer, t *task.Task) {
	fmt.Fprintln(w, formatTaskLine(t))

	ts := "  created:" + t.Created.Format(dateLayout) +
		" updated:" + t.Updated.Format(dateLayout)
	if t.Started != nil {
		ts += " started:" + t.Started.Format(dateLayout)
	}
	if t.Completed != nil {
		ts += " completed:" + t.Completed.Format(dateLayout)
	}
	fmt.Fprintln(w, ts)

	if t.Content != "" {
		for _, line := range strings.Split(t.Content, "\n") {
			fmt.Fprintln(w, "  "+line)
		}
	}
}

// OverviewCompact renders a board summary in compact format.
func OverviewCompact(w io.Writer, s board.Overview) {
	fmt.Fprintf(w, "%d tasks, %d reminders\n", s.TotalTasks, s.Reminders)
	for _, ss := range s.Statuses {
		line := "  " + string(ss.Status) + ": " + strconv.Itoa(ss.Count)
		if ss.Overdue > 0 {
			line += " (" + strconv.Itoa(ss.Overdue) + " overdue)"
		}
		fmt.Fprintln(w, line)
	}
	parts := make([]string, 0, len(s.Groups))
	for _, gc := range s.Groups {
		parts = append(parts, gc.Group+"="+strconv.Itoa(gc.Open)+"/"+strconv.Itoa(gc.Total))
	}
	if len(parts) > 0 {
		fmt.Fprintln(w, "Groups: "+strings.Join(parts, " "))
	}
}

// GroupCompact renders group tabs one per line.
func GroupCompact(w io.Writer, rows []GroupRow) {
	for _, r := range rows {
		fmt.Fprintf(w, "%d %s [%s/%s] %d\n", r.Slot, r.Name, r.SelectedIcon, r.UnselectedIcon, r.Tasks)
	}
}

// AlarmCompact renders reminders one per line.
func AlarmCompact(w io.Writer, alarms []store.Alarm) {
	for _, a := range alarms {
		fmt.Fprintf(w, "%d %s %s\n", a.Key, a.FireAt.Format(time.RFC3339), a.Title)
	}
}

// formatTaskLine builds the one-line representation of a task.
func formatTaskLine(t *task.Task) string {
	line := "#" + strconv.FormatInt(t.ID, 10) + " [" + string(t.Status) + "/" + t.Group + "] " + t.Title
	if t.Due != nil {
		line += " due:" + t.Due.Format(timeLayout)
	}
	if t.Remind {
		line += " remind"
	}
	return line
}
