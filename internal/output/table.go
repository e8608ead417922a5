package output

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/patseev1987/todolist/internal/activity"
	"github.com/patseev1987/todolist/internal/board"
	"github.com/patseev1987/todolist/internal/store"
	"github.com/patseev1987/todolist/internal/task"
)

const (
	timeLayout = "2006-01-02 15:04"
	dateLayout = "2006-01-02"
	wrapWidth  = 80
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("244"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	overdueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	groupStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("110"))
	remindStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	// Status colors aligned with the TUI palette.
	statusStyles = map[string]lipgloss.Style{
		string(task.StatusNotStarted): lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		string(task.StatusInProgress): lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
		string(task.StatusDone):       lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
	}

	markdownStyle = "dark"
)

// DisableColor strips all styling from output.
func DisableColor() {
	lipgloss.SetColorProfile(termenv.Ascii)
	headerStyle = lipgloss.NewStyle()
	dimStyle = lipgloss.NewStyle()
	overdueStyle = lipgloss.NewStyle()
	groupStyle = lipgloss.NewStyle()
	remindStyle = lipgloss.NewStyle()
	statusStyles = map[string]lipgloss.Style{}
	markdownStyle = "notty"
}

// TaskTable renders a list of tasks as a formatted table.
func TaskTable(w io.Writer, tasks []*task.Task, now time.Time) {
	if len(tasks) == 0 {
		fmt.Fprintln(os.Stderr, "No tasks found.")
		return
	}

	const pad = 2
	idW, statusW, groupW, titleW := 4, 8, 7, 7
	for _, t := range tasks {
		idW = max(idW, len(strconv.FormatInt(t.ID, 10))+pad)
		statusW = max(statusW, len(t.Status)+pad)
		groupW = max(groupW, lipgloss.Width(t.Group)+pad)
		titleW = max(titleW, min(lipgloss.Width(t.Title)+pad, 50)) //nolint:mnd // max title column width
	}

	header := fmt.Sprintf("%-*s %-*s %-*s %-*s %s",
		idW, "ID", statusW, "STATUS", groupW, "GROUP", titleW, "TITLE", "DUE")
	fmt.Fprintln(w, headerStyle.Render(header))

	for _, t := range tasks {
		row := fmt.Sprintf("%-*d %s %s %s %s",
			idW, t.ID,
			padRight(styledValue(string(t.Status), statusStyles), statusW),
			padRight(groupStyle.Render(t.Group), groupW),
			padRight(truncate(t.Title, titleW-pad), titleW),
			dueDisplay(t, now))
		fmt.Fprintln(w, strings.TrimRight(row, " "))
	}
}

// TaskDetail renders a single task with full detail. Content is rendered
// as markdown.
func TaskDetail(w io.Writer, t *task.Task, now time.Time) {
	titleLine := fmt.Sprintf("Task #%d: %s", t.ID, t.Title)
	fmt.Fprintln(w, lipgloss.NewStyle().Bold(true).Render(titleLine))
	fmt.Fprintln(w, strings.Repeat("─", lipgloss.Width(titleLine)))

	printField(w, "Status", styledValue(string(t.Status), statusStyles))
	printField(w, "Group", groupStyle.Render(t.Group))
	printField(w, "Due", dueDisplay(t, now))
	if t.Remind {
		printField(w, "Reminder", remindStyle.Render("on"))
	} else {
		printField(w, "Reminder", dimStyle.Render("off"))
	}
	printField(w, "UID", dimStyle.Render(t.UID))
	printField(w, "Created", t.Created.Format(timeLayout))
	printField(w, "Updated", t.Updated.Format(timeLayout))
	if t.Started != nil {
		printField(w, "Started", t.Started.Format(timeLayout))
	}
	if t.Completed != nil {
		printField(w, "Completed", t.Completed.Format(timeLayout))
		printField(w, "Lead time", FormatDuration(t.Completed.Sub(t.Created)))
	}

	if t.Content != "" {
		fmt.Fprintln(w)
		fmt.Fprint(w, RenderMarkdown(t.Content))
	}
}

// RenderMarkdown renders md for the terminal, falling back to the raw text.
func RenderMarkdown(md string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(markdownStyle),
		glamour.WithWordWrap(wrapWidth),
	)
	if err != nil {
		return md + "\n"
	}
	out, err := r.Render(md)
	if err != nil {
		return md + "\n"
	}
	return out
}

// OverviewTable renders a board summary as a formatted dashboard.
func OverviewTable(w io.Writer, s board.Overview) {
	fmt.Fprintf(w, "Total: %d tasks, %d pending reminders\n\n", s.TotalTasks, s.Reminders)

	const colW = 16
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-*s %6s %8s", colW, "STATUS", "COUNT", "OVERDUE")))
	for _, ss := range s.Statuses {
		fmt.Fprintf(w, "%s %6d %8d\n",
			padRight(styledValue(string(ss.Status), statusStyles), colW), ss.Count, ss.Overdue)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-*s %6s %6s", colW, "GROUP", "OPEN", "TOTAL")))
	for _, gc := range s.Groups {
		fmt.Fprintf(w, "%s %6d %6d\n", padRight(groupStyle.Render(gc.Group), colW), gc.Open, gc.Total)
	}
}

// GroupedTable renders a grouped view with per-group status breakdowns.
func GroupedTable(w io.Writer, gs board.GroupedSummary) {
	if len(gs.Groups) == 0 {
		fmt.Fprintln(os.Stderr, "No groups found.")
		return
	}

	for i, g := range gs.Groups {
		if i > 0 {
			fmt.Fprintln(w)
		}
		title := fmt.Sprintf("%s (%d tasks)", g.Key, g.Total)
		fmt.Fprintln(w, lipgloss.NewStyle().Bold(true).Render(title))

		for _, ss := range g.Statuses {
			if ss.Count == 0 {
				continue
			}
			const groupStatusW = 16
			fmt.Fprintf(w, "  %s %d\n",
				padRight(styledValue(string(ss.Status), statusStyles), groupStatusW), ss.Count)
		}
	}
}

// GroupRow is a group tab with its task count.
type GroupRow struct {
	task.TabItem
	Tasks int `json:"tasks"`
}

// GroupTable renders group tabs in slot order.
func GroupTable(w io.Writer, rows []GroupRow) {
	if len(rows) == 0 {
		fmt.Fprintln(os.Stderr, "No groups found.")
		return
	}
	const nameW = 16
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-4s %-*s %-6s %s", "SLOT", nameW, "NAME", "ICONS", "TASKS")))
	for _, r := range rows {
		icons := task.Glyph(r.SelectedIcon) + " " + task.Glyph(r.UnselectedIcon)
		fmt.Fprintf(w, "%-4d %s %s %d\n", r.Slot,
			padRight(groupStyle.Render(r.Name), nameW), padRight(icons, 6), r.Tasks) //nolint:mnd // icon column width
	}
}

// AlarmTable renders registered reminders.
func AlarmTable(w io.Writer, alarms []store.Alarm, now time.Time) {
	if len(alarms) == 0 {
		fmt.Fprintln(os.Stderr, "No reminders scheduled.")
		return
	}
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-6s %-18s %-12s %s", "KEY", "FIRES", "IN", "TITLE")))
	for _, a := range alarms {
		in := FormatDuration(a.FireAt.Sub(now))
		if !a.FireAt.After(now) {
			in = overdueStyle.Render("due")
		}
		fmt.Fprintf(w, "%-6d %-18s %s %s\n", a.Key, a.FireAt.Format(timeLayout), padRight(in, 12), a.Title) //nolint:mnd // column width
	}
}

// ActivityTable renders activity log entries, oldest first.
func ActivityTable(w io.Writer, entries []activity.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "No activity recorded.")
		return
	}
	for _, e := range entries {
		id := dimStyle.Render("--")
		if e.TaskID != 0 {
			id = "#" + strconv.FormatInt(e.TaskID, 10)
		}
		fmt.Fprintf(w, "%s %s %s %s\n",
			dimStyle.Render(e.Timestamp.Local().Format(timeLayout)),
			padRight(e.Action, 26), padRight(id, 6), e.Detail) //nolint:mnd // column widths
	}
}

// Messagef prints a simple formatted message line.
func Messagef(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format+"\n", args...)
}

func printField(w io.Writer, label, value string) {
	fmt.Fprintf(w, "  %-12s %s\n", label+":", value)
}

// FormatDuration renders a duration as human-readable "Xd Yh" or "Xh Ym".
func FormatDuration(d time.Duration) string {
	const hoursPerDay = 24
	days := int(d.Hours()) / hoursPerDay
	hours := int(d.Hours()) % hoursPerDay
	if days > 0 {
		return strconv.Itoa(days) + "d " + strconv.Itoa(hours) + "h"
	}
	minutes := int(d.Minutes()) % 60 //nolint:mnd // 60 minutes per hour
	return strconv.Itoa(hours) + "h " + strconv.Itoa(minutes) + "m"
}

// dueDisplay formats the due time with a reminder mark; overdue is red.
func dueDisplay(t *task.Task, now time.Time) string {
	if t.Due == nil {
		return dimStyle.Render("--")
	}
	s := t.Due.Format(timeLayout)
	if t.Overdue(now) {
		s = overdueStyle.Render(s)
	}
	if t.Remind {
		s += " " + remindStyle.Render("⏰")
	}
	return s
}

// padRight pads s with spaces to the given visible width, accounting for ANSI
// escape codes that are invisible but consume bytes.
func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 { //nolint:mnd // room for the ellipsis
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// styledValue renders s using a matching style from the map, or returns s unchanged.
func styledValue(s string, styles map[string]lipgloss.Style) string {
	if st, ok := styles[s]; ok {
		return st.Render(s)
	}
	return s
}
