// Package tui implements the terminal UI: group tabs over a task list, and
// an edit form backed by an editor session.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/patseev1987/todolist/internal/activity"
	"github.com/patseev1987/todolist/internal/board"
	"github.com/patseev1987/todolist/internal/config"
	"github.com/patseev1987/todolist/internal/editor"
	"github.com/patseev1987/todolist/internal/reminder"
	"github.com/patseev1987/todolist/internal/store"
	"github.com/patseev1987/todolist/internal/task"
)

// view represents the current screen state.
type view int

const (
	viewList view = iota
	viewForm
	viewConfirmDelete
)

const (
	keyEsc = "esc"

	listChrome   = 4                // tab bar, blank line, blank line, status bar
	tickInterval = 30 * time.Second // how often due markers refresh
)

// Deps are the collaborators of the TUI.
type Deps struct {
	Store     store.Store
	Scheduler reminder.Scheduler
	Config    *config.Config
	// Lock serializes new-task saves with other processes. Optional.
	Lock func(func() error) error
	// Record receives activity entries. Optional.
	Record func(action string, id int64, detail string)
}

// App is the top-level bubbletea model.
type App struct {
	deps Deps
	ctx  context.Context
	now  func() time.Time

	tabs      []task.TabItem
	counts    map[string]int
	activeTab int
	tasks     []*task.Task
	row       int
	scrollOff int
	showDone  bool

	view   view
	form   *form
	width  int
	height int
	err    error
	notice string

	deleteID    int64
	deleteTitle string
}

// New creates the App and loads the first group.
func New(ctx context.Context, deps Deps) *App {
	if deps.Record == nil {
		deps.Record = func(string, int64, string) {}
	}
	a := &App{deps: deps, ctx: ctx, now: time.Now, showDone: deps.Config.TUI.ShowDone}
	a.load()
	return a
}

// SetNow overrides the clock used for due markers and new drafts (for testing).
func (a *App) SetNow(fn func() time.Time) {
	a.now = fn
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tickCmd()
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKey(msg)
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil
	case ReloadMsg:
		a.load()
		return a, nil
	case TickMsg:
		return a, tickCmd()
	case stateMsg:
		if a.form == nil || msg.form != a.form {
			return a, nil
		}
		a.form.apply(msg.state)
		return a, a.form.waitState()
	case savedMsg:
		if a.form == nil || msg.form != a.form {
			return a, nil
		}
		return a.handleSaved()
	case errMsg:
		a.err = msg.err
		return a, nil
	}
	return a, nil
}

// View implements tea.Model.
func (a *App) View() string {
	if a.width == 0 {
		return "Loading..."
	}
	switch a.view {
	case viewForm:
		return a.form.render(a.width)
	case viewConfirmDelete:
		return a.viewDeleteConfirm()
	default:
		return a.viewList()
	}
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, key.NewBinding(key.WithKeys("ctrl+c"))) {
		a.closeForm()
		return a, tea.Quit
	}

	switch a.view {
	case viewForm:
		return a.handleFormKey(msg)
	case viewConfirmDelete:
		return a.handleDeleteKey(msg)
	default:
		return a.handleListKey(msg)
	}
}

func (a *App) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a.notice = ""
	switch msg.String() {
	case "q", keyEsc:
		return a, tea.Quit
	case "h", "left", "shift+tab":
		if a.activeTab > 0 {
			a.activeTab--
			a.row, a.scrollOff = 0, 0
			a.load()
		}
	case "l", "right", "tab":
		if a.activeTab < len(a.tabs)-1 {
			a.activeTab++
			a.row, a.scrollOff = 0, 0
			a.load()
		}
	case "j", "down":
		if a.row < len(a.tasks)-1 {
			a.row++
			a.ensureVisible()
		}
	case "k", "up":
		if a.row > 0 {
			a.row--
			a.ensureVisible()
		}
	case ".":
		a.showDone = !a.showDone
		a.load()
	case "n":
		return a.openForm(0)
	case "e", "enter":
		if t := a.selectedTask(); t != nil {
			return a.openForm(t.ID)
		}
	case "d", "D":
		if t := a.selectedTask(); t != nil {
			a.deleteID = t.ID
			a.deleteTitle = t.Title
			a.view = viewConfirmDelete
		}
	}
	return a, nil
}

func (a *App) handleDeleteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		a.executeDelete()
	case "n", "N", keyEsc, "q":
	default:
		return a, nil
	}
	a.view = viewList
	return a, nil
}

func (a *App) executeDelete() {
	if err := a.deps.Scheduler.Cancel(a.ctx, a.deleteID); err != nil {
		a.err = err
		return
	}
	if err := a.deps.Store.Delete(a.ctx, a.deleteID); err != nil {
		a.err = fmt.Errorf("deleting task #%d: %w", a.deleteID, err)
		return
	}
	a.deps.Record(activity.ActionDelete, a.deleteID, a.deleteTitle)
	a.notice = fmt.Sprintf("Deleted #%d", a.deleteID)
	a.load()
}

func (a *App) openForm(id int64) (tea.Model, tea.Cmd) {
	a.closeForm()
	a.form = newForm(a.ctx, id, a)
	a.view = viewForm
	return a, tea.Batch(a.form.waitState(), a.form.waitSaved(), a.form.focusCmd())
}

func (a *App) closeForm() {
	if a.form != nil {
		a.form.close()
		a.form = nil
	}
	a.view = viewList
}

func (a *App) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == keyEsc {
		a.closeForm()
		a.load()
		return a, nil
	}
	return a, a.form.handleKey(msg)
}

func (a *App) handleSaved() (tea.Model, tea.Cmd) {
	a.notice = "Saved"
	if res, ok := a.form.session.State().(editor.Result); ok {
		a.notice = fmt.Sprintf("Saved #%d", res.Draft.ID)
		if res.Errors.PermissionDenied {
			a.notice += ", reminder not scheduled: run 'todo remind permission grant'"
		}
	}
	a.closeForm()
	a.load()
	return a, nil
}

// grantReminders turns exact reminders on in the config file.
func (a *App) grantReminders() error {
	cfg := a.deps.Config
	cfg.Reminders.ExactAlarms = true
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	a.deps.Record(activity.ActionPermission, 0, "granted=true")
	return nil
}

// load reads groups and the tasks of the active group.
func (a *App) load() {
	tabs, err := a.deps.Store.TabItems(a.ctx)
	if err != nil {
		a.err = fmt.Errorf("loading groups: %w", err)
		return
	}
	counts, err := a.deps.Store.CountByGroup(a.ctx)
	if err != nil {
		a.err = fmt.Errorf("counting tasks: %w", err)
		return
	}
	a.tabs = tabs
	a.counts = counts
	a.activeTab = min(a.activeTab, max(len(tabs)-1, 0))

	tasks, err := a.deps.Store.List(a.ctx, store.Filter{Group: a.currentGroup()})
	if err != nil {
		a.err = fmt.Errorf("loading tasks: %w", err)
		return
	}
	a.err = nil

	var opts board.FilterOptions
	if !a.showDone {
		opts.ExcludeStatuses = []task.Status{task.StatusDone}
	}
	tasks = board.Filter(tasks, opts)
	board.Sort(tasks, "due", false)
	a.tasks = tasks
	a.clampRow()
}

func (a *App) currentGroup() string {
	if a.activeTab < len(a.tabs) {
		return a.tabs[a.activeTab].Name
	}
	return ""
}

func (a *App) groupNames() []string {
	names := make([]string, len(a.tabs))
	for i, t := range a.tabs {
		names[i] = t.Name
	}
	return names
}

func (a *App) selectedTask() *task.Task {
	if a.row >= 0 && a.row < len(a.tasks) {
		return a.tasks[a.row]
	}
	return nil
}

func (a *App) clampRow() {
	a.row = max(0, min(a.row, len(a.tasks)-1))
	a.ensureVisible()
}

// rowsPerPage is the number of tasks that fit between the tab bar and the
// status bar.
func (a *App) rowsPerPage() int {
	lines := 1 + a.deps.Config.ContentLines()
	return max(1, (a.height-listChrome)/lines)
}

func (a *App) ensureVisible() {
	page := a.rowsPerPage()
	if a.row < a.scrollOff {
		a.scrollOff = a.row
	}
	if a.row >= a.scrollOff+page {
		a.scrollOff = a.row - page + 1
	}
	a.scrollOff = max(0, a.scrollOff)
}

// --- Messages ---

// ReloadMsg is sent when the store changed outside the TUI.
type ReloadMsg struct{}

// TickMsg is sent periodically to refresh due markers.
type TickMsg struct{}

type errMsg struct{ err error }

type stateMsg struct {
	form  *form
	state editor.State
}

type savedMsg struct{ form *form }

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(time.Time) tea.Msg { return TickMsg{} })
}

// --- View rendering ---

func (a *App) viewList() string {
	parts := []string{a.renderTabs(), ""}

	if len(a.tasks) == 0 {
		parts = append(parts, dimStyle.Render("  No tasks. Press n to add one."))
	}
	end := min(len(a.tasks), a.scrollOff+a.rowsPerPage())
	for i := a.scrollOff; i < end; i++ {
		parts = append(parts, a.renderTask(a.tasks[i], i == a.row)...)
	}

	body := lipgloss.JoinVertical(lipgloss.Left, parts...)
	if target := a.height - 2; target > 0 {
		if actual := strings.Count(body, "\n") + 1; actual < target {
			body += strings.Repeat("\n", target-actual)
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, "", a.renderStatusBar())
}

func (a *App) renderTabs() string {
	rendered := make([]string, len(a.tabs))
	for i, tab := range a.tabs {
		label := task.Glyph(tab.UnselectedIcon) + " " + tab.Name + " " + strconv.Itoa(a.counts[tab.Name])
		if i == a.activeTab {
			label = task.Glyph(tab.SelectedIcon) + " " + tab.Name + " " + strconv.Itoa(a.counts[tab.Name])
			rendered[i] = activeTabStyle.Render(label)
			continue
		}
		rendered[i] = tabStyle.Render(label)
	}
	return lipgloss.NewStyle().MaxWidth(a.width).Render(lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
}

func (a *App) renderTask(t *task.Task, selected bool) []string {
	now := a.now()
	cursor := "  "
	if selected {
		cursor = "> "
	}
	line := cursor + statusMarks[string(t.Status)] + " "

	title := t.Title
	switch {
	case selected:
		title = selectedRowStyle.Render(title)
	case t.Status == task.StatusDone:
		title = doneStyle.Render(title)
	}
	line += title

	if t.Due != nil {
		due := humanDue(t.Due.Sub(now))
		if t.Overdue(now) {
			due = overdueStyle.Render(due)
		} else {
			due = dimStyle.Render(due)
		}
		line += "  " + due
	}
	if t.Remind {
		line += " " + remindStyle.Render("⏰")
	}

	lines := []string{lipgloss.NewStyle().MaxWidth(a.width).Render(line)}
	n := a.deps.Config.ContentLines()
	for i, c := range strings.Split(t.Content, "\n") {
		if i >= n {
			break
		}
		lines = append(lines, dimStyle.Render(truncate("      "+c, a.width)))
	}
	for len(lines) < 1+n {
		lines = append(lines, "")
	}
	return lines
}

func (a *App) renderStatusBar() string {
	status := fmt.Sprintf(" %d tasks | n:new e:edit d:del .:done ←/→:group q:quit", len(a.tasks))
	status = statusBarStyle.Render(truncate(status, a.width))

	switch {
	case a.err != nil:
		return errorStyle.Render(truncate("Error: "+a.err.Error(), a.width)) + "\n" + status
	case a.notice != "":
		return noticeStyle.Render(truncate(a.notice, a.width)) + "\n" + status
	}
	return status
}

func (a *App) viewDeleteConfirm() string {
	content := errorStyle.Render("Delete task?") + "\n\n" +
		fmt.Sprintf("  #%d: %s", a.deleteID, a.deleteTitle) + "\n\n" +
		dimStyle.Render("y:yes  n:no")
	return dialogStyle.Render(content)
}

func truncate(s string, maxLen int) string {
	if maxLen < 4 { //nolint:mnd // minimum length for truncation
		maxLen = 4
	}
	if lipgloss.Width(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	target := min(maxLen-3, len(runes)) //nolint:mnd // room for "..."
	for target > 0 && lipgloss.Width(string(runes[:target])) > maxLen-3 {
		target--
	}
	return string(runes[:target]) + "..."
}

// humanDue formats the distance to a due time: "in 5m", "2h ago", "in 3d".
func humanDue(d time.Duration) string {
	const day = 24 * time.Hour
	suffix := func(s string) string {
		if d < 0 {
			return s + " ago"
		}
		return "in " + s
	}
	abs := d.Abs()
	switch {
	case abs < time.Minute:
		return "now"
	case abs < time.Hour:
		return suffix(strconv.Itoa(int(abs.Minutes())) + "m")
	case abs < day:
		return suffix(strconv.Itoa(int(abs.Hours())) + "h")
	default:
		return suffix(strconv.Itoa(int(abs/day)) + "d")
	}
}
