package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/patseev1987/todolist/internal/date"
	"github.com/patseev1987/todolist/internal/editor"
	"github.com/patseev1987/todolist/internal/task"
)

// Form fields in tab order.
const (
	fieldTitle = iota
	fieldContent
	fieldGroup
	fieldStatus
	fieldDate
	fieldTime
	fieldRemind
	fieldCount
)

const (
	inputWidth   = 48
	titleLimit   = 200
	contentLimit = 2000
)

// form edits one task through an editor session. Every keystroke becomes an
// intent; the form renders whatever snapshot the session published last.
type form struct {
	session *editor.Session
	states  <-chan editor.State
	stop    func()
	saved   chan struct{}
	closed  chan struct{}

	title   textinput.Model
	content textinput.Model
	date    textinput.Model
	clock   textinput.Model

	// canRemind reports the exact-reminder capability; grant turns it on.
	// grant is nil when the TUI has no config to write.
	canRemind func() bool
	grant     func() error

	focus    int
	groups   []string
	state    editor.State
	inputErr string
	filled   bool
}

func newForm(ctx context.Context, id int64, a *App) *form {
	cfg := a.deps.Config
	group := a.currentGroup()
	if group == "" {
		group = cfg.Defaults.Group
	}
	opts := []editor.Option{
		editor.WithClock(a.now),
		editor.WithDefaults(group, task.Status(cfg.Defaults.Status)),
		editor.WithRecorder(a.deps.Record),
	}
	if a.deps.Lock != nil {
		opts = append(opts, editor.WithLock(a.deps.Lock))
	}

	s := editor.Open(ctx, id, editor.Deps{Store: a.deps.Store, Scheduler: a.deps.Scheduler}, opts...)
	states, stop := s.Subscribe()
	f := &form{
		session: s,
		states:  states,
		stop:    stop,
		saved:   make(chan struct{}, 1),
		closed:  make(chan struct{}),
		title:   newInput("What needs doing?", titleLimit),
		content: newInput("Details", contentLimit),
		date:    newInput("YYYY-MM-DD", len("2006-01-02")),
		clock:   newInput("HH:MM", len("15:04")),
		groups:  a.groupNames(),

		canRemind: a.deps.Scheduler.HasPermission,
	}
	if cfg.Dir() != "" {
		f.grant = a.grantReminders
	}
	f.apply(s.State())
	return f
}

func newInput(placeholder string, limit int) textinput.Model {
	in := textinput.New()
	in.Prompt = ""
	in.Placeholder = placeholder
	in.CharLimit = limit
	in.Width = inputWidth
	return in
}

func (f *form) close() {
	f.stop()
	f.session.Close()
	close(f.closed)
}

func (f *form) waitState() tea.Cmd {
	return func() tea.Msg {
		s, ok := <-f.states
		if !ok {
			return nil
		}
		return stateMsg{form: f, state: s}
	}
}

func (f *form) waitSaved() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-f.saved:
			return savedMsg{form: f}
		case <-f.closed:
			return nil
		}
	}
}

func (f *form) onSaved() {
	select {
	case f.saved <- struct{}{}:
	default:
	}
}

func (f *form) focusCmd() tea.Cmd {
	return f.setFocus(f.focus)
}

// apply takes a published snapshot. Inputs are filled from the first
// draft; the due inputs follow the draft unless the user is typing in them.
func (f *form) apply(s editor.State) {
	f.state = s
	res, ok := s.(editor.Result)
	if !ok {
		return
	}
	if !f.filled {
		f.title.SetValue(res.Draft.Title)
		f.content.SetValue(res.Draft.Content)
		f.filled = true
	}
	if f.focus != fieldDate && f.focus != fieldTime {
		d, c := dueInputs(res.Draft)
		f.date.SetValue(d)
		f.clock.SetValue(c)
	}
}

func dueInputs(t task.Task) (string, string) {
	if t.Due == nil {
		return "", ""
	}
	return date.Of(*t.Due).String(), date.ClockOf(*t.Due).String()
}

func (f *form) draft() (task.Task, bool) {
	res, ok := f.state.(editor.Result)
	return res.Draft, ok
}

func (f *form) handleKey(msg tea.KeyMsg) tea.Cmd {
	draft, ok := f.draft()
	if !ok {
		return nil // loading or failed; only esc applies
	}

	switch msg.String() {
	case "ctrl+s":
		if f.commitDue(draft) {
			f.session.Save(f.onSaved)
		}
		return nil
	case "ctrl+g":
		f.grantPermission()
		return nil
	case "tab", "down":
		return f.move(draft, 1)
	case "shift+tab", "up":
		return f.move(draft, -1)
	}

	switch f.focus {
	case fieldTitle:
		return f.updateText(&f.title, msg, f.session.SetTitle)
	case fieldContent:
		return f.updateText(&f.content, msg, f.session.SetContent)
	case fieldDate:
		var cmd tea.Cmd
		f.date, cmd = f.date.Update(msg)
		return cmd
	case fieldTime:
		var cmd tea.Cmd
		f.clock, cmd = f.clock.Update(msg)
		return cmd
	case fieldGroup:
		if step := arrowStep(msg); step != 0 && len(f.groups) > 0 {
			f.session.SetGroup(cycle(f.groups, draft.Group, step))
		}
	case fieldStatus:
		if step := arrowStep(msg); step != 0 {
			f.session.SetStatus(cycle(task.Statuses(), draft.Status, step))
		}
	case fieldRemind:
		if msg.String() == " " || msg.String() == "enter" {
			f.session.ToggleRemind()
			if !draft.Remind && !f.canRemind() {
				f.session.ReportPermission(false)
			}
		}
	}
	return nil
}

// grantPermission enables exact reminders and reports the outcome to the
// session, which clears or keeps the permission warning.
func (f *form) grantPermission() {
	if f.grant == nil {
		return
	}
	f.inputErr = ""
	if err := f.grant(); err != nil {
		f.inputErr = err.Error()
		return
	}
	f.session.ReportPermission(f.canRemind())
}

func (f *form) updateText(in *textinput.Model, msg tea.KeyMsg, set func(string)) tea.Cmd {
	before := in.Value()
	var cmd tea.Cmd
	*in, cmd = in.Update(msg)
	if in.Value() != before {
		set(in.Value())
	}
	return cmd
}

func (f *form) move(draft task.Task, step int) tea.Cmd {
	if f.focus == fieldDate || f.focus == fieldTime {
		if !f.commitDue(draft) {
			return nil
		}
	}
	return f.setFocus((f.focus + step + fieldCount) % fieldCount)
}

func (f *form) setFocus(field int) tea.Cmd {
	f.focus = field
	inputs := map[int]*textinput.Model{
		fieldTitle:   &f.title,
		fieldContent: &f.content,
		fieldDate:    &f.date,
		fieldTime:    &f.clock,
	}
	var cmd tea.Cmd
	for k, in := range inputs {
		if k == field {
			cmd = in.Focus()
			continue
		}
		in.Blur()
	}
	return cmd
}

// commitDue turns edited date and time inputs into intents. It reports
// false when an input does not parse.
func (f *form) commitDue(draft task.Task) bool {
	f.inputErr = ""
	curDate, curClock := dueInputs(draft)

	if v := strings.TrimSpace(f.date.Value()); v != "" && v != curDate {
		d, err := date.Parse(v)
		if err != nil {
			f.inputErr = err.Error()
			return false
		}
		f.session.SetDate(d)
	}
	if v := strings.TrimSpace(f.clock.Value()); v != "" && v != curClock {
		c, err := date.ParseClock(v)
		if err != nil {
			f.inputErr = err.Error()
			return false
		}
		f.session.SetTime(c)
	}
	return true
}

func arrowStep(msg tea.KeyMsg) int {
	switch msg.String() {
	case "left", "h":
		return -1
	case "right", "l", " ":
		return 1
	}
	return 0
}

func cycle[T comparable](values []T, cur T, step int) T {
	i := slices.Index(values, cur)
	if i < 0 {
		return values[0]
	}
	return values[(i+step+len(values))%len(values)]
}

// --- View rendering ---

func (f *form) render(width int) string {
	switch s := f.state.(type) {
	case editor.Loading:
		return dialogStyle.Render("Loading task...")
	case editor.Failed:
		return dialogStyle.Render(errorStyle.Render("Cannot edit task") + "\n\n" +
			s.Err.Error() + "\n\n" + dimStyle.Render("esc:back"))
	}

	draft, _ := f.draft()
	heading := "New task"
	if draft.ID != 0 {
		heading = fmt.Sprintf("Edit task #%d", draft.ID)
	}

	remind := "[ ]"
	if draft.Remind {
		remind = remindStyle.Render("[x]")
	}

	rows := []string{
		lipgloss.NewStyle().Bold(true).Render(heading),
		"",
		f.row(fieldTitle, "Title", f.title.View()),
		f.row(fieldContent, "Content", f.content.View()),
		f.row(fieldGroup, "Group", "< "+draft.Group+" >"),
		f.row(fieldStatus, "Status", "< "+statusMarks[string(draft.Status)]+" "+string(draft.Status)+" >"),
		f.row(fieldDate, "Date", f.date.View()),
		f.row(fieldTime, "Time", f.clock.View()),
		f.row(fieldRemind, "Remind", remind),
		"",
	}
	if msgs := f.problems(); len(msgs) > 0 {
		for _, m := range msgs {
			rows = append(rows, errorStyle.Render(m))
		}
		rows = append(rows, "")
	}
	help := "tab:next  ←/→:change  space:toggle  ctrl+s:save  esc:cancel"
	if res, ok := f.state.(editor.Result); ok && res.Errors.PermissionDenied && f.grant != nil {
		help += "  ctrl+g:allow reminders"
	}
	rows = append(rows, dimStyle.Render(help))

	box := dialogStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	return lipgloss.NewStyle().MaxWidth(width).Render(box)
}

func (f *form) row(field int, label, value string) string {
	l := labelStyle.Render(label)
	if f.focus == field {
		l = focusStyle.Inherit(labelStyle).Render(label)
	}
	return l + " " + value
}

// problems lists the messages for the current error flags.
func (f *form) problems() []string {
	var msgs []string
	if f.inputErr != "" {
		msgs = append(msgs, f.inputErr)
	}
	res, ok := f.state.(editor.Result)
	if !ok {
		return msgs
	}
	e := res.Errors
	if e.TitleEmpty {
		msgs = append(msgs, "Title must not be empty.")
	}
	if e.ContentEmpty {
		msgs = append(msgs, "Content must not be empty.")
	}
	if e.DateInvalid {
		msgs = append(msgs, "The reminder time must be in the future.")
	}
	if e.PermissionDenied {
		msgs = append(msgs, "Exact reminders are disabled; the reminder will not be scheduled.")
	}
	return msgs
}
