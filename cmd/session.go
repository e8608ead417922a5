package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/patseev1987/todolist/internal/clierr"
	"github.com/patseev1987/todolist/internal/date"
	"github.com/patseev1987/todolist/internal/editor"
	"github.com/patseev1987/todolist/internal/output"
	"github.com/patseev1987/todolist/internal/task"
)

// addTaskFlags registers the field flags shared by add and edit.
func addTaskFlags(fs *pflag.FlagSet) {
	fs.String("title", "", "task title")
	fs.String("content", "", "task content (markdown)")
	fs.String("group", "", "group name")
	fs.String("status", "", "status (not-started, in-progress, done)")
	fs.String("date", "", "due date (YYYY-MM-DD)")
	fs.String("time", "", "due time of day (HH:MM)")
	fs.Bool("remind", false, "schedule a reminder at the due time")
	fs.Bool("no-remind", false, "turn the reminder off (clears the due time)")
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		switch name {
		case "body", "description":
			name = "content"
		case "due":
			name = "date"
		}
		return pflag.NormalizedName(name)
	})
}

// openSession starts an editor session wired to the backend.
func (b *backend) openSession(ctx context.Context, id int64) *editor.Session {
	return editor.Open(ctx, id,
		editor.Deps{Store: b.feed, Scheduler: b.sched},
		editor.WithDefaults(b.cfg.Defaults.Group, task.Status(b.cfg.Defaults.Status)),
		editor.WithRecorder(b.record),
		editor.WithLock(b.lock),
	)
}

// currentDraft waits for pending intents and returns the draft.
func currentDraft(ctx context.Context, s *editor.Session, id int64) (task.Task, error) {
	if err := s.Flush(ctx); err != nil {
		return task.Task{}, err
	}
	switch st := s.State().(type) {
	case editor.Result:
		return st.Draft, nil
	case editor.Failed:
		return task.Task{}, sessionError(st.Err, id)
	default:
		return task.Task{}, fmt.Errorf("task #%d did not load", id)
	}
}

// applyTaskFlags turns changed flags into session intents. It reports
// whether any field flag was given.
func applyTaskFlags(ctx context.Context, cmd *cobra.Command, b *backend, s *editor.Session, cur task.Task) (bool, error) {
	fs := cmd.Flags()
	changed := false

	if fs.Changed("title") {
		v, _ := fs.GetString("title")
		s.SetTitle(v)
		changed = true
	}
	if fs.Changed("content") {
		v, _ := fs.GetString("content")
		s.SetContent(v)
		changed = true
	}
	if v, _ := fs.GetString("group"); v != "" {
		known, err := b.groupNames(ctx)
		if err != nil {
			return false, err
		}
		if err := task.ValidateGroup(v, known); err != nil {
			return false, err
		}
		s.SetGroup(v)
		changed = true
	}
	if v, _ := fs.GetString("status"); v != "" {
		if err := task.ValidateStatus(v); err != nil {
			return false, err
		}
		if task.Status(v) != cur.Status {
			s.SetStatus(task.Status(v))
		}
		changed = true
	}

	remind, _ := fs.GetBool("remind")
	noRemind, _ := fs.GetBool("no-remind")
	if remind && noRemind {
		return false, clierr.New(clierr.InvalidInput, "--remind and --no-remind are mutually exclusive")
	}
	// Turning the reminder off clears the due time, so it goes before the
	// date flags; turning it on keeps a due time already set by them.
	if noRemind && cur.Remind {
		s.ToggleRemind()
	}

	if v, _ := fs.GetString("date"); v != "" {
		d, err := date.Parse(v)
		if err != nil {
			return false, task.ValidateDate("due", v, err)
		}
		s.SetDate(d)
		changed = true
	}
	if v, _ := fs.GetString("time"); v != "" {
		c, err := date.ParseClock(v)
		if err != nil {
			return false, task.ValidateTime(v, err)
		}
		s.SetTime(c)
		changed = true
	}

	if remind && !cur.Remind {
		s.ToggleRemind()
	}
	return changed || remind || noRemind, nil
}

// saveSession saves the draft and waits for the outcome.
func saveSession(ctx context.Context, s *editor.Session, id int64) (editor.Result, error) {
	done := make(chan struct{})
	s.Save(func() { close(done) })
	if err := s.Flush(ctx); err != nil {
		return editor.Result{}, err
	}

	switch st := s.State().(type) {
	case editor.Failed:
		return editor.Result{}, sessionError(st.Err, id)
	case editor.Result:
		select {
		case <-done:
			return st, nil
		default:
			return st, validationError(st.Errors)
		}
	default:
		return editor.Result{}, fmt.Errorf("task #%d did not load", id)
	}
}

func validationError(e editor.Errors) error {
	var msg string
	switch {
	case e.TitleEmpty:
		msg = "title must not be empty"
	case e.ContentEmpty:
		msg = "content must not be empty (use --content)"
	case e.DateInvalid:
		msg = "reminder time must be in the future"
	default:
		msg = "task is not valid"
	}
	return clierr.New(clierr.ValidationFailed, msg).WithDetails(map[string]any{
		"title_empty":   e.TitleEmpty,
		"content_empty": e.ContentEmpty,
		"date_invalid":  e.DateInvalid,
	})
}

// sessionError maps a terminal session failure to a coded error.
func sessionError(err error, id int64) error {
	switch {
	case errors.Is(err, editor.ErrTaskNotFound):
		return task.NotFound(id)
	case errors.Is(err, editor.ErrRemindWithoutDue):
		return clierr.New(clierr.ValidationFailed, "a reminder needs a due date (use --date and --time)")
	default:
		return err
	}
}

func outputSaved(verb string, r editor.Result) error {
	t := r.Draft
	res := output.SaveResult{
		Task:             &t,
		Scheduled:        t.Remind && !r.Errors.PermissionDenied,
		PermissionDenied: r.Errors.PermissionDenied,
	}
	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, res)
	}

	output.Messagef(os.Stdout, "%s task #%d: %s", verb, t.ID, t.Title)
	output.Messagef(os.Stdout, "  Group: %s | Status: %s", t.Group, t.Status)
	if t.Due != nil {
		output.Messagef(os.Stdout, "  Due: %s", t.Due.Format("2006-01-02 15:04"))
	}
	switch {
	case res.Scheduled:
		output.Messagef(os.Stdout, "  Reminder: scheduled")
	case res.PermissionDenied:
		output.Messagef(os.Stdout, "  Reminder: not scheduled (exact reminders are disabled)")
	}
	return nil
}
