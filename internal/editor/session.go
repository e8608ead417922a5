package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patseev1987/todolist/internal/activity"
	"github.com/patseev1987/todolist/internal/date"
	"github.com/patseev1987/todolist/internal/reminder"
	"github.com/patseev1987/todolist/internal/store"
	"github.com/patseev1987/todolist/internal/task"
)

// Store is the part of the task store a Session uses.
type Store interface {
	GetByID(ctx context.Context, id int64) (*task.Task, error)
	LastID(ctx context.Context) (int64, error)
	InsertOrReplace(ctx context.Context, t *task.Task) (int64, error)
}

// Deps are the collaborators of a Session.
type Deps struct {
	Store     Store
	Scheduler reminder.Scheduler
}

type options struct {
	now     func() time.Time
	group   string
	status  task.Status
	record  func(action string, id int64, detail string)
	deliver func(func())
	lock    func(func() error) error
}

// Option configures a session.
type Option func(*options)

// WithClock overrides the current time.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithDefaults sets the group and status of a new draft.
func WithDefaults(group string, status task.Status) Option {
	return func(o *options) {
		if group != "" {
			o.group = group
		}
		if status != "" {
			o.status = status
		}
	}
}

// WithRecorder sets the activity recorder.
func WithRecorder(r func(action string, id int64, detail string)) Option {
	return func(o *options) { o.record = r }
}

// WithDeliver hands completion callbacks to the foreground. By default they
// run on the session goroutine.
func WithDeliver(d func(func())) Option {
	return func(o *options) { o.deliver = d }
}

// WithLock wraps saves of new tasks, which predict their identifier from
// LastID, in an exclusive section.
func WithLock(l func(func() error) error) Option {
	return func(o *options) { o.lock = l }
}

func buildOptions(opts []Option) options {
	o := options{
		now:     time.Now,
		group:   task.DefaultGroup,
		status:  task.StatusNotStarted,
		record:  func(string, int64, string) {},
		deliver: func(fn func()) { fn() },
		lock:    func(fn func() error) error { return fn() },
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Session edits one task. Intents are applied in call order on the session
// goroutine; every intent publishes a new State.
type Session struct {
	*loop
	deps Deps
	opts options

	// Owned by the session goroutine.
	draft  *task.Task
	wasSet bool // persisted version had a reminder
	failed bool
}

// Open starts a session. id 0 edits a new task; any other id loads that task.
func Open(ctx context.Context, id int64, deps Deps, opts ...Option) *Session {
	s := &Session{deps: deps, opts: buildOptions(opts)}
	if id == 0 {
		s.draft = task.New(s.opts.group)
		s.draft.Status = s.opts.status
		s.loop = newLoop(ctx, s.snapshot(Errors{}))
		return s
	}

	s.loop = newLoop(ctx, Loading{})
	s.enqueue(func(ctx context.Context) {
		t, err := deps.Store.GetByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			s.fail(fmt.Errorf("%w: %d", ErrTaskNotFound, id))
			return
		}
		if err != nil {
			s.fail(fmt.Errorf("loading task %d: %w", id, err))
			return
		}
		s.draft = t
		s.wasSet = t.Remind
		s.publish(s.snapshot(Errors{}))
	})
	return s
}

// State returns the latest snapshot.
func (s *Session) State() State { return s.get() }

// Subscribe returns a channel that always holds the newest snapshot.
func (s *Session) Subscribe() (<-chan State, func()) { return s.subscribe() }

// Flush waits until all previously issued intents have been applied.
func (s *Session) Flush(ctx context.Context) error { return s.flush(ctx) }

// Close stops the session. A save in flight may still complete but is no
// longer observed.
func (s *Session) Close() { s.stop() }

func (s *Session) snapshot(e Errors) Result {
	return Result{Draft: *s.draft.Clone(), Errors: e}
}

func (s *Session) fail(err error) {
	s.failed = true
	s.publish(Failed{Err: err})
}

// edit enqueues a draft mutation. Intents are dropped before the task is
// loaded and after a failure.
func (s *Session) edit(fn func(t *task.Task)) {
	s.enqueue(func(context.Context) {
		if s.failed || s.draft == nil {
			return
		}
		fn(s.draft)
		s.publish(s.snapshot(Errors{}))
	})
}

// SetTitle replaces the title.
func (s *Session) SetTitle(title string) {
	s.edit(func(t *task.Task) { t.Title = title })
}

// SetContent replaces the content.
func (s *Session) SetContent(content string) {
	s.edit(func(t *task.Task) { t.Content = content })
}

// SetGroup moves the draft to another group.
func (s *Session) SetGroup(group string) {
	s.edit(func(t *task.Task) { t.Group = group })
}

// SetStatus changes the status and its lifecycle timestamps.
func (s *Session) SetStatus(status task.Status) {
	s.edit(func(t *task.Task) {
		task.UpdateTimestamps(t, t.Status, status, s.opts.now())
		t.Status = status
	})
}

// SetDate replaces the calendar day of the due time.
func (s *Session) SetDate(d date.Date) {
	s.edit(func(t *task.Task) {
		due := date.WithDate(t.Due, d, s.opts.now())
		t.Due = &due
	})
}

// SetTime replaces the time of day of the due time.
func (s *Session) SetTime(c date.Clock) {
	s.edit(func(t *task.Task) {
		due := date.WithClock(t.Due, c, s.opts.now())
		t.Due = &due
	})
}

// ToggleRemind flips the reminder. Enabling without a due time sets it to
// the current minute; disabling clears the due time.
func (s *Session) ToggleRemind() {
	s.edit(func(t *task.Task) {
		t.Remind = !t.Remind
		switch {
		case !t.Remind:
			t.Due = nil
		case t.Due == nil:
			due := date.TruncateMinute(s.opts.now())
			t.Due = &due
		}
	})
}

// ReportPermission passes the outcome of a capability request.
func (s *Session) ReportPermission(granted bool) {
	s.enqueue(func(context.Context) {
		if s.failed || s.draft == nil {
			return
		}
		s.opts.record(activity.ActionPermission, s.draft.ID, fmt.Sprintf("granted=%t", granted))
		s.publish(s.snapshot(Errors{PermissionDenied: !granted}))
	})
}

// Save validates and persists the draft, scheduling its reminder first.
// onDone runs after the persisted draft has been published; it is not called
// when validation fails.
func (s *Session) Save(onDone func()) {
	s.enqueue(func(ctx context.Context) {
		if s.failed || s.draft == nil {
			return
		}
		flags, saved, err := s.save(ctx)
		switch {
		case err != nil:
			s.fail(err)
		case !saved:
			s.publish(s.snapshot(flags))
		default:
			s.publish(s.snapshot(flags))
			if onDone != nil {
				s.opts.deliver(onDone)
			}
		}
	})
}

func (s *Session) save(ctx context.Context) (Errors, bool, error) {
	t := s.draft
	if strings.TrimSpace(t.Title) == "" {
		return Errors{TitleEmpty: true}, false, nil
	}
	if strings.TrimSpace(t.Content) == "" {
		return Errors{ContentEmpty: true}, false, nil
	}

	if t.ID == 0 {
		var (
			flags Errors
			saved bool
		)
		err := s.opts.lock(func() error {
			var err error
			flags, saved, err = s.persist(ctx)
			return err
		})
		return flags, saved, err
	}
	return s.persist(ctx)
}

func (s *Session) persist(ctx context.Context) (Errors, bool, error) {
	t := s.draft
	var flags Errors

	if !t.Remind && s.wasSet && t.ID != 0 {
		// Reminder switched off since the last save: the old alarm is stale.
		if err := s.deps.Scheduler.Cancel(ctx, t.ID); err != nil {
			return flags, false, err
		}
	}

	var key int64
	scheduled := false
	if t.Remind {
		if t.ID != 0 {
			if err := s.deps.Scheduler.Cancel(ctx, t.ID); err != nil {
				return flags, false, err
			}
		}
		if t.Due == nil {
			return flags, false, ErrRemindWithoutDue
		}
		if !t.Due.After(s.opts.now()) {
			return Errors{DateInvalid: true}, false, nil
		}

		key = t.ID
		if key == 0 {
			last, err := s.deps.Store.LastID(ctx)
			if err != nil {
				return flags, false, fmt.Errorf("predicting task id: %w", err)
			}
			key = last + 1
		}
		ok, err := s.deps.Scheduler.Schedule(ctx, key, *t.Due, payload(t))
		if err != nil {
			return flags, false, err
		}
		scheduled = ok
		flags.PermissionDenied = !ok
	}

	created := t.ID == 0
	id, err := s.deps.Store.InsertOrReplace(ctx, t)
	if err != nil {
		if created && scheduled {
			// The predicted key belongs to no task; free it for the next save.
			_ = s.deps.Scheduler.Cancel(ctx, key)
		}
		return flags, false, fmt.Errorf("saving task: %w", err)
	}
	t.ID = id
	s.wasSet = t.Remind && scheduled

	if scheduled && id != key {
		if err := s.rekey(ctx, key, id); err != nil {
			return flags, false, err
		}
	}

	action := activity.ActionUpdate
	if created {
		action = activity.ActionCreate
	}
	s.opts.record(action, id, t.Title)
	return flags, true, nil
}

func (s *Session) rekey(ctx context.Context, predicted, assigned int64) error {
	t := s.draft
	if err := s.deps.Scheduler.Cancel(ctx, predicted); err != nil {
		return err
	}
	if _, err := s.deps.Scheduler.Schedule(ctx, assigned, *t.Due, payload(t)); err != nil {
		return err
	}
	s.opts.record(activity.ActionRekey, assigned, fmt.Sprintf("predicted %d", predicted))
	return nil
}

func payload(t *task.Task) reminder.Payload {
	return reminder.Payload{Title: t.Title, Content: t.Content, TaskUID: t.UID}
}
