package store

import (
	"context"
	"strings"
	"sync"

	"github.com/patseev1987/todolist/internal/task"
	"github.com/patseev1987/todolist/internal/watcher"
)

// EventKind says what changed.
type EventKind int

// Change kinds.
const (
	TaskChanged EventKind = iota
	TaskDeleted
	GroupsChanged
	AlarmsChanged
	External // another process wrote to the data directory
)

// Event is a change notification. TaskID is set for task and alarm events.
type Event struct {
	Kind   EventKind
	TaskID int64
}

const subscriberBuffer = 64

// Feed wraps a Store with in-process fan-out of change events. Writes made
// through the Feed notify subscribers; writes made by other processes are
// picked up by WatchDir.
type Feed struct {
	Store
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewFeed creates a Feed wrapping s.
func NewFeed(s Store) *Feed {
	return &Feed{
		Store: s,
		subs:  make(map[chan Event]struct{}),
	}
}

// Subscribe returns a buffered channel of events and a function that
// unsubscribes and closes it.
func (f *Feed) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, ch)
			f.mu.Unlock()
			close(ch)
		})
	}
}

// Notify fans e out to all subscribers without blocking.
func (f *Feed) Notify(e Event) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for ch := range f.subs {
		select {
		case ch <- e:
		default:
			// subscriber is behind; drop rather than block the writer
		}
	}
}

// WatchDir notifies External events when files matching the database in dir
// change, until ctx is done.
func (f *Feed) WatchDir(ctx context.Context, dir, dbFile string, errFn func(error)) error {
	w, err := watcher.New([]string{dir}, func() { f.Notify(Event{Kind: External}) },
		watcher.WithMatch(func(name string) bool { return strings.HasPrefix(name, dbFile) }))
	if err != nil {
		return err
	}
	go func() {
		defer w.Close()
		w.Run(ctx, errFn)
	}()
	return nil
}

func (f *Feed) InsertOrReplace(ctx context.Context, t *task.Task) (int64, error) {
	id, err := f.Store.InsertOrReplace(ctx, t)
	if err == nil {
		f.Notify(Event{Kind: TaskChanged, TaskID: id})
	}
	return id, err
}

func (f *Feed) Delete(ctx context.Context, id int64) error {
	err := f.Store.Delete(ctx, id)
	if err == nil {
		f.Notify(Event{Kind: TaskDeleted, TaskID: id})
	}
	return err
}

func (f *Feed) PutTabItem(ctx context.Context, item task.TabItem) error {
	err := f.Store.PutTabItem(ctx, item)
	if err == nil {
		f.Notify(Event{Kind: GroupsChanged})
	}
	return err
}

func (f *Feed) RenameTabItem(ctx context.Context, old string, item task.TabItem) error {
	err := f.Store.RenameTabItem(ctx, old, item)
	if err == nil {
		f.Notify(Event{Kind: GroupsChanged})
	}
	return err
}

func (f *Feed) DeleteTabItem(ctx context.Context, name string) error {
	err := f.Store.DeleteTabItem(ctx, name)
	if err == nil {
		f.Notify(Event{Kind: GroupsChanged})
	}
	return err
}

func (f *Feed) PutAlarm(ctx context.Context, a Alarm) error {
	err := f.Store.PutAlarm(ctx, a)
	if err == nil {
		f.Notify(Event{Kind: AlarmsChanged, TaskID: a.Key})
	}
	return err
}

func (f *Feed) DeleteAlarm(ctx context.Context, key int64) error {
	err := f.Store.DeleteAlarm(ctx, key)
	if err == nil {
		f.Notify(Event{Kind: AlarmsChanged, TaskID: key})
	}
	return err
}

// WatchTask emits the task with the given id now and after every change
// that may affect it. The channel closes when ctx is done, the task is
// deleted, or a read fails.
func (f *Feed) WatchTask(ctx context.Context, id int64) <-chan *task.Task {
	out := make(chan *task.Task, 1)
	events, unsubscribe := f.Subscribe()

	go func() {
		defer close(out)
		defer unsubscribe()

		for {
			t, err := f.GetByID(ctx, id)
			if err != nil {
				return
			}
			if !send(ctx, out, t) {
				return
			}
			if !waitFor(ctx, events, func(e Event) bool {
				if e.Kind == External || e.Kind == GroupsChanged {
					return true
				}
				return e.TaskID == id && (e.Kind == TaskChanged || e.Kind == TaskDeleted)
			}) {
				return
			}
		}
	}()
	return out
}

// WatchList emits the tasks matching filter now and after every task or
// group change. The channel closes when ctx is done or a read fails.
func (f *Feed) WatchList(ctx context.Context, filter Filter) <-chan []*task.Task {
	out := make(chan []*task.Task, 1)
	events, unsubscribe := f.Subscribe()

	go func() {
		defer close(out)
		defer unsubscribe()

		for {
			tasks, err := f.List(ctx, filter)
			if err != nil || !send(ctx, out, tasks) {
				return
			}
			if !waitFor(ctx, events, func(e Event) bool { return e.Kind != AlarmsChanged }) {
				return
			}
		}
	}()
	return out
}

func send[T any](ctx context.Context, out chan T, v T) bool {
	select {
	case out <- v:
		return true
	case <-ctx.Done():
		return false
	}
}

// waitFor blocks until an event satisfying relevant arrives, then drains any
// queued events so a burst causes one re-read.
func waitFor(ctx context.Context, events <-chan Event, relevant func(Event) bool) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case e, ok := <-events:
			if !ok {
				return false
			}
			if !relevant(e) {
				continue
			}
			for {
				select {
				case _, ok := <-events:
					if !ok {
						return false
					}
				default:
					return true
				}
			}
		}
	}
}
