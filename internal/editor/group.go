package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/patseev1987/todolist/internal/activity"
	"github.com/patseev1987/todolist/internal/store"
	"github.com/patseev1987/todolist/internal/task"
)

// GroupStore is the part of the task store a GroupSession uses.
type GroupStore interface {
	TabItem(ctx context.Context, name string) (task.TabItem, error)
	TabItems(ctx context.Context) ([]task.TabItem, error)
	PutTabItem(ctx context.Context, item task.TabItem) error
	RenameTabItem(ctx context.Context, old string, item task.TabItem) error
}

// GroupSession edits one group tab.
type GroupSession struct {
	*loop
	store GroupStore
	opts  options

	// Owned by the session goroutine.
	item     *task.TabItem
	original string // persisted name, empty for a new group
	failed   bool
}

// OpenGroup starts a group session. An empty name edits a new group.
func OpenGroup(ctx context.Context, name string, gs GroupStore, opts ...Option) *GroupSession {
	s := &GroupSession{store: gs, opts: buildOptions(opts)}
	if strings.TrimSpace(name) == "" {
		item := task.NewTabItem()
		s.item = &item
		s.loop = newLoop(ctx, s.snapshot("", false))
		return s
	}

	s.loop = newLoop(ctx, Loading{})
	s.enqueue(func(ctx context.Context) {
		item, err := gs.TabItem(ctx, name)
		if errors.Is(err, store.ErrNotFound) {
			s.fail(fmt.Errorf("%w: %s", ErrGroupNotFound, name))
			return
		}
		if err != nil {
			s.fail(fmt.Errorf("loading group %s: %w", name, err))
			return
		}
		s.item = &item
		s.original = item.Name
		s.publish(s.snapshot("", false))
	})
	return s
}

// State returns the latest snapshot.
func (s *GroupSession) State() State { return s.get() }

// Subscribe returns a channel that always holds the newest snapshot.
func (s *GroupSession) Subscribe() (<-chan State, func()) { return s.subscribe() }

// Flush waits until all previously issued intents have been applied.
func (s *GroupSession) Flush(ctx context.Context) error { return s.flush(ctx) }

// Close stops the session.
func (s *GroupSession) Close() { s.stop() }

func (s *GroupSession) snapshot(msg string, taken bool) GroupResult {
	return GroupResult{Item: *s.item, NameTaken: taken, ErrorMessage: msg}
}

func (s *GroupSession) fail(err error) {
	s.failed = true
	s.publish(Failed{Err: err})
}

func (s *GroupSession) edit(fn func(item *task.TabItem) string) {
	s.enqueue(func(context.Context) {
		if s.failed || s.item == nil {
			return
		}
		s.publish(s.snapshot(fn(s.item), false))
	})
}

// SetName renames the draft.
func (s *GroupSession) SetName(name string) {
	s.edit(func(item *task.TabItem) string {
		item.Name = name
		return ""
	})
}

// SetSelectedIcon sets the icon shown for the active tab.
func (s *GroupSession) SetSelectedIcon(icon string) {
	s.edit(func(item *task.TabItem) string {
		if !task.ValidIcon(icon) {
			return unknownIcon(icon)
		}
		item.SelectedIcon = icon
		return ""
	})
}

// SetUnselectedIcon sets the icon shown for inactive tabs.
func (s *GroupSession) SetUnselectedIcon(icon string) {
	s.edit(func(item *task.TabItem) string {
		if !task.ValidIcon(icon) {
			return unknownIcon(icon)
		}
		item.UnselectedIcon = icon
		return ""
	})
}

func unknownIcon(icon string) string {
	return fmt.Sprintf("unknown icon %q (valid: %s)", icon, strings.Join(task.IconNames(), ", "))
}

// Save writes the group. A blank or duplicate name is reported in the
// snapshot and nothing is written.
func (s *GroupSession) Save(onDone func()) {
	s.enqueue(func(ctx context.Context) {
		if s.failed || s.item == nil {
			return
		}
		msg, taken, err := s.save(ctx)
		switch {
		case err != nil:
			s.fail(err)
		case msg != "":
			s.publish(s.snapshot(msg, taken))
		default:
			s.publish(s.snapshot("", false))
			if onDone != nil {
				s.opts.deliver(onDone)
			}
		}
	})
}

func (s *GroupSession) save(ctx context.Context) (string, bool, error) {
	item := s.item
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		return "group name must not be blank", false, nil
	}

	items, err := s.store.TabItems(ctx)
	if err != nil {
		return "", false, fmt.Errorf("listing groups: %w", err)
	}
	next := 0
	for _, other := range items {
		if other.Name == item.Name && other.Name != s.original {
			return fmt.Sprintf("group %q already exists", item.Name), true, nil
		}
		next = max(next, other.Slot+1)
	}

	switch {
	case s.original == "":
		item.Slot = next
		err = s.store.PutTabItem(ctx, *item)
	case s.original != item.Name:
		err = s.store.RenameTabItem(ctx, s.original, *item)
	default:
		err = s.store.PutTabItem(ctx, *item)
	}
	if err != nil {
		return "", false, fmt.Errorf("saving group %s: %w", item.Name, err)
	}

	detail := item.Name
	if s.original != "" && s.original != item.Name {
		detail = s.original + " -> " + item.Name
	}
	s.original = item.Name
	s.opts.record(activity.ActionGroupSave, 0, detail)
	return "", false, nil
}
