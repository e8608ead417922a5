// Package store persists tasks, groups and the reminder alarm registry.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patseev1987/todolist/internal/config"
	"github.com/patseev1987/todolist/internal/task"
)

// Sentinel errors.
var (
	ErrNotFound    = errors.New("not found")
	ErrGroupExists = errors.New("group already exists")
	ErrAlarmExists = errors.New("alarm key in use")
)

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Group     string
	Status    task.Status
	Search    string // case-insensitive match on title or content
	Remind    bool   // only tasks with a reminder
	DueBefore *time.Time
	Limit     int
}

// Alarm is a registered one-shot reminder timer.
type Alarm struct {
	Key     int64     `json:"key"`
	FireAt  time.Time `json:"fire_at"`
	Title   string    `json:"title"`
	Content string    `json:"content"`
	TaskUID string    `json:"task_uid"`
	Created time.Time `json:"created"`
}

// Store is the task store. Writes are last-write-wins.
type Store interface {
	// InsertOrReplace writes t. A zero ID inserts and assigns the next
	// identifier (highest existing ID plus one); a non-zero ID replaces or
	// creates that record. t.ID, t.Created and t.Updated are set in place.
	InsertOrReplace(ctx context.Context, t *task.Task) (int64, error)
	GetByID(ctx context.Context, id int64) (*task.Task, error)
	// LastID returns the highest task ID, or 0 for an empty store.
	LastID(ctx context.Context) (int64, error)
	List(ctx context.Context, f Filter) ([]*task.Task, error)
	Delete(ctx context.Context, id int64) error
	CountByGroup(ctx context.Context) (map[string]int, error)

	PutTabItem(ctx context.Context, item task.TabItem) error
	TabItem(ctx context.Context, name string) (task.TabItem, error)
	TabItems(ctx context.Context) ([]task.TabItem, error)
	// RenameTabItem replaces the group named old with item and moves its tasks.
	RenameTabItem(ctx context.Context, old string, item task.TabItem) error
	DeleteTabItem(ctx context.Context, name string) error

	// PutAlarm registers a new alarm; an occupied key yields ErrAlarmExists.
	PutAlarm(ctx context.Context, a Alarm) error
	// DeleteAlarm removes an alarm; unknown keys are ignored.
	DeleteAlarm(ctx context.Context, key int64) error
	Alarm(ctx context.Context, key int64) (Alarm, error)
	Alarms(ctx context.Context) ([]Alarm, error)

	Close() error
}

// Open returns the store selected by cfg.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Store.Driver {
	case config.DriverSQLite, "":
		return OpenSQLite(cfg.DBPath())
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg.Store.DSN)
	case config.DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// Seed inserts the built-in groups when the store has none.
func Seed(ctx context.Context, s Store) error {
	items, err := s.TabItems(ctx)
	if err != nil {
		return err
	}
	if len(items) > 0 {
		return nil
	}
	for _, item := range task.DefaultTabItems() {
		if err := s.PutTabItem(ctx, item); err != nil {
			return fmt.Errorf("seeding group %s: %w", item.Name, err)
		}
	}
	return nil
}

// GroupNames returns the names of all groups in tab order.
func GroupNames(ctx context.Context, s Store) ([]string, error) {
	items, err := s.TabItems(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Name
	}
	return names, nil
}

// stamp assigns timestamps before a write.
func stamp(t *task.Task, now time.Time) {
	if t.Created.IsZero() {
		t.Created = now
	}
	t.Updated = now
}

// matches applies f to t in Go, for backends that filter in memory.
func (f Filter) matches(t *task.Task) bool {
	if f.Group != "" && t.Group != f.Group {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Remind && !t.Remind {
		return false
	}
	if f.DueBefore != nil && (t.Due == nil || !t.Due.Before(*f.DueBefore)) {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(t.Title), q) &&
			!strings.Contains(strings.ToLower(t.Content), q) {
			return false
		}
	}
	return true
}
