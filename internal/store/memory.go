package store

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/patseev1987/todolist/internal/task"
)

// Memory is an in-process Store. It backs tests and the memory driver.
type Memory struct {
	mu     sync.RWMutex
	tasks  map[int64]*task.Task
	groups map[string]task.TabItem
	alarms map[int64]Alarm
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		tasks:  make(map[int64]*task.Task),
		groups: make(map[string]task.TabItem),
		alarms: make(map[int64]Alarm),
	}
}

func (m *Memory) InsertOrReplace(_ context.Context, t *task.Task) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.ID == 0 {
		t.ID = m.lastID() + 1
	}
	stamp(t, time.Now())
	m.tasks[t.ID] = t.Clone()
	return t.ID, nil
}

func (m *Memory) GetByID(_ context.Context, id int64) (*task.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t.Clone(), nil
}

func (m *Memory) LastID(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastID(), nil
}

func (m *Memory) lastID() int64 {
	var last int64
	for id := range m.tasks {
		last = max(last, id)
	}
	return last
}

func (m *Memory) List(_ context.Context, f Filter) ([]*task.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := slices.Sorted(maps.Keys(m.tasks))
	var out []*task.Task
	for _, id := range ids {
		t := m.tasks[id]
		if !f.matches(t) {
			continue
		}
		out = append(out, t.Clone())
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(m.tasks, id)
	return nil
}

func (m *Memory) CountByGroup(_ context.Context) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]int)
	for _, t := range m.tasks {
		counts[t.Group]++
	}
	return counts, nil
}

func (m *Memory) PutTabItem(_ context.Context, item task.TabItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups[item.Name] = item
	return nil
}

func (m *Memory) TabItem(_ context.Context, name string) (task.TabItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.groups[name]
	if !ok {
		return task.TabItem{}, ErrNotFound
	}
	return item, nil
}

func (m *Memory) TabItems(_ context.Context) ([]task.TabItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := slices.Collect(maps.Values(m.groups))
	sortTabItems(items)
	return items, nil
}

func (m *Memory) RenameTabItem(_ context.Context, old string, item task.TabItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.groups[old]; !ok {
		return ErrNotFound
	}
	if _, taken := m.groups[item.Name]; taken && item.Name != old {
		return ErrGroupExists
	}
	delete(m.groups, old)
	m.groups[item.Name] = item
	for _, t := range m.tasks {
		if t.Group == old {
			t.Group = item.Name
		}
	}
	return nil
}

func (m *Memory) DeleteTabItem(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.groups[name]; !ok {
		return ErrNotFound
	}
	delete(m.groups, name)
	return nil
}

func (m *Memory) PutAlarm(_ context.Context, a Alarm) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.alarms[a.Key]; ok {
		return ErrAlarmExists
	}
	if a.Created.IsZero() {
		a.Created = time.Now()
	}
	m.alarms[a.Key] = a
	return nil
}

func (m *Memory) DeleteAlarm(_ context.Context, key int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.alarms, key)
	return nil
}

func (m *Memory) Alarm(_ context.Context, key int64) (Alarm, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.alarms[key]
	if !ok {
		return Alarm{}, ErrNotFound
	}
	return a, nil
}

func (m *Memory) Alarms(_ context.Context) ([]Alarm, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := slices.Collect(maps.Values(m.alarms))
	sortAlarms(out)
	return out, nil
}

func (m *Memory) Close() error { return nil }

func sortTabItems(items []task.TabItem) {
	slices.SortFunc(items, func(a, b task.TabItem) int {
		if a.Slot != b.Slot {
			return a.Slot - b.Slot
		}
		return cmp.Compare(a.Name, b.Name)
	})
}

func sortAlarms(alarms []Alarm) {
	slices.SortFunc(alarms, func(a, b Alarm) int {
		if c := a.FireAt.Compare(b.FireAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
}
