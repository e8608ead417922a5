package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patseev1987/todolist/internal/task"
)

func backends(t *testing.T) map[string]func(t *testing.T) Store {
	t.Helper()
	b := map[string]func(t *testing.T) Store{
		"memory": func(_ *testing.T) Store { return NewMemory() },
		"sqlite": func(t *testing.T) Store {
			s, err := OpenSQLite(filepath.Join(t.TempDir(), "todo.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
	if dsn := os.Getenv("TODO_TEST_POSTGRES_DSN"); dsn != "" {
		b["postgres"] = func(t *testing.T) Store {
			ctx := context.Background()
			s, err := OpenPostgres(ctx, dsn)
			require.NoError(t, err)
			_, err = s.pool.Exec(ctx, `TRUNCATE tasks, tab_items, alarms`)
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		}
	}
	return b
}

func newTask(title, group string) *task.Task {
	t := task.New(group)
	t.Title = title
	t.Content = title + " content"
	return t
}

func TestStoreInsertAssignsNextID(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)

			last, err := s.LastID(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(0), last)

			a := newTask("a", "work")
			id, err := s.InsertOrReplace(ctx, a)
			require.NoError(t, err)
			assert.Equal(t, int64(1), id)
			assert.Equal(t, id, a.ID)
			assert.False(t, a.Created.IsZero())

			b := newTask("b", "home")
			id, err = s.InsertOrReplace(ctx, b)
			require.NoError(t, err)
			assert.Equal(t, int64(2), id)

			last, err = s.LastID(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(2), last)
		})
	}
}

func TestStoreReplaceKeepsID(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)

			tk := newTask("draft", "work")
			id, err := s.InsertOrReplace(ctx, tk)
			require.NoError(t, err)

			due := time.Now().Add(time.Hour).Truncate(time.Minute)
			tk.Title = "final"
			tk.Content = "final content"
			tk.Remind = true
			tk.Due = &due
			tk.Status = task.StatusInProgress
			id2, err := s.InsertOrReplace(ctx, tk)
			require.NoError(t, err)
			assert.Equal(t, id, id2)

			got, err := s.GetByID(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, "final", got.Title)
			assert.Equal(t, "final content", got.Content)
			assert.Equal(t, task.StatusInProgress, got.Status)
			assert.True(t, got.Remind)
			require.NotNil(t, got.Due)
			assert.True(t, due.Equal(*got.Due))
			assert.Equal(t, tk.UID, got.UID)

			all, err := s.List(ctx, Filter{})
			require.NoError(t, err)
			assert.Len(t, all, 1)
		})
	}
}

func TestStoreExplicitIDCreates(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)

			tk := newTask("imported", "work")
			tk.ID = 42
			id, err := s.InsertOrReplace(ctx, tk)
			require.NoError(t, err)
			assert.Equal(t, int64(42), id)

			next, err := s.InsertOrReplace(ctx, newTask("next", "work"))
			require.NoError(t, err)
			assert.Equal(t, int64(43), next)
		})
	}
}

func TestStoreGetMissing(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			_, err := s.GetByID(context.Background(), 99)
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, s.Delete(context.Background(), 99), ErrNotFound)
		})
	}
}

func TestStoreListFilter(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)

			soon := time.Now().Add(time.Hour)
			later := time.Now().Add(48 * time.Hour)
			milk := newTask("Buy milk", "shopping")
			milk.Remind, milk.Due = true, &soon
			report := newTask("Quarterly report", "work")
			report.Status = task.StatusDone
			report.Due = &later
			gym := newTask("Gym", "home")
			for _, tk := range []*task.Task{milk, report, gym} {
				_, err := s.InsertOrReplace(ctx, tk)
				require.NoError(t, err)
			}

			cases := []struct {
				name   string
				filter Filter
				want   []string
			}{
				{"all", Filter{}, []string{"Buy milk", "Quarterly report", "Gym"}},
				{"group", Filter{Group: "work"}, []string{"Quarterly report"}},
				{"status", Filter{Status: task.StatusDone}, []string{"Quarterly report"}},
				{"remind", Filter{Remind: true}, []string{"Buy milk"}},
				{"search", Filter{Search: "MILK"}, []string{"Buy milk"}},
				{"due before", Filter{DueBefore: ptr(time.Now().Add(2 * time.Hour))}, []string{"Buy milk"}},
				{"limit", Filter{Limit: 2}, []string{"Buy milk", "Quarterly report"}},
			}
			for _, tc := range cases {
				got, err := s.List(ctx, tc.filter)
				require.NoError(t, err, tc.name)
				titles := make([]string, len(got))
				for i, tk := range got {
					titles[i] = tk.Title
				}
				assert.Equal(t, tc.want, titles, tc.name)
			}

			counts, err := s.CountByGroup(ctx)
			require.NoError(t, err)
			assert.Equal(t, map[string]int{"shopping": 1, "work": 1, "home": 1}, counts)
		})
	}
}

func TestStoreTabItems(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)

			require.NoError(t, Seed(ctx, s))
			require.NoError(t, Seed(ctx, s)) // idempotent

			names, err := GroupNames(ctx, s)
			require.NoError(t, err)
			assert.Equal(t, []string{"work", "home", "study", "shopping", "other"}, names)

			tk := newTask("walk dog", "home")
			_, err = s.InsertOrReplace(ctx, tk)
			require.NoError(t, err)

			renamed := task.TabItem{Name: "family", SelectedIcon: "heart", UnselectedIcon: "heart-o", Slot: 1}
			require.NoError(t, s.RenameTabItem(ctx, "home", renamed))

			_, err = s.TabItem(ctx, "home")
			assert.ErrorIs(t, err, ErrNotFound)
			got, err := s.TabItem(ctx, "family")
			require.NoError(t, err)
			assert.Equal(t, renamed, got)

			moved, err := s.GetByID(ctx, tk.ID)
			require.NoError(t, err)
			assert.Equal(t, "family", moved.Group)

			err = s.RenameTabItem(ctx, "family", task.TabItem{Name: "work"})
			assert.ErrorIs(t, err, ErrGroupExists)
			err = s.RenameTabItem(ctx, "nope", renamed)
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.DeleteTabItem(ctx, "other"))
			assert.ErrorIs(t, s.DeleteTabItem(ctx, "other"), ErrNotFound)
		})
	}
}

func TestStoreAlarms(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)

			at := time.Now().Add(time.Hour).Truncate(time.Minute)
			a := Alarm{Key: 5, FireAt: at, Title: "t", Content: "c", TaskUID: "u"}
			require.NoError(t, s.PutAlarm(ctx, a))
			assert.ErrorIs(t, s.PutAlarm(ctx, a), ErrAlarmExists)

			got, err := s.Alarm(ctx, 5)
			require.NoError(t, err)
			assert.True(t, at.Equal(got.FireAt))
			assert.Equal(t, "u", got.TaskUID)

			require.NoError(t, s.PutAlarm(ctx, Alarm{Key: 1, FireAt: at.Add(-time.Minute), Title: "early"}))
			all, err := s.Alarms(ctx)
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, int64(1), all[0].Key)

			require.NoError(t, s.DeleteAlarm(ctx, 5))
			require.NoError(t, s.DeleteAlarm(ctx, 5)) // unknown key is a no-op
			_, err = s.Alarm(ctx, 5)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todo.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	_, err = s.InsertOrReplace(context.Background(), newTask("persisted", "work"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "persisted", got.Title)
}

func ptr[T any](v T) *T { return &v }
