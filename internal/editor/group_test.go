package editor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patseev1987/todolist/internal/store"
	"github.com/patseev1987/todolist/internal/task"
)

func seededStore(t *testing.T) *store.Memory {
	t.Helper()
	m := store.NewMemory()
	require.NoError(t, store.Seed(context.Background(), m))
	return m
}

func openGroup(t *testing.T, gs GroupStore, name string) *GroupSession {
	t.Helper()
	s := OpenGroup(context.Background(), name, gs)
	t.Cleanup(s.Close)
	return s
}

func groupResult(t *testing.T, s *GroupSession) GroupResult {
	t.Helper()
	require.NoError(t, flush(s))
	res, ok := s.State().(GroupResult)
	require.True(t, ok, "state is %T", s.State())
	return res
}

func TestNewGroupDefaults(t *testing.T) {
	s := openGroup(t, seededStore(t), "")
	res := groupResult(t, s)
	assert.Equal(t, task.DefaultTabName, res.Item.Name)
	assert.Equal(t, "star", res.Item.SelectedIcon)
	assert.Equal(t, "star-o", res.Item.UnselectedIcon)
}

func TestNewGroupSaveAppendsSlot(t *testing.T) {
	m := seededStore(t)
	s := openGroup(t, m, "")

	done := false
	s.SetName(" errands ")
	s.SetSelectedIcon("flag")
	s.SetUnselectedIcon("flag-o")
	s.Save(func() { done = true })
	res := groupResult(t, s)
	assert.Empty(t, res.ErrorMessage)
	assert.True(t, done)

	item, err := m.TabItem(context.Background(), "errands")
	require.NoError(t, err)
	assert.Equal(t, len(task.DefaultTabItems()), item.Slot)
	assert.Equal(t, "flag", item.SelectedIcon)
}

func TestGroupSaveRejectsTakenName(t *testing.T) {
	m := seededStore(t)
	s := openGroup(t, m, "")

	s.SetName("home")
	s.Save(nil)
	res := groupResult(t, s)
	assert.True(t, res.NameTaken)
	assert.NotEmpty(t, res.ErrorMessage)

	items, err := m.TabItems(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, len(task.DefaultTabItems()))
}

func TestGroupSaveRejectsBlankName(t *testing.T) {
	s := openGroup(t, seededStore(t), "")
	s.SetName("   ")
	s.Save(nil)
	res := groupResult(t, s)
	assert.False(t, res.NameTaken)
	assert.Contains(t, res.ErrorMessage, "blank")
}

func TestGroupUnknownIcon(t *testing.T) {
	s := openGroup(t, seededStore(t), "")
	s.SetSelectedIcon("rocket")
	res := groupResult(t, s)
	assert.Contains(t, res.ErrorMessage, "rocket")
	assert.Equal(t, "star", res.Item.SelectedIcon)

	// The message clears on the next intent.
	s.SetName("x")
	assert.Empty(t, groupResult(t, s).ErrorMessage)
}

func TestGroupRenameMovesTasks(t *testing.T) {
	ctx := context.Background()
	m := seededStore(t)
	_, err := m.InsertOrReplace(ctx, &task.Task{Title: "a", Content: "b", Group: "study"})
	require.NoError(t, err)

	s := openGroup(t, m, "study")
	s.SetName("school")
	s.Save(nil)
	res := groupResult(t, s)
	require.Empty(t, res.ErrorMessage)

	_, err = m.TabItem(ctx, "study")
	assert.ErrorIs(t, err, store.ErrNotFound)
	got, err := m.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "school", got.Group)

	// Saving again under the new name is an in-place update.
	s.SetSelectedIcon("heart")
	s.Save(nil)
	require.Empty(t, groupResult(t, s).ErrorMessage)
	item, err := m.TabItem(ctx, "school")
	require.NoError(t, err)
	assert.Equal(t, "heart", item.SelectedIcon)
}

func TestOpenMissingGroupFails(t *testing.T) {
	s := openGroup(t, seededStore(t), "nope")
	require.NoError(t, flush(s))
	failed, ok := s.State().(Failed)
	require.True(t, ok)
	assert.ErrorIs(t, failed.Err, ErrGroupNotFound)
}
