package task

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patseev1987/todolist/internal/clierr"
)

func TestNewTaskDefaults(t *testing.T) {
	tk := New(DefaultGroup)
	assert.Equal(t, int64(0), tk.ID)
	assert.Equal(t, "work", tk.Group)
	assert.Equal(t, StatusNotStarted, tk.Status)
	assert.False(t, tk.Remind)
	assert.Nil(t, tk.Due)
	assert.Len(t, tk.UID, 36)
	assert.NotEqual(t, tk.UID, New(DefaultGroup).UID)
}

func TestCloneIsDeep(t *testing.T) {
	due := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	orig := &Task{Title: "a", Due: &due}
	c := orig.Clone()
	*c.Due = c.Due.Add(time.Hour)
	c.Title = "b"
	assert.Equal(t, 9, orig.Due.Hour())
	assert.Equal(t, "a", orig.Title)
}

func TestOverdue(t *testing.T) {
	now := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	tk := &Task{Due: &past, Status: StatusInProgress}
	assert.True(t, tk.Overdue(now))
	tk.Status = StatusDone
	assert.False(t, tk.Overdue(now))
	assert.False(t, (&Task{}).Overdue(now))
}

func TestUpdateTimestamps(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC)
	tk := &Task{}

	UpdateTimestamps(tk, StatusNotStarted, StatusInProgress, now)
	require.NotNil(t, tk.Started)
	assert.Nil(t, tk.Completed)

	UpdateTimestamps(tk, StatusInProgress, StatusDone, now.Add(time.Hour))
	require.NotNil(t, tk.Completed)
	assert.Equal(t, now, *tk.Started)

	UpdateTimestamps(tk, StatusDone, StatusInProgress, now)
	assert.Nil(t, tk.Completed)
}

func TestValidateStatus(t *testing.T) {
	assert.NoError(t, ValidateStatus("done"))
	err := ValidateStatus("blocked")
	var ce *clierr.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, clierr.InvalidStatus, ce.Code)
}

func TestValidateIcon(t *testing.T) {
	assert.NoError(t, ValidateIcon("selected", "star"))
	err := ValidateIcon("selected", "rocket")
	var ce *clierr.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, clierr.InvalidIcon, ce.Code)
}

func TestDefaultTabItemsUseKnownIcons(t *testing.T) {
	for _, item := range DefaultTabItems() {
		assert.True(t, ValidIcon(item.SelectedIcon), item.Name)
		assert.True(t, ValidIcon(item.UnselectedIcon), item.Name)
	}
	assert.Equal(t, DefaultGroup, DefaultTabItems()[0].Name)
}

func TestEncodeDecodeKeepsContent(t *testing.T) {
	due := time.Date(2026, 2, 3, 10, 30, 0, 0, time.UTC)
	in := &Task{
		ID: 7, UID: "u-7", Title: "Buy milk", Group: "shopping",
		Status: StatusInProgress, Remind: true, Due: &due,
		Content: "two litres\n\n- skimmed",
	}
	data, err := Encode(in)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "---\n"))

	out, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, in.Title, out.Title)
	assert.Equal(t, in.Content, out.Content)
	assert.Equal(t, in.Group, out.Group)
	require.NotNil(t, out.Due)
	assert.True(t, due.Equal(*out.Due))
	assert.True(t, out.Remind)
}

func TestDecodeRejectsMissingFrontmatter(t *testing.T) {
	_, err := Decode([]byte("just text"))
	assert.Error(t, err)
	_, err = Decode([]byte("---\ntitle: x\n"))
	assert.Error(t, err)
}

func TestReadDirSkipsMalformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Write(filepath.Join(dir, Filename(&Task{ID: 1, Title: "Ok"})), &Task{ID: 1, Title: "Ok"}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.md"), []byte("nope"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))

	tasks, warnings, err := ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Ok", tasks[0].Title)
	require.Len(t, warnings, 1)
	assert.Equal(t, "bad.md", warnings[0].File)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "007-buy-milk.md", Filename(&Task{ID: 7, Title: "Buy milk!"}))
	assert.Equal(t, "1234-task.md", Filename(&Task{ID: 1234, Title: "???"}))
}

func TestBuildCalendar(t *testing.T) {
	due := time.Date(2026, 2, 3, 10, 30, 0, 0, time.UTC)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tasks := []*Task{
		{UID: "a", Title: "Dentist, 2nd", Due: &due, Remind: true, Group: "home"},
		{UID: "b", Title: "No date"},
	}
	ics := BuildCalendar(tasks, now)
	assert.Contains(t, ics, "SUMMARY:Dentist\\, 2nd\r\n")
	assert.Contains(t, ics, "DTSTART:20260203T103000Z")
	assert.Contains(t, ics, "BEGIN:VALARM")
	assert.NotContains(t, ics, "No date")
	assert.Equal(t, 1, strings.Count(ics, "BEGIN:VEVENT"))
}
