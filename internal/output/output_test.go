package output

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patseev1987/todolist/internal/activity"
	"github.com/patseev1987/todolist/internal/board"
	"github.com/patseev1987/todolist/internal/store"
	"github.com/patseev1987/todolist/internal/task"
)

var now = time.Date(2026, time.April, 2, 9, 0, 0, 0, time.UTC)

func TestMain(m *testing.M) {
	DisableColor()
	os.Exit(m.Run())
}

func sampleTask() *task.Task {
	due := now.Add(-time.Hour)
	return &task.Task{
		ID:      12,
		UID:     "0190a9b2-0000-7000-8000-000000000000",
		Title:   "Buy milk",
		Content: "2% **fat**",
		Group:   "shopping",
		Status:  task.StatusInProgress,
		Remind:  true,
		Due:     &due,
		Created: now.Add(-48 * time.Hour),
		Updated: now,
	}
}

func TestDetect(t *testing.T) {
	t.Setenv(EnvFormat, "")
	assert.Equal(t, FormatJSON, Detect(true, true, true))
	assert.Equal(t, FormatCompact, Detect(false, true, true))
	assert.Equal(t, FormatTable, Detect(false, true, false))
	assert.Equal(t, FormatTable, Detect(false, false, false))

	t.Setenv(EnvFormat, "json")
	assert.Equal(t, FormatJSON, Detect(false, false, false))
	t.Setenv(EnvFormat, "oneline")
	assert.Equal(t, FormatCompact, Detect(false, false, false))
	t.Setenv(EnvFormat, "yaml")
	assert.Equal(t, FormatTable, Detect(false, false, false))
}

func TestParseFormat(t *testing.T) {
	f, ok := ParseFormat(" JSON ")
	assert.True(t, ok)
	assert.Equal(t, FormatJSON, f)

	_, ok = ParseFormat("xml")
	assert.False(t, ok)
}

func TestJSONError(t *testing.T) {
	var buf bytes.Buffer
	JSONError(&buf, "TASK_NOT_FOUND", "task not found: #3", map[string]any{"id": 3})

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "TASK_NOT_FOUND", resp.Code)
	assert.Equal(t, "task not found: #3", resp.Error)
	assert.InDelta(t, 3, resp.Details["id"], 0)
}

func TestTaskTable(t *testing.T) {
	var buf bytes.Buffer
	TaskTable(&buf, []*task.Task{sampleTask()}, now)
	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "12")
	assert.Contains(t, out, "in-progress")
	assert.Contains(t, out, "shopping")
	assert.Contains(t, out, "2026-04-02 08:00")
	assert.Contains(t, out, "⏰")
}

func TestTaskDetail(t *testing.T) {
	var buf bytes.Buffer
	TaskDetail(&buf, sampleTask(), now)
	out := buf.String()
	assert.Contains(t, out, "Task #12: Buy milk")
	assert.Contains(t, out, "Reminder:")
	assert.Contains(t, out, "fat")
}

func TestCompact(t *testing.T) {
	var buf bytes.Buffer
	TaskCompact(&buf, []*task.Task{sampleTask()})
	assert.Equal(t, "#12 [in-progress/shopping] Buy milk due:2026-04-02 08:00 remind\n", buf.String())

	buf.Reset()
	TaskDetailCompact(&buf, sampleTask())
	assert.Contains(t, buf.String(), "created:2026-03-31")
	assert.Contains(t, buf.String(), "  2% **fat**")
}

func TestOverview(t *testing.T) {
	ov := board.Summary(task.DefaultTabItems(), []*task.Task{sampleTask()}, now)

	var buf bytes.Buffer
	OverviewTable(&buf, ov)
	assert.Contains(t, buf.String(), "Total: 1 tasks, 0 pending reminders")
	assert.Contains(t, buf.String(), "shopping")

	buf.Reset()
	OverviewCompact(&buf, ov)
	assert.Contains(t, buf.String(), "in-progress: 1 (1 overdue)")
	assert.Contains(t, buf.String(), "shopping=1/1")
}

func TestAlarmTable(t *testing.T) {
	var buf bytes.Buffer
	AlarmTable(&buf, []store.Alarm{
		{Key: 3, FireAt: now.Add(90 * time.Minute), Title: "Dentist"},
		{Key: 4, FireAt: now.Add(-time.Minute), Title: "Late"},
	}, now)
	out := buf.String()
	assert.Contains(t, out, "1h 30m")
	assert.Contains(t, out, "due")
	assert.Contains(t, out, "Dentist")
}

func TestGroupAndActivityTables(t *testing.T) {
	var buf bytes.Buffer
	GroupTable(&buf, []GroupRow{{TabItem: task.DefaultTabItems()[0], Tasks: 4}})
	assert.Contains(t, buf.String(), "work")
	assert.Contains(t, buf.String(), task.Glyph("briefcase"))

	buf.Reset()
	ActivityTable(&buf, []activity.Entry{{Timestamp: now, Action: activity.ActionCreate, TaskID: 7, Detail: "Buy milk"}})
	assert.Contains(t, buf.String(), "#7")
	assert.Contains(t, buf.String(), "create")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "2d 3h", FormatDuration(51*time.Hour))
	assert.Equal(t, "0h 45m", FormatDuration(45*time.Minute))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd...", truncate("abcdefghij", 7))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}
