package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patseev1987/todolist/internal/clierr"
	"github.com/patseev1987/todolist/internal/config"
	"github.com/patseev1987/todolist/internal/date"
	"github.com/patseev1987/todolist/internal/editor"
	"github.com/patseev1987/todolist/internal/store"
	"github.com/patseev1987/todolist/internal/task"
)

func testBackend(t *testing.T) *backend {
	t.Helper()
	cfg := config.NewDefault()
	cfg.SetDir(t.TempDir())
	b, err := openBackendWith(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func codeOf(t *testing.T, err error) string {
	t.Helper()
	var cliErr *clierr.Error
	require.True(t, errors.As(err, &cliErr), "expected *clierr.Error, got %v", err)
	return cliErr.Code
}

func TestSaveSessionCreatesTask(t *testing.T) {
	ctx := context.Background()
	b := testBackend(t)

	s := b.openSession(ctx, 0)
	defer s.Close()
	s.SetTitle("Buy milk")
	s.SetContent("two litres")

	res, err := saveSession(ctx, s, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Draft.ID)
	assert.Equal(t, "work", res.Draft.Group)

	got, err := b.getTask(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", got.Title)
}

func TestSaveSessionReportsValidation(t *testing.T) {
	ctx := context.Background()
	b := testBackend(t)

	s := b.openSession(ctx, 0)
	defer s.Close()
	s.SetTitle("No content")

	_, err := saveSession(ctx, s, 0)
	require.Error(t, err)
	assert.Equal(t, clierr.ValidationFailed, codeOf(t, err))

	tasks, err := b.feed.List(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestSaveSessionSchedulesAndDeleteCancels(t *testing.T) {
	ctx := context.Background()
	b := testBackend(t)

	due := time.Now().Add(48 * time.Hour)
	s := b.openSession(ctx, 0)
	defer s.Close()
	s.SetTitle("Dentist")
	s.SetContent("bring the card")
	s.SetDate(date.Of(due))
	s.SetTime(date.ClockOf(due))
	s.ToggleRemind()

	res, err := saveSession(ctx, s, 0)
	require.NoError(t, err)
	assert.False(t, res.Errors.PermissionDenied)

	alarm, err := b.feed.Alarm(ctx, res.Draft.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dentist", alarm.Title)
	assert.Equal(t, res.Draft.UID, alarm.TaskUID)

	require.NoError(t, executeDelete(ctx, b, &res.Draft))
	_, err = b.feed.Alarm(ctx, res.Draft.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = b.getTask(ctx, res.Draft.ID)
	assert.Equal(t, clierr.TaskNotFound, codeOf(t, err))
}

func TestSaveSessionWithoutPermissionPersists(t *testing.T) {
	ctx := context.Background()
	b := testBackend(t)
	b.cfg.Reminders.ExactAlarms = false

	due := time.Now().Add(48 * time.Hour)
	s := b.openSession(ctx, 0)
	defer s.Close()
	s.SetTitle("Call mum")
	s.SetContent("sunday")
	s.SetDate(date.Of(due))
	s.SetTime(date.ClockOf(due))
	s.ToggleRemind()

	res, err := saveSession(ctx, s, 0)
	require.NoError(t, err)
	assert.True(t, res.Errors.PermissionDenied)
	assert.True(t, res.Draft.Remind)

	alarms, err := b.feed.Alarms(ctx)
	require.NoError(t, err)
	assert.Empty(t, alarms)
}

func TestCurrentDraftMissingTask(t *testing.T) {
	ctx := context.Background()
	b := testBackend(t)

	s := b.openSession(ctx, 42)
	defer s.Close()

	_, err := currentDraft(ctx, s, 42)
	assert.Equal(t, clierr.TaskNotFound, codeOf(t, err))
}

func TestSessionError(t *testing.T) {
	assert.Equal(t, clierr.TaskNotFound, codeOf(t, sessionError(editor.ErrTaskNotFound, 3)))
	assert.Equal(t, clierr.ValidationFailed, codeOf(t, sessionError(editor.ErrRemindWithoutDue, 3)))

	other := errors.New("disk full")
	assert.Equal(t, other, sessionError(other, 3))
}

func TestValidationErrorDetails(t *testing.T) {
	err := validationError(editor.Errors{ContentEmpty: true})
	var cliErr *clierr.Error
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, clierr.ValidationFailed, cliErr.Code)
	assert.Contains(t, cliErr.Message, "content")
	assert.Equal(t, true, cliErr.Details["content_empty"])
	assert.Equal(t, false, cliErr.Details["title_empty"])
}

func moveFlags(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	c := &cobra.Command{}
	c.Flags().Bool("next", false, "")
	c.Flags().Bool("prev", false, "")
	require.NoError(t, c.Flags().Parse(args))
	return c
}

func TestResolveTargetStatus(t *testing.T) {
	inProgress := task.Task{ID: 1, Status: task.StatusInProgress}

	got, err := resolveTargetStatus(moveFlags(t, "--next"), []string{"1"}, inProgress)
	require.NoError(t, err)
	assert.Equal(t, task.StatusDone, got)

	got, err = resolveTargetStatus(moveFlags(t, "--prev"), []string{"1"}, inProgress)
	require.NoError(t, err)
	assert.Equal(t, task.StatusNotStarted, got)

	got, err = resolveTargetStatus(moveFlags(t), []string{"1", "done"}, inProgress)
	require.NoError(t, err)
	assert.Equal(t, task.StatusDone, got)

	done := task.Task{ID: 2, Status: task.StatusDone}
	_, err = resolveTargetStatus(moveFlags(t, "--next"), []string{"2"}, done)
	assert.Equal(t, clierr.StatusConflict, codeOf(t, err))

	_, err = resolveTargetStatus(moveFlags(t), []string{"2"}, done)
	assert.Equal(t, clierr.InvalidInput, codeOf(t, err))

	_, err = resolveTargetStatus(moveFlags(t), []string{"2", "blocked"}, done)
	require.Error(t, err)
}

func TestFormatConfigValue(t *testing.T) {
	assert.Equal(t, "(none)", formatConfigValue(""))
	assert.Equal(t, "a, b", formatConfigValue([]string{"a", "b"}))
	assert.Equal(t, "true", formatConfigValue(true))
}

// captureStdout runs fn with os.Stdout redirected and returns what it wrote.
func captureStdout(t *testing.T, fn func()) []byte {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	out := make(chan []byte, 1)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		out <- buf.Bytes()
	}()
	fn()
	require.NoError(t, w.Close())
	return <-out
}

func TestOutputSavedJSONReportsPermission(t *testing.T) {
	flagJSON = true
	t.Cleanup(func() { flagJSON = false })

	due := time.Now().Add(time.Hour)
	tk := task.Task{ID: 7, Title: "Dentist", Content: "card", Remind: true, Due: &due}
	var err error
	raw := captureStdout(t, func() {
		err = outputSaved("Created", editor.Result{Draft: tk, Errors: editor.Errors{PermissionDenied: true}})
	})
	require.NoError(t, err)

	var got struct {
		Task             task.Task `json:"task"`
		Scheduled        bool      `json:"scheduled"`
		PermissionDenied bool      `json:"permission_denied"`
	}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, int64(7), got.Task.ID)
	assert.False(t, got.Scheduled)
	assert.True(t, got.PermissionDenied)

	raw = captureStdout(t, func() {
		err = outputSaved("Created", editor.Result{Draft: tk})
	})
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.True(t, got.Scheduled)
	assert.NotContains(t, string(raw), "permission_denied")
}
