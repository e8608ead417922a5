package reminder

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patseev1987/todolist/internal/config"
)

func sample() Notification {
	return Notification{
		Key:     3,
		FireAt:  time.Date(2026, 3, 4, 9, 30, 0, 0, time.UTC),
		Title:   "Call mom",
		Content: "about sunday\nand more",
		TaskUID: "uid-3",
	}
}

func TestTerminalNotifier(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTerminalNotifier(&buf).Notify(context.Background(), sample()))
	out := buf.String()
	assert.Contains(t, out, "09:30")
	assert.Contains(t, out, "Call mom")
	assert.Contains(t, out, "about sunday")
	assert.NotContains(t, out, "and more")
}

func TestWebhookNotifier(t *testing.T) {
	var got webhookMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := NewWebhookNotifier(srv.URL, time.Second).Notify(context.Background(), sample())
	require.NoError(t, err)
	assert.Equal(t, "Call mom", got.Reminder.Title)
	assert.Equal(t, int64(3), got.Reminder.Key)
	assert.Contains(t, got.Text, "Call mom")
}

func TestWebhookNotifierNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookNotifier(srv.URL, time.Second).Notify(context.Background(), sample())
	assert.ErrorContains(t, err, "502")
}

func TestCommandNotifier(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses POSIX true/false")
	}
	ok, err := NewCommandNotifier("true {title} {content}", time.Second)
	require.NoError(t, err)
	assert.NoError(t, ok.Notify(context.Background(), sample()))

	fail, err := NewCommandNotifier("false", time.Second)
	require.NoError(t, err)
	assert.Error(t, fail.Notify(context.Background(), sample()))

	_, err = NewCommandNotifier("  ", time.Second)
	assert.Error(t, err)
}

func TestNewNotifierFromConfig(t *testing.T) {
	cfg := config.NewDefault()
	n, err := NewNotifier(cfg, &bytes.Buffer{})
	require.NoError(t, err)
	assert.IsType(t, &TerminalNotifier{}, n)

	cfg.Reminders.Notifier = config.NotifierWebhook
	cfg.Reminders.WebhookURL = "http://localhost"
	n, err = NewNotifier(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &WebhookNotifier{}, n)

	cfg.Reminders.Notifier = "pager"
	_, err = NewNotifier(cfg, nil)
	assert.Error(t, err)
}
