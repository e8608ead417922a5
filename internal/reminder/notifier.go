package reminder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/patseev1987/todolist/internal/config"
)

// Notification is a fired reminder.
type Notification struct {
	Key     int64     `json:"key"`
	FireAt  time.Time `json:"fire_at"`
	Title   string    `json:"title"`
	Content string    `json:"content"`
	TaskUID string    `json:"task_uid"`
}

// Notifier delivers fired reminders to the user.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NewNotifier builds the notifier selected in cfg. Terminal output goes to w.
func NewNotifier(cfg *config.Config, w io.Writer) (Notifier, error) {
	switch cfg.Reminders.Notifier {
	case config.NotifierTerminal, "":
		return NewTerminalNotifier(w), nil
	case config.NotifierCommand:
		return NewCommandNotifier(cfg.Reminders.Command, cfg.NotifyTimeout())
	case config.NotifierWebhook:
		return NewWebhookNotifier(cfg.Reminders.WebhookURL, cfg.NotifyTimeout()), nil
	default:
		return nil, fmt.Errorf("unknown notifier %q", cfg.Reminders.Notifier)
	}
}

var (
	bellStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	titleStyle = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
)

// TerminalNotifier prints one styled line per reminder.
type TerminalNotifier struct {
	w io.Writer
}

// NewTerminalNotifier writes reminders to w.
func NewTerminalNotifier(w io.Writer) *TerminalNotifier {
	return &TerminalNotifier{w: w}
}

func (t *TerminalNotifier) Notify(_ context.Context, n Notification) error {
	line := bellStyle.Render("⏰ "+n.FireAt.Format("15:04")) + " " + titleStyle.Render(n.Title)
	if n.Content != "" {
		line += " " + dimStyle.Render(firstLine(n.Content))
	}
	_, err := fmt.Fprintln(t.w, line)
	return err
}

// CommandNotifier runs an external program per reminder, e.g.
// `notify-send {title} {content}`. Placeholders are substituted per argument
// so values never pass through a shell.
type CommandNotifier struct {
	argv    []string
	timeout time.Duration
}

// NewCommandNotifier parses command into an argument vector.
func NewCommandNotifier(command string, timeout time.Duration) (*CommandNotifier, error) {
	argv := strings.Fields(command)
	if len(argv) == 0 {
		return nil, fmt.Errorf("reminder command is empty")
	}
	return &CommandNotifier{argv: argv, timeout: timeout}, nil
}

func (c *CommandNotifier) Notify(ctx context.Context, n Notification) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	repl := strings.NewReplacer(
		"{title}", n.Title,
		"{content}", n.Content,
		"{key}", strconv.FormatInt(n.Key, 10),
		"{uid}", n.TaskUID,
		"{time}", n.FireAt.Format(time.RFC3339),
	)
	args := make([]string, len(c.argv))
	for i, a := range c.argv {
		args[i] = repl.Replace(a)
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...) //nolint:gosec // command comes from the user's config
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("running %s: %w: %s", args[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}

// WebhookNotifier posts each reminder as JSON to a URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier posts to url with the given request timeout.
func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	return &WebhookNotifier{url: url, client: &http.Client{Timeout: timeout}}
}

type webhookMessage struct {
	Text     string       `json:"text"`
	Reminder Notification `json:"reminder"`
}

func (w *WebhookNotifier) Notify(ctx context.Context, n Notification) error {
	body, err := json.Marshal(webhookMessage{
		Text:     fmt.Sprintf("Reminder: %s (%s)", n.Title, n.FireAt.Format("2006-01-02 15:04")),
		Reminder: n,
	})
	if err != nil {
		return fmt.Errorf("marshaling webhook message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
