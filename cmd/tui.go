package cmd

import (
	"context"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/patseev1987/todolist/internal/tui"
)

func runTUI(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	b, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close() //nolint:errcheck // best-effort close on exit

	model := tui.New(ctx, tui.Deps{
		Store:     b.feed,
		Scheduler: b.sched,
		Config:    b.cfg,
		Lock:      b.lock,
		Record:    b.record,
	})
	p := tea.NewProgram(model, tea.WithAltScreen())

	startTUIFeed(ctx, b, p)

	_, err = p.Run()
	return err
}

// startTUIFeed reloads the TUI on every store change, including writes by
// other processes. Without the watcher the TUI still sees its own writes.
func startTUIFeed(ctx context.Context, b *backend, p *tea.Program) {
	events, unsubscribe := b.feed.Subscribe()
	go func() {
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				p.Send(tui.ReloadMsg{})
			}
		}
	}()

	_ = b.feed.WatchDir(ctx, b.cfg.Dir(), filepath.Base(b.cfg.DBPath()), nil)
}
