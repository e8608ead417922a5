package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/patseev1987/todolist/internal/board"
	"github.com/patseev1987/todolist/internal/clierr"
	"github.com/patseev1987/todolist/internal/output"
	"github.com/patseev1987/todolist/internal/store"
)

var boardCmd = &cobra.Command{
	Use:     "board",
	Aliases: []string{"summary"},
	Short:   "Show task summary",
	Long: `Displays a summary: task counts per status with overdue counts, open and total
tasks per group, and the number of pending reminders.

Use --watch to keep the display live-updating. Press Ctrl+C to stop.`,
	RunE: runBoard,
}

func init() {
	boardCmd.Flags().BoolP("watch", "w", false, "live-update on changes")
	boardCmd.Flags().String("group-by", "", "group summary by field ("+strings.Join(board.ValidGroupByFields(), ", ")+")")
	rootCmd.AddCommand(boardCmd)
}

func runBoard(cmd *cobra.Command, _ []string) error {
	groupBy, _ := cmd.Flags().GetString("group-by")
	if groupBy != "" && !slices.Contains(board.ValidGroupByFields(), groupBy) {
		return clierr.Newf(clierr.InvalidGroupBy, "invalid --group-by field %q; valid: %s",
			groupBy, strings.Join(board.ValidGroupByFields(), ", "))
	}

	ctx := cmd.Context()
	b, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close() //nolint:errcheck // best-effort close on exit

	if watch, _ := cmd.Flags().GetBool("watch"); watch {
		return watchBoard(ctx, b, groupBy)
	}
	return renderBoard(ctx, b, groupBy)
}

func renderBoard(ctx context.Context, b *backend, groupBy string) error {
	tasks, err := b.feed.List(ctx, store.Filter{})
	if err != nil {
		return err
	}
	tabs, err := b.feed.TabItems(ctx)
	if err != nil {
		return err
	}

	if groupBy != "" {
		grouped := board.GroupBy(tasks, groupBy, tabs)
		if outputFormat() == output.FormatJSON {
			return output.JSON(os.Stdout, grouped)
		}
		output.GroupedTable(os.Stdout, grouped)
		return nil
	}

	summary := board.Summary(tabs, tasks, time.Now())
	switch outputFormat() {
	case output.FormatJSON:
		return output.JSON(os.Stdout, summary)
	case output.FormatCompact:
		output.OverviewCompact(os.Stdout, summary)
	default:
		output.OverviewTable(os.Stdout, summary)
	}
	return nil
}

func watchBoard(ctx context.Context, b *backend, groupBy string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := b.feed.WatchDir(ctx, b.cfg.Dir(), filepath.Base(b.cfg.DBPath()), func(err error) {
		fmt.Fprintf(os.Stderr, "Warning: file watcher: %v\n", err)
	}); err != nil {
		return fmt.Errorf("starting file watcher: %w", err)
	}

	fmt.Fprintln(os.Stderr, "Watching for changes... (Ctrl+C to stop)")
	for range b.feed.WatchList(ctx, store.Filter{}) {
		clearScreen()
		if err := renderBoard(ctx, b, groupBy); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: rendering board: %v\n", err)
		}
	}
	return nil
}
