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
	"github.com/patseev1987/todolist/internal/task"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks",
	Long: `Lists tasks with optional filtering, sorting, and output format control.

Use --watch to re-render whenever tasks change, including changes made by
another todo process. Press Ctrl+C to stop.`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringP("group", "g", "", "filter by group")
	listCmd.Flags().StringSlice("status", nil, "filter by status (comma-separated)")
	listCmd.Flags().StringP("search", "s", "", "search title and content (case-insensitive)")
	listCmd.Flags().Bool("remind", false, "show only tasks with a reminder")
	listCmd.Flags().Bool("overdue", false, "show only overdue tasks")
	listCmd.Flags().String("sort", "id", "sort field ("+strings.Join(board.ValidSortFields(), ", ")+")")
	listCmd.Flags().BoolP("reverse", "r", false, "reverse sort order")
	listCmd.Flags().IntP("limit", "n", 0, "limit number of results")
	listCmd.Flags().String("group-by", "", "group results by field ("+strings.Join(board.ValidGroupByFields(), ", ")+")")
	listCmd.Flags().BoolP("watch", "w", false, "re-render on changes")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	opts, groupBy, err := listOptions(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	b, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close() //nolint:errcheck // best-effort close on exit

	if watch, _ := cmd.Flags().GetBool("watch"); watch {
		return watchList(ctx, b, opts, groupBy)
	}

	tasks, err := board.List(ctx, b.feed, opts, time.Now())
	if err != nil {
		return err
	}
	return renderList(ctx, b, tasks, groupBy)
}

func listOptions(cmd *cobra.Command) (board.ListOptions, string, error) {
	fs := cmd.Flags()
	group, _ := fs.GetString("group")
	statuses, _ := fs.GetStringSlice("status")
	search, _ := fs.GetString("search")
	remind, _ := fs.GetBool("remind")
	overdue, _ := fs.GetBool("overdue")
	sortBy, _ := fs.GetString("sort")
	reverse, _ := fs.GetBool("reverse")
	limit, _ := fs.GetInt("limit")
	groupBy, _ := fs.GetString("group-by")

	if !slices.Contains(board.ValidSortFields(), sortBy) {
		return board.ListOptions{}, "", clierr.Newf(clierr.InvalidSort, "invalid --sort field %q; valid: %s",
			sortBy, strings.Join(board.ValidSortFields(), ", "))
	}
	if groupBy != "" && !slices.Contains(board.ValidGroupByFields(), groupBy) {
		return board.ListOptions{}, "", clierr.Newf(clierr.InvalidGroupBy, "invalid --group-by field %q; valid: %s",
			groupBy, strings.Join(board.ValidGroupByFields(), ", "))
	}

	var want []task.Status
	for _, s := range statuses {
		if err := task.ValidateStatus(s); err != nil {
			return board.ListOptions{}, "", err
		}
		want = append(want, task.Status(s))
	}

	return board.ListOptions{
		Filter:   store.Filter{Group: group, Search: search, Remind: remind},
		Statuses: want,
		Overdue:  overdue,
		SortBy:   sortBy,
		Reverse:  reverse,
		Limit:    limit,
	}, groupBy, nil
}

func renderList(ctx context.Context, b *backend, tasks []*task.Task, groupBy string) error {
	if groupBy != "" {
		tabs, err := b.feed.TabItems(ctx)
		if err != nil {
			return err
		}
		grouped := board.GroupBy(tasks, groupBy, tabs)
		if outputFormat() == output.FormatJSON {
			return output.JSON(os.Stdout, grouped)
		}
		output.GroupedTable(os.Stdout, grouped)
		return nil
	}

	switch outputFormat() {
	case output.FormatJSON:
		if tasks == nil {
			tasks = []*task.Task{}
		}
		return output.JSON(os.Stdout, tasks)
	case output.FormatCompact:
		output.TaskCompact(os.Stdout, tasks)
	default:
		output.TaskTable(os.Stdout, tasks, time.Now())
	}
	return nil
}

// watchList re-renders on every change the feed reports. Changes from other
// processes are seen through the data directory watcher.
func watchList(ctx context.Context, b *backend, opts board.ListOptions, groupBy string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := b.feed.WatchDir(ctx, b.cfg.Dir(), filepath.Base(b.cfg.DBPath()), func(err error) {
		fmt.Fprintf(os.Stderr, "Warning: file watcher: %v\n", err)
	}); err != nil {
		return fmt.Errorf("starting file watcher: %w", err)
	}

	fmt.Fprintln(os.Stderr, "Watching for changes... (Ctrl+C to stop)")
	filter := opts.Filter
	filter.Limit = 0
	for tasks := range b.feed.WatchList(ctx, filter) {
		clearScreen()
		if err := renderList(ctx, b, board.Arrange(tasks, opts, time.Now()), groupBy); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: rendering list: %v\n", err)
		}
	}
	return nil
}

// clearScreen sends ANSI escape codes to clear the terminal and move the
// cursor to the top-left corner.
func clearScreen() {
	fmt.Fprint(os.Stdout, "\033[2J\033[H")
}
