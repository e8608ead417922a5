// Package cmd implements the todo CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/patseev1987/todolist/internal/activity"
	"github.com/patseev1987/todolist/internal/board"
	"github.com/patseev1987/todolist/internal/clierr"
	"github.com/patseev1987/todolist/internal/config"
	"github.com/patseev1987/todolist/internal/filelock"
	"github.com/patseev1987/todolist/internal/output"
	"github.com/patseev1987/todolist/internal/reminder"
	"github.com/patseev1987/todolist/internal/store"
	"github.com/patseev1987/todolist/internal/task"
)

// version is set at build time via ldflags.
var version = "dev"

// envDir overrides the data directory lookup.
const envDir = "TODO_DIR"

// Global flags.
var (
	flagJSON    bool
	flagTable   bool
	flagCompact bool
	flagDir     string
	flagNoColor bool
)

var rootCmd = &cobra.Command{
	Use:   "todo",
	Short: "Tasks with groups and exact reminders",
	Long: `todo keeps a to-do list grouped into tabs, with optional one-shot reminders.
Run todo without arguments to open the TUI.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runTUI,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if flagNoColor || os.Getenv("NO_COLOR") != "" {
			output.DisableColor()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&flagTable, "table", false, "output as table")
	rootCmd.PersistentFlags().BoolVar(&flagCompact, "compact", false, "compact one-line-per-record output")
	rootCmd.PersistentFlags().BoolVar(&flagCompact, "oneline", false, "alias for --compact")
	rootCmd.PersistentFlags().StringVar(&flagDir, "dir", "", "path to the data directory (env "+envDir+")")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable color output")
}

// Execute runs the root command.
func Execute() {
	_, err := rootCmd.ExecuteC()
	if err == nil {
		return
	}

	var silent *clierr.SilentError
	if errors.As(err, &silent) {
		os.Exit(silent.Code)
	}

	if outputFormat() == output.FormatJSON {
		var cliErr *clierr.Error
		if errors.As(err, &cliErr) {
			output.JSONError(os.Stdout, cliErr.Code, cliErr.Message, cliErr.Details)
			os.Exit(cliErr.ExitCode())
		}
		output.JSONError(os.Stdout, clierr.InternalError, err.Error(), nil)
		os.Exit(2) //nolint:mnd // exit code 2 for internal errors
	}

	fmt.Fprintln(os.Stderr, err)
	var cliErr *clierr.Error
	if errors.As(err, &cliErr) {
		os.Exit(cliErr.ExitCode())
	}
	os.Exit(1)
}

// defaultHomeDir returns the path to ~/.config/todolist.
func defaultHomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", "todolist"), nil
}

// resolveDir returns the data directory: --dir, then TODO_DIR, then a .todo
// directory above the working directory, then ~/.config/todolist.
func resolveDir() (string, error) {
	if flagDir != "" {
		return flagDir, nil
	}
	if d := os.Getenv(envDir); d != "" {
		return d, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	if dir, err := config.FindDir(cwd); err == nil {
		return dir, nil
	}
	return defaultHomeDir()
}

// loadConfig finds and loads the config. The home default is created on
// first use.
func loadConfig() (*config.Config, error) {
	dir, err := resolveDir()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(dir)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, config.ErrNotFound) {
		return nil, err
	}
	homeDir, homeErr := defaultHomeDir()
	if homeErr != nil || dir != homeDir {
		return nil, clierr.New(clierr.DirNotFound, err.Error()).
			WithDetails(map[string]any{"dir": dir})
	}
	return config.Init(homeDir)
}

// backend is everything a command needs to read and change tasks.
type backend struct {
	cfg    *config.Config
	feed   *store.Feed
	sched  *reminder.ExactScheduler
	record func(action string, id int64, detail string)
}

// openBackend loads the config and opens the store with the built-in groups
// seeded. Reminders go to the store's alarm registry.
func openBackend(ctx context.Context) (*backend, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return openBackendWith(ctx, cfg)
}

func openBackendWith(ctx context.Context, cfg *config.Config) (*backend, error) {
	s, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	feed := store.NewFeed(s)
	if err := store.Seed(ctx, feed); err != nil {
		_ = s.Close()
		return nil, err
	}

	record := activity.Recorder(cfg.Dir())
	platform := reminder.NewLocalPlatform(feed,
		func() bool { return cfg.Reminders.ExactAlarms }, os.Stderr, record)
	return &backend{
		cfg:    cfg,
		feed:   feed,
		sched:  reminder.NewScheduler(platform, reminder.WithRecorder(record)),
		record: record,
	}, nil
}

func (b *backend) Close() error {
	return b.feed.Close()
}

// lock serializes writers that predict the next task ID.
func (b *backend) lock(fn func() error) error {
	return filelock.With(b.cfg.LockPath(), fn)
}

// groupNames returns the known group names for flag validation.
func (b *backend) groupNames(ctx context.Context) ([]string, error) {
	return store.GroupNames(ctx, b.feed)
}

// getTask loads a task, mapping a missing record to TASK_NOT_FOUND.
func (b *backend) getTask(ctx context.Context, id int64) (*task.Task, error) {
	t, err := b.feed.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, task.NotFound(id)
	}
	return t, err
}

// outputFormat returns the detected output format from flags/env.
func outputFormat() output.Format {
	return output.Detect(flagJSON, flagTable, flagCompact)
}

// printWarnings writes import read warnings to stderr.
func printWarnings(warnings []task.ReadWarning) {
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "Warning: skipping malformed file %s: %v\n", w.File, w.Err)
	}
}

// parseID parses a single positive task ID.
func parseID(arg string) (int64, error) {
	ids, err := board.ParseIDs(arg)
	if err != nil {
		return 0, err
	}
	if len(ids) != 1 {
		return 0, task.ValidateTaskID(arg)
	}
	return ids[0], nil
}

// runBatch executes fn for each ID and collects results. Returns a SilentError
// with exit code 1 if any operation failed (after outputting results).
func runBatch(ids []int64, fn func(int64) error) error {
	results := make([]output.BatchResult, 0, len(ids))
	anyFailed := false

	for _, id := range ids {
		err := fn(id)
		if err == nil {
			results = append(results, output.BatchResult{ID: id, OK: true})
			continue
		}
		anyFailed = true
		var cliErr *clierr.Error
		if errors.As(err, &cliErr) {
			results = append(results, output.BatchResult{ID: id, Error: cliErr.Message, Code: cliErr.Code})
		} else {
			results = append(results, output.BatchResult{ID: id, Error: err.Error()})
		}
	}

	if outputFormat() == output.FormatJSON {
		if err := output.JSON(os.Stdout, results); err != nil {
			return err
		}
	} else {
		var succeeded int
		for _, r := range results {
			if r.OK {
				succeeded++
			} else {
				fmt.Fprintf(os.Stderr, "Error: task #%d: %s\n", r.ID, r.Error)
			}
		}
		output.Messagef(os.Stdout, "Completed %d/%d operations", succeeded, len(ids))
	}

	if anyFailed {
		return &clierr.SilentError{Code: 1}
	}
	return nil
}
