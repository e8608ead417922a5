package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/patseev1987/todolist/internal/activity"
	"github.com/patseev1987/todolist/internal/clierr"
	"github.com/patseev1987/todolist/internal/output"
	"github.com/patseev1987/todolist/internal/reminder"
	"github.com/patseev1987/todolist/internal/store"
)

var remindCmd = &cobra.Command{
	Use:     "remind",
	Aliases: []string{"reminders"},
	Short:   "Inspect and deliver reminders",
	Long: `Lists scheduled reminders. Reminders are delivered by 'todo remind serve',
which must be running when they fire.`,
	RunE: runRemindList,
}

var remindListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scheduled reminders",
	Args:  cobra.NoArgs,
	RunE:  runRemindList,
}

var remindCancelCmd = &cobra.Command{
	Use:   "cancel KEY",
	Short: "Cancel a scheduled reminder",
	Long:  `Removes the reminder registered under KEY (the task ID). The task keeps its remind flag.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runRemindCancel,
}

var remindServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Deliver reminders as they fire",
	Long: `Runs until interrupted, arming a timer for every scheduled reminder and
delivering it through the configured notifier (terminal, command or webhook).
Reminders scheduled or cancelled by other todo processes are picked up as they happen.`,
	Args: cobra.NoArgs,
	RunE: runRemindServe,
}

var remindPermissionCmd = &cobra.Command{
	Use:       "permission grant|revoke",
	Short:     "Grant or revoke exact reminders",
	Long:      `Without the permission, saving a task with a reminder stores it but schedules nothing.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"grant", "revoke"},
	RunE:      runRemindPermission,
}

func init() {
	remindServeCmd.Flags().Duration("poll", time.Minute, "re-read the reminder registry at this interval (0 disables)")
	remindCmd.AddCommand(remindListCmd, remindCancelCmd, remindServeCmd, remindPermissionCmd)
	rootCmd.AddCommand(remindCmd)
}

func runRemindList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	b, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close() //nolint:errcheck // best-effort close on exit

	alarms, err := b.feed.Alarms(ctx)
	if err != nil {
		return err
	}
	switch outputFormat() {
	case output.FormatJSON:
		if alarms == nil {
			alarms = []store.Alarm{}
		}
		return output.JSON(os.Stdout, alarms)
	case output.FormatCompact:
		output.AlarmCompact(os.Stdout, alarms)
	default:
		output.AlarmTable(os.Stdout, alarms, time.Now())
	}
	return nil
}

func runRemindCancel(cmd *cobra.Command, args []string) error {
	key, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || key <= 0 {
		return clierr.Newf(clierr.InvalidInput, "invalid reminder key %q", args[0])
	}

	ctx := cmd.Context()
	b, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close() //nolint:errcheck // best-effort close on exit

	if _, err := b.feed.Alarm(ctx, key); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return clierr.Newf(clierr.AlarmNotFound, "no reminder scheduled under key %d", key).
				WithDetails(map[string]any{"key": key})
		}
		return err
	}
	if err := b.sched.Cancel(ctx, key); err != nil {
		return err
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]any{"status": "cancelled", "key": key})
	}
	output.Messagef(os.Stdout, "Cancelled reminder %d", key)
	return nil
}

func runRemindServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close() //nolint:errcheck // best-effort close on exit

	notifier, err := reminder.NewNotifier(b.cfg, os.Stdout)
	if err != nil {
		return clierr.New(clierr.InvalidInput, err.Error())
	}
	warn := func(err error) { fmt.Fprintf(os.Stderr, "Warning: %v\n", err) }
	runner := reminder.NewRunner(b.feed, notifier,
		reminder.WithRunnerRecorder(b.record),
		reminder.WithErrorHandler(warn))

	events, unsubscribe := b.feed.Subscribe()
	defer unsubscribe()
	go func() {
		for e := range events {
			if e.Kind == store.AlarmsChanged || e.Kind == store.External {
				runner.Reload()
			}
		}
	}()

	if err := b.feed.WatchDir(ctx, b.cfg.Dir(), filepath.Base(b.cfg.DBPath()), warn); err != nil {
		warn(fmt.Errorf("file watcher: %w", err))
	}
	if poll, _ := cmd.Flags().GetDuration("poll"); poll > 0 {
		go pollReload(ctx, runner, poll)
	}

	fmt.Fprintf(os.Stderr, "Delivering reminders via %s notifier... (Ctrl+C to stop)\n", b.cfg.Reminders.Notifier)
	return runner.Run(ctx)
}

// pollReload covers stores whose writes the file watcher cannot see.
func pollReload(ctx context.Context, r *reminder.Runner, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Reload()
		}
	}
}

func runRemindPermission(_ *cobra.Command, args []string) error {
	var granted bool
	switch args[0] {
	case "grant":
		granted = true
	case "revoke":
	default:
		return clierr.Newf(clierr.InvalidInput, "expected grant or revoke, got %q", args[0])
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Reminders.ExactAlarms = granted
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	activity.Record(cfg.Dir(), activity.ActionPermission, 0, fmt.Sprintf("granted=%t", granted))

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]any{"exact_alarms": granted})
	}
	if granted {
		output.Messagef(os.Stdout, "Exact reminders granted. Save a task again to schedule its reminder.")
	} else {
		output.Messagef(os.Stdout, "Exact reminders revoked. Scheduled reminders stay registered until they fire or are cancelled.")
	}
	return nil
}
