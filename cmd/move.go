package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/patseev1987/todolist/internal/board"
	"github.com/patseev1987/todolist/internal/clierr"
	"github.com/patseev1987/todolist/internal/output"
	"github.com/patseev1987/todolist/internal/task"
)

var moveCmd = &cobra.Command{
	Use:     "move ID[,ID,...] [STATUS]",
	Aliases: []string{"mv"},
	Short:   "Move a task to a different status",
	Long: `Changes the status of a task. Provide the new status directly,
or use --next/--prev to move along not-started, in-progress, done.
Multiple IDs can be provided as a comma-separated list.`,
	Args: cobra.RangeArgs(1, 2), //nolint:mnd // 1 or 2 positional args
	RunE: runMove,
}

func init() {
	moveCmd.Flags().Bool("next", false, "move to next status")
	moveCmd.Flags().Bool("prev", false, "move to previous status")
	rootCmd.AddCommand(moveCmd)
}

func runMove(cmd *cobra.Command, args []string) error {
	ids, err := board.ParseIDs(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	b, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close() //nolint:errcheck // best-effort close on exit

	if len(ids) == 1 {
		return moveSingleTask(ctx, cmd, b, ids[0], args)
	}
	return runBatch(ids, func(id int64) error {
		_, _, err := executeMove(ctx, cmd, b, id, args)
		return err
	})
}

// moveResult wraps a task with a changed flag for JSON output.
type moveResult struct {
	*task.Task
	Changed bool `json:"changed"`
}

func moveSingleTask(ctx context.Context, cmd *cobra.Command, b *backend, id int64, args []string) error {
	t, oldStatus, err := executeMove(ctx, cmd, b, id, args)
	if err != nil {
		return err
	}

	changed := oldStatus != ""
	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, moveResult{Task: t, Changed: changed})
	}
	if !changed {
		output.Messagef(os.Stdout, "Task #%d is already %s", id, t.Status)
		return nil
	}
	output.Messagef(os.Stdout, "Moved task #%d: %s -> %s", id, oldStatus, t.Status)
	return nil
}

// executeMove changes the status through an editor session. If the task is
// already at the target status it is returned unchanged with an empty
// oldStatus.
func executeMove(ctx context.Context, cmd *cobra.Command, b *backend, id int64, args []string) (*task.Task, task.Status, error) {
	s := b.openSession(ctx, id)
	defer s.Close()

	cur, err := currentDraft(ctx, s, id)
	if err != nil {
		return nil, "", err
	}

	target, err := resolveTargetStatus(cmd, args, cur)
	if err != nil {
		return nil, "", err
	}
	if target == cur.Status {
		return &cur, "", nil
	}

	s.SetStatus(target)
	res, err := saveSession(ctx, s, id)
	if err != nil {
		return nil, "", err
	}
	return &res.Draft, cur.Status, nil
}

func resolveTargetStatus(cmd *cobra.Command, args []string, t task.Task) (task.Status, error) {
	next, _ := cmd.Flags().GetBool("next")
	prev, _ := cmd.Flags().GetBool("prev")
	statuses := task.Statuses()
	idx := t.Status.Index()

	switch {
	case len(args) == 2: //nolint:mnd // positional arg
		if err := task.ValidateStatus(args[1]); err != nil {
			return "", err
		}
		return task.Status(args[1]), nil
	case next:
		if idx < 0 || idx >= len(statuses)-1 {
			return "", clierr.Newf(clierr.StatusConflict, "task #%d is already at the last status (%s)", t.ID, t.Status)
		}
		return statuses[idx+1], nil
	case prev:
		if idx <= 0 {
			return "", clierr.Newf(clierr.StatusConflict, "task #%d is already at the first status (%s)", t.ID, t.Status)
		}
		return statuses[idx-1], nil
	default:
		return "", clierr.New(clierr.InvalidInput, "provide a target status or use --next/--prev")
	}
}
