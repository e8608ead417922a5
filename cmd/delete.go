package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/patseev1987/todolist/internal/activity"
	"github.com/patseev1987/todolist/internal/board"
	"github.com/patseev1987/todolist/internal/clierr"
	"github.com/patseev1987/todolist/internal/output"
	"github.com/patseev1987/todolist/internal/task"
)

var deleteCmd = &cobra.Command{
	Use:     "delete ID[,ID,...]",
	Aliases: []string{"rm"},
	Short:   "Delete a task",
	Long: `Deletes a task and cancels its reminder. Prompts for confirmation in interactive mode.
Multiple IDs can be provided as a comma-separated list (requires --yes).`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().BoolP("yes", "y", false, "skip confirmation prompt")
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	ids, err := board.ParseIDs(args[0])
	if err != nil {
		return err
	}

	yes, _ := cmd.Flags().GetBool("yes")
	if len(ids) > 1 && !yes {
		return clierr.New(clierr.ConfirmationReq, "batch delete requires --yes")
	}

	ctx := cmd.Context()
	b, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close() //nolint:errcheck // best-effort close on exit

	if len(ids) == 1 {
		return deleteSingleTask(ctx, b, ids[0], yes)
	}
	return runBatch(ids, func(id int64) error {
		t, err := b.getTask(ctx, id)
		if err != nil {
			return err
		}
		return executeDelete(ctx, b, t)
	})
}

func deleteSingleTask(ctx context.Context, b *backend, id int64, yes bool) error {
	t, err := b.getTask(ctx, id)
	if err != nil {
		return err
	}

	if !yes {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return clierr.New(clierr.ConfirmationReq,
				"cannot prompt for confirmation (not a terminal); use --yes")
		}
		fmt.Fprintf(os.Stderr, "Delete task #%d %q? [y/N] ", t.ID, t.Title)
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(strings.ToLower(answer))
		if answer != "y" && answer != "yes" {
			fmt.Fprintln(os.Stderr, "Canceled.")
			return nil
		}
	}

	if err := executeDelete(ctx, b, t); err != nil {
		return err
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]any{
			"status": "deleted",
			"id":     t.ID,
			"title":  t.Title,
		})
	}
	output.Messagef(os.Stdout, "Deleted task #%d: %s", t.ID, t.Title)
	return nil
}

// executeDelete cancels the task's reminder, then removes the task.
func executeDelete(ctx context.Context, b *backend, t *task.Task) error {
	if err := b.sched.Cancel(ctx, t.ID); err != nil {
		return err
	}
	if err := b.feed.Delete(ctx, t.ID); err != nil {
		return fmt.Errorf("deleting task #%d: %w", t.ID, err)
	}
	b.record(activity.ActionDelete, t.ID, t.Title)
	return nil
}
