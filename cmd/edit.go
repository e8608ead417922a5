package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/patseev1987/todolist/internal/board"
	"github.com/patseev1987/todolist/internal/clierr"
	"github.com/patseev1987/todolist/internal/editor"
)

var editCmd = &cobra.Command{
	Use:   "edit ID[,ID,...]",
	Short: "Edit a task",
	Long: `Modifies fields of existing tasks. Only specified fields are changed.
Multiple IDs can be provided as a comma-separated list.

A task with a reminder is rescheduled on every save, so its due time must
still be in the future. --no-remind cancels the reminder and clears the due time.`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	addTaskFlags(editCmd.Flags())
	rootCmd.AddCommand(editCmd)
}

func runEdit(cmd *cobra.Command, args []string) error {
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
		res, err := executeEdit(ctx, cmd, b, ids[0])
		if err != nil {
			return err
		}
		return outputSaved("Updated", res)
	}

	return runBatch(ids, func(id int64) error {
		_, err := executeEdit(ctx, cmd, b, id)
		return err
	})
}

// executeEdit loads the task into a session, applies the flags and saves.
func executeEdit(ctx context.Context, cmd *cobra.Command, b *backend, id int64) (editor.Result, error) {
	s := b.openSession(ctx, id)
	defer s.Close()

	cur, err := currentDraft(ctx, s, id)
	if err != nil {
		return editor.Result{}, err
	}
	changed, err := applyTaskFlags(ctx, cmd, b, s, cur)
	if err != nil {
		return editor.Result{}, err
	}
	if !changed {
		return editor.Result{}, clierr.New(clierr.NoChanges, "no changes specified")
	}
	return saveSession(ctx, s, id)
}
