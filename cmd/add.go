package cmd

import (
	"github.com/spf13/cobra"

	"github.com/patseev1987/todolist/internal/clierr"
)

var addCmd = &cobra.Command{
	Use:     "add [TITLE]",
	Aliases: []string{"create"},
	Short:   "Create a new task",
	Long: `Creates a task. Title and content are required.

Title can be provided as a positional argument or via --title.
With --remind, a reminder is scheduled at the due time given by --date and --time;
the due time must be in the future.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAdd,
}

func init() {
	addTaskFlags(addCmd.Flags())
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if len(args) > 0 && cmd.Flags().Changed("title") {
		return clierr.New(clierr.InvalidInput,
			"title provided both as argument and --title flag; use one or the other")
	}
	if cmd.Flags().Changed("no-remind") {
		return clierr.New(clierr.InvalidInput, "--no-remind only applies to edit")
	}

	b, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close() //nolint:errcheck // best-effort close on exit

	s := b.openSession(ctx, 0)
	defer s.Close()

	cur, err := currentDraft(ctx, s, 0)
	if err != nil {
		return err
	}
	if len(args) > 0 {
		s.SetTitle(args[0])
	}
	if _, err := applyTaskFlags(ctx, cmd, b, s, cur); err != nil {
		return err
	}

	res, err := saveSession(ctx, s, 0)
	if err != nil {
		return err
	}
	return outputSaved("Created", res)
}
