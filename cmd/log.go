package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/patseev1987/todolist/internal/activity"
	"github.com/patseev1987/todolist/internal/output"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show the activity log",
	Long:  `Shows the newest entries of the activity log: task changes, group changes and reminder events.`,
	Args:  cobra.NoArgs,
	RunE:  runLog,
}

func init() {
	logCmd.Flags().IntP("limit", "n", 20, "number of entries to show (0 for all)") //nolint:mnd // default page size
	rootCmd.AddCommand(logCmd)
}

func runLog(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	n, _ := cmd.Flags().GetInt("limit")
	entries, err := activity.Tail(cfg.Dir(), n)
	if err != nil {
		return err
	}

	if outputFormat() == output.FormatJSON {
		if entries == nil {
			entries = []activity.Entry{}
		}
		return output.JSON(os.Stdout, entries)
	}
	output.ActivityTable(os.Stdout, entries)
	return nil
}
