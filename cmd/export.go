package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/patseev1987/todolist/internal/activity"
	"github.com/patseev1987/todolist/internal/clierr"
	"github.com/patseev1987/todolist/internal/date"
	"github.com/patseev1987/todolist/internal/output"
	"github.com/patseev1987/todolist/internal/store"
	"github.com/patseev1987/todolist/internal/task"
)

const (
	formatMarkdown = "md"
	formatICS      = "ics"
	exportDirMode  = 0o750
	exportFileMode = 0o600
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export tasks as markdown files or an iCalendar feed",
	Long: `With --format md (default), writes one markdown file with YAML frontmatter per
task into --out (default ./todo-export). With --format ics, writes an iCalendar
feed of tasks that have a due time to --out, or to stdout.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

var importCmd = &cobra.Command{
	Use:   "import DIR",
	Short: "Import markdown task files",
	Long: `Creates a task for every .md file in DIR written by 'todo export'. Imported
tasks get new IDs. Reminders whose due time has passed are not scheduled.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	exportCmd.Flags().String("format", formatMarkdown, "export format (md, ics)")
	exportCmd.Flags().StringP("out", "o", "", "output directory (md) or file (ics)")
	exportCmd.Flags().StringP("group", "g", "", "export only this group")
	rootCmd.AddCommand(exportCmd, importCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	format, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("out")
	group, _ := cmd.Flags().GetString("group")
	if format != formatMarkdown && format != formatICS {
		return clierr.Newf(clierr.InvalidInput, "invalid --format %q; valid: md, ics", format)
	}

	ctx := cmd.Context()
	b, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close() //nolint:errcheck // best-effort close on exit

	tasks, err := b.feed.List(ctx, store.Filter{Group: group})
	if err != nil {
		return err
	}

	if format == formatICS {
		cal := task.BuildCalendar(tasks, time.Now())
		if out == "" {
			_, err := fmt.Fprint(os.Stdout, cal)
			return err
		}
		if err := os.WriteFile(out, []byte(cal), exportFileMode); err != nil {
			return fmt.Errorf("writing calendar: %w", err)
		}
		return reportExport(out, len(tasks))
	}

	if out == "" {
		out = "todo-export"
	}
	if err := os.MkdirAll(out, exportDirMode); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}
	for _, t := range tasks {
		if err := task.Write(filepath.Join(out, task.Filename(t)), t); err != nil {
			return fmt.Errorf("exporting task #%d: %w", t.ID, err)
		}
	}
	return reportExport(out, len(tasks))
}

func reportExport(path string, n int) error {
	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]any{"status": "exported", "path": path, "tasks": n})
	}
	output.Messagef(os.Stdout, "Exported %d tasks to %s", n, path)
	return nil
}

// importResult is the outcome of importing one file.
type importResult struct {
	File  string `json:"file"`
	ID    int64  `json:"id,omitempty"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func runImport(cmd *cobra.Command, args []string) error {
	tasks, warnings, err := task.ReadDir(args[0])
	if err != nil {
		return err
	}
	printWarnings(warnings)

	ctx := cmd.Context()
	b, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close() //nolint:errcheck // best-effort close on exit

	known, err := b.groupNames(ctx)
	if err != nil {
		return err
	}

	results := make([]importResult, 0, len(tasks))
	failed := false
	for _, t := range tasks {
		r := importResult{File: filepath.Base(t.File)}
		id, err := importTask(ctx, b, t, known)
		if err != nil {
			failed = true
			r.Error = err.Error()
		} else {
			r.ID, r.OK = id, true
			b.record(activity.ActionImport, id, r.File)
		}
		results = append(results, r)
	}

	if outputFormat() == output.FormatJSON {
		if err := output.JSON(os.Stdout, results); err != nil {
			return err
		}
	} else {
		var n int
		for _, r := range results {
			if r.OK {
				n++
			} else {
				fmt.Fprintf(os.Stderr, "Error: %s: %s\n", r.File, r.Error)
			}
		}
		output.Messagef(os.Stdout, "Imported %d/%d tasks", n, len(results))
	}
	if failed {
		return &clierr.SilentError{Code: 1}
	}
	return nil
}

// importTask saves t as a new task through an editor session, so imported
// tasks pass the same validation and reminder scheduling as added ones.
func importTask(ctx context.Context, b *backend, t *task.Task, known []string) (int64, error) {
	s := b.openSession(ctx, 0)
	defer s.Close()

	s.SetTitle(t.Title)
	s.SetContent(t.Content)
	if t.Group != "" {
		if err := task.ValidateGroup(t.Group, known); err != nil {
			return 0, err
		}
		s.SetGroup(t.Group)
	}
	if t.Status != "" {
		if err := task.ValidateStatus(string(t.Status)); err != nil {
			return 0, err
		}
		s.SetStatus(t.Status)
	}
	if t.Due != nil {
		due := t.Due.Local()
		s.SetDate(date.Of(due))
		s.SetTime(date.ClockOf(due))
	}
	if t.Remind && t.Due != nil {
		if t.Due.After(time.Now()) {
			s.ToggleRemind()
		} else {
			fmt.Fprintf(os.Stderr, "Warning: %s: reminder time has passed, not scheduling\n", filepath.Base(t.File))
		}
	}

	res, err := saveSession(ctx, s, 0)
	if err != nil {
		return 0, err
	}
	return res.Draft.ID, nil
}
