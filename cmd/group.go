package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/patseev1987/todolist/internal/activity"
	"github.com/patseev1987/todolist/internal/clierr"
	"github.com/patseev1987/todolist/internal/editor"
	"github.com/patseev1987/todolist/internal/output"
	"github.com/patseev1987/todolist/internal/store"
	"github.com/patseev1987/todolist/internal/task"
)

var groupCmd = &cobra.Command{
	Use:     "group",
	Aliases: []string{"groups"},
	Short:   "Manage task groups",
	Long:    `Lists groups in tab order. Use the subcommands to add, edit or delete groups.`,
	RunE:    runGroupList,
}

var groupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List groups",
	Args:  cobra.NoArgs,
	RunE:  runGroupList,
}

var groupAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Add a group",
	Long:  `Adds a group after the existing tabs. Icons default to star/star-o.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runGroupAdd,
}

var groupEditCmd = &cobra.Command{
	Use:   "edit NAME",
	Short: "Rename a group or change its icons",
	Long:  `Renaming a group moves its tasks along with it.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runGroupEdit,
}

var groupDeleteCmd = &cobra.Command{
	Use:     "delete NAME",
	Aliases: []string{"rm"},
	Short:   "Delete an empty group",
	Args:    cobra.ExactArgs(1),
	RunE:    runGroupDelete,
}

func init() {
	for _, c := range []*cobra.Command{groupAddCmd, groupEditCmd} {
		c.Flags().String("icon", "", "icon for the selected tab")
		c.Flags().String("icon-off", "", "icon for unselected tabs")
	}
	groupEditCmd.Flags().String("name", "", "new name")
	groupCmd.AddCommand(groupListCmd, groupAddCmd, groupEditCmd, groupDeleteCmd)
	rootCmd.AddCommand(groupCmd)
}

func runGroupList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	b, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close() //nolint:errcheck // best-effort close on exit

	rows, err := groupRows(ctx, b.feed)
	if err != nil {
		return err
	}
	switch outputFormat() {
	case output.FormatJSON:
		return output.JSON(os.Stdout, rows)
	case output.FormatCompact:
		output.GroupCompact(os.Stdout, rows)
	default:
		output.GroupTable(os.Stdout, rows)
	}
	return nil
}

func groupRows(ctx context.Context, s store.Store) ([]output.GroupRow, error) {
	items, err := s.TabItems(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.CountByGroup(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]output.GroupRow, 0, len(items))
	for _, item := range items {
		rows = append(rows, output.GroupRow{TabItem: item, Tasks: counts[item.Name]})
	}
	return rows, nil
}

func runGroupAdd(cmd *cobra.Command, args []string) error {
	return editGroup(cmd, "", args[0])
}

func runGroupEdit(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	if name == "" && !cmd.Flags().Changed("icon") && !cmd.Flags().Changed("icon-off") {
		return clierr.New(clierr.NoChanges, "no changes specified")
	}
	return editGroup(cmd, args[0], name)
}

// editGroup drives a group session: original is empty for a new group, name
// is empty to keep the current name.
func editGroup(cmd *cobra.Command, original, name string) error {
	icon, _ := cmd.Flags().GetString("icon")
	iconOff, _ := cmd.Flags().GetString("icon-off")
	if icon != "" {
		if err := task.ValidateIcon("selected", icon); err != nil {
			return err
		}
	}
	if iconOff != "" {
		if err := task.ValidateIcon("unselected", iconOff); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	b, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close() //nolint:errcheck // best-effort close on exit

	s := editor.OpenGroup(ctx, original, b.feed, editor.WithRecorder(b.record))
	defer s.Close()

	if name != "" {
		s.SetName(name)
	}
	if icon != "" {
		s.SetSelectedIcon(icon)
	}
	if iconOff != "" {
		s.SetUnselectedIcon(iconOff)
	}
	done := make(chan struct{})
	s.Save(func() { close(done) })
	if err := s.Flush(ctx); err != nil {
		return err
	}

	var res editor.GroupResult
	switch st := s.State().(type) {
	case editor.Failed:
		if errors.Is(st.Err, editor.ErrGroupNotFound) {
			return groupNotFound(original)
		}
		return st.Err
	case editor.GroupResult:
		res = st
	}
	select {
	case <-done:
	default:
		code := clierr.InvalidInput
		if res.NameTaken {
			code = clierr.GroupNameTaken
		}
		return clierr.New(code, res.ErrorMessage).WithDetails(map[string]any{"name": res.Item.Name})
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, res.Item)
	}
	verb := "Updated"
	if original == "" {
		verb = "Added"
	}
	output.Messagef(os.Stdout, "%s group %s %s (slot %d)", verb, task.Glyph(res.Item.SelectedIcon), res.Item.Name, res.Item.Slot)
	return nil
}

func runGroupDelete(cmd *cobra.Command, args []string) error {
	name := args[0]
	ctx := cmd.Context()
	b, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close() //nolint:errcheck // best-effort close on exit

	if name == b.cfg.Defaults.Group {
		return clierr.Newf(clierr.InvalidInput, "group %q is the default group (change defaults.group first)", name)
	}
	counts, err := b.feed.CountByGroup(ctx)
	if err != nil {
		return err
	}
	if n := counts[name]; n > 0 {
		return clierr.Newf(clierr.GroupNotEmpty, "group %q still has %d tasks", name, n).
			WithDetails(map[string]any{"group": name, "tasks": n})
	}

	if err := b.feed.DeleteTabItem(ctx, name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return groupNotFound(name)
		}
		return fmt.Errorf("deleting group %s: %w", name, err)
	}
	b.record(activity.ActionGroupDelete, 0, name)

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]any{"status": "deleted", "group": name})
	}
	output.Messagef(os.Stdout, "Deleted group %s", name)
	return nil
}

func groupNotFound(name string) error {
	return clierr.Newf(clierr.GroupNotFound, "group not found: %s", name).
		WithDetails(map[string]any{"group": name})
}
