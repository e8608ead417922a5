package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/patseev1987/todolist/internal/clierr"
	"github.com/patseev1987/todolist/internal/config"
	"github.com/patseev1987/todolist/internal/output"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify configuration",
	Long: `View the full configuration, get a specific key, or set a writable value.
Writable keys can also be overridden per run with TODO_* environment variables,
e.g. TODO_REMINDERS_NOTIFIER=webhook.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show all configuration values",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2), //nolint:mnd // key and value
	RunE:  runConfigSet,
}

func init() {
	configCmd.AddCommand(configShowCmd, configGetCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	keys := config.Keys()
	if outputFormat() == output.FormatJSON {
		m := make(map[string]any, len(keys))
		for _, key := range keys {
			m[key], _ = cfg.Get(key)
		}
		m["dir"] = cfg.Dir()
		return output.JSON(os.Stdout, m)
	}

	fmt.Fprintf(os.Stdout, "%-24s %s\n", "dir", cfg.Dir())
	for _, key := range keys {
		val, _ := cfg.Get(key)
		fmt.Fprintf(os.Stdout, "%-24s %v\n", key, formatConfigValue(val))
	}
	return nil
}

func runConfigGet(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	val, err := cfg.Get(args[0])
	if err != nil {
		return err
	}
	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, val)
	}
	fmt.Fprintln(os.Stdout, formatConfigValue(val))
	return nil
}

func runConfigSet(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	key, value := args[0], args[1]
	if err := cfg.Set(key, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return clierr.New(clierr.InvalidInput, err.Error()).
			WithDetails(map[string]any{"key": key, "value": value})
	}
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	val, _ := cfg.Get(key)
	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]any{"key": key, "value": val})
	}
	output.Messagef(os.Stdout, "Set %s = %v", key, formatConfigValue(val))
	return nil
}

func formatConfigValue(val any) string {
	switch v := val.(type) {
	case []string:
		return strings.Join(v, ", ")
	case string:
		if v == "" {
			return "(none)"
		}
		return v
	default:
		return fmt.Sprint(v)
	}
}
