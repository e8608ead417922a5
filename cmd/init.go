package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/patseev1987/todolist/internal/clierr"
	"github.com/patseev1987/todolist/internal/config"
	"github.com/patseev1987/todolist/internal/output"
	"github.com/patseev1987/todolist/internal/store"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a to-do data directory",
	Long: `Creates a data directory with config.yml and a task database, seeded with
the built-in groups (work, home, study, shopping, other).`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().String("driver", config.DefaultDriver, "store driver (sqlite, postgres, memory)")
	initCmd.Flags().String("dsn", "", "postgres connection string")
	initCmd.Flags().String("default-group", "", "group new tasks start in")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	dir := flagDir
	if dir == "" {
		dir = config.DefaultDir
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	if _, err := os.Stat(filepath.Join(absDir, config.ConfigFileName)); err == nil {
		return clierr.Newf(clierr.DirAlreadyExists, "data directory already initialized in %s", absDir).
			WithDetails(map[string]any{"dir": absDir})
	}

	cfg := config.NewDefault()
	cfg.SetDir(absDir)
	if v, _ := cmd.Flags().GetString("driver"); v != "" {
		if err := cfg.Set("store.driver", v); err != nil {
			return err
		}
	}
	if v, _ := cmd.Flags().GetString("dsn"); v != "" {
		cfg.Store.DSN = v
	}
	if v, _ := cmd.Flags().GetString("default-group"); v != "" {
		cfg.Defaults.Group = v
	}
	if err := cfg.Validate(); err != nil {
		return clierr.New(clierr.InvalidInput, err.Error())
	}

	const dirMode = 0o750
	if err := os.MkdirAll(absDir, dirMode); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	b, err := openBackendWith(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer b.Close() //nolint:errcheck // read-only from here

	groups, err := store.GroupNames(cmd.Context(), b.feed)
	if err != nil {
		return err
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]any{
			"status": "initialized",
			"dir":    absDir,
			"config": cfg.ConfigPath(),
			"driver": cfg.Store.Driver,
			"groups": groups,
		})
	}

	output.Messagef(os.Stdout, "Initialized to-do data in %s", absDir)
	output.Messagef(os.Stdout, "  Config:  %s", cfg.ConfigPath())
	output.Messagef(os.Stdout, "  Store:   %s", storeLocation(cfg))
	output.Messagef(os.Stdout, "  Groups:  %s", strings.Join(groups, ", "))
	output.Messagef(os.Stdout, "  Hint:    Run 'todo remind serve' to deliver reminders")
	return nil
}

func storeLocation(cfg *config.Config) string {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		return "postgres"
	case config.DriverMemory:
		return "memory (not persisted)"
	default:
		return cfg.DBPath()
	}
}
