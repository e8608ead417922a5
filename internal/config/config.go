package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/patseev1987/todolist/internal/clierr"
)

const (
	fileMode = 0o600
	dirMode  = 0o750
)

// Sentinel errors.
var (
	ErrNotFound = errors.New("no to-do data directory found (run 'todo init' to create one)")
	ErrInvalid  = errors.New("invalid config")
)

// Config is the contents of config.yml.
type Config struct {
	Version   int             `yaml:"version"`
	Store     StoreConfig     `yaml:"store"`
	Defaults  DefaultsConfig  `yaml:"defaults"`
	Reminders RemindersConfig `yaml:"reminders"`
	TUI       TUIConfig       `yaml:"tui,omitempty"`

	// dir is the absolute path to the data directory (not serialized).
	dir string `yaml:"-"`
}

// StoreConfig selects the task store backend.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path,omitempty"` // sqlite file, relative to the data dir
	DSN    string `yaml:"dsn,omitempty"`  // postgres connection string
}

// DefaultsConfig holds default values for new tasks.
type DefaultsConfig struct {
	Group  string `yaml:"group"`
	Status string `yaml:"status"`
}

// RemindersConfig controls how reminders are scheduled and delivered.
type RemindersConfig struct {
	// ExactAlarms is the exact-timer capability. Revoking it makes
	// scheduling report "not scheduled" until granted again.
	ExactAlarms bool   `yaml:"exact_alarms"`
	Notifier    string `yaml:"notifier"`
	Command     string `yaml:"command,omitempty"`
	WebhookURL  string `yaml:"webhook_url,omitempty"`
	Timeout     string `yaml:"timeout,omitempty"`
}

// TUIConfig holds TUI display settings.
type TUIConfig struct {
	ShowDone     bool `yaml:"show_done,omitempty"`
	ContentLines int  `yaml:"content_lines,omitempty"`
}

// NewDefault creates a Config with default values.
func NewDefault() *Config {
	return &Config{
		Version: CurrentVersion,
		Store:   StoreConfig{Driver: DefaultDriver, Path: DefaultDBFile},
		Defaults: DefaultsConfig{
			Group:  DefaultGroup,
			Status: DefaultStatus,
		},
		Reminders: RemindersConfig{
			ExactAlarms: true,
			Notifier:    DefaultNotifier,
			Timeout:     DefaultNotifyTimeout.String(),
		},
		TUI: TUIConfig{ShowDone: true, ContentLines: DefaultContentLines},
	}
}

// Dir returns the absolute path to the data directory.
func (c *Config) Dir() string {
	return c.dir
}

// SetDir sets the data directory path on the config.
func (c *Config) SetDir(dir string) {
	c.dir = dir
}

// ConfigPath returns the absolute path to the config file.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.dir, ConfigFileName)
}

// LockPath returns the path of the writer lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.dir, LockFileName)
}

// DBPath returns the absolute path of the SQLite database.
func (c *Config) DBPath() string {
	p := c.Store.Path
	if p == "" {
		p = DefaultDBFile
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.dir, p)
}

// NotifyTimeout returns the delivery timeout, falling back to the default.
func (c *Config) NotifyTimeout() time.Duration {
	d, err := time.ParseDuration(c.Reminders.Timeout)
	if err != nil || d <= 0 {
		return DefaultNotifyTimeout
	}
	return d
}

// ContentLines returns the number of content preview lines in the TUI.
func (c *Config) ContentLines() int {
	if c.TUI.ContentLines == 0 {
		return DefaultContentLines
	}
	return c.TUI.ContentLines
}

// Validate checks the config for errors.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("%w: unsupported version %d (expected %d)", ErrInvalid, c.Version, CurrentVersion)
	}
	if !slices.Contains(drivers, c.Store.Driver) {
		return fmt.Errorf("%w: store.driver %q must be one of %v", ErrInvalid, c.Store.Driver, drivers)
	}
	if c.Store.Driver == DriverPostgres && c.Store.DSN == "" {
		return fmt.Errorf("%w: store.dsn is required for the postgres driver", ErrInvalid)
	}
	if c.Defaults.Group == "" {
		return fmt.Errorf("%w: defaults.group is required", ErrInvalid)
	}
	if !slices.Contains([]string{"not-started", "in-progress", "done"}, c.Defaults.Status) {
		return fmt.Errorf("%w: defaults.status %q is not a known status", ErrInvalid, c.Defaults.Status)
	}
	return c.validateReminders()
}

func (c *Config) validateReminders() error {
	r := c.Reminders
	if !slices.Contains(notifiers, r.Notifier) {
		return fmt.Errorf("%w: reminders.notifier %q must be one of %v", ErrInvalid, r.Notifier, notifiers)
	}
	if r.Notifier == NotifierCommand && r.Command == "" {
		return fmt.Errorf("%w: reminders.command is required for the command notifier", ErrInvalid)
	}
	if r.Notifier == NotifierWebhook && r.WebhookURL == "" {
		return fmt.Errorf("%w: reminders.webhook_url is required for the webhook notifier", ErrInvalid)
	}
	if r.Timeout != "" {
		if _, err := time.ParseDuration(r.Timeout); err != nil {
			return fmt.Errorf("%w: invalid reminders.timeout %q: %w", ErrInvalid, r.Timeout, err)
		}
	}
	const maxContentLines = 3
	if c.TUI.ContentLines < 0 || c.TUI.ContentLines > maxContentLines {
		return fmt.Errorf("%w: tui.content_lines must be between 0 and %d", ErrInvalid, maxContentLines)
	}
	return nil
}

// Init creates a data directory with a default config file.
func Init(dir string) (*Config, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfg := NewDefault()
	cfg.SetDir(absDir)

	if err := os.MkdirAll(absDir, dirMode); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	if err := cfg.Save(); err != nil {
		return nil, fmt.Errorf("writing config: %w", err)
	}
	return cfg, nil
}

// Save writes the config to its config file.
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(c.ConfigPath(), data, fileMode)
}

// Load reads, migrates, applies environment overrides and validates the
// config in dir.
func Load(dir string) (*Config, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	path := filepath.Join(absDir, ConfigFileName)
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted source
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.dir = absDir

	oldVersion := cfg.Version
	if err := migrate(&cfg); err != nil {
		return nil, err
	}
	// Persist migrated config so future loads skip re-migration.
	if cfg.Version != oldVersion {
		if err := cfg.Save(); err != nil {
			return nil, fmt.Errorf("saving migrated config: %w", err)
		}
	}

	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FindDir walks upward from startDir looking for a .todo directory
// containing config.yml.
func FindDir(startDir string) (string, error) {
	absStart, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	dir := absStart
	for {
		candidate := filepath.Join(dir, DefaultDir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return filepath.Join(dir, DefaultDir), nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", clierr.New(clierr.DirNotFound,
				"no to-do data directory found (run 'todo init' to create one)")
		}
		dir = parent
	}
}
