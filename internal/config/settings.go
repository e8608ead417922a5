package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/patseev1987/todolist/internal/clierr"
)

// setting describes how to get and set a config key.
type setting struct {
	get      func(*Config) any
	set      func(*Config, string) error
	writable bool
}

var settings = map[string]setting{
	"version": {
		get: func(c *Config) any { return c.Version },
	},
	"store.driver": {
		get:      func(c *Config) any { return c.Store.Driver },
		set:      oneOf(drivers, func(c *Config, v string) { c.Store.Driver = v }),
		writable: true,
	},
	"store.path": {
		get:      func(c *Config) any { return c.Store.Path },
		set:      func(c *Config, v string) error { c.Store.Path = v; return nil },
		writable: true,
	},
	"store.dsn": {
		get:      func(c *Config) any { return c.Store.DSN },
		set:      func(c *Config, v string) error { c.Store.DSN = v; return nil },
		writable: true,
	},
	"defaults.group": {
		get:      func(c *Config) any { return c.Defaults.Group },
		set:      func(c *Config, v string) error { c.Defaults.Group = v; return nil },
		writable: true,
	},
	"defaults.status": {
		get: func(c *Config) any { return c.Defaults.Status },
		set: oneOf([]string{"not-started", "in-progress", "done"},
			func(c *Config, v string) { c.Defaults.Status = v }),
		writable: true,
	},
	"reminders.exact_alarms": {
		get: func(c *Config) any { return c.Reminders.ExactAlarms },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return clierr.Newf(clierr.InvalidInput,
					"invalid reminders.exact_alarms %q: must be true or false", v)
			}
			c.Reminders.ExactAlarms = b
			return nil
		},
		writable: true,
	},
	"reminders.notifier": {
		get:      func(c *Config) any { return c.Reminders.Notifier },
		set:      oneOf(notifiers, func(c *Config, v string) { c.Reminders.Notifier = v }),
		writable: true,
	},
	"reminders.command": {
		get:      func(c *Config) any { return c.Reminders.Command },
		set:      func(c *Config, v string) error { c.Reminders.Command = v; return nil },
		writable: true,
	},
	"reminders.webhook_url": {
		get:      func(c *Config) any { return c.Reminders.WebhookURL },
		set:      func(c *Config, v string) error { c.Reminders.WebhookURL = v; return nil },
		writable: true,
	},
	"reminders.timeout": {
		get: func(c *Config) any { return c.Reminders.Timeout },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return clierr.Newf(clierr.InvalidInput, "invalid reminders.timeout %q: %v", v, err)
			}
			c.Reminders.Timeout = v
			return nil
		},
		writable: true,
	},
	"tui.show_done": {
		get: func(c *Config) any { return c.TUI.ShowDone },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return clierr.Newf(clierr.InvalidInput,
					"invalid tui.show_done %q: must be true or false", v)
			}
			c.TUI.ShowDone = b
			return nil
		},
		writable: true,
	},
	"tui.content_lines": {
		get: func(c *Config) any { return c.TUI.ContentLines },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return clierr.Newf(clierr.InvalidInput,
					"invalid tui.content_lines %q: must be an integer", v)
			}
			c.TUI.ContentLines = n
			return nil // validation handles range check
		},
		writable: true,
	},
}

func oneOf(allowed []string, apply func(*Config, string)) func(*Config, string) error {
	return func(c *Config, v string) error {
		if !slices.Contains(allowed, v) {
			return clierr.Newf(clierr.InvalidInput, "invalid value %q; allowed: %s",
				v, strings.Join(allowed, ", "))
		}
		apply(c, v)
		return nil
	}
}

// Keys returns config keys in display order.
func Keys() []string {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	// version first, the rest alphabetical.
	i := slices.Index(keys, "version")
	return append([]string{"version"}, slices.Delete(keys, i, i+1)...)
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (any, error) {
	s, ok := settings[key]
	if !ok {
		return nil, clierr.Newf(clierr.InvalidInput, "unknown config key %q", key)
	}
	return s.get(c), nil
}

// Set parses and assigns a config key. Validate must be called afterwards.
func (c *Config) Set(key, value string) error {
	s, ok := settings[key]
	if !ok {
		return clierr.Newf(clierr.InvalidInput, "unknown config key %q", key)
	}
	if !s.writable {
		return clierr.Newf(clierr.InvalidInput, "config key %q is read-only", key)
	}
	return s.set(c, value)
}

// ApplyEnv overrides writable keys from TODO_* environment variables,
// e.g. TODO_REMINDERS_NOTIFIER=webhook. Overrides live on c only, but a
// later Save of c writes them to config.yml along with everything else.
func ApplyEnv(c *Config) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range Keys() {
		s := settings[key]
		if !s.writable || !v.IsSet(key) {
			continue
		}
		if err := s.set(c, v.GetString(key)); err != nil {
			return fmt.Errorf("%w: environment override for %s: %w", ErrInvalid, key, err)
		}
	}
	return nil
}
