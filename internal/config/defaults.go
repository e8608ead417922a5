// Package config handles the to-do data directory configuration.
package config

import "time"

const (
	// DefaultDir is the project-local data directory name.
	DefaultDir = ".todo"
	// ConfigFileName is the name of the config file within the data directory.
	ConfigFileName = "config.yml"
	// LockFileName serializes writers that predict task identifiers.
	LockFileName = ".lock"

	// CurrentVersion is the current config schema version.
	CurrentVersion = 3

	// EnvPrefix prefixes environment overrides, e.g. TODO_STORE_DRIVER.
	EnvPrefix = "TODO"

	// DefaultGroup is the group new tasks start in.
	DefaultGroup = "work"
	// DefaultStatus is the status new tasks start in.
	DefaultStatus = "not-started"

	// DefaultDriver is the default task store backend.
	DefaultDriver = DriverSQLite
	// DefaultDBFile is the SQLite database file inside the data directory.
	DefaultDBFile = "todo.db"

	// DefaultNotifier delivers reminders to the terminal running the daemon.
	DefaultNotifier = NotifierTerminal
	// DefaultNotifyTimeout bounds command and webhook delivery.
	DefaultNotifyTimeout = 10 * time.Second

	// DefaultContentLines is the number of content preview lines in the TUI.
	DefaultContentLines = 1
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Reminder notifiers.
const (
	NotifierTerminal = "terminal"
	NotifierCommand  = "command"
	NotifierWebhook  = "webhook"
)

var (
	drivers   = []string{DriverSQLite, DriverPostgres, DriverMemory}
	notifiers = []string{NotifierTerminal, NotifierCommand, NotifierWebhook}
)
