// Package output renders tasks, groups, reminders and activity as tables,
// JSON or compact lines.
package output

import (
	"os"
	"strings"
)

// Format is an output format.
type Format int

// Output formats. FormatTable is the default.
const (
	FormatTable Format = iota
	FormatJSON
	FormatCompact
)

// EnvFormat names the environment variable consulted when no flag is set.
const EnvFormat = "TODO_OUTPUT"

// ParseFormat maps a format name (json, table, compact or oneline) to its
// Format. Unknown names report false.
func ParseFormat(name string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return FormatJSON, true
	case "compact", "oneline":
		return FormatCompact, true
	case "table":
		return FormatTable, true
	}
	return FormatTable, false
}

// Detect picks the format from the global flags, then TODO_OUTPUT.
// JSON wins over compact, which wins over table.
func Detect(jsonFlag, tableFlag, compactFlag bool) Format {
	switch {
	case jsonFlag:
		return FormatJSON
	case compactFlag:
		return FormatCompact
	case tableFlag:
		return FormatTable
	}
	f, _ := ParseFormat(os.Getenv(EnvFormat))
	return f
}
