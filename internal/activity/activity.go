// Package activity keeps the append-only activity log of a data directory.
// Every task mutation and reminder event is recorded as one JSON line.
package activity

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	logFileName   = "activity.jsonl"
	logFileMode   = 0o600
	maxLogEntries = 10000 // oldest entries are dropped beyond this
)

// Actions recorded in the log.
const (
	ActionCreate        = "create"
	ActionUpdate        = "update"
	ActionDelete        = "delete"
	ActionImport        = "import"
	ActionGroupSave     = "group-save"
	ActionGroupDelete   = "group-delete"
	ActionSchedule      = "remind-schedule"
	ActionCancel        = "remind-cancel"
	ActionRekey         = "remind-rekey"
	ActionFire          = "remind-fire"
	ActionFireFailed    = "remind-fire-failed"
	ActionPermissionReq = "remind-permission-request"
	ActionPermission    = "remind-permission"
)

// Entry is a single activity log line.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	TaskID    int64     `json:"task_id"`
	Detail    string    `json:"detail"`
}

// Path returns the activity log path inside dir.
func Path(dir string) string {
	return filepath.Join(dir, logFileName)
}

// Append writes entry to the log in dir, truncating the oldest entries
// once the log exceeds its size limit.
func Append(dir string, entry Entry) error {
	path := Path(dir)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, logFileMode) //nolint:gosec // path inside the data dir
	if err != nil {
		return fmt.Errorf("opening activity log: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling activity entry: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing activity entry: %w", err)
	}

	_ = truncate(path)
	return nil
}

// Record appends an entry stamped with the current time. Errors are
// discarded: logging never fails the operation being logged.
func Record(dir, action string, taskID int64, detail string) {
	if dir == "" {
		return
	}
	_ = Append(dir, Entry{
		Timestamp: time.Now(),
		Action:    action,
		TaskID:    taskID,
		Detail:    detail,
	})
}

// Recorder returns a Record bound to dir, or a no-op when dir is empty.
func Recorder(dir string) func(action string, taskID int64, detail string) {
	return func(action string, taskID int64, detail string) {
		Record(dir, action, taskID, detail)
	}
}

// Tail returns up to n of the newest entries, oldest first. A missing log
// yields no entries. Lines that do not parse are skipped.
func Tail(dir string, n int) ([]Entry, error) {
	lines, err := readLines(Path(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading activity log: %w", err)
	}
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}

	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		var e Entry
		if json.Unmarshal([]byte(line), &e) != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func truncate(path string) error {
	lines, err := readLines(path)
	if err != nil {
		return err
	}
	if len(lines) <= maxLogEntries {
		return nil
	}
	lines = lines[len(lines)-maxLogEntries:]

	var buf strings.Builder
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(buf.String()), logFileMode)
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // path inside the data dir
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}
