package task

import (
	"slices"
	"strings"

	"github.com/patseev1987/todolist/internal/clierr"
)

// ValidateStatus checks that a status is one of the known statuses.
func ValidateStatus(status string) error {
	if Status(status).Index() >= 0 {
		return nil
	}
	return clierr.Newf(clierr.InvalidStatus, "invalid status %q", status).
		WithDetails(map[string]any{
			"status":  status,
			"allowed": StatusNames(),
		})
}

// ValidateGroup checks that a group exists among the known names.
func ValidateGroup(group string, known []string) error {
	if slices.Contains(known, group) {
		return nil
	}
	return clierr.Newf(clierr.InvalidGroup, "unknown group %q", group).
		WithDetails(map[string]any{
			"group":   group,
			"allowed": known,
		})
}

// ValidateIcon checks that an icon name is known.
func ValidateIcon(field, icon string) error {
	if ValidIcon(icon) {
		return nil
	}
	return clierr.Newf(clierr.InvalidIcon, "invalid %s icon %q", field, icon).
		WithDetails(map[string]any{
			"field":   field,
			"icon":    icon,
			"allowed": IconNames(),
		})
}

// ValidateGroupName rejects blank group names.
func ValidateGroupName(name string) error {
	if strings.TrimSpace(name) != "" {
		return nil
	}
	return clierr.New(clierr.InvalidInput, "group name must not be blank")
}

// ValidateDate returns a CLIError for invalid date input.
func ValidateDate(field, input string, err error) *clierr.Error {
	return clierr.Newf(clierr.InvalidDate, "invalid %s date: %v", field, err).
		WithDetails(map[string]any{
			"field": field,
			"input": input,
		})
}

// ValidateTime returns a CLIError for invalid clock input.
func ValidateTime(input string, err error) *clierr.Error {
	return clierr.Newf(clierr.InvalidTime, "invalid time: %v", err).
		WithDetails(map[string]any{"input": input})
}

// ValidateTaskID returns a CLIError for invalid task ID input.
func ValidateTaskID(input string) *clierr.Error {
	return clierr.Newf(clierr.InvalidTaskID, "invalid task ID %q", input).
		WithDetails(map[string]any{"input": input})
}

// NotFound returns a CLIError for a missing task.
func NotFound(id int64) *clierr.Error {
	return clierr.Newf(clierr.TaskNotFound, "task not found: #%d", id).
		WithDetails(map[string]any{"id": id})
}
