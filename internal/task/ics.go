package task

import (
	"strings"
	"time"
)

const (
	icsStampLayout = "20060102T150405Z"
	icsEventLength = 30 * time.Minute
)

// BuildCalendar renders tasks with a due time as an iCalendar feed. Tasks that
// remind get a VALARM firing at the start of the event.
func BuildCalendar(tasks []*Task, now time.Time) string {
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//todolist//Task Export//EN",
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
	}
	for _, t := range tasks {
		if t.Due == nil {
			continue
		}
		lines = append(lines, eventLines(t, now)...)
	}
	lines = append(lines, "END:VCALENDAR", "")
	return strings.Join(lines, "\r\n")
}

func eventLines(t *Task, now time.Time) []string {
	start := t.Due.UTC()
	title := strings.TrimSpace(t.Title)
	if title == "" {
		title = "Task"
	}

	lines := []string{
		"BEGIN:VEVENT",
		"UID:" + escapeICSText(t.UID+"@todolist"),
		"DTSTAMP:" + now.UTC().Format(icsStampLayout),
		"SUMMARY:" + escapeICSText(title),
		"DTSTART:" + start.Format(icsStampLayout),
		"DTEND:" + start.Add(icsEventLength).Format(icsStampLayout),
		"CATEGORIES:" + escapeICSText(t.Group),
	}
	if desc := strings.TrimSpace(t.Content); desc != "" {
		lines = append(lines, "DESCRIPTION:"+escapeICSText(desc))
	}
	if t.Status == StatusDone {
		lines = append(lines, "STATUS:CANCELLED")
	}
	if t.Remind {
		lines = append(lines,
			"BEGIN:VALARM",
			"ACTION:DISPLAY",
			"DESCRIPTION:"+escapeICSText(title),
			"TRIGGER:PT0M",
			"END:VALARM",
		)
	}
	return append(lines, "END:VEVENT")
}

func escapeICSText(s string) string {
	repl := strings.NewReplacer(
		"\\", "\\\\",
		";", "\\;",
		",", "\\,",
		"\r\n", "\\n",
		"\n", "\\n",
		"\r", "\\n",
	)
	return repl.Replace(s)
}
