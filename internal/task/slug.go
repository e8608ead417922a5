package task

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const maxSlugLength = 50

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// GenerateSlug converts a title to a filename-friendly slug.
func GenerateSlug(title string) string {
	slug := strings.ToLower(title)
	slug = nonAlphanumeric.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	if len(slug) > maxSlugLength {
		truncated := slug[:maxSlugLength]
		// Only trim to last hyphen if we cut mid-word.
		if slug[maxSlugLength] != '-' {
			if idx := strings.LastIndex(truncated, "-"); idx > 0 {
				truncated = truncated[:idx]
			}
		}
		slug = strings.TrimRight(truncated, "-")
	}
	if slug == "" {
		slug = "task"
	}
	return slug
}

// Filename returns the export filename for a task, e.g. 007-buy-milk.md.
func Filename(t *Task) string {
	padWidth := 3
	idStr := strconv.FormatInt(t.ID, 10)
	if len(idStr) > padWidth {
		padWidth = len(idStr)
	}
	return fmt.Sprintf("%0*d-%s.md", padWidth, t.ID, GenerateSlug(t.Title))
}
