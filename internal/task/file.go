package task

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"
)

const fileMode = 0o600

// Read parses an exported task file: YAML frontmatter, then content.
func Read(path string) (*Task, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path chosen by the user
	if err != nil {
		return nil, fmt.Errorf("reading task file: %w", err)
	}

	t, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	t.File = path
	return t, nil
}

// Decode parses frontmatter and content from raw file bytes.
func Decode(data []byte) (*Task, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	var t Task
	if err := yaml.Unmarshal(fm, &t); err != nil {
		return nil, fmt.Errorf("parsing frontmatter: %w", err)
	}
	t.Content = strings.TrimRight(body, "\n")
	return &t, nil
}

// Encode serializes a task as markdown with YAML frontmatter.
func Encode(t *Task) ([]byte, error) {
	fm, err := yaml.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("marshaling frontmatter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(fm)
	buf.WriteString("---\n")
	if t.Content != "" {
		buf.WriteString("\n")
		buf.WriteString(t.Content)
		if !strings.HasSuffix(t.Content, "\n") {
			buf.WriteString("\n")
		}
	}
	return buf.Bytes(), nil
}

// Write serializes a task to path.
func Write(path string, t *Task) error {
	data, err := Encode(t)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, fileMode)
}

// ReadWarning describes a file that could not be parsed during import.
type ReadWarning struct {
	File string // base filename
	Err  error
}

// ReadDir reads every .md task file in dir, skipping malformed files.
func ReadDir(dir string) ([]*Task, []ReadWarning, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("reading import directory: %w", err)
	}

	var tasks []*Task
	var warnings []ReadWarning
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".md" {
			continue
		}
		t, readErr := Read(filepath.Join(dir, entry.Name()))
		if readErr != nil {
			warnings = append(warnings, ReadWarning{File: entry.Name(), Err: readErr})
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, warnings, nil
}

// splitFrontmatter splits a markdown file into YAML frontmatter and body.
func splitFrontmatter(data []byte) ([]byte, string, error) {
	content := string(data)

	if !strings.HasPrefix(content, "---\n") {
		return nil, "", errors.New("file does not start with YAML frontmatter (---)")
	}

	rest := content[4:]
	idx := strings.Index(rest, "\n---\n")
	if idx < 0 {
		if !strings.HasSuffix(rest, "\n---") {
			return nil, "", errors.New("unclosed frontmatter (missing closing ---)")
		}
		idx = len(rest) - len("\n---")
	}

	fm := rest[:idx]
	body := ""
	closingEnd := idx + len("\n---\n")
	if closingEnd < len(rest) {
		body = strings.TrimLeft(rest[closingEnd:], "\n")
	}
	return []byte(fm), body, nil
}
