// Package task defines to-do tasks, their groups, and their file formats.
package task

import (
	"time"

	"github.com/google/uuid"
)

// Status is the progress state of a task.
type Status string

// Task statuses in workflow order.
const (
	StatusNotStarted Status = "not-started"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
)

// Statuses returns every status in workflow order.
func Statuses() []Status {
	return []Status{StatusNotStarted, StatusInProgress, StatusDone}
}

// StatusNames returns every status as a string, for flags and error details.
func StatusNames() []string {
	names := make([]string, 0, len(Statuses()))
	for _, s := range Statuses() {
		names = append(names, string(s))
	}
	return names
}

// Index returns the position of s in workflow order, or -1.
func (s Status) Index() int {
	for i, v := range Statuses() {
		if v == s {
			return i
		}
	}
	return -1
}

// Task is a single to-do item.
type Task struct {
	ID        int64      `yaml:"id" json:"id"`
	UID       string     `yaml:"uid" json:"uid"`
	Title     string     `yaml:"title" json:"title"`
	Group     string     `yaml:"group" json:"group"`
	Status    Status     `yaml:"status" json:"status"`
	Remind    bool       `yaml:"remind,omitempty" json:"remind"`
	Due       *time.Time `yaml:"due,omitempty" json:"due,omitempty"`
	Created   time.Time  `yaml:"created" json:"created"`
	Updated   time.Time  `yaml:"updated" json:"updated"`
	Started   *time.Time `yaml:"started,omitempty" json:"started,omitempty"`
	Completed *time.Time `yaml:"completed,omitempty" json:"completed,omitempty"`

	// Content is the markdown below the frontmatter in exported files.
	Content string `yaml:"-" json:"content"`

	// File is set when the task was read from disk.
	File string `yaml:"-" json:"file,omitempty"`
}

// New returns an unsaved task in the given group.
func New(group string) *Task {
	return &Task{
		UID:    NewUID(),
		Group:  group,
		Status: StatusNotStarted,
	}
}

// NewUID returns a time-ordered unique identifier.
func NewUID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Clone returns a deep copy of t.
func (t *Task) Clone() *Task {
	c := *t
	c.Due = cloneTime(t.Due)
	c.Started = cloneTime(t.Started)
	c.Completed = cloneTime(t.Completed)
	return &c
}

// Overdue reports whether the task has a due time before now and is not done.
func (t *Task) Overdue(now time.Time) bool {
	return t.Due != nil && t.Status != StatusDone && t.Due.Before(now)
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
