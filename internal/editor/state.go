// Package editor holds the edit sessions behind the add/edit screens: a
// session owns one draft, applies intents in order on its own goroutine and
// publishes an immutable snapshot after every step.
package editor

import (
	"errors"

	"github.com/patseev1987/todolist/internal/task"
)

// Sentinel errors carried by Failed.
var (
	ErrTaskNotFound     = errors.New("task not found")
	ErrGroupNotFound    = errors.New("group not found")
	ErrRemindWithoutDue = errors.New("reminder enabled without a due time")
	ErrClosed           = errors.New("session closed")
)

// State is a published snapshot: Loading, Result, GroupResult or Failed.
type State interface {
	state()
}

// Loading means the record being edited has not been read yet.
type Loading struct{}

// Errors are the user-correctable problems found by the last intent.
type Errors struct {
	TitleEmpty       bool `json:"title_empty,omitempty"`
	ContentEmpty     bool `json:"content_empty,omitempty"`
	DateInvalid      bool `json:"date_invalid,omitempty"`
	PermissionDenied bool `json:"permission_denied,omitempty"`
}

// Any reports whether any flag is set.
func (e Errors) Any() bool {
	return e.TitleEmpty || e.ContentEmpty || e.DateInvalid || e.PermissionDenied
}

// Result carries a copy of the task draft.
type Result struct {
	Draft  task.Task
	Errors Errors
}

// GroupResult carries a copy of the group draft.
type GroupResult struct {
	Item         task.TabItem
	NameTaken    bool
	ErrorMessage string
}

// Failed is terminal: the session accepts no further work.
type Failed struct {
	Err error
}

func (Loading) state()     {}
func (Result) state()      {}
func (GroupResult) state() {}
func (Failed) state()      {}
