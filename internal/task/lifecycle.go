package task

import "time"

// UpdateTimestamps sets Started and Completed based on the status transition.
//   - Sets Started on first move out of not-started (never overwrites).
//   - Sets Completed on move to done; also sets Started if nil.
//   - Clears Completed when a done task is reopened.
func UpdateTimestamps(t *Task, oldStatus, newStatus Status, now time.Time) {
	if oldStatus == newStatus {
		return
	}
	if t.Started == nil && oldStatus == StatusNotStarted {
		t.Started = &now
	}

	if newStatus == StatusDone {
		t.Completed = &now
		if t.Started == nil {
			t.Started = &now
		}
	} else if oldStatus == StatusDone {
		t.Completed = nil
	}
}
