// Package reminder schedules one-shot exact timers for tasks and delivers
// them when they fire.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patseev1987/todolist/internal/activity"
)

// ErrKeyInUse is returned when a timer is registered under an occupied key.
// Timers are never replaced implicitly; cancel the old one first.
var ErrKeyInUse = errors.New("reminder key already in use")

// Payload travels with a timer and is delivered when it fires.
type Payload struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	TaskUID string `json:"task_uid"`
}

// Platform is the timer facility of the host.
type Platform interface {
	RegisterExactTimer(ctx context.Context, key int64, fireAt time.Time, p Payload) error
	// CancelTimer removes the timer under key; unknown keys are a no-op.
	CancelTimer(ctx context.Context, key int64) error
	CanScheduleExact() bool
	// RequestSchedulingCapability asks the user to grant exact timers.
	// The outcome arrives out of band.
	RequestSchedulingCapability(ctx context.Context)
}

// Scheduler is what task editing needs from reminders.
type Scheduler interface {
	// Schedule registers a timer. It reports false, with a nil error, when
	// the capability is missing; the capability has then been requested.
	Schedule(ctx context.Context, key int64, fireAt time.Time, p Payload) (bool, error)
	Cancel(ctx context.Context, key int64) error
	HasPermission() bool
}

// Recorder receives reminder events for the activity log.
type Recorder func(action string, key int64, detail string)

// ExactScheduler implements Scheduler over a Platform.
type ExactScheduler struct {
	platform Platform
	record   Recorder
}

// Option configures an ExactScheduler.
type Option func(*ExactScheduler)

// WithRecorder sets the activity recorder.
func WithRecorder(r Recorder) Option {
	return func(s *ExactScheduler) { s.record = r }
}

// NewScheduler returns a Scheduler backed by p.
func NewScheduler(p Platform, opts ...Option) *ExactScheduler {
	s := &ExactScheduler{platform: p, record: func(string, int64, string) {}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ExactScheduler) Schedule(ctx context.Context, key int64, fireAt time.Time, p Payload) (bool, error) {
	if !s.platform.CanScheduleExact() {
		s.platform.RequestSchedulingCapability(ctx)
		return false, nil
	}
	if err := s.platform.RegisterExactTimer(ctx, key, fireAt, p); err != nil {
		return false, fmt.Errorf("scheduling reminder %d: %w", key, err)
	}
	s.record(activity.ActionSchedule, key, fireAt.Format(time.RFC3339))
	return true, nil
}

func (s *ExactScheduler) Cancel(ctx context.Context, key int64) error {
	if err := s.platform.CancelTimer(ctx, key); err != nil {
		return fmt.Errorf("cancelling reminder %d: %w", key, err)
	}
	s.record(activity.ActionCancel, key, "")
	return nil
}

func (s *ExactScheduler) HasPermission() bool {
	return s.platform.CanScheduleExact()
}
