package reminder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/patseev1987/todolist/internal/activity"
	"github.com/patseev1987/todolist/internal/store"
)

// Registry is the persistent alarm table the local platform writes to.
type Registry interface {
	PutAlarm(ctx context.Context, a store.Alarm) error
	DeleteAlarm(ctx context.Context, key int64) error
	Alarm(ctx context.Context, key int64) (store.Alarm, error)
	Alarms(ctx context.Context) ([]store.Alarm, error)
}

// LocalPlatform keeps timers in the store's alarm registry, where the
// reminder daemon picks them up.
type LocalPlatform struct {
	registry Registry
	capable  func() bool
	hint     io.Writer
	record   Recorder
}

// NewLocalPlatform returns a platform over registry. capable reports the
// exact-timer capability; hint receives the instructions printed when the
// capability is requested.
func NewLocalPlatform(registry Registry, capable func() bool, hint io.Writer, record Recorder) *LocalPlatform {
	if record == nil {
		record = func(string, int64, string) {}
	}
	if hint == nil {
		hint = io.Discard
	}
	return &LocalPlatform{registry: registry, capable: capable, hint: hint, record: record}
}

func (p *LocalPlatform) RegisterExactTimer(ctx context.Context, key int64, fireAt time.Time, pl Payload) error {
	err := p.registry.PutAlarm(ctx, store.Alarm{
		Key:     key,
		FireAt:  fireAt,
		Title:   pl.Title,
		Content: pl.Content,
		TaskUID: pl.TaskUID,
		Created: time.Now(),
	})
	if errors.Is(err, store.ErrAlarmExists) {
		return ErrKeyInUse
	}
	return err
}

func (p *LocalPlatform) CancelTimer(ctx context.Context, key int64) error {
	return p.registry.DeleteAlarm(ctx, key)
}

func (p *LocalPlatform) CanScheduleExact() bool {
	return p.capable == nil || p.capable()
}

func (p *LocalPlatform) RequestSchedulingCapability(_ context.Context) {
	p.record(activity.ActionPermissionReq, 0, "exact reminders disabled")
	fmt.Fprintln(p.hint, "Exact reminders are disabled. Run 'todo remind permission grant' to allow them.")
}
