package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/patseev1987/todolist/internal/activity"
	"github.com/patseev1987/todolist/internal/store"
)

// Default delivery retry policy.
const (
	DefaultAttempts = 3
	DefaultBackoff  = 30 * time.Second
)

// Runner is the reminder daemon: it arms a timer for every registered alarm,
// delivers the alarm when it fires, then removes it from the registry.
// A failed delivery keeps the alarm and is retried with doubling backoff;
// after the last attempt the alarm is dropped.
type Runner struct {
	registry Registry
	notifier Notifier
	record   Recorder
	onErr    func(error)
	now      func() time.Time
	attempts int
	backoff  time.Duration

	mu       sync.Mutex
	armed    map[int64]armedAlarm
	firing   map[int64]time.Time
	failures map[int64]int
	reload   chan struct{}
}

type armedAlarm struct {
	fireAt time.Time
	timer  *time.Timer
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerRecorder sets the activity recorder.
func WithRunnerRecorder(r Recorder) RunnerOption {
	return func(rn *Runner) { rn.record = r }
}

// WithErrorHandler receives delivery and registry errors.
func WithErrorHandler(fn func(error)) RunnerOption {
	return func(rn *Runner) { rn.onErr = fn }
}

// WithNow overrides the clock used to compute timer delays.
func WithNow(now func() time.Time) RunnerOption {
	return func(rn *Runner) { rn.now = now }
}

// WithRetry sets how many times a delivery is attempted and the delay
// before the first retry.
func WithRetry(attempts int, backoff time.Duration) RunnerOption {
	return func(rn *Runner) {
		rn.attempts = max(attempts, 1)
		rn.backoff = backoff
	}
}

// NewRunner returns a Runner over registry delivering to n.
func NewRunner(registry Registry, n Notifier, opts ...RunnerOption) *Runner {
	r := &Runner{
		registry: registry,
		notifier: n,
		record:   func(string, int64, string) {},
		onErr:    func(error) {},
		now:      time.Now,
		attempts: DefaultAttempts,
		backoff:  DefaultBackoff,
		armed:    make(map[int64]armedAlarm),
		firing:   make(map[int64]time.Time),
		failures: make(map[int64]int),
		reload:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reload asks the runner to re-read the registry. It never blocks.
func (r *Runner) Reload() {
	select {
	case r.reload <- struct{}{}:
	default:
	}
}

// Run arms the registered alarms and keeps them in sync until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	defer r.disarmAll()

	if err := r.sync(ctx); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.reload:
			if err := r.sync(ctx); err != nil {
				r.onErr(err)
			}
		}
	}
}

// Armed returns the keys that currently have a running timer.
func (r *Runner) Armed() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]int64, 0, len(r.armed))
	for k := range r.armed {
		keys = append(keys, k)
	}
	return keys
}

// sync diffs the registry against the armed timers.
func (r *Runner) sync(ctx context.Context) error {
	alarms, err := r.registry.Alarms(ctx)
	if err != nil {
		return fmt.Errorf("loading alarms: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[int64]bool, len(alarms))
	for _, a := range alarms {
		seen[a.Key] = true
		if at, ok := r.firing[a.Key]; ok && at.Equal(a.FireAt) {
			continue
		}
		if cur, ok := r.armed[a.Key]; ok {
			if cur.fireAt.Equal(a.FireAt) {
				continue
			}
			cur.timer.Stop()
		}
		delete(r.failures, a.Key)
		r.arm(ctx, a)
	}
	for key, cur := range r.armed {
		if !seen[key] {
			cur.timer.Stop()
			delete(r.armed, key)
			delete(r.failures, key)
		}
	}
	return nil
}

// arm must be called with r.mu held. Alarms already past due fire at once.
func (r *Runner) arm(ctx context.Context, a store.Alarm) {
	r.armAfter(ctx, a, max(a.FireAt.Sub(r.now()), 0))
}

// armAfter must be called with r.mu held.
func (r *Runner) armAfter(ctx context.Context, a store.Alarm, delay time.Duration) {
	key, fireAt := a.Key, a.FireAt
	r.armed[key] = armedAlarm{
		fireAt: fireAt,
		timer:  time.AfterFunc(delay, func() { r.fire(ctx, key, fireAt) }),
	}
}

func (r *Runner) fire(ctx context.Context, key int64, fireAt time.Time) {
	r.mu.Lock()
	cur, ok := r.armed[key]
	if !ok || !cur.fireAt.Equal(fireAt) {
		r.mu.Unlock()
		return
	}
	delete(r.armed, key)
	r.firing[key] = fireAt
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.firing, key)
		r.mu.Unlock()
	}()

	if ctx.Err() != nil {
		return
	}

	// The registry is authoritative: another process may have cancelled or
	// moved the alarm since the last sync.
	a, err := r.registry.Alarm(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		r.onErr(fmt.Errorf("reading alarm %d: %w", key, err))
		return
	}
	if !a.FireAt.Equal(fireAt) {
		return
	}

	n := Notification{Key: a.Key, FireAt: a.FireAt, Title: a.Title, Content: a.Content, TaskUID: a.TaskUID}
	if err := r.notifier.Notify(ctx, n); err != nil {
		r.record(activity.ActionFireFailed, key, err.Error())
		r.onErr(fmt.Errorf("delivering reminder %d: %w", key, err))
		if r.retryLater(ctx, a) {
			return
		}
	} else {
		r.record(activity.ActionFire, key, a.Title)
		r.mu.Lock()
		delete(r.failures, key)
		r.mu.Unlock()
	}

	if err := r.registry.DeleteAlarm(ctx, key); err != nil {
		r.onErr(fmt.Errorf("removing alarm %d: %w", key, err))
	}
}

// retryLater re-arms a failed alarm with backoff. It reports false once the
// attempts are used up.
func (r *Runner) retryLater(ctx context.Context, a store.Alarm) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.failures[a.Key]++
	n := r.failures[a.Key]
	if n >= r.attempts {
		delete(r.failures, a.Key)
		return false
	}
	if _, ok := r.armed[a.Key]; ok {
		return true
	}
	r.armAfter(ctx, a, r.backoff<<(n-1))
	return true
}

func (r *Runner) disarmAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, cur := range r.armed {
		cur.timer.Stop()
		delete(r.armed, key)
	}
}
