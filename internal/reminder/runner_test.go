package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patseev1987/todolist/internal/store"
)

type recordingNotifier struct {
	mu   sync.Mutex
	got  []Notification
	fail error
}

func (r *recordingNotifier) Notify(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
	return r.fail
}

func (r *recordingNotifier) titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.got))
	for i, n := range r.got {
		out[i] = n.Title
	}
	return out
}

func startRunner(t *testing.T, reg Registry, n Notifier, opts ...RunnerOption) *Runner {
	t.Helper()
	r := NewRunner(reg, n, opts...)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return r
}

func TestRunnerFiresPastDueImmediately(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.PutAlarm(ctx, store.Alarm{Key: 1, FireAt: time.Now().Add(-time.Hour), Title: "late"}))

	n := &recordingNotifier{}
	startRunner(t, mem, n)

	assert.Eventually(t, func() bool { return len(n.titles()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		_, err := mem.Alarm(ctx, 1)
		return errors.Is(err, store.ErrNotFound)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRunnerFiresInOrder(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, mem.PutAlarm(ctx, store.Alarm{Key: 2, FireAt: now.Add(150 * time.Millisecond), Title: "second"}))
	require.NoError(t, mem.PutAlarm(ctx, store.Alarm{Key: 1, FireAt: now.Add(50 * time.Millisecond), Title: "first"}))

	n := &recordingNotifier{}
	startRunner(t, mem, n)

	assert.Eventually(t, func() bool { return len(n.titles()) == 2 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"first", "second"}, n.titles())
}

func TestRunnerReloadDisarmsCancelled(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.PutAlarm(ctx, store.Alarm{Key: 9, FireAt: time.Now().Add(300 * time.Millisecond), Title: "gone"}))

	n := &recordingNotifier{}
	r := startRunner(t, mem, n)
	assert.Eventually(t, func() bool { return len(r.Armed()) == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, mem.DeleteAlarm(ctx, 9))
	r.Reload()
	assert.Eventually(t, func() bool { return len(r.Armed()) == 0 }, time.Second, 10*time.Millisecond)

	time.Sleep(400 * time.Millisecond)
	assert.Empty(t, n.titles())
}

func TestRunnerSkipsAlarmCancelledBeforeSync(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.PutAlarm(ctx, store.Alarm{Key: 4, FireAt: time.Now().Add(100 * time.Millisecond), Title: "x"}))

	n := &recordingNotifier{}
	r := startRunner(t, mem, n)
	assert.Eventually(t, func() bool { return len(r.Armed()) == 1 }, time.Second, 10*time.Millisecond)

	// No Reload: the timer still fires but finds the registry entry gone.
	require.NoError(t, mem.DeleteAlarm(ctx, 4))
	time.Sleep(300 * time.Millisecond)
	assert.Empty(t, n.titles())
}

func TestRunnerDropsAlarmAfterLastAttempt(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.PutAlarm(ctx, store.Alarm{Key: 5, FireAt: time.Now(), Title: "x"}))

	var mu sync.Mutex
	var errs []error
	var actions []string
	n := &recordingNotifier{fail: errors.New("offline")}
	startRunner(t, mem, n,
		WithRetry(2, 20*time.Millisecond),
		WithErrorHandler(func(err error) { mu.Lock(); errs = append(errs, err); mu.Unlock() }),
		WithRunnerRecorder(func(action string, _ int64, _ string) { mu.Lock(); actions = append(actions, action); mu.Unlock() }),
	)

	assert.Eventually(t, func() bool {
		_, err := mem.Alarm(ctx, 5)
		return errors.Is(err, store.ErrNotFound)
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, errs)
	assert.ErrorContains(t, errs[0], "offline")
	assert.Equal(t, []string{"remind-fire-failed", "remind-fire-failed"}, actions)
	assert.Len(t, n.titles(), 2)
}

// flakyNotifier fails the first n deliveries.
type flakyNotifier struct {
	recordingNotifier
	failures int
}

func (f *flakyNotifier) Notify(ctx context.Context, n Notification) error {
	f.mu.Lock()
	fail := f.failures > 0
	f.failures--
	f.mu.Unlock()
	if fail {
		return errors.New("offline")
	}
	return f.recordingNotifier.Notify(ctx, n)
}

func TestRunnerRetriesFailedDelivery(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.PutAlarm(ctx, store.Alarm{Key: 6, FireAt: time.Now(), Title: "standup"}))

	n := &flakyNotifier{failures: 1}
	startRunner(t, mem, n, WithRetry(3, 50*time.Millisecond))

	assert.Eventually(t, func() bool { return len(n.titles()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		_, err := mem.Alarm(ctx, 6)
		return errors.Is(err, store.ErrNotFound)
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"standup"}, n.titles())
}
