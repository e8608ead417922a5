package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncedCallback(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	w, err := New([]string{dir}, func() { calls.Add(1) }, WithDelay(50*time.Millisecond))
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx, nil)

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "todo.db"), []byte{byte(i)}, 0o600))
	}

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestMatchFiltersEvents(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	w, err := New([]string{dir}, func() { calls.Add(1) },
		WithDelay(20*time.Millisecond),
		WithMatch(func(name string) bool { return strings.HasPrefix(name, "todo.db") }))
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx, nil)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "activity.jsonl"), []byte("x"), 0o600))
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "todo.db"), []byte("x"), 0o600))
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestNewMissingPath(t *testing.T) {
	_, err := New([]string{filepath.Join(t.TempDir(), "nope")}, func() {})
	assert.Error(t, err)
}
