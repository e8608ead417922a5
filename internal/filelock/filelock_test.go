package filelock

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithSerializesWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".lock")

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := With(path, func() error {
				mu.Lock()
				inside++
				if inside > maxSeen {
					maxSeen = inside
				}
				mu.Unlock()

				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestWithReturnsCallbackError(t *testing.T) {
	boom := errors.New("boom")
	err := With(filepath.Join(t.TempDir(), ".lock"), func() error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestLockBadPath(t *testing.T) {
	_, err := Lock(filepath.Join(t.TempDir(), "missing", "x", ".lock"))
	require.Error(t, err)
}
