package reminder

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patseev1987/todolist/internal/store"
)

func newLocal(capable bool) (*LocalPlatform, *store.Memory, *bytes.Buffer) {
	mem := store.NewMemory()
	hint := &bytes.Buffer{}
	p := NewLocalPlatform(mem, func() bool { return capable }, hint, nil)
	return p, mem, hint
}

func TestScheduleRegistersAlarm(t *testing.T) {
	p, mem, _ := newLocal(true)
	var actions []string
	s := NewScheduler(p, WithRecorder(func(action string, _ int64, _ string) {
		actions = append(actions, action)
	}))

	ctx := context.Background()
	at := time.Now().Add(time.Hour)
	ok, err := s.Schedule(ctx, 7, at, Payload{Title: "t", Content: "c", TaskUID: "u"})
	require.NoError(t, err)
	assert.True(t, ok)

	a, err := mem.Alarm(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "t", a.Title)
	assert.Equal(t, "u", a.TaskUID)
	assert.Equal(t, []string{"remind-schedule"}, actions)
}

func TestScheduleOccupiedKeyFails(t *testing.T) {
	p, _, _ := newLocal(true)
	s := NewScheduler(p)
	ctx := context.Background()
	at := time.Now().Add(time.Hour)

	_, err := s.Schedule(ctx, 1, at, Payload{})
	require.NoError(t, err)
	ok, err := s.Schedule(ctx, 1, at, Payload{})
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrKeyInUse)

	require.NoError(t, s.Cancel(ctx, 1))
	ok, err = s.Schedule(ctx, 1, at, Payload{})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestScheduleWithoutPermissionRequestsIt(t *testing.T) {
	p, mem, hint := newLocal(false)
	s := NewScheduler(p)
	ctx := context.Background()

	assert.False(t, s.HasPermission())
	ok, err := s.Schedule(ctx, 3, time.Now().Add(time.Hour), Payload{})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, hint.String(), "todo remind permission grant")

	alarms, err := mem.Alarms(ctx)
	require.NoError(t, err)
	assert.Empty(t, alarms)
}

func TestCancelUnknownKeyIsNoop(t *testing.T) {
	p, _, _ := newLocal(true)
	assert.NoError(t, NewScheduler(p).Cancel(context.Background(), 404))
}
