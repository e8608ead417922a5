package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patseev1987/todolist/internal/task"
)

func TestFeedNotifiesWrites(t *testing.T) {
	f := NewFeed(NewMemory())
	events, unsubscribe := f.Subscribe()
	defer unsubscribe()

	ctx := context.Background()
	id, err := f.InsertOrReplace(ctx, newTask("a", "work"))
	require.NoError(t, err)
	require.NoError(t, f.Delete(ctx, id))
	require.NoError(t, f.PutTabItem(ctx, task.NewTabItem()))
	require.NoError(t, f.PutAlarm(ctx, Alarm{Key: 3, FireAt: time.Now()}))

	want := []Event{
		{Kind: TaskChanged, TaskID: id},
		{Kind: TaskDeleted, TaskID: id},
		{Kind: GroupsChanged},
		{Kind: AlarmsChanged, TaskID: 3},
	}
	for _, w := range want {
		select {
		case e := <-events:
			assert.Equal(t, w, e)
		case <-time.After(time.Second):
			t.Fatalf("missing event %+v", w)
		}
	}
}

func TestFeedDropsWhenSubscriberBehind(t *testing.T) {
	f := NewFeed(NewMemory())
	_, unsubscribe := f.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			f.Notify(Event{Kind: External})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a full subscriber")
	}
}

func TestWatchTask(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := NewFeed(NewMemory())
	tk := newTask("first", "work")
	id, err := f.InsertOrReplace(ctx, tk)
	require.NoError(t, err)

	updates := f.WatchTask(ctx, id)
	got := <-updates
	assert.Equal(t, "first", got.Title)

	tk.Title = "second"
	_, err = f.InsertOrReplace(ctx, tk)
	require.NoError(t, err)

	select {
	case got = <-updates:
		assert.Equal(t, "second", got.Title)
	case <-time.After(time.Second):
		t.Fatal("no update after write")
	}

	require.NoError(t, f.Delete(ctx, id))
	select {
	case _, ok := <-updates:
		assert.False(t, ok, "stream closes after delete")
	case <-time.After(time.Second):
		t.Fatal("stream not closed after delete")
	}
}

func TestWatchList(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := NewFeed(NewMemory())

	lists := f.WatchList(ctx, Filter{Group: "home"})
	assert.Empty(t, <-lists)

	_, err := f.InsertOrReplace(ctx, newTask("dishes", "home"))
	require.NoError(t, err)

	select {
	case got := <-lists:
		require.Len(t, got, 1)
		assert.Equal(t, "dishes", got[0].Title)
	case <-time.After(time.Second):
		t.Fatal("no list update")
	}

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-lists:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}
