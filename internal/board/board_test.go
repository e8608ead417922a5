package board

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patseev1987/todolist/internal/clierr"
	"github.com/patseev1987/todolist/internal/store"
	"github.com/patseev1987/todolist/internal/task"
)

var now = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	v := now.Add(d)
	return &v
}

func sample() []*task.Task {
	return []*task.Task{
		{ID: 1, Title: "Buy milk", Content: "2%", Group: "shopping", Status: task.StatusNotStarted},
		{ID: 2, Title: "Report", Content: "Q1 numbers", Group: "work", Status: task.StatusInProgress, Due: at(-time.Hour)},
		{ID: 3, Title: "Call mom", Content: "birthday", Group: "home", Status: task.StatusNotStarted, Remind: true, Due: at(time.Hour)},
		{ID: 4, Title: "Archive", Content: "old mail", Group: "work", Status: task.StatusDone, Due: at(-2 * time.Hour)},
		{ID: 5, Title: "Essay", Content: "draft", Group: "gone", Status: task.StatusNotStarted},
	}
}

func ids(tasks []*task.Task) []int64 {
	out := make([]int64, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestFilter(t *testing.T) {
	cases := map[string]struct {
		opts FilterOptions
		want []int64
	}{
		"all":        {FilterOptions{}, []int64{1, 2, 3, 4, 5}},
		"group":      {FilterOptions{Group: "work"}, []int64{2, 4}},
		"statuses":   {FilterOptions{Statuses: []task.Status{task.StatusInProgress, task.StatusDone}}, []int64{2, 4}},
		"exclude":    {FilterOptions{ExcludeStatuses: []task.Status{task.StatusDone}}, []int64{1, 2, 3, 5}},
		"search":     {FilterOptions{Search: "MOM"}, []int64{3}},
		"content":    {FilterOptions{Search: "numbers"}, []int64{2}},
		"remind":     {FilterOptions{RemindOnly: true}, []int64{3}},
		"overdue":    {FilterOptions{OverdueAt: &now}, []int64{2}},
		"no matches": {FilterOptions{Group: "home", Search: "milk"}, nil},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got := Filter(sample(), tc.opts)
			if tc.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tc.want, ids(got))
		})
	}
}

func TestSort(t *testing.T) {
	tasks := sample()
	Sort(tasks, fieldDue, false)
	assert.Equal(t, []int64{4, 2, 3, 1, 5}, ids(tasks))

	Sort(tasks, fieldStatus, false)
	assert.Equal(t, []int64{1, 3, 5, 2, 4}, ids(tasks))

	Sort(tasks, fieldTitle, true)
	assert.Equal(t, []int64{2, 5, 3, 1, 4}, ids(tasks))

	Sort(tasks, "bogus", false)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, ids(tasks))
}

func TestList(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	for _, tk := range sample() {
		_, err := s.InsertOrReplace(ctx, tk)
		require.NoError(t, err)
	}

	got, err := List(ctx, s, ListOptions{SortBy: fieldTitle, Limit: 2}, now)
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 1}, ids(got))

	got, err = List(ctx, s, ListOptions{Overdue: true}, now)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids(got))

	got, err = List(ctx, s, ListOptions{Filter: store.Filter{Group: "work", Limit: 1}, Reverse: true}, now)
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 2}, ids(got))

	got, err = List(ctx, s, ListOptions{Statuses: []task.Status{task.StatusNotStarted}, SortBy: fieldID, Limit: 2}, now)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids(got))
}

func TestArrangeKeepsStoreResultsWhenUnfiltered(t *testing.T) {
	got := Arrange(sample(), ListOptions{SortBy: fieldDue}, now)
	assert.Equal(t, []int64{4, 2, 3, 1, 5}, ids(got))
}

func TestSummary(t *testing.T) {
	ov := Summary(task.DefaultTabItems(), sample(), now)
	assert.Equal(t, 5, ov.TotalTasks)
	assert.Equal(t, 1, ov.Reminders)

	require.Len(t, ov.Statuses, 3)
	assert.Equal(t, StatusSummary{Status: task.StatusNotStarted, Count: 3}, ov.Statuses[0])
	assert.Equal(t, StatusSummary{Status: task.StatusInProgress, Count: 1, Overdue: 1}, ov.Statuses[1])
	assert.Equal(t, StatusSummary{Status: task.StatusDone, Count: 1}, ov.Statuses[2])

	require.Len(t, ov.Groups, 6)
	assert.Equal(t, GroupCount{Group: "work", Open: 1, Total: 2}, ov.Groups[0])
	assert.Equal(t, GroupCount{Group: "gone", Open: 1, Total: 1}, ov.Groups[5])
}

func TestGroupBy(t *testing.T) {
	tabs := task.DefaultTabItems()

	byGroup := GroupBy(sample(), fieldGroup, tabs)
	var keys []string
	for _, g := range byGroup.Groups {
		keys = append(keys, g.Key)
	}
	assert.Equal(t, []string{"work", "home", "shopping", "gone"}, keys)
	assert.Equal(t, 2, byGroup.Groups[0].Total)

	byStatus := GroupBy(sample(), fieldStatus, tabs)
	require.Len(t, byStatus.Groups, 3)
	assert.Equal(t, string(task.StatusNotStarted), byStatus.Groups[0].Key)
	assert.Equal(t, 3, byStatus.Groups[0].Total)

	byRemind := GroupBy(sample(), fieldRemind, tabs)
	require.Len(t, byRemind.Groups, 2)
	assert.Equal(t, "(no reminder)", byRemind.Groups[0].Key)
}

func TestParseIDs(t *testing.T) {
	got, err := ParseIDs("3, 1,3,,2")
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1, 2}, got)

	for _, bad := range []string{"", ",", "x", "0", "-4"} {
		_, err := ParseIDs(bad)
		var ce *clierr.Error
		require.ErrorAs(t, err, &ce, bad)
		assert.Equal(t, clierr.InvalidTaskID, ce.Code)
	}
}
