package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask_Defaults(t *testing.T) {
	task := NewTask("Research", "Collect background material")

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, TaskPending, task.Status)
	assert.Equal(t, PriorityMedium, task.Priority)
	assert.Nil(t, task.StartedAt)
	assert.Nil(t, task.CompletedAt)
	assert.False(t, task.CreatedAt.IsZero())
}

func TestNewTask_Options(t *testing.T) {
	task := NewTask("Draft", "Write the draft", func(o *TaskOptions) {
		o.Assignee = "writer"
		o.Priority = PriorityHigh
		o.Dependencies = []Dependency{{TaskID: "dep-1", Required: true}}
		o.Tags = []string{"writing"}
		o.Metadata = map[string]any{"length": "short"}
	})

	assert.Equal(t, "writer", task.Assignee)
	assert.Equal(t, PriorityHigh, task.Priority)
	assert.Equal(t, []string{"dep-1"}, task.RequiredDependencyIDs())
	assert.Equal(t, []string{"writing"}, task.Tags)
}

func TestTask_StartComplete(t *testing.T) {
	task := NewTask("Research", "Collect background material")

	require.NoError(t, task.Start())
	assert.Equal(t, TaskRunning, task.Status)
	require.NotNil(t, task.StartedAt)

	require.NoError(t, task.Complete("done"))
	assert.Equal(t, TaskCompleted, task.Status)
	assert.Equal(t, "done", task.Result)
	require.NotNil(t, task.CompletedAt)
	assert.GreaterOrEqual(t, task.ActualTime, time.Duration(0))
}

func TestTask_CompleteWithoutStart(t *testing.T) {
	task := NewTask("Research", "Collect background material")

	err := task.Complete("done")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, TaskPending, task.Status)
	assert.Empty(t, task.Result)
	assert.Nil(t, task.CompletedAt)
}

func TestTask_StartTwice(t *testing.T) {
	task := NewTask("Research", "Collect background material")

	require.NoError(t, task.Start())
	err := task.Start()

	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTask_FailFromPending(t *testing.T) {
	task := NewTask("Research", "Collect background material")

	require.NoError(t, task.Fail("upstream unavailable"))
	assert.Equal(t, TaskFailed, task.Status)
	assert.Equal(t, "upstream unavailable", task.Error)
}

func TestTask_FailTerminalRejected(t *testing.T) {
	task := NewTask("Research", "Collect background material")
	require.NoError(t, task.Start())
	require.NoError(t, task.Complete("done"))

	assert.ErrorIs(t, task.Fail("late"), ErrInvalidTransition)
}

func TestTask_BlockUnblock(t *testing.T) {
	task := NewTask("Research", "Collect background material")

	require.NoError(t, task.Block())
	assert.Equal(t, TaskBlocked, task.Status)

	require.NoError(t, task.Unblock())
	assert.Equal(t, TaskPending, task.Status)
}

func TestTask_CancelIdempotent(t *testing.T) {
	task := NewTask("Research", "Collect background material")

	require.NoError(t, task.Cancel())
	assert.Equal(t, TaskCancelled, task.Status)
	require.NoError(t, task.Cancel())
}

func TestPriority_Weight(t *testing.T) {
	assert.Greater(t, PriorityHigh.Weight(), PriorityMedium.Weight())
	assert.Greater(t, PriorityMedium.Weight(), PriorityLow.Weight())
	assert.Equal(t, PriorityMedium.Weight(), Priority("bogus").Weight())
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{"seconds", 42 * time.Second, "42s"},
		{"minutes", 5*time.Minute + 30*time.Second, "5m"},
		{"hours", 2*time.Hour + 45*time.Minute, "2h"},
		{"zero", 0, "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(tt.d))
		})
	}
}
