package core

import (
	"time"

	"github.com/google/uuid"
)

// DelegationStatus enumerates the per-task lifecycle carried by delegation
// events. For one task the order is fixed: started, then completed or failed.
type DelegationStatus string

const (
	// DelegationStarted is emitted when a task is dispatched to its worker.
	DelegationStarted DelegationStatus = "started"
	// DelegationCompleted is emitted when the worker returned a result.
	DelegationCompleted DelegationStatus = "completed"
	// DelegationFailed is emitted when the worker invocation failed.
	DelegationFailed DelegationStatus = "failed"
)

// ToolCallTrace records a single tool invocation a worker performed while
// executing a task. Included in events for observability only.
type ToolCallTrace struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
	Result    string `json:"result,omitempty"`
}

// DelegationEvent is an immutable, append-only progress record emitted while
// a task executes. Events for a given task are ordered started -> (completed
// | failed); events across tasks interleave by real completion time. After
// emission an event must be treated as read-only.
type DelegationEvent struct {
	ID         string           `json:"id"`
	Type       string           `json:"type"` // always "delegation"
	TaskID     string           `json:"task_id"`
	TaskTitle  string           `json:"task_title"`
	WorkerID   string           `json:"worker_id"`
	WorkerName string           `json:"worker_name"`
	Status     DelegationStatus `json:"status"`
	Result     string           `json:"result,omitempty"`
	ArtifactID string           `json:"artifact_id,omitempty"`
	ToolCalls  []ToolCallTrace  `json:"tool_calls,omitempty"`
	Error      string           `json:"error,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
}

// NewDelegationEvent creates a delegation event for the given task and
// worker. Prefer the status-specific helpers below.
func NewDelegationEvent(task *Task, worker WorkerInfo, status DelegationStatus) DelegationEvent {
	return DelegationEvent{
		ID:         NewID(),
		Type:       "delegation",
		TaskID:     task.ID,
		TaskTitle:  task.Title,
		WorkerID:   worker.ID,
		WorkerName: worker.Name,
		Status:     status,
		Timestamp:  time.Now().UTC(),
	}
}

// NewDelegationStarted records a task being handed to its worker.
func NewDelegationStarted(task *Task, worker WorkerInfo) DelegationEvent {
	return NewDelegationEvent(task, worker, DelegationStarted)
}

// NewDelegationCompleted records a successful worker result. artifactID may
// be empty when the output was small enough to inline.
func NewDelegationCompleted(task *Task, worker WorkerInfo, result, artifactID string, trace []ToolCallTrace) DelegationEvent {
	ev := NewDelegationEvent(task, worker, DelegationCompleted)
	ev.Result = result
	ev.ArtifactID = artifactID
	ev.ToolCalls = trace
	return ev
}

// NewDelegationFailed records a worker invocation failure.
func NewDelegationFailed(task *Task, worker WorkerInfo, err error) DelegationEvent {
	ev := NewDelegationEvent(task, worker, DelegationFailed)
	if err != nil {
		ev.Error = err.Error()
	}
	return ev
}

// NewID generates a unique identifier used for tasks, plans, events and
// execution contexts throughout the framework.
func NewID() string { return uuid.NewString() }
