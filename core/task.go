package core

import (
	"fmt"
	"time"
)

// TaskStatus enumerates the lifecycle states of a Task.
type TaskStatus string

const (
	// TaskPending marks a task that has not started yet.
	TaskPending TaskStatus = "pending"
	// TaskRunning marks a task currently dispatched to a worker.
	TaskRunning TaskStatus = "running"
	// TaskCompleted marks a task that finished successfully (terminal).
	TaskCompleted TaskStatus = "completed"
	// TaskFailed marks a task whose worker invocation failed (terminal).
	TaskFailed TaskStatus = "failed"
	// TaskBlocked marks a task explicitly put on hold. Blocking is reversible.
	TaskBlocked TaskStatus = "blocked"
	// TaskCancelled marks a task cancelled by the caller (terminal).
	TaskCancelled TaskStatus = "cancelled"
)

// Terminal reports whether the status is an end state. Blocked is not
// terminal because Unblock can move the task back to pending.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed || s == TaskCancelled
}

// Priority orders tasks within a dispatch frontier.
type Priority string

const (
	// PriorityLow is dispatched after medium and high priority tasks.
	PriorityLow Priority = "low"
	// PriorityMedium is the default priority.
	PriorityMedium Priority = "medium"
	// PriorityHigh is dispatched first within a frontier.
	PriorityHigh Priority = "high"
)

// Weight returns a sortable rank for the priority. Unknown values rank as
// medium so malformed input never starves a task.
func (p Priority) Weight() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityLow:
		return 1
	default:
		return 2
	}
}

// ErrInvalidTransition is returned when a task or mission state change is
// requested from a state that does not allow it. These are programmer errors
// and are never swallowed.
var ErrInvalidTransition = fmt.Errorf("invalid state transition")

// Dependency links a task to another task it needs output from. Required
// dependencies gate dispatch; optional dependencies only contribute context
// when they happen to be completed.
type Dependency struct {
	TaskID   string `json:"task_id"`
	Required bool   `json:"required"`
}

// Task is a single unit of delegated work. A Task is owned exclusively by the
// Plan that contains it and must be mutated only through its methods (or the
// Plan's transition helpers) so the timestamps stay consistent.
type Task struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Status       TaskStatus     `json:"status"`
	Assignee     string         `json:"assignee,omitempty"`
	Priority     Priority       `json:"priority"`
	Dependencies []Dependency   `json:"dependencies,omitempty"`
	Tags         []string       `json:"tags,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Result       string         `json:"result,omitempty"`
	Error        string         `json:"error,omitempty"`
	ActualTime   time.Duration  `json:"actual_time,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

// TaskOptions customizes task construction.
type TaskOptions struct {
	// Assignee is the worker agent id the task is routed to.
	Assignee string
	// Priority defaults to PriorityMedium.
	Priority Priority
	// Dependencies on other tasks in the same plan.
	Dependencies []Dependency
	// Tags for free-form categorization.
	Tags []string
	// Metadata is an arbitrary payload passed through to the worker.
	Metadata map[string]any
}

// NewTask creates a pending task with a generated id.
func NewTask(title, description string, optFns ...func(o *TaskOptions)) *Task {
	opts := TaskOptions{Priority: PriorityMedium}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Priority == "" {
		opts.Priority = PriorityMedium
	}

	now := time.Now().UTC()

	return &Task{
		ID:           NewID(),
		Title:        title,
		Description:  description,
		Status:       TaskPending,
		Assignee:     opts.Assignee,
		Priority:     opts.Priority,
		Dependencies: opts.Dependencies,
		Tags:         opts.Tags,
		Metadata:     opts.Metadata,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Start transitions the task from pending to running and records StartedAt.
func (t *Task) Start() error {
	if t.Status != TaskPending {
		return fmt.Errorf("%w: cannot start task %s in status %q", ErrInvalidTransition, t.ID, t.Status)
	}
	now := time.Now().UTC()
	t.Status = TaskRunning
	t.StartedAt = &now
	t.UpdatedAt = now
	return nil
}

// Complete transitions the task from running to completed, stores the worker
// output as the result and records the wall-clock duration.
func (t *Task) Complete(result string) error {
	if t.Status != TaskRunning {
		return fmt.Errorf("%w: cannot complete task %s in status %q", ErrInvalidTransition, t.ID, t.Status)
	}
	now := time.Now().UTC()
	t.Status = TaskCompleted
	t.Result = result
	t.CompletedAt = &now
	if t.StartedAt != nil {
		t.ActualTime = now.Sub(*t.StartedAt)
	}
	t.UpdatedAt = now
	return nil
}

// Fail marks the task failed with the given reason. Allowed from any
// non-terminal state so a task can fail before it ever started.
func (t *Task) Fail(reason string) error {
	if t.Status.Terminal() {
		return fmt.Errorf("%w: cannot fail task %s in status %q", ErrInvalidTransition, t.ID, t.Status)
	}
	now := time.Now().UTC()
	t.Status = TaskFailed
	t.Error = reason
	t.CompletedAt = &now
	if t.StartedAt != nil {
		t.ActualTime = now.Sub(*t.StartedAt)
	}
	t.UpdatedAt = now
	return nil
}

// Block puts a pending or running task on hold.
func (t *Task) Block() error {
	if t.Status.Terminal() || t.Status == TaskBlocked {
		return fmt.Errorf("%w: cannot block task %s in status %q", ErrInvalidTransition, t.ID, t.Status)
	}
	t.Status = TaskBlocked
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// Unblock returns a blocked task to pending.
func (t *Task) Unblock() error {
	if t.Status != TaskBlocked {
		return fmt.Errorf("%w: cannot unblock task %s in status %q", ErrInvalidTransition, t.ID, t.Status)
	}
	t.Status = TaskPending
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// Cancel terminates the task from any state. Cancelling an already cancelled
// task is a no-op.
func (t *Task) Cancel() error {
	if t.Status == TaskCancelled {
		return nil
	}
	now := time.Now().UTC()
	t.Status = TaskCancelled
	t.CompletedAt = &now
	t.UpdatedAt = now
	return nil
}

// RequiredDependencyIDs returns the ids of all required dependencies.
func (t *Task) RequiredDependencyIDs() []string {
	var ids []string
	for _, d := range t.Dependencies {
		if d.Required {
			ids = append(ids, d.TaskID)
		}
	}
	return ids
}

// DependencyIDs returns the ids of all dependencies, required or not.
func (t *Task) DependencyIDs() []string {
	ids := make([]string, 0, len(t.Dependencies))
	for _, d := range t.Dependencies {
		ids = append(ids, d.TaskID)
	}
	return ids
}

// FormatDuration renders a duration at its coarsest sensible unit, matching
// how task timings are surfaced to users ("2h", "5m", "42s").
func FormatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	case d >= time.Minute:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
}
