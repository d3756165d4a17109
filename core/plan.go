package core

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Plan is an ordered collection of tasks pursuing one goal. It provides the
// dependency-aware queries the scheduler builds its frontier from. All reads
// and mutations go through its methods; the embedded lock makes concurrent
// reads safe while the single scheduling goroutine applies mutations.
type Plan struct {
	ID        string
	Goal      string
	CreatedAt time.Time
	UpdatedAt time.Time

	mu    sync.RWMutex
	tasks []*Task
	index map[string]*Task
}

// Progress summarizes a plan in one pass: exact counts per status plus a
// completion percentage (0 when the plan is empty).
type Progress struct {
	Total   int                `json:"total"`
	Counts  map[TaskStatus]int `json:"counts"`
	Percent float64            `json:"percent"`
}

// NewPlan creates an empty plan for the given goal.
func NewPlan(goal string) *Plan {
	now := time.Now().UTC()
	return &Plan{
		ID:        NewID(),
		Goal:      goal,
		CreatedAt: now,
		UpdatedAt: now,
		index:     map[string]*Task{},
	}
}

// AddTask appends a task to the plan. Task ids must be unique within a plan.
func (p *Plan) AddTask(t *Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.index[t.ID]; exists {
		return fmt.Errorf("task %s already in plan %s", t.ID, p.ID)
	}
	p.tasks = append(p.tasks, t)
	p.index[t.ID] = t
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// Task returns the task with the given id.
func (p *Plan) Task(id string) (*Task, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	t, ok := p.index[id]
	return t, ok
}

// Tasks returns a snapshot of the task list in insertion order.
func (p *Plan) Tasks() []*Task {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*Task, len(p.tasks))
	copy(out, p.tasks)
	return out
}

// Len returns the number of tasks in the plan.
func (p *Plan) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.tasks)
}

// completedSetLocked returns the ids of completed tasks. Caller holds a lock.
func (p *Plan) completedSetLocked() map[string]bool {
	done := make(map[string]bool, len(p.tasks))
	for _, t := range p.tasks {
		if t.Status == TaskCompleted {
			done[t.ID] = true
		}
	}
	return done
}

// actionableLocked reports whether t is pending with every required
// dependency completed. Optional dependencies never gate dispatch.
func actionableLocked(t *Task, completed map[string]bool) bool {
	if t.Status != TaskPending {
		return false
	}
	for _, d := range t.Dependencies {
		if d.Required && !completed[d.TaskID] {
			return false
		}
	}
	return true
}

// NextActionableTask returns the first actionable task in insertion order,
// or nil when none is ready.
func (p *Plan) NextActionableTask() *Task {
	p.mu.RLock()
	defer p.mu.RUnlock()
	completed := p.completedSetLocked()
	for _, t := range p.tasks {
		if actionableLocked(t, completed) {
			return t
		}
	}
	return nil
}

// ActionableTasks returns up to limit actionable tasks in insertion order.
// A limit <= 0 means no limit.
func (p *Plan) ActionableTasks(limit int) []*Task {
	p.mu.RLock()
	defer p.mu.RUnlock()
	completed := p.completedSetLocked()
	var out []*Task
	for _, t := range p.tasks {
		if actionableLocked(t, completed) {
			out = append(out, t)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out
}

// TasksByStatus returns all tasks currently in the given status.
func (p *Plan) TasksByStatus(status TaskStatus) []*Task {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []*Task
	for _, t := range p.tasks {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out
}

// TasksByAssignee returns all tasks routed to the given worker agent id.
func (p *Plan) TasksByAssignee(assignee string) []*Task {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []*Task
	for _, t := range p.tasks {
		if t.Assignee == assignee {
			out = append(out, t)
		}
	}
	return out
}

// Progress computes per-status counts and the completion percentage.
func (p *Plan) Progress() Progress {
	p.mu.RLock()
	defer p.mu.RUnlock()
	prog := Progress{Total: len(p.tasks), Counts: map[TaskStatus]int{}}
	for _, t := range p.tasks {
		prog.Counts[t.Status]++
	}
	if prog.Total > 0 {
		prog.Percent = float64(prog.Counts[TaskCompleted]) / float64(prog.Total) * 100
	}
	return prog
}

// IsComplete reports whether the plan has at least one task and every task is
// completed or cancelled. Failed tasks never count as done, so a plan with a
// failure can only complete if the failure is superseded by cancellation.
func (p *Plan) IsComplete() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.tasks) == 0 {
		return false
	}
	for _, t := range p.tasks {
		if t.Status != TaskCompleted && t.Status != TaskCancelled {
			return false
		}
	}
	return true
}

// HasFailedTasks reports whether any task has failed.
func (p *Plan) HasFailedTasks() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, t := range p.tasks {
		if t.Status == TaskFailed {
			return true
		}
	}
	return false
}

// HasBlockedTasks reports whether any task is explicitly blocked.
func (p *Plan) HasBlockedTasks() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, t := range p.tasks {
		if t.Status == TaskBlocked {
			return true
		}
	}
	return false
}

// IsBlocked reports the deadlock condition the scheduler must stop on:
// pending tasks remain, nothing is running, and no pending task is
// actionable. This is derived state; no persisted status exists for it.
func (p *Plan) IsBlocked() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	completed := p.completedSetLocked()
	pending := 0
	for _, t := range p.tasks {
		switch t.Status {
		case TaskRunning:
			return false
		case TaskPending:
			pending++
			if actionableLocked(t, completed) {
				return false
			}
		}
	}
	return pending > 0
}

// StartTask transitions the task with the given id to running through the
// plan so UpdatedAt stays consistent.
func (p *Plan) StartTask(id string) error { return p.transition(id, (*Task).Start) }

// CompleteTask completes the task with the given id, recording the result.
func (p *Plan) CompleteTask(id, result string) error {
	return p.transition(id, func(t *Task) error { return t.Complete(result) })
}

// FailTask fails the task with the given id, recording the reason.
func (p *Plan) FailTask(id, reason string) error {
	return p.transition(id, func(t *Task) error { return t.Fail(reason) })
}

// CancelTask cancels the task with the given id.
func (p *Plan) CancelTask(id string) error { return p.transition(id, (*Task).Cancel) }

func (p *Plan) transition(id string, fn func(*Task) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.index[id]
	if !ok {
		return fmt.Errorf("task %s not found in plan %s", id, p.ID)
	}
	if err := fn(t); err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// planJSON is the serialized shape of a plan.
type planJSON struct {
	ID        string    `json:"id"`
	Goal      string    `json:"goal"`
	Tasks     []*Task   `json:"tasks"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MarshalJSON implements json.Marshaler.
func (p *Plan) MarshalJSON() ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return json.Marshal(planJSON{
		ID:        p.ID,
		Goal:      p.Goal,
		Tasks:     p.tasks,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	})
}

// UnmarshalJSON implements json.Unmarshaler. The round trip preserves goal,
// task set and progress.
func (p *Plan) UnmarshalJSON(data []byte) error {
	var pj planJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ID = pj.ID
	p.Goal = pj.Goal
	p.CreatedAt = pj.CreatedAt
	p.UpdatedAt = pj.UpdatedAt
	p.tasks = pj.Tasks
	p.index = make(map[string]*Task, len(pj.Tasks))
	for _, t := range pj.Tasks {
		p.index[t.ID] = t
	}
	return nil
}
