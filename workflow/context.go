package workflow

import (
	"sync"
	"time"

	"github.com/hupe1980/missionmesh/core"
)

// ExecutionStatus is the lifecycle state of one graph run.
type ExecutionStatus string

const (
	// StatusPending marks a context created but not yet walking.
	StatusPending ExecutionStatus = "pending"
	// StatusRunning marks an in-flight walk.
	StatusRunning ExecutionStatus = "running"
	// StatusPaused marks a walk halted at a human_input node.
	StatusPaused ExecutionStatus = "paused"
	// StatusCompleted marks a successful run (terminal).
	StatusCompleted ExecutionStatus = "completed"
	// StatusFailed marks a run stopped by a node error (terminal).
	StatusFailed ExecutionStatus = "failed"
	// StatusCancelled marks a run abandoned via context cancellation
	// (terminal).
	StatusCancelled ExecutionStatus = "cancelled"
)

// Terminal reports whether the status is an end state.
func (s ExecutionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// NodeResult records one executed node in a run's history.
type NodeResult struct {
	NodeID    string        `json:"node_id"`
	Type      NodeType      `json:"type"`
	Output    any           `json:"output,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// ExecutionContext is one live run of a graph: its variable scratchpad,
// node history, cursor and status. The engine's walk goroutine is the only
// writer while the run is active; reads are safe at any time.
type ExecutionContext struct {
	ID        string
	GraphID   string
	CreatedAt time.Time

	mu            sync.RWMutex
	status        ExecutionStatus
	variables     map[string]any
	history       []NodeResult
	currentNodeID string
	output        map[string]any
	runErr        error
	updatedAt     time.Time
}

// newExecutionContext seeds a pending context from graph defaults plus run
// input, input winning on key collisions.
func newExecutionContext(graph *Graph, input map[string]any) *ExecutionContext {
	vars := map[string]any{}
	for k, v := range graph.Defaults {
		vars[k] = v
	}
	for k, v := range input {
		vars[k] = v
	}

	now := time.Now().UTC()
	return &ExecutionContext{
		ID:        core.NewID(),
		GraphID:   graph.ID,
		CreatedAt: now,
		status:    StatusPending,
		variables: vars,
		updatedAt: now,
	}
}

// Status returns the current lifecycle state.
func (c *ExecutionContext) Status() ExecutionStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// CurrentNodeID returns the id of the node the walk is at (for a paused
// context, the human_input node itself).
func (c *ExecutionContext) CurrentNodeID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentNodeID
}

// Var reads one variable.
func (c *ExecutionContext) Var(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.variables[key]
	return v, ok
}

// Variables returns a copy of the scratchpad.
func (c *ExecutionContext) Variables() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(c.variables))
	for k, v := range c.variables {
		out[k] = v
	}
	return out
}

// History returns a copy of the node results so far.
func (c *ExecutionContext) History() []NodeResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]NodeResult, len(c.history))
	copy(out, c.history)
	return out
}

// Output returns the final output of a completed run, nil otherwise.
func (c *ExecutionContext) Output() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.output
}

// Err returns the error that failed the run, if any.
func (c *ExecutionContext) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.runErr
}

func (c *ExecutionContext) setVar(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.variables[key] = value
	c.updatedAt = time.Now().UTC()
}

func (c *ExecutionContext) mergeVars(vars map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range vars {
		c.variables[k] = v
	}
	c.updatedAt = time.Now().UTC()
}

func (c *ExecutionContext) setStatus(status ExecutionStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = status
	c.updatedAt = time.Now().UTC()
}

func (c *ExecutionContext) setCurrent(nodeID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentNodeID = nodeID
	c.updatedAt = time.Now().UTC()
}

func (c *ExecutionContext) record(result NodeResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, result)
	c.updatedAt = time.Now().UTC()
}

func (c *ExecutionContext) complete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = StatusCompleted
	out := make(map[string]any, len(c.variables))
	for k, v := range c.variables {
		out[k] = v
	}
	c.output = out
	c.updatedAt = time.Now().UTC()
}

func (c *ExecutionContext) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = StatusFailed
	c.runErr = err
	c.updatedAt = time.Now().UTC()
}

func (c *ExecutionContext) cancel(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = StatusCancelled
	c.runErr = err
	c.updatedAt = time.Now().UTC()
}
