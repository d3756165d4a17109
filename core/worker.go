package core

import "context"

// WorkerInfo identifies a worker agent in the catalog presented to the
// orchestrator's analysis step.
type WorkerInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UsageMetadata carries token accounting returned by a worker invocation.
type UsageMetadata struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// WorkRequest is the input contract for a single worker invocation: the task
// description, the concatenated outputs of completed dependencies, and
// task-scoped metadata.
type WorkRequest struct {
	TaskID   string
	Prompt   string
	Context  string
	Metadata map[string]any
}

// WorkResult is what a worker hands back to the scheduler. Workers never
// mutate plan or task state directly; the scheduler applies results.
type WorkResult struct {
	Text      string
	ToolCalls []ToolCallTrace
	Usage     *UsageMetadata
}

// WorkChunk is one increment of a streaming worker invocation. Exactly one
// of Text or ToolCall is set; Final marks the last chunk of the stream.
type WorkChunk struct {
	Text     string
	ToolCall *ToolCallTrace
	Final    bool
}

// Worker is the outbound capability boundary the orchestration core consumes.
// An invocation is the only operation in the engine that suspends; the engine
// enforces no timeout of its own, so callers needing deadlines must wrap ctx.
// Cancellation is cooperative: cancelling ctx abandons the result but cannot
// preempt an external call already in flight.
type Worker interface {
	// Info returns the identifying details advertised to the orchestrator.
	Info() WorkerInfo

	// Invoke executes the request and returns the final result.
	Invoke(ctx context.Context, req WorkRequest) (*WorkResult, error)
}

// StreamingWorker is implemented by workers that can yield incremental
// chunks, used when live delegation progress must reach a UI.
type StreamingWorker interface {
	Worker

	// InvokeStream yields chunks until the channel closes. A terminal error,
	// if any, arrives on the error channel after the chunk channel closes.
	InvokeStream(ctx context.Context, req WorkRequest) (<-chan WorkChunk, <-chan error)
}
