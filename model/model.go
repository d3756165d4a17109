package model

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hupe1980/missionmesh/core"
)

// Message is one turn of normalized conversational input or output. Role is
// one of "system", "user", "assistant" or "tool". A tool message answers the
// assistant tool call with the matching ID.
type Message struct {
	Role          string         `json:"role"`
	Text          string         `json:"text,omitempty"`
	ToolCalls     []ToolCall     `json:"tool_calls,omitempty"`
	ToolResponses []ToolResponse `json:"tool_responses,omitempty"`
}

// ToolCall represents a function call request surfaced by a model provider.
// Unified across vendors so downstream logic does not need per-provider
// branching.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ToolResponse carries the outcome of a previously requested tool call.
type ToolResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Result string `json:"result"`
	Error  string `json:"error,omitempty"`
}

// ToolDefinition declaratively exposes a callable function to the model.
// Parameters is a JSON Schema object (minimal subset).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request captures the normalized model input.
type Request struct {
	Messages []Message        `json:"messages"`
	Tools    []ToolDefinition `json:"tools,omitempty"`
	Stream   bool             `json:"stream,omitempty"`
}

// Response is a (partial or final) chunk emitted by a model. Partial chunks
// carry incremental text or tool-call deltas; the final chunk carries the
// assembled message, finish reason and usage when the provider reports it.
type Response struct {
	ID           string              `json:"id,omitempty"`
	Partial      bool                `json:"partial"`
	Message      Message             `json:"message"`
	FinishReason string              `json:"finish_reason,omitempty"`
	Usage        *core.UsageMetadata `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required to drive generation. Generate
// returns a response channel and an error channel; both are closed when the
// call finishes. Implementations must respect ctx cancellation.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// LastUserText returns the text of the most recent user message, or "".
func LastUserText(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Text
		}
	}
	return ""
}

// MockModel is a lightweight in-memory Model useful for tests and examples.
// Responses are keyed on the last user message; unknown prompts get a
// generated echo reply.
type MockModel struct {
	info      Info
	responses map[string]string
	err       error
}

// NewMockModel constructs a MockModel with basic tool support enabled.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: "mock", SupportsTools: true},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for a user prompt.
func (m *MockModel) AddResponse(prompt, response string) { m.responses[prompt] = response }

// FailWith makes every subsequent Generate call report err.
func (m *MockModel) FailWith(err error) { m.err = err }

// Generate implements Model; emits optional streaming rune chunks followed
// by the final response.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)

		if m.err != nil {
			errCh <- m.err
			return
		}
		if len(req.Messages) == 0 {
			errCh <- fmt.Errorf("no messages provided")
			return
		}

		prompt := LastUserText(req.Messages)
		full, ok := m.responses[prompt]
		if !ok {
			full = fmt.Sprintf("Mock response to: %s", prompt)
		}

		if req.Stream {
			for _, r := range full {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{Partial: true, Message: Message{Role: "assistant", Text: string(r)}}:
				}
			}
		}

		respCh <- Response{
			Partial:      false,
			Message:      Message{Role: "assistant", Text: full},
			FinishReason: "stop",
			Usage: &core.UsageMetadata{
				PromptTokens:     len(prompt) / 4,
				CompletionTokens: len(full) / 4,
				TotalTokens:      (len(prompt) + len(full)) / 4,
			},
		}
	}()

	return respCh, errCh
}

// Info implements the Model interface.
func (m *MockModel) Info() Info { return m.info }

// GenerateSync drains a Generate call and returns the final response. It is
// a convenience for the single-shot request/response mode used by analysis,
// synthesis and task execution.
func GenerateSync(ctx context.Context, m Model, req Request) (*Response, error) {
	req.Stream = false
	respCh, errCh := m.Generate(ctx, req)

	var final *Response
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case resp, ok := <-respCh:
			if !ok {
				if final == nil {
					if err := <-errCh; err != nil {
						return nil, err
					}
					return nil, fmt.Errorf("model returned no response")
				}
				return final, nil
			}
			if !resp.Partial {
				r := resp
				final = &r
			}
		case err := <-errCh:
			if err != nil {
				return nil, err
			}
		}
	}
}
