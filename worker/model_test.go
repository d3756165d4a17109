package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/missionmesh/core"
	"github.com/hupe1980/missionmesh/model"
	"github.com/hupe1980/missionmesh/tool"
)

// turnModel replays scripted responses, one per Generate call, and records
// the requests it saw.
type turnModel struct {
	turns    []model.Response
	requests []model.Request
}

func (m *turnModel) Info() model.Info {
	return model.Info{Name: "turn", Provider: "mock", SupportsTools: true}
}

func (m *turnModel) Generate(_ context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	respCh := make(chan model.Response, 1)
	errCh := make(chan error, 1)

	m.requests = append(m.requests, req)
	if len(m.turns) == 0 {
		errCh <- errors.New("no scripted turns left")
	} else {
		respCh <- m.turns[0]
		m.turns = m.turns[1:]
	}
	close(respCh)
	close(errCh)
	return respCh, errCh
}

func textTurn(text string) model.Response {
	return model.Response{
		Message:      model.Message{Role: "assistant", Text: text},
		FinishReason: "stop",
		Usage:        &core.UsageMetadata{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
}

func toolTurn(name string, args string) model.Response {
	return model.Response{
		Message: model.Message{
			Role:      "assistant",
			ToolCalls: []model.ToolCall{{ID: "call-1", Name: name, Arguments: json.RawMessage(args)}},
		},
		FinishReason: "tool_calls",
		Usage:        &core.UsageMetadata{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
}

func lookupTool(calls *int) tool.Tool {
	return tool.NewFunctionTool(
		"lookup",
		"Looks up a value",
		map[string]any{
			"type":       "object",
			"properties": map[string]any{"key": map[string]any{"type": "string"}},
			"required":   []string{"key"},
		},
		func(_ context.Context, args map[string]any) (any, error) {
			*calls++
			return "value for " + args["key"].(string), nil
		},
	)
}

func TestModelWorker_PlainAnswer(t *testing.T) {
	m := &turnModel{turns: []model.Response{textTurn("done")}}

	w := NewModelWorker("researcher", m, func(o *ModelWorkerOptions) {
		o.Description = "finds things"
	})

	res, err := w.Invoke(context.Background(), core.WorkRequest{TaskID: "t1", Prompt: "find it"})
	require.NoError(t, err)
	assert.Equal(t, "done", res.Text)
	assert.Empty(t, res.ToolCalls)
	assert.Equal(t, 15, res.Usage.TotalTokens)
}

func TestModelWorker_ToolLoop(t *testing.T) {
	calls := 0
	registry := tool.NewRegistry(lookupTool(&calls))

	m := &turnModel{turns: []model.Response{
		toolTurn("lookup", `{"key": "battery"}`),
		textTurn("battery holds charge"),
	}}

	w := NewModelWorker("researcher", m, func(o *ModelWorkerOptions) {
		o.Tools = registry
	})

	res, err := w.Invoke(context.Background(), core.WorkRequest{TaskID: "t1", Prompt: "explain batteries"})
	require.NoError(t, err)

	assert.Equal(t, "battery holds charge", res.Text)
	assert.Equal(t, 1, calls)
	require.Len(t, res.ToolCalls, 1)
	assert.Equal(t, "lookup", res.ToolCalls[0].Name)
	assert.Equal(t, "value for battery", res.ToolCalls[0].Result)
	assert.Equal(t, 30, res.Usage.TotalTokens)

	// The second round carried the tool response back to the model.
	secondReq := m.requests[1]
	last := secondReq.Messages[len(secondReq.Messages)-1]
	assert.Equal(t, "tool", last.Role)
	require.Len(t, last.ToolResponses, 1)
	assert.Equal(t, "value for battery", last.ToolResponses[0].Result)
}

func TestModelWorker_RepairsDamagedToolArguments(t *testing.T) {
	calls := 0
	registry := tool.NewRegistry(lookupTool(&calls))

	m := &turnModel{turns: []model.Response{
		toolTurn("lookup", `{"key": "battery",}`),
		textTurn("ok"),
	}}

	w := NewModelWorker("researcher", m, func(o *ModelWorkerOptions) {
		o.Tools = registry
	})

	_, err := w.Invoke(context.Background(), core.WorkRequest{Prompt: "go"})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestModelWorker_UnknownToolReportsErrorToModel(t *testing.T) {
	registry := tool.NewRegistry()

	m := &turnModel{turns: []model.Response{
		toolTurn("missing", `{}`),
		textTurn("recovered without the tool"),
	}}

	w := NewModelWorker("researcher", m, func(o *ModelWorkerOptions) {
		o.Tools = registry
	})

	res, err := w.Invoke(context.Background(), core.WorkRequest{Prompt: "go"})
	require.NoError(t, err)
	assert.Equal(t, "recovered without the tool", res.Text)

	secondReq := m.requests[1]
	last := secondReq.Messages[len(secondReq.Messages)-1]
	require.Len(t, last.ToolResponses, 1)
	assert.Contains(t, last.ToolResponses[0].Error, "not found")
}

func TestModelWorker_ToolRoundLimit(t *testing.T) {
	calls := 0
	registry := tool.NewRegistry(lookupTool(&calls))

	var turns []model.Response
	for i := 0; i < 10; i++ {
		turns = append(turns, toolTurn("lookup", `{"key": "x"}`))
	}

	w := NewModelWorker("researcher", &turnModel{turns: turns}, func(o *ModelWorkerOptions) {
		o.Tools = registry
		o.MaxToolRounds = 2
	})

	_, err := w.Invoke(context.Background(), core.WorkRequest{Prompt: "go"})
	assert.ErrorContains(t, err, "tool round limit")
}

func TestModelWorker_InstructionTemplating(t *testing.T) {
	m := &turnModel{turns: []model.Response{textTurn("ok")}}

	w := NewModelWorker("translator", m, func(o *ModelWorkerOptions) {
		o.Instruction = NewInstructionFromText("Translate everything into {{language}}.")
	})

	_, err := w.Invoke(context.Background(), core.WorkRequest{
		Prompt:   "hello",
		Metadata: map[string]any{"language": "German"},
	})
	require.NoError(t, err)

	system := m.requests[0].Messages[0]
	assert.Equal(t, "Translate everything into German.", system.Text)
}

func TestModelWorker_DependencyContextReachesPrompt(t *testing.T) {
	m := &turnModel{turns: []model.Response{textTurn("ok")}}

	w := NewModelWorker("writer", m)

	_, err := w.Invoke(context.Background(), core.WorkRequest{
		Prompt:  "write the summary",
		Context: "### research\nbatteries store energy",
	})
	require.NoError(t, err)

	user := m.requests[0].Messages[1]
	assert.Contains(t, user.Text, "write the summary")
	assert.Contains(t, user.Text, "batteries store energy")
}

func TestFuncWorker(t *testing.T) {
	w := NewFuncWorker("echo", "echoes the prompt", func(_ context.Context, req core.WorkRequest) (*core.WorkResult, error) {
		return &core.WorkResult{Text: "echo: " + req.Prompt}, nil
	})

	assert.Equal(t, "echo", w.Info().ID)

	res, err := w.Invoke(context.Background(), core.WorkRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "echo: hi", res.Text)
}

func TestInstruction_Resolve(t *testing.T) {
	static := NewInstructionFromText("fixed")
	assert.True(t, static.IsStatic())

	text, err := static.Resolve(core.WorkRequest{})
	require.NoError(t, err)
	assert.Equal(t, "fixed", text)

	dynamic := NewInstructionFromFunc(func(req core.WorkRequest) (string, error) {
		return "task " + req.TaskID, nil
	})
	assert.False(t, dynamic.IsStatic())

	text, err = dynamic.Resolve(core.WorkRequest{TaskID: "t9"})
	require.NoError(t, err)
	assert.Equal(t, "task t9", text)
}
