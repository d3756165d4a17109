package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/missionmesh/core"
	"github.com/hupe1980/missionmesh/tool"
)

type fakeWorker struct {
	info core.WorkerInfo
	fn   func(ctx context.Context, req core.WorkRequest) (*core.WorkResult, error)
}

func (w *fakeWorker) Info() core.WorkerInfo { return w.info }

func (w *fakeWorker) Invoke(ctx context.Context, req core.WorkRequest) (*core.WorkResult, error) {
	return w.fn(ctx, req)
}

func upperWorker(name string) *fakeWorker {
	return &fakeWorker{
		info: core.WorkerInfo{ID: core.NewID(), Name: name},
		fn: func(_ context.Context, req core.WorkRequest) (*core.WorkResult, error) {
			return &core.WorkResult{Text: "answer to: " + req.Prompt}, nil
		},
	}
}

func mustGraph(t *testing.T, start string, nodes []Node, optFns ...func(o *GraphOptions)) *Graph {
	t.Helper()
	g, err := NewGraph(start, nodes, optFns...)
	require.NoError(t, err)
	return g
}

func TestEngine_AgentNodeSubstitutesAndStoresOutput(t *testing.T) {
	g := mustGraph(t, "start", []Node{
		{ID: "start", Config: StartConfig{Next: "research"}},
		{ID: "research", Config: AgentConfig{Agent: "researcher", Prompt: "Research {{topic}}", OutputKey: "findings", Next: "end"}},
		{ID: "end", Config: EndConfig{}},
	})

	engine := NewEngine(g)
	engine.RegisterWorker(upperWorker("researcher"))

	ec, err := engine.Execute(context.Background(), map[string]any{"topic": "solid state batteries"})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, ec.Status())
	assert.Equal(t, "answer to: Research solid state batteries", ec.Output()["findings"])
}

func TestEngine_MissingNextCompletesWithVariables(t *testing.T) {
	g := mustGraph(t, "start", []Node{
		{ID: "start", Config: StartConfig{Next: "work"}},
		{ID: "work", Config: AgentConfig{Agent: "w", Prompt: "go", Next: ""}},
	}, func(o *GraphOptions) {
		o.Defaults = map[string]any{"seed": 1}
	})

	engine := NewEngine(g)
	engine.RegisterWorker(upperWorker("w"))

	ec, err := engine.Execute(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, ec.Status())
	assert.Equal(t, 1, ec.Output()["seed"])
	assert.Contains(t, ec.Output(), "work_output")
}

func TestEngine_ToolNodeResolvesNestedArgs(t *testing.T) {
	var gotArgs map[string]any
	echo := tool.NewFunctionTool("echo", "echoes args", map[string]any{"type": "object"},
		func(_ context.Context, args map[string]any) (any, error) {
			gotArgs = args
			return "echoed", nil
		})

	g := mustGraph(t, "start", []Node{
		{ID: "start", Config: StartConfig{Next: "call"}},
		{ID: "call", Config: ToolConfig{
			Tool: "echo",
			Args: map[string]any{
				"query": "about {{topic}}",
				"filters": map[string]any{
					"tags": []any{"{{tag}}", "static"},
				},
			},
			OutputKey: "echoed",
		}},
	})

	engine := NewEngine(g, func(o *Options) {
		o.Tools = tool.NewRegistry(echo)
	})

	ec, err := engine.Execute(context.Background(), map[string]any{"topic": "go", "tag": "lang"})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, ec.Status())
	assert.Equal(t, "about go", gotArgs["query"])
	filters := gotArgs["filters"].(map[string]any)
	assert.Equal(t, []any{"lang", "static"}, filters["tags"])
	assert.Equal(t, "echoed", ec.Output()["echoed"])
}

func TestEngine_ConditionBranches(t *testing.T) {
	build := func() *Graph {
		return mustGraph(t, "start", []Node{
			{ID: "start", Config: StartConfig{Next: "check"}},
			{ID: "check", Config: ConditionConfig{
				Rule: Rule{Var: "score", Op: OpGreaterThan, Value: 5},
				Yes:  "pass",
				No:   "fail",
			}},
			{ID: "pass", Config: AgentConfig{Agent: "w", Prompt: "passed", OutputKey: "verdict"}},
			{ID: "fail", Config: AgentConfig{Agent: "w", Prompt: "failed", OutputKey: "verdict"}},
		})
	}

	engine := NewEngine(build())
	engine.RegisterWorker(upperWorker("w"))

	ec, err := engine.Execute(context.Background(), map[string]any{"score": 7})
	require.NoError(t, err)
	assert.Equal(t, "answer to: passed", ec.Output()["verdict"])

	ec, err = engine.Execute(context.Background(), map[string]any{"score": 3})
	require.NoError(t, err)
	assert.Equal(t, "answer to: failed", ec.Output()["verdict"])
}

func TestEngine_ConditionEvaluationErrorTakesNoEdge(t *testing.T) {
	g := mustGraph(t, "start", []Node{
		{ID: "start", Config: StartConfig{Next: "check"}},
		{ID: "check", Config: ConditionConfig{
			// score is a string, greater_than needs numbers.
			Rule: Rule{Var: "score", Op: OpGreaterThan, Value: 5},
			Yes:  "pass",
			No:   "fail",
		}},
		{ID: "pass", Config: AgentConfig{Agent: "w", Prompt: "passed", OutputKey: "verdict"}},
		{ID: "fail", Config: AgentConfig{Agent: "w", Prompt: "failed", OutputKey: "verdict"}},
	})

	engine := NewEngine(g)
	engine.RegisterWorker(upperWorker("w"))

	ec, err := engine.Execute(context.Background(), map[string]any{"score": "high"})
	require.NoError(t, err)
	assert.Equal(t, "answer to: failed", ec.Output()["verdict"])
}

func TestEngine_HumanInputPausesAndResumes(t *testing.T) {
	g := mustGraph(t, "start", []Node{
		{ID: "start", Config: StartConfig{Next: "draft"}},
		{ID: "draft", Config: AgentConfig{Agent: "w", Prompt: "draft {{topic}}", OutputKey: "draft", Next: "review"}},
		{ID: "review", Config: HumanInputConfig{Prompt: "Approve the draft?", Next: "final"}},
		{ID: "final", Config: AgentConfig{Agent: "w", Prompt: "finalize with {{approval}}", OutputKey: "final"}},
	})

	var notifications []NotificationType
	engine := NewEngine(g, func(o *Options) {
		o.OnNotification = func(n Notification) {
			notifications = append(notifications, n.Type)
		}
	})
	engine.RegisterWorker(upperWorker("w"))

	ec, err := engine.Execute(context.Background(), map[string]any{"topic": "x"})
	require.NoError(t, err)
	assert.Equal(t, StatusPaused, ec.Status())
	assert.Equal(t, "review", ec.CurrentNodeID())
	assert.Contains(t, notifications, NotifyExecutionPaused)

	// The paused context survives in the engine.
	_, alive := engine.Context(ec.ID)
	assert.True(t, alive)

	resumed, err := engine.Resume(context.Background(), ec.ID, map[string]any{"approval": "yes"})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, resumed.Status())
	assert.Equal(t, "answer to: finalize with yes", resumed.Output()["final"])
	assert.Equal(t, NotifyExecutionComplete, notifications[len(notifications)-1])

	// Completed contexts are dropped.
	_, alive = engine.Context(ec.ID)
	assert.False(t, alive)
}

func TestEngine_ResumeRejectsNonPausedContext(t *testing.T) {
	g := mustGraph(t, "start", []Node{
		{ID: "start", Config: StartConfig{Next: ""}},
	})
	engine := NewEngine(g)

	_, err := engine.Resume(context.Background(), "no-such-context", nil)
	assert.ErrorIs(t, err, ErrContextNotFound)
}

func TestEngine_ResumeRejectsRunningContext(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	gated := &fakeWorker{
		info: core.WorkerInfo{ID: "g", Name: "gated"},
		fn: func(ctx context.Context, _ core.WorkRequest) (*core.WorkResult, error) {
			close(entered)
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return &core.WorkResult{Text: "done"}, nil
		},
	}

	g := mustGraph(t, "start", []Node{
		{ID: "start", Config: StartConfig{Next: "review"}},
		{ID: "review", Config: HumanInputConfig{Prompt: "Continue?", Next: "work"}},
		{ID: "work", Config: AgentConfig{Agent: "gated", Prompt: "go", Next: ""}},
	})

	engine := NewEngine(g)
	engine.RegisterWorker(gated)

	ec, err := engine.Execute(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, StatusPaused, ec.Status())

	firstDone := make(chan error, 1)
	go func() {
		_, err := engine.Resume(context.Background(), ec.ID, nil)
		firstDone <- err
	}()

	// The first resume is walking again and parked inside the worker.
	<-entered
	_, err = engine.Resume(context.Background(), ec.ID, nil)
	assert.ErrorIs(t, err, ErrNotPaused)

	close(release)
	require.NoError(t, <-firstDone)
	assert.Equal(t, StatusCompleted, ec.Status())
}

func TestEngine_NodeErrorFailsRunWithoutRetry(t *testing.T) {
	calls := 0
	broken := &fakeWorker{
		info: core.WorkerInfo{ID: "b", Name: "broken"},
		fn: func(context.Context, core.WorkRequest) (*core.WorkResult, error) {
			calls++
			return nil, errors.New("model unavailable")
		},
	}

	g := mustGraph(t, "start", []Node{
		{ID: "start", Config: StartConfig{Next: "work"}},
		{ID: "work", Config: AgentConfig{Agent: "broken", Prompt: "go", Next: ""}},
	})

	var notifications []NotificationType
	engine := NewEngine(g, func(o *Options) {
		o.OnNotification = func(n Notification) { notifications = append(notifications, n.Type) }
	})
	engine.RegisterWorker(broken)

	ec, err := engine.Execute(context.Background(), nil)

	require.Error(t, err)
	assert.Equal(t, StatusFailed, ec.Status())
	assert.ErrorContains(t, ec.Err(), "model unavailable")
	assert.Equal(t, 1, calls)
	assert.Equal(t, NotifyExecutionFailed, notifications[len(notifications)-1])
}

func TestEngine_ParallelWaitAllMergesAllBranches(t *testing.T) {
	g := mustGraph(t, "start", []Node{
		{ID: "start", Config: StartConfig{Next: "fanout"}},
		{ID: "fanout", Config: ParallelConfig{
			Branches: map[string]string{"a": "left", "b": "right"},
			Mode:     WaitAll,
			Next:     "",
		}},
		{ID: "left", Config: AgentConfig{Agent: "w", Prompt: "left work", OutputKey: "left_out"}},
		{ID: "right", Config: AgentConfig{Agent: "w", Prompt: "right work", OutputKey: "right_out"}},
	})

	engine := NewEngine(g)
	engine.RegisterWorker(upperWorker("w"))

	ec, err := engine.Execute(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, ec.Status())
	assert.Equal(t, "answer to: left work", ec.Output()["left_out"])
	assert.Equal(t, "answer to: right work", ec.Output()["right_out"])
}

func TestEngine_ParallelRaceTakesFirstBranch(t *testing.T) {
	slow := make(chan struct{})
	defer close(slow)

	worker := &fakeWorker{
		info: core.WorkerInfo{ID: "w", Name: "w"},
		fn: func(ctx context.Context, req core.WorkRequest) (*core.WorkResult, error) {
			if req.Prompt == "slow work" {
				select {
				case <-slow:
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
			return &core.WorkResult{Text: "done: " + req.Prompt}, nil
		},
	}

	g := mustGraph(t, "start", []Node{
		{ID: "start", Config: StartConfig{Next: "race"}},
		{ID: "race", Config: ParallelConfig{
			Branches: map[string]string{"fast": "quick", "slow": "sluggish"},
			Mode:     Race,
		}},
		{ID: "quick", Config: AgentConfig{Agent: "w", Prompt: "fast work", OutputKey: "result"}},
		{ID: "sluggish", Config: AgentConfig{Agent: "w", Prompt: "slow work", OutputKey: "slow_result"}},
	})

	engine := NewEngine(g)
	engine.RegisterWorker(worker)

	ec, err := engine.Execute(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, ec.Status())
	assert.Equal(t, "done: fast work", ec.Output()["result"])
	assert.NotContains(t, ec.Output(), "slow_result")
}

func TestEngine_NotificationOrder(t *testing.T) {
	g := mustGraph(t, "start", []Node{
		{ID: "start", Config: StartConfig{Next: "work"}},
		{ID: "work", Config: AgentConfig{Agent: "w", Prompt: "go", Next: "end"}},
		{ID: "end", Config: EndConfig{}},
	})

	var got []string
	engine := NewEngine(g, func(o *Options) {
		o.OnNotification = func(n Notification) {
			got = append(got, string(n.Type)+":"+n.NodeID)
		}
	})
	engine.RegisterWorker(upperWorker("w"))

	_, err := engine.Execute(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"nodeStart:start", "nodeComplete:start",
		"nodeStart:work", "nodeComplete:work",
		"nodeStart:end", "nodeComplete:end",
		"executionComplete:",
	}, got)
}

func TestGraph_ValidationErrors(t *testing.T) {
	_, err := NewGraph("missing", []Node{{ID: "a", Config: EndConfig{}}})
	assert.ErrorContains(t, err, "start node")

	_, err = NewGraph("a", []Node{
		{ID: "a", Config: StartConfig{Next: "ghost"}},
	})
	assert.ErrorContains(t, err, "unknown node")

	_, err = NewGraph("a", []Node{
		{ID: "a", Config: ParallelConfig{Mode: WaitAll}},
	})
	assert.ErrorContains(t, err, "no branches")
}
