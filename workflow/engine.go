package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/missionmesh/core"
	"github.com/hupe1980/missionmesh/logging"
	"github.com/hupe1980/missionmesh/tool"
)

// ErrContextNotFound is returned when a resume targets an unknown context id.
var ErrContextNotFound = errors.New("execution context not found")

// ErrNotPaused is returned when Resume is called on a context that is not
// waiting for input.
var ErrNotPaused = errors.New("execution context is not paused")

// NotificationType enumerates the engine's progress notifications.
type NotificationType string

const (
	// NotifyNodeStart fires before a node executes.
	NotifyNodeStart NotificationType = "nodeStart"
	// NotifyNodeComplete fires after a node executed successfully.
	NotifyNodeComplete NotificationType = "nodeComplete"
	// NotifyExecutionPaused fires when a human_input node halts the walk.
	NotifyExecutionPaused NotificationType = "executionPaused"
	// NotifyExecutionComplete fires when a run finishes successfully.
	NotifyExecutionComplete NotificationType = "executionComplete"
	// NotifyExecutionFailed fires when a node error ends the run.
	NotifyExecutionFailed NotificationType = "executionFailed"
	// NotifyExecutionCancelled fires when context cancellation ends the run.
	NotifyExecutionCancelled NotificationType = "executionCancelled"
)

// Notification is one progress signal of a run. The per-run sequence is
// append-only and finite.
type Notification struct {
	Type      NotificationType
	ContextID string
	NodeID    string
	Timestamp time.Time
}

// Options configures an Engine.
type Options struct {
	// Tools resolves tool nodes. Optional when the graph has none.
	Tools *tool.Registry
	// Logger defaults to NoOpLogger.
	Logger logging.Logger
	// OnNotification receives progress signals synchronously. Optional.
	OnNotification func(Notification)
}

// Engine executes one graph definition. It holds the paused contexts between
// Execute and Resume; terminal contexts are dropped when their run returns.
// Safe for concurrent runs.
type Engine struct {
	graph   *Graph
	tools   *tool.Registry
	logger  logging.Logger
	onNotif func(Notification)

	workersMu sync.RWMutex
	workers   map[string]core.Worker

	mu       sync.Mutex
	contexts map[string]*ExecutionContext
}

// NewEngine creates an engine for the given graph.
func NewEngine(graph *Graph, optFns ...func(o *Options)) *Engine {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Engine{
		graph:    graph,
		tools:    opts.Tools,
		logger:   opts.Logger,
		onNotif:  opts.OnNotification,
		workers:  map[string]core.Worker{},
		contexts: map[string]*ExecutionContext{},
	}
}

// RegisterWorker makes a worker resolvable by id and, case-insensitively, by
// name for agent nodes.
func (e *Engine) RegisterWorker(w core.Worker) {
	info := w.Info()
	e.workersMu.Lock()
	defer e.workersMu.Unlock()
	e.workers[info.ID] = w
	e.workers[strings.ToLower(info.Name)] = w
}

// Context returns a live (paused or running) execution context by id.
func (e *Engine) Context(id string) (*ExecutionContext, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ec, ok := e.contexts[id]
	return ec, ok
}

// Execute starts a new run with the given input merged over the graph
// defaults. It returns when the run completes, fails, pauses, or is
// cancelled; the returned context carries the status. The error is non-nil
// only for failed or cancelled runs.
func (e *Engine) Execute(ctx context.Context, input map[string]any) (*ExecutionContext, error) {
	ec := newExecutionContext(e.graph, input)

	e.mu.Lock()
	e.contexts[ec.ID] = ec
	e.mu.Unlock()

	ec.setStatus(StatusRunning)
	e.logger.Debug("workflow run started", "graph_id", e.graph.ID, "context_id", ec.ID)

	err := e.walk(ctx, ec, e.graph.Start)
	e.dropIfTerminal(ec)
	return ec, err
}

// Resume continues a paused run: the caller's input is merged into the
// variables and the walk proceeds from the paused node's next pointer.
func (e *Engine) Resume(ctx context.Context, contextID string, input map[string]any) (*ExecutionContext, error) {
	e.mu.Lock()
	ec, ok := e.contexts[contextID]
	e.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrContextNotFound, contextID)
	}
	if ec.Status() != StatusPaused {
		return ec, fmt.Errorf("%w: context %s is %s", ErrNotPaused, contextID, ec.Status())
	}

	node, ok := e.graph.Node(ec.CurrentNodeID())
	if !ok {
		return ec, fmt.Errorf("paused node %q no longer in graph", ec.CurrentNodeID())
	}
	cfg, ok := node.Config.(HumanInputConfig)
	if !ok {
		return ec, fmt.Errorf("paused node %q is not a human_input node", node.ID)
	}

	ec.mergeVars(input)
	ec.setStatus(StatusRunning)
	e.logger.Debug("workflow run resumed", "context_id", ec.ID, "node_id", node.ID)

	err := e.walk(ctx, ec, cfg.Next)
	e.dropIfTerminal(ec)
	return ec, err
}

func (e *Engine) dropIfTerminal(ec *ExecutionContext) {
	if !ec.Status().Terminal() {
		return
	}
	e.mu.Lock()
	delete(e.contexts, ec.ID)
	e.mu.Unlock()
}

func (e *Engine) notify(t NotificationType, contextID, nodeID string) {
	if e.onNotif == nil {
		return
	}
	e.onNotif(Notification{Type: t, ContextID: contextID, NodeID: nodeID, Timestamp: time.Now().UTC()})
}

func (e *Engine) resolveWorker(name string) (core.Worker, error) {
	e.workersMu.RLock()
	defer e.workersMu.RUnlock()
	if w, ok := e.workers[name]; ok {
		return w, nil
	}
	if w, ok := e.workers[strings.ToLower(name)]; ok {
		return w, nil
	}
	return nil, fmt.Errorf("no worker registered for agent %q", name)
}

// walk is the depth-first execution loop. An empty node id ends the run as
// completed with output = variables.
func (e *Engine) walk(ctx context.Context, ec *ExecutionContext, nodeID string) error {
	for nodeID != "" {
		if err := ctx.Err(); err != nil {
			ec.cancel(err)
			e.notify(NotifyExecutionCancelled, ec.ID, nodeID)
			return err
		}

		node, ok := e.graph.Node(nodeID)
		if !ok {
			err := fmt.Errorf("node %q not in graph", nodeID)
			ec.fail(err)
			e.notify(NotifyExecutionFailed, ec.ID, nodeID)
			return err
		}

		ec.setCurrent(nodeID)
		e.notify(NotifyNodeStart, ec.ID, nodeID)
		start := time.Now()

		// Pausing is the one exit that keeps the context alive.
		if _, isPause := node.Config.(HumanInputConfig); isPause {
			ec.setStatus(StatusPaused)
			e.logger.Info("workflow run paused", "context_id", ec.ID, "node_id", nodeID)
			e.notify(NotifyExecutionPaused, ec.ID, nodeID)
			return nil
		}

		output, next, err := e.executeNode(ctx, ec, node)
		if err != nil {
			ec.fail(err)
			e.logger.Warn("workflow node failed", "context_id", ec.ID, "node_id", nodeID, "error", err)
			e.notify(NotifyExecutionFailed, ec.ID, nodeID)
			return err
		}

		ec.record(NodeResult{
			NodeID:    nodeID,
			Type:      node.Type(),
			Output:    output,
			StartedAt: start.UTC(),
			Duration:  time.Since(start),
		})
		e.notify(NotifyNodeComplete, ec.ID, nodeID)

		nodeID = next
	}

	ec.complete()
	e.notify(NotifyExecutionComplete, ec.ID, "")
	e.logger.Debug("workflow run completed", "context_id", ec.ID)
	return nil
}

// executeNode runs one non-pausing node and returns its output and the next
// node id.
func (e *Engine) executeNode(ctx context.Context, ec *ExecutionContext, node Node) (any, string, error) {
	switch cfg := node.Config.(type) {
	case StartConfig:
		return nil, cfg.Next, nil

	case EndConfig:
		return nil, "", nil

	case AgentConfig:
		worker, err := e.resolveWorker(cfg.Agent)
		if err != nil {
			return nil, "", err
		}
		prompt := substitute(cfg.Prompt, ec.Variables())
		res, err := worker.Invoke(ctx, core.WorkRequest{Prompt: prompt})
		if err != nil {
			return nil, "", fmt.Errorf("agent node %q: %w", node.ID, err)
		}
		key := cfg.OutputKey
		if key == "" {
			key = node.ID + "_output"
		}
		ec.setVar(key, res.Text)
		return res.Text, cfg.Next, nil

	case ToolConfig:
		if e.tools == nil {
			return nil, "", fmt.Errorf("tool node %q: no tool registry configured", node.ID)
		}
		t, ok := e.tools.Get(cfg.Tool)
		if !ok {
			return nil, "", fmt.Errorf("tool node %q: unknown tool %q", node.ID, cfg.Tool)
		}
		args, _ := resolveArgs(cfg.Args, ec.Variables()).(map[string]any)
		if args == nil {
			args = map[string]any{}
		}
		result, err := t.Call(ctx, args)
		if err != nil {
			return nil, "", fmt.Errorf("tool node %q: %w", node.ID, err)
		}
		key := cfg.OutputKey
		if key == "" {
			key = node.ID + "_result"
		}
		ec.setVar(key, result)
		return result, cfg.Next, nil

	case ConditionConfig:
		matched, err := cfg.Rule.Evaluate(ec.Variables())
		if err != nil {
			// Evaluation failures take the "no" edge instead of failing the run.
			e.logger.Warn("condition evaluation failed, taking no edge", "node_id", node.ID, "error", err)
			matched = false
		}
		if matched {
			return true, cfg.Yes, nil
		}
		return false, cfg.No, nil

	case ParallelConfig:
		output, err := e.runParallel(ctx, ec, node.ID, cfg)
		if err != nil {
			return nil, "", err
		}
		return output, cfg.Next, nil

	default:
		return nil, "", fmt.Errorf("node %q has unsupported type %q", node.ID, node.Type())
	}
}

type branchOutcome struct {
	name string
	vars map[string]any
	err  error
}

// runParallel fans out each branch as an independent sub-walk over a snapshot
// of the variables. In wait_all mode every branch must finish and all branch
// variables merge back; in race mode the first branch to finish wins and the
// rest are abandoned cooperatively.
func (e *Engine) runParallel(ctx context.Context, ec *ExecutionContext, nodeID string, cfg ParallelConfig) (any, error) {
	branchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	outcomes := make(chan branchOutcome, len(cfg.Branches))
	for name, entry := range cfg.Branches {
		go func(name, entry string) {
			vars, err := e.walkBranch(branchCtx, entry, ec.Variables())
			outcomes <- branchOutcome{name: name, vars: vars, err: err}
		}(name, entry)
	}

	switch cfg.Mode {
	case Race:
		winner := <-outcomes
		if winner.err != nil {
			return nil, fmt.Errorf("parallel node %q branch %q: %w", nodeID, winner.name, winner.err)
		}
		ec.mergeVars(winner.vars)
		return winner.name, nil

	default: // WaitAll
		merged := map[string]any{}
		for i := 0; i < len(cfg.Branches); i++ {
			outcome := <-outcomes
			if outcome.err != nil {
				return nil, fmt.Errorf("parallel node %q branch %q: %w", nodeID, outcome.name, outcome.err)
			}
			for k, v := range outcome.vars {
				merged[k] = v
			}
		}
		ec.mergeVars(merged)
		return len(cfg.Branches), nil
	}
}

// walkBranch executes a branch sub-graph against branch-local variables.
// Branches support the stateless node kinds; pausing or nesting parallel
// nodes inside a branch is not supported.
func (e *Engine) walkBranch(ctx context.Context, nodeID string, vars map[string]any) (map[string]any, error) {
	for nodeID != "" {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		node, ok := e.graph.Node(nodeID)
		if !ok {
			return nil, fmt.Errorf("node %q not in graph", nodeID)
		}

		switch cfg := node.Config.(type) {
		case StartConfig:
			nodeID = cfg.Next

		case EndConfig:
			return vars, nil

		case AgentConfig:
			worker, err := e.resolveWorker(cfg.Agent)
			if err != nil {
				return nil, err
			}
			res, err := worker.Invoke(ctx, core.WorkRequest{Prompt: substitute(cfg.Prompt, vars)})
			if err != nil {
				return nil, fmt.Errorf("agent node %q: %w", node.ID, err)
			}
			key := cfg.OutputKey
			if key == "" {
				key = node.ID + "_output"
			}
			vars[key] = res.Text
			nodeID = cfg.Next

		case ToolConfig:
			if e.tools == nil {
				return nil, fmt.Errorf("tool node %q: no tool registry configured", node.ID)
			}
			t, ok := e.tools.Get(cfg.Tool)
			if !ok {
				return nil, fmt.Errorf("tool node %q: unknown tool %q", node.ID, cfg.Tool)
			}
			args, _ := resolveArgs(cfg.Args, vars).(map[string]any)
			if args == nil {
				args = map[string]any{}
			}
			result, err := t.Call(ctx, args)
			if err != nil {
				return nil, fmt.Errorf("tool node %q: %w", node.ID, err)
			}
			key := cfg.OutputKey
			if key == "" {
				key = node.ID + "_result"
			}
			vars[key] = result
			nodeID = cfg.Next

		case ConditionConfig:
			matched, err := cfg.Rule.Evaluate(vars)
			if err != nil {
				e.logger.Warn("condition evaluation failed, taking no edge", "node_id", node.ID, "error", err)
				matched = false
			}
			if matched {
				nodeID = cfg.Yes
			} else {
				nodeID = cfg.No
			}

		default:
			return nil, fmt.Errorf("node %q of type %q not supported inside a parallel branch", node.ID, node.Type())
		}
	}
	return vars, nil
}
