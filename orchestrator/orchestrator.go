package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/missionmesh/core"
	"github.com/hupe1980/missionmesh/logging"
	"github.com/hupe1980/missionmesh/model"
	"github.com/hupe1980/missionmesh/scheduler"
)

// DefaultRecentWindow is the number of trailing messages kept when trimming
// conversation context for direct answers.
const DefaultRecentWindow = 20

// Options configures an Orchestrator.
type Options struct {
	// SpaceStore persists the workspace. Optional; failures are non-fatal.
	SpaceStore core.SpaceStore
	// PlanStore persists the plan per space. Optional; failures are
	// non-fatal.
	PlanStore core.PlanStore
	// ArtifactStore receives oversized task outputs. Optional.
	ArtifactStore core.ArtifactStore
	// MaxConcurrency bounds parallel task dispatch. Defaults to the
	// scheduler's default.
	MaxConcurrency int
	// RecentWindow is the trailing message count kept for direct answers.
	// Defaults to DefaultRecentWindow.
	RecentWindow int
	// Logger defaults to NoOpLogger.
	Logger logging.Logger
}

// Orchestrator drives the delegation protocol for one space: it owns the
// worker catalog, the scheduler, and the conversation with the planning
// model.
type Orchestrator struct {
	spaceID       string
	model         model.Model
	executor      *scheduler.Executor
	spaceStore    core.SpaceStore
	planStore     core.PlanStore
	artifactStore core.ArtifactStore
	recentWindow  int
	logger        logging.Logger
}

// New creates an orchestrator for a space backed by the given planning model.
func New(spaceID string, m model.Model, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		RecentWindow: DefaultRecentWindow,
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.RecentWindow <= 0 {
		opts.RecentWindow = DefaultRecentWindow
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	executor := scheduler.New(func(o *scheduler.Options) {
		o.MaxConcurrency = opts.MaxConcurrency
		o.ArtifactStore = opts.ArtifactStore
		o.SpaceID = spaceID
		o.Logger = opts.Logger
	})

	return &Orchestrator{
		spaceID:       spaceID,
		model:         m,
		executor:      executor,
		spaceStore:    opts.SpaceStore,
		planStore:     opts.PlanStore,
		artifactStore: opts.ArtifactStore,
		recentWindow:  opts.RecentWindow,
		logger:        opts.Logger,
	}
}

// SpaceID returns the id of the space this orchestrator serves.
func (o *Orchestrator) SpaceID() string { return o.spaceID }

// RegisterWorker adds a worker to the catalog.
func (o *Orchestrator) RegisterWorker(w core.Worker) {
	o.executor.RegisterWorker(w)
}

// Workers returns the registered worker catalog.
func (o *Orchestrator) Workers() []core.WorkerInfo {
	return o.executor.Workers()
}

// Response is the converged outcome of a delegation: one textual answer plus
// references to everything produced on the way.
type Response struct {
	Text        string
	Plan        *core.Plan
	Results     map[string]string
	ArtifactIDs []string
	Events      []core.DelegationEvent
}

// Ask answers directly from the model with a trimmed recent-message window,
// skipping analysis entirely.
func (o *Orchestrator) Ask(ctx context.Context, messages []model.Message) (string, error) {
	trimmed := trimRecent(messages, o.recentWindow)

	resp, err := model.GenerateSync(ctx, o.model, model.Request{Messages: trimmed})
	if err != nil {
		return "", fmt.Errorf("ask: %w", err)
	}
	return resp.Message.Text, nil
}

// ProposePlan performs analysis and materialization only, returning the plan
// for caller approval without executing it. A request that needs no plan
// returns nil.
func (o *Orchestrator) ProposePlan(ctx context.Context, request string) (*core.Plan, error) {
	analysis, err := o.Analyze(ctx, request)
	if err != nil {
		return nil, err
	}
	if !analysis.NeedsPlan {
		return nil, nil
	}

	plan, err := o.Materialize(analysis, request)
	if err != nil {
		return nil, err
	}
	o.persistPlan(plan)
	return plan, nil
}

// Execute runs the plan through the scheduler and collects per-task results
// and artifact references. Partial failure leaves the error nil; a blocked
// plan surfaces scheduler.ErrPlanBlocked alongside whatever completed.
func (o *Orchestrator) Execute(ctx context.Context, plan *core.Plan) (*Response, error) {
	events, runErr := o.executor.ExecuteSync(ctx, plan)

	resp := &Response{
		Plan:    plan,
		Results: map[string]string{},
		Events:  events,
	}
	for _, ev := range events {
		if ev.Status != core.DelegationCompleted {
			continue
		}
		resp.Results[ev.TaskID] = ev.Result
		if ev.ArtifactID != "" {
			resp.ArtifactIDs = append(resp.ArtifactIDs, ev.ArtifactID)
		}
	}

	o.persistPlan(plan)
	return resp, runErr
}

const synthesizeSystemPrompt = `You are the orchestrator reporting back to the user.
Merge the worker outputs below into one coherent answer to the original
request. Write a single unified response.`

// Synthesize merges all completed task outputs, grouped by worker, into one
// final answer. Synthesis errors report as errors; they never re-run the
// plan.
func (o *Orchestrator) Synthesize(ctx context.Context, request string, plan *core.Plan) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Original request:\n%s\n\nWorker outputs:\n", request)

	byWorker := map[string][]*core.Task{}
	var workerOrder []string
	for _, t := range plan.Tasks() {
		if t.Status != core.TaskCompleted {
			continue
		}
		if _, seen := byWorker[t.Assignee]; !seen {
			workerOrder = append(workerOrder, t.Assignee)
		}
		byWorker[t.Assignee] = append(byWorker[t.Assignee], t)
	}

	for _, worker := range workerOrder {
		name := worker
		if name == "" {
			name = "general"
		}
		fmt.Fprintf(&sb, "\n## %s\n", name)
		for _, t := range byWorker[worker] {
			fmt.Fprintf(&sb, "### %s\n%s\n", t.Title, t.Result)
		}
	}

	resp, err := model.GenerateSync(ctx, o.model, model.Request{
		Messages: []model.Message{
			{Role: "system", Text: synthesizeSystemPrompt},
			{Role: "user", Text: sb.String()},
		},
	})
	if err != nil {
		return "", fmt.Errorf("synthesize: %w", err)
	}
	return resp.Message.Text, nil
}

// DelegateOptions customizes a Delegate call.
type DelegateOptions struct {
	// Worker short-circuits the pipeline to one named worker.
	Worker string
}

// Delegate runs the full protocol: analyze, materialize, execute, synthesize.
// Requests that need no plan are answered directly. Partial plan failure
// still produces a synthesized answer from whatever completed.
func (o *Orchestrator) Delegate(ctx context.Context, request string, optFns ...func(o *DelegateOptions)) (*Response, error) {
	opts := DelegateOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Worker != "" {
		return o.delegateToWorker(ctx, request, opts.Worker)
	}

	analysis, err := o.Analyze(ctx, request)
	if err != nil {
		return nil, err
	}

	if !analysis.NeedsPlan {
		text, err := o.Ask(ctx, []model.Message{{Role: "user", Text: request}})
		if err != nil {
			return nil, err
		}
		return &Response{Text: text}, nil
	}

	plan, err := o.Materialize(analysis, request)
	if err != nil {
		return nil, err
	}
	o.persistPlan(plan)

	resp, runErr := o.Execute(ctx, plan)
	if runErr != nil && len(resp.Results) == 0 {
		return resp, runErr
	}
	if runErr != nil {
		o.logger.Warn("plan finished partially", "plan_id", plan.ID, "error", runErr)
	}

	text, err := o.Synthesize(ctx, request, plan)
	if err != nil {
		return resp, err
	}
	resp.Text = text
	return resp, nil
}

// delegateToWorker routes the request to one worker as a single-task plan so
// events, artifacts and persistence behave identically to the full pipeline.
func (o *Orchestrator) delegateToWorker(ctx context.Context, request, worker string) (*Response, error) {
	plan := core.NewPlan(request)
	task := core.NewTask(request, "", func(to *core.TaskOptions) {
		to.Assignee = worker
	})
	if err := plan.AddTask(task); err != nil {
		return nil, err
	}
	o.persistPlan(plan)

	resp, runErr := o.Execute(ctx, plan)
	if runErr != nil {
		return resp, runErr
	}

	done, _ := plan.Task(task.ID)
	if done.Status == core.TaskFailed {
		return resp, fmt.Errorf("worker %s failed: %s", worker, done.Error)
	}
	resp.Text = done.Result
	return resp, nil
}

// persistPlan saves the plan if a store is configured. Failures are logged
// and ignored; the system keeps working from memory.
func (o *Orchestrator) persistPlan(plan *core.Plan) {
	if o.planStore == nil {
		return
	}
	if err := o.planStore.Save(o.spaceID, plan); err != nil {
		o.logger.Warn("plan persistence failed", "plan_id", plan.ID, "error", err)
	}
}

// PersistSpace saves the space snapshot if a store is configured, logging
// failures instead of returning them.
func (o *Orchestrator) PersistSpace(space *core.Space) {
	if o.spaceStore == nil {
		return
	}
	if err := o.spaceStore.Save(space); err != nil {
		o.logger.Warn("space persistence failed", "space_id", space.ID, "error", err)
	}
}

// trimRecent keeps the last n messages, always preserving a leading system
// message when one exists.
func trimRecent(messages []model.Message, n int) []model.Message {
	if len(messages) <= n {
		return messages
	}
	if len(messages) > 0 && messages[0].Role == "system" {
		out := make([]model.Message, 0, n)
		out = append(out, messages[0])
		out = append(out, messages[len(messages)-(n-1):]...)
		return out
	}
	return messages[len(messages)-n:]
}
