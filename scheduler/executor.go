package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/missionmesh/core"
	"github.com/hupe1980/missionmesh/logging"
)

// ErrPlanBlocked is returned when pending tasks remain but none of them can
// become actionable, typically because a required dependency failed or was
// cancelled.
var ErrPlanBlocked = errors.New("plan is blocked: pending tasks remain but none are actionable")

// DefaultMaxConcurrency bounds the dispatch window when no override is given.
const DefaultMaxConcurrency = 3

// DefaultArtifactThreshold is the result size in bytes above which a worker
// output is additionally persisted as an artifact.
const DefaultArtifactThreshold = 4 * 1024

// Options configures an Executor.
type Options struct {
	// MaxConcurrency bounds the number of tasks in flight at once.
	// Defaults to DefaultMaxConcurrency.
	MaxConcurrency int
	// ArtifactStore, when set together with SpaceID, receives worker outputs
	// larger than ArtifactThreshold. Store failures are logged, never fatal.
	ArtifactStore core.ArtifactStore
	// SpaceID scopes stored artifacts.
	SpaceID string
	// ArtifactThreshold defaults to DefaultArtifactThreshold.
	ArtifactThreshold int
	// Logger defaults to NoOpLogger.
	Logger logging.Logger
}

// Executor runs plans to completion across a registry of workers. Register
// every worker before calling Execute; the registry is not safe for
// concurrent mutation during a run.
type Executor struct {
	byID     map[string]core.Worker
	byName   map[string]core.Worker
	fallback core.Worker

	maxConcurrency    int
	artifactStore     core.ArtifactStore
	spaceID           string
	artifactThreshold int
	logger            logging.Logger
}

// New constructs an Executor.
func New(optFns ...func(o *Options)) *Executor {
	opts := Options{
		MaxConcurrency:    DefaultMaxConcurrency,
		ArtifactThreshold: DefaultArtifactThreshold,
		Logger:            logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = DefaultMaxConcurrency
	}
	if opts.ArtifactThreshold <= 0 {
		opts.ArtifactThreshold = DefaultArtifactThreshold
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Executor{
		byID:              map[string]core.Worker{},
		byName:            map[string]core.Worker{},
		maxConcurrency:    opts.MaxConcurrency,
		artifactStore:     opts.ArtifactStore,
		spaceID:           opts.SpaceID,
		artifactThreshold: opts.ArtifactThreshold,
		logger:            opts.Logger,
	}
}

// RegisterWorker makes a worker addressable by its id and, case-insensitively,
// by its name. The first registered worker doubles as the fallback for tasks
// without an assignee.
func (e *Executor) RegisterWorker(w core.Worker) {
	info := w.Info()
	e.byID[info.ID] = w
	e.byName[strings.ToLower(info.Name)] = w
	if e.fallback == nil {
		e.fallback = w
	}
}

// Workers returns the catalog of registered workers.
func (e *Executor) Workers() []core.WorkerInfo {
	out := make([]core.WorkerInfo, 0, len(e.byID))
	for _, w := range e.byID {
		out = append(out, w.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (e *Executor) resolve(assignee string) (core.Worker, error) {
	if assignee == "" {
		if e.fallback == nil {
			return nil, errors.New("no workers registered")
		}
		return e.fallback, nil
	}
	if w, ok := e.byID[assignee]; ok {
		return w, nil
	}
	if w, ok := e.byName[strings.ToLower(assignee)]; ok {
		return w, nil
	}
	if e.fallback != nil {
		return e.fallback, nil
	}
	return nil, fmt.Errorf("no worker available for assignee %q", assignee)
}

type settled struct {
	task   *core.Task
	worker core.WorkerInfo
	result *core.WorkResult
	err    error
}

// Execute runs the plan until it completes, blocks, or ctx is cancelled.
// Delegation events stream on the first channel while the run progresses; the
// second channel delivers at most one terminal error after the event channel
// closes. A plan that finishes with failed tasks but no stranded pending work
// terminates without an error; callers inspect the plan for partial failure.
func (e *Executor) Execute(ctx context.Context, plan *core.Plan) (<-chan core.DelegationEvent, <-chan error) {
	events := make(chan core.DelegationEvent, plan.Len()*2+4)
	errCh := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errCh)

		if err := e.run(ctx, plan, events); err != nil {
			errCh <- err
		}
	}()

	return events, errCh
}

// ExecuteSync runs the plan and collects all delegation events.
func (e *Executor) ExecuteSync(ctx context.Context, plan *core.Plan) ([]core.DelegationEvent, error) {
	events, errCh := e.Execute(ctx, plan)
	var out []core.DelegationEvent
	for ev := range events {
		out = append(out, ev)
	}
	return out, <-errCh
}

func (e *Executor) run(ctx context.Context, plan *core.Plan, events chan<- core.DelegationEvent) error {
	start := time.Now()
	results := make(chan settled)
	inFlight := 0

	var wg sync.WaitGroup
	defer wg.Wait()

	drain := func() {
		// Let in-flight invocations settle so their goroutines can exit; the
		// plan no longer changes once the run is abandoned.
		for ; inFlight > 0; inFlight-- {
			res := <-results
			if res.err != nil {
				_ = plan.FailTask(res.task.ID, res.err.Error())
				continue
			}
			var text string
			if res.result != nil {
				text = res.result.Text
			}
			_ = plan.CompleteTask(res.task.ID, text)
		}
	}

	for {
		dispatched, err := e.dispatch(ctx, plan, events, results, &wg, e.maxConcurrency-inFlight)
		inFlight += dispatched
		if err != nil {
			drain()
			return err
		}

		if inFlight == 0 {
			if plan.IsBlocked() {
				e.logger.Warn("plan blocked", "plan_id", plan.ID, "progress", plan.Progress().Percent)
				return ErrPlanBlocked
			}
			// Nothing running and nothing dispatchable: the plan has reached
			// its final state, complete or partially failed.
			e.logger.Info("plan run finished", "plan_id", plan.ID, "duration", time.Since(start), "complete", plan.IsComplete())
			return nil
		}

		select {
		case <-ctx.Done():
			drain()
			return ctx.Err()
		case res := <-results:
			inFlight--
			e.apply(plan, res, events)
		}
	}
}

// dispatch starts up to slots actionable tasks, highest priority first. Ties
// keep plan insertion order.
func (e *Executor) dispatch(ctx context.Context, plan *core.Plan, events chan<- core.DelegationEvent, results chan<- settled, wg *sync.WaitGroup, slots int) (int, error) {
	if slots <= 0 {
		return 0, nil
	}

	frontier := plan.ActionableTasks(0)
	sort.SliceStable(frontier, func(i, j int) bool {
		return frontier[i].Priority.Weight() > frontier[j].Priority.Weight()
	})
	if len(frontier) > slots {
		frontier = frontier[:slots]
	}

	started := 0
	for _, task := range frontier {
		select {
		case <-ctx.Done():
			return started, ctx.Err()
		default:
		}

		worker, err := e.resolve(task.Assignee)
		if err != nil {
			_ = plan.FailTask(task.ID, err.Error())
			events <- core.NewDelegationFailed(task, core.WorkerInfo{}, err)
			e.logger.Warn("task routing failed", "task_id", task.ID, "assignee", task.Assignee, "error", err)
			continue
		}

		if err := plan.StartTask(task.ID); err != nil {
			return started, err
		}

		info := worker.Info()
		events <- core.NewDelegationStarted(task, info)
		e.logger.Debug("task dispatched", "task_id", task.ID, "worker", info.Name, "priority", task.Priority)

		req := core.WorkRequest{
			TaskID:   task.ID,
			Prompt:   workerPrompt(task),
			Context:  dependencyContext(plan, task),
			Metadata: task.Metadata,
		}

		wg.Add(1)
		go func(task *core.Task, worker core.Worker, info core.WorkerInfo) {
			defer wg.Done()
			res, err := worker.Invoke(ctx, req)
			results <- settled{task: task, worker: info, result: res, err: err}
		}(task, worker, info)

		started++
	}

	return started, nil
}

// apply records a settled invocation on the plan and emits the terminal event.
func (e *Executor) apply(plan *core.Plan, res settled, events chan<- core.DelegationEvent) {
	if res.err != nil {
		_ = plan.FailTask(res.task.ID, res.err.Error())
		events <- core.NewDelegationFailed(res.task, res.worker, res.err)
		e.logger.Warn("task failed", "task_id", res.task.ID, "worker", res.worker.Name, "error", res.err)
		return
	}

	var text string
	var trace []core.ToolCallTrace
	if res.result != nil {
		text = res.result.Text
		trace = res.result.ToolCalls
	}
	_ = plan.CompleteTask(res.task.ID, text)

	artifactID := e.maybeStoreArtifact(res.task, text)
	events <- core.NewDelegationCompleted(res.task, res.worker, text, artifactID, trace)
	e.logger.Debug("task completed", "task_id", res.task.ID, "worker", res.worker.Name, "duration", core.FormatDuration(res.task.ActualTime))
}

// maybeStoreArtifact persists large worker outputs. The inline result is kept
// regardless so dependent tasks see the full text.
func (e *Executor) maybeStoreArtifact(task *core.Task, result string) string {
	if e.artifactStore == nil || len(result) < e.artifactThreshold {
		return ""
	}

	info := core.ArtifactInfo{
		ID:       core.NewID(),
		Name:     fmt.Sprintf("task-%s-output.md", task.ID),
		MimeType: "text/markdown",
	}
	saved, err := e.artifactStore.Save(e.spaceID, info, []byte(result))
	if err != nil {
		e.logger.Warn("artifact save failed", "task_id", task.ID, "error", err)
		return ""
	}
	return saved.ID
}

// workerPrompt renders the task as the worker's instruction.
func workerPrompt(task *core.Task) string {
	if task.Description == "" {
		return task.Title
	}
	return fmt.Sprintf("%s\n\n%s", task.Title, task.Description)
}

// dependencyContext concatenates the outputs of every completed dependency,
// required or optional, in the task's dependency order.
func dependencyContext(plan *core.Plan, task *core.Task) string {
	var sb strings.Builder
	for _, dep := range task.Dependencies {
		t, ok := plan.Task(dep.TaskID)
		if !ok || t.Status != core.TaskCompleted || t.Result == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "### %s\n%s", t.Title, t.Result)
	}
	return sb.String()
}
