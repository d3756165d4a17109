// Package missionmesh provides a high-level façade over the per-space
// orchestrators and their services (spaces, plans, artifacts & logging) for
// building multi-agent delegation systems. Most applications interact with
// this package by:
//  1. Creating a MissionMesh via New() (optionally overriding default in-memory stores)
//  2. Registering one or more workers
//  3. Sending requests in ask, plan or agent mode scoped to a space
//
// The façade delegates protocol work to orchestrator.Orchestrator while
// keeping setup and usage ergonomics concise. All defaults are safe for local
// development and testing; production deployments typically supply durable
// store implementations and a structured logger.
package missionmesh

import (
	"context"

	"github.com/hupe1980/missionmesh/artifact"
	"github.com/hupe1980/missionmesh/core"
	"github.com/hupe1980/missionmesh/logging"
	"github.com/hupe1980/missionmesh/mission"
	"github.com/hupe1980/missionmesh/model"
	"github.com/hupe1980/missionmesh/orchestrator"
	"github.com/hupe1980/missionmesh/space"
)

// Options configures the MissionMesh instance.
type Options struct {
	// MaxConcurrency limits how many tasks each space's scheduler dispatches
	// at once. Zero keeps the scheduler default.
	MaxConcurrency int

	// RegistrySize bounds how many per-space orchestrators stay resident.
	// Zero keeps the registry default.
	RegistrySize int

	// Stores (defaults to in-memory implementations if not provided)
	SpaceStore    core.SpaceStore
	PlanStore     core.PlanStore
	ArtifactStore core.ArtifactStore
	MissionStore  core.MissionStore

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// MissionMesh is the high-level façade aggregating the per-space
// orchestrator registry and the shared worker catalog.
type MissionMesh struct {
	opts     Options
	model    model.Model
	registry *orchestrator.Registry
	workers  []core.Worker
}

// New creates a MissionMesh backed by the given planning model. Any unset
// store is initialized with an in-memory implementation. Workers registered
// through RegisterWorker apply to every space; register them before the
// first request to a space.
func New(m model.Model, optFns ...func(o *Options)) (*MissionMesh, error) {
	opts := Options{
		SpaceStore:    space.NewInMemoryStore(),
		PlanStore:     space.NewInMemoryPlanStore(),
		ArtifactStore: artifact.NewInMemoryStore(),
		MissionStore:  mission.NewInMemoryStore(),
		Logger:        logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	mesh := &MissionMesh{opts: opts, model: m}

	registry, err := orchestrator.NewRegistry(mesh.buildOrchestrator, func(o *orchestrator.RegistryOptions) {
		o.Size = opts.RegistrySize
		o.Logger = opts.Logger
	})
	if err != nil {
		return nil, err
	}
	mesh.registry = registry

	return mesh, nil
}

func (m *MissionMesh) buildOrchestrator(spaceID string) *orchestrator.Orchestrator {
	orch := orchestrator.New(spaceID, m.model, func(o *orchestrator.Options) {
		o.SpaceStore = m.opts.SpaceStore
		o.PlanStore = m.opts.PlanStore
		o.ArtifactStore = m.opts.ArtifactStore
		o.MaxConcurrency = m.opts.MaxConcurrency
		o.Logger = m.opts.Logger
	})
	for _, w := range m.workers {
		orch.RegisterWorker(w)
	}
	return orch
}

// RegisterWorker adds a worker to the catalog used by every space.
func (m *MissionMesh) RegisterWorker(w core.Worker) {
	m.workers = append(m.workers, w)
}

// Ask answers directly from the model within a space, without planning.
func (m *MissionMesh) Ask(ctx context.Context, spaceID string, messages []model.Message) (string, error) {
	return m.registry.GetOrCreate(spaceID).Ask(ctx, messages)
}

// ProposePlan analyzes the request and returns the materialized plan for
// approval without executing it. Requests that need no plan return nil.
func (m *MissionMesh) ProposePlan(ctx context.Context, spaceID, request string) (*core.Plan, error) {
	return m.registry.GetOrCreate(spaceID).ProposePlan(ctx, request)
}

// ExecutePlan runs a previously proposed plan in the given space.
func (m *MissionMesh) ExecutePlan(ctx context.Context, spaceID string, plan *core.Plan) (*orchestrator.Response, error) {
	return m.registry.GetOrCreate(spaceID).Execute(ctx, plan)
}

// Delegate runs the full pipeline for a request in the given space:
// analysis, plan materialization, scheduled execution and synthesis. When the
// space has an active mission the resulting plan is attached to it.
func (m *MissionMesh) Delegate(ctx context.Context, spaceID, request string, optFns ...func(o *orchestrator.DelegateOptions)) (*orchestrator.Response, error) {
	resp, err := m.registry.GetOrCreate(spaceID).Delegate(ctx, request, optFns...)
	if resp != nil && resp.Plan != nil {
		m.attachPlanToMission(spaceID, resp.Plan)
	}
	return resp, err
}

// StartMission records a standing intent for a space. Subsequent delegations
// attach their plans to it until it is completed or abandoned.
func (m *MissionMesh) StartMission(spaceID, intent string) (*core.Mission, error) {
	mi := core.NewMission(spaceID, intent)
	if err := m.opts.MissionStore.Save(mi); err != nil {
		return nil, err
	}
	return mi, nil
}

// ActiveMission returns the space's current non-terminal mission, or nil.
func (m *MissionMesh) ActiveMission(spaceID string) (*core.Mission, error) {
	return m.opts.MissionStore.Active(spaceID)
}

// Missions returns the space's mission history in creation order.
func (m *MissionMesh) Missions(spaceID string) ([]*core.Mission, error) {
	return m.opts.MissionStore.List(spaceID)
}

// UpdateMission applies a lifecycle transition (e.g. (*core.Mission).Pause)
// to the mission and persists the result.
func (m *MissionMesh) UpdateMission(spaceID, missionID string, transition func(*core.Mission) error) (*core.Mission, error) {
	mi, err := m.opts.MissionStore.Get(spaceID, missionID)
	if err != nil {
		return nil, err
	}
	if err := transition(mi); err != nil {
		return nil, err
	}
	if err := m.opts.MissionStore.Save(mi); err != nil {
		return nil, err
	}
	return mi, nil
}

// attachPlanToMission links the freshest plan to the active mission. Mission
// bookkeeping never fails a delegation; store errors are logged and dropped.
func (m *MissionMesh) attachPlanToMission(spaceID string, plan *core.Plan) {
	active, err := m.opts.MissionStore.Active(spaceID)
	if err != nil || active == nil {
		if err != nil {
			m.opts.Logger.Warn("mission lookup failed", "space_id", spaceID, "error", err)
		}
		return
	}
	active.SetPlan(plan)
	if err := m.opts.MissionStore.Save(active); err != nil {
		m.opts.Logger.Warn("mission persistence failed", "space_id", spaceID, "mission_id", active.ID, "error", err)
	}
}

// Workers returns the worker catalog for a space.
func (m *MissionMesh) Workers(spaceID string) []core.WorkerInfo {
	return m.registry.GetOrCreate(spaceID).Workers()
}

// CloseSpace drops a space's resident orchestrator. Persisted plans and
// spaces survive; the next request rebuilds the orchestrator from the
// stores.
func (m *MissionMesh) CloseSpace(spaceID string) {
	m.registry.Remove(spaceID)
}
