// Package core contains the shared vocabulary of the missionmesh framework:
// the Task/Plan/Mission work model and its state machines, the DelegationEvent
// progress records streamed during execution, the Worker capability boundary,
// and the persistence interfaces (SpaceStore, PlanStore, ArtifactStore) that
// higher layers call after state-changing operations.
//
// The package is intentionally a leaf: it depends only on the logging
// abstraction and carries no orchestration logic of its own. Scheduling lives
// in the scheduler package, graph execution in workflow, and the delegation
// protocol in orchestrator.
package core
