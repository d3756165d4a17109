// Package orchestrator implements the delegation protocol that turns a user
// request into either a direct answer or a scheduled multi-agent plan and
// back into one synthesized response.
//
// The protocol runs in four steps: Analyze asks the model whether the
// request needs decomposition and for a proposed task list; Materialize
// turns the proposal into a Plan with resolved dependencies; Execute runs
// the plan through the scheduler; Synthesize merges the task outputs into
// the final answer. Three request modes expose subsets of the pipeline: ask
// (direct answer), plan (steps 1-2, for approval), and agent (everything, or
// a short-circuit to one named worker).
package orchestrator
