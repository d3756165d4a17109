// Package scheduler executes plans against registered workers. The executor
// repeatedly computes the dispatch frontier (pending tasks whose required
// dependencies are all completed), dispatches it through a bounded worker
// window in priority order, and applies results back to the plan. Progress is
// surfaced as a stream of delegation events.
//
// A single task failure never stops the run; independent branches keep
// executing and only the failed task's dependents become unreachable. When
// pending tasks remain but none can ever become actionable the executor stops
// with ErrPlanBlocked.
package scheduler
