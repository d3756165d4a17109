// Package collab provides the advisory agent-to-agent collaboration layer:
// per-agent message queues with a broadcast target, a synchronous pub/sub
// channel decoupled from the queues, a shared key/value context tagged with
// last writer and timestamp, and a batch parallel runner with settle-all
// semantics for dependency-free task sets.
//
// Nothing here is on the primary delegation path; the scheduler package owns
// dependency-aware execution. Collaborative planning uses this layer to let
// workers exchange notes while a plan runs.
package collab
