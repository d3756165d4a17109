// Package workflow implements a general node-graph executor for cases where
// plain plan fan-out is not enough. A graph is a set of typed nodes (start,
// end, agent, tool, condition, human_input, parallel) linked by next
// pointers; an ExecutionContext is one live run of a graph with its own
// variable scratchpad and node history.
//
// Execution is a depth-first walk. Reaching a human_input node pauses the
// run until Resume is called with the caller's input; a node without a next
// pointer completes the run with the current variables as output. Any
// uncaught node error fails the run without retry.
package workflow
