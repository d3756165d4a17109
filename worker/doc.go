// Package worker provides ready-made core.Worker implementations.
//
// ModelWorker wraps a language model behind the worker contract, with an
// instruction (static or dynamically provided), optional function calling
// against a tool registry, and streaming support. FuncWorker adapts a plain
// Go function, which is the quickest way to back a task with custom logic or
// a test fixture.
package worker
