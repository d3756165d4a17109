package worker

import (
	"context"

	"github.com/hupe1980/missionmesh/core"
)

// FuncWorker adapts an ordinary function to the core.Worker interface.
type FuncWorker struct {
	info core.WorkerInfo
	fn   func(ctx context.Context, req core.WorkRequest) (*core.WorkResult, error)
}

// NewFuncWorker creates a worker backed by fn. The name doubles as the id.
func NewFuncWorker(name, description string, fn func(ctx context.Context, req core.WorkRequest) (*core.WorkResult, error)) *FuncWorker {
	return &FuncWorker{
		info: core.WorkerInfo{ID: name, Name: name, Description: description},
		fn:   fn,
	}
}

// Info implements core.Worker.
func (w *FuncWorker) Info() core.WorkerInfo { return w.info }

// Invoke implements core.Worker.
func (w *FuncWorker) Invoke(ctx context.Context, req core.WorkRequest) (*core.WorkResult, error) {
	return w.fn(ctx, req)
}
