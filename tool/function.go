package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/missionmesh/internal/util"
	"github.com/hupe1980/missionmesh/logging"
)

// FunctionTool adapts a plain Go function into a Tool. Arguments are
// validated against the declared schema before the function runs, and
// failures are normalized to *ToolError with stable codes:
//
//	VALIDATION_ERROR -> schema / argument mismatch
//	EXECUTION_ERROR  -> the wrapped function returned a non-ToolError error
//
// A *ToolError returned by the function is forwarded unchanged. A
// FunctionTool has no mutable state after construction and is safe for
// concurrent use.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]any
	fn          func(ctx context.Context, args map[string]any) (any, error)
	logger      logging.Logger
}

// FunctionToolOptions customizes a FunctionTool.
type FunctionToolOptions struct {
	// Logger defaults to NoOpLogger.
	Logger logging.Logger
}

// NewFunctionTool constructs a FunctionTool from an explicit schema and
// implementation.
func NewFunctionTool(
	name, description string,
	parameters map[string]any,
	fn func(ctx context.Context, args map[string]any) (any, error),
	optFns ...func(o *FunctionToolOptions),
) *FunctionTool {
	opts := FunctionToolOptions{Logger: logging.NoOpLogger{}}
	for _, optFn := range optFns {
		optFn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
		logger:      opts.Logger,
	}
}

// NewFunctionToolFromStruct derives the parameter schema from a struct via
// reflection, honoring json and description tags.
//
// Example:
//
//	type SearchArgs struct {
//	  Query string `json:"query" description:"Search query"`
//	  Limit int    `json:"limit,omitempty" description:"Max results"`
//	}
//
//	searchTool := NewFunctionToolFromStruct(
//	  "search_sources",
//	  "Search the source catalog",
//	  SearchArgs{},
//	  func(ctx context.Context, args map[string]any) (any, error) { ... },
//	)
func NewFunctionToolFromStruct(
	name, description string,
	structType any,
	fn func(ctx context.Context, args map[string]any) (any, error),
	optFns ...func(o *FunctionToolOptions),
) *FunctionTool {
	return NewFunctionTool(name, description, util.CreateSchema(structType), fn, optFns...)
}

// Name returns the unique tool name.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the model-facing description.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns the JSON schema describing expected arguments.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Call validates args against the declared schema and invokes the wrapped
// function.
func (t *FunctionTool) Call(ctx context.Context, args map[string]any) (any, error) {
	start := time.Now()

	if err := util.ValidateParameters(args, t.parameters); err != nil {
		t.logger.Warn("tool validation failed", "tool", t.name, "error", err.Error())

		return nil, &ToolError{
			Tool:    t.name,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    "VALIDATION_ERROR",
			Details: err,
		}
	}

	result, err := t.fn(ctx, args)
	if err != nil {
		if toolErr, ok := err.(*ToolError); ok {
			t.logger.Error("tool call failed", "tool", t.name, "error", toolErr.Message)
			return nil, toolErr
		}

		t.logger.Error("tool call failed", "tool", t.name, "error", err.Error())

		return nil, &ToolError{
			Tool:    t.name,
			Message: err.Error(),
			Code:    "EXECUTION_ERROR",
		}
	}

	t.logger.Debug("tool call succeeded", "tool", t.name, "duration_ms", time.Since(start).Milliseconds())

	return result, nil
}
