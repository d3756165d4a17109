// Package tool implements the capability subsystem workers expose to models:
// schema-validated callable functions with consistent error codes, plus a
// registry that renders the catalog as model-facing tool definitions.
package tool

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/missionmesh/internal/util"
	"github.com/hupe1980/missionmesh/model"
)

// Tool is a structured capability a worker can invoke on behalf of a model.
//
// Implementations should provide descriptive snake_case names, a minimal
// JSON-Schema-like parameter map, and be safe for concurrent use.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description is shown to the model to guide tool selection.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Call executes the tool with already-decoded arguments.
	Call(ctx context.Context, args map[string]any) (any, error)
}

// ValidationError reports a schema or argument mismatch.
type ValidationError = util.ValidationError

// ToolError is the uniform error shape for tool failures.
type ToolError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a ToolError with the given details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}

// Registry is a named collection of tools shared by workers. Safe for
// concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: map[string]Tool{}}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds a tool, replacing any previous tool with the same name.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Get returns the tool with the given name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns all tools sorted by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Definitions renders the registry as model-facing tool definitions.
func (r *Registry) Definitions() []model.ToolDefinition {
	tools := r.List()
	out := make([]model.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		out = append(out, model.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return out
}
