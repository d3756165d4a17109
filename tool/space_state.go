package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/missionmesh/core"
)

// SpaceStateTool lets a worker read and write the mission space's key/value
// state and manage its artifacts. One instance is bound to one space.
type SpaceStateTool struct {
	space     *core.Space
	artifacts core.ArtifactStore
}

// NewSpaceStateTool creates the state tool for a space. artifacts may be nil,
// in which case artifact operations report an error.
func NewSpaceStateTool(space *core.Space, artifacts core.ArtifactStore) *SpaceStateTool {
	return &SpaceStateTool{space: space, artifacts: artifacts}
}

// Name returns the tool identifier.
func (t *SpaceStateTool) Name() string { return "space_state" }

// Description returns the tool description.
func (t *SpaceStateTool) Description() string {
	return "Manages mission space state and artifacts. " +
		"Supports operations: get_state, set_state, save_artifact, load_artifact, list_artifacts."
}

// Parameters returns the JSON schema for tool parameters.
func (t *SpaceStateTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"operation": map[string]any{
				"type":        "string",
				"enum":        []string{"get_state", "set_state", "save_artifact", "load_artifact", "list_artifacts"},
				"description": "The space operation to perform",
			},
			"key": map[string]any{
				"type":        "string",
				"description": "State key for get_state/set_state operations",
			},
			"value": map[string]any{
				"description": "Value for set_state operations (any type)",
			},
			"artifact_id": map[string]any{
				"type":        "string",
				"description": "Artifact identifier for load_artifact",
			},
			"name": map[string]any{
				"type":        "string",
				"description": "Artifact name for save_artifact",
			},
			"data": map[string]any{
				"type":        "string",
				"description": "Artifact content for save_artifact",
			},
		},
		"required": []string{"operation"},
	}
}

// Call implements the Tool interface.
func (t *SpaceStateTool) Call(_ context.Context, args map[string]any) (any, error) {
	operation, ok := args["operation"].(string)
	if !ok {
		return nil, fmt.Errorf("operation parameter is required")
	}

	switch operation {
	case "get_state":
		return t.handleGetState(args)
	case "set_state":
		return t.handleSetState(args)
	case "save_artifact":
		return t.handleSaveArtifact(args)
	case "load_artifact":
		return t.handleLoadArtifact(args)
	case "list_artifacts":
		return t.handleListArtifacts()
	default:
		return nil, fmt.Errorf("unknown operation: %s", operation)
	}
}

func (t *SpaceStateTool) handleGetState(args map[string]any) (any, error) {
	key, ok := args["key"].(string)
	if !ok {
		return nil, fmt.Errorf("key parameter is required for get_state operation")
	}

	value, exists := t.space.GetState(key)
	return map[string]any{"key": key, "exists": exists, "value": value}, nil
}

func (t *SpaceStateTool) handleSetState(args map[string]any) (any, error) {
	key, ok := args["key"].(string)
	if !ok {
		return nil, fmt.Errorf("key parameter is required for set_state operation")
	}

	t.space.SetState(key, args["value"])
	return map[string]any{"key": key, "success": true}, nil
}

func (t *SpaceStateTool) handleSaveArtifact(args map[string]any) (any, error) {
	if t.artifacts == nil {
		return nil, fmt.Errorf("no artifact store configured for this space")
	}

	name, ok := args["name"].(string)
	if !ok {
		return nil, fmt.Errorf("name parameter is required for save_artifact operation")
	}
	data, ok := args["data"].(string)
	if !ok {
		return nil, fmt.Errorf("data parameter is required for save_artifact operation")
	}

	info, err := t.artifacts.Save(t.space.ID, core.ArtifactInfo{ID: core.NewID(), Name: name, MimeType: "text/plain"}, []byte(data))
	if err != nil {
		return nil, fmt.Errorf("failed to save artifact: %w", err)
	}

	return map[string]any{"artifact_id": info.ID, "size": info.Size, "success": true}, nil
}

func (t *SpaceStateTool) handleLoadArtifact(args map[string]any) (any, error) {
	if t.artifacts == nil {
		return nil, fmt.Errorf("no artifact store configured for this space")
	}

	artifactID, ok := args["artifact_id"].(string)
	if !ok {
		return nil, fmt.Errorf("artifact_id parameter is required for load_artifact operation")
	}

	data, err := t.artifacts.Get(t.space.ID, artifactID)
	if err != nil {
		return nil, fmt.Errorf("failed to load artifact: %w", err)
	}

	return map[string]any{"artifact_id": artifactID, "data": string(data), "size": len(data)}, nil
}

func (t *SpaceStateTool) handleListArtifacts() (any, error) {
	if t.artifacts == nil {
		return nil, fmt.Errorf("no artifact store configured for this space")
	}

	infos, err := t.artifacts.List(t.space.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}

	return map[string]any{"artifacts": infos, "count": len(infos)}, nil
}
