package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/missionmesh/collab"
	"github.com/hupe1980/missionmesh/core"
)

func sumTool() *FunctionTool {
	return NewFunctionTool(
		"calculate_sum",
		"Calculate the sum of two numbers",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"a": map[string]any{"type": "number"},
				"b": map[string]any{"type": "number"},
			},
			"required": []string{"a", "b"},
		},
		func(_ context.Context, args map[string]any) (any, error) {
			return args["a"].(float64) + args["b"].(float64), nil
		},
	)
}

func TestFunctionTool_Call(t *testing.T) {
	result, err := sumTool().Call(context.Background(), map[string]any{"a": 1.5, "b": 2.5})
	require.NoError(t, err)
	assert.Equal(t, 4.0, result)
}

func TestFunctionTool_ValidationError(t *testing.T) {
	_, err := sumTool().Call(context.Background(), map[string]any{"a": 1.5})

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "VALIDATION_ERROR", toolErr.Code)
	assert.Equal(t, "calculate_sum", toolErr.Tool)
}

func TestFunctionTool_TypeMismatch(t *testing.T) {
	_, err := sumTool().Call(context.Background(), map[string]any{"a": "one", "b": 2.0})

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "VALIDATION_ERROR", toolErr.Code)
}

func TestFunctionTool_ExecutionErrorWrapped(t *testing.T) {
	boom := NewFunctionTool("boom", "always fails", map[string]any{"type": "object"},
		func(context.Context, map[string]any) (any, error) {
			return nil, errors.New("kaput")
		})

	_, err := boom.Call(context.Background(), map[string]any{})

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "EXECUTION_ERROR", toolErr.Code)
	assert.Contains(t, toolErr.Message, "kaput")
}

func TestFunctionTool_ToolErrorPassedThrough(t *testing.T) {
	custom := NewToolError("custom", "rate limited", "RATE_LIMIT")
	tl := NewFunctionTool("custom", "fails specially", map[string]any{"type": "object"},
		func(context.Context, map[string]any) (any, error) {
			return nil, custom
		})

	_, err := tl.Call(context.Background(), map[string]any{})

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "RATE_LIMIT", toolErr.Code)
}

func TestNewFunctionToolFromStruct(t *testing.T) {
	type SearchArgs struct {
		Query string `json:"query" description:"Search query"`
		Limit int    `json:"limit,omitempty" description:"Max results"`
	}

	search := NewFunctionToolFromStruct("search", "Search sources", SearchArgs{},
		func(_ context.Context, args map[string]any) (any, error) {
			return args["query"], nil
		})

	schema := search.Parameters()
	props := schema["properties"].(map[string]any)
	assert.Contains(t, props, "query")
	assert.Contains(t, props, "limit")
	assert.Equal(t, []string{"query"}, schema["required"])

	// Optional field can be omitted.
	result, err := search.Call(context.Background(), map[string]any{"query": "go concurrency"})
	require.NoError(t, err)
	assert.Equal(t, "go concurrency", result)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(sumTool())

	got, ok := reg.Get("calculate_sum")
	require.True(t, ok)
	assert.Equal(t, "calculate_sum", got.Name())

	_, ok = reg.Get("missing")
	assert.False(t, ok)

	defs := reg.Definitions()
	require.Len(t, defs, 1)
	assert.Equal(t, "calculate_sum", defs[0].Name)
	assert.NotEmpty(t, defs[0].Description)
	assert.NotNil(t, defs[0].Parameters)
}

func TestNotifyAgentTool(t *testing.T) {
	hub := collab.NewHub()
	hub.RegisterAgent("researcher")
	hub.RegisterAgent("writer")

	notify := NewNotifyAgentTool(hub, "researcher")

	_, err := notify.Call(context.Background(), map[string]any{"to": "writer", "message": "done"})
	require.NoError(t, err)

	msgs := hub.Drain("writer")
	require.Len(t, msgs, 1)
	assert.Equal(t, "done", msgs[0].Content)

	_, err = notify.Call(context.Background(), map[string]any{"to": "writer"})
	assert.Error(t, err)
}

type mapArtifactStore struct {
	data map[string][]byte
	info map[string]core.ArtifactInfo
}

func newMapArtifactStore() *mapArtifactStore {
	return &mapArtifactStore{data: map[string][]byte{}, info: map[string]core.ArtifactInfo{}}
}

func (s *mapArtifactStore) Save(_ string, info core.ArtifactInfo, data []byte) (core.ArtifactInfo, error) {
	info.Size = len(data)
	s.data[info.ID] = data
	s.info[info.ID] = info
	return info, nil
}

func (s *mapArtifactStore) Get(_, id string) ([]byte, error) {
	data, ok := s.data[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

func (s *mapArtifactStore) List(string) ([]core.ArtifactInfo, error) {
	var out []core.ArtifactInfo
	for _, info := range s.info {
		out = append(out, info)
	}
	return out, nil
}

func (s *mapArtifactStore) Delete(_, id string) error {
	delete(s.data, id)
	delete(s.info, id)
	return nil
}

func TestSpaceStateTool(t *testing.T) {
	space := core.NewSpace("space-1")
	store := newMapArtifactStore()
	st := NewSpaceStateTool(space, store)

	_, err := st.Call(context.Background(), map[string]any{"operation": "set_state", "key": "topic", "value": "batteries"})
	require.NoError(t, err)

	result, err := st.Call(context.Background(), map[string]any{"operation": "get_state", "key": "topic"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"key": "topic", "exists": true, "value": "batteries"}, result)

	saved, err := st.Call(context.Background(), map[string]any{"operation": "save_artifact", "name": "notes.txt", "data": "hello"})
	require.NoError(t, err)
	artifactID := saved.(map[string]any)["artifact_id"].(string)

	loaded, err := st.Call(context.Background(), map[string]any{"operation": "load_artifact", "artifact_id": artifactID})
	require.NoError(t, err)
	assert.Equal(t, "hello", loaded.(map[string]any)["data"])

	_, err = st.Call(context.Background(), map[string]any{"operation": "explode"})
	assert.Error(t, err)
}
