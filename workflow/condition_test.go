package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRule_Operators(t *testing.T) {
	vars := map[string]any{
		"status": "completed",
		"score":  7.5,
		"count":  3,
		"note":   "all systems nominal",
	}

	tests := []struct {
		name string
		rule Rule
		want bool
	}{
		{"equals string", Rule{Var: "status", Op: OpEquals, Value: "completed"}, true},
		{"equals mismatch", Rule{Var: "status", Op: OpEquals, Value: "failed"}, false},
		{"not equals", Rule{Var: "status", Op: OpNotEquals, Value: "failed"}, true},
		{"greater than", Rule{Var: "score", Op: OpGreaterThan, Value: 5}, true},
		{"less than", Rule{Var: "count", Op: OpLessThan, Value: 10}, true},
		{"int vs float equality", Rule{Var: "count", Op: OpEquals, Value: 3.0}, true},
		{"contains", Rule{Var: "note", Op: OpContains, Value: "nominal"}, true},
		{"exists", Rule{Var: "score", Op: OpExists}, true},
		{"not exists", Rule{Var: "missing", Op: OpNotExists}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.rule.Evaluate(vars)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRule_Combinators(t *testing.T) {
	vars := map[string]any{"a": 1, "b": 2}

	all := Rule{All: []Rule{
		{Var: "a", Op: OpEquals, Value: 1},
		{Var: "b", Op: OpEquals, Value: 2},
	}}
	got, err := all.Evaluate(vars)
	require.NoError(t, err)
	assert.True(t, got)

	anyRule := Rule{Any: []Rule{
		{Var: "a", Op: OpEquals, Value: 99},
		{Var: "b", Op: OpEquals, Value: 2},
	}}
	got, err = anyRule.Evaluate(vars)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestRule_Errors(t *testing.T) {
	vars := map[string]any{"s": "text"}

	_, err := Rule{Var: "s", Op: OpGreaterThan, Value: 1}.Evaluate(vars)
	assert.Error(t, err)

	_, err = Rule{Var: "s", Op: "matches_regex", Value: ".*"}.Evaluate(vars)
	assert.ErrorContains(t, err, "unknown operator")

	_, err = Rule{Var: "missing", Op: OpContains, Value: "x"}.Evaluate(vars)
	assert.Error(t, err)
}

func TestSubstitute(t *testing.T) {
	vars := map[string]any{
		"topic": "batteries",
		"task":  map[string]any{"result": "42"},
	}

	assert.Equal(t, "Research batteries now", substitute("Research {{topic}} now", vars))
	assert.Equal(t, "got 42", substitute("got {{task.result}}", vars))
	// Missing variables stay visible.
	assert.Equal(t, "hello {{nobody}}", substitute("hello {{nobody}}", vars))
	// No markers, no work.
	assert.Equal(t, "plain", substitute("plain", vars))
}

func TestResolveArgs(t *testing.T) {
	vars := map[string]any{"q": "go"}

	resolved := resolveArgs(map[string]any{
		"query": "{{q}}",
		"limit": 5,
		"nested": []any{
			map[string]any{"inner": "find {{q}}"},
		},
	}, vars)

	m := resolved.(map[string]any)
	assert.Equal(t, "go", m["query"])
	assert.Equal(t, 5, m["limit"])
	inner := m["nested"].([]any)[0].(map[string]any)
	assert.Equal(t, "find go", inner["inner"])
}
