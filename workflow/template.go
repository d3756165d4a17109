package workflow

import "github.com/hupe1980/missionmesh/internal/util"

// substitute renders {{variable}} placeholders in a prompt string.
func substitute(text string, vars map[string]any) string {
	return util.SubstituteVars(text, vars)
}

// resolveArgs substitutes variables in every string inside a tool argument
// payload, walking nested maps and lists.
func resolveArgs(value any, vars map[string]any) any {
	switch v := value.(type) {
	case string:
		return substitute(v, vars)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, nested := range v {
			out[k] = resolveArgs(nested, vars)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, nested := range v {
			out[i] = resolveArgs(nested, vars)
		}
		return out
	default:
		return value
	}
}
