package workflow

import (
	"fmt"
	"strings"
)

// Rule is the restricted condition format evaluated by condition nodes. It is
// deliberately not an expression language: one variable, one operator, one
// literal, optionally combined with All (conjunction) or Any (disjunction)
// sub-rules. A rule sets either Var/Op or exactly one of All/Any.
type Rule struct {
	Var   string `json:"var,omitempty" yaml:"var,omitempty"`
	Op    string `json:"op,omitempty" yaml:"op,omitempty"`
	Value any    `json:"value,omitempty" yaml:"value,omitempty"`
	All   []Rule `json:"all,omitempty" yaml:"all,omitempty"`
	Any   []Rule `json:"any,omitempty" yaml:"any,omitempty"`
}

// Supported operators.
const (
	OpEquals      = "equals"
	OpNotEquals   = "not_equals"
	OpGreaterThan = "greater_than"
	OpLessThan    = "less_than"
	OpContains    = "contains"
	OpExists      = "exists"
	OpNotExists   = "not_exists"
)

// Evaluate applies the rule to the variables. An unknown operator or an
// operand of the wrong shape returns an error; the engine maps evaluation
// errors to the condition node's "no" edge.
func (r Rule) Evaluate(vars map[string]any) (bool, error) {
	switch {
	case len(r.All) > 0:
		for _, sub := range r.All {
			ok, err := sub.Evaluate(vars)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case len(r.Any) > 0:
		for _, sub := range r.Any {
			ok, err := sub.Evaluate(vars)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}

	value, exists := vars[r.Var]

	switch r.Op {
	case OpExists:
		return exists, nil
	case OpNotExists:
		return !exists, nil
	case OpEquals:
		return equalValues(value, r.Value), nil
	case OpNotEquals:
		return !equalValues(value, r.Value), nil
	case OpGreaterThan, OpLessThan:
		left, lok := asFloat(value)
		right, rok := asFloat(r.Value)
		if !lok || !rok {
			return false, fmt.Errorf("operator %s needs numeric operands for variable %q", r.Op, r.Var)
		}
		if r.Op == OpGreaterThan {
			return left > right, nil
		}
		return left < right, nil
	case OpContains:
		haystack, hok := value.(string)
		needle, nok := r.Value.(string)
		if !hok || !nok {
			return false, fmt.Errorf("operator contains needs string operands for variable %q", r.Var)
		}
		return strings.Contains(haystack, needle), nil
	default:
		return false, fmt.Errorf("unknown operator %q", r.Op)
	}
}

// equalValues compares loosely enough to survive JSON and YAML decoding,
// where numbers arrive as float64 or int depending on the source.
func equalValues(a, b any) bool {
	if af, ok := asFloat(a); ok {
		if bf, ok := asFloat(b); ok {
			return af == bf
		}
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
