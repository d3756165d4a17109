package util

import (
	"fmt"
	"regexp"
	"strings"
)

var varPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_.]*)\s*\}\}`)

// SubstituteVars replaces {{name}} placeholders with values from vars.
// Deliberately narrow: no conditionals, no loops, no functions. Missing
// variables are left in place so templating mistakes stay visible in the
// rendered output.
func SubstituteVars(text string, vars map[string]any) string {
	if !strings.Contains(text, "{{") {
		return text
	}

	return varPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := varPattern.FindStringSubmatch(match)[1]
		if value, ok := lookupVar(vars, name); ok {
			return fmt.Sprintf("%v", value)
		}
		return match
	})
}

// lookupVar resolves dotted paths ("task.result") through nested maps.
func lookupVar(vars map[string]any, name string) (any, bool) {
	parts := strings.Split(name, ".")
	var current any = vars
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
