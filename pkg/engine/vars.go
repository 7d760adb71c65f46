package engine

import (
	"strings"
)

// VarContext holds the variables visible to a single execution: the
// caller-supplied initial bindings plus one step_<id>_result binding
// per completed step. Values keep their original types.
type VarContext struct {
	vars map[string]any
}

// NewVarContext copies the initial bindings so later Bind calls never
// mutate the caller's map.
func NewVarContext(initial map[string]any) *VarContext {
	vars := make(map[string]any, len(initial))
	for k, v := range initial {
		vars[k] = v
	}
	return &VarContext{vars: vars}
}

// Bind sets or replaces a variable.
func (vc *VarContext) Bind(name string, value any) {
	vc.vars[name] = value
}

// Lookup returns a variable's value.
func (vc *VarContext) Lookup(name string) (any, bool) {
	v, ok := vc.vars[name]
	return v, ok
}

// ResultVar is the variable name a step's result is bound under.
func ResultVar(stepID string) string {
	return "step_" + stepID + "_result"
}

// Snapshot returns a copy of the current bindings, for condition
// evaluation environments.
func (vc *VarContext) Snapshot() map[string]any {
	out := make(map[string]any, len(vc.vars))
	for k, v := range vc.vars {
		out[k] = v
	}
	return out
}

// SubstituteParams resolves `${name}` references in a step's
// parameters. A string value that is exactly "${name}" is replaced by
// the variable's value, preserving its type. Partial references inside
// longer strings and references to unknown variables are left as
// literal text — substitution never fails.
func (vc *VarContext) SubstituteParams(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = vc.substituteValue(v)
	}
	return out
}

func (vc *VarContext) substituteValue(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	if !strings.HasPrefix(s, "${") || !strings.HasSuffix(s, "}") {
		return s
	}
	name := s[2 : len(s)-1]
	if val, ok := vc.vars[name]; ok {
		return val
	}
	return s
}
