package engine

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
)

// CondPreviousSuccess gates a step on the most recently recorded
// outcome being a success.
const CondPreviousSuccess = "previous_success"

// evalCondition decides whether a step runs. Conditions are
// permissive: an empty condition always runs, previous_success
// inspects the last recorded outcome (vacuously true when nothing has
// been recorded yet), and anything else is evaluated as an expression
// over the current variables. An expression that fails to compile,
// errors at runtime, or yields a non-bool falls back to running the
// step — the returned warning is non-empty so the caller can surface
// it without aborting the run.
func evalCondition(condition string, outcomes []StepOutcome, vars *VarContext) (run bool, warning string) {
	condition = strings.TrimSpace(condition)
	if condition == "" {
		return true, ""
	}

	if condition == CondPreviousSuccess {
		if len(outcomes) == 0 {
			return true, ""
		}
		return outcomes[len(outcomes)-1].Status == StepSuccess, ""
	}

	env := vars.Snapshot()
	env[CondPreviousSuccess] = len(outcomes) == 0 || outcomes[len(outcomes)-1].Status == StepSuccess
	env["last_status"] = lastStatus(outcomes)

	program, err := expr.Compile(condition, expr.Env(env), expr.AsBool())
	if err != nil {
		return true, fmt.Sprintf("condition %q did not compile, running step: %v", condition, err)
	}
	output, err := expr.Run(program, env)
	if err != nil {
		return true, fmt.Sprintf("condition %q failed to evaluate, running step: %v", condition, err)
	}
	result, ok := output.(bool)
	if !ok {
		return true, fmt.Sprintf("condition %q returned %T, running step", condition, output)
	}
	return result, ""
}

func lastStatus(outcomes []StepOutcome) string {
	if len(outcomes) == 0 {
		return ""
	}
	return string(outcomes[len(outcomes)-1].Status)
}
