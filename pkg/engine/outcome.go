// Package engine executes recipes: it resolves variables, evaluates
// step conditions, invokes capabilities, applies failure policies, and
// records structured outcomes. Step failures are data, not Go errors —
// a run always produces a RunResult.
package engine

import (
	"time"
)

// RunStatus is the terminal status of a recipe execution.
type RunStatus string

const (
	// RunCompleted means the executor reached the end of the step list.
	// Individual steps may still have failed under on_error: continue.
	RunCompleted RunStatus = "completed"
	// RunFailed means a step failed under on_error: stop.
	RunFailed RunStatus = "failed"
	// RunCancelled means the caller's context was cancelled between steps.
	RunCancelled RunStatus = "cancelled"
)

// StepStatus is the recorded status of one step attempt.
type StepStatus string

const (
	StepSuccess StepStatus = "success"
	StepError   StepStatus = "error"
	StepSkipped StepStatus = "skipped"
)

// FailureKind distinguishes a capability that does not exist from one
// that ran and failed. Callers branch on this: a missing capability is
// a wiring problem, an execution failure is a runtime one.
type FailureKind string

const (
	FailureToolNotFound FailureKind = "tool_not_found"
	FailureExecution    FailureKind = "execution"
)

// StepOutcome is one recorded step attempt. Exactly one of Result,
// Failure, or SkipReason is populated, selected by Status.
type StepOutcome struct {
	StepID      string      `json:"step_id"              yaml:"step_id"`
	ToolName    string      `json:"tool_name"            yaml:"tool_name"`
	Status      StepStatus  `json:"status"               yaml:"status"`
	Result      any         `json:"result,omitempty"     yaml:"result,omitempty"`
	Failure     *Failure    `json:"failure,omitempty"    yaml:"failure,omitempty"`
	SkipReason  string      `json:"skip_reason,omitempty" yaml:"skip_reason,omitempty"`
	Attempt     int         `json:"attempt"              yaml:"attempt"`
	StartedAt   time.Time   `json:"started_at"           yaml:"started_at"`
	CompletedAt time.Time   `json:"completed_at"         yaml:"completed_at"`
}

// Failure carries the classified error detail of a failed attempt.
type Failure struct {
	Kind    FailureKind `json:"kind"    yaml:"kind"`
	Message string      `json:"message" yaml:"message"`
}

// RunResult is the complete record of one recipe execution.
type RunResult struct {
	ExecutionID string        `json:"execution_id"     yaml:"execution_id"`
	RecipeID    string        `json:"recipe_id"        yaml:"recipe_id"`
	RecipeName  string        `json:"recipe_name"      yaml:"recipe_name"`
	Status      RunStatus     `json:"status"           yaml:"status"`
	Steps       []StepOutcome `json:"steps"            yaml:"steps"`
	Error       string        `json:"error,omitempty"  yaml:"error,omitempty"`
	StartedAt   time.Time     `json:"started_at"       yaml:"started_at"`
	CompletedAt time.Time     `json:"completed_at"     yaml:"completed_at"`
}

// StepsSummary counts outcomes by status.
type StepsSummary struct {
	Total     int `json:"total"     yaml:"total"`
	Succeeded int `json:"succeeded" yaml:"succeeded"`
	Failed    int `json:"failed"    yaml:"failed"`
	Skipped   int `json:"skipped"   yaml:"skipped"`
}

// Summary tallies the recorded outcomes.
func (r *RunResult) Summary() StepsSummary {
	var s StepsSummary
	for _, o := range r.Steps {
		s.Total++
		switch o.Status {
		case StepSuccess:
			s.Succeeded++
		case StepError:
			s.Failed++
		case StepSkipped:
			s.Skipped++
		}
	}
	return s
}
