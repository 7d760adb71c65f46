package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ormasoftchile/receta/pkg/capability"
	"github.com/ormasoftchile/receta/pkg/recipe"
)

// ErrRecipeNotFound reports an unknown recipe identifier passed to
// ExecuteByID. It is the only error the executor returns for a lookup
// problem; execution problems are recorded in the RunResult instead.
var ErrRecipeNotFound = errors.New("recipe not found")

// Executor drives recipe runs against a capability set. It is safe for
// concurrent use; each run carries its own variable context and
// outcome list.
type Executor struct {
	store        *recipe.Store
	caps         capability.Invoker
	history      *History
	artifactsDir string
	handle       any
	logf         func(format string, args ...any)
}

// Option configures an Executor.
type Option func(*Executor)

// WithStore attaches a recipe store, enabling ExecuteByID.
func WithStore(s *recipe.Store) Option {
	return func(x *Executor) { x.store = s }
}

// WithHistory retains finished runs in the given history.
func WithHistory(h *History) Option {
	return func(x *Executor) { x.history = h }
}

// WithArtifactsDir writes a trace.jsonl and run.yaml per execution
// under dir/<execution_id>/.
func WithArtifactsDir(dir string) Option {
	return func(x *Executor) { x.artifactsDir = dir }
}

// WithHandle sets the opaque per-host value passed through to every
// capability invocation.
func WithHandle(handle any) Option {
	return func(x *Executor) { x.handle = handle }
}

// WithExecLogf overrides where the executor writes diagnostics
// (defaults to stderr).
func WithExecLogf(logf func(format string, args ...any)) Option {
	return func(x *Executor) { x.logf = logf }
}

// NewExecutor builds an executor over a capability set.
func NewExecutor(caps capability.Invoker, opts ...Option) *Executor {
	x := &Executor{
		caps: caps,
		logf: func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		},
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// ExecuteByID looks up a recipe in the store and executes it.
func (x *Executor) ExecuteByID(ctx context.Context, id string, vars map[string]any) (*RunResult, error) {
	if x.store == nil {
		return nil, fmt.Errorf("executor has no recipe store")
	}
	r, ok := x.store.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrRecipeNotFound, id)
	}
	return x.Execute(ctx, r, vars), nil
}

// Execute runs a recipe to a terminal status. Step failures never
// surface as Go errors: the returned RunResult carries the status and
// the per-step outcomes in execution order. An empty recipe completes
// trivially.
func (x *Executor) Execute(ctx context.Context, r *recipe.Recipe, vars map[string]any) *RunResult {
	s := x.NewStepper(r, vars)
	for {
		if _, more := s.Next(ctx); !more {
			break
		}
	}
	return s.Result()
}

// Stepper executes a recipe one step at a time, with the same
// semantics as Execute. The debugger drives it interactively; Execute
// drives it to completion. A Stepper is not safe for concurrent use.
type Stepper struct {
	x      *Executor
	recipe *recipe.Recipe
	vc     *VarContext
	trace  *TraceWriter
	result *RunResult
	index  int
	done   bool
}

// NewStepper starts an execution without running any step yet.
func (x *Executor) NewStepper(r *recipe.Recipe, vars map[string]any) *Stepper {
	result := &RunResult{
		ExecutionID: uuid.NewString(),
		RecipeID:    r.ID,
		RecipeName:  r.Name,
		Status:      RunCompleted,
		StartedAt:   time.Now().UTC(),
	}
	trace := x.openTrace(result.ExecutionID)
	trace.Emit(result.ExecutionID, EventRunStart, map[string]any{
		"recipe_id":   r.ID,
		"recipe_name": r.Name,
		"steps":       len(r.Steps),
	})
	return &Stepper{
		x:      x,
		recipe: r,
		vc:     NewVarContext(vars),
		trace:  trace,
		result: result,
	}
}

// Result returns the run record. It is complete only once Done
// reports true.
func (s *Stepper) Result() *RunResult { return s.result }

// Done reports whether the run has reached a terminal status.
func (s *Stepper) Done() bool { return s.done }

// Index returns the position of the next step to execute.
func (s *Stepper) Index() int { return s.index }

// Current returns the next step to execute, or ok=false when none
// remains.
func (s *Stepper) Current() (recipe.Step, bool) {
	if s.done || s.index >= len(s.recipe.Steps) {
		return recipe.Step{}, false
	}
	return s.recipe.Steps[s.index], true
}

// Vars returns a snapshot of the current variable bindings.
func (s *Stepper) Vars() map[string]any { return s.vc.Snapshot() }

// Next executes the next step and returns the outcomes it recorded (a
// retried step records two). more is false once the run has reached a
// terminal status; the final call finalizes the result, writes
// artifacts, and records the run in the history.
func (s *Stepper) Next(ctx context.Context) (outcomes []StepOutcome, more bool) {
	if s.done {
		return nil, false
	}

	// Cancellation is checked between steps only; a step that has
	// started is allowed to finish and be recorded.
	if err := ctx.Err(); err != nil {
		s.result.Status = RunCancelled
		s.result.Error = fmt.Sprintf("execution cancelled: %v", err)
		s.finish()
		return nil, false
	}

	if s.index >= len(s.recipe.Steps) {
		s.finish()
		return nil, false
	}
	step := s.recipe.Steps[s.index]
	s.index++

	run, warning := evalCondition(step.Condition, s.result.Steps, s.vc)
	if warning != "" {
		s.x.logf("engine: step %q: %s", step.ID, warning)
		s.trace.Emit(s.result.ExecutionID, EventWarning, map[string]any{
			"step_id": step.ID,
			"message": warning,
		})
	}
	if !run {
		now := time.Now().UTC()
		outcome := StepOutcome{
			StepID:      step.ID,
			ToolName:    step.ToolName,
			Status:      StepSkipped,
			SkipReason:  fmt.Sprintf("condition %q not met", step.Condition),
			StartedAt:   now,
			CompletedAt: now,
		}
		s.result.Steps = append(s.result.Steps, outcome)
		s.trace.Emit(s.result.ExecutionID, EventStepSkip, map[string]any{
			"step_id":   step.ID,
			"condition": step.Condition,
		})
		return s.tail(1)
	}

	params := s.vc.SubstituteParams(step.Parameters)

	s.trace.Emit(s.result.ExecutionID, EventStepStart, map[string]any{
		"step_id":   step.ID,
		"tool_name": step.ToolName,
	})

	outcome := s.x.attemptStep(ctx, step, params, 1)
	s.result.Steps = append(s.result.Steps, outcome)
	s.trace.Emit(s.result.ExecutionID, EventStepComplete, stepEventData(outcome))

	if outcome.Status == StepSuccess {
		s.vc.Bind(ResultVar(step.ID), outcome.Result)
		return s.tail(1)
	}

	switch step.OnError {
	case recipe.OnErrorContinue:
		return s.tail(1)

	case recipe.OnErrorRetry:
		s.trace.Emit(s.result.ExecutionID, EventStepRetry, map[string]any{
			"step_id": step.ID,
		})
		retried := s.x.attemptStep(ctx, step, params, 2)
		if retried.Status == StepSuccess {
			// The original failure stays on the record; the retry
			// appends its own success outcome after it.
			s.result.Steps = append(s.result.Steps, retried)
			s.trace.Emit(s.result.ExecutionID, EventStepComplete, stepEventData(retried))
			s.vc.Bind(ResultVar(step.ID), retried.Result)
			return s.tail(2)
		}
		s.x.logf("engine: step %q failed on retry: %s", step.ID, retried.Failure.Message)
		return s.tail(1)

	default: // recipe.OnErrorStop
		s.result.Status = RunFailed
		s.result.Error = fmt.Sprintf("step %q failed: %s", step.ID, outcome.Failure.Message)
		s.finish()
		return s.result.Steps[len(s.result.Steps)-1:], false
	}
}

// tail returns the last n recorded outcomes and finalizes the run when
// no step remains.
func (s *Stepper) tail(n int) ([]StepOutcome, bool) {
	out := s.result.Steps[len(s.result.Steps)-n:]
	if s.index >= len(s.recipe.Steps) {
		s.finish()
		return out, false
	}
	return out, true
}

func (s *Stepper) finish() {
	if s.done {
		return
	}
	s.done = true
	s.result.CompletedAt = time.Now().UTC()

	summary := s.result.Summary()
	s.trace.Emit(s.result.ExecutionID, EventRunComplete, map[string]any{
		"status":    string(s.result.Status),
		"total":     summary.Total,
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
		"skipped":   summary.Skipped,
	})
	s.trace.Close()

	s.x.writeArtifacts(s.result)
	if s.x.history != nil {
		s.x.history.Add(s.result)
	}
}

// attemptStep invokes the step's capability once and classifies the
// result. Deferred results are awaited here so recorded outcomes never
// hold unresolved placeholders.
func (x *Executor) attemptStep(ctx context.Context, step recipe.Step, params map[string]any, attempt int) StepOutcome {
	outcome := StepOutcome{
		StepID:    step.ID,
		ToolName:  step.ToolName,
		Attempt:   attempt,
		StartedAt: time.Now().UTC(),
	}

	val, err := x.caps.Invoke(ctx, step.ToolName, x.handle, params)
	if err == nil {
		if d, ok := val.(capability.Deferred); ok {
			val, err = d.Await(ctx)
		}
	}
	outcome.CompletedAt = time.Now().UTC()

	if err != nil {
		kind := FailureExecution
		if errors.Is(err, capability.ErrNotFound) {
			kind = FailureToolNotFound
		}
		outcome.Status = StepError
		outcome.Failure = &Failure{Kind: kind, Message: err.Error()}
		return outcome
	}

	outcome.Status = StepSuccess
	outcome.Result = val
	return outcome
}

// openTrace returns a per-run trace writer, or nil (a valid no-op
// writer) when no artifacts directory is configured.
func (x *Executor) openTrace(executionID string) *TraceWriter {
	if x.artifactsDir == "" {
		return nil
	}
	dir := filepath.Join(x.artifactsDir, executionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		x.logf("engine: create artifacts dir %s: %v", dir, err)
		return nil
	}
	tw, err := NewTraceFile(filepath.Join(dir, "trace.jsonl"))
	if err != nil {
		x.logf("engine: %v", err)
		return nil
	}
	return tw
}

func (x *Executor) writeArtifacts(result *RunResult) {
	if x.artifactsDir == "" {
		return
	}
	dir := filepath.Join(x.artifactsDir, result.ExecutionID)
	if err := WriteManifest(dir, result); err != nil {
		x.logf("engine: %v", err)
	}
}

func stepEventData(o StepOutcome) map[string]any {
	data := map[string]any{
		"step_id": o.StepID,
		"status":  string(o.Status),
		"attempt": o.Attempt,
	}
	if o.Failure != nil {
		data["failure_kind"] = string(o.Failure.Kind)
		data["failure"] = o.Failure.Message
	}
	return data
}
