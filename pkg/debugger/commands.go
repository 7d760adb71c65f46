package debugger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ormasoftchile/receta/pkg/engine"
)

// handleNext executes the next step and reports its outcomes.
func (d *Debugger) handleNext(ctx context.Context) {
	if d.stepper.Done() {
		d.printTerminal()
		return
	}
	step, ok := d.stepper.Current()
	if ok {
		fmt.Fprintf(d.output, "Executing step %d: %s [%s]\n", d.stepper.Index()+1, step.ToolName, step.ID)
	}

	outcomes, more := d.stepper.Next(ctx)
	for _, o := range outcomes {
		d.printOutcome(o)
	}
	if !more {
		d.printTerminal()
	}
}

// handleContinue runs all remaining steps.
func (d *Debugger) handleContinue(ctx context.Context) {
	for !d.stepper.Done() {
		outcomes, more := d.stepper.Next(ctx)
		for _, o := range outcomes {
			d.printOutcome(o)
		}
		if !more {
			break
		}
	}
	d.printTerminal()
}

// handlePrint displays variables or the step list.
func (d *Debugger) handlePrint(parts []string) {
	if len(parts) < 2 {
		fmt.Fprintf(d.output, "Usage: print vars|steps\n")
		return
	}
	switch parts[1] {
	case "vars":
		vars := d.stepper.Vars()
		if len(vars) == 0 {
			fmt.Fprintf(d.output, "No variables bound.\n")
			return
		}
		for k, v := range vars {
			display := fmt.Sprintf("%v", v)
			if len(display) > 200 {
				display = display[:200] + "..."
			}
			fmt.Fprintf(d.output, "  %s = %q\n", k, display)
		}
	case "steps":
		for i, s := range d.recipe.Steps {
			marker := " "
			if i == d.stepper.Index() && !d.stepper.Done() {
				marker = "→"
			}
			fmt.Fprintf(d.output, " %s [%d] %s (%s, on_error=%s)\n", marker, i, s.ID, s.ToolName, s.OnError)
		}
	default:
		fmt.Fprintf(d.output, "Unknown print target: %q. Use 'vars' or 'steps'.\n", parts[1])
	}
}

// handleOutcomes shows the outcomes recorded so far.
func (d *Debugger) handleOutcomes() {
	result := d.stepper.Result()
	if len(result.Steps) == 0 {
		fmt.Fprintf(d.output, "No steps executed yet.\n")
		return
	}
	for _, o := range result.Steps {
		d.printOutcome(o)
	}
}

// handleDump outputs the full run record as JSON.
func (d *Debugger) handleDump() {
	data, err := json.MarshalIndent(d.stepper.Result(), "", "  ")
	if err != nil {
		fmt.Fprintf(d.output, "  Error marshaling result: %v\n", err)
		return
	}
	fmt.Fprintln(d.output, string(data))
}

// handleHelp displays available commands.
func (d *Debugger) handleHelp() {
	fmt.Fprintln(d.output, "Available commands:")
	fmt.Fprintln(d.output, "  next (n)         Execute the next step")
	fmt.Fprintln(d.output, "  continue (c)     Execute all remaining steps")
	fmt.Fprintln(d.output, "  print vars       Show current variable bindings")
	fmt.Fprintln(d.output, "  print steps      Show the recipe's steps and the cursor")
	fmt.Fprintln(d.output, "  outcomes (o)     Show recorded step outcomes")
	fmt.Fprintln(d.output, "  dump             Output the run record as JSON")
	fmt.Fprintln(d.output, "  help (?)         Show this help")
	fmt.Fprintln(d.output, "  quit (q)         Exit debugger")
}

func (d *Debugger) printOutcome(o engine.StepOutcome) {
	switch o.Status {
	case engine.StepSuccess:
		fmt.Fprintf(d.output, "  ✓ %s succeeded (attempt %d)\n", o.StepID, o.Attempt)
	case engine.StepError:
		fmt.Fprintf(d.output, "  ✗ %s failed [%s]: %s\n", o.StepID, o.Failure.Kind, o.Failure.Message)
	case engine.StepSkipped:
		fmt.Fprintf(d.output, "  ⊘ %s skipped: %s\n", o.StepID, o.SkipReason)
	}
}

func (d *Debugger) printTerminal() {
	if !d.stepper.Done() {
		return
	}
	result := d.stepper.Result()
	summary := result.Summary()
	fmt.Fprintf(d.output, "Run %s: %s (%d steps: %d ok, %d failed, %d skipped)\n",
		result.ExecutionID, result.Status,
		summary.Total, summary.Succeeded, summary.Failed, summary.Skipped)
	if result.Error != "" {
		fmt.Fprintf(d.output, "  error: %s\n", result.Error)
	}
}
