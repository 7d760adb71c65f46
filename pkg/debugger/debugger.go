// Package debugger implements the interactive REPL for stepping
// through recipe execution.
package debugger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"github.com/ormasoftchile/receta/pkg/engine"
	"github.com/ormasoftchile/receta/pkg/recipe"
)

// Debugger drives a Stepper interactively, one command at a time.
type Debugger struct {
	recipe  *recipe.Recipe
	stepper *engine.Stepper
	output  io.Writer
	rl      *readline.Instance
}

// New creates a debugger session for the given recipe.
func New(x *engine.Executor, r *recipe.Recipe, vars map[string]any) *Debugger {
	return &Debugger{
		recipe:  r,
		stepper: x.NewStepper(r, vars),
		output:  os.Stdout,
	}
}

// Run starts the interactive REPL loop.
func (d *Debugger) Run(ctx context.Context) error {
	commands := []string{"next", "continue", "print vars", "print steps",
		"outcomes", "dump", "help", "quit"}

	completer := readline.NewPrefixCompleter()
	for _, cmd := range commands {
		completer.Children = append(completer.Children,
			readline.PcItem(cmd))
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          d.buildPrompt(),
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	d.rl = rl
	defer rl.Close()

	fmt.Fprintf(d.output, "receta debugger — %s, %d steps\n", d.recipe.Name, len(d.recipe.Steps))
	fmt.Fprintf(d.output, "Type 'help' for available commands, 'next' to execute next step.\n\n")

	for {
		rl.SetPrompt(d.buildPrompt())
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		switch parts[0] {
		case "next", "n":
			d.handleNext(ctx)
		case "continue", "c":
			d.handleContinue(ctx)
		case "print", "p":
			d.handlePrint(parts)
		case "outcomes", "o":
			d.handleOutcomes()
		case "dump":
			d.handleDump()
		case "help", "?":
			d.handleHelp()
		case "quit", "q":
			fmt.Fprintf(d.output, "Exiting debugger.\n")
			return nil
		default:
			fmt.Fprintf(d.output, "Unknown command: %q. Type 'help' for available commands.\n", parts[0])
		}
	}
}

// buildPrompt creates the prompt string: receta[step N/total | step_id]>
func (d *Debugger) buildPrompt() string {
	step, ok := d.stepper.Current()
	if !ok {
		return "receta[done]> "
	}
	return fmt.Sprintf("receta[%d/%d | %s]> ", d.stepper.Index()+1, len(d.recipe.Steps), step.ID)
}
