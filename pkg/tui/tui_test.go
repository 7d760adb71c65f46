package tui

import (
	"strings"
	"testing"

	"github.com/ormasoftchile/receta/pkg/engine"
	"github.com/ormasoftchile/receta/pkg/recipe"
)

func TestRecipeMarkdown(t *testing.T) {
	r := &recipe.Recipe{
		ID:          "abc-123",
		Name:        "deploy",
		Description: "Roll out the service.",
		Category:    "ops",
		Version:     "1.0.0",
		Author:      "user",
		Tags:        []string{"prod", "critical"},
		Steps: []recipe.Step{
			{ID: "check", ToolName: "health.probe", OnError: recipe.OnErrorStop},
			{ID: "roll", ToolName: "deploy.apply", Condition: "previous_success",
				OnError: recipe.OnErrorRetry, Parameters: map[string]any{"env": "prod"}},
		},
	}

	md := RecipeMarkdown(r)
	for _, want := range []string{
		"# deploy",
		"Roll out the service.",
		"`abc-123`",
		"prod, critical",
		"Steps (2)",
		"`health.probe`",
		"condition: `previous_success`",
		"on_error: `retry`",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
	if strings.Contains(md, "on_error: `stop`") {
		t.Error("default stop policy should not be rendered")
	}
}

func TestRenderMarkdownFallsBackToInput(t *testing.T) {
	// Whatever the terminal environment, rendering must return
	// something non-empty containing the heading text.
	out := RenderMarkdown("# Title\n\nbody")
	if !strings.Contains(out, "Title") {
		t.Errorf("rendered output lost content: %q", out)
	}
}

func TestStepIcon(t *testing.T) {
	cases := map[string]string{
		statePending:               "○",
		stateRunning:               "◉",
		string(engine.StepSuccess): "✓",
		string(engine.StepError):   "✗",
		string(engine.StepSkipped): "⊘",
	}
	for status, want := range cases {
		if got := stepIcon(status); got != want {
			t.Errorf("stepIcon(%q) = %q, want %q", status, got, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 20); got != "short" {
		t.Errorf("truncate should leave short lines alone, got %q", got)
	}
	got := truncate(strings.Repeat("x", 50), 10)
	if !strings.HasSuffix(got, "...") || len(got) > 10 {
		t.Errorf("truncate(50x, 10) = %q", got)
	}
}
