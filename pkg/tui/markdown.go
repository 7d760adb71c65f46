package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/ormasoftchile/receta/pkg/recipe"
)

// RenderMarkdown renders markdown for terminal display. Falls back to
// the raw text when the renderer cannot be constructed.
func RenderMarkdown(md string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(0),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

// RecipeMarkdown produces a markdown description of a recipe for the
// show command.
func RecipeMarkdown(r *recipe.Recipe) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", r.Name)
	if r.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", r.Description)
	}

	fmt.Fprintf(&b, "- **ID**: `%s`\n", r.ID)
	if r.Category != "" {
		fmt.Fprintf(&b, "- **Category**: %s\n", r.Category)
	}
	if len(r.Tags) > 0 {
		fmt.Fprintf(&b, "- **Tags**: %s\n", strings.Join(r.Tags, ", "))
	}
	fmt.Fprintf(&b, "- **Version**: %s\n", r.Version)
	fmt.Fprintf(&b, "- **Author**: %s\n", r.Author)
	if !r.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "- **Created**: %s\n", r.CreatedAt.Format("2006-01-02 15:04 MST"))
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## Steps (%d)\n\n", len(r.Steps))
	for i, s := range r.Steps {
		fmt.Fprintf(&b, "%d. **%s** — `%s`", i+1, s.ID, s.ToolName)
		if s.Description != "" {
			fmt.Fprintf(&b, ": %s", s.Description)
		}
		b.WriteString("\n")
		if s.Condition != "" {
			fmt.Fprintf(&b, "   - condition: `%s`\n", s.Condition)
		}
		if s.OnError != "" && s.OnError != recipe.OnErrorStop {
			fmt.Fprintf(&b, "   - on_error: `%s`\n", s.OnError)
		}
		if len(s.Parameters) > 0 {
			fmt.Fprintf(&b, "   - parameters: %d\n", len(s.Parameters))
		}
	}

	return b.String()
}
