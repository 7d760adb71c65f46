package capability

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"text/template"
	"time"
)

// RegisterBuiltins installs the capabilities that ship with receta.
// They are deliberately small: recipes that need real agent tooling
// attach an external MCP server via RegisterMCPServer.
func RegisterBuiltins(r *Registry) {
	r.Register("echo", Echo)
	r.Register("sleep", Sleep)
	r.Register("env", Env)
	r.Register("render", Render)
}

// Echo returns the "message" parameter unchanged, or the full
// parameter map when no message is given. Useful for smoke-testing
// variable substitution.
func Echo(ctx context.Context, handle any, params map[string]any) (any, error) {
	if msg, ok := params["message"]; ok {
		return msg, nil
	}
	return params, nil
}

// Sleep pauses for the "duration" parameter (Go duration string) and
// returns the duration slept. Honors context cancellation.
func Sleep(ctx context.Context, handle any, params map[string]any) (any, error) {
	raw, _ := params["duration"].(string)
	if raw == "" {
		return nil, fmt.Errorf("sleep: duration parameter is required")
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return nil, fmt.Errorf("sleep: invalid duration %q: %w", raw, err)
	}
	select {
	case <-time.After(d):
		return d.String(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Env reads the environment variable named by the "name" parameter.
// Missing variables resolve to the "default" parameter, or an error
// when no default is given.
func Env(ctx context.Context, handle any, params map[string]any) (any, error) {
	name, _ := params["name"].(string)
	if name == "" {
		return nil, fmt.Errorf("env: name parameter is required")
	}
	if val, ok := os.LookupEnv(name); ok {
		return val, nil
	}
	if def, ok := params["default"]; ok {
		return def, nil
	}
	return nil, fmt.Errorf("env: %q is not set", name)
}

// Render evaluates the "template" parameter as a Go text/template
// against the remaining parameters and returns the rendered string.
func Render(ctx context.Context, handle any, params map[string]any) (any, error) {
	raw, _ := params["template"].(string)
	if raw == "" {
		return nil, fmt.Errorf("render: template parameter is required")
	}
	t, err := template.New("render").Option("missingkey=error").Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("render: parse: %w", err)
	}
	data := make(map[string]any, len(params))
	for k, v := range params {
		if k == "template" {
			continue
		}
		data[k] = v
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render: execute: %w", err)
	}
	return buf.String(), nil
}
