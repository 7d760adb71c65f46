// Package recipe defines the recipe document model, strict parsing,
// validation, JSON Schema export, and the file-backed recipe store.
package recipe

import (
	"time"
)

// OnError is the per-step failure policy.
type OnError string

const (
	// OnErrorStop halts the run at the first failure of this step.
	OnErrorStop OnError = "stop"
	// OnErrorContinue records the failure and proceeds to the next step.
	OnErrorContinue OnError = "continue"
	// OnErrorRetry re-invokes the step exactly once before proceeding.
	OnErrorRetry OnError = "retry"
)

// DefaultVersion and DefaultAuthor are applied to recipes created or
// decoded without explicit values.
const (
	DefaultVersion = "1.0.0"
	DefaultAuthor  = "user"
)

// Step is one unit of work in a recipe: a capability name, parameters,
// an optional condition, and a failure policy. Parameter values may be
// literals of any JSON type or exact `${variable}` references resolved
// at execution time. tool_name is late-bound — it is checked against
// the capability registry when the step runs, not when the recipe is
// saved.
type Step struct {
	ID          string         `yaml:"id"                    json:"id"                    jsonschema:"required"`
	ToolName    string         `yaml:"tool_name"             json:"tool_name"             jsonschema:"required"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty"`
	Parameters  map[string]any `yaml:"parameters,omitempty"  json:"parameters,omitempty"`
	Condition   string         `yaml:"condition,omitempty"   json:"condition,omitempty"`
	OnError     OnError        `yaml:"on_error,omitempty"    json:"on_error,omitempty"    jsonschema:"enum=stop,enum=continue,enum=retry"`
}

// Recipe is a named, versioned workflow definition. Immutable once
// saved: updates go through Store.Save with a full replacement.
type Recipe struct {
	ID          string         `yaml:"id,omitempty"          json:"id,omitempty"`
	Name        string         `yaml:"name"                  json:"name"                  jsonschema:"required"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty"`
	Category    string         `yaml:"category,omitempty"    json:"category,omitempty"`
	Steps       []Step         `yaml:"steps"                 json:"steps"`
	Metadata    map[string]any `yaml:"metadata,omitempty"    json:"metadata,omitempty"`
	CreatedAt   time.Time      `yaml:"created_at,omitempty"  json:"created_at,omitempty"`
	UpdatedAt   time.Time      `yaml:"updated_at,omitempty"  json:"updated_at,omitempty"`
	Version     string         `yaml:"version,omitempty"     json:"version,omitempty"`
	Author      string         `yaml:"author,omitempty"      json:"author,omitempty"`
	Tags        []string       `yaml:"tags,omitempty"        json:"tags,omitempty"`
}

// applyDefaults fills zero-valued optional fields after decode.
func (r *Recipe) applyDefaults() {
	if r.Version == "" {
		r.Version = DefaultVersion
	}
	if r.Author == "" {
		r.Author = DefaultAuthor
	}
	for i := range r.Steps {
		if r.Steps[i].OnError == "" {
			r.Steps[i].OnError = OnErrorStop
		}
	}
}

// Clone returns a deep copy. The store hands out clones so that a
// caller holding a recipe during execution cannot mutate the at-rest
// definition.
func (r *Recipe) Clone() *Recipe {
	c := *r
	if r.Steps != nil {
		c.Steps = make([]Step, len(r.Steps))
		for i, s := range r.Steps {
			c.Steps[i] = s
			c.Steps[i].Parameters = cloneMap(s.Parameters)
		}
	}
	c.Metadata = cloneMap(r.Metadata)
	if r.Tags != nil {
		c.Tags = append([]string(nil), r.Tags...)
	}
	return &c
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// HasTag reports whether the recipe carries the given tag.
func (r *Recipe) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
