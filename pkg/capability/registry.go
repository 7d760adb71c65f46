// Package capability defines the registry of named, invocable
// capabilities consumed by the recipe executor, plus the builtin and
// MCP-proxied implementations that ship with receta.
package capability

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNotFound reports that no capability is registered under a name.
// The executor treats it differently from an invocation failure: the
// step outcome carries a tool_not_found failure kind.
var ErrNotFound = errors.New("capability not found")

// Func is a single invocable capability. The handle is an opaque
// execution-scoped value the executor passes through unchanged to
// every capability in a run; params are the step's substituted
// parameters. The returned value may be any serializable value, or a
// Deferred the executor resolves before recording the outcome.
type Func func(ctx context.Context, handle any, params map[string]any) (any, error)

// Deferred is a result that is still being produced when the
// capability returns. The executor awaits it so callers never observe
// an unresolved placeholder.
type Deferred interface {
	Await(ctx context.Context) (any, error)
}

// Invoker is the capability-set abstraction the executor depends on.
// Lookup failure must be distinguishable from invocation failure:
// implementations return an error wrapping ErrNotFound when the name
// is unregistered.
type Invoker interface {
	Invoke(ctx context.Context, name string, handle any, params map[string]any) (any, error)
}

// Registry is a map-backed Invoker populated at startup. Lookups are
// safe for concurrent recipe runs; registration normally happens once
// during wiring.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// Register binds a capability under a name, replacing any previous
// binding.
func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

// Invoke looks up and calls the named capability.
func (r *Registry) Invoke(ctx context.Context, name string, handle any, params map[string]any) (any, error) {
	r.mu.RLock()
	fn, ok := r.funcs[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return fn(ctx, handle, params)
}

// Names returns the registered capability names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
