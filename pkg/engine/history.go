package engine

import (
	"sync"
)

// DefaultHistorySize bounds the in-memory execution history.
const DefaultHistorySize = 100

// History retains recent run results in memory, newest first, capped
// at a fixed size. It exists so interactive surfaces (CLI history, the
// MCP server) can answer "what just ran" without reading artifacts
// back from disk.
type History struct {
	mu   sync.RWMutex
	max  int
	runs []*RunResult
}

// NewHistory returns a history bounded at max entries (DefaultHistorySize
// when max is not positive).
func NewHistory(max int) *History {
	if max <= 0 {
		max = DefaultHistorySize
	}
	return &History{max: max}
}

// Add records a run, evicting the oldest entry when full.
func (h *History) Add(r *RunResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runs = append([]*RunResult{r}, h.runs...)
	if len(h.runs) > h.max {
		h.runs = h.runs[:h.max]
	}
}

// Recent returns up to n runs, newest first. n <= 0 returns all.
func (h *History) Recent(n int) []*RunResult {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if n <= 0 || n > len(h.runs) {
		n = len(h.runs)
	}
	out := make([]*RunResult, n)
	copy(out, h.runs[:n])
	return out
}

// Get returns the run with the given execution ID.
func (h *History) Get(executionID string) (*RunResult, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, r := range h.runs {
		if r.ExecutionID == executionID {
			return r, true
		}
	}
	return nil, false
}

// Len returns the number of retained runs.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.runs)
}
