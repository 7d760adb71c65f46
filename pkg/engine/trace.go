package engine

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// EventType identifies a trace record.
type EventType string

const (
	EventRunStart     EventType = "run_start"
	EventRunComplete  EventType = "run_complete"
	EventStepStart    EventType = "step_start"
	EventStepComplete EventType = "step_complete"
	EventStepSkip     EventType = "step_skip"
	EventStepRetry    EventType = "step_retry"
	EventWarning      EventType = "warning"
)

// Event is one trace record, written as a single JSON line.
type Event struct {
	Type        EventType      `json:"type"`
	Timestamp   time.Time      `json:"ts"`
	ExecutionID string         `json:"execution_id"`
	Data        map[string]any `json:"data,omitempty"`
}

// TraceWriter appends execution events to a JSONL stream. A nil
// TraceWriter is valid and discards everything, so the executor never
// guards emit calls.
type TraceWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
	c   io.Closer
}

// NewTraceWriter wraps an io.Writer.
func NewTraceWriter(w io.Writer) *TraceWriter {
	return &TraceWriter{enc: json.NewEncoder(w)}
}

// NewTraceFile creates (or truncates) a trace file at path.
func NewTraceFile(path string) (*TraceWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create trace file: %w", err)
	}
	return &TraceWriter{enc: json.NewEncoder(f), c: f}, nil
}

// Emit writes one event. Write failures are reported to stderr rather
// than interrupting the run.
func (t *TraceWriter) Emit(executionID string, typ EventType, data map[string]any) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	ev := Event{
		Type:        typ,
		Timestamp:   time.Now().UTC(),
		ExecutionID: executionID,
		Data:        data,
	}
	if err := t.enc.Encode(ev); err != nil {
		fmt.Fprintf(os.Stderr, "trace: write %s event: %v\n", typ, err)
	}
}

// Close closes the underlying file, if any.
func (t *TraceWriter) Close() error {
	if t == nil || t.c == nil {
		return nil
	}
	return t.c.Close()
}
