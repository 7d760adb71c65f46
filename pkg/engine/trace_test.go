package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/ormasoftchile/receta/pkg/recipe"
)

func TestArtifactsWritten(t *testing.T) {
	dir := t.TempDir()
	x := NewExecutor(newTestRegistry(), WithArtifactsDir(dir))
	r := &recipe.Recipe{
		ID: "r1", Name: "traced",
		Steps: []recipe.Step{
			step("a", "echo"),
			step("b", "boom"),
		},
	}

	result := x.Execute(context.Background(), r, nil)
	runDir := filepath.Join(dir, result.ExecutionID)

	f, err := os.Open(filepath.Join(runDir, "trace.jsonl"))
	if err != nil {
		t.Fatalf("open trace: %v", err)
	}
	defer f.Close()

	var types []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("parse trace line: %v", err)
		}
		if ev.ExecutionID != result.ExecutionID {
			t.Errorf("event execution_id = %q, want %q", ev.ExecutionID, result.ExecutionID)
		}
		types = append(types, string(ev.Type))
	}

	want := []string{"run_start", "step_start", "step_complete", "step_start", "step_complete", "run_complete"}
	if len(types) != len(want) {
		t.Fatalf("trace has %d events %v, want %v", len(types), types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("event[%d] = %q, want %q", i, types[i], want[i])
		}
	}

	data, err := os.ReadFile(filepath.Join(runDir, "run.yaml"))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var m RunManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		t.Fatalf("parse manifest: %v", err)
	}
	if m.Status != RunFailed {
		t.Errorf("manifest status = %q, want failed", m.Status)
	}
	if m.Steps.Total != 2 || m.Steps.Succeeded != 1 || m.Steps.Failed != 1 {
		t.Errorf("manifest summary = %+v, want total=2 succeeded=1 failed=1", m.Steps)
	}
}

func TestNilTraceWriterIsSafe(t *testing.T) {
	var tw *TraceWriter
	tw.Emit("x", EventRunStart, nil)
	if err := tw.Close(); err != nil {
		t.Errorf("Close on nil writer: %v", err)
	}
}
