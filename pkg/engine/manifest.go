package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// RunManifest is the at-rest summary of one execution, written as
// run.yaml next to the trace when an artifacts directory is
// configured.
type RunManifest struct {
	ExecutionID string       `yaml:"execution_id"`
	RecipeID    string       `yaml:"recipe_id"`
	RecipeName  string       `yaml:"recipe_name"`
	Status      RunStatus    `yaml:"status"`
	Error       string       `yaml:"error,omitempty"`
	StartedAt   string       `yaml:"started_at"`
	EndedAt     string       `yaml:"ended_at"`
	Steps       StepsSummary `yaml:"steps"`
}

// BuildManifest summarizes a run result.
func BuildManifest(r *RunResult) *RunManifest {
	return &RunManifest{
		ExecutionID: r.ExecutionID,
		RecipeID:    r.RecipeID,
		RecipeName:  r.RecipeName,
		Status:      r.Status,
		Error:       r.Error,
		StartedAt:   r.StartedAt.UTC().Format(time.RFC3339),
		EndedAt:     r.CompletedAt.UTC().Format(time.RFC3339),
		Steps:       r.Summary(),
	}
}

// WriteManifest writes run.yaml into dir.
func WriteManifest(dir string, r *RunResult) error {
	data, err := yaml.Marshal(BuildManifest(r))
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	path := filepath.Join(dir, "run.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
