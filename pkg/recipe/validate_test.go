package recipe

import (
	"os"
	"path/filepath"
	"testing"
)

func validRecipe() *Recipe {
	r := &Recipe{
		Name:     "restart service",
		Category: "ops",
		Steps: []Step{
			{ID: "check", ToolName: "health_check"},
			{ID: "restart", ToolName: "service_restart", Condition: "previous_success"},
		},
	}
	r.applyDefaults()
	return r
}

func TestValidateAcceptsValidRecipe(t *testing.T) {
	if errs := Validate(validRecipe()); errs != nil {
		t.Errorf("valid recipe rejected: %v", errs[0])
	}
}

func TestValidateEmptyStepsIsLegal(t *testing.T) {
	r := &Recipe{Name: "noop", Steps: []Step{}}
	r.applyDefaults()
	if errs := Validate(r); HasErrors(errs) {
		t.Errorf("empty recipe rejected: %v", errs[0])
	}
}

func TestValidateDomainRules(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Recipe)
		path   string
	}{
		{"empty name", func(r *Recipe) { r.Name = "  " }, "name"},
		{"empty step id", func(r *Recipe) { r.Steps[0].ID = "" }, "steps[0].id"},
		{"duplicate step id", func(r *Recipe) { r.Steps[1].ID = "check" }, "steps[1].id"},
		{"empty tool name", func(r *Recipe) { r.Steps[1].ToolName = "" }, "steps[1].tool_name"},
		{"bad on_error", func(r *Recipe) { r.Steps[0].OnError = "explode" }, "steps[0].on_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := validRecipe()
			tc.mutate(r)
			errs := validateDomain(r)
			if !HasErrors(errs) {
				t.Fatal("invalid recipe accepted")
			}
			found := false
			for _, e := range errs {
				if e.Path == tc.path {
					found = true
				}
			}
			if !found {
				t.Errorf("no finding at %q, got %v", tc.path, errs)
			}
		})
	}
}

func TestValidateFileStructuralFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("name: x\nunknown_field: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, errs := ValidateFile(path)
	if !HasErrors(errs) {
		t.Fatal("unknown field accepted by strict decode")
	}
	if errs[0].Phase != "structural" {
		t.Errorf("phase = %q, want structural", errs[0].Phase)
	}
}

func TestValidateFileYAMLAndJSON(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "r.yaml")
	yamlDoc := `name: from yaml
category: ops
steps:
  - id: one
    tool_name: echo
    on_error: continue
`
	if err := os.WriteFile(yamlPath, []byte(yamlDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	r, errs := ValidateFile(yamlPath)
	if HasErrors(errs) {
		t.Fatalf("yaml recipe rejected: %v", errs[0])
	}
	if r.Steps[0].OnError != OnErrorContinue {
		t.Errorf("on_error = %q, want continue", r.Steps[0].OnError)
	}

	jsonPath := filepath.Join(dir, "r.json")
	jsonDoc := `{"name": "from json", "steps": [{"id": "one", "tool_name": "echo"}]}`
	if err := os.WriteFile(jsonPath, []byte(jsonDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	r, errs = ValidateFile(jsonPath)
	if HasErrors(errs) {
		t.Fatalf("json recipe rejected: %v", errs[0])
	}
	if r.Steps[0].OnError != OnErrorStop {
		t.Errorf("default on_error = %q, want stop", r.Steps[0].OnError)
	}
}

func TestGenerateJSONSchema(t *testing.T) {
	data, err := GenerateJSONSchema()
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Fatal("empty schema")
	}
	// The schema must be usable by the semantic phase.
	if errs := validateSemantic(validRecipe()); errs != nil {
		t.Errorf("semantic validation of valid recipe: %v", errs[0])
	}
}
