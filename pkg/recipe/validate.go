package recipe

import (
	"encoding/json"
	"fmt"
	"strings"

	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// ValidationError is a single validation finding with location context.
type ValidationError struct {
	Phase    string `json:"phase"` // structural, semantic, domain
	Path     string `json:"path"`  // JSON-path-like location (e.g. "steps[1].on_error")
	Message  string `json:"message"`
	Severity string `json:"severity"` // error, warning
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Phase, e.Path, e.Message)
}

// ValidateFile runs the full validation pipeline on a recipe file.
// Phase 1: structural (strict decode)
// Phase 2: semantic (JSON Schema validation)
// Phase 3: domain (custom Go rules)
func ValidateFile(path string) (*Recipe, []*ValidationError) {
	r, err := LoadFile(path)
	if err != nil {
		return nil, []*ValidationError{{
			Phase:    "structural",
			Message:  err.Error(),
			Severity: "error",
		}}
	}
	return r, Validate(r)
}

// Validate runs the semantic and domain phases on an already-decoded
// recipe. Returns nil when the recipe is valid.
func Validate(r *Recipe) []*ValidationError {
	var all []*ValidationError
	all = append(all, validateSemantic(r)...)
	all = append(all, validateDomain(r)...)
	if len(all) == 0 {
		return nil
	}
	return all
}

// validateSemantic validates the recipe against the generated JSON Schema.
func validateSemantic(r *Recipe) []*ValidationError {
	data, err := json.Marshal(r)
	if err != nil {
		return []*ValidationError{semErr(fmt.Sprintf("marshal for schema validation: %v", err))}
	}

	schemaJSON, err := GenerateJSONSchema()
	if err != nil {
		return []*ValidationError{semErr(fmt.Sprintf("generate schema: %v", err))}
	}

	var schemaDoc any
	if err := json.Unmarshal(schemaJSON, &schemaDoc); err != nil {
		return []*ValidationError{semErr(fmt.Sprintf("unmarshal schema: %v", err))}
	}

	c := sjsonschema.NewCompiler()
	if err := c.AddResource("recipe-v1.json", schemaDoc); err != nil {
		return []*ValidationError{semErr(fmt.Sprintf("add schema resource: %v", err))}
	}
	sch, err := c.Compile("recipe-v1.json")
	if err != nil {
		return []*ValidationError{semErr(fmt.Sprintf("compile schema: %v", err))}
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return []*ValidationError{semErr(fmt.Sprintf("unmarshal document: %v", err))}
	}

	if err := sch.Validate(doc); err != nil {
		var errs []*ValidationError
		if ve, ok := err.(*sjsonschema.ValidationError); ok {
			for _, cause := range flattenValidationErrors(ve) {
				errs = append(errs, &ValidationError{
					Phase:    "semantic",
					Path:     strings.Join(cause.InstanceLocation, "/"),
					Message:  fmt.Sprintf("%v", cause.ErrorKind),
					Severity: "error",
				})
			}
		} else {
			errs = append(errs, semErr(err.Error()))
		}
		return errs
	}
	return nil
}

// validateDomain applies rules the schema cannot express.
func validateDomain(r *Recipe) []*ValidationError {
	var errs []*ValidationError

	if strings.TrimSpace(r.Name) == "" {
		errs = append(errs, &ValidationError{
			Phase: "domain", Path: "name",
			Message:  "recipe name must not be empty",
			Severity: "error",
		})
	}

	// Step identifiers must be unique within a recipe. Empty recipes
	// are legal — they execute trivially.
	seen := make(map[string]int)
	for i, s := range r.Steps {
		path := fmt.Sprintf("steps[%d]", i)
		if strings.TrimSpace(s.ID) == "" {
			errs = append(errs, &ValidationError{
				Phase: "domain", Path: path + ".id",
				Message:  "step id must not be empty",
				Severity: "error",
			})
			continue
		}
		if prev, dup := seen[s.ID]; dup {
			errs = append(errs, &ValidationError{
				Phase: "domain", Path: path + ".id",
				Message:  fmt.Sprintf("duplicate step id %q (first used at steps[%d])", s.ID, prev),
				Severity: "error",
			})
		} else {
			seen[s.ID] = i
		}
		if strings.TrimSpace(s.ToolName) == "" {
			errs = append(errs, &ValidationError{
				Phase: "domain", Path: path + ".tool_name",
				Message:  "step tool_name must not be empty",
				Severity: "error",
			})
		}
		switch s.OnError {
		case OnErrorStop, OnErrorContinue, OnErrorRetry:
		default:
			errs = append(errs, &ValidationError{
				Phase: "domain", Path: path + ".on_error",
				Message:  fmt.Sprintf("unknown on_error policy %q (use stop, continue or retry)", s.OnError),
				Severity: "error",
			})
		}
	}

	return errs
}

func semErr(msg string) *ValidationError {
	return &ValidationError{Phase: "semantic", Message: msg, Severity: "error"}
}

// flattenValidationErrors recursively collects all leaf validation errors.
func flattenValidationErrors(ve *sjsonschema.ValidationError) []*sjsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*sjsonschema.ValidationError{ve}
	}
	var flat []*sjsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flattenValidationErrors(cause)...)
	}
	return flat
}

// HasErrors reports whether any finding has error severity.
func HasErrors(errs []*ValidationError) bool {
	for _, e := range errs {
		if e.Severity == "error" {
			return true
		}
	}
	return false
}
