package recipe

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// GenerateJSONSchema produces a JSON Schema Draft 2020-12 document
// from the Go Recipe struct using invopop/jsonschema. The output is
// used by the semantic validation phase and exported for editor
// integration via `receta schema` and the recipe/schema MCP tool.
func GenerateJSONSchema() ([]byte, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = false

	s := r.Reflect(&Recipe{})
	s.ID = "https://github.com/ormasoftchile/receta/schemas/recipe-v1.json"
	s.Title = "Recipe v1"
	s.Description = "Schema for receta workflow recipe documents (Draft 2020-12)"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return data, nil
}
