package recipe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DecodeJSON parses a recipe from its JSON wire format. Unknown fields
// are rejected so that typos in hand-edited store files surface at
// load time instead of silently dropping data.
func DecodeJSON(data []byte) (*Recipe, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var r Recipe
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("decode recipe: %w", err)
	}
	r.applyDefaults()
	return &r, nil
}

// EncodeJSON serializes a recipe to its canonical wire format.
// EncodeJSON and DecodeJSON round-trip: decoding the output yields an
// equal recipe.
func EncodeJSON(r *Recipe) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode recipe: %w", err)
	}
	return data, nil
}

// Load parses a recipe authoring document (YAML) from a reader with
// strict unknown-field rejection.
func Load(rd io.Reader) (*Recipe, error) {
	dec := yaml.NewDecoder(rd)
	dec.KnownFields(true)

	var r Recipe
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("decode recipe: %w", err)
	}
	r.applyDefaults()
	return &r, nil
}

// LoadFile reads a recipe definition from disk. JSON files go through
// the wire-format decoder; anything else is treated as authoring YAML.
func LoadFile(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recipe: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return DecodeJSON(data)
	}
	return Load(bytes.NewReader(data))
}
