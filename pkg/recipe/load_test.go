package recipe

import (
	"reflect"
	"testing"
	"time"
)

// TestJSONRoundTripEquality exercises the wire-format law: decoding an
// encoded recipe reproduces it exactly. The fixture populates every
// field, including typed parameter values, nested structures, metadata,
// and all three failure policies. Numbers are float64 because that is
// what the wire format carries.
func TestJSONRoundTripEquality(t *testing.T) {
	r := &Recipe{
		ID:          "rt-1",
		Name:        "full roundtrip",
		Description: "every field populated",
		Category:    "ops",
		Steps: []Step{
			{
				ID:          "fetch",
				ToolName:    "http_get",
				Description: "pull the payload",
				Parameters: map[string]any{
					"url":     "http://example.test",
					"retries": float64(3),
					"timeout": 2.5,
					"verbose": true,
					"headers": map[string]any{"accept": "application/json"},
					"codes":   []any{float64(200), float64(204)},
				},
				OnError: OnErrorRetry,
			},
			{
				ID:         "transform",
				ToolName:   "render",
				Parameters: map[string]any{"input": "${step_fetch_result}"},
				Condition:  "previous_success",
				OnError:    OnErrorContinue,
			},
			{
				ID:       "notify",
				ToolName: "echo",
				OnError:  OnErrorStop,
			},
		},
		Metadata:  map[string]any{"owner": "platform", "priority": float64(1)},
		CreatedAt: time.Date(2026, 8, 20, 9, 30, 0, 123456789, time.UTC),
		UpdatedAt: time.Date(2026, 8, 21, 17, 45, 10, 0, time.UTC),
		Version:   "2.0.1",
		Author:    "user",
		Tags:      []string{"prod", "critical"},
	}

	data, err := EncodeJSON(r)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeJSON(data)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(r, got) {
		t.Errorf("round trip changed the recipe:\n before: %#v\n after:  %#v", r, got)
	}
}
