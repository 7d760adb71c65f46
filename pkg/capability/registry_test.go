package capability

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

func TestInvokeUnknownReturnsNotFound(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Invoke(context.Background(), "missing", nil, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestInvokePassesHandleAndParams(t *testing.T) {
	reg := NewRegistry()
	reg.Register("probe", func(ctx context.Context, handle any, params map[string]any) (any, error) {
		if handle != "session-7" {
			t.Errorf("handle = %v, want session-7", handle)
		}
		return params["x"], nil
	})

	got, err := reg.Invoke(context.Background(), "probe", "session-7", map[string]any{"x": 3})
	if err != nil {
		t.Fatal(err)
	}
	if got != 3 {
		t.Errorf("result = %v, want 3", got)
	}
}

func TestRegisterReplaces(t *testing.T) {
	reg := NewRegistry()
	reg.Register("f", func(ctx context.Context, handle any, params map[string]any) (any, error) {
		return "old", nil
	})
	reg.Register("f", func(ctx context.Context, handle any, params map[string]any) (any, error) {
		return "new", nil
	})
	got, _ := reg.Invoke(context.Background(), "f", nil, nil)
	if got != "new" {
		t.Errorf("result = %v, want new", got)
	}
}

func TestNamesSorted(t *testing.T) {
	reg := NewRegistry()
	RegisterBuiltins(reg)
	names := reg.Names()
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("names not sorted: %v", names)
		}
	}
	if len(names) != 4 {
		t.Errorf("builtins = %v, want 4 capabilities", names)
	}
}

func TestEcho(t *testing.T) {
	got, err := Echo(context.Background(), nil, map[string]any{"message": "hi"})
	if err != nil || got != "hi" {
		t.Errorf("Echo = %v, %v", got, err)
	}
	params := map[string]any{"a": 1}
	got, _ = Echo(context.Background(), nil, params)
	if m, ok := got.(map[string]any); !ok || m["a"] != 1 {
		t.Errorf("Echo without message = %v, want params back", got)
	}
}

func TestSleepHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Sleep(ctx, nil, map[string]any{"duration": "1h"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}

	start := time.Now()
	got, err := Sleep(context.Background(), nil, map[string]any{"duration": "1ms"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "1ms" || time.Since(start) > time.Second {
		t.Errorf("Sleep = %v after %v", got, time.Since(start))
	}

	if _, err := Sleep(context.Background(), nil, map[string]any{"duration": "soon"}); err == nil {
		t.Error("invalid duration accepted")
	}
}

func TestEnv(t *testing.T) {
	os.Setenv("RECETA_TEST_VAR", "set")
	defer os.Unsetenv("RECETA_TEST_VAR")

	got, err := Env(context.Background(), nil, map[string]any{"name": "RECETA_TEST_VAR"})
	if err != nil || got != "set" {
		t.Errorf("Env = %v, %v", got, err)
	}
	got, err = Env(context.Background(), nil, map[string]any{"name": "RECETA_TEST_UNSET", "default": "fallback"})
	if err != nil || got != "fallback" {
		t.Errorf("Env default = %v, %v", got, err)
	}
	if _, err := Env(context.Background(), nil, map[string]any{"name": "RECETA_TEST_UNSET"}); err == nil {
		t.Error("missing variable without default accepted")
	}
}

func TestRender(t *testing.T) {
	got, err := Render(context.Background(), nil, map[string]any{
		"template": "deploy {{.service}} to {{.env}}",
		"service":  "api",
		"env":      "prod",
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != "deploy api to prod" {
		t.Errorf("Render = %q", got)
	}

	if _, err := Render(context.Background(), nil, map[string]any{
		"template": "{{.missing}}",
	}); err == nil {
		t.Error("missing key accepted")
	}
}
