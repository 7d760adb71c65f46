package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ormasoftchile/receta/pkg/capability"
	"github.com/ormasoftchile/receta/pkg/engine"
	"github.com/ormasoftchile/receta/pkg/recipe"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := recipe.OpenStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	reg := capability.NewRegistry()
	capability.RegisterBuiltins(reg)
	history := engine.NewHistory(0)
	return &Service{
		Store:    store,
		Executor: engine.NewExecutor(reg, engine.WithStore(store), engine.WithHistory(history)),
		History:  history,
	}
}

func callReq(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("result has no content")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", result.Content[0])
	}
	return tc.Text
}

func TestHandleCreate_MissingName(t *testing.T) {
	svc := newTestService(t)
	result, err := svc.HandleCreate(context.Background(), callReq(map[string]any{}))
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("expected error for missing name")
	}
}

func TestHandleCreateGetDelete(t *testing.T) {
	svc := newTestService(t)
	result, err := svc.HandleCreate(context.Background(), callReq(map[string]any{
		"name":     "greet",
		"category": "demo",
		"steps":    `[{"id": "s1", "tool_name": "echo", "parameters": {"message": "hi"}}]`,
		"tags":     "demo, smoke",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if result.IsError {
		t.Fatalf("create failed: %s", resultText(t, result))
	}

	var created recipe.Recipe
	if err := json.Unmarshal([]byte(resultText(t, result)), &created); err != nil {
		t.Fatal(err)
	}
	if created.ID == "" || len(created.Tags) != 2 {
		t.Errorf("created = %+v", created)
	}

	got, err := svc.HandleGet(context.Background(), callReq(map[string]any{"id": created.ID}))
	if err != nil {
		t.Fatal(err)
	}
	if got.IsError {
		t.Errorf("get failed: %s", resultText(t, got))
	}

	del, err := svc.HandleDelete(context.Background(), callReq(map[string]any{"id": created.ID}))
	if err != nil {
		t.Fatal(err)
	}
	if del.IsError {
		t.Errorf("delete failed: %s", resultText(t, del))
	}
	got, _ = svc.HandleGet(context.Background(), callReq(map[string]any{"id": created.ID}))
	if !got.IsError {
		t.Error("get after delete succeeded")
	}
}

func TestHandleList_Filters(t *testing.T) {
	svc := newTestService(t)
	svc.Store.Create("a", "", "ops", nil, []string{"prod"})
	svc.Store.Create("b", "", "dev", nil, nil)

	result, err := svc.HandleList(context.Background(), callReq(map[string]any{"category": "ops"}))
	if err != nil {
		t.Fatal(err)
	}
	var listed []map[string]any
	if err := json.Unmarshal([]byte(resultText(t, result)), &listed); err != nil {
		t.Fatal(err)
	}
	if len(listed) != 1 || listed[0]["name"] != "a" {
		t.Errorf("listed = %v", listed)
	}
}

func TestHandleExecute(t *testing.T) {
	svc := newTestService(t)
	r, err := svc.Store.Create("run-me", "", "", []recipe.Step{
		{ID: "s1", ToolName: "echo", Parameters: map[string]any{"message": "${greeting}"}},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	result, err := svc.HandleExecute(context.Background(), callReq(map[string]any{
		"id":        r.ID,
		"variables": `{"greeting": "hola"}`,
	}))
	if err != nil {
		t.Fatal(err)
	}
	if result.IsError {
		t.Fatalf("execute failed: %s", resultText(t, result))
	}

	var run engine.RunResult
	if err := json.Unmarshal([]byte(resultText(t, result)), &run); err != nil {
		t.Fatal(err)
	}
	if run.Status != engine.RunCompleted {
		t.Errorf("status = %q, want completed", run.Status)
	}
	if run.Steps[0].Result != "hola" {
		t.Errorf("step result = %v, want substituted variable", run.Steps[0].Result)
	}

	// Unknown recipe is an error result, not a Go error.
	result, err = svc.HandleExecute(context.Background(), callReq(map[string]any{"id": "ghost"}))
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("expected error for unknown recipe")
	}
}

func TestHandleExecute_FailedRunIsErrorResult(t *testing.T) {
	svc := newTestService(t)
	r, err := svc.Store.Create("doomed", "", "", []recipe.Step{
		{ID: "s1", ToolName: "no_such_capability"},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	result, err := svc.HandleExecute(context.Background(), callReq(map[string]any{"id": r.ID}))
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("failed run should set IsError")
	}
	var run engine.RunResult
	if err := json.Unmarshal([]byte(resultText(t, result)), &run); err != nil {
		t.Fatal(err)
	}
	if run.Steps[0].Failure.Kind != engine.FailureToolNotFound {
		t.Errorf("failure kind = %q, want tool_not_found", run.Steps[0].Failure.Kind)
	}
}

func TestHandleHistory(t *testing.T) {
	svc := newTestService(t)
	r, _ := svc.Store.Create("h", "", "", nil, nil)
	svc.Executor.ExecuteByID(context.Background(), r.ID, nil)

	result, err := svc.HandleHistory(context.Background(), callReq(map[string]any{"limit": "5"}))
	if err != nil {
		t.Fatal(err)
	}
	var runs []engine.RunResult
	if err := json.Unmarshal([]byte(resultText(t, result)), &runs); err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Errorf("history = %d runs, want 1", len(runs))
	}
}

func TestHandleSchema(t *testing.T) {
	svc := newTestService(t)
	result, err := svc.HandleSchema(context.Background(), callReq(nil))
	if err != nil {
		t.Fatal(err)
	}
	if result.IsError {
		t.Error("schema export failed")
	}
	if !strings.Contains(resultText(t, result), "tool_name") {
		t.Error("schema does not mention step fields")
	}
}
