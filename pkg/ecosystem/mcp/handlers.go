package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ormasoftchile/receta/pkg/engine"
	"github.com/ormasoftchile/receta/pkg/recipe"
)

// HandleCreate implements the recipe/create MCP tool.
func (svc *Service) HandleCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	name, _ := args["name"].(string)
	if name == "" {
		return errorResult("name argument is required"), nil
	}
	description, _ := args["description"].(string)
	category, _ := args["category"].(string)

	rawSteps, _ := args["steps"].(string)
	var steps []recipe.Step
	if rawSteps != "" {
		if err := json.Unmarshal([]byte(rawSteps), &steps); err != nil {
			return errorResult(fmt.Sprintf("parse steps: %s", err)), nil
		}
	}

	r, err := svc.Store.Create(name, description, category, steps, splitTags(args["tags"]))
	if err != nil {
		return errorResult(err.Error()), nil
	}
	if errs := recipe.Validate(r); recipe.HasErrors(errs) {
		// Creation already passed domain checks; surface the finding
		// but keep the stored recipe.
		return errorResult(formatErrors(errs)), nil
	}
	return jsonResult(r, false), nil
}

// HandleGet implements the recipe/get MCP tool.
func (svc *Service) HandleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, _ := req.GetArguments()["id"].(string)
	if id == "" {
		return errorResult("id argument is required"), nil
	}
	r, ok := svc.Store.Get(id)
	if !ok {
		return errorResult(fmt.Sprintf("recipe %q not found", id)), nil
	}
	return jsonResult(r, false), nil
}

// HandleList implements the recipe/list MCP tool.
func (svc *Service) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	category, _ := args["category"].(string)
	recipes := svc.Store.List(category, splitTags(args["tags"]))

	type summary struct {
		ID          string   `json:"id"`
		Name        string   `json:"name"`
		Description string   `json:"description,omitempty"`
		Category    string   `json:"category,omitempty"`
		Steps       int      `json:"steps"`
		Tags        []string `json:"tags,omitempty"`
	}
	out := make([]summary, 0, len(recipes))
	for _, r := range recipes {
		out = append(out, summary{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			Category:    r.Category,
			Steps:       len(r.Steps),
			Tags:        r.Tags,
		})
	}
	return jsonResult(out, false), nil
}

// HandleDelete implements the recipe/delete MCP tool.
func (svc *Service) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, _ := req.GetArguments()["id"].(string)
	if id == "" {
		return errorResult("id argument is required"), nil
	}
	if err := svc.Store.Delete(id); err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(fmt.Sprintf("✓ recipe %s deleted", id)), nil
}

// HandleExecute implements the recipe/execute MCP tool. Step failures
// come back as data inside the run result; only a missing recipe is an
// error result.
func (svc *Service) HandleExecute(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id, _ := args["id"].(string)
	if id == "" {
		return errorResult("id argument is required"), nil
	}

	vars := make(map[string]any)
	if raw, _ := args["variables"].(string); raw != "" {
		if err := json.Unmarshal([]byte(raw), &vars); err != nil {
			return errorResult(fmt.Sprintf("parse variables: %s", err)), nil
		}
	}

	result, err := svc.Executor.ExecuteByID(ctx, id, vars)
	if err != nil {
		if errors.Is(err, engine.ErrRecipeNotFound) {
			return errorResult(fmt.Sprintf("recipe %q not found", id)), nil
		}
		return errorResult(err.Error()), nil
	}
	return jsonResult(result, result.Status == engine.RunFailed), nil
}

// HandleHistory implements the recipe/history MCP tool.
func (svc *Service) HandleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := 0
	if raw, _ := req.GetArguments()["limit"].(string); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return errorResult(fmt.Sprintf("parse limit: %s", err)), nil
		}
		limit = n
	}
	return jsonResult(svc.History.Recent(limit), false), nil
}

// HandleSchema implements the recipe/schema MCP tool.
func (svc *Service) HandleSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := recipe.GenerateJSONSchema()
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(string(data)), nil
}

func splitTags(v any) []string {
	raw, _ := v.(string)
	if raw == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func formatErrors(errs []*recipe.ValidationError) string {
	var msgs []string
	for _, e := range errs {
		if e.Severity == "error" {
			msgs = append(msgs, fmt.Sprintf("[%s] %s: %s", e.Phase, e.Path, e.Message))
		}
	}
	return strings.Join(msgs, "; ")
}

func jsonResult(v any, isError bool) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("marshal result: %s", err))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(data))},
		IsError: isError,
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(msg),
		},
		IsError: true,
	}
}
