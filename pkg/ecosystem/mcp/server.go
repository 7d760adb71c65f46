// Package mcp exposes the recipe library and executor as MCP tools so
// AI agents can create, inspect, and run recipes over stdio.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ormasoftchile/receta/pkg/engine"
	"github.com/ormasoftchile/receta/pkg/recipe"
)

// Service bundles the state the tool handlers operate on.
type Service struct {
	Store    *recipe.Store
	Executor *engine.Executor
	History  *engine.History
}

// NewServer creates an MCP server with the recipe tools registered.
func NewServer(version string, svc *Service) *server.MCPServer {
	s := server.NewMCPServer(
		"receta",
		version,
		server.WithToolCapabilities(true),
	)

	s.AddTool(
		mcp.NewTool("recipe/create",
			mcp.WithDescription("Create and persist a new recipe from a JSON definition"),
			mcp.WithString("name", mcp.Required(), mcp.Description("Recipe name")),
			mcp.WithString("description", mcp.Description("What the recipe does")),
			mcp.WithString("category", mcp.Description("Grouping category (e.g. ops, dev)")),
			mcp.WithString("steps", mcp.Required(), mcp.Description("JSON array of step objects (id, tool_name, parameters, condition, on_error)")),
			mcp.WithString("tags", mcp.Description("Comma-separated tags")),
		),
		svc.HandleCreate,
	)

	s.AddTool(
		mcp.NewTool("recipe/get",
			mcp.WithDescription("Fetch a recipe definition by id"),
			mcp.WithString("id", mcp.Required(), mcp.Description("Recipe id")),
		),
		svc.HandleGet,
	)

	s.AddTool(
		mcp.NewTool("recipe/list",
			mcp.WithDescription("List recipes, optionally filtered by category and tags"),
			mcp.WithString("category", mcp.Description("Only recipes in this category")),
			mcp.WithString("tags", mcp.Description("Comma-separated tags; recipes matching any are included")),
		),
		svc.HandleList,
	)

	s.AddTool(
		mcp.NewTool("recipe/delete",
			mcp.WithDescription("Delete a recipe by id (no-op when unknown)"),
			mcp.WithString("id", mcp.Required(), mcp.Description("Recipe id")),
		),
		svc.HandleDelete,
	)

	s.AddTool(
		mcp.NewTool("recipe/execute",
			mcp.WithDescription("Execute a stored recipe and return the structured run result"),
			mcp.WithString("id", mcp.Required(), mcp.Description("Recipe id")),
			mcp.WithString("variables", mcp.Description("JSON object of initial variables")),
		),
		svc.HandleExecute,
	)

	s.AddTool(
		mcp.NewTool("recipe/history",
			mcp.WithDescription("Return recent recipe executions, newest first"),
			mcp.WithString("limit", mcp.Description("Maximum number of runs to return")),
		),
		svc.HandleHistory,
	)

	s.AddTool(
		mcp.NewTool("recipe/schema",
			mcp.WithDescription("Export the recipe JSON Schema (Draft 2020-12)"),
		),
		svc.HandleSchema,
	)

	return s
}
