// Package main provides the receta-mcp binary — MCP server exposing
// the recipe store and executor to AI agents.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ormasoftchile/receta/pkg/capability"
	"github.com/ormasoftchile/receta/pkg/ecosystem/mcp"
	"github.com/ormasoftchile/receta/pkg/engine"
	"github.com/ormasoftchile/receta/pkg/recipe"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	home := os.Getenv("RECETA_HOME")
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home directory: %w", err)
		}
		home = filepath.Join(userHome, ".receta")
	}

	store, err := recipe.OpenStore(filepath.Join(home, "recipes"))
	if err != nil {
		return err
	}

	reg := capability.NewRegistry()
	capability.RegisterBuiltins(reg)

	history := engine.NewHistory(engine.DefaultHistorySize)
	executor := engine.NewExecutor(reg,
		engine.WithStore(store),
		engine.WithHistory(history),
		engine.WithArtifactsDir(filepath.Join(home, "runs")),
	)

	s := mcp.NewServer(version, &mcp.Service{
		Store:    store,
		Executor: executor,
		History:  history,
	})
	return server.ServeStdio(s)
}
