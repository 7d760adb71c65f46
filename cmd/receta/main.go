package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ormasoftchile/receta/pkg/capability"
	"github.com/ormasoftchile/receta/pkg/debugger"
	"github.com/ormasoftchile/receta/pkg/engine"
	"github.com/ormasoftchile/receta/pkg/recipe"
	"github.com/ormasoftchile/receta/pkg/tui"
)

// Version is set at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	loadDotEnv() // load .env file if present (gitignored)
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errRunFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// errRunFailed signals a nonzero exit for a run that finished with a
// failed status. Commands return it instead of exiting in place so
// deferred cleanup (spawned MCP servers) runs first; the outcome has
// already been printed, so main exits without repeating it.
var errRunFailed = errors.New("run failed")

// loadDotEnv reads a .env file from the working directory and sets
// any variables that aren't already set in the environment.
// Lines are KEY=VALUE (or KEY="VALUE"). Comments (#) and blanks are skipped.
// The .env file is gitignored so secrets never end up in source control.
func loadDotEnv() {
	f, err := os.Open(".env")
	if err != nil {
		return // no .env file — that's fine
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		// Remove surrounding quotes
		val = strings.Trim(val, `"'`)
		// Don't overwrite existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, val)
		}
	}
}

var rootCmd = &cobra.Command{
	Use:           "receta",
	Short:         "Declarative recipe engine",
	Long:          "receta — store, validate, execute and debug declarative multi-step recipes.",
	SilenceErrors: true,
	SilenceUsage:  true,
}

var homeFlag string

// homeDir resolves the receta home: --home flag, then RECETA_HOME,
// then ~/.receta. Recipes live under home/recipes, run artifacts
// under home/runs.
func homeDir() string {
	if homeFlag != "" {
		return homeFlag
	}
	if env := os.Getenv("RECETA_HOME"); env != "" {
		return env
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return ".receta"
	}
	return filepath.Join(userHome, ".receta")
}

func openStore() (*recipe.Store, error) {
	return recipe.OpenStore(filepath.Join(homeDir(), "recipes"))
}

// newExecutor wires the capability registry (builtins plus any --mcp
// servers), the artifacts directory and the store into an executor.
// The returned cleanup shuts down spawned MCP servers.
func newExecutor(ctx context.Context, store *recipe.Store) (*engine.Executor, func(), error) {
	reg := capability.NewRegistry()
	capability.RegisterBuiltins(reg)

	var servers []*capability.MCPServer
	for _, spec := range mcpServers {
		prefix, command, found := strings.Cut(spec, "=")
		if !found {
			return nil, nil, fmt.Errorf("invalid --mcp %q: expected prefix=command [args...]", spec)
		}
		argv := strings.Fields(command)
		if len(argv) == 0 {
			return nil, nil, fmt.Errorf("invalid --mcp %q: empty command", spec)
		}
		srv, err := capability.RegisterMCPServer(ctx, reg, prefix, argv[0], argv[1:]...)
		if err != nil {
			return nil, nil, fmt.Errorf("start MCP server %q: %w", prefix, err)
		}
		fmt.Fprintf(os.Stderr, "  [mcp] %s: %d tool(s)\n", prefix, len(srv.Tools()))
		servers = append(servers, srv)
	}

	cleanup := func() {
		for _, srv := range servers {
			srv.Shutdown(2 * time.Second)
		}
	}

	x := engine.NewExecutor(reg,
		engine.WithStore(store),
		engine.WithArtifactsDir(filepath.Join(homeDir(), "runs")),
	)
	return x, cleanup, nil
}

// resolveRecipe accepts either a store identifier or a path to a
// recipe file. File paths are validated before use.
func resolveRecipe(store *recipe.Store, arg string) (*recipe.Recipe, error) {
	if _, err := os.Stat(arg); err == nil {
		r, errs := recipe.ValidateFile(arg)
		if recipe.HasErrors(errs) {
			printValidationErrors(errs)
			return nil, fmt.Errorf("recipe validation failed")
		}
		return r, nil
	}
	r, ok := store.Get(arg)
	if !ok {
		return nil, fmt.Errorf("no recipe %q in store (and no such file)", arg)
	}
	return r, nil
}

func parseVars(pairs []string) (map[string]any, error) {
	vars := make(map[string]any, len(pairs))
	for _, v := range pairs {
		key, val, found := strings.Cut(v, "=")
		if !found {
			return nil, fmt.Errorf("invalid --var %q: expected key=value", v)
		}
		vars[key] = val
	}
	return vars, nil
}

func printValidationErrors(errs []*recipe.ValidationError) {
	n := 0
	for _, e := range errs {
		if e.Severity == "error" {
			n++
		}
	}
	fmt.Fprintf(os.Stderr, "Validation failed: %d error(s)\n", n)
	for _, e := range errs {
		fmt.Fprintf(os.Stderr, "  [%s] %s\n", e.Phase, e.Message)
		if e.Path != "" {
			fmt.Fprintf(os.Stderr, "    at: %s\n", e.Path)
		}
	}
}

// --- create ---

var createCmd = &cobra.Command{
	Use:   "create [recipe.yaml]",
	Short: "Validate a recipe file and save it to the store",
	Args:  cobra.ExactArgs(1),
	RunE:  runCreate,
}

func runCreate(cmd *cobra.Command, args []string) error {
	r, errs := recipe.ValidateFile(args[0])
	if recipe.HasErrors(errs) {
		printValidationErrors(errs)
		return fmt.Errorf("recipe validation failed")
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	created, err := store.Create(r.Name, r.Description, r.Category, r.Steps, r.Tags)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Created %q (%d steps)\n", created.Name, len(created.Steps))
	fmt.Printf("  id: %s\n", created.ID)
	return nil
}

// --- validate ---

var validateCmd = &cobra.Command{
	Use:   "validate [recipe.yaml]",
	Short: "Validate a recipe file without saving it",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	r, errs := recipe.ValidateFile(args[0])
	if recipe.HasErrors(errs) {
		printValidationErrors(errs)
		return fmt.Errorf("validation failed")
	}
	fmt.Printf("✓ %s is valid (%d steps)\n", r.Name, len(r.Steps))
	return nil
}

// --- list ---

var (
	listCategory string
	listTags     []string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored recipes",
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	recipes := store.List(listCategory, listTags)
	if len(recipes) == 0 {
		fmt.Println("No recipes found.")
		return nil
	}
	for _, r := range recipes {
		tags := ""
		if len(r.Tags) > 0 {
			tags = "  [" + strings.Join(r.Tags, ", ") + "]"
		}
		fmt.Printf("  %s  %-24s  %-12s  %d steps%s\n",
			r.ID, r.Name, r.Category, len(r.Steps), tags)
	}
	fmt.Printf("\n%d recipe(s)\n", len(recipes))
	return nil
}

// --- show ---

var showRaw bool

var showCmd = &cobra.Command{
	Use:   "show [id|recipe.yaml]",
	Short: "Display a recipe",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	r, err := resolveRecipe(store, args[0])
	if err != nil {
		return err
	}
	md := tui.RecipeMarkdown(r)
	if showRaw {
		fmt.Print(md)
		return nil
	}
	fmt.Print(tui.RenderMarkdown(md))
	return nil
}

// --- exec ---

var (
	execVars   []string
	execJSON   bool
	mcpServers []string
)

var execCmd = &cobra.Command{
	Use:   "exec [id|recipe.yaml]",
	Short: "Execute a recipe",
	Args:  cobra.ExactArgs(1),
	RunE:  runExec,
}

func runExec(cmd *cobra.Command, args []string) error {
	vars, err := parseVars(execVars)
	if err != nil {
		return err
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	r, err := resolveRecipe(store, args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	x, cleanup, err := newExecutor(ctx, store)
	if err != nil {
		return err
	}
	defer cleanup()

	result := x.Execute(ctx, r, vars)

	if execJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		printRunResult(result)
	}

	if result.Status != engine.RunCompleted {
		return errRunFailed
	}
	return nil
}

func printRunResult(result *engine.RunResult) {
	for _, o := range result.Steps {
		switch o.Status {
		case engine.StepSuccess:
			fmt.Printf("  ✓ %s [%s]\n", o.StepID, o.ToolName)
		case engine.StepError:
			fmt.Printf("  ✗ %s [%s]: %s\n", o.StepID, o.ToolName, o.Failure.Message)
		case engine.StepSkipped:
			fmt.Printf("  ⊘ %s [%s]: %s\n", o.StepID, o.ToolName, o.SkipReason)
		}
	}
	summary := result.Summary()
	fmt.Printf("\nRun %s: %s (%d ok, %d failed, %d skipped)  %s\n",
		result.ExecutionID, result.Status,
		summary.Succeeded, summary.Failed, summary.Skipped,
		result.CompletedAt.Sub(result.StartedAt).Truncate(time.Millisecond))
	if result.Error != "" {
		fmt.Printf("  error: %s\n", result.Error)
	}
}

// --- watch ---

var watchVars []string

var watchCmd = &cobra.Command{
	Use:   "watch [id|recipe.yaml]",
	Short: "Execute a recipe with a live terminal view",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	vars, err := parseVars(watchVars)
	if err != nil {
		return err
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	r, err := resolveRecipe(store, args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	x, cleanup, err := newExecutor(ctx, store)
	if err != nil {
		return err
	}
	defer cleanup()

	final, err := tea.NewProgram(tui.NewModel(x, r, vars)).Run()
	if err != nil {
		return fmt.Errorf("run view: %w", err)
	}
	if m, ok := final.(tui.Model); ok {
		if result := m.Result(); result.Status == engine.RunFailed {
			return errRunFailed
		}
	}
	return nil
}

// --- debug ---

var debugVars []string

var debugCmd = &cobra.Command{
	Use:   "debug [id|recipe.yaml]",
	Short: "Step through a recipe interactively",
	Args:  cobra.ExactArgs(1),
	RunE:  runDebug,
}

func runDebug(cmd *cobra.Command, args []string) error {
	vars, err := parseVars(debugVars)
	if err != nil {
		return err
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	r, err := resolveRecipe(store, args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	x, cleanup, err := newExecutor(ctx, store)
	if err != nil {
		return err
	}
	defer cleanup()

	return debugger.New(x, r, vars).Run(ctx)
}

// --- history ---

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past runs from the artifacts directory",
	RunE:  runHistory,
}

// runHistory reads the run.yaml manifests written per execution under
// home/runs, newest first.
func runHistory(cmd *cobra.Command, args []string) error {
	runsDir := filepath.Join(homeDir(), "runs")
	entries, err := os.ReadDir(runsDir)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("No runs recorded.")
			return nil
		}
		return err
	}

	var manifests []*engine.RunManifest
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(runsDir, entry.Name(), "run.yaml"))
		if err != nil {
			continue
		}
		var m engine.RunManifest
		if err := yaml.Unmarshal(data, &m); err != nil {
			fmt.Fprintf(os.Stderr, "warning: skipping corrupt manifest in %s: %v\n", entry.Name(), err)
			continue
		}
		manifests = append(manifests, &m)
	}
	sort.Slice(manifests, func(i, j int) bool {
		return manifests[i].StartedAt > manifests[j].StartedAt
	})
	if historyLimit > 0 && len(manifests) > historyLimit {
		manifests = manifests[:historyLimit]
	}

	if len(manifests) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}
	for _, m := range manifests {
		fmt.Printf("  %s  %-10s  %-24s  %d/%d ok  %s\n",
			m.ExecutionID, m.Status, m.RecipeName,
			m.Steps.Succeeded, m.Steps.Total, m.StartedAt)
	}
	return nil
}

// --- delete ---

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Remove a recipe from the store",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	if _, ok := store.Get(args[0]); !ok {
		fmt.Printf("No recipe %q — nothing to delete.\n", args[0])
		return nil
	}
	if err := store.Delete(args[0]); err != nil {
		return err
	}
	fmt.Printf("✓ Deleted %s\n", args[0])
	return nil
}

// --- schema export ---

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Schema operations",
}

var schemaExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the recipe JSON Schema to stdout",
	RunE:  runSchemaExport,
}

func runSchemaExport(cmd *cobra.Command, args []string) error {
	data, err := recipe.GenerateJSONSchema()
	if err != nil {
		return fmt.Errorf("generate schema: %w", err)
	}
	// Pretty-print the JSON
	var out json.RawMessage = data
	formatted, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		// fallback to raw
		fmt.Println(string(data))
		return nil
	}
	fmt.Println(string(formatted))
	return nil
}

// --- version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("receta %s (build: %s)\n", version, commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&homeFlag, "home", "", "Data directory (default: $RECETA_HOME or ~/.receta)")

	listCmd.Flags().StringVar(&listCategory, "category", "", "Filter by category")
	listCmd.Flags().StringArrayVar(&listTags, "tag", nil, "Filter by tag (repeatable, any match)")

	showCmd.Flags().BoolVar(&showRaw, "raw", false, "Print plain markdown without terminal styling")

	execCmd.Flags().StringArrayVar(&execVars, "var", nil, "Set a variable (key=value), repeatable")
	execCmd.Flags().BoolVar(&execJSON, "json", false, "Output the run result as JSON")
	execCmd.Flags().StringArrayVar(&mcpServers, "mcp", nil, "Attach an MCP tool server (prefix=command [args...]), repeatable")

	watchCmd.Flags().StringArrayVar(&watchVars, "var", nil, "Set a variable (key=value), repeatable")
	watchCmd.Flags().StringArrayVar(&mcpServers, "mcp", nil, "Attach an MCP tool server (prefix=command [args...]), repeatable")

	debugCmd.Flags().StringArrayVar(&debugVars, "var", nil, "Set a variable (key=value), repeatable")
	debugCmd.Flags().StringArrayVar(&mcpServers, "mcp", nil, "Attach an MCP tool server (prefix=command [args...]), repeatable")

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs to list (0 = all)")

	schemaCmd.AddCommand(schemaExportCmd)

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(debugCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(versionCmd)
}
