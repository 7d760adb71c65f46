package capability

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// MCPServer manages a persistent external MCP server process and
// exposes its tools as recipe capabilities. MCP is JSON-RPC 2.0 over
// stdio with an initialization handshake.
type MCPServer struct {
	binary string
	cmd    *exec.Cmd
	stdin  *json.Encoder
	reader *bufio.Reader
	nextID int64
	tools  []string
	mu     sync.Mutex
	done   chan struct{}
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type jsonrpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *jsonrpcError   `json:"error"`
}

type mcpContent struct {
	Type string `json:"type"` // "text" or "image"
	Text string `json:"text,omitempty"`
}

type mcpCallResult struct {
	Content []mcpContent `json:"content"`
	IsError bool         `json:"isError,omitempty"`
}

// SpawnMCPServer starts an MCP server process, performs the
// initialization handshake, and discovers its tools.
func SpawnMCPServer(ctx context.Context, binary string, argv ...string) (*MCPServer, error) {
	cmd := exec.CommandContext(ctx, binary, argv...)
	cmd.Env = os.Environ()

	stdinPipe, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start MCP process %q: %w", binary, err)
	}

	done := make(chan struct{})
	go func() {
		cmd.Wait()
		close(done)
	}()

	// Drain stderr in background
	go func() {
		scanner := bufio.NewScanner(stderrPipe)
		for scanner.Scan() {
			fmt.Fprintf(os.Stderr, "  [mcp:%s] %s\n", binary, scanner.Text())
		}
	}()

	p := &MCPServer{
		binary: binary,
		cmd:    cmd,
		stdin:  json.NewEncoder(stdinPipe),
		reader: bufio.NewReader(stdout),
		done:   done,
	}

	initCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := p.sendInitialize(initCtx); err != nil {
		p.kill()
		return nil, fmt.Errorf("MCP initialize: %w", err)
	}
	p.sendNotification("notifications/initialized", nil)

	if err := p.discoverTools(initCtx); err != nil {
		// Non-fatal — tools may be called by name even without discovery
		fmt.Fprintf(os.Stderr, "  [mcp:%s] warning: tools/list failed: %v\n", binary, err)
	}

	return p, nil
}

// RegisterMCPServer spawns an MCP server and registers every
// discovered tool with the registry under "<prefix>.<tool>". The
// returned server should be shut down when the host exits.
func RegisterMCPServer(ctx context.Context, r *Registry, prefix, binary string, argv ...string) (*MCPServer, error) {
	p, err := SpawnMCPServer(ctx, binary, argv...)
	if err != nil {
		return nil, err
	}
	for _, tool := range p.tools {
		name := tool
		r.Register(prefix+"."+name, func(ctx context.Context, handle any, params map[string]any) (any, error) {
			return p.CallTool(ctx, name, params)
		})
	}
	return p, nil
}

// Tools returns the tool names discovered at startup.
func (p *MCPServer) Tools() []string {
	return append([]string(nil), p.tools...)
}

func (p *MCPServer) sendInitialize(ctx context.Context) error {
	id := atomic.AddInt64(&p.nextID, 1)
	req := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "initialize",
		"params": map[string]any{
			"protocolVersion": "2024-11-05",
			"capabilities":    map[string]any{},
			"clientInfo": map[string]any{
				"name":    "receta",
				"version": "0.1.0",
			},
		},
	}
	if err := p.stdin.Encode(req); err != nil {
		return fmt.Errorf("send initialize: %w", err)
	}
	resp, err := p.readResponse(ctx)
	if err != nil {
		return fmt.Errorf("read initialize response: %w", err)
	}
	if resp.Error != nil {
		return fmt.Errorf("initialize error [%d]: %s", resp.Error.Code, resp.Error.Message)
	}
	return nil
}

func (p *MCPServer) sendNotification(method string, params any) {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
	}
	if params != nil {
		msg["params"] = params
	}
	p.stdin.Encode(msg)
}

func (p *MCPServer) discoverTools(ctx context.Context) error {
	id := atomic.AddInt64(&p.nextID, 1)
	req := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "tools/list",
	}
	if err := p.stdin.Encode(req); err != nil {
		return err
	}
	resp, err := p.readResponse(ctx)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return fmt.Errorf("tools/list error [%d]: %s", resp.Error.Code, resp.Error.Message)
	}

	var listResult struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(resp.Result, &listResult); err != nil {
		return fmt.Errorf("parse tools/list result: %w", err)
	}
	for _, t := range listResult.Tools {
		p.tools = append(p.tools, t.Name)
	}
	return nil
}

// CallTool invokes an MCP tool by name and returns its text content.
func (p *MCPServer) CallTool(ctx context.Context, toolName string, args map[string]any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	select {
	case <-p.done:
		return "", fmt.Errorf("MCP process has exited")
	default:
	}

	id := atomic.AddInt64(&p.nextID, 1)
	req := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      toolName,
			"arguments": args,
		},
	}
	if err := p.stdin.Encode(req); err != nil {
		return "", fmt.Errorf("send tools/call: %w", err)
	}
	resp, err := p.readResponse(ctx)
	if err != nil {
		return "", fmt.Errorf("read tools/call response: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("tools/call error [%d]: %s", resp.Error.Code, resp.Error.Message)
	}

	var callResult mcpCallResult
	if err := json.Unmarshal(resp.Result, &callResult); err != nil {
		return string(resp.Result), nil
	}

	var texts []string
	for _, c := range callResult.Content {
		if c.Type == "text" {
			texts = append(texts, c.Text)
		}
	}
	if callResult.IsError {
		return "", fmt.Errorf("MCP tool error: %s", strings.Join(texts, "; "))
	}
	return strings.Join(texts, "\n"), nil
}

// Shutdown interrupts the process and kills it after the grace period.
func (p *MCPServer) Shutdown(grace time.Duration) error {
	p.cmd.Process.Signal(os.Interrupt)
	select {
	case <-p.done:
		return nil
	case <-time.After(grace):
		return p.kill()
	}
}

func (p *MCPServer) kill() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	if p.cmd.Process != nil {
		return p.cmd.Process.Kill()
	}
	return nil
}

// readResponse reads a single JSON-RPC response, skipping
// server-initiated notifications.
func (p *MCPServer) readResponse(ctx context.Context) (*jsonrpcResponse, error) {
	type readResult struct {
		resp *jsonrpcResponse
		err  error
	}

	ch := make(chan readResult, 1)
	go func() {
		for {
			line, err := p.reader.ReadString('\n')
			if err != nil {
				ch <- readResult{err: fmt.Errorf("read: %w", err)}
				return
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}

			var peek struct {
				ID     *int64 `json:"id"`
				Method string `json:"method"`
			}
			if err := json.Unmarshal([]byte(line), &peek); err != nil {
				continue
			}
			if peek.ID == nil && peek.Method != "" {
				continue
			}

			var resp jsonrpcResponse
			if err := json.Unmarshal([]byte(line), &resp); err != nil {
				ch <- readResult{err: fmt.Errorf("unmarshal response: %w", err)}
				return
			}
			ch <- readResult{resp: &resp}
			return
		}
	}()

	select {
	case result := <-ch:
		return result.resp, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.done:
		return nil, fmt.Errorf("MCP process exited while waiting for response")
	}
}
