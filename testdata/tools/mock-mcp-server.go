// mock-mcp-server is a test helper binary: a minimal stdio MCP server
// that impersonates an ops tool provider for capability integration
// tests. It implements initialize, tools/list, and tools/call.
//
//go:build ignore

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Result  any    `json:"result,omitempty"`
	Error   any    `json:"error,omitempty"`
}

func textContent(text string, isError bool) map[string]any {
	result := map[string]any{
		"content": []map[string]any{
			{"type": "text", "text": text},
		},
	}
	if isError {
		result["isError"] = true
	}
	return result
}

func toolDescriptor(name, description string, props map[string]any) map[string]any {
	if props == nil {
		props = map[string]any{}
	}
	return map[string]any{
		"name":        name,
		"description": description,
		"inputSchema": map[string]any{
			"type":       "object",
			"properties": props,
		},
	}
}

func handle(req rpcRequest) (any, any) {
	switch req.Method {
	case "initialize":
		return map[string]any{
			"protocolVersion": "2024-11-05",
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo":      map[string]any{"name": "mock-ops-tools", "version": "1.0.0"},
		}, nil

	case "tools/list":
		return map[string]any{
			"tools": []map[string]any{
				toolDescriptor("echo", "Echo back the input", map[string]any{
					"message": map[string]any{"type": "string"},
				}),
				toolDescriptor("service_status", "Report the health of a service", map[string]any{
					"service": map[string]any{"type": "string"},
				}),
				toolDescriptor("failing", "Always returns an error", nil),
			},
		}, nil

	case "tools/call":
		var params struct {
			Name      string         `json:"name"`
			Arguments map[string]any `json:"arguments"`
		}
		json.Unmarshal(req.Params, &params)
		return callTool(params.Name, params.Arguments)

	default:
		return nil, map[string]any{
			"code":    -32601,
			"message": fmt.Sprintf("method %q not found", req.Method),
		}
	}
}

func callTool(name string, args map[string]any) (any, any) {
	switch name {
	case "echo":
		msg := ""
		if m, ok := args["message"]; ok {
			msg = fmt.Sprintf("%v", m)
		}
		return textContent(msg, false), nil

	case "service_status":
		service := "payments"
		if s, ok := args["service"].(string); ok && s != "" {
			service = s
		}
		status, _ := json.Marshal(map[string]any{
			"service":  service,
			"healthy":  true,
			"restarts": 2,
		})
		return textContent(string(status), false), nil

	case "failing":
		return textContent("something went wrong", true), nil

	default:
		return nil, map[string]any{
			"code":    -32601,
			"message": fmt.Sprintf("unknown tool %q", name),
		}
	}
}

func main() {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	out := json.NewEncoder(os.Stdout)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req rpcRequest
		if err := json.Unmarshal(line, &req); err != nil {
			continue
		}
		// Notifications carry no ID and get no response.
		if req.ID == nil {
			continue
		}

		result, rpcErr := handle(req)
		out.Encode(rpcResponse{
			JSONRPC: "2.0",
			ID:      *req.ID,
			Result:  result,
			Error:   rpcErr,
		})
	}
}
