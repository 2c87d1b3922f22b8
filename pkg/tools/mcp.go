package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kadirpekel/scout/pkg/config"
)

// MCPSource connects to one external MCP server over stdio and exposes its
// tools under their advertised names. One conversation keeps the subprocess
// alive for the duration of the run.
type MCPSource struct {
	name   string
	client *client.Client
	tools  []mcp.Tool
}

// ConnectMCP starts the configured server process, initializes the MCP
// session and lists the tools it advertises.
func ConnectMCP(ctx context.Context, name string, cfg config.MCPServerConfig) (*MCPSource, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("mcp server %s: command is required", name)
	}

	mcpClient, err := client.NewStdioMCPClient(cfg.Command, flattenEnv(cfg.Env), cfg.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to create MCP client for %s: %w", name, err)
	}

	if err := mcpClient.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start MCP server %s: %w", name, err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{Name: "scout", Version: "1.0"}
	initReq.Params.ProtocolVersion = "2024-11-05"

	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		mcpClient.Close()
		return nil, fmt.Errorf("failed to initialize MCP server %s: %w", name, err)
	}

	listResp, err := mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		mcpClient.Close()
		return nil, fmt.Errorf("failed to list tools of MCP server %s: %w", name, err)
	}

	slog.Info("Connected to MCP server",
		"name", name, "command", cfg.Command, "tools", len(listResp.Tools))

	return &MCPSource{name: name, client: mcpClient, tools: listResp.Tools}, nil
}

// RegisterAll adds every advertised tool to the registry.
func (s *MCPSource) RegisterAll(registry *Registry) {
	for _, t := range s.tools {
		registry.Register(&mcpTool{source: s, tool: t})
	}
}

// Close terminates the server subprocess.
func (s *MCPSource) Close() error {
	return s.client.Close()
}

func flattenEnv(env map[string]string) []string {
	flat := make([]string, 0, len(env))
	for k, v := range env {
		flat = append(flat, k+"="+v)
	}
	return flat
}

// mcpTool adapts one advertised MCP tool to the Tool interface.
type mcpTool struct {
	source *MCPSource
	tool   mcp.Tool
}

func (t *mcpTool) Name() string { return t.tool.Name }

func (t *mcpTool) Description() string {
	if t.tool.Description != "" {
		return t.tool.Description
	}
	return fmt.Sprintf("Tool %s from MCP server %s", t.tool.Name, t.source.name)
}

func (t *mcpTool) Schema() map[string]interface{} {
	data, err := json.Marshal(t.tool.InputSchema)
	if err != nil {
		return map[string]interface{}{"type": "object"}
	}
	var schema map[string]interface{}
	if err := json.Unmarshal(data, &schema); err != nil {
		return map[string]interface{}{"type": "object"}
	}
	return schema
}

func (t *mcpTool) Execute(ctx context.Context, args map[string]interface{}) (Result, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = t.tool.Name
	req.Params.Arguments = args

	resp, err := t.source.client.CallTool(ctx, req)
	if err != nil {
		return failure(FailureToolError, "MCP call to %s failed: %v", t.tool.Name, err), nil
	}

	text := textContent(resp)
	if resp.IsError {
		if text == "" {
			text = "unknown error"
		}
		return failure(FailureToolError, "%s", text), nil
	}
	return success(text), nil
}

// textContent flattens the text parts of an MCP result.
func textContent(resp *mcp.CallToolResult) string {
	var texts []string
	for _, content := range resp.Content {
		if tc, ok := content.(mcp.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}
	return strings.Join(texts, "\n")
}
