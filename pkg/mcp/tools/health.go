package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type healthResult struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	LLMModel string `json:"llm_model,omitempty"`
}

// RegisterHealthTool adds a health check tool to the MCP server. llmModel is
// empty when classification runs on keyword rules only.
func RegisterHealthTool(s *server.MCPServer, version, llmModel string) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health status, version and the classification model"),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(healthResult{Status: "ok", Version: version, LLMModel: llmModel})
	})
}
