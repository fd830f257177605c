package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/comigor/unichat/internal/logger"
)

// ServerName identifies this process to MCP clients.
const ServerName = "unichat"

// NewMCPServer publishes every registered tool over MCP. Each tool takes one
// required "question" string argument.
func NewMCPServer(m *ToolManager, version string) *server.MCPServer {
	s := server.NewMCPServer(ServerName, version, server.WithToolCapabilities(false))
	for _, t := range m.List() {
		s.AddTool(
			mcp.NewTool(t.Name(),
				mcp.WithDescription(t.Description()),
				mcp.WithString("question",
					mcp.Required(),
					mcp.Description("The user's question, in plain language."),
				),
			),
			toolHandler(t),
		)
		logger.L.Debug("MCP tool registered", "tool", t.Name())
	}
	return s
}

func toolHandler(t Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, _ := request.GetArguments()["question"].(string)
		if strings.TrimSpace(question) == "" {
			return mcp.NewToolResultError("question must be a non-empty string"), nil
		}

		logger.L.Info("MCP tool call", "tool", t.Name())
		out, err := t.Run(ctx, question)
		if err != nil {
			logger.L.Warn("MCP tool failed", "tool", t.Name(), "error", err)
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(out), nil
	}
}

// ServeStdio runs the MCP server on stdin/stdout until the input closes.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
