// Package tool provides tool handling functionality for the MCP server.
package tool

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/nirholas/specbridge/internal/requester"
)

// Handler maps tool invocations onto their HTTP executors.
type Handler struct{}

// NewHandler creates a new tool handler.
func NewHandler() *Handler {
	return &Handler{}
}

// CreateHandler creates a handler function for a specific tool. HTTP error
// statuses come back as tool errors rather than protocol errors so the
// client sees the upstream response body.
func (h *Handler) CreateHandler(name string, executor requester.ToolExecutor) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		params := request.GetArguments()
		resp, err := executor(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("failed to execute request for tool %s: %w", name, err)
		}

		if resp.StatusCode >= http.StatusBadRequest {
			return mcp.NewToolResultError(fmt.Sprintf("HTTP Error %d: %s", resp.StatusCode, string(resp.Body))), nil
		}

		return mcp.NewToolResultText(string(resp.Body)), nil
	}
}
