// Package tools defines the tool contract served over MCP: a named operation
// with an input schema whose every outcome is a Response.
package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// Tool represents one remotely invocable operation.
//
// Execute never returns a Go error. Every failure, including malformed
// arguments, is reported as a Fail response so the protocol layer only ever
// sees the standardized shape.
type Tool interface {
	// Name returns the unique identifier for this tool (e.g., "navigate")
	Name() string

	// Description returns a human-readable description of what this tool does
	Description() string

	// Definition returns the MCP tool definition, including the input schema
	Definition() mcp.Tool

	// Execute runs the tool with the decoded JSON arguments
	Execute(ctx context.Context, args map[string]any) Response
}
