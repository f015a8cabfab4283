// Package server exposes the tool registry over the Model Context Protocol,
// on stdio or streamable HTTP, plus a small REST and status surface.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/entrhq/playwright-mcp/pkg/logging"
	"github.com/entrhq/playwright-mcp/pkg/metrics"
	"github.com/entrhq/playwright-mcp/pkg/tools"
)

// DefaultInstructions is sent to clients during initialization.
const DefaultInstructions = `Browser automation over a single shared Chromium page.

Start with navigate to load a URL, then use click_element, fill_input and
extract_text with CSS selectors. screenshot saves the page as PNG or JPEG and
get_page_info reports the current URL, title and viewport.

Every tool returns {"success": true, ...} or {"success": false, "error",
"error_type", "suggestion"}. The browser is launched on first use and
restarted automatically if it crashes.`

// Info identifies the server to clients.
type Info struct {
	Name         string `json:"name"`
	Version      string `json:"version"`
	Instructions string `json:"instructions,omitempty"`
}

// BrowserStatus reports browser state for the health endpoint.
type BrowserStatus interface {
	IsInitialized() bool
	CurrentURL() string
	Launches() int
}

// Server wraps the MCP server and the tool registry.
type Server struct {
	mcpServer *mcpserver.MCPServer
	registry  *tools.Registry
	info      Info
	logger    *logging.Logger
	metrics   *metrics.Metrics
	status    BrowserStatus
	rateLimit RateLimit
	started   time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics enables tool and HTTP metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithBrowserStatus reports browser state on /health.
func WithBrowserStatus(status BrowserStatus) Option {
	return func(s *Server) {
		s.status = status
	}
}

// New creates an MCP server exposing every tool in registry.
func New(registry *tools.Registry, info Info, opts ...Option) *Server {
	s := &Server{
		registry: registry,
		info:     info,
		logger:   logging.Nop(),
		started:  time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcpServer = mcpserver.NewMCPServer(
		info.Name,
		info.Version,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithInstructions(info.Instructions),
		mcpserver.WithRecovery(),
	)
	s.registerTools()

	return s
}

// registerTools adds all registry tools to the MCP server.
func (s *Server) registerTools() {
	for _, tool := range s.registry.List() {
		s.mcpServer.AddTool(tool.Definition(), s.handlerFor(tool.Name()))
		s.logger.Debugf("registered tool %s", tool.Name())
	}
}

func (s *Server) handlerFor(name string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		resp, err := s.Invoke(ctx, name, request.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toResult(resp)
	}
}

// toResult carries the response as structured content, with the same JSON
// as text for clients that only read text content.
func toResult(resp tools.Response) (*mcp.CallToolResult, error) {
	payload := resp.Map()
	text, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tool response: %w", err)
	}

	result := mcp.NewToolResultStructured(payload, string(text))
	result.IsError = !resp.Success()
	return result, nil
}

// Invoke runs a tool by name. The error is only for unknown tools; tool
// failures are carried in the response.
func (s *Server) Invoke(ctx context.Context, name string, args map[string]any) (tools.Response, error) {
	tool, ok := s.registry.Get(name)
	if !ok {
		return tools.Response{}, fmt.Errorf("unknown tool: %s", name)
	}
	if args == nil {
		args = map[string]any{}
	}

	start := time.Now()
	resp := tool.Execute(ctx, args)
	elapsed := time.Since(start)

	if resp.Success() {
		s.logger.Infof("%s succeeded in %s", name, elapsed.Round(time.Millisecond))
	} else {
		s.logger.Warnf("%s failed in %s: %s: %s", name, elapsed.Round(time.Millisecond), resp.ErrorType(), resp.ErrorMessage())
	}
	if s.metrics != nil {
		s.metrics.RecordToolCall(name, resp.Success(), string(resp.ErrorType()), elapsed)
	}

	return resp, nil
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// Info returns the server identity.
func (s *Server) Info() Info {
	return s.info
}

// ServeStdio serves MCP over in and out until ctx is done or in closes.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Infof("serving MCP over stdio")

	stdio := mcpserver.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(s.logger.StdLogger())

	if err := stdio.Listen(ctx, in, out); err != nil && ctx.Err() == nil {
		return fmt.Errorf("stdio server failed: %w", err)
	}
	return nil
}
