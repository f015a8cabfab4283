package browser

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/entrhq/playwright-mcp/pkg/logging"
	"github.com/entrhq/playwright-mcp/pkg/tools"
)

// PageInfoTool reports the current page URL, title, and viewport.
type PageInfoTool struct {
	toolBase
}

// NewPageInfoTool creates a new page info tool.
func NewPageInfoTool(manager *Manager, opts ToolOptions, logger *logging.Logger) *PageInfoTool {
	return &PageInfoTool{
		toolBase: newToolBase(manager, opts, logger),
	}
}

// Name returns the tool name.
func (t *PageInfoTool) Name() string {
	return "get_page_info"
}

// Description returns the tool description.
func (t *PageInfoTool) Description() string {
	return "Get the current page URL, title, and viewport size. Launches the browser if it is not running."
}

// Definition returns the MCP tool definition.
func (t *PageInfoTool) Definition() mcp.Tool {
	return mcp.NewTool(t.Name(),
		mcp.WithDescription(t.Description()),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

// Execute reads the page info.
func (t *PageInfoTool) Execute(ctx context.Context, _ map[string]any) tools.Response {
	var url, title string
	err := t.withPage(ctx, t.Name(), func(page Page) error {
		url = page.URL()

		var err error
		title, err = page.Title()
		return err
	})
	if err != nil {
		return failure(err, "", nil)
	}

	return tools.OK(map[string]any{
		"url":      url,
		"title":    title,
		"viewport": t.manager.ViewportSize(),
	})
}
