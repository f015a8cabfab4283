package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/entrhq/playwright-mcp/pkg/logging"
	"github.com/entrhq/playwright-mcp/pkg/tools"
)

// NavigateTool navigates the shared page to a URL.
type NavigateTool struct {
	toolBase
}

// NewNavigateTool creates a new navigate tool.
func NewNavigateTool(manager *Manager, opts ToolOptions, logger *logging.Logger) *NavigateTool {
	return &NavigateTool{
		toolBase: newToolBase(manager, opts, logger),
	}
}

// Name returns the tool name.
func (t *NavigateTool) Name() string {
	return "navigate"
}

// Description returns the tool description.
func (t *NavigateTool) Description() string {
	return "Navigate to a URL in the browser. The browser is launched on first use and the page waits for the chosen load condition."
}

// Definition returns the MCP tool definition.
func (t *NavigateTool) Definition() mcp.Tool {
	return mcp.NewTool(t.Name(),
		mcp.WithDescription(t.Description()),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("URL to navigate to (must start with http:// or https://)"),
		),
		mcp.WithString("wait_until",
			mcp.Description("When to consider navigation complete: 'load' (default), 'domcontentloaded', or 'networkidle'"),
			mcp.Enum(string(WaitLoad), string(WaitDOMContentLoaded), string(WaitNetworkIdle)),
			mcp.DefaultString(string(WaitLoad)),
		),
		mcp.WithOpenWorldHintAnnotation(true),
	)
}

// NavigateInput represents the parameters for navigation.
type NavigateInput struct {
	URL       string `json:"url"`
	WaitUntil string `json:"wait_until"`
}

// Execute navigates to a URL.
func (t *NavigateTool) Execute(ctx context.Context, args map[string]any) tools.Response {
	var input NavigateInput
	if err := decodeArgs(args, &input); err != nil {
		return invalid(err.Error(), "Provide url as a string", nil)
	}

	reqCtx := map[string]any{"url": input.URL}

	if !strings.HasPrefix(input.URL, "http://") && !strings.HasPrefix(input.URL, "https://") {
		return invalid("URL must start with http:// or https://", "Add http:// or https:// to the URL", reqCtx)
	}

	waitUntil := WaitUntil(input.WaitUntil)
	if waitUntil == "" {
		waitUntil = WaitLoad
	}
	if !waitUntil.Valid() {
		return invalid(
			fmt.Sprintf("Invalid wait_until value: %s", input.WaitUntil),
			"Use 'load', 'domcontentloaded', or 'networkidle'",
			reqCtx,
		)
	}

	var url, title string
	err := t.withPage(ctx, t.Name(), func(page Page) error {
		if err := page.Goto(input.URL, waitUntil, t.opts.NavigationTimeout); err != nil {
			return err
		}
		url = page.URL()

		var err error
		title, err = page.Title()
		return err
	})
	if err != nil {
		t.logger.Debugf("navigate %s failed: %v", input.URL, err)
		return failure(err,
			fmt.Sprintf("Navigation timed out after %dms", t.opts.NavigationTimeout.Milliseconds()),
			reqCtx,
		)
	}

	t.logger.Debugf("navigated to %s (%q)", url, title)
	return tools.OK(map[string]any{
		"url":   url,
		"title": title,
	})
}
