package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/entrhq/playwright-mcp/pkg/logging"
	"github.com/entrhq/playwright-mcp/pkg/tools"
)

// ClickTool clicks an element on the current page.
type ClickTool struct {
	toolBase
}

// NewClickTool creates a new click tool.
func NewClickTool(manager *Manager, opts ToolOptions, logger *logging.Logger) *ClickTool {
	return &ClickTool{
		toolBase: newToolBase(manager, opts, logger),
	}
}

// Name returns the tool name.
func (t *ClickTool) Name() string {
	return "click_element"
}

// Description returns the tool description.
func (t *ClickTool) Description() string {
	return "Click an element on the current page by CSS selector. Waits for the element to be visible and clickable."
}

// Definition returns the MCP tool definition.
func (t *ClickTool) Definition() mcp.Tool {
	return mcp.NewTool(t.Name(),
		mcp.WithDescription(t.Description()),
		mcp.WithString("selector",
			mcp.Required(),
			mcp.Description("CSS selector of the element to click (e.g., 'button#submit', '.nav a')"),
		),
	)
}

// ClickInput represents the parameters for clicking.
type ClickInput struct {
	Selector string `json:"selector"`
}

// Execute clicks the element.
// clickTextTimeout bounds the element text read after a click.
const clickTextTimeout = 500 * time.Millisecond

func (t *ClickTool) Execute(ctx context.Context, args map[string]any) tools.Response {
	var input ClickInput
	if err := decodeArgs(args, &input); err != nil {
		return invalid(err.Error(), "Provide selector as a string", nil)
	}

	reqCtx := map[string]any{"selector": input.Selector}

	if strings.TrimSpace(input.Selector) == "" {
		return invalid("Selector cannot be empty", "Provide a valid CSS selector", reqCtx)
	}

	var text string
	err := t.withPage(ctx, t.Name(), func(page Page) error {
		if err := page.Click(input.Selector, t.opts.ElementTimeout); err != nil {
			return err
		}

		// The click may navigate away, so the text is best effort.
		content, err := page.TextContent(input.Selector, t.textTimeout())
		if err != nil {
			t.logger.Debugf("element text unavailable after click on %q: %v", input.Selector, err)
			content = ""
		}
		text = strings.TrimSpace(content)
		return nil
	})
	if err != nil {
		return failure(err,
			fmt.Sprintf("Element '%s' not found or not clickable within %dms", input.Selector, t.opts.ElementTimeout.Milliseconds()),
			reqCtx,
		)
	}

	return tools.OK(map[string]any{
		"selector":     input.Selector,
		"element_text": text,
	})
}

func (t *ClickTool) textTimeout() time.Duration {
	if t.opts.ElementTimeout > 0 && t.opts.ElementTimeout < clickTextTimeout {
		return t.opts.ElementTimeout
	}
	return clickTextTimeout
}
