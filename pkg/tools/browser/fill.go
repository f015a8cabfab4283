package browser

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/entrhq/playwright-mcp/pkg/logging"
	"github.com/entrhq/playwright-mcp/pkg/tools"
)

// FillTool fills a form input with text.
type FillTool struct {
	toolBase
}

// NewFillTool creates a new fill tool.
func NewFillTool(manager *Manager, opts ToolOptions, logger *logging.Logger) *FillTool {
	return &FillTool{
		toolBase: newToolBase(manager, opts, logger),
	}
}

// Name returns the tool name.
func (t *FillTool) Name() string {
	return "fill_input"
}

// Description returns the tool description.
func (t *FillTool) Description() string {
	return "Fill a form input with text. Any existing value is cleared first."
}

// Definition returns the MCP tool definition.
func (t *FillTool) Definition() mcp.Tool {
	return mcp.NewTool(t.Name(),
		mcp.WithDescription(t.Description()),
		mcp.WithString("selector",
			mcp.Required(),
			mcp.Description("CSS selector of the input element (e.g., 'input[name=\"q\"]', '#email')"),
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Text to fill into the input"),
		),
	)
}

// FillInput represents the parameters for filling an input.
type FillInput struct {
	Selector string `json:"selector"`
	Text     string `json:"text"`
}

// Execute fills the input.
func (t *FillTool) Execute(ctx context.Context, args map[string]any) tools.Response {
	var input FillInput
	if err := decodeArgs(args, &input); err != nil {
		return invalid(err.Error(), "Provide selector and text as strings", nil)
	}

	reqCtx := map[string]any{"selector": input.Selector}

	if strings.TrimSpace(input.Selector) == "" {
		return invalid("Selector cannot be empty", "Provide a valid CSS selector", reqCtx)
	}

	err := t.withPage(ctx, t.Name(), func(page Page) error {
		return page.Fill(input.Selector, input.Text, t.opts.ElementTimeout)
	})
	if err != nil {
		return failure(err,
			fmt.Sprintf("Input element '%s' not found within %dms", input.Selector, t.opts.ElementTimeout.Milliseconds()),
			reqCtx,
		)
	}

	return tools.OK(map[string]any{
		"selector":    input.Selector,
		"text_length": utf8.RuneCountInString(input.Text),
	})
}
