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

// ExtractTextTool reads the text content of an element.
type ExtractTextTool struct {
	toolBase
}

// NewExtractTextTool creates a new extract text tool.
func NewExtractTextTool(manager *Manager, opts ToolOptions, logger *logging.Logger) *ExtractTextTool {
	return &ExtractTextTool{
		toolBase: newToolBase(manager, opts, logger),
	}
}

// Name returns the tool name.
func (t *ExtractTextTool) Name() string {
	return "extract_text"
}

// Description returns the tool description.
func (t *ExtractTextTool) Description() string {
	return "Extract the text content of an element by CSS selector. Waits for the element to appear. Leading and trailing whitespace is trimmed."
}

// Definition returns the MCP tool definition.
func (t *ExtractTextTool) Definition() mcp.Tool {
	return mcp.NewTool(t.Name(),
		mcp.WithDescription(t.Description()),
		mcp.WithString("selector",
			mcp.Required(),
			mcp.Description("CSS selector of the element (e.g., 'h1', 'article .content')"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

// ExtractTextInput represents the parameters for text extraction.
type ExtractTextInput struct {
	Selector string `json:"selector"`
}

// Execute extracts the element text.
func (t *ExtractTextTool) Execute(ctx context.Context, args map[string]any) tools.Response {
	var input ExtractTextInput
	if err := decodeArgs(args, &input); err != nil {
		return invalid(err.Error(), "Provide selector as a string", nil)
	}

	reqCtx := map[string]any{"selector": input.Selector}

	if strings.TrimSpace(input.Selector) == "" {
		return invalid("Selector cannot be empty", "Provide a valid CSS selector", reqCtx)
	}

	var text string
	err := t.withPage(ctx, t.Name(), func(page Page) error {
		content, err := page.TextContent(input.Selector, t.opts.ElementTimeout)
		if err != nil {
			return err
		}
		text = strings.TrimSpace(content)
		return nil
	})
	if err != nil {
		return failure(err,
			fmt.Sprintf("Element '%s' not found within %dms", input.Selector, t.opts.ElementTimeout.Milliseconds()),
			reqCtx,
		)
	}

	return tools.OK(map[string]any{
		"selector":    input.Selector,
		"text":        text,
		"text_length": utf8.RuneCountInString(text),
	})
}
