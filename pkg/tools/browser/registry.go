package browser

import (
	"github.com/entrhq/playwright-mcp/pkg/logging"
	"github.com/entrhq/playwright-mcp/pkg/tools"
)

// NewTools creates all browser tools sharing one manager, in their
// registration order.
func NewTools(manager *Manager, opts ToolOptions, logger *logging.Logger) []tools.Tool {
	return []tools.Tool{
		NewNavigateTool(manager, opts, logger),
		NewClickTool(manager, opts, logger),
		NewFillTool(manager, opts, logger),
		NewExtractTextTool(manager, opts, logger),
		NewScreenshotTool(manager, opts, logger),
		NewPageInfoTool(manager, opts, logger),
	}
}

// RegisterTools adds all browser tools to reg.
func RegisterTools(reg *tools.Registry, manager *Manager, opts ToolOptions, logger *logging.Logger) error {
	return reg.Register(NewTools(manager, opts, logger)...)
}
