package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/entrhq/playwright-mcp/pkg/logging"
	"github.com/entrhq/playwright-mcp/pkg/tools"
)

var screenshotExtensions = []string{".png", ".jpg", ".jpeg"}

// ScreenshotTool captures the current page to an image file.
type ScreenshotTool struct {
	toolBase
}

// NewScreenshotTool creates a new screenshot tool.
func NewScreenshotTool(manager *Manager, opts ToolOptions, logger *logging.Logger) *ScreenshotTool {
	return &ScreenshotTool{
		toolBase: newToolBase(manager, opts, logger),
	}
}

// Name returns the tool name.
func (t *ScreenshotTool) Name() string {
	return "screenshot"
}

// Description returns the tool description.
func (t *ScreenshotTool) Description() string {
	return "Take a screenshot of the current page and save it as PNG or JPEG. Parent directories are created if missing. A bare file name is saved in the configured screenshot directory."
}

// Definition returns the MCP tool definition.
func (t *ScreenshotTool) Definition() mcp.Tool {
	return mcp.NewTool(t.Name(),
		mcp.WithDescription(t.Description()),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("File path to save the screenshot (.png, .jpg or .jpeg)"),
		),
		mcp.WithBoolean("full_page",
			mcp.Description("Capture the entire scrollable page instead of the viewport only. Default: false"),
			mcp.DefaultBool(false),
		),
	)
}

// ScreenshotInput represents the parameters for a screenshot.
type ScreenshotInput struct {
	Path     string `json:"path"`
	FullPage bool   `json:"full_page"`
}

// Execute takes the screenshot.
func (t *ScreenshotTool) Execute(ctx context.Context, args map[string]any) tools.Response {
	var input ScreenshotInput
	if err := decodeArgs(args, &input); err != nil {
		return invalid(err.Error(), "Provide path as a string and full_page as a boolean", nil)
	}

	reqCtx := map[string]any{"path": input.Path}

	if strings.TrimSpace(input.Path) == "" {
		return invalid("Path cannot be empty", "Provide a valid file path", reqCtx)
	}

	ext := filepath.Ext(input.Path)
	if !validScreenshotExt(ext) {
		return invalid(
			fmt.Sprintf("Invalid file extension: %s", ext),
			fmt.Sprintf("Use one of: %s", strings.Join(screenshotExtensions, ", ")),
			reqCtx,
		)
	}

	path, err := filepath.Abs(t.resolvePath(input.Path))
	if err != nil {
		return failure(err, "", reqCtx)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return failure(fmt.Errorf("failed to create directory: %w", err), "", reqCtx)
	}

	err = t.withPage(ctx, t.Name(), func(page Page) error {
		return page.Screenshot(path, input.FullPage, t.opts.ScreenshotTimeout)
	})
	if err != nil {
		return failure(err,
			fmt.Sprintf("Screenshot timed out after %dms", t.opts.ScreenshotTimeout.Milliseconds()),
			reqCtx,
		)
	}

	info, err := os.Stat(path)
	if err != nil {
		return failure(fmt.Errorf("screenshot was not written: %w", err), "", reqCtx)
	}

	t.logger.Debugf("screenshot saved to %s (%d bytes)", path, info.Size())
	return tools.OK(map[string]any{
		"path":      path,
		"file_size": info.Size(),
		"full_page": input.FullPage,
		"viewport":  t.manager.ViewportSize(),
	})
}

// resolvePath places bare file names in the screenshot directory. Paths with
// any directory component, including "./", are used as given.
func (t *ScreenshotTool) resolvePath(path string) string {
	if t.opts.ScreenshotDir == "" || strings.ContainsAny(path, `/\`) {
		return path
	}
	return filepath.Join(t.opts.ScreenshotDir, path)
}

func validScreenshotExt(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range screenshotExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
