package browser

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/entrhq/playwright-mcp/pkg/tools"
)

var (
	// ErrTimeout is wrapped by backend errors caused by an exceeded timeout
	ErrTimeout = errors.New("operation timed out")

	// ErrBrowserClosed is wrapped by backend errors caused by the browser,
	// context, or page going away underneath an operation
	ErrBrowserClosed = errors.New("browser has been closed")

	// ErrNotFound is wrapped by backend errors for selectors that match nothing
	ErrNotFound = errors.New("no element found")
)

// Error is a browser failure with a known kind.
type Error struct {
	Kind tools.ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

var suggestions = map[tools.ErrorKind]string{
	tools.KindValidation:          "Check the tool arguments and try again",
	tools.KindElementNotFound:     "Element not found with given selector. Check selector syntax",
	tools.KindTimeout:             "Operation timed out. Try increasing timeout or check if site is accessible",
	tools.KindNetwork:             "Network request failed. Check URL spelling and internet connection",
	tools.KindFileSystem:          "Check file/directory write permissions",
	tools.KindInvalidElementState: "Element is disabled or read-only and cannot be modified",
	tools.KindBrowserLaunch:       "Ensure Playwright browsers are installed (SKIP_INSTALL=false installs them on first launch) or increase BROWSER_TIMEOUT",
	tools.KindUnknown:             "An unexpected error occurred. Check the error message for details",
}

// Suggestion returns the generic hint for kind.
func Suggestion(kind tools.ErrorKind) string {
	if s, ok := suggestions[kind]; ok {
		return s
	}
	return suggestions[tools.KindUnknown]
}

// Classify maps err to an error kind and an actionable suggestion. Typed
// errors are matched first, then known backend message patterns.
func Classify(err error) (tools.ErrorKind, string) {
	if err == nil {
		return "", ""
	}

	var be *Error
	if errors.As(err, &be) && be.Kind != "" {
		return be.Kind, Suggestion(be.Kind)
	}

	msg := strings.ToLower(err.Error())

	// Chromium network codes never arrive wrapped in ErrTimeout.
	switch {
	case strings.Contains(msg, "net::err_name_not_resolved"):
		return tools.KindNetwork, "DNS lookup failed. Check URL spelling and internet connection"
	case strings.Contains(msg, "net::err_connection_refused"):
		return tools.KindNetwork, "Connection refused. The server may be down or unreachable"
	case strings.Contains(msg, "net::err_cert"), strings.Contains(msg, "net::err_ssl"):
		return tools.KindNetwork, "SSL certificate error. The site may have security issues"
	case strings.Contains(msg, "net::err_"):
		return tools.KindNetwork, Suggestion(tools.KindNetwork)
	}

	// Timeout messages quote the selector or URL, so the loose patterns
	// below must not see them.
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return tools.KindTimeout, Suggestion(tools.KindTimeout)
	}

	switch {
	case strings.Contains(msg, "dns"):
		return tools.KindNetwork, "DNS lookup failed. Check URL spelling and internet connection"
	case strings.Contains(msg, "ssl"), strings.Contains(msg, "certificate"):
		return tools.KindNetwork, "SSL certificate error. The site may have security issues"
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) || errors.Is(err, fs.ErrPermission) ||
		strings.Contains(msg, "permission denied") || strings.Contains(msg, "eacces") {
		return tools.KindFileSystem, Suggestion(tools.KindFileSystem)
	}

	if strings.Contains(msg, "timeout") {
		return tools.KindTimeout, Suggestion(tools.KindTimeout)
	}

	switch {
	case strings.Contains(msg, "element is not visible"):
		return tools.KindElementNotFound, "Element exists but not visible. Try scrolling or waiting for it to appear"
	case errors.Is(err, ErrNotFound),
		strings.Contains(msg, "unable to find element"),
		strings.Contains(msg, "no element found"),
		strings.Contains(msg, "resolved to 0 elements"):
		return tools.KindElementNotFound, Suggestion(tools.KindElementNotFound)
	case strings.Contains(msg, "element is disabled"),
		strings.Contains(msg, "readonly"),
		strings.Contains(msg, "read-only"),
		strings.Contains(msg, "not editable"):
		return tools.KindInvalidElementState, Suggestion(tools.KindInvalidElementState)
	}

	return tools.KindUnknown, Suggestion(tools.KindUnknown)
}

// crashSignatures are message fragments reported when the browser process,
// context, or page died underneath an operation.
var crashSignatures = []string{
	"target closed",
	"target page, context or browser has been closed",
	"browser has been closed",
	"browser closed",
	"connection closed",
	"has been disconnected",
	"websocket closed",
}

// IsCrash reports whether err means the browser is gone and a restart is
// needed before retrying.
func IsCrash(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrBrowserClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range crashSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
