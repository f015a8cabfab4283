package browser

import (
	"context"
	"time"
)

// Launcher starts browser processes. It owns any driver process the backend
// needs and must tolerate Launch after Close.
type Launcher interface {
	// Launch starts a browser. Implementations must return once ctx is done.
	Launch(ctx context.Context, opts LaunchOptions) (Browser, error)

	// Close stops the backend driver. Safe to call multiple times.
	Close() error
}

// Preparer is implemented by launchers with slow one-time setup, such as a
// driver download. The Manager runs it before the launch timeout starts.
type Preparer interface {
	Prepare(ctx context.Context) error
}

// Browser is a handle to one running browser process.
type Browser interface {
	// NewPage opens a page in a fresh browser context with the given viewport
	NewPage(viewport Viewport) (Page, error)

	// IsConnected reports whether the browser process is still reachable
	IsConnected() bool

	// Close terminates the browser process
	Close() error
}

// Page is a handle to one navigable document. All element operations take a
// CSS selector and a timeout; a zero timeout means the backend default.
type Page interface {
	Goto(url string, waitUntil WaitUntil, timeout time.Duration) error
	Click(selector string, timeout time.Duration) error

	// Fill clears the element, then types text into it
	Fill(selector, text string, timeout time.Duration) error

	// TextContent waits for the element, then returns its text content
	TextContent(selector string, timeout time.Duration) (string, error)

	Screenshot(path string, fullPage bool, timeout time.Duration) error

	URL() string
	Title() (string, error)
	ViewportSize() Viewport
	IsClosed() bool
	Close() error
}

// LaunchOptions configures a browser launch.
type LaunchOptions struct {
	// Headless controls whether the browser runs without a visible window
	Headless bool

	// Timeout bounds the launch itself
	Timeout time.Duration
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// WaitUntil is the navigation completion condition.
type WaitUntil string

const (
	// WaitLoad waits for the load event (default)
	WaitLoad WaitUntil = "load"
	// WaitDOMContentLoaded waits for the DOMContentLoaded event
	WaitDOMContentLoaded WaitUntil = "domcontentloaded"
	// WaitNetworkIdle waits until there are no network connections for 500ms
	WaitNetworkIdle WaitUntil = "networkidle"
)

// Valid reports whether w is a known wait condition.
func (w WaitUntil) Valid() bool {
	switch w {
	case WaitLoad, WaitDOMContentLoaded, WaitNetworkIdle:
		return true
	}
	return false
}

// Options configures the Manager.
type Options struct {
	Headless      bool
	Viewport      Viewport
	LaunchTimeout time.Duration
}

// ToolOptions configures the browser tools.
type ToolOptions struct {
	NavigationTimeout time.Duration
	ElementTimeout    time.Duration
	ScreenshotTimeout time.Duration

	// ScreenshotDir is where bare screenshot file names are written.
	// Paths containing a directory component are used as given.
	ScreenshotDir string

	// AutoRestart restarts the browser and retries once when an operation
	// fails because the browser went away.
	AutoRestart bool
}

// Default values for various operations
const (
	DefaultLaunchTimeout     = 30 * time.Second
	DefaultNavigationTimeout = 30 * time.Second
	DefaultElementTimeout    = 10 * time.Second
	DefaultScreenshotTimeout = 5 * time.Second
	DefaultViewportWidth     = 1920
	DefaultViewportHeight    = 1080
)

// DefaultOptions returns the Manager defaults.
func DefaultOptions() Options {
	return Options{
		Headless: true,
		Viewport: Viewport{
			Width:  DefaultViewportWidth,
			Height: DefaultViewportHeight,
		},
		LaunchTimeout: DefaultLaunchTimeout,
	}
}

// DefaultToolOptions returns the tool defaults.
func DefaultToolOptions() ToolOptions {
	return ToolOptions{
		NavigationTimeout: DefaultNavigationTimeout,
		ElementTimeout:    DefaultElementTimeout,
		ScreenshotTimeout: DefaultScreenshotTimeout,
		AutoRestart:       true,
	}
}
