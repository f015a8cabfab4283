package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/playwright-mcp/pkg/logging"
	"github.com/entrhq/playwright-mcp/pkg/tools"
)

// LifecycleObserver is notified of browser lifecycle transitions.
type LifecycleObserver interface {
	BrowserLaunched(duration time.Duration)
	BrowserRestarted()
	BrowserClosed()
}

type nopObserver struct{}

func (nopObserver) BrowserLaunched(time.Duration) {}
func (nopObserver) BrowserRestarted()             {}
func (nopObserver) BrowserClosed()                {}

// Manager owns the lifecycle of one browser and one page.
//
// The browser is launched lazily on the first GetPage. EnsureReady, Restart
// and Cleanup are serialized by lifecycleMu; concurrent callers during a
// launch wait for it and then share the result. The lock is not held while
// callers use the page, so tool operations may overlap.
type Manager struct {
	launcher Launcher
	opts     Options
	logger   *logging.Logger
	observer LifecycleObserver

	// lifecycleMu serializes launch, restart, and teardown
	lifecycleMu sync.Mutex

	// mu guards the fields below; readers never wait behind a launch
	mu          sync.RWMutex
	browser     Browser
	page        Page
	initialized bool
	launches    int
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(logger *logging.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithObserver registers a lifecycle observer (metrics).
func WithObserver(observer LifecycleObserver) ManagerOption {
	return func(m *Manager) {
		m.observer = observer
	}
}

// NewManager creates a manager. No browser is launched until first use.
func NewManager(launcher Launcher, opts Options, options ...ManagerOption) *Manager {
	if opts.Viewport.Width <= 0 {
		opts.Viewport.Width = DefaultViewportWidth
	}
	if opts.Viewport.Height <= 0 {
		opts.Viewport.Height = DefaultViewportHeight
	}

	m := &Manager{
		launcher: launcher,
		opts:     opts,
		logger:   logging.Nop(),
		observer: nopObserver{},
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// EnsureReady launches the browser and opens a page unless a live pair
// already exists. A held page that was closed, or a browser that
// disconnected, counts as not ready and is replaced.
func (m *Manager) EnsureReady(ctx context.Context) error {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()

	return m.ensureReadyLocked(ctx)
}

func (m *Manager) ensureReadyLocked(ctx context.Context) error {
	if m.livePage() != nil {
		return nil
	}

	m.mu.RLock()
	stale := m.initialized
	m.mu.RUnlock()
	if stale {
		m.logger.Warnf("browser page is no longer usable, relaunching")
		m.teardownLocked()
	}

	if p, ok := m.launcher.(Preparer); ok {
		if err := p.Prepare(ctx); err != nil {
			m.logger.Errorf("browser driver not ready: %v", err)
			return &Error{Kind: tools.KindBrowserLaunch, Op: "failed to prepare browser driver", Err: err}
		}
	}

	start := time.Now()
	m.logger.Infof("launching browser (headless=%t, viewport=%dx%d)",
		m.opts.Headless, m.opts.Viewport.Width, m.opts.Viewport.Height)

	launchCtx := ctx
	if m.opts.LaunchTimeout > 0 {
		var cancel context.CancelFunc
		launchCtx, cancel = context.WithTimeout(ctx, m.opts.LaunchTimeout)
		defer cancel()
	}

	browser, err := m.launcher.Launch(launchCtx, LaunchOptions{
		Headless: m.opts.Headless,
		Timeout:  m.opts.LaunchTimeout,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("browser launch timed out after %s: %w", m.opts.LaunchTimeout, err)
		}
		m.logger.Errorf("browser launch failed: %v", err)
		return &Error{Kind: tools.KindBrowserLaunch, Op: "failed to launch browser", Err: err}
	}

	page, err := browser.NewPage(m.opts.Viewport)
	if err != nil {
		_ = browser.Close()
		m.logger.Errorf("failed to open page: %v", err)
		return &Error{Kind: tools.KindBrowserLaunch, Op: "failed to open page", Err: err}
	}

	m.mu.Lock()
	m.browser = browser
	m.page = page
	m.initialized = true
	m.launches++
	m.mu.Unlock()

	elapsed := time.Since(start)
	m.observer.BrowserLaunched(elapsed)
	m.logger.Infof("browser ready in %s", elapsed.Round(time.Millisecond))
	return nil
}

// livePage returns the held page if the pair is usable, otherwise nil.
func (m *Manager) livePage() Page {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.initialized || m.page == nil || m.browser == nil {
		return nil
	}
	if m.page.IsClosed() || !m.browser.IsConnected() {
		return nil
	}
	return m.page
}

// GetPage returns the live page, launching the browser first if needed.
// Callers borrow the page for one operation and must not retain it.
func (m *Manager) GetPage(ctx context.Context) (Page, error) {
	if page := m.livePage(); page != nil {
		return page, nil
	}

	if err := m.EnsureReady(ctx); err != nil {
		return nil, err
	}

	if page := m.livePage(); page != nil {
		return page, nil
	}

	// Cleanup or a crash landed between EnsureReady and here.
	return nil, &Error{Kind: tools.KindBrowserLaunch, Op: "failed to get page", Err: ErrBrowserClosed}
}

// Restart closes the current browser and page, ignoring close errors, and
// launches a fresh pair. It is the crash-recovery path.
func (m *Manager) Restart(ctx context.Context) (Page, error) {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()

	return m.restartLocked(ctx)
}

// Recover restarts the browser after an operation on crashed failed. If
// another caller already replaced that page, the live replacement is
// returned and nothing is restarted.
func (m *Manager) Recover(ctx context.Context, crashed Page) (Page, error) {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()

	if page := m.livePage(); page != nil && page != crashed {
		m.logger.Debugf("browser already replaced, reusing the new page")
		return page, nil
	}
	return m.restartLocked(ctx)
}

func (m *Manager) restartLocked(ctx context.Context) (Page, error) {
	m.logger.Warnf("restarting browser")
	m.teardownLocked()
	m.observer.BrowserRestarted()

	if err := m.ensureReadyLocked(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.page, nil
}

// teardownLocked detaches and closes the page and browser. Close errors are
// logged and returned but the state is always reset.
func (m *Manager) teardownLocked() []error {
	m.mu.Lock()
	page, browser := m.page, m.browser
	m.page = nil
	m.browser = nil
	m.initialized = false
	m.mu.Unlock()

	var errs []error
	if page != nil && !page.IsClosed() {
		if err := page.Close(); err != nil {
			m.logger.Debugf("error closing page: %v", err)
			errs = append(errs, fmt.Errorf("failed to close page: %w", err))
		}
	}
	if browser != nil {
		if err := browser.Close(); err != nil {
			m.logger.Debugf("error closing browser: %v", err)
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}
	if page != nil || browser != nil {
		m.observer.BrowserClosed()
	}
	return errs
}

// Cleanup closes the page, the browser, and the backend driver, leaving the
// manager uninitialized. It is safe to call repeatedly and on a manager that
// never launched.
func (m *Manager) Cleanup() error {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()

	m.mu.RLock()
	hadBrowser := m.browser != nil || m.page != nil
	m.mu.RUnlock()

	errs := m.teardownLocked()
	if err := m.launcher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop browser driver: %w", err))
	}

	if hadBrowser {
		m.logger.Infof("browser cleanup complete")
	}
	return errors.Join(errs...)
}

// IsInitialized reports whether a live browser and page are held.
func (m *Manager) IsInitialized() bool {
	return m.livePage() != nil
}

// CurrentURL returns the page URL, or "" when uninitialized.
func (m *Manager) CurrentURL() string {
	if page := m.livePage(); page != nil {
		return page.URL()
	}
	return ""
}

// ViewportSize returns the page viewport, or the configured viewport when
// uninitialized.
func (m *Manager) ViewportSize() Viewport {
	if page := m.livePage(); page != nil {
		if vp := page.ViewportSize(); vp.Width > 0 && vp.Height > 0 {
			return vp
		}
	}
	return m.opts.Viewport
}

// Launches returns how many times a browser has been launched.
func (m *Manager) Launches() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.launches
}
