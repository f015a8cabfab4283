package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/playwright-mcp/pkg/logging"
)

// PlaywrightOptions configures the Playwright launcher.
type PlaywrightOptions struct {
	// SkipInstall skips the driver and browser download on first launch
	SkipInstall bool

	// Logger receives driver lifecycle messages
	Logger *logging.Logger
}

// errLauncherClosed is returned to callers waiting on a driver startup that
// Close abandoned.
var errLauncherClosed = errors.New("browser driver was shut down during startup")

// PlaywrightLauncher launches Chromium through playwright-go. The driver is
// installed and started once, by Prepare or the first Launch, and stopped by
// Close.
type PlaywrightLauncher struct {
	opts   PlaywrightOptions
	logger *logging.Logger

	// run installs and starts the driver
	run func() (*playwright.Playwright, error)

	// mu guards startup; it is never held while installing
	mu      sync.Mutex
	startup *driverStartup
}

// driverStartup is one attempt to bring the driver up. done is closed once
// pw and err are final.
type driverStartup struct {
	done chan struct{}
	pw   *playwright.Playwright
	err  error
}

func (st *driverStartup) failed() bool {
	select {
	case <-st.done:
		return st.err != nil
	default:
		return false
	}
}

// NewPlaywrightLauncher creates a launcher. Nothing is started until Prepare
// or Launch.
func NewPlaywrightLauncher(opts PlaywrightOptions) *PlaywrightLauncher {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	l := &PlaywrightLauncher{
		opts:   opts,
		logger: logger,
	}
	l.run = l.installAndRun
	return l
}

// installAndRun downloads the driver and Chromium unless skipped, then starts
// the driver. Output is discarded so it cannot corrupt a stdio transport.
func (l *PlaywrightLauncher) installAndRun() (*playwright.Playwright, error) {
	opts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}

	if !l.opts.SkipInstall {
		l.logger.Infof("installing playwright driver and chromium")
		if err := playwright.Install(opts); err != nil {
			return nil, fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}
	return pw, nil
}

// Prepare installs and starts the driver, or waits for a startup already in
// progress. ctx bounds only the wait; the startup itself keeps going. A
// failed startup is retried by the next call.
func (l *PlaywrightLauncher) Prepare(ctx context.Context) error {
	_, err := l.driver(ctx)
	return err
}

func (l *PlaywrightLauncher) driver(ctx context.Context) (*playwright.Playwright, error) {
	l.mu.Lock()
	st := l.startup
	if st == nil || st.failed() {
		st = &driverStartup{done: make(chan struct{})}
		l.startup = st
		go l.start(st)
	}
	l.mu.Unlock()

	select {
	case <-st.done:
		return st.pw, st.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *PlaywrightLauncher) start(st *driverStartup) {
	pw, err := l.run()

	l.mu.Lock()
	defer l.mu.Unlock()

	if err == nil && l.startup != st {
		if pw != nil {
			_ = pw.Stop()
		}
		pw, err = nil, errLauncherClosed
	}
	if err != nil {
		l.logger.Errorf("browser driver startup failed: %v", err)
	}
	st.pw, st.err = pw, err
	close(st.done)
}

type launchResult struct {
	browser playwright.Browser
	err     error
}

// Launch starts Chromium, starting the driver first if needed. If ctx ends
// first, the launch is abandoned and the browser is closed as soon as it
// appears.
func (l *PlaywrightLauncher) Launch(ctx context.Context, opts LaunchOptions) (Browser, error) {
	pw, err := l.driver(ctx)
	if err != nil {
		return nil, err
	}

	done := make(chan launchResult, 1)
	go func() {
		launchOpts := playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(opts.Headless),
		}
		if opts.Timeout > 0 {
			launchOpts.Timeout = playwright.Float(millis(opts.Timeout))
		}

		b, err := pw.Chromium.Launch(launchOpts)
		done <- launchResult{browser: b, err: translate(err)}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		return &pwBrowser{browser: res.browser}, nil
	case <-ctx.Done():
		go func() {
			if res := <-done; res.browser != nil {
				_ = res.browser.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

// Close stops the driver. A startup still in progress is abandoned and
// stops its own driver when it finishes, so Close never waits for an
// install. Safe to call multiple times.
func (l *PlaywrightLauncher) Close() error {
	l.mu.Lock()
	st := l.startup
	l.startup = nil
	l.mu.Unlock()

	if st == nil {
		return nil
	}

	select {
	case <-st.done:
	default:
		l.logger.Infof("browser driver still starting, it will stop once ready")
		return nil
	}

	if st.pw == nil {
		return nil
	}
	if err := st.pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}

type pwBrowser struct {
	browser playwright.Browser
}

func (b *pwBrowser) NewPage(viewport Viewport) (Page, error) {
	bctx, err := b.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  viewport.Width,
			Height: viewport.Height,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create context: %w", translate(err))
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("failed to create page: %w", translate(err))
	}

	return &pwPage{context: bctx, page: page}, nil
}

func (b *pwBrowser) IsConnected() bool {
	return b.browser.IsConnected()
}

func (b *pwBrowser) Close() error {
	if !b.browser.IsConnected() {
		return nil
	}
	return translate(b.browser.Close())
}

type pwPage struct {
	context playwright.BrowserContext
	page    playwright.Page
}

func (p *pwPage) Goto(url string, waitUntil WaitUntil, timeout time.Duration) error {
	opts := playwright.PageGotoOptions{}

	if waitUntil != "" {
		state := playwright.WaitUntilState(waitUntil)
		opts.WaitUntil = &state
	}
	if timeout > 0 {
		opts.Timeout = playwright.Float(millis(timeout))
	}

	if _, err := p.page.Goto(url, opts); err != nil {
		return fmt.Errorf("navigation failed: %w", translate(err))
	}
	return nil
}

func (p *pwPage) Click(selector string, timeout time.Duration) error {
	opts := playwright.LocatorClickOptions{}
	if timeout > 0 {
		opts.Timeout = playwright.Float(millis(timeout))
	}

	if err := p.page.Locator(selector).Click(opts); err != nil {
		return fmt.Errorf("click failed: %w", translate(err))
	}
	return nil
}

func (p *pwPage) Fill(selector, text string, timeout time.Duration) error {
	locator := p.page.Locator(selector)

	clearOpts := playwright.LocatorClearOptions{}
	fillOpts := playwright.LocatorFillOptions{}
	if timeout > 0 {
		clearOpts.Timeout = playwright.Float(millis(timeout))
		fillOpts.Timeout = playwright.Float(millis(timeout))
	}

	if err := locator.Clear(clearOpts); err != nil {
		return fmt.Errorf("clear failed: %w", translate(err))
	}
	if err := locator.Fill(text, fillOpts); err != nil {
		return fmt.Errorf("fill failed: %w", translate(err))
	}
	return nil
}

func (p *pwPage) TextContent(selector string, timeout time.Duration) (string, error) {
	locator := p.page.Locator(selector)

	waitOpts := playwright.LocatorWaitForOptions{}
	textOpts := playwright.LocatorTextContentOptions{}
	if timeout > 0 {
		waitOpts.Timeout = playwright.Float(millis(timeout))
		textOpts.Timeout = playwright.Float(millis(timeout))
	}

	if err := locator.WaitFor(waitOpts); err != nil {
		return "", fmt.Errorf("wait for element failed: %w", translate(err))
	}

	text, err := locator.TextContent(textOpts)
	if err != nil {
		return "", fmt.Errorf("text extraction failed: %w", translate(err))
	}
	return text, nil
}

func (p *pwPage) Screenshot(path string, fullPage bool, timeout time.Duration) error {
	opts := playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(fullPage),
	}
	if timeout > 0 {
		opts.Timeout = playwright.Float(millis(timeout))
	}

	if _, err := p.page.Screenshot(opts); err != nil {
		return fmt.Errorf("screenshot failed: %w", translate(err))
	}
	return nil
}

func (p *pwPage) URL() string {
	return p.page.URL()
}

func (p *pwPage) Title() (string, error) {
	title, err := p.page.Title()
	if err != nil {
		return "", fmt.Errorf("failed to read title: %w", translate(err))
	}
	return title, nil
}

func (p *pwPage) ViewportSize() Viewport {
	size := p.page.ViewportSize()
	if size == nil {
		return Viewport{}
	}
	return Viewport{Width: size.Width, Height: size.Height}
}

func (p *pwPage) IsClosed() bool {
	return p.page.IsClosed()
}

func (p *pwPage) Close() error {
	pageErr := p.page.Close()
	ctxErr := p.context.Close()
	return translate(errors.Join(pageErr, ctxErr))
}

// translate tags Playwright sentinel errors with this package's sentinels so
// Classify and IsCrash work without knowing the backend.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, playwright.ErrTimeout):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case errors.Is(err, playwright.ErrTargetClosed):
		return fmt.Errorf("%w: %w", ErrBrowserClosed, err)
	default:
		return err
	}
}

func millis(d time.Duration) float64 {
	return float64(d.Milliseconds())
}
