package browser

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"sync"
	"time"
)

// fakeSite is a page the fake browser can load.
type fakeSite struct {
	title    string
	elements map[string]string
	readonly map[string]bool
	links    map[string]string
}

var fakeSites = map[string]fakeSite{
	"https://example.com/": {
		title: "Example Domain",
		elements: map[string]string{
			"h1": "Example Domain",
			"p":  "\n    This domain is for use in illustrative examples in documents.\n  ",
			"a":  "More information...",
		},
	},
	"https://example.com/form": {
		title: "Form",
		elements: map[string]string{
			"input[name=\"q\"]": "",
			"#locked":           "",
			"button":            "Search",
			"#home":             "Home",
		},
		readonly: map[string]bool{"#locked": true},
		links:    map[string]string{"#home": "https://example.com/"},
	},
}

// fakeLauncher is an in-memory Launcher that counts calls.
type fakeLauncher struct {
	mu          sync.Mutex
	launchCalls int
	closeCalls  int
	delay       time.Duration
	launchErr   error
	browsers    []*fakeBrowser
}

func (l *fakeLauncher) Launch(ctx context.Context, _ LaunchOptions) (Browser, error) {
	l.mu.Lock()
	l.launchCalls++
	delay, launchErr := l.delay, l.launchErr
	l.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if launchErr != nil {
		return nil, launchErr
	}

	b := &fakeBrowser{connected: true}
	l.mu.Lock()
	l.browsers = append(l.browsers, b)
	l.mu.Unlock()
	return b, nil
}

func (l *fakeLauncher) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closeCalls++
	return nil
}

func (l *fakeLauncher) launches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launchCalls
}

func (l *fakeLauncher) lastBrowser() *fakeBrowser {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.browsers) == 0 {
		return nil
	}
	return l.browsers[len(l.browsers)-1]
}

type fakeBrowser struct {
	mu         sync.Mutex
	connected  bool
	closeCalls int
	pages      []*fakePage
}

func (b *fakeBrowser) NewPage(viewport Viewport) (Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := &fakePage{browser: b, viewport: viewport, url: "about:blank"}
	b.pages = append(b.pages, p)
	return p, nil
}

func (b *fakeBrowser) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

func (b *fakeBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closeCalls++
	b.connected = false
	return nil
}

func (b *fakeBrowser) disconnect() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = false
}

func (b *fakeBrowser) page() *fakePage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pages[len(b.pages)-1]
}

// fakePage simulates one page. Missing selectors fail with a timeout the
// way Playwright locators do.
type fakePage struct {
	mu        sync.Mutex
	browser   *fakeBrowser
	viewport  Viewport
	url       string
	site      fakeSite
	values    map[string]string
	closed    bool
	crashNext bool
	clicks    []string
	shots     []string

	textTimeouts []time.Duration
}

var errFakeCrash = fmt.Errorf("%w: Target page, context or browser has been closed", ErrBrowserClosed)

// op runs the shared preamble of every page operation.
func (p *fakePage) op() error {
	if p.crashNext {
		p.crashNext = false
		p.closed = true
		p.browser.disconnect()
		return errFakeCrash
	}
	if p.closed {
		return errFakeCrash
	}
	return nil
}

func (p *fakePage) lookup(selector string, timeout time.Duration) (string, error) {
	text, ok := p.site.elements[selector]
	if !ok {
		return "", fmt.Errorf("%w: Timeout %dms exceeded waiting for locator(%q)", ErrTimeout, timeout.Milliseconds(), selector)
	}
	if v, ok := p.values[selector]; ok {
		return v, nil
	}
	return text, nil
}

func (p *fakePage) Goto(rawURL string, _ WaitUntil, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.op(); err != nil {
		return err
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	if u.Path == "" {
		u.Path = "/"
	}
	normalized := u.String()

	if u.Host == "slow.example.com" {
		return fmt.Errorf("%w: Timeout %dms exceeded", ErrTimeout, timeout.Milliseconds())
	}
	site, ok := fakeSites[normalized]
	if !ok {
		return fmt.Errorf("page.goto: net::ERR_NAME_NOT_RESOLVED at %s", rawURL)
	}

	p.url = normalized
	p.site = site
	p.values = map[string]string{}
	return nil
}

func (p *fakePage) Click(selector string, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.op(); err != nil {
		return err
	}
	if _, err := p.lookup(selector, timeout); err != nil {
		return err
	}
	p.clicks = append(p.clicks, selector)
	if target, ok := p.site.links[selector]; ok {
		p.url = target
		p.site = fakeSites[target]
		p.values = map[string]string{}
	}
	return nil
}

func (p *fakePage) Fill(selector, text string, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.op(); err != nil {
		return err
	}
	if _, err := p.lookup(selector, timeout); err != nil {
		return err
	}
	if p.site.readonly[selector] {
		return errors.New("locator.clear: Error: Element is not editable")
	}
	p.values[selector] = text
	return nil
}

func (p *fakePage) TextContent(selector string, timeout time.Duration) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.op(); err != nil {
		return "", err
	}
	p.textTimeouts = append(p.textTimeouts, timeout)
	return p.lookup(selector, timeout)
}

func (p *fakePage) Screenshot(path string, _ bool, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.op(); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte("\x89PNG fake image"), 0644); err != nil {
		return err
	}
	p.shots = append(p.shots, path)
	return nil
}

func (p *fakePage) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *fakePage) Title() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.op(); err != nil {
		return "", err
	}
	return p.site.title, nil
}

func (p *fakePage) ViewportSize() Viewport {
	return p.viewport
}

func (p *fakePage) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// crashOnNextOp makes the next page operation kill the browser.
func (p *fakePage) crashOnNextOp() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.crashNext = true
}

func newTestManager(l *fakeLauncher) *Manager {
	opts := DefaultOptions()
	opts.LaunchTimeout = time.Second
	return NewManager(l, opts)
}

func testToolOptions(dir string) ToolOptions {
	opts := DefaultToolOptions()
	opts.ElementTimeout = 50 * time.Millisecond
	opts.ScreenshotDir = dir
	return opts
}
