// Package browser provides web browser automation through Playwright.
//
// A single Manager owns one browser and one page for the life of the
// process. Every tool borrows that page for one operation, so state such as
// the current URL and form values carries over between calls.
//
// # Lifecycle
//
// The browser follows this lifecycle:
//
//  1. Lazy launch: the first GetPage launches Chromium and opens a page with
//     the configured viewport. Concurrent first calls share one launch.
//  2. Use: tools navigate, click, fill, read text, and take screenshots.
//  3. Recovery: when an operation fails because the browser went away, the
//     tool calls Restart and retries once (ToolOptions.AutoRestart).
//  4. Cleanup: Cleanup closes the page, the browser, and the Playwright
//     driver. It is idempotent and safe before any launch.
//
// # Results
//
// Tools never return Go errors. Each Execute returns a tools.Response that is
// either a success with operation fields or a failure with error, error_type,
// suggestion, and the request context. Backend errors are mapped to an
// error_type by Classify.
//
// # Backends
//
// Manager talks to the browser through the Launcher, Browser, and Page
// interfaces. PlaywrightLauncher implements them with playwright-go; tests
// substitute an in-memory fake.
//
// # Example Usage
//
//	launcher := browser.NewPlaywrightLauncher(browser.PlaywrightOptions{})
//	manager := browser.NewManager(launcher, browser.DefaultOptions())
//	defer manager.Cleanup()
//
//	reg := tools.NewRegistry()
//	if err := browser.RegisterTools(reg, manager, browser.DefaultToolOptions(), logger); err != nil {
//	    return err
//	}
package browser
