// Package main provides the Playwright MCP server: browser automation tools
// exposed over the Model Context Protocol on HTTP or stdio.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/entrhq/playwright-mcp/pkg/config"
	"github.com/entrhq/playwright-mcp/pkg/logging"
	"github.com/entrhq/playwright-mcp/pkg/metrics"
	"github.com/entrhq/playwright-mcp/pkg/server"
	"github.com/entrhq/playwright-mcp/pkg/tools"
	"github.com/entrhq/playwright-mcp/pkg/tools/browser"
)

const (
	serverName = "Playwright Automation Server"
	version    = "1.0.0"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigFile  string
	Transport   string
	ShowVersion bool
}

func main() {
	cli := parseFlags()

	if cli.ShowVersion {
		fmt.Printf("%s v%s\n", serverName, version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nShutting down gracefully...")
		cancel()
	}()

	if err := run(ctx, cli); err != nil {
		cancel()
		fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
		os.Exit(1)
	}
	cancel()
}

// parseFlags parses command line flags
func parseFlags() *CLIConfig {
	cli := &CLIConfig{}

	flag.StringVar(&cli.ConfigFile, "config", "", "Path to configuration file (YAML)")
	flag.StringVar(&cli.Transport, "transport", "", "Transport: http or stdio (overrides TRANSPORT)")
	flag.BoolVar(&cli.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - browser automation over MCP\n\n", serverName)
		fmt.Fprintf(os.Stderr, "Usage: playwright-mcp [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment:\n")
		fmt.Fprintf(os.Stderr, "  DEBUG, HOST, PORT, TRANSPORT, HEADLESS, BROWSER_TIMEOUT, NAVIGATION_TIMEOUT,\n")
		fmt.Fprintf(os.Stderr, "  ELEMENT_TIMEOUT, SCREENSHOT_TIMEOUT, VIEWPORT_WIDTH, VIEWPORT_HEIGHT,\n")
		fmt.Fprintf(os.Stderr, "  SCREENSHOT_DIR, AUTO_RESTART, SKIP_INSTALL, RATE_LIMIT, RATE_BURST,\n")
		fmt.Fprintf(os.Stderr, "  LOG_LEVEL, LOG_DIR\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Serve streamable HTTP on :8000\n")
		fmt.Fprintf(os.Stderr, "  playwright-mcp\n\n")
		fmt.Fprintf(os.Stderr, "  # Serve stdio for a desktop MCP client\n")
		fmt.Fprintf(os.Stderr, "  playwright-mcp -transport stdio\n\n")
	}

	flag.Parse()
	return cli
}

func run(ctx context.Context, cli *CLIConfig) error {
	cfg, cfgErr := config.LoadOrDefault(cli.ConfigFile)
	if cli.Transport != "" {
		cfg.Transport = config.Transport(cli.Transport)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
	}

	if err := logging.Setup(logging.Config{Level: cfg.LogLevel, Debug: cfg.Debug, Dir: cfg.LogDir}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	defer func() { _ = logging.Shutdown() }()

	logger := logging.NewLogger("main")
	if cfgErr != nil {
		logger.Warnf("configuration problems, affected values use defaults: %v", cfgErr)
	}

	m := metrics.New()

	launcher := browser.NewPlaywrightLauncher(browser.PlaywrightOptions{
		SkipInstall: cfg.SkipInstall,
		Logger:      logging.NewLogger("playwright"),
	})
	// Install and start the driver now so the first tool call only pays for
	// the browser launch.
	go func() {
		if err := launcher.Prepare(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warnf("browser driver not ready: %v", err)
		}
	}()

	manager := browser.NewManager(launcher, browserOptions(cfg),
		browser.WithLogger(logging.NewLogger("browser")),
		browser.WithObserver(m),
	)
	defer func() {
		if err := manager.Cleanup(); err != nil {
			logger.Warnf("browser cleanup: %v", err)
		}
	}()

	registry := tools.NewRegistry()
	if err := browser.RegisterTools(registry, manager, toolOptions(cfg), logging.NewLogger("tools")); err != nil {
		return fmt.Errorf("failed to register tools: %w", err)
	}

	srv := server.New(registry,
		server.Info{Name: serverName, Version: version, Instructions: server.DefaultInstructions},
		server.WithLogger(logging.NewLogger("server")),
		server.WithMetrics(m),
		server.WithBrowserStatus(manager),
		server.WithRateLimit(server.RateLimit{RequestsPerSecond: cfg.RateLimit, Burst: cfg.RateBurst}),
	)

	printBanner(os.Stderr, cfg, registry)

	switch cfg.Transport {
	case config.TransportStdio:
		err := srv.ServeStdio(ctx, os.Stdin, os.Stdout)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	default:
		return srv.ListenAndServe(ctx, cfg.Addr(), cfg.Debug)
	}
}

func browserOptions(cfg *config.Config) browser.Options {
	return browser.Options{
		Headless: cfg.Headless,
		Viewport: browser.Viewport{
			Width:  cfg.ViewportWidth,
			Height: cfg.ViewportHeight,
		},
		LaunchTimeout: cfg.BrowserTimeout(),
	}
}

func toolOptions(cfg *config.Config) browser.ToolOptions {
	return browser.ToolOptions{
		NavigationTimeout: cfg.NavigationTimeout(),
		ElementTimeout:    cfg.ElementTimeout(),
		ScreenshotTimeout: cfg.ScreenshotTimeout(),
		ScreenshotDir:     cfg.ScreenshotDir,
		AutoRestart:       cfg.AutoRestart,
	}
}

// printBanner writes the startup summary. It goes to stderr so the stdio
// transport keeps stdout to itself.
func printBanner(w io.Writer, cfg *config.Config, registry *tools.Registry) {
	fmt.Fprintf(w, "%s v%s\n", serverName, version)
	fmt.Fprintf(w, "  transport:  %s\n", cfg.Transport)
	if cfg.Transport == config.TransportHTTP {
		fmt.Fprintf(w, "  endpoint:   http://%s%s\n", cfg.Addr(), server.MCPPath)
		fmt.Fprintf(w, "  inspector:  http://%s/inspector\n", cfg.Addr())
	}
	fmt.Fprintf(w, "  headless:   %t\n", cfg.Headless)
	fmt.Fprintf(w, "  viewport:   %dx%d\n", cfg.ViewportWidth, cfg.ViewportHeight)
	fmt.Fprintf(w, "  tools (%d): ", registry.Count())
	for i, name := range registry.Names() {
		if i > 0 {
			fmt.Fprint(w, ", ")
		}
		fmt.Fprint(w, name)
	}
	fmt.Fprintln(w)
}
