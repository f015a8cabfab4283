package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Transport selects how the MCP server is exposed.
type Transport string

const (
	// TransportHTTP serves streamable HTTP plus the inspector and metadata endpoints
	TransportHTTP Transport = "http"
	// TransportStdio serves MCP over stdin/stdout
	TransportStdio Transport = "stdio"
)

// Config holds all server configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// environment variables (including a .env file in the working directory).
// Timeouts are expressed in milliseconds to match the environment surface.
type Config struct {
	Debug     bool      `envconfig:"DEBUG" yaml:"debug"`
	Host      string    `envconfig:"HOST" yaml:"host"`
	Port      int       `envconfig:"PORT" yaml:"port"`
	Transport Transport `envconfig:"TRANSPORT" yaml:"transport"`

	// Browser
	Headless            bool `envconfig:"HEADLESS" yaml:"headless"`
	BrowserTimeoutMS    int  `envconfig:"BROWSER_TIMEOUT" yaml:"browser_timeout"`
	NavigationTimeoutMS int  `envconfig:"NAVIGATION_TIMEOUT" yaml:"navigation_timeout"`
	ElementTimeoutMS    int  `envconfig:"ELEMENT_TIMEOUT" yaml:"element_timeout"`
	ScreenshotTimeoutMS int  `envconfig:"SCREENSHOT_TIMEOUT" yaml:"screenshot_timeout"`
	ViewportWidth       int  `envconfig:"VIEWPORT_WIDTH" yaml:"viewport_width"`
	ViewportHeight      int  `envconfig:"VIEWPORT_HEIGHT" yaml:"viewport_height"`
	AutoRestart         bool `envconfig:"AUTO_RESTART" yaml:"auto_restart"`
	SkipInstall         bool `envconfig:"SKIP_INSTALL" yaml:"skip_install"`

	ScreenshotDir string `envconfig:"SCREENSHOT_DIR" yaml:"screenshot_dir"`

	// Per-client limit on HTTP tool traffic; 0 disables it
	RateLimit int `envconfig:"RATE_LIMIT" yaml:"rate_limit"`
	RateBurst int `envconfig:"RATE_BURST" yaml:"rate_burst"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" yaml:"log_level"`
	LogDir   string `envconfig:"LOG_DIR" yaml:"log_dir"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Debug:               true,
		Host:                "0.0.0.0",
		Port:                8000,
		Transport:           TransportHTTP,
		Headless:            true,
		BrowserTimeoutMS:    30000,
		NavigationTimeoutMS: 30000,
		ElementTimeoutMS:    10000,
		ScreenshotTimeoutMS: 5000,
		ViewportWidth:       1920,
		ViewportHeight:      1080,
		AutoRestart:         true,
		ScreenshotDir:       "./screenshots",
		RateLimit:           20,
		RateBurst:           40,
		LogLevel:            "info",
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path, and the environment. A missing .env file is not an error.
//
// A value that cannot be parsed or fails validation falls back to its
// default on its own. In that case Load returns a usable config together
// with an error describing every value it replaced. A nil config means the
// .env or YAML file itself could not be read.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	problems := cfg.processEnv()
	problems = append(problems, cfg.repair()...)
	if len(problems) > 0 {
		return cfg, fmt.Errorf("invalid configuration: %w", errors.Join(problems...))
	}
	return cfg, nil
}

// LoadOrDefault is Load that always returns a usable config. The error, if
// any, is informational.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if cfg == nil {
		return Default(), err
	}
	return cfg, err
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// processEnv applies environment overrides. envconfig stops at the first
// unparsable variable, so each bad one is hidden and the pass repeated; the
// field keeps its earlier value. Hidden variables are restored on return.
func (c *Config) processEnv() []error {
	var problems []error
	hidden := map[string]string{}
	defer func() {
		for key, value := range hidden {
			_ = os.Setenv(key, value)
		}
	}()

	for {
		err := envconfig.Process("", c)
		if err == nil {
			return problems
		}

		var perr *envconfig.ParseError
		if !errors.As(err, &perr) {
			return append(problems, fmt.Errorf("failed to load config from environment: %w", err))
		}
		if _, seen := hidden[perr.KeyName]; seen {
			return append(problems, fmt.Errorf("failed to load config from environment: %w", err))
		}

		problems = append(problems, fmt.Errorf("%s=%q is not a valid %s, using default", perr.KeyName, perr.Value, perr.TypeName))
		hidden[perr.KeyName] = perr.Value
		_ = os.Unsetenv(perr.KeyName)
	}
}

// fieldCheck is one failed validation and how to undo it.
type fieldCheck struct {
	err   error
	reset func(c, def *Config)
}

func (c *Config) checks() []fieldCheck {
	var failed []fieldCheck
	fail := func(err error, reset func(c, def *Config)) {
		failed = append(failed, fieldCheck{err: err, reset: reset})
	}

	if c.Port < 1 || c.Port > 65535 {
		fail(fmt.Errorf("port must be between 1 and 65535, got %d", c.Port),
			func(c, def *Config) { c.Port = def.Port })
	}

	if c.Transport != TransportHTTP && c.Transport != TransportStdio {
		fail(fmt.Errorf("invalid transport: %s (must be 'http' or 'stdio')", c.Transport),
			func(c, def *Config) { c.Transport = def.Transport })
	}

	timeouts := []struct {
		name  string
		field func(*Config) *int
	}{
		{"BROWSER_TIMEOUT", func(c *Config) *int { return &c.BrowserTimeoutMS }},
		{"NAVIGATION_TIMEOUT", func(c *Config) *int { return &c.NavigationTimeoutMS }},
		{"ELEMENT_TIMEOUT", func(c *Config) *int { return &c.ElementTimeoutMS }},
		{"SCREENSHOT_TIMEOUT", func(c *Config) *int { return &c.ScreenshotTimeoutMS }},
	}
	for _, t := range timeouts {
		if ms := *t.field(c); ms <= 0 {
			field := t.field
			fail(fmt.Errorf("%s must be positive, got %d", t.name, ms),
				func(c, def *Config) { *field(c) = *field(def) })
		}
	}

	if c.ViewportWidth <= 0 {
		fail(fmt.Errorf("viewport must be positive, got width %d", c.ViewportWidth),
			func(c, def *Config) { c.ViewportWidth = def.ViewportWidth })
	}
	if c.ViewportHeight <= 0 {
		fail(fmt.Errorf("viewport must be positive, got height %d", c.ViewportHeight),
			func(c, def *Config) { c.ViewportHeight = def.ViewportHeight })
	}

	if c.RateLimit < 0 {
		fail(fmt.Errorf("rate limit must not be negative, got %d/s", c.RateLimit),
			func(c, def *Config) { c.RateLimit = def.RateLimit })
	}
	if c.RateBurst < 0 {
		fail(fmt.Errorf("rate limit must not be negative, got burst %d", c.RateBurst),
			func(c, def *Config) { c.RateBurst = def.RateBurst })
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		fail(fmt.Errorf("invalid log level: %s (must be 'debug', 'info', 'warn', or 'error')", c.LogLevel),
			func(c, def *Config) { c.LogLevel = def.LogLevel })
	}

	return failed
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []error
	for _, check := range c.checks() {
		errs = append(errs, check.err)
	}
	return errors.Join(errs...)
}

// repair resets each invalid field to its default and reports what changed.
func (c *Config) repair() []error {
	def := Default()
	var errs []error
	for _, check := range c.checks() {
		check.reset(c, def)
		errs = append(errs, fmt.Errorf("%w, using default", check.err))
	}
	return errs
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// BrowserTimeout is the browser launch timeout.
func (c *Config) BrowserTimeout() time.Duration {
	return millis(c.BrowserTimeoutMS)
}

// NavigationTimeout bounds page navigation.
func (c *Config) NavigationTimeout() time.Duration {
	return millis(c.NavigationTimeoutMS)
}

// ElementTimeout bounds element waits, clicks, fills, and text reads.
func (c *Config) ElementTimeout() time.Duration {
	return millis(c.ElementTimeoutMS)
}

// ScreenshotTimeout bounds screenshot capture.
func (c *Config) ScreenshotTimeout() time.Duration {
	return millis(c.ScreenshotTimeoutMS)
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
