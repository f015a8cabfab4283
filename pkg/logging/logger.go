package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger provides leveled component logging for the server.
// Every logger shares one zap core configured by Setup: a console encoder on
// stderr and, when a log directory is configured, a JSON file named after the
// run ID.
//
// stdout is never written to, so the stdio transport stays clean.
type Logger struct {
	sessionID string
	component string
	sugar     *zap.SugaredLogger
	logPath   string
	closeOnce sync.Once
}

// Config controls the shared logging core.
type Config struct {
	// Level is one of debug, info, warn, error
	Level string

	// Debug forces the debug level regardless of Level
	Debug bool

	// Dir is the directory for the run log file. Empty disables file logging.
	Dir string
}

var (
	// Global run ID for the current process
	sessionID     string
	sessionIDOnce sync.Once

	// logDir is the directory where log files are stored
	logDir string

	// core state shared by every component logger
	coreMu   sync.RWMutex
	root     *zap.Logger
	logPath  string
	logFile  *os.File
	setupErr error
)

// getSessionID returns or creates the run ID for this process
func getSessionID() string {
	sessionIDOnce.Do(func() {
		sessionID = uuid.New().String()
	})
	return sessionID
}

// DefaultDir returns ~/.playwright-mcp/logs, or "" if the home directory is unknown.
func DefaultDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".playwright-mcp", "logs")
}

// Setup configures the shared core. It may be called more than once; later
// calls replace the core for loggers created afterwards.
//
// If the log directory cannot be created or the file cannot be opened, the
// core falls back to stderr only and the error is returned so callers can warn.
func Setup(cfg Config) error {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	if cfg.Debug {
		level = zapcore.DebugLevel
	}
	atom := zap.NewAtomicLevelAt(level)

	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(consoleEncoderConfig()),
		zapcore.Lock(os.Stderr),
		atom,
	)

	coreMu.Lock()
	defer coreMu.Unlock()

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
	logPath = ""
	setupErr = nil

	cores := []zapcore.Core{consoleCore}
	if cfg.Dir != "" {
		file, path, fileErr := openLogFile(cfg.Dir)
		if fileErr != nil {
			setupErr = fileErr
		} else {
			logDir = cfg.Dir
			logFile = file
			logPath = path
			cores = append(cores, zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(file),
				atom,
			))
		}
	}

	root = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1)).
		With(zap.String("run_id", getSessionID()))

	if setupErr != nil {
		root.Warn("failed to initialize file logging, falling back to stderr", zap.Error(setupErr))
	}
	return setupErr
}

func openLogFile(dir string) (*os.File, string, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, "", fmt.Errorf("failed to create log directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s-playwright-mcp.log", getSessionID()))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open log file: %w", err)
	}
	return file, path, nil
}

func consoleEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}

// parseLevel converts string level to zapcore.Level.
func parseLevel(level string) (zapcore.Level, error) {
	var l zapcore.Level
	if level == "" {
		return zapcore.InfoLevel, nil
	}
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return l, nil
}

// NewLogger creates a logger for a specific component. If Setup has not been
// called yet, an info-level stderr core is installed first.
func NewLogger(component string) *Logger {
	coreMu.RLock()
	base := root
	path := logPath
	coreMu.RUnlock()

	if base == nil {
		_ = Setup(Config{})
		coreMu.RLock()
		base = root
		path = logPath
		coreMu.RUnlock()
	}

	return &Logger{
		sessionID: getSessionID(),
		component: component,
		sugar:     base.Named(component).Sugar(),
		logPath:   path,
	}
}

// Nop returns a logger that discards everything. Useful as a default and in tests.
func Nop() *Logger {
	return &Logger{
		sessionID: getSessionID(),
		component: "nop",
		sugar:     zap.NewNop().Sugar(),
	}
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{
		sessionID: l.sessionID,
		component: l.component,
		sugar:     l.sugar.With(keysAndValues...),
		logPath:   l.logPath,
	}
}

// Printf logs a formatted message at info level
func (l *Logger) Printf(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}

// Debugf logs a debug-level message
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.sugar.Debugf(format, v...)
}

// Infof logs an info-level message
func (l *Logger) Infof(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}

// Warnf logs a warning-level message
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.sugar.Warnf(format, v...)
}

// Errorf logs an error-level message
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.sugar.Errorf(format, v...)
}

// StdLogger adapts the logger for APIs that take a *log.Logger. Entries are
// written at info level.
func (l *Logger) StdLogger() *log.Logger {
	return zap.NewStdLog(l.sugar.Desugar())
}

// Component returns the component name
func (l *Logger) Component() string {
	return l.component
}

// SessionID returns the current run ID
func (l *Logger) SessionID() string {
	return l.sessionID
}

// LogPath returns the path to the log file, or "" when logging to stderr only
func (l *Logger) LogPath() string {
	return l.logPath
}

// Close flushes buffered entries. Safe to call multiple times.
func (l *Logger) Close() error {
	l.closeOnce.Do(func() {
		// Syncing stderr fails with EINVAL on some platforms.
		_ = l.sugar.Sync()
	})
	return nil
}

// Shutdown flushes and closes the shared log file.
func Shutdown() error {
	coreMu.Lock()
	defer coreMu.Unlock()

	if root != nil {
		_ = root.Sync()
	}
	if logFile != nil {
		err := logFile.Close()
		logFile = nil
		return err
	}
	return nil
}

// GetSessionID returns the current global run ID
func GetSessionID() string {
	return getSessionID()
}

// GetLogDirectory returns the directory where logs are stored, or "" if file
// logging is disabled.
func GetLogDirectory() string {
	coreMu.RLock()
	defer coreMu.RUnlock()
	if logFile == nil {
		return ""
	}
	return logDir
}
