package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// setupTestDir points the shared core at a temporary directory and resets global state
func setupTestDir(t *testing.T, debug bool) string {
	t.Helper()

	tempDir := t.TempDir()

	origSessionID := sessionID
	origSessionIDOnce := sessionIDOnce

	sessionID = ""
	sessionIDOnce = sync.Once{}

	if err := Setup(Config{Debug: debug, Dir: tempDir}); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	t.Cleanup(func() {
		_ = Shutdown()

		coreMu.Lock()
		root = nil
		logPath = ""
		coreMu.Unlock()

		sessionID = origSessionID
		sessionIDOnce = origSessionIDOnce
	})

	return tempDir
}

func readEntries(t *testing.T, path string) []map[string]interface{} {
	t.Helper()

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(string(content)), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("Log line is not JSON: %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestNewLogger(t *testing.T) {
	setupTestDir(t, false)

	logger := NewLogger("test-component")
	defer logger.Close()

	if logger.component != "test-component" {
		t.Errorf("Expected component 'test-component', got %q", logger.component)
	}

	if logger.sessionID == "" {
		t.Error("Expected non-empty session ID")
	}

	if logger.logPath == "" {
		t.Error("Expected non-empty log path")
	}

	if _, err := os.Stat(logger.logPath); os.IsNotExist(err) {
		t.Errorf("Log file does not exist at %s", logger.logPath)
	}
}

func TestLoggerLevels(t *testing.T) {
	setupTestDir(t, true)

	logger := NewLogger("test")
	defer logger.Close()

	logger.Printf("Test message %d", 123)
	logger.Debugf("Debug message")
	logger.Infof("Info message")
	logger.Warnf("Warning message")
	logger.Errorf("Error message")

	entries := readEntries(t, logger.LogPath())

	expected := []struct {
		level string
		msg   string
	}{
		{"info", "Test message 123"},
		{"debug", "Debug message"},
		{"info", "Info message"},
		{"warn", "Warning message"},
		{"error", "Error message"},
	}

	if len(entries) != len(expected) {
		t.Fatalf("Expected %d entries, got %d", len(expected), len(entries))
	}

	for i, want := range expected {
		if entries[i]["level"] != want.level {
			t.Errorf("entry %d: expected level %q, got %v", i, want.level, entries[i]["level"])
		}
		if entries[i]["msg"] != want.msg {
			t.Errorf("entry %d: expected msg %q, got %v", i, want.msg, entries[i]["msg"])
		}
		if entries[i]["logger"] != "test" {
			t.Errorf("entry %d: expected logger name 'test', got %v", i, entries[i]["logger"])
		}
	}
}

func TestDebugSuppressedAtInfo(t *testing.T) {
	setupTestDir(t, false)

	logger := NewLogger("quiet")
	logger.Debugf("hidden")
	logger.Infof("shown")

	entries := readEntries(t, logger.LogPath())
	if len(entries) != 1 || entries[0]["msg"] != "shown" {
		t.Errorf("Expected only the info entry, got %v", entries)
	}
}

func TestMultipleComponents(t *testing.T) {
	setupTestDir(t, false)

	logger1 := NewLogger("component1")
	defer logger1.Close()
	logger2 := NewLogger("component2")
	defer logger2.Close()

	if logger1.sessionID != logger2.sessionID {
		t.Errorf("Expected same session ID, got %q and %q", logger1.sessionID, logger2.sessionID)
	}

	if logger1.logPath != logger2.logPath {
		t.Errorf("Expected same log path, got %q and %q", logger1.logPath, logger2.logPath)
	}

	logger1.Printf("Message from component1")
	logger2.With("tool", "navigate").Printf("Message from component2")

	entries := readEntries(t, logger1.logPath)
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0]["logger"] != "component1" || entries[1]["logger"] != "component2" {
		t.Errorf("Unexpected logger names: %v, %v", entries[0]["logger"], entries[1]["logger"])
	}
	if entries[1]["tool"] != "navigate" {
		t.Errorf("Expected structured field tool=navigate, got %v", entries[1]["tool"])
	}
	if entries[0]["run_id"] != logger1.SessionID() {
		t.Errorf("Expected run_id %q, got %v", logger1.SessionID(), entries[0]["run_id"])
	}
}

func TestGetSessionID(t *testing.T) {
	setupTestDir(t, false)

	id1 := GetSessionID()
	id2 := GetSessionID()

	if id1 != id2 {
		t.Errorf("Expected consistent session ID, got %q and %q", id1, id2)
	}

	if id1 == "" {
		t.Error("Expected non-empty session ID")
	}
}

func TestGetLogDirectory(t *testing.T) {
	dir := setupTestDir(t, false)

	if got := GetLogDirectory(); got != dir {
		t.Errorf("Expected log directory %q, got %q", dir, got)
	}
}

func TestSetupFallsBackToStderr(t *testing.T) {
	setupTestDir(t, false)

	// A regular file where the directory should be makes MkdirAll fail.
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	err := Setup(Config{Dir: filepath.Join(blocker, "logs")})
	if err == nil {
		t.Fatal("Expected an error when the log directory cannot be created")
	}

	logger := NewLogger("fallback")
	if logger.LogPath() != "" {
		t.Errorf("Expected empty log path in fallback mode, got %q", logger.LogPath())
	}
	logger.Infof("still works")
}

func TestNop(t *testing.T) {
	logger := Nop()
	logger.Infof("discarded %s", "message")
	if logger.LogPath() != "" {
		t.Errorf("Nop logger should have no log path")
	}
}

func TestLoggerClose(t *testing.T) {
	setupTestDir(t, false)

	logger := NewLogger("test")

	if err := logger.Close(); err != nil {
		t.Errorf("First close failed: %v", err)
	}

	if err := logger.Close(); err != nil {
		t.Errorf("Second close failed: %v", err)
	}
}

func TestLogPathFormat(t *testing.T) {
	setupTestDir(t, false)

	logger := NewLogger("test")
	defer logger.Close()

	fileName := filepath.Base(logger.logPath)
	if !strings.HasSuffix(fileName, "-playwright-mcp.log") {
		t.Errorf("Expected log file to end with '-playwright-mcp.log', got %q", fileName)
	}

	sessionPart := strings.TrimSuffix(fileName, "-playwright-mcp.log")
	if sessionPart != logger.SessionID() {
		t.Errorf("Expected file name to start with run ID %q, got %q", logger.SessionID(), sessionPart)
	}
}
