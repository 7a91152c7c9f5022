package telemetry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLogLevel(tt.level); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestNewLogger_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shellbridge.log")

	logger, err := NewLogger(LoggingConfig{
		Level:  "debug",
		Format: "json",
		Output: path,
	})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.
		NewComponentLogger("bridge").
		WithDependency("ms_graph").
		WithOperation("Get-MgUser").
		Info("invocation dispatched")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("log line is not valid JSON: %v\n%s", err, data)
	}

	checks := map[string]string{
		"component":  "bridge",
		"dependency": "ms_graph",
		"operation":  "Get-MgUser",
		"message":    "invocation dispatched",
		"level":      "info",
	}
	for key, want := range checks {
		if got, _ := entry[key].(string); got != want {
			t.Errorf("log field %q = %q, want %q", key, got, want)
		}
	}
	if _, ok := entry["time"]; !ok {
		t.Error("log entry missing timestamp field")
	}
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filtered.log")

	logger, err := NewLogger(LoggingConfig{
		Level:  "warn",
		Format: "json",
		Output: path,
	})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.Info("suppressed")
	logger.Warn("kept")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}

	out := string(data)
	if strings.Contains(out, "suppressed") {
		t.Error("info message was logged despite warn level")
	}
	if !strings.Contains(out, "kept") {
		t.Error("warn message was not logged")
	}
}

func TestLogger_WithInterpreter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "interp.log")

	logger, err := NewLogger(LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: path,
	})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.WithInterpreter("pwsh", "7.4.1").Info("resolved")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("log line is not valid JSON: %v", err)
	}
	if got, _ := entry["interpreter"].(string); got != "pwsh" {
		t.Errorf("interpreter field = %q, want %q", got, "pwsh")
	}
	if got, _ := entry["interpreter_version"].(string); got != "7.4.1" {
		t.Errorf("interpreter_version field = %q, want %q", got, "7.4.1")
	}
}

func TestNewLogger_BadFilePath(t *testing.T) {
	_, err := NewLogger(LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: filepath.Join(t.TempDir(), "missing", "dir", "out.log"),
	})
	if err == nil {
		t.Fatal("NewLogger() with unwritable path returned nil error")
	}
}
