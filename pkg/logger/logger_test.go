package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"unknown", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestInitWithFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "hostpilot.log")
	defer func() { _ = Close() }()

	if err := Init(LogConfig{Level: "debug", Format: "json", File: logPath}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	Info().Str("tool", "system.memory_usage").Msg("tool executed")

	if err := Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "tool executed") {
		t.Errorf("log file missing message, got: %s", content)
	}
}

func TestInitWithInvalidFile(t *testing.T) {
	defer func() { _ = Close() }()

	err := Init(LogConfig{Level: "info", Format: "json", File: "/nonexistent/directory/test.log"})
	if err == nil {
		t.Error("expected error for invalid file path")
	}
}

func TestComponent(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	var buf bytes.Buffer
	SetOutput(&buf)

	l := Component("orchestrator")
	l.Info().Msg("dispatch")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("parse log entry: %v", err)
	}
	if entry["component"] != "orchestrator" {
		t.Errorf("component = %v, want orchestrator", entry["component"])
	}
	if entry["message"] != "dispatch" {
		t.Errorf("message = %v, want dispatch", entry["message"])
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)

	l := With(map[string]any{"session_id": "s-1"})
	l.Warn().Msg("persist failed")

	if !strings.Contains(buf.String(), `"session_id":"s-1"`) {
		t.Errorf("expected session_id field, got %s", buf.String())
	}
}

func TestGetWithoutInit(t *testing.T) {
	mu.Lock()
	initialized = false
	mu.Unlock()

	if Get() == nil {
		t.Fatal("Get() should return a default logger when not initialized")
	}
}
