package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("log line is not JSON: %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"DEBUG", DEBUG},
		{"debug", DEBUG},
		{"INFO", INFO},
		{"WARN", WARN},
		{"ERROR", ERROR},
		{"bogus", INFO},
		{"", INFO},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLogLevel(tt.in); got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("DEBUG", &buf)

	logger.Info("session opened",
		String("address", "127.0.0.1:7777"),
		Int("attempt", 1),
		Duration("elapsed", 2*time.Millisecond),
		Error("error", errors.New("boom")))

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	line := lines[0]
	if line["message"] != "session opened" {
		t.Errorf("unexpected message %v", line["message"])
	}
	if line["level"] != "info" {
		t.Errorf("unexpected level %v", line["level"])
	}
	if line["component"] != "cdbms" {
		t.Errorf("expected component=cdbms, got %v", line["component"])
	}
	if line["address"] != "127.0.0.1:7777" {
		t.Errorf("unexpected address %v", line["address"])
	}
	if line["attempt"] != float64(1) {
		t.Errorf("unexpected attempt %v", line["attempt"])
	}
	if line["elapsed"] != "2ms" {
		t.Errorf("unexpected elapsed %v", line["elapsed"])
	}
	if line["error"] != "boom" {
		t.Errorf("unexpected error %v", line["error"])
	}
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("WARN", &buf)

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")
	logger.Error("shown")

	if lines := decodeLines(t, &buf); len(lines) != 2 {
		t.Errorf("expected 2 lines at WARN, got %d", len(lines))
	}
}

func TestLoggerRedactsSensitiveFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("DEBUG", &buf).WithFields(String("Password", "hunter2"))

	logger.Info("login", String("username", "admin"), String("handshake", "admin:hunter2"))

	out := buf.String()
	if strings.Contains(out, "hunter2") {
		t.Fatalf("secret leaked into log output: %s", out)
	}

	line := decodeLines(t, &buf)[0]
	if line["Password"] != "[REDACTED]" || line["handshake"] != "[REDACTED]" {
		t.Errorf("expected redaction, got %v", line)
	}
	if line["username"] != "admin" {
		t.Errorf("non-sensitive fields should pass through, got %v", line["username"])
	}
}

func TestNoopLogger(t *testing.T) {
	logger := NewNoopLogger()
	logger.Debug("x")
	logger.Info("x")
	logger.Warn("x")
	logger.Error("x")
	if logger.WithFields(String("a", "b")) == nil {
		t.Error("WithFields should return a logger")
	}
}
