package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_JSONCarriesService(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf, Service: "bookings"})

	log.Info("hello", "slot", "2024-05-01T10:00")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if record[SERVICE] != "bookings" {
		t.Errorf("expected service attribute 'bookings', got %v", record[SERVICE])
	}
	if record["slot"] != "2024-05-01T10:00" {
		t.Errorf("expected slot attribute, got %v", record["slot"])
	}
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf, Format: TEXT})

	log.Info("hello")

	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("expected text output, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseLevel(tt.in); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestWith_AddsAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf}).With("component", "notifier")

	log.Warn("email failed")

	if !strings.Contains(buf.String(), `"component":"notifier"`) {
		t.Errorf("expected component attribute, got %q", buf.String())
	}
}
