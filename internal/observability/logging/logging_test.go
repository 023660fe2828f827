package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewRespectsLevelAndFormat(t *testing.T) {
	var buffer bytes.Buffer
	logger := New(Config{Level: "warn", Writer: &buffer, Format: "json"})

	logger.Info("hidden")
	logger.Warn("visible", "key", "value")

	if strings.Contains(buffer.String(), "hidden") {
		t.Fatal("info record should be filtered at warn level")
	}
	var record map[string]any
	if err := json.Unmarshal(buffer.Bytes(), &record); err != nil {
		t.Fatalf("expected JSON output: %v", err)
	}
	if record["msg"] != "visible" || record["key"] != "value" {
		t.Fatalf("unexpected record %v", record)
	}
}

func TestNewTextFormat(t *testing.T) {
	var buffer bytes.Buffer
	logger := New(Config{Writer: &buffer, Format: "text"})
	logger.Info("plain output")
	if !strings.Contains(buffer.String(), "msg=\"plain output\"") {
		t.Fatalf("expected text handler output, got %q", buffer.String())
	}
}

func TestParseLevelFallsBackToInfo(t *testing.T) {
	for _, level := range []string{"", "bogus", "INFO"} {
		if got := parseLevel(level).Level(); got != slog.LevelInfo {
			t.Fatalf("parseLevel(%q) = %v, want info", level, got)
		}
	}
	if got := parseLevel("DEBUG").Level(); got != slog.LevelDebug {
		t.Fatalf("parseLevel(DEBUG) = %v", got)
	}
}

func TestRequestIDContextRoundTrip(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), " req-123 ")
	id, ok := RequestIDFromContext(ctx)
	if !ok || id != "req-123" {
		t.Fatalf("got (%q, %v)", id, ok)
	}
	if _, ok := RequestIDFromContext(context.Background()); ok {
		t.Fatal("empty context should not carry a request ID")
	}
	if withEmpty := ContextWithRequestID(context.Background(), "  "); withEmpty == nil {
		t.Fatal("blank IDs should return the original context")
	}
}

func TestWithContextAnnotatesLogger(t *testing.T) {
	var buffer bytes.Buffer
	logger := New(Config{Writer: &buffer, Format: "json"})
	ctx := ContextWithRequestID(context.Background(), "req-42")

	WithContext(ctx, logger).Info("annotated")

	var record map[string]any
	if err := json.Unmarshal(buffer.Bytes(), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record["request_id"] != "req-42" {
		t.Fatalf("expected request_id attribute, got %v", record)
	}
}
