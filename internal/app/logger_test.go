package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/heartmarshall/sketch2code/internal/config"
)

func TestNewLogger_SetsDefault(t *testing.T) {
	logger := NewLogger(config.LogConfig{Level: "info", Format: "json"})

	if logger == nil {
		t.Fatal("logger should not be nil")
	}
	if slog.Default().Handler() != logger.Handler() {
		t.Error("NewLogger should set the returned logger as slog default")
	}
}

func TestNewHandler_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{" Warn ", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run("level_"+tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(newHandler(&buf, config.LogConfig{Level: tt.level, Format: "text"}))

			logger.Log(context.TODO(), tt.want, "should appear")
			if buf.Len() == 0 {
				t.Errorf("expected log output at level %v", tt.want)
			}

			buf.Reset()
			logger.Log(context.TODO(), tt.want-1, "should be suppressed")
			if buf.Len() != 0 {
				t.Errorf("level %v should suppress %v, got: %s", tt.want, tt.want-1, buf.String())
			}
		})
	}
}

func TestNewHandler_Formats(t *testing.T) {
	var textBuf, jsonBuf bytes.Buffer

	slog.New(newHandler(&textBuf, config.LogConfig{Level: "info", Format: "text"})).Info("hello")
	slog.New(newHandler(&jsonBuf, config.LogConfig{Level: "info", Format: "JSON"})).Info("hello")

	if !strings.Contains(textBuf.String(), "source=") {
		t.Error("text format should include source")
	}

	var m map[string]any
	if err := json.Unmarshal(jsonBuf.Bytes(), &m); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, ok := m["source"]; ok {
		t.Error("json format should not include source")
	}
}

func TestNewHandler_RedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newHandler(&buf, config.LogConfig{Level: "info", Format: "json"}))

	logger.Info("request",
		slog.String("Authorization", "Bearer abc"),
		slog.String("token", "abc"),
		slog.String("image", "data:image/png;base64,AAAA"),
		slog.String("installation_id", "inst1"),
	)

	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for _, key := range []string{"Authorization", "token", "image"} {
		if m[key] != "[redacted]" {
			t.Errorf("%s = %v, want [redacted]", key, m[key])
		}
	}
	if m["installation_id"] != "inst1" {
		t.Errorf("installation_id = %v, want inst1", m["installation_id"])
	}
}
