package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestTextLoggerFiltersByLevelAndTagsService(t *testing.T) {
	var buf bytes.Buffer
	logger := NewTextLogger("docqa", "warn", &buf)
	logger.Info("hidden")
	logger.Warn("translation_failed", "provider", "nllb")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info must be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "translation_failed") || !strings.Contains(out, "service=docqa") {
		t.Fatalf("unexpected output %q", out)
	}
}
