package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func newTestLogger(w io.Writer, level slog.Level) *slog.Logger {
	lvl := new(slog.LevelVar)
	lvl.Set(level)
	return slog.New(newPrettyHandler(w, lvl))
}

func TestPrettyHandlerFormatsComponentAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, slog.LevelInfo)

	logger.With(String(FieldComponent, "engine")).Info("unit moved",
		String("src", "/a b.jpg"),
		Int("size", 42),
	)

	line := buf.String()
	if !strings.Contains(line, "INFO engine: unit moved") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, `src="/a b.jpg"`) {
		t.Fatalf("expected quoted value with spaces: %q", line)
	}
	if !strings.Contains(line, "size=42") {
		t.Fatalf("expected integer attr: %q", line)
	}
}

func TestPrettyHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, slog.LevelWarn)

	logger.Info("hidden")
	logger.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record should be suppressed: %q", out)
	}
	if !strings.Contains(out, "WARN visible") {
		t.Fatalf("warn record missing: %q", out)
	}
}

func TestPrettyHandlerGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, slog.LevelInfo)

	logger.WithGroup("hash").Info("done", String("method", "full"))

	if !strings.Contains(buf.String(), "hash.method=full") {
		t.Fatalf("expected group-prefixed key: %q", buf.String())
	}
}

func TestFormatValueKinds(t *testing.T) {
	cases := []struct {
		value slog.Value
		want  string
	}{
		{slog.StringValue("plain"), "plain"},
		{slog.StringValue("needs quote"), `"needs quote"`},
		{slog.BoolValue(true), "true"},
		{slog.Int64Value(-5), "-5"},
		{slog.DurationValue(1500 * time.Millisecond), "1.5s"},
	}
	for _, tc := range cases {
		if got := formatValue(tc.value); got != tc.want {
			t.Fatalf("formatValue(%v) = %q, want %q", tc.value, got, tc.want)
		}
	}
}

func TestNoopHandlerDiscards(t *testing.T) {
	logger := NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("noop logger should not be enabled")
	}
}
