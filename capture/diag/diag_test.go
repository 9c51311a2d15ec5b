package diag

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/breeze-rmm/rdpcapture/capture"
)

func TestConfigure_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := Configure(Options{Level: slog.LevelInfo, Format: "json", Writer: &buf})
	log.Info("hello", slog.String("k", "v"))
	if !strings.Contains(buf.String(), `"msg":"hello"`) {
		t.Fatalf("expected JSON output, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"info":  slog.LevelInfo,
		"":      slog.LevelInfo,
		"bogus": slog.LevelInfo,
	}
	for name, want := range cases {
		if got := ParseLevel(name); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestSlogReporter_EncoderFailureIncludesHostSnapshot(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	r := NewSlogReporter(log)

	r.Report(capture.EncoderOpenFailed, "disk full")

	out := buf.String()
	if !strings.Contains(out, "disk full") {
		t.Fatalf("expected message in output, got %q", out)
	}
	if !strings.Contains(out, "memory_used_percent") {
		t.Fatalf("expected host snapshot attached, got %q", out)
	}
}
