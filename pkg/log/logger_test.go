package log

import (
	"bytes"
	"encoding/json"
	"errors"
	stdlog "log"
	"strings"
	"testing"
)

func newBufferLogger(level Level, f Formatter) (Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := NewLogger(WithLevel(level), WithFormatter(f), WithOutput(NewWriterOutput(&buf)))
	return l, &buf
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"", InfoLevel, false},
		{"warning", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"loud", InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseLevel(%q) err=%v wantErr=%v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseLevel(%q)=%v want %v", tt.in, got, tt.want)
		}
	}
}

func TestJSONFormatterFields(t *testing.T) {
	l, buf := newBufferLogger(InfoLevel, &JSONFormatter{})
	l.With(Component("totals")).Info("applied", Uint32("total", 30), Str("submitter", "alice"))

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if got["msg"] != "applied" || got["level"] != "INFO" {
		t.Fatalf("unexpected entry: %v", got)
	}
	if got["component"] != "totals" || got["submitter"] != "alice" {
		t.Fatalf("missing fields: %v", got)
	}
	if got["total"] != float64(30) {
		t.Fatalf("total field = %v", got["total"])
	}
}

func TestLevelGate(t *testing.T) {
	l, buf := newBufferLogger(WarnLevel, &TextFormatter{})
	l.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}
	l.WithError(errors.New("boom")).Warn("kept")
	out := buf.String()
	if !strings.Contains(out, "kept") || !strings.Contains(out, "error=boom") {
		t.Fatalf("unexpected text output %q", out)
	}

	l.SetLevel(DebugLevel)
	l.Debug("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Fatalf("SetLevel did not lower the gate")
	}
}

func TestApplyConfig(t *testing.T) {
	if _, err := ApplyConfig(&Config{Level: "info", Format: "yaml"}); err == nil {
		t.Fatalf("expected unknown format error")
	}
	l, err := ApplyConfig(&Config{Level: "debug", Format: "json"})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if l.GetLevel() != DebugLevel {
		t.Fatalf("level = %v", l.GetLevel())
	}
}

func TestToStdLogger(t *testing.T) {
	l, buf := newBufferLogger(InfoLevel, &TextFormatter{})
	std := ToStdLogger(l)
	std.Printf("pebble says %d", 7)
	if !strings.Contains(buf.String(), "pebble says 7") || !strings.Contains(buf.String(), "source=stdlog") {
		t.Fatalf("std logger output %q", buf.String())
	}
	var _ *stdlog.Logger = std
}
