package internal

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"ERROR": LogLevelError,
		"WARN":  LogLevelWarn,
		"INFO":  LogLevelInfo,
		"DEBUG": LogLevelDebug,
		"":      LogLevelInfo,
		"bogus": LogLevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerFiltersBelowLevel(t *testing.T) {
	orig := log.Writer()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(orig)

	l := NewLogger(LogLevelWarn)
	l.Debug("hidden detail")
	l.Info("hidden progress")
	l.Warn("kept warning")
	l.Error("kept error")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("messages above the configured level leaked: %q", out)
	}
	if !strings.Contains(out, "[WARN] kept warning") || !strings.Contains(out, "[ERROR] kept error") {
		t.Errorf("warn/error output missing: %q", out)
	}
}
