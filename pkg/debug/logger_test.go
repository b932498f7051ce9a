package debug

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogger(t *testing.T) {
	t.Run("LevelFiltering", func(t *testing.T) {
		var buf bytes.Buffer
		l := New(&buf, LogLevelWarn)

		l.Debug("debug %d", 1)
		l.Info("info %d", 2)
		l.Warn("warn %d", 3)
		l.Error("error %d", 4)

		out := buf.String()
		if strings.Contains(out, "debug 1") || strings.Contains(out, "info 2") {
			t.Errorf("messages below warn were written: %q", out)
		}
		if !strings.Contains(out, "warn 3") || !strings.Contains(out, "error 4") {
			t.Errorf("missing warn/error messages: %q", out)
		}
	})

	t.Run("SetLevelPropagates", func(t *testing.T) {
		var buf bytes.Buffer
		root := New(&buf, LogLevelError)
		child := root.Named("scan")

		child.Info("hidden")
		root.SetLevel(LogLevelDebug)
		child.Info("visible")

		out := buf.String()
		if strings.Contains(out, "hidden") {
			t.Error("child ignored parent level")
		}
		if !strings.Contains(out, "visible") || !strings.Contains(out, "scan") {
			t.Errorf("child output missing name or message: %q", out)
		}
	})

	t.Run("JSONFields", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewJSON(&buf, LogLevelInfo).With("slot", 2)
		l.Info("loaded %s", "Gain")

		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
		}
		if entry["message"] != "loaded Gain" {
			t.Errorf("message = %v", entry["message"])
		}
		if entry["slot"] != float64(2) {
			t.Errorf("slot = %v", entry["slot"])
		}
		if entry["level"] != "info" {
			t.Errorf("level = %v", entry["level"])
		}
	})

	t.Run("Off", func(t *testing.T) {
		var buf bytes.Buffer
		l := New(&buf, LogLevelOff)
		l.Error("nothing")
		if buf.Len() != 0 {
			t.Errorf("disabled logger wrote %q", buf.String())
		}
		if l.Enabled(LogLevelError) {
			t.Error("Enabled should be false when off")
		}
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"debug", LogLevelDebug, false},
		{"INFO", LogLevelInfo, false},
		{"", LogLevelInfo, false},
		{"warning", LogLevelWarn, false},
		{"error", LogLevelError, false},
		{"off", LogLevelOff, false},
		{"loud", LogLevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDefaultLogger(t *testing.T) {
	prev := Default()
	defer SetDefault(prev)

	var buf bytes.Buffer
	SetDefault(New(&buf, LogLevelDebug))
	Debug("via %s", "default")
	if !strings.Contains(buf.String(), "via default") {
		t.Errorf("default logger not used: %q", buf.String())
	}

	SetDefault(nil)
	Error("dropped")
}
