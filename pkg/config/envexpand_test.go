package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("CHAINHOST_TEST_SET", "real")
	t.Setenv("CHAINHOST_TEST_EMPTY", "")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"SetVar", "${CHAINHOST_TEST_SET}/vst3", "real/vst3"},
		{"UnsetVar", "${CHAINHOST_TEST_UNSET_12345}/vst3", "/vst3"},
		{"DefaultWhenUnset", "${CHAINHOST_TEST_UNSET_12345:-/opt}/vst3", "/opt/vst3"},
		{"DefaultIgnoredWhenSet", "${CHAINHOST_TEST_SET:-/opt}", "real"},
		{"DefaultWhenEmpty", "${CHAINHOST_TEST_EMPTY:-fallback}", "fallback"},
		{"NoPattern", "/usr/lib/vst3", "/usr/lib/vst3"},
		{"BareDollarUntouched", "$HOME/x", "$HOME/x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandEnv(tt.input); got != tt.want {
				t.Errorf("ExpandEnv(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := ExpandPath("~/.vst3"); got != filepath.Join(home, ".vst3") {
		t.Errorf("ExpandPath(~/.vst3) = %q", got)
	}
	if got := ExpandPath("  /usr/lib/vst3 "); got != "/usr/lib/vst3" {
		t.Errorf("ExpandPath did not trim: %q", got)
	}
	if got := ExpandPath("a~b"); got != "a~b" {
		t.Errorf("ExpandPath expanded an inner tilde: %q", got)
	}
}
