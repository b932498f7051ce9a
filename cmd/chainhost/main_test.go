package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/justyntemme/vst3host/pkg/config"
)

const manifest = `
manufacturer: Test Audio
effects:
  - name: Half
    kind: gain
    params: {gain: -6.0206}
  - name: Crunch
    kind: drive
`

// setupConfig writes a config whose search path holds one manifest and whose files live in a
// temp dir.
func setupConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))

	plugins := filepath.Join(dir, "plugins")
	if err := os.MkdirAll(plugins, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(plugins, "rack.gofx"), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.DefaultConfig()
	if err != nil {
		t.Fatal(err)
	}
	cfg.SearchPaths = []string{plugins}
	cfg.CacheFile = filepath.Join(dir, "catalog.cache")
	cfg.StateFile = filepath.Join(dir, "chain.yaml")
	cfg.LogLevel = "off"
	cfg.BlockSize = 64

	path := filepath.Join(dir, "config.yaml")
	if err := config.Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, cfgPath string, args ...string) string {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config", cfgPath}, args...))
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("chainhost %s: %v\n%s", strings.Join(args, " "), err, errOut.String())
	}
	return out.String()
}

func TestPluginsCommand(t *testing.T) {
	cfgPath := setupConfig(t)
	out := run(t, cfgPath, "plugins")
	for _, want := range []string{"Half", "Crunch", "Test Audio", "GoFX"} {
		if !strings.Contains(out, want) {
			t.Errorf("plugins output missing %q:\n%s", want, out)
		}
	}
}

func TestChainCommands(t *testing.T) {
	cfgPath := setupConfig(t)

	run(t, cfgPath, "chain", "add", "Half")
	run(t, cfgPath, "chain", "add", "crunch")
	run(t, cfgPath, "chain", "move", "1", "0")
	run(t, cfgPath, "chain", "bypass", "1", "on")

	out := run(t, cfgPath, "chain", "show")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("chain show:\n%s", out)
	}
	if !strings.Contains(lines[1], "Crunch") || !strings.Contains(lines[1], "active") {
		t.Errorf("row 0 = %q, want active Crunch", lines[1])
	}
	if !strings.Contains(lines[2], "Half") || !strings.Contains(lines[2], "bypassed") {
		t.Errorf("row 1 = %q, want bypassed Half", lines[2])
	}

	out = run(t, cfgPath, "render", "--blocks", "4")
	if !strings.Contains(out, "blocks:   4 (0 faulted)") {
		t.Errorf("render output:\n%s", out)
	}

	run(t, cfgPath, "chain", "remove", "0")
	out = run(t, cfgPath, "chain", "show")
	if strings.Contains(out, "Crunch") || !strings.Contains(out, "Half") {
		t.Errorf("after remove:\n%s", out)
	}

	run(t, cfgPath, "chain", "clear")
	if out := run(t, cfgPath, "chain", "show"); !strings.Contains(out, "Chain is empty") {
		t.Errorf("after clear:\n%s", out)
	}
}

func TestChainAddUnknown(t *testing.T) {
	cfgPath := setupConfig(t)
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--config", cfgPath, "chain", "add", "Nope"})
	if err := root.ExecuteContext(context.Background()); err == nil {
		t.Fatal("adding an unknown plugin succeeded")
	}
}

func TestPathsCommands(t *testing.T) {
	cfgPath := setupConfig(t)
	extra := t.TempDir()

	run(t, cfgPath, "paths", "add", extra)
	out := run(t, cfgPath, "paths", "list")
	if !strings.Contains(out, extra) {
		t.Errorf("list after add:\n%s", out)
	}

	run(t, cfgPath, "paths", "remove", extra)
	if out := run(t, cfgPath, "paths", "list"); strings.Contains(out, extra) {
		t.Errorf("list after remove:\n%s", out)
	}

	run(t, cfgPath, "paths", "reset")
	if out := run(t, cfgPath, "paths", "list"); !strings.Contains(out, "# platform defaults") {
		t.Errorf("list after reset:\n%s", out)
	}
}

func TestVersionCommand(t *testing.T) {
	cfgPath := setupConfig(t)
	if out := run(t, cfgPath, "version"); strings.TrimSpace(out) == "" {
		t.Error("version printed nothing")
	}
}

func TestScanCommand(t *testing.T) {
	cfgPath := setupConfig(t)
	if out := run(t, cfgPath, "scan"); !strings.Contains(out, "2 plugins in catalog") {
		t.Errorf("scan output:\n%s", out)
	}
	// The second run is served from the cache file written by the first.
	if out := run(t, cfgPath, "scan"); !strings.Contains(out, "2 plugins in catalog") {
		t.Errorf("cached scan output:\n%s", out)
	}
	if out := run(t, cfgPath, "scan", "--no-cache"); !strings.Contains(out, "2 plugins in catalog") {
		t.Errorf("rescan output:\n%s", out)
	}
}
