package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, ".config"))
	t.Setenv("APPDATA", filepath.Join(dir, "AppData"))
	return dir
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load(filepath.Join(dir, "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SampleRate != DefaultSampleRate || cfg.BlockSize != DefaultBlockSize {
		t.Errorf("unexpected audio defaults %+v", cfg)
	}
	if cfg.ScanIntervalMS != DefaultScanIntervalMS || cfg.LogLevel != DefaultLogLevel {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if !strings.HasSuffix(cfg.CacheFile, filepath.Join("chainhost", "catalog.cache")) {
		t.Errorf("CacheFile = %q", cfg.CacheFile)
	}
}

func TestLoadFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")
	data := `search_paths:
  - /opt/vst3
  - ~/plugins
sample_rate: 48000
block_size: 256
log_level: debug
watch_search_paths: true
cache_file: ${TEST_CACHE_DIR:-/tmp}/cache.bin
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(cfg.SearchPaths, []string{"/opt/vst3", "~/plugins"}) {
		t.Errorf("SearchPaths = %v", cfg.SearchPaths)
	}
	if cfg.SampleRate != 48000 || cfg.BlockSize != 256 || cfg.LogLevel != "debug" || !cfg.WatchSearchPaths {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.CacheFile != "/tmp/cache.bin" {
		t.Errorf("CacheFile = %q", cfg.CacheFile)
	}
	if cfg.ScanIntervalMS != DefaultScanIntervalMS {
		t.Errorf("unset key lost its default: %d", cfg.ScanIntervalMS)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := isolate(t)
	t.Setenv("CHAINHOST_BLOCK_SIZE", "128")

	cfg, err := Load(filepath.Join(dir, "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BlockSize != 128 {
		t.Errorf("BlockSize = %d, want 128", cfg.BlockSize)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("block_size: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for block_size 0")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg, err := DefaultConfig()
	if err != nil {
		t.Fatal(err)
	}
	cfg.SetSearchPaths([]string{"/a", "/b"})
	cfg.Profile = true
	cfg.CacheFile = filepath.Join(dir, "c.bin")
	cfg.StateFile = filepath.Join(dir, "s.yaml")

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, cfg) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, cfg)
	}
}
