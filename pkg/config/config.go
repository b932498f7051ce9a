// Package config holds the chain host's user configuration: search paths, cache and state
// locations, audio block format and logging options.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Defaults for keys absent from the config file.
const (
	DefaultScanIntervalMS = 10
	DefaultSampleRate     = 44100.0
	DefaultBlockSize      = 512
	DefaultLogLevel       = "info"
)

// Config is the on-disk configuration.
type Config struct {
	SearchPaths      []string `mapstructure:"search_paths" yaml:"search_paths"`
	CacheFile        string   `mapstructure:"cache_file" yaml:"cache_file"`
	StateFile        string   `mapstructure:"state_file" yaml:"state_file"`
	ScanIntervalMS   int      `mapstructure:"scan_interval_ms" yaml:"scan_interval_ms"`
	SampleRate       float64  `mapstructure:"sample_rate" yaml:"sample_rate"`
	BlockSize        int      `mapstructure:"block_size" yaml:"block_size"`
	LogLevel         string   `mapstructure:"log_level" yaml:"log_level"`
	WatchSearchPaths bool     `mapstructure:"watch_search_paths" yaml:"watch_search_paths"`
	Profile          bool     `mapstructure:"profile" yaml:"profile"`
}

// DefaultConfig returns a config with every key at its default. Search paths start empty so
// EffectiveSearchPaths falls back to the platform list.
func DefaultConfig() (Config, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		CacheFile:      filepath.Join(dir, "catalog.cache"),
		StateFile:      filepath.Join(dir, "chain.yaml"),
		ScanIntervalMS: DefaultScanIntervalMS,
		SampleRate:     DefaultSampleRate,
		BlockSize:      DefaultBlockSize,
		LogLevel:       DefaultLogLevel,
	}, nil
}

// DefaultConfigDir returns the per-user directory holding config, cache and state files.
func DefaultConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "chainhost"), nil
}

// DefaultConfigPath returns the config file location used when none is given.
func DefaultConfigPath() (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// ScanInterval returns the cooperative scan step period.
func (c Config) ScanInterval() time.Duration {
	if c.ScanIntervalMS <= 0 {
		return DefaultScanIntervalMS * time.Millisecond
	}
	return time.Duration(c.ScanIntervalMS) * time.Millisecond
}

// EffectiveSearchPaths returns the configured search paths, or the platform defaults when
// none are configured. Entries are env- and home-expanded.
func (c Config) EffectiveSearchPaths() []string {
	paths := c.SearchPaths
	if len(paths) == 0 {
		paths = DefaultSearchPaths(runtime.GOOS)
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p = ExpandPath(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// AddSearchPath appends path unless it is empty or already present.
func (c *Config) AddSearchPath(path string) bool {
	path = strings.TrimSpace(path)
	if path == "" {
		return false
	}
	for _, p := range c.SearchPaths {
		if p == path {
			return false
		}
	}
	c.SearchPaths = append(c.SearchPaths, path)
	return true
}

// RemoveSearchPath removes every occurrence of path and reports whether any was removed.
func (c *Config) RemoveSearchPath(path string) bool {
	kept := c.SearchPaths[:0]
	removed := false
	for _, p := range c.SearchPaths {
		if p == path {
			removed = true
			continue
		}
		kept = append(kept, p)
	}
	c.SearchPaths = kept
	return removed
}

// ClearSearchPaths removes all configured search paths.
func (c *Config) ClearSearchPaths() {
	c.SearchPaths = nil
}

// SetSearchPaths replaces the search paths, dropping empties and duplicates.
func (c *Config) SetSearchPaths(paths []string) {
	c.SearchPaths = nil
	for _, p := range paths {
		c.AddSearchPath(p)
	}
}

// DefaultSearchPaths returns the standard plugin install locations for goos.
func DefaultSearchPaths(goos string) []string {
	switch goos {
	case "darwin":
		return []string{
			"/Library/Audio/Plug-Ins/VST3",
			"~/Library/Audio/Plug-Ins/VST3",
			"/Library/Audio/Plug-Ins/VST",
			"~/Library/Audio/Plug-Ins/VST",
			"/Library/Audio/Plug-Ins/Components",
			"~/Library/Audio/Plug-Ins/Components",
			"/Library/Audio/Plug-Ins/CLAP",
			"~/Library/Audio/Plug-Ins/CLAP",
		}
	case "windows":
		return []string{
			`C:\Program Files\Common Files\VST3`,
			`C:\Program Files (x86)\Common Files\VST3`,
			`${APPDATA}\VST3`,
			`C:\Program Files\Steinberg\VSTPlugins`,
			`C:\Program Files\VSTPlugins`,
			`C:\Program Files\Common Files\CLAP`,
			`${LOCALAPPDATA}\Programs\Common\CLAP`,
		}
	default:
		return []string{
			"~/.vst3",
			"/usr/lib/vst3",
			"/usr/local/lib/vst3",
			"~/.vst",
			"/usr/lib/vst",
			"/usr/local/lib/vst",
			"~/.clap",
			"/usr/lib/clap",
		}
	}
}
