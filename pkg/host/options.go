package host

import (
	"time"

	"github.com/justyntemme/vst3host/pkg/config"
	"github.com/justyntemme/vst3host/pkg/debug"
	"github.com/justyntemme/vst3host/pkg/gofx"
	"github.com/justyntemme/vst3host/pkg/host/arch"
	"github.com/justyntemme/vst3host/pkg/host/format"
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. Components log under named children.
func WithLogger(l *debug.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithSearchPaths sets the directories a scan walks.
func WithSearchPaths(paths ...string) Option {
	return func(e *Engine) { e.searchPaths = append([]string(nil), paths...) }
}

// WithCacheFile sets where the catalog cache is read and written. Empty disables it.
func WithCacheFile(path string) Option {
	return func(e *Engine) { e.cacheFile = path }
}

// WithScanInterval sets the period between cooperative scan steps in RunScan.
func WithScanInterval(d time.Duration) Option {
	return func(e *Engine) { e.interval = d }
}

// WithProviders replaces the default format providers (GoFX plus the native shells).
func WithProviders(providers ...format.Provider) Option {
	return func(e *Engine) { e.providers = providers }
}

// WithInspector replaces the architecture inspector.
func WithInspector(insp *arch.Inspector) Option {
	return func(e *Engine) { e.inspector = insp }
}

// WithProfiler enables per-slot timing in Process.
func WithProfiler(p *debug.Profiler) Option {
	return func(e *Engine) { e.profiler = p }
}

// FromConfig maps a user configuration onto engine options.
func FromConfig(cfg config.Config) []Option {
	opts := []Option{
		WithSearchPaths(cfg.EffectiveSearchPaths()...),
		WithCacheFile(config.ExpandPath(cfg.CacheFile)),
		WithScanInterval(cfg.ScanInterval()),
	}
	if cfg.Profile {
		opts = append(opts, WithProfiler(debug.NewProfiler(1024)))
	}
	return opts
}

func defaultProviders(log *debug.Logger) []format.Provider {
	return append([]format.Provider{gofx.NewProvider(log.Named("gofx"))}, format.NativeProviders()...)
}
