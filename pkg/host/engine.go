// Package host is the plugin-hosting engine: it wires the format registry, architecture
// inspector, catalog, scan scheduler, plugin chain, state codec and event bus behind one
// facade shared by the coordinator and the audio callback.
package host

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/justyntemme/vst3host/pkg/audio"
	"github.com/justyntemme/vst3host/pkg/debug"
	"github.com/justyntemme/vst3host/pkg/host/arch"
	"github.com/justyntemme/vst3host/pkg/host/catalog"
	"github.com/justyntemme/vst3host/pkg/host/chain"
	"github.com/justyntemme/vst3host/pkg/host/dispatch"
	"github.com/justyntemme/vst3host/pkg/host/events"
	"github.com/justyntemme/vst3host/pkg/host/format"
	"github.com/justyntemme/vst3host/pkg/host/scan"
	"github.com/justyntemme/vst3host/pkg/host/state"
)

// ErrNotInCatalog is returned by LoadByIdentifier when no catalog entry matches.
var ErrNotInCatalog = errors.New("plugin not in catalog")

// Engine hosts one plugin chain.
//
// Methods taking a context are coordinator-only and fail with dispatch.ErrNotCoordinator
// elsewhere. Process is the audio-path entry point. Queries may be called from anywhere.
type Engine struct {
	mu sync.Mutex

	log       *debug.Logger
	bus       *events.Bus
	registry  *format.Registry
	inspector *arch.Inspector
	catalog   *catalog.Catalog
	scanner   *scan.Scheduler
	chain     *chain.Chain
	codec     *state.Codec
	profiler  *debug.Profiler
	providers []format.Provider

	pathsMu     sync.RWMutex
	searchPaths []string
	cacheFile   string
	interval    time.Duration
}

// New builds an engine. Without options it has no search paths, no cache file and the
// default providers.
func New(opts ...Option) *Engine {
	e := &Engine{log: debug.Nop(), interval: scan.DefaultInterval}
	for _, opt := range opts {
		opt(e)
	}
	if e.providers == nil {
		e.providers = defaultProviders(e.log)
	}
	if e.inspector == nil {
		e.inspector = arch.NewInspector(arch.WithLogger(e.log.Named("arch")))
	}

	e.bus = events.New(e.log.Named("events"))
	e.registry = format.NewRegistry(e.providers...)
	e.catalog = catalog.New(&e.mu)
	e.scanner = scan.NewScheduler(e.registry, e.inspector, e.catalog, e.bus, e.log.Named("scan"))
	e.scanner.OnComplete = e.saveCacheAfterScan
	e.chain = chain.New(&e.mu, e.registry, e.bus, e.log.Named("chain"))
	e.codec = state.NewCodec(e.catalog, e.log.Named("state"))
	if e.profiler != nil {
		e.chain.SetProfiler(e.profiler)
	}
	return e
}

// Registry returns the format registry.
func (e *Engine) Registry() *format.Registry { return e.registry }

// Inspector returns the architecture inspector.
func (e *Engine) Inspector() *arch.Inspector { return e.inspector }

// Profiler returns the chain profiler, or nil when profiling is off.
func (e *Engine) Profiler() *debug.Profiler { return e.profiler }

// Queries.

// NumPlugins returns the number of slots in the chain.
func (e *Engine) NumPlugins() int { return e.chain.NumPlugins() }

// PluginInfo returns the slot at index.
func (e *Engine) PluginInfo(index int) (chain.Info, bool) { return e.chain.Info(index) }

// Chain returns every slot in processing order.
func (e *Engine) Chain() []chain.Info { return e.chain.Infos() }

// IsBypassed reports the bypass flag of the slot at index.
func (e *Engine) IsBypassed(index int) bool { return e.chain.IsBypassed(index) }

// AvailablePlugins returns the catalog.
func (e *Engine) AvailablePlugins() []format.Descriptor { return e.catalog.Entries() }

// IsCacheValid reports whether the catalog reflects a completed scan or a loaded cache.
func (e *Engine) IsCacheValid() bool { return e.catalog.IsValid() }

// IsScanning reports whether a scan pass is active.
func (e *Engine) IsScanning() bool { return e.catalog.IsScanning() }

// SearchPaths returns the directories a scan walks.
func (e *Engine) SearchPaths() []string {
	e.pathsMu.RLock()
	defer e.pathsMu.RUnlock()
	return append([]string(nil), e.searchPaths...)
}

// SetSearchPaths replaces the search paths used by the next scan.
func (e *Engine) SetSearchPaths(paths []string) {
	e.pathsMu.Lock()
	e.searchPaths = append([]string(nil), paths...)
	e.pathsMu.Unlock()
}

// Chain mutators.

// Load appends d to the chain and returns its index.
func (e *Engine) Load(ctx context.Context, d format.Descriptor) (int, error) {
	return e.chain.Load(ctx, d)
}

// LoadByIdentifier loads the first catalog entry for a file or identifier.
func (e *Engine) LoadByIdentifier(ctx context.Context, fileOrIdentifier string) (int, error) {
	if err := dispatch.Assert(ctx, "load"); err != nil {
		return -1, err
	}
	matches := e.catalog.Find(fileOrIdentifier)
	if len(matches) == 0 {
		return -1, fmt.Errorf("%w: %s", ErrNotInCatalog, fileOrIdentifier)
	}
	return e.chain.Load(ctx, matches[0])
}

// Unload removes the slot at index.
func (e *Engine) Unload(ctx context.Context, index int) error { return e.chain.Unload(ctx, index) }

// ClearAll removes every slot.
func (e *Engine) ClearAll(ctx context.Context) error { return e.chain.ClearAll(ctx) }

// Move reorders a slot.
func (e *Engine) Move(ctx context.Context, from, to int) error { return e.chain.Move(ctx, from, to) }

// Bypass sets a slot's bypass flag.
func (e *Engine) Bypass(index int, bypassed bool) { e.chain.Bypass(index, bypassed) }

// OpenEditor opens the editor of a slot.
func (e *Engine) OpenEditor(ctx context.Context, index int) (format.Editor, error) {
	return e.chain.OpenEditor(ctx, index)
}

// CloseEditor closes the editor of a slot.
func (e *Engine) CloseEditor(ctx context.Context, index int) error {
	return e.chain.CloseEditor(ctx, index)
}

// Audio path.

// Prepare primes the chain for a block format.
func (e *Engine) Prepare(sampleRate float64, blockSize int) error {
	return e.chain.Prepare(sampleRate, blockSize)
}

// Process runs one block through the chain in place.
func (e *Engine) Process(buf *audio.Buffer) error { return e.chain.Process(buf) }

// Release frees playback resources.
func (e *Engine) Release() { e.chain.Release() }

// Scanning.

// Scan starts a pass over the search paths. With useCache it is a no-op while the
// catalog is valid and non-empty.
func (e *Engine) Scan(ctx context.Context, useCache bool) error {
	return e.scanner.Scan(ctx, e.SearchPaths(), useCache)
}

// RefreshCache invalidates the catalog and starts a new pass.
func (e *Engine) RefreshCache(ctx context.Context) error {
	return e.scanner.Refresh(ctx, e.SearchPaths())
}

// StepScan processes one candidate of the active pass and reports whether it is over.
func (e *Engine) StepScan(ctx context.Context) (bool, error) { return e.scanner.Step(ctx) }

// ScanSync runs a whole pass on the calling coordinator.
func (e *Engine) ScanSync(ctx context.Context, useCache bool) error {
	if err := e.Scan(ctx, useCache); err != nil {
		return err
	}
	return e.scanner.RunSync(ctx)
}

// RunScan steps the active pass from a ticker through loop until it completes.
func (e *Engine) RunScan(ctx context.Context, loop *dispatch.Loop) error {
	return e.scanner.Run(ctx, loop, e.interval)
}

// CancelScan abandons the active pass.
func (e *Engine) CancelScan(ctx context.Context) error { return e.scanner.Cancel(ctx) }

// ScanProgress returns processed and total candidates of the active pass.
func (e *Engine) ScanProgress() (done, total int) { return e.scanner.Progress() }

// Catalog cache.

// SaveCache writes the catalog to the cache file. It is a no-op without one.
func (e *Engine) SaveCache() error {
	if e.cacheFile == "" {
		return nil
	}
	return e.catalog.Save(e.cacheFile, e.inspector.HostArch())
}

// LoadCache reads the cache file into the catalog and marks it valid. A missing file is
// not an error.
func (e *Engine) LoadCache() error {
	if e.cacheFile == "" {
		return nil
	}
	err := e.catalog.Load(e.cacheFile, e.inspector.HostArch())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (e *Engine) saveCacheAfterScan() {
	if err := e.SaveCache(); err != nil {
		e.log.Warn("saving catalog cache: %v", err)
	}
}

// State.

// GetState captures the chain as a PluginChain tree.
func (e *Engine) GetState(ctx context.Context) (*state.Node, error) {
	return e.codec.Encode(ctx, e.chain)
}

// SetState replaces the chain with the one described by root. Records that fail to load
// are skipped and listed in the report.
func (e *Engine) SetState(ctx context.Context, root *state.Node) (state.Report, error) {
	return e.codec.Decode(ctx, root, e.chain)
}

// SaveState writes the chain to path; the extension picks the encoding.
func (e *Engine) SaveState(ctx context.Context, path string) error {
	store, err := state.NewStore(path, e.log.Named("state"))
	if err != nil {
		return err
	}
	root, err := e.GetState(ctx)
	if err != nil {
		return err
	}
	return store.Save(root)
}

// LoadState restores the chain from path. A missing file leaves the chain untouched and
// reports false.
func (e *Engine) LoadState(ctx context.Context, path string) (state.Report, bool, error) {
	store, err := state.NewStore(path, e.log.Named("state"))
	if err != nil {
		return state.Report{}, false, err
	}
	root, ok, err := store.Load()
	if err != nil || !ok {
		return state.Report{}, false, err
	}
	report, err := e.SetState(ctx, root)
	return report, err == nil, err
}

// Events.

// Subscribe returns a channel of engine events and a cancel func.
func (e *Engine) Subscribe() (<-chan events.Event, func()) { return e.bus.Subscribe() }

// Observe dispatches events to typed callbacks until the returned func is called.
func (e *Engine) Observe(o events.Observer) func() { return e.bus.Observe(o) }

// Watch invalidates the catalog cache whenever a plugin appears in or disappears from a
// search path. It blocks until ctx is cancelled.
func (e *Engine) Watch(ctx context.Context) error {
	w, err := scan.NewWatcher(e.SearchPaths(), e.registry, func(path string) {
		e.catalog.Invalidate()
		e.bus.CacheInvalidated(path)
	}, e.log.Named("watch"))
	if err != nil {
		return err
	}
	defer w.Close()
	return w.Run(ctx)
}
