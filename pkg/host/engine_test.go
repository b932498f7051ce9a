package host

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/justyntemme/vst3host/pkg/audio"
	"github.com/justyntemme/vst3host/pkg/debug"
	"github.com/justyntemme/vst3host/pkg/gofx"
	"github.com/justyntemme/vst3host/pkg/host/chain"
	"github.com/justyntemme/vst3host/pkg/host/dispatch"
	"github.com/justyntemme/vst3host/pkg/host/events"
	"github.com/justyntemme/vst3host/pkg/host/format"
	"github.com/justyntemme/vst3host/pkg/host/scan"
	"github.com/justyntemme/vst3host/pkg/host/state"
)

const (
	rackManifest = `
manufacturer: Test Audio
version: "1.0"
effects:
  - name: Half
    kind: gain
    params: {gain: -6.0206}
  - name: Crunch
    kind: drive
  - name: Sine
    kind: tone
`
	echoManifest = `
effects:
  - name: Slapback
    kind: delay
    params: {time: 0.08}
`
)

func coordinator() context.Context {
	return dispatch.WithCoordinator(context.Background())
}

// pluginDir lays out a search path with two manifests, a nested one and an unrelated file.
func pluginDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"rack.gofx":          rackManifest,
		"delays/echo.gofx":   echoManifest,
		"readme.txt":         "not a plugin",
		"delays/broken.gofx": "effects: [",
	}
	for name, body := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func collect(ch <-chan events.Event) []events.Event {
	var out []events.Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func count(evs []events.Event, kind events.Kind) int {
	n := 0
	for _, ev := range evs {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func find(t *testing.T, e *Engine, name string) format.Descriptor {
	t.Helper()
	for _, d := range e.AvailablePlugins() {
		if d.Name == name {
			return d
		}
	}
	t.Fatalf("%s not in catalog", name)
	return format.Descriptor{}
}

func TestScanEmptySearchPaths(t *testing.T) {
	e := New()
	sub, cancel := e.Subscribe()
	defer cancel()

	if err := e.ScanSync(coordinator(), false); err != nil {
		t.Fatal(err)
	}
	if len(e.AvailablePlugins()) != 0 || e.IsScanning() || !e.IsCacheValid() {
		t.Errorf("catalog=%d scanning=%v valid=%v", len(e.AvailablePlugins()), e.IsScanning(), e.IsCacheValid())
	}
	if n := count(collect(sub), events.ScanComplete); n != 1 {
		t.Errorf("scan-complete fired %d times", n)
	}
}

func TestScanCatalogsGoFX(t *testing.T) {
	dir := pluginDir(t)
	cache := filepath.Join(t.TempDir(), "catalog.cache")
	e := New(WithSearchPaths(dir), WithCacheFile(cache))
	ctx := coordinator()

	if err := e.ScanSync(ctx, true); err != nil {
		t.Fatal(err)
	}
	names := map[string]bool{}
	for _, d := range e.AvailablePlugins() {
		names[d.Name] = true
		if d.IsInstrument {
			t.Errorf("instrument %s catalogued", d.Name)
		}
	}
	// Half, Crunch, Slapback, plus the filename fallback for the broken manifest.
	for _, want := range []string{"Half", "Crunch", "Slapback", "broken"} {
		if !names[want] {
			t.Errorf("%s missing from catalog %v", want, names)
		}
	}
	if len(names) != 4 {
		t.Errorf("catalog = %v", names)
	}
	if d := find(t, e, "broken"); d.Manufacturer != scan.FallbackManufacturer || d.Version != scan.FallbackVersion {
		t.Errorf("fallback metadata = %+v", d)
	}

	// A second pass finds the same files without duplicating them.
	if err := e.RefreshCache(ctx); err != nil {
		t.Fatal(err)
	}
	if e.IsCacheValid() {
		t.Error("RefreshCache left the cache valid")
	}
	for {
		done, err := e.StepScan(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if done {
			break
		}
	}
	if got := len(e.AvailablePlugins()); got != 4 {
		t.Errorf("after rescan catalog has %d entries", got)
	}

	t.Run("CacheReload", func(t *testing.T) {
		if _, err := os.Stat(cache); err != nil {
			t.Fatalf("cache not written: %v", err)
		}
		fresh := New(WithSearchPaths(dir), WithCacheFile(cache))
		if err := fresh.LoadCache(); err != nil {
			t.Fatal(err)
		}
		if !fresh.IsCacheValid() || len(fresh.AvailablePlugins()) != 4 {
			t.Fatalf("cache reload: valid=%v n=%d", fresh.IsCacheValid(), len(fresh.AvailablePlugins()))
		}
		sub, cancel := fresh.Subscribe()
		defer cancel()
		if err := fresh.Scan(ctx, true); err != nil {
			t.Fatal(err)
		}
		if fresh.IsScanning() || len(collect(sub)) != 0 {
			t.Error("Scan(useCache) rescanned a valid cache")
		}
		if _, err := fresh.Load(ctx, find(t, fresh, "Half")); err != nil {
			t.Errorf("load from cached descriptor: %v", err)
		}
	})

	t.Run("MissingCacheFile", func(t *testing.T) {
		e := New(WithCacheFile(filepath.Join(t.TempDir(), "none.cache")))
		if err := e.LoadCache(); err != nil || e.IsCacheValid() {
			t.Errorf("LoadCache = %v, valid=%v", err, e.IsCacheValid())
		}
	})
}

func TestScanInProgressAndCancel(t *testing.T) {
	e := New(WithSearchPaths(pluginDir(t)))
	ctx := coordinator()
	sub, cancel := e.Subscribe()
	defer cancel()

	if err := e.Scan(ctx, false); err != nil {
		t.Fatal(err)
	}
	if !e.IsScanning() {
		t.Fatal("not scanning after Scan")
	}
	if err := e.Scan(ctx, false); !errors.Is(err, scan.ErrScanInProgress) {
		t.Errorf("second Scan = %v", err)
	}
	if err := e.RefreshCache(ctx); !errors.Is(err, scan.ErrScanInProgress) {
		t.Errorf("RefreshCache during scan = %v", err)
	}
	if done, err := e.StepScan(ctx); done || err != nil {
		t.Fatalf("first step = %v, %v", done, err)
	}
	if err := e.CancelScan(ctx); err != nil {
		t.Fatal(err)
	}
	if e.IsScanning() || e.IsCacheValid() {
		t.Error("cancelled scan left scanning set or marked the cache valid")
	}
	if count(collect(sub), events.ScanComplete) != 0 {
		t.Error("cancelled scan raised scan-complete")
	}
}

func TestRunScanOnLoop(t *testing.T) {
	e := New(WithSearchPaths(pluginDir(t)), WithScanInterval(time.Millisecond))
	loop := dispatch.NewLoop(8, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	loop.Start(ctx)
	defer loop.Close()

	if err := loop.Do(ctx, func(cctx context.Context) error { return e.Scan(cctx, false) }); err != nil {
		t.Fatal(err)
	}
	if err := e.RunScan(ctx, loop); err != nil {
		t.Fatal(err)
	}
	if e.IsScanning() || len(e.AvailablePlugins()) != 4 {
		t.Errorf("scanning=%v catalog=%d", e.IsScanning(), len(e.AvailablePlugins()))
	}
	if err := e.Scan(context.Background(), false); !errors.Is(err, dispatch.ErrNotCoordinator) {
		t.Errorf("Scan off the coordinator = %v", err)
	}
}

func TestLoadAndProcess(t *testing.T) {
	e := New(WithSearchPaths(pluginDir(t)), WithProfiler(debug.NewProfiler(8)))
	ctx := coordinator()
	if err := e.ScanSync(ctx, false); err != nil {
		t.Fatal(err)
	}

	half := find(t, e, "Half")
	if _, err := e.LoadByIdentifier(ctx, half.FileOrIdentifier); err != nil {
		t.Fatal(err)
	}
	if _, err := e.LoadByIdentifier(ctx, "/nowhere.gofx"); !errors.Is(err, ErrNotInCatalog) {
		t.Errorf("LoadByIdentifier(missing) = %v", err)
	}
	if _, err := e.Load(ctx, half); err != nil {
		t.Fatal(err)
	}
	if e.NumPlugins() != 2 {
		t.Fatalf("NumPlugins = %d", e.NumPlugins())
	}

	if err := e.Prepare(44100, 128); err != nil {
		t.Fatal(err)
	}
	buf := audio.NewBuffer(2, 128)
	for _, data := range buf.Channels {
		for i := range data {
			data[i] = 1
		}
	}
	if err := e.Process(buf); err != nil {
		t.Fatal(err)
	}
	if got := buf.Channels[0][64]; math.Abs(float64(got)-0.25) > 1e-3 {
		t.Errorf("two half-gain slots: %v, want 0.25", got)
	}
	if m, ok := e.Profiler().Measurement("Half"); !ok || m.Count != 2 {
		t.Errorf("profiler = %+v, %v", m, ok)
	}

	e.Bypass(1, true)
	for _, data := range buf.Channels {
		for i := range data {
			data[i] = 1
		}
	}
	_ = e.Process(buf)
	if got := buf.Channels[1][0]; math.Abs(float64(got)-0.5) > 1e-3 {
		t.Errorf("with slot 1 bypassed: %v, want 0.5", got)
	}

	synth := find(t, e, "Crunch")
	synth.IsInstrument = true
	if _, err := e.Load(ctx, synth); !errors.Is(err, chain.ErrInstrument) {
		t.Errorf("instrument load = %v", err)
	}
	e.Release()
}

func TestStateRoundTrip(t *testing.T) {
	dir := pluginDir(t)
	e := New(WithSearchPaths(dir))
	ctx := coordinator()
	if err := e.ScanSync(ctx, false); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"Crunch", "Slapback", "Half"} {
		if _, err := e.Load(ctx, find(t, e, name)); err != nil {
			t.Fatal(err)
		}
	}
	ed, err := e.OpenEditor(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := ed.(*gofx.Editor).Set("feedback", 0.6); err != nil {
		t.Fatal(err)
	}
	e.Bypass(2, true)

	before, err := e.GetState(ctx)
	if err != nil {
		t.Fatal(err)
	}

	for _, file := range []string{"chain.yaml", "chain.chain"} {
		t.Run(file, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), file)
			if err := e.SaveState(ctx, path); err != nil {
				t.Fatal(err)
			}
			if err := e.ClearAll(ctx); err != nil {
				t.Fatal(err)
			}
			report, ok, err := e.LoadState(ctx, path)
			if err != nil || !ok || report.Restored != 3 {
				t.Fatalf("LoadState = %+v, %v, %v", report, ok, err)
			}
			after, err := e.GetState(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(after.Children) != len(before.Children) {
				t.Fatalf("restored %d plugins", len(after.Children))
			}
			for i, n := range before.Children {
				got := after.Children[i]
				for _, key := range []string{state.PropName, state.PropBypassed, state.PropState} {
					if got.Get(key) != n.Get(key) {
						t.Errorf("slot %d %s = %q, want %q", i, key, got.Get(key), n.Get(key))
					}
				}
			}
		})
	}

	t.Run("MissingFile", func(t *testing.T) {
		n := e.NumPlugins()
		_, ok, err := e.LoadState(ctx, filepath.Join(t.TempDir(), "none.yaml"))
		if ok || err != nil || e.NumPlugins() != n {
			t.Errorf("LoadState(missing) = %v, %v", ok, err)
		}
	})
}

func TestSetStateSkipsUnloadable(t *testing.T) {
	e := New()
	ctx := coordinator()
	root := state.NewNode(state.ChainType)
	root.Append(state.NewNode(state.PluginType).
		Set(state.PropName, "Ghost").
		Set(state.PropFileOrIdentifier, filepath.Join(t.TempDir(), "ghost.gofx")))
	report, err := e.SetState(ctx, root)
	if err != nil {
		t.Fatal(err)
	}
	if report.Restored != 0 || len(report.Skipped) != 1 || e.NumPlugins() != 0 {
		t.Errorf("report = %+v", report)
	}
}

func TestWatchInvalidatesCache(t *testing.T) {
	dir := t.TempDir()
	e := New(WithSearchPaths(dir))
	ctx := coordinator()
	if err := e.ScanSync(ctx, false); err != nil {
		t.Fatal(err)
	}
	sub, cancel := e.Subscribe()
	defer cancel()

	wctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Watch(wctx) }()
	defer func() {
		stop()
		<-done
	}()

	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for i := 0; ; i++ {
		select {
		case ev := <-sub:
			if ev.Kind == events.CacheInvalidated {
				if e.IsCacheValid() {
					t.Error("cache still valid after a plugin appeared")
				}
				return
			}
		case <-tick.C:
			// The watcher may not be registered yet; keep creating files until it reports.
			name := filepath.Join(dir, "new"+string(rune('a'+i%26))+".gofx")
			_ = os.WriteFile(name, []byte(echoManifest), 0o644)
		case <-deadline:
			t.Fatal("no cache-invalidated event")
		}
	}
}
