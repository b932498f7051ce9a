// Package scan discovers plugins on disk one candidate at a time so the coordinator
// never blocks on a full directory walk plus SDK description.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/justyntemme/vst3host/pkg/debug"
	"github.com/justyntemme/vst3host/pkg/host/arch"
	"github.com/justyntemme/vst3host/pkg/host/catalog"
	"github.com/justyntemme/vst3host/pkg/host/dispatch"
	"github.com/justyntemme/vst3host/pkg/host/events"
	"github.com/justyntemme/vst3host/pkg/host/format"
)

// ErrScanInProgress is returned when a scan is requested while one is active.
var ErrScanInProgress = errors.New("scan already in progress")

// DefaultInterval is the period between cooperative steps.
const DefaultInterval = 10 * time.Millisecond

// State is the scheduler's position in a pass.
type State int

const (
	Idle State = iota
	Enumerating
	Stepping
)

func (s State) String() string {
	switch s {
	case Enumerating:
		return "enumerating"
	case Stepping:
		return "stepping"
	default:
		return "idle"
	}
}

// Fallback metadata for candidates the provider cannot describe.
const (
	FallbackManufacturer = "Unknown"
	FallbackVersion      = "1.0"
	FallbackChannels     = 2
)

type candidate struct {
	path     string
	provider format.Provider
	bundle   bool
}

// Scheduler walks search paths and feeds the catalog. All methods taking a context are
// coordinator-only.
type Scheduler struct {
	registry  *format.Registry
	inspector *arch.Inspector
	catalog   *catalog.Catalog
	bus       *events.Bus
	log       *debug.Logger

	// mu guards writes to state, queue and cursor so State and Progress can be read from
	// any goroutine. The coordinator, the only writer, reads them without it.
	mu     sync.Mutex
	state  State
	queue  []candidate
	cursor int

	// OnComplete, if set, runs on the coordinator after each completed pass.
	OnComplete func()
}

// NewScheduler wires a scheduler to its collaborators. bus and log may be nil.
func NewScheduler(reg *format.Registry, insp *arch.Inspector, cat *catalog.Catalog, bus *events.Bus, log *debug.Logger) *Scheduler {
	if log == nil {
		log = debug.Nop()
	}
	return &Scheduler{registry: reg, inspector: insp, catalog: cat, bus: bus, log: log}
}

// State returns the current state. Safe from any goroutine.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Progress returns how many candidates have been processed out of the queue length.
// Safe from any goroutine.
func (s *Scheduler) Progress() (done, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor, len(s.queue)
}

func (s *Scheduler) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Scan starts a pass unless useCache is set and the catalog is already valid and non-empty.
func (s *Scheduler) Scan(ctx context.Context, paths []string, useCache bool) error {
	if err := dispatch.Assert(ctx, "scan"); err != nil {
		return err
	}
	if useCache && s.state == Idle && s.catalog.IsValid() && s.catalog.Len() > 0 {
		s.log.Debug("catalog cache valid, %d plugins", s.catalog.Len())
		return nil
	}
	return s.Start(ctx, paths)
}

// Refresh invalidates the catalog and starts a new pass.
func (s *Scheduler) Refresh(ctx context.Context, paths []string) error {
	if err := dispatch.Assert(ctx, "refresh cache"); err != nil {
		return err
	}
	if s.state != Idle {
		return ErrScanInProgress
	}
	s.catalog.Invalidate()
	return s.Start(ctx, paths)
}

// Start enumerates candidates under paths and enters Stepping. An empty queue completes
// the pass immediately.
func (s *Scheduler) Start(ctx context.Context, paths []string) error {
	if err := dispatch.Assert(ctx, "start scan"); err != nil {
		return err
	}
	if s.state != Idle {
		s.log.Debug("scan requested while %s, ignored", s.state)
		return ErrScanInProgress
	}

	s.setState(Enumerating)
	s.catalog.BeginPass()
	queue := s.enumerate(paths)
	s.mu.Lock()
	s.queue = queue
	s.cursor = 0
	s.state = Stepping
	s.mu.Unlock()
	s.log.Info("scan started: %d candidates in %d search paths", len(s.queue), len(paths))

	if len(s.queue) == 0 {
		s.complete()
	}
	return nil
}

// Step processes one candidate. It reports true once the pass is over (or none is active).
func (s *Scheduler) Step(ctx context.Context) (bool, error) {
	if err := dispatch.Assert(ctx, "scan step"); err != nil {
		return false, err
	}
	if s.state != Stepping {
		return true, nil
	}
	if s.cursor < len(s.queue) {
		c := s.queue[s.cursor]
		s.mu.Lock()
		s.cursor++
		s.mu.Unlock()
		s.process(c)
	}
	if s.cursor >= len(s.queue) {
		s.complete()
		return true, nil
	}
	return false, nil
}

// Cancel abandons the active pass. Entries already in the catalog stay, the cache is not
// marked valid and no scan-complete event is raised.
func (s *Scheduler) Cancel(ctx context.Context) error {
	if err := dispatch.Assert(ctx, "cancel scan"); err != nil {
		return err
	}
	if s.state == Idle {
		return nil
	}
	s.log.Info("scan cancelled after %d of %d candidates", s.cursor, len(s.queue))
	s.reset()
	s.catalog.Abort()
	return nil
}

// RunSync steps the active pass to completion on the calling coordinator.
func (s *Scheduler) RunSync(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		done, err := s.Step(ctx)
		if err != nil || done {
			return err
		}
	}
}

// Run drives the active pass from a ticker, posting one step per tick to loop. It returns
// when the pass is over or ctx is cancelled. Run itself may be called from any goroutine.
func (s *Scheduler) Run(ctx context.Context, loop *dispatch.Loop, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			var done bool
			err := loop.Do(ctx, func(cctx context.Context) error {
				var err error
				done, err = s.Step(cctx)
				return err
			})
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
	}
}

func (s *Scheduler) complete() {
	found := s.catalog.Len()
	s.reset()
	s.catalog.Finish()
	s.log.Info("scan complete: %d plugins", found)
	if s.OnComplete != nil {
		s.OnComplete()
	}
	s.bus.ScanComplete()
}

func (s *Scheduler) reset() {
	s.mu.Lock()
	s.state = Idle
	s.queue = nil
	s.cursor = 0
	s.mu.Unlock()
}

func (s *Scheduler) enumerate(paths []string) []candidate {
	var out []candidate
	seen := make(map[string]struct{})
	add := func(c candidate) {
		if _, ok := seen[c.path]; ok {
			return
		}
		seen[c.path] = struct{}{}
		out = append(out, c)
	}

	for _, root := range paths {
		if root == "" {
			continue
		}
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				s.log.Debug("skip %s: %v", path, err)
				if d != nil && d.IsDir() && path != root {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if path == root {
					return nil
				}
				if p, ok := s.registry.ForFile(path, true); ok {
					add(candidate{path: path, provider: p, bundle: true})
					return fs.SkipDir
				}
				return nil
			}
			if p, ok := s.registry.ForFile(path, false); ok {
				add(candidate{path: path, provider: p})
			}
			return nil
		})
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			s.log.Debug("walk %s: %v", root, err)
		}
	}
	return out
}

func (s *Scheduler) process(c candidate) {
	if c.bundle && !arch.ValidBundle(c.path, c.provider.Name()) {
		s.log.Debug("%s: invalid %s bundle structure", c.path, c.provider.Name())
		return
	}

	res := s.inspector.Inspect(c.path)
	if !res.Compatible {
		s.log.Debug("%s: skipped, %s binary on %s host", c.path, res.Arch, s.inspector.HostArch())
		return
	}

	descs, err := s.describeCandidate(c)
	if errors.Is(err, errDescribePanic) {
		s.log.Debug("%s: skipped, %v", c.path, err)
		return
	}
	if err != nil {
		s.log.Debug("%s: describe failed: %v", c.path, err)
		descs = nil
	}
	if len(descs) == 0 {
		descs = []format.Description{fallback(c.path)}
	}

	for _, d := range descs {
		if d.IsInstrument {
			s.log.Debug("%s: %s is an instrument, skipped", c.path, d.Name)
			continue
		}
		desc := describe(c, d, res)
		if s.catalog.Add(desc) {
			s.log.Debug("found %s", desc)
		}
	}
}

var errDescribePanic = errors.New("provider panicked in describe")

// describeCandidate calls the provider, turning a panic into errDescribePanic.
func (s *Scheduler) describeCandidate(c candidate) (descs []format.Description, err error) {
	defer func() {
		if r := recover(); r != nil {
			descs, err = nil, fmt.Errorf("%w: %v", errDescribePanic, r)
		}
	}()
	return c.provider.Describe(c.path)
}

func fallback(path string) format.Description {
	base := filepath.Base(path)
	return format.Description{
		Name:         strings.TrimSuffix(base, filepath.Ext(base)),
		Manufacturer: FallbackManufacturer,
		Version:      FallbackVersion,
		NumInputs:    FallbackChannels,
		NumOutputs:   FallbackChannels,
	}
}

func describe(c candidate, d format.Description, res arch.Result) format.Descriptor {
	id := d.Identifier
	if id == "" {
		id = c.path
	}
	name := d.Name
	if name == "" {
		name = fallback(c.path).Name
	}
	return format.Descriptor{
		Name:             name,
		Manufacturer:     d.Manufacturer,
		Version:          d.Version,
		Format:           c.provider.Name(),
		FileOrIdentifier: id,
		NumInputs:        d.NumInputs,
		NumOutputs:       d.NumOutputs,
		IsInstrument:     d.IsInstrument,
		Arch:             res.Arch,
		Is64Bit:          res.Is64Bit,
		Compatible:       res.Compatible,
		Blob:             d.Blob,
	}
}
