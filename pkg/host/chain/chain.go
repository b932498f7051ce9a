// Package chain owns the ordered list of live plugin instances and the real-time
// processing pass over them.
package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/justyntemme/vst3host/pkg/audio"
	"github.com/justyntemme/vst3host/pkg/debug"
	"github.com/justyntemme/vst3host/pkg/host/dispatch"
	"github.com/justyntemme/vst3host/pkg/host/events"
	"github.com/justyntemme/vst3host/pkg/host/format"
	"github.com/justyntemme/vst3host/pkg/midi"
)

// Defaults handed to Instantiate before the chain has been prepared.
const (
	DefaultSampleRate = 44100.0
	DefaultBlockSize  = 512
)

// slot is a live chain position. A slot always has a processor.
type slot struct {
	id         uint64
	descriptor format.Descriptor
	provider   format.Provider
	processor  format.Processor
	editor     format.Editor
	bypassed   bool
	fault      string
}

// Info is a read-only view of one slot.
type Info struct {
	ID         uint64
	Descriptor format.Descriptor
	Bypassed   bool
	Fault      string
	EditorOpen bool
}

// Chain is the ordered plugin chain.
//
// Slots, bypass flags and fault messages are guarded by the Locker passed to New, shared
// with the catalog. Load, Unload, ClearAll, Move, editor calls and state access are
// coordinator-only; Process runs on the audio path.
type Chain struct {
	mu       sync.Locker
	registry *format.Registry
	bus      *events.Bus
	log      *debug.Logger
	profiler *debug.Profiler

	slots  []*slot
	nextID uint64

	prepared   bool
	sampleRate float64
	blockSize  int
	prepareGen uint64

	scratch *audio.Buffer
	events  *midi.EventList
}

// New creates an empty chain. bus and log may be nil.
func New(mu sync.Locker, reg *format.Registry, bus *events.Bus, log *debug.Logger) *Chain {
	if mu == nil {
		mu = &sync.Mutex{}
	}
	if log == nil {
		log = debug.Nop()
	}
	return &Chain{
		mu:         mu,
		registry:   reg,
		bus:        bus,
		log:        log,
		sampleRate: DefaultSampleRate,
		blockSize:  DefaultBlockSize,
		scratch:    audio.NewBuffer(format.MaxChannels, DefaultBlockSize),
		events:     midi.NewEventList(0),
	}
}

// SetProfiler enables per-slot timing in Process. Nil disables it.
func (c *Chain) SetProfiler(p *debug.Profiler) {
	c.mu.Lock()
	c.profiler = p
	c.mu.Unlock()
}

// NumPlugins returns the number of slots.
func (c *Chain) NumPlugins() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slots)
}

// Info returns the slot at index.
func (c *Chain) Info(index int) (Info, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.slots) {
		return Info{}, false
	}
	return c.slots[index].info(), true
}

// Infos returns every slot in processing order.
func (c *Chain) Infos() []Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Info, len(c.slots))
	for i, s := range c.slots {
		out[i] = s.info()
	}
	return out
}

func (s *slot) info() Info {
	return Info{
		ID:         s.id,
		Descriptor: s.descriptor,
		Bypassed:   s.bypassed,
		Fault:      s.fault,
		EditorOpen: s.editor != nil,
	}
}

// IsBypassed reports the bypass flag of the slot at index. Out of range is false.
func (c *Chain) IsBypassed(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.slots) {
		return false
	}
	return c.slots[index].bypassed
}

// IsPrepared reports whether Prepare has been called since the last Release.
func (c *Chain) IsPrepared() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prepared
}

// Load instantiates d and appends it to the chain, returning the new slot's index.
// On failure the chain is unchanged, a plugin-error event is raised and a *LoadError
// is returned.
func (c *Chain) Load(ctx context.Context, d format.Descriptor) (int, error) {
	if err := dispatch.Assert(ctx, "load"); err != nil {
		return -1, err
	}
	if !d.Compatible {
		return -1, c.fail(&LoadError{Kind: IncompatibleArchitecture, Name: d.Name,
			Msg: fmt.Sprintf("%s is built for %s and cannot be loaded by this host", d.Name, d.Arch)})
	}
	if d.IsInstrument {
		return -1, c.fail(&LoadError{Kind: InstrumentRejected, Name: d.Name,
			Msg: fmt.Sprintf("%s is an instrument; only effects can be loaded", d.Name)})
	}
	provider, ok := c.registry.Resolve(d)
	if !ok {
		return -1, c.fail(&LoadError{Kind: InstantiationFailure, Name: d.Name,
			Msg: fmt.Sprintf("no format provider for %s", d.FileOrIdentifier)})
	}

	c.mu.Lock()
	rate, size, prepared, gen := c.sampleRate, c.blockSize, c.prepared, c.prepareGen
	c.mu.Unlock()

	proc, err := provider.Instantiate(d, rate, size)
	if err != nil {
		return -1, c.fail(&LoadError{Kind: InstantiationFailure, Name: d.Name, Msg: err.Error(), Err: err})
	}
	if err := validate(proc); err != nil {
		if proc != nil {
			proc.Release()
		}
		return -1, c.fail(&LoadError{Kind: ValidationFailure, Name: d.Name, Msg: err.Error(), Err: err})
	}
	if prepared {
		if err := proc.Prepare(rate, size); err != nil {
			proc.Release()
			return -1, c.fail(&LoadError{Kind: InstantiationFailure, Name: d.Name,
				Msg: fmt.Sprintf("prepare: %v", err), Err: err})
		}
	}

	c.mu.Lock()
	if c.prepareGen != gen {
		// Prepare or Release ran while the instance was being built.
		switch {
		case c.prepared:
			if err := proc.Prepare(c.sampleRate, c.blockSize); err != nil {
				c.mu.Unlock()
				proc.Release()
				return -1, c.fail(&LoadError{Kind: InstantiationFailure, Name: d.Name,
					Msg: fmt.Sprintf("prepare: %v", err), Err: err})
			}
		case prepared:
			proc.Release()
		}
	}
	c.nextID++
	c.slots = append(c.slots, &slot{
		id:         c.nextID,
		descriptor: d,
		provider:   provider,
		processor:  proc,
	})
	index := len(c.slots) - 1
	c.mu.Unlock()

	c.log.Info("loaded %s at slot %d", d.Name, index)
	c.bus.ChainChanged()
	return index, nil
}

func validate(p format.Processor) error {
	if p == nil {
		return errors.New("provider returned no processor")
	}
	if in, out := p.NumInputs(), p.NumOutputs(); in > format.MaxChannels || out > format.MaxChannels {
		return fmt.Errorf("%d in / %d out channels, only mono and stereo are supported", in, out)
	}
	return nil
}

func (c *Chain) fail(err *LoadError) error {
	c.log.Warn("%v", err)
	c.bus.PluginError(-1, err.Msg)
	return err
}

// Unload closes the slot's editor, removes the slot and releases its processor.
// Out-of-range indices are ignored.
func (c *Chain) Unload(ctx context.Context, index int) error {
	if err := dispatch.Assert(ctx, "unload"); err != nil {
		return err
	}
	c.mu.Lock()
	if index < 0 || index >= len(c.slots) {
		c.mu.Unlock()
		return nil
	}
	s := c.slots[index]
	editor := s.editor
	s.editor = nil
	c.mu.Unlock()

	c.closeEditor(s, editor)

	c.mu.Lock()
	last := len(c.slots) - 1
	copy(c.slots[index:], c.slots[index+1:])
	c.slots[last] = nil
	c.slots = c.slots[:last]
	c.mu.Unlock()

	s.processor.Release()
	c.log.Info("unloaded %s from slot %d", s.descriptor.Name, index)
	c.bus.ChainChanged()
	return nil
}

// ClearAll unloads every slot in one pass.
func (c *Chain) ClearAll(ctx context.Context) error {
	if err := dispatch.Assert(ctx, "clear all"); err != nil {
		return err
	}
	c.mu.Lock()
	removed := c.slots
	editors := make([]format.Editor, len(removed))
	for i, s := range removed {
		editors[i], s.editor = s.editor, nil
	}
	c.mu.Unlock()

	if len(removed) == 0 {
		return nil
	}
	for i, s := range removed {
		c.closeEditor(s, editors[i])
	}

	c.mu.Lock()
	c.slots = nil
	c.mu.Unlock()

	for _, s := range removed {
		s.processor.Release()
	}
	c.log.Info("cleared %d plugins", len(removed))
	c.bus.ChainChanged()
	return nil
}

// Move reorders the slot at from to position to. Equal or out-of-range indices are ignored.
func (c *Chain) Move(ctx context.Context, from, to int) error {
	if err := dispatch.Assert(ctx, "move"); err != nil {
		return err
	}
	c.mu.Lock()
	n := len(c.slots)
	if from == to || from < 0 || to < 0 || from >= n || to >= n {
		c.mu.Unlock()
		return nil
	}
	s := c.slots[from]
	if from < to {
		copy(c.slots[from:to], c.slots[from+1:to+1])
	} else {
		copy(c.slots[to+1:from+1], c.slots[to:from])
	}
	c.slots[to] = s
	c.mu.Unlock()

	c.bus.ChainChanged()
	return nil
}

// Bypass sets the slot's bypass flag. Clearing it also clears a recorded fault.
func (c *Chain) Bypass(index int, bypassed bool) {
	c.mu.Lock()
	if index < 0 || index >= len(c.slots) {
		c.mu.Unlock()
		return
	}
	s := c.slots[index]
	changed := s.bypassed != bypassed
	s.bypassed = bypassed
	if !bypassed {
		s.fault = ""
	}
	c.mu.Unlock()

	if changed {
		c.bus.ChainChanged()
	}
}

// Prepare primes every processor for the given block format. A processor that fails to
// prepare is bypassed and reported.
func (c *Chain) Prepare(sampleRate float64, blockSize int) error {
	if sampleRate <= 0 || blockSize <= 0 {
		return fmt.Errorf("invalid block format %v Hz / %d frames", sampleRate, blockSize)
	}
	type failure struct {
		index int
		msg   string
	}
	var failed []failure

	c.mu.Lock()
	c.sampleRate, c.blockSize = sampleRate, blockSize
	c.prepared = true
	c.prepareGen++
	c.scratch = audio.NewBuffer(format.MaxChannels, blockSize)
	if c.profiler != nil {
		c.profiler.SetBlockFormat(sampleRate, blockSize)
	}
	for i, s := range c.slots {
		if err := s.processor.Prepare(sampleRate, blockSize); err != nil {
			s.bypassed = true
			s.fault = err.Error()
			failed = append(failed, failure{i, s.fault})
		}
	}
	c.mu.Unlock()

	var errs []error
	for _, f := range failed {
		c.log.Error("slot %d failed to prepare: %s", f.index, f.msg)
		c.bus.PluginError(f.index, f.msg)
		errs = append(errs, fmt.Errorf("slot %d: %s", f.index, f.msg))
	}
	return errors.Join(errs...)
}

// Release frees every processor's playback resources and clears the prepared flag.
func (c *Chain) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.slots {
		s.processor.Release()
	}
	c.prepared = false
	c.prepareGen++
}

type fault struct {
	index int
	msg   string
}

// Process runs every non-bypassed slot over buf in order. A slot that returns an error
// or panics has its input restored, is bypassed and is reported; later slots still run.
// Process does not allocate unless a fault occurs or buf outgrows the prepared block.
// It must not be called concurrently with itself.
func (c *Chain) Process(buf *audio.Buffer) error {
	var local [4]fault
	faults := local[:0]

	c.mu.Lock()
	if !c.prepared {
		c.mu.Unlock()
		return ErrNotPrepared
	}
	for i, s := range c.slots {
		if s.bypassed {
			continue
		}
		c.scratch.CopyFrom(buf)

		var err error
		if c.profiler != nil && c.profiler.IsEnabled() {
			start := time.Now()
			err = c.run(s, buf)
			c.profiler.Record(s.descriptor.Name, time.Since(start))
		} else {
			err = c.run(s, buf)
		}

		if err != nil {
			buf.CopyFrom(c.scratch)
			s.bypassed = true
			s.fault = err.Error()
			faults = append(faults, fault{i, s.fault})
		}
	}
	c.mu.Unlock()

	if len(faults) == 0 {
		return nil
	}
	for _, f := range faults {
		c.log.Error("slot %d bypassed after fault: %s", f.index, f.msg)
		c.bus.PluginError(f.index, f.msg)
	}
	return fmt.Errorf("%w in %d slot(s)", ErrProcessingFault, len(faults))
}

func (c *Chain) run(s *slot, buf *audio.Buffer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s panicked: %v", ErrProcessingFault, s.descriptor.Name, r)
		}
	}()
	if err := s.processor.ProcessBlock(buf, c.events); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrProcessingFault, s.descriptor.Name, err)
	}
	return nil
}
