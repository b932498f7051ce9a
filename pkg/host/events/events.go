// Package events fans out engine notifications to independent subscribers.
package events

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/justyntemme/vst3host/pkg/debug"
)

// Kind identifies the event payload.
type Kind int

const (
	// ChainChanged carries no payload; subscribers re-read the chain.
	ChainChanged Kind = iota
	// PluginError names the slot index and message of a load or processing failure.
	PluginError
	// ScanComplete carries no payload.
	ScanComplete
	// CacheInvalidated is raised when watched search paths change on disk.
	CacheInvalidated
)

func (k Kind) String() string {
	switch k {
	case ChainChanged:
		return "chain-changed"
	case PluginError:
		return "plugin-error"
	case ScanComplete:
		return "scan-complete"
	case CacheInvalidated:
		return "cache-invalidated"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is one notification. Index is -1 when no slot applies.
type Event struct {
	Kind    Kind
	Index   int
	Message string
}

// DefaultDepth is the per-subscriber buffer size.
const DefaultDepth = 256

// Bus delivers events to every subscriber without blocking the publisher.
// Publish never allocates, so it is safe to call from the audio path.
type Bus struct {
	mu      sync.RWMutex
	subs    []chan Event
	depth   int
	dropped atomic.Uint64
	log     *debug.Logger
}

// New constructs a Bus.
func New(log *debug.Logger) *Bus {
	if log == nil {
		log = debug.Nop()
	}
	return &Bus{depth: DefaultDepth, log: log}
}

// Subscribe registers a subscriber and returns its channel and a cancel function.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan Event, b.depth)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	count := len(b.subs)
	b.mu.Unlock()
	b.log.Debug("subscribe, %d subscribers", count)

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			for i, sub := range b.subs {
				if sub == ch {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					break
				}
			}
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers ev to every subscriber whose buffer has room.
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	for _, sub := range b.subs {
		select {
		case sub <- ev:
		default:
			b.dropped.Add(1)
		}
	}
	b.mu.RUnlock()
}

// ChainChanged publishes a chain-changed event.
func (b *Bus) ChainChanged() {
	b.Publish(Event{Kind: ChainChanged, Index: -1})
}

// PluginError publishes an error for the slot at index.
func (b *Bus) PluginError(index int, message string) {
	b.Publish(Event{Kind: PluginError, Index: index, Message: message})
}

// ScanComplete publishes a scan-complete event.
func (b *Bus) ScanComplete() {
	b.Publish(Event{Kind: ScanComplete, Index: -1})
}

// CacheInvalidated publishes a cache-invalidated event with the changed path.
func (b *Bus) CacheInvalidated(path string) {
	b.Publish(Event{Kind: CacheInvalidated, Index: -1, Message: path})
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Observer receives events through callbacks. Nil callbacks are skipped.
type Observer struct {
	OnChainChanged     func()
	OnPluginError      func(index int, message string)
	OnScanComplete     func()
	OnCacheInvalidated func(path string)
}

// Dispatch routes ev to the matching callback.
func (o Observer) Dispatch(ev Event) {
	switch ev.Kind {
	case ChainChanged:
		if o.OnChainChanged != nil {
			o.OnChainChanged()
		}
	case PluginError:
		if o.OnPluginError != nil {
			o.OnPluginError(ev.Index, ev.Message)
		}
	case ScanComplete:
		if o.OnScanComplete != nil {
			o.OnScanComplete()
		}
	case CacheInvalidated:
		if o.OnCacheInvalidated != nil {
			o.OnCacheInvalidated(ev.Message)
		}
	}
}

// Observe subscribes o to b and runs callbacks on a new goroutine until the returned
// cancel function is called.
func (b *Bus) Observe(o Observer) func() {
	ch, cancel := b.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range ch {
			o.Dispatch(ev)
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
