// Package catalog stores the deduplicated list of discovered plugin descriptors.
package catalog

import (
	"sync"

	"github.com/justyntemme/vst3host/pkg/host/format"
)

// Catalog holds descriptors plus cache-valid and scanning flags.
//
// It has no lock of its own: every method acquires the Locker passed to New, which is the
// chain-wide lock shared with the audio path.
type Catalog struct {
	mu sync.Locker

	entries  []format.Descriptor
	index    map[format.Key]int
	seen     map[format.Key]struct{}
	valid    bool
	scanning bool
}

// New creates an empty catalog guarded by mu. A nil mu gets a private mutex.
func New(mu sync.Locker) *Catalog {
	if mu == nil {
		mu = &sync.Mutex{}
	}
	return &Catalog{
		mu:    mu,
		index: make(map[format.Key]int),
	}
}

// Entries returns a copy of every descriptor in discovery order.
func (c *Catalog) Entries() []format.Descriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]format.Descriptor(nil), c.entries...)
}

// Len returns the number of descriptors.
func (c *Catalog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Lookup returns the descriptor with the given identity.
func (c *Catalog) Lookup(key format.Key) (format.Descriptor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.index[key]
	if !ok {
		return format.Descriptor{}, false
	}
	return c.entries[i], true
}

// Find returns every descriptor whose FileOrIdentifier matches.
func (c *Catalog) Find(fileOrIdentifier string) []format.Descriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []format.Descriptor
	for _, d := range c.entries {
		if d.FileOrIdentifier == fileOrIdentifier {
			out = append(out, d)
		}
	}
	return out
}

// IsValid reports whether the last pass completed or a cache file was loaded.
func (c *Catalog) IsValid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.valid
}

// IsScanning reports whether a pass is in progress.
func (c *Catalog) IsScanning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scanning
}

// Invalidate clears the cache-valid flag. Entries are kept.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.mu.Unlock()
}

// BeginPass starts a scan pass. Existing entries stay visible until Finish.
func (c *Catalog) BeginPass() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scanning = true
	c.valid = false
	c.seen = make(map[format.Key]struct{})
}

// Add appends d unless its identity is already present. It reports whether d was added.
// During a pass, a duplicate still counts as seen so Finish keeps it.
func (c *Catalog) Add(d format.Descriptor) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := d.Key()
	if c.seen != nil {
		c.seen[key] = struct{}{}
	}
	if _, ok := c.index[key]; ok {
		return false
	}
	c.index[key] = len(c.entries)
	c.entries = append(c.entries, d)
	return true
}

// Finish ends the pass: entries not seen during it are dropped and the cache becomes valid.
func (c *Catalog) Finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seen != nil {
		kept := c.entries[:0]
		for _, d := range c.entries {
			if _, ok := c.seen[d.Key()]; ok {
				kept = append(kept, d)
			}
		}
		for i := len(kept); i < len(c.entries); i++ {
			c.entries[i] = format.Descriptor{}
		}
		c.entries = kept
		c.reindex()
	}
	c.seen = nil
	c.scanning = false
	c.valid = true
}

// Abort ends the pass without pruning and leaves the cache invalid.
func (c *Catalog) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = nil
	c.scanning = false
}

// Replace swaps in entries wholesale and marks the cache valid. Duplicate identities are
// collapsed to their first occurrence.
func (c *Catalog) Replace(entries []format.Descriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = c.entries[:0]
	c.index = make(map[format.Key]int, len(entries))
	for _, d := range entries {
		if _, ok := c.index[d.Key()]; ok {
			continue
		}
		c.index[d.Key()] = len(c.entries)
		c.entries = append(c.entries, d)
	}
	c.valid = true
}

func (c *Catalog) reindex() {
	c.index = make(map[format.Key]int, len(c.entries))
	for i, d := range c.entries {
		c.index[d.Key()] = i
	}
}
