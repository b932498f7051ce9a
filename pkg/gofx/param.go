package gofx

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// Param is one effect parameter. The value is stored normalized (0-1) in an atomic so the
// audio path can read it while an editor writes it.
type Param struct {
	ID      uint32
	Name    string
	Unit    string
	Min     float64
	Max     float64
	Default float64

	value   atomic.Uint64
	changed *atomic.Uint64
}

// NewParam creates a parameter holding its default value.
func NewParam(id uint32, name, unit string, lo, hi, def float64) *Param {
	p := &Param{ID: id, Name: name, Unit: unit, Min: lo, Max: hi, Default: def}
	p.value.Store(math.Float64bits(p.Normalize(def)))
	return p
}

// Value returns the normalized value (0-1).
func (p *Param) Value() float64 {
	return math.Float64frombits(p.value.Load())
}

// SetValue sets the normalized value, clamped to 0-1.
func (p *Param) SetValue(v float64) {
	if v < 0 || math.IsNaN(v) {
		v = 0
	} else if v > 1 {
		v = 1
	}
	p.value.Store(math.Float64bits(v))
	if p.changed != nil {
		p.changed.Add(1)
	}
}

// Plain returns the value in the parameter's unit.
func (p *Param) Plain() float64 {
	return p.Denormalize(p.Value())
}

// SetPlain sets the value in the parameter's unit.
func (p *Param) SetPlain(plain float64) {
	p.SetValue(p.Normalize(plain))
}

// Normalize converts a plain value to 0-1.
func (p *Param) Normalize(plain float64) float64 {
	if p.Max <= p.Min {
		return 0
	}
	n := (plain - p.Min) / (p.Max - p.Min)
	if n < 0 {
		return 0
	}
	if n > 1 {
		return 1
	}
	return n
}

// Denormalize converts 0-1 to a plain value.
func (p *Param) Denormalize(normalized float64) float64 {
	return p.Min + normalized*(p.Max-p.Min)
}

// Format renders the current value with its unit.
func (p *Param) Format() string {
	v := p.Plain()
	switch p.Unit {
	case "dB":
		if v <= -60 {
			return "-inf dB"
		}
		return fmt.Sprintf("%.1f dB", v)
	case "Hz":
		if v >= 1000 {
			return fmt.Sprintf("%.2f kHz", v/1000)
		}
		return fmt.Sprintf("%.1f Hz", v)
	case "s":
		if v < 1 {
			return fmt.Sprintf("%.1f ms", v*1000)
		}
		return fmt.Sprintf("%.2f s", v)
	case "%":
		return fmt.Sprintf("%.0f%%", v*100)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Registry holds an effect's parameters in declaration order.
type Registry struct {
	mu     sync.RWMutex
	params map[uint32]*Param
	order  []uint32

	// changed counts writes to any parameter.
	changed atomic.Uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{params: make(map[uint32]*Param)}
}

// Add registers parameters. Duplicate IDs are skipped.
func (r *Registry) Add(params ...*Param) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range params {
		if _, exists := r.params[p.ID]; exists {
			continue
		}
		p.changed = &r.changed
		r.params[p.ID] = p
		r.order = append(r.order, p.ID)
	}
	r.changed.Add(1)
}

// Get returns the parameter with id, or nil.
func (r *Registry) Get(id uint32) *Param {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.params[id]
}

// ByName returns the parameter with the given name, ignoring case.
func (r *Registry) ByName(name string) *Param {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		if p := r.params[id]; strings.EqualFold(p.Name, name) {
			return p
		}
	}
	return nil
}

// Count returns the number of parameters.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// All returns every parameter in declaration order.
func (r *Registry) All() []*Param {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Param, len(r.order))
	for i, id := range r.order {
		out[i] = r.params[id]
	}
	return out
}

// Generation changes whenever any parameter is written.
func (r *Registry) Generation() uint64 {
	return r.changed.Load()
}
