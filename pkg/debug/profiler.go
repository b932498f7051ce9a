package debug

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Profiler collects per-section timing statistics for audio blocks.
// Recording into an existing section does not allocate.
type Profiler struct {
	mu         sync.Mutex
	sections   map[string]*Measurement
	enabled    atomic.Bool
	maxSamples int

	sampleRate float64
	blockSize  int
}

// Measurement holds timing statistics for a profiled section.
type Measurement struct {
	Name  string
	Count uint64
	Total time.Duration
	Min   time.Duration
	Max   time.Duration
	Last  time.Duration

	samples []time.Duration
	next    int
}

// NewProfiler creates an enabled profiler keeping the last maxSamples timings per section.
func NewProfiler(maxSamples int) *Profiler {
	if maxSamples <= 0 {
		maxSamples = 1
	}
	p := &Profiler{
		sections:   make(map[string]*Measurement),
		maxSamples: maxSamples,
	}
	p.enabled.Store(true)
	return p
}

// SetEnabled enables or disables profiling.
func (p *Profiler) SetEnabled(enabled bool) {
	p.enabled.Store(enabled)
}

// IsEnabled returns whether profiling is enabled.
func (p *Profiler) IsEnabled() bool {
	return p.enabled.Load()
}

// SetBlockFormat records the block geometry used to compute load.
func (p *Profiler) SetBlockFormat(sampleRate float64, blockSize int) {
	p.mu.Lock()
	p.sampleRate, p.blockSize = sampleRate, blockSize
	p.mu.Unlock()
}

// Record stores one timing for the named section.
func (p *Profiler) Record(name string, elapsed time.Duration) {
	if !p.enabled.Load() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	m, ok := p.sections[name]
	if !ok {
		m = &Measurement{
			Name:    name,
			Min:     elapsed,
			Max:     elapsed,
			samples: make([]time.Duration, p.maxSamples),
		}
		p.sections[name] = m
	}
	m.Count++
	m.Total += elapsed
	m.Last = elapsed
	if elapsed < m.Min {
		m.Min = elapsed
	}
	if elapsed > m.Max {
		m.Max = elapsed
	}
	m.samples[m.next] = elapsed
	m.next = (m.next + 1) % len(m.samples)
}

// Time measures fn under the named section.
func (p *Profiler) Time(name string, fn func()) {
	if !p.enabled.Load() {
		fn()
		return
	}
	start := time.Now()
	fn()
	p.Record(name, time.Since(start))
}

// Measurement returns a copy of the named section's statistics.
func (p *Profiler) Measurement(name string) (Measurement, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.sections[name]
	if !ok {
		return Measurement{}, false
	}
	out := *m
	out.samples = append([]time.Duration(nil), m.samples...)
	return out, true
}

// Reset clears all measurements.
func (p *Profiler) Reset() {
	p.mu.Lock()
	p.sections = make(map[string]*Measurement)
	p.mu.Unlock()
}

// Load returns the average time of the named section as a percentage of one block's duration.
func (p *Profiler) Load(name string) float64 {
	m, ok := p.Measurement(name)
	p.mu.Lock()
	rate, size := p.sampleRate, p.blockSize
	p.mu.Unlock()
	if !ok || rate <= 0 || size <= 0 {
		return 0
	}
	block := time.Duration(float64(size) / rate * float64(time.Second))
	return float64(m.Average()) / float64(block) * 100
}

// Report renders every section sorted by name.
func (p *Profiler) Report() string {
	p.mu.Lock()
	names := make([]string, 0, len(p.sections))
	for name := range p.sections {
		names = append(names, name)
	}
	p.mu.Unlock()
	if len(names) == 0 {
		return "No measurements recorded"
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		m, _ := p.Measurement(name)
		fmt.Fprintf(&sb, "%-24s n=%-6d avg=%-10v min=%-10v max=%-10v p95=%v",
			name, m.Count, m.Average(), m.Min, m.Max, m.Percentile(95))
		if load := p.Load(name); load > 0 {
			fmt.Fprintf(&sb, " load=%.2f%%", load)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Average returns the mean time for this measurement.
func (m Measurement) Average() time.Duration {
	if m.Count == 0 {
		return 0
	}
	return m.Total / time.Duration(m.Count)
}

// Percentile returns the p-th percentile of the retained samples.
func (m Measurement) Percentile(p float64) time.Duration {
	n := int(m.Count)
	if n > len(m.samples) {
		n = len(m.samples)
	}
	if n == 0 {
		return 0
	}
	sorted := make([]time.Duration, n)
	copy(sorted, m.samples[:n])
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(float64(n-1) * p / 100)
	return sorted[idx]
}
