package dsp

import "math"

// FilterMode selects the biquad response.
type FilterMode int

const (
	Lowpass FilterMode = iota
	Highpass
)

// Biquad is a Direct Form I second-order section with per-channel state.
type Biquad struct {
	b0, b1, b2, a1, a2 float32
	x1, x2, y1, y2     []float32
}

// NewBiquad creates a pass-through filter for the given channel count.
func NewBiquad(channels int) *Biquad {
	return &Biquad{
		b0: 1,
		x1: make([]float32, channels),
		x2: make([]float32, channels),
		y1: make([]float32, channels),
		y2: make([]float32, channels),
	}
}

// Design computes RBJ cookbook coefficients for the mode, cutoff and Q.
func (b *Biquad) Design(mode FilterMode, sampleRate, cutoff, q float64) {
	cutoff = clamp(cutoff, MinFrequency, math.Min(MaxFrequency, sampleRate*0.49))
	q = clamp(q, MinQ, MaxQ)

	w := 2 * math.Pi * cutoff / sampleRate
	cosW := math.Cos(w)
	alpha := math.Sin(w) / (2 * q)

	var n0, n1, n2 float64
	switch mode {
	case Highpass:
		n0 = (1 + cosW) / 2
		n1 = -(1 + cosW)
		n2 = n0
	default:
		n0 = (1 - cosW) / 2
		n1 = 1 - cosW
		n2 = n0
	}
	a0 := 1 + alpha
	b.b0 = float32(n0 / a0)
	b.b1 = float32(n1 / a0)
	b.b2 = float32(n2 / a0)
	b.a1 = float32(-2 * cosW / a0)
	b.a2 = float32((1 - alpha) / a0)
}

// Reset clears the filter history.
func (b *Biquad) Reset() {
	for ch := range b.x1 {
		b.x1[ch], b.x2[ch], b.y1[ch], b.y2[ch] = 0, 0, 0, 0
	}
}

// Process filters each channel in place.
func (b *Biquad) Process(channels [][]float32) {
	for ch, data := range channels {
		if ch >= len(b.x1) {
			break
		}
		x1, x2, y1, y2 := b.x1[ch], b.x2[ch], b.y1[ch], b.y2[ch]
		for i, x0 := range data {
			y0 := b.b0*x0 + b.b1*x1 + b.b2*x2 - b.a1*y1 - b.a2*y2
			x2, x1 = x1, x0
			y2, y1 = y1, y0
			data[i] = y0
		}
		b.x1[ch], b.x2[ch], b.y1[ch], b.y2[ch] = x1, x2, y1, y2
	}
}
