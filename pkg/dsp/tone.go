package dsp

import "math"

// Tone is a phase-accumulating sine generator used for test signals.
type Tone struct {
	phase    float64
	phaseInc float64
	level    float32
}

// NewTone creates a sine at freq Hz with the given peak level.
func NewTone(sampleRate, freq float64, level float32) *Tone {
	return &Tone{phaseInc: freq / sampleRate, level: level}
}

// Set retunes the generator without resetting its phase.
func (t *Tone) Set(sampleRate, freq float64, level float32) {
	t.phaseInc = freq / sampleRate
	t.level = level
}

// Fill writes the next block of the sine into every channel.
func (t *Tone) Fill(channels [][]float32) {
	if len(channels) == 0 {
		return
	}
	start := t.phase
	for ch, data := range channels {
		p := start
		for i := range data {
			data[i] = float32(math.Sin(2*math.Pi*p)) * t.level
			p += t.phaseInc
			if p >= 1 {
				p -= math.Floor(p)
			}
		}
		if ch == 0 {
			t.phase = p
		}
	}
}
