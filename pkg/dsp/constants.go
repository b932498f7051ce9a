// Package dsp provides the signal-processing kernels behind the built-in GoFX effects.
// Every kernel works in place on planar float32 channels and allocates only when built.
package dsp

// Ranges shared by kernels and by the effect parameters built on them.
const (
	MinDB = -96.0
	MaxDB = 24.0

	MinFrequency = 20.0
	MaxFrequency = 20000.0

	MinQ     = 0.1
	MaxQ     = 20.0
	DefaultQ = 0.707 // Butterworth

	MaxDelaySeconds = 2.0
	MaxFeedback     = 0.95

	// MaxChannels is the widest layout the host accepts (stereo).
	MaxChannels = 2
)

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
