// Package audio provides the multi-channel sample block passed through a plugin chain.
package audio

import "math"

// Buffer is a planar block of float32 samples, one slice per channel.
// All channels share the same length.
type Buffer struct {
	Channels [][]float32
}

// NewBuffer allocates a zeroed buffer with the given channel count and block size.
func NewBuffer(channels, frames int) *Buffer {
	b := &Buffer{Channels: make([][]float32, channels)}
	for ch := range b.Channels {
		b.Channels[ch] = make([]float32, frames)
	}
	return b
}

// NumChannels returns the number of channels.
func (b *Buffer) NumChannels() int {
	return len(b.Channels)
}

// NumFrames returns the number of samples per channel.
func (b *Buffer) NumFrames() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Fits reports whether src can be copied into b without allocating.
func (b *Buffer) Fits(src *Buffer) bool {
	if len(b.Channels) < len(src.Channels) {
		return false
	}
	for ch := range src.Channels {
		if cap(b.Channels[ch]) < len(src.Channels[ch]) {
			return false
		}
	}
	return true
}

// CopyFrom makes b an exact copy of src. It only allocates when b is too small.
func (b *Buffer) CopyFrom(src *Buffer) {
	if len(b.Channels) < len(src.Channels) {
		grown := make([][]float32, len(src.Channels))
		copy(grown, b.Channels)
		b.Channels = grown
	}
	b.Channels = b.Channels[:len(src.Channels)]
	for ch, data := range src.Channels {
		if cap(b.Channels[ch]) < len(data) {
			b.Channels[ch] = make([]float32, len(data))
		}
		b.Channels[ch] = b.Channels[ch][:len(data)]
		copy(b.Channels[ch], data)
	}
}

// Clear zeroes every channel - no allocations
func (b *Buffer) Clear() {
	for _, data := range b.Channels {
		for i := range data {
			data[i] = 0
		}
	}
}

// Equal reports whether both buffers hold identical samples.
func (b *Buffer) Equal(other *Buffer) bool {
	if len(b.Channels) != len(other.Channels) {
		return false
	}
	for ch := range b.Channels {
		if len(b.Channels[ch]) != len(other.Channels[ch]) {
			return false
		}
		for i, v := range b.Channels[ch] {
			if other.Channels[ch][i] != v {
				return false
			}
		}
	}
	return true
}

// Peak returns the maximum absolute sample value across all channels.
func (b *Buffer) Peak() float32 {
	var peak float32
	for _, data := range b.Channels {
		for _, v := range data {
			if v < 0 {
				v = -v
			}
			if v > peak {
				peak = v
			}
		}
	}
	return peak
}

// RMS returns the root mean square of one channel.
func (b *Buffer) RMS(channel int) float32 {
	if channel < 0 || channel >= len(b.Channels) || len(b.Channels[channel]) == 0 {
		return 0
	}
	var sum float64
	for _, v := range b.Channels[channel] {
		sum += float64(v) * float64(v)
	}
	return float32(math.Sqrt(sum / float64(len(b.Channels[channel]))))
}
