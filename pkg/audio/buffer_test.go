package audio

import (
	"math"
	"testing"
)

func TestBuffer(t *testing.T) {
	t.Run("NewBuffer", func(t *testing.T) {
		b := NewBuffer(2, 64)
		if b.NumChannels() != 2 || b.NumFrames() != 64 {
			t.Fatalf("got %dx%d, want 2x64", b.NumChannels(), b.NumFrames())
		}
	})

	t.Run("CopyFromGrows", func(t *testing.T) {
		src := NewBuffer(2, 4)
		src.Channels[0][1] = 0.5
		src.Channels[1][3] = -0.25

		dst := NewBuffer(1, 2)
		if dst.Fits(src) {
			t.Fatal("small buffer should not fit")
		}
		dst.CopyFrom(src)
		if !dst.Equal(src) {
			t.Fatal("copy differs from source")
		}
	})

	t.Run("CopyFromReuses", func(t *testing.T) {
		src := NewBuffer(2, 8)
		dst := NewBuffer(2, 16)
		if !dst.Fits(src) {
			t.Fatal("larger buffer should fit")
		}
		before := &dst.Channels[0][0]
		dst.CopyFrom(src)
		if &dst.Channels[0][0] != before {
			t.Error("CopyFrom reallocated a buffer that fits")
		}
		if dst.NumFrames() != 8 {
			t.Errorf("frames = %d, want 8", dst.NumFrames())
		}
	})

	t.Run("PeakAndRMS", func(t *testing.T) {
		b := NewBuffer(1, 4)
		copy(b.Channels[0], []float32{1, -1, 1, -1})
		if b.Peak() != 1 {
			t.Errorf("Peak = %f, want 1", b.Peak())
		}
		if math.Abs(float64(b.RMS(0)-1)) > 1e-6 {
			t.Errorf("RMS = %f, want 1", b.RMS(0))
		}
		if b.RMS(3) != 0 {
			t.Error("RMS of a missing channel should be 0")
		}
		b.Clear()
		if b.Peak() != 0 {
			t.Error("Clear left samples behind")
		}
	})
}
