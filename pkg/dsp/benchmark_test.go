package dsp

import (
	"fmt"
	"testing"
)

// Common buffer sizes for benchmarking
var benchmarkSizes = []int{64, 128, 256, 512, 1024, 2048}

func stereo(size int) [][]float32 {
	ch := [][]float32{make([]float32, size), make([]float32, size)}
	for i := 0; i < size; i++ {
		ch[0][i] = float32(i) / float32(size)
		ch[1][i] = -ch[0][i]
	}
	return ch
}

func BenchmarkKernels(b *testing.B) {
	const rate = 48000.0
	for _, size := range benchmarkSizes {
		ch := stereo(size)

		b.Run(fmt.Sprintf("Gain-%d", size), func(b *testing.B) {
			var g Gain
			g.SetDb(-3)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				g.Process(ch)
			}
		})

		b.Run(fmt.Sprintf("Biquad-%d", size), func(b *testing.B) {
			f := NewBiquad(2)
			f.Design(Lowpass, rate, 1000, DefaultQ)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				f.Process(ch)
			}
		})

		b.Run(fmt.Sprintf("Echo-%d", size), func(b *testing.B) {
			e := NewEcho(2, rate)
			e.Set(rate, 0.25, 0.5, 0.3)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				e.Process(ch)
			}
		})

		b.Run(fmt.Sprintf("Drive-%d", size), func(b *testing.B) {
			var d Drive
			d.Set(4, 1)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				d.Process(ch)
			}
		})
	}
}

func TestKernelsDoNotAllocate(t *testing.T) {
	const rate = 48000.0
	ch := stereo(512)
	var g Gain
	g.SetDb(-3)
	f := NewBiquad(2)
	f.Design(Highpass, rate, 200, DefaultQ)
	e := NewEcho(2, rate)
	e.Set(rate, 0.1, 0.4, 0.5)
	var d Drive
	d.Set(3, 0.5)

	allocs := testing.AllocsPerRun(100, func() {
		g.Process(ch)
		f.Process(ch)
		e.Process(ch)
		d.Process(ch)
	})
	if allocs > 0 {
		t.Errorf("kernels allocated %.0f times per block", allocs)
	}
}
