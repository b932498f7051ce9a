package dsp

import "math"

// Drive is a tanh soft-clipping waveshaper with output compensation.
type Drive struct {
	amount float64
	makeup float32
	mix    float32
}

// Set configures the drive amount (1..20) and dry/wet mix.
func (d *Drive) Set(amount, mix float64) {
	d.amount = clamp(amount, 1, 20)
	d.makeup = float32(1 / math.Tanh(d.amount))
	d.mix = float32(clamp(mix, 0, 1))
}

// Process shapes every channel in place.
func (d *Drive) Process(channels [][]float32) {
	for _, data := range channels {
		for i, x := range data {
			wet := float32(math.Tanh(float64(x)*d.amount)) * d.makeup
			data[i] = x*(1-d.mix) + wet*d.mix
		}
	}
}
