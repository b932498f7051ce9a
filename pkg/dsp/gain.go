package dsp

import "math"

// DbToLinear converts decibels to linear amplitude. Values at or below MinDB are silence.
func DbToLinear(db float64) float64 {
	if db <= MinDB {
		return 0
	}
	return math.Pow(10.0, db/20.0)
}

// LinearToDb converts linear amplitude to decibels, floored at MinDB.
func LinearToDb(linear float64) float64 {
	if linear <= 0 {
		return MinDB
	}
	return math.Max(MinDB, 20.0*math.Log10(linear))
}

// Gain scales every channel by a fixed factor.
type Gain struct {
	factor float32
}

// SetDb sets the gain in decibels, clamped to [MinDB, MaxDB].
func (g *Gain) SetDb(db float64) {
	g.factor = float32(DbToLinear(clamp(db, MinDB, MaxDB)))
}

// Factor returns the linear gain factor.
func (g *Gain) Factor() float32 {
	return g.factor
}

// Process applies the gain in place.
func (g *Gain) Process(channels [][]float32) {
	for _, data := range channels {
		for i := range data {
			data[i] *= g.factor
		}
	}
}
