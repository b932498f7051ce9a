package debug

import (
	"fmt"
	"math"

	"github.com/justyntemme/vst3host/pkg/audio"
)

// Thresholds used by Analyze.
const (
	ClipThreshold    = 0.99
	DCThreshold      = 0.01
	SilenceThreshold = 0.0001
)

// AnalysisResult summarizes one audio buffer.
type AnalysisResult struct {
	Peak           float32
	RMS            float32
	DC             float32
	ClippedSamples int
	NaNCount       int
	InfCount       int
	ZeroCrossings  int
}

// Silent reports whether the RMS is below SilenceThreshold.
func (r AnalysisResult) Silent() bool { return r.RMS < SilenceThreshold }

// Clipping reports whether any sample reached ClipThreshold.
func (r AnalysisResult) Clipping() bool { return r.ClippedSamples > 0 }

// Analyze computes level statistics across every channel of buf.
func Analyze(buf *audio.Buffer) AnalysisResult {
	var res AnalysisResult
	var sum, sumSquares float64
	var n int

	for _, data := range buf.Channels {
		var last float32
		for i, s := range data {
			f := float64(s)
			if math.IsNaN(f) {
				res.NaNCount++
				continue
			}
			if math.IsInf(f, 0) {
				res.InfCount++
				continue
			}
			abs := float32(math.Abs(f))
			if abs > res.Peak {
				res.Peak = abs
			}
			if abs >= ClipThreshold {
				res.ClippedSamples++
			}
			sum += f
			sumSquares += f * f
			n++
			if i > 0 && (last < 0) != (s < 0) {
				res.ZeroCrossings++
			}
			last = s
		}
	}
	if n > 0 {
		res.RMS = float32(math.Sqrt(sumSquares / float64(n)))
		res.DC = float32(sum / float64(n))
	}
	return res
}

// CheckBuffer returns human-readable problems found in buf.
func CheckBuffer(buf *audio.Buffer, name string) []string {
	res := Analyze(buf)
	var issues []string
	if res.NaNCount > 0 {
		issues = append(issues, fmt.Sprintf("%s: %d NaN samples", name, res.NaNCount))
	}
	if res.InfCount > 0 {
		issues = append(issues, fmt.Sprintf("%s: %d infinite samples", name, res.InfCount))
	}
	if res.Clipping() {
		issues = append(issues, fmt.Sprintf("%s: clipping (%d samples)", name, res.ClippedSamples))
	}
	if math.Abs(float64(res.DC)) > DCThreshold {
		issues = append(issues, fmt.Sprintf("%s: DC offset %.3f", name, res.DC))
	}
	return issues
}
