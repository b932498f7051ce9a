package gofx

import (
	"fmt"
	"sort"
	"strings"

	"github.com/justyntemme/vst3host/pkg/dsp"
)

type paramSpec struct {
	name     string
	unit     string
	min, max float64
	def      float64
}

// Parameter layouts per kind. The index is the parameter ID.
var layouts = map[Kind][]paramSpec{
	KindGain: {
		{"gain", "dB", dsp.MinDB, dsp.MaxDB, 0},
	},
	KindDelay: {
		{"time", "s", 0, dsp.MaxDelaySeconds, 0.25},
		{"feedback", "%", 0, dsp.MaxFeedback, 0.35},
		{"mix", "%", 0, 1, 0.3},
	},
	KindLowpass: {
		{"cutoff", "Hz", dsp.MinFrequency, dsp.MaxFrequency, 1000},
		{"q", "", dsp.MinQ, dsp.MaxQ, dsp.DefaultQ},
	},
	KindHighpass: {
		{"cutoff", "Hz", dsp.MinFrequency, dsp.MaxFrequency, 200},
		{"q", "", dsp.MinQ, dsp.MaxQ, dsp.DefaultQ},
	},
	KindDrive: {
		{"drive", "", 1, 20, 4},
		{"mix", "%", 0, 1, 1},
	},
	KindTone: {
		{"frequency", "Hz", dsp.MinFrequency, dsp.MaxFrequency, 440},
		{"level", "dB", dsp.MinDB, 0, -12},
	},
}

// newParams builds the registry for kind and applies plain-value overrides by name.
func newParams(kind Kind, overrides map[string]float64) (*Registry, error) {
	specs, ok := layouts[kind]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, kind)
	}
	reg := NewRegistry()
	for i, s := range specs {
		reg.Add(NewParam(uint32(i), s.name, s.unit, s.min, s.max, s.def))
	}

	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := reg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("gofx: %s has no parameter %q (have %s)", kind, name, paramNames(specs))
		}
		p.SetPlain(overrides[name])
	}
	return reg, nil
}

func paramNames(specs []paramSpec) string {
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.name
	}
	return strings.Join(names, ", ")
}
