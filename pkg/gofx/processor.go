package gofx

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/justyntemme/vst3host/pkg/audio"
	"github.com/justyntemme/vst3host/pkg/dsp"
	"github.com/justyntemme/vst3host/pkg/midi"
)

var errNotPrepared = errors.New("gofx: processor not prepared")

// Processor runs one GoFX effect. ProcessBlock picks up parameter changes made through
// the registry at the start of the next block.
type Processor struct {
	effect   Effect
	params   *Registry
	values   []*Param
	state    *StateManager
	channels int

	rate     float64
	prepared bool
	applied  uint64

	gain   dsp.Gain
	drive  dsp.Drive
	echo   *dsp.Echo
	filter *dsp.Biquad
	tone   *dsp.Tone
}

// NewProcessor builds an unprepared processor for e.
func NewProcessor(e Effect) (*Processor, error) {
	reg, err := newParams(e.Kind, e.Params)
	if err != nil {
		return nil, err
	}
	channels := e.Outputs
	if channels <= 0 {
		channels = 2
	}
	return &Processor{
		effect:   e,
		params:   reg,
		values:   reg.All(),
		state:    NewStateManager(reg),
		channels: channels,
	}, nil
}

// Effect returns the effect the processor was built from.
func (p *Processor) Effect() Effect { return p.effect }

// Params returns the parameter registry.
func (p *Processor) Params() *Registry { return p.params }

func (p *Processor) NumInputs() int  { return p.effect.Inputs }
func (p *Processor) NumOutputs() int { return p.channels }

// Prepare allocates the kernels for the block format.
func (p *Processor) Prepare(sampleRate float64, blockSize int) error {
	if sampleRate <= 0 || blockSize <= 0 {
		return fmt.Errorf("gofx: invalid block format %v Hz / %d frames", sampleRate, blockSize)
	}
	switch p.effect.Kind {
	case KindDelay:
		if p.echo == nil || p.rate != sampleRate {
			p.echo = dsp.NewEcho(p.channels, sampleRate)
		}
		p.echo.Reset()
	case KindLowpass, KindHighpass:
		if p.filter == nil {
			p.filter = dsp.NewBiquad(p.channels)
		}
		p.filter.Reset()
	case KindTone:
		if p.tone == nil {
			p.tone = dsp.NewTone(sampleRate, 440, 0)
		}
	}
	p.rate = sampleRate
	p.applied = p.params.Generation()
	p.configure()
	p.prepared = true
	return nil
}

// configure pushes current parameter values into the kernels.
func (p *Processor) configure() {
	v := func(id int) float64 { return p.values[id].Plain() }
	switch p.effect.Kind {
	case KindGain:
		p.gain.SetDb(v(0))
	case KindDelay:
		p.echo.Set(p.rate, v(0), v(1), v(2))
	case KindLowpass:
		p.filter.Design(dsp.Lowpass, p.rate, v(0), v(1))
	case KindHighpass:
		p.filter.Design(dsp.Highpass, p.rate, v(0), v(1))
	case KindDrive:
		p.drive.Set(v(0), v(1))
	case KindTone:
		p.tone.Set(p.rate, v(0), float32(dsp.DbToLinear(v(1))))
	}
}

// ProcessBlock runs the effect in place over the first NumOutputs channels.
func (p *Processor) ProcessBlock(buf *audio.Buffer, _ *midi.EventList) error {
	if !p.prepared {
		return errNotPrepared
	}
	if g := p.params.Generation(); g != p.applied {
		p.applied = g
		p.configure()
	}
	channels := buf.Channels
	if len(channels) > p.channels {
		channels = channels[:p.channels]
	}
	switch p.effect.Kind {
	case KindGain:
		p.gain.Process(channels)
	case KindDelay:
		p.echo.Process(channels)
	case KindLowpass, KindHighpass:
		p.filter.Process(channels)
	case KindDrive:
		p.drive.Process(channels)
	case KindTone:
		p.tone.Fill(channels)
	}
	return nil
}

// Release drops the playback buffers. Prepare must be called before processing again.
func (p *Processor) Release() {
	p.prepared = false
	p.echo = nil
}

// State returns the parameter dump.
func (p *Processor) State() ([]byte, error) {
	var buf bytes.Buffer
	if err := p.state.Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SetState applies a parameter dump. An empty blob restores the defaults.
func (p *Processor) SetState(data []byte) error {
	if len(data) == 0 {
		for _, param := range p.values {
			param.SetPlain(param.Default)
		}
		return nil
	}
	return p.state.Load(bytes.NewReader(data))
}
