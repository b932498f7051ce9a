package gofx

import (
	"fmt"

	"github.com/justyntemme/vst3host/pkg/debug"
	"github.com/justyntemme/vst3host/pkg/host/format"
)

// FormatName is the format name stored in descriptors.
const FormatName = "GoFX"

// Provider opens .gofx manifests.
type Provider struct {
	log *debug.Logger
}

// NewProvider creates the GoFX format provider. log may be nil.
func NewProvider(log *debug.Logger) *Provider {
	if log == nil {
		log = debug.Nop()
	}
	return &Provider{log: log}
}

func (p *Provider) Name() string               { return FormatName }
func (p *Provider) Extensions() []string       { return []string{Extension} }
func (p *Provider) BundleExtensions() []string { return nil }

// Describe lists every effect of the manifest at path. Each description carries the
// effect encoded in its blob so Instantiate does not reread the file.
func (p *Provider) Describe(path string) ([]format.Description, error) {
	m, err := LoadManifest(path)
	if err != nil {
		return nil, err
	}
	out := make([]format.Description, 0, len(m.Effects))
	for _, e := range m.Effects {
		blob, err := encodeEffect(e)
		if err != nil {
			return nil, err
		}
		out = append(out, format.Description{
			Name:         e.Name,
			Manufacturer: e.Manufacturer,
			Version:      e.Version,
			NumInputs:    e.Inputs,
			NumOutputs:   e.Outputs,
			IsInstrument: e.Instrument,
			Blob:         blob,
		})
	}
	p.log.Debug("%s: %d effects", path, len(out))
	return out, nil
}

// Instantiate builds a processor from the descriptor's blob, or from the manifest file
// when the descriptor was rebuilt without one.
func (p *Provider) Instantiate(d format.Descriptor, sampleRate float64, blockSize int) (format.Processor, error) {
	e, err := effectFor(d)
	if err != nil {
		return nil, err
	}
	proc, err := NewProcessor(e)
	if err != nil {
		return nil, err
	}
	p.log.Debug("instantiated %s (%s) for %v Hz / %d", e.Name, e.Kind, sampleRate, blockSize)
	return proc, nil
}

// CreateEditor opens a headless parameter editor.
func (p *Provider) CreateEditor(proc format.Processor) (format.Editor, error) {
	gp, ok := proc.(*Processor)
	if !ok {
		return nil, fmt.Errorf("gofx: %T is not a GoFX processor", proc)
	}
	return newEditor(gp), nil
}

func effectFor(d format.Descriptor) (Effect, error) {
	if len(d.Blob) > 0 {
		return decodeEffect(d.Blob)
	}
	m, err := LoadManifest(d.FileOrIdentifier)
	if err != nil {
		return Effect{}, err
	}
	e, ok := m.Find(d.Name)
	if !ok {
		return Effect{}, fmt.Errorf("gofx: %s has no effect named %q", d.FileOrIdentifier, d.Name)
	}
	return e, nil
}
