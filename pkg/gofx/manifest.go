// Package gofx is the built-in plugin format: .gofx YAML manifests describing effects
// that run in-process on the pkg/dsp kernels.
//
// A manifest may describe several effects:
//
//	manufacturer: GoFX
//	version: "1.2"
//	effects:
//	  - name: Warm Drive
//	    kind: drive
//	    params:
//	      drive: 6
//	      mix: 0.8
//	  - name: Test Tone
//	    kind: tone
package gofx

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// Extension is the manifest file extension.
const Extension = ".gofx"

// MaxChannels bounds the channel count a manifest may declare.
const MaxChannels = 8

// Kind selects the DSP behind an effect.
type Kind string

const (
	KindGain     Kind = "gain"
	KindDelay    Kind = "delay"
	KindLowpass  Kind = "lowpass"
	KindHighpass Kind = "highpass"
	KindDrive    Kind = "drive"
	// KindTone is a sine generator and always an instrument.
	KindTone Kind = "tone"
)

// Kinds lists every supported kind.
var Kinds = []Kind{KindGain, KindDelay, KindLowpass, KindHighpass, KindDrive, KindTone}

var (
	ErrEmptyManifest = errors.New("gofx: manifest describes no effects")
	ErrUnknownKind   = errors.New("gofx: unknown effect kind")
)

// Effect is one effect entry of a manifest.
type Effect struct {
	Name         string             `yaml:"name" msgpack:"name"`
	Manufacturer string             `yaml:"manufacturer,omitempty" msgpack:"manufacturer"`
	Version      string             `yaml:"version,omitempty" msgpack:"version"`
	Kind         Kind               `yaml:"kind" msgpack:"kind"`
	Inputs       int                `yaml:"inputs,omitempty" msgpack:"inputs"`
	Outputs      int                `yaml:"outputs,omitempty" msgpack:"outputs"`
	Instrument   bool               `yaml:"instrument,omitempty" msgpack:"instrument"`
	Params       map[string]float64 `yaml:"params,omitempty" msgpack:"params,omitempty"`
}

// Manifest is the content of a .gofx file. Manufacturer and Version are defaults
// for effects that leave theirs empty.
type Manifest struct {
	Manufacturer string   `yaml:"manufacturer,omitempty"`
	Version      string   `yaml:"version,omitempty"`
	Effects      []Effect `yaml:"effects"`
}

// ParseManifest decodes and normalizes a manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("gofx: parse manifest: %w", err)
	}
	if err := m.normalize(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadManifest reads a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Find returns the effect with the given name.
func (m *Manifest) Find(name string) (Effect, bool) {
	for _, e := range m.Effects {
		if e.Name == name {
			return e, true
		}
	}
	return Effect{}, false
}

func (m *Manifest) normalize() error {
	if len(m.Effects) == 0 {
		return ErrEmptyManifest
	}
	for i := range m.Effects {
		e := &m.Effects[i]
		e.Name = strings.TrimSpace(e.Name)
		if e.Name == "" {
			return fmt.Errorf("gofx: effect %d has no name", i)
		}
		if e.Manufacturer == "" {
			e.Manufacturer = m.Manufacturer
		}
		if e.Version == "" {
			e.Version = m.Version
		}
		e.Kind = Kind(strings.ToLower(string(e.Kind)))
		if !e.Kind.valid() {
			return fmt.Errorf("%w %q in %s", ErrUnknownKind, e.Kind, e.Name)
		}
		if e.Kind == KindTone {
			e.Instrument = true
		}
		if e.Inputs == 0 {
			e.Inputs = 2
		}
		if e.Outputs == 0 {
			e.Outputs = e.Inputs
		}
		if e.Inputs < 0 || e.Outputs < 1 || e.Inputs > MaxChannels || e.Outputs > MaxChannels {
			return fmt.Errorf("gofx: %s declares %d in / %d out channels", e.Name, e.Inputs, e.Outputs)
		}
		if e.Kind == KindTone {
			e.Inputs = 0
		}
		if _, err := newParams(e.Kind, e.Params); err != nil {
			return err
		}
	}
	return nil
}

func (k Kind) valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

func encodeEffect(e Effect) ([]byte, error) {
	return msgpack.Marshal(e)
}

func decodeEffect(blob []byte) (Effect, error) {
	var e Effect
	if err := msgpack.Unmarshal(blob, &e); err != nil {
		return Effect{}, fmt.Errorf("gofx: decode description: %w", err)
	}
	if !e.Kind.valid() {
		return Effect{}, fmt.Errorf("%w %q in %s", ErrUnknownKind, e.Kind, e.Name)
	}
	return e, nil
}
