// Package format abstracts plugin binary formats behind one provider interface and
// resolves which provider can open a file or bundle.
package format

import (
	"errors"
	"fmt"

	"github.com/justyntemme/vst3host/pkg/audio"
	"github.com/justyntemme/vst3host/pkg/midi"
)

// MaxChannels is the widest input or output layout the host accepts.
const MaxChannels = 2

// ErrNoBinding is returned by native formats that have no SDK binding attached.
var ErrNoBinding = errors.New("no SDK binding for format")

// Descriptor is static metadata about a discoverable plugin.
// (FileOrIdentifier, Name) identifies it within the catalog.
type Descriptor struct {
	Name             string `msgpack:"name"`
	Manufacturer     string `msgpack:"manufacturer"`
	Version          string `msgpack:"version"`
	Format           string `msgpack:"format"`
	FileOrIdentifier string `msgpack:"file"`
	NumInputs        int    `msgpack:"inputs"`
	NumOutputs       int    `msgpack:"outputs"`
	IsInstrument     bool   `msgpack:"instrument"`
	Arch             string `msgpack:"arch"`
	Is64Bit          bool   `msgpack:"is64"`
	Compatible       bool   `msgpack:"compatible"`
	Blob             []byte `msgpack:"blob,omitempty"`
}

// Key is the catalog identity of a descriptor.
type Key struct {
	FileOrIdentifier string
	Name             string
}

// Key returns the descriptor's identity key.
func (d Descriptor) Key() Key {
	return Key{FileOrIdentifier: d.FileOrIdentifier, Name: d.Name}
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s (%s %s, %s)", d.Name, d.Manufacturer, d.Version, d.Format)
}

// Description is what a provider reports for one plugin inside a file.
// Identifier defaults to the file path when empty.
type Description struct {
	Name         string
	Manufacturer string
	Version      string
	Identifier   string
	NumInputs    int
	NumOutputs   int
	IsInstrument bool
	Blob         []byte
}

// Processor is a live plugin instance.
//
// ProcessBlock runs on the audio path: it must not block and should not allocate.
// Every other method runs on the coordinator.
type Processor interface {
	NumInputs() int
	NumOutputs() int
	Prepare(sampleRate float64, blockSize int) error
	ProcessBlock(buf *audio.Buffer, events *midi.EventList) error
	Release()
	State() ([]byte, error)
	SetState(data []byte) error
}

// Editor is an open plugin editor. Its lifetime is independent of the processor's.
type Editor interface {
	Close() error
}

// Provider opens one plugin format.
type Provider interface {
	// Name is the format name stored in descriptors, e.g. "VST3".
	Name() string
	// Extensions lists single-file extensions including the dot.
	Extensions() []string
	// BundleExtensions lists directory-bundle extensions including the dot.
	BundleExtensions() []string
	// Describe enumerates the plugins inside path. An empty result is not an error.
	Describe(path string) ([]Description, error)
	// Instantiate builds a processor for d.
	Instantiate(d Descriptor, sampleRate float64, blockSize int) (Processor, error)
	// CreateEditor opens an editor for a processor this provider instantiated.
	CreateEditor(p Processor) (Editor, error)
}
