package format

import (
	"fmt"
	"runtime"
)

// Binding is an externally supplied SDK adapter for a native format.
type Binding interface {
	Describe(path string) ([]Description, error)
	Instantiate(d Descriptor, sampleRate float64, blockSize int) (Processor, error)
	CreateEditor(p Processor) (Editor, error)
}

// Native is a provider for a third-party binary format. Without a Binding it still
// claims its extensions, so scans catalog files with fallback metadata, but it cannot
// instantiate anything.
type Native struct {
	name       string
	exts       []string
	bundleExts []string
	binding    Binding
}

// Format names.
const (
	NameVST3      = "VST3"
	NameVST       = "VST"
	NameCLAP      = "CLAP"
	NameAudioUnit = "AudioUnit"
)

// NewVST3 returns the VST3 provider (.vst3 files and bundles).
func NewVST3(b Binding) *Native {
	return &Native{name: NameVST3, exts: []string{".vst3"}, bundleExts: []string{".vst3"}, binding: b}
}

// NewVST returns the VST2 provider.
func NewVST(b Binding) *Native {
	return &Native{name: NameVST, exts: []string{".dll", ".vst", ".so"}, bundleExts: []string{".vst"}, binding: b}
}

// NewCLAP returns the CLAP provider.
func NewCLAP(b Binding) *Native {
	return &Native{name: NameCLAP, exts: []string{".clap"}, bundleExts: []string{".clap"}, binding: b}
}

// NewAudioUnit returns the Audio Unit provider. It only claims bundles on darwin.
func NewAudioUnit(b Binding) *Native {
	n := &Native{name: NameAudioUnit, binding: b}
	if runtime.GOOS == "darwin" {
		n.bundleExts = []string{".component", ".appex"}
	}
	return n
}

// NativeProviders returns every native provider, all without bindings.
func NativeProviders() []Provider {
	return []Provider{NewVST3(nil), NewVST(nil), NewCLAP(nil), NewAudioUnit(nil)}
}

// Name implements Provider.
func (n *Native) Name() string { return n.name }

// Extensions implements Provider.
func (n *Native) Extensions() []string { return n.exts }

// BundleExtensions implements Provider.
func (n *Native) BundleExtensions() []string { return n.bundleExts }

// Bind attaches an SDK binding.
func (n *Native) Bind(b Binding) { n.binding = b }

// Describe implements Provider. Without a binding it reports nothing.
func (n *Native) Describe(path string) ([]Description, error) {
	if n.binding == nil {
		return nil, nil
	}
	return n.binding.Describe(path)
}

// Instantiate implements Provider.
func (n *Native) Instantiate(d Descriptor, sampleRate float64, blockSize int) (Processor, error) {
	if n.binding == nil {
		return nil, fmt.Errorf("%s: cannot open %s: %w", n.name, d.FileOrIdentifier, ErrNoBinding)
	}
	return n.binding.Instantiate(d, sampleRate, blockSize)
}

// CreateEditor implements Provider.
func (n *Native) CreateEditor(p Processor) (Editor, error) {
	if n.binding == nil {
		return nil, fmt.Errorf("%s: %w", n.name, ErrNoBinding)
	}
	return n.binding.CreateEditor(p)
}
