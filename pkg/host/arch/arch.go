// Package arch classifies plugin binaries by target CPU architecture and decides whether
// the host process can load them.
package arch

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/justyntemme/vst3host/pkg/debug"
)

// Architecture labels.
const (
	X86       = "x86"
	X64       = "x64"
	ARM       = "ARM"
	ARM64     = "ARM64"
	Universal = "Universal"
	Unknown   = "Unknown"
)

// Result is the outcome of inspecting one candidate.
type Result struct {
	Arch       string
	Is64Bit    bool
	Compatible bool
}

// Inspector classifies candidates against the host's pointer width.
type Inspector struct {
	hostIs64 bool
	log      *debug.Logger
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithHost64 overrides the detected host bitness.
func WithHost64(is64 bool) Option {
	return func(i *Inspector) { i.hostIs64 = is64 }
}

// WithLogger sets the logger.
func WithLogger(l *debug.Logger) Option {
	return func(i *Inspector) { i.log = l }
}

// NewInspector creates an inspector for the running process.
func NewInspector(opts ...Option) *Inspector {
	i := &Inspector{hostIs64: strconv.IntSize == 64, log: debug.Nop()}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// HostIs64 reports the bitness the inspector compares against.
func (i *Inspector) HostIs64() bool { return i.hostIs64 }

// HostArch returns the label used for the host in cache files.
func (i *Inspector) HostArch() string {
	if i.hostIs64 {
		return X64
	}
	return X86
}

// Is64 reports whether label names a 64-bit architecture. Unknown labels are never 64-bit.
func Is64(label string) bool {
	if IsUnknown(label) {
		return false
	}
	return strings.Contains(label, "64")
}

// IsUnknown reports whether label could not be classified.
func IsUnknown(label string) bool {
	return label == "" || strings.HasPrefix(label, Unknown)
}

// Inspect classifies path and decides compatibility. Unknown and universal binaries are
// always compatible.
func (i *Inspector) Inspect(path string) Result {
	label := i.Classify(path)
	res := Result{Arch: label, Is64Bit: Is64(label)}
	switch {
	case IsUnknown(label), label == Universal:
		res.Compatible = true
	default:
		res.Compatible = res.Is64Bit == i.hostIs64
	}
	i.log.Debug("%s: arch=%s compatible=%v", path, res.Arch, res.Compatible)
	return res
}

// IsCompatible reports whether path can be loaded by the host.
func (i *Inspector) IsCompatible(path string) bool {
	return i.Inspect(path).Compatible
}

// Classify returns the architecture label of a file or bundle.
func (i *Inspector) Classify(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return Unknown
	}
	if info.IsDir() {
		return i.classifyBundle(path)
	}
	return ClassifyFile(path)
}

// bundleDirs maps bundle platform subdirectories to architecture labels.
var bundleDirs = []struct {
	dir  string
	arch string
}{
	{"x86_64-win", X64},
	{"arm64-win", ARM64},
	{"arm64x-win", ARM64},
	{"x86-win", X86},
	{"x86_64-linux", X64},
	{"aarch64-linux", ARM64},
	{"i386-linux", X86},
}

func (i *Inspector) classifyBundle(path string) string {
	contents := filepath.Join(path, "Contents")
	first := ""
	for _, bd := range bundleDirs {
		if !isDir(filepath.Join(contents, bd.dir)) {
			continue
		}
		if Is64(bd.arch) == i.hostIs64 {
			return bd.arch
		}
		if first == "" {
			first = bd.arch
		}
	}
	if first != "" {
		return first
	}

	macos := filepath.Join(contents, "MacOS")
	entries, err := os.ReadDir(macos)
	if err != nil {
		return Unknown
	}
	for _, e := range entries {
		if e.Type().IsRegular() {
			return ClassifyFile(filepath.Join(macos, e.Name()))
		}
	}
	return Unknown
}

// ValidBundle checks the directory layout of a bundle-style candidate. VST3 bundles need a
// Contents directory with at least one platform subdirectory; other formats need only be
// a directory.
func ValidBundle(path, formatName string) bool {
	if !isDir(path) {
		return false
	}
	if !strings.EqualFold(formatName, "VST3") {
		return true
	}
	contents := filepath.Join(path, "Contents")
	if isDir(filepath.Join(contents, "MacOS")) {
		return true
	}
	for _, bd := range bundleDirs {
		if isDir(filepath.Join(contents, bd.dir)) {
			return true
		}
	}
	return false
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func unknownMachine(m uint32) string {
	return fmt.Sprintf("%s (0x%x)", Unknown, m)
}
