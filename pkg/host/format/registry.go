package format

import (
	"path/filepath"
	"strings"
	"sync"
)

// Registry holds the available format providers.
type Registry struct {
	mu        sync.RWMutex
	providers []Provider
}

// NewRegistry creates a registry with the given providers.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds p, replacing any provider with the same name.
func (r *Registry) Register(p Provider) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.providers {
		if existing.Name() == p.Name() {
			r.providers[i] = p
			return
		}
	}
	r.providers = append(r.providers, p)
}

// Providers returns the registered providers in registration order.
func (r *Registry) Providers() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Provider(nil), r.providers...)
}

// ByName returns the provider with the given format name (case-insensitive).
func (r *Registry) ByName(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.providers {
		if strings.EqualFold(p.Name(), name) {
			return p, true
		}
	}
	return nil, false
}

// ForFile returns the first provider recognizing path's extension.
// isDir selects between bundle and single-file extensions.
func (r *Registry) ForFile(path string, isDir bool) (Provider, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.providers {
		exts := p.Extensions()
		if isDir {
			exts = p.BundleExtensions()
		}
		if hasExt(exts, ext) {
			return p, true
		}
	}
	return nil, false
}

// Recognized reports whether any provider claims ext as a file or bundle extension.
func (r *Registry) Recognized(ext string) bool {
	ext = strings.ToLower(ext)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.providers {
		if hasExt(p.Extensions(), ext) || hasExt(p.BundleExtensions(), ext) {
			return true
		}
	}
	return false
}

// Resolve picks the provider for d: by format name first, then by file extension.
func (r *Registry) Resolve(d Descriptor) (Provider, bool) {
	if d.Format != "" {
		if p, ok := r.ByName(d.Format); ok {
			return p, true
		}
	}
	if p, ok := r.ForFile(d.FileOrIdentifier, false); ok {
		return p, true
	}
	return r.ForFile(d.FileOrIdentifier, true)
}

func hasExt(exts []string, ext string) bool {
	for _, e := range exts {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}
