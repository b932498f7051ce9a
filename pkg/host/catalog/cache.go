package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/justyntemme/vst3host/pkg/host/format"
)

// CacheVersion is the current cache file layout.
const CacheVersion = 1

var (
	// ErrCacheVersion is returned when a cache file was written by another layout.
	ErrCacheVersion = errors.New("unsupported catalog cache version")
	// ErrCacheArch is returned when a cache file was written for another host architecture.
	ErrCacheArch = errors.New("catalog cache written for another architecture")
)

type cacheFile struct {
	Version  int                 `msgpack:"version"`
	HostArch string              `msgpack:"host_arch"`
	SavedAt  time.Time           `msgpack:"saved_at"`
	Plugins  []format.Descriptor `msgpack:"plugins"`
}

// Save writes the catalog entries to path.
func (c *Catalog) Save(path, hostArch string) error {
	data, err := msgpack.Marshal(cacheFile{
		Version:  CacheVersion,
		HostArch: hostArch,
		SavedAt:  time.Now().UTC(),
		Plugins:  c.Entries(),
	})
	if err != nil {
		return fmt.Errorf("encode catalog cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write catalog cache: %w", err)
	}
	return os.Rename(tmp, path)
}

// Load replaces the catalog with the entries in path and marks it valid.
func (c *Catalog) Load(path, hostArch string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var cf cacheFile
	if err := msgpack.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("decode catalog cache %s: %w", path, err)
	}
	if cf.Version != CacheVersion {
		return fmt.Errorf("%w: %d", ErrCacheVersion, cf.Version)
	}
	if hostArch != "" && cf.HostArch != hostArch {
		return fmt.Errorf("%w: %s", ErrCacheArch, cf.HostArch)
	}
	c.Replace(cf.Plugins)
	return nil
}
