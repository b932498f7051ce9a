package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/justyntemme/vst3host/pkg/debug"
)

// Store reads and writes a tree at a fixed path, picking the encoding from its extension.
type Store struct {
	path string
	enc  Encoding
	log  *debug.Logger
}

// NewStore creates a store for path. log may be nil.
func NewStore(path string, log *debug.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("state file path is required")
	}
	enc, err := EncodingFor(path)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = debug.Nop()
	}
	return &Store{path: path, enc: enc, log: log.With("state_file", path)}, nil
}

// Path returns the file the store writes.
func (s *Store) Path() string { return s.path }

// Load reads the tree. A missing file is reported as (nil, false, nil).
func (s *Store) Load() (*Node, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.log.Debug("state load miss")
			return nil, false, nil
		}
		return nil, false, err
	}
	root, err := Unmarshal(data, s.enc)
	if err != nil {
		s.log.Warn("state load failed: %v", err)
		return nil, false, err
	}
	if root.Type != ChainType {
		return nil, false, ErrNotChain
	}
	s.log.Debug("state load ok, %d records", len(root.Children))
	return root, true, nil
}

// Save writes the tree atomically.
func (s *Store) Save(root *Node) error {
	data, err := Marshal(root, s.enc)
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "state-*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		s.log.Warn("state save failed: %v", err)
		return err
	}
	s.log.Debug("state saved, %d records", len(root.Children))
	return nil
}
