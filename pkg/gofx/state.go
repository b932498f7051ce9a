package gofx

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	stateMagic   = "GOFX"
	stateVersion = uint32(1)
)

// ErrInvalidState is returned for a blob that is not a GoFX parameter dump.
var ErrInvalidState = errors.New("gofx: invalid state format")

// StateManager writes and reads a registry's values as a versioned binary dump:
// magic, version, count, then (id uint32, normalized float64) pairs, little endian.
type StateManager struct {
	version  uint32
	registry *Registry
}

// NewStateManager creates a state manager for reg.
func NewStateManager(reg *Registry) *StateManager {
	return &StateManager{version: stateVersion, registry: reg}
}

// Save writes every parameter value.
func (m *StateManager) Save(w io.Writer) error {
	if _, err := io.WriteString(w, stateMagic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, m.version); err != nil {
		return err
	}
	params := m.registry.All()
	if err := binary.Write(w, binary.LittleEndian, uint32(len(params))); err != nil {
		return err
	}
	for _, p := range params {
		if err := binary.Write(w, binary.LittleEndian, p.ID); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, p.Value()); err != nil {
			return err
		}
	}
	return nil
}

// Load reads a dump and applies it. Nothing is applied unless the whole dump decodes.
// Unknown parameter IDs are ignored.
func (m *StateManager) Load(r io.Reader) error {
	header := make([]byte, len(stateMagic))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if string(header) != stateMagic {
		return ErrInvalidState
	}

	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if version > m.version {
		return fmt.Errorf("state version %d is newer than supported version %d", version, m.version)
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	type entry struct {
		ID    uint32
		Value float64
	}
	entries := make([]entry, 0, min(count, 256))
	for i := uint32(0); i < count; i++ {
		var e entry
		if err := binary.Read(r, binary.LittleEndian, &e); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidState, err)
		}
		entries = append(entries, e)
	}

	for _, e := range entries {
		if p := m.registry.Get(e.ID); p != nil {
			p.SetValue(e.Value)
		}
	}
	return nil
}
