package gofx

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrEditorClosed is returned by an editor after Close.
var ErrEditorClosed = errors.New("gofx: editor closed")

// Editor is a headless parameter editor for one processor.
type Editor struct {
	proc   *Processor
	closed atomic.Bool
}

func newEditor(p *Processor) *Editor {
	return &Editor{proc: p}
}

// Effect returns the edited effect.
func (e *Editor) Effect() Effect { return e.proc.effect }

// Params returns the edited parameters in declaration order.
func (e *Editor) Params() []*Param { return e.proc.params.All() }

// Get returns a parameter's plain value.
func (e *Editor) Get(name string) (float64, error) {
	if e.closed.Load() {
		return 0, ErrEditorClosed
	}
	p := e.proc.params.ByName(name)
	if p == nil {
		return 0, fmt.Errorf("gofx: %s has no parameter %q", e.proc.effect.Name, name)
	}
	return p.Plain(), nil
}

// Set writes a parameter's plain value. The processor applies it on its next block.
func (e *Editor) Set(name string, plain float64) error {
	if e.closed.Load() {
		return ErrEditorClosed
	}
	p := e.proc.params.ByName(name)
	if p == nil {
		return fmt.Errorf("gofx: %s has no parameter %q", e.proc.effect.Name, name)
	}
	p.SetPlain(plain)
	return nil
}

// Close detaches the editor. Closing twice is a no-op.
func (e *Editor) Close() error {
	e.closed.Store(true)
	return nil
}
