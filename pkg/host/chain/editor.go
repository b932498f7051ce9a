package chain

import (
	"context"
	"fmt"

	"github.com/justyntemme/vst3host/pkg/host/dispatch"
	"github.com/justyntemme/vst3host/pkg/host/format"
)

// OpenEditor opens the editor for the slot at index, or returns the one already open.
func (c *Chain) OpenEditor(ctx context.Context, index int) (format.Editor, error) {
	if err := dispatch.Assert(ctx, "open editor"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	if index < 0 || index >= len(c.slots) {
		c.mu.Unlock()
		return nil, fmt.Errorf("open editor: no slot %d", index)
	}
	s := c.slots[index]
	if s.editor != nil {
		ed := s.editor
		c.mu.Unlock()
		return ed, nil
	}
	c.mu.Unlock()

	ed, err := s.provider.CreateEditor(s.processor)
	if err != nil {
		return nil, fmt.Errorf("open editor for %s: %w", s.descriptor.Name, err)
	}
	if ed == nil {
		return nil, fmt.Errorf("open editor for %s: plugin has no editor", s.descriptor.Name)
	}

	c.mu.Lock()
	s.editor = ed
	c.mu.Unlock()
	return ed, nil
}

// CloseEditor closes the editor of the slot at index, if one is open.
func (c *Chain) CloseEditor(ctx context.Context, index int) error {
	if err := dispatch.Assert(ctx, "close editor"); err != nil {
		return err
	}
	c.mu.Lock()
	if index < 0 || index >= len(c.slots) {
		c.mu.Unlock()
		return nil
	}
	s := c.slots[index]
	ed := s.editor
	s.editor = nil
	c.mu.Unlock()

	c.closeEditor(s, ed)
	return nil
}

func (c *Chain) closeEditor(s *slot, ed format.Editor) {
	if ed == nil {
		return
	}
	if err := ed.Close(); err != nil {
		c.log.Warn("closing editor for %s: %v", s.descriptor.Name, err)
	}
}
