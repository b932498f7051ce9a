package chain

import (
	"context"
	"fmt"

	"github.com/justyntemme/vst3host/pkg/host/dispatch"
	"github.com/justyntemme/vst3host/pkg/host/format"
)

// Record is the persisted view of one slot.
type Record struct {
	Descriptor format.Descriptor
	Bypassed   bool
	State      []byte
}

// Records captures every slot's descriptor, bypass flag and processor state in order.
func (c *Chain) Records(ctx context.Context) ([]Record, error) {
	if err := dispatch.Assert(ctx, "get state"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	slots := append([]*slot(nil), c.slots...)
	out := make([]Record, len(slots))
	for i, s := range slots {
		out[i] = Record{Descriptor: s.descriptor, Bypassed: s.bypassed}
	}
	c.mu.Unlock()

	for i, s := range slots {
		data, err := s.processor.State()
		if err != nil {
			return nil, fmt.Errorf("state of %s: %w", s.descriptor.Name, err)
		}
		out[i].State = data
	}
	return out, nil
}

// SetSlotState pushes a state blob into the processor at index.
func (c *Chain) SetSlotState(ctx context.Context, index int, data []byte) error {
	if err := dispatch.Assert(ctx, "set state"); err != nil {
		return err
	}
	c.mu.Lock()
	if index < 0 || index >= len(c.slots) {
		c.mu.Unlock()
		return fmt.Errorf("set state: no slot %d", index)
	}
	s := c.slots[index]
	c.mu.Unlock()

	if err := s.processor.SetState(data); err != nil {
		return fmt.Errorf("set state of %s: %w", s.descriptor.Name, err)
	}
	return nil
}
