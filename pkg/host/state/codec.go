package state

import (
	"context"
	"encoding/base64"
	"strconv"

	"github.com/justyntemme/vst3host/pkg/debug"
	"github.com/justyntemme/vst3host/pkg/host/chain"
	"github.com/justyntemme/vst3host/pkg/host/format"
)

// Chain is the part of the plugin chain the codec drives.
type Chain interface {
	Records(ctx context.Context) ([]chain.Record, error)
	ClearAll(ctx context.Context) error
	Load(ctx context.Context, d format.Descriptor) (int, error)
	Bypass(index int, bypassed bool)
	SetSlotState(ctx context.Context, index int, data []byte) error
}

// Catalog resolves a persisted identity to a full descriptor.
type Catalog interface {
	Lookup(key format.Key) (format.Descriptor, bool)
}

// Skipped describes a record that could not be restored.
type Skipped struct {
	Record int
	Name   string
	Err    error
}

// Report summarizes a Decode.
type Report struct {
	Restored int
	Skipped  []Skipped
}

// Codec converts between a chain and its persisted tree.
type Codec struct {
	catalog Catalog
	log     *debug.Logger
}

// NewCodec creates a codec. catalog and log may be nil; without a catalog every record
// loads from a minimal descriptor.
func NewCodec(catalog Catalog, log *debug.Logger) *Codec {
	if log == nil {
		log = debug.Nop()
	}
	return &Codec{catalog: catalog, log: log}
}

// Encode captures the chain as a PluginChain tree.
func (c *Codec) Encode(ctx context.Context, ch Chain) (*Node, error) {
	records, err := ch.Records(ctx)
	if err != nil {
		return nil, err
	}
	root := NewNode(ChainType)
	for _, r := range records {
		d := r.Descriptor
		n := NewNode(PluginType).
			Set(PropName, d.Name).
			Set(PropManufacturer, d.Manufacturer).
			Set(PropVersion, d.Version).
			Set(PropFileOrIdentifier, d.FileOrIdentifier).
			Set(PropFormat, d.Format).
			Set(PropBypassed, strconv.FormatBool(r.Bypassed))
		if len(r.State) > 0 {
			n.Set(PropState, base64.StdEncoding.EncodeToString(r.State))
		}
		root.Append(n)
	}
	return root, nil
}

// Decode clears the chain and reloads every Plugin record in order. Records that fail to
// load are skipped and listed in the report; the rest still restore. A missing state
// property leaves the plugin in its default state.
func (c *Codec) Decode(ctx context.Context, root *Node, ch Chain) (Report, error) {
	var report Report
	if root == nil || root.Type != ChainType {
		return report, ErrNotChain
	}
	if err := ch.ClearAll(ctx); err != nil {
		return report, err
	}

	for i, n := range root.Children {
		if n == nil || n.Type != PluginType {
			continue
		}
		d := c.descriptor(n)
		index, err := ch.Load(ctx, d)
		if err != nil {
			c.log.Warn("skipping %s: %v", d.Name, err)
			report.Skipped = append(report.Skipped, Skipped{Record: i, Name: d.Name, Err: err})
			continue
		}
		report.Restored++

		if bypassed, _ := strconv.ParseBool(n.Get(PropBypassed)); bypassed {
			ch.Bypass(index, true)
		}
		encoded := n.Get(PropState)
		if encoded == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			c.log.Warn("%s: state is not valid base64, keeping defaults: %v", d.Name, err)
			continue
		}
		if err := ch.SetSlotState(ctx, index, data); err != nil {
			c.log.Warn("%s: restoring state: %v", d.Name, err)
		}
	}
	c.log.Info("restored %d plugins, skipped %d", report.Restored, len(report.Skipped))
	return report, nil
}

// descriptor resolves a record through the catalog, falling back to a minimal stereo
// effect descriptor built from the identity fields.
func (c *Codec) descriptor(n *Node) format.Descriptor {
	key := format.Key{FileOrIdentifier: n.Get(PropFileOrIdentifier), Name: n.Get(PropName)}
	if c.catalog != nil {
		if d, ok := c.catalog.Lookup(key); ok {
			return d
		}
	}
	return format.Descriptor{
		Name:             key.Name,
		Manufacturer:     n.Get(PropManufacturer),
		Version:          n.Get(PropVersion),
		Format:           n.Get(PropFormat),
		FileOrIdentifier: key.FileOrIdentifier,
		NumInputs:        2,
		NumOutputs:       2,
		Compatible:       true,
	}
}
