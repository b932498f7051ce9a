// Package state persists a plugin chain's composition and each plugin's internal state.
//
// The persisted form is a small tree: a "PluginChain" root whose "Plugin" children carry
// string properties. It is written as YAML (text form, state blobs base64-carried) or as
// msgpack (binary form).
package state

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// Node types.
const (
	ChainType  = "PluginChain"
	PluginType = "Plugin"
)

// Plugin record property keys.
const (
	PropName             = "name"
	PropManufacturer     = "manufacturer"
	PropVersion          = "version"
	PropFileOrIdentifier = "fileOrIdentifier"
	PropFormat           = "format"
	PropBypassed         = "bypassed"
	PropState            = "state"
)

var (
	// ErrNotChain is returned when a tree's root is not a PluginChain.
	ErrNotChain = errors.New("state: root is not a PluginChain")
	// ErrUnknownEncoding is returned for a state file with an unrecognized extension.
	ErrUnknownEncoding = errors.New("state: unknown encoding")
)

// Node is one element of the persisted tree.
type Node struct {
	Type       string            `yaml:"type" msgpack:"type"`
	Properties map[string]string `yaml:"properties,omitempty" msgpack:"properties,omitempty"`
	Children   []*Node           `yaml:"children,omitempty" msgpack:"children,omitempty"`
}

// NewNode creates a node of the given type.
func NewNode(typ string) *Node {
	return &Node{Type: typ}
}

// Set stores a property. Empty values are dropped.
func (n *Node) Set(key, value string) *Node {
	if value == "" {
		delete(n.Properties, key)
		return n
	}
	if n.Properties == nil {
		n.Properties = make(map[string]string)
	}
	n.Properties[key] = value
	return n
}

// Get returns a property, or "" when absent.
func (n *Node) Get(key string) string {
	return n.Properties[key]
}

// Has reports whether the property is present.
func (n *Node) Has(key string) bool {
	_, ok := n.Properties[key]
	return ok
}

// Append adds a child.
func (n *Node) Append(child *Node) {
	n.Children = append(n.Children, child)
}

// Encoding selects the on-disk form of a tree.
type Encoding int

const (
	Text Encoding = iota
	Binary
)

func (e Encoding) String() string {
	switch e {
	case Text:
		return "text"
	case Binary:
		return "binary"
	default:
		return fmt.Sprintf("encoding(%d)", int(e))
	}
}

// EncodingFor picks the encoding from a file extension: .yaml/.yml are text, .chain is binary.
func EncodingFor(path string) (Encoding, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return Text, nil
	case ".chain":
		return Binary, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownEncoding, filepath.Ext(path))
}

// Marshal encodes a tree.
func Marshal(root *Node, enc Encoding) ([]byte, error) {
	switch enc {
	case Text:
		return yaml.Marshal(root)
	case Binary:
		var buf bytes.Buffer
		e := msgpack.NewEncoder(&buf)
		e.SetSortMapKeys(true)
		if err := e.Encode(root); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownEncoding, enc)
}

// Unmarshal decodes a tree.
func Unmarshal(data []byte, enc Encoding) (*Node, error) {
	var root Node
	switch enc {
	case Text:
		if err := yaml.Unmarshal(data, &root); err != nil {
			return nil, fmt.Errorf("decode text state: %w", err)
		}
	case Binary:
		if err := msgpack.Unmarshal(data, &root); err != nil {
			return nil, fmt.Errorf("decode binary state: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownEncoding, enc)
	}
	return &root, nil
}
