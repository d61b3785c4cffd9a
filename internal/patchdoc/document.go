// Package patchdoc loads the YAML patch document into an order-preserving
// tree, rejecting duplicate mapping keys the way the original's overridden
// PyYAML SafeLoader constructor does.
package patchdoc

import (
	"fmt"
	"os"

	"github.com/sercanarga/svdpatch/internal/svderrs"
	"gopkg.in/yaml.v3"
)

// Kind distinguishes the three shapes a Value can take.
type Kind int

const (
	Scalar Kind = iota
	Mapping
	Sequence
)

// Value is one node of the loaded patch document: either a scalar string, an
// order-preserving mapping, or a sequence.
type Value struct {
	Kind     Kind
	Scalar   string
	Keys     []string
	mapping  map[string]*Value
	Sequence []*Value
}

func newMapping() *Value {
	return &Value{Kind: Mapping, mapping: map[string]*Value{}}
}

// Has reports whether a mapping value has the given key.
func (v *Value) Has(key string) bool {
	if v == nil || v.Kind != Mapping {
		return false
	}
	_, ok := v.mapping[key]
	return ok
}

// Get returns the value stored under key in a mapping, or nil.
func (v *Value) Get(key string) *Value {
	if v == nil || v.Kind != Mapping {
		return nil
	}
	return v.mapping[key]
}

// Set inserts or replaces key in a mapping, preserving first-seen order.
func (v *Value) Set(key string, val *Value) {
	if v.mapping == nil {
		v.mapping = map[string]*Value{}
	}
	if _, exists := v.mapping[key]; !exists {
		v.Keys = append(v.Keys, key)
	}
	v.mapping[key] = val
}

// Delete removes key from a mapping, if present.
func (v *Value) Delete(key string) {
	if v == nil || v.Kind != Mapping {
		return
	}
	if _, ok := v.mapping[key]; !ok {
		return
	}
	delete(v.mapping, key)
	for i, k := range v.Keys {
		if k == key {
			v.Keys = append(v.Keys[:i], v.Keys[i+1:]...)
			break
		}
	}
}

// GetString returns a scalar child's text, or "" with ok=false.
func (v *Value) GetString(key string) (string, bool) {
	c := v.Get(key)
	if c == nil || c.Kind != Scalar {
		return "", false
	}
	return c.Scalar, true
}

// GetMapping returns a mapping child, or nil if absent or of another kind.
func (v *Value) GetMapping(key string) *Value {
	c := v.Get(key)
	if c == nil || c.Kind != Mapping {
		return nil
	}
	return c
}

// GetSequence returns the ordered items of a sequence child, treating a
// missing key or a bare scalar as an empty slice the way the original's
// parent.get("_include", []) defaulting does.
func (v *Value) GetSequence(key string) []*Value {
	c := v.Get(key)
	if c == nil || c.Kind != Sequence {
		return nil
	}
	return c.Sequence
}

// Clone returns a deep copy of v, detached from the source document. Used
// when a patch spec (e.g. a `_derive` source) must be duplicated rather than
// aliased.
func (v *Value) Clone() *Value {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case Scalar:
		return &Value{Kind: Scalar, Scalar: v.Scalar}
	case Sequence:
		out := &Value{Kind: Sequence}
		for _, item := range v.Sequence {
			out.Sequence = append(out.Sequence, item.Clone())
		}
		return out
	default:
		out := newMapping()
		for _, k := range v.Keys {
			out.Set(k, v.mapping[k].Clone())
		}
		return out
	}
}

// Load reads and parses a YAML patch document from path, returning its root
// mapping. Duplicate keys within any single mapping are rejected, matching
// the original loader's dict_constructor assertion.
func Load(path string) (*Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &svderrs.LoadError{Path: path, Reason: err.Error()}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &svderrs.LoadError{Path: path, Reason: fmt.Sprintf("invalid yaml: %v", err)}
	}
	if len(doc.Content) == 0 {
		return newMapping(), nil
	}
	return convert(doc.Content[0], path)
}

func convert(n *yaml.Node, path string) (*Value, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return &Value{Kind: Scalar, Scalar: n.Value}, nil

	case yaml.SequenceNode:
		out := &Value{Kind: Sequence}
		for _, item := range n.Content {
			cv, err := convert(item, path)
			if err != nil {
				return nil, err
			}
			out.Sequence = append(out.Sequence, cv)
		}
		return out, nil

	case yaml.MappingNode:
		out := newMapping()
		seen := map[string]bool{}
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode, valNode := n.Content[i], n.Content[i+1]
			key := keyNode.Value
			if seen[key] {
				return nil, &svderrs.LoadError{
					Path:   path,
					Line:   keyNode.Line,
					Column: keyNode.Column,
					Reason: fmt.Sprintf("duplicate key %q", key),
				}
			}
			seen[key] = true
			cv, err := convert(valNode, path)
			if err != nil {
				return nil, err
			}
			out.Set(key, cv)
		}
		return out, nil

	case yaml.AliasNode:
		return convert(n.Alias, path)

	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return newMapping(), nil
		}
		return convert(n.Content[0], path)

	default:
		return &Value{Kind: Scalar, Scalar: n.Value}, nil
	}
}
