package models

import (
	"github.com/jackalope/jackalope.go/pkg/constants"
)

// EntryKind discriminates the entries of a RawNode.
type EntryKind string

const (
	EntryChild    EntryKind = "child"
	EntryProperty EntryKind = "property"
)

// RawEntry is either a child reference (Kind == EntryChild, only Name is set) or a property
// with its type and values.
type RawEntry struct {
	Kind     EntryKind    `cbor:"kind" yaml:"kind"`
	Name     string       `cbor:"name" yaml:"name"`
	Type     PropertyType `cbor:"type,omitempty" yaml:"type,omitempty"`
	Multiple bool         `cbor:"multiple,omitempty" yaml:"multiple,omitempty"`
	Values   []any        `cbor:"values,omitempty" yaml:"values,omitempty"`
}

// RawNode is the data a transport returns for one node. Entries keep the order of the
// backing store: child entries in child order, property entries in property order.
type RawNode struct {
	Path    string     `cbor:"path" yaml:"path"`
	Entries []RawEntry `cbor:"entries" yaml:"entries"`
}

func ChildEntry(name string) RawEntry {
	return RawEntry{Kind: EntryChild, Name: name}
}

func PropertyEntry(name string, t PropertyType, value any) RawEntry {
	return RawEntry{Kind: EntryProperty, Name: name, Type: t, Values: []any{value}}
}

func MultiPropertyEntry(name string, t PropertyType, values ...any) RawEntry {
	return RawEntry{Kind: EntryProperty, Name: name, Type: t, Multiple: true, Values: values}
}

// Children returns the child names in order, including same-name-sibling indexes.
func (n *RawNode) Children() []string {
	var names []string
	for _, e := range n.Entries {
		if e.Kind == EntryChild {
			names = append(names, e.Name)
		}
	}
	return names
}

// Properties returns the property entries in order.
func (n *RawNode) Properties() []RawEntry {
	var props []RawEntry
	for _, e := range n.Entries {
		if e.Kind == EntryProperty {
			props = append(props, e)
		}
	}
	return props
}

func (n *RawNode) Property(name string) (RawEntry, bool) {
	for _, e := range n.Entries {
		if e.Kind == EntryProperty && e.Name == name {
			return e, true
		}
	}
	return RawEntry{}, false
}

func (n *RawNode) PrimaryType() string {
	return n.stringProperty(constants.PropPrimaryType)
}

func (n *RawNode) Identifier() string {
	return n.stringProperty(constants.PropUUID)
}

func (n *RawNode) stringProperty(name string) string {
	e, ok := n.Property(name)
	if !ok || len(e.Values) == 0 {
		return ""
	}
	s, _ := e.Values[0].(string)
	return s
}

// Normalize converts every property value to the normalized form of its type. Decoders widen
// numbers (CBOR yields uint64, YAML yields int), so transports call this before handing the
// node out.
func (n *RawNode) Normalize() error {
	for i := range n.Entries {
		e := &n.Entries[i]
		if e.Kind != EntryProperty {
			continue
		}
		values, err := ConvertAll(e.Values, e.Type)
		if err != nil {
			return err
		}
		e.Values = values
	}
	return nil
}
