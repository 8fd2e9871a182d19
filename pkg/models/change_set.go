package models

// OperationKind names a single buffered mutation.
type OperationKind string

const (
	OpAddNode     OperationKind = "add_node"
	OpSetProperty OperationKind = "set_property"
	OpRemove      OperationKind = "remove"
	OpMove        OperationKind = "move"
	OpReorder     OperationKind = "reorder"
)

// Operation is one entry of a ChangeSet. Which fields are meaningful depends on Kind:
//
//	add_node:     Path, PrimaryType, Identifier
//	set_property: Path, Type, Multiple, Values
//	remove:       Path (node or property)
//	move:         Path, Destination
//	reorder:      Path (the parent), Child, Before ("" moves Child to the end)
type Operation struct {
	Kind        OperationKind `cbor:"kind" yaml:"kind"`
	Path        string        `cbor:"path" yaml:"path"`
	Destination string        `cbor:"destination,omitempty" yaml:"destination,omitempty"`
	Child       string        `cbor:"child,omitempty" yaml:"child,omitempty"`
	Before      string        `cbor:"before,omitempty" yaml:"before,omitempty"`
	PrimaryType string        `cbor:"primaryType,omitempty" yaml:"primaryType,omitempty"`
	Identifier  string        `cbor:"identifier,omitempty" yaml:"identifier,omitempty"`
	Type        PropertyType  `cbor:"type,omitempty" yaml:"type,omitempty"`
	Multiple    bool          `cbor:"multiple,omitempty" yaml:"multiple,omitempty"`
	Values      []any         `cbor:"values,omitempty" yaml:"values,omitempty"`
}

// ChangeSet is everything a session dispatches on save. Operations apply in order and the
// whole set either applies or is rejected.
type ChangeSet struct {
	Workspace  string      `cbor:"workspace" yaml:"workspace"`
	Operations []Operation `cbor:"operations" yaml:"operations"`
}

func AddNodeOp(path, primaryType, identifier string) Operation {
	return Operation{Kind: OpAddNode, Path: path, PrimaryType: primaryType, Identifier: identifier}
}

func SetPropertyOp(path string, t PropertyType, multiple bool, values []any) Operation {
	return Operation{Kind: OpSetProperty, Path: path, Type: t, Multiple: multiple, Values: values}
}

func RemoveOp(path string) Operation {
	return Operation{Kind: OpRemove, Path: path}
}

func MoveOp(src, dest string) Operation {
	return Operation{Kind: OpMove, Path: src, Destination: dest}
}

func ReorderOp(parent, child, before string) Operation {
	return Operation{Kind: OpReorder, Path: parent, Child: child, Before: before}
}

func (cs *ChangeSet) Empty() bool {
	return cs == nil || len(cs.Operations) == 0
}
