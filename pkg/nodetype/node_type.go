package nodetype

import (
	"context"
	"slices"
)

// NodeType is an immutable registered type. Instances are owned by the Manager that
// registered them; inheritance queries go back through it so lazily loaded supertypes are
// fetched on demand.
type NodeType struct {
	manager              *Manager
	def                  *Definition
	propertyDefinitions  []*PropertyDefinition
	childNodeDefinitions []*NodeDefinition
}

func newNodeType(m *Manager, def *Definition) *NodeType {
	nt := &NodeType{manager: m, def: def}
	for _, p := range def.PropertyDefinitions {
		nt.propertyDefinitions = append(nt.propertyDefinitions, &PropertyDefinition{declaringType: nt, tmpl: p})
	}
	for _, c := range def.ChildNodeDefinitions {
		nt.childNodeDefinitions = append(nt.childNodeDefinitions, &NodeDefinition{declaringType: nt, tmpl: c})
	}
	return nt
}

func (nt *NodeType) Name() string { return nt.def.Name }
func (nt *NodeType) IsAbstract() bool { return nt.def.Abstract }
func (nt *NodeType) IsMixin() bool { return nt.def.Mixin }
func (nt *NodeType) HasOrderableChildNodes() bool { return nt.def.OrderableChildNodes }
func (nt *NodeType) IsQueryable() bool { return nt.def.Queryable }
func (nt *NodeType) PrimaryItemName() string { return nt.def.PrimaryItemName }

func (nt *NodeType) DeclaredSupertypeNames() []string {
	return slices.Clone(nt.def.Supertypes)
}

func (nt *NodeType) DeclaredPropertyDefinitions() []*PropertyDefinition {
	return slices.Clone(nt.propertyDefinitions)
}

func (nt *NodeType) DeclaredChildNodeDefinitions() []*NodeDefinition {
	return slices.Clone(nt.childNodeDefinitions)
}

// Definition returns an editable copy of the template this type was built from.
func (nt *NodeType) Definition() *Definition {
	return nt.def.Clone()
}

func (nt *NodeType) DeclaredSupertypes(ctx context.Context) ([]*NodeType, error) {
	return nt.manager.resolve(ctx, nt.def.Supertypes)
}

// SupertypeNames is the transitive closure of declared supertypes in depth-first pre-order,
// each name once.
func (nt *NodeType) SupertypeNames(ctx context.Context) ([]string, error) {
	return nt.manager.supertypeClosure(ctx, nt)
}

func (nt *NodeType) Supertypes(ctx context.Context) ([]*NodeType, error) {
	names, err := nt.SupertypeNames(ctx)
	if err != nil {
		return nil, err
	}
	return nt.manager.resolve(ctx, names)
}

// DeclaredSubtypes lists the registered types that name this one as a direct supertype.
func (nt *NodeType) DeclaredSubtypes() []*NodeType {
	return nt.manager.registered(nt.manager.DeclaredSubtypes(nt.def.Name))
}

func (nt *NodeType) Subtypes() []*NodeType {
	return nt.manager.registered(nt.manager.Subtypes(nt.def.Name))
}

// IsNodeType reports whether this type is name or inherits from it.
func (nt *NodeType) IsNodeType(ctx context.Context, name string) (bool, error) {
	if nt.def.Name == name {
		return true, nil
	}
	names, err := nt.SupertypeNames(ctx)
	if err != nil {
		return false, err
	}
	return slices.Contains(names, name), nil
}

// PropertyDefinitions returns the declared definitions followed by the inherited ones in
// supertype order.
func (nt *NodeType) PropertyDefinitions(ctx context.Context) ([]*PropertyDefinition, error) {
	supertypes, err := nt.Supertypes(ctx)
	if err != nil {
		return nil, err
	}
	defs := slices.Clone(nt.propertyDefinitions)
	for _, st := range supertypes {
		defs = append(defs, st.propertyDefinitions...)
	}
	return defs, nil
}

func (nt *NodeType) ChildNodeDefinitions(ctx context.Context) ([]*NodeDefinition, error) {
	supertypes, err := nt.Supertypes(ctx)
	if err != nil {
		return nil, err
	}
	defs := slices.Clone(nt.childNodeDefinitions)
	for _, st := range supertypes {
		defs = append(defs, st.childNodeDefinitions...)
	}
	return defs, nil
}

// ChildNodeDefinition picks the definition governing a child called name: an exact match
// first, then a residual one. It returns nil when nothing applies.
func (nt *NodeType) ChildNodeDefinition(ctx context.Context, name string) (*NodeDefinition, error) {
	defs, err := nt.ChildNodeDefinitions(ctx)
	if err != nil {
		return nil, err
	}
	var residual *NodeDefinition
	for _, d := range defs {
		if d.Name() == name {
			return d, nil
		}
		if residual == nil && d.IsResidual() {
			residual = d
		}
	}
	return residual, nil
}

// PropertyDefinition picks the definition governing a property called name, exact match
// first. It returns nil when nothing applies.
func (nt *NodeType) PropertyDefinition(ctx context.Context, name string) (*PropertyDefinition, error) {
	defs, err := nt.PropertyDefinitions(ctx)
	if err != nil {
		return nil, err
	}
	var residual *PropertyDefinition
	for _, d := range defs {
		if d.Name() == name {
			return d, nil
		}
		if residual == nil && d.IsResidual() {
			residual = d
		}
	}
	return residual, nil
}

// CanAddChildNode reports whether a child called name may be added, with typeName as its
// primary type, or with the definition's default type when typeName is empty.
func (nt *NodeType) CanAddChildNode(ctx context.Context, name, typeName string) (bool, error) {
	def, err := nt.ChildNodeDefinition(ctx, name)
	if err != nil || def == nil || def.IsProtected() {
		return false, err
	}
	if typeName == "" {
		typeName = def.DefaultPrimaryTypeName()
		if typeName == "" {
			return false, nil
		}
	}
	child, err := nt.manager.NodeType(ctx, typeName)
	if err != nil {
		return false, err
	}
	if child.IsAbstract() || child.IsMixin() {
		return false, nil
	}
	return def.Accepts(ctx, child)
}
