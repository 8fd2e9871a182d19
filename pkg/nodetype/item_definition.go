package nodetype

import (
	"context"
	"slices"

	"github.com/jackalope/jackalope.go/pkg/models"
)

// PropertyDefinition is a property rule declared by a NodeType.
type PropertyDefinition struct {
	declaringType *NodeType
	tmpl          PropertyDefinitionTemplate
}

func (p *PropertyDefinition) DeclaringNodeType() *NodeType { return p.declaringType }
func (p *PropertyDefinition) Name() string { return p.tmpl.Name }
func (p *PropertyDefinition) IsResidual() bool { return p.tmpl.Name == Residual }
func (p *PropertyDefinition) IsAutoCreated() bool { return p.tmpl.AutoCreated }
func (p *PropertyDefinition) IsMandatory() bool { return p.tmpl.Mandatory }
func (p *PropertyDefinition) IsProtected() bool { return p.tmpl.Protected }
func (p *PropertyDefinition) RequiredType() models.PropertyType {
	return p.tmpl.RequiredType
}
func (p *PropertyDefinition) IsMultiple() bool { return p.tmpl.Multiple }
func (p *PropertyDefinition) IsFullTextSearchable() bool { return p.tmpl.FullTextSearchable }
func (p *PropertyDefinition) IsQueryOrderable() bool { return p.tmpl.QueryOrderable }

func (p *PropertyDefinition) OnParentVersion() OnParentVersion {
	if p.tmpl.OnParentVersion == "" {
		return OnParentVersionCopy
	}
	return p.tmpl.OnParentVersion
}

func (p *PropertyDefinition) ValueConstraints() []string {
	return slices.Clone(p.tmpl.ValueConstraints)
}

func (p *PropertyDefinition) AvailableQueryOperators() []string {
	return slices.Clone(p.tmpl.AvailableQueryOperators)
}

// DefaultValues converts the declared defaults to the required type. Defaults of an
// undefined type stay strings.
func (p *PropertyDefinition) DefaultValues() ([]any, error) {
	values := make([]any, len(p.tmpl.DefaultValues))
	for i, raw := range p.tmpl.DefaultValues {
		if p.tmpl.RequiredType == models.TypeUndefined {
			values[i] = raw
			continue
		}
		v, err := models.Convert(raw, p.tmpl.RequiredType)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// NodeDefinition is a child node rule declared by a NodeType.
type NodeDefinition struct {
	declaringType *NodeType
	tmpl          NodeDefinitionTemplate
}

func (n *NodeDefinition) DeclaringNodeType() *NodeType { return n.declaringType }
func (n *NodeDefinition) Name() string { return n.tmpl.Name }
func (n *NodeDefinition) IsResidual() bool { return n.tmpl.Name == Residual }
func (n *NodeDefinition) IsAutoCreated() bool { return n.tmpl.AutoCreated }
func (n *NodeDefinition) IsMandatory() bool { return n.tmpl.Mandatory }
func (n *NodeDefinition) IsProtected() bool { return n.tmpl.Protected }
func (n *NodeDefinition) AllowsSameNameSiblings() bool { return n.tmpl.SameNameSiblings }
func (n *NodeDefinition) DefaultPrimaryTypeName() string {
	return n.tmpl.DefaultPrimaryType
}

func (n *NodeDefinition) OnParentVersion() OnParentVersion {
	if n.tmpl.OnParentVersion == "" {
		return OnParentVersionCopy
	}
	return n.tmpl.OnParentVersion
}

func (n *NodeDefinition) RequiredPrimaryTypeNames() []string {
	return slices.Clone(n.tmpl.RequiredPrimaryTypes)
}

func (n *NodeDefinition) RequiredPrimaryTypes(ctx context.Context) ([]*NodeType, error) {
	return n.declaringType.manager.resolve(ctx, n.tmpl.RequiredPrimaryTypes)
}

// DefaultPrimaryType returns nil when the definition has no default.
func (n *NodeDefinition) DefaultPrimaryType(ctx context.Context) (*NodeType, error) {
	if n.tmpl.DefaultPrimaryType == "" {
		return nil, nil
	}
	return n.declaringType.manager.NodeType(ctx, n.tmpl.DefaultPrimaryType)
}

// Accepts reports whether a child of type nt satisfies every required primary type.
func (n *NodeDefinition) Accepts(ctx context.Context, nt *NodeType) (bool, error) {
	for _, required := range n.tmpl.RequiredPrimaryTypes {
		ok, err := nt.IsNodeType(ctx, required)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}
