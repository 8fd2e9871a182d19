package nodetype

import (
	"fmt"
	"slices"

	"github.com/jackalope/jackalope.go/pkg/constants"
	"github.com/jackalope/jackalope.go/pkg/itempath"
	"github.com/jackalope/jackalope.go/pkg/models"
	"gopkg.in/yaml.v3"
)

// OnParentVersion is the action taken on a child item when its parent is checked in.
type OnParentVersion string

const (
	OnParentVersionCopy       OnParentVersion = "COPY"
	OnParentVersionVersion    OnParentVersion = "VERSION"
	OnParentVersionInitialize OnParentVersion = "INITIALIZE"
	OnParentVersionCompute    OnParentVersion = "COMPUTE"
	OnParentVersionIgnore     OnParentVersion = "IGNORE"
	OnParentVersionAbort      OnParentVersion = "ABORT"
)

func (o OnParentVersion) Valid() bool {
	switch o {
	case OnParentVersionCopy, OnParentVersionVersion, OnParentVersionInitialize,
		OnParentVersionCompute, OnParentVersionIgnore, OnParentVersionAbort:
		return true
	}
	return false
}

// Residual is the item name of a definition that applies to any name.
const Residual = "*"

// Definition is the editable template of a node type. Registering a Definition with a
// Manager produces an immutable NodeType.
type Definition struct {
	Name                 string                       `yaml:"name" cbor:"name"`
	Supertypes           []string                     `yaml:"supertypes,omitempty" cbor:"supertypes,omitempty"`
	Abstract             bool                         `yaml:"abstract,omitempty" cbor:"abstract,omitempty"`
	Mixin                bool                         `yaml:"mixin,omitempty" cbor:"mixin,omitempty"`
	OrderableChildNodes  bool                         `yaml:"orderableChildNodes,omitempty" cbor:"orderableChildNodes,omitempty"`
	Queryable            bool                         `yaml:"queryable" cbor:"queryable"`
	PrimaryItemName      string                       `yaml:"primaryItemName,omitempty" cbor:"primaryItemName,omitempty"`
	PropertyDefinitions  []PropertyDefinitionTemplate `yaml:"propertyDefinitions,omitempty" cbor:"propertyDefinitions,omitempty"`
	ChildNodeDefinitions []NodeDefinitionTemplate     `yaml:"childNodeDefinitions,omitempty" cbor:"childNodeDefinitions,omitempty"`
}

type PropertyDefinitionTemplate struct {
	Name                    string              `yaml:"name" cbor:"name"`
	AutoCreated             bool                `yaml:"autoCreated,omitempty" cbor:"autoCreated,omitempty"`
	Mandatory               bool                `yaml:"mandatory,omitempty" cbor:"mandatory,omitempty"`
	Protected               bool                `yaml:"protected,omitempty" cbor:"protected,omitempty"`
	OnParentVersion         OnParentVersion     `yaml:"onParentVersion,omitempty" cbor:"onParentVersion,omitempty"`
	RequiredType            models.PropertyType `yaml:"requiredType,omitempty" cbor:"requiredType,omitempty"`
	Multiple                bool                `yaml:"multiple,omitempty" cbor:"multiple,omitempty"`
	ValueConstraints        []string            `yaml:"valueConstraints,omitempty" cbor:"valueConstraints,omitempty"`
	DefaultValues           []string            `yaml:"defaultValues,omitempty" cbor:"defaultValues,omitempty"`
	FullTextSearchable      bool                `yaml:"fullTextSearchable" cbor:"fullTextSearchable"`
	QueryOrderable          bool                `yaml:"queryOrderable" cbor:"queryOrderable"`
	AvailableQueryOperators []string            `yaml:"availableQueryOperators,omitempty" cbor:"availableQueryOperators,omitempty"`
}

type NodeDefinitionTemplate struct {
	Name                 string          `yaml:"name" cbor:"name"`
	AutoCreated          bool            `yaml:"autoCreated,omitempty" cbor:"autoCreated,omitempty"`
	Mandatory            bool            `yaml:"mandatory,omitempty" cbor:"mandatory,omitempty"`
	Protected            bool            `yaml:"protected,omitempty" cbor:"protected,omitempty"`
	OnParentVersion      OnParentVersion `yaml:"onParentVersion,omitempty" cbor:"onParentVersion,omitempty"`
	RequiredPrimaryTypes []string        `yaml:"requiredPrimaryTypes,omitempty" cbor:"requiredPrimaryTypes,omitempty"`
	DefaultPrimaryType   string          `yaml:"defaultPrimaryType,omitempty" cbor:"defaultPrimaryType,omitempty"`
	SameNameSiblings     bool            `yaml:"sameNameSiblings,omitempty" cbor:"sameNameSiblings,omitempty"`
}

// NewDefinition returns an empty primary type template deriving from nt:base.
func NewDefinition(name string) *Definition {
	return &Definition{Name: name, Supertypes: []string{constants.TypeBase}}
}

func NewPropertyDefinitionTemplate(name string) PropertyDefinitionTemplate {
	return PropertyDefinitionTemplate{
		Name:            name,
		OnParentVersion: OnParentVersionCopy,
		RequiredType:    models.TypeString,
	}
}

func NewNodeDefinitionTemplate(name string) NodeDefinitionTemplate {
	return NodeDefinitionTemplate{Name: name, OnParentVersion: OnParentVersionCopy}
}

// UnmarshalYAML applies the document defaults: types are queryable unless stated otherwise.
func (d *Definition) UnmarshalYAML(node *yaml.Node) error {
	type plain Definition
	p := plain{Queryable: true}
	if err := node.Decode(&p); err != nil {
		return err
	}
	*d = Definition(p)
	return nil
}

func (t *PropertyDefinitionTemplate) UnmarshalYAML(node *yaml.Node) error {
	type plain PropertyDefinitionTemplate
	p := plain{FullTextSearchable: true, QueryOrderable: true, OnParentVersion: OnParentVersionCopy}
	if err := node.Decode(&p); err != nil {
		return err
	}
	*t = PropertyDefinitionTemplate(p)
	return nil
}

func (t *NodeDefinitionTemplate) UnmarshalYAML(node *yaml.Node) error {
	type plain NodeDefinitionTemplate
	p := plain{OnParentVersion: OnParentVersionCopy}
	if err := node.Decode(&p); err != nil {
		return err
	}
	*t = NodeDefinitionTemplate(p)
	return nil
}

// Clone returns a deep copy.
func (d *Definition) Clone() *Definition {
	c := *d
	c.Supertypes = slices.Clone(d.Supertypes)
	c.PropertyDefinitions = make([]PropertyDefinitionTemplate, len(d.PropertyDefinitions))
	for i, p := range d.PropertyDefinitions {
		p.ValueConstraints = slices.Clone(p.ValueConstraints)
		p.DefaultValues = slices.Clone(p.DefaultValues)
		p.AvailableQueryOperators = slices.Clone(p.AvailableQueryOperators)
		c.PropertyDefinitions[i] = p
	}
	c.ChildNodeDefinitions = make([]NodeDefinitionTemplate, len(d.ChildNodeDefinitions))
	for i, n := range d.ChildNodeDefinitions {
		n.RequiredPrimaryTypes = slices.Clone(n.RequiredPrimaryTypes)
		c.ChildNodeDefinitions[i] = n
	}
	return &c
}

// Validate checks a definition in isolation. Registry rules (existence, batch duplicates)
// are checked by the Manager.
func (d *Definition) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: nil definition", constants.ErrInvalidNodeTypeDefinition)
	}
	if !itempath.IsValidName(d.Name) {
		return fmt.Errorf("%w: invalid node type name %q", constants.ErrInvalidNodeTypeDefinition, d.Name)
	}

	seen := make(map[string]bool, len(d.Supertypes))
	for _, st := range d.Supertypes {
		switch {
		case !itempath.IsValidName(st):
			return fmt.Errorf("%w: %s: invalid supertype name %q", constants.ErrInvalidNodeTypeDefinition, d.Name, st)
		case st == d.Name:
			return fmt.Errorf("%w: %s declares itself as supertype", constants.ErrInvalidNodeTypeDefinition, d.Name)
		case seen[st]:
			return fmt.Errorf("%w: %s: duplicate supertype %q", constants.ErrInvalidNodeTypeDefinition, d.Name, st)
		}
		seen[st] = true
	}

	if d.PrimaryItemName != "" && !itempath.IsValidName(d.PrimaryItemName) {
		return fmt.Errorf("%w: %s: invalid primary item name %q", constants.ErrInvalidNodeTypeDefinition, d.Name, d.PrimaryItemName)
	}

	for _, p := range d.PropertyDefinitions {
		if !validItemName(p.Name) {
			return fmt.Errorf("%w: %s: invalid property definition name %q", constants.ErrInvalidNodeTypeDefinition, d.Name, p.Name)
		}
		if !p.RequiredType.Valid() {
			return fmt.Errorf("%w: %s: property %s has invalid type %d", constants.ErrInvalidNodeTypeDefinition, d.Name, p.Name, int(p.RequiredType))
		}
		if p.OnParentVersion != "" && !p.OnParentVersion.Valid() {
			return fmt.Errorf("%w: %s: property %s has invalid on-parent-version %q", constants.ErrInvalidNodeTypeDefinition, d.Name, p.Name, p.OnParentVersion)
		}
	}

	for _, n := range d.ChildNodeDefinitions {
		if !validItemName(n.Name) {
			return fmt.Errorf("%w: %s: invalid child node definition name %q", constants.ErrInvalidNodeTypeDefinition, d.Name, n.Name)
		}
		for _, rt := range n.RequiredPrimaryTypes {
			if !itempath.IsValidName(rt) {
				return fmt.Errorf("%w: %s: child %s requires invalid type %q", constants.ErrInvalidNodeTypeDefinition, d.Name, n.Name, rt)
			}
		}
		if n.DefaultPrimaryType != "" && !itempath.IsValidName(n.DefaultPrimaryType) {
			return fmt.Errorf("%w: %s: child %s has invalid default type %q", constants.ErrInvalidNodeTypeDefinition, d.Name, n.Name, n.DefaultPrimaryType)
		}
		if n.OnParentVersion != "" && !n.OnParentVersion.Valid() {
			return fmt.Errorf("%w: %s: child %s has invalid on-parent-version %q", constants.ErrInvalidNodeTypeDefinition, d.Name, n.Name, n.OnParentVersion)
		}
	}
	return nil
}

func validItemName(name string) bool {
	return name == Residual || itempath.IsValidName(name)
}
