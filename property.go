package jackalope

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/jackalope/jackalope.go/pkg/constants"
	"github.com/jackalope/jackalope.go/pkg/itempath"
	"github.com/jackalope/jackalope.go/pkg/models"
)

// Property is a named single or multi-valued property of a node.
type Property struct {
	itemState
	node     *Node
	name     string
	typ      models.PropertyType
	multiple bool
	values   []any
}

func newProperty(n *Node, name string, t models.PropertyType, multiple bool, values []any, state ItemState) *Property {
	return &Property{
		itemState: itemState{session: n.session, state: state},
		node:      n,
		name:      name,
		typ:       t,
		multiple:  multiple,
		values:    values,
	}
}

func (p *Property) Path() string  { return itempath.Join(p.node.path, p.name) }
func (p *Property) Name() string  { return p.name }
func (p *Property) Depth() int    { return itempath.Depth(p.Path()) }
func (p *Property) IsNode() bool  { return false }
func (p *Property) Parent() *Node { return p.node }

func (p *Property) Type() models.PropertyType { return p.typ }
func (p *Property) IsMultiple() bool          { return p.multiple }

// Native returns the normalized value, or a []any copy for multi-valued properties.
func (p *Property) Native() any {
	if p.multiple {
		return slices.Clone(p.values)
	}
	if len(p.values) == 0 {
		return nil
	}
	return p.values[0]
}

// Value returns the value of a single-valued property.
func (p *Property) Value() (Value, error) {
	if p.multiple {
		return Value{}, fmt.Errorf("%w: %s is multi-valued", constants.ErrValueFormat, p.Path())
	}
	if len(p.values) == 0 {
		return Value{}, fmt.Errorf("%w: %s has no value", constants.ErrValueFormat, p.Path())
	}
	return Value{typ: p.typ, native: p.values[0]}, nil
}

// Values returns the values of a multi-valued property.
func (p *Property) Values() ([]Value, error) {
	if !p.multiple {
		return nil, fmt.Errorf("%w: %s is single-valued", constants.ErrValueFormat, p.Path())
	}
	out := make([]Value, len(p.values))
	for i, v := range p.values {
		out[i] = Value{typ: p.typ, native: v}
	}
	return out, nil
}

func (p *Property) String() (string, error) {
	v, err := p.Value()
	if err != nil {
		return "", err
	}
	return v.AsString()
}

func (p *Property) Long() (int64, error) {
	v, err := p.Value()
	if err != nil {
		return 0, err
	}
	return v.AsLong()
}

func (p *Property) Double() (float64, error) {
	v, err := p.Value()
	if err != nil {
		return 0, err
	}
	return v.AsDouble()
}

func (p *Property) Boolean() (bool, error) {
	v, err := p.Value()
	if err != nil {
		return false, err
	}
	return v.AsBoolean()
}

func (p *Property) Date() (time.Time, error) {
	v, err := p.Value()
	if err != nil {
		return time.Time{}, err
	}
	return v.AsDate()
}

func (p *Property) Binary() ([]byte, error) {
	v, err := p.Value()
	if err != nil {
		return nil, err
	}
	return v.AsBinary()
}

// Length is the byte length of the value, as JCR defines it for binaries and strings.
func (p *Property) Length() (int64, error) {
	v, err := p.Value()
	if err != nil {
		return 0, err
	}
	if b, ok := v.native.([]byte); ok {
		return int64(len(b)), nil
	}
	s, err := v.AsString()
	return int64(len(s)), err
}

// Node dereferences a Reference, WeakReference or Path property.
func (p *Property) Node(ctx context.Context) (*Node, error) {
	v, err := p.Value()
	if err != nil {
		return nil, err
	}
	switch p.typ {
	case models.TypeReference, models.TypeWeakReference:
		return p.session.NodeByIdentifier(ctx, v.native.(string))
	case models.TypePath:
		target, err := itempath.Absolute(p.node.path, v.native.(string))
		if err != nil {
			return nil, err
		}
		return p.session.Node(ctx, target)
	}
	return nil, fmt.Errorf("%w: %s is a %s property", constants.ErrValueFormat, p.Path(), p.typ)
}

// SetValue replaces the value. It behaves like Node.SetProperty on the owning node.
func (p *Property) SetValue(value any) error {
	if err := p.checkUsable(p.Path()); err != nil {
		return err
	}
	_, err := p.node.SetProperty(p.name, value)
	return err
}

// Remove removes the property from its node.
func (p *Property) Remove() error {
	if err := p.checkUsable(p.Path()); err != nil {
		return err
	}
	_, err := p.node.SetProperty(p.name, nil)
	return err
}
