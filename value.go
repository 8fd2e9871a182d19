package jackalope

import (
	"fmt"
	"reflect"
	"time"

	"github.com/jackalope/jackalope.go/pkg/constants"
	"github.com/jackalope/jackalope.go/pkg/models"
)

// Value is a typed property value. The native form follows models.Convert.
type Value struct {
	typ    models.PropertyType
	native any
}

func (v Value) Type() models.PropertyType { return v.typ }
func (v Value) Native() any               { return v.native }

func (v Value) String() string {
	s, err := v.AsString()
	if err != nil {
		return fmt.Sprint(v.native)
	}
	return s
}

func (v Value) AsString() (string, error) {
	s, err := models.Convert(v.native, models.TypeString)
	if err != nil {
		return "", err
	}
	return s.(string), nil
}

func (v Value) AsLong() (int64, error) {
	l, err := models.Convert(v.native, models.TypeLong)
	if err != nil {
		return 0, err
	}
	return l.(int64), nil
}

func (v Value) AsDouble() (float64, error) {
	d, err := models.Convert(v.native, models.TypeDouble)
	if err != nil {
		return 0, err
	}
	return d.(float64), nil
}

func (v Value) AsBoolean() (bool, error) {
	b, err := models.Convert(v.native, models.TypeBoolean)
	if err != nil {
		return false, err
	}
	return b.(bool), nil
}

func (v Value) AsDate() (time.Time, error) {
	d, err := models.Convert(v.native, models.TypeDate)
	if err != nil {
		return time.Time{}, err
	}
	return d.(time.Time), nil
}

func (v Value) AsBinary() ([]byte, error) {
	b, err := models.Convert(v.native, models.TypeBinary)
	if err != nil {
		return nil, err
	}
	return b.([]byte), nil
}

// ValueFactory creates typed values from native Go values.
type ValueFactory struct{}

// CreateValue infers the type from the native shape of raw. A *Node becomes a Reference to
// its identifier.
func (f ValueFactory) CreateValue(raw any) (Value, error) {
	return f.CreateValueOfType(raw, models.TypeUndefined)
}

// CreateValueOfType converts raw into the normalized form of t.
func (ValueFactory) CreateValueOfType(raw any, t models.PropertyType) (Value, error) {
	switch v := raw.(type) {
	case Value:
		if t != models.TypeUndefined && t != v.typ {
			return Value{}, fmt.Errorf("convert %s value to %s: %w", v.typ, t, constants.ErrNotImplemented)
		}
		return v, nil
	case *Node:
		if t == models.TypeUndefined {
			t = models.TypeReference
		}
		if t != models.TypeReference && t != models.TypeWeakReference && t != models.TypePath {
			return Value{}, fmt.Errorf("%w: a node cannot be stored as %s", constants.ErrValueFormat, t)
		}
		if t == models.TypePath {
			return Value{typ: t, native: v.Path()}, nil
		}
		if v.Identifier() == "" {
			return Value{}, fmt.Errorf("%w: node %s is not referenceable", constants.ErrValueFormat, v.Path())
		}
		return Value{typ: t, native: v.Identifier()}, nil
	}
	if t == models.TypeUndefined {
		t = models.InferType(raw)
	}
	native, err := models.Convert(raw, t)
	if err != nil {
		return Value{}, err
	}
	return Value{typ: t, native: native}, nil
}

// expandValues flattens the argument of SetProperty. Slices other than []byte are
// multi-valued.
func expandValues(value any) ([]any, bool) {
	switch v := value.(type) {
	case []byte:
		return []any{v}, false
	case []any:
		return v, true
	case []Value:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{value}, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
