package models

import (
	"fmt"
	"strings"

	"github.com/jackalope/jackalope.go/pkg/constants"
)

// PropertyType is the value type of a property, numbered as in JCR.
type PropertyType int

const (
	TypeUndefined PropertyType = iota
	TypeString
	TypeBinary
	TypeLong
	TypeDouble
	TypeDate
	TypeBoolean
	TypeName
	TypePath
	TypeReference
	TypeWeakReference
	TypeURI
	TypeDecimal
)

var propertyTypeNames = [...]string{
	TypeUndefined:     "undefined",
	TypeString:        "String",
	TypeBinary:        "Binary",
	TypeLong:          "Long",
	TypeDouble:        "Double",
	TypeDate:          "Date",
	TypeBoolean:       "Boolean",
	TypeName:          "Name",
	TypePath:          "Path",
	TypeReference:     "Reference",
	TypeWeakReference: "WeakReference",
	TypeURI:           "URI",
	TypeDecimal:       "Decimal",
}

func (t PropertyType) String() string {
	if t < 0 || int(t) >= len(propertyTypeNames) {
		return fmt.Sprintf("PropertyType(%d)", int(t))
	}
	return propertyTypeNames[t]
}

func (t PropertyType) Valid() bool {
	return t >= TypeUndefined && t <= TypeDecimal
}

// ParsePropertyType resolves a type name case-insensitively. "undefined" and "*" both map to
// TypeUndefined.
func ParsePropertyType(name string) (PropertyType, error) {
	name = strings.TrimSpace(name)
	if name == "*" {
		return TypeUndefined, nil
	}
	for i, n := range propertyTypeNames {
		if strings.EqualFold(n, name) {
			return PropertyType(i), nil
		}
	}
	return TypeUndefined, fmt.Errorf("%w: unknown property type %q", constants.ErrValueFormat, name)
}

func (t PropertyType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *PropertyType) UnmarshalText(text []byte) error {
	parsed, err := ParsePropertyType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
