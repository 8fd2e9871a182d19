package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jackalope/jackalope.go/pkg/constants"
)

// DateLayout is the wire form of Date values.
const DateLayout = time.RFC3339Nano

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// InferType maps the native shape of v to a property type. Unknown shapes yield TypeUndefined.
func InferType(v any) PropertyType {
	switch v.(type) {
	case string:
		return TypeString
	case bool:
		return TypeBoolean
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return TypeLong
	case float32, float64:
		return TypeDouble
	case time.Time, *time.Time:
		return TypeDate
	case []byte:
		return TypeBinary
	default:
		return TypeUndefined
	}
}

// Convert turns v into the normalized Go form of t:
//
//	String, Name, Path, Reference, WeakReference, URI, Decimal -> string
//	Binary -> []byte
//	Long -> int64
//	Double -> float64
//	Boolean -> bool
//	Date -> time.Time
//
// TypeUndefined infers the type from v first.
func Convert(v any, t PropertyType) (any, error) {
	if t == TypeUndefined {
		t = InferType(v)
		if t == TypeUndefined {
			return nil, fmt.Errorf("%w: cannot infer a property type for %T", constants.ErrValueFormat, v)
		}
	}
	if p, ok := v.(*time.Time); ok {
		if p == nil {
			return nil, fmt.Errorf("%w: nil date", constants.ErrValueFormat)
		}
		v = *p
	}

	switch t {
	case TypeString, TypeName, TypePath, TypeReference, TypeWeakReference, TypeURI, TypeDecimal:
		return toString(v, t)
	case TypeBinary:
		switch val := v.(type) {
		case []byte:
			return val, nil
		case string:
			return []byte(val), nil
		}
	case TypeLong:
		return toLong(v)
	case TypeDouble:
		return toDouble(v)
	case TypeBoolean:
		switch val := v.(type) {
		case bool:
			return val, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(val))
			if err != nil {
				return nil, fmt.Errorf("%w: %q is not a boolean", constants.ErrValueFormat, val)
			}
			return b, nil
		}
	case TypeDate:
		return toDate(v)
	}
	return nil, fmt.Errorf("%w: cannot convert %T to %s", constants.ErrValueFormat, v, t)
}

// ConvertAll converts every element of values to t.
func ConvertAll(values []any, t PropertyType) ([]any, error) {
	out := make([]any, len(values))
	for i, v := range values {
		c, err := Convert(v, t)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

// FormatDate renders a date the way it travels on the wire.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate accepts ISO-8601 timestamps with or without fraction and zone, and plain dates.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q is not a date", constants.ErrValueFormat, s)
}

func toString(v any, t PropertyType) (any, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case []byte:
		return string(val), nil
	case bool:
		return strconv.FormatBool(val), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64), nil
	case time.Time:
		return FormatDate(val), nil
	}
	if i, ok := asInt64(v); ok {
		return strconv.FormatInt(i, 10), nil
	}
	return nil, fmt.Errorf("%w: cannot convert %T to %s", constants.ErrValueFormat, v, t)
}

func toLong(v any) (any, error) {
	if i, ok := asInt64(v); ok {
		return i, nil
	}
	switch val := v.(type) {
	case float32:
		return int64(val), nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil, fmt.Errorf("%w: %v is not a long", constants.ErrValueFormat, val)
		}
		return int64(val), nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a long", constants.ErrValueFormat, val)
		}
		return i, nil
	case time.Time:
		return val.UnixMilli(), nil
	}
	return nil, fmt.Errorf("%w: cannot convert %T to Long", constants.ErrValueFormat, v)
}

func toDouble(v any) (any, error) {
	switch val := v.(type) {
	case float32:
		return float64(val), nil
	case float64:
		return val, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a double", constants.ErrValueFormat, val)
		}
		return f, nil
	case time.Time:
		return float64(val.UnixMilli()), nil
	}
	if i, ok := asInt64(v); ok {
		return float64(i), nil
	}
	return nil, fmt.Errorf("%w: cannot convert %T to Double", constants.ErrValueFormat, v)
}

func toDate(v any) (any, error) {
	switch val := v.(type) {
	case time.Time:
		return val, nil
	case string:
		return ParseDate(val)
	}
	if i, ok := asInt64(v); ok {
		return time.UnixMilli(i).UTC(), nil
	}
	return nil, fmt.Errorf("%w: cannot convert %T to Date", constants.ErrValueFormat, v)
}

func asInt64(v any) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int8:
		return int64(val), true
	case int16:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case uint:
		return int64(val), uint64(val) <= math.MaxInt64
	case uint8:
		return int64(val), true
	case uint16:
		return int64(val), true
	case uint32:
		return int64(val), true
	case uint64:
		return int64(val), val <= math.MaxInt64
	}
	return 0, false
}
