package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// SimpleValue wraps exactly one scalar: string, int64, float64 or bool.
// The zero value is the empty string.
type SimpleValue struct {
	v interface{}
}

// NewSimpleValue normalizes Go integer kinds to int64 and float32 to float64.
// Any other type is converted to its string representation.
func NewSimpleValue(v interface{}) SimpleValue {
	switch x := v.(type) {
	case nil:
		return SimpleValue{}
	case SimpleValue:
		return x
	case string:
		return SimpleValue{v: x}
	case bool:
		return SimpleValue{v: x}
	case int:
		return SimpleValue{v: int64(x)}
	case int8:
		return SimpleValue{v: int64(x)}
	case int16:
		return SimpleValue{v: int64(x)}
	case int32:
		return SimpleValue{v: int64(x)}
	case int64:
		return SimpleValue{v: x}
	case uint:
		return SimpleValue{v: int64(x)}
	case uint32:
		return SimpleValue{v: int64(x)}
	case float32:
		return SimpleValue{v: float64(x)}
	case float64:
		return SimpleValue{v: x}
	default:
		return SimpleValue{v: fmt.Sprint(x)}
	}
}

// Value returns the wrapped scalar
func (s SimpleValue) Value() interface{} {
	if s.v == nil {
		return ""
	}
	return s.v
}

// String converts the value to its string form
func (s SimpleValue) String() string {
	switch x := s.v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// Int returns the value as int64. Strings are parsed.
func (s SimpleValue) Int() (int64, error) {
	switch x := s.v.(type) {
	case int64:
		return x, nil
	case float64:
		return int64(x), nil
	case string:
		return strconv.ParseInt(x, 10, 64)
	default:
		return 0, fmt.Errorf("value %q is not a number", s.String())
	}
}

// Float returns the value as float64. Strings are parsed.
func (s SimpleValue) Float() (float64, error) {
	switch x := s.v.(type) {
	case int64:
		return float64(x), nil
	case float64:
		return x, nil
	case string:
		return strconv.ParseFloat(x, 64)
	default:
		return 0, fmt.Errorf("value %q is not a number", s.String())
	}
}

// Bool returns the value as bool. Strings are parsed.
func (s SimpleValue) Bool() (bool, error) {
	switch x := s.v.(type) {
	case bool:
		return x, nil
	case string:
		return strconv.ParseBool(x)
	default:
		return false, fmt.Errorf("value %q is not a boolean", s.String())
	}
}

// IsEmpty reports whether the value is the empty string
func (s SimpleValue) IsEmpty() bool {
	str, ok := s.Value().(string)
	return ok && str == ""
}

// Equal compares by value; 1 and 1.0 are equal, "1" and 1 are not.
func (s SimpleValue) Equal(other SimpleValue) bool {
	a, b := s.Value(), other.Value()
	switch x := a.(type) {
	case int64:
		if y, ok := b.(float64); ok {
			return float64(x) == y
		}
	case float64:
		if y, ok := b.(int64); ok {
			return x == float64(y)
		}
	}
	return a == b
}

// MarshalJSON encodes the bare scalar
func (s SimpleValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Value())
}

// UnmarshalJSON decodes a bare scalar; whole JSON numbers become int64.
func (s *SimpleValue) UnmarshalJSON(data []byte) error {
	var raw interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if n, ok := raw.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			*s = SimpleValue{v: i}
			return nil
		}
		f, err := n.Float64()
		if err != nil {
			return err
		}
		*s = SimpleValue{v: f}
		return nil
	}
	switch raw.(type) {
	case nil, string, bool:
		*s = NewSimpleValue(raw)
		return nil
	}
	return fmt.Errorf("simple value must be a scalar, got %s", string(data))
}
