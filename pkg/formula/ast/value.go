package ast

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind is the primitive type of a Value.
// Expressions have no automatic coercion between kinds.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindNumber
	KindBool
)

// String returns the kind name used in error messages.
func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	default:
		return "invalid"
	}
}

// Value is a number or a boolean. The zero Value is invalid.
type Value struct {
	kind Kind
	num  float64
	b    bool
}

// Number returns a numeric Value.
func Number(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

// Bool returns a boolean Value.
func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// Kind returns the primitive kind of the value.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNumber returns true if the value is a number.
func (v Value) IsNumber() bool {
	return v.kind == KindNumber
}

// IsBool returns true if the value is a boolean.
func (v Value) IsBool() bool {
	return v.kind == KindBool
}

// Float returns the numeric payload. It is 0 for non-numbers.
func (v Value) Float() float64 {
	return v.num
}

// Truth returns the boolean payload. It is false for non-booleans.
func (v Value) Truth() bool {
	return v.b
}

// Interface returns the value as float64, bool, or nil when invalid.
func (v Value) Interface() any {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	default:
		return nil
	}
}

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	default:
		return true
	}
}

// String formats numbers in their shortest round-trip form.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return "<invalid>"
	}
}

// MarshalJSON encodes the value as a JSON number or boolean.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindInvalid {
		return []byte("null"), nil
	}
	return json.Marshal(v.Interface())
}

// UnmarshalJSON decodes a JSON number or boolean. null decodes to the
// invalid zero Value; any other JSON type is an error.
func (v *Value) UnmarshalJSON(data []byte) error {
	var x any
	if err := json.Unmarshal(data, &x); err != nil {
		return err
	}
	switch t := x.(type) {
	case nil:
		*v = Value{}
	case float64:
		*v = Number(t)
	case bool:
		*v = Bool(t)
	default:
		return fmt.Errorf("cannot decode JSON %T into a formula value (want number or boolean)", x)
	}
	return nil
}

// ValueOf converts a Go value into a Value. Integer and floating point kinds
// become numbers, bool becomes a boolean. Anything else is rejected.
func ValueOf(x any) (Value, error) {
	switch t := x.(type) {
	case Value:
		if t.kind == KindInvalid {
			return Value{}, fmt.Errorf("invalid value")
		}
		return t, nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int8:
		return Number(float64(t)), nil
	case int16:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case uint:
		return Number(float64(t)), nil
	case uint8:
		return Number(float64(t)), nil
	case uint16:
		return Number(float64(t)), nil
	case uint32:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", t.String(), err)
		}
		return Number(f), nil
	default:
		return Value{}, fmt.Errorf("unsupported type %T (want number or boolean)", x)
	}
}
