// Package runtime provides the support layer for programs compiled from
// Java sources. Generated code links against this package for its object
// model, strings, string buffers and threads.
package runtime

import (
	"fmt"
	"strconv"
)

// ValueType represents the type of a value passed through dispatch
type ValueType int

const (
	TypeNil ValueType = iota
	TypeBool
	TypeChar
	TypeInt
	TypeLong
	TypeObject
)

func (t ValueType) String() string {
	switch t {
	case TypeNil:
		return "null"
	case TypeBool:
		return "boolean"
	case TypeChar:
		return "char"
	case TypeInt:
		return "int"
	case TypeLong:
		return "long"
	case TypeObject:
		return "Object"
	default:
		return "unknown"
	}
}

// Value is the Go representation of a Java argument or return value.
// Primitives live in IntVal; references live in ObjectVal.
type Value struct {
	Type      ValueType
	IntVal    int64
	ObjectVal Object
}

// NilValue returns the null reference
func NilValue() Value {
	return Value{Type: TypeNil}
}

// BoolValue creates a boolean value
func BoolValue(b bool) Value {
	if b {
		return Value{Type: TypeBool, IntVal: 1}
	}
	return Value{Type: TypeBool, IntVal: 0}
}

// CharValue creates a char value
func CharValue(c rune) Value {
	return Value{Type: TypeChar, IntVal: int64(c)}
}

// IntValue creates a 32-bit int value
func IntValue(n int32) Value {
	return Value{Type: TypeInt, IntVal: int64(n)}
}

// LongValue creates a 64-bit long value
func LongValue(n int64) Value {
	return Value{Type: TypeLong, IntVal: n}
}

// ObjectValue creates a reference value. A nil object yields the null reference.
func ObjectValue(obj Object) Value {
	if obj == nil {
		return NilValue()
	}
	return Value{Type: TypeObject, ObjectVal: obj}
}

// IsNil returns true for the null reference
func (v Value) IsNil() bool {
	return v.Type == TypeNil || (v.Type == TypeObject && v.ObjectVal == nil)
}

// AsBool converts the value to a boolean
func (v Value) AsBool() bool {
	switch v.Type {
	case TypeBool, TypeChar, TypeInt, TypeLong:
		return v.IntVal != 0
	case TypeObject:
		return v.ObjectVal != nil
	default:
		return false
	}
}

// AsChar returns the value as a char
func (v Value) AsChar() rune {
	return rune(v.IntVal)
}

// AsInt returns the value truncated to a 32-bit int
func (v Value) AsInt() int32 {
	return int32(v.IntVal)
}

// AsLong returns the value as a 64-bit long
func (v Value) AsLong() int64 {
	return v.IntVal
}

// AsObject returns the referenced object, or nil for primitives and null
func (v Value) AsObject() Object {
	if v.Type != TypeObject {
		return nil
	}
	return v.ObjectVal
}

// primitiveText returns the canonical textual form of a primitive value.
// ok is false for object references, which must be rendered by dispatch.
func (v Value) primitiveText() (s string, ok bool) {
	switch v.Type {
	case TypeNil:
		return "null", true
	case TypeBool:
		if v.IntVal != 0 {
			return "true", true
		}
		return "false", true
	case TypeChar:
		return string(rune(v.IntVal)), true
	case TypeInt, TypeLong:
		return strconv.FormatInt(v.IntVal, 10), true
	}
	if v.ObjectVal == nil {
		return "null", true
	}
	return "", false
}

// String formats the value for diagnostics. Objects are not dispatched.
func (v Value) String() string {
	if s, ok := v.primitiveText(); ok {
		if v.Type == TypeChar {
			return strconv.QuoteRune(rune(v.IntVal))
		}
		return s
	}
	h := v.ObjectVal.ObjectHeader()
	if c := h.Class(); c != nil {
		return fmt.Sprintf("<%s@%x>", c.Name, h.IdentityHash())
	}
	return fmt.Sprintf("<unbound@%x>", h.IdentityHash())
}
