package vm

import (
	"fmt"

	"github.com/daimatz/jbridge/pkg/classfile"
)

// ValueType represents the type of a Value on the stack or in local variables.
type ValueType int

const (
	TypeInt ValueType = iota // also boolean, byte, char and short
	TypeLong
	TypeFloat
	TypeDouble
	TypeRef
	TypeNull
)

func (t ValueType) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeLong:
		return "long"
	case TypeFloat:
		return "float"
	case TypeDouble:
		return "double"
	case TypeRef:
		return "ref"
	case TypeNull:
		return "null"
	}
	return fmt.Sprintf("ValueType(%d)", int(t))
}

// Value represents a value on the operand stack, in a local variable or in a
// field slot. Float values are kept in Double.
type Value struct {
	Type   ValueType
	Int    int32
	Long   int64
	Double float64
	Ref    any
}

// IntValue creates an integer Value.
func IntValue(v int32) Value {
	return Value{Type: TypeInt, Int: v}
}

// BoolValue creates the int Value the JVM uses for booleans.
func BoolValue(b bool) Value {
	if b {
		return IntValue(1)
	}
	return IntValue(0)
}

func LongValue(v int64) Value {
	return Value{Type: TypeLong, Long: v}
}

func FloatValue(v float32) Value {
	return Value{Type: TypeFloat, Double: float64(v)}
}

func DoubleValue(v float64) Value {
	return Value{Type: TypeDouble, Double: v}
}

// RefValue creates a reference Value. A nil ref yields NullValue.
func RefValue(ref any) Value {
	if ref == nil {
		return NullValue()
	}
	return Value{Type: TypeRef, Ref: ref}
}

// NullValue creates a null reference Value.
func NullValue() Value {
	return Value{Type: TypeNull}
}

func (v Value) IsNull() bool {
	return v.Type == TypeNull || (v.Type == TypeRef && v.Ref == nil)
}

// Wide reports whether v occupies two local variable slots.
func (v Value) Wide() bool {
	return v.Type == TypeLong || v.Type == TypeDouble
}

// ZeroValue returns the default value of a field of type t.
func ZeroValue(t classfile.Type) Value {
	switch t {
	case classfile.Long:
		return LongValue(0)
	case classfile.Float:
		return FloatValue(0)
	case classfile.Double:
		return DoubleValue(0)
	case classfile.Boolean, classfile.Byte, classfile.Char, classfile.Short, classfile.Int:
		return IntValue(0)
	}
	return NullValue()
}

// Interface converts v to a plain Go value: int32, int64, float32, float64,
// the referenced object, or nil.
func (v Value) Interface() any {
	switch v.Type {
	case TypeInt:
		return v.Int
	case TypeLong:
		return v.Long
	case TypeFloat:
		return float32(v.Double)
	case TypeDouble:
		return v.Double
	case TypeRef:
		return v.Ref
	}
	return nil
}

func (v Value) String() string {
	switch v.Type {
	case TypeNull:
		return "null"
	case TypeRef:
		if o, ok := v.Ref.(*JObject); ok {
			return o.String()
		}
		return fmt.Sprint(v.Ref)
	}
	return fmt.Sprint(v.Interface())
}
