package members

import (
	"fmt"
	"math"
	"strconv"

	"github.com/daimatz/jbridge/pkg/classfile"
	"github.com/daimatz/jbridge/pkg/native"
	"github.com/daimatz/jbridge/pkg/vm"
)

// Scope is the scripting scope a value is wrapped into. The package never
// looks inside it.
type Scope any

// Wrapper converts a JVM value of static type t to a script value.
type Wrapper interface {
	Wrap(scope Scope, v vm.Value, t classfile.Type) (any, error)
}

// Coercer converts a script value to a JVM value of type t. It returns an
// error wrapping ErrCoercion when no conversion exists.
type Coercer interface {
	Coerce(v any, t classfile.Type) (vm.Value, error)
}

// Dispatcher picks an overload of fn for args and calls it.
type Dispatcher interface {
	Dispatch(scope Scope, fn *Function, this vm.Value, args []any) (any, error)
}

// Host is everything a Table needs from the embedding engine.
type Host interface {
	Wrapper
	Coercer
	Dispatcher
}

// ClassShutter decides whether scripts may see a class at all.
type ClassShutter interface {
	VisibleToScripts(javaName string) bool
}

// ClassShutterFunc adapts a function to ClassShutter.
type ClassShutterFunc func(javaName string) bool

func (f ClassShutterFunc) VisibleToScripts(javaName string) bool { return f(javaName) }

// DefaultHost maps JVM values to plain Go values: bool, int, int64,
// float64, string, and *vm.JObject or *vm.JArray for other references.
// Integers box to java.lang.Integer where a reference is expected.
type DefaultHost struct {
	VM *vm.VM
}

var _ Host = DefaultHost{}

func (h DefaultHost) Wrap(_ Scope, v vm.Value, t classfile.Type) (any, error) {
	if v.IsNull() || t.IsVoid() {
		return nil, nil
	}
	switch t {
	case classfile.Boolean:
		return v.Int != 0, nil
	case classfile.Char:
		return string(rune(v.Int)), nil
	case classfile.Byte, classfile.Short, classfile.Int:
		return int(v.Int), nil
	case classfile.Long:
		return v.Long, nil
	case classfile.Float, classfile.Double:
		return v.Double, nil
	}
	if n, ok := native.UnboxInt(v); ok {
		return int(n), nil
	}
	return v.Interface(), nil
}

func (h DefaultHost) Coerce(v any, t classfile.Type) (vm.Value, error) {
	if jv, ok := v.(vm.Value); ok {
		if jv.IsNull() {
			v = nil
		} else if jv.Type != vm.TypeRef {
			if primitiveMatches(jv, t) {
				return jv, nil
			}
			v = jv.Interface()
		} else {
			v = jv.Ref
		}
	}

	switch x := v.(type) {
	case nil:
		if t.IsPrimitive() {
			return vm.Value{}, coercionError(v, t)
		}
		return vm.NullValue(), nil
	case bool:
		switch {
		case t == classfile.Boolean:
			return vm.BoolValue(x), nil
		case h.isStringTarget(t):
			return vm.RefValue(strconv.FormatBool(x)), nil
		}
	case string:
		return h.coerceString(x, t)
	case *vm.JObject:
		if n, ok := native.UnboxInt(vm.RefValue(x)); ok && t.IsPrimitive() {
			return coerceInteger(int64(n), t, v)
		}
		if t.IsReference() && vm.IsAssignable(h.loader(x.Class.Loader), t, x.Class.Type()) {
			return vm.RefValue(x), nil
		}
	case *vm.JArray:
		if t == classfile.ObjectType || t.IsArray() {
			return vm.RefValue(x), nil
		}
	default:
		if n, ok := toInt64(x); ok {
			if t.IsPrimitive() {
				return coerceInteger(n, t, v)
			}
			return h.boxInteger(n, t, v)
		}
		if f, ok := toFloat(x); ok {
			if t.IsPrimitive() {
				return coerceNumber(f, t, v)
			}
			return h.boxNumber(f, t, v)
		}
	}
	return vm.Value{}, coercionError(v, t)
}

func (h DefaultHost) loader(l vm.ClassLoader) vm.ClassLoader {
	if l != nil {
		return l
	}
	return h.VM.Loader
}

// isStringTarget reports whether a java.lang.String can be stored in t.
func (h DefaultHost) isStringTarget(t classfile.Type) bool {
	return t == classfile.StringType || (t.IsReference() && vm.IsAssignable(h.VM.Loader, t, classfile.StringType))
}

func (h DefaultHost) coerceString(s string, t classfile.Type) (vm.Value, error) {
	switch {
	case h.isStringTarget(t):
		return vm.RefValue(s), nil
	case t == classfile.Char:
		r := []rune(s)
		if len(r) == 1 {
			return vm.IntValue(int32(r[0])), nil
		}
	case t == classfile.Boolean:
		if b, err := strconv.ParseBool(s); err == nil {
			return vm.BoolValue(b), nil
		}
	case t.IsPrimitive():
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return coerceInteger(n, t, s)
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return coerceNumber(f, t, s)
		}
	}
	return vm.Value{}, coercionError(s, t)
}

// boxNumber converts a number for a reference type: integral values box
// to java.lang.Integer where one fits, other values become strings.
func (h DefaultHost) boxNumber(f float64, t classfile.Type, orig any) (vm.Value, error) {
	integral := f == math.Trunc(f) && f >= math.MinInt32 && f <= math.MaxInt32
	if integral && vm.IsAssignable(h.VM.Loader, t, classfile.ClassType(native.IntegerClass)) {
		obj, err := native.BoxInt(h.VM.Loader, int32(f))
		if err != nil {
			return vm.Value{}, fmt.Errorf("%w: %v", ErrCoercion, err)
		}
		return vm.RefValue(obj), nil
	}
	if h.isStringTarget(t) {
		return vm.RefValue(strconv.FormatFloat(f, 'g', -1, 64)), nil
	}
	return vm.Value{}, coercionError(orig, t)
}

// boxInteger is boxNumber for values that are already integers.
func (h DefaultHost) boxInteger(n int64, t classfile.Type, orig any) (vm.Value, error) {
	if n >= math.MinInt32 && n <= math.MaxInt32 && vm.IsAssignable(h.VM.Loader, t, classfile.ClassType(native.IntegerClass)) {
		obj, err := native.BoxInt(h.VM.Loader, int32(n))
		if err != nil {
			return vm.Value{}, fmt.Errorf("%w: %v", ErrCoercion, err)
		}
		return vm.RefValue(obj), nil
	}
	if h.isStringTarget(t) {
		return vm.RefValue(strconv.FormatInt(n, 10)), nil
	}
	return vm.Value{}, coercionError(orig, t)
}

// Dispatch calls the overload of fn whose parameters accept args with the
// fewest conversions. Ties go to the first overload.
func (h DefaultHost) Dispatch(scope Scope, fn *Function, this vm.Value, args []any) (any, error) {
	var best *Method
	var bestArgs []vm.Value
	bestCost := -1
	for _, m := range fn.Methods {
		if len(m.Params) != len(args) {
			continue
		}
		converted := make([]vm.Value, len(args))
		cost := 0
		ok := true
		for i, a := range args {
			v, err := h.Coerce(a, m.Params[i])
			if err != nil {
				ok = false
				break
			}
			converted[i] = v
			cost += conversionCost(a, m.Params[i])
		}
		if ok && (bestCost < 0 || cost < bestCost) {
			best, bestArgs, bestCost = m, converted, cost
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: no overload of %s accepts %d arguments %v", ErrCoercion, fn.Name, len(args), args)
	}
	v, err := best.Invoke(h.VM, this, bestArgs)
	if err != nil {
		return nil, err
	}
	return h.Wrap(scope, v, best.Return)
}

// conversionCost is 0 when a maps onto t without conversion.
func conversionCost(a any, t classfile.Type) int {
	switch x := a.(type) {
	case string:
		if t == classfile.StringType {
			return 0
		}
	case bool:
		if t == classfile.Boolean {
			return 0
		}
	case int, int32:
		if t == classfile.Int {
			return 0
		}
	case int64:
		if t == classfile.Long {
			return 0
		}
	case float64:
		if t == classfile.Double {
			return 0
		}
	case *vm.JObject:
		if x.Class.Type() == t {
			return 0
		}
	}
	return 1
}

func primitiveMatches(v vm.Value, t classfile.Type) bool {
	switch t {
	case classfile.Boolean, classfile.Byte, classfile.Char, classfile.Short, classfile.Int:
		return v.Type == vm.TypeInt
	case classfile.Long:
		return v.Type == vm.TypeLong
	case classfile.Float:
		return v.Type == vm.TypeFloat
	case classfile.Double:
		return v.Type == vm.TypeDouble
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// toInt64 converts Go integer kinds exactly. Unsigned values above
// math.MaxInt64 are left to toFloat.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint:
		if uint64(n) <= math.MaxInt64 {
			return int64(n), true
		}
	case uint64:
		if n <= math.MaxInt64 {
			return int64(n), true
		}
	}
	return 0, false
}

// coerceInteger converts n to a numeric primitive, refusing values out of
// range for the target.
func coerceInteger(n int64, t classfile.Type, orig any) (vm.Value, error) {
	in := func(lo, hi int64) bool { return n >= lo && n <= hi }
	switch t {
	case classfile.Byte:
		if in(math.MinInt8, math.MaxInt8) {
			return vm.IntValue(int32(n)), nil
		}
	case classfile.Short:
		if in(math.MinInt16, math.MaxInt16) {
			return vm.IntValue(int32(n)), nil
		}
	case classfile.Char:
		if in(0, math.MaxUint16) {
			return vm.IntValue(int32(n)), nil
		}
	case classfile.Int:
		if in(math.MinInt32, math.MaxInt32) {
			return vm.IntValue(int32(n)), nil
		}
	case classfile.Long:
		return vm.LongValue(n), nil
	case classfile.Float:
		return vm.FloatValue(float32(n)), nil
	case classfile.Double:
		return vm.DoubleValue(float64(n)), nil
	}
	return vm.Value{}, coercionError(orig, t)
}

// coerceNumber converts f to a numeric primitive, truncating toward zero
// for integral types and refusing values out of range.
func coerceNumber(f float64, t classfile.Type, orig any) (vm.Value, error) {
	integral := func(lo, hi float64) (int64, bool) {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		n := math.Trunc(f)
		if n < lo || n > hi {
			return 0, false
		}
		return int64(n), true
	}
	switch t {
	case classfile.Byte:
		if n, ok := integral(math.MinInt8, math.MaxInt8); ok {
			return vm.IntValue(int32(n)), nil
		}
	case classfile.Short:
		if n, ok := integral(math.MinInt16, math.MaxInt16); ok {
			return vm.IntValue(int32(n)), nil
		}
	case classfile.Char:
		if n, ok := integral(0, math.MaxUint16); ok {
			return vm.IntValue(int32(n)), nil
		}
	case classfile.Int:
		if n, ok := integral(math.MinInt32, math.MaxInt32); ok {
			return vm.IntValue(int32(n)), nil
		}
	case classfile.Long:
		// float64(math.MaxInt64) rounds up to 2^63, so the upper bound is
		// exclusive.
		if !math.IsNaN(f) && !math.IsInf(f, 0) {
			if n := math.Trunc(f); n >= -0x1p63 && n < 0x1p63 {
				return vm.LongValue(int64(n)), nil
			}
		}
	case classfile.Float:
		return vm.FloatValue(float32(f)), nil
	case classfile.Double:
		return vm.DoubleValue(f), nil
	}
	return vm.Value{}, coercionError(orig, t)
}

func coercionError(v any, t classfile.Type) error {
	return fmt.Errorf("%w: cannot convert %v (%T) to %s", ErrCoercion, v, v, t.JavaName())
}
