package vm

import (
	"errors"
	"fmt"
	"math"

	"github.com/daimatz/jbridge/pkg/classfile"
)

// Opcodes
const (
	OpNop         = 0x00
	OpAconstNull  = 0x01
	OpIconstM1    = 0x02
	OpIconst5     = 0x08
	OpLconst0     = 0x09
	OpLconst1     = 0x0A
	OpFconst0     = 0x0B
	OpFconst2     = 0x0D
	OpDconst0     = 0x0E
	OpDconst1     = 0x0F
	OpBipush      = 0x10
	OpSipush      = 0x11
	OpLdc         = 0x12
	OpLdcW        = 0x13
	OpLdc2W       = 0x14
	OpIload       = 0x15
	OpAload       = 0x19
	OpIload0      = 0x1A
	OpAload3      = 0x2D
	OpIaload      = 0x2E
	OpSaload      = 0x35
	OpIstore      = 0x36
	OpAstore      = 0x3A
	OpIstore0     = 0x3B
	OpAstore3     = 0x4E
	OpIastore     = 0x4F
	OpSastore     = 0x56
	OpPop         = 0x57
	OpPop2        = 0x58
	OpDup         = 0x59
	OpDupX1       = 0x5A
	OpDup2        = 0x5C
	OpSwap        = 0x5F
	OpIadd        = 0x60
	OpLadd        = 0x61
	OpFadd        = 0x62
	OpDadd        = 0x63
	OpIsub        = 0x64
	OpLsub        = 0x65
	OpFsub        = 0x66
	OpDsub        = 0x67
	OpImul        = 0x68
	OpLmul        = 0x69
	OpFmul        = 0x6A
	OpDmul        = 0x6B
	OpIdiv        = 0x6C
	OpLdiv        = 0x6D
	OpFdiv        = 0x6E
	OpDdiv        = 0x6F
	OpIrem        = 0x70
	OpLrem        = 0x71
	OpIneg        = 0x74
	OpLneg        = 0x75
	OpFneg        = 0x76
	OpDneg        = 0x77
	OpIshl        = 0x78
	OpIshr        = 0x7A
	OpIushr       = 0x7C
	OpIand        = 0x7E
	OpIor         = 0x80
	OpIxor        = 0x82
	OpIinc        = 0x84
	OpI2l         = 0x85
	OpI2f         = 0x86
	OpI2d         = 0x87
	OpL2i         = 0x88
	OpF2i         = 0x8B
	OpD2i         = 0x8E
	OpD2l         = 0x8F
	OpI2b         = 0x91
	OpI2c         = 0x92
	OpI2s         = 0x93
	OpLcmp        = 0x94
	OpFcmpl       = 0x95
	OpDcmpg       = 0x98
	OpIfeq        = 0x99
	OpIfle        = 0x9E
	OpIfIcmpeq    = 0x9F
	OpIfIcmple    = 0xA4
	OpIfAcmpeq    = 0xA5
	OpIfAcmpne    = 0xA6
	OpGoto        = 0xA7
	OpIreturn     = 0xAC
	OpLreturn     = 0xAD
	OpFreturn     = 0xAE
	OpDreturn     = 0xAF
	OpAreturn     = 0xB0
	OpReturn      = 0xB1
	OpGetstatic   = 0xB2
	OpPutstatic   = 0xB3
	OpGetfield    = 0xB4
	OpPutfield    = 0xB5
	OpInvokevirt  = 0xB6
	OpInvokespec  = 0xB7
	OpInvokestat  = 0xB8
	OpInvokeiface = 0xB9
	OpNew         = 0xBB
	OpNewarray    = 0xBC
	OpAnewarray   = 0xBD
	OpArraylength = 0xBE
	OpAthrow      = 0xBF
	OpCheckcast   = 0xC0
	OpInstanceof  = 0xC1
	OpIfnull      = 0xC6
	OpIfnonnull   = 0xC7
)

// errUnsupported marks opcodes the interpreter does not implement.
var errUnsupported = errors.New("vm: unsupported opcode")

// execute runs frame until a return instruction. A JavaException raised by
// an instruction is routed to the matching handler of the method, if any.
func (t *thread) execute(frame *Frame) (Value, error) {
	for frame.PC < len(frame.Code) {
		start := frame.PC
		op := frame.ReadU8()
		ret, done, err := t.step(frame, start, op)
		if err != nil {
			var ex *JavaException
			if errors.As(err, &ex) {
				if pc := t.handlerFor(frame, start, ex); pc >= 0 {
					frame.SP = 0
					frame.Push(exceptionRef(ex))
					frame.PC = pc
					continue
				}
			}
			return Value{}, err
		}
		if done {
			return ret, nil
		}
	}
	// Fell off the end of the method (implicit return for void methods)
	return Value{}, nil
}

func exceptionRef(ex *JavaException) Value {
	if ex.Object != nil {
		return RefValue(ex.Object)
	}
	return RefValue(ex)
}

func cmp[T int32 | int64 | float64](a, b T) int32 {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func branch(cond int32, op byte, base byte) bool {
	switch op - base {
	case 0:
		return cond == 0
	case 1:
		return cond != 0
	case 2:
		return cond < 0
	case 3:
		return cond >= 0
	case 4:
		return cond > 0
	default:
		return cond <= 0
	}
}

// localKind lists value types in the order opcode families use: i, l, f, d, a.
var localKind = [5]ValueType{TypeInt, TypeLong, TypeFloat, TypeDouble, TypeRef}

func (t *thread) step(f *Frame, start int, op byte) (Value, bool, error) {
	switch {
	case op == OpNop:
	case op == OpAconstNull:
		f.Push(NullValue())
	case op >= OpIconstM1 && op <= OpIconst5:
		f.Push(IntValue(int32(op) - 3))
	case op == OpLconst0 || op == OpLconst1:
		f.Push(LongValue(int64(op - OpLconst0)))
	case op >= OpFconst0 && op <= OpFconst2:
		f.Push(FloatValue(float32(op - OpFconst0)))
	case op == OpDconst0 || op == OpDconst1:
		f.Push(DoubleValue(float64(op - OpDconst0)))
	case op == OpBipush:
		f.Push(IntValue(int32(f.ReadI8())))
	case op == OpSipush:
		f.Push(IntValue(int32(f.ReadI16())))
	case op == OpLdc:
		return Value{}, false, t.ldc(f, uint16(f.ReadU8()))
	case op == OpLdcW || op == OpLdc2W:
		return Value{}, false, t.ldc(f, f.ReadU16())

	case op >= OpIload && op <= OpAload:
		f.Push(f.GetLocal(int(f.ReadU8())))
	case op >= OpIload0 && op <= OpAload3:
		f.Push(f.GetLocal(int(op-OpIload0) % 4))
	case op >= OpIstore && op <= OpAstore:
		f.SetLocal(int(f.ReadU8()), f.Pop())
	case op >= OpIstore0 && op <= OpAstore3:
		f.SetLocal(int(op-OpIstore0)%4, f.Pop())

	case op >= OpIaload && op <= OpSaload:
		index := f.Pop().Int
		arr, err := arrayRef(f.Pop())
		if err != nil {
			return Value{}, false, err
		}
		if index < 0 || int(index) >= len(arr.Elements) {
			return Value{}, false, Throwf("java/lang/ArrayIndexOutOfBoundsException", "%d", index)
		}
		f.Push(arr.Elements[index])
	case op >= OpIastore && op <= OpSastore:
		v := f.Pop()
		index := f.Pop().Int
		arr, err := arrayRef(f.Pop())
		if err != nil {
			return Value{}, false, err
		}
		if index < 0 || int(index) >= len(arr.Elements) {
			return Value{}, false, Throwf("java/lang/ArrayIndexOutOfBoundsException", "%d", index)
		}
		arr.Elements[index] = v

	case op == OpPop:
		f.Pop()
	case op == OpPop2:
		if v := f.Pop(); !v.Wide() {
			f.Pop()
		}
	case op == OpDup:
		f.Push(f.Peek())
	case op == OpDupX1:
		v1, v2 := f.Pop(), f.Pop()
		f.Push(v1)
		f.Push(v2)
		f.Push(v1)
	case op == OpDup2:
		v1 := f.Pop()
		if v1.Wide() {
			f.Push(v1)
			f.Push(v1)
			break
		}
		v2 := f.Pop()
		f.Push(v2)
		f.Push(v1)
		f.Push(v2)
		f.Push(v1)
	case op == OpSwap:
		v1, v2 := f.Pop(), f.Pop()
		f.Push(v1)
		f.Push(v2)

	case op >= OpIadd && op <= OpDneg:
		return Value{}, false, arith(f, op)
	case op >= OpIshl && op <= 0x83:
		return Value{}, false, bitwise(f, op)
	case op == OpIinc:
		index := int(f.ReadU8())
		delta := int32(f.ReadI8())
		f.SetLocal(index, IntValue(f.GetLocal(index).Int+delta))
	case op >= OpI2l && op <= OpI2s:
		convert(f, op)

	case op == OpLcmp:
		b, a := f.Pop().Long, f.Pop().Long
		f.Push(IntValue(cmp(a, b)))
	case op >= OpFcmpl && op <= OpDcmpg:
		b, a := f.Pop().Double, f.Pop().Double
		switch {
		case math.IsNaN(a) || math.IsNaN(b):
			// fcmpg/dcmpg push 1 on NaN, fcmpl/dcmpl push -1
			if (op-OpFcmpl)%2 == 1 {
				f.Push(IntValue(1))
			} else {
				f.Push(IntValue(-1))
			}
		default:
			f.Push(IntValue(cmp(a, b)))
		}

	case op >= OpIfeq && op <= OpIfle:
		offset := f.ReadI16()
		if branch(f.Pop().Int, op, OpIfeq) {
			f.PC = start + int(offset)
		}
	case op >= OpIfIcmpeq && op <= OpIfIcmple:
		offset := f.ReadI16()
		b, a := f.Pop().Int, f.Pop().Int
		if branch(cmp(a, b), op, OpIfIcmpeq) {
			f.PC = start + int(offset)
		}
	case op == OpIfAcmpeq || op == OpIfAcmpne:
		offset := f.ReadI16()
		b, a := f.Pop(), f.Pop()
		same := (a.IsNull() && b.IsNull()) || (!a.IsNull() && !b.IsNull() && a.Ref == b.Ref)
		if same == (op == OpIfAcmpeq) {
			f.PC = start + int(offset)
		}
	case op == OpIfnull || op == OpIfnonnull:
		offset := f.ReadI16()
		if f.Pop().IsNull() == (op == OpIfnull) {
			f.PC = start + int(offset)
		}
	case op == OpGoto:
		f.PC = start + int(f.ReadI16())

	case op >= OpIreturn && op <= OpAreturn:
		return f.Pop(), true, nil
	case op == OpReturn:
		return Value{}, true, nil

	case op == OpGetstatic || op == OpGetfield:
		field, err := t.resolveField(f, f.ReadU16())
		if err != nil {
			return Value{}, false, err
		}
		this := NullValue()
		if op == OpGetfield {
			this = f.Pop()
		}
		v, err := field.Get(this)
		if err != nil {
			return Value{}, false, err
		}
		f.Push(v)
	case op == OpPutstatic || op == OpPutfield:
		field, err := t.resolveField(f, f.ReadU16())
		if err != nil {
			return Value{}, false, err
		}
		v := f.Pop()
		this := NullValue()
		if op == OpPutfield {
			this = f.Pop()
		}
		if err := field.store(this, v); err != nil {
			return Value{}, false, err
		}

	case op >= OpInvokevirt && op <= OpInvokeiface:
		return Value{}, false, t.invokeOp(f, op)

	case op == OpNew:
		name, err := classfile.GetClassName(f.Pool(), f.ReadU16())
		if err != nil {
			return Value{}, false, fmt.Errorf("new: %w", err)
		}
		c, err := t.resolveClass(f, name)
		if err != nil {
			return Value{}, false, err
		}
		if c.IsAbstract() || c.IsInterface() {
			return Value{}, false, Throwf("java/lang/InstantiationError", "%s", c.JavaName())
		}
		f.Push(RefValue(NewObject(c)))
	case op == OpNewarray || op == OpAnewarray:
		zero := NullValue()
		if op == OpNewarray {
			zero = ZeroValue(newarrayTypes[f.ReadU8()])
		} else {
			f.ReadU16()
		}
		n := f.Pop().Int
		if n < 0 {
			return Value{}, false, Throwf("java/lang/NegativeArraySizeException", "%d", n)
		}
		arr := &JArray{Elements: make([]Value, n)}
		for i := range arr.Elements {
			arr.Elements[i] = zero
		}
		f.Push(RefValue(arr))
	case op == OpArraylength:
		arr, err := arrayRef(f.Pop())
		if err != nil {
			return Value{}, false, err
		}
		f.Push(IntValue(int32(len(arr.Elements))))

	case op == OpAthrow:
		v := f.Pop()
		if v.IsNull() {
			return Value{}, false, Throwf("java/lang/NullPointerException", "athrow")
		}
		switch r := v.Ref.(type) {
		case *JObject:
			return Value{}, false, &JavaException{ClassName: r.Class.Name, Object: r}
		case *JavaException:
			return Value{}, false, r
		}
		return Value{}, false, fmt.Errorf("athrow: %v is not throwable", v)
	case op == OpCheckcast || op == OpInstanceof:
		name, err := classfile.GetClassName(f.Pool(), f.ReadU16())
		if err != nil {
			return Value{}, false, err
		}
		v := f.Pop()
		ok, err := t.instanceOf(f, v, name)
		if err != nil {
			return Value{}, false, err
		}
		if op == OpInstanceof {
			f.Push(BoolValue(ok))
			break
		}
		if !ok && !v.IsNull() {
			return Value{}, false, Throwf("java/lang/ClassCastException", "%v cannot be cast to %s", v, name)
		}
		f.Push(v)

	default:
		return Value{}, false, fmt.Errorf("%w 0x%02X at pc %d in %s", errUnsupported, op, start, f.Method)
	}
	return Value{}, false, nil
}

var newarrayTypes = map[uint8]classfile.Type{
	4: classfile.Boolean, 5: classfile.Char, 6: classfile.Float, 7: classfile.Double,
	8: classfile.Byte, 9: classfile.Short, 10: classfile.Int, 11: classfile.Long,
}

func arrayRef(v Value) (*JArray, error) {
	if v.IsNull() {
		return nil, Throwf("java/lang/NullPointerException", "array is null")
	}
	arr, ok := v.Ref.(*JArray)
	if !ok {
		return nil, fmt.Errorf("expected array, got %v", v)
	}
	return arr, nil
}

func (t *thread) ldc(f *Frame, index uint16) error {
	v, err := constantValue(f.Pool(), index)
	if err != nil {
		return fmt.Errorf("ldc: %w", err)
	}
	f.Push(v)
	return nil
}

func (t *thread) instanceOf(f *Frame, v Value, name string) (bool, error) {
	if v.IsNull() {
		return false, nil
	}
	if _, isArr := v.Ref.(*JArray); isArr {
		return name[0] == '[' || name == "java/lang/Object", nil
	}
	rc := ClassOf(t.loaderFor(f), v.Ref)
	if rc == nil {
		return name == "java/lang/Object", nil
	}
	target, err := t.resolveClass(f, name)
	if err != nil {
		return false, err
	}
	return target.IsAssignableFrom(rc), nil
}

func (t *thread) invokeOp(f *Frame, op byte) error {
	m, err := t.resolveMethod(f, f.ReadU16())
	if err != nil {
		return err
	}
	if op == OpInvokeiface {
		f.ReadU16() // count and a zero byte
	}
	args := make([]Value, len(m.Params))
	for i := len(args) - 1; i >= 0; i-- {
		args[i] = f.Pop()
	}
	this := NullValue()
	if op != OpInvokestat {
		this = f.Pop()
	}
	ret, err := t.invoke(m, this, args, op != OpInvokespec)
	if err != nil {
		return err
	}
	if !m.Return.IsVoid() {
		f.Push(ret)
	}
	return nil
}

func arith(f *Frame, op byte) error {
	// negation takes one operand
	if op >= OpIneg {
		v := f.Pop()
		switch op {
		case OpIneg:
			f.Push(IntValue(-v.Int))
		case OpLneg:
			f.Push(LongValue(-v.Long))
		case OpFneg:
			f.Push(FloatValue(-float32(v.Double)))
		case OpDneg:
			f.Push(DoubleValue(-v.Double))
		}
		return nil
	}
	b, a := f.Pop(), f.Pop()
	kind := localKind[(op-OpIadd)%4]
	group := (op - OpIadd) / 4 // add, sub, mul, div, rem
	switch kind {
	case TypeInt:
		x, y := a.Int, b.Int
		if group >= 3 && y == 0 {
			return Throwf("java/lang/ArithmeticException", "/ by zero")
		}
		var r int32
		switch group {
		case 0:
			r = x + y
		case 1:
			r = x - y
		case 2:
			r = x * y
		case 3:
			r = x / y
		default:
			r = x % y
		}
		f.Push(IntValue(r))
	case TypeLong:
		x, y := a.Long, b.Long
		if group >= 3 && y == 0 {
			return Throwf("java/lang/ArithmeticException", "/ by zero")
		}
		var r int64
		switch group {
		case 0:
			r = x + y
		case 1:
			r = x - y
		case 2:
			r = x * y
		case 3:
			r = x / y
		default:
			r = x % y
		}
		f.Push(LongValue(r))
	default:
		x, y := a.Double, b.Double
		var r float64
		switch group {
		case 0:
			r = x + y
		case 1:
			r = x - y
		case 2:
			r = x * y
		case 3:
			r = x / y
		default:
			r = math.Mod(x, y)
		}
		if kind == TypeFloat {
			f.Push(FloatValue(float32(r)))
		} else {
			f.Push(DoubleValue(r))
		}
	}
	return nil
}

func bitwise(f *Frame, op byte) error {
	b, a := f.Pop(), f.Pop()
	if (op-OpIshl)%2 == 1 {
		// long variants: shifts take an int count
		x := a.Long
		var r int64
		switch op {
		case 0x79:
			r = x << (b.Int & 0x3F)
		case 0x7B:
			r = x >> (b.Int & 0x3F)
		case 0x7D:
			r = int64(uint64(x) >> (b.Int & 0x3F))
		case 0x7F:
			r = x & b.Long
		case 0x81:
			r = x | b.Long
		case 0x83:
			r = x ^ b.Long
		}
		f.Push(LongValue(r))
		return nil
	}
	x, y := a.Int, b.Int
	var r int32
	switch op {
	case OpIshl:
		r = x << (y & 0x1F)
	case OpIshr:
		r = x >> (y & 0x1F)
	case OpIushr:
		r = int32(uint32(x) >> (y & 0x1F))
	case OpIand:
		r = x & y
	case OpIor:
		r = x | y
	case OpIxor:
		r = x ^ y
	}
	f.Push(IntValue(r))
	return nil
}

func convert(f *Frame, op byte) {
	v := f.Pop()
	switch op {
	case OpI2l:
		f.Push(LongValue(int64(v.Int)))
	case OpI2f:
		f.Push(FloatValue(float32(v.Int)))
	case OpI2d:
		f.Push(DoubleValue(float64(v.Int)))
	case OpL2i:
		f.Push(IntValue(int32(v.Long)))
	case 0x89: // l2f
		f.Push(FloatValue(float32(v.Long)))
	case 0x8A: // l2d
		f.Push(DoubleValue(float64(v.Long)))
	case OpF2i, OpD2i:
		f.Push(IntValue(saturate[int32](v.Double)))
	case 0x8C, OpD2l: // f2l, d2l
		f.Push(LongValue(saturate[int64](v.Double)))
	case 0x8D: // f2d
		f.Push(DoubleValue(v.Double))
	case 0x90: // d2f
		f.Push(FloatValue(float32(v.Double)))
	case OpI2b:
		f.Push(IntValue(int32(int8(v.Int))))
	case OpI2c:
		f.Push(IntValue(int32(uint16(v.Int))))
	case OpI2s:
		f.Push(IntValue(int32(int16(v.Int))))
	}
}

// saturate converts like the JVM's d2i/d2l: NaN becomes 0 and out of range
// values clamp to the bounds.
func saturate[T int32 | int64](d float64) T {
	var zero T
	lo, hi := int64(math.MinInt64), int64(math.MaxInt64)
	if _, ok := any(zero).(int32); ok {
		lo, hi = math.MinInt32, math.MaxInt32
	}
	switch {
	case math.IsNaN(d):
		return 0
	case d <= float64(lo):
		return T(lo)
	case d >= float64(hi):
		return T(hi)
	}
	return T(d)
}
