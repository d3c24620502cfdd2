package native

import (
	"fmt"
	"math"
	"strconv"

	"github.com/daimatz/jbridge/pkg/vm"
)

// IntegerClass is the internal name of java.lang.Integer.
const IntegerClass = "java/lang/Integer"

// BoxInt creates a java.lang.Integer holding v (boxing).
func BoxInt(loader vm.ClassLoader, v int32) (*vm.JObject, error) {
	c, err := loader.LoadClass(IntegerClass)
	if err != nil {
		return nil, err
	}
	obj := vm.NewObject(c)
	obj.SetField(c.DeclaredField("value"), vm.IntValue(v))
	return obj, nil
}

// UnboxInt returns the int value of a java.lang.Integer reference (unboxing).
func UnboxInt(v vm.Value) (int32, bool) {
	obj, ok := v.Ref.(*vm.JObject)
	if !ok || obj.Class.Name != IntegerClass {
		return 0, false
	}
	return obj.GetField(obj.Class.DeclaredField("value")).Int, true
}

func defineInteger(l *library) {
	var integer *vm.Class
	value := func(this vm.Value) int32 {
		return this.Ref.(*vm.JObject).GetField(integer.DeclaredField("value")).Int
	}
	box := func(v int32) (vm.Value, error) {
		obj := vm.NewObject(integer)
		obj.SetField(integer.DeclaredField("value"), vm.IntValue(v))
		return ret(vm.RefValue(obj))
	}
	parse := func(args []vm.Value) (int32, error) {
		s, _ := args[0].Ref.(string)
		radix := int32(10)
		if len(args) > 1 {
			radix = args[1].Int
		}
		n, err := strconv.ParseInt(s, int(radix), 32)
		if err != nil {
			return 0, vm.Throwf("java/lang/NumberFormatException", "For input string: %q", s)
		}
		return int32(n), nil
	}
	compare := func(_ *vm.VM, this vm.Value, args []vm.Value) (vm.Value, error) {
		other, ok := UnboxInt(args[0])
		if !ok {
			return vm.Value{}, vm.Throwf("java/lang/ClassCastException", "%v is not a java.lang.Integer", args[0])
		}
		a := value(this)
		switch {
		case a < other:
			return ret(vm.IntValue(-1))
		case a > other:
			return ret(vm.IntValue(1))
		}
		return ret(vm.IntValue(0))
	}
	maxValue, minValue := vm.IntValue(math.MaxInt32), vm.IntValue(math.MinInt32)

	integer = l.define(vm.ClassDef{
		Name:        IntegerClass,
		Super:       "java/lang/Number",
		Interfaces:  []string{"java/lang/Comparable"},
		AccessFlags: accPublic | accFinal,
		Fields: []vm.FieldDef{
			{Name: "MAX_VALUE", Descriptor: "I", AccessFlags: accPublic | accStatic | accFinal, Value: &maxValue},
			{Name: "MIN_VALUE", Descriptor: "I", AccessFlags: accPublic | accStatic | accFinal, Value: &minValue},
			{Name: "value", Descriptor: "I", AccessFlags: accPrivate | accFinal},
		},
		Methods: []vm.MethodDef{
			{Name: "<init>", Descriptor: "(I)V", AccessFlags: accPublic, Native: func(_ *vm.VM, this vm.Value, args []vm.Value) (vm.Value, error) {
				this.Ref.(*vm.JObject).SetField(integer.DeclaredField("value"), args[0])
				return vm.Value{}, nil
			}},
			{Name: "valueOf", Descriptor: "(I)Ljava/lang/Integer;", AccessFlags: accPublic | accStatic, Native: func(_ *vm.VM, _ vm.Value, args []vm.Value) (vm.Value, error) {
				return box(args[0].Int)
			}},
			{Name: "valueOf", Descriptor: "(Ljava/lang/String;)Ljava/lang/Integer;", AccessFlags: accPublic | accStatic, Native: func(_ *vm.VM, _ vm.Value, args []vm.Value) (vm.Value, error) {
				n, err := parse(args)
				if err != nil {
					return vm.Value{}, err
				}
				return box(n)
			}},
			{Name: "parseInt", Descriptor: "(Ljava/lang/String;)I", AccessFlags: accPublic | accStatic, Native: func(_ *vm.VM, _ vm.Value, args []vm.Value) (vm.Value, error) {
				n, err := parse(args)
				return vm.IntValue(n), err
			}},
			{Name: "parseInt", Descriptor: "(Ljava/lang/String;I)I", AccessFlags: accPublic | accStatic, Native: func(_ *vm.VM, _ vm.Value, args []vm.Value) (vm.Value, error) {
				n, err := parse(args)
				return vm.IntValue(n), err
			}},
			{Name: "intValue", Descriptor: "()I", AccessFlags: accPublic, Native: func(_ *vm.VM, this vm.Value, _ []vm.Value) (vm.Value, error) {
				return ret(vm.IntValue(value(this)))
			}},
			{Name: "longValue", Descriptor: "()J", AccessFlags: accPublic, Native: func(_ *vm.VM, this vm.Value, _ []vm.Value) (vm.Value, error) {
				return ret(vm.LongValue(int64(value(this))))
			}},
			{Name: "doubleValue", Descriptor: "()D", AccessFlags: accPublic, Native: func(_ *vm.VM, this vm.Value, _ []vm.Value) (vm.Value, error) {
				return ret(vm.DoubleValue(float64(value(this))))
			}},
			{Name: "compareTo", Descriptor: "(Ljava/lang/Integer;)I", AccessFlags: accPublic, Native: compare},
			{Name: "compareTo", Descriptor: "(Ljava/lang/Object;)I", AccessFlags: accPublic | accBridge, Native: compare},
			{Name: "hashCode", Descriptor: "()I", AccessFlags: accPublic, Native: func(_ *vm.VM, this vm.Value, _ []vm.Value) (vm.Value, error) {
				return ret(vm.IntValue(value(this)))
			}},
			{Name: "equals", Descriptor: "(Ljava/lang/Object;)Z", AccessFlags: accPublic, Native: func(_ *vm.VM, this vm.Value, args []vm.Value) (vm.Value, error) {
				other, ok := UnboxInt(args[0])
				return ret(vm.BoolValue(ok && other == value(this)))
			}},
			{Name: "toString", Descriptor: "()Ljava/lang/String;", AccessFlags: accPublic, Native: func(_ *vm.VM, this vm.Value, _ []vm.Value) (vm.Value, error) {
				return ret(vm.RefValue(fmt.Sprint(value(this))))
			}},
			{Name: "toString", Descriptor: "(I)Ljava/lang/String;", AccessFlags: accPublic | accStatic, Native: func(_ *vm.VM, _ vm.Value, args []vm.Value) (vm.Value, error) {
				return ret(vm.RefValue(fmt.Sprint(args[0].Int)))
			}},
		},
	})
}
