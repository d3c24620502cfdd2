package native

import (
	"strings"
	"unicode/utf16"

	"github.com/daimatz/jbridge/pkg/vm"
)

// Strings are Go string references; java/lang/String has no instance
// fields.

func chars(v vm.Value) []uint16 {
	s, _ := v.Ref.(string)
	return utf16.Encode([]rune(s))
}

func stringIsEmpty(_ *vm.VM, this vm.Value, _ []vm.Value) (vm.Value, error) {
	s, _ := this.Ref.(string)
	return ret(vm.BoolValue(s == ""))
}

// StringHash is String.hashCode: s[0]*31^(n-1) + ... + s[n-1].
func StringHash(s string) int32 {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = 31*h + int32(c)
	}
	return h
}

func compareStrings(a, b string) int32 {
	x, y := utf16.Encode([]rune(a)), utf16.Encode([]rune(b))
	for i := 0; i < len(x) && i < len(y); i++ {
		if x[i] != y[i] {
			return int32(x[i]) - int32(y[i])
		}
	}
	return int32(len(x) - len(y))
}

func defineString(l *library) {
	self := func(_ *vm.VM, this vm.Value, _ []vm.Value) (vm.Value, error) { return this, nil }
	transform := func(f func(string) string) vm.NativeFunc {
		return func(_ *vm.VM, this vm.Value, _ []vm.Value) (vm.Value, error) {
			return ret(vm.RefValue(f(this.Ref.(string))))
		}
	}
	compare := func(_ *vm.VM, this vm.Value, args []vm.Value) (vm.Value, error) {
		other, ok := args[0].Ref.(string)
		if !ok {
			if args[0].IsNull() {
				return vm.Value{}, vm.NewJavaException("java/lang/NullPointerException")
			}
			return vm.Value{}, vm.Throwf("java/lang/ClassCastException", "%v is not a java.lang.String", args[0])
		}
		return ret(vm.IntValue(compareStrings(this.Ref.(string), other)))
	}

	l.define(vm.ClassDef{
		Name:        "java/lang/String",
		Super:       "java/lang/Object",
		Interfaces:  []string{"java/io/Serializable", "java/lang/Comparable", "java/lang/CharSequence"},
		AccessFlags: accPublic | accFinal,
		Methods: []vm.MethodDef{
			{Name: "<init>", Descriptor: "()V", AccessFlags: accPublic, Native: void},
			{Name: "length", Descriptor: "()I", AccessFlags: accPublic, Native: func(_ *vm.VM, this vm.Value, _ []vm.Value) (vm.Value, error) {
				return ret(vm.IntValue(int32(len(chars(this)))))
			}},
			{Name: "isEmpty", Descriptor: "()Z", AccessFlags: accPublic, Native: stringIsEmpty},
			{Name: "charAt", Descriptor: "(I)C", AccessFlags: accPublic, Native: func(_ *vm.VM, this vm.Value, args []vm.Value) (vm.Value, error) {
				cs, i := chars(this), args[0].Int
				if i < 0 || int(i) >= len(cs) {
					return vm.Value{}, vm.Throwf("java/lang/StringIndexOutOfBoundsException", "index %d, length %d", i, len(cs))
				}
				return ret(vm.IntValue(int32(cs[i])))
			}},
			{Name: "concat", Descriptor: "(Ljava/lang/String;)Ljava/lang/String;", AccessFlags: accPublic, Native: func(_ *vm.VM, this vm.Value, args []vm.Value) (vm.Value, error) {
				other, _ := args[0].Ref.(string)
				return ret(vm.RefValue(this.Ref.(string) + other))
			}},
			{Name: "contains", Descriptor: "(Ljava/lang/CharSequence;)Z", AccessFlags: accPublic, Native: func(machine *vm.VM, this vm.Value, args []vm.Value) (vm.Value, error) {
				sub, err := ToString(machine, args[0])
				if err != nil {
					return vm.Value{}, err
				}
				return ret(vm.BoolValue(strings.Contains(this.Ref.(string), sub)))
			}},
			{Name: "toUpperCase", Descriptor: "()Ljava/lang/String;", AccessFlags: accPublic, Native: transform(strings.ToUpper)},
			{Name: "toLowerCase", Descriptor: "()Ljava/lang/String;", AccessFlags: accPublic, Native: transform(strings.ToLower)},
			{Name: "trim", Descriptor: "()Ljava/lang/String;", AccessFlags: accPublic, Native: transform(strings.TrimSpace)},
			{Name: "toString", Descriptor: "()Ljava/lang/String;", AccessFlags: accPublic, Native: self},
			{Name: "hashCode", Descriptor: "()I", AccessFlags: accPublic, Native: func(_ *vm.VM, this vm.Value, _ []vm.Value) (vm.Value, error) {
				return ret(vm.IntValue(StringHash(this.Ref.(string))))
			}},
			{Name: "equals", Descriptor: "(Ljava/lang/Object;)Z", AccessFlags: accPublic, Native: func(_ *vm.VM, this vm.Value, args []vm.Value) (vm.Value, error) {
				other, ok := args[0].Ref.(string)
				return ret(vm.BoolValue(ok && other == this.Ref.(string)))
			}},
			{Name: "compareTo", Descriptor: "(Ljava/lang/String;)I", AccessFlags: accPublic, Native: compare},
			{Name: "compareTo", Descriptor: "(Ljava/lang/Object;)I", AccessFlags: accPublic | accBridge, Native: compare},
			{Name: "valueOf", Descriptor: "(I)Ljava/lang/String;", AccessFlags: accPublic | accStatic, Native: func(_ *vm.VM, _ vm.Value, args []vm.Value) (vm.Value, error) {
				return ret(vm.RefValue(args[0].String()))
			}},
			{Name: "valueOf", Descriptor: "(Ljava/lang/Object;)Ljava/lang/String;", AccessFlags: accPublic | accStatic, Native: func(machine *vm.VM, _ vm.Value, args []vm.Value) (vm.Value, error) {
				s, err := ToString(machine, args[0])
				if err != nil {
					return vm.Value{}, err
				}
				return ret(vm.RefValue(s))
			}},
		},
	})
}
