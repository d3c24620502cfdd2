// Package native provides the bootstrap class library. Every class here is
// defined with vm.ClassDef and has Go method bodies, so no JDK is needed to
// load or run user classes against it.
package native

import (
	"fmt"
	"hash/fnv"
	"io"

	"github.com/daimatz/jbridge/pkg/classfile"
	"github.com/daimatz/jbridge/pkg/vm"
)

const (
	accPublic    = classfile.AccPublic
	accPrivate   = classfile.AccPrivate
	accProtected = classfile.AccProtected
	accStatic    = classfile.AccStatic
	accFinal     = classfile.AccFinal
	accInterface = classfile.AccInterface | classfile.AccAbstract
	accAbstract  = classfile.AccAbstract
	accBridge    = classfile.AccBridge | classfile.AccSynthetic
)

// library defines classes into a loader, keeping the first error.
type library struct {
	cl  *vm.MapClassLoader
	err error
}

func (l *library) define(def vm.ClassDef) *vm.Class {
	if l.err != nil {
		return nil
	}
	c, err := l.cl.Define(def)
	if err != nil {
		l.err = fmt.Errorf("native: %w", err)
	}
	return c
}

// Bootstrap returns a loader holding the bootstrap class library.
// System.out writes to stdout.
func Bootstrap(stdout io.Writer) (*vm.MapClassLoader, error) {
	l := &library{cl: vm.NewMapClassLoader(nil)}
	defineLang(l)
	defineThrowables(l)
	defineInteger(l)
	defineCollections(l)
	defineSystem(l, stdout)
	if l.err != nil {
		return nil, l.err
	}
	return l.cl, nil
}

func ret(v vm.Value) (vm.Value, error) { return v, nil }

func void(*vm.VM, vm.Value, []vm.Value) (vm.Value, error) { return vm.Value{}, nil }

func identityHash(ref any) int32 {
	h := fnv.New32a()
	fmt.Fprintf(h, "%p", ref)
	return int32(h.Sum32())
}

// ToString converts v the way String.valueOf(Object) does: null becomes
// "null" and objects are asked for toString().
func ToString(machine *vm.VM, v vm.Value) (string, error) {
	if v.IsNull() {
		return "null", nil
	}
	switch r := v.Ref.(type) {
	case string:
		return r, nil
	case *vm.JObject:
		m := r.Class.LookupMethod("toString", "()Ljava/lang/String;")
		if m == nil {
			return r.String(), nil
		}
		s, err := machine.Invoke(m, v, nil)
		if err != nil {
			return "", err
		}
		return ToString(machine, s)
	case *vm.JArray:
		return fmt.Sprintf("[@%x", identityHash(r)), nil
	}
	return v.String(), nil
}

func defineLang(l *library) {
	l.define(vm.ClassDef{
		Name:        "java/lang/Object",
		AccessFlags: accPublic,
		Methods: []vm.MethodDef{
			{Name: "<init>", Descriptor: "()V", AccessFlags: accPublic, Native: void},
			{Name: "hashCode", Descriptor: "()I", AccessFlags: accPublic, Native: func(_ *vm.VM, this vm.Value, _ []vm.Value) (vm.Value, error) {
				return ret(vm.IntValue(identityHash(this.Ref)))
			}},
			{Name: "equals", Descriptor: "(Ljava/lang/Object;)Z", AccessFlags: accPublic, Native: func(_ *vm.VM, this vm.Value, args []vm.Value) (vm.Value, error) {
				return ret(vm.BoolValue(!args[0].IsNull() && this.Ref == args[0].Ref))
			}},
			{Name: "toString", Descriptor: "()Ljava/lang/String;", AccessFlags: accPublic, Native: func(_ *vm.VM, this vm.Value, _ []vm.Value) (vm.Value, error) {
				if o, ok := this.Ref.(*vm.JObject); ok {
					return ret(vm.RefValue(fmt.Sprintf("%s@%x", o.Class.JavaName(), uint32(identityHash(o)))))
				}
				return ret(vm.RefValue(this.String()))
			}},
		},
	})
	l.define(vm.ClassDef{Name: "java/io/Serializable", AccessFlags: accPublic | accInterface})
	l.define(vm.ClassDef{
		Name:        "java/lang/Comparable",
		AccessFlags: accPublic | accInterface,
		Methods: []vm.MethodDef{
			{Name: "compareTo", Descriptor: "(Ljava/lang/Object;)I", AccessFlags: accPublic | accAbstract},
		},
	})
	l.define(vm.ClassDef{
		Name:        "java/lang/CharSequence",
		AccessFlags: accPublic | accInterface,
		Methods: []vm.MethodDef{
			{Name: "length", Descriptor: "()I", AccessFlags: accPublic | accAbstract},
			{Name: "charAt", Descriptor: "(I)C", AccessFlags: accPublic | accAbstract},
			{Name: "isEmpty", Descriptor: "()Z", AccessFlags: accPublic, Native: stringIsEmpty},
		},
	})
	defineString(l)
	l.define(vm.ClassDef{
		Name:        "java/lang/Number",
		Super:       "java/lang/Object",
		Interfaces:  []string{"java/io/Serializable"},
		AccessFlags: accPublic | accAbstract,
		Methods: []vm.MethodDef{
			{Name: "<init>", Descriptor: "()V", AccessFlags: accPublic, Native: void},
			{Name: "intValue", Descriptor: "()I", AccessFlags: accPublic | accAbstract},
			{Name: "longValue", Descriptor: "()J", AccessFlags: accPublic | accAbstract},
			{Name: "doubleValue", Descriptor: "()D", AccessFlags: accPublic | accAbstract},
		},
	})
}

func defineThrowables(l *library) {
	var throwable *vm.Class
	message := func(_ *vm.VM, this vm.Value, _ []vm.Value) (vm.Value, error) {
		return this.Ref.(*vm.JObject).GetField(throwable.DeclaredField("detailMessage")), nil
	}
	throwable = l.define(vm.ClassDef{
		Name:        "java/lang/Throwable",
		Super:       "java/lang/Object",
		Interfaces:  []string{"java/io/Serializable"},
		AccessFlags: accPublic,
		Fields: []vm.FieldDef{
			{Name: "detailMessage", Descriptor: "Ljava/lang/String;", AccessFlags: accPrivate},
		},
		Methods: []vm.MethodDef{
			{Name: "<init>", Descriptor: "()V", AccessFlags: accPublic, Native: void},
			{Name: "<init>", Descriptor: "(Ljava/lang/String;)V", AccessFlags: accPublic, Native: func(_ *vm.VM, this vm.Value, args []vm.Value) (vm.Value, error) {
				this.Ref.(*vm.JObject).SetField(throwable.DeclaredField("detailMessage"), args[0])
				return vm.Value{}, nil
			}},
			{Name: "getMessage", Descriptor: "()Ljava/lang/String;", AccessFlags: accPublic, Native: message},
			{Name: "getLocalizedMessage", Descriptor: "()Ljava/lang/String;", AccessFlags: accPublic, Native: message},
		},
	})

	hierarchy := [][2]string{
		{"java/lang/Exception", "java/lang/Throwable"},
		{"java/lang/Error", "java/lang/Throwable"},
		{"java/lang/RuntimeException", "java/lang/Exception"},
		{"java/lang/ArithmeticException", "java/lang/RuntimeException"},
		{"java/lang/NullPointerException", "java/lang/RuntimeException"},
		{"java/lang/ClassCastException", "java/lang/RuntimeException"},
		{"java/lang/IllegalArgumentException", "java/lang/RuntimeException"},
		{"java/lang/NumberFormatException", "java/lang/IllegalArgumentException"},
		{"java/lang/IndexOutOfBoundsException", "java/lang/RuntimeException"},
		{"java/lang/ArrayIndexOutOfBoundsException", "java/lang/IndexOutOfBoundsException"},
		{"java/lang/StringIndexOutOfBoundsException", "java/lang/IndexOutOfBoundsException"},
		{"java/lang/StackOverflowError", "java/lang/Error"},
	}
	for _, h := range hierarchy {
		l.define(vm.ClassDef{
			Name:        h[0],
			Super:       h[1],
			AccessFlags: accPublic,
			Methods: []vm.MethodDef{
				{Name: "<init>", Descriptor: "()V", AccessFlags: accPublic, Native: void},
				{Name: "<init>", Descriptor: "(Ljava/lang/String;)V", AccessFlags: accPublic, Native: func(_ *vm.VM, this vm.Value, args []vm.Value) (vm.Value, error) {
					this.Ref.(*vm.JObject).SetField(throwable.DeclaredField("detailMessage"), args[0])
					return vm.Value{}, nil
				}},
			},
		})
	}
}
