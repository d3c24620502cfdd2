package native

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/daimatz/jbridge/pkg/classfile"
	"github.com/daimatz/jbridge/pkg/vm"
)

// PrintStream is the Go peer of a java.io.PrintStream.
type PrintStream struct {
	Writer io.Writer
}

// Println prints s followed by a newline.
func (ps *PrintStream) Println(s string) {
	fmt.Fprintln(ps.Writer, s)
}

// Print prints s.
func (ps *PrintStream) Print(s string) {
	fmt.Fprint(ps.Writer, s)
}

// format renders a primitive or reference argument of the given type.
func format(machine *vm.VM, t classfile.Type, v vm.Value) (string, error) {
	switch t {
	case classfile.Boolean:
		return strconv.FormatBool(v.Int != 0), nil
	case classfile.Char:
		return string(rune(v.Int)), nil
	case classfile.Int, classfile.Long:
		return v.String(), nil
	case classfile.Float:
		return formatFloat(v.Double, 32), nil
	case classfile.Double:
		return formatFloat(v.Double, 64), nil
	}
	return ToString(machine, v)
}

// formatFloat approximates Double.toString: integral values keep a ".0".
func formatFloat(d float64, bits int) string {
	switch {
	case math.IsNaN(d):
		return "NaN"
	case math.IsInf(d, 1):
		return "Infinity"
	case math.IsInf(d, -1):
		return "-Infinity"
	case d == math.Trunc(d) && math.Abs(d) < 1e7:
		return strconv.FormatFloat(d, 'f', 1, bits)
	}
	return strconv.FormatFloat(d, 'g', -1, bits)
}

func defineSystem(l *library, stdout io.Writer) {
	stream := func(this vm.Value) *PrintStream {
		return this.Ref.(*vm.JObject).Native.(*PrintStream)
	}
	printer := func(t classfile.Type, newline bool) vm.NativeFunc {
		return func(machine *vm.VM, this vm.Value, args []vm.Value) (vm.Value, error) {
			s, err := format(machine, t, args[0])
			if err != nil {
				return vm.Value{}, err
			}
			if newline {
				stream(this).Println(s)
			} else {
				stream(this).Print(s)
			}
			return vm.Value{}, nil
		}
	}

	methods := []vm.MethodDef{
		{Name: "println", Descriptor: "()V", AccessFlags: accPublic, Native: func(_ *vm.VM, this vm.Value, _ []vm.Value) (vm.Value, error) {
			stream(this).Println("")
			return vm.Value{}, nil
		}},
	}
	for _, t := range []classfile.Type{
		classfile.Boolean, classfile.Char, classfile.Int, classfile.Long,
		classfile.Float, classfile.Double, classfile.StringType, classfile.ObjectType,
	} {
		desc := classfile.MethodDescriptor(classfile.Void, t)
		methods = append(methods,
			vm.MethodDef{Name: "println", Descriptor: desc, AccessFlags: accPublic, Native: printer(t, true)},
			vm.MethodDef{Name: "print", Descriptor: desc, AccessFlags: accPublic, Native: printer(t, false)},
		)
	}
	methods = append(methods, vm.MethodDef{Name: "flush", Descriptor: "()V", AccessFlags: accPublic, Native: void})

	printStream := l.define(vm.ClassDef{
		Name:        "java/io/PrintStream",
		Super:       "java/lang/Object",
		AccessFlags: accPublic,
		Methods:     methods,
	})
	if printStream == nil {
		return
	}

	out := vm.NewObject(printStream)
	out.Native = &PrintStream{Writer: stdout}
	outValue := vm.RefValue(out)
	l.define(vm.ClassDef{
		Name:        "java/lang/System",
		Super:       "java/lang/Object",
		AccessFlags: accPublic | accFinal,
		Fields: []vm.FieldDef{
			{Name: "out", Descriptor: "Ljava/io/PrintStream;", AccessFlags: accPublic | accStatic | accFinal, Value: &outValue},
		},
		Methods: []vm.MethodDef{
			{Name: "<init>", Descriptor: "()V", AccessFlags: accPrivate, Native: void},
			{Name: "lineSeparator", Descriptor: "()Ljava/lang/String;", AccessFlags: accPublic | accStatic, Native: func(*vm.VM, vm.Value, []vm.Value) (vm.Value, error) {
				return ret(vm.RefValue("\n"))
			}},
			{Name: "identityHashCode", Descriptor: "(Ljava/lang/Object;)I", AccessFlags: accPublic | accStatic, Native: func(_ *vm.VM, _ vm.Value, args []vm.Value) (vm.Value, error) {
				if args[0].IsNull() {
					return ret(vm.IntValue(0))
				}
				return ret(vm.IntValue(identityHash(args[0].Ref)))
			}},
		},
	})
}
