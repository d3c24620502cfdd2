package members

import (
	"fmt"
	"io"
	"strconv"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/daimatz/jbridge/pkg/classfile"
	"github.com/daimatz/jbridge/pkg/native"
	"github.com/daimatz/jbridge/pkg/vm"
)

const (
	accPublic    = classfile.AccPublic
	accPrivate   = classfile.AccPrivate
	accProtected = classfile.AccProtected
	accStatic    = classfile.AccStatic
	accFinal     = classfile.AccFinal
	accIface     = classfile.AccInterface | classfile.AccAbstract
	accAbstract  = classfile.AccAbstract
)

type fixture struct {
	machine  *vm.VM
	loader   *vm.MapClassLoader
	greeter  *vm.Class // demo.Greeter
	person   *vm.Class // demo.Person
	employee *vm.Class // demo.Employee extends Person
	counter  *vm.Class // demo.Counter, compiled to bytecode
	impl     *vm.Class // sun.internal.Impl extends Person
}

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func field(this vm.Value, name string) (*vm.JObject, *vm.Field) {
	obj := this.Ref.(*vm.JObject)
	return obj, obj.Class.LookupField(name)
}

func getter(name string) vm.NativeFunc {
	return func(_ *vm.VM, this vm.Value, _ []vm.Value) (vm.Value, error) {
		obj, f := field(this, name)
		return obj.GetField(f), nil
	}
}

func setter(name string) vm.NativeFunc {
	return func(_ *vm.VM, this vm.Value, args []vm.Value) (vm.Value, error) {
		obj, f := field(this, name)
		obj.SetField(f, args[0])
		return vm.Value{}, nil
	}
}

func constant(v vm.Value) vm.NativeFunc {
	return func(*vm.VM, vm.Value, []vm.Value) (vm.Value, error) { return v, nil }
}

// newFixture defines the demo classes on top of the bootstrap library:
//
//	public interface demo.Greeter { String greet(); }
//
//	public class demo.Person implements Greeter {
//	    public static final int MAX_AGE = 150;
//	    public static int population;
//	    private String name;
//	    public int age, size;
//	    protected int code;
//	    private boolean active;
//	    private int value;
//	    public Person(); public Person(String name); private Person(int age);
//	    getName/setName, isActive/setActive, getAge, size(),
//	    getValue, setValue(int), setValue(String), setOnly(String),
//	    getNothing() returning void, getURL(), getX(),
//	    greet(), greet(String), greet(int),
//	    protected hidden(), private whisper(),
//	    static getPopulation(), static create(String)
//	}
//
//	public class demo.Employee extends Person {
//	    public int age, salary;
//	    public Employee();
//	    public String greet(); getSalary()
//	}
//
//	public class sun.internal.Impl extends Person { public Impl(); }
func newFixture(t testing.TB) *fixture {
	t.Helper()
	boot, err := native.Bootstrap(io.Discard)
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	cl := vm.NewMapClassLoader(boot)
	machine := vm.NewVM(cl)
	machine.Stdout = io.Discard
	f := &fixture{machine: machine, loader: cl}

	f.greeter = cl.MustDefine(vm.ClassDef{
		Name:        "demo/Greeter",
		AccessFlags: accPublic | accIface,
		Methods: []vm.MethodDef{
			{Name: "greet", Descriptor: "()Ljava/lang/String;", AccessFlags: accPublic | accAbstract},
		},
	})

	maxAge := vm.IntValue(150)
	str := func(s string) vm.Value { return vm.RefValue(s) }
	f.person = cl.MustDefine(vm.ClassDef{
		Name:        "demo/Person",
		Super:       "java/lang/Object",
		Interfaces:  []string{"demo/Greeter"},
		AccessFlags: accPublic,
		Fields: []vm.FieldDef{
			{Name: "MAX_AGE", Descriptor: "I", AccessFlags: accPublic | accStatic | accFinal, Value: &maxAge},
			{Name: "population", Descriptor: "I", AccessFlags: accPublic | accStatic},
			{Name: "name", Descriptor: "Ljava/lang/String;", AccessFlags: accPrivate},
			{Name: "age", Descriptor: "I", AccessFlags: accPublic},
			{Name: "size", Descriptor: "I", AccessFlags: accPublic},
			{Name: "code", Descriptor: "I", AccessFlags: accProtected},
			{Name: "active", Descriptor: "Z", AccessFlags: accPrivate},
			{Name: "value", Descriptor: "I", AccessFlags: accPrivate},
		},
		Methods: []vm.MethodDef{
			{Name: "<init>", Descriptor: "()V", AccessFlags: accPublic, Native: constant(vm.Value{})},
			{Name: "<init>", Descriptor: "(Ljava/lang/String;)V", AccessFlags: accPublic, Native: setter("name")},
			{Name: "<init>", Descriptor: "(I)V", AccessFlags: accPrivate, Native: setter("age")},
			{Name: "getName", Descriptor: "()Ljava/lang/String;", AccessFlags: accPublic, Native: getter("name")},
			{Name: "setName", Descriptor: "(Ljava/lang/String;)V", AccessFlags: accPublic, Native: setter("name")},
			{Name: "isActive", Descriptor: "()Z", AccessFlags: accPublic, Native: getter("active")},
			{Name: "setActive", Descriptor: "(Z)V", AccessFlags: accPublic, Native: setter("active")},
			{Name: "getAge", Descriptor: "()I", AccessFlags: accPublic, Native: getter("age")},
			{Name: "size", Descriptor: "()I", AccessFlags: accPublic, Native: getter("size")},
			{Name: "getValue", Descriptor: "()I", AccessFlags: accPublic, Native: getter("value")},
			{Name: "setValue", Descriptor: "(I)V", AccessFlags: accPublic, Native: setter("value")},
			{Name: "setValue", Descriptor: "(Ljava/lang/String;)V", AccessFlags: accPublic, Native: func(_ *vm.VM, this vm.Value, args []vm.Value) (vm.Value, error) {
				n, err := strconv.Atoi(args[0].Ref.(string))
				if err != nil {
					return vm.Value{}, vm.Throwf("java/lang/NumberFormatException", "%v", err)
				}
				obj, fld := field(this, "value")
				obj.SetField(fld, vm.IntValue(int32(n)+1000))
				return vm.Value{}, nil
			}},
			{Name: "setOnly", Descriptor: "(Ljava/lang/String;)V", AccessFlags: accPublic, Native: setter("name")},
			{Name: "getNothing", Descriptor: "()V", AccessFlags: accPublic, Native: constant(vm.Value{})},
			{Name: "getURL", Descriptor: "()Ljava/lang/String;", AccessFlags: accPublic, Native: constant(str("http://example.com"))},
			{Name: "getX", Descriptor: "()I", AccessFlags: accPublic, Native: constant(vm.IntValue(7))},
			{Name: "greet", Descriptor: "()Ljava/lang/String;", AccessFlags: accPublic, Native: constant(str("hello"))},
			{Name: "greet", Descriptor: "(Ljava/lang/String;)Ljava/lang/String;", AccessFlags: accPublic, Native: func(_ *vm.VM, _ vm.Value, args []vm.Value) (vm.Value, error) {
				return str("hello, " + args[0].Ref.(string)), nil
			}},
			{Name: "greet", Descriptor: "(I)Ljava/lang/String;", AccessFlags: accPublic, Native: func(_ *vm.VM, _ vm.Value, args []vm.Value) (vm.Value, error) {
				return str(fmt.Sprintf("hello #%d", args[0].Int)), nil
			}},
			{Name: "hidden", Descriptor: "()Ljava/lang/String;", AccessFlags: accProtected, Native: constant(str("protected"))},
			{Name: "whisper", Descriptor: "()Ljava/lang/String;", AccessFlags: accPrivate, Native: constant(str("private"))},
			{Name: "getPopulation", Descriptor: "()I", AccessFlags: accPublic | accStatic, Native: func(*vm.VM, vm.Value, []vm.Value) (vm.Value, error) {
				return f.person.DeclaredField("population").Get(vm.NullValue())
			}},
			{Name: "create", Descriptor: "(Ljava/lang/String;)Ldemo/Person;", AccessFlags: accPublic | accStatic, Native: func(machine *vm.VM, _ vm.Value, args []vm.Value) (vm.Value, error) {
				obj, err := machine.Construct(f.person, "(Ljava/lang/String;)V", args[0])
				if err != nil {
					return vm.Value{}, err
				}
				return vm.RefValue(obj), nil
			}},
		},
	})

	f.employee = cl.MustDefine(vm.ClassDef{
		Name:        "demo/Employee",
		Super:       "demo/Person",
		AccessFlags: accPublic,
		Fields: []vm.FieldDef{
			{Name: "age", Descriptor: "I", AccessFlags: accPublic},
			{Name: "salary", Descriptor: "I", AccessFlags: accPublic},
		},
		Methods: []vm.MethodDef{
			{Name: "<init>", Descriptor: "()V", AccessFlags: accPublic, Native: constant(vm.Value{})},
			{Name: "greet", Descriptor: "()Ljava/lang/String;", AccessFlags: accPublic, Native: constant(str("hi from employee"))},
			{Name: "getSalary", Descriptor: "()I", AccessFlags: accPublic, Native: getter("salary")},
		},
	})

	f.impl = cl.MustDefine(vm.ClassDef{
		Name:        "sun/internal/Impl",
		Super:       "demo/Person",
		AccessFlags: accPublic,
		Methods: []vm.MethodDef{
			{Name: "<init>", Descriptor: "()V", AccessFlags: accPublic, Native: constant(vm.Value{})},
		},
	})

	c, err := cl.DefineBytes(counterClass())
	if err != nil {
		t.Fatalf("DefineBytes: %v", err)
	}
	f.counter = c
	return f
}

// counterClass assembles:
//
//	public class demo.Counter {
//	    private int count;
//	    public Counter() { super(); }
//	    public int getCount() { return count; }
//	    public void setCount(int c) { count = c; }
//	}
func counterClass() []byte {
	b := classfile.NewBuilder("demo/Counter", "java/lang/Object", accPublic|classfile.AccSuper)
	b.Field(accPrivate, "count", "I", 0)
	count := b.Fieldref("demo/Counter", "count", "I")
	super := b.Methodref("java/lang/Object", "<init>", "()V")
	b.Method(accPublic, "<init>", "()V", &classfile.CodeAttribute{MaxStack: 1, MaxLocals: 1,
		Code: classfile.Bytecode(0x2A, 0xB7, super, 0xB1)})
	b.Method(accPublic, "getCount", "()I", &classfile.CodeAttribute{MaxStack: 1, MaxLocals: 1,
		Code: classfile.Bytecode(0x2A, 0xB4, count, 0xAC)})
	b.Method(accPublic, "setCount", "(I)V", &classfile.CodeAttribute{MaxStack: 2, MaxLocals: 2,
		Code: classfile.Bytecode(0x2A, 0x1B, 0xB5, count, 0xB1)})
	return b.Bytes()
}

func (f *fixture) engine(opts ...Option) *Engine {
	return New(f.machine, nil, append([]Option{WithLogger(quietLogger())}, opts...)...)
}

func (f *fixture) newPerson(t testing.TB, name string) vm.Value {
	t.Helper()
	obj, err := f.machine.Construct(f.person, "(Ljava/lang/String;)V", vm.RefValue(name))
	if err != nil {
		t.Fatalf("new Person: %v", err)
	}
	return vm.RefValue(obj)
}

func (f *fixture) newObject(t testing.TB, c *vm.Class) vm.Value {
	t.Helper()
	obj, err := f.machine.Construct(c, "()V")
	if err != nil {
		t.Fatalf("new %s: %v", c.JavaName(), err)
	}
	return vm.RefValue(obj)
}

// engines returns one engine per strategy and version.
func (f *fixture) engines() map[string]*Engine {
	return map[string]*Engine{
		"eager":  f.engine(WithStrategy(Eager)),
		"lazy":   f.engine(WithStrategy(Lazy)),
		"legacy": f.engine(WithVersion(Legacy)),
	}
}
