package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/daimatz/jbridge/pkg/classfile"
)

// maxFrameDepth is the maximum number of nested method calls.
const maxFrameDepth = 1024

// VM executes methods of linked classes. It holds no per-call state, so one
// VM may serve concurrent invocations.
type VM struct {
	Loader ClassLoader
	Stdout io.Writer
}

// NewVM creates a new VM that resolves symbolic references through loader.
func NewVM(loader ClassLoader) *VM {
	return &VM{
		Loader: loader,
		Stdout: os.Stdout,
	}
}

// thread carries the state of one chain of nested calls.
type thread struct {
	vm    *VM
	depth int
}

// Execute loads the named class and runs its main method.
func (vm *VM) Execute(className string) error {
	c, err := vm.Loader.LoadClass(className)
	if err != nil {
		return err
	}
	main := c.DeclaredMethod("main", "([Ljava/lang/String;)V")
	if main == nil || !main.IsStatic() {
		return fmt.Errorf("main method not found in %s", c.JavaName())
	}
	// main(String[] args) gets an empty array
	_, err = vm.Invoke(main, NullValue(), []Value{RefValue(&JArray{})})
	return err
}

// Invoke calls m. For instance methods this is the receiver and the
// implementation is selected from its runtime class, as invokevirtual does.
func (vm *VM) Invoke(m *Method, this Value, args []Value) (Value, error) {
	t := &thread{vm: vm}
	return t.invoke(m, this, args, true)
}

// New allocates an instance of className and runs the constructor with the
// given descriptor.
func (vm *VM) New(className, ctorDesc string, args ...Value) (*JObject, error) {
	c, err := vm.Loader.LoadClass(className)
	if err != nil {
		return nil, err
	}
	return vm.Construct(c, ctorDesc, args...)
}

// Construct is New for an already loaded class.
func (vm *VM) Construct(c *Class, ctorDesc string, args ...Value) (*JObject, error) {
	if c.IsAbstract() || c.IsInterface() {
		return nil, Throwf("java/lang/InstantiationException", "%s", c.JavaName())
	}
	ctor := c.DeclaredMethod("<init>", ctorDesc)
	if ctor == nil {
		return nil, Throwf("java/lang/NoSuchMethodError", "%s.<init>%s", c.JavaName(), ctorDesc)
	}
	obj := NewObject(c)
	if _, err := vm.Invoke(ctor, RefValue(obj), args); err != nil {
		return nil, err
	}
	return obj, nil
}

func (t *thread) invoke(m *Method, this Value, args []Value, virtual bool) (Value, error) {
	if len(args) != len(m.Params) {
		return Value{}, fmt.Errorf("%s: got %d arguments, want %d", m, len(args), len(m.Params))
	}
	if !m.IsStatic() {
		if this.IsNull() {
			return Value{}, Throwf("java/lang/NullPointerException", "calling %s", m)
		}
		if virtual && !m.IsPrivate() && !m.IsConstructor() {
			if rc := ClassOf(t.vm.Loader, this.Ref); rc != nil && rc != m.Class {
				if impl := rc.LookupMethod(m.Name, m.Descriptor); impl != nil {
					m = impl
				}
			}
		}
	}
	if m.IsAbstract() {
		return Value{}, Throwf("java/lang/AbstractMethodError", "%s", m)
	}

	t.depth++
	defer func() { t.depth-- }()
	if t.depth > maxFrameDepth {
		return Value{}, Throwf("java/lang/StackOverflowError", "frame depth exceeded %d", maxFrameDepth)
	}

	if m.Native != nil {
		return m.Native(t.vm, this, args)
	}
	if m.Code == nil {
		return Value{}, fmt.Errorf("method %s has no Code attribute", m)
	}

	frame := NewFrame(m)
	slot := 0
	if !m.IsStatic() {
		frame.SetLocal(0, this)
		slot = 1
	}
	for _, arg := range args {
		frame.SetLocal(slot, arg)
		slot++
		if arg.Wide() {
			slot++
		}
	}
	return t.execute(frame)
}

// loaderFor returns the loader resolving symbolic references made by the
// running method.
func (t *thread) loaderFor(f *Frame) ClassLoader {
	if f.Method != nil && f.Method.Class.Loader != nil {
		return f.Method.Class.Loader
	}
	return t.vm.Loader
}

func (t *thread) resolveClass(f *Frame, name string) (*Class, error) {
	loader := t.loaderFor(f)
	if loader == nil {
		return nil, fmt.Errorf("%w: %s (no class loader)", ErrClassNotFound, name)
	}
	c, err := loader.LoadClass(name)
	if err != nil {
		return nil, Throwf("java/lang/NoClassDefFoundError", "%s: %v", name, err)
	}
	return c, nil
}

func (t *thread) resolveField(f *Frame, index uint16) (*Field, error) {
	ref, err := classfile.ResolveFieldref(f.Pool(), index)
	if err != nil {
		return nil, err
	}
	c, err := t.resolveClass(f, ref.ClassName)
	if err != nil {
		return nil, err
	}
	field := c.LookupField(ref.Name)
	if field == nil {
		return nil, Throwf("java/lang/NoSuchFieldError", "%s.%s", ref.ClassName, ref.Name)
	}
	return field, nil
}

func (t *thread) resolveMethod(f *Frame, index uint16) (*Method, error) {
	ref, err := classfile.ResolveMethodref(f.Pool(), index)
	if err != nil {
		return nil, err
	}
	c, err := t.resolveClass(f, ref.ClassName)
	if err != nil {
		return nil, err
	}
	m := c.LookupMethod(ref.Name, ref.Descriptor)
	if m == nil {
		return nil, Throwf("java/lang/NoSuchMethodError", "%s.%s%s", ref.ClassName, ref.Name, ref.Descriptor)
	}
	return m, nil
}

// handlerFor returns the pc of the exception handler covering pc that
// catches ex, or -1.
func (t *thread) handlerFor(f *Frame, pc int, ex *JavaException) int {
	for _, h := range f.Method.Code.ExceptionHandlers {
		if pc < int(h.StartPC) || pc >= int(h.EndPC) {
			continue
		}
		if h.CatchType == 0 {
			return int(h.HandlerPC)
		}
		name, err := classfile.GetClassName(f.Pool(), h.CatchType)
		if err != nil {
			continue
		}
		if name == ex.ClassName {
			return int(h.HandlerPC)
		}
		catch, err1 := t.resolveClass(f, name)
		thrown, err2 := t.resolveClass(f, ex.ClassName)
		if err1 == nil && err2 == nil && catch.IsAssignableFrom(thrown) {
			return int(h.HandlerPC)
		}
	}
	return -1
}
