package members

import (
	"strings"

	"github.com/daimatz/jbridge/pkg/vm"
)

// Kind identifies the variant of an Entry.
type Kind int

const (
	KindField Kind = iota
	KindMethod
	KindOverloads
	KindProperty
	KindFieldAndMethods
	KindConstructor
)

func (k Kind) String() string {
	switch k {
	case KindField:
		return "field"
	case KindMethod:
		return "method"
	case KindOverloads:
		return "overloads"
	case KindProperty:
		return "property"
	case KindFieldAndMethods:
		return "field+methods"
	case KindConstructor:
		return "constructor"
	}
	return "unknown"
}

// Entry is what a Table binds to a name: *Field, *Function, *BeanProperty,
// *FieldAndMethods or *Constructor.
type Entry interface {
	Kind() Kind
}

// Method is a reflected method or constructor together with the accessible
// override granted when private members are included.
type Method struct {
	*vm.Method
	Accessible bool
}

// Signature returns the parameter list in source form, e.g.
// "(int,java.lang.String)".
func (m *Method) Signature() string {
	params := make([]string, len(m.Params))
	for i, p := range m.Params {
		params[i] = p.JavaName()
	}
	return "(" + strings.Join(params, ",") + ")"
}

// Invoke calls m on this. For static methods this is ignored.
func (m *Method) Invoke(machine *vm.VM, this vm.Value, args []vm.Value) (vm.Value, error) {
	if m.IsPrivate() && !m.Accessible {
		return vm.Value{}, memberError(m.Class.JavaName(), m.Name, nil, ErrAccessDenied)
	}
	if m.IsStatic() {
		this = vm.NullValue()
	}
	return machine.Invoke(m.Method, this, args)
}

// Field is a reflected field.
type Field struct {
	*vm.Field
	Accessible bool
}

func (*Field) Kind() Kind { return KindField }

// Function groups the overloads of one method name. A Function holding a
// single method is a plain method.
type Function struct {
	Name    string
	Methods []*Method
}

func newFunction(name string, methods []*Method) *Function {
	return &Function{Name: name, Methods: methods}
}

func (f *Function) Kind() Kind {
	if len(f.Methods) == 1 {
		return KindMethod
	}
	return KindOverloads
}

// Find returns the overload whose Signature is sig.
func (f *Function) Find(sig string) *Method {
	for _, m := range f.Methods {
		if m.Signature() == sig {
			return m
		}
	}
	return nil
}

// BeanProperty is a synthesized property backed by getter and setter
// methods. Setters holds the whole set overload group when there is more
// than one.
type BeanProperty struct {
	Name    string
	Getter  *Method
	Setter  *Method
	Setters *Function
}

func (*BeanProperty) Kind() Kind { return KindProperty }

// FieldAndMethods is bound to a name shared by a field and methods. Reading
// the name yields the methods; This, when set, is the object whose field
// Value reads.
type FieldAndMethods struct {
	Field   *Field
	Methods *Function
	This    vm.Value
}

func (*FieldAndMethods) Kind() Kind { return KindFieldAndMethods }

// Value reads the field on the bound object.
func (f *FieldAndMethods) Value() (vm.Value, error) {
	return f.Field.Get(f.This)
}

func (f *FieldAndMethods) bind(this vm.Value) *FieldAndMethods {
	c := *f
	c.This = this
	return &c
}

// Constructor is an explicitly selected constructor overload.
type Constructor struct {
	*Method
}

func (*Constructor) Kind() Kind { return KindConstructor }

// New allocates an instance and runs the constructor.
func (c *Constructor) New(machine *vm.VM, args []vm.Value) (*vm.JObject, error) {
	if c.IsPrivate() && !c.Accessible {
		return nil, memberError(c.Class.JavaName(), "<init>", nil, ErrAccessDenied)
	}
	return machine.Construct(c.Class, c.Descriptor, args...)
}

// functionOf returns the methods bound by e, if any.
func functionOf(e Entry) *Function {
	switch e := e.(type) {
	case *Function:
		return e
	case *FieldAndMethods:
		return e.Methods
	}
	return nil
}
