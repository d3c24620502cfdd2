package vm

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/daimatz/jbridge/pkg/classfile"
)

var (
	// ErrFinalField is returned when writing a final field.
	ErrFinalField = errors.New("vm: field is final")
	// ErrFieldType is returned when a value does not fit the field's type.
	ErrFieldType = errors.New("vm: value does not match field type")
	// ErrIllegalAccess is returned when a receiver is not an instance of the
	// member's declaring class.
	ErrIllegalAccess = errors.New("vm: illegal access")
)

// Class is a linked class: its super class and interfaces are resolved and
// its members carry parsed descriptors.
type Class struct {
	Name         string // internal form, e.g. "java/lang/String"
	AccessFlags  uint16
	Super        *Class
	Interfaces   []*Class
	Fields       []*Field
	Methods      []*Method // excludes <init> and <clinit>
	Constructors []*Method
	Loader       ClassLoader
	File         *classfile.ClassFile // nil for classes defined natively

	mu      sync.RWMutex
	statics map[*Field]Value
}

// JavaName returns the dotted binary name, e.g. "java.lang.String".
func (c *Class) JavaName() string {
	return strings.ReplaceAll(c.Name, "/", ".")
}

// Package returns the internal package name, e.g. "java/lang".
func (c *Class) Package() string {
	if i := strings.LastIndexByte(c.Name, '/'); i >= 0 {
		return c.Name[:i]
	}
	return ""
}

func (c *Class) String() string { return c.JavaName() }

func (c *Class) IsPublic() bool    { return c.AccessFlags&classfile.AccPublic != 0 }
func (c *Class) IsInterface() bool { return c.AccessFlags&classfile.AccInterface != 0 }
func (c *Class) IsAbstract() bool  { return c.AccessFlags&classfile.AccAbstract != 0 }

// Type returns the descriptor of this class.
func (c *Class) Type() classfile.Type { return classfile.ClassType(c.Name) }

// IsAssignableFrom reports whether a value of class o can be stored in a
// variable of class c, following java.lang.Class#isAssignableFrom.
func (c *Class) IsAssignableFrom(o *Class) bool {
	if c == o {
		return true
	}
	if o == nil {
		return false
	}
	if c.Super == nil && !c.IsInterface() {
		return true // the root class
	}
	if c.IsAssignableFrom(o.Super) {
		return true
	}
	for _, i := range o.Interfaces {
		if c.IsAssignableFrom(i) {
			return true
		}
	}
	return false
}

// DeclaredField returns the field of the given name declared by c itself.
func (c *Class) DeclaredField(name string) *Field {
	for _, f := range c.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// LookupField resolves a field reference the way the JVM does: c itself,
// then its superinterfaces, then its super class.
func (c *Class) LookupField(name string) *Field {
	if f := c.DeclaredField(name); f != nil {
		return f
	}
	for _, i := range c.Interfaces {
		if f := i.LookupField(name); f != nil {
			return f
		}
	}
	if c.Super != nil {
		return c.Super.LookupField(name)
	}
	return nil
}

// DeclaredMethod returns the method or constructor declared by c itself.
func (c *Class) DeclaredMethod(name, desc string) *Method {
	list := c.Methods
	if name == "<init>" {
		list = c.Constructors
	}
	for _, m := range list {
		if m.Name == name && m.Descriptor == desc {
			return m
		}
	}
	return nil
}

// LookupMethod resolves a method through the super class chain first and the
// superinterfaces after, preferring concrete methods.
func (c *Class) LookupMethod(name, desc string) *Method {
	for cur := c; cur != nil; cur = cur.Super {
		if m := cur.DeclaredMethod(name, desc); m != nil {
			return m
		}
	}
	var abstract *Method
	for cur := c; cur != nil; cur = cur.Super {
		for _, i := range cur.Interfaces {
			if m := i.LookupMethod(name, desc); m != nil {
				if !m.IsAbstract() {
					return m
				}
				if abstract == nil {
					abstract = m
				}
			}
		}
	}
	return abstract
}

func (c *Class) static(f *Field) Value {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if v, ok := c.statics[f]; ok {
		return v
	}
	return ZeroValue(f.Type)
}

func (c *Class) setStatic(f *Field, v Value) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.statics == nil {
		c.statics = make(map[*Field]Value)
	}
	c.statics[f] = v
}

// Field is a linked field.
type Field struct {
	Class       *Class
	Name        string
	Type        classfile.Type
	AccessFlags uint16
}

func (f *Field) IsPublic() bool    { return f.AccessFlags&classfile.AccPublic != 0 }
func (f *Field) IsPrivate() bool   { return f.AccessFlags&classfile.AccPrivate != 0 }
func (f *Field) IsProtected() bool { return f.AccessFlags&classfile.AccProtected != 0 }
func (f *Field) IsStatic() bool    { return f.AccessFlags&classfile.AccStatic != 0 }
func (f *Field) IsFinal() bool     { return f.AccessFlags&classfile.AccFinal != 0 }

func (f *Field) String() string {
	return fmt.Sprintf("%s %s.%s", f.Type.JavaName(), f.Class.JavaName(), f.Name)
}

// Get reads the field. this is ignored for static fields.
func (f *Field) Get(this Value) (Value, error) {
	if f.IsStatic() {
		return f.Class.static(f), nil
	}
	obj, err := f.receiver(this)
	if err != nil {
		return Value{}, err
	}
	return obj.GetField(f), nil
}

// Set writes the field, refusing final fields and values of the wrong type.
func (f *Field) Set(this, v Value) error {
	if f.IsFinal() {
		return fmt.Errorf("%w: %s", ErrFinalField, f)
	}
	if err := checkFieldValue(f, v); err != nil {
		return err
	}
	return f.store(this, v)
}

// store writes without the final check; the interpreter uses it for
// putfield/putstatic, which the verifier already allows inside the class.
func (f *Field) store(this, v Value) error {
	if f.IsStatic() {
		f.Class.setStatic(f, v)
		return nil
	}
	obj, err := f.receiver(this)
	if err != nil {
		return err
	}
	obj.SetField(f, v)
	return nil
}

func (f *Field) receiver(this Value) (*JObject, error) {
	if this.IsNull() {
		return nil, NewJavaException("java/lang/NullPointerException")
	}
	obj, ok := this.Ref.(*JObject)
	if !ok || !f.Class.IsAssignableFrom(obj.Class) {
		return nil, fmt.Errorf("%w: %v is not an instance of %s", ErrIllegalAccess, this, f.Class.JavaName())
	}
	return obj, nil
}

func checkFieldValue(f *Field, v Value) error {
	ok := false
	switch f.Type {
	case classfile.Boolean, classfile.Byte, classfile.Char, classfile.Short, classfile.Int:
		ok = v.Type == TypeInt
	case classfile.Long:
		ok = v.Type == TypeLong
	case classfile.Float:
		ok = v.Type == TypeFloat
	case classfile.Double:
		ok = v.Type == TypeDouble
	default:
		ok = v.IsNull() || (v.Type == TypeRef && refAssignable(f.Class.Loader, f.Type, v.Ref))
	}
	if !ok {
		return fmt.Errorf("%w: cannot store %s in %s", ErrFieldType, v.Type, f)
	}
	return nil
}

// NativeFunc is the Go body of a native method. this is NullValue for
// static methods.
type NativeFunc func(vm *VM, this Value, args []Value) (Value, error)

// Method is a linked method or constructor.
type Method struct {
	Class       *Class
	Name        string
	Descriptor  string
	Params      []classfile.Type
	Return      classfile.Type
	AccessFlags uint16
	Code        *classfile.CodeAttribute
	Native      NativeFunc
}

func (m *Method) IsPublic() bool      { return m.AccessFlags&classfile.AccPublic != 0 }
func (m *Method) IsPrivate() bool     { return m.AccessFlags&classfile.AccPrivate != 0 }
func (m *Method) IsProtected() bool   { return m.AccessFlags&classfile.AccProtected != 0 }
func (m *Method) IsStatic() bool      { return m.AccessFlags&classfile.AccStatic != 0 }
func (m *Method) IsAbstract() bool    { return m.AccessFlags&classfile.AccAbstract != 0 }
func (m *Method) IsConstructor() bool { return m.Name == "<init>" }

// ParamDescriptor returns the parameter part of the descriptor, "(IJ)".
func (m *Method) ParamDescriptor() string {
	return m.Descriptor[:strings.IndexByte(m.Descriptor, ')')+1]
}

func (m *Method) String() string {
	params := make([]string, len(m.Params))
	for i, p := range m.Params {
		params[i] = p.JavaName()
	}
	if m.IsConstructor() {
		return fmt.Sprintf("%s(%s)", m.Class.JavaName(), strings.Join(params, ","))
	}
	return fmt.Sprintf("%s %s.%s(%s)", m.Return.JavaName(), m.Class.JavaName(), m.Name, strings.Join(params, ","))
}
