package vm

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/daimatz/jbridge/pkg/classfile"
)

// ClassDef describes a class whose methods are implemented in Go.
type ClassDef struct {
	Name        string // internal name
	Super       string // "" only for the root class and interfaces
	Interfaces  []string
	AccessFlags uint16
	Fields      []FieldDef
	Methods     []MethodDef // constructors use the name "<init>"
}

// FieldDef describes a field of a ClassDef. Value, when set, initializes a
// static field.
type FieldDef struct {
	Name        string
	Descriptor  string
	AccessFlags uint16
	Value       *Value
}

// MethodDef describes a method of a ClassDef. Native may be nil only for
// abstract methods.
type MethodDef struct {
	Name        string
	Descriptor  string
	AccessFlags uint16
	Native      NativeFunc
}

// MapClassLoader holds classes defined at runtime, either from ClassDefs or
// from class file bytes. Classes defined here shadow the parent's.
type MapClassLoader struct {
	Parent ClassLoader

	mu      sync.RWMutex
	classes map[string]*Class
}

func NewMapClassLoader(parent ClassLoader) *MapClassLoader {
	return &MapClassLoader{Parent: parent, classes: make(map[string]*Class)}
}

func (cl *MapClassLoader) LoadClass(name string) (*Class, error) {
	cl.mu.RLock()
	c, ok := cl.classes[name]
	cl.mu.RUnlock()
	if ok {
		return c, nil
	}
	if cl.Parent != nil {
		return cl.Parent.LoadClass(name)
	}
	return nil, fmt.Errorf("%w: %s", ErrClassNotFound, name)
}

// Define links def and registers it. Supertypes must already be loadable.
func (cl *MapClassLoader) Define(def ClassDef) (*Class, error) {
	c := &Class{Name: def.Name, AccessFlags: def.AccessFlags, Loader: cl}
	if err := c.linkSupertypes(def.Super, def.Interfaces, cl.LoadClass); err != nil {
		return nil, err
	}
	for _, fd := range def.Fields {
		t, err := classfile.ParseType(fd.Descriptor)
		if err != nil {
			return nil, fmt.Errorf("define %s: field %s: %w", def.Name, fd.Name, err)
		}
		f := &Field{Class: c, Name: fd.Name, Type: t, AccessFlags: fd.AccessFlags}
		c.Fields = append(c.Fields, f)
		if fd.Value != nil {
			if !f.IsStatic() {
				return nil, fmt.Errorf("define %s: initial value on instance field %s", def.Name, fd.Name)
			}
			c.setStatic(f, *fd.Value)
		}
	}
	for _, md := range def.Methods {
		flags := md.AccessFlags
		if md.Native != nil {
			flags |= classfile.AccNative
		} else if flags&classfile.AccAbstract == 0 {
			return nil, fmt.Errorf("define %s: method %s%s has no body", def.Name, md.Name, md.Descriptor)
		}
		if err := c.addMethod(md.Name, md.Descriptor, flags, nil, md.Native); err != nil {
			return nil, err
		}
	}
	if err := cl.register(c); err != nil {
		return nil, err
	}
	return c, nil
}

// DefineBytes parses and links a class file.
func (cl *MapClassLoader) DefineBytes(data []byte) (*Class, error) {
	cf, err := classfile.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	c, err := link(cf, cl, cl.LoadClass)
	if err != nil {
		return nil, err
	}
	if err := cl.register(c); err != nil {
		return nil, err
	}
	return c, nil
}

// MustDefine is like Define but panics on error. It is meant for
// package-level class libraries whose definitions are static.
func (cl *MapClassLoader) MustDefine(def ClassDef) *Class {
	c, err := cl.Define(def)
	if err != nil {
		panic(err)
	}
	return c
}

var errDuplicateClass = errors.New("vm: duplicate class definition")

func (cl *MapClassLoader) register(c *Class) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if _, ok := cl.classes[c.Name]; ok {
		return fmt.Errorf("%w: %s", errDuplicateClass, c.Name)
	}
	cl.classes[c.Name] = c
	return nil
}
