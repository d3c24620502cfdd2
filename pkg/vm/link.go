package vm

import (
	"fmt"

	"github.com/daimatz/jbridge/pkg/classfile"
)

// resolveFunc loads a class by internal name. Loaders pass their unlocked
// lookup so that linking a class can load its supertypes through the same
// loader.
type resolveFunc func(name string) (*Class, error)

// link turns a parsed class file into a Class, resolving its super class and
// interfaces through resolve.
func link(cf *classfile.ClassFile, loader ClassLoader, resolve resolveFunc) (*Class, error) {
	name, err := cf.ClassName()
	if err != nil {
		return nil, fmt.Errorf("link: resolving class name: %w", err)
	}
	c := &Class{Name: name, AccessFlags: cf.AccessFlags, Loader: loader, File: cf}

	superName, err := cf.SuperClassName()
	if err != nil {
		return nil, fmt.Errorf("link %s: resolving super class: %w", name, err)
	}
	ifaceNames, err := cf.InterfaceNames()
	if err != nil {
		return nil, fmt.Errorf("link %s: resolving interfaces: %w", name, err)
	}
	if err := c.linkSupertypes(superName, ifaceNames, resolve); err != nil {
		return nil, err
	}

	for _, fi := range cf.Fields {
		t, err := classfile.ParseType(fi.Descriptor)
		if err != nil {
			return nil, fmt.Errorf("link %s: field %s: %w", name, fi.Name, err)
		}
		f := &Field{Class: c, Name: fi.Name, Type: t, AccessFlags: fi.AccessFlags}
		c.Fields = append(c.Fields, f)
		if f.IsStatic() && fi.ConstantValue != 0 {
			v, err := constantValue(cf.ConstantPool, fi.ConstantValue)
			if err != nil {
				return nil, fmt.Errorf("link %s: field %s: %w", name, fi.Name, err)
			}
			c.setStatic(f, v)
		}
	}

	for i := range cf.Methods {
		mi := &cf.Methods[i]
		if err := c.addMethod(mi.Name, mi.Descriptor, mi.AccessFlags, mi.Code, nil); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Class) linkSupertypes(superName string, ifaceNames []string, resolve resolveFunc) error {
	if superName != "" {
		super, err := resolve(superName)
		if err != nil {
			return fmt.Errorf("link %s: loading super class %s: %w", c.Name, superName, err)
		}
		if super.IsInterface() {
			return fmt.Errorf("link %s: super class %s is an interface", c.Name, superName)
		}
		c.Super = super
	}
	for _, in := range ifaceNames {
		iface, err := resolve(in)
		if err != nil {
			return fmt.Errorf("link %s: loading interface %s: %w", c.Name, in, err)
		}
		if !iface.IsInterface() {
			return fmt.Errorf("link %s: %s is not an interface", c.Name, in)
		}
		c.Interfaces = append(c.Interfaces, iface)
	}
	return nil
}

func (c *Class) addMethod(name, desc string, flags uint16, code *classfile.CodeAttribute, native NativeFunc) error {
	params, ret, err := classfile.ParseMethodDescriptor(desc)
	if err != nil {
		return fmt.Errorf("link %s: method %s: %w", c.Name, name, err)
	}
	m := &Method{
		Class:       c,
		Name:        name,
		Descriptor:  desc,
		Params:      params,
		Return:      ret,
		AccessFlags: flags,
		Code:        code,
		Native:      native,
	}
	switch name {
	case "<clinit>":
		// Static initializers are not run; constant fields come from
		// ConstantValue attributes.
	case "<init>":
		c.Constructors = append(c.Constructors, m)
	default:
		c.Methods = append(c.Methods, m)
	}
	return nil
}

func constantValue(pool []classfile.ConstantPoolEntry, index uint16) (Value, error) {
	if int(index) >= len(pool) || pool[index] == nil {
		return Value{}, fmt.Errorf("invalid constant pool index %d", index)
	}
	switch c := pool[index].(type) {
	case *classfile.ConstantInteger:
		return IntValue(c.Value), nil
	case *classfile.ConstantLong:
		return LongValue(c.Value), nil
	case *classfile.ConstantFloat:
		return FloatValue(c.Value), nil
	case *classfile.ConstantDouble:
		return DoubleValue(c.Value), nil
	case *classfile.ConstantString:
		s, err := classfile.GetUtf8(pool, c.StringIndex)
		if err != nil {
			return Value{}, err
		}
		return RefValue(s), nil
	}
	return Value{}, fmt.Errorf("unsupported constant at index %d (tag=%d)", index, pool[index].Tag())
}
