package vm

import "github.com/daimatz/jbridge/pkg/classfile"

// IsAssignable reports whether a value of static type from may be stored in
// a variable of type to. Primitive types are only assignable to themselves;
// reference types follow subclassing, interfaces and array covariance.
// Classes that cannot be loaded are treated as unrelated.
func IsAssignable(loader ClassLoader, to, from classfile.Type) bool {
	if to == from {
		return true
	}
	if !to.IsReference() || !from.IsReference() {
		return false
	}
	if to == classfile.ObjectType {
		return true
	}
	if from.IsArray() {
		switch {
		case to.IsArray():
			fe, te := from.Elem(), to.Elem()
			return fe.IsReference() && te.IsReference() && IsAssignable(loader, te, fe)
		case to == classfile.ClassType("java/lang/Cloneable"), to == classfile.ClassType("java/io/Serializable"):
			return true
		}
		return false
	}
	if to.IsArray() || loader == nil {
		return false
	}
	toClass, err := loader.LoadClass(to.ClassName())
	if err != nil {
		return false
	}
	fromClass, err := loader.LoadClass(from.ClassName())
	if err != nil {
		return false
	}
	return toClass.IsAssignableFrom(fromClass)
}

// ClassOf returns the runtime class of a reference, or nil when it has none
// (e.g. an array or a foreign Go value).
func ClassOf(loader ClassLoader, ref any) *Class {
	switch r := ref.(type) {
	case *JObject:
		return r.Class
	case string:
		if loader == nil {
			return nil
		}
		c, err := loader.LoadClass("java/lang/String")
		if err != nil {
			return nil
		}
		return c
	}
	return nil
}

func refAssignable(loader ClassLoader, to classfile.Type, ref any) bool {
	if to == classfile.ObjectType {
		return true
	}
	if _, ok := ref.(*JArray); ok {
		return to.IsArray()
	}
	c := ClassOf(loader, ref)
	if c == nil {
		// Foreign Go values cannot be checked.
		return true
	}
	if to.IsArray() {
		return false
	}
	if loader == nil {
		loader = c.Loader
	}
	if loader == nil {
		return true
	}
	toClass, err := loader.LoadClass(to.ClassName())
	if err != nil {
		return false
	}
	return toClass.IsAssignableFrom(c)
}
