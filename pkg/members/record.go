package members

import (
	"slices"

	"github.com/daimatz/jbridge/pkg/vm"
)

// scopeInfo holds the members of one scope, static or instance.
type scopeInfo struct {
	methods         map[string][]*Method // by name, in discovery order
	methodOrder     []string
	fields          map[string]*Field
	beans           map[string]string // property name to component
	beanOrder       []string
	fieldAndMethods []string // sorted
	names           []string // sorted union of methods, fields and beans
}

func newScopeInfo() *scopeInfo {
	return &scopeInfo{
		methods: make(map[string][]*Method),
		fields:  make(map[string]*Field),
	}
}

// entry binds name from the methods and field of the scope, ignoring
// beans.
func (s *scopeInfo) entry(name string) Entry {
	return bindMember(name, s.methods[name], s.fields[name])
}

func (s *scopeInfo) has(name string) bool {
	_, ok := slices.BinarySearch(s.names, name)
	return ok
}

// ClassInfo is the reflected member record of one class under one
// visibility policy. It is immutable once built and shared by every Table
// bound to the class.
type ClassInfo struct {
	Class      *vm.Class
	Visibility Visibility

	static       *scopeInfo
	instance     *scopeInfo
	constructors []*Method
}

func (c *ClassInfo) scope(isStatic bool) *scopeInfo {
	if isStatic {
		return c.static
	}
	return c.instance
}

// Names returns the sorted member names of a scope, bean properties
// included.
func (c *ClassInfo) Names(isStatic bool) []string {
	return slices.Clone(c.scope(isStatic).names)
}

// Methods returns the overloads bound to name in a scope.
func (c *ClassInfo) Methods(name string, isStatic bool) []*Method {
	return slices.Clone(c.scope(isStatic).methods[name])
}

// Field returns the field bound to name in a scope, or nil.
func (c *ClassInfo) Field(name string, isStatic bool) *Field {
	return c.scope(isStatic).fields[name]
}

// Beans returns the synthesized properties of a scope, mapped to the
// component their accessors are named after.
func (c *ClassInfo) Beans(isStatic bool) map[string]string {
	out := make(map[string]string, len(c.scope(isStatic).beans))
	for k, v := range c.scope(isStatic).beans {
		out[k] = v
	}
	return out
}

// FieldAndMethodNames returns the sorted names shared by a field and
// methods in a scope.
func (c *ClassInfo) FieldAndMethodNames(isStatic bool) []string {
	return slices.Clone(c.scope(isStatic).fieldAndMethods)
}

// Constructors returns the reflected constructors.
func (c *ClassInfo) Constructors() []*Method {
	return slices.Clone(c.constructors)
}

// buildClassInfo reflects c. It fails when the guard refuses the public
// fields or constructors of c.
func buildClassInfo(c *vm.Class, w *walker) (*ClassInfo, error) {
	methods := w.methods(c)
	fields, err := w.fields(c)
	if err != nil {
		return nil, err
	}
	ctors, err := w.constructors(c)
	if err != nil {
		return nil, err
	}

	info := &ClassInfo{
		Class:        c,
		Visibility:   w.vis,
		static:       newScopeInfo(),
		instance:     newScopeInfo(),
		constructors: ctors,
	}
	for _, m := range methods {
		s := info.scope(m.IsStatic())
		if _, ok := s.methods[m.Name]; !ok {
			s.methodOrder = append(s.methodOrder, m.Name)
		}
		s.methods[m.Name] = append(s.methods[m.Name], m)
	}
	names, picked := pickFields(fields)
	for _, name := range names {
		f := picked[name]
		info.scope(f.IsStatic()).fields[name] = f
	}

	for _, isStatic := range []bool{false, true} {
		s := info.scope(isStatic)
		var scopeMethods []*Method
		for _, name := range s.methodOrder {
			scopeMethods = append(scopeMethods, s.methods[name]...)
		}
		bs := beanScope{lookup: s.entry, includePrivate: w.vis.private(), loader: c.Loader}
		s.beanOrder, s.beans = collectBeans(scopeMethods, func(name, component string) bool {
			return bs.synthesize(name, component) != nil
		})

		set := make(map[string]struct{})
		for name := range s.methods {
			set[name] = struct{}{}
			if _, ok := s.fields[name]; ok {
				s.fieldAndMethods = append(s.fieldAndMethods, name)
			}
		}
		for name := range s.fields {
			set[name] = struct{}{}
		}
		for name := range s.beans {
			set[name] = struct{}{}
		}
		for name := range set {
			s.names = append(s.names, name)
		}
		slices.Sort(s.names)
		slices.Sort(s.fieldAndMethods)
	}
	return info, nil
}

// bindMember builds the entry for name from its overloads and field.
func bindMember(name string, methods []*Method, field *Field) Entry {
	switch {
	case len(methods) > 0 && field != nil:
		return &FieldAndMethods{Field: field, Methods: newFunction(name, methods), This: vm.NullValue()}
	case len(methods) > 0:
		return newFunction(name, methods)
	case field != nil:
		return field
	}
	return nil
}
