package members

import (
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/daimatz/jbridge/pkg/vm"
)

// NotFound is what Get returns for a name without a readable entry.
var NotFound = notFound{}

type notFound struct{}

func (notFound) String() string { return "NOT_FOUND" }

// Table is the member table of one class, bound for script access.
type Table interface {
	// Class returns the class whose members the table exposes. After a
	// restricted-access retry it is a supertype of the requested class.
	Class() *vm.Class
	// Has reports whether name resolves in the scope, explicit overload
	// names included.
	Has(name string, isStatic bool) bool
	// Get reads name on this. It returns NotFound when nothing readable is
	// bound to name.
	Get(scope Scope, name string, this vm.Value, isStatic bool) (any, error)
	// Put writes value to name on this. A nil value is the script null.
	Put(scope Scope, name string, this vm.Value, value any, isStatic bool) error
	// IDs returns the sorted member names of a scope. Explicit overload
	// names are not listed.
	IDs(isStatic bool) []string
	// FieldAndMethods returns copies of the field-and-methods entries of a
	// scope bound to this, or nil when there are none.
	FieldAndMethods(scope Scope, this vm.Value, isStatic bool) map[string]*FieldAndMethods
	// Entry returns the entry bound to name, or nil.
	Entry(name string, isStatic bool) Entry
}

// memberSource is what a materialization strategy supplies to a table.
type memberSource interface {
	// member returns the entry bound to name in one scope, or nil.
	member(name string, isStatic bool) Entry
	names(isStatic bool) []string
	fieldAndMethodNames(isStatic bool) []string
}

// table implements the access protocol on top of a memberSource.
type table struct {
	cls     *vm.Class
	machine *vm.VM
	host    Host
	src     memberSource
	ctors   *Function

	mu       sync.Mutex
	explicit [2]map[string]Entry
}

func newTable(cls *vm.Class, machine *vm.VM, host Host, src memberSource, ctors []*Method) *table {
	return &table{
		cls:      cls,
		machine:  machine,
		host:     host,
		src:      src,
		ctors:    newFunction("<init>", ctors),
		explicit: [2]map[string]Entry{{}, {}},
	}
}

func scopeIndex(isStatic bool) int {
	if isStatic {
		return 1
	}
	return 0
}

func (t *table) Class() *vm.Class { return t.cls }

func (t *table) IDs(isStatic bool) []string {
	return slices.Clone(t.src.names(isStatic))
}

func (t *table) Has(name string, isStatic bool) bool {
	if t.src.member(name, isStatic) != nil {
		return true
	}
	m, _ := t.findExplicit(name, isStatic)
	return m != nil
}

func (t *table) Entry(name string, isStatic bool) Entry {
	if e := t.src.member(name, isStatic); e != nil {
		return e
	}
	return t.explicitEntry(name, isStatic)
}

// resolve looks name up in the requested scope, then, for instance
// lookups, among the static members, then among explicit overload names.
func (t *table) resolve(name string, isStatic bool) Entry {
	e := t.src.member(name, isStatic)
	if e == nil && !isStatic {
		e = t.src.member(name, true)
	}
	if e == nil {
		e = t.explicitEntry(name, isStatic)
	}
	return e
}

func (t *table) Get(scope Scope, name string, this vm.Value, isStatic bool) (any, error) {
	switch e := t.resolve(name, isStatic).(type) {
	case nil:
		return NotFound, nil
	case *FieldAndMethods:
		return e.bind(this), nil
	case *Function, *Constructor:
		return e, nil
	case *BeanProperty:
		if e.Getter == nil {
			return NotFound, nil
		}
		v, err := e.Getter.Invoke(t.machine, this, nil)
		if err != nil {
			return nil, memberError(t.cls.JavaName(), name, err)
		}
		return t.host.Wrap(scope, v, e.Getter.Return)
	case *Field:
		v, err := e.Get(receiver(e.Field, this))
		if err != nil {
			return nil, memberError(t.cls.JavaName(), name, err)
		}
		return t.host.Wrap(scope, v, e.Type)
	}
	return nil, memberError(t.cls.JavaName(), name, nil, ErrInconsistent)
}

func (t *table) Put(scope Scope, name string, this vm.Value, value any, isStatic bool) error {
	e := t.resolve(name, isStatic)
	if fam, ok := e.(*FieldAndMethods); ok {
		e = fam.Field
	}
	switch e := e.(type) {
	case nil:
		return memberError(t.cls.JavaName(), name, nil, ErrMemberNotFound)
	case *BeanProperty:
		return t.putProperty(scope, name, e, this, value)
	case *Field:
		v, err := t.host.Coerce(value, e.Type)
		if err != nil {
			return memberError(t.cls.JavaName(), name, err, ErrCoercion)
		}
		if err := e.Set(receiver(e.Field, this), v); err != nil {
			// Writes to final fields are ignored.
			if errors.Is(err, vm.ErrFinalField) {
				return nil
			}
			return memberError(t.cls.JavaName(), name, err, ErrCoercion)
		}
		return nil
	}
	return memberError(t.cls.JavaName(), name, nil, ErrInvalidAssignment)
}

func (t *table) putProperty(scope Scope, name string, p *BeanProperty, this vm.Value, value any) error {
	if p.Setter == nil {
		return memberError(t.cls.JavaName(), name, nil, ErrMemberNotFound, ErrInvalidAssignment)
	}
	if p.Setters == nil || value == nil {
		v, err := t.host.Coerce(value, p.Setter.Params[0])
		if err != nil {
			return memberError(t.cls.JavaName(), name, err, ErrCoercion)
		}
		if _, err := p.Setter.Invoke(t.machine, this, []vm.Value{v}); err != nil {
			return memberError(t.cls.JavaName(), name, err)
		}
		return nil
	}
	if _, err := t.host.Dispatch(scope, p.Setters, this, []any{value}); err != nil {
		if errors.Is(err, ErrCoercion) {
			return memberError(t.cls.JavaName(), name, err, ErrCoercion)
		}
		return memberError(t.cls.JavaName(), name, err)
	}
	return nil
}

func (t *table) FieldAndMethods(_ Scope, this vm.Value, isStatic bool) map[string]*FieldAndMethods {
	names := t.src.fieldAndMethodNames(isStatic)
	if len(names) == 0 {
		return nil
	}
	out := make(map[string]*FieldAndMethods, len(names))
	for _, name := range names {
		if fam, ok := t.src.member(name, isStatic).(*FieldAndMethods); ok {
			out[name] = fam.bind(this)
		}
	}
	return out
}

// findExplicit resolves a name carrying a parameter list, such as
// "format(java.lang.String,int)" or, for constructors in the static scope,
// "(int)". It also returns the entry the overload was selected from.
func (t *table) findExplicit(name string, isStatic bool) (*Method, Entry) {
	i := strings.IndexByte(name, '(')
	if i < 0 {
		return nil, nil
	}
	sig := name[i:]
	if isStatic && i == 0 {
		return t.ctors.Find(sig), nil
	}
	base := t.src.member(name[:i], isStatic)
	if base == nil && !isStatic {
		base = t.src.member(name[:i], true)
	}
	fn := functionOf(base)
	if fn == nil {
		return nil, nil
	}
	return fn.Find(sig), base
}

// explicitEntry returns the entry for an explicit overload name. A method
// without siblings resolves to its own entry; other selections are cached
// under the full name.
func (t *table) explicitEntry(name string, isStatic bool) Entry {
	idx := scopeIndex(isStatic)
	t.mu.Lock()
	e, ok := t.explicit[idx][name]
	t.mu.Unlock()
	if ok {
		return e
	}

	m, base := t.findExplicit(name, isStatic)
	switch {
	case m == nil:
		return nil
	case m.IsConstructor():
		e = &Constructor{Method: m}
	case len(functionOf(base).Methods) == 1:
		return base
	default:
		e = newFunction(name, []*Method{m})
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.explicit[idx][name]; ok {
		return prev
	}
	t.explicit[idx][name] = e
	return e
}

// receiver is the object a field is accessed on.
func receiver(f *vm.Field, this vm.Value) vm.Value {
	if f.IsStatic() {
		return vm.NullValue()
	}
	return this
}
