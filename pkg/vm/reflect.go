package vm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrReflectionDenied is returned by the reflection API when a Guard refuses
// to expose the members of a class.
var ErrReflectionDenied = errors.New("vm: reflection denied")

// Which set of members a reflection call asks for.
const (
	MemberPublic   = 0 // public members, including inherited ones
	MemberDeclared = 1 // all members declared by the class itself
)

// Guard decides whether the members of a class may be reflected upon.
// A nil Guard allows everything.
type Guard interface {
	CheckMemberAccess(c *Class, which int) error
}

// PackageGuard denies reflection on classes whose internal name starts with
// one of Prefixes (e.g. "sun/"). Declared members of matching classes are
// always refused; public members are refused too unless PublicAllowed.
type PackageGuard struct {
	Prefixes      []string
	PublicAllowed bool
}

func (g PackageGuard) CheckMemberAccess(c *Class, which int) error {
	for _, p := range g.Prefixes {
		if !strings.HasPrefix(c.Name, p) {
			continue
		}
		if which == MemberPublic && g.PublicAllowed {
			return nil
		}
		return fmt.Errorf("%w: %s is in restricted package %s", ErrReflectionDenied, c.JavaName(), p)
	}
	return nil
}

func checkAccess(g Guard, c *Class, which int) error {
	if g == nil {
		return nil
	}
	return g.CheckMemberAccess(c, which)
}

// DeclaredMethods returns the methods declared by c, whatever their access.
func (c *Class) DeclaredMethods(g Guard) ([]*Method, error) {
	if err := checkAccess(g, c, MemberDeclared); err != nil {
		return nil, err
	}
	return append([]*Method(nil), c.Methods...), nil
}

// PublicMethods returns the public methods of c together with the public
// methods it inherits from super classes and superinterfaces. A method
// overridden in a subclass is listed once, in its most derived form.
func (c *Class) PublicMethods(g Guard) ([]*Method, error) {
	if err := checkAccess(g, c, MemberPublic); err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []*Method
	add := func(m *Method, inherited bool) {
		key := m.Name + m.Descriptor
		if !m.IsPublic() || seen[key] || (inherited && m.IsStatic()) {
			return
		}
		seen[key] = true
		out = append(out, m)
	}
	for cur := c; cur != nil; cur = cur.Super {
		for _, m := range cur.Methods {
			add(m, false)
		}
	}
	visited := make(map[*Class]bool)
	queue := []*Class{}
	for cur := c; cur != nil; cur = cur.Super {
		queue = append(queue, cur.Interfaces...)
	}
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		if visited[i] {
			continue
		}
		visited[i] = true
		for _, m := range i.Methods {
			// Static interface methods are not inherited.
			add(m, i != c)
		}
		queue = append(queue, i.Interfaces...)
	}
	return out, nil
}

// DeclaredFields returns the fields declared by c, whatever their access.
func (c *Class) DeclaredFields(g Guard) ([]*Field, error) {
	if err := checkAccess(g, c, MemberDeclared); err != nil {
		return nil, err
	}
	return append([]*Field(nil), c.Fields...), nil
}

// PublicFields returns the public fields of c, its superinterfaces and its
// super classes, in that order.
func (c *Class) PublicFields(g Guard) ([]*Field, error) {
	if err := checkAccess(g, c, MemberPublic); err != nil {
		return nil, err
	}
	visited := make(map[*Class]bool)
	var out []*Field
	var walk func(k *Class)
	walk = func(k *Class) {
		if k == nil || visited[k] {
			return
		}
		visited[k] = true
		for _, f := range k.Fields {
			if f.IsPublic() {
				out = append(out, f)
			}
		}
		for _, i := range k.Interfaces {
			walk(i)
		}
		walk(k.Super)
	}
	walk(c)
	return out, nil
}

// DeclaredConstructors returns every constructor of c.
func (c *Class) DeclaredConstructors(g Guard) ([]*Method, error) {
	if err := checkAccess(g, c, MemberDeclared); err != nil {
		return nil, err
	}
	return append([]*Method(nil), c.Constructors...), nil
}

// PublicConstructors returns the public constructors of c.
func (c *Class) PublicConstructors(g Guard) ([]*Method, error) {
	if err := checkAccess(g, c, MemberPublic); err != nil {
		return nil, err
	}
	var out []*Method
	for _, m := range c.Constructors {
		if m.IsPublic() {
			out = append(out, m)
		}
	}
	return out, nil
}
