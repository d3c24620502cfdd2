package members

import (
	"github.com/charmbracelet/log"

	"github.com/daimatz/jbridge/pkg/vm"
)

// Visibility selects which members are reflected.
type Visibility int

const (
	PublicOnly Visibility = iota
	IncludeProtected
	IncludePrivate
)

func (v Visibility) protected() bool { return v >= IncludeProtected }
func (v Visibility) private() bool   { return v == IncludePrivate }

func (v Visibility) String() string {
	switch v {
	case PublicOnly:
		return "public"
	case IncludeProtected:
		return "protected"
	case IncludePrivate:
		return "private"
	}
	return "unknown"
}

// walker collects the members of a class under one visibility policy.
// Reflection denied by the guard is logged and worked around where a
// narrower view exists.
type walker struct {
	vis    Visibility
	guard  vm.Guard
	logger *log.Logger
}

// methods returns the deduplicated methods of c in discovery order.
func (w *walker) methods(c *vm.Class) []*Method {
	set := newMethodSet()
	w.discover(c, set)
	return set.methods
}

func (w *walker) discover(c *vm.Class, set *methodSet) {
	if c.IsPublic() || w.vis.private() {
		if w.vis.protected() {
			cur := c
			for ; cur != nil; cur = cur.Super {
				declared, err := cur.DeclaredMethods(w.guard)
				if err != nil {
					w.logger.Warn("declared methods unavailable, using public methods", "class", cur.JavaName(), "err", err)
					public, perr := cur.PublicMethods(w.guard)
					if perr != nil {
						w.logger.Warn("public methods unavailable", "class", cur.JavaName(), "err", perr)
						break
					}
					set.addAll(public, false)
					return
				}
				for _, m := range declared {
					if m.IsPublic() || m.IsProtected() || w.vis.private() {
						set.add(&Method{Method: m, Accessible: w.vis.private()})
					}
				}
			}
			if cur == nil {
				return
			}
			// Reflection on cur failed outright; reach its methods through
			// its supertypes instead.
			c = cur
		} else {
			public, err := c.PublicMethods(w.guard)
			if err == nil {
				set.addAll(public, false)
				return
			}
			w.logger.Warn("public methods unavailable", "class", c.JavaName(), "err", err)
		}
	}

	for _, i := range c.Interfaces {
		w.discover(i, set)
	}
	if c.Super != nil {
		w.discover(c.Super, set)
	}
}

// fields returns the fields of c in discovery order. A denied public view
// is returned as an error.
func (w *walker) fields(c *vm.Class) ([]*Field, error) {
	if w.vis.protected() {
		var out []*Field
		ok := true
		for cur := c; cur != nil; cur = cur.Super {
			declared, err := cur.DeclaredFields(w.guard)
			if err != nil {
				w.logger.Warn("declared fields unavailable, using public fields", "class", cur.JavaName(), "err", err)
				ok = false
				break
			}
			for _, f := range declared {
				if w.vis.private() || f.IsPublic() || f.IsProtected() {
					out = append(out, &Field{Field: f, Accessible: true})
				}
			}
		}
		if ok {
			return out, nil
		}
	}
	public, err := c.PublicFields(w.guard)
	if err != nil {
		return nil, err
	}
	out := make([]*Field, len(public))
	for i, f := range public {
		out[i] = &Field{Field: f}
	}
	return out, nil
}

// constructors returns the constructors of c.
func (w *walker) constructors(c *vm.Class) ([]*Method, error) {
	if w.vis.private() {
		declared, err := c.DeclaredConstructors(w.guard)
		if err == nil {
			out := make([]*Method, len(declared))
			for i, m := range declared {
				out[i] = &Method{Method: m, Accessible: true}
			}
			return out, nil
		}
		w.logger.Warn("declared constructors unavailable, using public constructors", "class", c.JavaName(), "err", err)
	}
	public, err := c.PublicConstructors(w.guard)
	if err != nil {
		return nil, err
	}
	out := make([]*Method, len(public))
	for i, m := range public {
		out[i] = &Method{Method: m}
	}
	return out, nil
}

// pickFields merges fields sharing a name. A field replaces the current
// pick when it is declared in a subclass of the pick's class, or when it
// carries the accessible override and the pick does not.
func pickFields(fields []*Field) (names []string, picked map[string]*Field) {
	picked = make(map[string]*Field)
	for _, f := range fields {
		old, ok := picked[f.Name]
		if !ok {
			names = append(names, f.Name)
			picked[f.Name] = f
			continue
		}
		if old.Class.IsAssignableFrom(f.Class) || (f.Accessible && !old.Accessible) {
			picked[f.Name] = f
		}
	}
	return names, picked
}
