package members

import "github.com/daimatz/jbridge/pkg/vm"

// newLegacySource reflects c in a single pass, without a ClassInfo, and
// binds every member up front.
func newLegacySource(c *vm.Class, w *walker) (*mapSource, []*Method, error) {
	methods := w.methods(c)
	fields, err := w.fields(c)
	if err != nil {
		return nil, nil, err
	}
	ctors, err := w.constructors(c)
	if err != nil {
		return nil, nil, err
	}

	s := &mapSource{ht: [2]map[string]Entry{{}, {}}}
	var scoped [2][]*Method
	for _, m := range methods {
		i := scopeIndex(m.IsStatic())
		ht := s.ht[i]
		if fn, ok := ht[m.Name].(*Function); ok {
			fn.Methods = append(fn.Methods, m)
		} else {
			ht[m.Name] = newFunction(m.Name, []*Method{m})
		}
		scoped[i] = append(scoped[i], m)
	}
	names, picked := pickFields(fields)
	for _, name := range names {
		f := picked[name]
		if err := placeField(s.ht[scopeIndex(f.IsStatic())], f); err != nil {
			return nil, nil, err
		}
	}

	for i, ht := range s.ht {
		bs := beanScope{
			lookup:         func(name string) Entry { return ht[name] },
			includePrivate: w.vis.private(),
			loader:         c.Loader,
		}
		// Group overloads the way the record does so that candidates are
		// tried in the same order.
		var grouped []*Method
		seen := make(map[string]bool)
		for _, m := range scoped[i] {
			if seen[m.Name] {
				continue
			}
			seen[m.Name] = true
			grouped = append(grouped, functionOf(ht[m.Name]).Methods...)
		}
		order, components := collectBeans(grouped, func(name, component string) bool {
			return bs.synthesize(name, component) != nil
		})
		placeBeans(ht, order, components, bs)
	}
	s.index()
	return s, ctors, nil
}
