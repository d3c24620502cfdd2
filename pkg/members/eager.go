package members

import (
	"fmt"
	"slices"

	"github.com/daimatz/jbridge/pkg/vm"
)

// mapSource serves members from maps filled when the table is created.
type mapSource struct {
	ht   [2]map[string]Entry
	ids  [2][]string
	fams [2][]string
}

func (s *mapSource) member(name string, isStatic bool) Entry {
	return s.ht[scopeIndex(isStatic)][name]
}

func (s *mapSource) names(isStatic bool) []string { return s.ids[scopeIndex(isStatic)] }

func (s *mapSource) fieldAndMethodNames(isStatic bool) []string {
	return s.fams[scopeIndex(isStatic)]
}

// index computes the sorted name lists once every entry is in place.
func (s *mapSource) index() {
	for i, ht := range s.ht {
		s.ids[i] = s.ids[i][:0]
		s.fams[i] = s.fams[i][:0]
		for name, e := range ht {
			s.ids[i] = append(s.ids[i], name)
			if _, ok := e.(*FieldAndMethods); ok {
				s.fams[i] = append(s.fams[i], name)
			}
		}
		slices.Sort(s.ids[i])
		slices.Sort(s.fams[i])
	}
}

// placeField binds f into ht next to whatever is already bound to its name.
func placeField(ht map[string]Entry, f *Field) error {
	switch e := ht[f.Name].(type) {
	case nil:
		ht[f.Name] = f
	case *Function:
		ht[f.Name] = &FieldAndMethods{Field: f, Methods: e, This: vm.NullValue()}
	default:
		return fmt.Errorf("%w: field %s collides with %s", ErrInconsistent, f.Name, e.Kind())
	}
	return nil
}

// placeBeans synthesizes the properties named in order and binds them
// after all lookups are done, so that one property never hides the
// accessors of another.
func placeBeans(ht map[string]Entry, order []string, components map[string]string, bs beanScope) {
	var props []*BeanProperty
	for _, name := range order {
		if p := bs.synthesize(name, components[name]); p != nil {
			props = append(props, p)
		}
	}
	for _, p := range props {
		ht[p.Name] = p
	}
}

// newEagerSource binds every member of info up front.
func newEagerSource(info *ClassInfo) (*mapSource, error) {
	s := &mapSource{ht: [2]map[string]Entry{{}, {}}}
	for _, isStatic := range []bool{false, true} {
		scope := info.scope(isStatic)
		ht := s.ht[scopeIndex(isStatic)]
		for _, name := range scope.methodOrder {
			ht[name] = newFunction(name, scope.methods[name])
		}
		for _, f := range scope.fields {
			if err := placeField(ht, f); err != nil {
				return nil, err
			}
		}
		bs := beanScope{
			lookup:         func(name string) Entry { return ht[name] },
			includePrivate: info.Visibility.private(),
			loader:         info.Class.Loader,
		}
		placeBeans(ht, scope.beanOrder, scope.beans, bs)
	}
	s.index()
	return s, nil
}
