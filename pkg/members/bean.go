package members

import (
	"strings"
	"unicode"

	"github.com/daimatz/jbridge/pkg/classfile"
	"github.com/daimatz/jbridge/pkg/vm"
)

// propertyName derives a bean property name from a get/is/set method name.
// It returns the property name and the component following the prefix.
func propertyName(method string) (name, component string, ok bool) {
	switch {
	case strings.HasPrefix(method, "get"), strings.HasPrefix(method, "set"):
		component = method[3:]
	case strings.HasPrefix(method, "is"):
		component = method[2:]
	default:
		return "", "", false
	}
	if component == "" {
		return "", "", false
	}
	runes := []rune(component)
	name = component
	if unicode.IsUpper(runes[0]) {
		switch {
		case len(runes) == 1:
			name = strings.ToLower(component)
		case !unicode.IsUpper(runes[1]):
			name = string(unicode.ToLower(runes[0])) + string(runes[1:])
		}
	}
	return name, component, true
}

// beanScope is the view of one scope a property is synthesized against.
type beanScope struct {
	// lookup returns the entry already bound to a name, or nil.
	lookup         func(name string) Entry
	includePrivate bool
	loader         vm.ClassLoader
}

// synthesize builds the property name from the methods named get, is and
// set plus component. It returns nil when name is taken by another member,
// or when neither a getter nor a setter exists.
func (s beanScope) synthesize(name, component string) *BeanProperty {
	if existing := s.lookup(name); existing != nil {
		// A bean may shadow a private field only when private members are
		// reflected; everything else keeps the name.
		f, ok := existing.(*Field)
		if !s.includePrivate || !ok || !f.IsPrivate() {
			return nil
		}
	}

	getter := extractGetter(functionOf(s.lookup("get" + component)))
	if getter == nil {
		getter = extractGetter(functionOf(s.lookup("is" + component)))
	}

	var setter *Method
	var setters *Function
	if set := functionOf(s.lookup("set" + component)); set != nil {
		if getter != nil {
			setter = extractSetter(set, getter.Return, s.loader)
		} else {
			setter = firstSetter(set)
		}
		if len(set.Methods) > 1 {
			setters = set
		}
	}

	if getter == nil && setter == nil {
		return nil
	}
	return &BeanProperty{Name: name, Getter: getter, Setter: setter, Setters: setters}
}

// extractGetter returns the zero-argument overload of fn when it returns a
// value.
func extractGetter(fn *Function) *Method {
	if fn == nil {
		return nil
	}
	for _, m := range fn.Methods {
		if len(m.Params) == 0 {
			if m.Return.IsVoid() {
				return nil
			}
			return m
		}
	}
	return nil
}

// extractSetter returns the single-argument overload of fn taking exactly
// t, or else the first one whose parameter accepts t.
func extractSetter(fn *Function, t classfile.Type, loader vm.ClassLoader) *Method {
	for _, m := range fn.Methods {
		if len(m.Params) == 1 && m.Params[0] == t {
			return m
		}
	}
	for _, m := range fn.Methods {
		if len(m.Params) == 1 && vm.IsAssignable(loader, m.Params[0], t) {
			return m
		}
	}
	return nil
}

// firstSetter returns the first void single-argument overload of fn.
func firstSetter(fn *Function) *Method {
	for _, m := range fn.Methods {
		if len(m.Params) == 1 && m.Return.IsVoid() {
			return m
		}
	}
	return nil
}

// collectBeans walks methods in discovery order and keeps, per property
// name, the first component that synthesizes a property.
func collectBeans(methods []*Method, try func(name, component string) bool) (order []string, components map[string]string) {
	components = make(map[string]string)
	tried := make(map[[2]string]bool)
	for _, m := range methods {
		name, component, ok := propertyName(m.Name)
		if !ok {
			continue
		}
		if _, done := components[name]; done {
			continue
		}
		key := [2]string{name, component}
		if tried[key] {
			continue
		}
		tried[key] = true
		if try(name, component) {
			components[name] = component
			order = append(order, name)
		}
	}
	return order, components
}
