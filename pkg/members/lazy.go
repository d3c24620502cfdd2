package members

import "sync"

// lazySource binds a name the first time it is asked for. Answers match
// an eager table built from the same record.
type lazySource struct {
	info *ClassInfo

	mu sync.Mutex
	ht [2]map[string]Entry
}

func newLazySource(info *ClassInfo) *lazySource {
	return &lazySource{info: info, ht: [2]map[string]Entry{{}, {}}}
}

func (s *lazySource) names(isStatic bool) []string { return s.info.scope(isStatic).names }

func (s *lazySource) fieldAndMethodNames(isStatic bool) []string {
	return s.info.scope(isStatic).fieldAndMethods
}

func (s *lazySource) member(name string, isStatic bool) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	ht := s.ht[scopeIndex(isStatic)]
	if e, ok := ht[name]; ok {
		return e
	}

	scope := s.info.scope(isStatic)
	if !scope.has(name) {
		return nil
	}
	e := s.plain(name, isStatic)
	if component, ok := scope.beans[name]; ok {
		bs := beanScope{
			lookup:         func(n string) Entry { return s.plain(n, isStatic) },
			includePrivate: s.info.Visibility.private(),
			loader:         s.info.Class.Loader,
		}
		if p := bs.synthesize(name, component); p != nil {
			e = p
		}
	}
	if e != nil {
		ht[name] = e
	}
	return e
}

// plain returns the field or method entry for name, binding it if needed.
// It never synthesizes a property. s.mu must be held.
func (s *lazySource) plain(name string, isStatic bool) Entry {
	ht := s.ht[scopeIndex(isStatic)]
	if e, ok := ht[name]; ok {
		return e
	}
	e := s.info.scope(isStatic).entry(name)
	if e != nil {
		ht[name] = e
	}
	return e
}
