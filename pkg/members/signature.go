package members

import "github.com/daimatz/jbridge/pkg/vm"

// Signature identifies a method for deduplication: its name and parameter
// types, without the return type.
type Signature struct {
	Name   string
	Params string // "(ILjava/lang/String;)"
}

func signatureOf(m *vm.Method) Signature {
	return Signature{Name: m.Name, Params: m.ParamDescriptor()}
}

func (s Signature) String() string { return s.Name + s.Params }

// methodSet keeps one method per Signature in discovery order. The first
// method seen wins unless a later one carries the accessible override and
// the first does not.
type methodSet struct {
	index   map[Signature]int
	methods []*Method
}

func newMethodSet() *methodSet {
	return &methodSet{index: make(map[Signature]int)}
}

func (s *methodSet) add(m *Method) {
	sig := signatureOf(m.Method)
	if i, ok := s.index[sig]; ok {
		if m.Accessible && !s.methods[i].Accessible {
			s.methods[i] = m
		}
		return
	}
	s.index[sig] = len(s.methods)
	s.methods = append(s.methods, m)
}

func (s *methodSet) addAll(ms []*vm.Method, accessible bool) {
	for _, m := range ms {
		s.add(&Method{Method: m, Accessible: accessible})
	}
}
