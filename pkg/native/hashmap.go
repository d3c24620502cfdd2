package native

import (
	"strings"

	"github.com/daimatz/jbridge/pkg/vm"
)

// NativeHashMap is the Go peer (JObject.Native) of a java.util.HashMap.
// Keys are compared by value for strings and Integers and by identity
// otherwise. Iteration follows insertion order.
type NativeHashMap struct {
	Data map[any]vm.Value
	keys []vm.Value
}

// NewNativeHashMap creates a new NativeHashMap.
func NewNativeHashMap() *NativeHashMap {
	return &NativeHashMap{Data: make(map[any]vm.Value)}
}

// mapKey returns the Go map key for a Java key.
// If key is an Integer, its int32 value is used.
func mapKey(key vm.Value) any {
	if n, ok := UnboxInt(key); ok {
		return n
	}
	return key.Interface()
}

// Get returns the value for the given key, or null.
func (m *NativeHashMap) Get(key vm.Value) vm.Value {
	if v, ok := m.Data[mapKey(key)]; ok {
		return v
	}
	return vm.NullValue()
}

// Put stores a key-value pair and returns the previous value, or null.
func (m *NativeHashMap) Put(key, value vm.Value) vm.Value {
	k := mapKey(key)
	old, ok := m.Data[k]
	if !ok {
		old = vm.NullValue()
		m.keys = append(m.keys, key)
	}
	m.Data[k] = value
	return old
}

// Remove deletes key and returns its value, or null.
func (m *NativeHashMap) Remove(key vm.Value) vm.Value {
	k := mapKey(key)
	old, ok := m.Data[k]
	if !ok {
		return vm.NullValue()
	}
	delete(m.Data, k)
	for i, kv := range m.keys {
		if mapKey(kv) == k {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
	return old
}

func (m *NativeHashMap) Len() int { return len(m.Data) }

// Keys returns the keys in insertion order.
func (m *NativeHashMap) Keys() []vm.Value {
	return append([]vm.Value(nil), m.keys...)
}

func (m *NativeHashMap) format(machine *vm.VM) (string, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			b.WriteString(", ")
		}
		ks, err := ToString(machine, k)
		if err != nil {
			return "", err
		}
		vs, err := ToString(machine, m.Data[mapKey(k)])
		if err != nil {
			return "", err
		}
		b.WriteString(ks)
		b.WriteByte('=')
		b.WriteString(vs)
	}
	b.WriteByte('}')
	return b.String(), nil
}

func peer(this vm.Value) *NativeHashMap {
	obj := this.Ref.(*vm.JObject)
	if obj.Native == nil {
		obj.Native = NewNativeHashMap()
	}
	return obj.Native.(*NativeHashMap)
}

func defineCollections(l *library) {
	abstract := func(name, desc string) vm.MethodDef {
		return vm.MethodDef{Name: name, Descriptor: desc, AccessFlags: accPublic | accAbstract}
	}
	l.define(vm.ClassDef{
		Name:        "java/util/Map",
		AccessFlags: accPublic | accInterface,
		Methods: []vm.MethodDef{
			abstract("get", "(Ljava/lang/Object;)Ljava/lang/Object;"),
			abstract("put", "(Ljava/lang/Object;Ljava/lang/Object;)Ljava/lang/Object;"),
			abstract("remove", "(Ljava/lang/Object;)Ljava/lang/Object;"),
			abstract("containsKey", "(Ljava/lang/Object;)Z"),
			abstract("size", "()I"),
			abstract("isEmpty", "()Z"),
		},
	})

	l.define(vm.ClassDef{
		Name:        "java/util/HashMap",
		Super:       "java/lang/Object",
		Interfaces:  []string{"java/util/Map", "java/io/Serializable"},
		AccessFlags: accPublic,
		Methods: []vm.MethodDef{
			{Name: "<init>", Descriptor: "()V", AccessFlags: accPublic, Native: func(_ *vm.VM, this vm.Value, _ []vm.Value) (vm.Value, error) {
				this.Ref.(*vm.JObject).Native = NewNativeHashMap()
				return vm.Value{}, nil
			}},
			{Name: "get", Descriptor: "(Ljava/lang/Object;)Ljava/lang/Object;", AccessFlags: accPublic, Native: func(_ *vm.VM, this vm.Value, args []vm.Value) (vm.Value, error) {
				return ret(peer(this).Get(args[0]))
			}},
			{Name: "put", Descriptor: "(Ljava/lang/Object;Ljava/lang/Object;)Ljava/lang/Object;", AccessFlags: accPublic, Native: func(_ *vm.VM, this vm.Value, args []vm.Value) (vm.Value, error) {
				return ret(peer(this).Put(args[0], args[1]))
			}},
			{Name: "remove", Descriptor: "(Ljava/lang/Object;)Ljava/lang/Object;", AccessFlags: accPublic, Native: func(_ *vm.VM, this vm.Value, args []vm.Value) (vm.Value, error) {
				return ret(peer(this).Remove(args[0]))
			}},
			{Name: "containsKey", Descriptor: "(Ljava/lang/Object;)Z", AccessFlags: accPublic, Native: func(_ *vm.VM, this vm.Value, args []vm.Value) (vm.Value, error) {
				_, ok := peer(this).Data[mapKey(args[0])]
				return ret(vm.BoolValue(ok))
			}},
			{Name: "size", Descriptor: "()I", AccessFlags: accPublic, Native: func(_ *vm.VM, this vm.Value, _ []vm.Value) (vm.Value, error) {
				return ret(vm.IntValue(int32(peer(this).Len())))
			}},
			{Name: "isEmpty", Descriptor: "()Z", AccessFlags: accPublic, Native: func(_ *vm.VM, this vm.Value, _ []vm.Value) (vm.Value, error) {
				return ret(vm.BoolValue(peer(this).Len() == 0))
			}},
			{Name: "toString", Descriptor: "()Ljava/lang/String;", AccessFlags: accPublic, Native: func(machine *vm.VM, this vm.Value, _ []vm.Value) (vm.Value, error) {
				s, err := peer(this).format(machine)
				if err != nil {
					return vm.Value{}, err
				}
				return ret(vm.RefValue(s))
			}},
		},
	})
}
