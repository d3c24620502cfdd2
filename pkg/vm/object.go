package vm

import "fmt"

// JObject represents a JVM object instance. Field slots are keyed by the
// declaring *Field, so a field shadowed in a subclass keeps its own slot.
type JObject struct {
	Class  *Class
	Fields map[*Field]Value
	// Native holds the Go peer of natively implemented classes,
	// e.g. the map behind a java/util/HashMap.
	Native any
}

// NewObject allocates an instance of c with every instance field of c and
// its super classes set to its default value.
func NewObject(c *Class) *JObject {
	obj := &JObject{Class: c, Fields: make(map[*Field]Value)}
	for cur := c; cur != nil; cur = cur.Super {
		for _, f := range cur.Fields {
			if !f.IsStatic() {
				obj.Fields[f] = ZeroValue(f.Type)
			}
		}
	}
	return obj
}

// GetField returns the value stored for f.
func (o *JObject) GetField(f *Field) Value {
	if v, ok := o.Fields[f]; ok {
		return v
	}
	return ZeroValue(f.Type)
}

// SetField stores v for f.
func (o *JObject) SetField(f *Field, v Value) {
	o.Fields[f] = v
}

func (o *JObject) String() string {
	if s, ok := o.Native.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%s@%p", o.Class.JavaName(), o)
}

// JArray represents a JVM array.
type JArray struct {
	Elements []Value
}
