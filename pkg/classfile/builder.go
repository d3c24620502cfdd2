package classfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Builder assembles a class file in memory. Pool entries are interned, so
// asking twice for the same constant returns the same index; callers use
// the returned indices as operands when writing bytecode by hand.
type Builder struct {
	pool     [][]byte
	interned map[string]uint16

	access     uint16
	this       uint16
	super      uint16
	interfaces []uint16
	fields     []builtMember
	methods    []builtMember
}

type builtMember struct {
	access     uint16
	name, desc uint16
	attrs      [][]byte
}

// NewBuilder starts a class with the given internal name, super class
// ("" for none) and access flags.
func NewBuilder(name, super string, access uint16) *Builder {
	b := &Builder{interned: make(map[string]uint16), access: access}
	b.pool = append(b.pool, nil) // index 0 is unused
	b.this = b.Class(name)
	if super != "" {
		b.super = b.Class(super)
	}
	return b
}

func (b *Builder) intern(key string, entry []byte, slots int) uint16 {
	if idx, ok := b.interned[key]; ok {
		return idx
	}
	idx := uint16(len(b.pool))
	b.pool = append(b.pool, entry)
	if slots == 2 {
		b.pool = append(b.pool, nil)
	}
	b.interned[key] = idx
	return idx
}

func u2(v uint16) []byte { return binary.BigEndian.AppendUint16(nil, v) }

// Utf8 interns a CONSTANT_Utf8.
func (b *Builder) Utf8(s string) uint16 {
	entry := append([]byte{TagUtf8}, u2(uint16(len(s)))...)
	return b.intern("utf8:"+s, append(entry, s...), 1)
}

// Class interns a CONSTANT_Class.
func (b *Builder) Class(name string) uint16 {
	nameIdx := b.Utf8(name)
	return b.intern("class:"+name, append([]byte{TagClass}, u2(nameIdx)...), 1)
}

// String interns a CONSTANT_String.
func (b *Builder) String(s string) uint16 {
	idx := b.Utf8(s)
	return b.intern("string:"+s, append([]byte{TagString}, u2(idx)...), 1)
}

// Integer interns a CONSTANT_Integer.
func (b *Builder) Integer(v int32) uint16 {
	entry := binary.BigEndian.AppendUint32([]byte{TagInteger}, uint32(v))
	return b.intern(fmt.Sprintf("int:%d", v), entry, 1)
}

// Long interns a CONSTANT_Long.
func (b *Builder) Long(v int64) uint16 {
	entry := binary.BigEndian.AppendUint64([]byte{TagLong}, uint64(v))
	return b.intern(fmt.Sprintf("long:%d", v), entry, 2)
}

// Double interns a CONSTANT_Double.
func (b *Builder) Double(v float64) uint16 {
	entry := binary.BigEndian.AppendUint64([]byte{TagDouble}, math.Float64bits(v))
	return b.intern(fmt.Sprintf("double:%x", math.Float64bits(v)), entry, 2)
}

func (b *Builder) nameAndType(name, desc string) uint16 {
	n, d := b.Utf8(name), b.Utf8(desc)
	entry := append(append([]byte{TagNameAndType}, u2(n)...), u2(d)...)
	return b.intern("nat:"+name+":"+desc, entry, 1)
}

func (b *Builder) memberref(tag uint8, class, name, desc string) uint16 {
	c, nat := b.Class(class), b.nameAndType(name, desc)
	entry := append(append([]byte{tag}, u2(c)...), u2(nat)...)
	return b.intern(fmt.Sprintf("ref%d:%s.%s:%s", tag, class, name, desc), entry, 1)
}

// Fieldref interns a CONSTANT_Fieldref.
func (b *Builder) Fieldref(class, name, desc string) uint16 {
	return b.memberref(TagFieldref, class, name, desc)
}

// Methodref interns a CONSTANT_Methodref.
func (b *Builder) Methodref(class, name, desc string) uint16 {
	return b.memberref(TagMethodref, class, name, desc)
}

// InterfaceMethodref interns a CONSTANT_InterfaceMethodref.
func (b *Builder) InterfaceMethodref(class, name, desc string) uint16 {
	return b.memberref(TagInterfaceMethodref, class, name, desc)
}

// Implements adds direct superinterfaces.
func (b *Builder) Implements(names ...string) *Builder {
	for _, n := range names {
		b.interfaces = append(b.interfaces, b.Class(n))
	}
	return b
}

// Field declares a field. A non-zero constIndex is written as its
// ConstantValue attribute.
func (b *Builder) Field(access uint16, name, desc string, constIndex uint16) *Builder {
	m := builtMember{access: access, name: b.Utf8(name), desc: b.Utf8(desc)}
	if constIndex != 0 {
		m.attrs = append(m.attrs, b.attribute("ConstantValue", u2(constIndex)))
	}
	b.fields = append(b.fields, m)
	return b
}

// Method declares a method. A nil code declares an abstract or native method.
func (b *Builder) Method(access uint16, name, desc string, code *CodeAttribute) *Builder {
	m := builtMember{access: access, name: b.Utf8(name), desc: b.Utf8(desc)}
	if code != nil {
		var body bytes.Buffer
		body.Write(u2(code.MaxStack))
		body.Write(u2(code.MaxLocals))
		body.Write(binary.BigEndian.AppendUint32(nil, uint32(len(code.Code))))
		body.Write(code.Code)
		body.Write(u2(uint16(len(code.ExceptionHandlers))))
		for _, h := range code.ExceptionHandlers {
			body.Write(u2(h.StartPC))
			body.Write(u2(h.EndPC))
			body.Write(u2(h.HandlerPC))
			body.Write(u2(h.CatchType))
		}
		body.Write(u2(0)) // no nested attributes
		m.attrs = append(m.attrs, b.attribute("Code", body.Bytes()))
	}
	b.methods = append(b.methods, m)
	return b
}

func (b *Builder) attribute(name string, data []byte) []byte {
	out := u2(b.Utf8(name))
	out = binary.BigEndian.AppendUint32(out, uint32(len(data)))
	return append(out, data...)
}

// Bytes returns the encoded class file.
func (b *Builder) Bytes() []byte {
	var buf bytes.Buffer
	buf.Write(binary.BigEndian.AppendUint32(nil, classMagic))
	buf.Write(u2(0))  // minor
	buf.Write(u2(52)) // major: Java 8
	buf.Write(u2(uint16(len(b.pool))))
	for _, entry := range b.pool {
		buf.Write(entry) // nil for index 0 and the upper half of wide constants
	}
	buf.Write(u2(b.access))
	buf.Write(u2(b.this))
	buf.Write(u2(b.super))
	buf.Write(u2(uint16(len(b.interfaces))))
	for _, i := range b.interfaces {
		buf.Write(u2(i))
	}
	for _, group := range [][]builtMember{b.fields, b.methods} {
		buf.Write(u2(uint16(len(group))))
		for _, m := range group {
			buf.Write(u2(m.access))
			buf.Write(u2(m.name))
			buf.Write(u2(m.desc))
			buf.Write(u2(uint16(len(m.attrs))))
			for _, a := range m.attrs {
				buf.Write(a)
			}
		}
	}
	buf.Write(u2(0)) // class attributes
	return buf.Bytes()
}

// Bytecode concatenates instructions for Method. byte and int parts are
// emitted as single bytes; uint16 (pool indices) and int16 (branch offsets)
// as two big-endian bytes.
func Bytecode(parts ...any) []byte {
	var out []byte
	for _, p := range parts {
		switch v := p.(type) {
		case byte:
			out = append(out, v)
		case int:
			out = append(out, byte(v))
		case uint16:
			out = binary.BigEndian.AppendUint16(out, v)
		case int16:
			out = binary.BigEndian.AppendUint16(out, uint16(v))
		default:
			panic(fmt.Sprintf("classfile: unsupported bytecode part %T", p))
		}
	}
	return out
}
