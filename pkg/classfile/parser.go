package classfile

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

const classMagic = 0xCAFEBABE

// reader wraps an io.Reader and remembers the first error, so a run of
// fixed-size reads only needs one check at the end.
type reader struct {
	r   io.Reader
	buf [8]byte
	err error
}

func (rd *reader) read(n int) []byte {
	if rd.err == nil {
		if _, err := io.ReadFull(rd.r, rd.buf[:n]); err != nil {
			rd.err = err
		}
	}
	if rd.err != nil {
		clear(rd.buf[:n])
	}
	return rd.buf[:n:n]
}

func (rd *reader) u1() uint8  { return rd.read(1)[0] }
func (rd *reader) u2() uint16 { return binary.BigEndian.Uint16(rd.read(2)) }
func (rd *reader) u4() uint32 { return binary.BigEndian.Uint32(rd.read(4)) }
func (rd *reader) u8() uint64 { return binary.BigEndian.Uint64(rd.read(8)) }

func (rd *reader) bytes(n int) []byte {
	data := make([]byte, n)
	if rd.err == nil {
		if _, err := io.ReadFull(rd.r, data); err != nil {
			rd.err = err
		}
	}
	return data
}

func (rd *reader) skip(n int) {
	if rd.err == nil {
		if _, err := io.CopyN(io.Discard, rd.r, int64(n)); err != nil {
			rd.err = err
		}
	}
}

// ParseFile opens and parses a .class file from the given path.
func ParseFile(path string) (*ClassFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(bufio.NewReader(f))
}

// Parse reads a .class file from the given reader and returns a ClassFile.
func Parse(r io.Reader) (*ClassFile, error) {
	rd := &reader{r: r}
	cf := &ClassFile{}

	magic := rd.u4()
	if rd.err != nil {
		return nil, fmt.Errorf("reading magic number: %w", rd.err)
	}
	if magic != classMagic {
		return nil, fmt.Errorf("invalid magic number: 0x%X (expected 0xCAFEBABE)", magic)
	}

	cf.MinorVersion = rd.u2()
	cf.MajorVersion = rd.u2()
	cpCount := rd.u2()
	if rd.err != nil {
		return nil, fmt.Errorf("reading header: %w", rd.err)
	}

	pool, err := parseConstantPool(rd, cpCount)
	if err != nil {
		return nil, fmt.Errorf("parsing constant pool: %w", err)
	}
	cf.ConstantPool = pool

	cf.AccessFlags = rd.u2()
	cf.ThisClass = rd.u2()
	cf.SuperClass = rd.u2()
	cf.Interfaces = make([]uint16, rd.u2())
	for i := range cf.Interfaces {
		cf.Interfaces[i] = rd.u2()
	}
	if rd.err != nil {
		return nil, fmt.Errorf("reading class header: %w", rd.err)
	}

	if cf.Fields, err = parseFields(rd, pool); err != nil {
		return nil, fmt.Errorf("parsing fields: %w", err)
	}
	if cf.Methods, err = parseMethods(rd, pool); err != nil {
		return nil, fmt.Errorf("parsing methods: %w", err)
	}

	// Class-level attributes are not used by the runtime.
	if _, err := parseAttributes(rd, pool); err != nil {
		return nil, fmt.Errorf("parsing class attributes: %w", err)
	}

	return cf, nil
}

// memberHeader reads the access_flags, name and descriptor shared by
// field_info and method_info.
func memberHeader(rd *reader, pool []ConstantPoolEntry) (flags uint16, name, desc string, err error) {
	flags = rd.u2()
	nameIndex, descIndex := rd.u2(), rd.u2()
	if rd.err != nil {
		return 0, "", "", rd.err
	}
	if name, err = GetUtf8(pool, nameIndex); err != nil {
		return 0, "", "", fmt.Errorf("resolving name: %w", err)
	}
	if desc, err = GetUtf8(pool, descIndex); err != nil {
		return 0, "", "", fmt.Errorf("resolving descriptor of %s: %w", name, err)
	}
	return flags, name, desc, nil
}

func parseFields(rd *reader, pool []ConstantPoolEntry) ([]FieldInfo, error) {
	fields := make([]FieldInfo, rd.u2())
	for i := range fields {
		flags, name, desc, err := memberHeader(rd, pool)
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
		attrs, err := parseAttributes(rd, pool)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		f := FieldInfo{AccessFlags: flags, Name: name, Descriptor: desc, Attributes: attrs}
		for _, attr := range attrs {
			if attr.Name == "ConstantValue" && len(attr.Data) == 2 {
				f.ConstantValue = binary.BigEndian.Uint16(attr.Data)
			}
		}
		fields[i] = f
	}
	return fields, rd.err
}

func parseMethods(rd *reader, pool []ConstantPoolEntry) ([]MethodInfo, error) {
	methods := make([]MethodInfo, rd.u2())
	for i := range methods {
		flags, name, desc, err := memberHeader(rd, pool)
		if err != nil {
			return nil, fmt.Errorf("method %d: %w", i, err)
		}
		attrs, err := parseAttributes(rd, pool)
		if err != nil {
			return nil, fmt.Errorf("method %s: %w", name, err)
		}
		m := MethodInfo{AccessFlags: flags, Name: name, Descriptor: desc, Attributes: attrs}
		for _, attr := range attrs {
			if attr.Name == "Code" {
				if m.Code, err = parseCodeAttribute(attr.Data); err != nil {
					return nil, fmt.Errorf("parsing Code attribute for method %s: %w", name, err)
				}
				break
			}
		}
		methods[i] = m
	}
	return methods, rd.err
}

func parseAttributes(rd *reader, pool []ConstantPoolEntry) ([]AttributeInfo, error) {
	attrs := make([]AttributeInfo, rd.u2())
	for i := range attrs {
		nameIndex := rd.u2()
		data := rd.bytes(int(rd.u4()))
		if rd.err != nil {
			return nil, fmt.Errorf("reading attribute %d: %w", i, rd.err)
		}
		name, err := GetUtf8(pool, nameIndex)
		if err != nil {
			return nil, fmt.Errorf("resolving attribute %d name: %w", i, err)
		}
		attrs[i] = AttributeInfo{Name: name, Data: data}
	}
	return attrs, rd.err
}

func parseCodeAttribute(data []byte) (*CodeAttribute, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("Code attribute too short: %d bytes", len(data))
	}

	maxStack := binary.BigEndian.Uint16(data[0:2])
	maxLocals := binary.BigEndian.Uint16(data[2:4])
	codeLength := binary.BigEndian.Uint32(data[4:8])

	if uint64(len(data)) < 8+uint64(codeLength) {
		return nil, fmt.Errorf("Code attribute data too short for code_length %d", codeLength)
	}

	code := make([]byte, codeLength)
	copy(code, data[8:8+codeLength])

	offset := 8 + int(codeLength)
	var handlers []ExceptionHandler
	if offset+2 <= len(data) {
		n := int(binary.BigEndian.Uint16(data[offset : offset+2]))
		offset += 2
		for i := 0; i < n && offset+8 <= len(data); i++ {
			handlers = append(handlers, ExceptionHandler{
				StartPC:   binary.BigEndian.Uint16(data[offset : offset+2]),
				EndPC:     binary.BigEndian.Uint16(data[offset+2 : offset+4]),
				HandlerPC: binary.BigEndian.Uint16(data[offset+4 : offset+6]),
				CatchType: binary.BigEndian.Uint16(data[offset+6 : offset+8]),
			})
			offset += 8
		}
	}

	return &CodeAttribute{
		MaxStack:          maxStack,
		MaxLocals:         maxLocals,
		Code:              code,
		ExceptionHandlers: handlers,
	}, nil
}
