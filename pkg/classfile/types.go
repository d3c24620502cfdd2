package classfile

// Access flags shared by classes, fields and methods.
// Some bits carry a different meaning depending on where they appear.
const (
	AccPublic       = 0x0001
	AccPrivate      = 0x0002
	AccProtected    = 0x0004
	AccStatic       = 0x0008
	AccFinal        = 0x0010
	AccSuper        = 0x0020 // class
	AccSynchronized = 0x0020 // method
	AccVolatile     = 0x0040 // field
	AccBridge       = 0x0040 // method
	AccTransient    = 0x0080 // field
	AccVarargs      = 0x0080 // method
	AccNative       = 0x0100
	AccInterface    = 0x0200
	AccAbstract     = 0x0400
	AccSynthetic    = 0x1000
)

// ClassFile represents a parsed .class file.
type ClassFile struct {
	MinorVersion uint16
	MajorVersion uint16
	ConstantPool []ConstantPoolEntry
	AccessFlags  uint16
	ThisClass    uint16
	SuperClass   uint16
	Interfaces   []uint16
	Fields       []FieldInfo
	Methods      []MethodInfo
}

// ClassName returns the internal name of this class, e.g. "java/util/HashMap".
func (cf *ClassFile) ClassName() (string, error) {
	return GetClassName(cf.ConstantPool, cf.ThisClass)
}

// SuperClassName returns the internal name of the super class.
// Returns "" if this is java/lang/Object (SuperClass == 0).
func (cf *ClassFile) SuperClassName() (string, error) {
	if cf.SuperClass == 0 {
		return "", nil
	}
	return GetClassName(cf.ConstantPool, cf.SuperClass)
}

// InterfaceNames resolves the direct superinterfaces in declaration order.
func (cf *ClassFile) InterfaceNames() ([]string, error) {
	names := make([]string, 0, len(cf.Interfaces))
	for _, idx := range cf.Interfaces {
		name, err := GetClassName(cf.ConstantPool, idx)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

// FindMethod finds a method by name and descriptor.
func (cf *ClassFile) FindMethod(name, descriptor string) *MethodInfo {
	for i := range cf.Methods {
		if cf.Methods[i].Name == name && cf.Methods[i].Descriptor == descriptor {
			return &cf.Methods[i]
		}
	}
	return nil
}

// FindField finds a field by name.
func (cf *ClassFile) FindField(name string) *FieldInfo {
	for i := range cf.Fields {
		if cf.Fields[i].Name == name {
			return &cf.Fields[i]
		}
	}
	return nil
}

// ConstantPoolEntry is an interface implemented by all constant pool types.
type ConstantPoolEntry interface {
	Tag() uint8
}

type ConstantUtf8 struct {
	Value string
}

func (c *ConstantUtf8) Tag() uint8 { return TagUtf8 }

type ConstantInteger struct {
	Value int32
}

func (c *ConstantInteger) Tag() uint8 { return TagInteger }

type ConstantFloat struct {
	Value float32
}

func (c *ConstantFloat) Tag() uint8 { return TagFloat }

type ConstantLong struct {
	Value int64
}

func (c *ConstantLong) Tag() uint8 { return TagLong }

type ConstantDouble struct {
	Value float64
}

func (c *ConstantDouble) Tag() uint8 { return TagDouble }

type ConstantClass struct {
	NameIndex uint16
}

func (c *ConstantClass) Tag() uint8 { return TagClass }

type ConstantString struct {
	StringIndex uint16
}

func (c *ConstantString) Tag() uint8 { return TagString }

// ConstantMemberref covers Fieldref, Methodref and InterfaceMethodref,
// which share a layout and differ only by tag.
type ConstantMemberref struct {
	RefTag           uint8
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantMemberref) Tag() uint8 { return c.RefTag }

type ConstantNameAndType struct {
	NameIndex       uint16
	DescriptorIndex uint16
}

func (c *ConstantNameAndType) Tag() uint8 { return TagNameAndType }

// MethodInfo represents a method in a class file.
type MethodInfo struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
	Attributes  []AttributeInfo
	Code        *CodeAttribute
}

// FieldInfo represents a field in a class file.
type FieldInfo struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
	Attributes  []AttributeInfo
	// ConstantValue is the pool index from the ConstantValue attribute, or 0.
	ConstantValue uint16
}

// AttributeInfo represents a raw attribute.
type AttributeInfo struct {
	Name string
	Data []byte
}

// ExceptionHandler represents an entry in the exception table.
type ExceptionHandler struct {
	StartPC   uint16
	EndPC     uint16
	HandlerPC uint16
	CatchType uint16
}

// CodeAttribute represents the Code attribute of a method.
type CodeAttribute struct {
	MaxStack          uint16
	MaxLocals         uint16
	Code              []byte
	ExceptionHandlers []ExceptionHandler
}
