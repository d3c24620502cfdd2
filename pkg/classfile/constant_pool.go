package classfile

import (
	"fmt"
	"math"
)

// Constant pool tags
const (
	TagUtf8               = 1
	TagInteger            = 3
	TagFloat              = 4
	TagLong               = 5
	TagDouble             = 6
	TagClass              = 7
	TagString             = 8
	TagFieldref           = 9
	TagMethodref          = 10
	TagInterfaceMethodref = 11
	TagNameAndType        = 12
	TagMethodHandle       = 15
	TagMethodType         = 16
	TagDynamic            = 17
	TagInvokeDynamic      = 18
)

// parseConstantPool reads constant_pool_count-1 entries.
// The returned slice is 1-indexed: index 0 is nil.
func parseConstantPool(rd *reader, count uint16) ([]ConstantPoolEntry, error) {
	pool := make([]ConstantPoolEntry, count)

	for i := uint16(1); i < count; i++ {
		tag := rd.u1()
		switch tag {
		case TagUtf8:
			pool[i] = &ConstantUtf8{Value: string(rd.bytes(int(rd.u2())))}
		case TagInteger:
			pool[i] = &ConstantInteger{Value: int32(rd.u4())}
		case TagFloat:
			pool[i] = &ConstantFloat{Value: math.Float32frombits(rd.u4())}
		case TagLong:
			pool[i] = &ConstantLong{Value: int64(rd.u8())}
			i++ // long takes 2 slots
		case TagDouble:
			pool[i] = &ConstantDouble{Value: math.Float64frombits(rd.u8())}
			i++ // double takes 2 slots
		case TagClass:
			pool[i] = &ConstantClass{NameIndex: rd.u2()}
		case TagString:
			pool[i] = &ConstantString{StringIndex: rd.u2()}
		case TagFieldref, TagMethodref, TagInterfaceMethodref:
			pool[i] = &ConstantMemberref{RefTag: tag, ClassIndex: rd.u2(), NameAndTypeIndex: rd.u2()}
		case TagNameAndType:
			pool[i] = &ConstantNameAndType{NameIndex: rd.u2(), DescriptorIndex: rd.u2()}
		case TagMethodHandle:
			rd.skip(3)
			pool[i] = &constantPlaceholder{tag: tag}
		case TagMethodType:
			rd.skip(2)
			pool[i] = &constantPlaceholder{tag: tag}
		case TagDynamic, TagInvokeDynamic:
			rd.skip(4)
			pool[i] = &constantPlaceholder{tag: tag}
		default:
			if rd.err != nil {
				return nil, fmt.Errorf("reading tag at index %d: %w", i, rd.err)
			}
			return nil, fmt.Errorf("unknown constant pool tag %d at index %d", tag, i)
		}
		if rd.err != nil {
			return nil, fmt.Errorf("reading entry %d (tag=%d): %w", i, tag, rd.err)
		}
	}

	return pool, nil
}

// constantPlaceholder is used for constant pool entries we don't fully parse.
type constantPlaceholder struct {
	tag uint8
}

func (c *constantPlaceholder) Tag() uint8 { return c.tag }

func entryAt(pool []ConstantPoolEntry, index uint16) (ConstantPoolEntry, error) {
	if index == 0 || int(index) >= len(pool) || pool[index] == nil {
		return nil, fmt.Errorf("invalid constant pool index %d", index)
	}
	return pool[index], nil
}

// GetUtf8 returns the Utf8 string at the given constant pool index.
func GetUtf8(pool []ConstantPoolEntry, index uint16) (string, error) {
	e, err := entryAt(pool, index)
	if err != nil {
		return "", err
	}
	utf8, ok := e.(*ConstantUtf8)
	if !ok {
		return "", fmt.Errorf("constant pool index %d is not Utf8 (tag=%d)", index, e.Tag())
	}
	return utf8.Value, nil
}

// GetClassName returns the class name referenced by a CONSTANT_Class entry.
func GetClassName(pool []ConstantPoolEntry, classIndex uint16) (string, error) {
	e, err := entryAt(pool, classIndex)
	if err != nil {
		return "", err
	}
	class, ok := e.(*ConstantClass)
	if !ok {
		return "", fmt.Errorf("constant pool index %d is not Class", classIndex)
	}
	return GetUtf8(pool, class.NameIndex)
}

// MemberRef is a resolved Fieldref, Methodref or InterfaceMethodref.
type MemberRef struct {
	ClassName  string
	Name       string
	Descriptor string
	Interface  bool
}

// ResolveFieldref resolves a CONSTANT_Fieldref entry.
func ResolveFieldref(pool []ConstantPoolEntry, index uint16) (*MemberRef, error) {
	return resolveMemberref(pool, index, TagFieldref)
}

// ResolveMethodref resolves a CONSTANT_Methodref or CONSTANT_InterfaceMethodref entry.
func ResolveMethodref(pool []ConstantPoolEntry, index uint16) (*MemberRef, error) {
	ref, err := resolveMemberref(pool, index, TagMethodref)
	if err == nil {
		return ref, nil
	}
	if e, _ := entryAt(pool, index); e != nil && e.Tag() == TagInterfaceMethodref {
		return resolveMemberref(pool, index, TagInterfaceMethodref)
	}
	return nil, err
}

func resolveMemberref(pool []ConstantPoolEntry, index uint16, tag uint8) (*MemberRef, error) {
	e, err := entryAt(pool, index)
	if err != nil {
		return nil, err
	}
	ref, ok := e.(*ConstantMemberref)
	if !ok || ref.RefTag != tag {
		return nil, fmt.Errorf("constant pool index %d has tag %d, want %d", index, e.Tag(), tag)
	}

	className, err := GetClassName(pool, ref.ClassIndex)
	if err != nil {
		return nil, fmt.Errorf("resolving member class: %w", err)
	}
	ne, err := entryAt(pool, ref.NameAndTypeIndex)
	if err != nil {
		return nil, err
	}
	nat, ok := ne.(*ConstantNameAndType)
	if !ok {
		return nil, fmt.Errorf("constant pool index %d is not NameAndType", ref.NameAndTypeIndex)
	}
	name, err := GetUtf8(pool, nat.NameIndex)
	if err != nil {
		return nil, fmt.Errorf("resolving member name: %w", err)
	}
	desc, err := GetUtf8(pool, nat.DescriptorIndex)
	if err != nil {
		return nil, fmt.Errorf("resolving member descriptor: %w", err)
	}

	return &MemberRef{
		ClassName:  className,
		Name:       name,
		Descriptor: desc,
		Interface:  tag == TagInterfaceMethodref,
	}, nil
}
