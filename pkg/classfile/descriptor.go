package classfile

import (
	"fmt"
	"strings"
)

// Type is a field descriptor such as "I", "Ljava/lang/String;" or "[[J".
// Being a plain string it can be compared with == and used as a map key.
type Type string

// Primitive and common descriptors.
const (
	Boolean Type = "Z"
	Byte    Type = "B"
	Char    Type = "C"
	Short   Type = "S"
	Int     Type = "I"
	Long    Type = "J"
	Float   Type = "F"
	Double  Type = "D"
	Void    Type = "V"

	ObjectType Type = "Ljava/lang/Object;"
	StringType Type = "Ljava/lang/String;"
)

var primitiveNames = map[Type]string{
	Boolean: "boolean",
	Byte:    "byte",
	Char:    "char",
	Short:   "short",
	Int:     "int",
	Long:    "long",
	Float:   "float",
	Double:  "double",
	Void:    "void",
}

// ClassType returns the descriptor of a class given its internal name.
func ClassType(internalName string) Type {
	return Type("L" + internalName + ";")
}

// ArrayOf returns the descriptor of an array with the given element type.
func ArrayOf(elem Type) Type {
	return "[" + elem
}

// IsPrimitive reports whether t is one of the eight primitive types or void.
func (t Type) IsPrimitive() bool {
	_, ok := primitiveNames[t]
	return ok
}

func (t Type) IsVoid() bool { return t == Void }

func (t Type) IsArray() bool { return strings.HasPrefix(string(t), "[") }

// IsReference reports whether values of t are references (class or array).
func (t Type) IsReference() bool {
	return strings.HasPrefix(string(t), "L") || t.IsArray()
}

// ClassName returns the internal class name of a class type, or "".
func (t Type) ClassName() string {
	s := string(t)
	if len(s) > 2 && s[0] == 'L' && s[len(s)-1] == ';' {
		return s[1 : len(s)-1]
	}
	return ""
}

// Elem returns the element type of an array type, or "".
func (t Type) Elem() Type {
	if !t.IsArray() {
		return ""
	}
	return t[1:]
}

// JavaName renders t the way Java source spells it: "int",
// "java.lang.String", "int[][]".
func (t Type) JavaName() string {
	if name, ok := primitiveNames[t]; ok {
		return name
	}
	if t.IsArray() {
		return t.Elem().JavaName() + "[]"
	}
	return strings.ReplaceAll(t.ClassName(), "/", ".")
}

// ParseType parses a single field descriptor.
func ParseType(desc string) (Type, error) {
	t, n, err := scanType(desc, 0)
	if err != nil {
		return "", err
	}
	if n != len(desc) {
		return "", fmt.Errorf("trailing characters in descriptor %q", desc)
	}
	return t, nil
}

// ParseMethodDescriptor splits "(IJLjava/lang/String;)V" into its parameter
// and return types.
func ParseMethodDescriptor(desc string) ([]Type, Type, error) {
	if !strings.HasPrefix(desc, "(") {
		return nil, "", fmt.Errorf("invalid method descriptor: %s", desc)
	}
	var params []Type
	pos := 1
	for pos < len(desc) && desc[pos] != ')' {
		t, next, err := scanType(desc, pos)
		if err != nil {
			return nil, "", fmt.Errorf("method descriptor %s: %w", desc, err)
		}
		if t == Void {
			return nil, "", fmt.Errorf("void parameter in method descriptor %s", desc)
		}
		params = append(params, t)
		pos = next
	}
	if pos >= len(desc) {
		return nil, "", fmt.Errorf("unterminated parameter list in %s", desc)
	}
	ret, err := ParseType(desc[pos+1:])
	if err != nil {
		return nil, "", fmt.Errorf("method descriptor %s: %w", desc, err)
	}
	return params, ret, nil
}

// MethodDescriptor is the inverse of ParseMethodDescriptor.
func MethodDescriptor(ret Type, params ...Type) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, p := range params {
		sb.WriteString(string(p))
	}
	sb.WriteByte(')')
	sb.WriteString(string(ret))
	return sb.String()
}

func scanType(desc string, pos int) (Type, int, error) {
	if pos >= len(desc) {
		return "", pos, fmt.Errorf("empty type in descriptor %q", desc)
	}
	switch c := desc[pos]; c {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 'V':
		return Type(desc[pos : pos+1]), pos + 1, nil
	case 'L':
		end := strings.IndexByte(desc[pos:], ';')
		if end <= 1 {
			return "", pos, fmt.Errorf("unterminated class type in descriptor %q", desc)
		}
		return Type(desc[pos : pos+end+1]), pos + end + 1, nil
	case '[':
		elem, next, err := scanType(desc, pos+1)
		if err != nil {
			return "", pos, err
		}
		if elem == Void {
			return "", pos, fmt.Errorf("array of void in descriptor %q", desc)
		}
		return Type(desc[pos:next]), next, nil
	default:
		return "", pos, fmt.Errorf("invalid type descriptor char '%c' in %s", c, desc)
	}
}
