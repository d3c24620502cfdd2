package vm

import (
	"testing"

	"github.com/daimatz/jbridge/pkg/classfile"
)

const (
	accPublic   = classfile.AccPublic
	accPrivate  = classfile.AccPrivate
	accStatic   = classfile.AccStatic
	accFinal    = classfile.AccFinal
	accIface    = classfile.AccInterface | classfile.AccAbstract
	accAbstract = classfile.AccAbstract
)

func noop(*VM, Value, []Value) (Value, error) { return Value{}, nil }

// testLoader returns a loader holding a minimal java/lang/Object, a
// Serializable interface and a String class.
func testLoader(t *testing.T) *MapClassLoader {
	t.Helper()
	cl := NewMapClassLoader(nil)
	cl.MustDefine(ClassDef{
		Name:        "java/lang/Object",
		AccessFlags: accPublic,
		Methods: []MethodDef{
			{Name: "<init>", Descriptor: "()V", AccessFlags: accPublic, Native: noop},
			{Name: "hashCode", Descriptor: "()I", AccessFlags: accPublic, Native: func(*VM, Value, []Value) (Value, error) {
				return IntValue(7), nil
			}},
		},
	})
	cl.MustDefine(ClassDef{Name: "java/io/Serializable", AccessFlags: accPublic | accIface})
	cl.MustDefine(ClassDef{
		Name:        "java/lang/String",
		Super:       "java/lang/Object",
		Interfaces:  []string{"java/io/Serializable"},
		AccessFlags: accPublic | accFinal,
		Methods: []MethodDef{
			{Name: "length", Descriptor: "()I", AccessFlags: accPublic, Native: func(_ *VM, this Value, _ []Value) (Value, error) {
				return IntValue(int32(len(this.Ref.(string)))), nil
			}},
		},
	})
	return cl
}

// counterClass assembles:
//
//	public class demo/Counter {
//	    public static final int STEP = 1;
//	    protected int count;
//	    public Counter() { super(); }
//	    public int getCount() { return count; }
//	    public void setCount(int c) { count = c; }
//	    public void increment() { count = count + STEP; }
//	    public static int twice(int x) { return x * 2; }
//	}
func counterClass() []byte {
	b := classfile.NewBuilder("demo/Counter", "java/lang/Object", accPublic|classfile.AccSuper)
	b.Field(accPublic|accStatic|accFinal, "STEP", "I", b.Integer(1))
	b.Field(classfile.AccProtected, "count", "I", 0)
	count := b.Fieldref("demo/Counter", "count", "I")
	step := b.Fieldref("demo/Counter", "STEP", "I")
	super := b.Methodref("java/lang/Object", "<init>", "()V")

	b.Method(accPublic, "<init>", "()V", &classfile.CodeAttribute{MaxStack: 1, MaxLocals: 1,
		Code: classfile.Bytecode(0x2A, 0xB7, super, 0xB1)})
	b.Method(accPublic, "getCount", "()I", &classfile.CodeAttribute{MaxStack: 1, MaxLocals: 1,
		Code: classfile.Bytecode(0x2A, 0xB4, count, 0xAC)})
	b.Method(accPublic, "setCount", "(I)V", &classfile.CodeAttribute{MaxStack: 2, MaxLocals: 2,
		Code: classfile.Bytecode(0x2A, 0x1B, 0xB5, count, 0xB1)})
	b.Method(accPublic, "increment", "()V", &classfile.CodeAttribute{MaxStack: 3, MaxLocals: 1,
		Code: classfile.Bytecode(0x2A, 0x59, 0xB4, count, 0xB2, step, 0x60, 0xB5, count, 0xB1)})
	b.Method(accPublic|accStatic, "twice", "(I)I", &classfile.CodeAttribute{MaxStack: 2, MaxLocals: 1,
		Code: classfile.Bytecode(0x1A, 0x05, 0x68, 0xAC)})
	return b.Bytes()
}

// loudCounterClass assembles a subclass overriding getCount:
//
//	public class demo/LoudCounter extends demo/Counter {
//	    public int getCount() { return super.getCount() + 100; }
//	}
func loudCounterClass() []byte {
	b := classfile.NewBuilder("demo/LoudCounter", "demo/Counter", accPublic|classfile.AccSuper)
	super := b.Methodref("demo/Counter", "<init>", "()V")
	get := b.Methodref("demo/Counter", "getCount", "()I")
	b.Method(accPublic, "<init>", "()V", &classfile.CodeAttribute{MaxStack: 1, MaxLocals: 1,
		Code: classfile.Bytecode(0x2A, 0xB7, super, 0xB1)})
	b.Method(accPublic, "getCount", "()I", &classfile.CodeAttribute{MaxStack: 2, MaxLocals: 1,
		Code: classfile.Bytecode(0x2A, 0xB7, get, 0x10, 100, 0x60, 0xAC)})
	return b.Bytes()
}

func defineBytes(t *testing.T, cl *MapClassLoader, data []byte) *Class {
	t.Helper()
	c, err := cl.DefineBytes(data)
	if err != nil {
		t.Fatalf("DefineBytes: %v", err)
	}
	return c
}
