package vm

import (
	"errors"
	"testing"

	"github.com/daimatz/jbridge/pkg/classfile"
)

// executeAndGet runs a static method body made of the given bytecodes and
// returns its result. Optional locals are set as int32 values starting at
// index 0.
func executeAndGet(t *testing.T, code []byte, locals ...int32) (Value, error) {
	t.Helper()

	maxLocals := uint16(len(locals))
	if maxLocals < 4 {
		maxLocals = 4
	}
	m := &Method{
		Class:       &Class{Name: "Test"},
		Name:        "test",
		AccessFlags: accStatic,
		Code:        &classfile.CodeAttribute{MaxLocals: maxLocals, MaxStack: 10, Code: code},
	}
	frame := NewFrame(m)
	for i, val := range locals {
		frame.SetLocal(i, IntValue(val))
	}
	th := &thread{vm: &VM{}}
	return th.execute(frame)
}

func executeAndGetInt(t *testing.T, code []byte, locals ...int32) int32 {
	t.Helper()
	v, err := executeAndGet(t, code, locals...)
	if err != nil {
		t.Fatalf("execution error: %v", err)
	}
	return v.Int
}

func TestIconst(t *testing.T) {
	tests := []struct {
		name   string
		opcode byte
		want   int32
	}{
		{"iconst_m1", 0x02, -1},
		{"iconst_0", 0x03, 0},
		{"iconst_3", 0x06, 3},
		{"iconst_5", 0x08, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := executeAndGetInt(t, []byte{tt.opcode, 0xAC})
			if got != tt.want {
				t.Errorf("%s: got %d, want %d", tt.name, got, tt.want)
			}
		})
	}
}

func TestPush(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		want int32
	}{
		{"bipush positive", classfile.Bytecode(0x10, 42, 0xAC), 42},
		{"bipush negative", classfile.Bytecode(0x10, 0xFB, 0xAC), -5},
		{"sipush", classfile.Bytecode(0x11, int16(1000), 0xAC), 1000},
		{"sipush negative", classfile.Bytecode(0x11, int16(-300), 0xAC), -300},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := executeAndGetInt(t, tt.code); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestIntArithmetic(t *testing.T) {
	tests := []struct {
		name   string
		opcode byte
		a, b   int32
		want   int32
	}{
		{"iadd", 0x60, 10, 3, 13},
		{"isub", 0x64, 10, 3, 7},
		{"imul", 0x68, 10, 3, 30},
		{"idiv", 0x6C, 10, 3, 3},
		{"irem", 0x70, 10, 3, 1},
		{"idiv negative", 0x6C, -7, 2, -3},
		{"ishl", 0x78, 1, 4, 16},
		{"ishr", 0x7A, -16, 2, -4},
		{"iushr", 0x7C, -1, 28, 15},
		{"iand", 0x7E, 12, 10, 8},
		{"ior", 0x80, 12, 10, 14},
		{"ixor", 0x82, 12, 10, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// iload_0, iload_1, <op>, ireturn
			got := executeAndGetInt(t, []byte{0x1A, 0x1B, tt.opcode, 0xAC}, tt.a, tt.b)
			if got != tt.want {
				t.Errorf("%s(%d, %d): got %d, want %d", tt.name, tt.a, tt.b, got, tt.want)
			}
		})
	}

	t.Run("ineg", func(t *testing.T) {
		if got := executeAndGetInt(t, []byte{0x1A, 0x74, 0xAC}, 9); got != -9 {
			t.Errorf("got %d, want -9", got)
		}
	})
}

func TestDivisionByZero(t *testing.T) {
	_, err := executeAndGet(t, []byte{0x1A, 0x1B, 0x6C, 0xAC}, 1, 0)
	var ex *JavaException
	if !errors.As(err, &ex) || ex.ClassName != "java/lang/ArithmeticException" {
		t.Errorf("got %v, want ArithmeticException", err)
	}
}

func TestLongAndDouble(t *testing.T) {
	t.Run("long arithmetic", func(t *testing.T) {
		// lconst_1, i2l of local 0, ladd, lconst_1, lshl (by int 1), lreturn
		code := classfile.Bytecode(0x0A, 0x1A, 0x85, 0x61, 0x04, 0x79, 0xAD)
		v, err := executeAndGet(t, code, 20)
		if err != nil {
			t.Fatal(err)
		}
		if v.Type != TypeLong || v.Long != 42 {
			t.Errorf("got %+v, want long 42", v)
		}
	})

	t.Run("d2i saturates", func(t *testing.T) {
		// dconst_1, i2d local 0, ddiv → 1/0 = +Inf, d2i, ireturn
		code := classfile.Bytecode(0x0F, 0x1A, 0x87, 0x6F, 0x8E, 0xAC)
		if got := executeAndGetInt(t, code, 0); got != 2147483647 {
			t.Errorf("got %d, want MaxInt32", got)
		}
	})

	t.Run("lcmp", func(t *testing.T) {
		code := classfile.Bytecode(0x09, 0x0A, 0x94, 0xAC) // 0 vs 1
		if got := executeAndGetInt(t, code); got != -1 {
			t.Errorf("got %d, want -1", got)
		}
	})
}

func TestControlFlow(t *testing.T) {
	// sum := 0; for i := 1; i <= n; i++ { sum += i }; return sum
	//  0: iconst_0
	//  1: istore_1
	//  2: iconst_1
	//  3: istore_2
	//  4: iload_2
	//  5: iload_0
	//  6: if_icmpgt +13 (-> 19)
	//  9: iload_1
	// 10: iload_2
	// 11: iadd
	// 12: istore_1
	// 13: iinc 2 1
	// 16: goto -12 (-> 4)
	// 19: iload_1
	// 20: ireturn
	code := classfile.Bytecode(
		0x03, 0x3C, 0x04, 0x3D,
		0x1C, 0x1A, 0xA3, int16(13),
		0x1B, 0x1C, 0x60, 0x3C,
		0x84, 2, 1,
		0xA7, int16(-12),
		0x1B, 0xAC,
	)
	tests := []struct{ n, want int32 }{{0, 0}, {1, 1}, {10, 55}, {100, 5050}}
	for _, tt := range tests {
		if got := executeAndGetInt(t, code, tt.n); got != tt.want {
			t.Errorf("sum(1..%d): got %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestExceptionHandler(t *testing.T) {
	// try { return a / b; } catch (ArithmeticException e) { return -1; }
	b := classfile.NewBuilder("demo/Safe", "java/lang/Object", accPublic)
	catch := b.Class("java/lang/ArithmeticException")
	b.Method(accPublic|accStatic, "div", "(II)I", &classfile.CodeAttribute{
		MaxStack:  2,
		MaxLocals: 2,
		// 0: iload_0, 1: iload_1, 2: idiv, 3: ireturn, 4: pop, 5: iconst_m1, 6: ireturn
		Code:              classfile.Bytecode(0x1A, 0x1B, 0x6C, 0xAC, 0x57, 0x02, 0xAC),
		ExceptionHandlers: []classfile.ExceptionHandler{{StartPC: 0, EndPC: 4, HandlerPC: 4, CatchType: catch}},
	})
	cl := testLoader(t)
	c := defineBytes(t, cl, b.Bytes())
	machine := NewVM(cl)

	div := c.DeclaredMethod("div", "(II)I")
	got, err := machine.Invoke(div, NullValue(), []Value{IntValue(9), IntValue(3)})
	if err != nil || got.Int != 3 {
		t.Errorf("div(9, 3): got %v, %v", got, err)
	}
	got, err = machine.Invoke(div, NullValue(), []Value{IntValue(9), IntValue(0)})
	if err != nil || got.Int != -1 {
		t.Errorf("div(9, 0): got %v, %v; want -1", got, err)
	}
}

func TestArrays(t *testing.T) {
	// int[] a = new int[3]; a[1] = 5; return a[1] + a.length;
	code := classfile.Bytecode(
		0x06, 0xBC, 10, 0x4C, // iconst_3, newarray int, astore_1
		0x2B, 0x04, 0x08, 0x4F, // aload_1, iconst_1, iconst_5, iastore
		0x2B, 0x04, 0x2E, // aload_1, iconst_1, iaload
		0x2B, 0xBE, 0x60, 0xAC, // aload_1, arraylength, iadd, ireturn
	)
	if got := executeAndGetInt(t, code); got != 8 {
		t.Errorf("got %d, want 8", got)
	}

	_, err := executeAndGet(t, classfile.Bytecode(0x04, 0xBC, 10, 0x06, 0x2E, 0xAC))
	var ex *JavaException
	if !errors.As(err, &ex) || ex.ClassName != "java/lang/ArrayIndexOutOfBoundsException" {
		t.Errorf("out of bounds: got %v", err)
	}
}

func TestUnsupportedOpcode(t *testing.T) {
	_, err := executeAndGet(t, []byte{0xBA}) // invokedynamic
	if !errors.Is(err, errUnsupported) {
		t.Errorf("got %v, want errUnsupported", err)
	}
}

func TestInvokeLinkedClass(t *testing.T) {
	cl := testLoader(t)
	counter := defineBytes(t, cl, counterClass())
	defineBytes(t, cl, loudCounterClass())
	machine := NewVM(cl)

	obj, err := machine.New("demo/Counter", "()V")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	this := RefValue(obj)

	set := counter.DeclaredMethod("setCount", "(I)V")
	inc := counter.DeclaredMethod("increment", "()V")
	get := counter.DeclaredMethod("getCount", "()I")

	if _, err := machine.Invoke(set, this, []Value{IntValue(41)}); err != nil {
		t.Fatalf("setCount: %v", err)
	}
	if _, err := machine.Invoke(inc, this, nil); err != nil {
		t.Fatalf("increment: %v", err)
	}
	got, err := machine.Invoke(get, this, nil)
	if err != nil || got.Int != 42 {
		t.Errorf("getCount: got %v, %v; want 42", got, err)
	}

	twice := counter.DeclaredMethod("twice", "(I)I")
	got, err = machine.Invoke(twice, NullValue(), []Value{IntValue(21)})
	if err != nil || got.Int != 42 {
		t.Errorf("twice(21): got %v, %v", got, err)
	}

	t.Run("virtual dispatch", func(t *testing.T) {
		loud, err := machine.New("demo/LoudCounter", "()V")
		if err != nil {
			t.Fatalf("New LoudCounter: %v", err)
		}
		machine.Invoke(set, RefValue(loud), []Value{IntValue(1)})
		// Counter.getCount を呼んでも LoudCounter の実装が選ばれる
		got, err := machine.Invoke(get, RefValue(loud), nil)
		if err != nil || got.Int != 101 {
			t.Errorf("getCount on LoudCounter: got %v, %v; want 101", got, err)
		}
	})

	t.Run("null receiver", func(t *testing.T) {
		_, err := machine.Invoke(get, NullValue(), nil)
		var ex *JavaException
		if !errors.As(err, &ex) || ex.ClassName != "java/lang/NullPointerException" {
			t.Errorf("got %v, want NullPointerException", err)
		}
	})

	t.Run("argument count", func(t *testing.T) {
		if _, err := machine.Invoke(set, this, nil); err == nil {
			t.Error("expected error for missing argument")
		}
	})

	t.Run("native method on string", func(t *testing.T) {
		str, _ := cl.LoadClass("java/lang/String")
		length := str.DeclaredMethod("length", "()I")
		got, err := machine.Invoke(length, RefValue("hello"), nil)
		if err != nil || got.Int != 5 {
			t.Errorf("length: got %v, %v", got, err)
		}
	})
}

func TestExecuteMain(t *testing.T) {
	b := classfile.NewBuilder("demo/Main", "java/lang/Object", accPublic)
	b.Field(accPublic|accStatic, "result", "I", 0)
	result := b.Fieldref("demo/Main", "result", "I")
	b.Method(accPublic|accStatic, "main", "([Ljava/lang/String;)V", &classfile.CodeAttribute{
		MaxStack: 1, MaxLocals: 1,
		Code: classfile.Bytecode(0x10, 7, 0xB3, result, 0xB1),
	})
	cl := testLoader(t)
	c := defineBytes(t, cl, b.Bytes())

	if err := NewVM(cl).Execute("demo/Main"); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	got, _ := c.DeclaredField("result").Get(NullValue())
	if got.Int != 7 {
		t.Errorf("result: got %d, want 7", got.Int)
	}

	if err := NewVM(cl).Execute("java/lang/String"); err == nil {
		t.Error("Execute on a class without main: expected error")
	}
}
