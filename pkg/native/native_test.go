package native

import (
	"bytes"
	"errors"
	"testing"

	"github.com/daimatz/jbridge/pkg/classfile"
	"github.com/daimatz/jbridge/pkg/vm"
)

func bootstrap(t *testing.T) (*vm.MapClassLoader, *vm.VM, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	cl, err := Bootstrap(&out)
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	machine := vm.NewVM(cl)
	machine.Stdout = &out
	return cl, machine, &out
}

func call(t *testing.T, machine *vm.VM, class, name, desc string, this vm.Value, args ...vm.Value) vm.Value {
	t.Helper()
	c, err := machine.Loader.LoadClass(class)
	if err != nil {
		t.Fatal(err)
	}
	m := c.LookupMethod(name, desc)
	if m == nil {
		t.Fatalf("%s.%s%s not found", class, name, desc)
	}
	v, err := machine.Invoke(m, this, args)
	if err != nil {
		t.Fatalf("%s.%s%s: %v", class, name, desc, err)
	}
	return v
}

func TestNativeHashMap(t *testing.T) {
	cl, machine, _ := bootstrap(t)
	str := func(s string) vm.Value { return vm.RefValue(s) }

	t.Run("put and get", func(t *testing.T) {
		hm := NewNativeHashMap()
		hm.Put(str("key1"), str("value1"))

		got := hm.Get(str("key1"))
		if got.Ref != "value1" {
			t.Errorf("Get(key1): got %v, want %q", got, "value1")
		}
	})

	t.Run("get missing key returns null", func(t *testing.T) {
		hm := NewNativeHashMap()

		if got := hm.Get(str("nonexistent")); !got.IsNull() {
			t.Errorf("Get(nonexistent): got %v, want null", got)
		}
	})

	t.Run("overwrite value", func(t *testing.T) {
		hm := NewNativeHashMap()
		hm.Put(str("key"), str("old"))
		prev := hm.Put(str("key"), str("new"))

		if prev.Ref != "old" {
			t.Errorf("Put returned %v, want %q", prev, "old")
		}
		if got := hm.Get(str("key")); got.Ref != "new" {
			t.Errorf("Get(key) after overwrite: got %v, want %q", got, "new")
		}
		if hm.Len() != 1 {
			t.Errorf("Len: got %d, want 1", hm.Len())
		}
	})

	t.Run("integer keys compare by value", func(t *testing.T) {
		hm := NewNativeHashMap()
		a, _ := BoxInt(cl, 1)
		b, _ := BoxInt(cl, 1)
		hm.Put(vm.RefValue(a), vm.IntValue(10))

		if got := hm.Get(vm.RefValue(b)); got.Int != 10 {
			t.Errorf("Get(Integer(1)): got %v, want 10", got)
		}
	})

	t.Run("remove keeps order", func(t *testing.T) {
		hm := NewNativeHashMap()
		for _, k := range []string{"a", "b", "c"} {
			hm.Put(str(k), str(k+k))
		}
		hm.Remove(str("b"))
		s, err := hm.format(machine)
		if err != nil {
			t.Fatal(err)
		}
		if s != "{a=aa, c=cc}" {
			t.Errorf("format: got %q", s)
		}
	})

	t.Run("through the class", func(t *testing.T) {
		obj, err := machine.New("java/util/HashMap", "()V")
		if err != nil {
			t.Fatal(err)
		}
		this := vm.RefValue(obj)
		put := "(Ljava/lang/Object;Ljava/lang/Object;)Ljava/lang/Object;"
		call(t, machine, "java/util/Map", "put", put, this, str("x"), str("1"))
		if got := call(t, machine, "java/util/HashMap", "size", "()I", this); got.Int != 1 {
			t.Errorf("size: got %d, want 1", got.Int)
		}
		if got := call(t, machine, "java/util/HashMap", "get", "(Ljava/lang/Object;)Ljava/lang/Object;", this, str("x")); got.Ref != "1" {
			t.Errorf("get: got %v", got)
		}
		if got, _ := ToString(machine, this); got != "{x=1}" {
			t.Errorf("toString: got %q", got)
		}
	})
}

func TestInteger(t *testing.T) {
	cl, machine, _ := bootstrap(t)

	t.Run("valueOf and intValue roundtrip", func(t *testing.T) {
		boxed := call(t, machine, IntegerClass, "valueOf", "(I)Ljava/lang/Integer;", vm.NullValue(), vm.IntValue(42))
		got := call(t, machine, IntegerClass, "intValue", "()I", boxed)
		if got.Int != 42 {
			t.Errorf("intValue(valueOf(42)): got %d, want 42", got.Int)
		}
		if n, ok := UnboxInt(boxed); !ok || n != 42 {
			t.Errorf("UnboxInt: got %d, %v", n, ok)
		}
	})

	t.Run("MAX_VALUE", func(t *testing.T) {
		c, _ := cl.LoadClass(IntegerClass)
		got, _ := c.DeclaredField("MAX_VALUE").Get(vm.NullValue())
		if got.Int != 2147483647 {
			t.Errorf("MAX_VALUE: got %d", got.Int)
		}
	})

	t.Run("parseInt", func(t *testing.T) {
		got := call(t, machine, IntegerClass, "parseInt", "(Ljava/lang/String;)I", vm.NullValue(), vm.RefValue("-100"))
		if got.Int != -100 {
			t.Errorf("parseInt(-100): got %d", got.Int)
		}
		hex := call(t, machine, IntegerClass, "parseInt", "(Ljava/lang/String;I)I", vm.NullValue(), vm.RefValue("ff"), vm.IntValue(16))
		if hex.Int != 255 {
			t.Errorf("parseInt(ff, 16): got %d", hex.Int)
		}

		c, _ := cl.LoadClass(IntegerClass)
		_, err := machine.Invoke(c.DeclaredMethod("parseInt", "(Ljava/lang/String;)I"), vm.NullValue(), []vm.Value{vm.RefValue("x")})
		var ex *vm.JavaException
		if !errors.As(err, &ex) || ex.ClassName != "java/lang/NumberFormatException" {
			t.Errorf("parseInt(x): got %v", err)
		}
	})

	t.Run("compareTo bridge", func(t *testing.T) {
		a, _ := BoxInt(cl, 1)
		b, _ := BoxInt(cl, 2)
		got := call(t, machine, "java/lang/Comparable", "compareTo", "(Ljava/lang/Object;)I", vm.RefValue(a), vm.RefValue(b))
		if got.Int != -1 {
			t.Errorf("compareTo: got %d, want -1", got.Int)
		}
	})

	t.Run("hierarchy", func(t *testing.T) {
		c, _ := cl.LoadClass(IntegerClass)
		number, _ := cl.LoadClass("java/lang/Number")
		comparable, _ := cl.LoadClass("java/lang/Comparable")
		if !number.IsAssignableFrom(c) || !comparable.IsAssignableFrom(c) {
			t.Error("Integer should be a Number and a Comparable")
		}
	})
}

func TestString(t *testing.T) {
	_, machine, _ := bootstrap(t)
	s := vm.RefValue("héllo")

	if got := call(t, machine, "java/lang/String", "length", "()I", s); got.Int != 5 {
		t.Errorf("length: got %d", got.Int)
	}
	if got := call(t, machine, "java/lang/String", "charAt", "(I)C", s, vm.IntValue(1)); rune(got.Int) != 'é' {
		t.Errorf("charAt(1): got %q", rune(got.Int))
	}
	if got := call(t, machine, "java/lang/CharSequence", "isEmpty", "()Z", vm.RefValue("")); got.Int != 1 {
		t.Error("isEmpty on empty string")
	}
	if got := call(t, machine, "java/lang/Object", "hashCode", "()I", vm.RefValue("ab")); got.Int != 97*31+98 {
		t.Errorf("hashCode dispatches to String: got %d", got.Int)
	}
	if got := call(t, machine, "java/lang/String", "compareTo", "(Ljava/lang/String;)I", vm.RefValue("a"), vm.RefValue("c")); got.Int != -2 {
		t.Errorf("compareTo: got %d", got.Int)
	}
}

func TestSystemOut(t *testing.T) {
	_, machine, out := bootstrap(t)

	// System.out.println("hi"); System.out.println(42); System.out.println(1.5);
	b := classfile.NewBuilder("demo/Hello", "java/lang/Object", classfile.AccPublic)
	sysOut := b.Fieldref("java/lang/System", "out", "Ljava/io/PrintStream;")
	printStr := b.Methodref("java/io/PrintStream", "println", "(Ljava/lang/String;)V")
	printInt := b.Methodref("java/io/PrintStream", "println", "(I)V")
	printDouble := b.Methodref("java/io/PrintStream", "println", "(D)V")
	hi := b.String("hi")
	half := b.Double(1.5)
	b.Method(classfile.AccPublic|classfile.AccStatic, "main", "([Ljava/lang/String;)V", &classfile.CodeAttribute{
		MaxStack:  3,
		MaxLocals: 1,
		Code: classfile.Bytecode(
			0xB2, sysOut, 0x12, int(hi), 0xB6, printStr,
			0xB2, sysOut, 0x10, 42, 0xB6, printInt,
			0xB2, sysOut, 0x14, half, 0xB6, printDouble,
			0xB1,
		),
	})
	user := vm.NewMapClassLoader(machine.Loader)
	if _, err := user.DefineBytes(b.Bytes()); err != nil {
		t.Fatal(err)
	}
	machine.Loader = user

	if err := machine.Execute("demo/Hello"); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	want := "hi\n42\n1.5\n"
	if got := out.String(); got != want {
		t.Errorf("output: got %q, want %q", got, want)
	}

	out.Reset()
	call(t, machine, "java/io/PrintStream", "println", "(Ljava/lang/Object;)V", systemOut(t, machine), vm.NullValue())
	call(t, machine, "java/io/PrintStream", "println", "(Z)V", systemOut(t, machine), vm.BoolValue(true))
	call(t, machine, "java/io/PrintStream", "println", "(D)V", systemOut(t, machine), vm.DoubleValue(2))
	if got := out.String(); got != "null\ntrue\n2.0\n" {
		t.Errorf("output: got %q", got)
	}
}

func systemOut(t *testing.T, machine *vm.VM) vm.Value {
	t.Helper()
	c, err := machine.Loader.LoadClass("java/lang/System")
	if err != nil {
		t.Fatal(err)
	}
	v, err := c.DeclaredField("out").Get(vm.NullValue())
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestThrowable(t *testing.T) {
	_, machine, _ := bootstrap(t)
	ex, err := machine.New("java/lang/NumberFormatException", "(Ljava/lang/String;)V", vm.RefValue("bad"))
	if err != nil {
		t.Fatal(err)
	}
	got := call(t, machine, "java/lang/Throwable", "getMessage", "()Ljava/lang/String;", vm.RefValue(ex))
	if got.Ref != "bad" {
		t.Errorf("getMessage: got %v", got)
	}
}
