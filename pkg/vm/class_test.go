package vm

import (
	"errors"
	"testing"

	"github.com/daimatz/jbridge/pkg/classfile"
)

// hierarchy defines:
//
//	interface demo/Named { String name(); }
//	class demo/Base implements Named { private int secret; public String name(); public static Base create(); }
//	class demo/Child extends Base { public String name(); void hidden(); }
func hierarchy(t *testing.T) (*MapClassLoader, *Class, *Class, *Class) {
	t.Helper()
	cl := testLoader(t)
	named := cl.MustDefine(ClassDef{
		Name:        "demo/Named",
		AccessFlags: accPublic | accIface,
		Methods:     []MethodDef{{Name: "name", Descriptor: "()Ljava/lang/String;", AccessFlags: accPublic | accAbstract}},
	})
	base := cl.MustDefine(ClassDef{
		Name:        "demo/Base",
		Super:       "java/lang/Object",
		Interfaces:  []string{"demo/Named"},
		AccessFlags: accPublic,
		Fields: []FieldDef{
			{Name: "secret", Descriptor: "I", AccessFlags: accPrivate},
			{Name: "label", Descriptor: "Ljava/lang/String;", AccessFlags: accPublic},
		},
		Methods: []MethodDef{
			{Name: "<init>", Descriptor: "()V", AccessFlags: accPublic, Native: noop},
			{Name: "<init>", Descriptor: "(I)V", AccessFlags: accPrivate, Native: noop},
			{Name: "name", Descriptor: "()Ljava/lang/String;", AccessFlags: accPublic, Native: func(*VM, Value, []Value) (Value, error) {
				return RefValue("base"), nil
			}},
			{Name: "create", Descriptor: "()Ldemo/Base;", AccessFlags: accPublic | accStatic, Native: noop},
		},
	})
	child := cl.MustDefine(ClassDef{
		Name:        "demo/Child",
		Super:       "demo/Base",
		AccessFlags: accPublic,
		Methods: []MethodDef{
			{Name: "name", Descriptor: "()Ljava/lang/String;", AccessFlags: accPublic, Native: func(*VM, Value, []Value) (Value, error) {
				return RefValue("child"), nil
			}},
			{Name: "hidden", Descriptor: "()V", AccessFlags: 0, Native: noop},
		},
	})
	return cl, named, base, child
}

func TestIsAssignableFrom(t *testing.T) {
	cl, named, base, child := hierarchy(t)
	object, _ := cl.LoadClass("java/lang/Object")
	str, _ := cl.LoadClass("java/lang/String")

	tests := []struct {
		name     string
		to, from *Class
		want     bool
	}{
		{"same class", base, base, true},
		{"subclass", base, child, true},
		{"superclass", child, base, false},
		{"interface via super", named, child, true},
		{"object accepts interface", object, named, true},
		{"unrelated", base, str, false},
		{"interface from object", named, object, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.to.IsAssignableFrom(tt.from); got != tt.want {
				t.Errorf("%s.IsAssignableFrom(%s): got %v, want %v", tt.to, tt.from, got, tt.want)
			}
		})
	}
}

func TestIsAssignable(t *testing.T) {
	cl, _, _, _ := hierarchy(t)
	tests := []struct {
		to, from classfile.Type
		want     bool
	}{
		{classfile.Int, classfile.Int, true},
		{classfile.Long, classfile.Int, false},
		{classfile.ObjectType, classfile.Int, false},
		{classfile.ClassType("demo/Named"), classfile.ClassType("demo/Child"), true},
		{classfile.ClassType("demo/Child"), classfile.ClassType("demo/Base"), false},
		{classfile.ArrayOf(classfile.ClassType("demo/Base")), classfile.ArrayOf(classfile.ClassType("demo/Child")), true},
		{classfile.ArrayOf(classfile.ObjectType), classfile.ArrayOf(classfile.Int), false},
		{classfile.ClassType("java/io/Serializable"), classfile.ArrayOf(classfile.Int), true},
		{classfile.ClassType("demo/Missing"), classfile.ClassType("demo/Base"), false},
	}
	for _, tt := range tests {
		if got := IsAssignable(cl, tt.to, tt.from); got != tt.want {
			t.Errorf("IsAssignable(%s, %s): got %v, want %v", tt.to, tt.from, got, tt.want)
		}
	}
}

func TestLookup(t *testing.T) {
	_, named, base, child := hierarchy(t)

	if m := child.LookupMethod("create", "()Ldemo/Base;"); m == nil || m.Class != base {
		t.Errorf("inherited static: got %v", m)
	}
	if m := child.LookupMethod("name", "()Ljava/lang/String;"); m == nil || m.Class != child {
		t.Errorf("override: got %v", m)
	}
	if m := named.LookupMethod("name", "()Ljava/lang/String;"); m == nil || !m.IsAbstract() {
		t.Errorf("interface method: got %v", m)
	}
	if f := child.LookupField("secret"); f == nil || f.Class != base {
		t.Errorf("inherited field: got %v", f)
	}
	if child.DeclaredField("secret") != nil {
		t.Error("DeclaredField should not see inherited fields")
	}
	if c := base.DeclaredMethod("<init>", "(I)V"); c == nil || !c.IsPrivate() {
		t.Errorf("private constructor: got %v", c)
	}
}

func TestReflection(t *testing.T) {
	_, _, base, child := hierarchy(t)

	t.Run("public methods", func(t *testing.T) {
		methods, err := child.PublicMethods(nil)
		if err != nil {
			t.Fatal(err)
		}
		got := map[string]*Method{}
		for _, m := range methods {
			got[m.Name] = m
		}
		if m := got["name"]; m == nil || m.Class != child {
			t.Errorf("name should resolve to the override, got %v", m)
		}
		if _, ok := got["hidden"]; ok {
			t.Error("package private method listed as public")
		}
		if _, ok := got["hashCode"]; !ok {
			t.Error("hashCode from java.lang.Object missing")
		}
		if _, ok := got["create"]; !ok {
			t.Error("static method inherited from a class should be listed")
		}
		if len(methods) != len(got) {
			t.Errorf("duplicate entries: %d methods, %d names", len(methods), len(got))
		}
	})

	t.Run("declared members", func(t *testing.T) {
		fields, _ := base.DeclaredFields(nil)
		if len(fields) != 2 {
			t.Errorf("declared fields: got %d, want 2", len(fields))
		}
		public, _ := base.PublicFields(nil)
		if len(public) != 1 || public[0].Name != "label" {
			t.Errorf("public fields: got %v", public)
		}
		ctors, _ := base.DeclaredConstructors(nil)
		pub, _ := base.PublicConstructors(nil)
		if len(ctors) != 2 || len(pub) != 1 {
			t.Errorf("constructors: got %d declared, %d public", len(ctors), len(pub))
		}
	})

	t.Run("guard", func(t *testing.T) {
		g := PackageGuard{Prefixes: []string{"demo/"}, PublicAllowed: true}
		if _, err := base.DeclaredMethods(g); !errors.Is(err, ErrReflectionDenied) {
			t.Errorf("declared: got %v, want ErrReflectionDenied", err)
		}
		if _, err := base.PublicMethods(g); err != nil {
			t.Errorf("public with PublicAllowed: got %v", err)
		}
		strict := PackageGuard{Prefixes: []string{"demo/"}}
		if _, err := base.PublicFields(strict); !errors.Is(err, ErrReflectionDenied) {
			t.Errorf("public without PublicAllowed: got %v", err)
		}
		if _, err := base.PublicConstructors(PackageGuard{Prefixes: []string{"sun/"}}); err != nil {
			t.Errorf("unrelated prefix: got %v", err)
		}
	})
}

func TestFieldAccess(t *testing.T) {
	cl := testLoader(t)
	counter := defineBytes(t, cl, counterClass())
	obj := RefValue(NewObject(counter))

	count := counter.DeclaredField("count")
	if err := count.Set(obj, IntValue(5)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got, _ := count.Get(obj); got.Int != 5 {
		t.Errorf("Get: got %d, want 5", got.Int)
	}

	step := counter.DeclaredField("STEP")
	if got, _ := step.Get(NullValue()); got.Int != 1 {
		t.Errorf("STEP: got %d, want 1", got.Int)
	}
	if err := step.Set(NullValue(), IntValue(2)); !errors.Is(err, ErrFinalField) {
		t.Errorf("final: got %v, want ErrFinalField", err)
	}
	if err := count.Set(obj, DoubleValue(1.5)); !errors.Is(err, ErrFieldType) {
		t.Errorf("type: got %v, want ErrFieldType", err)
	}
	if _, err := count.Get(NullValue()); err == nil {
		t.Error("Get with null receiver: expected NullPointerException")
	}
	if _, err := count.Get(RefValue("str")); !errors.Is(err, ErrIllegalAccess) {
		t.Errorf("wrong receiver: got %v, want ErrIllegalAccess", err)
	}
	// 書き込みもレシーバーを検査する
	var npe *JavaException
	if err := count.Set(NullValue(), IntValue(1)); !errors.As(err, &npe) {
		t.Errorf("Set with null receiver: got %v, want NullPointerException", err)
	}
	if err := count.Set(RefValue("str"), IntValue(1)); !errors.Is(err, ErrIllegalAccess) {
		t.Errorf("Set on wrong receiver: got %v, want ErrIllegalAccess", err)
	}
}
