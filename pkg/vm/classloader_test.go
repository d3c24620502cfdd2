package vm

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeClass(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name)+".class")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDirClassLoader(t *testing.T) {
	dir := t.TempDir()
	writeClass(t, dir, "demo/Counter", counterClass())
	writeClass(t, dir, "demo/LoudCounter", loudCounterClass())
	writeClass(t, dir, "demo/Wrong", counterClass()) // file name and class name disagree

	boot := testLoader(t)
	cl := NewDirClassLoader(boot, dir)

	t.Run("load class with supertypes", func(t *testing.T) {
		c, err := cl.LoadClass("demo/LoudCounter")
		if err != nil {
			t.Fatalf("failed to load demo/LoudCounter: %v", err)
		}
		if c.Name != "demo/LoudCounter" {
			t.Errorf("class name: got %q, want %q", c.Name, "demo/LoudCounter")
		}
		if c.Super == nil || c.Super.Name != "demo/Counter" {
			t.Fatalf("super: got %v, want demo.Counter", c.Super)
		}
		if c.Super.Super == nil || c.Super.Super.Name != "java/lang/Object" {
			t.Errorf("super.super: got %v, want java.lang.Object", c.Super.Super)
		}
		if c.Loader != cl {
			t.Error("class should record its defining loader")
		}
	})

	t.Run("delegates to parent for library classes", func(t *testing.T) {
		c, err := cl.LoadClass("java/lang/String")
		if err != nil {
			t.Fatalf("failed to load java/lang/String via dir loader: %v", err)
		}
		if c.Loader != boot {
			t.Error("java/lang/String should be defined by the parent")
		}
	})

	t.Run("cache", func(t *testing.T) {
		c1, _ := cl.LoadClass("demo/Counter")
		c2, _ := cl.LoadClass("demo/Counter")
		if c1 == nil || c1 != c2 {
			t.Error("expected same *Class instance from cache")
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := cl.LoadClass("demo/Missing")
		if !errors.Is(err, ErrClassNotFound) {
			t.Errorf("got %v, want ErrClassNotFound", err)
		}
	})

	t.Run("name mismatch", func(t *testing.T) {
		if _, err := cl.LoadClass("demo/Wrong"); err == nil {
			t.Error("expected error for a file defining another class")
		}
	})
}

func writeJmod(t *testing.T, classes map[string][]byte) string {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("JM\x01\x00")
	zw := zip.NewWriter(&buf)
	for name, data := range classes {
		w, err := zw.Create("classes/" + name + ".class")
		if err != nil {
			t.Fatal(err)
		}
		w.Write(data)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "demo.jmod")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestJmodClassLoader(t *testing.T) {
	path := writeJmod(t, map[string][]byte{
		"demo/Counter":     counterClass(),
		"demo/LoudCounter": loudCounterClass(),
	})
	cl := NewJmodClassLoader(path, testLoader(t))

	t.Run("load class", func(t *testing.T) {
		c, err := cl.LoadClass("demo/LoudCounter")
		if err != nil {
			t.Fatalf("failed to load demo/LoudCounter: %v", err)
		}
		if c.Super.Name != "demo/Counter" {
			t.Errorf("super: got %q", c.Super.Name)
		}
		if c.Super.Loader != cl {
			t.Error("super class should come from the jmod")
		}
	})

	t.Run("cache", func(t *testing.T) {
		c1, err := cl.LoadClass("demo/Counter")
		if err != nil {
			t.Fatal(err)
		}
		c2, _ := cl.LoadClass("demo/Counter")
		if c1 != c2 {
			t.Error("expected same *Class instance from cache")
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := cl.LoadClass("demo/Missing")
		if !errors.Is(err, ErrClassNotFound) {
			t.Errorf("got %v, want ErrClassNotFound", err)
		}
	})

	t.Run("bad header", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.jmod")
		os.WriteFile(bad, []byte("PK\x03\x04"), 0o644)
		_, err := NewJmodClassLoader(bad, nil).LoadClass("demo/Counter")
		if err == nil || errors.Is(err, ErrClassNotFound) {
			t.Errorf("got %v, want header error", err)
		}
	})
}

func TestMapClassLoader(t *testing.T) {
	cl := testLoader(t)

	t.Run("duplicate", func(t *testing.T) {
		c, err := cl.Define(ClassDef{Name: "java/lang/String", Super: "java/lang/Object"})
		if err == nil || c != nil {
			t.Errorf("got %v, %v; want duplicate error", c, err)
		}
	})

	t.Run("missing body", func(t *testing.T) {
		_, err := cl.Define(ClassDef{
			Name:    "demo/NoBody",
			Super:   "java/lang/Object",
			Methods: []MethodDef{{Name: "run", Descriptor: "()V", AccessFlags: accPublic}},
		})
		if err == nil {
			t.Error("expected error for a concrete method without a body")
		}
	})

	t.Run("missing super", func(t *testing.T) {
		_, err := cl.Define(ClassDef{Name: "demo/Orphan", Super: "demo/Nowhere"})
		if !errors.Is(err, ErrClassNotFound) {
			t.Errorf("got %v, want ErrClassNotFound", err)
		}
	})

	t.Run("static initial value", func(t *testing.T) {
		v := IntValue(99)
		c, err := cl.Define(ClassDef{
			Name:   "demo/Consts",
			Super:  "java/lang/Object",
			Fields: []FieldDef{{Name: "MAX", Descriptor: "I", AccessFlags: accPublic | accStatic | accFinal, Value: &v}},
		})
		if err != nil {
			t.Fatal(err)
		}
		got, _ := c.DeclaredField("MAX").Get(NullValue())
		if got.Int != 99 {
			t.Errorf("MAX: got %d, want 99", got.Int)
		}
	})
}
