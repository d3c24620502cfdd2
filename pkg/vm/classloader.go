package vm

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/daimatz/jbridge/pkg/classfile"
)

// ErrClassNotFound is returned when no loader in the chain defines a class.
var ErrClassNotFound = errors.New("vm: class not found")

// ClassLoader loads and links classes by internal name. Implementations
// return the same *Class for repeated requests and are safe for concurrent
// use.
type ClassLoader interface {
	LoadClass(name string) (*Class, error)
}

// classTable is the cache shared by the file based loaders. Loading happens
// under mu; links back into the same loader go through load, which expects
// mu to be held.
type classTable struct {
	mu      sync.Mutex
	classes map[string]*Class
	loading map[string]bool
}

func (t *classTable) lookup(name string) (*Class, bool) {
	c, ok := t.classes[name]
	return c, ok
}

func (t *classTable) begin(name string) error {
	if t.loading == nil {
		t.loading = make(map[string]bool)
		t.classes = make(map[string]*Class)
	}
	if t.loading[name] {
		return fmt.Errorf("vm: class circularity while loading %s", name)
	}
	t.loading[name] = true
	return nil
}

func (t *classTable) end(name string, c *Class) {
	delete(t.loading, name)
	if c != nil {
		t.classes[name] = c
	}
}

func delegate(parent ClassLoader, name string) (*Class, error) {
	if parent == nil {
		return nil, ErrClassNotFound
	}
	c, err := parent.LoadClass(name)
	if err != nil && !errors.Is(err, ErrClassNotFound) {
		return nil, err
	}
	return c, err
}

// DirClassLoader loads user classes from classpath directories, delegating
// to the parent first.
type DirClassLoader struct {
	ClassPath []string
	Parent    ClassLoader
	table     classTable
}

// NewDirClassLoader creates a new DirClassLoader.
func NewDirClassLoader(parent ClassLoader, classPath ...string) *DirClassLoader {
	return &DirClassLoader{ClassPath: classPath, Parent: parent}
}

func (cl *DirClassLoader) LoadClass(name string) (*Class, error) {
	cl.table.mu.Lock()
	defer cl.table.mu.Unlock()
	return cl.load(name)
}

func (cl *DirClassLoader) load(name string) (*Class, error) {
	if c, ok := cl.table.lookup(name); ok {
		return c, nil
	}
	c, err := delegate(cl.Parent, name)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrClassNotFound) {
		return nil, err
	}

	for _, dir := range cl.ClassPath {
		path := filepath.Join(dir, filepath.FromSlash(name)+".class")
		if _, err := os.Stat(path); err != nil {
			continue
		}
		cf, err := classfile.ParseFile(path)
		if err != nil {
			return nil, fmt.Errorf("dir: parsing %s: %w", path, err)
		}
		return cl.define(name, cf)
	}
	return nil, fmt.Errorf("%w: %s", ErrClassNotFound, name)
}

func (cl *DirClassLoader) define(name string, cf *classfile.ClassFile) (c *Class, err error) {
	if err := cl.table.begin(name); err != nil {
		return nil, err
	}
	defer func() { cl.table.end(name, c) }()

	if got, _ := cf.ClassName(); got != name {
		return nil, fmt.Errorf("dir: %s.class defines %s", name, got)
	}
	return link(cf, cl, cl.load)
}

// JmodClassLoader loads classes from a JDK jmod file.
type JmodClassLoader struct {
	JmodPath string
	Parent   ClassLoader
	table    classTable
	entries  map[string]*zip.File
}

// NewJmodClassLoader creates a new JmodClassLoader.
func NewJmodClassLoader(jmodPath string, parent ClassLoader) *JmodClassLoader {
	return &JmodClassLoader{JmodPath: jmodPath, Parent: parent}
}

func (cl *JmodClassLoader) ensureEntries() error {
	if cl.entries != nil {
		return nil
	}

	data, err := os.ReadFile(cl.JmodPath)
	if err != nil {
		return fmt.Errorf("jmod: reading %s: %w", cl.JmodPath, err)
	}
	if len(data) < 4 || !bytes.HasPrefix(data, []byte("JM")) {
		return fmt.Errorf("jmod: %s has no jmod header", cl.JmodPath)
	}

	zipData := data[4:] // Skip "JM\x01\x00" header
	zr, err := zip.NewReader(bytes.NewReader(zipData), int64(len(zipData)))
	if err != nil {
		return fmt.Errorf("jmod: opening zip: %w", err)
	}
	cl.entries = make(map[string]*zip.File)
	for _, f := range zr.File {
		if n, ok := strings.CutPrefix(f.Name, "classes/"); ok && strings.HasSuffix(n, ".class") {
			cl.entries[strings.TrimSuffix(n, ".class")] = f
		}
	}
	return nil
}

func (cl *JmodClassLoader) LoadClass(name string) (*Class, error) {
	cl.table.mu.Lock()
	defer cl.table.mu.Unlock()
	return cl.load(name)
}

func (cl *JmodClassLoader) load(name string) (c *Class, err error) {
	if c, ok := cl.table.lookup(name); ok {
		return c, nil
	}
	if c, err := delegate(cl.Parent, name); err == nil {
		return c, nil
	} else if !errors.Is(err, ErrClassNotFound) {
		return nil, err
	}

	if err := cl.ensureEntries(); err != nil {
		return nil, err
	}
	file, ok := cl.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s not in %s", ErrClassNotFound, name, cl.JmodPath)
	}
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("jmod: opening %s: %w", file.Name, err)
	}
	defer rc.Close()
	cf, err := classfile.Parse(io.Reader(rc))
	if err != nil {
		return nil, fmt.Errorf("jmod: parsing %s: %w", name, err)
	}

	if err := cl.table.begin(name); err != nil {
		return nil, err
	}
	defer func() { cl.table.end(name, c) }()
	return link(cf, cl, cl.load)
}
