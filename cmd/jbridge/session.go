package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/daimatz/jbridge/pkg/members"
	"github.com/daimatz/jbridge/pkg/native"
	"github.com/daimatz/jbridge/pkg/vm"
)

// session is one VM with its member engine.
type session struct {
	machine *vm.VM
	engine  *members.Engine
	vis     members.Visibility
}

func findJmodPath() string {
	// 1. Explicit env var
	if env := os.Getenv("JAVA_BASE_JMOD"); env != "" {
		return env
	}
	// 2. JAVA_HOME
	if javaHome := os.Getenv("JAVA_HOME"); javaHome != "" {
		p := filepath.Join(javaHome, "jmods", "java.base.jmod")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	// 3. Glob fallback
	matches, _ := filepath.Glob("/usr/lib/jvm/java-*-openjdk-*/jmods/java.base.jmod")
	if len(matches) > 0 {
		return matches[0]
	}
	return ""
}

// classArg splits a command line class reference into an internal name and
// an extra classpath directory. "build/Main.class" loads Main from build;
// "demo.Person" and "demo/Person" are looked up on the classpath.
func classArg(arg string) (name, dir string) {
	if strings.HasSuffix(arg, ".class") {
		return strings.TrimSuffix(filepath.Base(arg), ".class"), filepath.Dir(arg)
	}
	return strings.ReplaceAll(arg, ".", "/"), ""
}

// newSession builds the loader chain: the bootstrap library, then the jmod
// when configured, then the classpath directories.
func (a *app) newSession(extraDirs ...string) (*session, error) {
	boot, err := native.Bootstrap(a.stdout)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	var parent vm.ClassLoader = boot
	jmod := a.cfg.Jmod
	if jmod == "auto" {
		if jmod = findJmodPath(); jmod == "" {
			return nil, fmt.Errorf("could not find java.base.jmod: set JAVA_HOME or JAVA_BASE_JMOD")
		}
	}
	if jmod != "" {
		a.logger.Debug("using jmod", "path", jmod)
		parent = vm.NewJmodClassLoader(jmod, boot)
	}
	dirs := append(slices.Clone(a.cfg.ClassPath), extraDirs...)
	machine := vm.NewVM(vm.NewDirClassLoader(parent, dirs...))
	machine.Stdout = a.stdout

	opts, err := a.cfg.EngineOptions(a.logger.WithPrefix("members"))
	if err != nil {
		return nil, err
	}
	vis, err := a.cfg.MemberVisibility()
	if err != nil {
		return nil, err
	}
	return &session{
		machine: machine,
		engine:  members.New(machine, nil, opts...),
		vis:     vis,
	}, nil
}

// open resolves a class argument to a loaded class in a new session.
func (a *app) open(arg string) (*session, *vm.Class, error) {
	name, dir := classArg(arg)
	var extra []string
	if dir != "" {
		extra = append(extra, dir)
	}
	s, err := a.newSession(extra...)
	if err != nil {
		return nil, nil, err
	}
	cls, err := s.machine.Loader.LoadClass(name)
	if err != nil {
		return nil, nil, fmt.Errorf("loading %s: %w", arg, err)
	}
	return s, cls, nil
}
