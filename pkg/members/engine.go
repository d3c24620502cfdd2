package members

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/daimatz/jbridge/pkg/vm"
)

// Strategy selects how a table materializes its entries.
type Strategy int

const (
	Eager Strategy = iota
	Lazy
)

func (s Strategy) String() string {
	if s == Lazy {
		return "lazy"
	}
	return "eager"
}

// Version selects the reflection engine.
type Version int

const (
	// Current builds tables from cached ClassInfo records.
	Current Version = iota
	// Legacy reflects every class again for every table.
	Legacy
)

func (v Version) String() string {
	if v == Legacy {
		return "legacy"
	}
	return "current"
}

// ParseVisibility parses "public", "protected" or "private".
func ParseVisibility(s string) (Visibility, error) {
	switch strings.ToLower(s) {
	case "public", "":
		return PublicOnly, nil
	case "protected":
		return IncludeProtected, nil
	case "private":
		return IncludePrivate, nil
	}
	return 0, fmt.Errorf("unknown visibility %q", s)
}

// ParseStrategy parses "eager" or "lazy".
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(s) {
	case "eager", "":
		return Eager, nil
	case "lazy":
		return Lazy, nil
	}
	return 0, fmt.Errorf("unknown strategy %q", s)
}

// ParseVersion parses "current" or "legacy".
func ParseVersion(s string) (Version, error) {
	switch strings.ToLower(s) {
	case "current", "":
		return Current, nil
	case "legacy":
		return Legacy, nil
	}
	return 0, fmt.Errorf("unknown engine %q", s)
}

// Engine builds member tables for the classes of one VM.
type Engine struct {
	machine  *vm.VM
	host     Host
	cache    *Cache
	strategy Strategy
	version  Version
	guard    vm.Guard
	shutter  ClassShutter
	logger   *log.Logger

	mu      sync.RWMutex
	aliases map[Key]alias
}

// alias is where a class lookup was resolved to after restricted-access
// retries. info is nil for the legacy engine.
type alias struct {
	class *vm.Class
	info  *ClassInfo
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for reflection warnings.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithCache sets the record cache. Engines may share one cache.
func WithCache(c *Cache) Option {
	return func(e *Engine) { e.cache = c }
}

func WithStrategy(s Strategy) Option {
	return func(e *Engine) { e.strategy = s }
}

func WithVersion(v Version) Option {
	return func(e *Engine) { e.version = v }
}

// WithGuard sets the reflection guard consulted for every class.
func WithGuard(g vm.Guard) Option {
	return func(e *Engine) { e.guard = g }
}

// WithClassShutter hides classes from scripts.
func WithClassShutter(s ClassShutter) Option {
	return func(e *Engine) { e.shutter = s }
}

// New creates an Engine. A nil host defaults to DefaultHost over machine.
func New(machine *vm.VM, host Host, opts ...Option) *Engine {
	e := &Engine{
		machine: machine,
		host:    host,
		aliases: make(map[Key]alias),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.host == nil {
		e.host = DefaultHost{VM: machine}
	}
	if e.cache == nil {
		e.cache = NewCache(true)
	}
	if e.logger == nil {
		e.logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "members", Level: log.WarnLevel})
	}
	return e
}

// Cache returns the record cache of e.
func (e *Engine) Cache() *Cache { return e.cache }

func (e *Engine) walker(vis Visibility) *walker {
	return &walker{vis: vis, guard: e.guard, logger: e.logger}
}

func (e *Engine) checkVisible(cls *vm.Class) error {
	if e.shutter != nil && !e.shutter.VisibleToScripts(cls.JavaName()) {
		return memberError(cls.JavaName(), "", nil, ErrAccessDenied)
	}
	return nil
}

// Record returns the ClassInfo of cls, building it on a cache miss.
func (e *Engine) Record(cls *vm.Class, vis Visibility) (*ClassInfo, error) {
	if err := e.checkVisible(cls); err != nil {
		return nil, err
	}
	return e.cache.Resolve(Key{Class: cls, Visibility: vis}, func() (*ClassInfo, error) {
		e.logger.Debug("reflecting class", "class", cls.JavaName(), "visibility", vis)
		return buildClassInfo(cls, e.walker(vis))
	})
}

// Members returns a table for cls without restricted-access retries.
func (e *Engine) Members(cls *vm.Class, vis Visibility) (Table, error) {
	t, _, err := e.members(cls, vis)
	return t, err
}

func (e *Engine) members(cls *vm.Class, vis Visibility) (Table, *ClassInfo, error) {
	if e.version == Legacy {
		if err := e.checkVisible(cls); err != nil {
			return nil, nil, err
		}
		src, ctors, err := newLegacySource(cls, e.walker(vis))
		if err != nil {
			return nil, nil, err
		}
		return newTable(cls, e.machine, e.host, src, ctors), nil, nil
	}
	info, err := e.Record(cls, vis)
	if err != nil {
		return nil, nil, err
	}
	t, err := e.bind(info)
	if err != nil {
		return nil, nil, err
	}
	return t, info, nil
}

// bind creates a table over info with the configured strategy.
func (e *Engine) bind(info *ClassInfo) (Table, error) {
	var src memberSource
	if e.strategy == Lazy {
		src = newLazySource(info)
	} else {
		s, err := newEagerSource(info)
		if err != nil {
			return nil, err
		}
		src = s
	}
	return newTable(info.Class, e.machine, e.host, src, info.constructors), nil
}

// Lookup returns the table for an object of class dynamic whose static
// type is static (nil when unknown). When reflection on a class is
// refused, Lookup retries with the static type if it is an interface,
// then with each super class in turn. With caching enabled every class
// visited on the way is remembered as an alias of the class that worked.
func (e *Engine) Lookup(dynamic, static *vm.Class, vis Visibility) (Table, error) {
	key := Key{Class: dynamic, Visibility: vis}
	e.mu.RLock()
	a, ok := e.aliases[key]
	e.mu.RUnlock()
	if ok {
		if a.info != nil {
			return e.bind(a.info)
		}
		t, _, err := e.members(a.class, vis)
		return t, err
	}

	cls := dynamic
	var visited []*vm.Class
	for {
		visited = append(visited, cls)
		t, info, err := e.members(cls, vis)
		if err == nil {
			if e.cache.Enabled() {
				e.mu.Lock()
				for _, v := range visited {
					e.aliases[Key{Class: v, Visibility: vis}] = alias{class: cls, info: info}
				}
				e.mu.Unlock()
			}
			return t, nil
		}
		if !errors.Is(err, vm.ErrReflectionDenied) {
			return nil, err
		}
		e.logger.Debug("reflection refused, retrying with a supertype", "class", cls.JavaName(), "err", err)

		switch {
		case static != nil && static.IsInterface():
			cls, static = static, nil
		case cls.Super != nil:
			cls = cls.Super
		case cls.IsInterface():
			object, lerr := e.loadObject(cls)
			if lerr != nil {
				return nil, memberError(dynamic.JavaName(), "", err, ErrAccessDenied)
			}
			cls = object
		default:
			return nil, memberError(dynamic.JavaName(), "", err, ErrAccessDenied)
		}
	}
}

func (e *Engine) loadObject(from *vm.Class) (*vm.Class, error) {
	loader := from.Loader
	if loader == nil {
		loader = e.machine.Loader
	}
	return loader.LoadClass("java/lang/Object")
}
