package runtime

import (
	"strata/internal/shared/util"

	"github.com/emirpasic/gods/maps/linkedhashmap"
)

// Scope resolves names while a file executes.
type Scope interface {
	Resolve(name string) (Value, bool)
	Bind(name string, v Value)
}

// Globals is the host global scope, the last link of every chain.
type Globals map[string]Value

func (g Globals) Resolve(name string) (Value, bool) {
	v, ok := g[name]
	return v, ok
}

// Builtin is a runtime helper exposed through the base environment.
type Builtin struct {
	Name string
	Fn   func(scope *FileScope, args []Value) (Value, error)
}

func (b *Builtin) Call(scope *FileScope, args ...Value) (Value, error) {
	return b.Fn(scope, args)
}

func (b *Builtin) String() string {
	return "<builtin " + b.Name + ">"
}

// Environment is the shared base environment. It offers the runtime
// helpers to every file and delegates misses to host globals.
type Environment struct {
	helpers map[string]*Builtin
	globals Globals
}

func newEnvironment(globals Globals) *Environment {
	return &Environment{helpers: make(map[string]*Builtin), globals: globals}
}

func (e *Environment) register(b *Builtin) {
	e.helpers[b.Name] = b
}

func (e *Environment) Resolve(name string) (Value, bool) {
	if b, ok := e.helpers[name]; ok {
		return b, true
	}
	return e.globals.Resolve(name)
}

// HelperNames lists the helper names in sorted order.
func (e *Environment) HelperNames() []string {
	return util.SortedStringKeys(e.helpers)
}

// FileScope holds the bindings of one executing file. Lookups fall through
// file -> package -> base environment -> host globals; writes stay local.
type FileScope struct {
	pkg        *Package
	objectName string
	locals     *linkedhashmap.Map
}

// NewFileScope creates a fresh binding set rooted at pkg and associated with
// the placeholder objectName.
func NewFileScope(pkg *Package, objectName string) *FileScope {
	return &FileScope{pkg: pkg, objectName: objectName, locals: linkedhashmap.New()}
}

func (s *FileScope) Package() *Package  { return s.pkg }
func (s *FileScope) ObjectName() string { return s.objectName }

// Object returns the placeholder this file defines.
func (s *FileScope) Object() (*Object, bool) {
	if s == nil || s.pkg == nil || s.objectName == "" {
		return nil, false
	}
	return s.pkg.Member(s.objectName)
}

func (s *FileScope) Resolve(name string) (Value, bool) {
	if v, ok := s.locals.Get(name); ok {
		return v, true
	}
	return s.pkg.Resolve(name)
}

func (s *FileScope) Bind(name string, v Value) {
	s.locals.Put(name, v)
}

// Locals lists file-local names in binding order.
func (s *FileScope) Locals() []string {
	return stringKeys(s.locals)
}

// Names lists every name the chain can resolve, nearest link first.
func (s *FileScope) Names() []string {
	seen := make(map[string]struct{})
	var names []string
	add := func(n string) {
		if _, ok := seen[n]; ok {
			return
		}
		seen[n] = struct{}{}
		names = append(names, n)
	}
	for _, n := range s.Locals() {
		add(n)
	}
	for _, obj := range s.pkg.Members() {
		add(obj.name)
	}
	if s.pkg.env != nil {
		for _, n := range s.pkg.env.HelperNames() {
			add(n)
		}
	}
	for _, n := range util.SortedStringKeys(s.pkg.globals) {
		add(n)
	}
	return names
}
