// Package runtime implements the object/module runtime: the package
// registry, file scopes, object constructors, import resolution,
// inheritance, enum finalization and the directory loader.
//
// A Runtime is single-threaded. Independent Runtime values share no state.
package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"strata/internal/engine/naming"
)

// FileLister enumerates the source files and subdirectories of a directory
// in a stable order. Names are relative to dir.
type FileLister interface {
	List(dir string) (files []string, dirs []string, err error)
}

// Unit is a compiled source file.
type Unit interface {
	Run(scope *FileScope) (Value, error)
}

// UnitFunc adapts a function to Unit.
type UnitFunc func(scope *FileScope) (Value, error)

func (f UnitFunc) Run(scope *FileScope) (Value, error) { return f(scope) }

// Host is the scripting engine the runtime is layered on.
type Host interface {
	Compile(path string) (Unit, error)
	Call(fn Value, args []Value) (Value, error)
}

// HostFactory builds the host for a runtime. The host may keep the runtime
// to service object operations triggered from scripts.
type HostFactory func(rt *Runtime) Host

// State is the loader state machine position.
type State int

const (
	StateIdle State = iota
	StatePreparingPackage
	StateLoadingFile
	StateFinalizing
	StateInvoking
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreparingPackage:
		return "preparing_package"
	case StateLoadingFile:
		return "loading_file"
	case StateFinalizing:
		return "finalizing"
	case StateInvoking:
		return "invoking"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Options struct {
	Host    HostFactory
	Lister  FileLister
	Namer   *naming.Namer
	Globals Globals
	Logger  *slog.Logger
}

// Runtime is the loader context: package cache, base environment and the
// cursor of the file currently executing.
type Runtime struct {
	host    Host
	lister  FileLister
	namer   *naming.Namer
	globals Globals
	logger  *slog.Logger

	env      *Environment
	registry *Registry
	state    State
	current  *FileScope
	baseDir  string
	ctx      context.Context
	runID    string
	files    int
}

func New(opts Options) (*Runtime, error) {
	if opts.Host == nil {
		return nil, fmt.Errorf("runtime: host factory is required")
	}
	if opts.Lister == nil {
		return nil, fmt.Errorf("runtime: file lister is required")
	}
	if opts.Namer == nil {
		opts.Namer = naming.NewNamer(nil)
	}
	if opts.Globals == nil {
		opts.Globals = Globals{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	rt := &Runtime{
		lister:  opts.Lister,
		namer:   opts.Namer,
		globals: opts.Globals,
		logger:  opts.Logger,
		ctx:     context.Background(),
	}
	rt.env = newEnvironment(rt.globals)
	rt.registerHelpers()
	rt.registry = NewRegistry(rt.env, rt.globals)
	rt.host = opts.Host(rt)
	if rt.host == nil {
		return nil, fmt.Errorf("runtime: host factory returned nil")
	}
	return rt, nil
}

func (rt *Runtime) State() State              { return rt.state }
func (rt *Runtime) Registry() *Registry       { return rt.registry }
func (rt *Runtime) Environment() *Environment { return rt.env }
func (rt *Runtime) Host() Host                { return rt.host }

// Current returns the scope of the file currently executing, if any.
func (rt *Runtime) Current() *FileScope { return rt.current }

// NewFileScope builds a scope for a file of pkg defining objectName.
func (rt *Runtime) NewFileScope(pkg *Package, objectName string) *FileScope {
	return NewFileScope(pkg, objectName)
}

func (rt *Runtime) registerHelpers() {
	rt.env.register(&Builtin{Name: "Import", Fn: func(scope *FileScope, args []Value) (Value, error) {
		return rt.Import(scope, argAt(args, 0))
	}})
	rt.env.register(&Builtin{Name: "Class", Fn: func(scope *FileScope, _ []Value) (Value, error) {
		return rt.Class(scope)
	}})
	rt.env.register(&Builtin{Name: "Singleton", Fn: func(scope *FileScope, _ []Value) (Value, error) {
		return rt.Singleton(scope)
	}})
	rt.env.register(&Builtin{Name: "Enum", Fn: func(scope *FileScope, _ []Value) (Value, error) {
		return rt.Enum(scope)
	}})
	rt.env.register(&Builtin{Name: "Extends", Fn: func(scope *FileScope, args []Value) (Value, error) {
		return rt.Extends(scope, argAt(args, 0), argAt(args, 1))
	}})
}

func argAt(args []Value, i int) Value {
	if i < len(args) {
		return args[i]
	}
	return nil
}

// reset returns the runtime to its pre-bootstrap state.
func (rt *Runtime) reset() {
	rt.registry.Reset()
	rt.current = nil
	rt.baseDir = ""
	rt.files = 0
	rt.ctx = context.Background()
}
