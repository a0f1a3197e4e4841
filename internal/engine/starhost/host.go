// Package starhost runs source files on Starlark. Runtime objects, class
// instances and enum values are exposed to scripts as attribute-bearing
// values; runtime helpers are predeclared in every file.
package starhost

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"strata/internal/engine/runtime"

	"go.starlark.net/resolve"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Extension is the source file extension handled by this host.
const Extension = ".star"

func init() {
	// files define objects with top-level loops and reassignments
	resolve.AllowGlobalReassign = true
	resolve.AllowRecursion = true
}

type Host struct {
	rt       *runtime.Runtime
	out      io.Writer
	logger   *slog.Logger
	maxSteps uint64

	thread *starlark.Thread
}

type Option func(*Host)

// WithOutput redirects script print output.
func WithOutput(w io.Writer) Option {
	return func(h *Host) { h.out = w }
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Host) { h.logger = l }
}

// WithMaxSteps bounds the number of computation steps of every thread.
// Zero means unbounded.
func WithMaxSteps(n uint64) Option {
	return func(h *Host) { h.maxSteps = n }
}

// New returns a host factory for runtime.Options.
func New(opts ...Option) runtime.HostFactory {
	return func(rt *runtime.Runtime) runtime.Host {
		h := &Host{rt: rt, out: os.Stdout, logger: slog.Default()}
		for _, opt := range opts {
			opt(h)
		}
		return h
	}
}

type unit struct {
	host *Host
	path string
	file *syntax.File
}

// Compile reads and parses path. Name resolution happens at run time, once
// the file scope is known, so a unit runs at most once.
func (h *Host) Compile(path string) (runtime.Unit, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	f, err := syntax.LegacyFileOptions().Parse(path, src, 0)
	if err != nil {
		return nil, err
	}
	return &unit{host: h, path: path, file: f}, nil
}

// Run executes the file with every name of the scope chain predeclared.
// Names that the file's Import calls may bind are declared too and get
// their values once the import has run.
// The file's value is the global named after its object, or the
// placeholder itself once a constructor has typed it.
func (u *unit) Run(scope *runtime.FileScope) (runtime.Value, error) {
	h := u.host
	thread := h.newThread(u.path)
	prev := h.thread
	h.thread = thread
	defer func() { h.thread = prev }()

	dict := h.predeclared(scope)
	imported, open := h.importNames(u.file, scope)
	prog, err := starlark.FileProgram(u.file, func(name string) bool {
		if dict.Has(name) || imported[name] {
			return true
		}
		return open && !starlark.Universe.Has(name)
	})
	if err != nil {
		return nil, err
	}
	globals, err := prog.Init(thread, dict)
	globals.Freeze()
	if err != nil {
		return nil, err
	}
	for _, name := range globals.Keys() {
		scope.Bind(name, fromStarlark(globals[name]))
	}

	if v, ok := globals[scope.ObjectName()]; ok {
		return fromStarlark(v), nil
	}
	if obj, ok := scope.Object(); ok && obj.Kind() != runtime.KindPlaceholder {
		return obj, nil
	}
	return nil, nil
}

// importNames collects the names that Import calls with a literal location
// may bind in f. open reports an Import whose location is only known when
// it runs.
func (h *Host) importNames(f *syntax.File, scope *runtime.FileScope) (names map[string]bool, open bool) {
	names = make(map[string]bool)
	syntax.Walk(f, func(n syntax.Node) bool {
		call, ok := n.(*syntax.CallExpr)
		if !ok {
			return true
		}
		if id, ok := call.Fn.(*syntax.Ident); !ok || id.Name != "Import" {
			return true
		}
		var lit *syntax.Literal
		if len(call.Args) == 1 {
			lit, _ = call.Args[0].(*syntax.Literal)
		}
		loc, ok := "", false
		if lit != nil {
			loc, ok = lit.Value.(string)
		}
		if !ok {
			open = true
			return true
		}
		found, err := h.rt.ImportNames(scope, loc)
		if err != nil {
			// reported by the call itself
			return true
		}
		for _, name := range found {
			names[name] = true
		}
		return true
	})
	return names, open
}

// Call invokes a script callable with runtime arguments. Calls made while a
// file or another call is running share its thread.
func (h *Host) Call(fn runtime.Value, args []runtime.Value) (runtime.Value, error) {
	if b, ok := fn.(*runtime.Builtin); ok {
		return b.Call(h.rt.Current(), args...)
	}
	callable, ok := fn.(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("value of type %T is not callable", fn)
	}
	sargs := make(starlark.Tuple, 0, len(args))
	for _, a := range args {
		sv, err := h.toStarlark(a)
		if err != nil {
			return nil, err
		}
		sargs = append(sargs, sv)
	}

	thread := h.thread
	if thread == nil {
		thread = h.newThread(callable.Name())
		h.thread = thread
		defer func() { h.thread = nil }()
	}
	res, err := starlark.Call(thread, callable, sargs, nil)
	if err != nil {
		return nil, err
	}
	return fromStarlark(res), nil
}

func (h *Host) newThread(name string) *starlark.Thread {
	thread := &starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, msg string) {
			fmt.Fprintln(h.out, msg)
		},
	}
	if h.maxSteps > 0 {
		thread.SetMaxExecutionSteps(h.maxSteps)
	}
	return thread
}

func (h *Host) predeclared(scope *runtime.FileScope) starlark.StringDict {
	dict := make(starlark.StringDict)
	for _, name := range scope.Names() {
		v, ok := scope.Resolve(name)
		if !ok {
			continue
		}
		if b, ok := v.(*runtime.Builtin); ok {
			dict[name] = h.helper(b, scope, dict)
			continue
		}
		sv, err := h.toStarlark(v)
		if err != nil {
			h.logger.Debug("global hidden from scripts", "name", name, "error", err)
			continue
		}
		dict[name] = sv
	}
	return dict
}

// helper binds a runtime helper to the scope of the file that sees it, so
// relative imports made later from its functions still resolve against
// that file's package. Names the helper binds into the scope are published
// to dict, the file's predeclared set.
func (h *Host) helper(b *runtime.Builtin, scope *runtime.FileScope, dict starlark.StringDict) *starlark.Builtin {
	return h.method(b.Name, func(args []runtime.Value) (runtime.Value, error) {
		res, err := b.Call(scope, args...)
		if err != nil {
			return nil, err
		}
		h.publish(scope, dict)
		return res, nil
	})
}

func (h *Host) publish(scope *runtime.FileScope, dict starlark.StringDict) {
	for _, name := range scope.Locals() {
		v, _ := scope.Resolve(name)
		if obj, ok := v.(*runtime.Object); ok {
			dict[name] = objectValue{obj: obj, host: h}
		}
	}
}

func (h *Host) method(name string, fn func(args []runtime.Value) (runtime.Value, error)) *starlark.Builtin {
	return starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if len(kwargs) > 0 {
			return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
		}
		goArgs := make([]runtime.Value, len(args))
		for i, a := range args {
			goArgs[i] = fromStarlark(a)
		}
		res, err := fn(goArgs)
		if err != nil {
			return nil, err
		}
		return h.toStarlark(res)
	})
}
