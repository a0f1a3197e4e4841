package runtime

import (
	"github.com/emirpasic/gods/maps/linkedhashmap"
)

// PackageType is the metadata type tag of every package.
const PackageType = "Package"

// Package is a namespace node holding the objects defined by one directory.
type Package struct {
	name    string
	members *linkedhashmap.Map
	env     *Environment
	globals Globals
	loaded  bool
}

func (p *Package) Name() string     { return p.name }
func (p *Package) Type() string     { return PackageType }
func (p *Package) Globals() Globals { return p.globals }

// Linked reports whether the package still delegates to the base environment.
func (p *Package) Linked() bool { return p.env != nil }

// Member returns the object registered under name.
func (p *Package) Member(name string) (*Object, bool) {
	v, ok := p.members.Get(name)
	if !ok {
		return nil, false
	}
	return v.(*Object), true
}

// Members lists objects in discovery order.
func (p *Package) Members() []*Object {
	raw := p.members.Values()
	out := make([]*Object, 0, len(raw))
	for _, v := range raw {
		out = append(out, v.(*Object))
	}
	return out
}

// PublicMembers lists objects whose names do not use the metadata prefix.
func (p *Package) PublicMembers() []*Object {
	all := p.Members()
	out := all[:0:0]
	for _, obj := range all {
		if IsMetadata(obj.name) {
			continue
		}
		out = append(out, obj)
	}
	return out
}

// ensureObject returns the named member, registering an empty placeholder
// when absent.
func (p *Package) ensureObject(name string) *Object {
	if obj, ok := p.Member(name); ok {
		return obj
	}
	obj := newObject(p.name, name)
	p.members.Put(name, obj)
	return obj
}

// Resolve looks name up among the package members, then the base
// environment while linked, then host globals.
func (p *Package) Resolve(name string) (Value, bool) {
	if obj, ok := p.Member(name); ok {
		return obj, true
	}
	if p.env != nil {
		return p.env.Resolve(name)
	}
	return p.globals.Resolve(name)
}

// Registry caches packages by dotted name.
type Registry struct {
	packages map[string]*Package
	order    []string
	env      *Environment
	globals  Globals
	sealed   bool
}

// NewRegistry creates an empty registry whose packages delegate to env.
func NewRegistry(env *Environment, globals Globals) *Registry {
	return &Registry{
		packages: make(map[string]*Package),
		env:      env,
		globals:  globals,
	}
}

// GetPackage returns the cached package or creates an empty one. It never
// loads files.
func (r *Registry) GetPackage(name string) *Package {
	if pkg, ok := r.packages[name]; ok {
		return pkg
	}
	pkg := &Package{
		name:    name,
		members: linkedhashmap.New(),
		globals: r.globals,
	}
	if !r.sealed {
		pkg.env = r.env
	}
	r.packages[name] = pkg
	r.order = append(r.order, name)
	return pkg
}

// Lookup returns a cached package without creating it.
func (r *Registry) Lookup(name string) (*Package, bool) {
	pkg, ok := r.packages[name]
	return pkg, ok
}

// Packages lists cached packages in creation order.
func (r *Registry) Packages() []*Package {
	out := make([]*Package, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.packages[name])
	}
	return out
}

// Len is the number of cached packages.
func (r *Registry) Len() int {
	return len(r.packages)
}

// Delete drops a package from the cache.
func (r *Registry) Delete(name string) {
	if _, ok := r.packages[name]; !ok {
		return
	}
	delete(r.packages, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Seal unlinks every package from the base environment; packages created
// afterwards start unlinked.
func (r *Registry) Seal() {
	r.sealed = true
	for _, pkg := range r.packages {
		pkg.env = nil
	}
}

// Reset empties the registry.
func (r *Registry) Reset() {
	r.packages = make(map[string]*Package)
	r.order = nil
	r.sealed = false
}
