package runtime

import (
	"strings"

	"strata/internal/core/errors"
	"strata/internal/engine/naming"
)

// Import resolves a location to an object, or to every public member of a
// package for a wildcard location, and binds the result into scope.
//
// A location without a dot is relative to the scope's package. A nil scope
// means the file currently executing; with no file executing, locations
// are absolute.
func (rt *Runtime) Import(scope *FileScope, location Value) (Value, error) {
	if scope == nil {
		scope = rt.current
	}
	loc, err := resolveLocation(scope, location)
	if err != nil {
		return nil, err
	}

	prefix, last := naming.SplitLocation(loc)
	if naming.IsWildcard(last) {
		return rt.importAll(scope, prefix)
	}

	name, err := rt.namer.ToMemberName(last)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxLocation, loc)
	}
	obj := rt.registry.GetPackage(prefix).ensureObject(name)
	if scope != nil {
		scope.Bind(name, obj)
	}
	return obj, nil
}

// ImportNames lists the names an Import of location from scope would bind,
// without loading or registering anything. For a wildcard these are the
// package's known members plus one name per source file of its directory.
func (rt *Runtime) ImportNames(scope *FileScope, location string) ([]string, error) {
	loc, err := resolveLocation(scope, location)
	if err != nil {
		return nil, err
	}
	prefix, last := naming.SplitLocation(loc)
	if !naming.IsWildcard(last) {
		name, err := rt.namer.ToMemberName(last)
		if err != nil {
			return nil, err
		}
		return []string{name}, nil
	}

	var names []string
	if pkg, ok := rt.registry.Lookup(prefix); ok {
		for _, obj := range pkg.PublicMembers() {
			names = append(names, obj.name)
		}
	}
	if rt.baseDir == "" {
		return names, nil
	}
	files, _, err := rt.lister.List(naming.PackageDir(rt.baseDir, prefix))
	if err != nil {
		// a missing directory fails later, when the import itself runs
		return names, nil
	}
	for _, f := range files {
		if name, err := rt.namer.FileObjectName(f); err == nil {
			names = append(names, name)
		}
	}
	return names, nil
}

func resolveLocation(scope *FileScope, location Value) (string, error) {
	loc, ok := location.(string)
	if !ok {
		return "", errors.Newf(errors.CodeInvalidArgument, "import location must be a string, got %T", location)
	}
	loc = strings.TrimSpace(loc)
	if loc == "" {
		return "", errors.New(errors.CodeInvalidArgument, "import location must not be empty")
	}
	if !strings.Contains(loc, ".") && scope != nil {
		loc = naming.JoinLocation(scope.pkg.name, loc)
	}
	return loc, nil
}

// importAll loads pkgName in import mode when its files have not run yet and
// returns its public members in discovery order.
func (rt *Runtime) importAll(scope *FileScope, pkgName string) ([]*Object, error) {
	pkg := rt.registry.GetPackage(pkgName)
	if !pkg.loaded && rt.baseDir != "" {
		dir := naming.PackageDir(rt.baseDir, pkgName)
		if err := rt.loadDirectory(dir, true); err != nil {
			return nil, errors.AddContext(err, errors.CtxLocation, naming.JoinLocation(pkgName, naming.Wildcard))
		}
	}

	members := pkg.PublicMembers()
	if scope != nil {
		for _, obj := range members {
			scope.Bind(obj.name, obj)
		}
	}
	return members, nil
}
