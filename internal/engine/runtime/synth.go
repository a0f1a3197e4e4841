package runtime

import (
	"strata/internal/core/errors"

	"github.com/emirpasic/gods/maps/linkedhashmap"
)

// Class tags the scope's placeholder as a class and attaches New and
// Extends.
func (rt *Runtime) Class(scope *FileScope) (*Object, error) {
	obj, err := rt.construct(scope, KindClass)
	if err != nil {
		return nil, err
	}
	obj.caps |= CapNew | CapExtends
	return obj, nil
}

// Singleton tags the scope's placeholder as a singleton. Its members are
// called on the object itself.
func (rt *Runtime) Singleton(scope *FileScope) (*Object, error) {
	return rt.construct(scope, KindSingleton)
}

// Enum tags the scope's placeholder as an enum. Values stay raw until the
// defining file has returned.
func (rt *Runtime) Enum(scope *FileScope) (*Object, error) {
	return rt.construct(scope, KindEnum)
}

func (rt *Runtime) construct(scope *FileScope, kind Kind) (*Object, error) {
	if scope == nil {
		scope = rt.current
	}
	obj, ok := scope.Object()
	if !ok {
		return nil, errors.Newf(errors.CodeInvalidArgument, "%s() called outside of a defining file", kind)
	}
	if err := obj.setKind(kind); err != nil {
		return nil, err
	}
	rt.logger.Debug("object constructed", "object", obj.FullName(), "kind", kind.String())
	return obj, nil
}

// New instantiates a class. When the class chain resolves an Init member
// the host invokes it with the instance followed by args.
func (rt *Runtime) New(class Value, args ...Value) (*Instance, error) {
	obj, ok := class.(*Object)
	if !ok || obj == nil {
		return nil, errors.Newf(errors.CodeInvalidArgument, "New expects a class, got %T", class)
	}
	if obj.kind != KindClass {
		return nil, errors.Newf(errors.CodeInvalidObject, "%s is a %s and cannot be instantiated", obj.FullName(), obj.kind)
	}
	inst := &Instance{class: obj, fields: linkedhashmap.New()}
	if init, ok := ResolveMember(obj, "Init"); ok {
		callArgs := append([]Value{inst}, args...)
		if _, err := rt.host.Call(init, callArgs); err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeExecution, "Init failed"), errors.CtxObject, obj.FullName())
		}
	}
	return inst, nil
}
