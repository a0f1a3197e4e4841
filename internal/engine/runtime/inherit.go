package runtime

import (
	"strata/internal/core/errors"
)

// Extends links class to a superclass given directly or as a location.
// A second call overwrites the previous link. Links that would make the
// class reachable from its own super chain are rejected.
func (rt *Runtime) Extends(scope *FileScope, class, superRef Value) (*Object, error) {
	obj, ok := class.(*Object)
	if !ok || obj == nil {
		return nil, errors.Newf(errors.CodeInvalidArgument, "Extends expects an object, got %T", class)
	}

	var super *Object
	switch ref := superRef.(type) {
	case *Object:
		if ref == nil {
			return nil, errors.New(errors.CodeResolution, "superclass must not be nil")
		}
		super = ref
	case string:
		resolved, err := rt.Import(scope, ref)
		if err != nil {
			return nil, err
		}
		super, ok = resolved.(*Object)
		if !ok {
			return nil, errors.AddContext(
				errors.Newf(errors.CodeResolution, "superclass %q did not resolve to an object", ref),
				errors.CtxObject, obj.FullName())
		}
	default:
		return nil, errors.Newf(errors.CodeResolution, "superclass must be an object or a location, got %T", superRef)
	}

	if reaches(super, obj) {
		return nil, errors.AddContext(
			errors.Newf(errors.CodeInheritanceCycle, "%s cannot extend %s", obj.FullName(), super.FullName()),
			errors.CtxObject, obj.FullName())
	}
	obj.super = super
	rt.logger.Debug("superclass linked", "object", obj.FullName(), "super", super.FullName())
	return obj, nil
}

// reaches reports whether target is from or one of its superclasses.
func reaches(from, target *Object) bool {
	for cur := from; cur != nil; cur = cur.super {
		if cur == target {
			return true
		}
	}
	return false
}
