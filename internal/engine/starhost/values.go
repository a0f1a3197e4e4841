package starhost

import (
	"fmt"
	"strings"

	"strata/internal/engine/runtime"

	"github.com/spf13/cast"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// objectValue exposes a runtime object to scripts. Equality is identity.
type objectValue struct {
	obj  *runtime.Object
	host *Host
}

var (
	_ starlark.HasAttrs    = objectValue{}
	_ starlark.HasSetField = objectValue{}
)

func (v objectValue) String() string        { return v.obj.String() }
func (v objectValue) Type() string          { return strings.ToLower(v.obj.Kind().String()) }
func (v objectValue) Freeze()               {}
func (v objectValue) Truth() starlark.Bool  { return starlark.True }
func (v objectValue) Hash() (uint32, error) { return starlark.String(v.obj.FullName()).Hash() }

func (v objectValue) Attr(name string) (starlark.Value, error) {
	if member, ok := runtime.ResolveMember(v.obj, name); ok {
		return v.host.toStarlark(member)
	}
	switch name {
	case "New":
		if v.obj.Has(runtime.CapNew) {
			return v.host.method(name, v.newInstance), nil
		}
	case "Extends":
		if v.obj.Has(runtime.CapExtends) {
			return v.host.method(name, v.extends), nil
		}
	case "GetValues":
		if v.obj.Kind() == runtime.KindEnum {
			return v.host.method(name, v.values), nil
		}
	case "GetValueOf":
		if v.obj.Kind() == runtime.KindEnum {
			return v.host.method(name, v.valueOf), nil
		}
	case "name":
		return starlark.String(v.obj.Name()), nil
	case "package":
		return starlark.String(v.obj.Package()), nil
	case "type":
		return starlark.String(v.obj.Kind().String()), nil
	}
	return nil, nil
}

func (v objectValue) AttrNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, link := range v.obj.Chain() {
		for _, k := range link.Keys() {
			if !seen[k] {
				seen[k] = true
				names = append(names, k)
			}
		}
	}
	if v.obj.Has(runtime.CapNew) {
		names = append(names, "New")
	}
	if v.obj.Has(runtime.CapExtends) {
		names = append(names, "Extends")
	}
	if v.obj.Kind() == runtime.KindEnum {
		names = append(names, "GetValues", "GetValueOf")
	}
	for _, meta := range metadataAttrs {
		if !seen[meta] {
			names = append(names, meta)
		}
	}
	return names
}

// metadataAttrs are computed from the object. Members of the same name
// shadow them.
var metadataAttrs = []string{"name", "package", "type"}

func (v objectValue) SetField(name string, val starlark.Value) error {
	return v.obj.Set(name, fromStarlark(val))
}

func (v objectValue) newInstance(args []runtime.Value) (runtime.Value, error) {
	return v.host.rt.New(v.obj, args...)
}

func (v objectValue) extends(args []runtime.Value) (runtime.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("Extends: got %d arguments, want 1", len(args))
	}
	return v.host.rt.Extends(v.host.rt.Current(), v.obj, args[0])
}

func (v objectValue) values(args []runtime.Value) (runtime.Value, error) {
	if len(args) != 0 {
		return nil, fmt.Errorf("GetValues: got %d arguments, want 0", len(args))
	}
	out := make([]runtime.Value, 0)
	for _, ev := range v.obj.GetValues() {
		out = append(out, ev)
	}
	return out, nil
}

func (v objectValue) valueOf(args []runtime.Value) (runtime.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("GetValueOf: got %d arguments, want 1", len(args))
	}
	name, err := cast.ToStringE(args[0])
	if err != nil {
		return nil, fmt.Errorf("GetValueOf: %w", err)
	}
	if ev, ok := v.obj.GetValueOf(name); ok {
		return ev, nil
	}
	return nil, nil
}

// instanceValue exposes a class instance. Callables found on the class
// chain come back bound to the instance.
type instanceValue struct {
	inst *runtime.Instance
	host *Host
}

var (
	_ starlark.HasAttrs    = instanceValue{}
	_ starlark.HasSetField = instanceValue{}
)

func (v instanceValue) String() string       { return v.inst.String() }
func (v instanceValue) Type() string         { return "instance" }
func (v instanceValue) Freeze()              {}
func (v instanceValue) Truth() starlark.Bool { return starlark.True }
func (v instanceValue) Hash() (uint32, error) {
	return starlark.String(fmt.Sprintf("%p", v.inst)).Hash()
}

func (v instanceValue) Attr(name string) (starlark.Value, error) {
	if own, ok := v.inst.Get(name); ok {
		return v.host.toStarlark(own)
	}
	member, ok := runtime.ResolveMember(v.inst.Class(), name)
	if !ok {
		return nil, nil
	}
	sv, err := v.host.toStarlark(member)
	if err != nil {
		return nil, err
	}
	if fn, ok := sv.(starlark.Callable); ok {
		return bindReceiver(name, v, fn), nil
	}
	return sv, nil
}

func (v instanceValue) AttrNames() []string {
	names := v.inst.Keys()
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	for _, link := range v.inst.Class().Chain() {
		for _, k := range link.Keys() {
			if !seen[k] {
				seen[k] = true
				names = append(names, k)
			}
		}
	}
	return names
}

func (v instanceValue) SetField(name string, val starlark.Value) error {
	v.inst.Set(name, fromStarlark(val))
	return nil
}

func bindReceiver(name string, recv starlark.Value, fn starlark.Callable) *starlark.Builtin {
	return starlark.NewBuiltin(name, func(thread *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		full := make(starlark.Tuple, 0, len(args)+1)
		full = append(full, recv)
		full = append(full, args...)
		return starlark.Call(thread, fn, full, kwargs)
	})
}

// enumValue exposes a finalized enum member. Arithmetic and ordering apply
// to the raw values.
type enumValue struct {
	ev   *runtime.EnumValue
	host *Host
}

var (
	_ starlark.HasAttrs   = enumValue{}
	_ starlark.HasBinary  = enumValue{}
	_ starlark.Comparable = enumValue{}
)

func (v enumValue) String() string       { return v.ev.String() }
func (v enumValue) Type() string         { return "enum_value" }
func (v enumValue) Freeze()              {}
func (v enumValue) Truth() starlark.Bool { return starlark.True }

func (v enumValue) Hash() (uint32, error) {
	raw, err := v.host.toStarlark(v.ev.Value())
	if err != nil {
		return 0, err
	}
	return raw.Hash()
}

func (v enumValue) Attr(name string) (starlark.Value, error) {
	switch name {
	case "GetName":
		return v.host.method(name, func([]runtime.Value) (runtime.Value, error) { return v.ev.Name(), nil }), nil
	case "GetValue":
		return v.host.method(name, func([]runtime.Value) (runtime.Value, error) { return v.ev.Value(), nil }), nil
	case "GetEnum":
		return v.host.method(name, func([]runtime.Value) (runtime.Value, error) { return v.ev.Enum(), nil }), nil
	}
	return nil, nil
}

func (v enumValue) AttrNames() []string {
	return []string{"GetEnum", "GetName", "GetValue"}
}

func (v enumValue) Binary(op syntax.Token, y starlark.Value, side starlark.Side) (starlark.Value, error) {
	other, ok := y.(enumValue)
	if !ok {
		return nil, nil
	}
	l, r := v.ev, other.ev
	if side == starlark.Right {
		l, r = r, l
	}

	var res runtime.Value
	var err error
	switch op {
	case syntax.PLUS:
		res, err = l.Add(r)
	case syntax.MINUS:
		res, err = l.Sub(r)
	case syntax.STAR:
		res, err = l.Mul(r)
	case syntax.SLASH:
		res, err = l.Div(r)
	case syntax.PERCENT:
		res, err = l.Mod(r)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v.host.toStarlark(res)
}

func (v enumValue) CompareSameType(op syntax.Token, y starlark.Value, depth int) (bool, error) {
	o := y.(enumValue)
	switch op {
	case syntax.EQL:
		return v.ev.Equal(o.ev), nil
	case syntax.NEQ:
		return !v.ev.Equal(o.ev), nil
	case syntax.LT:
		return v.ev.Less(o.ev)
	case syntax.LE:
		return v.ev.LessEqual(o.ev)
	case syntax.GT:
		return o.ev.Less(v.ev)
	case syntax.GE:
		return o.ev.LessEqual(v.ev)
	}
	return false, fmt.Errorf("%s %s %s not supported", v.Type(), op, o.Type())
}

// toStarlark converts a runtime value for use by scripts.
func (h *Host) toStarlark(v runtime.Value) (starlark.Value, error) {
	switch x := v.(type) {
	case nil:
		return starlark.None, nil
	case starlark.Value:
		return x, nil
	case bool:
		return starlark.Bool(x), nil
	case string:
		return starlark.String(x), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32:
		return starlark.MakeInt64(cast.ToInt64(x)), nil
	case uint64:
		return starlark.MakeUint64(x), nil
	case float32, float64:
		return starlark.Float(cast.ToFloat64(x)), nil
	case *runtime.Object:
		return objectValue{obj: x, host: h}, nil
	case *runtime.Instance:
		return instanceValue{inst: x, host: h}, nil
	case *runtime.EnumValue:
		return enumValue{ev: x, host: h}, nil
	case []*runtime.Object:
		elems := make([]starlark.Value, 0, len(x))
		for _, obj := range x {
			elems = append(elems, objectValue{obj: obj, host: h})
		}
		return starlark.NewList(elems), nil
	case []runtime.Value:
		elems := make([]starlark.Value, 0, len(x))
		for _, e := range x {
			sv, err := h.toStarlark(e)
			if err != nil {
				return nil, err
			}
			elems = append(elems, sv)
		}
		return starlark.NewList(elems), nil
	case *runtime.Builtin:
		return h.method(x.Name, func(args []runtime.Value) (runtime.Value, error) {
			return x.Call(h.rt.Current(), args...)
		}), nil
	}
	return nil, fmt.Errorf("value of type %T cannot be used by scripts", v)
}

// fromStarlark converts a script value into a runtime value. Values with no
// Go counterpart stay as Starlark values.
func fromStarlark(v starlark.Value) runtime.Value {
	switch x := v.(type) {
	case starlark.NoneType:
		return nil
	case starlark.Bool:
		return bool(x)
	case starlark.String:
		return string(x)
	case starlark.Int:
		if i, ok := x.Int64(); ok {
			return i
		}
		return x
	case starlark.Float:
		return float64(x)
	case objectValue:
		return x.obj
	case instanceValue:
		return x.inst
	case enumValue:
		return x.ev
	}
	return v
}
