package runtime

import (
	"fmt"
	"math"
	"reflect"

	"strata/internal/core/errors"

	"github.com/spf13/cast"
)

// EnumValue is the immutable wrapper of one enum member.
type EnumValue struct {
	name  string
	value Value
	enum  *Object
}

func (v *EnumValue) Name() string  { return v.name }
func (v *EnumValue) Value() Value  { return v.value }
func (v *EnumValue) Enum() *Object { return v.enum }

func (v *EnumValue) String() string {
	return fmt.Sprintf("%s.%s", v.enum.name, v.name)
}

// FinalizeEnum wraps every non-metadata member of an enum in an EnumValue,
// in declaration order. It runs at most once per enum.
func FinalizeEnum(obj *Object) error {
	if obj.kind != KindEnum {
		return errors.Newf(errors.CodeInvalidObject, "%s is a %s, not an Enum", obj.FullName(), obj.kind)
	}
	if obj.finalized {
		return nil
	}
	values := make([]*EnumValue, 0, obj.Len())
	for _, key := range obj.Keys() {
		if IsMetadata(key) {
			continue
		}
		raw, _ := obj.Get(key)
		ev := &EnumValue{name: key, value: raw, enum: obj}
		obj.members.Put(key, ev)
		values = append(values, ev)
	}
	obj.values = values
	obj.finalized = true
	return nil
}

// GetValues returns the enum's values in declaration order.
func (o *Object) GetValues() []*EnumValue {
	out := make([]*EnumValue, len(o.values))
	copy(out, o.values)
	return out
}

// GetValueOf returns the value wrapper registered under name.
func (o *Object) GetValueOf(name string) (*EnumValue, bool) {
	for _, ev := range o.values {
		if ev.name == name {
			return ev, true
		}
	}
	return nil, false
}

type arithOp int

const (
	opAdd arithOp = iota
	opSub
	opMul
	opDiv
	opMod
)

func (v *EnumValue) Add(o *EnumValue) (Value, error) { return arith(opAdd, v.value, o.value) }
func (v *EnumValue) Sub(o *EnumValue) (Value, error) { return arith(opSub, v.value, o.value) }
func (v *EnumValue) Mul(o *EnumValue) (Value, error) { return arith(opMul, v.value, o.value) }
func (v *EnumValue) Div(o *EnumValue) (Value, error) { return arith(opDiv, v.value, o.value) }
func (v *EnumValue) Mod(o *EnumValue) (Value, error) { return arith(opMod, v.value, o.value) }

// Equal compares raw scalars.
func (v *EnumValue) Equal(o *EnumValue) bool {
	if c, err := compare(v.value, o.value); err == nil {
		return c == 0
	}
	a, b := v.value, o.value
	if a == nil || b == nil {
		return a == b
	}
	if !reflect.TypeOf(a).Comparable() || !reflect.TypeOf(b).Comparable() {
		return false
	}
	return a == b
}

func (v *EnumValue) Less(o *EnumValue) (bool, error) {
	c, err := compare(v.value, o.value)
	return c < 0, err
}

func (v *EnumValue) LessEqual(o *EnumValue) (bool, error) {
	c, err := compare(v.value, o.value)
	return c <= 0, err
}

type number struct {
	i     int64
	f     float64
	isInt bool
}

func toNumber(v Value) (number, error) {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		i, err := cast.ToInt64E(v)
		return number{i: i, f: float64(i), isInt: true}, err
	case float32, float64:
		f, err := cast.ToFloat64E(v)
		return number{f: f}, err
	default:
		return number{}, errors.Newf(errors.CodeInvalidArgument, "enum value %v (%T) is not numeric", v, v)
	}
}

func arith(op arithOp, a, b Value) (Value, error) {
	x, err := toNumber(a)
	if err != nil {
		return nil, err
	}
	y, err := toNumber(b)
	if err != nil {
		return nil, err
	}
	if (op == opDiv || op == opMod) && y.f == 0 {
		return nil, errors.New(errors.CodeInvalidArgument, "division by zero")
	}
	if x.isInt && y.isInt {
		switch op {
		case opAdd:
			return x.i + y.i, nil
		case opSub:
			return x.i - y.i, nil
		case opMul:
			return x.i * y.i, nil
		case opMod:
			m := x.i % y.i
			if m != 0 && (m < 0) != (y.i < 0) {
				m += y.i
			}
			return m, nil
		}
	}
	switch op {
	case opAdd:
		return x.f + y.f, nil
	case opSub:
		return x.f - y.f, nil
	case opMul:
		return x.f * y.f, nil
	case opDiv:
		return x.f / y.f, nil
	default:
		return x.f - math.Floor(x.f/y.f)*y.f, nil
	}
}

// compare orders two raw scalars: numbers numerically, strings
// lexicographically.
func compare(a, b Value) (int, error) {
	if sa, ok := a.(string); ok {
		sb, ok := b.(string)
		if !ok {
			return 0, errors.Newf(errors.CodeInvalidArgument, "cannot compare %T with %T", a, b)
		}
		switch {
		case sa < sb:
			return -1, nil
		case sa > sb:
			return 1, nil
		}
		return 0, nil
	}
	x, err := toNumber(a)
	if err != nil {
		return 0, err
	}
	y, err := toNumber(b)
	if err != nil {
		return 0, err
	}
	if x.isInt && y.isInt {
		switch {
		case x.i < y.i:
			return -1, nil
		case x.i > y.i:
			return 1, nil
		}
		return 0, nil
	}
	switch {
	case x.f < y.f:
		return -1, nil
	case x.f > y.f:
		return 1, nil
	}
	return 0, nil
}
