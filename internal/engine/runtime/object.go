package runtime

import (
	"fmt"
	"strings"

	"strata/internal/core/errors"
	"strata/internal/engine/naming"

	"github.com/emirpasic/gods/maps/linkedhashmap"
)

// Value is any host value. The runtime only inspects *Object, *Instance,
// *EnumValue, *Builtin and Go scalars; everything else is opaque.
type Value = any

// MetaPrefix marks member names reserved for metadata. Such members are
// skipped by enum finalization and wildcard imports.
const MetaPrefix = "__"

// IsMetadata reports whether name uses the metadata prefix.
func IsMetadata(name string) bool {
	return strings.HasPrefix(name, MetaPrefix)
}

// Kind discriminates the object variants.
type Kind int

const (
	KindPlaceholder Kind = iota
	KindClass
	KindSingleton
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindPlaceholder:
		return "Placeholder"
	case KindClass:
		return "Class"
	case KindSingleton:
		return "Singleton"
	case KindEnum:
		return "Enum"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Capability is an operation attached to an object by its constructor.
type Capability uint8

const (
	CapNew Capability = 1 << iota
	CapExtends
)

// Object is a Class, Singleton or Enum definition, or a placeholder waiting
// for its defining file.
type Object struct {
	name    string
	pkg     string
	kind    Kind
	members *linkedhashmap.Map
	super   *Object
	caps    Capability

	values    []*EnumValue
	finalized bool
}

func newObject(pkg, name string) *Object {
	return &Object{name: name, pkg: pkg, members: linkedhashmap.New()}
}

func (o *Object) Name() string    { return o.name }
func (o *Object) Package() string { return o.pkg }
func (o *Object) Kind() Kind      { return o.kind }
func (o *Object) Super() *Object  { return o.super }

// FullName is the absolute location of the object.
func (o *Object) FullName() string {
	return naming.JoinLocation(o.pkg, o.name)
}

func (o *Object) String() string {
	return fmt.Sprintf("<%s %s>", o.kind, o.FullName())
}

// Has reports whether the capability is currently attached.
func (o *Object) Has(c Capability) bool {
	return o.caps&c != 0
}

// Finalized reports whether enum finalization has run.
func (o *Object) Finalized() bool {
	return o.finalized
}

// Get returns an own member without consulting the super chain.
func (o *Object) Get(name string) (Value, bool) {
	return o.members.Get(name)
}

// Set assigns an own member. Finalized enums are immutable.
func (o *Object) Set(name string, v Value) error {
	if o.finalized {
		return errors.Newf(errors.CodeInvalidObject, "enum %s is finalized; cannot assign %q", o.FullName(), name)
	}
	o.members.Put(name, v)
	return nil
}

// Delete removes an own member.
func (o *Object) Delete(name string) {
	o.members.Remove(name)
}

// Keys lists own member names in insertion order.
func (o *Object) Keys() []string {
	return stringKeys(o.members)
}

// Len is the number of own members.
func (o *Object) Len() int {
	return o.members.Size()
}

// Chain is the delegation order used for member lookup: the object first,
// then each superclass.
func (o *Object) Chain() []*Object {
	var chain []*Object
	for cur := o; cur != nil; cur = cur.super {
		chain = append(chain, cur)
	}
	return chain
}

func (o *Object) setKind(k Kind) error {
	if o.kind != KindPlaceholder {
		return errors.Newf(errors.CodeInvalidObject, "%s is already a %s", o.FullName(), o.kind)
	}
	o.kind = k
	return nil
}

// mergeFrom copies a replacement result over the placeholder so that every
// earlier reference to o observes the final definition.
func (o *Object) mergeFrom(src *Object) error {
	if src == o {
		return nil
	}
	if src.kind != KindPlaceholder {
		if o.kind == KindPlaceholder {
			o.kind = src.kind
		} else if o.kind != src.kind {
			return errors.Newf(errors.CodeInvalidObject, "%s is a %s but its file returned a %s", o.FullName(), o.kind, src.kind)
		}
	}
	it := src.members.Iterator()
	for it.Next() {
		o.members.Put(it.Key(), it.Value())
	}
	if src.super != nil {
		if reaches(src.super, o) {
			return errors.Newf(errors.CodeInheritanceCycle, "%s would inherit from itself", o.FullName())
		}
		o.super = src.super
	}
	o.caps |= src.caps
	return nil
}

// Instance is a member mapping created by a Class's New. Lookups that miss
// the instance fall through to the class chain.
type Instance struct {
	class  *Object
	fields *linkedhashmap.Map
}

func (i *Instance) Class() *Object { return i.class }

func (i *Instance) Get(name string) (Value, bool) {
	return i.fields.Get(name)
}

func (i *Instance) Set(name string, v Value) {
	i.fields.Put(name, v)
}

func (i *Instance) Keys() []string {
	return stringKeys(i.fields)
}

func (i *Instance) String() string {
	return fmt.Sprintf("<%s instance>", i.class.FullName())
}

// ResolveMember walks instance -> class -> superclass chain and returns the
// first binding of name.
func ResolveMember(target Value, name string) (Value, bool) {
	var start *Object
	switch t := target.(type) {
	case *Instance:
		if v, ok := t.Get(name); ok {
			return v, true
		}
		start = t.class
	case *Object:
		start = t
	default:
		return nil, false
	}
	for _, link := range start.Chain() {
		if v, ok := link.Get(name); ok {
			return v, true
		}
	}
	return nil, false
}

func stringKeys(m *linkedhashmap.Map) []string {
	raw := m.Keys()
	keys := make([]string, 0, len(raw))
	for _, k := range raw {
		keys = append(keys, k.(string))
	}
	return keys
}
