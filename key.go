package grove

import (
	"encoding/binary"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
)

type keyKind uint8

const (
	typeKind keyKind = iota + 1
	genericKind
	listKind
	paramKind
)

type keyID uint64

// Key identifies a service: a plain Go type, a generic definition applied to
// type arguments, a collection of another key, or a type parameter
// placeholder inside a [Template]. Any key may additionally carry a name.
//
// Keys are interned, so two keys built from the same parts compare equal
// with ==. The zero Key is invalid.
//
// The interning table is shared by the whole process and never shrinks.
// Every distinct name passed to [Key.Named] or [ResolveNamed] adds an entry,
// so names should come from a bounded set rather than from request data.
type Key struct {
	p *keyInfo
}

type keyInfo struct {
	id      keyID
	kind    keyKind
	typ     reflect.Type
	generic *Generic
	args    []Key
	elem    Key
	param   int
	name    string
	open    bool
	str     string
}

// keyShape is the structural identity used for interning.
type keyShape struct {
	kind    keyKind
	typ     reflect.Type
	generic *Generic
	args    string
	elem    keyID
	param   int
	name    string
}

var (
	// keyShape -> *keyInfo
	keyInfos  sync.Map
	lastKeyID atomic.Uint64
)

func intern(shape keyShape, info func() *keyInfo) Key {
	if v, ok := keyInfos.Load(shape); ok {
		return Key{p: v.(*keyInfo)}
	}
	ki := info()
	// an id lost to a racing writer is skipped, ids only need to be unique
	ki.id = keyID(lastKeyID.Add(1))
	v, _ := keyInfos.LoadOrStore(shape, ki)
	return Key{p: v.(*keyInfo)}
}

func packKeys(keys []Key) string {
	buf := make([]byte, 0, len(keys)*2)
	for _, k := range keys {
		buf = binary.AppendUvarint(buf, uint64(k.id()))
	}
	return string(buf)
}

func (k Key) info() *keyInfo {
	return k.p
}

func (k Key) id() keyID {
	if k.p == nil {
		return 0
	}
	return k.p.id
}

// TypeKey returns the key of a plain Go type.
func TypeKey(t reflect.Type) Key {
	if t == nil {
		_ = throw(badDefinition("nil type"))
	}
	return intern(keyShape{kind: typeKind, typ: t}, func() *keyInfo {
		return &keyInfo{
			kind: typeKind,
			typ:  t,
			str:  t.String(),
		}
	})
}

// KeyOf returns the key of T.
//
//	grove.KeyOf[*Database]()
func KeyOf[T any]() Key {
	return TypeKey(reflect.TypeFor[T]())
}

// ListOf returns the key of the collection of every binding of elem.
// Resolving it never fails for lack of bindings; it yields an empty slice.
func ListOf(elem Key) Key {
	e := elem.mustInfo()
	return intern(keyShape{kind: listKind, elem: elem.id()}, func() *keyInfo {
		return &keyInfo{
			kind: listKind,
			elem: elem,
			open: e.open,
			str:  "[]" + e.str,
		}
	})
}

// Param returns the placeholder for the i-th type parameter of a [Template].
func Param(i int) Key {
	if i < 0 {
		_ = throw(badDefinition("negative type parameter index %d", i))
	}
	return intern(keyShape{kind: paramKind, param: i}, func() *keyInfo {
		return &keyInfo{
			kind:  paramKind,
			param: i,
			open:  true,
			str:   fmt.Sprintf("T%d", i),
		}
	})
}

func applyGeneric(g *Generic, args []Key) Key {
	if len(args) != g.arity {
		_ = throw(badDefinition("%s takes %d type arguments, got %d", g.name, g.arity, len(args)))
	}
	open := false
	parts := make([]string, len(args))
	for i, a := range args {
		info := a.mustInfo()
		open = open || info.open
		parts[i] = info.str
	}
	args = append([]Key(nil), args...)
	return intern(keyShape{kind: genericKind, generic: g, args: packKeys(args)}, func() *keyInfo {
		return &keyInfo{
			kind:    genericKind,
			generic: g,
			args:    args,
			open:    open,
			str:     g.name + "[" + strings.Join(parts, ", ") + "]",
		}
	})
}

// Named returns k carrying the given name. Named keys only match bindings
// registered under the same name. An empty name returns the unnamed key.
func (k Key) Named(name string) Key {
	info := k.mustInfo()
	if info.name == name {
		return k
	}
	shape := keyShape{
		kind:    info.kind,
		typ:     info.typ,
		generic: info.generic,
		args:    packKeys(info.args),
		elem:    info.elem.id(),
		param:   info.param,
		name:    name,
	}
	base := info.str
	if info.name != "" {
		base = strings.TrimSuffix(base, "@"+info.name)
	}
	return intern(shape, func() *keyInfo {
		named := *info
		named.name = name
		named.str = base
		if name != "" {
			named.str = base + "@" + name
		}
		return &named
	})
}

func (k Key) mustInfo() *keyInfo {
	info := k.info()
	if info == nil {
		_ = throw(badDefinition("zero key"))
	}
	return info
}

// IsZero reports whether k is the zero Key.
func (k Key) IsZero() bool {
	return k.p == nil
}

// Type returns the Go type of a plain type key, or nil.
func (k Key) Type() reflect.Type {
	if info := k.info(); info != nil && info.kind == typeKind {
		return info.typ
	}
	return nil
}

// Generic returns the generic definition of an applied generic key, or nil.
func (k Key) Generic() *Generic {
	if info := k.info(); info != nil {
		return info.generic
	}
	return nil
}

// Args returns the type arguments of an applied generic key.
func (k Key) Args() []Key {
	if info := k.info(); info != nil {
		return append([]Key(nil), info.args...)
	}
	return nil
}

// Elem returns the element key of a collection key.
func (k Key) Elem() Key {
	if info := k.info(); info != nil {
		return info.elem
	}
	return Key{}
}

// Name returns the name attached with [Key.Named].
func (k Key) Name() string {
	if info := k.info(); info != nil {
		return info.name
	}
	return ""
}

// IsList reports whether k was built with [ListOf].
func (k Key) IsList() bool {
	info := k.info()
	return info != nil && info.kind == listKind
}

// IsOpen reports whether k mentions a [Param] placeholder.
func (k Key) IsOpen() bool {
	info := k.info()
	return info != nil && info.open
}

func (k Key) String() string {
	if info := k.info(); info != nil {
		return info.str
	}
	return "<zero key>"
}

// substitute replaces every Param(i) in k with typeArgs[i].
func (k Key) substitute(typeArgs []Key) Key {
	info := k.mustInfo()
	if !info.open {
		return k
	}
	switch info.kind {
	case paramKind:
		if info.name == "" {
			return typeArgs[info.param]
		}
		return typeArgs[info.param].Named(info.name)
	case listKind:
		return ListOf(info.elem.substitute(typeArgs)).Named(info.name)
	case genericKind:
		args := make([]Key, len(info.args))
		for i, a := range info.args {
			args[i] = a.substitute(typeArgs)
		}
		return applyGeneric(info.generic, args).Named(info.name)
	}
	return k // NOCOVER
}

// maxParam returns the highest Param index mentioned in k, or -1.
func (k Key) maxParam() int {
	info := k.mustInfo()
	if !info.open {
		return -1
	}
	switch info.kind {
	case paramKind:
		return info.param
	case listKind:
		return info.elem.maxParam()
	}
	highest := -1
	for _, a := range info.args {
		if p := a.maxParam(); p > highest {
			highest = p
		}
	}
	return highest
}
