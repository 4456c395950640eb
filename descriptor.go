package grove

import (
	"fmt"
	"reflect"

	"github.com/reusee/e5"
)

// Args holds resolved dependencies in the order they were declared. A
// dependency on a [ListOf] key arrives as []any; one on a plain slice type
// arrives as a typed slice.
type Args []any

// Factory builds an instance from its resolved dependencies. Errors it
// returns reach the caller of Resolve unchanged.
type Factory func(args Args) (any, error)

// TemplateFactory builds an instance of an open generic closed over
// typeArgs.
type TemplateFactory func(typeArgs []Key, args Args) (any, error)

// Descriptor describes how to construct one concrete service.
type Descriptor struct {
	// Impl is the declared implementation. When it is a plain type key the
	// factory result is checked against it. Defaults to the service key.
	Impl Key

	// Deps lists the keys resolved and handed to New, in order.
	Deps []Key

	New Factory
}

// Template describes an open generic implementation. Deps may mention
// [Param] placeholders which are substituted with the requested type
// arguments when the template is closed.
type Template struct {
	// Impl is the declared implementation generic. It must have the same
	// arity as the service generic and defaults to it.
	Impl *Generic

	Deps []Key

	New TemplateFactory
}

// Arg returns args[i] as T. A nil dependency yields the zero T.
func Arg[T any](args Args, i int) T {
	var zero T
	if args[i] == nil {
		return zero
	}
	return args[i].(T)
}

// List returns args[i] as []T, accepting both the []any produced for
// [ListOf] dependencies and typed slices.
func List[T any](args Args, i int) []T {
	switch v := args[i].(type) {
	case nil:
		return nil
	case []T:
		return v
	case []any:
		out := make([]T, 0, len(v))
		for _, item := range v {
			if item == nil {
				var zero T
				out = append(out, zero)
				continue
			}
			out = append(out, item.(T))
		}
		return out
	default:
		panic(fmt.Sprintf("grove: argument %d is %T, not a list", i, v))
	}
}

// check reports ErrConstructionFailure when v cannot serve as the
// implementation or one of the plain-type services of c.
func (c *component) check(v any) error {
	if v == nil {
		return nil
	}
	got := reflect.TypeOf(v)
	keys := append([]Key{c.desc.Impl}, c.services...)
	for _, k := range keys {
		t := k.Type()
		if t == nil {
			continue
		}
		if t.Kind() == reflect.Interface && got.Implements(t) {
			continue
		}
		if got.AssignableTo(t) {
			continue
		}
		return we.With(
			e5.Info("factory for %v returned %v", c.services[0], got),
		)(
			ErrConstructionFailure,
		)
	}
	return nil
}
