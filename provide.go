package grove

import (
	"reflect"

	"github.com/reusee/e5"
)

var errorType = reflect.TypeFor[error]()

func (c *container) Provide(constructor any, opts ...Option) error {
	d, err := describeConstructor(constructor)
	if err != nil {
		return err
	}

	o := applyOptions(opts)
	keys := o.keys
	if len(keys) == 0 {
		keys = []Key{d.Impl}
	}
	keys = append([]Key(nil), keys...)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.built {
		return ErrAlreadyBuilt
	}
	return c.reg.register(keys, d, o)
}

// describeConstructor turns func(deps...) T or func(deps...) (T, error)
// into a Descriptor whose dependencies are the parameter types.
func describeConstructor(constructor any) (Descriptor, error) {
	if constructor == nil {
		return Descriptor{}, badDefinition("constructor must be a function")
	}

	val := reflect.ValueOf(constructor)
	typ := val.Type()

	if typ.Kind() != reflect.Func {
		return Descriptor{}, badDefinition("constructor must be a function, got %v", typ)
	}

	if val.IsNil() {
		return Descriptor{}, badDefinition("nil constructor %v", typ)
	}

	if typ.IsVariadic() {
		return Descriptor{}, badDefinition("variadic constructor %v", typ)
	}

	if typ.NumOut() == 0 || typ.NumOut() > 2 {
		return Descriptor{}, badDefinition("constructor must return (T) or (T, error), got %v", typ)
	}

	if typ.NumOut() == 2 && !typ.Out(1).Implements(errorType) {
		return Descriptor{}, badDefinition("second return value of %v must implement error", typ)
	}

	in := make([]reflect.Type, typ.NumIn())
	deps := make([]Key, typ.NumIn())
	for i := range in {
		in[i] = typ.In(i)
		deps[i] = TypeKey(in[i])
	}

	return Descriptor{
		Impl: TypeKey(typ.Out(0)),
		Deps: deps,
		New: func(args Args) (any, error) {
			callArgs := make([]reflect.Value, len(in))
			for i, arg := range args {
				if arg == nil {
					callArgs[i] = reflect.Zero(in[i])
					continue
				}
				v := reflect.ValueOf(arg)
				if !v.Type().AssignableTo(in[i]) {
					return nil, we.With(
						e5.Info("argument %d of %v is %v", i, typ, v.Type()),
					)(
						ErrConstructionFailure,
					)
				}
				callArgs[i] = v
			}

			results := val.Call(callArgs)
			if len(results) == 2 && !results[1].IsNil() {
				return nil, results[1].Interface().(error)
			}
			return results[0].Interface(), nil
		},
	}, nil
}
