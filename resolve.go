package grove

import (
	"fmt"
	"reflect"

	"github.com/reusee/e5"
)

// ---------------------------------------------------------------------------
// Container methods
// ---------------------------------------------------------------------------

func (c *container) Resolve(key Key) (any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.built {
		return nil, ErrNotBuilt
	}
	if key.IsZero() {
		return nil, badDefinition("zero key")
	}

	// cycles and missing bindings reachable only through closures are first
	// seen here, so they are found before any singleton flight is entered
	if _, err := c.newResolver(true).resolve(key); err != nil {
		return nil, err
	}
	return c.newResolver(false).resolve(key)
}

func (c *container) ResolveAll(key Key) ([]any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.built {
		return nil, ErrNotBuilt
	}
	if key.IsZero() {
		return nil, badDefinition("zero key")
	}

	if _, err := c.newResolver(true).collect(ListOf(key)); err != nil {
		return nil, err
	}
	return c.newResolver(false).collect(ListOf(key))
}

func (c *container) Describe(key Key) (Descriptor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.built {
		return Descriptor{}, ErrNotBuilt
	}
	if key.IsZero() {
		return Descriptor{}, badDefinition("zero key")
	}
	comp := c.newResolver(true).pick(key)
	if comp == nil {
		return Descriptor{}, unresolvedError(key, nil)
	}
	d := comp.desc
	d.Deps = append([]Key(nil), d.Deps...)
	return d, nil
}

// ---------------------------------------------------------------------------
// Generic helpers
// ---------------------------------------------------------------------------

// Resolve is a generic helper that resolves the binding for the type T. It
// is the recommended way to retrieve values:
//
//	db, err := grove.Resolve[*Database](c)
func Resolve[T any](c Container) (T, error) {
	return ResolveKey[T](c, KeyOf[T]())
}

// ResolveNamed resolves the binding registered for T under name:
//
//	db, err := grove.ResolveNamed[*Database](c, "primary")
func ResolveNamed[T any](c Container, name string) (T, error) {
	return ResolveKey[T](c, KeyOf[T]().Named(name))
}

// ResolveKey resolves key and converts the instance to T. Use it for keys
// that are not plain types, such as applied generics:
//
//	runner, err := grove.ResolveKey[*Runner[Payload]](c, runnerOf.Of(payload))
func ResolveKey[T any](c Container, key Key) (T, error) {
	var zero T

	val, err := c.Resolve(key)
	if err != nil {
		return zero, err
	}
	if val == nil {
		return zero, nil
	}

	out, ok := val.(T)
	if !ok {
		return zero, fmt.Errorf("%s: cannot convert %T to %s", key, val, reflect.TypeFor[T]())
	}

	return out, nil
}

// ResolveAll resolves every binding of key and converts each to T.
func ResolveAll[T any](c Container, key Key) ([]T, error) {
	vals, err := c.ResolveAll(key)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(vals))
	for _, val := range vals {
		if val == nil {
			var zero T
			out = append(out, zero)
			continue
		}
		v, ok := val.(T)
		if !ok {
			return nil, fmt.Errorf("%s: cannot convert %T to %s", key, val, reflect.TypeFor[T]())
		}
		out = append(out, v)
	}

	return out, nil
}

// ---------------------------------------------------------------------------
// Internal
// ---------------------------------------------------------------------------

// resolver walks one resolution request. It holds only the current call
// path; everything shared lives in the container. A dry resolver checks
// resolvability and cycles without calling any factory.
type resolver struct {
	c      *container
	dry    bool
	path   []Key
	active map[Key]struct{}

	// building holds components whose factories are on the current path, so
	// a component registered under several keys cannot re-enter itself.
	building map[*component]struct{}

	// checked memoizes components whose whole subgraph passed a dry run.
	checked map[*component]struct{}
}

func (c *container) newResolver(dry bool) *resolver {
	r := &resolver{
		c:        c,
		dry:      dry,
		active:   make(map[Key]struct{}),
		building: make(map[*component]struct{}),
	}
	if dry {
		r.checked = make(map[*component]struct{})
	}
	return r
}

func (r *resolver) enter(key Key) error {
	if _, ok := r.active[key]; ok {
		return cycleError(key, r.path)
	}
	r.active[key] = struct{}{}
	r.path = append(r.path, key)
	return nil
}

func (r *resolver) leave(key Key) {
	delete(r.active, key)
	r.path = r.path[:len(r.path)-1]
}

func (r *resolver) resolve(key Key) (any, error) {
	if key.IsList() {
		items, err := r.collect(key)
		if err != nil {
			return nil, err
		}
		return items, nil
	}

	if err := r.enter(key); err != nil {
		return nil, err
	}
	defer r.leave(key)

	if comp := r.pick(key); comp != nil {
		return r.activate(comp)
	}
	return r.implicit(key)
}

// pick chooses the binding for a single-service request: the last concrete
// binding, otherwise the last open-generic binding closed over key.
func (r *resolver) pick(key Key) *component {
	candidates := r.c.reg.Lookup(key)
	for i := len(candidates) - 1; i >= 0; i-- {
		if !candidates[i].IsOpenGeneric() {
			return candidates[i].comp
		}
	}
	if len(candidates) > 0 {
		return r.c.close(candidates[len(candidates)-1].tmpl, key)
	}
	return nil
}

// collect resolves every candidate of list.Elem() in registration order.
func (r *resolver) collect(list Key) ([]any, error) {
	if err := r.enter(list); err != nil {
		return nil, err
	}
	defer r.leave(list)

	elem := list.Elem()
	candidates := r.c.reg.Lookup(elem)
	items := make([]any, 0, len(candidates))
	for _, cand := range candidates {
		comp := cand.comp
		if cand.IsOpenGeneric() {
			comp = r.c.close(cand.tmpl, elem)
		}
		v, err := r.activateAs(elem, comp)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, nil
}

// implicit serves plain type keys that have no binding: slices become
// collections of their element type and tagged structs are autowired.
func (r *resolver) implicit(key Key) (any, error) {
	t := key.Type()
	if t == nil || key.Name() != "" {
		return nil, unresolvedError(key, r.path)
	}

	if t.Kind() == reflect.Slice {
		items, err := r.collect(ListOf(TypeKey(t.Elem())))
		if err != nil {
			return nil, err
		}
		if r.dry {
			return nil, nil
		}
		return typedSlice(t, items)
	}

	if r.c.autowire {
		if plan := structPlanFor(t); plan != nil {
			return r.autowire(plan)
		}
	}

	return nil, unresolvedError(key, r.path)
}

func typedSlice(t reflect.Type, items []any) (any, error) {
	out := reflect.MakeSlice(t, len(items), len(items))
	for i, item := range items {
		if item == nil {
			continue
		}
		v := reflect.ValueOf(item)
		if !v.Type().AssignableTo(t.Elem()) {
			return nil, we.With(
				e5.Info("element %d of %v is %v", i, t, v.Type()),
			)(
				ErrConstructionFailure,
			)
		}
		out.Index(i).Set(v)
	}
	return out.Interface(), nil
}

// activateAs resolves comp with key on the path, as if key had been
// requested directly.
func (r *resolver) activateAs(key Key, comp *component) (any, error) {
	if err := r.enter(key); err != nil {
		return nil, err
	}
	defer r.leave(key)
	return r.activate(comp)
}

// activate resolves the dependencies of comp in declared order and runs its
// factory, honouring the component's lifetime.
func (r *resolver) activate(comp *component) (any, error) {
	if r.dry {
		if _, ok := r.checked[comp]; ok {
			return nil, nil
		}
		if _, ok := r.c.verified.Get(comp); ok {
			return nil, nil
		}
	}
	if _, ok := r.building[comp]; ok {
		return nil, cycleError(comp.services[0], r.path)
	}
	r.building[comp] = struct{}{}
	defer delete(r.building, comp)

	if r.dry {
		if _, err := r.args(comp); err != nil {
			return nil, err
		}
		r.checked[comp] = struct{}{}
		if r.c.built {
			r.c.verified.LoadOrStore(comp, struct{}{})
		}
		return nil, nil
	}

	if comp.lifetime == Singleton {
		return r.c.singleton(comp, func() (any, error) {
			return r.construct(comp)
		})
	}
	return r.construct(comp)
}

func (r *resolver) args(comp *component) (Args, error) {
	args := make(Args, len(comp.desc.Deps))
	for i, dep := range comp.desc.Deps {
		v, err := r.resolve(dep)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func (r *resolver) construct(comp *component) (any, error) {
	args, err := r.args(comp)
	if err != nil {
		return nil, err
	}
	v, err := comp.desc.New(args)
	if err != nil {
		return nil, err
	}
	if err := comp.check(v); err != nil {
		return nil, err
	}
	return v, nil
}
