package grove

import (
	"cmp"
	"slices"
	"sync"

	"github.com/dolthub/swiss"
	"go.uber.org/zap"
)

// Registry stores concrete and open-generic bindings. It is filled during a
// configuration phase and read-only after [Registry.Freeze]. A [Container]
// owns one; it is exported for callers that want to inspect candidates.
type Registry struct {
	mu sync.RWMutex

	seq      uint64
	concrete *swiss.Map[Key, []*component]
	open     *swiss.Map[*Generic, []*openComponent]
	frozen   bool

	log *zap.Logger
}

// Candidate is one binding that can serve a requested key.
type Candidate struct {
	// Seq is the registration order, shared by every key of one
	// registration.
	Seq uint64

	// Open is the generic definition of an open-generic candidate, nil for
	// concrete bindings. Open candidates are closed by the resolver.
	Open *Generic

	comp *component
	tmpl *openComponent
}

// IsOpenGeneric reports whether the candidate must be closed before use.
func (c Candidate) IsOpenGeneric() bool {
	return c.tmpl != nil
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return newRegistry(zap.NewNop())
}

func newRegistry(log *zap.Logger) *Registry {
	return &Registry{
		concrete: swiss.NewMap[Key, []*component](16),
		open:     swiss.NewMap[*Generic, []*openComponent](4),
		log:      log,
	}
}

// Register adds a concrete binding for key. Registering the same key again
// shadows the earlier binding for single resolution; both stay visible to
// collections.
func (r *Registry) Register(key Key, d Descriptor, opts ...Option) error {
	o := applyOptions(opts)
	keys := append([]Key{key}, o.keys...)
	return r.register(keys, d, o)
}

func (r *Registry) register(keys []Key, d Descriptor, o bindingOptions) error {
	for i, k := range keys {
		if k.IsZero() {
			return badDefinition("zero service key")
		}
		if k.IsOpen() {
			return badDefinition("open key %v used for a concrete binding, use RegisterOpenGeneric", k)
		}
		if k.IsList() {
			return badDefinition("collection key %v cannot be registered, register its elements", k)
		}
		if o.name != "" {
			keys[i] = k.Named(o.name)
		}
	}
	if d.New == nil {
		return badDefinition("nil factory for %v", keys[0])
	}
	if !o.lifetime.valid() {
		return badDefinition("unknown lifetime %d for %v", int(o.lifetime), keys[0])
	}
	for _, dep := range d.Deps {
		if dep.IsZero() {
			return badDefinition("zero dependency key for %v", keys[0])
		}
		if dep.IsOpen() {
			return badDefinition("open dependency %v of concrete binding %v", dep, keys[0])
		}
	}
	if d.Impl.IsZero() {
		d.Impl = keys[0]
	}
	d.Deps = append([]Key(nil), d.Deps...)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return ErrAlreadyBuilt
	}

	r.seq++
	comp := newComponent(r.seq, keys, d, o.lifetime, nil)
	for _, k := range keys {
		existing, _ := r.concrete.Get(k)
		r.concrete.Put(k, append(existing, comp))
	}

	r.log.Debug("registered binding",
		zap.Stringers("keys", keys),
		zap.Stringer("impl", d.Impl),
		zap.Stringer("lifetime", o.lifetime),
		zap.Uint64("seq", comp.seq),
	)
	return nil
}

// RegisterOpenGeneric adds an open-generic binding for g. Requests for
// g.Of(args...) with no concrete binding are served by closing t over args.
func (r *Registry) RegisterOpenGeneric(g *Generic, t Template, opts ...Option) error {
	if g == nil {
		return badDefinition("nil generic")
	}
	if t.New == nil {
		return badDefinition("nil template factory for %v", g)
	}
	if t.Impl != nil && t.Impl.arity != g.arity {
		return badDefinition("implementation %v does not match arity of %v", t.Impl, g)
	}
	for _, dep := range t.Deps {
		if dep.IsZero() {
			return badDefinition("zero dependency key for %v", g)
		}
		if p := dep.maxParam(); p >= g.arity {
			return badDefinition("dependency %v of %v refers to T%d", dep, g, p)
		}
	}
	o := applyOptions(opts)
	if !o.lifetime.valid() {
		return badDefinition("unknown lifetime %d for %v", int(o.lifetime), g)
	}
	if len(o.keys) > 0 {
		return badDefinition("As is not supported for open generic %v", g)
	}
	t.Deps = append([]Key(nil), t.Deps...)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return ErrAlreadyBuilt
	}

	r.seq++
	oc := &openComponent{
		seq:      r.seq,
		service:  g,
		name:     o.name,
		tmpl:     t,
		lifetime: o.lifetime,
	}
	existing, _ := r.open.Get(g)
	r.open.Put(g, append(existing, oc))

	r.log.Debug("registered open generic",
		zap.Stringer("generic", g),
		zap.Stringer("lifetime", o.lifetime),
		zap.Uint64("seq", oc.seq),
	)
	return nil
}

// Lookup returns every binding that can serve key: exact concrete matches
// plus open-generic bindings of key's generic definition, ordered by
// registration. It returns an empty slice when nothing matches.
func (r *Registry) Lookup(key Key) []Candidate {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var candidates []Candidate
	if comps, ok := r.concrete.Get(key); ok {
		for _, c := range comps {
			candidates = append(candidates, Candidate{
				Seq:  c.seq,
				comp: c,
			})
		}
	}
	if g := key.Generic(); g != nil && !key.IsOpen() {
		if ocs, ok := r.open.Get(g); ok {
			for _, oc := range ocs {
				if oc.name != key.Name() {
					continue
				}
				candidates = append(candidates, Candidate{
					Seq:  oc.seq,
					Open: g,
					tmpl: oc,
				})
			}
		}
	}
	slices.SortFunc(candidates, func(a, b Candidate) int {
		return cmp.Compare(a.Seq, b.Seq)
	})
	if candidates == nil {
		candidates = []Candidate{}
	}
	return candidates
}

// Freeze ends the configuration phase. Later registrations fail with
// [ErrAlreadyBuilt].
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// components returns every concrete registration once, in registration
// order.
func (r *Registry) components() []*component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[*component]struct{})
	var out []*component
	r.concrete.Iter(func(_ Key, comps []*component) bool {
		for _, c := range comps {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
		return false
	})
	slices.SortFunc(out, func(a, b *component) int {
		return cmp.Compare(a.seq, b.seq)
	})
	return out
}

func (r *Registry) openComponents() []*openComponent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*openComponent
	r.open.Iter(func(_ *Generic, ocs []*openComponent) bool {
		out = append(out, ocs...)
		return false
	})
	slices.SortFunc(out, func(a, b *openComponent) int {
		return cmp.Compare(a.seq, b.seq)
	})
	return out
}
