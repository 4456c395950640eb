package grove

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Container defines the interface for the dependency injection container.
// Use [New] to create an instance.
type Container interface {
	// Register adds a concrete binding for key. Later registrations for the
	// same key shadow earlier ones for single resolution; all of them remain
	// visible to [Container.ResolveAll].
	Register(key Key, d Descriptor, opts ...Option) error

	// RegisterOpenGeneric adds an open-generic binding. A request for
	// g.Of(args...) with no concrete binding closes t over args: every
	// Param(i) in t.Deps is replaced with args[i] and t.New receives args.
	RegisterOpenGeneric(g *Generic, t Template, opts ...Option) error

	// RegisterInstance binds a pre-built value to key as a singleton.
	RegisterInstance(key Key, value any, opts ...Option) error

	// Provide registers a constructor function with the signature
	// func(deps...) T or func(deps...) (T, error). Dependencies are the
	// parameter types; the service key is T unless [As] is given.
	Provide(constructor any, opts ...Option) error

	// Build validates the full dependency graph, detecting unresolved
	// dependencies and cycles, and eagerly instantiates all concrete
	// [Singleton] bindings. After Build succeeds the container is immutable;
	// no further registrations are accepted.
	Build() error

	// Resolve returns the instance for key, recursively resolving its
	// dependencies. Prefer the generic [Resolve] helper over calling this
	// method directly.
	Resolve(key Key) (any, error)

	// ResolveAll returns one instance per binding of key in registration
	// order. No binding yields an empty slice, not an error.
	ResolveAll(key Key) ([]any, error)

	// Describe returns the descriptor of the explicit binding Resolve would
	// use for key. For an open-generic binding this is the closed descriptor,
	// with Impl and Deps substituted. Keys served without a binding, such as
	// unregistered slice types and autowired structs, have no descriptor and
	// report [ErrUnresolvedDependency]. Like Resolve it requires Build.
	Describe(key Key) (Descriptor, error)

	// WriteDOT writes the registered dependency graph in Graphviz format.
	WriteDOT(w io.Writer) error

	// Shutdown gracefully closes all singletons that implement [io.Closer],
	// in reverse construction order (dependents are closed before their
	// dependencies). The context controls the overall deadline; if it
	// expires, remaining closers are skipped and the context error is
	// included in the result.
	//
	// Shutdown is safe to call multiple times; subsequent calls return
	// [ErrAlreadyShutdown]. It is the caller's responsibility to stop
	// calling [Container.Resolve] before or during shutdown.
	Shutdown(ctx context.Context) error
}

type closureKey struct {
	origin *openComponent
	key    Key
}

type container struct {
	mu sync.RWMutex

	reg      *Registry
	log      *zap.Logger
	autowire bool

	closures   *cowMap[closureKey, *component]
	singletons *cowMap[*component, any]
	flight     singleflight.Group

	// verified holds components whose whole subgraph passed a dry run
	// after Build. Only filled once the registry is frozen.
	verified *cowMap[*component, struct{}]

	// closers holds singletons that implement io.Closer, in construction
	// order. Shutdown iterates them in reverse.
	closersMu sync.Mutex
	closers   []io.Closer

	built    bool
	shutdown bool
}

// New creates an empty [Container] ready for registration.
func New(settings ...Setting) Container {
	c := &container{
		log:        zap.NewNop(),
		autowire:   true,
		closures:   newCowMap[closureKey, *component](),
		singletons: newCowMap[*component, any](),
		verified:   newCowMap[*component, struct{}](),
	}
	for _, s := range settings {
		s(c)
	}
	c.reg = newRegistry(c.log)
	return c
}

func (c *container) Register(key Key, d Descriptor, opts ...Option) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.built {
		return ErrAlreadyBuilt
	}
	return c.reg.Register(key, d, opts...)
}

func (c *container) RegisterOpenGeneric(g *Generic, t Template, opts ...Option) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.built {
		return ErrAlreadyBuilt
	}
	return c.reg.RegisterOpenGeneric(g, t, opts...)
}

func (c *container) RegisterInstance(key Key, value any, opts ...Option) error {
	opts = append(opts, WithLifetime(Singleton))
	return c.Register(key, Descriptor{
		New: func(Args) (any, error) {
			return value, nil
		},
	}, opts...)
}

// ---------------------------------------------------------------------------
// Build
// ---------------------------------------------------------------------------

func (c *container) Build() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.built {
		return ErrAlreadyBuilt
	}

	comps := c.reg.components()

	check := c.newResolver(true)
	for _, comp := range comps {
		if _, err := check.activateAs(comp.services[0], comp); err != nil {
			return err
		}
	}

	r := c.newResolver(false)
	for _, comp := range comps {
		if comp.lifetime != Singleton {
			continue
		}
		if _, err := r.activateAs(comp.services[0], comp); err != nil {
			return fmt.Errorf("constructing %s: %w", comp.services[0], err)
		}
	}

	c.reg.Freeze()
	c.built = true
	for comp := range check.checked {
		c.verified.LoadOrStore(comp, struct{}{})
	}

	c.log.Info("container built",
		zap.Int("bindings", len(comps)),
		zap.Int("open_generics", len(c.reg.openComponents())),
		zap.Int("singletons", c.singletons.Len()),
	)
	return nil
}

// ---------------------------------------------------------------------------
// Closing open generics
// ---------------------------------------------------------------------------

// close returns the component serving key from the open binding oc. Closed
// components are cached per (binding, key) and never evicted.
func (c *container) close(oc *openComponent, key Key) *component {
	ck := closureKey{origin: oc, key: key}
	if comp, ok := c.closures.Get(ck); ok {
		return comp
	}

	typeArgs := key.Args()
	impl := oc.service
	if oc.tmpl.Impl != nil {
		impl = oc.tmpl.Impl
	}
	deps := make([]Key, len(oc.tmpl.Deps))
	for i, dep := range oc.tmpl.Deps {
		deps[i] = dep.substitute(typeArgs)
	}
	newFn := oc.tmpl.New
	comp := newComponent(oc.seq, []Key{key}, Descriptor{
		Impl: impl.Of(typeArgs...),
		Deps: deps,
		New: func(args Args) (any, error) {
			return newFn(typeArgs, args)
		},
	}, oc.lifetime, oc)

	comp, loaded := c.closures.LoadOrStore(ck, comp)
	if !loaded {
		c.log.Debug("closed open generic",
			zap.Stringer("generic", oc.service),
			zap.Stringer("key", key),
			zap.Stringers("deps", deps),
		)
	}
	return comp
}

// ---------------------------------------------------------------------------
// Singletons
// ---------------------------------------------------------------------------

// singleton returns the cached instance of comp, constructing it with build
// at most once at a time. Failed constructions are not cached. A panic in
// build reaches every waiting caller with its original value.
func (c *container) singleton(comp *component, build func() (any, error)) (any, error) {
	if v, ok := c.singletons.Get(comp); ok {
		return v, nil
	}
	v, err, _ := c.flight.Do(comp.flight, func() (v any, err error) {
		defer func() {
			if p := recover(); p != nil {
				err = &constructionPanic{value: p}
			}
		}()
		if v, ok := c.singletons.Get(comp); ok {
			return v, nil
		}
		v, err = build()
		if err != nil {
			return nil, err
		}
		c.singletons.LoadOrStore(comp, v)
		if closer, ok := v.(io.Closer); ok {
			c.closersMu.Lock()
			c.closers = append(c.closers, closer)
			c.closersMu.Unlock()
		}
		c.log.Debug("constructed singleton",
			zap.Stringer("key", comp.services[0]),
			zap.Stringer("impl", comp.desc.Impl),
		)
		return v, nil
	})
	if p, ok := err.(*constructionPanic); ok {
		panic(p.value)
	}
	return v, err
}

// constructionPanic carries a recovered panic out of a singleflight call.
type constructionPanic struct {
	value any
}

func (p *constructionPanic) Error() string {
	return fmt.Sprintf("panic during construction: %v", p.value)
}

// ---------------------------------------------------------------------------
// Shutdown
// ---------------------------------------------------------------------------

func (c *container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.built {
		return ErrNotBuilt
	}

	if c.shutdown {
		return ErrAlreadyShutdown
	}

	c.shutdown = true

	c.closersMu.Lock()
	closers := c.closers
	c.closersMu.Unlock()

	var err error
	for i := len(closers) - 1; i >= 0; i-- {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = multierr.Append(err, ctxErr)
			break
		}
		if closeErr := closers[i].Close(); closeErr != nil {
			c.log.Warn("closing singleton", zap.Error(closeErr))
			err = multierr.Append(err, closeErr)
		}
	}

	return err
}
