package grove

import "strconv"

// component is one constructible registration. A component registered
// under several keys (see [As]) shares a single singleton instance.
type component struct {
	seq      uint64
	services []Key
	desc     Descriptor
	lifetime Lifetime

	// origin is the open binding this component was closed from, if any.
	origin *openComponent

	// flight identifies the component for singleton deduplication.
	flight string
}

// openComponent is an open-generic registration.
type openComponent struct {
	seq      uint64
	service  *Generic
	name     string
	tmpl     Template
	lifetime Lifetime
}

func newComponent(seq uint64, services []Key, desc Descriptor, lifetime Lifetime, origin *openComponent) *component {
	return &component{
		seq:      seq,
		services: services,
		desc:     desc,
		lifetime: lifetime,
		origin:   origin,
		flight:   strconv.FormatUint(seq, 10) + "/" + strconv.FormatUint(uint64(services[0].id()), 10),
	}
}

type bindingOptions struct {
	lifetime Lifetime
	keys     []Key
	name     string
}

// Option configures a binding during registration.
type Option func(*bindingOptions)

func applyOptions(opts []Option) bindingOptions {
	o := bindingOptions{
		lifetime: Singleton,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLifetime sets the [Lifetime] of the binding. The default is
// [Singleton].
func WithLifetime(l Lifetime) Option {
	return func(o *bindingOptions) {
		o.lifetime = l
	}
}

// As exposes the binding under additional keys, typically interfaces it
// implements. With [Container.Provide] the keys replace the constructor's
// return type instead of adding to it.
func As(keys ...Key) Option {
	return func(o *bindingOptions) {
		o.keys = append(o.keys, keys...)
	}
}

// Named attaches name to every key the binding is registered under.
// Resolve it with a key built by [Key.Named] or with [ResolveNamed].
func Named(name string) Option {
	return func(o *bindingOptions) {
		o.name = name
	}
}
