package grove

// Lifetime controls how many instances of a binding the container creates.
type Lifetime int

const (
	// Singleton is the default lifetime. A concrete binding is constructed
	// once, during [Container.Build]. An open-generic binding has one
	// instance per closed key, constructed on the first request for that
	// key: Runner[A] and Runner[B] never share an instance. A binding
	// registered under several keys with [As] has one instance for all of
	// them.
	Singleton Lifetime = iota

	// Transient constructs a new instance on every resolution, including
	// each appearance in a collection. Singletons that depend on a transient
	// capture the instance made for them.
	Transient
)

func (l Lifetime) valid() bool {
	return l == Singleton || l == Transient
}

// String returns the human-readable name of the lifetime.
func (l Lifetime) String() string {
	switch l {
	case Singleton:
		return "singleton"
	case Transient:
		return "transient"
	default:
		return "unknown"
	}
}
