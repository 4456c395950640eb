// Package grove provides a dependency injection container for Go with
// open-generic registrations.
//
// Bindings are keyed by [Key]: a plain Go type, a [Generic] definition
// applied to type arguments, or a collection of another key. Register
// concrete bindings with explicit dependency lists, or constructor functions
// whose parameters are the dependencies, call [Container.Build] to validate
// the graph, then retrieve fully-assembled objects with [Resolve] or
// [ResolveKey].
//
// # Quick Start
//
//	c := grove.New()
//	c.Provide(NewLogger)
//	c.Provide(NewDatabase)
//	c.Build()
//
//	db, err := grove.Resolve[*Database](c)
//
// # Open Generics
//
// An open-generic binding serves every closure of a generic definition. Its
// [Template] lists dependencies in terms of [Param] placeholders; each
// distinct request closes the template once by substituting the requested
// type arguments.
//
//	thing := grove.NewGeneric("Thing", 1)
//	runner := grove.NewGeneric("Runner", 1)
//
//	c.RegisterOpenGeneric(runner, grove.Template{
//		Deps: []grove.Key{grove.ListOf(thing.Of(grove.Param(0)))},
//		New:  newRunner,
//	})
//
//	r, err := c.Resolve(runner.Of(grove.KeyOf[Payload]()))
//
// # Resolution Rules
//
// A single request uses the most recently registered concrete binding for
// the key, and falls back to the most recently registered open-generic
// binding of the key's definition. A [ListOf] request, or [Container.ResolveAll],
// returns every binding in registration order and yields an empty slice when
// there are none. Unregistered slice types resolve as collections of their
// element type; unregistered structs with fields tagged grove:"inject" are
// autowired.
//
// Resolution fails with [ErrUnresolvedDependency] when a required single
// service has no binding and with [ErrCycleDetected] when a key depends on
// itself. Errors returned by factories reach the caller unchanged.
//
// # Lifetimes
//
// [Singleton] (default): one shared instance per binding, or per closed key
// for open generics.
//
// [Transient]: a fresh instance on every resolution.
//
//	c.Provide(NewLogger, grove.WithLifetime(grove.Transient))
package grove
