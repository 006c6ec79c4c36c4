// Package grove provides a reflection-based dependency injection container
// for Go with singleton, scoped and transient lifetimes.
//
// Register constructors, factories or existing values with the container,
// call [Container.Build] to freeze the registrations, then retrieve
// fully-assembled objects with [Resolve], from the container or from a
// [Scope].
//
// # Quick Start
//
//	c := grove.New()
//	c.Register(NewLogger)
//	c.Register(NewDatabase)
//	c.Build()
//
//	db, err := grove.Resolve[*Database](c)
//
// # Lifetimes
//
// [Singleton] (default): one shared instance for the lifetime of the
// container, whichever scope asks for it.
//
// [Scoped]: one instance per [Scope], disposed with the scope.
//
// [Transient]: a fresh instance on every resolve.
//
//	c.Register(NewSession, grove.WithLifetime(grove.Scoped))
//
//	scope, _ := c.NewScope()
//	defer scope.Dispose()
//	sess, _ := grove.Resolve[*Session](scope)
//
// # Multiple Registrations
//
// A key may be registered several times. [Resolve] returns the last
// registration; [ResolveAll] returns all of them in registration order, and
// an empty slice when there are none. A constructor parameter of type []T
// receives every registration of T.
//
//	c.Register(NewAuditHook, grove.As[Hook]())
//	c.Register(NewMetricsHook, grove.As[Hook]())
//
//	hooks, _ := grove.ResolveAll[Hook](c)
//
// Tags tell apart registrations that should not be mixed:
//
//	c.Register(NewPrimaryDB, grove.WithTag("primary"))
//	db, _ := grove.Resolve[*Database](c, "primary")
//
// # Errors
//
// Resolution errors are typed and match sentinels with [errors.Is]:
// [ErrServiceNotRegistered], [ErrMissingDependency], [ErrCircularDependency],
// [ErrActivation], [ErrScopeDisposed]. Only the presence checks [Has] and
// [HasKey] and the lenient [ResolveOrDefault] turn errors into values.
package grove
