package grove

import (
	"slices"
	"time"
)

// Resolver is the read side of the container. [*Container], [*Scope] and the
// resolver handed to factories all implement it.
type Resolver interface {
	// Resolve returns the instance of the last registration for key, or a
	// [*ServiceNotRegisteredError] when there is none. A []T key without
	// registrations of its own yields every registration of T.
	Resolve(key Key) (any, error)

	// ResolveAll returns one instance per registration of key, in
	// registration order. It returns an empty slice when there is none.
	ResolveAll(key Key) ([]any, error)

	// TryResolve is Resolve without the error: it reports false on any
	// failure.
	TryResolve(key Key) (any, bool)
}

// cacheKey identifies a cached instance within a scope.
type cacheKey struct {
	key  Key
	slot int
}

// resolution is the state of one top-level resolve call: the scope it
// resolves against and the chain of keys under construction. It is never
// shared between top-level calls.
type resolution struct {
	c     *Container
	scope *Scope
	call  *call
	chain []Key
}

var _ Resolver = (*resolution)(nil)

// Resolve returns the last registration of key. A slice key without
// registrations of its own collects every registration of its element key.
func (r *resolution) Resolve(key Key) (any, error) {
	if ds := r.c.table.lookup(key); len(ds) > 0 {
		return r.resolveDescriptor(ds[len(ds)-1])
	}

	n := len(r.chain)
	if elem, ok := key.elem(); ok {
		owner := key
		if n > 0 {
			owner = r.chain[n-1]
		}
		return r.resolveCollection(key, elem, owner)
	}
	if n > 0 {
		return nil, &MissingDependencyError{Dependency: key, Requester: r.chain[n-1]}
	}
	return nil, &ServiceNotRegisteredError{Key: key}
}

func (r *resolution) ResolveAll(key Key) ([]any, error) {
	ds := r.c.table.lookup(key)
	out := make([]any, 0, len(ds))
	for _, d := range ds {
		inst, err := r.resolveDescriptor(d)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}

func (r *resolution) TryResolve(key Key) (any, bool) {
	inst, err := r.Resolve(key)
	if err != nil {
		return nil, false
	}
	return inst, true
}

// resolveDependency resolves a constructor parameter of requester. A slice
// key without registrations of its own collects every registration of its
// element key.
func (r *resolution) resolveDependency(dep, requester Key) (any, error) {
	if ds := r.c.table.lookup(dep); len(ds) > 0 {
		return r.resolveDescriptor(ds[len(ds)-1])
	}

	if elem, ok := dep.elem(); ok {
		return r.resolveCollection(dep, elem, requester)
	}

	return nil, &MissingDependencyError{Dependency: dep, Requester: requester}
}

// resolveCollection builds a value of the slice key from every registration
// of elem, in registration order. owner is blamed for conversion failures.
func (r *resolution) resolveCollection(key, elem, owner Key) (any, error) {
	items, err := r.ResolveAll(elem)
	if err != nil {
		return nil, err
	}
	out, err := collect(key.Type, items)
	if err != nil {
		return nil, &ActivationError{Key: owner, Cause: err}
	}
	return out, nil
}

// resolveDescriptor returns the instance for d, consulting the scope cache
// its lifetime calls for. The cycle check runs before the cache so that a
// call never waits on an entry it is itself constructing.
func (r *resolution) resolveDescriptor(d *Descriptor) (any, error) {
	if d.Strategy == InstanceStrategy {
		return d.Instance, nil
	}

	if slices.Contains(r.chain, d.Key) {
		chain := append(slices.Clone(r.chain), d.Key)
		return nil, &CircularDependencyError{Chain: chain[slices.Index(chain, d.Key):]}
	}

	target := r.scope
	switch d.Lifetime {
	case Singleton:
		target = r.c.root
	case Scoped:
		if r.scope.isRoot() && r.c.cfg.ValidateScopes {
			return nil, &ScopeValidationError{Key: d.Key}
		}
	}

	r.chain = append(r.chain, d.Key)
	defer func() { r.chain = r.chain[:len(r.chain)-1] }()

	inner := r
	if target != r.scope {
		inner = &resolution{c: r.c, scope: target, call: r.call, chain: slices.Clone(r.chain)}
	}

	return r.scope.getOrCreate(r, cacheKey{key: d.Key, slot: d.slot}, d.Lifetime, func() (any, error) {
		return r.c.activate(d, inner)
	})
}

// activate wraps the activator with diagnostics.
func (c *Container) activate(d *Descriptor, r *resolution) (any, error) {
	start := time.Now()
	inst, err := activate(d, r)
	if err != nil {
		c.logger.Debug("Service activation failed", "key", d.Key.String(), "scope", r.scope.id, "error", err)
		return nil, err
	}

	c.logger.Debug("Service activated",
		"key", d.Key.String(),
		"lifetime", d.Lifetime.String(),
		"scope", r.scope.id,
		"duration", time.Since(start),
	)
	c.emit(EventTypeServiceActivated, map[string]any{
		"key":      d.Key.String(),
		"lifetime": d.Lifetime.String(),
		"scope":    r.scope.id,
	})
	return inst, nil
}
