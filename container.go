package grove

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// Container registers services, freezes them on [Container.Build], and then
// resolves them. Resolution against the container uses its root scope; use
// [Container.NewScope] for units of work that own [Scoped] instances.
//
// Registration is not meant to race with Build. After Build the container
// is safe for concurrent use.
type Container struct {
	id     string
	table  *descriptorTable
	cfg    Config
	logger Logger

	observers []Observer
	waits     waitGraph

	mu       sync.Mutex
	root     *Scope
	scopes   []*Scope
	shutdown bool
}

var _ Resolver = (*Container)(nil)

// New creates an empty [Container] ready for registration.
func New(opts ...ContainerOption) *Container {
	c := &Container{
		id:     uuid.NewString(),
		table:  newDescriptorTable(),
		logger: nopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the unique identifier of the container, used as the source of
// its events.
func (c *Container) ID() string {
	return c.id
}

// Build freezes the registrations and creates the root scope. Depending on
// configuration it also applies lifetime overrides, validates the
// constructor graph and constructs singletons eagerly. After Build succeeds
// no further registrations are accepted.
func (c *Container) Build() error {
	if err := c.freeze(); err != nil {
		return err
	}

	if c.cfg.EagerSingletons {
		if err := c.constructSingletons(); err != nil {
			return err
		}
	}

	c.logger.Info("Container built",
		"container", c.id,
		"services", c.table.len(),
		"validated", c.cfg.ValidateOnBuild,
	)
	c.emit(EventTypeContainerBuilt, map[string]any{
		"container": c.id,
		"services":  c.table.len(),
	})
	return nil
}

func (c *Container) freeze() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.table.isFrozen() {
		return ErrAlreadyBuilt
	}

	// root must be set before the table is published as frozen.
	c.root = newScope(c, nil)

	err := c.table.freeze(func(byKey map[Key][]*Descriptor, order []Key) error {
		if err := c.applyLifetimeOverrides(byKey, order); err != nil {
			return err
		}
		if c.cfg.ValidateOnBuild {
			return validateGraph(byKey, order, c.cfg.ValidateScopes)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyBuilt) {
			return ErrAlreadyBuilt
		}
		c.root = nil
		return err
	}
	return nil
}

// applyLifetimeOverrides rewrites lifetimes named in the configuration.
func (c *Container) applyLifetimeOverrides(byKey map[Key][]*Descriptor, order []Key) error {
	if len(c.cfg.Lifetimes) == 0 {
		return nil
	}

	for _, k := range order {
		name, ok := c.cfg.Lifetimes[k.String()]
		if !ok {
			continue
		}
		l, err := ParseLifetime(name)
		if err != nil {
			return err
		}
		for _, d := range byKey[k] {
			if d.Strategy == InstanceStrategy {
				c.logger.Warn("Ignoring lifetime override for instance registration", "key", k.String(), "lifetime", name)
				continue
			}
			d.Lifetime = l
		}
		c.logger.Debug("Lifetime overridden", "key", k.String(), "lifetime", l.String())
	}
	return nil
}

func (c *Container) constructSingletons() error {
	r := c.root.newResolution()
	for _, k := range c.table.keys() {
		for _, d := range c.table.lookup(k) {
			if d.Lifetime != Singleton || d.Strategy == InstanceStrategy {
				continue
			}
			if _, err := r.resolveDescriptor(d); err != nil {
				return err
			}
		}
	}
	return nil
}

// Resolve returns the instance of the last registration for key, resolved
// against the root scope. It fails with a [*ServiceNotRegisteredError] when
// key has no registration.
func (c *Container) Resolve(key Key) (any, error) {
	if !c.table.isFrozen() {
		return nil, ErrNotBuilt
	}
	return c.root.Resolve(key)
}

// ResolveAll returns one instance per registration of key, in registration
// order, resolved against the root scope. It returns an empty slice when
// key has no registration.
func (c *Container) ResolveAll(key Key) ([]any, error) {
	if !c.table.isFrozen() {
		return nil, ErrNotBuilt
	}
	return c.root.ResolveAll(key)
}

// TryResolve is Resolve that reports any failure as false.
func (c *Container) TryResolve(key Key) (any, bool) {
	inst, err := c.Resolve(key)
	if err != nil {
		return nil, false
	}
	return inst, true
}

// Root returns the root scope, or nil before Build.
func (c *Container) Root() *Scope {
	if !c.table.isFrozen() {
		return nil
	}
	return c.root
}

// NewScope creates a child scope. The caller must Dispose it when the unit
// of work ends; scopes still open at [Container.Shutdown] are disposed then.
func (c *Container) NewScope() (*Scope, error) {
	if !c.table.isFrozen() {
		return nil, ErrNotBuilt
	}

	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return nil, &ScopeDisposedError{ScopeID: c.root.id}
	}
	s := newScope(c, c.root)
	c.scopes = append(c.scopes, s)
	open := len(c.scopes)
	c.mu.Unlock()

	c.logger.Debug("Scope created", "scope", s.id, "open", open)
	c.emit(EventTypeScopeCreated, map[string]any{"scope": s.id})
	return s, nil
}

func (c *Container) forgetScope(s *Scope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, open := range c.scopes {
		if open == s {
			c.scopes = append(c.scopes[:i], c.scopes[i+1:]...)
			return
		}
	}
}

// Shutdown disposes every open child scope and then the root scope, which
// holds the singletons. The context bounds the root disposal: once it
// expires the remaining disposables are skipped and the context error is
// part of the result.
//
// Shutdown returns [ErrAlreadyShutdown] when called again.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	if !c.table.isFrozen() {
		c.mu.Unlock()
		return ErrNotBuilt
	}
	if c.shutdown {
		c.mu.Unlock()
		return ErrAlreadyShutdown
	}
	c.shutdown = true
	open := make([]*Scope, len(c.scopes))
	copy(open, c.scopes)
	c.mu.Unlock()

	var errs []error
	for i := len(open) - 1; i >= 0; i-- {
		if err := open[i].dispose(ctx); err != nil && !errors.Is(err, ErrScopeDisposed) {
			errs = append(errs, err)
		}
	}
	if err := c.root.dispose(ctx); err != nil {
		errs = append(errs, err)
	}

	c.logger.Info("Container shut down", "container", c.id, "scopes", len(open), "failures", len(errs))
	return errors.Join(errs...)
}

// resolutionFailed reports a failed top-level resolve.
func (c *Container) resolutionFailed(s *Scope, key Key, err error) {
	c.logger.Debug("Resolution failed", "key", key.String(), "scope", s.id, "error", err)
	c.emit(EventTypeResolutionFailed, map[string]any{
		"key":   key.String(),
		"scope": s.id,
		"error": err.Error(),
	})
}
