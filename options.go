package grove

import "reflect"

// registration collects the options of a single Register call.
type registration struct {
	lifetime    Lifetime
	tag         string
	as          reflect.Type
	depTags     map[int]string
	depTagCount int
	lifetimeSet bool
}

// Option configures a service during registration.
type Option func(*registration)

// WithLifetime sets the [Lifetime] of the service. The default is
// [Singleton].
func WithLifetime(l Lifetime) Option {
	return func(r *registration) {
		r.lifetime = l
		r.lifetimeSet = true
	}
}

// WithTag registers the service under a tagged key, so several
// registrations of the same type can be told apart.
func WithTag(tag string) Option {
	return func(r *registration) {
		r.tag = tag
	}
}

// As registers a constructor under the contract type I instead of its
// return type. The return type must implement or be assignable to I.
//
//	c.Register(NewPostgresStore, grove.As[Store]())
func As[I any]() Option {
	return func(r *registration) {
		r.as = reflect.TypeOf((*I)(nil)).Elem()
	}
}

// WithDependencyTags sets the tag used to resolve each constructor
// parameter, by position. An empty string leaves the parameter untagged.
// Register rejects more tags than the constructor has parameters.
//
//	c.Register(NewReplica, grove.WithDependencyTags("", "replica"))
func WithDependencyTags(tags ...string) Option {
	return func(r *registration) {
		if r.depTags == nil {
			r.depTags = make(map[int]string, len(tags))
		}
		r.depTagCount = max(r.depTagCount, len(tags))
		for i, tag := range tags {
			if tag != "" {
				r.depTags[i] = tag
			}
		}
	}
}

func newRegistration(opts []Option) *registration {
	r := &registration{lifetime: Singleton}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ContainerOption configures a [Container] at creation.
type ContainerOption func(*Container)

// WithLogger sets the logger used for container diagnostics. The default
// discards everything.
func WithLogger(l Logger) ContainerOption {
	return func(c *Container) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver subscribes o to the container's lifecycle events.
func WithObserver(o Observer) ContainerOption {
	return func(c *Container) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// WithConfig applies a decoded [Config].
func WithConfig(cfg Config) ContainerOption {
	return func(c *Container) {
		c.cfg = cfg
	}
}

// WithValidateOnBuild makes [Container.Build] walk the constructor graph and
// report missing dependencies and cycles before anything is resolved.
func WithValidateOnBuild(enabled bool) ContainerOption {
	return func(c *Container) {
		c.cfg.ValidateOnBuild = enabled
	}
}

// WithValidateScopes rejects [Scoped] services resolved from the root scope,
// including through a singleton that depends on them.
func WithValidateScopes(enabled bool) ContainerOption {
	return func(c *Container) {
		c.cfg.ValidateScopes = enabled
	}
}

// WithEagerSingletons makes [Container.Build] construct every singleton up
// front.
func WithEagerSingletons(enabled bool) ContainerOption {
	return func(c *Container) {
		c.cfg.EagerSingletons = enabled
	}
}
