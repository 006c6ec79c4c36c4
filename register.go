package grove

import "reflect"

// Register adds a constructor. The constructor must be a function with the
// signature func(deps...) T or func(deps...) (T, error). Dependencies are
// expressed as parameters and resolved by type; a []T parameter with no
// registration of its own receives every registration of T.
//
// The service is keyed by T unless [As] or [WithTag] say otherwise.
func (c *Container) Register(constructor any, opts ...Option) error {
	const op = "register"

	val := reflect.ValueOf(constructor)
	if !val.IsValid() || val.Kind() != reflect.Func {
		return invalidRegistration(op, "constructor must be a function, got %T", constructor)
	}

	typ := val.Type()
	if typ.NumOut() == 0 {
		return invalidRegistration(op, "constructor must return (T) or (T, error)")
	}

	reg := newRegistration(opts)

	serviceType := typ.Out(0)
	if reg.as != nil {
		if !serviceType.AssignableTo(reg.as) {
			return invalidRegistration(op, "%s is not assignable to %s", serviceType, reg.as)
		}
		serviceType = reg.as
	}

	if reg.depTagCount > typ.NumIn() {
		return invalidRegistration(op, "%d dependency tag(s) for a constructor with %d parameter(s)", reg.depTagCount, typ.NumIn())
	}

	deps := make([]Key, typ.NumIn())
	for i := range deps {
		deps[i] = Key{Type: typ.In(i), Tag: reg.depTags[i]}
	}

	return c.Add(Descriptor{
		Key:          Key{Type: serviceType, Tag: reg.tag},
		Lifetime:     reg.lifetime,
		Strategy:     ConstructorStrategy,
		Constructor:  val,
		Dependencies: deps,
	})
}

// RegisterFactory adds a factory for key. [WithTag] overrides the key's tag.
func (c *Container) RegisterFactory(key Key, factory Factory, opts ...Option) error {
	reg := newRegistration(opts)
	if reg.tag != "" {
		key.Tag = reg.tag
	}
	return c.Add(Descriptor{
		Key:      key,
		Lifetime: reg.lifetime,
		Strategy: FactoryStrategy,
		Factory:  factory,
	})
}

// RegisterInstance adds an existing value for key. Instances are always
// singletons and are never disposed by the container; they belong to the
// caller.
func (c *Container) RegisterInstance(key Key, instance any, opts ...Option) error {
	reg := newRegistration(opts)
	if reg.tag != "" {
		key.Tag = reg.tag
	}
	if reg.lifetimeSet && reg.lifetime != Singleton {
		return invalidRegistration("register instance", "%s: instance registrations must be singletons, got %s", key, reg.lifetime)
	}
	return c.Add(Descriptor{
		Key:      key,
		Lifetime: Singleton,
		Strategy: InstanceStrategy,
		Instance: instance,
	})
}

// Add appends a descriptor. It fails with a [ConfigurationError] once the
// container is built or when the descriptor is malformed.
func (c *Container) Add(d Descriptor) error {
	if c.table.isFrozen() {
		return frozenError("register " + d.Key.String())
	}
	if err := d.validate("register"); err != nil {
		return err
	}
	if d.Dependencies != nil {
		d.Dependencies = append([]Key(nil), d.Dependencies...)
	}

	stored, err := c.table.add(d)
	if err != nil {
		return err
	}

	c.logger.Debug("Service registered",
		"key", stored.Key.String(),
		"strategy", stored.Strategy.String(),
		"lifetime", stored.Lifetime.String(),
		"slot", stored.slot,
	)
	return nil
}

// RegisterValue registers value under [KeyOf][T].
func RegisterValue[T any](c *Container, value T, opts ...Option) error {
	return c.RegisterInstance(KeyOf[T](), value, opts...)
}

// RegisterFunc registers a typed factory under [KeyOf][T].
//
//	grove.RegisterFunc(c, func(r grove.Resolver) (*Client, error) {
//		cfg, err := grove.Resolve[*Config](r)
//		if err != nil {
//			return nil, err
//		}
//		return NewClient(cfg.URL), nil
//	})
func RegisterFunc[T any](c *Container, fn func(r Resolver) (T, error), opts ...Option) error {
	if fn == nil {
		return invalidRegistration("register", "%s: factory is nil", KeyOf[T]())
	}
	return c.RegisterFactory(KeyOf[T](), func(r Resolver) (any, error) {
		return fn(r)
	}, opts...)
}
