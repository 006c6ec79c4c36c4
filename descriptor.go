package grove

import (
	"fmt"
	"reflect"
)

// Strategy is how a descriptor produces its instance.
type Strategy int

const (
	// InstanceStrategy returns a value supplied at registration.
	InstanceStrategy Strategy = iota

	// FactoryStrategy calls a [Factory] with the current [Resolver].
	FactoryStrategy

	// ConstructorStrategy resolves the declared dependencies and calls a
	// constructor function with them.
	ConstructorStrategy
)

func (s Strategy) String() string {
	switch s {
	case InstanceStrategy:
		return "instance"
	case FactoryStrategy:
		return "factory"
	case ConstructorStrategy:
		return "constructor"
	default:
		return "unknown"
	}
}

// Factory builds a service instance. The resolver it receives belongs to the
// resolve call in progress, so services it resolves take part in cycle
// detection and land in the right scope. Resolving through r from another
// goroutine starts a new chain and is not cycle checked.
type Factory func(r Resolver) (any, error)

// Descriptor is a registration record: which key it serves, how the instance
// is produced, and for how long it lives. Descriptors are normally created by
// [Container.Register], [Container.RegisterFactory] and
// [Container.RegisterInstance]; [Container.Add] accepts hand-built ones.
type Descriptor struct {
	Key      Key
	Lifetime Lifetime
	Strategy Strategy

	// Instance is used by InstanceStrategy.
	Instance any

	// Factory is used by FactoryStrategy.
	Factory Factory

	// Constructor and Dependencies are used by ConstructorStrategy. The
	// constructor must have the signature func(deps...) T or
	// func(deps...) (T, error), with one parameter per dependency.
	Constructor  reflect.Value
	Dependencies []Key

	// slot is the position of this descriptor among the registrations of
	// its key. Cached instances are keyed by (Key, slot).
	slot int
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// validate checks that the descriptor is internally consistent.
func (d *Descriptor) validate(op string) error {
	if !d.Key.Valid() {
		return invalidRegistration(op, "key has no type")
	}

	switch d.Lifetime {
	case Singleton, Transient, Scoped:
	default:
		return invalidRegistration(op, "%s: unknown lifetime %d", d.Key, d.Lifetime)
	}

	switch d.Strategy {
	case InstanceStrategy:
		if isNil(d.Instance) {
			return invalidRegistration(op, "%s: instance is nil", d.Key)
		}
		if d.Lifetime != Singleton {
			return invalidRegistration(op, "%s: instance registrations must be singletons, got %s", d.Key, d.Lifetime)
		}
		if t := reflect.TypeOf(d.Instance); !t.AssignableTo(d.Key.Type) {
			return invalidRegistration(op, "%s: instance of type %s is not assignable", d.Key, t)
		}

	case FactoryStrategy:
		if d.Factory == nil {
			return invalidRegistration(op, "%s: factory is nil", d.Key)
		}

	case ConstructorStrategy:
		return d.validateConstructor(op)

	default:
		return invalidRegistration(op, "%s: unknown strategy %d", d.Key, d.Strategy)
	}
	return nil
}

func (d *Descriptor) validateConstructor(op string) error {
	if !d.Constructor.IsValid() || d.Constructor.Kind() != reflect.Func || d.Constructor.IsNil() {
		return invalidRegistration(op, "%s: constructor must be a function", d.Key)
	}

	typ := d.Constructor.Type()
	if typ.IsVariadic() {
		return invalidRegistration(op, "%s: variadic constructors are not supported", d.Key)
	}
	if typ.NumOut() == 0 || typ.NumOut() > 2 {
		return invalidRegistration(op, "%s: constructor must return (T) or (T, error)", d.Key)
	}
	if typ.NumOut() == 2 && !typ.Out(1).Implements(errorType) {
		return invalidRegistration(op, "%s: second return value must implement error", d.Key)
	}
	if !typ.Out(0).AssignableTo(d.Key.Type) {
		return invalidRegistration(op, "%s: constructor returns %s", d.Key, typ.Out(0))
	}

	if typ.NumIn() != len(d.Dependencies) {
		return invalidRegistration(op, "%s: constructor takes %d parameters but %d dependencies are declared",
			d.Key, typ.NumIn(), len(d.Dependencies))
	}
	for i, dep := range d.Dependencies {
		if !dep.Valid() {
			return invalidRegistration(op, "%s: dependency %d has no type", d.Key, i)
		}
		if !dep.Type.AssignableTo(typ.In(i)) {
			return invalidRegistration(op, "%s: dependency %s does not fit parameter %d (%s)", d.Key, dep, i, typ.In(i))
		}
	}
	return nil
}

func (d *Descriptor) String() string {
	return fmt.Sprintf("%s (%s, %s)", d.Key, d.Strategy, d.Lifetime)
}

// isNil reports whether v is nil or a typed nil of a nillable kind.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return rv.IsNil()
	}
	return false
}
