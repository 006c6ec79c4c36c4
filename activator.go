package grove

import (
	"fmt"
	"reflect"
)

// activate produces one instance for d. Dependencies are resolved through r,
// so they share its scope and resolution chain.
func activate(d *Descriptor, r *resolution) (any, error) {
	switch d.Strategy {
	case InstanceStrategy:
		return d.Instance, nil

	case FactoryStrategy:
		return invokeFactory(d, r)

	case ConstructorStrategy:
		args, err := resolveArgs(d, r)
		if err != nil {
			return nil, err
		}
		return invokeConstructor(d, args)

	default:
		return nil, &ActivationError{Key: d.Key, Cause: fmt.Errorf("unknown strategy %d", d.Strategy)}
	}
}

func invokeFactory(d *Descriptor, r *resolution) (instance any, err error) {
	defer recoverActivation(d.Key, &err)

	instance, err = d.Factory(r)
	if err != nil {
		// Errors from nested resolves keep their identity.
		if IsResolutionError(err) {
			return nil, err
		}
		return nil, &ActivationError{Key: d.Key, Cause: err}
	}
	if instance != nil && !reflect.TypeOf(instance).AssignableTo(d.Key.Type) {
		return nil, &ActivationError{
			Key:   d.Key,
			Cause: fmt.Errorf("%w: factory returned %T", ErrTypeMismatch, instance),
		}
	}
	return instance, nil
}

func invokeConstructor(d *Descriptor, args []reflect.Value) (instance any, err error) {
	defer recoverActivation(d.Key, &err)

	results := d.Constructor.Call(args)
	if len(results) == 2 && !results[1].IsNil() {
		return nil, &ActivationError{Key: d.Key, Cause: results[1].Interface().(error)}
	}
	return results[0].Interface(), nil
}

func recoverActivation(key Key, err *error) {
	if p := recover(); p != nil {
		*err = &ActivationError{Key: key, Cause: fmt.Errorf("panic: %v", p)}
	}
}

// resolveArgs resolves the constructor dependencies of d in parameter order.
func resolveArgs(d *Descriptor, r *resolution) ([]reflect.Value, error) {
	fnType := d.Constructor.Type()
	args := make([]reflect.Value, len(d.Dependencies))

	for i, dep := range d.Dependencies {
		inst, err := r.resolveDependency(dep, d.Key)
		if err != nil {
			return nil, err
		}

		arg, err := valueOf(inst, fnType.In(i))
		if err != nil {
			return nil, &ActivationError{Key: d.Key, Cause: fmt.Errorf("dependency %s: %w", dep, err)}
		}
		args[i] = arg
	}
	return args, nil
}

// valueOf converts a resolved instance to a reflect.Value of type t. A nil
// instance becomes the zero value of t.
func valueOf(inst any, t reflect.Type) (reflect.Value, error) {
	if inst == nil {
		return reflect.Zero(t), nil
	}
	v := reflect.ValueOf(inst)
	if !v.Type().AssignableTo(t) {
		return reflect.Value{}, fmt.Errorf("%w: cannot use %s as %s", ErrTypeMismatch, v.Type(), t)
	}
	return v, nil
}

// collect builds a []T value of type sliceType from resolved items.
func collect(sliceType reflect.Type, items []any) (any, error) {
	out := reflect.MakeSlice(sliceType, 0, len(items))
	for _, item := range items {
		v, err := valueOf(item, sliceType.Elem())
		if err != nil {
			return nil, err
		}
		out = reflect.Append(out, v)
	}
	return out.Interface(), nil
}
