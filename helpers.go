package grove

import (
	"fmt"
	"reflect"
)

// Resolve is a generic helper that resolves T from r. It is the recommended
// way to retrieve values and fails when T is not registered:
//
//	db, err := grove.Resolve[*Database](c)
//	primary, err := grove.Resolve[*Database](scope, "primary")
func Resolve[T any](r Resolver, tag ...string) (T, error) {
	var zero T
	key := KeyOf[T](tag...)
	if r == nil {
		return zero, nilResolverError(key)
	}

	val, err := r.Resolve(key)
	if err != nil {
		return zero, err
	}
	return convert[T](key, val)
}

// ResolveAll resolves every registration of T, in registration order. It
// returns an empty slice, not an error, when T is not registered.
func ResolveAll[T any](r Resolver, tag ...string) ([]T, error) {
	key := KeyOf[T](tag...)
	if r == nil {
		return nil, nilResolverError(key)
	}

	vals, err := r.ResolveAll(key)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(vals))
	for _, v := range vals {
		t, err := convert[T](key, v)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// ResolveOrDefault resolves T and returns its zero value on any failure.
func ResolveOrDefault[T any](r Resolver, tag ...string) T {
	t, err := Resolve[T](r, tag...)
	if err != nil {
		var zero T
		return zero
	}
	return t
}

// MustResolve resolves T and panics on failure. It is meant for wiring code
// in main, where a missing service is a programming error.
func MustResolve[T any](r Resolver, tag ...string) T {
	t, err := Resolve[T](r, tag...)
	if err != nil {
		panic(err)
	}
	return t
}

// Has reports whether T can be resolved from r. See [HasKey].
func Has[T any](r Resolver, tag ...string) bool {
	return HasKey(r, KeyOf[T](tag...))
}

// HasKey reports whether key resolves to a usable value. Every failure
// counts as absence, including activation errors and panics, not only
// missing registrations. A nil value and an empty string, slice, array or
// map are absent too, so Has[[]T] is false when T has no registrations.
func HasKey(r Resolver, key Key) (ok bool) {
	if r == nil {
		return false
	}
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	val, err := r.Resolve(key)
	if err != nil || isNil(val) {
		return false
	}

	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	}
	return true
}

func convert[T any](key Key, val any) (T, error) {
	var zero T
	if val == nil {
		return zero, nil
	}
	out, ok := val.(T)
	if !ok {
		return zero, fmt.Errorf("%w: cannot convert %T to %s", ErrTypeMismatch, val, key)
	}
	return out, nil
}
