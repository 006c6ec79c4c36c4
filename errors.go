package grove

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotBuilt is returned when Resolve or NewScope is called before Build.
	ErrNotBuilt = errors.New("container not built")

	// ErrAlreadyBuilt is returned when a registration or Build is attempted
	// after the container has already been built.
	ErrAlreadyBuilt = errors.New("container already built")

	// ErrAlreadyShutdown is returned by a second call to Shutdown.
	ErrAlreadyShutdown = errors.New("container already shut down")

	// ErrInvalidRegistration is returned when a descriptor cannot be accepted:
	// invalid key, nil instance, malformed constructor.
	ErrInvalidRegistration = errors.New("invalid registration")

	// ErrInvalidLifetime is returned when a lifetime name cannot be parsed.
	ErrInvalidLifetime = errors.New("invalid lifetime")

	// ErrServiceNotRegistered is returned when no descriptor exists for the
	// requested key.
	ErrServiceNotRegistered = errors.New("service not registered")

	// ErrMissingDependency is returned when a dependency required to construct
	// a service is not registered.
	ErrMissingDependency = errors.New("missing dependency")

	// ErrCircularDependency is returned when resolution re-enters a key that is
	// already being constructed. The error message includes the full chain.
	ErrCircularDependency = errors.New("circular dependency detected")

	// ErrActivation is returned when a constructor or factory fails.
	ErrActivation = errors.New("activation failed")

	// ErrScopeDisposed is returned when a disposed scope is used.
	ErrScopeDisposed = errors.New("scope disposed")

	// ErrScopeValidation is returned when scope validation is enabled and a
	// scoped service is resolved from the root scope.
	ErrScopeValidation = errors.New("scoped service resolved from root scope")

	// ErrNilResolver is returned by the generic helpers when given a nil
	// [Resolver].
	ErrNilResolver = errors.New("nil resolver")

	// ErrTypeMismatch is returned by the generic helpers when the resolved
	// value cannot be converted to the requested type.
	ErrTypeMismatch = errors.New("type mismatch")
)

func nilResolverError(key Key) error {
	return fmt.Errorf("%w: resolving %s", ErrNilResolver, key)
}

// ServiceNotRegisteredError reports a top-level request for a key without
// registrations.
type ServiceNotRegisteredError struct {
	Key Key
}

func (e *ServiceNotRegisteredError) Error() string {
	return fmt.Sprintf("%s: %s", ErrServiceNotRegistered, e.Key)
}

func (e *ServiceNotRegisteredError) Is(target error) bool {
	return target == ErrServiceNotRegistered
}

// MissingDependencyError reports that Requester could not be constructed
// because Dependency is not registered.
type MissingDependencyError struct {
	Dependency Key
	Requester  Key
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("%s: %s required by %s", ErrMissingDependency, e.Dependency, e.Requester)
}

func (e *MissingDependencyError) Is(target error) bool {
	return target == ErrMissingDependency
}

// CircularDependencyError carries the dependency chain that closed a cycle.
// The first and last elements of Chain are the same key.
type CircularDependencyError struct {
	Chain []Key
}

func (e *CircularDependencyError) Error() string {
	parts := make([]string, len(e.Chain))
	for i, k := range e.Chain {
		parts[i] = k.String()
	}
	return fmt.Sprintf("%s: %s", ErrCircularDependency, strings.Join(parts, " -> "))
}

func (e *CircularDependencyError) Is(target error) bool {
	return target == ErrCircularDependency
}

// ActivationError wraps an error returned, or a panic raised, by a
// constructor or factory.
type ActivationError struct {
	Key   Key
	Cause error
}

func (e *ActivationError) Error() string {
	return fmt.Sprintf("%s: constructing %s: %v", ErrActivation, e.Key, e.Cause)
}

func (e *ActivationError) Is(target error) bool {
	return target == ErrActivation
}

func (e *ActivationError) Unwrap() error {
	return e.Cause
}

// ConfigurationError reports a registration the container refuses: either
// because the container is frozen or because the registration is malformed.
type ConfigurationError struct {
	Op     string
	Reason string
	frozen bool
}

func (e *ConfigurationError) Error() string {
	if e.frozen {
		return fmt.Sprintf("%s: %s", e.Op, ErrAlreadyBuilt)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, ErrInvalidRegistration, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	if e.frozen {
		return target == ErrAlreadyBuilt
	}
	return target == ErrInvalidRegistration
}

func frozenError(op string) error {
	return &ConfigurationError{Op: op, Reason: "container is frozen", frozen: true}
}

func invalidRegistration(op, format string, args ...any) error {
	return &ConfigurationError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

// ScopeDisposedError is returned by operations on a disposed scope.
type ScopeDisposedError struct {
	ScopeID string
}

func (e *ScopeDisposedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrScopeDisposed, e.ScopeID)
}

func (e *ScopeDisposedError) Is(target error) bool {
	return target == ErrScopeDisposed
}

// ScopeValidationError is returned when scope validation is enabled and a
// [Scoped] service is requested from the root scope, directly or through a
// singleton that depends on it.
type ScopeValidationError struct {
	Key Key
}

func (e *ScopeValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrScopeValidation, e.Key)
}

func (e *ScopeValidationError) Is(target error) bool {
	return target == ErrScopeValidation
}

// DisposeError aggregates every failure raised while disposing a scope.
type DisposeError struct {
	ScopeID string
	Errors  []error
}

func (e *DisposeError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("disposing scope %s: %d error(s): %s", e.ScopeID, len(e.Errors), strings.Join(msgs, "; "))
}

func (e *DisposeError) Unwrap() []error {
	return e.Errors
}

// IsResolutionError reports whether err belongs to the family of errors a
// resolve call can produce.
func IsResolutionError(err error) bool {
	for _, target := range []error{
		ErrNotBuilt,
		ErrServiceNotRegistered,
		ErrMissingDependency,
		ErrCircularDependency,
		ErrActivation,
		ErrScopeDisposed,
		ErrScopeValidation,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
