package grove

import (
	"fmt"
	"strings"
)

// Lifetime controls how many instances of a service the container creates
// and where they are cached.
type Lifetime int

const (
	// Singleton is the default lifetime. One instance is created on first use,
	// cached in the root scope and shared by every scope of the container.
	Singleton Lifetime = iota

	// Transient means a new instance is constructed on every resolve. Transient
	// instances are never cached and never disposed by the container.
	Transient

	// Scoped means one instance per [Scope]. Instances are cached in the scope
	// that requested them and disposed with it.
	Scoped
)

// String returns the human-readable name of the lifetime.
func (l Lifetime) String() string {
	switch l {
	case Singleton:
		return "singleton"
	case Transient:
		return "transient"
	case Scoped:
		return "scoped"
	default:
		return "unknown"
	}
}

// cached reports whether instances of this lifetime are kept in a scope.
func (l Lifetime) cached() bool {
	return l == Singleton || l == Scoped
}

// ParseLifetime parses the name of a lifetime, case-insensitively.
func ParseLifetime(s string) (Lifetime, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "singleton":
		return Singleton, nil
	case "transient":
		return Transient, nil
	case "scoped":
		return Scoped, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidLifetime, s)
	}
}
