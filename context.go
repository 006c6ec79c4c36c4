package grove

import "context"

type scopeContextKey struct{}

// WithScope returns a copy of ctx carrying s, for handing a request scope
// down a call chain.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, s)
}

// ScopeFromContext returns the scope stored by [WithScope].
func ScopeFromContext(ctx context.Context) (*Scope, bool) {
	s, ok := ctx.Value(scopeContextKey{}).(*Scope)
	return s, ok && s != nil
}
