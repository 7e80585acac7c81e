package auth

import (
	"context"
	"slices"
)

// ScopeIngest allows pushing observations through the admin API.
const ScopeIngest = "ingest"

// Principal represents the authenticated identity of a caller.
type Principal struct {
	// Subject is the token's "sub" claim.
	Subject string
	// Scopes are the permissions granted to this principal.
	Scopes []string
}

// HasScope reports whether p carries scope.
func (p *Principal) HasScope(scope string) bool {
	if p == nil {
		return false
	}
	return slices.Contains(p.Scopes, scope)
}

type principalKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal placed by Middleware, or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}
