// Package identity verifies bearer tokens and carries the caller's claims
// through the request context.
package identity

import (
	"context"
	"time"
)

type ctxKey int

const claimsKey ctxKey = iota

// LocalUser is the subject injected when authentication is disabled.
const LocalUser = "local-dev"

type Claims struct {
	Username  string
	ExpiresAt time.Time
}

func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the claims stored by Middleware, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok && claims != nil
}
