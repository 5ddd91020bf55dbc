package auth

import (
	"context"

	"hailway.org/internal/principal"
)

type principalContextKey struct{}
type tokenContextKey struct{}

// ContextWithPrincipal attaches the authenticated principal to the context.
func ContextWithPrincipal(ctx context.Context, p principal.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, &p)
}

// PrincipalFromContext extracts the authenticated principal from the context.
func PrincipalFromContext(ctx context.Context) (principal.Principal, bool) {
	if ctx == nil {
		return principal.Principal{}, false
	}
	v, ok := ctx.Value(principalContextKey{}).(*principal.Principal)
	if !ok || v == nil {
		return principal.Principal{}, false
	}
	return *v, true
}

// ContextWithToken stores the raw bearer token inside the context so the
// logout handler can revoke exactly the credential that authenticated it.
func ContextWithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// TokenFromContext returns the bearer token if it was previously attached.
func TokenFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(tokenContextKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
