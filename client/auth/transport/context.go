package transport

import (
	"context"
)

type (
	contextKey string
)

const (
	ContextPublicKey contextKey = "public"
)

// WithoutAuth marks requests made with ctx as public: no Authorization header
// is sent and a 401 is returned as-is.
func WithoutAuth(ctx context.Context) context.Context {
	return context.WithValue(ctx, ContextPublicKey, true)
}

// RequiresAuth reports whether requests made with ctx carry the bearer token.
func RequiresAuth(ctx context.Context) bool {
	if v := ctx.Value(ContextPublicKey); v != nil {
		if public, ok := v.(bool); ok {
			return !public
		}
	}
	return true
}
