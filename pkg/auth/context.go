// Package auth provides credentials that supply bearer tokens to the
// platform client.
package auth

import (
	"context"
	"net/http"
	"strings"
)

// TokenHeader is an alternative to Authorization for clients whose own
// transport already uses the Authorization header.
const TokenHeader = "X-Fabric-Token"

// contextKey is a private type for context keys.
type contextKey int

const (
	tokenContextKey contextKey = iota
)

// WithToken adds a caller supplied bearer token to the context.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey, token)
}

// GetToken retrieves a token from the context.
func GetToken(ctx context.Context) string {
	if token, ok := ctx.Value(tokenContextKey).(string); ok {
		return token
	}
	return ""
}

// TokenFromHeader returns the bearer token of an Authorization header, or
// the value of TokenHeader.
func TokenFromHeader(h http.Header) string {
	if h == nil {
		return ""
	}
	if v := h.Get("Authorization"); strings.HasPrefix(v, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(v, "Bearer "))
	}
	return strings.TrimSpace(h.Get(TokenHeader))
}
