package fabric

import (
	"context"
	"time"
)

// AccessToken is a bearer token and its expiry.
type AccessToken struct {
	Token     string
	ExpiresOn time.Time
}

// Credential supplies bearer tokens. Implementations are expected to cache
// and refresh tokens themselves; the client asks on every request.
type Credential interface {
	GetToken(ctx context.Context, scope string) (AccessToken, error)
}

// CredentialFunc adapts a function to the Credential interface.
type CredentialFunc func(ctx context.Context, scope string) (AccessToken, error)

// GetToken calls f.
func (f CredentialFunc) GetToken(ctx context.Context, scope string) (AccessToken, error) {
	return f(ctx, scope)
}
