package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/txn2/mcp-fabric/pkg/fabric"
)

// StaticCredential serves one pre-issued bearer token for every scope.
// When the token is a JWT its exp claim is read, without verifying the
// signature, so that an expired token fails locally.
type StaticCredential struct {
	token     string
	expiresOn time.Time
	now       func() time.Time
}

// NewStaticCredential creates a static credential.
func NewStaticCredential(token string) (*StaticCredential, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return nil, fmt.Errorf("static credential: %w", ErrNoToken)
	}
	return &StaticCredential{
		token:     token,
		expiresOn: tokenExpiry(token),
		now:       time.Now,
	}, nil
}

// GetToken implements fabric.Credential.
func (s *StaticCredential) GetToken(_ context.Context, _ string) (fabric.AccessToken, error) {
	if !s.expiresOn.IsZero() && !s.now().Before(s.expiresOn) {
		return fabric.AccessToken{}, fmt.Errorf("static credential: %w at %s", ErrTokenExpired, s.expiresOn.Format(time.RFC3339))
	}
	return fabric.AccessToken{Token: s.token, ExpiresOn: s.expiresOn}, nil
}

// tokenExpiry returns the exp claim of a JWT, or the zero time for opaque
// tokens and JWTs without exp.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

var _ fabric.Credential = (*StaticCredential)(nil)
