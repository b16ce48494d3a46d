package admin

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

// contextKey is a private type for context keys in admin package.
type contextKey string

const adminUserKey contextKey = "admin_user"

// User identifies the authenticated operator.
type User struct {
	Name string
}

// GetUser returns the User from context, or nil if not set.
func GetUser(ctx context.Context) *User {
	u, _ := ctx.Value(adminUserKey).(*User)
	return u
}

// APIKey is a named admin credential.
type APIKey struct {
	Name string `yaml:"name"`
	Key  string `yaml:"key"`
}

// APIKeyAuthenticator validates admin access via API keys.
type APIKeyAuthenticator struct {
	keys []APIKey
}

// NewAPIKeyAuthenticator creates an authenticator for keys. Keys with an
// empty value are ignored.
func NewAPIKeyAuthenticator(keys []APIKey) *APIKeyAuthenticator {
	a := &APIKeyAuthenticator{}
	for _, k := range keys {
		if k.Key != "" {
			a.keys = append(a.keys, k)
		}
	}
	return a
}

// Authenticate checks the X-API-Key header, then a bearer token. It returns
// nil when no key matches.
func (a *APIKeyAuthenticator) Authenticate(r *http.Request) *User {
	key := r.Header.Get("X-API-Key")
	if key == "" {
		if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
			key = token
		}
	}
	if key == "" {
		return nil
	}
	for _, k := range a.keys {
		if subtle.ConstantTimeCompare([]byte(k.Key), []byte(key)) == 1 {
			return &User{Name: k.Name}
		}
	}
	return nil
}

// RequireAdmin creates middleware that rejects requests without a valid key.
func RequireAdmin(auth *APIKeyAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := auth.Authenticate(r)
			if user == nil {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			ctx := context.WithValue(r.Context(), adminUserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
