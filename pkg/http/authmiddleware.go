// Package http provides HTTP middleware for the MCP server.
package http

import (
	"net/http"

	"github.com/txn2/mcp-fabric/pkg/auth"
)

// TokenMiddleware extracts the caller's platform bearer token from the
// request and stores it in the context, where auth.PassthroughCredential
// picks it up. When requireToken is set, requests without a token get a
// 401 with a WWW-Authenticate challenge.
func TokenMiddleware(requireToken bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.TokenFromHeader(r.Header)

			if requireToken && token == "" {
				w.Header().Set("WWW-Authenticate", "Bearer")
				http.Error(w, "Unauthorized: missing platform token", http.StatusUnauthorized)
				return
			}

			if token != "" {
				r = r.WithContext(auth.WithToken(r.Context(), token))
			}
			next.ServeHTTP(w, r)
		})
	}
}
