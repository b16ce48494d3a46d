package auth

import (
	"context"
	"fmt"

	"github.com/txn2/mcp-fabric/pkg/fabric"
)

// PassthroughCredential forwards the bearer token the MCP client sent with
// its HTTP request. It only works behind the HTTP token middleware.
type PassthroughCredential struct{}

// GetToken implements fabric.Credential.
func (PassthroughCredential) GetToken(ctx context.Context, _ string) (fabric.AccessToken, error) {
	token := GetToken(ctx)
	if token == "" {
		return fabric.AccessToken{}, fmt.Errorf("passthrough credential: %w in request", ErrNoToken)
	}
	return fabric.AccessToken{Token: token, ExpiresOn: tokenExpiry(token)}, nil
}

var _ fabric.Credential = PassthroughCredential{}
