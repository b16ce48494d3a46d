package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/txn2/mcp-fabric/pkg/fabric"
)

// DefaultAuthorityHost is the identity provider used for client secrets.
const DefaultAuthorityHost = "https://login.microsoftonline.com"

// ClientSecretConfig configures a service principal.
type ClientSecretConfig struct {
	TenantID      string
	ClientID      string
	ClientSecret  string
	AuthorityHost string
}

// ClientSecretCredential obtains tokens with the OAuth2 client credentials
// grant. Each scope gets its own reusing token source, so tokens are
// refreshed only when they expire.
type ClientSecretCredential struct {
	cfg      ClientSecretConfig
	tokenURL string

	mu      sync.Mutex
	sources map[string]oauth2.TokenSource
}

// NewClientSecretCredential creates a client secret credential.
func NewClientSecretCredential(cfg ClientSecretConfig) (*ClientSecretCredential, error) {
	if cfg.TenantID == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("client secret credential: tenant_id, client_id and client_secret are required")
	}
	host := cfg.AuthorityHost
	if host == "" {
		host = DefaultAuthorityHost
	}
	return &ClientSecretCredential{
		cfg:      cfg,
		tokenURL: strings.TrimRight(host, "/") + "/" + cfg.TenantID + "/oauth2/v2.0/token",
		sources:  make(map[string]oauth2.TokenSource),
	}, nil
}

// GetToken implements fabric.Credential.
func (c *ClientSecretCredential) GetToken(ctx context.Context, scope string) (fabric.AccessToken, error) {
	tok, err := c.source(ctx, scope).Token()
	if err != nil {
		return fabric.AccessToken{}, fmt.Errorf("client secret credential: %w", err)
	}
	return fabric.AccessToken{Token: tok.AccessToken, ExpiresOn: tok.Expiry}, nil
}

func (c *ClientSecretCredential) source(ctx context.Context, scope string) oauth2.TokenSource {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ts, ok := c.sources[scope]; ok {
		return ts
	}
	cc := &clientcredentials.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		TokenURL:     c.tokenURL,
		Scopes:       []string{scope},
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	// The token source outlives this call, so it must not inherit its cancellation.
	ts := cc.TokenSource(context.WithoutCancel(ctx))
	c.sources[scope] = ts
	return ts
}

var _ fabric.Credential = (*ClientSecretCredential)(nil)
