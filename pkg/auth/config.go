package auth

import (
	"fmt"

	"github.com/txn2/mcp-fabric/pkg/fabric"
)

// Credential types accepted in configuration.
const (
	TypeClientSecret = "client_secret"
	TypeCLI          = "cli"
	TypeStatic       = "static"
	TypePassthrough  = "passthrough"
	TypeChain        = "chain"
)

// Config selects and configures a credential.
type Config struct {
	// Type is one of client_secret, cli, static, passthrough or chain.
	// Empty means client_secret when a secret is configured and cli otherwise.
	Type string `yaml:"type"`

	TenantID      string `yaml:"tenant_id"`
	ClientID      string `yaml:"client_id"`
	ClientSecret  string `yaml:"client_secret"`
	AuthorityHost string `yaml:"authority_host"`

	// Token is used by the static type.
	Token string `yaml:"token"`

	// Chain lists the credentials tried in order by the chain type.
	Chain []Config `yaml:"chain"`
}

// New builds the credential described by cfg.
func New(cfg Config) (fabric.Credential, error) {
	switch cfg.effectiveType() {
	case TypeClientSecret:
		return NewClientSecretCredential(ClientSecretConfig{
			TenantID:      cfg.TenantID,
			ClientID:      cfg.ClientID,
			ClientSecret:  cfg.ClientSecret,
			AuthorityHost: cfg.AuthorityHost,
		})
	case TypeCLI:
		return NewCLICredential(cfg.TenantID), nil
	case TypeStatic:
		return NewStaticCredential(cfg.Token)
	case TypePassthrough:
		return PassthroughCredential{}, nil
	case TypeChain:
		if len(cfg.Chain) == 0 {
			return nil, fmt.Errorf("chain credential: at least one credential is required")
		}
		creds := make([]fabric.Credential, 0, len(cfg.Chain))
		for i, sub := range cfg.Chain {
			if sub.effectiveType() == TypeChain {
				return nil, fmt.Errorf("chain credential %d: chains cannot nest", i)
			}
			cred, err := New(sub)
			if err != nil {
				return nil, fmt.Errorf("chain credential %d: %w", i, err)
			}
			creds = append(creds, cred)
		}
		return NewChainedCredential(creds...), nil
	default:
		return nil, fmt.Errorf("unknown credential type %q", cfg.Type)
	}
}

func (c Config) effectiveType() string {
	if c.Type != "" {
		return c.Type
	}
	if c.ClientSecret != "" {
		return TypeClientSecret
	}
	return TypeCLI
}
