package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/txn2/mcp-fabric/pkg/fabric"
)

// ChainedCredential tries credentials in order and sticks with the first
// one that succeeds.
type ChainedCredential struct {
	credentials []fabric.Credential
	selected    atomic.Int32
}

// NewChainedCredential creates a chained credential.
func NewChainedCredential(credentials ...fabric.Credential) *ChainedCredential {
	c := &ChainedCredential{credentials: credentials}
	c.selected.Store(-1)
	return c
}

// GetToken implements fabric.Credential.
func (c *ChainedCredential) GetToken(ctx context.Context, scope string) (fabric.AccessToken, error) {
	if i := c.selected.Load(); i >= 0 {
		tok, err := c.credentials[i].GetToken(ctx, scope)
		if err == nil {
			return tok, nil
		}
		slog.Debug("selected credential failed, retrying chain", "index", i, "error", err)
	}

	var errs []error
	for i, cred := range c.credentials {
		tok, err := cred.GetToken(ctx, scope)
		if err == nil {
			c.selected.Store(int32(i)) //nolint:gosec // chains are tiny
			return tok, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return fabric.AccessToken{}, fmt.Errorf("chained credential: %w", ErrNoToken)
	}
	return fabric.AccessToken{}, fmt.Errorf("chained credential: %w", errors.Join(errs...))
}

var _ fabric.Credential = (*ChainedCredential)(nil)
