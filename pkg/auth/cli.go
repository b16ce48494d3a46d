package auth

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/txn2/mcp-fabric/pkg/fabric"
)

// refreshSkew renews cached tokens this long before they expire.
const refreshSkew = 2 * time.Minute

// CommandRunner runs an external command and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// CLICredential asks the Azure CLI for tokens of the signed-in account.
// Tokens are cached per scope until shortly before they expire.
type CLICredential struct {
	tenantID string
	run      CommandRunner
	now      func() time.Time

	mu     sync.Mutex
	tokens map[string]fabric.AccessToken
}

// NewCLICredential creates a CLI credential. tenantID may be empty.
func NewCLICredential(tenantID string) *CLICredential {
	return &CLICredential{
		tenantID: tenantID,
		run:      execRunner,
		now:      time.Now,
		tokens:   make(map[string]fabric.AccessToken),
	}
}

// GetToken implements fabric.Credential.
func (c *CLICredential) GetToken(ctx context.Context, scope string) (fabric.AccessToken, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tok, ok := c.tokens[scope]; ok && c.now().Add(refreshSkew).Before(tok.ExpiresOn) {
		return tok, nil
	}

	args := []string{"account", "get-access-token", "--output", "json", "--scope", scope}
	if c.tenantID != "" {
		args = append(args, "--tenant", c.tenantID)
	}
	out, err := c.run(ctx, "az", args...)
	if err != nil {
		return fabric.AccessToken{}, fmt.Errorf("cli credential: %w", err)
	}

	tok, err := parseCLIToken(out)
	if err != nil {
		return fabric.AccessToken{}, fmt.Errorf("cli credential: %w", err)
	}
	c.tokens[scope] = tok
	return tok, nil
}

// parseCLIToken reads accessToken and the expiry from az output. Newer CLI
// versions emit expires_on as unix seconds; older ones only expiresOn in
// local time.
func parseCLIToken(out []byte) (fabric.AccessToken, error) {
	if !gjson.ValidBytes(out) {
		return fabric.AccessToken{}, fmt.Errorf("unexpected output: %s", strings.TrimSpace(string(out)))
	}
	token := gjson.GetBytes(out, "accessToken").String()
	if token == "" {
		return fabric.AccessToken{}, ErrNoToken
	}

	var expires time.Time
	if v := gjson.GetBytes(out, "expires_on"); v.Exists() && v.Int() > 0 {
		expires = time.Unix(v.Int(), 0)
	} else if v := gjson.GetBytes(out, "expiresOn"); v.Exists() {
		if t, err := time.ParseInLocation("2006-01-02 15:04:05.999999", v.String(), time.Local); err == nil {
			expires = t
		}
	}
	return fabric.AccessToken{Token: token, ExpiresOn: expires}, nil
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.Output()
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) && len(ee.Stderr) > 0 {
			return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(ee.Stderr)))
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

var _ fabric.Credential = (*CLICredential)(nil)
