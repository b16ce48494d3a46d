package platform

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/txn2/mcp-fabric/pkg/audit"
	"github.com/txn2/mcp-fabric/pkg/fabric"
)

const (
	testWorkspaceID = "11111111-1111-1111-1111-111111111111"
	testLakehouseID = "22222222-2222-2222-2222-222222222222"
)

// newTestAPI serves one workspace "Sales" holding the lakehouse "Bronze".
func newTestAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/workspaces", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"value": []fabric.Workspace{{ID: testWorkspaceID, DisplayName: "Sales"}}})
	})
	mux.HandleFunc("GET /v1/workspaces/{ws}/items", func(w http.ResponseWriter, r *http.Request) {
		items := []fabric.Item{}
		if kind := r.URL.Query().Get("type"); kind == "" || kind == string(fabric.KindLakehouse) {
			items = append(items, fabric.Item{ID: testLakehouseID, DisplayName: "Bronze", Type: fabric.KindLakehouse})
		}
		writeJSON(w, map[string]any{"value": items})
	})
	mux.HandleFunc("GET /v1/workspaces/{ws}/lakehouses/{id}/tables", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"data": []fabric.Table{{Name: "orders", Type: "Managed", Format: "Delta"}}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func testCredential() fabric.Credential {
	return fabric.CredentialFunc(func(context.Context, string) (fabric.AccessToken, error) {
		return fabric.AccessToken{Token: "test-token", ExpiresOn: time.Now().Add(time.Hour)}, nil
	})
}

// testConfig returns a defaulted config pointing at srv.
func testConfig(srv *httptest.Server) *Config {
	cfg := &Config{}
	cfg.Fabric.API.BaseURL = srv.URL + "/v1"
	cfg.Fabric.Delta.Disabled = true
	applyDefaults(cfg)
	return cfg
}

// newTestPlatform builds a platform against srv with extra options.
func newTestPlatform(t *testing.T, cfg *Config, srv *httptest.Server, opts ...Option) *Platform {
	t.Helper()
	opts = append([]Option{
		WithConfig(cfg),
		WithCredential(testCredential()),
		WithHTTPClient(srv.Client()),
		WithLogger(slog.New(slog.DiscardHandler)),
	}, opts...)
	p, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

// connectTestClient connects an in-memory MCP client to a server.
func connectTestClient(t *testing.T, server *mcp.Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	t1, t2 := mcp.NewInMemoryTransports()

	serverSession, err := server.Connect(ctx, t1, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0"}, nil)
	clientSession, err := client.Connect(ctx, t2, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = clientSession.Close() })
	return clientSession
}

// capturingAuditLogger records audit events.
type capturingAuditLogger struct {
	mu     sync.Mutex
	events []audit.Event
	closed bool
}

func (c *capturingAuditLogger) Log(_ context.Context, e audit.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func (*capturingAuditLogger) Query(context.Context, audit.QueryFilter) ([]audit.Event, error) {
	return nil, audit.ErrQueryUnsupported
}

func (c *capturingAuditLogger) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *capturingAuditLogger) Events() []audit.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]audit.Event(nil), c.events...)
}
