package fabric

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/txn2/mcp-fabric/pkg/delta"
	fabricclient "github.com/txn2/mcp-fabric/pkg/fabric"
	"github.com/txn2/mcp-fabric/pkg/session"
)

const (
	testWorkspaceID   = "11111111-1111-1111-1111-111111111111"
	testWorkspaceName = "Sales"
	testLakehouseID   = "22222222-2222-2222-2222-222222222222"
	testLakehouseName = "Bronze"
	testWarehouseID   = "33333333-3333-3333-3333-333333333333"
	testWarehouseName = "Gold"
	testReportID      = "55555555-5555-5555-5555-555555555555"
	testNotebookID    = "66666666-6666-6666-6666-666666666666"

	ordersLocation    = "abfss://ws@onelake.dfs.fabric.microsoft.com/lh/Tables/orders"
	customersLocation = "abfss://ws@onelake.dfs.fabric.microsoft.com/lh/Tables/customers"
)

// fakeAPI serves a small workspace with one lakehouse, one warehouse, one
// report and one notebook.
type fakeAPI struct {
	srv *httptest.Server

	mu      sync.Mutex
	created []fabricclient.CreateItemRequest
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{}
	items := []fabricclient.Item{
		{ID: testLakehouseID, DisplayName: testLakehouseName, Type: fabricclient.KindLakehouse, Description: "raw data"},
		{ID: testWarehouseID, DisplayName: testWarehouseName, Type: fabricclient.KindWarehouse},
		{ID: testReportID, DisplayName: "Revenue", Type: fabricclient.KindReport},
		{ID: testNotebookID, DisplayName: "Explore", Type: fabricclient.KindNotebook},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/workspaces", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"value": []fabricclient.Workspace{
			{ID: testWorkspaceID, DisplayName: testWorkspaceName, CapacityID: "cap-1"},
		}})
	})
	mux.HandleFunc("GET /v1/workspaces/{ws}/items", func(w http.ResponseWriter, r *http.Request) {
		kind := r.URL.Query().Get("type")
		out := make([]fabricclient.Item, 0, len(items))
		for _, it := range items {
			if kind == "" || string(it.Type) == kind {
				out = append(out, it)
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"value": out})
	})
	mux.HandleFunc("GET /v1/workspaces/{ws}/{segment}/{id}", func(w http.ResponseWriter, r *http.Request) {
		for _, it := range items {
			if it.ID == r.PathValue("id") {
				writeJSON(w, http.StatusOK, it)
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]any{"errorCode": "ItemNotFound"})
	})
	mux.HandleFunc("GET /v1/workspaces/{ws}/lakehouses/{id}/tables", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": []fabricclient.Table{
			{Name: "orders", Type: "Managed", Format: "Delta", Location: ordersLocation},
			{Name: "customers", Type: "Managed", Format: "delta", Location: customersLocation},
			{Name: "raw_csv", Type: "External", Format: "CSV", Location: "abfss://x/raw"},
		}})
	})
	mux.HandleFunc("POST /v1/workspaces/{ws}/{segment}", func(w http.ResponseWriter, r *http.Request) {
		var req fabricclient.CreateItemRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.created = append(f.created, req)
		f.mu.Unlock()
		writeJSON(w, http.StatusCreated, fabricclient.Item{ID: "77777777-7777-7777-7777-777777777777", DisplayName: req.DisplayName})
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) client(t *testing.T) *fabricclient.Client {
	t.Helper()
	cred := fabricclient.CredentialFunc(func(context.Context, string) (fabricclient.AccessToken, error) {
		return fabricclient.AccessToken{Token: "test-token", ExpiresOn: time.Now().Add(time.Hour)}, nil
	})
	c, err := fabricclient.New(cred, fabricclient.Config{BaseURL: f.srv.URL + "/v1"},
		fabricclient.WithHTTPClient(f.srv.Client()),
		fabricclient.WithLogger(slog.New(slog.DiscardHandler)),
	)
	require.NoError(t, err)
	return c
}

func (f *fakeAPI) createdRequests() []fabricclient.CreateItemRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fabricclient.CreateItemRequest(nil), f.created...)
}

// fakeSchemas returns canned metadata per location.
type fakeSchemas struct {
	mu    sync.Mutex
	reads []string
	fail  map[string]error
}

func (f *fakeSchemas) ReadMetadata(_ context.Context, location string) (*delta.Metadata, error) {
	f.mu.Lock()
	f.reads = append(f.reads, location)
	err := f.fail[location]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	name := location[strings.LastIndex(location, "/")+1:]
	return &delta.Metadata{
		ID:               name + "-id",
		PartitionColumns: []string{"region"},
		Configuration:    map[string]string{"delta.appendOnly": "false"},
		Version:          3,
		LatestVersion:    4,
		Schema: delta.Schema{Fields: []delta.Field{
			{Name: name + "_id", Type: "long"},
			{Name: "region", Type: "string", Nullable: true},
		}},
	}, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// harness connects a client session to a server carrying the toolkit.
type harness struct {
	api     *fakeAPI
	schemas *fakeSchemas
	store   *session.MemoryStore
	toolkit *Toolkit
	session *mcp.ClientSession
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{
		api:     newFakeAPI(t),
		schemas: &fakeSchemas{},
		store:   session.NewMemoryStore(session.DefaultTTL, session.DefaultMaxEntries),
	}
	tk, err := New("fabric", cfg, h.api.client(t), h.schemas, h.store)
	require.NoError(t, err)
	h.toolkit = tk

	server := mcp.NewServer(&mcp.Implementation{Name: "test-server", Version: "v0.0.1"}, nil)
	tk.RegisterTools(server)

	ctx := context.Background()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	h.session = cs
	return h
}

// call invokes a tool and returns its text and error flag.
func (h *harness) call(t *testing.T, tool string, args map[string]any) (string, bool) {
	t.Helper()
	if args == nil {
		args = map[string]any{}
	}
	res, err := h.session.CallTool(context.Background(), &mcp.CallToolParams{Name: tool, Arguments: args})
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text, res.IsError
}
