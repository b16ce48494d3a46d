package fabric

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"
)

const (
	testToken         = "test-token"
	testWorkspaceID   = "11111111-1111-1111-1111-111111111111"
	testWorkspaceName = "Sales"
	testLakehouseID   = "22222222-2222-2222-2222-222222222222"
	testLakehouseName = "Bronze"
	testWarehouseID   = "33333333-3333-3333-3333-333333333333"
	testWarehouseName = "Gold"
	testOtherID       = "44444444-4444-4444-4444-444444444444"
)

// fakePlatform is an httptest server with per-route call counters.
type fakePlatform struct {
	t   *testing.T
	mux *http.ServeMux
	srv *httptest.Server

	mu   sync.Mutex
	hits map[string]int
}

func newFakePlatform(t *testing.T) *fakePlatform {
	t.Helper()
	f := &fakePlatform{t: t, mux: http.NewServeMux(), hits: make(map[string]int)}
	f.srv = httptest.NewServer(f.mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakePlatform) handle(pattern string, h http.HandlerFunc) {
	f.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.hits[pattern]++
		f.mu.Unlock()
		h(w, r)
	})
}

func (f *fakePlatform) calls(pattern string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[pattern]
}

func (f *fakePlatform) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, v := range f.hits {
		n += v
	}
	return n
}

// url returns an absolute URL on the fake server.
func (f *fakePlatform) url(path string) string {
	return f.srv.URL + path
}

// client builds a Client against the fake server. mutate may adjust the
// config before New applies defaults.
func (f *fakePlatform) client(mutate func(*Config), opts ...Option) *Client {
	f.t.Helper()
	cfg := Config{BaseURL: f.srv.URL + "/v1"}
	if mutate != nil {
		mutate(&cfg)
	}
	base := []Option{WithHTTPClient(f.srv.Client()), WithLogger(slog.New(slog.DiscardHandler))}
	c, err := New(staticCredential(testToken), cfg, append(base, opts...)...)
	require.NoError(f.t, err)
	return c
}

// withWorkspaces serves the workspace listing and reverse lookup.
func (f *fakePlatform) withWorkspaces(workspaces ...Workspace) {
	f.handle("GET /v1/workspaces", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"value": workspaces})
	})
	f.handle("GET /v1/workspaces/{id}", func(w http.ResponseWriter, r *http.Request) {
		for _, ws := range workspaces {
			if ws.ID == r.PathValue("id") {
				writeJSON(w, http.StatusOK, ws)
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]any{"errorCode": "WorkspaceNotFound", "message": "The requested workspace was not found"})
	})
}

// withItems serves the typed item listing of one workspace.
func (f *fakePlatform) withItems(items ...Item) {
	f.handle("GET /v1/workspaces/{ws}/items", func(w http.ResponseWriter, r *http.Request) {
		kind := r.URL.Query().Get("type")
		out := make([]Item, 0, len(items))
		for _, it := range items {
			if kind == "" || string(it.Type) == kind {
				out = append(out, it)
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"value": out})
	})
}

func salesWorkspace() Workspace {
	return Workspace{ID: testWorkspaceID, DisplayName: testWorkspaceName, Type: "Workspace"}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func staticCredential(token string) Credential {
	return CredentialFunc(func(context.Context, string) (AccessToken, error) {
		return AccessToken{Token: token, ExpiresOn: time.Now().Add(time.Hour)}, nil
	})
}

// autoStep advances fc by step whenever something waits on it, until the
// test ends.
func autoStep(t *testing.T, fc *testingclock.FakeClock, step time.Duration) {
	t.Helper()
	done := make(chan struct{})
	t.Cleanup(func() { close(done) })
	go func() {
		for {
			select {
			case <-done:
				return
			default:
			}
			if fc.HasWaiters() {
				fc.Step(step)
			}
			time.Sleep(time.Millisecond)
		}
	}()
}
