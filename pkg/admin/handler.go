// Package admin provides REST API endpoints for operating the server: audit
// review, the tool inventory and resolution cache control.
package admin

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/txn2/mcp-fabric/pkg/audit"
	"github.com/txn2/mcp-fabric/pkg/registry"
)

// PathPrefix is where the admin API is mounted.
const PathPrefix = "/api/v1/admin/"

// AuditQuerier reads stored audit events.
type AuditQuerier interface {
	Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error)
	Count(ctx context.Context, filter audit.QueryFilter) (int, error)
}

// Cache is the name resolution cache.
type Cache interface {
	Len() int
	Clear()
}

// Deps holds the components the admin API reads.
type Deps struct {
	Name      string
	Version   string
	Transport string

	// AuditQuerier is nil unless audit events are stored in PostgreSQL.
	AuditQuerier    AuditQuerier
	ToolkitRegistry *registry.Registry
	ResolveCache    Cache
	SessionStore    string
}

// Handler provides admin REST API endpoints.
type Handler struct {
	mux        *http.ServeMux
	deps       Deps
	authMiddle func(http.Handler) http.Handler
}

// NewHandler creates a new admin API handler.
func NewHandler(deps Deps, authMiddle func(http.Handler) http.Handler) *Handler {
	h := &Handler{
		mux:        http.NewServeMux(),
		deps:       deps,
		authMiddle: authMiddle,
	}
	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.authMiddle != nil {
		h.authMiddle(h.mux).ServeHTTP(w, r)
		return
	}
	h.mux.ServeHTTP(w, r)
}

// registerRoutes registers all admin API routes.
func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET "+PathPrefix+"system/info", h.getSystemInfo)
	h.mux.HandleFunc("GET "+PathPrefix+"tools", h.listTools)
	h.mux.HandleFunc("DELETE "+PathPrefix+"cache", h.clearCache)

	if h.deps.AuditQuerier != nil {
		h.mux.HandleFunc("GET "+PathPrefix+"audit/events", h.listAuditEvents)
		h.mux.HandleFunc("GET "+PathPrefix+"audit/stats", h.getAuditStats)
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
