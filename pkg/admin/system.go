package admin

import (
	"log/slog"
	"net/http"
	"sort"
)

// systemInfoResponse is returned by GET /system/info.
type systemInfoResponse struct {
	Name         string         `json:"name"`
	Version      string         `json:"version"`
	Transport    string         `json:"transport"`
	SessionStore string         `json:"session_store"`
	Features     systemFeatures `json:"features"`
	ToolkitCount int            `json:"toolkit_count"`
	CacheEntries int            `json:"cache_entries"`
}

// systemFeatures lists features available at runtime.
type systemFeatures struct {
	AuditQuery bool `json:"audit_query"`
}

// getSystemInfo handles GET /api/v1/admin/system/info.
func (h *Handler) getSystemInfo(w http.ResponseWriter, _ *http.Request) {
	resp := systemInfoResponse{
		Name:         h.deps.Name,
		Version:      h.deps.Version,
		Transport:    h.deps.Transport,
		SessionStore: h.deps.SessionStore,
		Features:     systemFeatures{AuditQuery: h.deps.AuditQuerier != nil},
	}
	if h.deps.ToolkitRegistry != nil {
		resp.ToolkitCount = len(h.deps.ToolkitRegistry.All())
	}
	if h.deps.ResolveCache != nil {
		resp.CacheEntries = h.deps.ResolveCache.Len()
	}
	writeJSON(w, http.StatusOK, resp)
}

// toolInfo describes a single tool and its owning toolkit.
type toolInfo struct {
	Name    string `json:"name"`
	Toolkit string `json:"toolkit"`
	Kind    string `json:"kind"`
}

// toolListResponse wraps a list of tools.
type toolListResponse struct {
	Tools []toolInfo `json:"tools"`
	Total int        `json:"total"`
}

// listTools handles GET /api/v1/admin/tools.
func (h *Handler) listTools(w http.ResponseWriter, _ *http.Request) {
	tools := []toolInfo{}
	if h.deps.ToolkitRegistry != nil {
		for _, tk := range h.deps.ToolkitRegistry.All() {
			for _, name := range tk.Tools() {
				tools = append(tools, toolInfo{Name: name, Toolkit: tk.Name(), Kind: tk.Kind()})
			}
		}
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	writeJSON(w, http.StatusOK, toolListResponse{Tools: tools, Total: len(tools)})
}

// clearCacheResponse reports how many resolutions were dropped.
type clearCacheResponse struct {
	Cleared int `json:"cleared"`
}

// clearCache handles DELETE /api/v1/admin/cache. It drops every memoized
// name resolution for all sessions.
func (h *Handler) clearCache(w http.ResponseWriter, r *http.Request) {
	if h.deps.ResolveCache == nil {
		writeJSON(w, http.StatusOK, clearCacheResponse{})
		return
	}
	n := h.deps.ResolveCache.Len()
	h.deps.ResolveCache.Clear()

	operator := ""
	if u := GetUser(r.Context()); u != nil {
		operator = u.Name
	}
	slog.Info("resolution cache cleared", "entries", n, "operator", operator)
	writeJSON(w, http.StatusOK, clearCacheResponse{Cleared: n})
}
