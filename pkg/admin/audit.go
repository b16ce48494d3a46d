package admin

import (
	"net/http"

	"github.com/txn2/mcp-fabric/pkg/audit"
)

const defaultAuditLimit = 50

// auditEventResponse wraps a paginated list of audit events.
type auditEventResponse struct {
	Data    []audit.Event `json:"data"`
	Total   int           `json:"total"`
	Page    int           `json:"page"`
	PerPage int           `json:"per_page"`
}

// auditStatsResponse holds aggregate audit statistics.
type auditStatsResponse struct {
	Total    int `json:"total"`
	Success  int `json:"success"`
	Failures int `json:"failures"`
}

// parseAuditFilter reads the filter parameters shared by the audit endpoints.
func parseAuditFilter(r *http.Request) audit.QueryFilter {
	q := r.URL.Query()
	return audit.QueryFilter{
		StartTime: parseTimeParam(q, "start_time"),
		EndTime:   parseTimeParam(q, "end_time"),
		SessionID: q.Get("session_id"),
		ToolName:  q.Get("tool_name"),
		Workspace: q.Get("workspace"),
		Success:   parseBoolParam(q, "success"),
	}
}

// listAuditEvents handles GET /api/v1/admin/audit/events.
//
// Query parameters: start_time, end_time (RFC 3339), session_id, tool_name,
// workspace, success, page (1-based) and per_page.
func (h *Handler) listAuditEvents(w http.ResponseWriter, r *http.Request) {
	filter := parseAuditFilter(r)
	q := r.URL.Query()
	filter.Limit = parseLimit(q, defaultAuditLimit)
	filter.Offset = parsePageOffset(q, filter.Limit)

	events, err := h.deps.AuditQuerier.Query(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to query audit events")
		return
	}

	// Count without limit/offset for total
	countFilter := filter
	countFilter.Limit = 0
	countFilter.Offset = 0
	total, err := h.deps.AuditQuerier.Count(r.Context(), countFilter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count audit events")
		return
	}

	if events == nil {
		events = []audit.Event{}
	}
	writeJSON(w, http.StatusOK, auditEventResponse{
		Data:    events,
		Total:   total,
		Page:    filter.Offset/filter.Limit + 1,
		PerPage: filter.Limit,
	})
}

// getAuditStats handles GET /api/v1/admin/audit/stats. It takes the same
// filters as the event list, except success.
func (h *Handler) getAuditStats(w http.ResponseWriter, r *http.Request) {
	baseFilter := parseAuditFilter(r)
	baseFilter.Success = nil

	total, err := h.deps.AuditQuerier.Count(r.Context(), baseFilter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count audit events")
		return
	}

	successVal := true
	successFilter := baseFilter
	successFilter.Success = &successVal
	successCount, err := h.deps.AuditQuerier.Count(r.Context(), successFilter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count successful events")
		return
	}

	writeJSON(w, http.StatusOK, auditStatsResponse{
		Total:    total,
		Success:  successCount,
		Failures: total - successCount,
	})
}
