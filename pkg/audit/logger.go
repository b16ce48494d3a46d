// Package audit records tool calls for later review.
package audit

import (
	"context"
	"errors"
	"time"
)

// ErrQueryUnsupported is returned by loggers that cannot read events back.
var ErrQueryUnsupported = errors.New("audit logger does not support queries")

// Logger defines the interface for audit logging.
type Logger interface {
	// Log records an audit event.
	Log(ctx context.Context, event Event) error

	// Query retrieves audit events matching the filter.
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)

	// Close releases resources.
	Close() error
}

// Event is one audited tool call.
type Event struct {
	ID            string         `json:"id"`
	Timestamp     time.Time      `json:"timestamp"`
	DurationMS    int64          `json:"duration_ms"`
	RequestID     string         `json:"request_id"`
	SessionID     string         `json:"session_id"`
	ToolName      string         `json:"tool_name"`
	ToolkitKind   string         `json:"toolkit_kind,omitempty"`
	ToolkitName   string         `json:"toolkit_name,omitempty"`
	Workspace     string         `json:"workspace,omitempty"`
	Parameters    map[string]any `json:"parameters,omitempty"`
	Success       bool           `json:"success"`
	ErrorMessage  string         `json:"error_message,omitempty"`
	ResponseChars int            `json:"response_chars"`
	Transport     string         `json:"transport,omitempty"`
}

// QueryFilter defines criteria for querying audit events.
type QueryFilter struct {
	StartTime *time.Time
	EndTime   *time.Time
	SessionID string
	ToolName  string
	Workspace string
	Success   *bool
	Limit     int
	Offset    int
}

// Config configures audit logging.
type Config struct {
	Enabled       bool `yaml:"enabled"`
	RetentionDays int  `yaml:"retention_days"`
}
