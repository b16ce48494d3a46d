package audit

import (
	"context"
	"log/slog"
)

// SlogLogger writes audit events to a structured logger. It is used when
// auditing is enabled without a database.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger creates a SlogLogger. A nil logger uses slog.Default.
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogLogger{logger: logger}
}

// Log writes the event at info level.
func (l *SlogLogger) Log(ctx context.Context, e Event) error {
	l.logger.InfoContext(ctx, "audit",
		"id", e.ID,
		"request_id", e.RequestID,
		"session_id", e.SessionID,
		"tool", e.ToolName,
		"workspace", e.Workspace,
		"success", e.Success,
		"error", e.ErrorMessage,
		"duration_ms", e.DurationMS,
		"response_chars", e.ResponseChars,
		"parameters", e.Parameters,
	)
	return nil
}

// Query is not supported.
func (*SlogLogger) Query(context.Context, QueryFilter) ([]Event, error) {
	return nil, ErrQueryUnsupported
}

// Close does nothing.
func (*SlogLogger) Close() error {
	return nil
}

// Verify interface compliance.
var _ Logger = (*SlogLogger)(nil)
