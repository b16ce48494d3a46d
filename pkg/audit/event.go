package audit

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const redacted = "[REDACTED]"

// sensitiveKeys are parameter names whose values never reach the log.
var sensitiveKeys = map[string]bool{
	"password":      true,
	"secret":        true,
	"client_secret": true,
	"token":         true,
	"access_token":  true,
	"api_key":       true,
	"authorization": true,
	"credentials":   true,
}

// NewEvent creates a new audit event.
func NewEvent(toolName string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		ToolName:  toolName,
	}
}

// WithSession adds the session and transport to the event.
func (e *Event) WithSession(sessionID, transport string) *Event {
	e.SessionID = sessionID
	e.Transport = transport
	return e
}

// WithToolkit adds toolkit information to the event.
func (e *Event) WithToolkit(kind, name string) *Event {
	e.ToolkitKind = kind
	e.ToolkitName = name
	return e
}

// WithParameters adds sanitized parameters to the event. A workspace
// argument is also copied to Workspace.
func (e *Event) WithParameters(params map[string]any) *Event {
	e.Parameters = SanitizeParameters(params)
	if ws, ok := params["workspace"].(string); ok {
		e.Workspace = ws
	}
	return e
}

// WithResult adds result information to the event.
func (e *Event) WithResult(success bool, errorMsg string, durationMS int64) *Event {
	e.Success = success
	e.ErrorMessage = errorMsg
	e.DurationMS = durationMS
	return e
}

// WithRequestID adds a request ID to the event.
func (e *Event) WithRequestID(requestID string) *Event {
	e.RequestID = requestID
	return e
}

// SanitizeParameters returns a copy of params with sensitive values redacted.
func SanitizeParameters(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	sanitized := make(map[string]any, len(params))
	for k, v := range params {
		if sensitiveKeys[strings.ToLower(k)] {
			sanitized[k] = redacted
			continue
		}
		sanitized[k] = v
	}
	return sanitized
}

// WithResponseChars records the size of the tool's text output.
func (e *Event) WithResponseChars(n int) *Event {
	e.ResponseChars = n
	return e
}
