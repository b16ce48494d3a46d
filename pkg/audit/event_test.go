package audit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

const (
	redactedValue       = "[REDACTED]"
	eventTestDurationMS = 100
	eventTestRespChars  = 500
)

func TestNewEvent(t *testing.T) {
	event := NewEvent("list_lakehouses")

	if event.ToolName != "list_lakehouses" {
		t.Errorf("ToolName = %q, want %q", event.ToolName, "list_lakehouses")
	}
	if len(event.ID) != 36 {
		t.Errorf("ID = %q, want a UUID", event.ID)
	}
	if event.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
	if other := NewEvent("x"); other.ID == event.ID {
		t.Error("event IDs should be unique")
	}
}

func TestEvent_Builders(t *testing.T) {
	event := NewEvent("create_lakehouse").
		WithSession("sess-1", "http").
		WithToolkit("fabric", "primary").
		WithParameters(map[string]any{"workspace": "Sales", "name": "Silver"}).
		WithResult(false, "Error creating lakehouse: boom", eventTestDurationMS).
		WithRequestID("req-123").
		WithResponseChars(eventTestRespChars)

	if event.SessionID != "sess-1" || event.Transport != "http" {
		t.Errorf("session = %q/%q", event.SessionID, event.Transport)
	}
	if event.ToolkitKind != "fabric" || event.ToolkitName != "primary" {
		t.Errorf("toolkit = %q/%q", event.ToolkitKind, event.ToolkitName)
	}
	if event.Workspace != "Sales" {
		t.Errorf("Workspace = %q, want %q", event.Workspace, "Sales")
	}
	if event.Parameters["name"] != "Silver" {
		t.Error("Parameters not set correctly")
	}
	if event.Success {
		t.Error("Success = true, want false")
	}
	if event.ErrorMessage != "Error creating lakehouse: boom" {
		t.Errorf("ErrorMessage = %q", event.ErrorMessage)
	}
	if event.DurationMS != eventTestDurationMS {
		t.Errorf("DurationMS = %d, want %d", event.DurationMS, eventTestDurationMS)
	}
	if event.RequestID != "req-123" {
		t.Errorf("RequestID = %q, want %q", event.RequestID, "req-123")
	}
	if event.ResponseChars != eventTestRespChars {
		t.Errorf("ResponseChars = %d, want %d", event.ResponseChars, eventTestRespChars)
	}
}

func TestSanitizeParameters(t *testing.T) {
	if SanitizeParameters(nil) != nil {
		t.Error("nil params should stay nil")
	}

	params := map[string]any{
		"workspace":     "Sales",
		"client_secret": "s3cr3t",
		"Token":         "abc",
		"password":      "pw",
	}
	got := SanitizeParameters(params)

	if got["workspace"] != "Sales" {
		t.Errorf("workspace = %v, want Sales", got["workspace"])
	}
	for _, k := range []string{"client_secret", "Token", "password"} {
		if got[k] != redactedValue {
			t.Errorf("%s = %v, want %s", k, got[k], redactedValue)
		}
	}
	if params["password"] != "pw" {
		t.Error("input map should not be modified")
	}
}

func TestSlogLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	event := NewEvent("list_workspaces").WithResult(true, "", 3)
	if err := logger.Log(context.Background(), *event); err != nil {
		t.Fatalf("Log() error = %v", err)
	}
	if !strings.Contains(buf.String(), `"tool":"list_workspaces"`) {
		t.Errorf("log output missing tool: %s", buf.String())
	}

	if _, err := logger.Query(context.Background(), QueryFilter{}); !errors.Is(err, ErrQueryUnsupported) {
		t.Errorf("Query() error = %v, want ErrQueryUnsupported", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if NewSlogLogger(nil).logger == nil {
		t.Error("nil logger should fall back to slog.Default")
	}
}
