// Package middleware provides MCP protocol-level middleware for tool calls.
package middleware

import (
	"context"
	"time"
)

// contextKey is a private type for context keys.
type contextKey int

const toolCallContextKey contextKey = iota

// ToolCallContext holds per-call metadata shared by the middleware chain.
type ToolCallContext struct {
	RequestID string
	SessionID string
	StartTime time.Time

	ToolName    string
	ToolkitKind string
	ToolkitName string

	// Transport is "stdio" or "http".
	Transport string

	// Results, populated after the handler returns.
	Success      bool
	ErrorMessage string
	Duration     time.Duration
}

// NewToolCallContext creates a new tool call context.
func NewToolCallContext(requestID string) *ToolCallContext {
	return &ToolCallContext{
		RequestID: requestID,
		StartTime: time.Now(),
	}
}

// WithToolCallContext adds a tool call context to ctx.
func WithToolCallContext(ctx context.Context, tc *ToolCallContext) context.Context {
	return context.WithValue(ctx, toolCallContextKey, tc)
}

// GetToolCallContext retrieves the tool call context, or nil.
func GetToolCallContext(ctx context.Context) *ToolCallContext {
	if tc, ok := ctx.Value(toolCallContextKey).(*ToolCallContext); ok {
		return tc
	}
	return nil
}
