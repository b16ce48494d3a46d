package middleware

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// sessionLogger abstracts the ServerSession.Log method for testability.
type sessionLogger interface {
	Log(ctx context.Context, params *mcp.LoggingMessageParams) error
}

// LoggingConfig configures tool call logging.
type LoggingConfig struct {
	// ToolCalls logs every tool call to the server log.
	ToolCalls bool `yaml:"tool_calls"`

	// Client forwards failed tool calls to the client as log notifications.
	Client bool `yaml:"client"`
}

// MCPLoggingMiddleware creates MCP protocol-level middleware that logs
// tools/call outcomes. It reads the ToolCallContext and must be installed
// outside MCPToolCallMiddleware.
//
// Client notifications only reach clients that called logging/setLevel;
// otherwise ServerSession.Log is a silent no-op.
func MCPLoggingMiddleware(cfg LoggingConfig, logger *slog.Logger) mcp.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		if !cfg.ToolCalls && !cfg.Client {
			return next
		}

		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			if method != methodToolsCall {
				return next(ctx, method, req)
			}

			tc := GetToolCallContext(ctx)
			if tc == nil {
				tc = NewToolCallContext("")
				ctx = WithToolCallContext(ctx, tc)
			}

			result, err := next(ctx, method, req)
			if tc.ToolName == "" {
				return result, err
			}

			if cfg.ToolCalls {
				logToolCall(ctx, logger, tc)
			}
			if cfg.Client && !tc.Success && req != nil {
				if ss, ok := req.GetSession().(*mcp.ServerSession); ok && ss != nil {
					emitClientLog(ctx, ss, tc)
				}
			}
			return result, err
		}
	}
}

func logToolCall(ctx context.Context, logger *slog.Logger, tc *ToolCallContext) {
	attrs := []any{
		"tool", tc.ToolName,
		"request_id", tc.RequestID,
		"session_id", tc.SessionID,
		"duration_ms", tc.Duration.Milliseconds(),
		"success", tc.Success,
	}
	if tc.Success {
		logger.InfoContext(ctx, "tool call", attrs...)
		return
	}
	logger.WarnContext(ctx, "tool call failed", append(attrs, "error", tc.ErrorMessage)...)
}

// emitClientLog sends a warning notification about a failed call.
func emitClientLog(ctx context.Context, logger sessionLogger, tc *ToolCallContext) {
	if err := logger.Log(ctx, &mcp.LoggingMessageParams{
		Level:  "warning",
		Logger: "mcp-fabric",
		Data:   tc.ToolName + ": " + tc.ErrorMessage,
	}); err != nil {
		slog.Debug("client logging: failed to send log notification", "error", err)
	}
}
