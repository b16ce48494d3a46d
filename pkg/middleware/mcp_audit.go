package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-fabric/pkg/audit"
)

// auditLogTimeout bounds a single asynchronous audit write.
const auditLogTimeout = 10 * time.Second

// MCPAuditMiddleware creates MCP protocol-level middleware that records
// tools/call requests in the audit log.
//
// It must be installed outside MCPToolCallMiddleware so the ToolCallContext
// has been populated when the handler returns. Events are written
// asynchronously.
func MCPAuditMiddleware(logger audit.Logger) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
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

			// Rejected before the tool call middleware ran.
			if tc.ToolName == "" {
				return result, err
			}

			event := buildAuditEvent(tc, req, result)
			go func() {
				logCtx, cancel := context.WithTimeout(context.Background(), auditLogTimeout)
				defer cancel()
				if logErr := logger.Log(logCtx, event); logErr != nil {
					slog.Warn("audit log failed", "tool", event.ToolName, "error", logErr)
				}
			}()

			return result, err
		}
	}
}

// buildAuditEvent builds an audit event from a finished tool call.
func buildAuditEvent(tc *ToolCallContext, req mcp.Request, result mcp.Result) audit.Event {
	event := audit.NewEvent(tc.ToolName).
		WithRequestID(tc.RequestID).
		WithSession(tc.SessionID, tc.Transport).
		WithToolkit(tc.ToolkitKind, tc.ToolkitName).
		WithParameters(extractArguments(req)).
		WithResult(tc.Success, tc.ErrorMessage, tc.Duration.Milliseconds()).
		WithResponseChars(responseChars(result))
	event.Timestamp = tc.StartTime
	return *event
}
