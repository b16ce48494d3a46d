package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-fabric/pkg/auth"
)

const methodToolsCall = "tools/call"

// ToolkitLookup reports which toolkit owns a tool.
type ToolkitLookup func(toolName string) (kind, name string, ok bool)

// MCPToolCallMiddleware creates MCP protocol-level middleware that attaches a
// ToolCallContext to every tools/call request. Requests without a tool name
// are rejected before reaching a handler.
//
// The context is finalized after the handler returns, so middleware placed
// outside this one (audit, logging) can read the outcome.
func MCPToolCallMiddleware(lookup ToolkitLookup, transport string) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			if method != methodToolsCall {
				return next(ctx, method, req)
			}

			toolName, err := extractToolName(req)
			if err != nil {
				return createErrorResult(fmt.Sprintf("invalid request: %v", err)), nil
			}

			tc := GetToolCallContext(ctx)
			if tc == nil {
				tc = NewToolCallContext(uuid.NewString())
				ctx = WithToolCallContext(ctx, tc)
			}
			tc.ToolName = toolName
			tc.SessionID = extractSessionID(req)
			tc.Transport = transport
			if lookup != nil {
				if kind, name, ok := lookup(toolName); ok {
					tc.ToolkitKind = kind
					tc.ToolkitName = name
				}
			}

			ctx = withRequestToken(ctx, req)

			result, err := next(ctx, method, req)

			tc.Duration = time.Since(tc.StartTime)
			tc.Success, tc.ErrorMessage = outcome(result, err)
			return result, err
		}
	}
}

// withRequestToken copies the caller's platform token from the HTTP headers
// the request arrived with, unless the context already carries one.
func withRequestToken(ctx context.Context, req mcp.Request) context.Context {
	if auth.GetToken(ctx) != "" {
		return ctx
	}
	extra := req.GetExtra()
	if extra == nil {
		return ctx
	}
	if token := auth.TokenFromHeader(extra.Header); token != "" {
		return auth.WithToken(ctx, token)
	}
	return ctx
}

// extractToolName extracts the tool name from a tools/call request.
func extractToolName(req mcp.Request) (string, error) {
	callParams, err := callToolParams(req)
	if err != nil {
		return "", err
	}
	if callParams.Name == "" {
		return "", errors.New("missing tool name")
	}
	return callParams.Name, nil
}

// callToolParams returns the raw tools/call params of req.
func callToolParams(req mcp.Request) (*mcp.CallToolParamsRaw, error) {
	if req == nil {
		return nil, errors.New("missing params")
	}
	params := req.GetParams()
	if params == nil {
		return nil, errors.New("missing params")
	}
	callParams, ok := params.(*mcp.CallToolParamsRaw)
	if !ok {
		return nil, fmt.Errorf("unexpected params type: %T", params)
	}
	// A typed nil pointer passes the assertion above.
	if callParams == nil {
		return nil, errors.New("missing params")
	}
	return callParams, nil
}

// extractArguments decodes the call arguments, or returns nil.
func extractArguments(req mcp.Request) map[string]any {
	callParams, err := callToolParams(req)
	if err != nil || len(callParams.Arguments) == 0 {
		return nil
	}
	var args map[string]any
	if err := json.Unmarshal(callParams.Arguments, &args); err != nil {
		return nil
	}
	return args
}

// extractSessionID returns the MCP session id, or "" for sessionless
// transports.
func extractSessionID(req mcp.Request) string {
	if req == nil {
		return ""
	}
	ss, ok := req.GetSession().(*mcp.ServerSession)
	if !ok || ss == nil {
		return ""
	}
	return ss.ID()
}

// outcome derives success and an error message from a handler's return.
func outcome(result mcp.Result, err error) (bool, string) {
	if err != nil {
		return false, err.Error()
	}
	if callResult, ok := result.(*mcp.CallToolResult); ok && callResult != nil && callResult.IsError {
		return false, firstText(callResult)
	}
	return true, ""
}

// firstText returns the text of the first content block, if it is text.
func firstText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	if text, ok := result.Content[0].(*mcp.TextContent); ok {
		return text.Text
	}
	return ""
}

// responseChars counts the characters of all text content in result.
func responseChars(result mcp.Result) int {
	callResult, ok := result.(*mcp.CallToolResult)
	if !ok || callResult == nil {
		return 0
	}
	n := 0
	for _, c := range callResult.Content {
		if text, ok := c.(*mcp.TextContent); ok {
			n += len([]rune(text.Text))
		}
	}
	return n
}

// createErrorResult creates an MCP error result for a rejected call.
func createErrorResult(errMsg string) mcp.Result {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: errMsg},
		},
	}
}
