package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/mcp-fabric/pkg/auth"
)

const testToolName = "list_lakehouses"

func newCallRequest(t *testing.T, toolName string, args map[string]any) *mcp.ServerRequest[*mcp.CallToolParamsRaw] {
	t.Helper()
	var raw json.RawMessage
	if args != nil {
		var err error
		raw, err = json.Marshal(args)
		require.NoError(t, err)
	}
	return &mcp.ServerRequest[*mcp.CallToolParamsRaw]{
		Params: &mcp.CallToolParamsRaw{Name: toolName, Arguments: raw},
	}
}

func fabricLookup(name string) (kind, toolkit string, ok bool) {
	if name == testToolName {
		return "fabric", "default", true
	}
	return "", "", false
}

func TestMCPToolCallMiddleware_NonToolsCallPassthrough(t *testing.T) {
	mw := MCPToolCallMiddleware(fabricLookup, "stdio")
	called := false
	next := func(ctx context.Context, _ string, _ mcp.Request) (mcp.Result, error) {
		called = true
		assert.Nil(t, GetToolCallContext(ctx))
		return &mcp.ListToolsResult{}, nil
	}

	result, err := mw(next)(context.Background(), "tools/list", nil)
	require.NoError(t, err)
	assert.True(t, called)
	assert.IsType(t, &mcp.ListToolsResult{}, result)
}

func TestMCPToolCallMiddleware_PopulatesContext(t *testing.T) {
	mw := MCPToolCallMiddleware(fabricLookup, "http")
	var seen *ToolCallContext
	next := func(ctx context.Context, _ string, _ mcp.Request) (mcp.Result, error) {
		seen = GetToolCallContext(ctx)
		return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: "ok"}}}, nil
	}

	_, err := mw(next)(context.Background(), methodToolsCall, newCallRequest(t, testToolName, nil))
	require.NoError(t, err)
	require.NotNil(t, seen)
	assert.NotEmpty(t, seen.RequestID)
	assert.Equal(t, testToolName, seen.ToolName)
	assert.Equal(t, "fabric", seen.ToolkitKind)
	assert.Equal(t, "default", seen.ToolkitName)
	assert.Equal(t, "http", seen.Transport)
	assert.Empty(t, seen.SessionID)
	assert.True(t, seen.Success)
	assert.Empty(t, seen.ErrorMessage)
}

func TestMCPToolCallMiddleware_ReusesOuterContext(t *testing.T) {
	mw := MCPToolCallMiddleware(nil, "stdio")
	outer := NewToolCallContext("req-outer")
	ctx := WithToolCallContext(context.Background(), outer)

	next := func(_ context.Context, _ string, _ mcp.Request) (mcp.Result, error) {
		return createErrorResult(`workspace "Nope" not found`), nil
	}

	_, err := mw(next)(ctx, methodToolsCall, newCallRequest(t, "get_item", nil))
	require.NoError(t, err)
	assert.Equal(t, "req-outer", outer.RequestID)
	assert.Equal(t, "get_item", outer.ToolName)
	assert.Empty(t, outer.ToolkitKind)
	assert.False(t, outer.Success)
	assert.Equal(t, `workspace "Nope" not found`, outer.ErrorMessage)
	assert.GreaterOrEqual(t, outer.Duration, time.Duration(0))
}

func TestMCPToolCallMiddleware_HandlerError(t *testing.T) {
	mw := MCPToolCallMiddleware(nil, "stdio")
	outer := NewToolCallContext("req-err")
	ctx := WithToolCallContext(context.Background(), outer)
	next := func(_ context.Context, _ string, _ mcp.Request) (mcp.Result, error) {
		return nil, assert.AnError
	}

	_, err := mw(next)(ctx, methodToolsCall, newCallRequest(t, testToolName, nil))
	require.ErrorIs(t, err, assert.AnError)
	assert.False(t, outer.Success)
	assert.Equal(t, assert.AnError.Error(), outer.ErrorMessage)
}

func TestMCPToolCallMiddleware_RequestToken(t *testing.T) {
	mw := MCPToolCallMiddleware(nil, "http")
	var got string
	next := func(ctx context.Context, _ string, _ mcp.Request) (mcp.Result, error) {
		got = auth.GetToken(ctx)
		return &mcp.CallToolResult{}, nil
	}

	req := newCallRequest(t, testToolName, nil)
	req.Extra = &mcp.RequestExtra{Header: http.Header{"Authorization": []string{"Bearer from-header"}}}
	_, err := mw(next)(context.Background(), methodToolsCall, req)
	require.NoError(t, err)
	assert.Equal(t, "from-header", got)

	ctx := auth.WithToken(context.Background(), "from-context")
	_, err = mw(next)(ctx, methodToolsCall, req)
	require.NoError(t, err)
	assert.Equal(t, "from-context", got)
}

func TestMCPToolCallMiddleware_InvalidRequest(t *testing.T) {
	mw := MCPToolCallMiddleware(nil, "stdio")
	next := func(_ context.Context, _ string, _ mcp.Request) (mcp.Result, error) {
		t.Fatal("next should not be called for an invalid request")
		return nil, nil
	}

	tests := []struct {
		name string
		req  mcp.Request
		want string
	}{
		{name: "nil request", req: nil, want: "missing params"},
		{name: "empty name", req: newCallRequest(t, "", nil), want: "missing tool name"},
		{
			name: "nil params",
			req:  &mcp.ServerRequest[*mcp.CallToolParamsRaw]{},
			want: "missing params",
		},
		{
			name: "wrong params type",
			req:  &mcp.ServerRequest[*mcp.ListToolsParams]{Params: &mcp.ListToolsParams{}},
			want: "unexpected params type",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := mw(next)(context.Background(), methodToolsCall, tt.req)
			require.NoError(t, err)
			callResult, ok := result.(*mcp.CallToolResult)
			require.True(t, ok)
			assert.True(t, callResult.IsError)
			assert.Contains(t, firstText(callResult), tt.want)
		})
	}
}

func TestExtractArguments(t *testing.T) {
	args := extractArguments(newCallRequest(t, testToolName, map[string]any{"workspace": "Sales"}))
	assert.Equal(t, map[string]any{"workspace": "Sales"}, args)

	assert.Nil(t, extractArguments(newCallRequest(t, testToolName, nil)))
	assert.Nil(t, extractArguments(nil))

	bad := newCallRequest(t, testToolName, nil)
	bad.Params.Arguments = json.RawMessage(`[1,2]`)
	assert.Nil(t, extractArguments(bad))
}

func TestResponseChars(t *testing.T) {
	result := &mcp.CallToolResult{Content: []mcp.Content{
		&mcp.TextContent{Text: "héllo"},
		&mcp.ImageContent{MIMEType: "image/png"},
		&mcp.TextContent{Text: "world"},
	}}
	assert.Equal(t, 10, responseChars(result))
	assert.Equal(t, 0, responseChars(&mcp.ListToolsResult{}))
	assert.Equal(t, 0, responseChars(nil))
}

func TestGetToolCallContext_Missing(t *testing.T) {
	assert.Nil(t, GetToolCallContext(context.Background()))
}
