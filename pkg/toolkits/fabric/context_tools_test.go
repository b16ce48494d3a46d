package fabric

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/mcp-fabric/pkg/session"
)

func TestSetWorkspace_StoresValue(t *testing.T) {
	h := newHarness(t, Config{})

	text, isErr := h.call(t, toolSetWorkspace, map[string]any{"workspace": testWorkspaceName})
	assert.False(t, isErr)
	assert.Equal(t, "Workspace set to 'Sales'.", text)

	got, ok, err := h.store.Get(context.Background(), session.DefaultSessionID, session.KeyWorkspace)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, testWorkspaceName, got)
}

func TestSetTools_Messages(t *testing.T) {
	h := newHarness(t, Config{})

	tests := []struct {
		tool string
		args map[string]any
		want string
	}{
		{toolSetLakehouse, map[string]any{"lakehouse": "Bronze"}, "Lakehouse set to 'Bronze'."},
		{toolSetWarehouse, map[string]any{"warehouse": "Gold"}, "Warehouse set to 'Gold'."},
		{toolSetTable, map[string]any{"table_name": "orders"}, "Table set to 'orders'."},
		{toolSetSemanticModel, map[string]any{"semantic_model": "Revenue"}, "Semantic model set to 'Revenue'."},
	}
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			text, isErr := h.call(t, tt.tool, tt.args)
			assert.False(t, isErr)
			assert.Equal(t, tt.want, text)
		})
	}
}

func TestSetWorkspace_RejectsBlank(t *testing.T) {
	h := newHarness(t, Config{})

	text, isErr := h.call(t, toolSetWorkspace, map[string]any{"workspace": "  "})
	assert.True(t, isErr)
	assert.Equal(t, "Workspace must not be empty.", text)
}

func TestGetContext(t *testing.T) {
	h := newHarness(t, Config{})

	text, isErr := h.call(t, toolGetContext, nil)
	assert.False(t, isErr)
	assert.Equal(t, "No context set for this session.", text)

	h.call(t, toolSetWorkspace, map[string]any{"workspace": testWorkspaceName})
	h.call(t, toolSetTable, map[string]any{"table_name": "orders"})

	text, isErr = h.call(t, toolGetContext, nil)
	assert.False(t, isErr)
	assert.Contains(t, text, "# Session Context")
	assert.Contains(t, text, "workspace")
	assert.Contains(t, text, testWorkspaceName)
	assert.Contains(t, text, "orders")
	assert.NotContains(t, text, "lakehouse")
}

func TestClearContext(t *testing.T) {
	h := newHarness(t, Config{})
	h.call(t, toolSetWorkspace, map[string]any{"workspace": testWorkspaceName})

	text, isErr := h.call(t, toolClearContext, nil)
	assert.False(t, isErr)
	assert.Equal(t, "Context cleared.", text)

	text, _ = h.call(t, toolListLakehouses, nil)
	assert.Equal(t, "Workspace must be specified or set in the context.", text)
}

func TestClearResolutionCache(t *testing.T) {
	h := newHarness(t, Config{})
	h.call(t, toolListLakehouses, map[string]any{"workspace": testWorkspaceName})
	require.Positive(t, h.toolkit.Client().Cache().Len())

	text, isErr := h.call(t, toolClearResolutionCache, nil)
	assert.False(t, isErr)
	assert.Equal(t, "Resolution cache cleared.", text)
	assert.Zero(t, h.toolkit.Client().Cache().Len())
}
