package fabric

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	fabricclient "github.com/txn2/mcp-fabric/pkg/fabric"
	"github.com/txn2/mcp-fabric/pkg/session"
)

const (
	toolSetWorkspace         = "set_workspace"
	toolSetLakehouse         = "set_lakehouse"
	toolSetWarehouse         = "set_warehouse"
	toolSetTable             = "set_table"
	toolSetSemanticModel     = "set_semantic_model"
	toolGetContext           = "get_context"
	toolClearContext         = "clear_context"
	toolClearResolutionCache = "clear_resolution_cache"
)

// contextLabels are the capitalized nouns used in messages.
var contextLabels = map[session.Key]string{
	session.KeyWorkspace:     "Workspace",
	session.KeyLakehouse:     "Lakehouse",
	session.KeyWarehouse:     "Warehouse",
	session.KeyTable:         "Table",
	session.KeySemanticModel: "Semantic model",
}

// missingContextError reports an argument that was neither passed nor set
// in the session context.
type missingContextError struct {
	key session.Key
}

func (e *missingContextError) Error() string {
	return contextLabels[e.key] + " must be specified or set in the context."
}

type setWorkspaceInput struct {
	Workspace string `json:"workspace" jsonschema:"Name or ID of the workspace"`
}

type setLakehouseInput struct {
	Lakehouse string `json:"lakehouse" jsonschema:"Name or ID of the lakehouse"`
}

type setWarehouseInput struct {
	Warehouse string `json:"warehouse" jsonschema:"Name or ID of the warehouse"`
}

type setTableInput struct {
	TableName string `json:"table_name" jsonschema:"Name of the table"`
}

type setSemanticModelInput struct {
	SemanticModel string `json:"semantic_model" jsonschema:"Name or ID of the semantic model"`
}

type emptyInput struct{}

func (t *Toolkit) registerContextTools(s *mcp.Server) {
	setAnnotations := &mcp.ToolAnnotations{IdempotentHint: true}

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolSetWorkspace,
		Description: t.description(toolSetWorkspace, "Set the current workspace for the session."),
		Annotations: setAnnotations,
	}, func(ctx context.Context, req *mcp.CallToolRequest, in setWorkspaceInput) (*mcp.CallToolResult, any, error) {
		return t.setContext(ctx, req, session.KeyWorkspace, in.Workspace), nil, nil
	})
	mcp.AddTool(s, &mcp.Tool{
		Name:        toolSetLakehouse,
		Description: t.description(toolSetLakehouse, "Set the current lakehouse for the session."),
		Annotations: setAnnotations,
	}, func(ctx context.Context, req *mcp.CallToolRequest, in setLakehouseInput) (*mcp.CallToolResult, any, error) {
		return t.setContext(ctx, req, session.KeyLakehouse, in.Lakehouse), nil, nil
	})
	mcp.AddTool(s, &mcp.Tool{
		Name:        toolSetWarehouse,
		Description: t.description(toolSetWarehouse, "Set the current warehouse for the session."),
		Annotations: setAnnotations,
	}, func(ctx context.Context, req *mcp.CallToolRequest, in setWarehouseInput) (*mcp.CallToolResult, any, error) {
		return t.setContext(ctx, req, session.KeyWarehouse, in.Warehouse), nil, nil
	})
	mcp.AddTool(s, &mcp.Tool{
		Name:        toolSetTable,
		Description: t.description(toolSetTable, "Set the current table for the session."),
		Annotations: setAnnotations,
	}, func(ctx context.Context, req *mcp.CallToolRequest, in setTableInput) (*mcp.CallToolResult, any, error) {
		return t.setContext(ctx, req, session.KeyTable, in.TableName), nil, nil
	})
	mcp.AddTool(s, &mcp.Tool{
		Name:        toolSetSemanticModel,
		Description: t.description(toolSetSemanticModel, "Set the current semantic model for the session."),
		Annotations: setAnnotations,
	}, func(ctx context.Context, req *mcp.CallToolRequest, in setSemanticModelInput) (*mcp.CallToolResult, any, error) {
		return t.setContext(ctx, req, session.KeySemanticModel, in.SemanticModel), nil, nil
	})

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolGetContext,
		Description: t.description(toolGetContext, "Show the workspace, lakehouse, warehouse, table and semantic model currently set for the session."),
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
		return t.handleGetContext(ctx, req), nil, nil
	})
	mcp.AddTool(s, &mcp.Tool{
		Name:        toolClearContext,
		Description: t.description(toolClearContext, "Clear every value set in the session context."),
		Annotations: &mcp.ToolAnnotations{IdempotentHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
		if err := t.store.Clear(ctx, sessionID(req)); err != nil {
			return errorResult("Error clearing context: " + err.Error()), nil, nil
		}
		return textResult("Context cleared."), nil, nil
	})
	mcp.AddTool(s, &mcp.Tool{
		Name:        toolClearResolutionCache,
		Description: t.description(toolClearResolutionCache, "Forget cached name-to-ID resolutions, e.g. after items were renamed or deleted."),
		Annotations: &mcp.ToolAnnotations{IdempotentHint: true},
	}, func(_ context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
		t.client.ClearResolveCache()
		return textResult("Resolution cache cleared."), nil, nil
	})
}

func (t *Toolkit) setContext(ctx context.Context, req *mcp.CallToolRequest, key session.Key, value string) *mcp.CallToolResult {
	value = strings.TrimSpace(value)
	if value == "" {
		return errorResult(contextLabels[key] + " must not be empty.")
	}
	if err := t.store.Set(ctx, sessionID(req), key, value); err != nil {
		return errorResult(fmt.Sprintf("Error setting %s: %s", strings.ToLower(contextLabels[key]), err))
	}
	return textResult(fmt.Sprintf("%s set to '%s'.", contextLabels[key], value))
}

func (t *Toolkit) handleGetContext(ctx context.Context, req *mcp.CallToolRequest) *mcp.CallToolResult {
	values, err := t.store.Snapshot(ctx, sessionID(req))
	if err != nil {
		return errorResult("Error reading context: " + err.Error())
	}
	if len(values) == 0 {
		return textResult("No context set for this session.")
	}
	out, err := formatContext(values)
	if err != nil {
		return errorResult("Error reading context: " + err.Error())
	}
	return textResult(out)
}

// contextValue returns explicit when set, otherwise the session default
// for key.
func (t *Toolkit) contextValue(ctx context.Context, req *mcp.CallToolRequest, explicit string, key session.Key) (string, error) {
	if v := strings.TrimSpace(explicit); v != "" {
		return v, nil
	}
	v, ok, err := t.store.Get(ctx, sessionID(req), key)
	if err != nil {
		return "", fmt.Errorf("reading session context: %w", err)
	}
	if !ok || v == "" {
		return "", &missingContextError{key: key}
	}
	return v, nil
}

// fail converts err into a tool error. Missing context arguments keep
// their own message; everything else goes through fabric.Describe.
func fail(action string, err error) *mcp.CallToolResult {
	var missing *missingContextError
	if errors.As(err, &missing) {
		return errorResult(missing.Error())
	}
	return errorResult(fabricclient.Describe(action, err))
}
