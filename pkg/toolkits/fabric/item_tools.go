package fabric

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	fabricclient "github.com/txn2/mcp-fabric/pkg/fabric"
	"github.com/txn2/mcp-fabric/pkg/session"
)

const (
	toolListWorkspaces     = "list_workspaces"
	toolListItems          = "list_items"
	toolGetItem            = "get_item"
	toolListLakehouses     = "list_lakehouses"
	toolGetLakehouse       = "get_lakehouse"
	toolCreateLakehouse    = "create_lakehouse"
	toolListWarehouses     = "list_warehouses"
	toolGetWarehouse       = "get_warehouse"
	toolCreateWarehouse    = "create_warehouse"
	toolListReports        = "list_reports"
	toolGetReport          = "get_report"
	toolListSemanticModels = "list_semantic_models"
	toolGetSemanticModel   = "get_semantic_model"
	toolListNotebooks      = "list_notebooks"
	toolCreateNotebook     = "create_notebook"
)

type workspaceInput struct {
	Workspace string `json:"workspace,omitempty" jsonschema:"Name or ID of the workspace; defaults to the session workspace"`
}

type listItemsInput struct {
	Workspace string `json:"workspace,omitempty" jsonschema:"Name or ID of the workspace; defaults to the session workspace"`
	Type      string `json:"type,omitempty" jsonschema:"Item type filter, e.g. Lakehouse, Warehouse, Report, SemanticModel, Notebook"`
}

type getItemInput struct {
	Workspace string `json:"workspace,omitempty" jsonschema:"Name or ID of the workspace; defaults to the session workspace"`
	Item      string `json:"item" jsonschema:"Name or ID of the item"`
	Type      string `json:"type,omitempty" jsonschema:"Item type; required when item is a name"`
}

type lakehouseInput struct {
	Workspace string `json:"workspace,omitempty" jsonschema:"Name or ID of the workspace; defaults to the session workspace"`
	Lakehouse string `json:"lakehouse,omitempty" jsonschema:"Name or ID of the lakehouse; defaults to the session lakehouse"`
}

type warehouseInput struct {
	Workspace string `json:"workspace,omitempty" jsonschema:"Name or ID of the workspace; defaults to the session workspace"`
	Warehouse string `json:"warehouse,omitempty" jsonschema:"Name or ID of the warehouse; defaults to the session warehouse"`
}

type reportInput struct {
	Workspace string `json:"workspace,omitempty" jsonschema:"Name or ID of the workspace; defaults to the session workspace"`
	Report    string `json:"report" jsonschema:"Name or ID of the report"`
}

type semanticModelInput struct {
	Workspace     string `json:"workspace,omitempty" jsonschema:"Name or ID of the workspace; defaults to the session workspace"`
	SemanticModel string `json:"semantic_model,omitempty" jsonschema:"Name or ID of the semantic model; defaults to the session semantic model"`
}

type createInput struct {
	Name        string `json:"name" jsonschema:"Display name of the new item"`
	Workspace   string `json:"workspace,omitempty" jsonschema:"Name or ID of the workspace; defaults to the session workspace"`
	Description string `json:"description,omitempty" jsonschema:"Description of the new item"`
}

type createNotebookInput struct {
	Name      string `json:"name" jsonschema:"Display name of the notebook"`
	Workspace string `json:"workspace,omitempty" jsonschema:"Name or ID of the workspace; defaults to the session workspace"`
	Content   string `json:"content,omitempty" jsonschema:"Notebook content as ipynb JSON; an empty notebook is created when omitted"`
}

func (t *Toolkit) registerWorkspaceTools(s *mcp.Server) {
	readOnly := &mcp.ToolAnnotations{ReadOnlyHint: true}

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolListWorkspaces,
		Description: t.description(toolListWorkspaces, "List all available Fabric workspaces."),
		Annotations: readOnly,
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
		return t.handleListWorkspaces(ctx), nil, nil
	})
	mcp.AddTool(s, &mcp.Tool{
		Name:        toolListItems,
		Description: t.description(toolListItems, "List the items of a workspace, optionally filtered by type."),
		Annotations: readOnly,
	}, func(ctx context.Context, req *mcp.CallToolRequest, in listItemsInput) (*mcp.CallToolResult, any, error) {
		return t.handleListItems(ctx, req, in), nil, nil
	})
	mcp.AddTool(s, &mcp.Tool{
		Name:        toolGetItem,
		Description: t.description(toolGetItem, "Get the details of an item by name or ID."),
		Annotations: readOnly,
	}, func(ctx context.Context, req *mcp.CallToolRequest, in getItemInput) (*mcp.CallToolResult, any, error) {
		return t.handleGetItem(ctx, req, in), nil, nil
	})
}

func (t *Toolkit) registerItemTools(s *mcp.Server) {
	readOnly := &mcp.ToolAnnotations{ReadOnlyHint: true}
	create := &mcp.ToolAnnotations{DestructiveHint: new(bool)}

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolListLakehouses,
		Description: t.description(toolListLakehouses, "List all lakehouses in a Fabric workspace."),
		Annotations: readOnly,
	}, func(ctx context.Context, req *mcp.CallToolRequest, in workspaceInput) (*mcp.CallToolResult, any, error) {
		return t.listKind(ctx, req, in.Workspace, fabricclient.KindLakehouse, t.client.ListLakehouses), nil, nil
	})
	mcp.AddTool(s, &mcp.Tool{
		Name:        toolGetLakehouse,
		Description: t.description(toolGetLakehouse, "Get the details of a lakehouse, including its SQL endpoint."),
		Annotations: readOnly,
	}, func(ctx context.Context, req *mcp.CallToolRequest, in lakehouseInput) (*mcp.CallToolResult, any, error) {
		return t.getKind(ctx, req, in.Workspace, in.Lakehouse, session.KeyLakehouse, "lakehouse", t.client.GetLakehouse), nil, nil
	})
	mcp.AddTool(s, &mcp.Tool{
		Name:        toolListWarehouses,
		Description: t.description(toolListWarehouses, "List all warehouses in a Fabric workspace."),
		Annotations: readOnly,
	}, func(ctx context.Context, req *mcp.CallToolRequest, in workspaceInput) (*mcp.CallToolResult, any, error) {
		return t.listKind(ctx, req, in.Workspace, fabricclient.KindWarehouse, t.client.ListWarehouses), nil, nil
	})
	mcp.AddTool(s, &mcp.Tool{
		Name:        toolGetWarehouse,
		Description: t.description(toolGetWarehouse, "Get the details of a warehouse."),
		Annotations: readOnly,
	}, func(ctx context.Context, req *mcp.CallToolRequest, in warehouseInput) (*mcp.CallToolResult, any, error) {
		return t.getKind(ctx, req, in.Workspace, in.Warehouse, session.KeyWarehouse, "warehouse", t.client.GetWarehouse), nil, nil
	})
	mcp.AddTool(s, &mcp.Tool{
		Name:        toolListReports,
		Description: t.description(toolListReports, "List all reports in a Fabric workspace."),
		Annotations: readOnly,
	}, func(ctx context.Context, req *mcp.CallToolRequest, in workspaceInput) (*mcp.CallToolResult, any, error) {
		return t.listKind(ctx, req, in.Workspace, fabricclient.KindReport, t.client.ListReports), nil, nil
	})
	mcp.AddTool(s, &mcp.Tool{
		Name:        toolGetReport,
		Description: t.description(toolGetReport, "Get the details of a report by name or ID."),
		Annotations: readOnly,
	}, func(ctx context.Context, req *mcp.CallToolRequest, in reportInput) (*mcp.CallToolResult, any, error) {
		if in.Report == "" {
			return errorResult("Report must be specified."), nil, nil
		}
		return t.getKind(ctx, req, in.Workspace, in.Report, "", "report", t.client.GetReport), nil, nil
	})
	mcp.AddTool(s, &mcp.Tool{
		Name:        toolListSemanticModels,
		Description: t.description(toolListSemanticModels, "List all semantic models in a Fabric workspace."),
		Annotations: readOnly,
	}, func(ctx context.Context, req *mcp.CallToolRequest, in workspaceInput) (*mcp.CallToolResult, any, error) {
		return t.listKind(ctx, req, in.Workspace, fabricclient.KindSemanticModel, t.client.ListSemanticModels), nil, nil
	})
	mcp.AddTool(s, &mcp.Tool{
		Name:        toolGetSemanticModel,
		Description: t.description(toolGetSemanticModel, "Get the details of a semantic model."),
		Annotations: readOnly,
	}, func(ctx context.Context, req *mcp.CallToolRequest, in semanticModelInput) (*mcp.CallToolResult, any, error) {
		return t.getKind(ctx, req, in.Workspace, in.SemanticModel, session.KeySemanticModel, "semantic model", t.client.GetSemanticModel), nil, nil
	})
	mcp.AddTool(s, &mcp.Tool{
		Name:        toolListNotebooks,
		Description: t.description(toolListNotebooks, "List all notebooks in a Fabric workspace."),
		Annotations: readOnly,
	}, func(ctx context.Context, req *mcp.CallToolRequest, in workspaceInput) (*mcp.CallToolResult, any, error) {
		return t.listKind(ctx, req, in.Workspace, fabricclient.KindNotebook, t.client.ListNotebooks), nil, nil
	})

	if t.config.ReadOnly {
		return
	}

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolCreateLakehouse,
		Description: t.description(toolCreateLakehouse, "Create a new lakehouse in a Fabric workspace."),
		Annotations: create,
	}, func(ctx context.Context, req *mcp.CallToolRequest, in createInput) (*mcp.CallToolResult, any, error) {
		return t.createKind(ctx, req, in, "lakehouse", t.client.CreateLakehouse), nil, nil
	})
	mcp.AddTool(s, &mcp.Tool{
		Name:        toolCreateWarehouse,
		Description: t.description(toolCreateWarehouse, "Create a new warehouse in a Fabric workspace."),
		Annotations: create,
	}, func(ctx context.Context, req *mcp.CallToolRequest, in createInput) (*mcp.CallToolResult, any, error) {
		return t.createKind(ctx, req, in, "warehouse", t.client.CreateWarehouse), nil, nil
	})
	mcp.AddTool(s, &mcp.Tool{
		Name:        toolCreateNotebook,
		Description: t.description(toolCreateNotebook, "Create a new notebook in a Fabric workspace."),
		Annotations: create,
	}, func(ctx context.Context, req *mcp.CallToolRequest, in createNotebookInput) (*mcp.CallToolResult, any, error) {
		return t.handleCreateNotebook(ctx, req, in), nil, nil
	})
}

func (t *Toolkit) handleListWorkspaces(ctx context.Context) *mcp.CallToolResult {
	const action = "listing workspaces"
	workspaces, err := t.client.ListWorkspaces(ctx)
	if err != nil {
		return fail(action, err)
	}
	if len(workspaces) == 0 {
		return textResult("No workspaces found.")
	}
	out, err := formatWorkspaces(workspaces)
	if err != nil {
		return fail(action, err)
	}
	return textResult(out)
}

func (t *Toolkit) handleListItems(ctx context.Context, req *mcp.CallToolRequest, in listItemsInput) *mcp.CallToolResult {
	const action = "listing items"
	ws, err := t.contextValue(ctx, req, in.Workspace, session.KeyWorkspace)
	if err != nil {
		return fail(action, err)
	}
	kind := fabricclient.ParseItemKind(in.Type)
	items, err := t.client.ListItems(ctx, ws, kind)
	if err != nil {
		return fail(action, err)
	}
	if len(items) == 0 {
		return textResult(fmt.Sprintf("No items found in workspace '%s'.", ws))
	}
	out, err := formatItems(fmt.Sprintf("# Items in workspace '%s'", ws), items, true)
	if err != nil {
		return fail(action, err)
	}
	return textResult(out)
}

func (t *Toolkit) handleGetItem(ctx context.Context, req *mcp.CallToolRequest, in getItemInput) *mcp.CallToolResult {
	const action = "getting item"
	if in.Item == "" {
		return errorResult("Item must be specified.")
	}
	ws, err := t.contextValue(ctx, req, in.Workspace, session.KeyWorkspace)
	if err != nil {
		return fail(action, err)
	}
	item, err := t.client.GetItem(ctx, ws, in.Item, fabricclient.ParseItemKind(in.Type))
	if err != nil {
		return fail(action, err)
	}
	return jsonResult(action, item)
}

type listFunc func(ctx context.Context, workspace string) ([]fabricclient.Item, error)

type getFunc func(ctx context.Context, workspace, item string) (*fabricclient.Item, error)

type createFunc func(ctx context.Context, workspace, name, description string) (*fabricclient.Item, error)

// listKind runs a typed list operation and renders its items.
func (t *Toolkit) listKind(ctx context.Context, req *mcp.CallToolRequest, workspace string, kind fabricclient.ItemKind, list listFunc) *mcp.CallToolResult {
	noun := pluralLabel(kind)
	action := "listing " + noun
	ws, err := t.contextValue(ctx, req, workspace, session.KeyWorkspace)
	if err != nil {
		return fail(action, err)
	}
	items, err := list(ctx, ws)
	if err != nil {
		return fail(action, err)
	}
	if len(items) == 0 {
		return textResult(fmt.Sprintf("No %s found in workspace '%s'.", noun, ws))
	}
	out, err := formatItems(fmt.Sprintf("# %s in workspace '%s'", titleLabel(kind), ws), items, false)
	if err != nil {
		return fail(action, err)
	}
	return textResult(out)
}

// getKind runs a typed get operation. key names the session default used
// when item is empty; an empty key makes item mandatory.
func (t *Toolkit) getKind(ctx context.Context, req *mcp.CallToolRequest, workspace, item string, key session.Key, noun string, get getFunc) *mcp.CallToolResult {
	action := "getting " + noun
	ws, err := t.contextValue(ctx, req, workspace, session.KeyWorkspace)
	if err != nil {
		return fail(action, err)
	}
	if key != "" {
		if item, err = t.contextValue(ctx, req, item, key); err != nil {
			return fail(action, err)
		}
	}
	it, err := get(ctx, ws, item)
	if err != nil {
		return fail(action, err)
	}
	return jsonResult(action, it)
}

func (t *Toolkit) createKind(ctx context.Context, req *mcp.CallToolRequest, in createInput, noun string, create createFunc) *mcp.CallToolResult {
	action := "creating " + noun
	ws, err := t.contextValue(ctx, req, in.Workspace, session.KeyWorkspace)
	if err != nil {
		return fail(action, err)
	}
	it, err := create(withProgress(ctx, req), ws, in.Name, in.Description)
	if err != nil {
		return fail(action, err)
	}
	return textResult(fmt.Sprintf("%s '%s' created successfully with ID %s.", capitalize(noun), it.DisplayName, it.ID))
}

func (t *Toolkit) handleCreateNotebook(ctx context.Context, req *mcp.CallToolRequest, in createNotebookInput) *mcp.CallToolResult {
	const action = "creating notebook"
	ws, err := t.contextValue(ctx, req, in.Workspace, session.KeyWorkspace)
	if err != nil {
		return fail(action, err)
	}
	it, err := t.client.CreateNotebook(withProgress(ctx, req), ws, in.Name, []byte(in.Content))
	if err != nil {
		return fail(action, err)
	}
	return textResult(fmt.Sprintf("Notebook '%s' created successfully with ID %s.", it.DisplayName, it.ID))
}

func jsonResult(action string, v any) *mcp.CallToolResult {
	out, err := formatJSON(v)
	if err != nil {
		return fail(action, err)
	}
	return textResult(out)
}

func pluralLabel(kind fabricclient.ItemKind) string {
	switch kind {
	case fabricclient.KindSemanticModel:
		return "semantic models"
	case fabricclient.KindLakehouse:
		return "lakehouses"
	default:
		return strings.ToLower(string(kind)) + "s"
	}
}

func titleLabel(kind fabricclient.ItemKind) string {
	return capitalize(pluralLabel(kind))
}
