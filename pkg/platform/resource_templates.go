package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/yosida95/uritemplate/v3"

	"github.com/txn2/mcp-fabric/pkg/fabric"
)

// Resource template URI patterns.
const (
	itemsTemplateURI  = "fabric://workspaces/{workspace}/items/{kind}"
	tablesTemplateURI = "fabric://workspaces/{workspace}/lakehouses/{lakehouse}/tables"
)

// registerResourceTemplates registers the fabric:// resource templates.
// Only called when resources.enabled is true.
func (p *Platform) registerResourceTemplates() {
	if !p.config.Resources.Enabled {
		return
	}

	p.mcpServer.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: itemsTemplateURI,
		Name:        "Workspace Items",
		Description: "Items of one kind (Lakehouse, Warehouse, Report, SemanticModel, Notebook) in a workspace",
		MIMEType:    "application/json",
	}, p.handleItemsResource)

	p.mcpServer.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: tablesTemplateURI,
		Name:        "Lakehouse Tables",
		Description: "Tables registered in a lakehouse",
		MIMEType:    "application/json",
	}, p.handleTablesResource)
}

// parseTemplateVars extracts named variables from a URI using a URI template.
// Returns a map of variable names to their values, or an error if the URI
// doesn't match the template.
func parseTemplateVars(templateStr, uri string) (map[string]string, error) {
	tmpl, err := uritemplate.New(templateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid template %q: %w", templateStr, err)
	}

	match := tmpl.Match(uri)
	if match == nil {
		return nil, fmt.Errorf("uri %q does not match template %q", uri, templateStr)
	}

	result := make(map[string]string)
	for _, name := range tmpl.Varnames() {
		result[name] = match.Get(name).String()
	}
	return result, nil
}

// itemsResourceResult is the body of an items resource.
type itemsResourceResult struct {
	Workspace string        `json:"workspace"`
	Kind      string        `json:"kind"`
	Items     []fabric.Item `json:"items"`
}

// handleItemsResource handles fabric://workspaces/{workspace}/items/{kind}.
func (p *Platform) handleItemsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	vars, err := parseTemplateVars(itemsTemplateURI, uri)
	if err != nil || vars["workspace"] == "" || vars["kind"] == "" {
		return nil, mcp.ResourceNotFoundError(uri) //nolint:wrapcheck // MCP protocol error returned as-is for SDK type matching
	}

	kind := fabric.ParseItemKind(vars["kind"])
	items, err := p.client.ListItems(ctx, vars["workspace"], kind)
	if err != nil {
		return nil, resourceError(uri, "list items", err)
	}
	if items == nil {
		items = []fabric.Item{}
	}

	return marshalResourceResult(uri, itemsResourceResult{
		Workspace: vars["workspace"],
		Kind:      string(kind),
		Items:     items,
	})
}

// tablesResourceResult is the body of a tables resource.
type tablesResourceResult struct {
	Workspace string         `json:"workspace"`
	Lakehouse string         `json:"lakehouse"`
	Tables    []fabric.Table `json:"tables"`
}

// handleTablesResource handles fabric://workspaces/{workspace}/lakehouses/{lakehouse}/tables.
func (p *Platform) handleTablesResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	vars, err := parseTemplateVars(tablesTemplateURI, uri)
	if err != nil || vars["workspace"] == "" || vars["lakehouse"] == "" {
		return nil, mcp.ResourceNotFoundError(uri) //nolint:wrapcheck // MCP protocol error returned as-is for SDK type matching
	}

	tables, err := p.client.ListTables(ctx, vars["workspace"], vars["lakehouse"], fabric.KindLakehouse)
	if err != nil {
		return nil, resourceError(uri, "list tables", err)
	}
	if tables == nil {
		tables = []fabric.Table{}
	}

	return marshalResourceResult(uri, tablesResourceResult{
		Workspace: vars["workspace"],
		Lakehouse: vars["lakehouse"],
		Tables:    tables,
	})
}

// resourceError maps unresolvable names to the protocol's not-found error.
func resourceError(uri, action string, err error) error {
	if errors.Is(err, fabric.ErrNotFound) {
		return mcp.ResourceNotFoundError(uri) //nolint:wrapcheck // MCP protocol error returned as-is for SDK type matching
	}
	return errors.New(fabric.Describe(action, err))
}

// marshalResourceResult marshals a value to JSON and wraps it in a ReadResourceResult.
func marshalResourceResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling resource %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(data),
			},
		},
	}, nil
}
