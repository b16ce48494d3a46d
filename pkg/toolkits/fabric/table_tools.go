package fabric

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/txn2/mcp-fabric/pkg/delta"
	fabricclient "github.com/txn2/mcp-fabric/pkg/fabric"
	"github.com/txn2/mcp-fabric/pkg/session"
)

const (
	toolListTables     = "list_tables"
	toolGetTableSchema = "get_lakehouse_table_schema"
	toolGetAllSchemas  = "get_all_lakehouse_schemas"
)

var errNoSchemaReader = errors.New("schema reading is not configured")

type listTablesInput struct {
	Workspace string `json:"workspace,omitempty" jsonschema:"Name or ID of the workspace; defaults to the session workspace"`
	Lakehouse string `json:"lakehouse,omitempty" jsonschema:"Name or ID of the lakehouse; defaults to the session lakehouse"`
	Warehouse string `json:"warehouse,omitempty" jsonschema:"Name or ID of a warehouse to list instead of a lakehouse"`
}

type tableSchemaInput struct {
	Workspace string `json:"workspace,omitempty" jsonschema:"Name or ID of the workspace; defaults to the session workspace"`
	Lakehouse string `json:"lakehouse,omitempty" jsonschema:"Name or ID of the lakehouse; defaults to the session lakehouse"`
	TableName string `json:"table_name,omitempty" jsonschema:"Name of the table; defaults to the session table"`
}

func (t *Toolkit) registerTableTools(s *mcp.Server) {
	readOnly := &mcp.ToolAnnotations{ReadOnlyHint: true}

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolListTables,
		Description: t.description(toolListTables, "List all tables in a Fabric lakehouse or warehouse."),
		Annotations: readOnly,
	}, func(ctx context.Context, req *mcp.CallToolRequest, in listTablesInput) (*mcp.CallToolResult, any, error) {
		return t.handleListTables(ctx, req, in), nil, nil
	})
	mcp.AddTool(s, &mcp.Tool{
		Name:        toolGetTableSchema,
		Description: t.description(toolGetTableSchema, "Get the schema of a Delta table in a Fabric lakehouse."),
		Annotations: readOnly,
	}, func(ctx context.Context, req *mcp.CallToolRequest, in tableSchemaInput) (*mcp.CallToolResult, any, error) {
		return t.handleGetTableSchema(ctx, req, in), nil, nil
	})
	mcp.AddTool(s, &mcp.Tool{
		Name:        toolGetAllSchemas,
		Description: t.description(toolGetAllSchemas, "Get the schemas of all Delta tables in a Fabric lakehouse."),
		Annotations: readOnly,
	}, func(ctx context.Context, req *mcp.CallToolRequest, in lakehouseInput) (*mcp.CallToolResult, any, error) {
		return t.handleGetAllSchemas(ctx, req, in), nil, nil
	})
}

func (t *Toolkit) handleListTables(ctx context.Context, req *mcp.CallToolRequest, in listTablesInput) *mcp.CallToolResult {
	const action = "listing tables"
	ws, err := t.contextValue(ctx, req, in.Workspace, session.KeyWorkspace)
	if err != nil {
		return fail(action, err)
	}

	parent, kind := strings.TrimSpace(in.Warehouse), fabricclient.KindWarehouse
	if parent == "" {
		kind = fabricclient.KindLakehouse
		if parent, err = t.contextValue(ctx, req, in.Lakehouse, session.KeyLakehouse); err != nil {
			return fail(action, err)
		}
	}

	tables, err := t.client.ListTables(ctx, ws, parent, kind)
	if err != nil {
		return fail(action, err)
	}
	noun := strings.ToLower(string(kind))
	if len(tables) == 0 {
		return textResult(fmt.Sprintf("No tables found in %s '%s'.", noun, parent))
	}
	out, err := formatTables(fmt.Sprintf("# Tables in %s '%s'", noun, parent), tables)
	if err != nil {
		return fail(action, err)
	}
	return textResult(out)
}

func (t *Toolkit) handleGetTableSchema(ctx context.Context, req *mcp.CallToolRequest, in tableSchemaInput) *mcp.CallToolResult {
	const action = "retrieving table schema"
	name, err := t.contextValue(ctx, req, in.TableName, session.KeyTable)
	if err != nil {
		return fail(action, err)
	}
	lakehouse, err := t.contextValue(ctx, req, in.Lakehouse, session.KeyLakehouse)
	if err != nil {
		return fail(action, err)
	}
	ws, err := t.contextValue(ctx, req, in.Workspace, session.KeyWorkspace)
	if err != nil {
		return fail(action, err)
	}
	if t.schemas == nil {
		return fail(action, errNoSchemaReader)
	}

	table, err := t.client.DeltaTable(ctx, ws, lakehouse, name)
	if err != nil {
		return fail(action, err)
	}
	md, err := t.readSchema(ctx, table.Location)
	if err != nil {
		return fail(action, err)
	}
	out, err := formatSchema(*table, md)
	if err != nil {
		return fail(action, err)
	}
	return textResult(out)
}

func (t *Toolkit) handleGetAllSchemas(ctx context.Context, req *mcp.CallToolRequest, in lakehouseInput) *mcp.CallToolResult {
	const action = "retrieving table schemas"
	ws, err := t.contextValue(ctx, req, in.Workspace, session.KeyWorkspace)
	if err != nil {
		return fail(action, err)
	}
	lakehouse, err := t.contextValue(ctx, req, in.Lakehouse, session.KeyLakehouse)
	if err != nil {
		return fail(action, err)
	}
	if t.schemas == nil {
		return fail(action, errNoSchemaReader)
	}

	tables, err := t.client.DeltaTables(ctx, ws, lakehouse)
	if err != nil {
		return fail(action, err)
	}
	if len(tables) == 0 {
		return textResult(fmt.Sprintf("No Delta tables found in lakehouse '%s'.", lakehouse))
	}

	sections := t.readSchemas(ctx, tables)
	var b strings.Builder
	b.WriteString("# Delta Table Schemas\n\n")
	fmt.Fprintf(&b, "Workspace: %s\n\nLakehouse: %s\n\n", ws, lakehouse)
	read := 0
	for _, section := range sections {
		if section == "" {
			continue
		}
		b.WriteString(section)
		b.WriteString("\n")
		read++
	}
	if read == 0 {
		return errorResult("Could not retrieve schemas for any tables.")
	}
	return textResult(b.String())
}

// readSchemas reads every table's schema with bounded concurrency. The
// result is in table order; tables that failed leave an empty section.
func (t *Toolkit) readSchemas(ctx context.Context, tables []fabricclient.Table) []string {
	sections := make([]string, len(tables))
	var g errgroup.Group
	g.SetLimit(t.config.SchemaConcurrency)
	for i, table := range tables {
		g.Go(func() error {
			md, err := t.readSchema(ctx, table.Location)
			if err != nil {
				slog.WarnContext(ctx, "skipping table schema", "table", table.Name, "error", err)
				return nil
			}
			section, err := formatSchema(table, md)
			if err != nil {
				slog.WarnContext(ctx, "skipping table schema", "table", table.Name, "error", err)
				return nil
			}
			sections[i] = section
			return nil
		})
	}
	_ = g.Wait()
	return sections
}

func (t *Toolkit) readSchema(ctx context.Context, location string) (*delta.Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, t.config.SchemaTimeout)
	defer cancel()
	return t.schemas.ReadMetadata(ctx, location)
}
