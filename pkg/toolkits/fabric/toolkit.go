// Package fabric exposes the Fabric REST API as MCP tools. Every tool
// takes optional workspace and item arguments that fall back to the
// session context set with the set_* tools.
package fabric

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-fabric/pkg/delta"
	fabricclient "github.com/txn2/mcp-fabric/pkg/fabric"
	"github.com/txn2/mcp-fabric/pkg/session"
)

// Kind is the toolkit kind.
const Kind = "fabric"

// SchemaReader reads Delta table metadata from a storage location.
type SchemaReader interface {
	ReadMetadata(ctx context.Context, location string) (*delta.Metadata, error)
}

// Toolkit registers the platform tools on an MCP server.
type Toolkit struct {
	name    string
	config  Config
	client  *fabricclient.Client
	schemas SchemaReader
	store   session.Store
}

// New creates a toolkit. schemas may be nil, in which case the schema
// tools report that schema reading is unavailable.
func New(name string, cfg Config, client *fabricclient.Client, schemas SchemaReader, store session.Store) (*Toolkit, error) {
	if client == nil {
		return nil, errors.New("fabric toolkit: client is required")
	}
	if store == nil {
		store = session.NewMemoryStore(session.DefaultTTL, session.DefaultMaxEntries)
	}
	return &Toolkit{
		name:    name,
		config:  applyDefaults(cfg),
		client:  client,
		schemas: schemas,
		store:   store,
	}, nil
}

// Kind returns the toolkit kind.
func (*Toolkit) Kind() string {
	return Kind
}

// Name returns the toolkit instance name.
func (t *Toolkit) Name() string {
	return t.name
}

// RegisterTools registers every tool with the MCP server.
func (t *Toolkit) RegisterTools(s *mcp.Server) {
	t.registerContextTools(s)
	t.registerWorkspaceTools(s)
	t.registerItemTools(s)
	t.registerTableTools(s)
}

// Tools returns the names of the registered tools.
func (t *Toolkit) Tools() []string {
	tools := []string{
		toolSetWorkspace, toolSetLakehouse, toolSetWarehouse, toolSetTable, toolSetSemanticModel,
		toolGetContext, toolClearContext, toolClearResolutionCache,
		toolListWorkspaces, toolListItems, toolGetItem,
		toolListLakehouses, toolGetLakehouse,
		toolListWarehouses, toolGetWarehouse,
		toolListTables, toolGetTableSchema, toolGetAllSchemas,
		toolListReports, toolGetReport,
		toolListSemanticModels, toolGetSemanticModel,
		toolListNotebooks,
	}
	if !t.config.ReadOnly {
		tools = append(tools, toolCreateLakehouse, toolCreateWarehouse, toolCreateNotebook)
	}
	return tools
}

// Close releases the session store.
func (t *Toolkit) Close() error {
	return t.store.Close()
}

// Client returns the platform API client.
func (t *Toolkit) Client() *fabricclient.Client {
	return t.client
}

func (t *Toolkit) description(tool, fallback string) string {
	if d, ok := t.config.Descriptions[tool]; ok && d != "" {
		return d
	}
	return fallback
}

// sessionID identifies the caller's session. Transports without sessions
// (stdio) share one default session.
func sessionID(req *mcp.CallToolRequest) string {
	if req != nil && req.Session != nil {
		if id := req.Session.ID(); id != "" {
			return id
		}
	}
	return session.DefaultSessionID
}

// withProgress forwards operation polls to the client as progress
// notifications when the call carries a progress token.
func withProgress(ctx context.Context, req *mcp.CallToolRequest) context.Context {
	if req == nil || req.Params == nil || req.Session == nil {
		return ctx
	}
	token := req.Params.GetProgressToken()
	if token == nil {
		return ctx
	}
	return fabricclient.WithPollObserver(ctx, func(p fabricclient.PollProgress) {
		params := &mcp.ProgressNotificationParams{
			ProgressToken: token,
			Progress:      float64(p.Polls),
			Message:       fmt.Sprintf("operation %s (poll %d)", p.Status, p.Polls),
		}
		if p.PercentComplete >= 0 {
			params.Progress = float64(p.PercentComplete)
			params.Total = 100
		}
		if err := req.Session.NotifyProgress(ctx, params); err != nil {
			slog.Debug("progress notification failed", "error", err)
		}
	})
}

// errorResult creates an error CallToolResult.
func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// textResult creates a successful CallToolResult.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
