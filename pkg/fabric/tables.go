package fabric

import (
	"context"
	"fmt"
)

// ListTables returns the tables of a lakehouse or warehouse.
func (c *Client) ListTables(ctx context.Context, workspace, parent string, parentKind ItemKind) ([]Table, error) {
	wsID, parentID, err := c.resolveTableParent(ctx, workspace, parent, parentKind)
	if err != nil {
		return nil, err
	}
	return c.listTables(ctx, wsID, parentID, parentKind)
}

// GetTable returns one table by exact name.
func (c *Client) GetTable(ctx context.Context, workspace, parent string, parentKind ItemKind, name string) (*Table, error) {
	wsID, parentID, err := c.resolveTableParent(ctx, workspace, parent, parentKind)
	if err != nil {
		return nil, err
	}
	t, err := c.ResolveTable(ctx, wsID, parentID, parentKind, name)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// DeltaTables returns the Delta-format tables of a lakehouse.
func (c *Client) DeltaTables(ctx context.Context, workspace, lakehouse string) ([]Table, error) {
	tables, err := c.ListTables(ctx, workspace, lakehouse, KindLakehouse)
	if err != nil {
		return nil, err
	}
	out := make([]Table, 0, len(tables))
	for _, t := range tables {
		if t.IsDelta() {
			out = append(out, t)
		}
	}
	return out, nil
}

// DeltaTable returns a named lakehouse table, failing when it is not stored
// in Delta format.
func (c *Client) DeltaTable(ctx context.Context, workspace, lakehouse, name string) (*Table, error) {
	t, err := c.GetTable(ctx, workspace, lakehouse, KindLakehouse, name)
	if err != nil {
		return nil, err
	}
	if !t.IsDelta() {
		return nil, fmt.Errorf("%w: table %q is not a Delta table (format %q)", ErrInvalidArgument, name, t.Format)
	}
	return t, nil
}

func (c *Client) resolveTableParent(ctx context.Context, workspace, parent string, parentKind ItemKind) (string, string, error) {
	if parentKind != KindLakehouse && parentKind != KindWarehouse {
		return "", "", fmt.Errorf("%w: tables live in a lakehouse or warehouse, not %q", ErrInvalidArgument, parentKind)
	}
	ws, err := c.ResolveWorkspace(ctx, workspace)
	if err != nil {
		return "", "", err
	}
	ref, err := c.ResolveItem(ctx, ws.ID, parent, parentKind)
	if err != nil {
		return "", "", err
	}
	return ws.ID, ref.ID, nil
}
