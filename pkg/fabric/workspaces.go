package fabric

import "context"

// ListWorkspaces returns every workspace the credential can see.
func (c *Client) ListWorkspaces(ctx context.Context) ([]Workspace, error) {
	return paginateInto[Workspace](ctx, c, "workspaces", nil, dataKeyValue)
}

// GetWorkspace returns a workspace by name or id.
func (c *Client) GetWorkspace(ctx context.Context, workspace string) (*Workspace, error) {
	ref, err := c.ResolveWorkspace(ctx, workspace)
	if err != nil {
		return nil, err
	}
	ws, err := c.fetchWorkspace(ctx, ref.ID)
	if err != nil {
		return nil, notFoundAs(err, "workspace", workspace)
	}
	return &ws, nil
}
