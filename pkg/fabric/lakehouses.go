package fabric

import "context"

// ListLakehouses returns the lakehouses of a workspace.
func (c *Client) ListLakehouses(ctx context.Context, workspace string) ([]Item, error) {
	return c.ListItems(ctx, workspace, KindLakehouse)
}

// GetLakehouse returns a lakehouse by name or id.
func (c *Client) GetLakehouse(ctx context.Context, workspace, lakehouse string) (*Item, error) {
	return c.getItem(ctx, workspace, lakehouse, KindLakehouse, KindLakehouse.segment())
}

// CreateLakehouse creates a lakehouse and waits until it is provisioned.
func (c *Client) CreateLakehouse(ctx context.Context, workspace, name, description string) (*Item, error) {
	req := CreateItemRequest{DisplayName: name, Description: description}
	return c.createItem(ctx, workspace, KindLakehouse.segment(), KindLakehouse, req)
}
