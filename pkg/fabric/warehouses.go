package fabric

import "context"

// ListWarehouses returns the warehouses of a workspace.
func (c *Client) ListWarehouses(ctx context.Context, workspace string) ([]Item, error) {
	return c.ListItems(ctx, workspace, KindWarehouse)
}

// GetWarehouse returns a warehouse by name or id.
func (c *Client) GetWarehouse(ctx context.Context, workspace, warehouse string) (*Item, error) {
	return c.getItem(ctx, workspace, warehouse, KindWarehouse, KindWarehouse.segment())
}

// CreateWarehouse creates a warehouse and waits until it is provisioned.
func (c *Client) CreateWarehouse(ctx context.Context, workspace, name, description string) (*Item, error) {
	req := CreateItemRequest{DisplayName: name, Description: description}
	return c.createItem(ctx, workspace, KindWarehouse.segment(), KindWarehouse, req)
}
