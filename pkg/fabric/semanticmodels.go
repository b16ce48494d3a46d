package fabric

import "context"

// ListSemanticModels returns the semantic models of a workspace.
func (c *Client) ListSemanticModels(ctx context.Context, workspace string) ([]Item, error) {
	return c.ListItems(ctx, workspace, KindSemanticModel)
}

// GetSemanticModel returns a semantic model by name or id.
func (c *Client) GetSemanticModel(ctx context.Context, workspace, model string) (*Item, error) {
	return c.getItem(ctx, workspace, model, KindSemanticModel, KindSemanticModel.segment())
}
