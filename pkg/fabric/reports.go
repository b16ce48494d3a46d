package fabric

import "context"

// ListReports returns the reports of a workspace.
func (c *Client) ListReports(ctx context.Context, workspace string) ([]Item, error) {
	return c.ListItems(ctx, workspace, KindReport)
}

// GetReport returns a report by name or id.
func (c *Client) GetReport(ctx context.Context, workspace, report string) (*Item, error) {
	return c.getItem(ctx, workspace, report, KindReport, KindReport.segment())
}
