package fabric

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// ListItems returns the items of a workspace, optionally filtered by kind.
func (c *Client) ListItems(ctx context.Context, workspace string, kind ItemKind) ([]Item, error) {
	ws, err := c.ResolveWorkspace(ctx, workspace)
	if err != nil {
		return nil, err
	}
	return c.listItems(ctx, ws.ID, kind)
}

// GetItem returns one item. kind may be empty when item is an id.
func (c *Client) GetItem(ctx context.Context, workspace, item string, kind ItemKind) (*Item, error) {
	return c.getItem(ctx, workspace, item, kind, "items")
}

// CreateItem creates an item of req.Type and waits for the platform to
// finish provisioning it.
func (c *Client) CreateItem(ctx context.Context, workspace string, req CreateItemRequest) (*Item, error) {
	if req.Type == "" {
		return nil, fmt.Errorf("%w: item type must be specified", ErrInvalidArgument)
	}
	return c.createItem(ctx, workspace, "items", req.Type, req)
}

func (c *Client) getItem(ctx context.Context, workspace, item string, kind ItemKind, segment string) (*Item, error) {
	ws, err := c.ResolveWorkspace(ctx, workspace)
	if err != nil {
		return nil, err
	}
	ref, err := c.ResolveItem(ctx, ws.ID, item, kind)
	if err != nil {
		return nil, err
	}

	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Endpoint: itemPath(ws.ID, segment, ref.ID)})
	if err != nil {
		return nil, notFoundAs(err, kindLabel(kind), item)
	}
	var it Item
	if err := json.Unmarshal(resp.Body, &it); err != nil {
		return nil, &FormatError{Endpoint: itemPath(ws.ID, segment, ref.ID), Reason: err.Error()}
	}
	return &it, nil
}

// createItem posts req to workspaces/{ws}/{segment}, polls the operation
// when the platform answers 202 and checks that the created item echoes
// the requested display name.
func (c *Client) createItem(ctx context.Context, workspace, segment string, kind ItemKind, req CreateItemRequest) (*Item, error) {
	if req.DisplayName == "" {
		return nil, fmt.Errorf("%w: %s name must be specified", ErrInvalidArgument, kindLabel(kind))
	}
	ws, err := c.ResolveWorkspace(ctx, workspace)
	if err != nil {
		return nil, err
	}

	endpoint := itemPath(ws.ID, segment, "")
	resp, err := c.Do(ctx, Request{Method: http.MethodPost, Endpoint: endpoint, Body: req, LRO: true})
	if err != nil {
		return nil, err
	}
	body, err := c.awaitResponse(ctx, resp, c.cfg.CreatePollInterval)
	if err != nil {
		return nil, err
	}

	var it Item
	if len(body) > 0 {
		if err := json.Unmarshal(body, &it); err != nil {
			return nil, &FormatError{Endpoint: endpoint, Reason: err.Error(), Body: truncate(string(body), maxErrorBody)}
		}
	}
	if it.DisplayName != req.DisplayName {
		return nil, fmt.Errorf("%w: requested %s %q, platform returned %q", ErrCreationFailed, kindLabel(kind), req.DisplayName, it.DisplayName)
	}

	c.cache.add(cacheKey{kind: kind, scope: ws.ID, input: req.DisplayName}, cacheEntry{id: it.ID, name: it.DisplayName})
	c.logger.InfoContext(ctx, "created item", "kind", kind, "workspace", ws.ID, "id", it.ID, "name", it.DisplayName)
	return &it, nil
}

// notFoundAs maps an HTTP 404 to ErrNotFound for the named resource.
func notFoundAs(err error, label, input string) error {
	if isNotFoundStatus(err) {
		return fmt.Errorf("%s %q %w", label, input, ErrNotFound)
	}
	return err
}
