package fabric

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/singleflight"
)

// ResolveWorkspace turns a workspace name or id into a WorkspaceRef.
// Ids are looked up to obtain the display name; names must match exactly.
// Successful results are cached by the exact input.
func (c *Client) ResolveWorkspace(ctx context.Context, input string) (WorkspaceRef, error) {
	ident := ParseIdentifier(input)
	if ident.IsZero() {
		return WorkspaceRef{}, fmt.Errorf("%w: workspace must be specified", ErrInvalidArgument)
	}

	entry, err := c.resolveCached(ctx, cacheKey{kind: KindWorkspace, input: input}, func(ctx context.Context) (cacheEntry, error) {
		if ident.IsCanonical() {
			ws, err := c.fetchWorkspace(ctx, ident.ID())
			if err != nil {
				if isNotFoundStatus(err) {
					return cacheEntry{}, fmt.Errorf("workspace %q %w", input, ErrNotFound)
				}
				return cacheEntry{}, err
			}
			return cacheEntry{id: ws.ID, name: ws.DisplayName}, nil
		}

		workspaces, err := paginateInto[Workspace](ctx, c, "workspaces", nil, dataKeyValue)
		if err != nil {
			return cacheEntry{}, err
		}
		for _, ws := range workspaces {
			if ws.DisplayName == input {
				return cacheEntry{id: ws.ID, name: ws.DisplayName}, nil
			}
		}
		return cacheEntry{}, fmt.Errorf("workspace %q %w", input, ErrNotFound)
	})
	if err != nil {
		return WorkspaceRef{}, err
	}
	return WorkspaceRef{ID: entry.id, Name: entry.name}, nil
}

// ResolveItem turns an item name or id inside workspaceID into an ItemRef.
// Names require kind. Ids are returned as given unless VerifyCanonicalIDs
// is set, in which case the item is fetched to confirm it exists.
func (c *Client) ResolveItem(ctx context.Context, workspaceID, input string, kind ItemKind) (ItemRef, error) {
	ident := ParseIdentifier(input)
	if ident.IsZero() {
		return ItemRef{}, fmt.Errorf("%w: %s must be specified", ErrInvalidArgument, kindLabel(kind))
	}
	if ident.IsCanonical() && !c.cfg.VerifyCanonicalIDs {
		return ItemRef{ID: ident.ID(), Kind: kind}, nil
	}
	if !ident.IsCanonical() && kind == "" {
		return ItemRef{}, fmt.Errorf("%w: item type is required to resolve %q by name", ErrInvalidArgument, input)
	}

	key := cacheKey{kind: kind, scope: workspaceID, input: input}
	entry, err := c.resolveCached(ctx, key, func(ctx context.Context) (cacheEntry, error) {
		if ident.IsCanonical() {
			return c.verifyItem(ctx, workspaceID, ident.ID(), kind)
		}
		return c.findItemByName(ctx, workspaceID, input, kind)
	})
	if err != nil {
		return ItemRef{}, err
	}
	return ItemRef{ID: entry.id, Name: entry.name, Kind: kind}, nil
}

// ResolveTable finds a table by exact name in a lakehouse or warehouse.
func (c *Client) ResolveTable(ctx context.Context, workspaceID, parentID string, parentKind ItemKind, name string) (Table, error) {
	if name == "" {
		return Table{}, fmt.Errorf("%w: table must be specified", ErrInvalidArgument)
	}
	tables, err := c.listTables(ctx, workspaceID, parentID, parentKind)
	if err != nil {
		return Table{}, err
	}
	for _, t := range tables {
		if t.Name == name {
			return t, nil
		}
	}
	return Table{}, fmt.Errorf("table %q %w", name, ErrNotFound)
}

// resolveCached returns the cached entry for key or runs lookup once,
// sharing the result with concurrent callers of the same key. The shared
// lookup is detached from any one caller's cancellation; each caller stops
// waiting when its own ctx ends.
func (c *Client) resolveCached(ctx context.Context, key cacheKey, lookup func(context.Context) (cacheEntry, error)) (cacheEntry, error) {
	if e, ok := c.cache.get(key); ok {
		return e, nil
	}

	lookupCtx := context.WithoutCancel(ctx)
	ch := c.lookups.DoChan(key.String(), func() (any, error) {
		if e, ok := c.cache.get(key); ok {
			return e, nil
		}
		e, err := lookup(lookupCtx)
		if err != nil {
			return nil, err
		}
		c.cache.add(key, e)
		c.logger.DebugContext(lookupCtx, "resolved", "kind", key.kind, "input", key.input, "id", e.id)
		return e, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return cacheEntry{}, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return cacheEntry{}, res.Err
	}
	e, ok := res.Val.(cacheEntry)
	if !ok {
		return cacheEntry{}, errors.New("resolve: unexpected cache value")
	}
	return e, nil
}

func (c *Client) findItemByName(ctx context.Context, workspaceID, name string, kind ItemKind) (cacheEntry, error) {
	items, err := c.listItems(ctx, workspaceID, kind)
	if err != nil {
		return cacheEntry{}, err
	}

	var matches []Item
	for _, it := range items {
		if it.DisplayName == name {
			matches = append(matches, it)
		}
	}
	switch {
	case len(matches) == 0:
		return cacheEntry{}, fmt.Errorf("%s %q %w", kindLabel(kind), name, ErrNotFound)
	case len(matches) > 1 && c.cfg.policyFor(kind) == DuplicateError:
		return cacheEntry{}, fmt.Errorf("%w: %d %ss named %q", ErrAmbiguousName, len(matches), kindLabel(kind), name)
	}
	return cacheEntry{id: matches[0].ID, name: matches[0].DisplayName}, nil
}

func (c *Client) verifyItem(ctx context.Context, workspaceID, id string, kind ItemKind) (cacheEntry, error) {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Endpoint: itemPath(workspaceID, "items", id)})
	if err != nil {
		if isNotFoundStatus(err) {
			return cacheEntry{}, fmt.Errorf("%s %q %w", kindLabel(kind), id, ErrNotFound)
		}
		return cacheEntry{}, err
	}
	var it Item
	if err := json.Unmarshal(resp.Body, &it); err != nil {
		return cacheEntry{}, &FormatError{Endpoint: "items/" + id, Reason: err.Error()}
	}
	if kind != "" && it.Type != "" && it.Type != kind {
		return cacheEntry{}, fmt.Errorf("%s %q %w (item is a %s)", kindLabel(kind), id, ErrNotFound, it.Type)
	}
	return cacheEntry{id: it.ID, name: it.DisplayName}, nil
}

func (c *Client) fetchWorkspace(ctx context.Context, id string) (Workspace, error) {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Endpoint: "workspaces/" + url.PathEscape(id)})
	if err != nil {
		return Workspace{}, err
	}
	var ws Workspace
	if err := json.Unmarshal(resp.Body, &ws); err != nil {
		return Workspace{}, &FormatError{Endpoint: "workspaces/" + id, Reason: err.Error()}
	}
	return ws, nil
}

func (c *Client) listItems(ctx context.Context, workspaceID string, kind ItemKind) ([]Item, error) {
	var params url.Values
	if kind != "" {
		params = url.Values{"type": {string(kind)}}
	}
	return paginateInto[Item](ctx, c, itemPath(workspaceID, "items", ""), params, dataKeyValue)
}

func (c *Client) listTables(ctx context.Context, workspaceID, parentID string, parentKind ItemKind) ([]Table, error) {
	endpoint := itemPath(workspaceID, parentKind.segment(), parentID) + "/tables"
	return paginateInto[Table](ctx, c, endpoint, nil, dataKeyData)
}

// itemPath builds workspaces/{ws}/{segment}[/{id}].
func itemPath(workspaceID, segment, id string) string {
	p := "workspaces/" + url.PathEscape(workspaceID) + "/" + segment
	if id != "" {
		p += "/" + url.PathEscape(id)
	}
	return p
}

// kindLabel is the lower-case noun used in messages.
func kindLabel(kind ItemKind) string {
	switch kind {
	case "":
		return "item"
	case KindSemanticModel:
		return "semantic model"
	default:
		return strings.ToLower(string(kind))
	}
}
