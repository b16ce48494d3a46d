package fabric

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

const (
	notebookFormat = "ipynb"
	notebookPart   = "notebook-content.ipynb"
	payloadBase64  = "InlineBase64"
)

// defaultNotebook is a one-cell Python notebook used when no content is given.
var defaultNotebook = map[string]any{
	"nbformat":       4,
	"nbformat_minor": 5,
	"cells": []any{
		map[string]any{
			"cell_type":       "code",
			"source":          []string{"print('Hello, Fabric!')\n"},
			"execution_count": nil,
			"outputs":         []any{},
			"metadata":        map[string]any{},
		},
	},
	"metadata": map[string]any{"language_info": map[string]any{"name": "python"}},
}

// ListNotebooks returns the notebooks of a workspace.
func (c *Client) ListNotebooks(ctx context.Context, workspace string) ([]Item, error) {
	return c.ListItems(ctx, workspace, KindNotebook)
}

// CreateNotebook creates a notebook from ipynb JSON content. Empty content
// creates a single-cell Python notebook.
func (c *Client) CreateNotebook(ctx context.Context, workspace, name string, content []byte) (*Item, error) {
	def, err := NotebookDefinition(content)
	if err != nil {
		return nil, err
	}
	req := CreateItemRequest{DisplayName: name, Definition: def}
	return c.createItem(ctx, workspace, KindNotebook.segment(), KindNotebook, req)
}

// NotebookDefinition wraps ipynb JSON in an item definition.
func NotebookDefinition(content []byte) (*ItemDefinition, error) {
	if len(content) == 0 {
		raw, err := json.Marshal(defaultNotebook)
		if err != nil {
			return nil, fmt.Errorf("encoding default notebook: %w", err)
		}
		content = raw
	}
	if !json.Valid(content) {
		return nil, fmt.Errorf("%w: notebook content is not valid JSON", ErrInvalidArgument)
	}
	return &ItemDefinition{
		Format: notebookFormat,
		Parts: []DefinitionPart{{
			Path:        notebookPart,
			Payload:     base64.StdEncoding.EncodeToString(content),
			PayloadType: payloadBase64,
		}},
	}, nil
}
