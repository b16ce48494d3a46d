package fabric

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ItemKind is the platform item type, as sent in the type query parameter.
type ItemKind string

// Item kinds used by the client.
const (
	KindLakehouse     ItemKind = "Lakehouse"
	KindWarehouse     ItemKind = "Warehouse"
	KindReport        ItemKind = "Report"
	KindSemanticModel ItemKind = "SemanticModel"
	KindNotebook      ItemKind = "Notebook"
)

// kindSegments maps kinds to their dedicated REST collection.
var kindSegments = map[ItemKind]string{
	KindLakehouse:     "lakehouses",
	KindWarehouse:     "warehouses",
	KindReport:        "reports",
	KindSemanticModel: "semanticModels",
	KindNotebook:      "notebooks",
}

// segment returns the collection path for kind, falling back to the generic
// items collection.
func (k ItemKind) segment() string {
	if s, ok := kindSegments[k]; ok {
		return s
	}
	return "items"
}

// ParseItemKind maps user input such as "lakehouse" or "semantic_model" to a
// known kind. Unknown values are passed through unchanged so new platform
// types keep working.
func ParseItemKind(s string) ItemKind {
	norm := strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(s))
	for k := range kindSegments {
		if strings.ToLower(string(k)) == norm {
			return k
		}
	}
	return ItemKind(s)
}

// DuplicatePolicy decides what name resolution does when several resources
// share a display name.
type DuplicatePolicy int

const (
	// DuplicateFirstMatch returns the first match in listing order.
	DuplicateFirstMatch DuplicatePolicy = iota

	// DuplicateError fails with ErrAmbiguousName.
	DuplicateError
)

func (p DuplicatePolicy) String() string {
	if p == DuplicateError {
		return "error"
	}
	return "first_match"
}

// MarshalText implements encoding.TextMarshaler.
func (p DuplicatePolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *DuplicatePolicy) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "error", "ambiguous":
		*p = DuplicateError
	case "first_match", "first", "":
		*p = DuplicateFirstMatch
	default:
		return fmt.Errorf("%w: unknown duplicate policy %q", ErrInvalidArgument, string(b))
	}
	return nil
}

// Workspace is a top-level container for platform items.
type Workspace struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
	CapacityID  string `json:"capacityId,omitempty"`
}

// Item is any platform resource inside a workspace.
type Item struct {
	ID          string          `json:"id"`
	DisplayName string          `json:"displayName"`
	Description string          `json:"description,omitempty"`
	Type        ItemKind        `json:"type,omitempty"`
	WorkspaceID string          `json:"workspaceId,omitempty"`
	FolderID    string          `json:"folderId,omitempty"`
	Properties  json.RawMessage `json:"properties,omitempty"`
}

// Table describes a table registered in a lakehouse or warehouse.
type Table struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Location string `json:"location"`
	Format   string `json:"format"`
}

// IsDelta reports whether the table is stored in Delta format.
func (t Table) IsDelta() bool {
	return strings.EqualFold(t.Format, "delta")
}

// WorkspaceRef is a resolved workspace.
type WorkspaceRef struct {
	ID   string
	Name string
}

// ItemRef is a resolved item. Name is empty when a canonical id was accepted
// without verification.
type ItemRef struct {
	ID   string
	Name string
	Kind ItemKind
}

// ItemDefinition is the public definition of an item, made of parts.
type ItemDefinition struct {
	Format string           `json:"format,omitempty"`
	Parts  []DefinitionPart `json:"parts"`
}

// DefinitionPart is one file of an item definition.
type DefinitionPart struct {
	Path        string `json:"path"`
	Payload     string `json:"payload"`
	PayloadType string `json:"payloadType"`
}

// CreateItemRequest is the body of a create call.
type CreateItemRequest struct {
	DisplayName string          `json:"displayName"`
	Type        ItemKind        `json:"type,omitempty"`
	Description string          `json:"description,omitempty"`
	Definition  *ItemDefinition `json:"definition,omitempty"`
}
