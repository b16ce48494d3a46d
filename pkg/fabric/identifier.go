package fabric

import (
	"strings"

	"github.com/google/uuid"
)

// Identifier is either a canonical resource id or a display name.
// The zero value is an empty name.
type Identifier struct {
	canonical bool
	id        uuid.UUID
	name      string
}

// ParseIdentifier classifies s as canonical when it parses as a UUID and as a
// display name otherwise. Surrounding whitespace is ignored for the UUID check
// only; names are kept verbatim because resolution is exact-match.
func ParseIdentifier(s string) Identifier {
	if id, err := uuid.Parse(strings.TrimSpace(s)); err == nil && isPlainUUID(strings.TrimSpace(s)) {
		return Identifier{canonical: true, id: id}
	}
	return Identifier{name: s}
}

// Canonical builds an identifier from a known id.
func Canonical(id uuid.UUID) Identifier {
	return Identifier{canonical: true, id: id}
}

// Named builds an identifier from a display name.
func Named(name string) Identifier {
	return Identifier{name: name}
}

// IsCanonical reports whether the identifier holds an id. The nil UUID is
// still an id.
func (i Identifier) IsCanonical() bool {
	return i.canonical
}

// IsZero reports whether the identifier is empty.
func (i Identifier) IsZero() bool {
	return !i.IsCanonical() && i.name == ""
}

// ID returns the canonical id in lower-case form, or "" for names.
func (i Identifier) ID() string {
	if !i.IsCanonical() {
		return ""
	}
	return i.id.String()
}

// Name returns the display name, or "" for canonical identifiers.
func (i Identifier) Name() string {
	return i.name
}

// String returns the id or the name.
func (i Identifier) String() string {
	if i.IsCanonical() {
		return i.ID()
	}
	return i.name
}

// isPlainUUID rejects the urn:uuid: and braced forms uuid.Parse also accepts.
// Only the 36-character hyphenated form is an id on this platform.
func isPlainUUID(s string) bool {
	return len(s) == 36
}
