package delta

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Field is one column of a table schema.
type Field struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
	Comment  string `json:"comment,omitempty"`
}

// Schema is the top-level struct of a table.
type Schema struct {
	Fields []Field `json:"fields"`
}

// ParseSchema decodes a Delta schemaString. Nested types are rendered in
// the struct<...>, array<...> and map<...> notation.
func ParseSchema(schemaString string) (Schema, error) {
	if !gjson.Valid(schemaString) {
		return Schema{}, fmt.Errorf("%w: schema is not valid JSON", ErrInvalidLog)
	}
	root := gjson.Parse(schemaString)
	if root.Get("type").String() != "struct" {
		return Schema{}, fmt.Errorf("%w: schema root is %q, not struct", ErrInvalidLog, root.Get("type").String())
	}

	var s Schema
	root.Get("fields").ForEach(func(_, f gjson.Result) bool {
		s.Fields = append(s.Fields, Field{
			Name:     f.Get("name").String(),
			Type:     typeString(f.Get("type")),
			Nullable: f.Get("nullable").Bool(),
			Comment:  f.Get("metadata.comment").String(),
		})
		return true
	})
	return s, nil
}

// typeString renders a primitive type name or a nested type object.
func typeString(t gjson.Result) string {
	if t.Type == gjson.String {
		return t.String()
	}
	switch t.Get("type").String() {
	case "struct":
		var parts []string
		t.Get("fields").ForEach(func(_, f gjson.Result) bool {
			parts = append(parts, f.Get("name").String()+":"+typeString(f.Get("type")))
			return true
		})
		return "struct<" + strings.Join(parts, ",") + ">"
	case "array":
		return "array<" + typeString(t.Get("elementType")) + ">"
	case "map":
		return "map<" + typeString(t.Get("keyType")) + "," + typeString(t.Get("valueType")) + ">"
	default:
		return t.Raw
	}
}
