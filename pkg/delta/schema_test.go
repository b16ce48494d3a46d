package delta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSchema_NestedTypes(t *testing.T) {
	const schema = `{"type":"struct","fields":[
		{"name":"tags","type":{"type":"array","elementType":"string","containsNull":true},"nullable":true,"metadata":{}},
		{"name":"attrs","type":{"type":"map","keyType":"string","valueType":"integer","valueContainsNull":true},"nullable":true,"metadata":{}},
		{"name":"address","type":{"type":"struct","fields":[
			{"name":"city","type":"string","nullable":true,"metadata":{}},
			{"name":"zip","type":"string","nullable":true,"metadata":{}}]},"nullable":false,"metadata":{}}
	]}`

	s, err := ParseSchema(schema)
	require.NoError(t, err)
	require.Len(t, s.Fields, 3)
	assert.Equal(t, "array<string>", s.Fields[0].Type)
	assert.Equal(t, "map<string,integer>", s.Fields[1].Type)
	assert.Equal(t, "struct<city:string,zip:string>", s.Fields[2].Type)
	assert.False(t, s.Fields[2].Nullable)
}

func TestParseSchema_Invalid(t *testing.T) {
	_, err := ParseSchema("not json")
	require.ErrorIs(t, err, ErrInvalidLog)

	_, err = ParseSchema(`{"type":"array","elementType":"string"}`)
	require.ErrorIs(t, err, ErrInvalidLog)
}
