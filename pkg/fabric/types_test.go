package fabric

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIdentifier(t *testing.T) {
	tests := []struct {
		input     string
		canonical bool
		want      string
	}{
		{testWorkspaceID, true, testWorkspaceID},
		{"  " + testWorkspaceID + " ", true, testWorkspaceID},
		{"11111111-1111-1111-1111-11111111111A", true, "11111111-1111-1111-1111-11111111111a"},
		{"Sales", false, "Sales"},
		{"  Sales ", false, "  Sales "},
		{"{" + testWorkspaceID + "}", false, "{" + testWorkspaceID + "}"},
		{"urn:uuid:" + testWorkspaceID, false, "urn:uuid:" + testWorkspaceID},
		{"11111111111111111111111111111111", false, "11111111111111111111111111111111"},
		{"00000000-0000-0000-0000-000000000000", true, "00000000-0000-0000-0000-000000000000"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			id := ParseIdentifier(tt.input)
			assert.Equal(t, tt.canonical, id.IsCanonical())
			assert.Equal(t, tt.want, id.String())
		})
	}
}

func TestIdentifier_Accessors(t *testing.T) {
	assert.True(t, ParseIdentifier("").IsZero())
	assert.True(t, Identifier{}.IsZero())

	named := Named("Bronze")
	assert.Equal(t, "Bronze", named.Name())
	assert.Empty(t, named.ID())

	u := uuid.MustParse(testLakehouseID)
	canon := Canonical(u)
	assert.Equal(t, testLakehouseID, canon.ID())
	assert.Empty(t, canon.Name())
	assert.False(t, canon.IsZero())

	nilID := Canonical(uuid.Nil)
	assert.True(t, nilID.IsCanonical())
	assert.False(t, nilID.IsZero())
	assert.Equal(t, uuid.Nil.String(), nilID.ID())
	assert.Empty(t, nilID.Name())
}

func TestParseItemKind(t *testing.T) {
	tests := map[string]ItemKind{
		"lakehouse":      KindLakehouse,
		"Lakehouse":      KindLakehouse,
		"semantic_model": KindSemanticModel,
		"semantic model": KindSemanticModel,
		"SemanticModel":  KindSemanticModel,
		"notebook":       KindNotebook,
		"DataPipeline":   ItemKind("DataPipeline"),
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseItemKind(in), in)
	}
}

func TestItemKind_Segment(t *testing.T) {
	assert.Equal(t, "lakehouses", KindLakehouse.segment())
	assert.Equal(t, "semanticModels", KindSemanticModel.segment())
	assert.Equal(t, "items", ItemKind("DataPipeline").segment())
}

func TestDuplicatePolicy_Text(t *testing.T) {
	var p DuplicatePolicy
	require.NoError(t, p.UnmarshalText([]byte("ERROR")))
	assert.Equal(t, DuplicateError, p)
	require.NoError(t, p.UnmarshalText([]byte("first")))
	assert.Equal(t, DuplicateFirstMatch, p)
	require.ErrorIs(t, p.UnmarshalText([]byte("random")), ErrInvalidArgument)

	b, err := DuplicateError.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "error", string(b))
}

func TestTable_IsDelta(t *testing.T) {
	assert.True(t, Table{Format: "Delta"}.IsDelta())
	assert.True(t, Table{Format: "delta"}.IsDelta())
	assert.False(t, Table{Format: "parquet"}.IsDelta())
}
