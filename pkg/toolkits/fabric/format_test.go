package fabric

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/mcp-fabric/pkg/delta"
	fabricclient "github.com/txn2/mcp-fabric/pkg/fabric"
)

func TestMarkdownTable(t *testing.T) {
	out, err := markdownTable("# Things", []string{"ID", "Name"}, [][]string{{"1", "alpha"}, {"2", "beta"}})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "# Things\n\n"))
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "Name")
	assert.Contains(t, out, "alpha")
	assert.Contains(t, out, "---")
	assert.Less(t, strings.Index(out, "alpha"), strings.Index(out, "beta"))
}

func TestFormatItems_NA(t *testing.T) {
	out, err := formatItems("", []fabricclient.Item{{ID: "1", DisplayName: "x", Type: fabricclient.KindReport}}, true)
	require.NoError(t, err)
	assert.Contains(t, out, "Report")
	assert.Contains(t, out, notAvailable)
}

func TestFormatMetadata(t *testing.T) {
	md := &delta.Metadata{
		ID:            "abc",
		Name:          "orders",
		CreatedTime:   time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC),
		Version:       2,
		LatestVersion: 5,
		Configuration: map[string]string{
			"b": "2",
			"a": "1",
		},
	}
	out := formatMetadata(md)
	assert.Contains(t, out, "- **ID:** abc")
	assert.Contains(t, out, "- **Name:** orders")
	assert.Contains(t, out, "- **Created:** 2026-03-01 12:30:00")
	assert.Contains(t, out, "- **Version:** 2 (latest 5)")
	assert.NotContains(t, out, "Description")
	assert.Less(t, strings.Index(out, "`a`"), strings.Index(out, "`b`"))
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Lakehouse", capitalize("lakehouse"))
	assert.Empty(t, capitalize(""))
	assert.Equal(t, "Semantic models", titleLabel(fabricclient.KindSemanticModel))
	assert.Equal(t, "notebooks", pluralLabel(fabricclient.KindNotebook))
}
