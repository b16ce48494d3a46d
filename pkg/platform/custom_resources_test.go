package platform

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCustomResourceDef(t *testing.T) {
	valid := CustomResourceDef{URI: "fabric://glossary", Name: "glossary", MIMEType: "text/markdown", Content: "# Glossary"}

	tests := []struct {
		name    string
		mutate  func(*CustomResourceDef)
		wantErr string
	}{
		{"valid", func(*CustomResourceDef) {}, ""},
		{"missing uri", func(d *CustomResourceDef) { d.URI = "" }, "uri is required"},
		{"missing name", func(d *CustomResourceDef) { d.Name = "" }, "name is required"},
		{"missing mime type", func(d *CustomResourceDef) { d.MIMEType = "" }, "mime_type is required"},
		{"no content", func(d *CustomResourceDef) { d.Content = "" }, "one of content or content_file is required"},
		{"both contents", func(d *CustomResourceDef) { d.ContentFile = "x.md" }, "mutually exclusive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := valid
			tt.mutate(&def)
			err := validateCustomResourceDef(def)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBuildCustomResourceResult_ReadsFileEachTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glossary.md")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o600))
	def := CustomResourceDef{URI: "fabric://glossary", MIMEType: "text/markdown", ContentFile: path}

	res, err := buildCustomResourceResult(def)
	require.NoError(t, err)
	assert.Equal(t, "v1", res.Contents[0].Text)

	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o600))
	res, err = buildCustomResourceResult(def)
	require.NoError(t, err)
	assert.Equal(t, "v2", res.Contents[0].Text)

	def.ContentFile = filepath.Join(t.TempDir(), "missing.md")
	_, err = buildCustomResourceResult(def)
	assert.Error(t, err)
}

func TestCustomResources_Registered(t *testing.T) {
	srv := newTestAPI(t)
	cfg := testConfig(srv)
	cfg.Resources.Custom = []CustomResourceDef{
		{URI: "fabric://glossary", Name: "glossary", MIMEType: "text/markdown", Content: "Bronze is raw data."},
		{URI: "fabric://broken", Name: "broken", MIMEType: "text/plain"},
	}
	p := newTestPlatform(t, cfg, srv)
	cs := connectTestClient(t, p.MCPServer())
	ctx := context.Background()

	list, err := cs.ListResources(ctx, nil)
	require.NoError(t, err)
	require.Len(t, list.Resources, 1)
	assert.Equal(t, "fabric://glossary", list.Resources[0].URI)

	res, err := cs.ReadResource(ctx, &mcp.ReadResourceParams{URI: "fabric://glossary"})
	require.NoError(t, err)
	assert.Equal(t, "Bronze is raw data.", res.Contents[0].Text)
}
