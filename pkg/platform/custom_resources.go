package platform

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// registerCustomResources registers the static resources from config, for
// example a glossary of workspace names for agents. They are registered
// regardless of resources.enabled, which only gates the fabric:// templates.
func (p *Platform) registerCustomResources() {
	for _, def := range p.config.Resources.Custom {
		if err := validateCustomResourceDef(def); err != nil {
			p.logger.Warn("skipping invalid custom resource", "uri", def.URI, "error", err)
			continue
		}
		p.mcpServer.AddResource(&mcp.Resource{
			URI:         def.URI,
			Name:        def.Name,
			Description: def.Description,
			MIMEType:    def.MIMEType,
		}, func(context.Context, *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			return buildCustomResourceResult(def)
		})
	}
}

// buildCustomResourceResult returns the contents of a custom resource.
// ContentFile is read on every request.
func buildCustomResourceResult(def CustomResourceDef) (*mcp.ReadResourceResult, error) {
	content := def.Content
	if def.ContentFile != "" {
		// #nosec G304 -- ContentFile comes from admin-controlled YAML config
		data, err := os.ReadFile(def.ContentFile)
		if err != nil {
			return nil, fmt.Errorf("reading custom resource file %q: %w", def.ContentFile, err)
		}
		content = string(data)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      def.URI,
			MIMEType: def.MIMEType,
			Text:     content,
		}},
	}, nil
}

// validateCustomResourceDef checks that a CustomResourceDef is complete and unambiguous.
func validateCustomResourceDef(def CustomResourceDef) error {
	switch {
	case def.URI == "":
		return errors.New("uri is required")
	case def.Name == "":
		return errors.New("name is required")
	case def.MIMEType == "":
		return errors.New("mime_type is required")
	case def.Content == "" && def.ContentFile == "":
		return errors.New("one of content or content_file is required")
	case def.Content != "" && def.ContentFile != "":
		return errors.New("content and content_file are mutually exclusive")
	}
	return nil
}
