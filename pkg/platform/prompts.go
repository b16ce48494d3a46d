package platform

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// registerPlatformPrompts registers the prompts listed under server.prompts.
func (p *Platform) registerPlatformPrompts() {
	for _, cfg := range p.config.Server.Prompts {
		if cfg.Name == "" || cfg.Content == "" {
			p.logger.Warn("skipping prompt without name or content", "name", cfg.Name)
			continue
		}
		p.registerPrompt(cfg)
	}
}

// registerPrompt registers a single static prompt with the MCP server.
func (p *Platform) registerPrompt(cfg PromptConfig) {
	content := cfg.Content
	p.mcpServer.AddPrompt(&mcp.Prompt{
		Name:        cfg.Name,
		Description: cfg.Description,
	}, func(context.Context, *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		return &mcp.GetPromptResult{
			Description: cfg.Description,
			Messages: []*mcp.PromptMessage{{
				Role:    "user",
				Content: &mcp.TextContent{Text: content},
			}},
		}, nil
	})
}
