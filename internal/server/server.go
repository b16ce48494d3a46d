// Package server provides a factory for creating the MCP server.
package server

import (
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-fabric/pkg/platform"
)

// Version is set at build time.
var Version = "dev"

// New creates the MCP server and the platform backing it from cfg.
// An empty server version is replaced with the build version.
func New(cfg *platform.Config, opts ...platform.Option) (*mcp.Server, *platform.Platform, error) {
	if cfg.Server.Version == "" {
		cfg.Server.Version = Version
	}

	p, err := platform.New(append([]platform.Option{platform.WithConfig(cfg)}, opts...)...)
	if err != nil {
		return nil, nil, fmt.Errorf("creating platform: %w", err)
	}
	return p.MCPServer(), p, nil
}

// NewWithConfig loads the configuration file at path and creates the server.
func NewWithConfig(path string, opts ...platform.Option) (*mcp.Server, *platform.Platform, error) {
	cfg, err := platform.LoadConfig(path)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	return New(cfg, opts...)
}

// NewWithDefaults creates a server from the default configuration, which
// authenticates with the Azure CLI.
func NewWithDefaults(opts ...platform.Option) (*mcp.Server, *platform.Platform, error) {
	cfg, err := platform.ParseConfig(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("building default config: %w", err)
	}
	return New(cfg, opts...)
}
