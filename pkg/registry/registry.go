// Package registry tracks the toolkits served by one MCP server and which
// toolkit owns each tool name.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Toolkit is a named group of MCP tools with its own lifecycle.
type Toolkit interface {
	Kind() string
	Name() string
	// Tools lists the tool names RegisterTools adds. Names must be unique
	// across a Registry.
	Tools() []string
	RegisterTools(s *mcp.Server)
	Close() error
}

// Registry manages toolkit registration and lifecycle.
type Registry struct {
	mu sync.RWMutex

	// Registered toolkits by kind+name
	toolkits map[string]Toolkit

	// Owning toolkit key by tool name
	tools map[string]string
}

// NewRegistry creates a new toolkit registry.
func NewRegistry() *Registry {
	return &Registry{
		toolkits: make(map[string]Toolkit),
		tools:    make(map[string]string),
	}
}

// Register adds a toolkit to the registry. A tool name may belong to only
// one toolkit.
func (r *Registry) Register(toolkit Toolkit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := toolkitKey(toolkit.Kind(), toolkit.Name())
	if _, exists := r.toolkits[key]; exists {
		return fmt.Errorf("toolkit %s already registered", key)
	}
	for _, tool := range toolkit.Tools() {
		if owner, taken := r.tools[tool]; taken {
			return fmt.Errorf("tool %s of toolkit %s already provided by %s", tool, key, owner)
		}
	}

	r.toolkits[key] = toolkit
	for _, tool := range toolkit.Tools() {
		r.tools[tool] = key
	}
	return nil
}

// Get retrieves a toolkit by kind and name.
func (r *Registry) Get(kind, name string) (Toolkit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	toolkit, ok := r.toolkits[toolkitKey(kind, name)]
	return toolkit, ok
}

// All returns all registered toolkits ordered by kind and name.
func (r *Registry) All() []Toolkit {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.toolkits))
	for key := range r.toolkits {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := make([]Toolkit, 0, len(keys))
	for _, key := range keys {
		result = append(result, r.toolkits[key])
	}
	return result
}

// AllTools returns all tool names from all toolkits, sorted.
func (r *Registry) AllTools() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]string, 0, len(r.tools))
	for tool := range r.tools {
		tools = append(tools, tool)
	}
	sort.Strings(tools)
	return tools
}

// GetToolkitForTool returns the kind and name of the toolkit providing a
// tool. Returns found=false if no registered toolkit provides it.
func (r *Registry) GetToolkitForTool(toolName string) (kind, name string, found bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key, ok := r.tools[toolName]
	if !ok {
		return "", "", false
	}
	toolkit := r.toolkits[key]
	return toolkit.Kind(), toolkit.Name(), true
}

// RegisterAllTools registers all tools from all toolkits with the MCP server.
func (r *Registry) RegisterAllTools(s *mcp.Server) {
	for _, toolkit := range r.All() {
		toolkit.RegisterTools(s)
	}
}

// Close closes all registered toolkits.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for key, toolkit := range r.toolkits {
		if err := toolkit.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing toolkit %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

func toolkitKey(kind, name string) string {
	return kind + ":" + name
}
