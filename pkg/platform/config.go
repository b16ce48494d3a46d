// Package platform wires the API client, session store, toolkit, audit
// logging and MCP server together from a YAML configuration.
package platform

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/txn2/mcp-fabric/pkg/admin"
	"github.com/txn2/mcp-fabric/pkg/audit"
	"github.com/txn2/mcp-fabric/pkg/auth"
	"github.com/txn2/mcp-fabric/pkg/fabric"
	"github.com/txn2/mcp-fabric/pkg/middleware"
	"github.com/txn2/mcp-fabric/pkg/session"
	sessionredis "github.com/txn2/mcp-fabric/pkg/session/redis"
	fabrickit "github.com/txn2/mcp-fabric/pkg/toolkits/fabric"
)

// Session store kinds.
const (
	SessionStoreMemory   = "memory"
	SessionStoreRedis    = "redis"
	SessionStorePostgres = "postgres"
)

// Transports.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

const (
	defaultServerName      = "mcp-fabric"
	defaultServerVersion   = "dev"
	defaultAddress         = ":8080"
	defaultShutdownTimeout = 10 * time.Second
	defaultMaxOpenConns    = 10
	defaultRetentionDays   = 90
)

// Config holds the complete server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Fabric    FabricConfig    `yaml:"fabric"`
	Session   SessionConfig   `yaml:"session"`
	Database  DatabaseConfig  `yaml:"database"`
	Audit     audit.Config    `yaml:"audit"`
	Resources ResourcesConfig `yaml:"resources"`
	Admin     AdminConfig     `yaml:"admin"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Name         string         `yaml:"name"`
	Version      string         `yaml:"version"`
	Instructions string         `yaml:"instructions"`
	Prompts      []PromptConfig `yaml:"prompts"`
	Transport    string         `yaml:"transport"` // "stdio" or "http"
	Address      string         `yaml:"address"`
	TLS          TLSConfig      `yaml:"tls"`

	// RequireToken rejects HTTP requests without a platform bearer token.
	RequireToken    bool          `yaml:"require_token"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// PromptConfig defines a server-level MCP prompt.
type PromptConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Content     string `yaml:"content"`
}

// TLSConfig configures TLS for the HTTP transport.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// LoggingConfig configures the process logger and tool call logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json

	middleware.LoggingConfig `yaml:",inline"`
}

// FabricConfig configures the API client and the tools built on it.
type FabricConfig struct {
	API        fabric.Config    `yaml:"api"`
	Credential auth.Config      `yaml:"credential"`
	Tools      fabrickit.Config `yaml:"tools"`
	Delta      DeltaConfig      `yaml:"delta"`
}

// DeltaConfig configures the Delta schema reader.
type DeltaConfig struct {
	// Disabled turns off the schema tools' log reader.
	Disabled     bool `yaml:"disabled"`
	MaxCommits   int  `yaml:"max_commits"`
	MaxListPages int  `yaml:"max_list_pages"`
}

// SessionConfig configures the session context store.
type SessionConfig struct {
	Store           string              `yaml:"store"` // memory, redis or postgres
	TTL             time.Duration       `yaml:"ttl"`
	MaxEntries      int                 `yaml:"max_entries"`
	CleanupInterval time.Duration       `yaml:"cleanup_interval"`
	Redis           sessionredis.Config `yaml:"redis"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// ResourcesConfig configures MCP resources.
type ResourcesConfig struct {
	// Enabled registers the fabric:// resource templates.
	Enabled bool `yaml:"enabled"`

	// Custom lists static resources registered regardless of Enabled.
	Custom []CustomResourceDef `yaml:"custom"`
}

// CustomResourceDef defines a static MCP resource.
type CustomResourceDef struct {
	URI         string `yaml:"uri"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	MIMEType    string `yaml:"mime_type"`
	Content     string `yaml:"content"`
	ContentFile string `yaml:"content_file"`
}

// AdminConfig configures the admin REST API served next to the HTTP
// transport.
type AdminConfig struct {
	Enabled bool           `yaml:"enabled"`
	APIKeys []admin.APIKey `yaml:"api_keys"`
}

// LoadConfig loads configuration from a file.
// The path is expected to come from command line arguments, controlled by the administrator.
func LoadConfig(path string) (*Config, error) {
	// #nosec G304 -- path is from CLI args, controlled by admin
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML configuration, expands ${VAR} references and
// applies defaults. The result is validated.
func ParseConfig(data []byte) (*Config, error) {
	data = []byte(expandEnvVars(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in the string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

// applyDefaults applies default values to the config.
func applyDefaults(cfg *Config) {
	if cfg.Server.Name == "" {
		cfg.Server.Name = defaultServerName
	}
	if cfg.Server.Transport == "" {
		cfg.Server.Transport = TransportStdio
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = defaultAddress
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Session.Store == "" {
		cfg.Session.Store = SessionStoreMemory
	}
	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = session.DefaultTTL
	}
	if cfg.Session.MaxEntries == 0 {
		cfg.Session.MaxEntries = session.DefaultMaxEntries
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = defaultMaxOpenConns
	}
	if cfg.Audit.RetentionDays == 0 {
		cfg.Audit.RetentionDays = defaultRetentionDays
	}
	cfg.Fabric.API.DuplicateNames = normalizeKinds(cfg.Fabric.API.DuplicateNames)
}

// normalizeKinds maps configured kind names such as "lakehouse" to the
// platform's item kinds.
func normalizeKinds(in map[fabric.ItemKind]fabric.DuplicatePolicy) map[fabric.ItemKind]fabric.DuplicatePolicy {
	if in == nil {
		return nil
	}
	out := make(map[fabric.ItemKind]fabric.DuplicatePolicy, len(in))
	for kind, policy := range in {
		out[fabric.ParseItemKind(string(kind))] = policy
	}
	return out
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	switch c.Server.Transport {
	case TransportStdio, TransportHTTP:
	default:
		errs = append(errs, fmt.Sprintf("server.transport must be stdio or http, got %q", c.Server.Transport))
	}
	if c.Server.TLS.Enabled && (c.Server.TLS.CertFile == "" || c.Server.TLS.KeyFile == "") {
		errs = append(errs, "server.tls.cert_file and server.tls.key_file are required when TLS is enabled")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("logging.format must be text or json, got %q", c.Logging.Format))
	}

	switch c.Session.Store {
	case SessionStoreMemory:
	case SessionStoreRedis:
		if len(c.Session.Redis.Addrs) == 0 {
			errs = append(errs, "session.redis.addrs is required for the redis store")
		}
	case SessionStorePostgres:
		if c.Database.DSN == "" {
			errs = append(errs, "database.dsn is required for the postgres session store")
		}
	default:
		errs = append(errs, fmt.Sprintf("session.store must be memory, redis or postgres, got %q", c.Session.Store))
	}
	if c.Session.TTL < 0 {
		errs = append(errs, "session.ttl must not be negative")
	}

	if c.Fabric.Credential.Type == auth.TypePassthrough && c.Server.Transport != TransportHTTP {
		errs = append(errs, "fabric.credential.type passthrough requires the http transport")
	}

	if c.Admin.Enabled {
		if c.Server.Transport != TransportHTTP {
			errs = append(errs, "admin requires the http transport")
		}
		if len(c.Admin.APIKeys) == 0 {
			errs = append(errs, "admin.api_keys must list at least one key")
		}
	}

	if len(errs) > 0 {
		return errors.New("config validation errors: " + strings.Join(errs, "; "))
	}
	return nil
}
